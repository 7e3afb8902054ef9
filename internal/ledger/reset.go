package ledger

import (
	"fmt"
	"time"
)

// ResetOptions selects which stages of a collection reset to run.
type ResetOptions struct {
	// DeleteTestMints purges test-only mint records.
	DeleteTestMints bool
	// ResetPhaseTimes extends lapsed phase end times by ResetExtension.
	ResetPhaseTimes bool
	// ResetExtension is how far past now a lapsed end time is pushed.
	// Zero means 24 hours.
	ResetExtension time.Duration
}

// ResetSummary reports what each stage of a reset accomplished. A
// partially failed reset still reports the stages that completed.
type ResetSummary struct {
	PhasesUncompleted int    `json:"phases_uncompleted"`
	PhaseTimesReset   int    `json:"phase_times_reset"`
	TestMintsDeleted  int    `json:"test_mints_deleted"`
	PhaseStageDone    bool   `json:"phase_stage_done"`
	TestMintStageDone bool   `json:"test_mint_stage_done"`
	FailedStage       string `json:"failed_stage,omitempty"`
}

// ResetCollection clears a collection's completed-phase markers and,
// per options, purges test mints and extends lapsed phase windows.
// Non-test mint history and the minted flags of successfully minted
// content are never touched.
func (l *Ledger) ResetCollection(collectionID string, opts ResetOptions) (*ResetSummary, error) {
	if _, err := l.store.GetCollection(collectionID); err != nil {
		return nil, fmt.Errorf("load collection %s: %w", collectionID, err)
	}

	ext := opts.ResetExtension
	if ext == 0 {
		ext = 24 * time.Hour
	}
	summary := &ResetSummary{}

	// Stage 1: phase markers and windows.
	phases, err := l.store.PhasesForCollection(collectionID)
	if err != nil {
		summary.FailedStage = "phases"
		return summary, fmt.Errorf("list phases: %w", err)
	}
	now := l.now()
	for _, p := range phases {
		changed := false
		if p.IsCompleted {
			p.IsCompleted = false
			summary.PhasesUncompleted++
			changed = true
		}
		if opts.ResetPhaseTimes && p.EndTime != nil && p.EndTime.Before(now) {
			end := now.Add(ext)
			p.EndTime = &end
			summary.PhaseTimesReset++
			changed = true
		}
		if changed {
			if err := l.store.PutPhase(p); err != nil {
				summary.FailedStage = "phases"
				return summary, fmt.Errorf("reset phase %s: %w", p.ID, err)
			}
		}
	}
	summary.PhaseStageDone = true

	// Stage 2: test mint purge.
	if opts.DeleteTestMints {
		var testMints []*MintInscription
		err := l.store.ForEachMint(func(m *MintInscription) error {
			if m.CollectionID == collectionID && m.IsTestMint {
				testMints = append(testMints, m)
			}
			return nil
		})
		if err != nil {
			summary.FailedStage = "test_mints"
			return summary, fmt.Errorf("scan test mints: %w", err)
		}
		for _, m := range testMints {
			if err := l.store.DeleteMint(m); err != nil {
				summary.FailedStage = "test_mints"
				return summary, fmt.Errorf("delete test mint %s: %w", m.ID, err)
			}
			summary.TestMintsDeleted++
		}
	}
	summary.TestMintStageDone = true

	l.logg.Info().
		Str("collection_id", collectionID).
		Int("phases_uncompleted", summary.PhasesUncompleted).
		Int("phase_times_reset", summary.PhaseTimesReset).
		Int("test_mints_deleted", summary.TestMintsDeleted).
		Msg("collection reset")
	return summary, nil
}
