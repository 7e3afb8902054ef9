package ledger

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a mint mutator is applied to a
// record whose current status does not admit it.
var ErrInvalidTransition = errors.New("ledger: invalid status transition")

// RecordCommitBroadcast moves pending -> commit_broadcast, recording
// the commit transaction and the output funded for the reveal.
func (l *Ledger) RecordCommitBroadcast(mintID, commitTxID string, vout uint32, value int64) (*MintInscription, error) {
	return l.transition(mintID, func(m *MintInscription) error {
		if m.Status != StatusPending {
			return fmt.Errorf("%w: %s -> commit_broadcast", ErrInvalidTransition, m.Status)
		}
		if commitTxID == "" {
			return fmt.Errorf("commit txid required")
		}
		m.Status = StatusCommitBroadcast
		m.CommitTxID = commitTxID
		m.CommitVout = vout
		m.CommitValue = value
		now := l.now()
		m.CommitBroadcastAt = &now
		return nil
	})
}

// MarkCommitConfirmed moves commit_broadcast -> commit_confirmed.
func (l *Ledger) MarkCommitConfirmed(mintID string) (*MintInscription, error) {
	return l.transition(mintID, func(m *MintInscription) error {
		if m.Status != StatusCommitBroadcast {
			return fmt.Errorf("%w: %s -> commit_confirmed", ErrInvalidTransition, m.Status)
		}
		m.Status = StatusCommitConfirmed
		now := l.now()
		m.CommitConfirmedAt = &now
		return nil
	})
}

// RecordRevealBroadcast moves commit_confirmed -> reveal_broadcast,
// recording the reveal transaction and the inscription id it will mint.
func (l *Ledger) RecordRevealBroadcast(mintID, revealTxID, inscriptionID string) (*MintInscription, error) {
	return l.transition(mintID, func(m *MintInscription) error {
		if m.Status != StatusCommitConfirmed {
			return fmt.Errorf("%w: %s -> reveal_broadcast", ErrInvalidTransition, m.Status)
		}
		if revealTxID == "" {
			return fmt.Errorf("reveal txid required")
		}
		m.Status = StatusRevealBroadcast
		m.RevealTxID = revealTxID
		m.InscriptionID = inscriptionID
		now := l.now()
		m.RevealBroadcastAt = &now
		return nil
	})
}

// MarkCompleted moves reveal_broadcast -> completed. This is the single
// point where the content item's minted flag is set and the whitelist
// entry's minted count is incremented; no other transition touches
// either.
func (l *Ledger) MarkCompleted(mintID string) (*MintInscription, error) {
	return l.transition(mintID, func(m *MintInscription) error {
		if m.Status != StatusRevealBroadcast {
			return fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, m.Status)
		}
		m.Status = StatusCompleted
		now := l.now()
		m.CompletedAt = &now

		if m.IsTestMint {
			return nil
		}
		if err := l.markContentMinted(m.ContentID); err != nil {
			return err
		}
		return l.bumpWhitelistCount(m)
	})
}

// MarkFailed moves any non-terminal state -> failed with a classified
// reason. Failed mints release allocation and never touch content or
// whitelist counters.
func (l *Ledger) MarkFailed(mintID string, kind FailureKind, message string) (*MintInscription, error) {
	return l.transition(mintID, func(m *MintInscription) error {
		if m.Status.IsTerminal() {
			return fmt.Errorf("%w: %s -> failed", ErrInvalidTransition, m.Status)
		}
		m.Status = StatusFailed
		m.FailureKind = kind
		m.ErrorMessage = message
		now := l.now()
		m.FailedAt = &now
		return nil
	})
}

// MarkExpired moves any non-terminal state -> expired (phase window
// lapsed before the mint reached commit_broadcast).
func (l *Ledger) MarkExpired(mintID string) (*MintInscription, error) {
	return l.transition(mintID, func(m *MintInscription) error {
		if m.Status.IsTerminal() {
			return fmt.Errorf("%w: %s -> expired", ErrInvalidTransition, m.Status)
		}
		m.Status = StatusExpired
		now := l.now()
		m.ExpiredAt = &now
		return nil
	})
}

// transition loads a mint, applies fn under the record's
// (wallet, phase) lock and persists the result.
func (l *Ledger) transition(mintID string, fn func(*MintInscription) error) (*MintInscription, error) {
	m, err := l.store.GetMint(mintID)
	if err != nil {
		return nil, err
	}

	mu := l.lockFor(m.MinterWallet, m.PhaseID)
	mu.Lock()
	defer mu.Unlock()

	// Reload under the lock: the record may have moved since the
	// unlocked read.
	m, err = l.store.GetMint(mintID)
	if err != nil {
		return nil, err
	}
	prev := m.Status
	if err := fn(m); err != nil {
		return nil, err
	}
	if err := l.store.PutMint(m); err != nil {
		return nil, err
	}

	l.logg.Info().
		Str("mint_id", m.ID).
		Str("from", string(prev)).
		Str("to", string(m.Status)).
		Msg("mint status advanced")
	return m, nil
}

// markContentMinted sets the content item's minted flag, exactly once.
func (l *Ledger) markContentMinted(contentID string) error {
	if contentID == "" {
		return nil
	}
	item, err := l.store.GetContentItem(contentID)
	if err == ErrNotFound {
		return nil // Content tracked elsewhere; nothing to flag.
	}
	if err != nil {
		return err
	}
	if item.IsMinted {
		return fmt.Errorf("content item %s already minted", contentID)
	}
	item.IsMinted = true
	return l.store.PutContentItem(item)
}

// bumpWhitelistCount increments the wallet's minted count in the
// phase's whitelist, when one is configured.
func (l *Ledger) bumpWhitelistCount(m *MintInscription) error {
	phase, err := l.store.GetPhase(m.CollectionID, m.PhaseID)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	if phase.WhitelistID == nil || *phase.WhitelistID == "" {
		return nil
	}
	entry, err := l.store.GetWhitelistEntry(*phase.WhitelistID, m.MinterWallet)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	entry.MintedCount++
	return l.store.PutWhitelistEntry(entry)
}
