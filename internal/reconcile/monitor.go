// Package reconcile drives in-flight mint records to a terminal or
// advanced state by polling the chain indexer. It is the only component
// allowed to move records forward on confirmation evidence, so the
// ledger stays consistent even when broadcast callers crash mid-flow.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ordforge/ordforge/internal/chainindex"
	"github.com/ordforge/ordforge/internal/ledger"
	"github.com/ordforge/ordforge/internal/log"
)

// TxSource answers confirmation queries for the monitor. Satisfied by
// *chainindex.Client.
type TxSource interface {
	TxStatus(ctx context.Context, txid string) (*chainindex.TxStatus, error)
}

const (
	// DefaultInterval is how often the monitor sweeps pending records.
	DefaultInterval = 45 * time.Second
	// DefaultStaleAfter bounds how long a record may sit in one
	// non-terminal state before the sweep forces it to failed.
	DefaultStaleAfter = 10 * time.Minute
)

// Options configures a Monitor.
type Options struct {
	Interval   time.Duration
	StaleAfter time.Duration
}

// Monitor periodically reconciles non-terminal mint records against the
// chain indexer.
type Monitor struct {
	led        *ledger.Ledger
	txs        TxSource
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
	logg       zerolog.Logger
}

// Summary reports the outcome of one reconciliation sweep.
type Summary struct {
	Checked      int
	Advanced     int
	Failed       int
	Expired      int
	StillPending int
}

// New creates a monitor over the given ledger and transaction source.
func New(led *ledger.Ledger, txs TxSource, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	return &Monitor{
		led:        led,
		txs:        txs,
		interval:   opts.Interval,
		staleAfter: opts.StaleAfter,
		now:        time.Now,
		logg:       log.Monitor,
	}
}

// Start runs the sweep loop until ctx is cancelled. It blocks; run it
// in its own goroutine.
func (m *Monitor) Start(ctx context.Context) {
	m.logg.Info().
		Dur("interval", m.interval).
		Dur("stale_after", m.staleAfter).
		Msg("reconciliation monitor started")

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logg.Info().Msg("reconciliation monitor stopped")
			return
		case <-ticker.C:
			summary, err := m.ReconcilePending(ctx)
			if err != nil {
				m.logg.Error().Err(err).Msg("reconciliation sweep failed")
				continue
			}
			if summary.Checked > 0 {
				m.logg.Info().
					Int("checked", summary.Checked).
					Int("advanced", summary.Advanced).
					Int("failed", summary.Failed).
					Int("expired", summary.Expired).
					Int("still_pending", summary.StillPending).
					Msg("reconciliation sweep complete")
			}
		}
	}
}

// ReconcilePending performs one sweep over all non-terminal mint
// records. A failure on one record is logged and never aborts the
// sweep.
func (m *Monitor) ReconcilePending(ctx context.Context) (*Summary, error) {
	var records []*ledger.MintInscription
	err := m.led.Store().ForEachMint(func(rec *ledger.MintInscription) error {
		if !rec.Status.IsTerminal() {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan mint records: %w", err)
	}

	summary := &Summary{}
	for _, rec := range records {
		summary.Checked++
		if err := m.reconcileOne(ctx, rec, summary); err != nil {
			m.logg.Warn().Err(err).
				Str("mint_id", rec.ID).
				Str("status", string(rec.Status)).
				Msg("record reconciliation failed, will retry next sweep")
			summary.StillPending++
		}
	}
	return summary, nil
}

func (m *Monitor) reconcileOne(ctx context.Context, rec *ledger.MintInscription, summary *Summary) error {
	switch rec.Status {
	case ledger.StatusPending:
		return m.reconcilePending(rec, summary)
	case ledger.StatusCommitBroadcast:
		return m.reconcileCommit(ctx, rec, summary)
	case ledger.StatusCommitConfirmed:
		return m.reconcileConfirmed(rec, summary)
	case ledger.StatusRevealBroadcast:
		return m.reconcileReveal(ctx, rec, summary)
	}
	return nil
}

// reconcilePending expires reservations that never broadcast a commit:
// either their phase window closed or they have sat unfunded past the
// staleness bound.
func (m *Monitor) reconcilePending(rec *ledger.MintInscription, summary *Summary) error {
	phase, err := m.led.Store().GetPhase(rec.CollectionID, rec.PhaseID)
	if err != nil {
		return fmt.Errorf("load phase %s: %w", rec.PhaseID, err)
	}
	windowClosed := !phase.WindowOpenAt(m.now())
	if !windowClosed && !m.stale(rec.CreatedAt) {
		summary.StillPending++
		return nil
	}
	if _, err := m.led.MarkExpired(rec.ID); err != nil {
		return err
	}
	m.logg.Info().Str("mint_id", rec.ID).Bool("window_closed", windowClosed).Msg("pending reservation expired")
	summary.Expired++
	return nil
}

func (m *Monitor) reconcileCommit(ctx context.Context, rec *ledger.MintInscription, summary *Summary) error {
	status, err := m.txs.TxStatus(ctx, rec.CommitTxID)
	if err != nil {
		// A record past the staleness bound is forced out regardless of
		// query outcome: an indexer outage must not keep it holding its
		// allocation forever.
		if m.staleSince(rec.CommitBroadcastAt, rec.CreatedAt) {
			return m.fail(rec, summary, ledger.FailureTimeout,
				fmt.Sprintf("no confirmation for commit transaction %s after %s", rec.CommitTxID, m.staleAfter))
		}
		return fmt.Errorf("query commit tx %s: %w", rec.CommitTxID, err)
	}

	switch {
	case status.ExecError != "":
		return m.fail(rec, summary, ledger.FailureExecution,
			fmt.Sprintf("commit transaction rejected: %s", status.ExecError))
	case status.Confirmed:
		if _, err := m.led.MarkCommitConfirmed(rec.ID); err != nil {
			return err
		}
		m.logg.Info().Str("mint_id", rec.ID).Str("commit_tx", rec.CommitTxID).
			Int64("height", status.BlockHeight).Msg("commit confirmed")
		summary.Advanced++
		return nil
	case !status.Found && m.staleSince(rec.CommitBroadcastAt, rec.CreatedAt):
		return m.fail(rec, summary, ledger.FailureTimeout,
			fmt.Sprintf("commit transaction %s not seen by the network within %s", rec.CommitTxID, m.staleAfter))
	default:
		summary.StillPending++
		return nil
	}
}

// reconcileConfirmed watches for confirmed commits whose reveal never
// went out. The funds sit in the commit output, so the record fails
// with a timeout and the operator can recover them.
func (m *Monitor) reconcileConfirmed(rec *ledger.MintInscription, summary *Summary) error {
	if !m.staleSince(rec.CommitConfirmedAt, rec.CreatedAt) {
		summary.StillPending++
		return nil
	}
	return m.fail(rec, summary, ledger.FailureTimeout,
		fmt.Sprintf("reveal not broadcast within %s of commit confirmation", m.staleAfter))
}

func (m *Monitor) reconcileReveal(ctx context.Context, rec *ledger.MintInscription, summary *Summary) error {
	status, err := m.txs.TxStatus(ctx, rec.RevealTxID)
	if err != nil {
		if m.staleSince(rec.RevealBroadcastAt, rec.CreatedAt) {
			return m.fail(rec, summary, ledger.FailureTimeout,
				fmt.Sprintf("no confirmation for reveal transaction %s after %s", rec.RevealTxID, m.staleAfter))
		}
		return fmt.Errorf("query reveal tx %s: %w", rec.RevealTxID, err)
	}

	switch {
	case status.ExecError != "":
		return m.fail(rec, summary, ledger.FailureExecution,
			fmt.Sprintf("reveal transaction rejected: %s", status.ExecError))
	case status.Confirmed:
		if _, err := m.led.MarkCompleted(rec.ID); err != nil {
			return err
		}
		m.logg.Info().Str("mint_id", rec.ID).Str("inscription_id", rec.InscriptionID).
			Msg("mint completed")
		summary.Advanced++
		return nil
	case !status.Found && m.staleSince(rec.RevealBroadcastAt, rec.CreatedAt):
		return m.fail(rec, summary, ledger.FailureTimeout,
			fmt.Sprintf("reveal transaction %s not seen by the network within %s", rec.RevealTxID, m.staleAfter))
	default:
		summary.StillPending++
		return nil
	}
}

func (m *Monitor) fail(rec *ledger.MintInscription, summary *Summary, kind ledger.FailureKind, msg string) error {
	if _, err := m.led.MarkFailed(rec.ID, kind, msg); err != nil {
		return err
	}
	m.logg.Warn().Str("mint_id", rec.ID).Str("kind", string(kind)).Str("reason", msg).
		Msg("mint failed")
	summary.Failed++
	return nil
}

// stale reports whether t is older than the staleness bound.
func (m *Monitor) stale(t time.Time) bool {
	return m.now().Sub(t) > m.staleAfter
}

// staleSince applies the staleness bound to the state-entry timestamp
// and, as an outer cap, to record creation: a record whose total age
// exceeds the bound is stale no matter when it entered its current
// state.
func (m *Monitor) staleSince(t *time.Time, created time.Time) bool {
	if t != nil && m.stale(*t) {
		return true
	}
	return m.stale(created)
}
