package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ordforge/ordforge/internal/chainindex"
	"github.com/ordforge/ordforge/internal/ledger"
	"github.com/ordforge/ordforge/internal/storage"
)

var fixedNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// fakeTxSource answers TxStatus from a canned map; unknown txids return
// a transport error.
type fakeTxSource struct {
	statuses map[string]*chainindex.TxStatus
	errs     map[string]error
}

func (f *fakeTxSource) TxStatus(ctx context.Context, txid string) (*chainindex.TxStatus, error) {
	if err, ok := f.errs[txid]; ok {
		return nil, err
	}
	if st, ok := f.statuses[txid]; ok {
		return st, nil
	}
	return &chainindex.TxStatus{Found: false}, nil
}

type fixture struct {
	led *ledger.Ledger
	mon *Monitor
	txs *fakeTxSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	led := ledger.New(storage.NewMemory())

	end := fixedNow.Add(2 * time.Hour)
	if err := led.Store().PutCollection(&ledger.Collection{ID: "col1", Name: "test", TotalSupply: 100}); err != nil {
		t.Fatal(err)
	}
	err := led.Store().PutPhase(&ledger.MintPhase{
		ID:           "ph1",
		CollectionID: "col1",
		Name:         "public",
		StartTime:    fixedNow.Add(-time.Hour),
		EndTime:      &end,
		IsActive:     true,
	})
	if err != nil {
		t.Fatal(err)
	}

	txs := &fakeTxSource{
		statuses: map[string]*chainindex.TxStatus{},
		errs:     map[string]error{},
	}
	mon := New(led, txs, Options{})
	mon.now = func() time.Time { return fixedNow }
	return &fixture{led: led, mon: mon, txs: txs}
}

func (f *fixture) putMint(t *testing.T, m *ledger.MintInscription) *ledger.MintInscription {
	t.Helper()
	if m.ID == "" {
		m.ID = ledger.NewID()
	}
	m.CollectionID = "col1"
	m.PhaseID = "ph1"
	if m.MinterWallet == "" {
		m.MinterWallet = "bc1pwallet"
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = fixedNow.Add(-time.Minute)
	}
	if err := f.led.Store().PutMint(m); err != nil {
		t.Fatal(err)
	}
	return m
}

func (f *fixture) reload(t *testing.T, id string) *ledger.MintInscription {
	t.Helper()
	m, err := f.led.Store().GetMint(id)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func timePtr(t time.Time) *time.Time { return &t }

func TestSweepAdvancesConfirmedCommit(t *testing.T) {
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusCommitBroadcast,
		CommitTxID:        "commit1",
		CommitBroadcastAt: timePtr(fixedNow.Add(-time.Minute)),
	})
	f.txs.statuses["commit1"] = &chainindex.TxStatus{Found: true, Confirmed: true, BlockHeight: 850000}

	summary, err := f.mon.ReconcilePending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Advanced != 1 {
		t.Fatalf("Advanced = %d, want 1", summary.Advanced)
	}
	if got := f.reload(t, m.ID); got.Status != ledger.StatusCommitConfirmed {
		t.Fatalf("status = %s, want commit_confirmed", got.Status)
	}
}

func TestSweepTimesOutUnseenCommit(t *testing.T) {
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusCommitBroadcast,
		CommitTxID:        "lost",
		CommitBroadcastAt: timePtr(fixedNow.Add(-11 * time.Minute)),
	})

	summary, err := f.mon.ReconcilePending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", summary.Failed)
	}
	got := f.reload(t, m.ID)
	if got.Status != ledger.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.FailureKind != ledger.FailureTimeout {
		t.Fatalf("failure kind = %s, want timeout", got.FailureKind)
	}
	if !strings.Contains(got.ErrorMessage, "not seen by the network") {
		t.Fatalf("error message %q missing timeout explanation", got.ErrorMessage)
	}
}

func TestSweepLeavesFreshUnseenCommit(t *testing.T) {
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusCommitBroadcast,
		CommitTxID:        "fresh",
		CommitBroadcastAt: timePtr(fixedNow.Add(-2 * time.Minute)),
	})

	summary, err := f.mon.ReconcilePending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.StillPending != 1 {
		t.Fatalf("StillPending = %d, want 1", summary.StillPending)
	}
	if got := f.reload(t, m.ID); got.Status != ledger.StatusCommitBroadcast {
		t.Fatalf("status = %s, want commit_broadcast", got.Status)
	}
}

func TestSweepFailsOnExecutionError(t *testing.T) {
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusCommitBroadcast,
		CommitTxID:        "bad",
		CommitBroadcastAt: timePtr(fixedNow.Add(-time.Minute)),
	})
	f.txs.statuses["bad"] = &chainindex.TxStatus{Found: true, ExecError: "script verify failed"}

	if _, err := f.mon.ReconcilePending(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := f.reload(t, m.ID)
	if got.Status != ledger.StatusFailed || got.FailureKind != ledger.FailureExecution {
		t.Fatalf("got status=%s kind=%s, want failed/execution", got.Status, got.FailureKind)
	}
	if !strings.Contains(got.ErrorMessage, "script verify failed") {
		t.Fatalf("error message %q missing indexer payload", got.ErrorMessage)
	}
}

func TestSweepCompletesConfirmedReveal(t *testing.T) {
	f := newFixture(t)
	if err := f.led.Store().PutContentItem(&ledger.ContentItem{
		ID: "content1", CollectionID: "col1", ContentType: "image/png",
	}); err != nil {
		t.Fatal(err)
	}
	m := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusRevealBroadcast,
		ContentID:         "content1",
		CommitTxID:        "commit1",
		RevealTxID:        "reveal1",
		InscriptionID:     "reveal1i0",
		RevealBroadcastAt: timePtr(fixedNow.Add(-time.Minute)),
	})
	f.txs.statuses["reveal1"] = &chainindex.TxStatus{Found: true, Confirmed: true, BlockHeight: 850001}

	summary, err := f.mon.ReconcilePending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Advanced != 1 {
		t.Fatalf("Advanced = %d, want 1", summary.Advanced)
	}
	if got := f.reload(t, m.ID); got.Status != ledger.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	item, err := f.led.Store().GetContentItem("content1")
	if err != nil {
		t.Fatal(err)
	}
	if !item.IsMinted {
		t.Fatal("content item not flagged as minted on completion")
	}
}

func TestSweepTimesOutUnseenReveal(t *testing.T) {
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusRevealBroadcast,
		CommitTxID:        "commit1",
		RevealTxID:        "lostreveal",
		RevealBroadcastAt: timePtr(fixedNow.Add(-15 * time.Minute)),
	})

	if _, err := f.mon.ReconcilePending(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := f.reload(t, m.ID)
	if got.Status != ledger.StatusFailed || got.FailureKind != ledger.FailureTimeout {
		t.Fatalf("got status=%s kind=%s, want failed/timeout", got.Status, got.FailureKind)
	}
}

func TestSweepFailsStaleCommitDuringIndexerOutage(t *testing.T) {
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusCommitBroadcast,
		CommitTxID:        "unreachable",
		CreatedAt:         fixedNow.Add(-30 * time.Minute),
		CommitBroadcastAt: timePtr(fixedNow.Add(-30 * time.Minute)),
	})
	f.txs.errs["unreachable"] = errors.New("indexer unavailable")

	summary, err := f.mon.ReconcilePending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", summary.Failed)
	}
	got := f.reload(t, m.ID)
	if got.Status != ledger.StatusFailed || got.FailureKind != ledger.FailureTimeout {
		t.Fatalf("got status=%s kind=%s, want failed/timeout", got.Status, got.FailureKind)
	}
	if !strings.Contains(got.ErrorMessage, "no confirmation") {
		t.Fatalf("error message %q missing timeout explanation", got.ErrorMessage)
	}
}

func TestSweepFailsStaleRevealDuringIndexerOutage(t *testing.T) {
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusRevealBroadcast,
		CommitTxID:        "commit1",
		RevealTxID:        "unreachable",
		CreatedAt:         fixedNow.Add(-30 * time.Minute),
		RevealBroadcastAt: timePtr(fixedNow.Add(-30 * time.Minute)),
	})
	f.txs.errs["unreachable"] = errors.New("indexer unavailable")

	if _, err := f.mon.ReconcilePending(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := f.reload(t, m.ID)
	if got.Status != ledger.StatusFailed || got.FailureKind != ledger.FailureTimeout {
		t.Fatalf("got status=%s kind=%s, want failed/timeout", got.Status, got.FailureKind)
	}
}

func TestSweepCapsTotalRecordAge(t *testing.T) {
	// The bound applies to record age as a whole: per-state clocks
	// restarting must not extend a mint's lifetime past it.
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusCommitBroadcast,
		CommitTxID:        "restarted",
		CreatedAt:         fixedNow.Add(-30 * time.Minute),
		CommitBroadcastAt: timePtr(fixedNow.Add(-2 * time.Minute)),
	})

	if _, err := f.mon.ReconcilePending(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := f.reload(t, m.ID)
	if got.Status != ledger.StatusFailed || got.FailureKind != ledger.FailureTimeout {
		t.Fatalf("got status=%s kind=%s, want failed/timeout", got.Status, got.FailureKind)
	}
}

func TestSweepFailsStalledConfirmedCommit(t *testing.T) {
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusCommitConfirmed,
		CommitTxID:        "commit1",
		CommitConfirmedAt: timePtr(fixedNow.Add(-20 * time.Minute)),
	})

	if _, err := f.mon.ReconcilePending(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := f.reload(t, m.ID)
	if got.Status != ledger.StatusFailed || got.FailureKind != ledger.FailureTimeout {
		t.Fatalf("got status=%s kind=%s, want failed/timeout", got.Status, got.FailureKind)
	}
	if !strings.Contains(got.ErrorMessage, "reveal not broadcast") {
		t.Fatalf("error message %q missing stalled-reveal explanation", got.ErrorMessage)
	}
}

func TestSweepExpiresPendingAfterWindowCloses(t *testing.T) {
	f := newFixture(t)
	end := fixedNow.Add(-time.Minute)
	phase, err := f.led.Store().GetPhase("col1", "ph1")
	if err != nil {
		t.Fatal(err)
	}
	phase.EndTime = &end
	if err := f.led.Store().PutPhase(phase); err != nil {
		t.Fatal(err)
	}
	m := f.putMint(t, &ledger.MintInscription{Status: ledger.StatusPending})

	summary, err := f.mon.ReconcilePending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Expired != 1 {
		t.Fatalf("Expired = %d, want 1", summary.Expired)
	}
	if got := f.reload(t, m.ID); got.Status != ledger.StatusExpired {
		t.Fatalf("status = %s, want expired", got.Status)
	}
}

func TestSweepExpiresStalePending(t *testing.T) {
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{
		Status:    ledger.StatusPending,
		CreatedAt: fixedNow.Add(-30 * time.Minute),
	})

	if _, err := f.mon.ReconcilePending(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := f.reload(t, m.ID); got.Status != ledger.StatusExpired {
		t.Fatalf("status = %s, want expired", got.Status)
	}
}

func TestSweepLeavesFreshPending(t *testing.T) {
	f := newFixture(t)
	m := f.putMint(t, &ledger.MintInscription{Status: ledger.StatusPending})

	summary, err := f.mon.ReconcilePending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.StillPending != 1 {
		t.Fatalf("StillPending = %d, want 1", summary.StillPending)
	}
	if got := f.reload(t, m.ID); got.Status != ledger.StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
}

func TestSweepSkipsTerminalRecords(t *testing.T) {
	f := newFixture(t)
	f.putMint(t, &ledger.MintInscription{Status: ledger.StatusCompleted})
	f.putMint(t, &ledger.MintInscription{Status: ledger.StatusFailed})

	summary, err := f.mon.ReconcilePending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Checked != 0 {
		t.Fatalf("Checked = %d, want 0", summary.Checked)
	}
}

func TestSweepSurvivesPerRecordErrors(t *testing.T) {
	f := newFixture(t)
	broken := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusCommitBroadcast,
		CommitTxID:        "flaky",
		CommitBroadcastAt: timePtr(fixedNow.Add(-time.Minute)),
		MinterWallet:      "bc1pbroken",
	})
	healthy := f.putMint(t, &ledger.MintInscription{
		Status:            ledger.StatusCommitBroadcast,
		CommitTxID:        "solid",
		CommitBroadcastAt: timePtr(fixedNow.Add(-time.Minute)),
		MinterWallet:      "bc1phealthy",
	})
	f.txs.errs["flaky"] = errors.New("indexer unavailable")
	f.txs.statuses["solid"] = &chainindex.TxStatus{Found: true, Confirmed: true}

	summary, err := f.mon.ReconcilePending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.Advanced != 1 || summary.StillPending != 1 {
		t.Fatalf("summary = %+v, want one advanced and one still pending", summary)
	}
	if got := f.reload(t, broken.ID); got.Status != ledger.StatusCommitBroadcast {
		t.Fatalf("broken record status = %s, want unchanged commit_broadcast", got.Status)
	}
	if got := f.reload(t, healthy.ID); got.Status != ledger.StatusCommitConfirmed {
		t.Fatalf("healthy record status = %s, want commit_confirmed", got.Status)
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	f := newFixture(t)
	f.mon.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.mon.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after context cancellation")
	}
}
