package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ordforge/ordforge/internal/log"
	"github.com/ordforge/ordforge/internal/storage"
)

// Ledger is the admission-control and lifecycle authority for mints.
//
// Admission is read-then-decide over the backing store, so the
// read-count-decide-reserve cycle for a given (wallet, phase) runs
// under a keyed mutex: two concurrent requests from the same wallet in
// the same phase serialize, and neither can observe the other's
// half-written reservation.
type Ledger struct {
	store *Store
	logg  zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Ledger over db.
func New(db storage.DB) *Ledger {
	return &Ledger{
		store: NewStore(db),
		logg:  log.Ledger,
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
}

// Store exposes the underlying row store for setup and queries.
func (l *Ledger) Store() *Store {
	return l.store
}

// lockFor returns the mutex serializing one (wallet, phase) pair.
func (l *Ledger) lockFor(wallet, phaseID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := wallet + "|" + phaseID
	m, ok := l.locks[k]
	if !ok {
		m = &sync.Mutex{}
		l.locks[k] = m
	}
	return m
}

// CheckAllocation runs the admission check for a wallet against the
// given phase. It never mutates state.
func (l *Ledger) CheckAllocation(wallet, collectionID, phaseID string) (*AllocationResult, error) {
	mu := l.lockFor(wallet, phaseID)
	mu.Lock()
	defer mu.Unlock()
	return l.checkLocked(wallet, collectionID, phaseID)
}

// checkLocked is the admission algorithm. Callers hold the
// (wallet, phase) lock.
func (l *Ledger) checkLocked(wallet, collectionID, phaseID string) (*AllocationResult, error) {
	phase, err := l.store.GetPhase(collectionID, phaseID)
	if err != nil {
		return nil, fmt.Errorf("load phase %s/%s: %w", collectionID, phaseID, err)
	}

	deny := func(reason DenyReason) *AllocationResult {
		return &AllocationResult{Allowed: false, MaxAllowed: 0, Remaining: 0, Reason: reason}
	}

	if !phase.IsActive || phase.IsCompleted {
		return deny(ReasonPhaseInactive), nil
	}
	now := l.now()
	if now.Before(phase.StartTime) {
		return deny(ReasonPhaseNotStarted), nil
	}
	if phase.EndTime != nil && now.After(*phase.EndTime) {
		return deny(ReasonPhaseEnded), nil
	}

	// Phase-wide and collection-wide exhaustion, counted over every
	// wallet's occupying mints.
	phaseOccupied, err := l.phaseOccupancy(phaseID)
	if err != nil {
		return nil, err
	}
	if phase.TotalAllocation != nil && phaseOccupied >= *phase.TotalAllocation {
		return deny(ReasonPhaseSoldOut), nil
	}
	col, err := l.store.GetCollection(collectionID)
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", collectionID, err)
	}
	supplyUsed, err := l.collectionOccupancy(collectionID)
	if err != nil {
		return nil, err
	}
	if col.TotalSupply > 0 && supplyUsed >= col.TotalSupply {
		return deny(ReasonSupplyExhausted), nil
	}

	// Public phase: no per-wallet allocation recorded at this layer.
	if !phase.WhitelistOnly {
		return &AllocationResult{Allowed: true, MaxAllowed: Unlimited, Remaining: Unlimited}, nil
	}

	// Whitelist-only with no whitelist configured: a configuration
	// error, and it fails closed.
	if phase.WhitelistID == nil || *phase.WhitelistID == "" {
		l.logg.Warn().
			Str("phase_id", phaseID).
			Msg("whitelist-only phase has no whitelist; denying all mints")
		return deny(ReasonConfigError), nil
	}

	entry, err := l.store.GetWhitelistEntry(*phase.WhitelistID, wallet)
	if err == ErrNotFound {
		return deny(ReasonNotWhitelisted), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load whitelist entry: %w", err)
	}

	maxAllowed := minCap(entry.Allocation, phase.MaxPerWallet)

	counting, occupying, err := l.walletCounts(phaseID, wallet)
	if err != nil {
		return nil, err
	}

	res := &AllocationResult{
		MaxAllowed:  maxAllowed,
		MintedCount: counting,
	}
	if maxAllowed == Unlimited {
		res.Allowed = true
		res.Remaining = Unlimited
		return res, nil
	}

	res.Remaining = maxAllowed - counting
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	// The allow decision also counts not-yet-confirmed reservations, so
	// a burst of concurrent pending mints cannot pass the cap and then
	// all confirm. Reported counts stay as specified above.
	res.Allowed = occupying < maxAllowed
	if !res.Allowed {
		res.Reason = ReasonAllocationExhausted
	}
	return res, nil
}

// walletCounts returns two tallies of a wallet's non-test mints in a
// phase: counting is the confirmed-or-better set {commit_confirmed,
// reveal_broadcast, completed}; occupying additionally includes live
// reservations (pending, commit_broadcast).
func (l *Ledger) walletCounts(phaseID, wallet string) (counting, occupying int, err error) {
	mints, err := l.store.MintsForPhaseWallet(phaseID, wallet)
	if err != nil {
		return 0, 0, err
	}
	for _, m := range mints {
		if m.IsTestMint {
			continue
		}
		if m.Status.countsAgainstCap() {
			counting++
		}
		if !m.Status.IsTerminal() || m.Status == StatusCompleted {
			occupying++
		}
	}
	return counting, occupying, nil
}

// phaseOccupancy counts every wallet's occupying non-test mints in a phase.
func (l *Ledger) phaseOccupancy(phaseID string) (int, error) {
	mints, err := l.store.MintsForPhase(phaseID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range mints {
		if m.IsTestMint {
			continue
		}
		if !m.Status.IsTerminal() || m.Status == StatusCompleted {
			n++
		}
	}
	return n, nil
}

// collectionOccupancy counts occupying non-test mints across every
// phase of a collection.
func (l *Ledger) collectionOccupancy(collectionID string) (int, error) {
	n := 0
	err := l.store.ForEachMint(func(m *MintInscription) error {
		if m.CollectionID != collectionID || m.IsTestMint {
			return nil
		}
		if !m.Status.IsTerminal() || m.Status == StatusCompleted {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ReserveRequest describes a mint about to be attempted.
type ReserveRequest struct {
	CollectionID  string
	PhaseID       string
	ContentID     string
	MinterWallet  string
	ReceiveWallet string
	IsTestMint    bool
}

// Reserve runs the admission check and, when allowed, writes the
// pending MintInscription in the same critical section. The returned
// result carries the denial reason when not allowed (with a nil record).
func (l *Ledger) Reserve(req ReserveRequest) (*MintInscription, *AllocationResult, error) {
	mu := l.lockFor(req.MinterWallet, req.PhaseID)
	mu.Lock()
	defer mu.Unlock()

	res, err := l.checkLocked(req.MinterWallet, req.CollectionID, req.PhaseID)
	if err != nil {
		return nil, nil, err
	}
	if !res.Allowed && !req.IsTestMint {
		return nil, res, nil
	}

	m := &MintInscription{
		ID:            NewID(),
		CollectionID:  req.CollectionID,
		PhaseID:       req.PhaseID,
		ContentID:     req.ContentID,
		MinterWallet:  req.MinterWallet,
		ReceiveWallet: req.ReceiveWallet,
		Status:        StatusPending,
		IsTestMint:    req.IsTestMint,
		CreatedAt:     l.now(),
	}
	if err := l.store.PutMint(m); err != nil {
		return nil, nil, fmt.Errorf("write reservation: %w", err)
	}

	l.logg.Info().
		Str("mint_id", m.ID).
		Str("wallet", m.MinterWallet).
		Str("phase_id", m.PhaseID).
		Bool("test", m.IsTestMint).
		Msg("mint reserved")
	return m, res, nil
}
