// Package ledger holds the mint data model and the allocation
// state machine: phases, whitelists, mint records and the admission
// rules that keep a collection from overselling.
package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// MintStatus is the lifecycle state of a MintInscription.
type MintStatus string

const (
	StatusPending         MintStatus = "pending"
	StatusCommitBroadcast MintStatus = "commit_broadcast"
	StatusCommitConfirmed MintStatus = "commit_confirmed"
	StatusRevealBroadcast MintStatus = "reveal_broadcast"
	StatusCompleted       MintStatus = "completed"
	StatusFailed          MintStatus = "failed"
	StatusExpired         MintStatus = "expired"
)

// IsTerminal reports whether the status admits no further transitions.
func (s MintStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// countsAgainstCap reports whether a record in this status occupies
// allocation per the admission rules (in-flight and completed mints
// count; failed and expired never do).
func (s MintStatus) countsAgainstCap() bool {
	switch s {
	case StatusCommitConfirmed, StatusRevealBroadcast, StatusCompleted:
		return true
	}
	return false
}

// FailureKind classifies why a mint failed; timeout and execution
// failures need different user remediation.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureBuild     FailureKind = "build"
	FailureExecution FailureKind = "execution"
	FailureTimeout   FailureKind = "timeout"
)

// DenyReason is the structured reason attached to a denied admission.
type DenyReason string

const (
	ReasonNone                DenyReason = ""
	ReasonNotWhitelisted      DenyReason = "not_whitelisted"
	ReasonConfigError         DenyReason = "whitelist_config_error"
	ReasonAllocationExhausted DenyReason = "allocation_exhausted"
	ReasonPhaseInactive       DenyReason = "phase_inactive"
	ReasonPhaseNotStarted     DenyReason = "phase_not_started"
	ReasonPhaseEnded          DenyReason = "phase_ended"
	ReasonPhaseSoldOut        DenyReason = "phase_allocation_exhausted"
	ReasonSupplyExhausted     DenyReason = "supply_exhausted"
)

// Unlimited marks a cap that imposes no constraint.
const Unlimited = -1

// Collection is a scarce asset series. Immutable once minting begins,
// except through the administrative reset path.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	TotalSupply int       `json:"total_supply"`
	CreatedAt   time.Time `json:"created_at"`
}

// MintPhase is a time-boxed, priced, optionally whitelisted mint window
// owned by exactly one collection.
type MintPhase struct {
	ID           string     `json:"id"`
	CollectionID string     `json:"collection_id"`
	Name         string     `json:"name"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"` // nil = open-ended

	PriceSats        int64   `json:"price_sats"`
	MinFeeRate       float64 `json:"min_fee_rate"`
	MaxFeeRate       float64 `json:"max_fee_rate"`
	SuggestedFeeRate float64 `json:"suggested_fee_rate"`

	MaxPerWallet    *int `json:"max_per_wallet,omitempty"`    // nil = unlimited
	MaxPerTx        *int `json:"max_per_tx,omitempty"`        // nil = unlimited
	TotalAllocation *int `json:"total_allocation,omitempty"` // nil = unlimited

	WhitelistID   *string `json:"whitelist_id,omitempty"`
	WhitelistOnly bool    `json:"whitelist_only"`

	IsActive    bool `json:"is_active"`
	IsCompleted bool `json:"is_completed"`
}

// WindowOpenAt reports whether the phase window covers t.
func (p *MintPhase) WindowOpenAt(t time.Time) bool {
	if t.Before(p.StartTime) {
		return false
	}
	if p.EndTime != nil && t.After(*p.EndTime) {
		return false
	}
	return true
}

// WhitelistEntry grants a wallet allocation within one whitelist.
// MintedCount increases only on confirmed mint success.
type WhitelistEntry struct {
	WhitelistID string `json:"whitelist_id"`
	Wallet      string `json:"wallet"`
	Allocation  *int   `json:"allocation,omitempty"` // nil = unlimited
	MintedCount int    `json:"minted_count"`
}

// MintInscription is one attempted mint and its commit/reveal record.
type MintInscription struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	PhaseID      string `json:"phase_id"`
	ContentID    string `json:"content_id"`
	MinterWallet string `json:"minter_wallet"`
	ReceiveWallet string `json:"receive_wallet"`

	CommitTxID  string `json:"commit_tx_id,omitempty"`
	CommitVout  uint32 `json:"commit_vout"`
	CommitValue int64  `json:"commit_value"`

	RevealTxID    string `json:"reveal_tx_id,omitempty"`
	InscriptionID string `json:"inscription_id,omitempty"`

	Status       MintStatus  `json:"status"`
	FailureKind  FailureKind `json:"failure_kind,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`

	// Test mints exercise the pipeline without touching supply or
	// allocation accounting.
	IsTestMint bool `json:"is_test_mint"`

	CreatedAt         time.Time  `json:"created_at"`
	CommitBroadcastAt *time.Time `json:"commit_broadcast_at,omitempty"`
	CommitConfirmedAt *time.Time `json:"commit_confirmed_at,omitempty"`
	RevealBroadcastAt *time.Time `json:"reveal_broadcast_at,omitempty"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	FailedAt          *time.Time `json:"failed_at,omitempty"`
	ExpiredAt         *time.Time `json:"expired_at,omitempty"`
}

// ContentItem is one mintable piece of content. IsMinted flips exactly
// once, when a referencing mint reaches the completed state.
type ContentItem struct {
	ID           string `json:"id"` // blake3 content hash, hex
	CollectionID string `json:"collection_id"`
	Ref          string `json:"ref"` // opaque object-storage reference
	ContentType  string `json:"content_type"`
	IsMinted     bool   `json:"is_minted"`
}

// AllocationResult is the outcome of an admission check.
type AllocationResult struct {
	Allowed     bool       `json:"allowed"`
	MaxAllowed  int        `json:"max_allowed"` // Unlimited (-1) when uncapped
	MintedCount int        `json:"minted_count"`
	Remaining   int        `json:"remaining"` // Unlimited (-1) when uncapped
	Reason      DenyReason `json:"reason,omitempty"`
}

// NewID returns a random 128-bit identifier in hex.
func NewID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("ledger: no entropy: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// minCap folds two optional caps into one: nil imposes no constraint.
func minCap(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return Unlimited
	case a == nil:
		return *b
	case b == nil:
		return *a
	case *a < *b:
		return *a
	default:
		return *b
	}
}
