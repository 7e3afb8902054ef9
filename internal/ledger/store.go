package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ordforge/ordforge/internal/storage"
)

// Key prefixes. Rows are JSON-encoded under string-composite keys.
var (
	prefixCollection = []byte("col/")  // col/<collectionID>
	prefixPhase      = []byte("ph/")   // ph/<collectionID>/<phaseID>
	prefixWhitelist  = []byte("wl/")   // wl/<whitelistID>/<wallet>
	prefixMint       = []byte("mi/")   // mi/<mintID>
	prefixMintIndex  = []byte("miwp/") // miwp/<phaseID>/<wallet>/<mintID> -> mintID
	prefixContent    = []byte("ci/")   // ci/<contentID>
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("ledger: not found")

// Store persists the mint data model on a key-value database.
type Store struct {
	db storage.DB
}

// NewStore creates a ledger store over db.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

func (s *Store) getJSON(key []byte, out any) error {
	data, err := s.db.Get(key)
	if storage.IsNotFound(err) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("ledger row decode %q: %w", key, err)
	}
	return nil
}

func (s *Store) putJSON(key []byte, row any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("ledger row encode %q: %w", key, err)
	}
	return s.db.Put(key, data)
}

func key(prefix []byte, parts ...string) []byte {
	k := append([]byte{}, prefix...)
	for i, p := range parts {
		if i > 0 {
			k = append(k, '/')
		}
		k = append(k, p...)
	}
	return k
}

// ── Collections ─────────────────────────────────────────────────────

// PutCollection stores a collection row.
func (s *Store) PutCollection(c *Collection) error {
	if c.ID == "" {
		return fmt.Errorf("collection id required")
	}
	return s.putJSON(key(prefixCollection, c.ID), c)
}

// GetCollection loads a collection by id.
func (s *Store) GetCollection(id string) (*Collection, error) {
	var c Collection
	if err := s.getJSON(key(prefixCollection, id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ── Phases ──────────────────────────────────────────────────────────

// PutPhase stores a phase row under its owning collection.
func (s *Store) PutPhase(p *MintPhase) error {
	if p.ID == "" || p.CollectionID == "" {
		return fmt.Errorf("phase id and collection id required")
	}
	return s.putJSON(key(prefixPhase, p.CollectionID, p.ID), p)
}

// GetPhase loads one phase of a collection.
func (s *Store) GetPhase(collectionID, phaseID string) (*MintPhase, error) {
	var p MintPhase
	if err := s.getJSON(key(prefixPhase, collectionID, phaseID), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PhasesForCollection returns every phase of a collection.
func (s *Store) PhasesForCollection(collectionID string) ([]*MintPhase, error) {
	var phases []*MintPhase
	prefix := key(prefixPhase, collectionID)
	prefix = append(prefix, '/')
	err := s.db.ForEach(prefix, func(_, value []byte) error {
		var p MintPhase
		if err := json.Unmarshal(value, &p); err != nil {
			return nil // Skip corrupt rows.
		}
		phases = append(phases, &p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return phases, nil
}

// ActivatePhase marks one phase active and deactivates its siblings,
// preserving the at-most-one-active invariant.
func (s *Store) ActivatePhase(collectionID, phaseID string) error {
	phases, err := s.PhasesForCollection(collectionID)
	if err != nil {
		return err
	}
	found := false
	for _, p := range phases {
		active := p.ID == phaseID
		if active {
			found = true
		}
		if p.IsActive != active {
			p.IsActive = active
			if err := s.PutPhase(p); err != nil {
				return err
			}
		}
	}
	if !found {
		return fmt.Errorf("activate phase %s: %w", phaseID, ErrNotFound)
	}
	return nil
}

// ActivePhase returns the collection's single active phase, or
// ErrNotFound when none is active.
func (s *Store) ActivePhase(collectionID string) (*MintPhase, error) {
	phases, err := s.PhasesForCollection(collectionID)
	if err != nil {
		return nil, err
	}
	for _, p := range phases {
		if p.IsActive {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

// ── Whitelist entries ───────────────────────────────────────────────

// PutWhitelistEntry stores a (whitelist, wallet) entry.
func (s *Store) PutWhitelistEntry(e *WhitelistEntry) error {
	if e.WhitelistID == "" || e.Wallet == "" {
		return fmt.Errorf("whitelist id and wallet required")
	}
	return s.putJSON(key(prefixWhitelist, e.WhitelistID, e.Wallet), e)
}

// GetWhitelistEntry loads the entry for a wallet in a whitelist.
func (s *Store) GetWhitelistEntry(whitelistID, wallet string) (*WhitelistEntry, error) {
	var e WhitelistEntry
	if err := s.getJSON(key(prefixWhitelist, whitelistID, wallet), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ── Mint inscriptions ───────────────────────────────────────────────

// PutMint stores a mint record and maintains the (phase, wallet) index.
func (s *Store) PutMint(m *MintInscription) error {
	if m.ID == "" {
		return fmt.Errorf("mint id required")
	}
	if err := s.putJSON(key(prefixMint, m.ID), m); err != nil {
		return err
	}
	return s.db.Put(key(prefixMintIndex, m.PhaseID, m.MinterWallet, m.ID), []byte(m.ID))
}

// GetMint loads a mint record by id.
func (s *Store) GetMint(id string) (*MintInscription, error) {
	var m MintInscription
	if err := s.getJSON(key(prefixMint, id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMint removes a mint record and its index entry.
func (s *Store) DeleteMint(m *MintInscription) error {
	if err := s.db.Delete(key(prefixMint, m.ID)); err != nil {
		return err
	}
	return s.db.Delete(key(prefixMintIndex, m.PhaseID, m.MinterWallet, m.ID))
}

// MintsForPhaseWallet returns all mint records for a wallet in a phase.
func (s *Store) MintsForPhaseWallet(phaseID, wallet string) ([]*MintInscription, error) {
	prefix := key(prefixMintIndex, phaseID, wallet)
	prefix = append(prefix, '/')
	return s.mintsByIndex(prefix)
}

// MintsForPhase returns all mint records in a phase, any wallet.
func (s *Store) MintsForPhase(phaseID string) ([]*MintInscription, error) {
	prefix := key(prefixMintIndex, phaseID)
	prefix = append(prefix, '/')
	return s.mintsByIndex(prefix)
}

func (s *Store) mintsByIndex(prefix []byte) ([]*MintInscription, error) {
	var mints []*MintInscription
	err := s.db.ForEach(prefix, func(_, value []byte) error {
		m, err := s.GetMint(string(value))
		if errors.Is(err, ErrNotFound) {
			return nil // Dangling index entry, skip.
		}
		if err != nil {
			return err
		}
		mints = append(mints, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mints, nil
}

// ForEachMint iterates all mint records. Return a non-nil error from
// fn to stop early.
func (s *Store) ForEachMint(fn func(*MintInscription) error) error {
	return s.db.ForEach(prefixMint, func(_, value []byte) error {
		var m MintInscription
		if err := json.Unmarshal(value, &m); err != nil {
			return nil // Skip corrupt rows.
		}
		return fn(&m)
	})
}

// ── Content items ───────────────────────────────────────────────────

// PutContentItem stores a content item row.
func (s *Store) PutContentItem(c *ContentItem) error {
	if c.ID == "" {
		return fmt.Errorf("content id required")
	}
	return s.putJSON(key(prefixContent, c.ID), c)
}

// GetContentItem loads a content item by id.
func (s *Store) GetContentItem(id string) (*ContentItem, error) {
	var c ContentItem
	if err := s.getJSON(key(prefixContent, id), &c); err != nil {
		return nil, err
	}
	return &c, nil
}
