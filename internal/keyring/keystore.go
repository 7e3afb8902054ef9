package keyring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
)

// keystoreFile is the on-disk JSON format for an encrypted signing key.
type keystoreFile struct {
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	EncryptedSeed []byte    `json:"encrypted_seed"`
	Account       uint32    `json:"account"`
	// NextMintIndex is the next unused ephemeral key index on the
	// external chain. It only ever moves forward; reusing an index
	// would reuse a commit key across mints.
	NextMintIndex uint32 `json:"next_mint_index"`
}

// Keystore manages encrypted seed storage on disk, one file per named
// key.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore that reads and writes the given
// directory, creating it if needed.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

func (ks *Keystore) keyPath(name string) string {
	return filepath.Join(ks.path, name+".key")
}

// Create writes a new encrypted keystore file for the given seed.
func (ks *Keystore) Create(name string, seed, password []byte, params EncryptionParams) error {
	path := ks.keyPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key %q already exists", name)
	}

	encrypted, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}

	kf := keystoreFile{
		Version:       1,
		CreatedAt:     time.Now().UTC(),
		EncryptedSeed: encrypted,
	}
	return ks.writeFile(path, &kf)
}

// Load decrypts a keystore and returns the seed bytes.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	kf, err := ks.readFile(ks.keyPath(name))
	if err != nil {
		return nil, err
	}
	seed, err := Decrypt(kf.EncryptedSeed, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt key: %w", err)
	}
	return seed, nil
}

// NextMintKey derives the next unused ephemeral mint key and advances
// the stored index. Returns the key and the index it was derived at.
func (ks *Keystore) NextMintKey(name string, password []byte) (*btcec.PrivateKey, uint32, error) {
	path := ks.keyPath(name)
	kf, err := ks.readFile(path)
	if err != nil {
		return nil, 0, err
	}
	seed, err := Decrypt(kf.EncryptedSeed, password)
	if err != nil {
		return nil, 0, fmt.Errorf("decrypt key: %w", err)
	}

	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, 0, err
	}
	index := kf.NextMintIndex
	priv, err := master.DeriveMintKey(kf.Account, index)
	if err != nil {
		return nil, 0, err
	}

	kf.NextMintIndex++
	if err := ks.writeFile(path, kf); err != nil {
		return nil, 0, err
	}
	return priv, index, nil
}

// MintKeyAt re-derives the ephemeral key at a specific index, for
// recovering a stuck commit output.
func (ks *Keystore) MintKeyAt(name string, password []byte, index uint32) (*btcec.PrivateKey, error) {
	seed, err := ks.Load(name, password)
	if err != nil {
		return nil, err
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	kf, err := ks.readFile(ks.keyPath(name))
	if err != nil {
		return nil, err
	}
	return master.DeriveMintKey(kf.Account, index)
}

// List returns the names of all key files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".key" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes a key file.
func (ks *Keystore) Delete(name string) error {
	path := ks.keyPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("key %q not found", name)
	}
	return os.Remove(path)
}

func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keystore: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write keystore: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse keystore: %w", err)
	}
	if kf.Version != 1 {
		return nil, fmt.Errorf("unsupported keystore version: %d", kf.Version)
	}
	return &kf, nil
}
