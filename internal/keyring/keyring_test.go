package keyring

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

// fastParams keeps Argon2id cheap enough for tests.
var fastParams = EncryptionParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1}

const (
	vectorMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	// BIP-39 test vector seed for vectorMnemonic with passphrase "TREZOR".
	vectorSeedHex = "c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04"
)

func TestGenerateMnemonic(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if words := len(strings.Fields(mnemonic)); words != 24 {
		t.Fatalf("mnemonic has %d words, want 24", words)
	}
	if !ValidateMnemonic(mnemonic) {
		t.Fatal("generated mnemonic failed validation")
	}

	other, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic() error: %v", err)
	}
	if mnemonic == other {
		t.Fatal("two generated mnemonics are identical")
	}
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		valid    bool
	}{
		{"known vector", vectorMnemonic, true},
		{"empty", "", false},
		{"wrong word count", "abandon abandon abandon", false},
		{"bad checksum", "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon", false},
		{"unknown word", "zzzz abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateMnemonic(tt.mnemonic); got != tt.valid {
				t.Errorf("ValidateMnemonic() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestSeedFromMnemonicVector(t *testing.T) {
	seed, err := SeedFromMnemonic(vectorMnemonic, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	if got := hex.EncodeToString(seed); got != vectorSeedHex {
		t.Fatalf("seed = %s, want %s", got, vectorSeedHex)
	}

	if _, err := SeedFromMnemonic("not a mnemonic", ""); err == nil {
		t.Fatal("expected error for invalid mnemonic")
	}
}

func TestDeriveMintKey(t *testing.T) {
	seed, err := SeedFromMnemonic(vectorMnemonic, "")
	if err != nil {
		t.Fatal(err)
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		t.Fatal(err)
	}

	k1, err := master.DeriveMintKey(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	k1again, err := master.DeriveMintKey(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(k1.Serialize(), k1again.Serialize()) {
		t.Fatal("same path derived different keys")
	}

	k2, err := master.DeriveMintKey(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(k1.Serialize(), k2.Serialize()) {
		t.Fatal("distinct indexes derived the same key")
	}

	other, err := master.DeriveMintKey(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(k1.Serialize(), other.Serialize()) {
		t.Fatal("distinct accounts derived the same key")
	}
}

func TestNewMasterKeyRejectsShortSeed(t *testing.T) {
	if _, err := NewMasterKey(make([]byte, 32)); err == nil {
		t.Fatal("expected error for 32-byte seed")
	}
}

func TestNeuterDropsPrivateMaterial(t *testing.T) {
	seed, _ := SeedFromMnemonic(vectorMnemonic, "")
	master, err := NewMasterKey(seed)
	if err != nil {
		t.Fatal(err)
	}
	pub := master.Neuter()
	if pub.IsPrivate() {
		t.Fatal("neutered key still private")
	}
	if pub.PrivateKeyBytes() != nil {
		t.Fatal("neutered key leaked private bytes")
	}
	if !bytes.Equal(pub.PublicKeyBytes(), master.PublicKeyBytes()) {
		t.Fatal("neutered public key differs from original")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	data := []byte("the seed material")
	password := []byte("hunter2")

	encrypted, err := Encrypt(data, password, fastParams)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if bytes.Contains(encrypted, data) {
		t.Fatal("ciphertext contains plaintext")
	}

	plain, err := Decrypt(encrypted, password)
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(plain, data) {
		t.Fatal("round trip corrupted data")
	}

	if _, err := Decrypt(encrypted, []byte("wrong")); err == nil {
		t.Fatal("wrong password should fail decryption")
	}
	if _, err := Decrypt(encrypted[:10], password); err == nil {
		t.Fatal("truncated ciphertext should fail decryption")
	}
}

func TestKeystoreCreateAndLoad(t *testing.T) {
	ks, err := NewKeystore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	seed, _ := SeedFromMnemonic(vectorMnemonic, "")
	password := []byte("pass")

	if err := ks.Create("minter", seed, password, fastParams); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := ks.Create("minter", seed, password, fastParams); err == nil {
		t.Fatal("duplicate Create() should fail")
	}

	got, err := ks.Load("minter", password)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !bytes.Equal(got, seed) {
		t.Fatal("loaded seed differs from stored seed")
	}
	if _, err := ks.Load("minter", []byte("wrong")); err == nil {
		t.Fatal("wrong password should fail Load")
	}
	if _, err := ks.Load("missing", password); err == nil {
		t.Fatal("missing key should fail Load")
	}
}

func TestKeystoreNextMintKeyAdvances(t *testing.T) {
	ks, err := NewKeystore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	seed, _ := SeedFromMnemonic(vectorMnemonic, "")
	password := []byte("pass")
	if err := ks.Create("minter", seed, password, fastParams); err != nil {
		t.Fatal(err)
	}

	k0, idx0, err := ks.NextMintKey("minter", password)
	if err != nil {
		t.Fatal(err)
	}
	k1, idx1, err := ks.NextMintKey("minter", password)
	if err != nil {
		t.Fatal(err)
	}
	if idx0 != 0 || idx1 != 1 {
		t.Fatalf("indexes = %d, %d, want 0, 1", idx0, idx1)
	}
	if bytes.Equal(k0.Serialize(), k1.Serialize()) {
		t.Fatal("consecutive mint keys are identical")
	}

	// Recovery path: re-derive the key at a spent index.
	again, err := ks.MintKeyAt("minter", password, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again.Serialize(), k0.Serialize()) {
		t.Fatal("MintKeyAt(0) does not match the key issued at index 0")
	}
}

func TestKeystoreListAndDelete(t *testing.T) {
	ks, err := NewKeystore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	seed, _ := SeedFromMnemonic(vectorMnemonic, "")
	for _, name := range []string{"alpha", "beta"} {
		if err := ks.Create(name, seed, []byte("p"), fastParams); err != nil {
			t.Fatal(err)
		}
	}

	names, err := ks.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("List() = %v, want two entries", names)
	}

	if err := ks.Delete("alpha"); err != nil {
		t.Fatal(err)
	}
	if err := ks.Delete("alpha"); err == nil {
		t.Fatal("deleting a missing key should fail")
	}
	names, _ = ks.List()
	if len(names) != 1 || names[0] != "beta" {
		t.Fatalf("List() after delete = %v, want [beta]", names)
	}
}
