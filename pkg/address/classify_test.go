package address

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

// Well-known mainnet addresses of each script family.
const (
	mainP2TR   = "bc1p5d7rjq7g6rdk2yhzks9smlaqtedr4dekq08ge8ztwac72sfr9rusxg3297"
	mainP2WPKH = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	mainP2WSH  = "bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3"
	mainP2PKH  = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	mainP2SH   = "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want Class
	}{
		{"taproot", mainP2TR, Taproot},
		{"p2wpkh", mainP2WPKH, WitnessV0},
		{"p2wsh", mainP2WSH, WitnessV0},
		{"p2pkh", mainP2PKH, Legacy},
		{"p2sh", mainP2SH, Legacy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.addr, &chaincfg.MainNetParams)
			if err != nil {
				t.Fatalf("Classify(%s): %v", tt.addr, err)
			}
			if got != tt.want {
				t.Errorf("Classify(%s) = %s, want %s", tt.addr, got, tt.want)
			}
		})
	}
}

func TestClassifyRejectsGarbage(t *testing.T) {
	if _, err := Classify("not-an-address", &chaincfg.MainNetParams); err == nil {
		t.Error("Classify accepted a malformed address")
	}
	// Testnet address against mainnet params must fail.
	if _, err := Classify("tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", &chaincfg.MainNetParams); err == nil {
		t.Error("Classify accepted a testnet address on mainnet")
	}
}

func TestMinOutputValue(t *testing.T) {
	tests := []struct {
		addr string
		want int64
	}{
		{mainP2TR, 330},
		{mainP2WPKH, 546},
		{mainP2WSH, 546},
		{mainP2PKH, 546},
		{mainP2SH, 546},
	}
	for _, tt := range tests {
		got, err := MinOutputValueFor(tt.addr, &chaincfg.MainNetParams)
		if err != nil {
			t.Fatalf("MinOutputValueFor(%s): %v", tt.addr, err)
		}
		if got != tt.want {
			t.Errorf("MinOutputValueFor(%s) = %d, want %d", tt.addr, got, tt.want)
		}
	}
}

func TestInputVBytes(t *testing.T) {
	if got := InputVBytes(Taproot); got != 57 {
		t.Errorf("InputVBytes(Taproot) = %d, want 57", got)
	}
	if got := InputVBytes(WitnessV0); got != 68 {
		t.Errorf("InputVBytes(WitnessV0) = %d, want 68", got)
	}
	if got := InputVBytes(Legacy); got != 148 {
		t.Errorf("InputVBytes(Legacy) = %d, want 148", got)
	}
}
