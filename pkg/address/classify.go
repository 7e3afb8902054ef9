// Package address classifies destination addresses by script type and
// derives the dust rule each type carries.
package address

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// Class identifies the script family of a destination address.
type Class uint8

const (
	Taproot   Class = iota // P2TR (witness v1)
	WitnessV0              // P2WPKH / P2WSH
	Legacy                 // P2PKH / P2SH
)

// String returns a human-readable name for the address class.
func (c Class) String() string {
	switch c {
	case Taproot:
		return "taproot"
	case WitnessV0:
		return "witness-v0"
	case Legacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Standard relay dust thresholds in satoshis.
const (
	DustTaproot = 330
	DustDefault = 546
)

// Per-input virtual size by the spending wallet's address class.
// Taproot assumes a key-path spend.
const (
	InputVBytesTaproot   = 57
	InputVBytesWitnessV0 = 68
	InputVBytesLegacy    = 148
)

// Classify decodes addr against the given network and returns its
// script class. An address from the wrong network or with an
// unrecognized format is an error.
func Classify(addr string, params *chaincfg.Params) (Class, error) {
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return 0, fmt.Errorf("decode address %q: %w", addr, err)
	}
	if !decoded.IsForNet(params) {
		return 0, fmt.Errorf("address %q is not valid for network %s", addr, params.Name)
	}

	switch decoded.(type) {
	case *btcutil.AddressTaproot:
		return Taproot, nil
	case *btcutil.AddressWitnessPubKeyHash, *btcutil.AddressWitnessScriptHash:
		return WitnessV0, nil
	case *btcutil.AddressPubKeyHash, *btcutil.AddressScriptHash:
		return Legacy, nil
	default:
		return 0, fmt.Errorf("unsupported address type %T for %q", decoded, addr)
	}
}

// MinOutputValue returns the minimum relayable output value (in sats)
// for a destination of the given class.
func MinOutputValue(c Class) int64 {
	if c == Taproot {
		return DustTaproot
	}
	return DustDefault
}

// MinOutputValueFor decodes addr and returns its dust minimum.
func MinOutputValueFor(addr string, params *chaincfg.Params) (int64, error) {
	c, err := Classify(addr, params)
	if err != nil {
		return 0, err
	}
	return MinOutputValue(c), nil
}

// InputVBytes returns the per-input virtual size contributed by an
// input owned by a wallet of the given class.
func InputVBytes(c Class) int {
	switch c {
	case Taproot:
		return InputVBytesTaproot
	case WitnessV0:
		return InputVBytesWitnessV0
	default:
		return InputVBytesLegacy
	}
}
