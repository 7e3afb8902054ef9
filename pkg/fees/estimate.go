// Package fees estimates virtual sizes and fees for the commit and
// reveal transactions of an inscription mint.
//
// The numbers here are a deterministic model of the transactions built
// by pkg/inscribe, not a measurement of serialized bytes. If the
// builders change shape, this model must change with them or cost
// quotes will systematically mis-price.
package fees

import (
	"fmt"
	"math"

	"github.com/ordforge/ordforge/pkg/address"
)

// Virtual-size model constants (vbytes unless noted).
const (
	txOverhead  = 10 // version + segwit marker/flag + counts + locktime
	outputSize  = 43 // value + script length + P2TR script
	keyPathIn   = 57 // taproot key-path input placeholder on the reveal
	sigBytes    = 64 // schnorr signature in the reveal witness
	envelopeTag = 4 + 4 + 2 // protocol framing around the embedded payload (raw witness bytes)
)

// Estimate is a commit/reveal cost quote at a given fee rate.
type Estimate struct {
	CommitVSize int   `json:"commit_vsize"`
	RevealVSize int   `json:"reveal_vsize"`
	CommitFee   int64 `json:"commit_fee"`
	RevealFee   int64 `json:"reveal_fee"`
}

// Total returns the combined commit plus reveal fee in sats.
func (e Estimate) Total() int64 {
	return e.CommitFee + e.RevealFee
}

// EstimateCost models the commit and reveal transactions for a single
// inscription of contentSize bytes, paid for by a wallet whose inputs
// are of payerClass, funding the commit with inputCount inputs.
//
// The commit has two outputs (the inscription commitment and change).
// The reveal spends the commit output via script path with the content
// carried in the witness, at the one-quarter witness discount.
func EstimateCost(contentSize int, feeRate float64, payerClass address.Class, inputCount int) (Estimate, error) {
	if contentSize < 0 {
		return Estimate{}, fmt.Errorf("content size must be non-negative, got %d", contentSize)
	}
	if inputCount < 1 {
		return Estimate{}, fmt.Errorf("commit input count must be at least 1, got %d", inputCount)
	}
	if feeRate <= 0 {
		return Estimate{}, fmt.Errorf("fee rate must be positive, got %g", feeRate)
	}

	commitVSize := txOverhead + inputCount*address.InputVBytes(payerClass) + 2*outputSize

	witnessBytes := envelopeTag + contentSize + sigBytes
	witnessVBytes := (witnessBytes + 3) / 4 // witness discount, rounded up
	revealVSize := txOverhead + keyPathIn + outputSize + witnessVBytes

	return Estimate{
		CommitVSize: commitVSize,
		RevealVSize: revealVSize,
		CommitFee:   feeFor(commitVSize, feeRate),
		RevealFee:   feeFor(revealVSize, feeRate),
	}, nil
}

// feeFor returns ceil(vsize * rate) in sats.
func feeFor(vsize int, rate float64) int64 {
	return int64(math.Ceil(float64(vsize) * rate))
}
