// Package inscribe builds the commit-side inscription envelope and the
// script-path reveal transaction that mints it on-chain.
package inscribe

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Envelope protocol constants.
const (
	// protocolMarker tags the envelope so indexers recognize it.
	protocolMarker = "ord"

	// maxChunkSize is the largest single data push allowed in a script.
	maxChunkSize = 520

	// maxEnvelopeBytes bounds the leaf script so the reveal stays under
	// the standard transaction weight ceiling (400k weight units).
	maxEnvelopeBytes = 390 * 1024
)

// Item is one piece of content to inscribe.
type Item struct {
	ContentType string
	Body        []byte
}

// CommitTarget describes the taproot output a commit transaction must
// fund so that the envelope can later be revealed.
type CommitTarget struct {
	// Address is the pay-to-taproot commit address.
	Address string
	// PkScript is the commit output script.
	PkScript []byte
	// OutputKey is the tweaked (output) public key.
	OutputKey *btcec.PublicKey
	// LeafScript is the serialized envelope leaf script.
	LeafScript []byte
	// Leaf is the tapscript leaf descriptor.
	Leaf txscript.TapLeaf
	// ControlBlock is the serialized control block for a script-path
	// spend of the single-leaf tree.
	ControlBlock []byte
}

// BuildCommitTarget encodes the items into a single tapscript leaf,
// tweaks pubKey with the leaf hash and derives the commit address.
// Deterministic: identical inputs always produce identical output.
func BuildCommitTarget(pubKey *btcec.PublicKey, items []Item, params *chaincfg.Params) (*CommitTarget, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("nil public key")
	}
	leafScript, err := buildEnvelopeScript(pubKey, items)
	if err != nil {
		return nil, err
	}

	leaf := txscript.NewBaseTapLeaf(leafScript)
	proof := &txscript.TapscriptProof{TapLeaf: leaf, RootNode: leaf}
	controlBlock := proof.ToControlBlock(pubKey)
	controlBlockBytes, err := controlBlock.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize control block: %w", err)
	}

	rootHash := proof.RootNode.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(pubKey, rootHash[:])

	addr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), params)
	if err != nil {
		return nil, fmt.Errorf("derive commit address: %w", err)
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("commit pkscript: %w", err)
	}

	return &CommitTarget{
		Address:      addr.EncodeAddress(),
		PkScript:     pkScript,
		OutputKey:    outputKey,
		LeafScript:   leafScript,
		Leaf:         leaf,
		ControlBlock: controlBlockBytes,
	}, nil
}

// buildEnvelopeScript assembles the leaf script:
//
//	<pubkey> OP_CHECKSIG
//	per item: OP_FALSE OP_IF "ord" 0x01 <content-type> OP_0 <body chunks> OP_ENDIF
//
// Body pushes bypass the script builder's canonical-size check because
// inscription bodies routinely exceed the 10k script ceiling the
// builder enforces; the envelope is only executed as the untaken
// OP_FALSE branch, so consensus never runs the pushes.
func buildEnvelopeScript(pubKey *btcec.PublicKey, items []Item) ([]byte, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("at least one inscription item required")
	}

	var script bytes.Buffer

	prefix, err := txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(pubKey)).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		return nil, fmt.Errorf("envelope prefix: %w", err)
	}
	script.Write(prefix)

	for i, item := range items {
		if len(item.Body) == 0 {
			return nil, fmt.Errorf("item %d: empty body", i)
		}
		if item.ContentType == "" {
			return nil, fmt.Errorf("item %d: missing content type", i)
		}
		if len(item.ContentType) > maxChunkSize {
			return nil, fmt.Errorf("item %d: content type exceeds %d bytes", i, maxChunkSize)
		}

		header, err := txscript.NewScriptBuilder().
			AddOp(txscript.OP_FALSE).
			AddOp(txscript.OP_IF).
			AddData([]byte(protocolMarker)).
			AddOp(txscript.OP_DATA_1).
			AddOp(txscript.OP_DATA_1).
			AddData([]byte(item.ContentType)).
			AddOp(txscript.OP_0).
			Script()
		if err != nil {
			return nil, fmt.Errorf("item %d: envelope header: %w", i, err)
		}
		script.Write(header)

		body := txscript.NewScriptBuilder()
		for off := 0; off < len(item.Body); off += maxChunkSize {
			end := off + maxChunkSize
			if end > len(item.Body) {
				end = len(item.Body)
			}
			body.AddFullData(item.Body[off:end])
		}
		bodyScript, err := body.Script()
		if err != nil {
			return nil, fmt.Errorf("item %d: envelope body: %w", i, err)
		}
		script.Write(bodyScript)
		script.WriteByte(txscript.OP_ENDIF)
	}

	if script.Len() > maxEnvelopeBytes {
		return nil, fmt.Errorf("envelope script is %d bytes, exceeds %d-byte limit", script.Len(), maxEnvelopeBytes)
	}
	return script.Bytes(), nil
}
