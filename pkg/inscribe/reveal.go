package inscribe

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/ordforge/ordforge/pkg/address"
)

// defaultSequence opts the reveal input into RBF while staying final.
const defaultSequence = wire.MaxTxInSequenceNum - 10

// RevealRequest carries everything needed to spend a funded commit
// output and mint its inscription.
type RevealRequest struct {
	// CommitTxID is the hex id of the broadcast commit transaction.
	CommitTxID string
	// CommitVout is the index of the commit output being spent.
	CommitVout uint32
	// CommitValue is the value (sats) of the commit output.
	CommitValue int64
	// PrivKey is the ephemeral key whose public key was used to build
	// the commit target.
	PrivKey *btcec.PrivateKey
	// Items must be byte-identical to the items the commit was built
	// from, in the same order.
	Items []Item
	// Destination receives the inscribed output.
	Destination string
	// FeeRate is the reveal fee rate in sat/vB. The fee is paid from
	// the commit output's excess value; the reveal output is always
	// the destination's exact dust minimum.
	FeeRate float64

	Params *chaincfg.Params
}

// RevealResult is a fully signed reveal transaction and the identifiers
// it mints.
type RevealResult struct {
	// TxID is the reveal transaction id.
	TxID string
	// TxHex is the serialized transaction, ready for broadcast.
	TxHex string
	// InscriptionIDs are "{txid}i{n}" for each item, in declaration order.
	InscriptionIDs []string
	// OutputValue is the reveal output value (the destination's dust minimum).
	OutputValue int64
	// Fee is the implied fee: commit value minus output value.
	Fee int64
}

// BuildReveal reconstructs the commit envelope, validates funding,
// signs a script-path spend of the commit output and serializes it.
// Validation failures are returned before any signing; nothing must be
// broadcast when an error is returned.
func BuildReveal(req RevealRequest) (*RevealResult, error) {
	if req.PrivKey == nil {
		return nil, fmt.Errorf("nil private key")
	}
	if req.Params == nil {
		return nil, fmt.Errorf("nil network params")
	}
	if req.FeeRate <= 0 {
		return nil, fmt.Errorf("fee rate must be positive, got %g", req.FeeRate)
	}

	commitHash, err := chainhash.NewHashFromStr(req.CommitTxID)
	if err != nil {
		return nil, fmt.Errorf("malformed commit txid %q: %w", req.CommitTxID, err)
	}

	// Rebuild the identical leaf and control block from the public key.
	target, err := BuildCommitTarget(req.PrivKey.PubKey(), req.Items, req.Params)
	if err != nil {
		return nil, fmt.Errorf("rebuild commit target: %w", err)
	}

	destAddr, err := btcutil.DecodeAddress(req.Destination, req.Params)
	if err != nil {
		return nil, fmt.Errorf("decode destination %q: %w", req.Destination, err)
	}
	destScript, err := txscript.PayToAddrScript(destAddr)
	if err != nil {
		return nil, fmt.Errorf("destination pkscript: %w", err)
	}
	minOut, err := address.MinOutputValueFor(req.Destination, req.Params)
	if err != nil {
		return nil, err
	}

	// The commit output must cover the dust-exact reveal output plus
	// the reveal fee at the requested rate. Checked before signing so
	// underfunded commits surface here, not at broadcast.
	revealFee := estimateRevealFee(req.Items, req.FeeRate)
	if req.CommitValue < minOut+revealFee {
		return nil, fmt.Errorf("commit output value %d is below required %d (output %d + fee %d)",
			req.CommitValue, minOut+revealFee, minOut, revealFee)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	in := wire.NewTxIn(wire.NewOutPoint(commitHash, req.CommitVout), nil, nil)
	in.Sequence = defaultSequence
	tx.AddTxIn(in)
	tx.AddTxOut(wire.NewTxOut(minOut, destScript))

	prevFetcher := txscript.NewCannedPrevOutputFetcher(target.PkScript, req.CommitValue)
	sigHashes := txscript.NewTxSigHashes(tx, prevFetcher)
	sigHash, err := txscript.CalcTapscriptSignaturehash(
		sigHashes, txscript.SigHashDefault, tx, 0, prevFetcher, target.Leaf)
	if err != nil {
		return nil, fmt.Errorf("tapscript sighash: %w", err)
	}
	sig, err := schnorr.Sign(req.PrivKey, sigHash)
	if err != nil {
		return nil, fmt.Errorf("sign reveal: %w", err)
	}
	tx.TxIn[0].Witness = wire.TxWitness{sig.Serialize(), target.LeafScript, target.ControlBlock}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("serialize reveal: %w", err)
	}

	txid := tx.TxHash().String()
	ids := make([]string, len(req.Items))
	for i := range req.Items {
		ids[i] = fmt.Sprintf("%si%d", txid, i)
	}

	return &RevealResult{
		TxID:           txid,
		TxHex:          hex.EncodeToString(buf.Bytes()),
		InscriptionIDs: ids,
		OutputValue:    minOut,
		Fee:            req.CommitValue - minOut,
	}, nil
}

// estimateRevealFee prices the reveal at the given rate using the same
// vsize model as pkg/fees, over the combined item payload.
func estimateRevealFee(items []Item, feeRate float64) int64 {
	payload := 0
	for _, it := range items {
		payload += len(it.Body)
	}
	witnessBytes := 4 + 4 + 2 + payload + 64
	vsize := 10 + 57 + 43 + (witnessBytes+3)/4
	return int64(math.Ceil(float64(vsize) * feeRate))
}
