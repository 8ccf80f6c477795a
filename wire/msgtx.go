// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	// TxVersion5 is the v5 version word with the overwintered bit set.
	TxVersion5 uint32 = 0x80000005

	// VersionGroupIDV5 identifies the v5 transaction format.
	VersionGroupIDV5 uint32 = 0x26a7270a

	// MaxScriptSize bounds script allocations during deserialization.
	MaxScriptSize = 10_000

	// maxTxInPerMessage and maxTxOutPerMessage bound input/output
	// allocations during deserialization.
	maxTxInPerMessage  = 10_000
	maxTxOutPerMessage = 10_000
)

var (
	// ErrBadVersion is returned when a serialized transaction does not
	// carry the v5 version word.
	ErrBadVersion = errors.New("transaction is not a v5 transaction")

	// ErrBadVersionGroup is returned when the version group ID is not
	// the v5 group.
	ErrBadVersionGroup = errors.New("unexpected transaction version group id")

	// ErrSaplingUnsupported is returned when a transaction carries a
	// Sapling bundle, which this wallet neither builds nor parses.
	ErrSaplingUnsupported = errors.New("sapling bundles are not supported")
)

// OutPoint identifies a previous transaction output.
type OutPoint struct {
	// Hash is the id of the funding transaction in display order
	// (big-endian). It is byte-reversed on the wire.
	Hash [32]byte

	// Index is the output index within the funding transaction.
	Index uint32
}

// String returns the conventional txid:index form.
func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", hex.EncodeToString(o.Hash[:]), o.Index)
}

// TxIn is a transparent transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32

	// Value and PkScript describe the funded output being spent. They
	// are not serialized; the ZIP-244 sighash commits to both.
	Value    int64
	PkScript []byte
}

// TxOut is a transparent transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// MsgTx is a Zcash v5 transaction: the common header, a transparent
// bundle, an always-empty Sapling bundle, and an optional Orchard
// bundle.
type MsgTx struct {
	Version           uint32
	VersionGroupID    uint32
	ConsensusBranchID uint32
	LockTime          uint32
	ExpiryHeight      uint32

	TxIn  []*TxIn
	TxOut []*TxOut

	Orchard *OrchardBundle
}

// NewMsgTx returns a v5 transaction with the given consensus branch ID
// and expiry height and no inputs, outputs, or shielded bundle.
func NewMsgTx(consensusBranchID, expiryHeight uint32) *MsgTx {
	return &MsgTx{
		Version:           TxVersion5,
		VersionGroupID:    VersionGroupIDV5,
		ConsensusBranchID: consensusBranchID,
		ExpiryHeight:      expiryHeight,
	}
}

// AddTxIn appends an input.
func (tx *MsgTx) AddTxIn(in *TxIn) {
	tx.TxIn = append(tx.TxIn, in)
}

// AddTxOut appends an output.
func (tx *MsgTx) AddTxOut(out *TxOut) {
	tx.TxOut = append(tx.TxOut, out)
}

// Serialize writes the transaction in ZIP-225 wire order.
func (tx *MsgTx) Serialize(w io.Writer) error {
	if err := writeUint32(w, tx.Version); err != nil {
		return err
	}
	if err := writeUint32(w, tx.VersionGroupID); err != nil {
		return err
	}
	if err := writeUint32(w, tx.ConsensusBranchID); err != nil {
		return err
	}
	if err := writeUint32(w, tx.LockTime); err != nil {
		return err
	}
	if err := writeUint32(w, tx.ExpiryHeight); err != nil {
		return err
	}

	// Transparent bundle.
	if err := WriteCompactSize(w, uint64(len(tx.TxIn))); err != nil {
		return err
	}
	for _, in := range tx.TxIn {
		if err := writeOutPoint(w, &in.PreviousOutPoint); err != nil {
			return err
		}
		if err := writeVarBytes(w, in.SignatureScript); err != nil {
			return err
		}
		if err := writeUint32(w, in.Sequence); err != nil {
			return err
		}
	}
	if err := WriteCompactSize(w, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, out := range tx.TxOut {
		if err := writeInt64(w, out.Value); err != nil {
			return err
		}
		if err := writeVarBytes(w, out.PkScript); err != nil {
			return err
		}
	}

	// Empty Sapling bundle: zero spends, zero outputs.
	if _, err := w.Write([]byte{0x00, 0x00}); err != nil {
		return err
	}

	// Orchard bundle, or a zero action count.
	if tx.Orchard == nil {
		_, err := w.Write([]byte{0x00})
		return err
	}
	return tx.Orchard.Serialize(w)
}

// Deserialize reads a v5 transaction written by Serialize.
func (tx *MsgTx) Deserialize(r io.Reader) error {
	var err error
	if tx.Version, err = readUint32(r); err != nil {
		return err
	}
	if tx.Version != TxVersion5 {
		return ErrBadVersion
	}
	if tx.VersionGroupID, err = readUint32(r); err != nil {
		return err
	}
	if tx.VersionGroupID != VersionGroupIDV5 {
		return ErrBadVersionGroup
	}
	if tx.ConsensusBranchID, err = readUint32(r); err != nil {
		return err
	}
	if tx.LockTime, err = readUint32(r); err != nil {
		return err
	}
	if tx.ExpiryHeight, err = readUint32(r); err != nil {
		return err
	}

	numIn, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	if numIn > maxTxInPerMessage {
		return fmt.Errorf("too many transaction inputs: %d", numIn)
	}
	tx.TxIn = make([]*TxIn, 0, numIn)
	for i := uint64(0); i < numIn; i++ {
		in := &TxIn{}
		if err := readOutPoint(r, &in.PreviousOutPoint); err != nil {
			return err
		}
		if in.SignatureScript, err = readVarBytes(r, MaxScriptSize, "signature script"); err != nil {
			return err
		}
		if in.Sequence, err = readUint32(r); err != nil {
			return err
		}
		tx.TxIn = append(tx.TxIn, in)
	}

	numOut, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	if numOut > maxTxOutPerMessage {
		return fmt.Errorf("too many transaction outputs: %d", numOut)
	}
	tx.TxOut = make([]*TxOut, 0, numOut)
	for i := uint64(0); i < numOut; i++ {
		out := &TxOut{}
		if out.Value, err = readInt64(r); err != nil {
			return err
		}
		if out.PkScript, err = readVarBytes(r, MaxScriptSize, "pk script"); err != nil {
			return err
		}
		tx.TxOut = append(tx.TxOut, out)
	}

	// Sapling bundle must be empty.
	var sapling [2]byte
	if _, err := io.ReadFull(r, sapling[:]); err != nil {
		return err
	}
	if sapling[0] != 0 || sapling[1] != 0 {
		return ErrSaplingUnsupported
	}

	bundle, err := readOrchardBundle(r)
	if err != nil {
		return err
	}
	tx.Orchard = bundle
	return nil
}

// Bytes returns the serialized transaction.
func (tx *MsgTx) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TxHash computes the ZIP-244 transaction id: a BLAKE2b-256 digest tree
// personalized with the consensus branch ID. The returned hash is in
// internal byte order; reverse it for display.
func (tx *MsgTx) TxHash() [32]byte {
	header := tx.headerDigest()
	transparent := tx.transparentTxIDDigest()
	sapling := Blake2b256(PersonalSapling, nil)
	orchard := tx.orchardDigest()

	var data []byte
	data = append(data, header[:]...)
	data = append(data, transparent[:]...)
	data = append(data, sapling[:]...)
	data = append(data, orchard[:]...)

	return Blake2b256(TxHashPersonal(tx.ConsensusBranchID), data)
}

// TxHashString returns the display-order hex txid.
func (tx *MsgTx) TxHashString() string {
	h := tx.TxHash()
	for i, j := 0, len(h)-1; i < j; i, j = i+1, j-1 {
		h[i], h[j] = h[j], h[i]
	}
	return hex.EncodeToString(h[:])
}

// HeaderDigest returns T.1 of the ZIP-244 tree.
func (tx *MsgTx) headerDigest() [32]byte {
	var buf bytes.Buffer
	writeUint32(&buf, tx.Version)
	writeUint32(&buf, tx.VersionGroupID)
	writeUint32(&buf, tx.ConsensusBranchID)
	writeUint32(&buf, tx.LockTime)
	writeUint32(&buf, tx.ExpiryHeight)
	return Blake2b256(PersonalHeaders, buf.Bytes())
}

// HeaderDigest exposes the header digest for the sighash computation.
func (tx *MsgTx) HeaderDigest() [32]byte {
	return tx.headerDigest()
}

// PrevoutsDigest hashes every input's funding outpoint.
func (tx *MsgTx) PrevoutsDigest() [32]byte {
	var buf bytes.Buffer
	for _, in := range tx.TxIn {
		writeOutPoint(&buf, &in.PreviousOutPoint)
	}
	return Blake2b256(PersonalPrevouts, buf.Bytes())
}

// SequencesDigest hashes every input's sequence number.
func (tx *MsgTx) SequencesDigest() [32]byte {
	var buf bytes.Buffer
	for _, in := range tx.TxIn {
		writeUint32(&buf, in.Sequence)
	}
	return Blake2b256(PersonalSequence, buf.Bytes())
}

// OutputsDigest hashes every transparent output.
func (tx *MsgTx) OutputsDigest() [32]byte {
	var buf bytes.Buffer
	for _, out := range tx.TxOut {
		writeInt64(&buf, out.Value)
		writeVarBytes(&buf, out.PkScript)
	}
	return Blake2b256(PersonalOutputs, buf.Bytes())
}

// transparentTxIDDigest is T.2 of the txid tree: empty input when the
// transparent bundle is empty, otherwise the three bundle digests.
func (tx *MsgTx) transparentTxIDDigest() [32]byte {
	if len(tx.TxIn) == 0 && len(tx.TxOut) == 0 {
		return Blake2b256(PersonalTransparent, nil)
	}
	prevouts := tx.PrevoutsDigest()
	sequences := tx.SequencesDigest()
	outputs := tx.OutputsDigest()

	var data []byte
	data = append(data, prevouts[:]...)
	data = append(data, sequences[:]...)
	data = append(data, outputs[:]...)
	return Blake2b256(PersonalTransparent, data)
}

// orchardDigest is T.4 of the txid tree.
func (tx *MsgTx) orchardDigest() [32]byte {
	if tx.Orchard == nil || len(tx.Orchard.Actions) == 0 {
		return Blake2b256(PersonalOrchard, nil)
	}
	return tx.Orchard.Digest()
}

// OrchardDigest exposes the Orchard digest for the sighash computation.
func (tx *MsgTx) OrchardDigest() [32]byte {
	return tx.orchardDigest()
}

func writeOutPoint(w io.Writer, o *OutPoint) error {
	// The txid is serialized little-endian on the wire.
	var rev [32]byte
	for i := range o.Hash {
		rev[31-i] = o.Hash[i]
	}
	if _, err := w.Write(rev[:]); err != nil {
		return err
	}
	return writeUint32(w, o.Index)
}

func readOutPoint(r io.Reader, o *OutPoint) error {
	var rev [32]byte
	if _, err := io.ReadFull(r, rev[:]); err != nil {
		return err
	}
	for i := range rev {
		o.Hash[31-i] = rev[i]
	}
	idx, err := readUint32(r)
	if err != nil {
		return err
	}
	o.Index = idx
	return nil
}
