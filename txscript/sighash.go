// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/robustfengbin/zwallet/wire"
)

// SigHashType is the transparent sighash mode. Only SIGHASH_ALL is
// supported; ZIP-244 defines the others but this wallet never emits
// them.
type SigHashType byte

// SigHashAll commits to every input and output.
const SigHashAll SigHashType = 0x01

var (
	// ErrUnsupportedSigHashType is returned for any mode other than
	// SIGHASH_ALL.
	ErrUnsupportedSigHashType = errors.New("only SIGHASH_ALL is supported")

	// ErrInputIndexOutOfRange is returned when the signed input index
	// does not exist.
	ErrInputIndexOutOfRange = errors.New("input index out of range")

	// ErrMissingPrevOutput is returned when the input being signed does
	// not carry the value and script of its funding output, both of
	// which the ZIP-244 digest commits to.
	ErrMissingPrevOutput = errors.New("input is missing its previous output value or script")
)

// CalcSignatureHash computes the ZIP-244 signature digest for the
// transparent input at the given index.
//
// The digest tree is:
//
//	sighash = BLAKE2b-256("ZcashTxHash_" || branch_le,
//	    header_digest || transparent_sig_digest ||
//	    sapling_digest || orchard_digest)
//
// with transparent_sig_digest covering the hash type, prevouts,
// amounts, script pubkeys, sequences, outputs, and the txin digest of
// the input being signed.
func CalcSignatureHash(tx *wire.MsgTx, idx int, hashType SigHashType) ([32]byte, error) {
	var zero [32]byte

	if hashType != SigHashAll {
		return zero, ErrUnsupportedSigHashType
	}
	if idx < 0 || idx >= len(tx.TxIn) {
		return zero, fmt.Errorf("%w: %d of %d", ErrInputIndexOutOfRange, idx, len(tx.TxIn))
	}
	for _, in := range tx.TxIn {
		if len(in.PkScript) == 0 {
			return zero, ErrMissingPrevOutput
		}
	}

	header := tx.HeaderDigest()
	transparent := transparentSigDigest(tx, idx, hashType)
	sapling := wire.Blake2b256(wire.PersonalSapling, nil)
	orchard := tx.OrchardDigest()

	var data []byte
	data = append(data, header[:]...)
	data = append(data, transparent[:]...)
	data = append(data, sapling[:]...)
	data = append(data, orchard[:]...)

	return wire.Blake2b256(wire.TxHashPersonal(tx.ConsensusBranchID), data), nil
}

func transparentSigDigest(tx *wire.MsgTx, idx int, hashType SigHashType) [32]byte {
	prevouts := tx.PrevoutsDigest()
	amounts := amountsDigest(tx)
	scripts := scriptPubKeysDigest(tx)
	sequences := tx.SequencesDigest()
	outputs := tx.OutputsDigest()
	txin := txInSigDigest(tx.TxIn[idx])

	var data []byte
	data = append(data, byte(hashType))
	data = append(data, prevouts[:]...)
	data = append(data, amounts[:]...)
	data = append(data, scripts[:]...)
	data = append(data, sequences[:]...)
	data = append(data, outputs[:]...)
	data = append(data, txin[:]...)

	return wire.Blake2b256(wire.PersonalTransparent, data)
}

// amountsDigest hashes the funding values of every input in array
// encoding: no count prefix, just the values.
func amountsDigest(tx *wire.MsgTx) [32]byte {
	var buf bytes.Buffer
	for _, in := range tx.TxIn {
		var v [8]byte
		binary.LittleEndian.PutUint64(v[:], uint64(in.Value))
		buf.Write(v[:])
	}
	return wire.Blake2b256(wire.PersonalAmounts, buf.Bytes())
}

// scriptPubKeysDigest hashes the funding scripts of every input, each
// with its own compact-size length prefix and no count prefix.
func scriptPubKeysDigest(tx *wire.MsgTx) [32]byte {
	var buf bytes.Buffer
	for _, in := range tx.TxIn {
		buf.Write(wire.CompactSizeBytes(uint64(len(in.PkScript))))
		buf.Write(in.PkScript)
	}
	return wire.Blake2b256(wire.PersonalScripts, buf.Bytes())
}

// txInSigDigest hashes the single input being signed: outpoint, funding
// value, funding script, sequence.
func txInSigDigest(in *wire.TxIn) [32]byte {
	var buf bytes.Buffer

	var rev [32]byte
	for i, c := range in.PreviousOutPoint.Hash {
		rev[31-i] = c
	}
	buf.Write(rev[:])

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], in.PreviousOutPoint.Index)
	buf.Write(u32[:])

	var v [8]byte
	binary.LittleEndian.PutUint64(v[:], uint64(in.Value))
	buf.Write(v[:])

	buf.Write(wire.CompactSizeBytes(uint64(len(in.PkScript))))
	buf.Write(in.PkScript)

	binary.LittleEndian.PutUint32(u32[:], in.Sequence)
	buf.Write(u32[:])

	return wire.Blake2b256(wire.PersonalTxIn, buf.Bytes())
}
