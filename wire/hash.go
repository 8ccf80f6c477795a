// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"github.com/dchest/blake2b"
)

// ZIP-244 digest personalization strings. The txid tree and the
// signature digest tree share prevouts/sequence/outputs personals; the
// amounts and scripts digests exist only on the signature side.
const (
	PersonalHeaders     = "ZTxIdHeadersHash"
	PersonalPrevouts    = "ZTxIdPrevoutHash"
	PersonalSequence    = "ZTxIdSequencHash"
	PersonalOutputs     = "ZTxIdOutputsHash"
	PersonalSapling     = "ZTxIdSaplingHash"
	PersonalOrchard     = "ZTxIdOrchardHash"
	PersonalTransparent = "ZTxIdTranspaHash"
	PersonalAmounts     = "ZTxTrAmountsHash"
	PersonalScripts     = "ZTxTrScriptsHash"
	PersonalTxIn        = "Zcash___TxInHash"
	personalTxPrefix    = "ZcashTxHash_"
)

// Blake2b256 computes a 32-byte BLAKE2b digest of data with the given
// 16-byte personalization. Shorter personals are right-zero-padded; the
// ZIP-244 strings are all exactly 16 bytes.
func Blake2b256(personal string, data []byte) [32]byte {
	var pers [16]byte
	copy(pers[:], personal)

	h, err := blake2b.New(&blake2b.Config{Size: 32, Person: pers[:]})
	if err != nil {
		panic("wire: blake2b config rejected: " + err.Error())
	}
	h.Write(data)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// TxHashPersonal returns the personalization for the top-level txid /
// sighash digest, which binds the consensus branch ID.
func TxHashPersonal(consensusBranchID uint32) string {
	return personalTxPrefix + string([]byte{
		byte(consensusBranchID),
		byte(consensusBranchID >> 8),
		byte(consensusBranchID >> 16),
		byte(consensusBranchID >> 24),
	})
}
