// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txscript builds the transparent scripts a Zcash v5 wallet
// needs and computes the ZIP-244 transparent signature hash.
package txscript

import (
	"errors"
)

// Script opcodes used by standard transparent scripts.
const (
	OP_DUP         = 0x76
	OP_HASH160     = 0xa9
	OP_EQUAL       = 0x87
	OP_EQUALVERIFY = 0x88
	OP_CHECKSIG    = 0xac

	OP_DATA_20 = 0x14
)

const (
	// Hash160Size is the size of a RIPEMD160(SHA256(x)) hash.
	Hash160Size = 20

	// P2PKHScriptSize is the size of a pay-to-pubkey-hash script.
	P2PKHScriptSize = 25

	// P2SHScriptSize is the size of a pay-to-script-hash script.
	P2SHScriptSize = 23
)

var (
	// ErrInvalidHashLength is returned when a script hash or pubkey
	// hash is not 20 bytes.
	ErrInvalidHashLength = errors.New("hash must be 20 bytes")
)

// PayToPubKeyHashScript returns the canonical P2PKH locking script:
// OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG.
func PayToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != Hash160Size {
		return nil, ErrInvalidHashLength
	}
	script := make([]byte, 0, P2PKHScriptSize)
	script = append(script, OP_DUP, OP_HASH160, OP_DATA_20)
	script = append(script, pubKeyHash...)
	script = append(script, OP_EQUALVERIFY, OP_CHECKSIG)
	return script, nil
}

// PayToScriptHashScript returns the canonical P2SH locking script:
// OP_HASH160 <20-byte hash> OP_EQUAL.
func PayToScriptHashScript(scriptHash []byte) ([]byte, error) {
	if len(scriptHash) != Hash160Size {
		return nil, ErrInvalidHashLength
	}
	script := make([]byte, 0, P2SHScriptSize)
	script = append(script, OP_HASH160, OP_DATA_20)
	script = append(script, scriptHash...)
	script = append(script, OP_EQUAL)
	return script, nil
}

// SignatureScript returns the P2PKH unlocking script for the given
// DER signature (with its sighash-type byte already appended) and
// compressed public key.
func SignatureScript(sigWithHashType, compressedPubKey []byte) []byte {
	script := make([]byte, 0, 2+len(sigWithHashType)+len(compressedPubKey))
	script = append(script, byte(len(sigWithHashType)))
	script = append(script, sigWithHashType...)
	script = append(script, byte(len(compressedPubKey)))
	script = append(script, compressedPubKey...)
	return script
}

// IsPayToPubKeyHash reports whether the script has the canonical P2PKH
// form.
func IsPayToPubKeyHash(script []byte) bool {
	return len(script) == P2PKHScriptSize &&
		script[0] == OP_DUP &&
		script[1] == OP_HASH160 &&
		script[2] == OP_DATA_20 &&
		script[23] == OP_EQUALVERIFY &&
		script[24] == OP_CHECKSIG
}

// IsPayToScriptHash reports whether the script has the canonical P2SH
// form.
func IsPayToScriptHash(script []byte) bool {
	return len(script) == P2SHScriptSize &&
		script[0] == OP_HASH160 &&
		script[1] == OP_DATA_20 &&
		script[22] == OP_EQUAL
}
