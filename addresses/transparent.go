// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addresses implements Zcash address encoding and validation:
// Base58Check transparent addresses and ZIP-316 unified addresses.
package addresses

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/robustfengbin/zwallet/chaincfg"
	"github.com/robustfengbin/zwallet/txscript"
)

var (
	// ErrInvalidAddress is returned when an address cannot be decoded.
	ErrInvalidAddress = errors.New("invalid address format")

	// ErrChecksumMismatch is returned when the 4-byte Base58Check
	// checksum does not verify. Checksum failures are fatal: the
	// address is never used in a best-effort way.
	ErrChecksumMismatch = errors.New("address checksum mismatch")

	// ErrUnknownAddressPrefix is returned when the two-byte version
	// prefix matches neither P2PKH nor P2SH on the given network.
	ErrUnknownAddressPrefix = errors.New("unknown address version prefix")
)

// Address is the interface shared by all Zcash address kinds the wallet
// can pay to.
type Address interface {
	// String returns the human-readable address.
	String() string

	// PkScript returns the locking script paying to this address.
	// Unified addresses with no transparent receiver return an error;
	// their payment path is the Orchard receiver.
	PkScript() ([]byte, error)

	// IsForNetwork reports whether the address belongs to the given
	// network.
	IsForNetwork(params *chaincfg.Params) bool
}

// TransparentAddress is a Base58Check t-address, either P2PKH (t1) or
// P2SH (t3).
type TransparentAddress struct {
	prefix [2]byte
	hash   [txscript.Hash160Size]byte
	params *chaincfg.Params
}

// NewPubKeyHashAddress builds a P2PKH address from a 20-byte pubkey
// hash.
func NewPubKeyHashAddress(pubKeyHash []byte, params *chaincfg.Params) (*TransparentAddress, error) {
	if len(pubKeyHash) != txscript.Hash160Size {
		return nil, fmt.Errorf("%w: pubkey hash must be %d bytes", ErrInvalidAddress, txscript.Hash160Size)
	}
	addr := &TransparentAddress{prefix: params.PubKeyHashPrefix, params: params}
	copy(addr.hash[:], pubKeyHash)
	return addr, nil
}

// NewScriptHashAddress builds a P2SH address from a 20-byte script
// hash.
func NewScriptHashAddress(scriptHash []byte, params *chaincfg.Params) (*TransparentAddress, error) {
	if len(scriptHash) != txscript.Hash160Size {
		return nil, fmt.Errorf("%w: script hash must be %d bytes", ErrInvalidAddress, txscript.Hash160Size)
	}
	addr := &TransparentAddress{prefix: params.ScriptHashPrefix, params: params}
	copy(addr.hash[:], scriptHash)
	return addr, nil
}

// DecodeTransparent decodes and validates a Base58Check t-address.
func DecodeTransparent(encoded string, params *chaincfg.Params) (*TransparentAddress, error) {
	decoded := base58.Decode(encoded)
	if len(decoded) != 2+txscript.Hash160Size+4 {
		return nil, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(decoded))
	}

	payload := decoded[:2+txscript.Hash160Size]
	checksum := decoded[2+txscript.Hash160Size:]
	if !verifyChecksum(payload, checksum) {
		return nil, ErrChecksumMismatch
	}

	var prefix [2]byte
	copy(prefix[:], payload[:2])
	if !params.IsP2PKHPrefix(prefix) && !params.IsP2SHPrefix(prefix) {
		return nil, fmt.Errorf("%w: %02x%02x", ErrUnknownAddressPrefix, prefix[0], prefix[1])
	}

	addr := &TransparentAddress{prefix: prefix, params: params}
	copy(addr.hash[:], payload[2:])
	return addr, nil
}

// String encodes the address as Base58Check.
func (a *TransparentAddress) String() string {
	payload := make([]byte, 0, 2+txscript.Hash160Size+4)
	payload = append(payload, a.prefix[:]...)
	payload = append(payload, a.hash[:]...)

	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	payload = append(payload, second[:4]...)

	return base58.Encode(payload)
}

// Hash160 returns the 20-byte hash the address commits to.
func (a *TransparentAddress) Hash160() [txscript.Hash160Size]byte {
	return a.hash
}

// IsP2SH reports whether the address is pay-to-script-hash.
func (a *TransparentAddress) IsP2SH() bool {
	return a.params.IsP2SHPrefix(a.prefix)
}

// PkScript returns the locking script for the address.
func (a *TransparentAddress) PkScript() ([]byte, error) {
	if a.IsP2SH() {
		return txscript.PayToScriptHashScript(a.hash[:])
	}
	return txscript.PayToPubKeyHashScript(a.hash[:])
}

// IsForNetwork reports whether the address prefix belongs to params.
func (a *TransparentAddress) IsForNetwork(params *chaincfg.Params) bool {
	return params.IsP2PKHPrefix(a.prefix) || params.IsP2SHPrefix(a.prefix)
}

func verifyChecksum(payload, checksum []byte) bool {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	for i := 0; i < 4; i++ {
		if second[i] != checksum[i] {
			return false
		}
	}
	return true
}
