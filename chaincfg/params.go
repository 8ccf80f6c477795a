// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines Zcash network parameters for the wallet engine:
// address prefixes, network-upgrade activation heights, and the consensus
// branch IDs the ZIP-244 sighash and v5 envelope depend on.
package chaincfg

import (
	"errors"
)

// Zatoshi is the smallest unit of ZEC. One ZEC is 10^8 zatoshis.
const Zatoshi = uint64(1)

// ZatoshisPerZEC is the number of zatoshis in one ZEC.
const ZatoshisPerZEC = uint64(100_000_000)

// Consensus branch IDs for the network upgrades this wallet can sign for.
// Every v5 transaction commits to the branch ID active at its target
// height; signing with a stale branch ID makes the signature invalid.
const (
	// ConsensusBranchNU5 is the NU5 (Orchard activation) branch ID.
	ConsensusBranchNU5 uint32 = 0xc2d6d0b4

	// ConsensusBranchNU6 is the NU6 branch ID.
	ConsensusBranchNU6 uint32 = 0xc8e71055

	// ConsensusBranchNU61 is the NU6.1 branch ID.
	ConsensusBranchNU61 uint32 = 0x4dec4df0
)

// Wallet policy constants shared by the scanner and the transfer builder.
const (
	// MinConfirmations is the number of confirmations a note needs
	// before the transfer builder will spend it.
	MinConfirmations = 10

	// AnchorOffset is the anchor depth constant. Spend building does
	// not read it: the anchor is the tree root after refreshing to the
	// chain tip.
	AnchorOffset = 10

	// MaxAnchorAgeBlocks is the maximum age, in blocks, of a spend
	// anchor. Nodes reject transactions whose anchor is older.
	MaxAnchorAgeBlocks = 100

	// ExpiryDelta is added to the chain tip to form a transaction's
	// expiry height.
	ExpiryDelta = 40
)

var (
	// ErrUnknownNetwork is returned when a network name does not match
	// any registered set of parameters.
	ErrUnknownNetwork = errors.New("unknown network")
)

// Params defines a Zcash network by its protocol constants and the
// prefixes used when encoding addresses for the network.
type Params struct {
	// Name is the canonical lowercase name of the network.
	Name string

	// CoinType is the BIP-44/ZIP-32 coin type used in derivation paths.
	CoinType uint32

	// PubKeyHashPrefix is the two-byte Base58Check version prefix for
	// P2PKH transparent addresses (t1... on mainnet).
	PubKeyHashPrefix [2]byte

	// ScriptHashPrefix is the two-byte Base58Check version prefix for
	// P2SH transparent addresses (t3... on mainnet).
	ScriptHashPrefix [2]byte

	// UnifiedHRP is the Bech32m human-readable part for unified
	// addresses.
	UnifiedHRP string

	// OrchardActivationHeight is the height at which NU5 activated the
	// Orchard pool. Scanning never starts below this height.
	OrchardActivationHeight uint64

	// NU6ActivationHeight and NU61ActivationHeight delimit the branch
	// ID eras used by ConsensusBranchID.
	NU6ActivationHeight  uint32
	NU61ActivationHeight uint32
}

// MainNetParams defines the network parameters for the Zcash main
// network.
var MainNetParams = Params{
	Name:                    "mainnet",
	CoinType:                133,
	PubKeyHashPrefix:        [2]byte{0x1c, 0xb8},
	ScriptHashPrefix:        [2]byte{0x1c, 0xbd},
	UnifiedHRP:              "u",
	OrchardActivationHeight: 1_687_104,
	NU6ActivationHeight:     2_726_400,
	NU61ActivationHeight:    3_146_400,
}

// TestNetParams defines the network parameters for the Zcash test
// network.
var TestNetParams = Params{
	Name:                    "testnet",
	CoinType:                1,
	PubKeyHashPrefix:        [2]byte{0x1d, 0x25},
	ScriptHashPrefix:        [2]byte{0x1c, 0xba},
	UnifiedHRP:              "utest",
	OrchardActivationHeight: 1_842_420,
	NU6ActivationHeight:     2_976_000,
	NU61ActivationHeight:    3_536_500,
}

// ParamsForName returns the parameters registered under the given
// network name.
func ParamsForName(name string) (*Params, error) {
	switch name {
	case MainNetParams.Name:
		return &MainNetParams, nil
	case TestNetParams.Name:
		return &TestNetParams, nil
	}
	return nil, ErrUnknownNetwork
}

// ConsensusBranchID returns the consensus branch ID active at the given
// block height.
func (p *Params) ConsensusBranchID(height uint32) uint32 {
	switch {
	case height >= p.NU61ActivationHeight:
		return ConsensusBranchNU61
	case height >= p.NU6ActivationHeight:
		return ConsensusBranchNU6
	default:
		return ConsensusBranchNU5
	}
}

// IsP2PKHPrefix reports whether the given prefix encodes a P2PKH
// transparent address on this network.
func (p *Params) IsP2PKHPrefix(prefix [2]byte) bool {
	return prefix == p.PubKeyHashPrefix
}

// IsP2SHPrefix reports whether the given prefix encodes a P2SH
// transparent address on this network.
func (p *Params) IsP2SHPrefix(prefix [2]byte) bool {
	return prefix == p.ScriptHashPrefix
}
