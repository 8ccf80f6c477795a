// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transfer

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	bip32 "github.com/tyler-smith/go-bip32"
	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/robustfengbin/zwallet/chaincfg"
)

// bip44Purpose is the BIP-44 purpose field used for transparent key
// derivation.
const bip44Purpose = 44

// DeriveTransparentKey derives the transparent signing key at
// m/44'/coin'/account'/0/index from a wallet seed.
func DeriveTransparentKey(seed []byte, params *chaincfg.Params, account, index uint32) (*btcec.PrivateKey, error) {
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPrivateKey, err)
	}

	path := []uint32{
		bip32.FirstHardenedChild + bip44Purpose,
		bip32.FirstHardenedChild + params.CoinType,
		bip32.FirstHardenedChild + account,
		0,
		index,
	}

	key := master
	for _, child := range path {
		key, err = key.NewChildKey(child)
		if err != nil {
			return nil, fmt.Errorf("%w: derive child %d: %v", ErrBadPrivateKey, child, err)
		}
	}

	priv, _ := btcec.PrivKeyFromBytes(key.Key)
	if priv == nil {
		return nil, ErrBadPrivateKey
	}
	return priv, nil
}

// DeriveTransparentKeyFromMnemonic is DeriveTransparentKey over a
// BIP-39 mnemonic sentence.
func DeriveTransparentKeyFromMnemonic(mnemonic, passphrase string, params *chaincfg.Params, account, index uint32) (*btcec.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("%w: invalid mnemonic", ErrBadPrivateKey)
	}
	return DeriveTransparentKey(bip39.NewSeed(mnemonic, passphrase), params, account, index)
}
