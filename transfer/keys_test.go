// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transfer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robustfengbin/zwallet/chaincfg"
)

func TestDeriveTransparentKey(t *testing.T) {
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = byte(i)
	}

	k1, err := DeriveTransparentKey(seed, &chaincfg.MainNetParams, 0, 0)
	require.NoError(t, err)

	// Deterministic.
	k2, err := DeriveTransparentKey(seed, &chaincfg.MainNetParams, 0, 0)
	require.NoError(t, err)
	require.Equal(t, k1.Serialize(), k2.Serialize())

	// Distinct along account and index.
	k3, err := DeriveTransparentKey(seed, &chaincfg.MainNetParams, 1, 0)
	require.NoError(t, err)
	require.NotEqual(t, k1.Serialize(), k3.Serialize())

	k4, err := DeriveTransparentKey(seed, &chaincfg.MainNetParams, 0, 1)
	require.NoError(t, err)
	require.NotEqual(t, k1.Serialize(), k4.Serialize())

	// The derived key produces a valid t1 address.
	addr, err := AddressForKey(k1, &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Equal(t, "t1", addr.String()[:2])
}

func TestDeriveTransparentKeyFromMnemonic(t *testing.T) {
	_, err := DeriveTransparentKeyFromMnemonic("not a mnemonic", "", &chaincfg.MainNetParams, 0, 0)
	require.ErrorIs(t, err, ErrBadPrivateKey)
}
