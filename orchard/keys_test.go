// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orchard

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSeed(fill byte) []byte {
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = fill
	}
	return seed
}

func TestDeriveFromSeed(t *testing.T) {
	sk, vk, err := DeriveFromSeed(testSeed(0), 133, 0, 2_000_000)
	require.NoError(t, err)
	require.Equal(t, uint32(0), sk.AccountIndex)
	require.Equal(t, uint32(0), vk.AccountIndex)
	require.Equal(t, uint64(2_000_000), vk.BirthdayHeight)

	// Derivation is deterministic.
	sk2, vk2, err := DeriveFromSeed(testSeed(0), 133, 0, 2_000_000)
	require.NoError(t, err)
	require.Equal(t, sk.Bytes(), sk2.Bytes())
	require.Equal(t, vk.FVK.Bytes(), vk2.FVK.Bytes())

	// Different accounts get independent keys.
	_, vk3, err := DeriveFromSeed(testSeed(0), 133, 1, 2_000_000)
	require.NoError(t, err)
	require.NotEqual(t, vk.FVK.Bytes(), vk3.FVK.Bytes())

	// The spending key's viewing key matches the derived one.
	require.Equal(t, vk.FVK.Bytes(), sk.FullViewingKey().Bytes())
}

func TestDeriveRejectsShortSeed(t *testing.T) {
	_, _, err := DeriveFromSeed(make([]byte, 16), 133, 0, 0)
	require.ErrorIs(t, err, ErrKeyDerivation)
}

func TestViewingKeyEncodeDecode(t *testing.T) {
	_, vk, err := DeriveFromSeed(testSeed(1), 133, 3, 2_100_000)
	require.NoError(t, err)

	encoded := vk.Encode()
	decoded, err := DecodeViewingKey(encoded)
	require.NoError(t, err)
	require.Equal(t, vk.AccountIndex, decoded.AccountIndex)
	require.Equal(t, vk.BirthdayHeight, decoded.BirthdayHeight)
	require.Equal(t, vk.FVK.Bytes(), decoded.FVK.Bytes())

	_, err = DecodeViewingKey("not-a-key")
	require.ErrorIs(t, err, ErrKeyDerivation)
}

func TestFullViewingKeyBytesRoundTrip(t *testing.T) {
	_, vk, err := DeriveFromSeed(testSeed(2), 133, 0, 0)
	require.NoError(t, err)

	raw := vk.FVK.Bytes()
	restored, err := FullViewingKeyFromBytes(raw[:])
	require.NoError(t, err)
	require.Equal(t, raw, restored.Bytes())
}

func TestScopeSeparation(t *testing.T) {
	_, vk, err := DeriveFromSeed(testSeed(3), 133, 0, 0)
	require.NoError(t, err)

	ext := vk.FVK.AddressAt(0, External)
	internal := vk.FVK.AddressAt(0, Internal)
	require.NotEqual(t, ext.Bytes(), internal.Bytes())

	// Distinct diversifier indices give distinct addresses.
	other := vk.FVK.AddressAt(1, External)
	require.NotEqual(t, ext.Bytes(), other.Bytes())
}

func TestAddressBytesRoundTrip(t *testing.T) {
	_, vk, err := DeriveFromSeed(testSeed(4), 133, 0, 0)
	require.NoError(t, err)

	addr := vk.FVK.AddressAt(7, External)
	raw := addr.Bytes()
	require.Len(t, raw[:], RawAddressSize)

	restored, err := AddressFromBytes(raw[:])
	require.NoError(t, err)
	require.Equal(t, raw, restored.Bytes())
}

func TestSpendingKeyZero(t *testing.T) {
	sk, _, err := DeriveFromSeed(testSeed(5), 133, 0, 0)
	require.NoError(t, err)

	before := sk.Bytes()
	require.False(t, bytes.Equal(before[:], make([]byte, SpendingKeySize)))

	sk.Zero()
	after := sk.Bytes()
	require.Equal(t, make([]byte, SpendingKeySize), after[:])
}

func TestDeriveFromTransparentKey(t *testing.T) {
	priv := make([]byte, 32)
	priv[0] = 0x01

	sk1, vk1, err := DeriveFromTransparentKey(priv, 133, 0, 0)
	require.NoError(t, err)
	sk2, _, err := DeriveFromTransparentKey(priv, 133, 0, 0)
	require.NoError(t, err)
	require.Equal(t, sk1.Bytes(), sk2.Bytes())
	require.True(t, vk1.FVK != nil)

	_, _, err = DeriveFromTransparentKey(priv[:31], 133, 0, 0)
	require.ErrorIs(t, err, ErrKeyDerivation)
}
