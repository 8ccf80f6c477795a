// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addresses

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/robustfengbin/zwallet/chaincfg"
)

func TestTransparentRoundTrip(t *testing.T) {
	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = byte(i * 7)
	}

	addr, err := NewPubKeyHashAddress(hash, &chaincfg.MainNetParams)
	require.NoError(t, err)

	encoded := addr.String()
	require.True(t, len(encoded) > 30)
	// Mainnet P2PKH addresses begin with t1.
	require.Equal(t, "t1", encoded[:2])

	decoded, err := DecodeTransparent(encoded, &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Equal(t, addr.Hash160(), decoded.Hash160())
	require.False(t, decoded.IsP2SH())
}

func TestScriptHashAddressPrefix(t *testing.T) {
	hash := make([]byte, 20)
	hash[0] = 0x42

	addr, err := NewScriptHashAddress(hash, &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.Equal(t, "t3", addr.String()[:2])

	decoded, err := DecodeTransparent(addr.String(), &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.True(t, decoded.IsP2SH())
}

func TestTransparentChecksumMismatch(t *testing.T) {
	hash := make([]byte, 20)
	addr, err := NewPubKeyHashAddress(hash, &chaincfg.MainNetParams)
	require.NoError(t, err)

	encoded := addr.String()
	// Corrupt one character, avoiding ambiguity with the base58
	// alphabet.
	corrupted := []byte(encoded)
	if corrupted[len(corrupted)-1] == '2' {
		corrupted[len(corrupted)-1] = '3'
	} else {
		corrupted[len(corrupted)-1] = '2'
	}

	_, err = DecodeTransparent(string(corrupted), &chaincfg.MainNetParams)
	require.Error(t, err)
}

func TestF4JumbleRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(48, 512).Draw(t, "n")
		msg := rapid.SliceOfN(rapid.Byte(), n, n).Draw(t, "msg")

		jumbled, err := F4Jumble(msg)
		require.NoError(t, err)
		require.Len(t, jumbled, len(msg))
		require.False(t, bytes.Equal(jumbled, msg))

		restored, err := F4JumbleInverse(jumbled)
		require.NoError(t, err)
		require.Equal(t, msg, restored)
	})
}

func TestF4JumbleRejectsShortInput(t *testing.T) {
	_, err := F4Jumble(make([]byte, 47))
	require.ErrorIs(t, err, ErrJumbleLength)

	_, err = F4JumbleInverse(make([]byte, 10))
	require.ErrorIs(t, err, ErrJumbleLength)
}

func TestUnifiedRoundTrip(t *testing.T) {
	orchard := make([]byte, OrchardReceiverSize)
	for i := range orchard {
		orchard[i] = byte(i + 1)
	}
	p2pkh := make([]byte, 20)
	p2pkh[0] = 0x99

	ua := NewUnifiedAddress(&chaincfg.MainNetParams)
	ua.Orchard = orchard
	ua.P2PKH = p2pkh

	encoded, err := ua.Encode()
	require.NoError(t, err)
	require.Equal(t, "u1", encoded[:2])

	decoded, err := DecodeUnified(encoded, &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.True(t, decoded.HasOrchard())
	require.True(t, decoded.HasTransparent())
	require.False(t, decoded.HasSapling())
	require.Equal(t, orchard, decoded.Orchard)
	require.Equal(t, p2pkh, decoded.P2PKH)

	taddr, err := decoded.TransparentAddress()
	require.NoError(t, err)
	require.Equal(t, "t1", taddr.String()[:2])
}

func TestUnifiedOrchardOnly(t *testing.T) {
	ua := NewUnifiedAddress(&chaincfg.MainNetParams)
	ua.Orchard = make([]byte, OrchardReceiverSize)
	ua.Orchard[0] = 0x01

	encoded, err := ua.Encode()
	require.NoError(t, err)

	decoded, err := DecodeUnified(encoded, &chaincfg.MainNetParams)
	require.NoError(t, err)
	require.True(t, decoded.HasOrchard())
	require.False(t, decoded.HasTransparent())

	_, err = decoded.PkScript()
	require.ErrorIs(t, err, ErrNoKnownReceivers)
}

func TestUnifiedRejectsEmptyReceivers(t *testing.T) {
	ua := NewUnifiedAddress(&chaincfg.MainNetParams)
	_, err := ua.Encode()
	require.ErrorIs(t, err, ErrNoKnownReceivers)
}

func TestUnifiedRejectsWrongNetwork(t *testing.T) {
	ua := NewUnifiedAddress(&chaincfg.MainNetParams)
	ua.Orchard = make([]byte, OrchardReceiverSize)

	encoded, err := ua.Encode()
	require.NoError(t, err)

	_, err = DecodeUnified(encoded, &chaincfg.TestNetParams)
	require.Error(t, err)
}
