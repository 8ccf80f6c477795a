// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transfer

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/robustfengbin/zwallet/chaincfg"
	"github.com/robustfengbin/zwallet/txscript"
	"github.com/robustfengbin/zwallet/wire"
)

func testKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	raw := make([]byte, 32)
	raw[31] = 0x01
	priv, _ := btcec.PrivKeyFromBytes(raw)
	require.NotNil(t, priv)
	return priv
}

func TestTransparentBuildAndSign(t *testing.T) {
	priv := testKey(t)
	params := &chaincfg.MainNetParams

	fromAddr, err := AddressForKey(priv, params)
	require.NoError(t, err)
	fundingScript, err := fromAddr.PkScript()
	require.NoError(t, err)

	toAddr, err := AddressForKey(testKey(t), params)
	require.NoError(t, err)

	builder := NewTransparentBuilder(params, 2_800_000, 2_800_040)

	var prevTxID [32]byte
	prevTxID[0] = 0xaa
	builder.AddInput(prevTxID, 0, 1_000_000, fundingScript)
	require.NoError(t, builder.AddOutput(toAddr.String(), 990_000))

	rawHex, txid, err := builder.Sign(priv)
	require.NoError(t, err)
	require.NotEmpty(t, txid)

	raw, err := hex.DecodeString(rawHex)
	require.NoError(t, err)

	var tx wire.MsgTx
	require.NoError(t, tx.Deserialize(bytes.NewReader(raw)))
	require.Len(t, tx.TxIn, 1)
	require.Len(t, tx.TxOut, 1)
	require.Nil(t, tx.Orchard)
	require.Equal(t, chaincfg.ConsensusBranchNU6, tx.ConsensusBranchID)
	require.Equal(t, uint32(2_800_040), tx.ExpiryHeight)

	// ScriptSig is <sig+type> <compressed pubkey>.
	script := tx.TxIn[0].SignatureScript
	require.NotEmpty(t, script)
	sigLen := int(script[0])
	require.Equal(t, byte(txscript.SigHashAll), script[sigLen])
	require.Equal(t, byte(33), script[1+sigLen])
	require.Len(t, script, 1+sigLen+1+33)
}

func TestTransparentBranchIDSelection(t *testing.T) {
	params := &chaincfg.MainNetParams

	pre := NewTransparentBuilder(params, 2_000_000, 0)
	require.Equal(t, chaincfg.ConsensusBranchNU5, pre.Tx().ConsensusBranchID)

	nu6 := NewTransparentBuilder(params, 2_726_400, 0)
	require.Equal(t, chaincfg.ConsensusBranchNU6, nu6.Tx().ConsensusBranchID)

	nu61 := NewTransparentBuilder(params, 3_146_400, 0)
	require.Equal(t, chaincfg.ConsensusBranchNU61, nu61.Tx().ConsensusBranchID)
}

func TestSignRequiresInputsAndOutputs(t *testing.T) {
	params := &chaincfg.MainNetParams
	priv := testKey(t)

	empty := NewTransparentBuilder(params, 2_800_000, 0)
	_, _, err := empty.Sign(priv)
	require.ErrorIs(t, err, ErrNoInputs)

	noOut := NewTransparentBuilder(params, 2_800_000, 0)
	noOut.AddInput([32]byte{1}, 0, 1000, []byte{0x51})
	_, _, err = noOut.Sign(priv)
	require.ErrorIs(t, err, ErrNoOutputs)
}

func TestParsePrivateKey(t *testing.T) {
	// Hex, with and without the 0x prefix.
	keyHex := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	k1, err := ParsePrivateKey(keyHex)
	require.NoError(t, err)
	k2, err := ParsePrivateKey("0x" + keyHex)
	require.NoError(t, err)
	require.Equal(t, k1.Serialize(), k2.Serialize())

	_, err = ParsePrivateKey("zz")
	require.ErrorIs(t, err, ErrBadPrivateKey)

	_, err = ParsePrivateKey("abcd")
	require.ErrorIs(t, err, ErrBadPrivateKey)
}
