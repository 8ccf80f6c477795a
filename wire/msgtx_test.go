// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCompactSizeVectors(t *testing.T) {
	tests := []struct {
		n    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{252, []byte{0xfc}},
		{253, []byte{0xfd, 0xfd, 0x00}},
		{0x1234, []byte{0xfd, 0x34, 0x12}},
		{0xffff, []byte{0xfd, 0xff, 0xff}},
		{0x10000, []byte{0xfe, 0x00, 0x00, 0x01, 0x00}},
		{0xffffffff, []byte{0xfe, 0xff, 0xff, 0xff, 0xff}},
		{0x100000000, []byte{0xff, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, CompactSizeBytes(tt.n), "n=%d", tt.n)

		got, err := ReadCompactSize(bytes.NewReader(tt.want))
		require.NoError(t, err)
		require.Equal(t, tt.n, got)
	}
}

func TestCompactSizeRejectsNonCanonical(t *testing.T) {
	// 252 encoded with the 0xfd discriminant is non-canonical.
	_, err := ReadCompactSize(bytes.NewReader([]byte{0xfd, 0xfc, 0x00}))
	require.ErrorIs(t, err, ErrVarIntTooLong)
}

func TestCompactSizeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Uint64().Draw(t, "n")
		var buf bytes.Buffer
		require.NoError(t, WriteCompactSize(&buf, n))
		got, err := ReadCompactSize(&buf)
		require.NoError(t, err)
		require.Equal(t, n, got)
	})
}

func testBundle(numActions int) *OrchardBundle {
	b := &OrchardBundle{
		Flags:        OrchardFlagSpendsEnabled | OrchardFlagOutputsEnabled,
		ValueBalance: -150_000,
		Proof:        make([]byte, numActions*ProofSizePerAction),
	}
	for i := 0; i < numActions; i++ {
		a := &OrchardAction{}
		for j := range a.Cmx {
			a.Cmx[j] = byte(i + 1)
			a.Nullifier[j] = byte(i + 2)
			a.Rk[j] = byte(i + 3)
			a.Cv[j] = byte(i + 4)
		}
		b.Actions = append(b.Actions, a)
	}
	b.Anchor[0] = 0xaa
	b.BindingSig[0] = 0xbb
	return b
}

func TestMsgTxRoundTrip(t *testing.T) {
	tx := NewMsgTx(0xc8e71055, 2_500_040)
	tx.AddTxIn(&TxIn{
		PreviousOutPoint: OutPoint{Hash: [32]byte{0x01, 0x02}, Index: 1},
		SignatureScript:  []byte{0x51},
		Sequence:         0xfffffffe,
	})
	tx.AddTxOut(&TxOut{Value: 50_000, PkScript: []byte{0x76, 0xa9}})
	tx.Orchard = testBundle(2)

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))

	var got MsgTx
	require.NoError(t, got.Deserialize(&buf))

	require.Equal(t, tx.ConsensusBranchID, got.ConsensusBranchID)
	require.Equal(t, tx.ExpiryHeight, got.ExpiryHeight)
	require.Len(t, got.TxIn, 1)
	require.Equal(t, tx.TxIn[0].PreviousOutPoint, got.TxIn[0].PreviousOutPoint)
	require.Len(t, got.TxOut, 1)
	require.NotNil(t, got.Orchard)
	require.Len(t, got.Orchard.Actions, 2)
	require.Equal(t, tx.Orchard.ValueBalance, got.Orchard.ValueBalance)
	require.Equal(t, tx.Orchard.Anchor, got.Orchard.Anchor)

	// The round-tripped transaction hashes identically.
	require.Equal(t, tx.TxHash(), got.TxHash())
}

func TestMsgTxRejectsOddActions(t *testing.T) {
	tx := NewMsgTx(0xc8e71055, 100)
	tx.Orchard = testBundle(3)
	tx.Orchard.Proof = make([]byte, 3*ProofSizePerAction)

	var buf bytes.Buffer
	require.ErrorIs(t, tx.Serialize(&buf), ErrOddActionCount)
}

func TestTxHashBindsBranchID(t *testing.T) {
	tx1 := NewMsgTx(0xc2d6d0b4, 100)
	tx2 := NewMsgTx(0xc8e71055, 100)
	require.NotEqual(t, tx1.TxHash(), tx2.TxHash())
}

func TestShieldedOnlyTxSerializesEmptyTransparentBundle(t *testing.T) {
	tx := NewMsgTx(0xc8e71055, 100)
	tx.Orchard = testBundle(2)

	raw, err := tx.Bytes()
	require.NoError(t, err)

	// After the 20-byte header: vin count 0, vout count 0, then the
	// empty sapling bundle.
	require.Equal(t, byte(0x00), raw[20])
	require.Equal(t, byte(0x00), raw[21])
	require.Equal(t, byte(0x00), raw[22])
	require.Equal(t, byte(0x00), raw[23])
	// Orchard action count follows.
	require.Equal(t, byte(0x02), raw[24])
}
