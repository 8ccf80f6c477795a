// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transfer

import (
	"bytes"
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robustfengbin/zwallet/addresses"
	"github.com/robustfengbin/zwallet/chaincfg"
	"github.com/robustfengbin/zwallet/crypto/pallas"
	"github.com/robustfengbin/zwallet/orchard"
	"github.com/robustfengbin/zwallet/proving"
	"github.com/robustfengbin/zwallet/rpcclient"
	"github.com/robustfengbin/zwallet/scan"
	"github.com/robustfengbin/zwallet/walletdb"
	"github.com/robustfengbin/zwallet/wire"
)

// fakeChain mirrors the scan-package test double.
type fakeChain struct {
	tip    uint64
	blocks map[uint64]*orchard.CompactBlock
}

func (f *fakeChain) GetBlockCount(_ context.Context) (uint64, error) {
	return f.tip, nil
}

func (f *fakeChain) GetTreeState(_ context.Context, _ uint64) (*rpcclient.TreeState, error) {
	raw, _ := orchard.NewTreeTracker().Serialize()
	return &rpcclient.TreeState{FrontierBytes: raw}, nil
}

func (f *fakeChain) FetchBlocks(_ context.Context, from, to uint64) ([]*orchard.CompactBlock, error) {
	var out []*orchard.CompactBlock
	for h := from; h <= to; h++ {
		if b, ok := f.blocks[h]; ok {
			out = append(out, b)
		} else {
			out = append(out, &orchard.CompactBlock{Height: h})
		}
	}
	return out, nil
}

func derive(t *testing.T, fill byte) (*orchard.SpendingKey, *orchard.ViewingKey) {
	t.Helper()
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = fill
	}
	sk, vk, err := orchard.DeriveFromSeed(seed, 133, 0, 1_687_104)
	require.NoError(t, err)
	return sk, vk
}

func noteAction(t *testing.T, vk *orchard.ViewingKey, value uint64, salt byte) *orchard.CompactAction {
	t.Helper()
	recipient := vk.FVK.AddressAt(0, orchard.External)
	rho := pallas.NewElement(uint64(salt) + 11)
	var rseed [32]byte
	for i := range rseed {
		rseed[i] = salt
	}
	note := &orchard.Note{Recipient: recipient, Value: value, Rho: rho, Rseed: rseed}
	enc, _, epk, err := orchard.EncryptNote(note, nil)
	require.NoError(t, err)

	action := &orchard.CompactAction{
		Cmx:          note.Commitment().Bytes(),
		Nullifier:    rho.Bytes(),
		EphemeralKey: epk,
	}
	copy(action.Ciphertext[:], enc[:orchard.CompactNoteSize])
	return action
}

func unifiedFor(t *testing.T, vk *orchard.ViewingKey) string {
	t.Helper()
	raw := vk.FVK.AddressAt(0, orchard.External).Bytes()
	ua := addresses.NewUnifiedAddress(&chaincfg.MainNetParams)
	ua.Orchard = raw[:]
	encoded, err := ua.Encode()
	require.NoError(t, err)
	return encoded
}

// fundedService scans one block paying the wallet, leaving the tree at
// the block height and the chain tip where the test wants it.
func fundedService(t *testing.T, vk *orchard.ViewingKey, values []uint64, tip uint64) (*Service, *scan.Manager, *fakeChain) {
	t.Helper()

	store := walletdb.NewMemStore()
	t.Cleanup(func() { store.Close() })

	chain := &fakeChain{tip: tip, blocks: map[uint64]*orchard.CompactBlock{}}
	mgr := scan.NewManager(scan.Config{
		Store:  store,
		Chain:  chain,
		Params: &chaincfg.MainNetParams,
	})
	mgr.RegisterWallet(1, vk)

	tx := &orchard.CompactTransaction{Hash: "fund"}
	for i, v := range values {
		tx.Actions = append(tx.Actions, noteAction(t, vk, v, byte(0x40+i)))
	}
	block := &orchard.CompactBlock{
		Height:       1_687_105,
		Transactions: []*orchard.CompactTransaction{tx},
	}
	found, _, err := mgr.ProcessBlocks(context.Background(), []*orchard.CompactBlock{block}, nil)
	require.NoError(t, err)
	require.Len(t, found, len(values))

	prover := proving.NewLocalProver()
	require.NoError(t, prover.InitProvingKey())
	svc := NewService(&chaincfg.MainNetParams, mgr, proving.NewPool(prover, 2))
	return svc, mgr, chain
}

func TestFeeLaw(t *testing.T) {
	fc := NewFeeCalculator()

	// 2 actions at the grace count: base fee only.
	require.Equal(t, uint64(10_000), fc.FeeForActions(2))
	require.Equal(t, uint64(10_000), fc.FeeForActions(1))

	// 8 actions: 10_000 + 6*5_000.
	require.Equal(t, uint64(40_000), fc.FeeForActions(8))

	require.Equal(t, uint64(15_000), fc.FeeForActions(3))
	require.Equal(t, uint64(10_000), fc.MinFee())
}

func TestStatusTransitions(t *testing.T) {
	require.True(t, StatusProposal.CanTransition(StatusSigned))
	require.True(t, StatusSigned.CanTransition(StatusSubmitted))
	require.True(t, StatusSubmitted.CanTransition(StatusConfirmed))
	require.True(t, StatusSubmitted.CanTransition(StatusFailed))

	require.False(t, StatusProposal.CanTransition(StatusSubmitted))
	require.False(t, StatusSigned.CanTransition(StatusConfirmed))
	require.False(t, StatusConfirmed.CanTransition(StatusFailed))
	require.False(t, StatusFailed.CanTransition(StatusSigned))

	require.True(t, StatusConfirmed.IsTerminal())
	require.True(t, StatusFailed.IsTerminal())
	require.False(t, StatusSigned.IsTerminal())
}

func TestResolveFundSource(t *testing.T) {
	// Auto prefers shielded when it covers.
	src, shielding, err := resolveFundSource(FundAuto, 100, 500, 500)
	require.NoError(t, err)
	require.Equal(t, FundShielded, src)
	require.False(t, shielding)

	// Auto falls back to transparent.
	src, shielding, err = resolveFundSource(FundAuto, 100, 500, 50)
	require.NoError(t, err)
	require.Equal(t, FundTransparent, src)
	require.True(t, shielding)

	// Auto never mixes: combined funds that only jointly cover fail.
	_, _, err = resolveFundSource(FundAuto, 100, 60, 60)
	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, uint64(120), insufficient.Available)

	// Explicit sources enforce their own balance.
	_, _, err = resolveFundSource(FundShielded, 100, 1_000, 50)
	require.ErrorAs(t, err, &insufficient)

	src, shielding, err = resolveFundSource(FundTransparent, 100, 1_000, 0)
	require.NoError(t, err)
	require.Equal(t, FundTransparent, src)
	require.True(t, shielding)
}

func TestCreateProposal(t *testing.T) {
	_, vk := derive(t, 0x31)
	_, recipientVK := derive(t, 0x32)
	svc, _, _ := fundedService(t, vk, []uint64{500_000}, 1_687_200)

	req := &Request{
		WalletID:       1,
		ToAddress:      unifiedFor(t, recipientVK),
		AmountZatoshis: 150_000,
		Source:         FundShielded,
	}
	proposal, err := svc.CreateProposal(req, 0, 500_000, 1_687_200)
	require.NoError(t, err)
	require.Equal(t, uint64(150_000), proposal.AmountZatoshis)
	require.Equal(t, uint64(10_000), proposal.FeeZatoshis)
	require.False(t, proposal.IsShielding)
	require.Equal(t, uint64(1_687_240), proposal.ExpiryHeight)
	require.Equal(t, StatusProposal, proposal.Status)
	require.NotEmpty(t, proposal.ID)

	// Zero amounts and bad addresses are rejected.
	_, err = svc.CreateProposal(&Request{WalletID: 1, ToAddress: req.ToAddress}, 0, 1, 1)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateProposal(&Request{
		WalletID: 1, ToAddress: "u1garbage", AmountZatoshis: 1,
	}, 0, 500_000, 1)
	require.Error(t, err)
}

func TestAnchorStalenessRejection(t *testing.T) {
	_, vk := derive(t, 0x33)
	sk, _ := derive(t, 0x33)
	_, recipientVK := derive(t, 0x34)

	// Tree at H = 1_687_105, chain tip H+200.
	svc, mgr, _ := fundedService(t, vk, []uint64{500_000}, 1_687_305)

	proposal, err := svc.CreateProposal(&Request{
		WalletID:       1,
		ToAddress:      unifiedFor(t, recipientVK),
		AmountZatoshis: 100_000,
		Source:         FundShielded,
	}, 0, 500_000, 1_687_305)
	require.NoError(t, err)

	// Without the refresh the anchor is 200 blocks stale.
	_, err = svc.BuildSigned(context.Background(), proposal, sk, 1_687_305)
	require.ErrorIs(t, err, ErrAnchorStale)

	// After the refresh the build succeeds.
	updated, err := mgr.RefreshWitnessesForSpending(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, updated)

	result, err := svc.BuildSigned(context.Background(), proposal, sk, 1_687_305)
	require.NoError(t, err)
	require.Equal(t, StatusSigned, result.Status)
	require.NotEmpty(t, result.RawTxHex)
	require.NotEmpty(t, result.TxID)
}

func TestShieldedTransferEndToEnd(t *testing.T) {
	_, vk := derive(t, 0x35)
	sk, _ := derive(t, 0x35)
	_, recipientVK := derive(t, 0x36)

	svc, _, _ := fundedService(t, vk, []uint64{400_000}, 1_687_150)

	proposal, err := svc.CreateProposal(&Request{
		WalletID:       1,
		ToAddress:      unifiedFor(t, recipientVK),
		AmountZatoshis: 150_000,
		Memo:           []byte("lunch"),
		Source:         FundShielded,
	}, 0, 400_000, 1_687_150)
	require.NoError(t, err)

	result, err := svc.Transfer(context.Background(), proposal, sk, 1_687_150)
	require.NoError(t, err)
	require.Equal(t, uint64(150_000), result.AmountZatoshis)
	require.Equal(t, uint64(10_000), result.FeeZatoshis)

	// The transaction parses back and carries a two-action bundle with
	// zero value balance: the change output absorbs everything beyond
	// amount plus fee.
	raw := mustDecodeHex(t, result.RawTxHex)
	var tx wire.MsgTx
	require.NoError(t, deserialize(&tx, raw))
	require.NotNil(t, tx.Orchard)
	require.Len(t, tx.Orchard.Actions, 2)
	require.Equal(t, int64(0), tx.Orchard.ValueBalance)
	require.True(t, tx.Orchard.SpendsEnabled())
	require.True(t, tx.Orchard.OutputsEnabled())
	require.Empty(t, tx.TxIn)
	require.Empty(t, tx.TxOut)
	require.Equal(t, uint32(1_687_190), tx.ExpiryHeight)

	// The recipient finds the payment by trial decryption.
	var compact []*orchard.CompactAction
	for _, a := range tx.Orchard.Actions {
		compact = append(compact, &orchard.CompactAction{
			Cmx:          a.Cmx,
			Nullifier:    a.Nullifier,
			EphemeralKey: a.EphemeralKey,
			Ciphertext:   a.CompactCiphertext(),
		})
	}
	hits := orchard.TryCompactNoteDecryption(
		orchard.PrepareIVKs([]*orchard.ViewingKey{recipientVK}), compact)

	var payment *orchard.DecryptedNote
	for _, h := range hits {
		if h != nil {
			payment = h
		}
	}
	require.NotNil(t, payment)
	require.Equal(t, uint64(150_000), payment.Note.Value)
}

func TestSelectionPrefersLargestFirst(t *testing.T) {
	_, vk := derive(t, 0x37)
	sk, _ := derive(t, 0x37)
	_, recipientVK := derive(t, 0x38)

	// Three notes; the largest alone covers amount+fee, so exactly one
	// spend is selected.
	svc, _, _ := fundedService(t, vk, []uint64{50_000, 300_000, 80_000}, 1_687_150)

	proposal, err := svc.CreateProposal(&Request{
		WalletID:       1,
		ToAddress:      unifiedFor(t, recipientVK),
		AmountZatoshis: 200_000,
		Source:         FundShielded,
	}, 0, 430_000, 1_687_150)
	require.NoError(t, err)

	result, err := svc.Transfer(context.Background(), proposal, sk, 1_687_150)
	require.NoError(t, err)

	raw := mustDecodeHex(t, result.RawTxHex)
	var tx wire.MsgTx
	require.NoError(t, deserialize(&tx, raw))
	require.Len(t, tx.Orchard.Actions, 2)

	// One spend, one payment, one change: value balance zero.
	require.Equal(t, int64(0), tx.Orchard.ValueBalance)
}

func TestInsufficientBalanceSurfacesAmounts(t *testing.T) {
	_, vk := derive(t, 0x39)
	sk, _ := derive(t, 0x39)
	_, recipientVK := derive(t, 0x3a)

	svc, _, _ := fundedService(t, vk, []uint64{50_000}, 1_687_150)

	proposal := &Proposal{
		ID:             "p",
		WalletID:       1,
		ToAddress:      unifiedFor(t, recipientVK),
		AmountZatoshis: 100_000,
		ExpiryHeight:   1_687_190,
	}
	_, err := svc.Transfer(context.Background(), proposal, sk, 1_687_150)

	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, uint64(50_000), insufficient.Available)
	require.Equal(t, uint64(110_000), insufficient.Required)
}

func TestUnconfirmedNotesAreNotSpendable(t *testing.T) {
	_, vk := derive(t, 0x3b)
	sk, _ := derive(t, 0x3b)
	_, recipientVK := derive(t, 0x3c)

	// Tip only 5 blocks past the funding height: below the
	// confirmation floor.
	svc, _, _ := fundedService(t, vk, []uint64{500_000}, 1_687_110)

	proposal := &Proposal{
		ID:             "p",
		WalletID:       1,
		ToAddress:      unifiedFor(t, recipientVK),
		AmountZatoshis: 100_000,
		ExpiryHeight:   1_687_150,
	}
	_, err := svc.Transfer(context.Background(), proposal, sk, 1_687_110)
	require.ErrorIs(t, err, ErrNoSpendableNotes)
}

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	raw, err := hex.DecodeString(s)
	require.NoError(t, err)
	return raw
}

func deserialize(tx *wire.MsgTx, raw []byte) error {
	return tx.Deserialize(bytes.NewReader(raw))
}
