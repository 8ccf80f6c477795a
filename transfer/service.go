// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package transfer turns high-level transfer requests into signed,
// broadcast-ready ZIP-225 v5 transactions: fund-source resolution,
// ZIP-317 fees, anchor freshness, greedy note selection, bundle
// assembly, and the transfer lifecycle.
package transfer

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/robustfengbin/zwallet/addresses"
	"github.com/robustfengbin/zwallet/chaincfg"
	"github.com/robustfengbin/zwallet/orchard"
	"github.com/robustfengbin/zwallet/proving"
	"github.com/robustfengbin/zwallet/scan"
	"github.com/robustfengbin/zwallet/wire"
)

// DustThresholdZatoshis is the largest change value that gets no change
// note; change at or below it is left to the fee.
const DustThresholdZatoshis = uint64(5_000)

// FundSource selects where a transfer draws its value from.
type FundSource uint8

const (
	// FundAuto prefers shielded funds and falls back to transparent.
	// The two are never mixed in one transaction.
	FundAuto FundSource = iota

	// FundShielded spends Orchard notes only.
	FundShielded

	// FundTransparent spends UTXOs only; the transfer becomes a
	// shielding operation.
	FundTransparent
)

// Request is a high-level transfer request.
type Request struct {
	WalletID       int32
	ToAddress      string
	AmountZatoshis uint64
	Memo           []byte
	Source         FundSource
}

// Proposal is a validated request with its fee estimate and expiry.
type Proposal struct {
	ID             string
	WalletID       int32
	ToAddress      string
	AmountZatoshis uint64
	FeeZatoshis    uint64
	Source         FundSource
	IsShielding    bool
	Memo           []byte
	ExpiryHeight   uint64
	Status         Status
}

// Result is a built transfer ready for broadcast.
type Result struct {
	TxID           string
	RawTxHex       string
	AmountZatoshis uint64
	FeeZatoshis    uint64
	Status         Status
}

// Service builds shielded transfers against the sync manager's tree
// state.
type Service struct {
	params *chaincfg.Params
	mgr    *scan.Manager
	pool   *proving.Pool
	fees   *FeeCalculator
}

// NewService wires a transfer service.
func NewService(params *chaincfg.Params, mgr *scan.Manager, pool *proving.Pool) *Service {
	return &Service{
		params: params,
		mgr:    mgr,
		pool:   pool,
		fees:   NewFeeCalculator(),
	}
}

// CreateProposal validates the request against the given balances and
// produces a proposal with a minimum-fee estimate. The final fee is
// recomputed during build after action padding.
func (s *Service) CreateProposal(req *Request, transparentBalance, shieldedSpendable, currentHeight uint64) (*Proposal, error) {
	if req.AmountZatoshis == 0 {
		return nil, ErrInvalidAmount
	}
	if len(req.Memo) > orchard.MemoSize {
		return nil, ErrMemoTooLong
	}
	if _, err := addresses.DecodeUnified(req.ToAddress, s.params); err != nil {
		// Transparent recipients are allowed for deshielding flows.
		if _, terr := addresses.DecodeTransparent(req.ToAddress, s.params); terr != nil {
			return nil, err
		}
	}

	minFee := s.fees.MinFee()
	required := req.AmountZatoshis + minFee

	source, shielding, err := resolveFundSource(req.Source, required, transparentBalance, shieldedSpendable)
	if err != nil {
		return nil, err
	}

	return &Proposal{
		ID:             uuid.NewString(),
		WalletID:       req.WalletID,
		ToAddress:      req.ToAddress,
		AmountZatoshis: req.AmountZatoshis,
		FeeZatoshis:    minFee,
		Source:         source,
		IsShielding:    shielding,
		Memo:           req.Memo,
		ExpiryHeight:   currentHeight + chaincfg.ExpiryDelta,
		Status:         StatusProposal,
	}, nil
}

// resolveFundSource applies the Auto preference rules: shielded when it
// covers, else transparent; never both on the same transaction.
func resolveFundSource(requested FundSource, required, transparent, shielded uint64) (FundSource, bool, error) {
	switch requested {
	case FundShielded:
		if shielded < required {
			return 0, false, &InsufficientBalanceError{Available: shielded, Required: required}
		}
		return FundShielded, false, nil
	case FundTransparent:
		if transparent < required {
			return 0, false, &InsufficientBalanceError{Available: transparent, Required: required}
		}
		return FundTransparent, true, nil
	default:
		if shielded >= required {
			return FundShielded, false, nil
		}
		if transparent >= required {
			return FundTransparent, true, nil
		}
		return 0, false, &InsufficientBalanceError{
			Available: shielded + transparent,
			Required:  required,
		}
	}
}

// Transfer executes the full shielded spend path: refresh witnesses,
// check anchor freshness, build, prove, sign. The result carries the
// signed raw transaction; broadcast is the caller's next step.
func (s *Service) Transfer(ctx context.Context, proposal *Proposal, sk *orchard.SpendingKey, chainTip uint64) (*Result, error) {
	if _, err := s.mgr.RefreshWitnessesForSpending(ctx, proposal.WalletID); err != nil {
		return nil, err
	}
	return s.BuildSigned(ctx, proposal, sk, chainTip)
}

// BuildSigned builds and signs the shielded transaction using the
// current anchor, without refreshing first. It fails with
// ErrAnchorStale when the tree trails the tip by more than the anchor
// age limit; callers then refresh and retry.
func (s *Service) BuildSigned(ctx context.Context, proposal *Proposal, sk *orchard.SpendingKey, chainTip uint64) (*Result, error) {
	age, err := s.mgr.AnchorAge(ctx)
	if err != nil {
		return nil, err
	}
	if age > chaincfg.MaxAnchorAgeBlocks {
		log.Warnf("Anchor is %d blocks old (limit %d)", age, chaincfg.MaxAnchorAgeBlocks)
		return nil, ErrAnchorStale
	}

	recipient, err := s.resolveRecipient(proposal.ToAddress)
	if err != nil {
		return nil, err
	}

	vk, err := s.mgr.ViewingKeyFor(proposal.WalletID)
	if err != nil {
		return nil, err
	}

	spendable, err := s.mgr.GetSpendableNotesWithWitnesses(ctx, proposal.WalletID)
	if err != nil {
		return nil, err
	}

	selected, fee, change, err := s.selectNotes(spendable, proposal.AmountZatoshis, chainTip)
	if err != nil {
		return nil, err
	}
	proposal.FeeZatoshis = fee

	anchor := s.mgr.Anchor()
	builder := orchard.NewBundleBuilder(vk.FVK, sk, anchor,
		wire.OrchardFlagSpendsEnabled|wire.OrchardFlagOutputsEnabled)

	var totalIn uint64
	for _, note := range selected {
		if note.Witness == nil {
			return nil, ErrWitnessNotFound
		}
		totalIn += note.ValueZatoshis
		if err := builder.AddSpend(&orchard.BundleSpend{Note: note, Witness: note.Witness}); err != nil {
			return nil, err
		}
	}

	builder.AddOutput(&orchard.BundleOutput{
		Recipient: recipient,
		Value:     proposal.AmountZatoshis,
		Memo:      padMemo(proposal.Memo),
	})
	if change > DustThresholdZatoshis {
		builder.AddOutput(&orchard.BundleOutput{
			Recipient: vk.FVK.ChangeAddress(),
			Value:     change,
		})
	} else {
		change = 0
	}

	// inputs - outputs - fee: zero for a fully-changed shielded
	// transfer, the sub-dust residual otherwise.
	builder.SetValueBalance(int64(totalIn) - int64(proposal.AmountZatoshis+change) - int64(fee))

	bundle, err := builder.Build(ctx, s.pool)
	if err != nil {
		return nil, err
	}

	tx := wire.NewMsgTx(s.params.ConsensusBranchID(uint32(chainTip)), uint32(proposal.ExpiryHeight))
	tx.Orchard = bundle

	raw, err := tx.Bytes()
	if err != nil {
		return nil, err
	}

	proposal.Status = StatusSigned
	log.Infof("Built transfer %s: %d zatoshis, fee %d, %d actions",
		proposal.ID, proposal.AmountZatoshis, fee, len(bundle.Actions))

	return &Result{
		TxID:           tx.TxHashString(),
		RawTxHex:       hexEncode(raw),
		AmountZatoshis: proposal.AmountZatoshis,
		FeeZatoshis:    fee,
		Status:         StatusSigned,
	}, nil
}

// resolveRecipient extracts the Orchard receiver from a unified
// address.
func (s *Service) resolveRecipient(encoded string) (*orchard.Address, error) {
	ua, err := addresses.DecodeUnified(encoded, s.params)
	if err != nil {
		return nil, err
	}
	if !ua.HasOrchard() {
		return nil, addresses.ErrNoKnownReceivers
	}
	return orchard.AddressFromBytes(ua.Orchard)
}

// selectNotes picks spends greedily, largest first, over notes with
// enough confirmations, recomputing the ZIP-317 fee as the action
// count grows until the selection covers amount plus fee.
func (s *Service) selectNotes(notes []*orchard.OrchardNote, amount, chainTip uint64) ([]*orchard.OrchardNote, uint64, uint64, error) {
	var eligible []*orchard.OrchardNote
	for _, n := range notes {
		if n.BlockHeight+chaincfg.MinConfirmations <= chainTip {
			eligible = append(eligible, n)
		}
	}
	if len(eligible) == 0 {
		return nil, 0, 0, ErrNoSpendableNotes
	}

	// Deterministic order: value desc, then height asc, then position
	// asc.
	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.ValueZatoshis != b.ValueZatoshis {
			return a.ValueZatoshis > b.ValueZatoshis
		}
		if a.BlockHeight != b.BlockHeight {
			return a.BlockHeight < b.BlockHeight
		}
		return a.Position < b.Position
	})

	var selected []*orchard.OrchardNote
	var total uint64
	for _, n := range eligible {
		selected = append(selected, n)
		total += n.ValueZatoshis

		fee := s.feeForSelection(len(selected), amount, total)
		if total >= amount+fee {
			change := total - amount - fee
			return selected, fee, change, nil
		}
	}

	fee := s.feeForSelection(len(selected), amount, total)
	return nil, 0, 0, &InsufficientBalanceError{Available: total, Required: amount + fee}
}

// feeForSelection computes the padded-action fee for a candidate
// selection: spends vs payment+optional change, rounded up to even.
func (s *Service) feeForSelection(numSpends int, amount, total uint64) uint64 {
	numOutputs := 1
	if total > amount {
		// Assume a change output while the exact fee is unsettled; a
		// sub-dust residual only ever lowers the count.
		numOutputs = 2
	}
	actions := numSpends
	if numOutputs > actions {
		actions = numOutputs
	}
	if actions < 2 {
		actions = 2
	}
	if actions%2 == 1 {
		actions++
	}
	return s.fees.FeeForActions(actions)
}

// padMemo right-pads a memo to the fixed field size. Empty memos stay
// empty.
func padMemo(memo []byte) []byte {
	if len(memo) == 0 {
		return nil
	}
	out := make([]byte, orchard.MemoSize)
	copy(out, memo)
	return out
}

// BuildShielding builds the Orchard side of a t-to-z transfer: an
// output-only bundle attached to a transparent-funded transaction.
// The transparent inputs are added and signed by the caller through
// TransparentBuilder before broadcast.
func (s *Service) BuildShielding(ctx context.Context, proposal *Proposal, vk *orchard.ViewingKey, tb *TransparentBuilder) (*Result, error) {
	if len(tb.Tx().TxIn) == 0 {
		return nil, ErrNoTransparentInputs
	}

	recipient, err := s.resolveRecipient(proposal.ToAddress)
	if err != nil {
		return nil, err
	}

	builder := orchard.NewBundleBuilder(vk.FVK, nil, s.mgr.Anchor(), wire.OrchardFlagOutputsEnabled)
	builder.AddOutput(&orchard.BundleOutput{
		Recipient: recipient,
		Value:     proposal.AmountZatoshis,
		Memo:      padMemo(proposal.Memo),
	})

	// Value enters the shielded pool.
	builder.SetValueBalance(-int64(proposal.AmountZatoshis))

	bundle, err := builder.Build(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	tb.Tx().Orchard = bundle

	raw, err := tb.Tx().Bytes()
	if err != nil {
		return nil, err
	}

	proposal.Status = StatusSigned
	return &Result{
		TxID:           tb.Tx().TxHashString(),
		RawTxHex:       hexEncode(raw),
		AmountZatoshis: proposal.AmountZatoshis,
		FeeZatoshis:    proposal.FeeZatoshis,
		Status:         StatusSigned,
	}, nil
}
