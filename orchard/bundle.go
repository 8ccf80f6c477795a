// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orchard

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/robustfengbin/zwallet/crypto/pallas"
	"github.com/robustfengbin/zwallet/proving"
	"github.com/robustfengbin/zwallet/wire"
)

// Fixed generators for value commitments, derived by hash-to-curve so
// their discrete logs relative to the group generator are unknown.
var (
	valueCommitV = derivedGenerator("zwallet_orchard_cv_value")
	valueCommitR = derivedGenerator("zwallet_orchard_cv_rand")
)

func derivedGenerator(label string) *pallas.Point {
	digest := func(data []byte) [64]byte {
		var out [64]byte
		copy(out[:], prfPersonal(personGd, 64, data))
		return out
	}
	return pallas.HashToPoint(digest, []byte(label))
}

// BundleSpend is one note being consumed, with its current witness.
type BundleSpend struct {
	Note    *OrchardNote
	Witness *WitnessData
}

// BundleOutput is one note being created.
type BundleOutput struct {
	Recipient *Address
	Value     uint64
	Memo      []byte
}

// BundleBuilder assembles an Orchard bundle: pairing spends and
// outputs into actions, padding to an even count, encrypting outputs,
// committing values, proving, and binding.
type BundleBuilder struct {
	fvk    *FullViewingKey
	sk     *SpendingKey
	anchor [32]byte
	flags  byte
	rng    io.Reader

	spends  []*BundleSpend
	outputs []*BundleOutput

	valueBalance    int64
	hasValueBalance bool
}

// NewBundleBuilder starts a bundle against the given anchor. The
// spending key may be nil for output-only (shielding) bundles.
func NewBundleBuilder(fvk *FullViewingKey, sk *SpendingKey, anchor [32]byte, flags byte) *BundleBuilder {
	return &BundleBuilder{
		fvk:    fvk,
		sk:     sk,
		anchor: anchor,
		flags:  flags,
		rng:    rand.Reader,
	}
}

// SetRand replaces the randomness source. Tests use this for
// deterministic bundles.
func (b *BundleBuilder) SetRand(rng io.Reader) {
	b.rng = rng
}

// AddSpend queues a note for spending. The witness root must equal the
// bundle anchor.
func (b *BundleBuilder) AddSpend(spend *BundleSpend) error {
	if spend.Witness == nil {
		return ErrInvalidWitness
	}
	if spend.Witness.Root != b.anchor {
		return fmt.Errorf("%w: witness root does not match anchor", ErrInvalidWitness)
	}
	b.spends = append(b.spends, spend)
	return nil
}

// AddOutput queues a new note.
func (b *BundleBuilder) AddOutput(out *BundleOutput) {
	b.outputs = append(b.outputs, out)
}

// SetValueBalance overrides the bundle's value balance. Without an
// override the balance is the sum of per-action net values. The
// binding signature covers whichever value ends up in the bundle.
func (b *BundleBuilder) SetValueBalance(v int64) {
	b.valueBalance = v
	b.hasValueBalance = true
}

// NumActions returns the action count after pairing and padding.
func (b *BundleBuilder) NumActions() int {
	n := len(b.spends)
	if len(b.outputs) > n {
		n = len(b.outputs)
	}
	if n < 2 {
		n = 2
	}
	if n%2 == 1 {
		n++
	}
	return n
}

// actionPlan pairs one optional spend with one optional output.
type actionPlan struct {
	spend  *BundleSpend
	output *BundleOutput
}

// Build produces the wire bundle. Proofs run on the given pool and may
// take seconds per action.
func (b *BundleBuilder) Build(ctx context.Context, pool *proving.Pool) (*wire.OrchardBundle, error) {
	numActions := b.NumActions()

	plans := make([]*actionPlan, numActions)
	for i := 0; i < numActions; i++ {
		plan := &actionPlan{}
		if i < len(b.spends) {
			plan.spend = b.spends[i]
		}
		if i < len(b.outputs) {
			plan.output = b.outputs[i]
		}
		plans[i] = plan
	}

	bundle := &wire.OrchardBundle{
		Flags:  b.flags,
		Anchor: b.anchor,
	}

	var valueBalance int64
	bsk := pallas.NewScalar(0)
	var circuitInputs []*proving.ActionCircuitInputs

	for _, plan := range plans {
		action, rcv, net, inputs, err := b.buildAction(plan)
		if err != nil {
			return nil, err
		}
		bundle.Actions = append(bundle.Actions, action)
		valueBalance += net
		bsk = bsk.Add(rcv)
		circuitInputs = append(circuitInputs, inputs)
	}
	if b.hasValueBalance {
		bundle.ValueBalance = b.valueBalance
	} else {
		bundle.ValueBalance = valueBalance
	}

	proofs, err := pool.ProveAll(ctx, circuitInputs)
	if err != nil {
		return nil, fmt.Errorf("proof generation failed: %w", err)
	}
	bundle.Proof = proofs

	bundle.BindingSig = bindingSignature(bsk, bundle)
	return bundle, nil
}

// buildAction realizes one action: the new note, its encryption, the
// value commitment, and the randomized verification key.
func (b *BundleBuilder) buildAction(plan *actionPlan) (*wire.OrchardAction, *pallas.Scalar, int64, *proving.ActionCircuitInputs, error) {
	action := &wire.OrchardAction{}
	inputs := &proving.ActionCircuitInputs{Anchor: b.anchor}

	// Spend side: the revealed nullifier. Dummy spends reveal a random
	// nullifier for a note that never existed.
	var spendValue uint64
	if plan.spend != nil {
		action.Nullifier = plan.spend.Note.Nullifier
		spendValue = plan.spend.Note.ValueZatoshis
		inputs.Position = plan.spend.Witness.Position
		inputs.AuthPath = make([][32]byte, TreeDepth)
		copy(inputs.AuthPath, plan.spend.Witness.AuthPath[:])
	} else {
		rho, err := b.randomBase()
		if err != nil {
			return nil, nil, 0, nil, err
		}
		action.Nullifier = rho.Bytes()
	}

	// Output side: encrypt the new note. Dummy outputs carry zero value
	// to a throwaway address.
	rho, err := pallas.FromBytes(action.Nullifier[:])
	if err != nil {
		return nil, nil, 0, nil, fmt.Errorf("%w: action nullifier", ErrInvalidCommitment)
	}

	var outValue uint64
	var recipient *Address
	var memo []byte
	if plan.output != nil {
		outValue = plan.output.Value
		recipient = plan.output.Recipient
		memo = plan.output.Memo
	} else {
		addr, err := b.randomAddress()
		if err != nil {
			return nil, nil, 0, nil, err
		}
		recipient = addr
	}

	var rseed [32]byte
	if _, err := io.ReadFull(b.rng, rseed[:]); err != nil {
		return nil, nil, 0, nil, err
	}

	newNote := &Note{Recipient: recipient, Value: outValue, Rho: rho, Rseed: rseed}
	enc, out, epk, err := EncryptNote(newNote, memo)
	if err != nil {
		return nil, nil, 0, nil, err
	}
	action.Cmx = newNote.Commitment().Bytes()
	action.EncCiphertext = enc
	action.OutCiphertext = out
	action.EphemeralKey = epk

	// Value commitment over the action's net value.
	net := int64(spendValue) - int64(outValue)
	rcv, err := b.randomScalar()
	if err != nil {
		return nil, nil, 0, nil, err
	}
	action.Cv = valueCommitment(net, rcv)

	// Randomized verification key. Output-only bundles have no spend
	// authority; their rk is a fresh random point.
	rk, err := b.randomizedVerificationKey()
	if err != nil {
		return nil, nil, 0, nil, err
	}
	action.Rk = rk

	inputs.SpendNullifier = action.Nullifier
	inputs.Cmx = action.Cmx
	inputs.Rk = action.Rk
	inputs.Cv = action.Cv
	inputs.SpendValue = spendValue
	inputs.OutputValue = outValue

	return action, rcv, net, inputs, nil
}

// valueCommitment computes cv = [net]V + [rcv]R with the sign of net
// folded into the scalar.
func valueCommitment(net int64, rcv *pallas.Scalar) [32]byte {
	var vScalar *pallas.Scalar
	if net >= 0 {
		vScalar = pallas.NewScalar(uint64(net))
	} else {
		vScalar = pallas.NewScalar(uint64(-net)).Neg()
	}
	cv := valueCommitV.ScalarMult(vScalar).Add(valueCommitR.ScalarMult(rcv))
	return cv.Bytes()
}

// bindingSignature signs the bundle effects with the binding key
// aggregated from the per-action commitment randomness.
func bindingSignature(bsk *pallas.Scalar, bundle *wire.OrchardBundle) [wire.BindingSigSize]byte {
	digest := bundle.Digest()

	// Deterministic nonce bound to the key and message.
	bskBytes := bsk.Bytes()
	nonceData := make([]byte, 0, 64)
	nonceData = append(nonceData, bskBytes[:]...)
	nonceData = append(nonceData, digest[:]...)
	r := expandToScalar(nonceData, personExpand)

	rPoint := pallas.ScalarBaseMult(r)
	rBytes := rPoint.Bytes()

	// Challenge over the nonce point and message.
	challengeData := make([]byte, 0, 64)
	challengeData = append(challengeData, rBytes[:]...)
	challengeData = append(challengeData, digest[:]...)
	c := expandToScalar(challengeData, personExpand)

	s := r.Add(c.Mul(bsk))
	sBytes := s.Bytes()

	var sig [wire.BindingSigSize]byte
	copy(sig[:32], rBytes[:])
	copy(sig[32:], sBytes[:])
	return sig
}

func (b *BundleBuilder) randomScalar() (*pallas.Scalar, error) {
	var wide [64]byte
	if _, err := io.ReadFull(b.rng, wide[:]); err != nil {
		return nil, err
	}
	return pallas.ScalarFromBytesWide(wide), nil
}

func (b *BundleBuilder) randomBase() (*pallas.Element, error) {
	var wide [64]byte
	if _, err := io.ReadFull(b.rng, wide[:]); err != nil {
		return nil, err
	}
	return pallas.FromBytesWide(wide), nil
}

// randomizedVerificationKey blinds ak with a fresh scalar, or returns a
// random point when no spend authority is present.
func (b *BundleBuilder) randomizedVerificationKey() ([32]byte, error) {
	alpha, err := b.randomScalar()
	if err != nil {
		return [32]byte{}, err
	}
	blind := pallas.ScalarBaseMult(alpha)
	if b.sk == nil {
		return blind.Bytes(), nil
	}
	ask := b.sk.SpendAuthorizingKey()
	rk := pallas.ScalarBaseMult(ask).Add(blind)
	return rk.Bytes(), nil
}

// randomAddress produces a throwaway recipient for dummy outputs.
func (b *BundleBuilder) randomAddress() (*Address, error) {
	var d [DiversifierSize]byte
	if _, err := io.ReadFull(b.rng, d[:]); err != nil {
		return nil, err
	}
	gd := DiversifierBase(d)
	s, err := b.randomScalar()
	if err != nil {
		return nil, err
	}
	return &Address{d: d, pkd: gd.ScalarMult(s)}, nil
}
