// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	// EncCiphertextSize is the size of a full note ciphertext.
	EncCiphertextSize = 580

	// OutCiphertextSize is the size of the outgoing viewing ciphertext.
	OutCiphertextSize = 80

	// CompactCiphertextSize is the compact prefix of EncCiphertext that
	// trial decryption consumes.
	CompactCiphertextSize = 52

	// ProofSizePerAction is the size of one Halo 2 action proof.
	ProofSizePerAction = 2720

	// BindingSigSize is the size of the bundle binding signature.
	BindingSigSize = 64

	// OrchardFlagSpendsEnabled marks bundles whose actions may consume
	// existing notes.
	OrchardFlagSpendsEnabled byte = 1 << 0

	// OrchardFlagOutputsEnabled marks bundles whose actions may create
	// notes. Shielding bundles set only this flag.
	OrchardFlagOutputsEnabled byte = 1 << 1

	// maxOrchardActions bounds action allocations during
	// deserialization.
	maxOrchardActions = 1_000
)

var (
	// ErrOddActionCount is returned when a bundle does not carry an
	// even number of actions.
	ErrOddActionCount = errors.New("orchard bundle has an odd action count")

	// ErrBadProofLength is returned when the proof field is not a
	// whole number of per-action proofs.
	ErrBadProofLength = errors.New("orchard proof length is not a multiple of the action proof size")
)

// OrchardAction is one spend+output unit on the wire.
type OrchardAction struct {
	Cmx           [32]byte
	Nullifier     [32]byte
	Rk            [32]byte
	Cv            [32]byte
	EncCiphertext [EncCiphertextSize]byte
	EphemeralKey  [32]byte
	OutCiphertext [OutCiphertextSize]byte
}

// CompactCiphertext returns the 52-byte prefix used by trial
// decryption.
func (a *OrchardAction) CompactCiphertext() [CompactCiphertextSize]byte {
	var out [CompactCiphertextSize]byte
	copy(out[:], a.EncCiphertext[:CompactCiphertextSize])
	return out
}

// OrchardBundle is the shielded part of a v5 transaction.
type OrchardBundle struct {
	Actions      []*OrchardAction
	Flags        byte
	ValueBalance int64
	Anchor       [32]byte
	Proof        []byte
	BindingSig   [BindingSigSize]byte
}

// SpendsEnabled reports whether the spends flag is set.
func (b *OrchardBundle) SpendsEnabled() bool {
	return b.Flags&OrchardFlagSpendsEnabled != 0
}

// OutputsEnabled reports whether the outputs flag is set.
func (b *OrchardBundle) OutputsEnabled() bool {
	return b.Flags&OrchardFlagOutputsEnabled != 0
}

// Serialize writes the bundle: action count, actions, flags, value
// balance, anchor, length-prefixed proof, binding signature.
func (b *OrchardBundle) Serialize(w io.Writer) error {
	if len(b.Actions)%2 != 0 {
		return ErrOddActionCount
	}
	if err := WriteCompactSize(w, uint64(len(b.Actions))); err != nil {
		return err
	}
	for _, a := range b.Actions {
		if err := writeAction(w, a); err != nil {
			return err
		}
	}
	if _, err := w.Write([]byte{b.Flags}); err != nil {
		return err
	}
	if err := writeInt64(w, b.ValueBalance); err != nil {
		return err
	}
	if _, err := w.Write(b.Anchor[:]); err != nil {
		return err
	}
	if err := writeVarBytes(w, b.Proof); err != nil {
		return err
	}
	_, err := w.Write(b.BindingSig[:])
	return err
}

// Digest hashes the bundle content for the ZIP-244 tree. Every action
// field, the flags, value balance, and anchor are committed; the proof
// and binding signature are authorizing data and stay outside the
// effects digest.
func (b *OrchardBundle) Digest() [32]byte {
	var buf bytes.Buffer
	for _, a := range b.Actions {
		buf.Write(a.Cmx[:])
		buf.Write(a.Nullifier[:])
		buf.Write(a.Rk[:])
		buf.Write(a.Cv[:])
		buf.Write(a.EncCiphertext[:])
		buf.Write(a.EphemeralKey[:])
		buf.Write(a.OutCiphertext[:])
	}
	buf.WriteByte(b.Flags)
	writeInt64(&buf, b.ValueBalance)
	buf.Write(b.Anchor[:])
	return Blake2b256(PersonalOrchard, buf.Bytes())
}

func writeAction(w io.Writer, a *OrchardAction) error {
	for _, field := range [][]byte{
		a.Cmx[:], a.Nullifier[:], a.Rk[:], a.Cv[:],
		a.EncCiphertext[:], a.EphemeralKey[:], a.OutCiphertext[:],
	} {
		if _, err := w.Write(field); err != nil {
			return err
		}
	}
	return nil
}

// readOrchardBundle parses the Orchard part of a v5 transaction. A zero
// action count yields a nil bundle.
func readOrchardBundle(r io.Reader) (*OrchardBundle, error) {
	numActions, err := ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	if numActions == 0 {
		return nil, nil
	}
	if numActions > maxOrchardActions {
		return nil, fmt.Errorf("too many orchard actions: %d", numActions)
	}
	if numActions%2 != 0 {
		return nil, ErrOddActionCount
	}

	b := &OrchardBundle{Actions: make([]*OrchardAction, 0, numActions)}
	for i := uint64(0); i < numActions; i++ {
		a := &OrchardAction{}
		for _, field := range [][]byte{
			a.Cmx[:], a.Nullifier[:], a.Rk[:], a.Cv[:],
			a.EncCiphertext[:], a.EphemeralKey[:], a.OutCiphertext[:],
		} {
			if _, err := io.ReadFull(r, field); err != nil {
				return nil, err
			}
		}
		b.Actions = append(b.Actions, a)
	}

	var flags [1]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return nil, err
	}
	b.Flags = flags[0]

	if b.ValueBalance, err = readInt64(r); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, b.Anchor[:]); err != nil {
		return nil, err
	}
	if b.Proof, err = readVarBytes(r, uint64(maxOrchardActions)*ProofSizePerAction, "orchard proof"); err != nil {
		return nil, err
	}
	if len(b.Proof)%ProofSizePerAction != 0 {
		return nil, ErrBadProofLength
	}
	if _, err := io.ReadFull(r, b.BindingSig[:]); err != nil {
		return nil, err
	}
	return b, nil
}
