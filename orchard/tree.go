// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orchard

import (
	"github.com/robustfengbin/zwallet/crypto/pallas"
)

// maxTreeLeaves is the leaf capacity of the depth-32 tree.
const maxTreeLeaves = uint64(1) << TreeDepth

// TreeTracker owns the global Orchard commitment tree and the
// incremental witnesses for the wallet's marked leaves. It is the sole
// mutator of both; callers serialize access externally (the sync
// manager holds it behind its writer lock).
type TreeTracker struct {
	tree      *frontier
	witnesses map[uint64]*IncrementalWitness

	position    uint64
	blockHeight uint64
}

// NewTreeTracker returns an empty tracker.
func NewTreeTracker() *TreeTracker {
	return &TreeTracker{
		tree:      newFrontier(),
		witnesses: make(map[uint64]*IncrementalWitness),
	}
}

// Position returns the number of commitments appended so far, which is
// also the position the next append will receive.
func (t *TreeTracker) Position() uint64 {
	return t.position
}

// BlockHeight returns the height of the last block applied to the
// tree.
func (t *TreeTracker) BlockHeight() uint64 {
	return t.blockHeight
}

// SetBlockHeight records the last applied block height.
func (t *TreeTracker) SetBlockHeight(height uint64) {
	t.blockHeight = height
}

// WitnessCount returns the number of tracked witnesses.
func (t *TreeTracker) WitnessCount() int {
	return len(t.witnesses)
}

// parseCommitment decodes cmx bytes, rejecting anything that is not a
// canonical Pallas base-field element. Invalid bytes are a hard error
// for the action; the tree state is untouched.
func parseCommitment(cmx [32]byte) (*pallas.Element, error) {
	leaf, err := pallas.FromBytes(cmx[:])
	if err != nil {
		return nil, &InvalidCommitmentError{Bytes: cmx}
	}
	return leaf, nil
}

// Append adds one commitment to the tree and extends every tracked
// witness with the same leaf. Returns the position assigned to the
// commitment.
func (t *TreeTracker) Append(cmx [32]byte) (uint64, error) {
	leaf, err := parseCommitment(cmx)
	if err != nil {
		return 0, err
	}
	return t.appendLeaf(leaf)
}

// AppendAndMark adds one commitment and snapshots the tree into a
// fresh witness for the new position. This is the only way a position
// becomes spendable.
func (t *TreeTracker) AppendAndMark(cmx [32]byte) (uint64, error) {
	leaf, err := parseCommitment(cmx)
	if err != nil {
		return 0, err
	}
	pos, err := t.appendLeaf(leaf)
	if err != nil {
		return 0, err
	}
	t.witnesses[pos] = witnessFromFrontier(t.tree)
	return pos, nil
}

// appendLeaf extends the witnesses first, then the tree: a freshly
// marked witness must not absorb its own leaf, and existing witnesses
// must see every later leaf exactly once.
func (t *TreeTracker) appendLeaf(leaf *pallas.Element) (uint64, error) {
	if t.position >= maxTreeLeaves {
		return 0, ErrTreeFull
	}

	for _, w := range t.witnesses {
		if err := w.Append(leaf); err != nil {
			return 0, err
		}
	}

	if !t.tree.append(TreeDepth, leaf) {
		return 0, ErrTreeFull
	}

	pos := t.position
	t.position++
	return pos, nil
}

// MarkPosition exists to make the marking contract explicit: a witness
// for an already-appended position cannot be created without the tree
// state at that time, so the request always fails.
func (t *TreeTracker) MarkPosition(position uint64) error {
	return ErrCannotMarkPastPosition
}

// Root returns the current anchor. The empty tree yields the canonical
// empty root.
func (t *TreeTracker) Root() [32]byte {
	if t.position == 0 {
		return EmptyRoot()
	}
	return t.tree.root(TreeDepth).Bytes()
}

// Witness returns the authentication path for a marked position, or
// nil when the position was never marked.
func (t *TreeTracker) Witness(position uint64) *WitnessData {
	w, ok := t.witnesses[position]
	if !ok {
		return nil
	}
	return w.Path()
}

// WitnessFor returns the live incremental witness for a position. The
// sync manager uses this to persist witness state.
func (t *TreeTracker) WitnessFor(position uint64) *IncrementalWitness {
	return t.witnesses[position]
}

// AttachWitness re-installs a witness restored from persistence.
func (t *TreeTracker) AttachWitness(position uint64, w *IncrementalWitness) {
	t.witnesses[position] = w
}

// RemoveWitness drops the witness for a spent note.
func (t *TreeTracker) RemoveWitness(position uint64) bool {
	if _, ok := t.witnesses[position]; !ok {
		return false
	}
	delete(t.witnesses, position)
	return true
}

// MarkedPositions returns the positions with live witnesses.
func (t *TreeTracker) MarkedPositions() []uint64 {
	out := make([]uint64, 0, len(t.witnesses))
	for pos := range t.witnesses {
		out = append(out, pos)
	}
	return out
}

// ResetFromFrontier replaces the tree with a frontier obtained from
// z_gettreestate, clearing all witnesses. The stored position counts
// every commitment since genesis.
func (t *TreeTracker) ResetFromFrontier(frontierBytes []byte, position, blockHeight uint64) error {
	f, err := frontierFromBytes(frontierBytes)
	if err != nil {
		return err
	}
	t.tree = f
	t.witnesses = make(map[uint64]*IncrementalWitness)
	t.position = position
	t.blockHeight = blockHeight
	return nil
}

// Serialize renders the frontier for persistence.
func (t *TreeTracker) Serialize() ([]byte, error) {
	return frontierToBytes(t.tree)
}

// TreeFromFrontier builds a tracker from serialized frontier bytes,
// the matching position, and block height. Round-trips with Serialize.
func TreeFromFrontier(frontierBytes []byte, position, blockHeight uint64) (*TreeTracker, error) {
	t := NewTreeTracker()
	if err := t.ResetFromFrontier(frontierBytes, position, blockHeight); err != nil {
		return nil, err
	}
	return t, nil
}
