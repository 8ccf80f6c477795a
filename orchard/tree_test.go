// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orchard

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/robustfengbin/zwallet/crypto/pallas"
)

// smallCmx returns a valid commitment encoding the small field element
// v.
func smallCmx(v byte) [32]byte {
	var cmx [32]byte
	cmx[0] = v
	return cmx
}

func TestEmptyTreeRoot(t *testing.T) {
	tracker := NewTreeTracker()

	require.Equal(t, uint64(0), tracker.Position())
	require.Equal(t, EmptyRoot(), tracker.Root())

	// The canonical empty root is itself stable.
	require.Equal(t, EmptyRoot(), EmptyRoot())
}

func TestAppendAssignsDensePositions(t *testing.T) {
	tracker := NewTreeTracker()

	for i := 0; i < 10; i++ {
		pos, err := tracker.Append(smallCmx(byte(i + 1)))
		require.NoError(t, err)
		require.Equal(t, uint64(i), pos)
	}
	require.Equal(t, uint64(10), tracker.Position())
}

func TestAppendRejectsInvalidCommitment(t *testing.T) {
	tracker := NewTreeTracker()

	var bad [32]byte
	for i := range bad {
		bad[i] = 0xff
	}
	_, err := tracker.Append(bad)
	require.ErrorIs(t, err, ErrInvalidCommitment)

	// The failed append must not have mutated the tree.
	require.Equal(t, uint64(0), tracker.Position())
	require.Equal(t, EmptyRoot(), tracker.Root())
}

func TestRootMatchesOfflineComputation(t *testing.T) {
	// Appending a sequence and taking the root must equal the classical
	// depth-32 merkle root computed leaf-up with the same combine and
	// empty-subtree constants.
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 24).Draw(t, "n")

		tracker := NewTreeTracker()
		leaves := make([]*pallas.Element, n)
		for i := 0; i < n; i++ {
			v := byte(i + 1)
			leaves[i] = pallas.NewElement(uint64(v))
			_, err := tracker.Append(smallCmx(v))
			require.NoError(t, err)
		}

		require.Equal(t, offlineRoot(leaves), tracker.Root())
	})
}

// offlineRoot computes the depth-32 root naively: pad each level with
// the canonical empty node and fold pairwise.
func offlineRoot(leaves []*pallas.Element) [32]byte {
	level := make([]*pallas.Element, len(leaves))
	copy(level, leaves)

	for depth := 0; depth < TreeDepth; depth++ {
		if len(level)%2 == 1 {
			level = append(level, emptyRootAt(depth))
		}
		next := make([]*pallas.Element, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, hashMerkleLevel(depth, level[i], level[i+1]))
		}
		level = next
	}
	return level[0].Bytes()
}

func TestSingleMarkedLeaf(t *testing.T) {
	tracker := NewTreeTracker()

	// 100 commitments, marking position 50, then 100 further appends:
	// the witness path must stay 32 long and its root must track the
	// tree root.
	for i := 0; i < 100; i++ {
		cmx := smallCmx(byte(i + 1))
		if i == 50 {
			pos, err := tracker.AppendAndMark(cmx)
			require.NoError(t, err)
			require.Equal(t, uint64(50), pos)
		} else {
			_, err := tracker.Append(cmx)
			require.NoError(t, err)
		}
	}

	for i := 0; i < 100; i++ {
		_, err := tracker.Append(smallCmx(byte(i + 101)))
		require.NoError(t, err)
	}

	witness := tracker.Witness(50)
	require.NotNil(t, witness)
	require.Equal(t, uint64(50), witness.Position)
	require.Len(t, witness.AuthPath[:], TreeDepth)
	require.Equal(t, tracker.Root(), witness.Root)

	// The path actually authenticates the marked leaf.
	require.True(t, VerifyPath(smallCmx(51), witness))
}

func TestWitnessTracksRootContinuously(t *testing.T) {
	tracker := NewTreeTracker()

	pos, err := tracker.AppendAndMark(smallCmx(1))
	require.NoError(t, err)

	for i := 2; i <= 40; i++ {
		_, err := tracker.Append(smallCmx(byte(i)))
		require.NoError(t, err)

		w := tracker.Witness(pos)
		require.NotNil(t, w)
		require.Equal(t, tracker.Root(), w.Root, "after %d appends", i)
	}
}

func TestMarkPastPositionFails(t *testing.T) {
	tracker := NewTreeTracker()

	_, err := tracker.Append(smallCmx(1))
	require.NoError(t, err)

	require.ErrorIs(t, tracker.MarkPosition(0), ErrCannotMarkPastPosition)
	require.Nil(t, tracker.Witness(0))
}

func TestResumeFromFrontier(t *testing.T) {
	const initial = 5000
	const extra = 1000

	a := NewTreeTracker()
	for i := 0; i < initial; i++ {
		cmx := smallCmx(byte(i%250 + 1))
		cmx[1] = byte(i >> 8)
		_, err := a.Append(cmx)
		require.NoError(t, err)
	}

	frontierBytes, err := a.Serialize()
	require.NoError(t, err)

	b, err := TreeFromFrontier(frontierBytes, initial, 2_000_000)
	require.NoError(t, err)
	require.Equal(t, uint64(initial), b.Position())
	require.Equal(t, uint64(2_000_000), b.BlockHeight())
	require.Equal(t, a.Root(), b.Root())

	// Appending the same next commitments to both trackers keeps the
	// roots identical.
	for i := 0; i < extra; i++ {
		cmx := smallCmx(byte(i%250 + 1))
		cmx[2] = byte(i >> 8)
		_, err := a.Append(cmx)
		require.NoError(t, err)
		_, err = b.Append(cmx)
		require.NoError(t, err)
	}
	require.Equal(t, a.Root(), b.Root())
}

func TestFrontierRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "n")

		a := NewTreeTracker()
		for i := 0; i < n; i++ {
			_, err := a.Append(smallCmx(byte(i + 1)))
			require.NoError(t, err)
		}

		raw, err := a.Serialize()
		require.NoError(t, err)

		b, err := TreeFromFrontier(raw, uint64(n), 42)
		require.NoError(t, err)
		require.Equal(t, a.Root(), b.Root())
		require.Equal(t, a.Position(), b.Position())
	})
}

func TestWitnessSerializationRoundTrip(t *testing.T) {
	tracker := NewTreeTracker()

	pos, err := tracker.AppendAndMark(smallCmx(7))
	require.NoError(t, err)
	for i := 0; i < 25; i++ {
		_, err := tracker.Append(smallCmx(byte(i + 10)))
		require.NoError(t, err)
	}

	live := tracker.WitnessFor(pos)
	require.NotNil(t, live)

	blob, err := SerializeWitness(live)
	require.NoError(t, err)

	restored, err := DeserializeWitness(blob)
	require.NoError(t, err)
	require.Equal(t, live.Position(), restored.Position())
	require.Equal(t, live.Root(), restored.Root())
	require.Equal(t, live.Path().AuthPath, restored.Path().AuthPath)

	// A restored witness keeps absorbing leaves correctly.
	cmx99 := smallCmx(99)
	leaf, err := pallas.FromBytes(cmx99[:])
	require.NoError(t, err)
	require.NoError(t, live.Append(leaf))
	require.NoError(t, restored.Append(leaf))
	require.Equal(t, live.Root(), restored.Root())
}

func TestResetFromFrontierClearsWitnesses(t *testing.T) {
	tracker := NewTreeTracker()

	_, err := tracker.AppendAndMark(smallCmx(1))
	require.NoError(t, err)
	require.Equal(t, 1, tracker.WitnessCount())

	raw, err := tracker.Serialize()
	require.NoError(t, err)

	require.NoError(t, tracker.ResetFromFrontier(raw, 1, 100))
	require.Equal(t, 0, tracker.WitnessCount())
	require.Equal(t, uint64(1), tracker.Position())
}

func TestBadFrontierRejected(t *testing.T) {
	_, err := TreeFromFrontier([]byte{0x02}, 0, 0)
	require.ErrorIs(t, err, ErrInvalidFrontier)

	_, err = DeserializeWitness([]byte{0xff})
	require.ErrorIs(t, err, ErrInvalidWitness)
}
