// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// openStores returns every driver that can run without external
// services, each with a cleanup.
func openStores(t *testing.T) map[string]Store {
	t.Helper()

	level, err := OpenLevelStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { level.Close() })

	mem := NewMemStore()
	t.Cleanup(func() { mem.Close() })

	return map[string]Store{
		"mem":     mem,
		"leveldb": level,
	}
}

func sampleNote(walletID int32, nf string, value, height uint64) *StoredNote {
	return &StoredNote{
		WalletID:      walletID,
		NullifierHex:  nf,
		ValueZatoshis: value,
		BlockHeight:   height,
		TxHash:        "deadbeef",
		Position:      7,
		RecipientHex:  "aa",
		RhoHex:        "bb",
		RseedHex:      "cc",
	}
}

func TestTreeStateRoundTrip(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.LoadTreeState(ctx)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.SaveTreeState(ctx, []byte{1, 2, 3}, 100, 42))
			state, err := store.LoadTreeState(ctx)
			require.NoError(t, err)
			require.Equal(t, []byte{1, 2, 3}, state.Data)
			require.Equal(t, uint64(100), state.Height)
			require.Equal(t, uint64(42), state.Size)

			// Replacement overwrites.
			require.NoError(t, store.SaveTreeState(ctx, []byte{9}, 200, 43))
			state, err = store.LoadTreeState(ctx)
			require.NoError(t, err)
			require.Equal(t, uint64(200), state.Height)

			require.NoError(t, store.DeleteTreeState(ctx))
			_, err = store.LoadTreeState(ctx)
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSaveNoteIdempotent(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.SaveNote(ctx, sampleNote(1, "nf1", 1000, 50)))
			require.NoError(t, store.SaveNote(ctx, sampleNote(1, "nf1", 9999, 51)))

			balance, err := store.GetBalance(ctx, 1)
			require.NoError(t, err)
			require.Equal(t, uint64(1000), balance)

			count, err := store.GetNotesCount(ctx, 1)
			require.NoError(t, err)
			require.Equal(t, uint32(1), count)
		})
	}
}

func TestMarkNoteSpent(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.SaveNote(ctx, sampleNote(1, "nfspend", 500, 10)))

			updated, err := store.MarkNoteSpent(ctx, "nfspend", "txabc")
			require.NoError(t, err)
			require.True(t, updated)

			// Double-spend marking is a no-op.
			updated, err = store.MarkNoteSpent(ctx, "nfspend", "txother")
			require.NoError(t, err)
			require.False(t, updated)

			// Unknown nullifiers are not ours; no error.
			updated, err = store.MarkNoteSpent(ctx, "nounce", "tx")
			require.NoError(t, err)
			require.False(t, updated)

			balance, err := store.GetBalance(ctx, 1)
			require.NoError(t, err)
			require.Equal(t, uint64(0), balance)

			notes, err := store.GetSpendableNotes(ctx, 1)
			require.NoError(t, err)
			require.Empty(t, notes)
		})
	}
}

func TestWitnessStates(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.SaveNote(ctx, sampleNote(1, "nfw", 100, 20)))
			written, err := store.SaveWitnessState(ctx, "nfw", []byte{0xaa, 0xbb})
			require.NoError(t, err)
			require.True(t, written)

			states, err := store.LoadWitnessStates(ctx, []int32{1})
			require.NoError(t, err)
			require.Len(t, states, 1)
			require.Equal(t, "nfw", states[0].NullifierHex)
			require.Equal(t, uint64(7), states[0].Position)
			require.Equal(t, []byte{0xaa, 0xbb}, states[0].Blob)

			// Other wallets see nothing.
			states, err = store.LoadWitnessStates(ctx, []int32{2})
			require.NoError(t, err)
			require.Empty(t, states)
		})
	}
}

func TestMinHeightWithoutWitness(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, found, err := store.GetMinHeightNotesWithoutWitnessState(ctx, []int32{1})
			require.NoError(t, err)
			require.False(t, found)

			require.NoError(t, store.SaveNote(ctx, sampleNote(1, "nfa", 100, 300)))
			require.NoError(t, store.SaveNote(ctx, sampleNote(1, "nfb", 100, 200)))
			require.NoError(t, store.SaveNote(ctx, sampleNote(1, "nfc", 100, 400)))

			// nfb and nfc get witnesses; nfa at height 300 does not.
			_, err = store.SaveWitnessState(ctx, "nfb", []byte{1})
			require.NoError(t, err)
			_, err = store.SaveWitnessState(ctx, "nfc", []byte{1})
			require.NoError(t, err)

			height, found, err := store.GetMinHeightNotesWithoutWitnessState(ctx, []int32{1})
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, uint64(300), height)
		})
	}
}

func TestSyncState(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.GetSyncState(ctx, 1)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.UpsertSyncState(ctx, 1, 2_000_000, 5))
			state, err := store.GetSyncState(ctx, 1)
			require.NoError(t, err)
			require.Equal(t, uint64(2_000_000), state.LastScannedHeight)
			require.Equal(t, uint32(5), state.NotesFound)

			require.NoError(t, store.UpsertSyncState(ctx, 1, 2_000_500, 6))
			state, err = store.GetSyncState(ctx, 1)
			require.NoError(t, err)
			require.Equal(t, uint64(2_000_500), state.LastScannedHeight)
		})
	}
}
