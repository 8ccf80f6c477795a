// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package orchard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robustfengbin/zwallet/crypto/pallas"
)

// buildTestAction encrypts a note to the given viewing key and returns
// the compact action carrying it.
func buildTestAction(t *testing.T, vk *ViewingKey, scope Scope, value uint64, rseedFill byte) (*CompactAction, *Note) {
	t.Helper()

	recipient := vk.FVK.AddressAt(0, scope)

	// Rho must be a valid field element; use a small constant.
	rho := pallas.NewElement(uint64(rseedFill) + 1)

	var rseed [32]byte
	for i := range rseed {
		rseed[i] = rseedFill
	}

	note := &Note{Recipient: recipient, Value: value, Rho: rho, Rseed: rseed}

	enc, _, epk, err := EncryptNote(note, []byte("test memo"))
	require.NoError(t, err)

	action := &CompactAction{
		Cmx:          note.Commitment().Bytes(),
		Nullifier:    rho.Bytes(),
		EphemeralKey: epk,
	}
	copy(action.Ciphertext[:], enc[:CompactNoteSize])
	return action, note
}

func TestTrialDecryptionFindsOurNote(t *testing.T) {
	_, vk, err := DeriveFromSeed(testSeed(10), 133, 0, 0)
	require.NoError(t, err)

	action, note := buildTestAction(t, vk, External, 150_000, 1)

	ivks := PrepareIVKs([]*ViewingKey{vk})
	require.Len(t, ivks, 2) // External then Internal

	results := TryCompactNoteDecryption(ivks, []*CompactAction{action})
	require.Len(t, results, 1)
	require.NotNil(t, results[0])

	got := results[0]
	require.Equal(t, uint64(150_000), got.Note.Value)
	require.Equal(t, 0, got.KeyIndex) // External scope key
	require.Equal(t, note.Recipient.Bytes(), got.Recipient.Bytes())
	require.Equal(t, note.Rseed, got.Note.Rseed)

	// The recomputed commitment matches the action.
	require.Equal(t, action.Cmx, got.Note.Commitment().Bytes())
}

func TestTrialDecryptionInternalScope(t *testing.T) {
	_, vk, err := DeriveFromSeed(testSeed(11), 133, 0, 0)
	require.NoError(t, err)

	action, _ := buildTestAction(t, vk, Internal, 42_000, 2)

	results := TryCompactNoteDecryption(PrepareIVKs([]*ViewingKey{vk}), []*CompactAction{action})
	require.NotNil(t, results[0])
	require.Equal(t, 1, results[0].KeyIndex) // Internal scope key
}

func TestTrialDecryptionRejectsForeignNote(t *testing.T) {
	_, ours, err := DeriveFromSeed(testSeed(12), 133, 0, 0)
	require.NoError(t, err)
	_, theirs, err := DeriveFromSeed(testSeed(13), 133, 0, 0)
	require.NoError(t, err)

	action, _ := buildTestAction(t, theirs, External, 99_000, 3)

	results := TryCompactNoteDecryption(PrepareIVKs([]*ViewingKey{ours}), []*CompactAction{action})
	require.Nil(t, results[0])
}

func TestTrialDecryptionBatchMixedOwnership(t *testing.T) {
	_, ours, err := DeriveFromSeed(testSeed(14), 133, 0, 0)
	require.NoError(t, err)
	_, theirs, err := DeriveFromSeed(testSeed(15), 133, 0, 0)
	require.NoError(t, err)

	var actions []*CompactAction
	ourIdx := 4
	for i := 0; i < 10; i++ {
		owner := theirs
		if i == ourIdx {
			owner = ours
		}
		action, _ := buildTestAction(t, owner, External, uint64(1000*(i+1)), byte(i+1))
		actions = append(actions, action)
	}

	results := TryCompactNoteDecryption(PrepareIVKs([]*ViewingKey{ours}), actions)
	for i, res := range results {
		if i == ourIdx {
			require.NotNil(t, res, "action %d should be ours", i)
			require.Equal(t, uint64(1000*(i+1)), res.Note.Value)
		} else {
			require.Nil(t, res, "action %d should not be ours", i)
		}
	}
}

func TestNullifierRecomputation(t *testing.T) {
	// The stored nullifier must be recomputable from the persisted
	// spending triple plus the owning FVK.
	_, vk, err := DeriveFromSeed(testSeed(16), 133, 0, 0)
	require.NoError(t, err)

	action, note := buildTestAction(t, vk, External, 77_000, 5)

	results := TryCompactNoteDecryption(PrepareIVKs([]*ViewingKey{vk}), []*CompactAction{action})
	require.NotNil(t, results[0])

	nf := results[0].Note.Nullifier(vk.FVK)

	stored := &OrchardNote{
		ValueZatoshis: note.Value,
		Recipient:     note.Recipient.Bytes(),
		Rho:           note.Rho.Bytes(),
		Rseed:         note.Rseed,
		Nullifier:     nf,
	}
	rebuilt, err := stored.Note()
	require.NoError(t, err)
	require.Equal(t, nf, rebuilt.Nullifier(vk.FVK))
}

func TestEncryptNoteRejectsOversizeMemo(t *testing.T) {
	_, vk, err := DeriveFromSeed(testSeed(17), 133, 0, 0)
	require.NoError(t, err)

	note := &Note{
		Recipient: vk.FVK.AddressAt(0, External),
		Value:     1,
		Rho:       pallas.NewElement(1),
	}
	_, _, _, err = EncryptNote(note, make([]byte, MemoSize+1))
	require.Error(t, err)
}

func TestCorruptCiphertextRejected(t *testing.T) {
	_, vk, err := DeriveFromSeed(testSeed(18), 133, 0, 0)
	require.NoError(t, err)

	action, _ := buildTestAction(t, vk, External, 5_000, 6)
	action.Ciphertext[20] ^= 0xff

	results := TryCompactNoteDecryption(PrepareIVKs([]*ViewingKey{vk}), []*CompactAction{action})
	require.Nil(t, results[0])
}
