// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Key prefixes for the leveldb keyspace.
var (
	keyTreeState    = []byte("tree/state")
	prefixWitness   = []byte("witness/") // witness/<nullifier hex>
	prefixNote      = []byte("note/")    // note/<wallet be32>/<nullifier hex>
	prefixNoteByNf  = []byte("notenf/")  // notenf/<nullifier hex> -> note key
	prefixSyncState = []byte("sync/")    // sync/<wallet be32>
)

// LevelStore is the embedded Store backed by goleveldb.
type LevelStore struct {
	mu     sync.RWMutex
	db     *leveldb.DB
	closed bool
}

// OpenLevelStore opens (or creates) the wallet database under dataDir.
func OpenLevelStore(dataDir string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(filepath.Join(dataDir, "walletdb"), nil)
	if err != nil {
		return nil, fmt.Errorf("walletdb: open leveldb: %w", err)
	}
	return &LevelStore{db: db}, nil
}

func walletKey(prefix []byte, walletID int32) []byte {
	key := make([]byte, 0, len(prefix)+4)
	key = append(key, prefix...)
	var id [4]byte
	binary.BigEndian.PutUint32(id[:], uint32(walletID))
	return append(key, id[:]...)
}

func levelNoteKey(walletID int32, nullifierHex string) []byte {
	key := walletKey(prefixNote, walletID)
	key = append(key, '/')
	return append(key, nullifierHex...)
}

type levelTreeState struct {
	Data   []byte `json:"data"`
	Height uint64 `json:"height"`
	Size   uint64 `json:"size"`
}

// SaveTreeState implements Store.
func (s *LevelStore) SaveTreeState(_ context.Context, data []byte, height, size uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	raw, err := json.Marshal(&levelTreeState{Data: data, Height: height, Size: size})
	if err != nil {
		return err
	}
	return s.db.Put(keyTreeState, raw, nil)
}

// LoadTreeState implements Store.
func (s *LevelStore) LoadTreeState(_ context.Context) (*TreeState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	raw, err := s.db.Get(keyTreeState, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var state levelTreeState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &TreeState{Data: state.Data, Height: state.Height, Size: state.Size}, nil
}

// DeleteTreeState implements Store.
func (s *LevelStore) DeleteTreeState(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Delete(keyTreeState, nil)
}

// SaveWitnessState implements Store.
func (s *LevelStore) SaveWitnessState(_ context.Context, nullifierHex string, blob []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	key := append(append([]byte(nil), prefixWitness...), nullifierHex...)
	if err := s.db.Put(key, blob, nil); err != nil {
		return false, err
	}
	return true, nil
}

// LoadWitnessStates implements Store.
func (s *LevelStore) LoadWitnessStates(ctx context.Context, walletIDs []int32) ([]*WitnessState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []*WitnessState
	for _, walletID := range walletIDs {
		iter := s.db.NewIterator(util.BytesPrefix(append(walletKey(prefixNote, walletID), '/')), nil)
		for iter.Next() {
			var note StoredNote
			if err := json.Unmarshal(iter.Value(), &note); err != nil {
				continue
			}
			if note.IsSpent {
				continue
			}
			witnessKey := append(append([]byte(nil), prefixWitness...), note.NullifierHex...)
			blob, err := s.db.Get(witnessKey, nil)
			if err != nil {
				continue
			}
			out = append(out, &WitnessState{
				NullifierHex: note.NullifierHex,
				Position:     note.Position,
				Blob:         blob,
			})
		}
		iter.Release()
		if err := iter.Error(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SaveNote implements Store.
func (s *LevelStore) SaveNote(_ context.Context, note *StoredNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	key := levelNoteKey(note.WalletID, note.NullifierHex)
	if _, err := s.db.Get(key, nil); err == nil {
		// Idempotent by (wallet, nullifier).
		return nil
	}

	raw, err := json.Marshal(note)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Put(key, raw)
	nfKey := append(append([]byte(nil), prefixNoteByNf...), note.NullifierHex...)
	batch.Put(nfKey, key)
	return s.db.Write(batch, nil)
}

// GetSpendableNotes implements Store.
func (s *LevelStore) GetSpendableNotes(_ context.Context, walletID int32) ([]*StoredNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []*StoredNote
	iter := s.db.NewIterator(util.BytesPrefix(append(walletKey(prefixNote, walletID), '/')), nil)
	defer iter.Release()
	for iter.Next() {
		var note StoredNote
		if err := json.Unmarshal(iter.Value(), &note); err != nil {
			continue
		}
		if note.IsSpent || note.RecipientHex == "" || note.RhoHex == "" || note.RseedHex == "" {
			continue
		}
		cp := note
		out = append(out, &cp)
	}
	return out, iter.Error()
}

// MarkNoteSpent implements Store.
func (s *LevelStore) MarkNoteSpent(_ context.Context, nullifierHex, spentInTx string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	nfKey := append(append([]byte(nil), prefixNoteByNf...), nullifierHex...)
	noteKeyBytes, err := s.db.Get(nfKey, nil)
	if err == leveldb.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	raw, err := s.db.Get(noteKeyBytes, nil)
	if err != nil {
		return false, err
	}
	var note StoredNote
	if err := json.Unmarshal(raw, &note); err != nil {
		return false, err
	}
	if note.IsSpent {
		return false, nil
	}
	note.IsSpent = true
	note.SpentInTx = spentInTx

	updated, err := json.Marshal(&note)
	if err != nil {
		return false, err
	}
	return true, s.db.Put(noteKeyBytes, updated, nil)
}

// GetBalance implements Store.
func (s *LevelStore) GetBalance(_ context.Context, walletID int32) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	var total uint64
	iter := s.db.NewIterator(util.BytesPrefix(append(walletKey(prefixNote, walletID), '/')), nil)
	defer iter.Release()
	for iter.Next() {
		var note StoredNote
		if err := json.Unmarshal(iter.Value(), &note); err != nil {
			continue
		}
		if !note.IsSpent {
			total += note.ValueZatoshis
		}
	}
	return total, iter.Error()
}

// GetNotesCount implements Store.
func (s *LevelStore) GetNotesCount(_ context.Context, walletID int32) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	var n uint32
	iter := s.db.NewIterator(util.BytesPrefix(append(walletKey(prefixNote, walletID), '/')), nil)
	defer iter.Release()
	for iter.Next() {
		n++
	}
	return n, iter.Error()
}

// UpsertSyncState implements Store.
func (s *LevelStore) UpsertSyncState(_ context.Context, walletID int32, lastScannedHeight uint64, notesFound uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	raw, err := json.Marshal(&SyncState{
		WalletID:          walletID,
		LastScannedHeight: lastScannedHeight,
		NotesFound:        notesFound,
	})
	if err != nil {
		return err
	}
	return s.db.Put(walletKey(prefixSyncState, walletID), raw, nil)
}

// GetSyncState implements Store.
func (s *LevelStore) GetSyncState(_ context.Context, walletID int32) (*SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	raw, err := s.db.Get(walletKey(prefixSyncState, walletID), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var state SyncState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetMinHeightNotesWithoutWitnessState implements Store.
func (s *LevelStore) GetMinHeightNotesWithoutWitnessState(_ context.Context, walletIDs []int32) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, false, ErrClosed
	}

	var minHeight uint64
	found := false
	for _, walletID := range walletIDs {
		iter := s.db.NewIterator(util.BytesPrefix(append(walletKey(prefixNote, walletID), '/')), nil)
		for iter.Next() {
			var note StoredNote
			if err := json.Unmarshal(iter.Value(), &note); err != nil {
				continue
			}
			if note.IsSpent {
				continue
			}
			witnessKey := append(append([]byte(nil), prefixWitness...), note.NullifierHex...)
			if _, err := s.db.Get(witnessKey, nil); err == nil {
				continue
			}
			if !found || note.BlockHeight < minHeight {
				minHeight = note.BlockHeight
				found = true
			}
		}
		iter.Release()
		if err := iter.Error(); err != nil {
			return 0, false, err
		}
	}
	return minHeight, found, nil
}

// Close implements Store.
func (s *LevelStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
