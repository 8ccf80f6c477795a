// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package scan implements the witness-sync manager: it drives the
// scanner over block ranges, routes every commitment into the tree,
// performs trial decryption, records discovered notes and spends, and
// persists durable checkpoints of the frontier and witness blobs.
package scan

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/robustfengbin/zwallet/chaincfg"
	"github.com/robustfengbin/zwallet/orchard"
	"github.com/robustfengbin/zwallet/rpcclient"
	"github.com/robustfengbin/zwallet/walletdb"
)

// DefaultCheckpointInterval is the number of blocks between durable
// checkpoints.
const DefaultCheckpointInterval = 500

var (
	// ErrNoViewingKeys is returned when a scan is started with no
	// registered wallets.
	ErrNoViewingKeys = errors.New("scan: no viewing keys registered")

	// ErrConcurrentWriter guards the single-writer ownership of the
	// tree state.
	ErrConcurrentWriter = errors.New("scan: tree state already owned by another writer")
)

// ChainSource is the node-facing dependency of the manager.
type ChainSource interface {
	// GetBlockCount returns the chain tip height.
	GetBlockCount(ctx context.Context) (uint64, error)

	// GetTreeState returns the serialized Orchard frontier at a height.
	GetTreeState(ctx context.Context, height uint64) (*rpcclient.TreeState, error)

	// FetchBlocks returns compact blocks for an inclusive height range
	// in ascending order.
	FetchBlocks(ctx context.Context, fromHeight, toHeight uint64) ([]*orchard.CompactBlock, error)
}

// SpentNoteInfo reports a spend detected during scanning.
type SpentNoteInfo struct {
	Nullifier   [32]byte
	SpentInTx   string
	BlockHeight uint64
}

// ScanProgress summarizes sync state for callers.
type ScanProgress struct {
	LastScannedHeight uint64
	ChainTipHeight    uint64
	ProgressPercent   float64
	NotesFound        uint64
	IsScanning        bool
}

// Config wires a Manager.
type Config struct {
	Store  walletdb.Store
	Chain  ChainSource
	Params *chaincfg.Params

	// CheckpointInterval is the number of blocks between durable
	// checkpoints. Zero selects DefaultCheckpointInterval.
	CheckpointInterval uint64
}

// registeredKey couples a wallet ID with its viewing key. The key's
// two prepared IVKs live in Manager.prepared.
type registeredKey struct {
	walletID int32
	vk       *orchard.ViewingKey
}

// Manager is the witness-sync manager. One Manager owns the tree state
// at a time; the scan loop and spend-time refresh take the writer
// lock, while balance and progress reads share the reader lock.
type Manager struct {
	cfg Config

	mu       sync.RWMutex
	tree     *orchard.TreeTracker
	keys     map[int32]*registeredKey
	keyOrder []int32

	// positions maps nullifier hex to the tree position whose witness
	// backs the note. The witnesses themselves live in the tracker,
	// keyed by position, so there is no cyclic reference between the
	// two collections.
	positions map[string]uint64

	prepared      []*orchard.PreparedIncomingViewingKey
	preparedOwner []int32 // wallet owning prepared[i]

	scanning bool
}

// NewManager builds an idle manager with an empty tree.
func NewManager(cfg Config) *Manager {
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = DefaultCheckpointInterval
	}
	return &Manager{
		cfg:       cfg,
		tree:      orchard.NewTreeTracker(),
		keys:      make(map[int32]*registeredKey),
		positions: make(map[string]uint64),
	}
}

// RegisterWallet adds a viewing key to the scan set without touching
// tree state. Registering the same wallet twice replaces its key.
func (m *Manager) RegisterWallet(walletID int32, vk *orchard.ViewingKey) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vk.WalletID = walletID
	if _, exists := m.keys[walletID]; !exists {
		m.keyOrder = append(m.keyOrder, walletID)
	}
	m.keys[walletID] = &registeredKey{walletID: walletID, vk: vk}
	m.rebuildPreparedLocked()

	log.Infof("Registered wallet %d (account %d, birthday %d)",
		walletID, vk.AccountIndex, vk.BirthdayHeight)
}

// rebuildPreparedLocked rebuilds the fixed prepared-key vector:
// External then Internal scope for each FVK, in registration order.
func (m *Manager) rebuildPreparedLocked() {
	m.prepared = m.prepared[:0]
	m.preparedOwner = m.preparedOwner[:0]
	for _, id := range m.keyOrder {
		rk := m.keys[id]
		m.prepared = append(m.prepared,
			rk.vk.FVK.IncomingViewingKey(orchard.External).Prepare(),
			rk.vk.FVK.IncomingViewingKey(orchard.Internal).Prepare(),
		)
		m.preparedOwner = append(m.preparedOwner, id, id)
	}
}

// WalletIDs returns the registered wallets in registration order.
func (m *Manager) WalletIDs() []int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int32(nil), m.keyOrder...)
}

// Initialize restores tree and witness state from persistence.
// Returns the height the tree resumed at, or zero when no saved state
// exists and the caller must InitFromFrontier.
func (m *Manager) Initialize(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, err := m.cfg.Store.LoadTreeState(ctx)
	if errors.Is(err, walletdb.ErrNotFound) {
		log.Info("No saved tree state; frontier initialization required")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("scan: load tree state: %w", err)
	}

	tree, err := orchard.TreeFromFrontier(state.Data, state.Size, state.Height)
	if err != nil {
		return 0, fmt.Errorf("scan: restore tree: %w", err)
	}
	m.tree = tree
	m.positions = make(map[string]uint64)

	witnessStates, err := m.cfg.Store.LoadWitnessStates(ctx, m.keyOrder)
	if err != nil {
		return 0, fmt.Errorf("scan: load witness states: %w", err)
	}

	restored := 0
	for _, ws := range witnessStates {
		w, err := orchard.DeserializeWitness(ws.Blob)
		if err != nil {
			log.Warnf("Skipping undecodable witness for %s: %v", ws.NullifierHex, err)
			continue
		}
		m.tree.AttachWitness(ws.Position, w)
		m.positions[ws.NullifierHex] = ws.Position
		restored++
	}

	log.Infof("Restored tree at height %d (size %d) with %d witnesses",
		state.Height, state.Size, restored)
	return state.Height, nil
}

// InitFromFrontier seeds the tracker from the chain's tree state at the
// given height. Used on first run and by the rescue path.
func (m *Manager) InitFromFrontier(ctx context.Context, height uint64) error {
	ts, err := m.cfg.Chain.GetTreeState(ctx, height)
	if err != nil {
		return fmt.Errorf("scan: z_gettreestate at %d: %w", height, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.tree.ResetFromFrontier(ts.FrontierBytes, ts.Position, height); err != nil {
		return fmt.Errorf("scan: seed frontier at %d: %w", height, err)
	}
	m.positions = make(map[string]uint64)

	log.Infof("Initialized from frontier: height=%d position=%d", height, ts.Position)
	return nil
}

// NextScanHeight returns the height the next ProcessBlocks call should
// start at: one past the lowest per-wallet checkpoint, floored at the
// Orchard activation height.
func (m *Manager) NextScanHeight(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	wallets := append([]int32(nil), m.keyOrder...)
	m.mu.RUnlock()

	if len(wallets) == 0 {
		return 0, ErrNoViewingKeys
	}

	minHeight := uint64(0)
	found := false
	for _, id := range wallets {
		state, err := m.cfg.Store.GetSyncState(ctx, id)
		if errors.Is(err, walletdb.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if !found || state.LastScannedHeight < minHeight {
			minHeight = state.LastScannedHeight
			found = true
		}
	}

	if !found {
		return m.cfg.Params.OrchardActivationHeight, nil
	}
	if minHeight < m.cfg.Params.OrchardActivationHeight {
		return m.cfg.Params.OrchardActivationHeight, nil
	}
	return minHeight + 1, nil
}

// ProcessBlocks applies a batch of blocks in ascending height order:
// trial decryption, tree append, witness tracking, and spend
// detection. knownPositions maps tree positions to nullifier hex for
// the rescue path; commitments landing on a known position are marked
// instead of plainly appended so their witnesses are rebuilt.
//
// Cancellation is observed at block boundaries only; a block is either
// fully applied or not at all. On error, in-memory state may be ahead
// of the last checkpoint and the caller must resume from persistence.
func (m *Manager) ProcessBlocks(ctx context.Context, blocks []*orchard.CompactBlock, knownPositions map[uint64]string) ([]*orchard.OrchardNote, []*SpentNoteInfo, error) {
	if len(blocks) == 0 {
		return nil, nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.prepared) == 0 {
		return nil, nil, ErrNoViewingKeys
	}

	m.scanning = true
	defer func() { m.scanning = false }()

	var found []*orchard.OrchardNote
	var spent []*SpentNoteInfo
	sinceCheckpoint := uint64(0)

	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			// Stop at the boundary; fully-applied blocks stand.
			log.Infof("Scan cancelled at height %d", m.tree.BlockHeight())
			return found, spent, err
		}

		blockFound, blockSpent, err := m.applyBlockLocked(ctx, block, knownPositions)
		if err != nil {
			return found, spent, err
		}
		found = append(found, blockFound...)
		spent = append(spent, blockSpent...)

		m.tree.SetBlockHeight(block.Height)
		sinceCheckpoint++

		if sinceCheckpoint >= m.cfg.CheckpointInterval {
			if err := m.saveStateLocked(ctx); err != nil {
				return found, spent, err
			}
			sinceCheckpoint = 0
		}
	}

	if err := m.saveStateLocked(ctx); err != nil {
		return found, spent, err
	}

	log.Infof("Processed blocks %d-%d: %d notes found, %d spends, %d witnesses",
		blocks[0].Height, blocks[len(blocks)-1].Height,
		len(found), len(spent), m.tree.WitnessCount())
	return found, spent, nil
}

// applyBlockLocked applies one block's actions in node order.
func (m *Manager) applyBlockLocked(ctx context.Context, block *orchard.CompactBlock, knownPositions map[uint64]string) ([]*orchard.OrchardNote, []*SpentNoteInfo, error) {
	var found []*orchard.OrchardNote
	var spent []*SpentNoteInfo

	for _, tx := range block.Transactions {
		for _, action := range tx.Actions {
			position := m.tree.Position()

			// Trial-decrypt against the full prepared key vector in
			// one batched call.
			results := orchard.TryCompactNoteDecryption(m.prepared, []*orchard.CompactAction{action})
			hit := results[0]

			switch {
			case hit != nil:
				// Ours: append with a fresh witness. Witness extension
				// for existing witnesses happens inside the tracker
				// before the new leaf is absorbed, so the fresh
				// witness never sees its own leaf.
				pos, err := m.tree.AppendAndMark(action.Cmx)
				if err != nil {
					return found, spent, fmt.Errorf("scan: block %d: %w", block.Height, err)
				}

				walletID := m.preparedOwner[hit.KeyIndex]
				note := m.buildNoteLocked(walletID, hit, action, tx.Hash, block.Height, pos)
				m.positions[note.NullifierHex()] = pos

				if err := m.persistNoteLocked(ctx, note); err != nil {
					return found, spent, err
				}
				found = append(found, note)

				log.Infof("Found note: wallet=%d value=%d position=%d block=%d",
					walletID, note.ValueZatoshis, pos, block.Height)

			case knownPositions[position] != "":
				// Rescue: a persisted note lives at this position but
				// its witness was lost. Re-mark to rebuild it.
				pos, err := m.tree.AppendAndMark(action.Cmx)
				if err != nil {
					return found, spent, fmt.Errorf("scan: block %d: %w", block.Height, err)
				}
				nullifierHex := knownPositions[position]
				m.positions[nullifierHex] = pos
				log.Infof("Rebuilt witness for known position %d", pos)

			default:
				if _, err := m.tree.Append(action.Cmx); err != nil {
					return found, spent, fmt.Errorf("scan: block %d: %w", block.Height, err)
				}
			}

			// Spend detection across all wallets.
			nullifierHex := hex.EncodeToString(action.Nullifier[:])
			updated, err := m.cfg.Store.MarkNoteSpent(ctx, nullifierHex, tx.Hash)
			if err != nil {
				return found, spent, fmt.Errorf("scan: mark spent: %w", err)
			}
			if updated {
				if pos, ok := m.positions[nullifierHex]; ok {
					m.tree.RemoveWitness(pos)
					delete(m.positions, nullifierHex)
				}
				spent = append(spent, &SpentNoteInfo{
					Nullifier:   action.Nullifier,
					SpentInTx:   tx.Hash,
					BlockHeight: block.Height,
				})
				log.Infof("Note spent in %s at height %d", tx.Hash, block.Height)
			}
		}
	}
	return found, spent, nil
}

// buildNoteLocked converts a decryption hit into the wallet note
// record.
func (m *Manager) buildNoteLocked(walletID int32, hit *orchard.DecryptedNote, action *orchard.CompactAction, txHash string, height, position uint64) *orchard.OrchardNote {
	rk := m.keys[walletID]

	note := &orchard.OrchardNote{
		WalletID:       walletID,
		AccountIndex:   rk.vk.AccountIndex,
		TxHash:         txHash,
		BlockHeight:    height,
		NoteCommitment: action.Cmx,
		Nullifier:      hit.Note.Nullifier(rk.vk.FVK),
		ValueZatoshis:  hit.Note.Value,
		Position:       position,
		Recipient:      hit.Recipient.Bytes(),
		Rseed:          hit.Note.Rseed,
	}
	note.Rho = hit.Note.Rho.Bytes()
	return note
}

// persistNoteLocked writes a discovered note, idempotently.
func (m *Manager) persistNoteLocked(ctx context.Context, note *orchard.OrchardNote) error {
	stored := &walletdb.StoredNote{
		WalletID:      note.WalletID,
		NullifierHex:  note.NullifierHex(),
		ValueZatoshis: note.ValueZatoshis,
		BlockHeight:   note.BlockHeight,
		TxHash:        note.TxHash,
		Position:      note.Position,
		RecipientHex:  hex.EncodeToString(note.Recipient[:]),
		RhoHex:        hex.EncodeToString(note.Rho[:]),
		RseedHex:      hex.EncodeToString(note.Rseed[:]),
		Memo:          note.Memo,
	}
	if err := m.cfg.Store.SaveNote(ctx, stored); err != nil {
		return fmt.Errorf("scan: save note: %w", err)
	}
	return nil
}

// SaveState writes the frontier, every in-memory witness blob, and the
// per-wallet sync state.
func (m *Manager) SaveState(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveStateLocked(ctx)
}

func (m *Manager) saveStateLocked(ctx context.Context) error {
	data, err := m.tree.Serialize()
	if err != nil {
		return fmt.Errorf("scan: serialize frontier: %w", err)
	}
	if err := m.cfg.Store.SaveTreeState(ctx, data, m.tree.BlockHeight(), m.tree.Position()); err != nil {
		return fmt.Errorf("scan: save tree state: %w", err)
	}

	saved := 0
	for nullifierHex, pos := range m.positions {
		w := m.tree.WitnessFor(pos)
		if w == nil {
			continue
		}
		blob, err := orchard.SerializeWitness(w)
		if err != nil {
			return fmt.Errorf("scan: serialize witness: %w", err)
		}
		if _, err := m.cfg.Store.SaveWitnessState(ctx, nullifierHex, blob); err != nil {
			return fmt.Errorf("scan: save witness: %w", err)
		}
		saved++
	}

	for _, id := range m.keyOrder {
		count, err := m.cfg.Store.GetNotesCount(ctx, id)
		if err != nil {
			return err
		}
		if err := m.cfg.Store.UpsertSyncState(ctx, id, m.tree.BlockHeight(), count); err != nil {
			return err
		}
	}

	log.Debugf("Checkpoint: height=%d size=%d witnesses=%d",
		m.tree.BlockHeight(), m.tree.Position(), saved)
	return nil
}

// RefreshWitnessesForSpending brings the tree and all witnesses to the
// chain tip and persists the result. It must run immediately before
// any spend so the anchor is fresh. Reports whether an update
// occurred.
func (m *Manager) RefreshWitnessesForSpending(ctx context.Context, walletID int32) (bool, error) {
	tip, err := m.cfg.Chain.GetBlockCount(ctx)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	treeHeight := m.tree.BlockHeight()
	if treeHeight >= tip {
		log.Debugf("Tree already at chain tip %d", tip)
		return false, nil
	}

	log.Infof("Refreshing witnesses: tree=%d -> tip=%d", treeHeight, tip)

	blocks, err := m.cfg.Chain.FetchBlocks(ctx, treeHeight+1, tip)
	if err != nil {
		return false, err
	}

	for _, block := range blocks {
		for _, tx := range block.Transactions {
			for _, action := range tx.Actions {
				if _, err := m.tree.Append(action.Cmx); err != nil {
					return false, fmt.Errorf("scan: refresh at %d: %w", block.Height, err)
				}
			}
		}
	}
	m.tree.SetBlockHeight(tip)

	if err := m.saveStateLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// AnchorAge returns how many blocks the tree trails the chain tip.
func (m *Manager) AnchorAge(ctx context.Context) (uint64, error) {
	tip, err := m.cfg.Chain.GetBlockCount(ctx)
	if err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tree.BlockHeight() >= tip {
		return 0, nil
	}
	return tip - m.tree.BlockHeight(), nil
}

// Anchor returns the current tree root.
func (m *Manager) Anchor() [32]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Root()
}

// TreeHeight returns the height of the last block applied to the tree.
func (m *Manager) TreeHeight() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.BlockHeight()
}

// GetSpendableNotesWithWitnesses loads a wallet's unspent notes,
// attaches current witnesses from the tracker (persisted witness roots
// may be stale), and returns only notes with a complete path.
func (m *Manager) GetSpendableNotesWithWitnesses(ctx context.Context, walletID int32) ([]*orchard.OrchardNote, error) {
	stored, err := m.cfg.Store.GetSpendableNotes(ctx, walletID)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*orchard.OrchardNote
	for _, sn := range stored {
		note, err := storedToNote(sn)
		if err != nil {
			log.Warnf("Skipping undecodable note %s: %v", sn.NullifierHex, err)
			continue
		}

		pos, ok := m.positions[sn.NullifierHex]
		if !ok {
			log.Debugf("No witness tracked for note %s", sn.NullifierHex)
			continue
		}
		witness := m.tree.Witness(pos)
		if witness == nil {
			continue
		}
		note.Position = pos
		note.Witness = witness
		out = append(out, note)
	}
	return out, nil
}

// storedToNote decodes the persisted hex triple back into a note
// record.
func storedToNote(sn *walletdb.StoredNote) (*orchard.OrchardNote, error) {
	note := &orchard.OrchardNote{
		WalletID:      sn.WalletID,
		TxHash:        sn.TxHash,
		BlockHeight:   sn.BlockHeight,
		ValueZatoshis: sn.ValueZatoshis,
		Position:      sn.Position,
		IsSpent:       sn.IsSpent,
		SpentInTx:     sn.SpentInTx,
		Memo:          sn.Memo,
	}

	nf, err := hex.DecodeString(sn.NullifierHex)
	if err != nil || len(nf) != 32 {
		return nil, fmt.Errorf("bad nullifier hex")
	}
	copy(note.Nullifier[:], nf)

	recipient, err := hex.DecodeString(sn.RecipientHex)
	if err != nil || len(recipient) != orchard.RawAddressSize {
		return nil, fmt.Errorf("bad recipient hex")
	}
	copy(note.Recipient[:], recipient)

	rho, err := hex.DecodeString(sn.RhoHex)
	if err != nil || len(rho) != 32 {
		return nil, fmt.Errorf("bad rho hex")
	}
	copy(note.Rho[:], rho)

	rseed, err := hex.DecodeString(sn.RseedHex)
	if err != nil || len(rseed) != 32 {
		return nil, fmt.Errorf("bad rseed hex")
	}
	copy(note.Rseed[:], rseed)

	return note, nil
}

// CheckRescueNeeded reports the lowest block height among persisted
// notes that have no witness blob. Such notes exist after schema
// upgrades or corruption and require a rescan with known positions.
func (m *Manager) CheckRescueNeeded(ctx context.Context) (uint64, bool, error) {
	m.mu.RLock()
	wallets := append([]int32(nil), m.keyOrder...)
	m.mu.RUnlock()
	return m.cfg.Store.GetMinHeightNotesWithoutWitnessState(ctx, wallets)
}

// BuildKnownPositions maps tree positions to nullifier hex for every
// spendable note, feeding the rescue rescan.
func (m *Manager) BuildKnownPositions(ctx context.Context) (map[uint64]string, error) {
	m.mu.RLock()
	wallets := append([]int32(nil), m.keyOrder...)
	m.mu.RUnlock()

	known := make(map[uint64]string)
	for _, id := range wallets {
		notes, err := m.cfg.Store.GetSpendableNotes(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, n := range notes {
			known[n.Position] = n.NullifierHex
		}
	}
	return known, nil
}

// ResetForRescue clears witnesses and the saved tree state, then seeds
// the frontier just below the earliest witness-less note.
func (m *Manager) ResetForRescue(ctx context.Context, fromHeight uint64) error {
	m.mu.Lock()
	m.positions = make(map[string]uint64)
	m.mu.Unlock()

	if err := m.cfg.Store.DeleteTreeState(ctx); err != nil {
		return err
	}

	frontierHeight := fromHeight
	if frontierHeight > 0 {
		frontierHeight--
	}
	if frontierHeight < m.cfg.Params.OrchardActivationHeight {
		frontierHeight = m.cfg.Params.OrchardActivationHeight
	}

	log.Infof("Rescue rescan: seeding frontier at height %d", frontierHeight)
	return m.InitFromFrontier(ctx, frontierHeight)
}

// Progress reports scan progress against the chain tip.
func (m *Manager) Progress(ctx context.Context) (*ScanProgress, error) {
	tip, err := m.cfg.Chain.GetBlockCount(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	height := m.tree.BlockHeight()
	scanning := m.scanning
	wallets := append([]int32(nil), m.keyOrder...)
	m.mu.RUnlock()

	var notes uint64
	for _, id := range wallets {
		n, err := m.cfg.Store.GetNotesCount(ctx, id)
		if err != nil {
			return nil, err
		}
		notes += uint64(n)
	}

	progress := 0.0
	activation := m.cfg.Params.OrchardActivationHeight
	if tip > activation && height > activation {
		progress = float64(height-activation) / float64(tip-activation) * 100
		if progress > 100 {
			progress = 100
		}
	}

	return &ScanProgress{
		LastScannedHeight: height,
		ChainTipHeight:    tip,
		ProgressPercent:   progress,
		NotesFound:        notes,
		IsScanning:        scanning,
	}, nil
}

// Balance returns the unspent balance for one wallet.
func (m *Manager) Balance(ctx context.Context, walletID int32) (uint64, error) {
	return m.cfg.Store.GetBalance(ctx, walletID)
}

// ViewingKeyFor returns the registered viewing key for a wallet.
func (m *Manager) ViewingKeyFor(walletID int32) (*orchard.ViewingKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rk, ok := m.keys[walletID]
	if !ok {
		return nil, fmt.Errorf("scan: wallet %d not registered", walletID)
	}
	return rk.vk, nil
}
