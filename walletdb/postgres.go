// Copyright (c) 2025 The zwallet developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds connection settings for the server-backed store.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultPostgresConfig returns local-development defaults.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "zwallet",
		Database: "zwallet",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// PostgresStore implements Store on PostgreSQL via pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// schema creates the wallet tables when absent.
const schema = `
CREATE TABLE IF NOT EXISTS orchard_tree_state (
	id           INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	tree_data    BYTEA NOT NULL,
	tree_height  BIGINT NOT NULL,
	tree_size    BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS orchard_witnesses (
	nullifier    TEXT PRIMARY KEY,
	witness_blob BYTEA NOT NULL
);
CREATE TABLE IF NOT EXISTS orchard_notes (
	wallet_id     INT NOT NULL,
	nullifier     TEXT NOT NULL,
	value_zats    BIGINT NOT NULL,
	block_height  BIGINT NOT NULL,
	tx_hash       TEXT NOT NULL,
	position      BIGINT NOT NULL,
	recipient     TEXT NOT NULL,
	rho           TEXT NOT NULL,
	rseed         TEXT NOT NULL,
	memo          BYTEA,
	is_spent      BOOLEAN NOT NULL DEFAULT FALSE,
	spent_in_tx   TEXT,
	PRIMARY KEY (wallet_id, nullifier)
);
CREATE INDEX IF NOT EXISTS orchard_notes_nullifier ON orchard_notes (nullifier);
CREATE TABLE IF NOT EXISTS orchard_sync_state (
	wallet_id           INT PRIMARY KEY,
	last_scanned_height BIGINT NOT NULL,
	notes_found         INT NOT NULL
);
`

// OpenPostgresStore connects and ensures the schema exists.
func OpenPostgresStore(ctx context.Context, cfg *PostgresConfig) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("walletdb: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("walletdb: ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("walletdb: ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// SaveTreeState implements Store.
func (s *PostgresStore) SaveTreeState(ctx context.Context, data []byte, height, size uint64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orchard_tree_state (id, tree_data, tree_height, tree_size)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET tree_data = $1, tree_height = $2, tree_size = $3`,
		data, int64(height), int64(size))
	return err
}

// LoadTreeState implements Store.
func (s *PostgresStore) LoadTreeState(ctx context.Context) (*TreeState, error) {
	var state TreeState
	var height, size int64
	err := s.pool.QueryRow(ctx,
		`SELECT tree_data, tree_height, tree_size FROM orchard_tree_state WHERE id = 1`).
		Scan(&state.Data, &height, &size)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	state.Height = uint64(height)
	state.Size = uint64(size)
	return &state, nil
}

// DeleteTreeState implements Store.
func (s *PostgresStore) DeleteTreeState(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM orchard_tree_state WHERE id = 1`)
	return err
}

// SaveWitnessState implements Store.
func (s *PostgresStore) SaveWitnessState(ctx context.Context, nullifierHex string, blob []byte) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO orchard_witnesses (nullifier, witness_blob)
		VALUES ($1, $2)
		ON CONFLICT (nullifier) DO UPDATE SET witness_blob = $2`,
		nullifierHex, blob)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// LoadWitnessStates implements Store.
func (s *PostgresStore) LoadWitnessStates(ctx context.Context, walletIDs []int32) ([]*WitnessState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT n.nullifier, n.position, w.witness_blob
		FROM orchard_notes n
		JOIN orchard_witnesses w ON w.nullifier = n.nullifier
		WHERE n.wallet_id = ANY($1) AND NOT n.is_spent`,
		walletIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*WitnessState
	for rows.Next() {
		ws := &WitnessState{}
		var position int64
		if err := rows.Scan(&ws.NullifierHex, &position, &ws.Blob); err != nil {
			return nil, err
		}
		ws.Position = uint64(position)
		out = append(out, ws)
	}
	return out, rows.Err()
}

// SaveNote implements Store.
func (s *PostgresStore) SaveNote(ctx context.Context, note *StoredNote) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orchard_notes (
			wallet_id, nullifier, value_zats, block_height, tx_hash,
			position, recipient, rho, rseed, memo, is_spent, spent_in_tx
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, NULL)
		ON CONFLICT (wallet_id, nullifier) DO NOTHING`,
		note.WalletID, note.NullifierHex, int64(note.ValueZatoshis),
		int64(note.BlockHeight), note.TxHash, int64(note.Position),
		note.RecipientHex, note.RhoHex, note.RseedHex, note.Memo)
	return err
}

// GetSpendableNotes implements Store.
func (s *PostgresStore) GetSpendableNotes(ctx context.Context, walletID int32) ([]*StoredNote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT wallet_id, nullifier, value_zats, block_height, tx_hash,
		       position, recipient, rho, rseed, memo
		FROM orchard_notes
		WHERE wallet_id = $1 AND NOT is_spent
		  AND recipient <> '' AND rho <> '' AND rseed <> ''`,
		walletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StoredNote
	for rows.Next() {
		note := &StoredNote{}
		var value, height, position int64
		if err := rows.Scan(&note.WalletID, &note.NullifierHex, &value, &height,
			&note.TxHash, &position, &note.RecipientHex, &note.RhoHex,
			&note.RseedHex, &note.Memo); err != nil {
			return nil, err
		}
		note.ValueZatoshis = uint64(value)
		note.BlockHeight = uint64(height)
		note.Position = uint64(position)
		out = append(out, note)
	}
	return out, rows.Err()
}

// MarkNoteSpent implements Store.
func (s *PostgresStore) MarkNoteSpent(ctx context.Context, nullifierHex, spentInTx string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orchard_notes
		SET is_spent = TRUE, spent_in_tx = $2
		WHERE nullifier = $1 AND NOT is_spent`,
		nullifierHex, spentInTx)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetBalance implements Store.
func (s *PostgresStore) GetBalance(ctx context.Context, walletID int32) (uint64, error) {
	var total int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(value_zats), 0)
		FROM orchard_notes WHERE wallet_id = $1 AND NOT is_spent`,
		walletID).Scan(&total)
	return uint64(total), err
}

// GetNotesCount implements Store.
func (s *PostgresStore) GetNotesCount(ctx context.Context, walletID int32) (uint32, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orchard_notes WHERE wallet_id = $1`,
		walletID).Scan(&n)
	return uint32(n), err
}

// UpsertSyncState implements Store.
func (s *PostgresStore) UpsertSyncState(ctx context.Context, walletID int32, lastScannedHeight uint64, notesFound uint32) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orchard_sync_state (wallet_id, last_scanned_height, notes_found)
		VALUES ($1, $2, $3)
		ON CONFLICT (wallet_id) DO UPDATE
		SET last_scanned_height = $2, notes_found = $3`,
		walletID, int64(lastScannedHeight), int32(notesFound))
	return err
}

// GetSyncState implements Store.
func (s *PostgresStore) GetSyncState(ctx context.Context, walletID int32) (*SyncState, error) {
	state := &SyncState{}
	var height int64
	var notes int32
	err := s.pool.QueryRow(ctx, `
		SELECT wallet_id, last_scanned_height, notes_found
		FROM orchard_sync_state WHERE wallet_id = $1`,
		walletID).Scan(&state.WalletID, &height, &notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	state.LastScannedHeight = uint64(height)
	state.NotesFound = uint32(notes)
	return state, nil
}

// GetMinHeightNotesWithoutWitnessState implements Store.
func (s *PostgresStore) GetMinHeightNotesWithoutWitnessState(ctx context.Context, walletIDs []int32) (uint64, bool, error) {
	var height *int64
	err := s.pool.QueryRow(ctx, `
		SELECT MIN(n.block_height)
		FROM orchard_notes n
		LEFT JOIN orchard_witnesses w ON w.nullifier = n.nullifier
		WHERE n.wallet_id = ANY($1) AND NOT n.is_spent AND w.nullifier IS NULL`,
		walletIDs).Scan(&height)
	if err != nil {
		return 0, false, err
	}
	if height == nil {
		return 0, false, nil
	}
	return uint64(*height), true, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
