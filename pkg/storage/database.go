package storage

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrCorrupted = errors.New("stored packet failed integrity check")
)

// PacketStore is a local shelf for sealed wire packets. It never
// decrypts; it stores and serves 504-byte images keyed by their public
// id hash, with the message hash indexed for reply-reference lookups.
type PacketStore struct {
	db *sql.DB
}

// NewPacketStore opens (or creates) the packet database at dbPath.
func NewPacketStore(dbPath string) (*PacketStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open packet database: %v", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %v", err)
	}

	store := &PacketStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates the database schema
func (s *PacketStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS packets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id TEXT NOT NULL,
		id_hash TEXT UNIQUE NOT NULL,
		message_hash TEXT NOT NULL,
		packet BLOB NOT NULL,
		checksum BLOB NOT NULL,
		received_at INTEGER NOT NULL
	);

	-- Index for channel scans
	CREATE INDEX IF NOT EXISTS idx_channel ON packets(channel_id);

	-- Index for reply-reference lookups
	CREATE INDEX IF NOT EXISTS idx_message_hash ON packets(message_hash);

	-- Index for retention cleanup
	CREATE INDEX IF NOT EXISTS idx_received ON packets(received_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %v", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *PacketStore) Close() error {
	return s.db.Close()
}
