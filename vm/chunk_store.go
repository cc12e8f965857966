package vm

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// ---------------------------------------------------------------------------
// ChunkStore: content-addressed cache of compiled chunks
// ---------------------------------------------------------------------------

// ErrChunkNotFound indicates no chunk is cached for the requested source.
var ErrChunkNotFound = errors.New("chunk not found")

// ChunkStore caches compiled chunks in SQLite keyed by the SHA-256 of their
// source text, so re-running an unchanged script skips compilation. Chunks
// are stored as canonical CBOR.
type ChunkStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenChunkStore opens or creates a chunk store at the given path. Use
// ":memory:" for a transient store.
func OpenChunkStore(path string) (*ChunkStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening chunk store: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		source_hash TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		chunk BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	return &ChunkStore{db: db}, nil
}

// Close closes the underlying database.
func (s *ChunkStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SourceHash is the cache key for a source text.
func SourceHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Put caches a compiled chunk under its source's hash.
func (s *ChunkStore) Put(source string, chunk *Chunk) error {
	data, err := MarshalChunk(chunk)
	if err != nil {
		return fmt.Errorf("encoding chunk: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO chunks (source_hash, source_name, chunk) VALUES (?, ?, ?)",
		SourceHash(source), chunk.SourceName, data,
	)
	if err != nil {
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// Get returns the cached chunk for a source text, or ErrChunkNotFound.
func (s *ChunkStore) Get(source string) (*Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.QueryRow(
		"SELECT chunk FROM chunks WHERE source_hash = ?", SourceHash(source),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChunkNotFound
		}
		return nil, fmt.Errorf("querying chunk: %w", err)
	}
	return UnmarshalChunk(data)
}

// Count reports how many chunks are cached.
func (s *ChunkStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}
