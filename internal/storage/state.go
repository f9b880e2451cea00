package storage

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store keeps versioned JSON payloads keyed by (kind, id).
// Every Set bumps the version, so readers can tell a fresh snapshot from a stale one.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a store over the resource_state table.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record is a stored payload with its bookkeeping.
type Record struct {
	Payload   []byte
	Version   int64
	UpdatedAt time.Time
}

// Get returns the record for (kind, id), or nil if there is none.
func (s *Store) Get(kind, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	var updatedAt int64
	rec := &Record{}
	err := s.db.QueryRow(`
		SELECT payload, version, updated_at FROM resource_state
		WHERE kind = ? AND id = ?
	`, kind, id).Scan(&payload, &rec.Version, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Payload = []byte(payload)
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return rec, nil
}

// Set stores payload and returns the new version.
func (s *Store) Set(kind, id string, payload []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var version int64
	err := s.db.QueryRow(`
		INSERT INTO resource_state (kind, id, payload, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			payload = excluded.payload,
			version = version + 1,
			updated_at = excluded.updated_at
		RETURNING version
	`, kind, id, string(payload), time.Now().UTC().UnixMilli()).Scan(&version)
	if err != nil {
		return 0, err
	}

	log.Debug().
		Str("kind", kind).
		Str("id", id).
		Int64("version", version).
		Int("bytes", len(payload)).
		Msg("Store.Set completed")

	return version, nil
}

// Delete removes a resource state entry.
func (s *Store) Delete(kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM resource_state WHERE kind = ? AND id = ?`, kind, id)
	return err
}

// LatestID returns the id under kind that was written last, or "" if there is none.
func (s *Store) LatestID(kind string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRow(`
		SELECT id FROM resource_state WHERE kind = ?
		ORDER BY updated_at DESC, version DESC LIMIT 1
	`, kind).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// IDs lists the ids stored under kind.
func (s *Store) IDs(kind string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id FROM resource_state WHERE kind = ? ORDER BY id`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
