// Package ledger records fetch cycles and bed commands in an append-only history.
// Commands are deduplicated by idempotency key.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventFetchCompleted   EventType = "fetch_completed"
	EventFetchFailed      EventType = "fetch_failed"
	EventCommandCompleted EventType = "command_completed"
	EventCommandFailed    EventType = "command_failed"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID             int64
	EventType      EventType
	Timestamp      time.Time
	Payload        map[string]any
	Source         string
	IdempotencyKey string
	BedID          string
}

// Ledger provides append-only event logging with deduplication
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds an event without source or bed attribution
func (l *Ledger) Append(eventType EventType, idempotencyKey string, payload map[string]any) error {
	return l.AppendWithSource(eventType, idempotencyKey, "", "", payload)
}

// AppendWithSource adds an event attributed to a source (poller, mqtt, lua...) and a bed.
// A second command_completed for the same key is silently ignored.
func (l *Ledger) AppendWithSource(eventType EventType, idempotencyKey, source, bedID string, payload map[string]any) error {
	var payloadJSON []byte
	if payload != nil {
		var err error
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	insertSQL := `INSERT INTO event_ledger (event_type, timestamp, payload, source, idempotency_key, bed_id) VALUES (?, ?, ?, ?, ?, ?)`
	if eventType == EventCommandCompleted && idempotencyKey != "" {
		insertSQL = `INSERT OR IGNORE INTO event_ledger (event_type, timestamp, payload, source, idempotency_key, bed_id) VALUES (?, ?, ?, ?, ?, ?)`
	}

	_, err := l.db.Exec(insertSQL, string(eventType), time.Now().UTC().Unix(),
		nullable(string(payloadJSON)), source, idempotencyKey, nullable(bedID))
	return err
}

// HasCompleted reports whether a command with the given key already succeeded
func (l *Ledger) HasCompleted(idempotencyKey string) bool {
	if idempotencyKey == "" {
		return false
	}

	var exists int
	err := l.db.QueryRow(`
		SELECT 1 FROM event_ledger
		WHERE idempotency_key = ? AND event_type = ?
		LIMIT 1
	`, idempotencyKey, string(EventCommandCompleted)).Scan(&exists)

	return err == nil && exists == 1
}

// LastFetch returns the most recent fetch outcome for a bed, or nil if there is none
func (l *Ledger) LastFetch(bedID string) (*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, payload, source, idempotency_key, bed_id
		FROM event_ledger
		WHERE event_type IN (?, ?) AND (bed_id = ? OR bed_id IS NULL)
		ORDER BY id DESC
		LIMIT 1
	`, string(EventFetchCompleted), string(EventFetchFailed), bedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries, err := l.scanEntries(rows)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return entries[0], nil
}

// GetByType returns entries filtered by event type, newest first
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, payload, source, idempotency_key, bed_id
		FROM event_ledger
		WHERE event_type = ?
		ORDER BY id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the retention period
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.Exec(`DELETE FROM event_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr, source, idempotencyKey, bedID sql.NullString
		var timestamp int64

		err := rows.Scan(&entry.ID, &entry.EventType, &timestamp, &payloadStr, &source, &idempotencyKey, &bedID)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		entry.Source = source.String
		entry.IdempotencyKey = idempotencyKey.String
		entry.BedID = bedID.String

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
