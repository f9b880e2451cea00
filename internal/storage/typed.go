package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dokzlo13/sleepiqd/internal/sleepiq"
)

// KindBed is the resource kind of assembled bed snapshots.
const KindBed = "bed"

// TypedStore wraps Store with JSON marshaling for one kind.
type TypedStore[T any] struct {
	store *Store
	kind  string
}

// NewTypedStore creates a typed view of store for kind.
func NewTypedStore[T any](store *Store, kind string) *TypedStore[T] {
	return &TypedStore[T]{store: store, kind: kind}
}

// Kind returns the resource kind this store handles.
func (s *TypedStore[T]) Kind() string {
	return s.kind
}

// Get returns the value for id. ok is false when nothing is stored.
func (s *TypedStore[T]) Get(id string) (value T, version int64, updatedAt time.Time, ok bool, err error) {
	rec, err := s.store.Get(s.kind, id)
	if err != nil || rec == nil {
		return value, 0, time.Time{}, false, err
	}
	if err := json.Unmarshal(rec.Payload, &value); err != nil {
		return value, 0, time.Time{}, false, fmt.Errorf("failed to unmarshal %s %s: %w", s.kind, id, err)
	}
	return value, rec.Version, rec.UpdatedAt, true, nil
}

// Set marshals and stores value, returning the new version.
func (s *TypedStore[T]) Set(id string, value T) (int64, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s %s: %w", s.kind, id, err)
	}
	return s.store.Set(s.kind, id, payload)
}

// Delete removes the value for id.
func (s *TypedStore[T]) Delete(id string) error {
	return s.store.Delete(s.kind, id)
}

// LatestID returns the most recently written id, or "".
func (s *TypedStore[T]) LatestID() (string, error) {
	return s.store.LatestID(s.kind)
}

// IDs lists stored ids.
func (s *TypedStore[T]) IDs() ([]string, error) {
	return s.store.IDs(s.kind)
}

// Snapshots stores the latest assembled Bed per bed id.
type Snapshots = TypedStore[*sleepiq.Bed]

// NewSnapshots creates the bed snapshot store.
func NewSnapshots(store *Store) *Snapshots {
	return NewTypedStore[*sleepiq.Bed](store, KindBed)
}
