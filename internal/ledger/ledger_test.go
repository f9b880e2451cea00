package ledger

import (
	"testing"
	"time"

	"github.com/dokzlo13/sleepiqd/internal/db"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestHasCompleted(t *testing.T) {
	l := newTestLedger(t)

	if l.HasCompleted("k1") {
		t.Fatal("HasCompleted() = true on empty ledger")
	}
	if err := l.Append(EventCommandFailed, "k1", nil); err != nil {
		t.Fatal(err)
	}
	if l.HasCompleted("k1") {
		t.Error("a failed command must not count as completed")
	}
	if err := l.Append(EventCommandCompleted, "k1", map[string]any{"command": "light"}); err != nil {
		t.Fatal(err)
	}
	if !l.HasCompleted("k1") {
		t.Error("HasCompleted() = false after completion")
	}
	if l.HasCompleted("") {
		t.Error("empty key must never dedupe")
	}
}

func TestAppend_FirstCompletionWins(t *testing.T) {
	l := newTestLedger(t)

	for i := 0; i < 3; i++ {
		if err := l.Append(EventCommandCompleted, "dup", map[string]any{"n": i}); err != nil {
			t.Fatalf("Append() #%d error = %v", i, err)
		}
	}

	entries, err := l.GetByType(EventCommandCompleted, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("completions = %d, want 1", len(entries))
	}
	if entries[0].Payload["n"] != float64(0) {
		t.Errorf("kept payload = %v, want the first", entries[0].Payload)
	}
}

func TestLastFetch(t *testing.T) {
	l := newTestLedger(t)

	if e, err := l.LastFetch("100"); err != nil || e != nil {
		t.Fatalf("LastFetch() = %v, %v; want nil, nil", e, err)
	}

	if err := l.AppendWithSource(EventFetchCompleted, "", "poller", "100", nil); err != nil {
		t.Fatal(err)
	}
	if err := l.AppendWithSource(EventFetchFailed, "", "poller", "", map[string]any{"error": "boom"}); err != nil {
		t.Fatal(err)
	}
	if err := l.AppendWithSource(EventFetchCompleted, "", "poller", "200", nil); err != nil {
		t.Fatal(err)
	}

	e, err := l.LastFetch("100")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.EventType != EventFetchFailed {
		t.Fatalf("LastFetch() = %+v, want the unattributed failure", e)
	}
	if e.Source != "poller" || e.Payload["error"] != "boom" {
		t.Errorf("entry = %+v", e)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	l := newTestLedger(t)

	old := time.Now().Add(-48 * time.Hour).Unix()
	if _, err := l.db.Exec(`INSERT INTO event_ledger (event_type, timestamp) VALUES (?, ?)`, EventFetchCompleted, old); err != nil {
		t.Fatal(err)
	}
	if err := l.Append(EventFetchCompleted, "", nil); err != nil {
		t.Fatal(err)
	}

	n, err := l.DeleteOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}
