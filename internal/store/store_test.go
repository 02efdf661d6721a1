package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/roach88/scholar/internal/ir"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Driver() != "sqlite" {
		t.Errorf("Driver() = %q, want sqlite", s.Driver())
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		"events",
	).Scan(&name)
	if err != nil {
		t.Errorf("events table not found after idempotent opens: %v", err)
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s1.Append(ctx, []ir.Event{createTestFound("alice", 0, "alice-gh")}); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	events, err := s2.ByAggregateID(ctx, "alice")
	if err != nil {
		t.Fatalf("ByAggregateID() failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events after reopen, want 1", len(events))
	}
}

func TestLog_AppendAndReadBack(t *testing.T) {
	for name, open := range logBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := open(t)

			batch := []ir.Event{
				createTestFound("alice", 0, "alice-gh"),
				createTestDetail("alice", 1, ir.FieldName, "Alice Smith"),
				createTestDetail("alice", 2, ir.FieldWebsite, "https://alice.dev"),
			}
			if err := l.Append(ctx, batch); err != nil {
				t.Fatalf("Append() failed: %v", err)
			}

			got, err := l.ByAggregateID(ctx, "alice")
			if err != nil {
				t.Fatalf("ByAggregateID() failed: %v", err)
			}
			if len(got) != len(batch) {
				t.Fatalf("got %d events, want %d", len(got), len(batch))
			}
			for i := range batch {
				if got[i].ID != batch[i].ID {
					t.Errorf("event[%d].ID = %s, want %s", i, got[i].ID, batch[i].ID)
				}
				if got[i].Type != batch[i].Type {
					t.Errorf("event[%d].Type = %s, want %s", i, got[i].Type, batch[i].Type)
				}
				if !reflect.DeepEqual(got[i].Payload, batch[i].Payload) {
					t.Errorf("event[%d].Payload = %#v, want %#v", i, got[i].Payload, batch[i].Payload)
				}
				if got[i].Metadata.Sequence != batch[i].Metadata.Sequence {
					t.Errorf("event[%d].Sequence = %d, want %d", i, got[i].Metadata.Sequence, batch[i].Metadata.Sequence)
				}
				if !got[i].Metadata.Timestamp.Equal(batch[i].Metadata.Timestamp) {
					t.Errorf("event[%d].Timestamp = %v, want %v", i, got[i].Metadata.Timestamp, batch[i].Metadata.Timestamp)
				}
				if got[i].Metadata.Batch != "batch-1" {
					t.Errorf("event[%d].Batch = %q, want batch-1", i, got[i].Metadata.Batch)
				}
			}
		})
	}
}

func TestLog_UnknownAggregateIsEmpty(t *testing.T) {
	for name, open := range logBackends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := open(t).ByAggregateID(context.Background(), "nobody")
			if err != nil {
				t.Fatalf("ByAggregateID() failed: %v", err)
			}
			if got == nil {
				t.Error("ByAggregateID() returned nil, want empty slice")
			}
			if len(got) != 0 {
				t.Errorf("got %d events, want 0", len(got))
			}
		})
	}
}

func TestLog_AppendEmptyBatch(t *testing.T) {
	for name, open := range logBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := open(t).Append(context.Background(), nil); err != nil {
				t.Errorf("Append(nil) = %v, want nil", err)
			}
		})
	}
}

func TestLog_DuplicateIDConflicts(t *testing.T) {
	for name, open := range logBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := open(t)

			ev := createTestFound("alice", 0, "alice-gh")
			if err := l.Append(ctx, []ir.Event{ev}); err != nil {
				t.Fatalf("first Append() failed: %v", err)
			}
			err := l.Append(ctx, []ir.Event{ev})
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("second Append() = %v, want ErrConflict", err)
			}
		})
	}
}

func TestLog_DuplicateSequenceConflicts(t *testing.T) {
	for name, open := range logBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := open(t)

			if err := l.Append(ctx, []ir.Event{createTestFound("alice", 0, "alice-gh")}); err != nil {
				t.Fatalf("first Append() failed: %v", err)
			}
			// Different id, same (aggregate, sequence).
			clash := createTestDetail("alice", 0, ir.FieldName, "Alice")
			err := l.Append(ctx, []ir.Event{clash})
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("Append() = %v, want ErrConflict", err)
			}
		})
	}
}

func TestLog_AppendIsAllOrNothing(t *testing.T) {
	for name, open := range logBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := open(t)

			if err := l.Append(ctx, []ir.Event{createTestFound("alice", 0, "alice-gh")}); err != nil {
				t.Fatalf("seed Append() failed: %v", err)
			}

			// bob's events are fine but alice's seq 0 clashes.
			batch := []ir.Event{
				createTestFound("bob", 0, "bob-gh"),
				createTestDetail("bob", 1, ir.FieldName, "Bob"),
				createTestDetail("alice", 0, ir.FieldName, "Alice"),
			}
			if err := l.Append(ctx, batch); !errors.Is(err, ErrConflict) {
				t.Fatalf("Append() = %v, want ErrConflict", err)
			}

			bob, err := l.ByAggregateID(ctx, "bob")
			if err != nil {
				t.Fatalf("ByAggregateID() failed: %v", err)
			}
			if len(bob) != 0 {
				t.Errorf("partial batch visible: got %d bob events, want 0", len(bob))
			}
		})
	}
}

func TestLog_ConflictWithinBatch(t *testing.T) {
	for name, open := range logBackends(t) {
		t.Run(name, func(t *testing.T) {
			ev := createTestFound("alice", 0, "alice-gh")
			err := open(t).Append(context.Background(), []ir.Event{ev, ev})
			if !errors.Is(err, ErrConflict) {
				t.Fatalf("Append() = %v, want ErrConflict", err)
			}
		})
	}
}

func TestLog_RejectsMalformedEvents(t *testing.T) {
	mismatched := createTestFound("alice", 0, "alice-gh")
	mismatched.Type = ir.ResearcherDetailAdded

	noPayload := createTestFound("alice", 0, "alice-gh")
	noPayload.Payload = nil

	noAgg := createTestFound("alice", 0, "alice-gh")
	noAgg.AggregateID = ""

	noID := createTestFound("alice", 0, "alice-gh")
	noID.ID = ""

	doiDetail := createTestDetail("alice", 1, ir.FieldDOI, "10.1/a")

	cases := map[string]ir.Event{
		"mismatched payload":   mismatched,
		"nil payload":          noPayload,
		"empty aggregate":      noAgg,
		"empty id":             noID,
		"non-researcher field": doiDetail,
	}

	for name, open := range logBackends(t) {
		t.Run(name, func(t *testing.T) {
			for label, ev := range cases {
				l := open(t)
				if err := l.Append(context.Background(), []ir.Event{ev}); err == nil {
					t.Errorf("%s: Append() succeeded, want error", label)
				}
			}
		})
	}
}

func TestLog_AggregateIDsInFirstAppendOrder(t *testing.T) {
	for name, open := range logBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := open(t)

			appends := [][]ir.Event{
				{createTestFound("carol", 0, "carol-gh")},
				{createTestFound("alice", 0, "alice-gh")},
				{createTestDetail("carol", 1, ir.FieldName, "Carol")},
				{createTestFound("bob", 0, "bob-gh")},
			}
			for _, batch := range appends {
				if err := l.Append(ctx, batch); err != nil {
					t.Fatalf("Append() failed: %v", err)
				}
			}

			ids, err := l.AggregateIDs(ctx)
			if err != nil {
				t.Fatalf("AggregateIDs() failed: %v", err)
			}
			want := []string{"carol", "alice", "bob"}
			if !reflect.DeepEqual(ids, want) {
				t.Errorf("AggregateIDs() = %v, want %v", ids, want)
			}

			all, err := l.All(ctx)
			if err != nil {
				t.Fatalf("All() failed: %v", err)
			}
			if len(all) != 4 {
				t.Fatalf("All() returned %d events, want 4", len(all))
			}
			if all[2].AggregateID != "carol" || all[2].Metadata.Sequence != 1 {
				t.Errorf("All()[2] = %s/%d, want carol/1", all[2].AggregateID, all[2].Metadata.Sequence)
			}
		})
	}
}

func TestLog_CanceledContext(t *testing.T) {
	l := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Append(ctx, []ir.Event{createTestFound("alice", 0, "alice-gh")}); !errors.Is(err, context.Canceled) {
		t.Errorf("Append() = %v, want context.Canceled", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestRebind(t *testing.T) {
	got := dialectPostgres.rebind("SELECT * FROM events WHERE id = ? AND sequence = ?")
	want := "SELECT * FROM events WHERE id = $1 AND sequence = $2"
	if got != want {
		t.Errorf("rebind() = %q, want %q", got, want)
	}
	if q := dialectSQLite.rebind("a = ?"); q != "a = ?" {
		t.Errorf("sqlite rebind() = %q, want unchanged", q)
	}
}

func TestOpenPostgres_RequiresDSN(t *testing.T) {
	if _, err := OpenPostgres(context.Background(), "  "); err == nil {
		t.Error("OpenPostgres(\"\") succeeded, want error")
	}
}

func TestOpenPostgres_PropagatesOpenError(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })

	boom := errors.New("boom")
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		if driver != "pgx" {
			t.Errorf("driver = %q, want pgx", driver)
		}
		return nil, boom
	}

	if _, err := OpenPostgres(context.Background(), "postgres://localhost/scholar"); !errors.Is(err, boom) {
		t.Errorf("OpenPostgres() = %v, want wrapped boom", err)
	}
}
