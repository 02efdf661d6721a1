package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/scholar/internal/ir"
)

// createTestStore creates a new SQLite store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// logBackends returns every backend the contract tests run against.
// Postgres joins when SCHOLAR_TEST_POSTGRES_DSN is set.
func logBackends(t *testing.T) map[string]func(t *testing.T) Log {
	t.Helper()
	backends := map[string]func(t *testing.T) Log{
		"memory": func(t *testing.T) Log { return NewMemory() },
		"sqlite": func(t *testing.T) Log { return createTestStore(t) },
	}
	if dsn := os.Getenv("SCHOLAR_TEST_POSTGRES_DSN"); dsn != "" {
		backends["postgres"] = func(t *testing.T) Log {
			s, err := OpenPostgres(context.Background(), dsn)
			if err != nil {
				t.Fatalf("OpenPostgres() failed: %v", err)
			}
			if _, err := s.DB().Exec(`TRUNCATE events`); err != nil {
				t.Fatalf("truncate: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		}
	}
	return backends
}

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)

// createTestFound creates a RESEARCHER_FOUND event with a derived id.
func createTestFound(agg string, seq int64, github string) ir.Event {
	return ir.Event{
		ID:          ir.MustEventID(agg, ir.ResearcherFound, seq),
		AggregateID: agg,
		Type:        ir.ResearcherFound,
		Payload: ir.FoundPayload{
			Identifier: ir.Identifier{Type: ir.FieldGithub, Value: github},
		},
		Metadata: ir.Metadata{Timestamp: testTime, Sequence: seq, Batch: "batch-1"},
	}
}

// createTestDetail creates a RESEARCHER_DETAIL_ADDED event with a derived id.
func createTestDetail(agg string, seq int64, f ir.Field, value string) ir.Event {
	return ir.Event{
		ID:          ir.MustEventID(agg, ir.ResearcherDetailAdded, seq),
		AggregateID: agg,
		Type:        ir.ResearcherDetailAdded,
		Payload: ir.DetailAddedPayload{
			Identifier: ir.Identifier{Type: ir.FieldGithub, Value: "gh"},
			Update:     ir.Detail{Type: f, Value: value},
		},
		Metadata: ir.Metadata{Timestamp: testTime, Sequence: seq, Batch: "batch-1"},
	}
}
