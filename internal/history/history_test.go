package history

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the compile
// history schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	// Matches the compile_history migration
	schema := `
		CREATE TABLE compile_history (
			id            TEXT PRIMARY KEY,
			utterance     TEXT NOT NULL,
			alias         TEXT NOT NULL,
			path          TEXT NOT NULL,
			error_count   INTEGER NOT NULL DEFAULT 0,
			warning_count INTEGER NOT NULL DEFAULT 0,
			duration_ms   INTEGER NOT NULL DEFAULT 0,
			created_at    TEXT NOT NULL
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// seedEntries records n compiles a minute apart, oldest first. Entry i
// gets ID "c-<i>", alternating paths and an error on every third row.
func seedEntries(t *testing.T, repo *SQLiteRepository, n int) {
	t.Helper()

	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		path := "rules"
		if i%2 == 1 {
			path = "model"
		}
		errCount := 0
		if i%3 == 0 {
			errCount = 1
		}
		err := repo.Record(context.Background(), &Entry{
			ID:           entryID(i),
			Utterance:    "turn on the lights",
			Alias:        "AI Generated: Turn On Lights",
			Path:         path,
			ErrorCount:   errCount,
			WarningCount: i % 2,
			DurationMS:   40 + i,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seeding entry %d: %v", i, err)
		}
	}
}

func entryID(i int) string {
	return string(rune('a'+i)) + "-compile"
}

func TestRepository_RecordAndList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	created := time.Date(2026, 2, 10, 15, 4, 5, 0, time.UTC)
	want := &Entry{
		ID:           "one",
		Utterance:    "turn on the living room lights at sunset",
		Alias:        "AI Generated: Turn On Living Room Lights Sunset",
		Path:         "model",
		ErrorCount:   0,
		WarningCount: 1,
		DurationMS:   87,
		CreatedAt:    created,
	}
	if err := repo.Record(ctx, want); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0] != *want {
		t.Errorf("entry = %+v, want %+v", got[0], *want)
	}
}

func TestRepository_ListNewestFirst(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	seedEntries(t, repo, 5)

	got, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d entries, want 5", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.After(got[i-1].CreatedAt) {
			t.Errorf("entries out of order at %d: %v after %v", i, got[i].CreatedAt, got[i-1].CreatedAt)
		}
	}
	if got[0].ID != entryID(4) {
		t.Errorf("first entry = %s, want newest %s", got[0].ID, entryID(4))
	}
}

func TestRepository_ListFiltersByPath(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	seedEntries(t, repo, 6)

	got, err := repo.List(context.Background(), Filter{Path: "model"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d model entries, want 3", len(got))
	}
	for _, e := range got {
		if e.Path != "model" {
			t.Errorf("entry %s path = %q", e.ID, e.Path)
		}
	}
}

func TestRepository_ListFiltersByOutcome(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	seedEntries(t, repo, 6) // errors on entries 0 and 3

	failed, err := repo.List(context.Background(), Filter{Outcome: OutcomeError})
	if err != nil {
		t.Fatalf("List error outcome: %v", err)
	}
	if len(failed) != 2 {
		t.Fatalf("got %d failed entries, want 2", len(failed))
	}
	for _, e := range failed {
		if e.ErrorCount == 0 {
			t.Errorf("entry %s has no errors", e.ID)
		}
	}

	ok, err := repo.List(context.Background(), Filter{Outcome: OutcomeOK})
	if err != nil {
		t.Fatalf("List ok outcome: %v", err)
	}
	if len(ok) != 4 {
		t.Fatalf("got %d ok entries, want 4", len(ok))
	}
}

func TestRepository_ListRejectsUnknownOutcome(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.List(context.Background(), Filter{Outcome: "sideways"})
	if !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("err = %v, want ErrInvalidFilter", err)
	}
}

func TestRepository_ListPagination(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	seedEntries(t, repo, 5)

	page, err := repo.List(context.Background(), Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d entries, want 2", len(page))
	}
	// Newest first: offset 2 of [4,3,2,1,0] is entries 2 and 1.
	if page[0].ID != entryID(2) || page[1].ID != entryID(1) {
		t.Errorf("page = [%s, %s], want [%s, %s]", page[0].ID, page[1].ID, entryID(2), entryID(1))
	}
}

func TestRepository_ListClampsLimit(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	seedEntries(t, repo, 25)

	got, err := repo.List(context.Background(), Filter{Limit: -3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != defaultListLimit {
		t.Errorf("got %d entries, want default %d", len(got), defaultListLimit)
	}
}

func TestRepository_RecordStampsCreatedAt(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	e := &Entry{ID: "stamp", Utterance: "x", Alias: "y", Path: "rules"}
	before := time.Now().UTC().Add(-time.Second)
	if err := repo.Record(ctx, e); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if e.CreatedAt.Before(before) {
		t.Errorf("CreatedAt = %v, want stamped at insert time", e.CreatedAt)
	}
}
