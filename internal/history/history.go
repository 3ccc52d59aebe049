// Package history records one row per compile request so past utterances,
// their aliases and their outcomes can be reviewed and replayed.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Outcome filter values.
const (
	// OutcomeOK selects compiles that produced no error diagnostics.
	OutcomeOK = "ok"

	// OutcomeError selects compiles with at least one error diagnostic.
	OutcomeError = "error"
)

// Listing limits.
const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ErrInvalidFilter is returned when a listing filter names an unknown
// outcome.
var ErrInvalidFilter = errors.New("history: invalid filter")

// Entry is one recorded compile.
type Entry struct {
	// ID is the compile request identifier.
	ID string `json:"id"`

	// Utterance is the raw input text.
	Utterance string `json:"utterance"`

	// Alias is the alias the synthesizer reserved for the document.
	Alias string `json:"alias"`

	// Path is the extraction path that produced the document.
	Path string `json:"path"`

	// Diagnostic counts at validation time.
	ErrorCount   int `json:"error_count"`
	WarningCount int `json:"warning_count"`

	// DurationMS is the wall time of the whole compile.
	DurationMS int `json:"duration_ms"`

	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows and pages a listing. Zero values mean "no filter":
// every path, every outcome, first page at the default limit.
type Filter struct {
	// Path filters by extraction path ("rules", "model").
	Path string

	// Outcome filters by diagnostic outcome (OutcomeOK, OutcomeError).
	Outcome string

	Limit  int
	Offset int
}

// Repository defines the interface for compile history persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) ([]Entry, error)
}

const historyColumns = `id, utterance, alias, path, error_count, warning_count, duration_ms, created_at`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts one compile row. A zero CreatedAt is stamped with the
// current time.
func (r *SQLiteRepository) Record(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO compile_history (
			id, utterance, alias, path, error_count, warning_count, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.Utterance,
		e.Alias,
		e.Path,
		e.ErrorCount,
		e.WarningCount,
		e.DurationMS,
		e.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting compile row: %w", err)
	}
	return nil
}

// List returns compiles newest first, filtered and paged. Limits are
// clamped to [1, 100] with a default of 20; negative offsets read from
// the start.
func (r *SQLiteRepository) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)

	if f.Path != "" {
		where = append(where, "path = ?")
		args = append(args, f.Path)
	}

	switch f.Outcome {
	case "":
	case OutcomeOK:
		where = append(where, "error_count = 0")
	case OutcomeError:
		where = append(where, "error_count > 0")
	default:
		return nil, fmt.Errorf("%w: outcome %q", ErrInvalidFilter, f.Outcome)
	}

	query := `SELECT ` + historyColumns + ` FROM compile_history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit), max(f.Offset, 0))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying compile history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, scanErr := scanEntry(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning compile row: %w", scanErr)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating compile history: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var e Entry
	var createdAt string

	err := rows.Scan(
		&e.ID,
		&e.Utterance,
		&e.Alias,
		&e.Path,
		&e.ErrorCount,
		&e.WarningCount,
		&e.DurationMS,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if t, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
		e.CreatedAt = t
	}
	return &e, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
