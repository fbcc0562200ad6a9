// Package journal records the outcome of every consumed task in SQLite.
// Entries for dropped tasks keep the raw payload so they can be replayed.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/0xknstntn/news-checker/internal/model"
)

// ErrNotFound is returned when no entry has the requested id
var ErrNotFound = errors.New("journal entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS task_outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL DEFAULT '',
	conversation_id TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	score INTEGER NOT NULL DEFAULT 0,
	strategy TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '',
	result TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS task_outcomes_outcome ON task_outcomes (outcome, created_at);
CREATE INDEX IF NOT EXISTS task_outcomes_task ON task_outcomes (task_id);
`

// Entry is one journaled task outcome
type Entry struct {
	ID             int64
	TaskID         string
	ConversationID string
	Outcome        model.Outcome
	Label          model.Label
	Score          int
	Strategy       string
	Error          string
	Payload        string // Raw envelope as dequeued
	Result         *model.VerificationResult
	Duration       time.Duration
	CreatedAt      time.Time
}

// Filter narrows List
type Filter struct {
	Outcome model.Outcome // Empty matches every outcome
	Limit   int
}

// Store is the SQLite-backed journal
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal database at path
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("journal path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	dsn := cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an entry and returns its id
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if e.Outcome == "" {
		return 0, fmt.Errorf("outcome is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	var result string
	if e.Result != nil {
		raw, err := json.Marshal(e.Result)
		if err != nil {
			return 0, fmt.Errorf("encode result: %w", err)
		}
		result = string(raw)
		if e.Label == "" {
			e.Label = e.Result.Label
			e.Score = e.Result.Score
		}
		if e.Strategy == "" {
			e.Strategy = e.Result.Strategy
		}
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO task_outcomes (
	task_id,
	conversation_id,
	outcome,
	label,
	score,
	strategy,
	error,
	payload,
	result,
	duration_ms,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		e.TaskID,
		e.ConversationID,
		string(e.Outcome),
		string(e.Label),
		e.Score,
		e.Strategy,
		e.Error,
		e.Payload,
		result,
		e.Duration.Milliseconds(),
		e.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("record outcome: %w", err)
	}
	return res.LastInsertId()
}

const selectColumns = `
SELECT
	id,
	task_id,
	conversation_id,
	outcome,
	label,
	score,
	strategy,
	error,
	payload,
	result,
	duration_ms,
	created_at
FROM task_outcomes
`

// List returns entries newest first
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}

	query := selectColumns
	args := []any{}
	if f.Outcome != "" {
		query += "WHERE outcome = ?\n"
		args = append(args, string(f.Outcome))
	}
	query += "ORDER BY created_at DESC, id DESC\nLIMIT ?"
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]Entry, 0, f.Limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given id
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+"WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, err
}

// Counts returns the number of entries per outcome
func (s *Store) Counts(ctx context.Context) (map[model.Outcome]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM task_outcomes GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.Outcome]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[model.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var outcome, label, result string
	var durationMS, createdAt int64
	if err := row.Scan(
		&e.ID,
		&e.TaskID,
		&e.ConversationID,
		&outcome,
		&label,
		&e.Score,
		&e.Strategy,
		&e.Error,
		&e.Payload,
		&result,
		&durationMS,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan outcome: %w", err)
	}
	e.Outcome = model.Outcome(outcome)
	e.Label = model.Label(label)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	if result != "" {
		var r model.VerificationResult
		if err := json.Unmarshal([]byte(result), &r); err != nil {
			return Entry{}, fmt.Errorf("decode result of entry %d: %w", e.ID, err)
		}
		e.Result = &r
	}
	return e, nil
}
