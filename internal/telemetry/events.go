package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Query outcomes recorded in the ledger and on the query counter.
const (
	OutcomeMessage = "message"
	OutcomeResults = "results"
	OutcomeError   = "error"
)

// QueryEvent is the operational record of one POST to the query endpoint.
// It deliberately carries no query or reply text.
type QueryEvent struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	StatusCode int // 0 when no response arrived
	Outcome    string
	Err        string
}

// EventLog stores query events in SQLite
type EventLog struct {
	db *sql.DB
}

// InitDB opens (or creates) the query event ledger at path
func InitDB(path string) (*EventLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createEventsTable := `
	CREATE TABLE IF NOT EXISTS query_events (
		id TEXT PRIMARY KEY,
		started_at DATETIME,
		duration_ms INTEGER,
		status_code INTEGER,
		outcome TEXT,
		error TEXT
	);`

	if _, err := db.Exec(createEventsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create query_events table: %w", err)
	}

	return &EventLog{db: db}, nil
}

// Record inserts ev, assigning an ID when it has none
func (l *EventLog) Record(ctx context.Context, ev QueryEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO query_events (id, started_at, duration_ms, status_code, outcome, error) VALUES (?, ?, ?, ?, ?, ?)",
		ev.ID, ev.StartedAt, ev.Duration.Milliseconds(), ev.StatusCode, ev.Outcome, ev.Err,
	)
	if err != nil {
		return fmt.Errorf("failed to record query event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first
func (l *EventLog) Recent(ctx context.Context, limit int) ([]QueryEvent, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, started_at, duration_ms, status_code, outcome, error FROM query_events ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load query events: %w", err)
	}
	defer rows.Close()

	events := []QueryEvent{}
	for rows.Next() {
		var ev QueryEvent
		var durationMS int64
		if err := rows.Scan(&ev.ID, &ev.StartedAt, &durationMS, &ev.StatusCode, &ev.Outcome, &ev.Err); err != nil {
			return nil, fmt.Errorf("failed to scan query event: %w", err)
		}
		ev.Duration = time.Duration(durationMS) * time.Millisecond
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate query events: %w", err)
	}
	return events, nil
}

// Close closes the underlying database
func (l *EventLog) Close() error {
	return l.db.Close()
}
