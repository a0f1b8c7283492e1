package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/visionguard/dashboard/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Pragmas run on every new connection in the pool.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		question TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		risk TEXT NOT NULL DEFAULT '',
		suggestion TEXT NOT NULL DEFAULT '',
		context_json TEXT NOT NULL DEFAULT '{}',
		asked_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_asked_at ON history(asked_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveEntry inserts entry and sets entry.ID.
func (s *SQLiteStore) SaveEntry(ctx context.Context, entry *domain.HistoryEntry) error {
	contextJSON, err := json.Marshal(entry.Context)
	if err != nil {
		return fmt.Errorf("encode entry context: %w", err)
	}

	askedAt := entry.AskedAt
	if askedAt.IsZero() {
		askedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO history (question, summary, risk, suggestion, context_json, asked_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Question, entry.Summary, entry.Risk, entry.Suggestion, string(contextJSON), askedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read history entry id: %w", err)
	}
	entry.ID = id
	entry.AskedAt = askedAt
	return nil
}

// RecentEntries returns up to limit entries, newest first.
func (s *SQLiteStore) RecentEntries(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, summary, risk, suggestion, context_json, asked_at
		FROM history ORDER BY asked_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close history rows", "error", closeErr)
		}
	}()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		var contextJSON string
		var askedAt int64

		if err := rows.Scan(&e.ID, &e.Question, &e.Summary, &e.Risk, &e.Suggestion, &contextJSON, &askedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(contextJSON), &e.Context); err != nil {
			slog.Warn("discarding unreadable history context", "id", e.ID, "error", err)
		}
		e.AskedAt = time.UnixMilli(askedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
