// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/visionguard/dashboard/internal/domain"
)

// Repository persists answered questions.
type Repository interface {
	// SaveEntry inserts an entry and sets its ID.
	SaveEntry(ctx context.Context, entry *domain.HistoryEntry) error

	// RecentEntries returns up to limit entries, newest first.
	RecentEntries(ctx context.Context, limit int) ([]domain.HistoryEntry, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
