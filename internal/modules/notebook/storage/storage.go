// Package storage defines persistence contracts for notebook notes.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/workspace/internal/platform/filter"
	"github.com/louisbranch/workspace/internal/platform/pagination"
)

var (
	// ErrNotFound indicates a requested note is missing.
	ErrNotFound = errors.New("note not found")
	// ErrPinned indicates a pinned note cannot be deleted.
	ErrPinned = errors.New("note is pinned")
)

// Note statuses.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Note is one notebook entry.
type Note struct {
	ID        int64
	Title     string
	Body      string
	Status    string
	Pinned    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListQuery selects one page of notes. Condition is an optional translated
// filter expression ANDed with the other criteria.
type ListQuery struct {
	pagination.ListQuery
	Condition filter.SQLCondition
}

// NoteStore persists notes.
type NoteStore interface {
	ListNotes(ctx context.Context, query ListQuery) ([]Note, error)
	GetNote(ctx context.Context, id int64) (Note, error)
	CreateNote(ctx context.Context, note Note) (Note, error)
	UpdateNote(ctx context.Context, note Note) (Note, error)
	DeleteNote(ctx context.Context, id int64) error
	Close() error
}

// FilterSchema declares the fields list filters may reference.
func FilterSchema() *filter.Schema {
	return filter.NewSchema(
		filter.String("title", "title"),
		filter.String("status", "status"),
		filter.Int("pinned", "pinned"),
		filter.Timestamp("created_at", "created_at"),
		filter.Timestamp("updated_at", "updated_at"),
	)
}

// ListConfig is the paging and sorting policy for note lists.
var ListConfig = pagination.Config{
	PageSize: pagination.PageSizeConfig{Default: 25, Max: 100},
	Sort: pagination.SortConfig{
		Default: "updated_at",
		Allowed: []string{"id", "title", "status", "created_at", "updated_at"},
	},
}
