package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/workspace/internal/modules/notebook/storage"
	"github.com/louisbranch/workspace/internal/modules/notebook/storage/sqlite/migrations"
	"github.com/louisbranch/workspace/internal/platform/pagination"
	"github.com/louisbranch/workspace/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

const noteColumns = "id, title, body, status, pinned, created_at, updated_at"

// Store persists notes in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a SQLite note store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	return open(dsn)
}

// OpenMemory opens a private in-memory store, used by tests and ephemeral runs.
func OpenMemory() (*Store, error) {
	return open(":memory:")
}

func open(dsn string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps in-memory databases shared and serializes
	// writers.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// ListNotes returns one page of notes matching query.
func (s *Store) ListNotes(ctx context.Context, query storage.ListQuery) ([]storage.Note, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var (
		clauses []string
		params  []any
	)
	if q := strings.TrimSpace(query.Query); q != "" {
		like := "%" + escapeLike(q) + "%"
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`)
		params = append(params, like, like)
	}
	if status := strings.TrimSpace(query.Status); status != "" {
		clauses = append(clauses, "status = ?")
		params = append(params, status)
	}
	if !query.Condition.Empty() {
		clauses = append(clauses, query.Condition.Clause)
		params = append(params, query.Condition.Params...)
	}

	stmt := "SELECT " + noteColumns + " FROM notes"
	if len(clauses) > 0 {
		stmt += " WHERE " + strings.Join(clauses, " AND ")
	}
	sortColumn, err := pagination.NormalizeSort(query.Sort, storage.ListConfig.Sort)
	if err != nil {
		return nil, err
	}
	direction := "ASC"
	if query.Direction == pagination.Desc {
		direction = "DESC"
	}
	stmt += fmt.Sprintf(" ORDER BY %s %s, id ASC LIMIT ? OFFSET ?", sortColumn, direction)
	perPage := pagination.ClampPageSize(query.PerPage, storage.ListConfig.PageSize)
	params = append(params, perPage, query.Offset())

	rows, err := s.sqlDB.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []storage.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

// GetNote returns one note by id.
func (s *Store) GetNote(ctx context.Context, id int64) (storage.Note, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Note{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id)
	note, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Note{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Note{}, fmt.Errorf("get note: %w", err)
	}
	return note, nil
}

// CreateNote inserts note and returns it with its assigned id and timestamps.
func (s *Store) CreateNote(ctx context.Context, note storage.Note) (storage.Note, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Note{}, err
	}
	now := s.now().UTC()
	note.CreatedAt, note.UpdatedAt = now, now
	if note.Status == "" {
		note.Status = storage.StatusActive
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO notes (title, body, status, pinned, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		note.Title,
		note.Body,
		note.Status,
		boolToInt(note.Pinned),
		now.Format(timeFormat),
		now.Format(timeFormat),
	)
	if err != nil {
		return storage.Note{}, fmt.Errorf("create note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storage.Note{}, fmt.Errorf("create note id: %w", err)
	}
	note.ID = id
	return note, nil
}

// UpdateNote replaces the mutable fields of an existing note.
func (s *Store) UpdateNote(ctx context.Context, note storage.Note) (storage.Note, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Note{}, err
	}
	now := s.now().UTC()
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE notes SET title = ?, body = ?, status = ?, pinned = ?, updated_at = ? WHERE id = ?`,
		note.Title,
		note.Body,
		note.Status,
		boolToInt(note.Pinned),
		now.Format(timeFormat),
		note.ID,
	)
	if err != nil {
		return storage.Note{}, fmt.Errorf("update note: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.Note{}, storage.ErrNotFound
	}
	return s.GetNote(ctx, note.ID)
}

// DeleteNote removes an unpinned note.
func (s *Store) DeleteNote(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, "DELETE FROM notes WHERE id = ? AND pinned = 0", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetNote(ctx, id); err != nil {
		return err
	}
	return storage.ErrPinned
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (storage.Note, error) {
	var (
		note      storage.Note
		pinned    int64
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&note.ID, &note.Title, &note.Body, &note.Status, &pinned, &createdAt, &updatedAt); err != nil {
		return storage.Note{}, err
	}
	note.Pinned = pinned != 0
	var err error
	if note.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return storage.Note{}, fmt.Errorf("parse created_at: %w", err)
	}
	if note.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return storage.Note{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return note, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

var _ storage.NoteStore = (*Store)(nil)
