// Package store persists annotation sets in a SQLite database, one set per
// diagram. It is the save sink for editor sessions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ironsheep/annotated-diagram-mcp/internal/annotation"
)

// ErrNotFound is returned when no set is stored under a diagram ID.
var ErrNotFound = errors.New("annotation set not found")

const schema = `
CREATE TABLE IF NOT EXISTS annotation_sets (
	diagram_id  TEXT PRIMARY KEY,
	src         TEXT NOT NULL DEFAULT '',
	width       DOUBLE NOT NULL,
	height      DOUBLE NOT NULL,
	annotations TEXT NOT NULL,
	updated_at  INTEGER NOT NULL
);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// Set is the saved state of one diagram.
type Set struct {
	DiagramID   string
	Src         string
	Width       float64
	Height      float64
	Annotations []annotation.Annotation
	UpdatedAt   time.Time
}

// Summary describes a stored set without its annotations.
type Summary struct {
	DiagramID string    `json:"diagramId"`
	Src       string    `json:"src"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is a handle on the database. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and ensures the schema exists.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces the set for set.DiagramID and returns the stored
// timestamp.
func (s *Store) Save(ctx context.Context, set Set) (time.Time, error) {
	if set.DiagramID == "" {
		return time.Time{}, errors.New("diagram id is required")
	}
	data, err := annotation.Marshal(set.Annotations)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to encode annotations: %w", err)
	}
	at := s.now().UTC().Truncate(time.Millisecond)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO annotation_sets (diagram_id, src, width, height, annotations, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(diagram_id) DO UPDATE SET
			src = excluded.src,
			width = excluded.width,
			height = excluded.height,
			annotations = excluded.annotations,
			updated_at = excluded.updated_at`,
		set.DiagramID, set.Src, set.Width, set.Height, string(data), at.UnixMilli())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to save annotation set %q: %w", set.DiagramID, err)
	}
	return at, nil
}

// Load returns the set stored for diagramID.
func (s *Store) Load(ctx context.Context, diagramID string) (*Set, error) {
	var (
		set  = Set{DiagramID: diagramID}
		data string
		at   int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT src, width, height, annotations, updated_at FROM annotation_sets WHERE diagram_id = ?`,
		diagramID).Scan(&set.Src, &set.Width, &set.Height, &data, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, diagramID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load annotation set %q: %w", diagramID, err)
	}
	set.Annotations, err = annotation.Unmarshal([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode annotation set %q: %w", diagramID, err)
	}
	set.UpdatedAt = time.UnixMilli(at).UTC()
	return &set, nil
}

// List returns every stored set, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT diagram_id, src, width, height, annotations, updated_at
		 FROM annotation_sets ORDER BY updated_at DESC, diagram_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list annotation sets: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum  Summary
			data string
			at   int64
		)
		if err := rows.Scan(&sum.DiagramID, &sum.Src, &sum.Width, &sum.Height, &data, &at); err != nil {
			return nil, fmt.Errorf("failed to read annotation set: %w", err)
		}
		if list, err := annotation.Unmarshal([]byte(data)); err == nil {
			sum.Count = len(list)
		}
		sum.UpdatedAt = time.UnixMilli(at).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list annotation sets: %w", err)
	}
	return out, nil
}

// Delete removes the set stored for diagramID.
func (s *Store) Delete(ctx context.Context, diagramID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM annotation_sets WHERE diagram_id = ?`, diagramID)
	if err != nil {
		return fmt.Errorf("failed to delete annotation set %q: %w", diagramID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, diagramID)
	}
	return nil
}
