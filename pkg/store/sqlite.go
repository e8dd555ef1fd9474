package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ritzau/siteflow/pkg/model"
)

// SQLiteStore persists projects in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database at the given path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		graph       TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create projects table: %w", err)
	}
	return nil
}

// Save stores a new project record with a fresh id.
func (s *SQLiteStore) Save(ctx context.Context, title, description string, g model.Graph) (*Project, error) {
	normalized, err := model.Normalize(&g)
	if err != nil {
		return nil, err
	}
	blob, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}

	now := time.Now().UTC()
	project := &Project{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Graph:       normalized,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, title, description, graph, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		project.ID, project.Title, project.Description, string(blob), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return project, nil
}

// Get retrieves a project by id, or (nil, nil) when it does not exist.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, graph, created_at, updated_at
		 FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

// Update applies a partial update and returns the stored record, or
// (nil, nil) when it does not exist.
func (s *SQLiteStore) Update(ctx context.Context, id string, update ProjectUpdate) (*Project, error) {
	current, err := s.Get(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}

	if update.Title != nil {
		current.Title = *update.Title
	}
	if update.Description != nil {
		current.Description = *update.Description
	}
	if update.Graph != nil {
		normalized, err := model.Normalize(update.Graph)
		if err != nil {
			return nil, err
		}
		current.Graph = normalized
	}
	current.UpdatedAt = time.Now().UTC()

	blob, err := json.Marshal(current.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE projects SET title = ?, description = ?, graph = ?, updated_at = ? WHERE id = ?`,
		current.Title, current.Description, string(blob), current.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return current, nil
}

// Delete removes a project and reports whether a record existed.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// List returns all projects, most recently updated first.
func (s *SQLiteStore) List(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, graph, created_at, updated_at
		 FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var project Project
	var blob string
	err := row.Scan(&project.ID, &project.Title, &project.Description,
		&blob, &project.CreatedAt, &project.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	if err := json.Unmarshal([]byte(blob), &project.Graph); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return &project, nil
}
