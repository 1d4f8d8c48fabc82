package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"renoline/internal/domain"
)

// Store persists each project as a single document row. Mutations rewrite
// the whole aggregate under an optimistic version check, which is what makes
// concurrent read-modify-write cycles per project id safe.
type Store struct {
	DB *sql.DB
}

var (
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")
)

func (s Store) InsertProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return domain.Project{}, fmt.Errorf("marshal project: %w", err)
	}
	p.Version = 1
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.DB.ExecContext(ctx, `INSERT INTO projects(id,doc,version,updated_at) VALUES (?,?,?,?)`,
		p.ID, string(doc), p.Version, now)
	if err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

func (s Store) LoadProject(ctx context.Context, id string) (domain.Project, error) {
	var doc string
	var version int64
	err := s.DB.QueryRowContext(ctx, `SELECT doc,version FROM projects WHERE id=?`, id).Scan(&doc, &version)
	if err == sql.ErrNoRows {
		return domain.Project{}, ErrNotFound
	}
	if err != nil {
		return domain.Project{}, err
	}
	var p domain.Project
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return domain.Project{}, fmt.Errorf("unmarshal project %s: %w", id, err)
	}
	p.Version = version
	return p, nil
}

// SaveProject rewrites the aggregate if and only if the stored version still
// matches the one the caller loaded. The new aggregate value is fully built
// before this call, so a failed save leaves the prior state intact.
func (s Store) SaveProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return domain.Project{}, fmt.Errorf("marshal project: %w", err)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx, `SELECT version FROM projects WHERE id=?`, p.ID).Scan(&current)
	if err == sql.ErrNoRows {
		return domain.Project{}, ErrNotFound
	}
	if err != nil {
		return domain.Project{}, err
	}
	if current != p.Version {
		return domain.Project{}, ErrVersionConflict
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := tx.ExecContext(ctx, `UPDATE projects SET doc=?, version=?, updated_at=? WHERE id=? AND version=?`,
		string(doc), p.Version+1, now, p.ID, p.Version)
	if err != nil {
		return domain.Project{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Project{}, ErrVersionConflict
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	p.Version++
	return p, nil
}

func (s Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT doc,version FROM projects ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var doc string
		var version int64
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, err
		}
		var p domain.Project
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("unmarshal project: %w", err)
		}
		p.Version = version
		res = append(res, p)
	}
	return res, rows.Err()
}
