package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
	"github.com/Guilhem-Bonnet/termin-watch/internal/ports"
)

type ResourcesRepository struct {
	db *sql.DB
}

func NewResourcesRepository(db *sql.DB) *ResourcesRepository {
	return &ResourcesRepository{db: db}
}

const resourceColumns = `id, name, service_url, fetch_target, created_at, updated_at`

func (r *ResourcesRepository) Create(ctx context.Context, res domain.Resource) (domain.Resource, error) {
	now := time.Now().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	if res.UpdatedAt.IsZero() {
		res.UpdatedAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resources(`+resourceColumns+`)
		VALUES(?, ?, ?, ?, ?, ?)
	`,
		res.ID, res.Name, res.ServiceURL, res.FetchTarget,
		res.CreatedAt.UTC().Format(time.RFC3339), res.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		// modernc.org/sqlite: "constraint failed: UNIQUE constraint failed: resources.id (1555)"
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "constraint failed") && strings.Contains(msg, "resources.id") {
			return domain.Resource{}, ports.ErrConflict
		}
		return domain.Resource{}, err
	}
	return r.Get(ctx, res.ID)
}

// Upsert crée la ressource ou met à jour nom/URLs en gardant created_at.
func (r *ResourcesRepository) Upsert(ctx context.Context, res domain.Resource) (domain.Resource, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resources(`+resourceColumns+`)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			service_url = excluded.service_url,
			fetch_target = excluded.fetch_target,
			updated_at = excluded.updated_at
	`, res.ID, res.Name, res.ServiceURL, res.FetchTarget, now, now)
	if err != nil {
		return domain.Resource{}, err
	}
	return r.Get(ctx, res.ID)
}

func (r *ResourcesRepository) Get(ctx context.Context, id string) (domain.Resource, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	res, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Resource{}, ports.ErrNotFound
		}
		return domain.Resource{}, err
	}
	return res, nil
}

// List renvoie toutes les ressources suivies, par id.
func (r *ResourcesRepository) List(ctx context.Context) ([]domain.Resource, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *ResourcesRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResource(s scanner) (domain.Resource, error) {
	var res domain.Resource
	var created, updated string
	if err := s.Scan(&res.ID, &res.Name, &res.ServiceURL, &res.FetchTarget, &created, &updated); err != nil {
		return domain.Resource{}, err
	}
	if t, err := time.Parse(time.RFC3339, created); err == nil {
		res.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updated); err == nil {
		res.UpdatedAt = t
	}
	return res, nil
}
