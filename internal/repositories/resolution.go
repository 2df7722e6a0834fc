package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
)

// ResolutionRepository implements models.Repository[*models.Resolution].
type ResolutionRepository struct {
	db *sql.DB
}

// NewResolutionRepository creates a new ResolutionRepository with the given database connection
func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

const resolutionColumns = `id, cache_key, service, identifier, created_at, updated_at`

func (r *ResolutionRepository) Create(res *models.Resolution) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, err := r.db.Exec(`
		INSERT INTO resolutions (`+resolutionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, res.ID(), res.Key, res.Service, res.Identifier, res.CreatedAt(), res.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}
	return nil
}

func (r *ResolutionRepository) Get(id string) (*models.Resolution, error) {
	row := r.db.QueryRow(`SELECT `+resolutionColumns+` FROM resolutions WHERE id = ?`, id)
	res, err := scanResolution(row)
	return res, notFound(err, id)
}

// GetByKey looks a resolution up by its cache key.
func (r *ResolutionRepository) GetByKey(key string) (*models.Resolution, error) {
	row := r.db.QueryRow(`SELECT `+resolutionColumns+` FROM resolutions WHERE cache_key = ?`, key)
	res, err := scanResolution(row)
	return res, notFound(err, key)
}

func (r *ResolutionRepository) Update(res *models.Resolution) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	res.Touch()

	result, err := r.db.Exec(`UPDATE resolutions SET identifier = ?, updated_at = ? WHERE id = ?`,
		res.Identifier, res.UpdatedAt(), res.ID())
	if err != nil {
		return fmt.Errorf("failed to update resolution: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, res.ID())
	}
	return nil
}

// Upsert stores identifier under key, replacing any previous value.
func (r *ResolutionRepository) Upsert(key, identifier string) error {
	res := models.NewResolution(shared.GenerateID(), key, serviceOf(key), identifier)
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, err := r.db.Exec(`
		INSERT INTO resolutions (`+resolutionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET identifier = excluded.identifier, updated_at = excluded.updated_at
	`, res.ID(), res.Key, res.Service, res.Identifier, res.CreatedAt(), res.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to upsert resolution: %w", err)
	}
	return nil
}

func (r *ResolutionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM resolutions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resolution: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// DeleteByKey removes the resolution stored under key.
func (r *ResolutionRepository) DeleteByKey(key string) error {
	res, err := r.GetByKey(key)
	if err != nil {
		return err
	}
	return r.Delete(res.ID())
}

// List returns resolutions ordered by key. Supported criteria: "service" (string), "limit" (int).
func (r *ResolutionRepository) List(criteria map[string]any) ([]*models.Resolution, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions`
	var args []any

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += ` WHERE service = ?`
		args = append(args, service)
	}
	query += ` ORDER BY cache_key`
	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	var out []*models.Resolution
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Count returns the number of resolutions per service.
func (r *ResolutionRepository) Count() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT service, COUNT(*) FROM resolutions GROUP BY service`)
	if err != nil {
		return nil, fmt.Errorf("failed to count resolutions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var service string
		var n int
		if err := rows.Scan(&service, &n); err != nil {
			return nil, err
		}
		counts[service] = n
	}
	return counts, rows.Err()
}

// Clear deletes every resolution, or only those of service when it is not empty.
func (r *ResolutionRepository) Clear(service string) (int64, error) {
	var result sql.Result
	var err error
	if service == "" {
		result, err = r.db.Exec(`DELETE FROM resolutions`)
	} else {
		result, err = r.db.Exec(`DELETE FROM resolutions WHERE service = ?`, service)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to clear resolutions: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResolution(s scanner) (*models.Resolution, error) {
	var id, key, service, identifier string
	var createdAt, updatedAt time.Time
	if err := s.Scan(&id, &key, &service, &identifier, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	return models.RestoreResolution(id, key, service, identifier, createdAt, updatedAt), nil
}

// UpsertAll stores every entry in a single transaction.
func (r *ResolutionRepository) UpsertAll(entries map[string]string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO resolutions (` + resolutionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET identifier = excluded.identifier, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for key, identifier := range entries {
		res := models.NewResolution(shared.GenerateID(), key, serviceOf(key), identifier)
		if err := res.Validate(); err != nil {
			return fmt.Errorf("validation failed for %q: %w", key, err)
		}
		if _, err := stmt.Exec(res.ID(), res.Key, res.Service, res.Identifier, res.CreatedAt(), res.UpdatedAt()); err != nil {
			return fmt.Errorf("failed to upsert resolution: %w", err)
		}
	}
	return tx.Commit()
}
