package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/synclify/internal/models"
)

// RunRepository implements models.Repository[*models.SyncRun].
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, source_service, source_playlist, dest_service, dest_playlist, missing, resolved, unresolved, pending, mode, export_path, created_at`

func (r *RunRepository) Create(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	_, err := r.db.Exec(`INSERT INTO sync_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID(), run.SourceService, run.SourcePlaylist, run.DestService, run.DestPlaylist,
		run.Missing, run.Resolved, run.Unresolved, run.Pending, run.Mode, run.ExportPath, run.CreatedAt())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("run %s already recorded: %w", run.ID(), err)
		}
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) Get(id string) (*models.SyncRun, error) {
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM sync_runs WHERE id = ?`, id))
	return run, notFound(err, id)
}

// Update rewrites the counters and export path of a run.
func (r *RunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	result, err := r.db.Exec(`
		UPDATE sync_runs SET missing = ?, resolved = ?, unresolved = ?, pending = ?, mode = ?, export_path = ?
		WHERE id = ?
	`, run.Missing, run.Resolved, run.Unresolved, run.Pending, run.Mode, run.ExportPath, run.ID())
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID())
	}
	return nil
}

func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sync_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// List returns runs newest first. Supported criteria: "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs ORDER BY created_at DESC`
	var args []any
	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRun(s scanner) (*models.SyncRun, error) {
	var id string
	var exportPath sql.NullString
	var createdAt time.Time
	var run models.SyncRun
	err := s.Scan(&id, &run.SourceService, &run.SourcePlaylist, &run.DestService, &run.DestPlaylist,
		&run.Missing, &run.Resolved, &run.Unresolved, &run.Pending, &run.Mode, &exportPath, &createdAt)
	if err != nil {
		return nil, err
	}

	restored := models.RestoreSyncRun(id, createdAt)
	restored.SourceService, restored.SourcePlaylist = run.SourceService, run.SourcePlaylist
	restored.DestService, restored.DestPlaylist = run.DestService, run.DestPlaylist
	restored.Missing, restored.Resolved, restored.Unresolved, restored.Pending = run.Missing, run.Resolved, run.Unresolved, run.Pending
	restored.Mode, restored.ExportPath = run.Mode, exportPath.String
	return restored, nil
}
