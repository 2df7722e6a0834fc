package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/synclify/internal/formatter"
	"github.com/desertthunder/synclify/internal/models"
)

// BackupOptions configures [PlaylistManager.Backup].
type BackupOptions struct {
	Format     string  // json, csv, markdown or txt
	OutputDir  string  // default: <service>_backup_<epoch>
	NumWorkers int     // concurrent writers (default 4, max 10)
	RateLimit  float64 // playlist reads per second (default 5)
}

// BackupResult reports where a backup was written.
type BackupResult struct {
	OutputDir    string
	ManifestPath string
	Manifest     *formatter.Manifest
}

// Backup saves the tracks of several playlists to disk, one file set per playlist, plus a manifest.
//
// Reads are rate limited and happen on one goroutine; writers run in a small pool.
// A failing playlist is recorded in the manifest and does not stop the others.
func (m *PlaylistManager) Backup(ctx context.Context, progress chan<- ProgressUpdate, playlists []models.Playlist, opts BackupOptions) (*BackupResult, error) {
	service := m.catalog.Service()
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("%s_backup_%d", service, time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.Format == "" {
		opts.Format = "json"
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(playlists)
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.PlaylistExport, total)
	results := make(chan formatter.ManifestEntry, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- writeBackup(job, opts)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, pl := range playlists {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			sendProgress(progress, backupStartedUpdate(i+1, total, pl.Name))

			tracks, err := m.catalog.GetTracks(ctx, pl.ID)
			if err != nil {
				results <- formatter.ManifestEntry{PlaylistID: pl.ID, Name: pl.Name, Error: fmt.Sprintf("failed to fetch playlist: %v", err)}
				continue
			}
			jobs <- models.PlaylistExport{Service: service, Playlist: pl, Tracks: tracks}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	manifest := &formatter.Manifest{Service: service, Format: opts.Format, CreatedAt: time.Now().UTC()}
	completed := 0
	for entry := range results {
		completed++
		manifest.Entries = append(manifest.Entries, entry)
		if entry.Error == "" {
			manifest.Succeeded++
			sendProgress(progress, backupCompletedUpdate(completed, total, entry.Name, len(entry.Files)))
		} else {
			manifest.Failed++
			sendProgress(progress, backupFailedUpdate(completed, total, entry.Name, fmt.Errorf("%s", entry.Error)))
			m.logger.Warn("playlist backup failed", "playlist", entry.Name, "err", entry.Error)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, interrupted(err)
	}

	result := &BackupResult{OutputDir: opts.OutputDir, Manifest: manifest}
	manifestPath := filepath.Join(opts.OutputDir, "backup_manifest.json")
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("backup completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// writeBackup writes one playlist in the requested format.
func writeBackup(export models.PlaylistExport, opts BackupOptions) formatter.ManifestEntry {
	entry := formatter.ManifestEntry{
		PlaylistID: export.Playlist.ID,
		Name:       export.Playlist.Name,
		Tracks:     len(export.Tracks),
	}
	base := filepath.Join(opts.OutputDir, formatter.SafeName(export.Playlist.Name)+"_"+export.Playlist.ID)

	switch opts.Format {
	case "csv":
		res, err := formatter.WriteCSVExport(&export, base)
		if err != nil {
			entry.Error = fmt.Sprintf("CSV export failed: %v", err)
			return entry
		}
		entry.Files = []string{res.TracksFile, res.MetadataFile}
	case "markdown":
		path, err := formatter.WriteMarkdownExport(&export, base)
		if err != nil {
			entry.Error = fmt.Sprintf("markdown export failed: %v", err)
			return entry
		}
		entry.Files = []string{path}
	case "txt":
		path, err := formatter.WriteTextExport(&export, base+"_tracks.txt")
		if err != nil {
			entry.Error = fmt.Sprintf("text export failed: %v", err)
			return entry
		}
		entry.Files = []string{path}
	default:
		path, err := formatter.WriteJSONExport(&export, base+".json")
		if err != nil {
			entry.Error = fmt.Sprintf("JSON export failed: %v", err)
			return entry
		}
		entry.Files = []string{path}
	}
	return entry
}
