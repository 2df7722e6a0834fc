package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/synclify/internal/formatter"
	"github.com/desertthunder/synclify/internal/matching"
	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/services"
	"github.com/desertthunder/synclify/internal/shared"
)

// RunRecorder stores a summary of each sync run.
type RunRecorder interface {
	Create(run *models.SyncRun) error
}

// SyncRequest names both sides of a sync. A destination without an ID is created using its Name.
type SyncRequest struct {
	Source         services.PlaylistCatalog
	SourcePlaylist models.Playlist
	Destination    services.PlaylistCatalog
	DestPlaylist   models.Playlist
}

// SyncOptions tunes a [SyncEngine].
type SyncOptions struct {
	Search         services.CandidateSearch // web fallback, used for YouTube destinations
	Scorer         *matching.Scorer
	CandidateLimit int
	BatchSize      int
	ExportDir      string
	OpenURL        func(url string) error
	Now            func() time.Time
}

// SyncResult is the outcome of [SyncEngine.Run].
type SyncResult struct {
	RunID        string
	Diff         *models.PlaylistDiff
	DestPlaylist models.Playlist
	Resolution   *ResolutionResult
	Added        int
	Pending      []string
	ExportPath   string
	Mode         Mode
	Stopped      bool
}

// SyncEngine runs an add-only sync from one playlist into another.
type SyncEngine struct {
	prompt UserPrompt
	cache  ResolutionCache
	runs   RunRecorder
	opts   SyncOptions
	logger *log.Logger
}

// NewSyncEngine creates a SyncEngine. runs may be nil.
func NewSyncEngine(prompt UserPrompt, cache ResolutionCache, runs RunRecorder, opts SyncOptions, logger *log.Logger) *SyncEngine {
	if opts.Scorer == nil {
		opts.Scorer = matching.NewScorer()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = services.SpotifyBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SyncEngine{prompt: prompt, cache: cache, runs: runs, opts: opts, logger: logger}
}

// Run reads both playlists, resolves what the destination lacks and writes or exports it.
//
// A user stop still writes batched identifiers and the planning file for what was resolved.
// An interrupt returns immediately with an error wrapping [shared.ErrInterrupted].
func (e *SyncEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, req SyncRequest) (*SyncResult, error) {
	if req.Source == nil || req.Destination == nil {
		return nil, fmt.Errorf("%w: source and destination catalogs are required", shared.ErrServiceUnavailable)
	}

	runID := shared.GenerateID()
	logger := shared.WithLogger(e.logger, "run", runID)
	result := &SyncResult{RunID: runID, DestPlaylist: req.DestPlaylist}
	state := NewRunState()
	dest := req.Destination

	sendProgress(progress, fetchSourceUpdate(req.Source.Service(), req.SourcePlaylist.Name))
	source, err := fetchExport(ctx, req.Source, req.SourcePlaylist)
	if err != nil {
		return nil, fmt.Errorf("failed to read source playlist: %w", err)
	}

	var destination models.PlaylistExport
	if req.DestPlaylist.ID == "" {
		created, err := dest.CreatePlaylist(ctx, req.DestPlaylist.Name, fmt.Sprintf("Synced from %s: %s", req.Source.Service().DisplayName(), req.SourcePlaylist.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to create destination playlist: %w", err)
		}
		result.DestPlaylist = *created
		destination = models.PlaylistExport{Service: dest.Service(), Playlist: *created}
		sendProgress(progress, createPlaylistUpdate(created))
	} else {
		sendProgress(progress, fetchDestUpdate(dest.Service(), req.DestPlaylist.Name))
		destination, err = fetchExport(ctx, dest, req.DestPlaylist)
		switch {
		case errors.Is(err, shared.ErrQuotaExceeded):
			ok, perr := e.prompt.Confirm(ctx, fmt.Sprintf("%s quota exhausted while reading the destination. Continue in planning mode with the destination treated as empty?", dest.Service().DisplayName()))
			if perr != nil {
				return result, interrupted(perr)
			}
			if !ok {
				result.Stopped = true
				logger.Warn("stopped after quota exhaustion while reading destination")
				return result, nil
			}
			state.EnablePlanning()
			destination = models.PlaylistExport{Service: dest.Service(), Playlist: req.DestPlaylist}
			logger.Warn("planning mode enabled, destination treated as empty")
		case err != nil:
			return nil, fmt.Errorf("failed to read destination playlist: %w", err)
		}
	}

	diff := compare(source, destination)
	result.Diff = diff
	sendProgress(progress, compareUpdate(diff))
	logger.Info("compared playlists",
		"source", len(diff.Source.Tracks), "destination", len(diff.Destination.Tracks),
		"matched", diff.AlreadyMatched, "missing", len(diff.Missing))

	engine := NewResolutionEngine(dest, e.prompt, e.cache, EngineOptions{
		PlaylistID:     result.DestPlaylist.ID,
		Search:         e.searchFor(dest.Service()),
		Scorer:         e.opts.Scorer,
		CandidateLimit: e.opts.CandidateLimit,
		Batched:        dest.Service() == models.Spotify,
		State:          state,
		OpenURL:        e.opts.OpenURL,
	}, logger)

	resolution, err := engine.Resolve(ctx, diff.Missing, progress)
	result.Resolution = resolution
	result.Stopped = resolution.Stopped
	result.Added = resolution.Inserted
	if err != nil {
		result.Mode = state.Mode()
		logger.Warn("run interrupted, nothing exported", "resolved", resolution.Resolved)
		return result, err
	}

	if err := e.writeBatched(ctx, progress, dest, result, state, logger); err != nil {
		return result, err
	}

	result.Mode = state.Mode()
	result.Pending = state.PendingExports
	if len(state.PendingExports) > 0 {
		path, err := formatter.WritePendingExport(e.opts.ExportDir, dest.Service(), state.PendingExports, e.opts.Now())
		if err != nil {
			return result, fmt.Errorf("failed to write planning file: %w", err)
		}
		result.ExportPath = path
		sendProgress(progress, exportPendingUpdate(path, len(state.PendingExports)))
		logger.Info("planning file written", "path", path, "links", len(state.PendingExports))
	}

	e.record(req, result, logger)
	return result, nil
}

// writeBatched adds identifiers collected by the engine in batches.
// In planning mode the batch is queued for export. After a quota failure the user decides between
// queueing the remainder and stopping without it.
func (e *SyncEngine) writeBatched(ctx context.Context, progress chan<- ProgressUpdate, dest services.PlaylistCatalog, result *SyncResult, state *RunState, logger *log.Logger) error {
	ids := result.Resolution.Batched
	if len(ids) == 0 {
		return nil
	}
	if state.Mode() == ModePlanning {
		state.PendingExports = append(append([]string(nil), ids...), state.PendingExports...)
		return nil
	}

	for start := 0; start < len(ids); start += e.opts.BatchSize {
		end := min(start+e.opts.BatchSize, len(ids))
		err := dest.AddIdentifiers(ctx, result.DestPlaylist.ID, ids[start:end])
		switch {
		case err == nil:
			result.Added += end - start
			sendProgress(progress, addTracksUpdate(result.Added, len(ids)))
		case errors.Is(err, shared.ErrQuotaExceeded):
			remaining := len(ids) - start
			logger.Warn("quota exhausted during batched add", "remaining", remaining)
			ok, perr := e.prompt.Confirm(ctx, fmt.Sprintf("%s quota exhausted while adding tracks. Switch to planning mode and export the remaining %d links to add later?", dest.Service().DisplayName(), remaining))
			if perr != nil {
				return interrupted(perr)
			}
			if !ok {
				result.Stopped = true
				logger.Warn("stopped after quota exhaustion during batched add", "dropped", remaining)
				return nil
			}
			state.EnablePlanning()
			state.PendingExports = append(state.PendingExports, ids[start:]...)
			return nil
		case isCancellation(err):
			return interrupted(err)
		default:
			return fmt.Errorf("failed to add tracks: %w", err)
		}
	}
	logger.Info("added tracks", "count", result.Added, "playlist", result.DestPlaylist.ID)
	return nil
}

func (e *SyncEngine) searchFor(service models.Service) services.CandidateSearch {
	if service != models.YouTube {
		return nil
	}
	return e.opts.Search
}

func (e *SyncEngine) record(req SyncRequest, result *SyncResult, logger *log.Logger) {
	if e.runs == nil {
		return
	}

	run := models.NewSyncRun(result.RunID)
	run.SourceService, run.SourcePlaylist = req.Source.Service().String(), req.SourcePlaylist.Name
	run.DestService, run.DestPlaylist = req.Destination.Service().String(), result.DestPlaylist.Name
	run.Missing = len(result.Diff.Missing)
	run.Resolved = result.Resolution.Resolved
	run.Unresolved = result.Resolution.Unresolved
	run.Pending = len(result.Pending)
	run.Mode = result.Mode.String()
	run.ExportPath = result.ExportPath
	if run.SourcePlaylist == "" {
		run.SourcePlaylist = req.SourcePlaylist.ID
	}
	if run.DestPlaylist == "" {
		run.DestPlaylist = result.DestPlaylist.ID
	}

	if err := e.runs.Create(run); err != nil {
		logger.Warn("failed to record run", "err", err)
	}
}

// Diff compares two playlists without resolving or writing anything.
func (e *SyncEngine) Diff(ctx context.Context, progress chan<- ProgressUpdate, req SyncRequest) (*models.PlaylistDiff, error) {
	if req.Source == nil || req.Destination == nil {
		return nil, fmt.Errorf("%w: source and destination catalogs are required", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, fetchSourceUpdate(req.Source.Service(), req.SourcePlaylist.Name))
	source, err := fetchExport(ctx, req.Source, req.SourcePlaylist)
	if err != nil {
		return nil, fmt.Errorf("failed to read source playlist: %w", err)
	}

	sendProgress(progress, fetchDestUpdate(req.Destination.Service(), req.DestPlaylist.Name))
	destination, err := fetchExport(ctx, req.Destination, req.DestPlaylist)
	if err != nil {
		return nil, fmt.Errorf("failed to read destination playlist: %w", err)
	}

	diff := compare(source, destination)
	sendProgress(progress, compareUpdate(diff))
	return diff, nil
}

func fetchExport(ctx context.Context, catalog services.PlaylistCatalog, pl models.Playlist) (models.PlaylistExport, error) {
	tracks, err := catalog.GetTracks(ctx, pl.ID)
	if err != nil {
		return models.PlaylistExport{}, err
	}
	return models.PlaylistExport{Service: catalog.Service(), Playlist: pl, Tracks: tracks}, nil
}

// compare deduplicates both sides and reconciles them.
func compare(source, destination models.PlaylistExport) *models.PlaylistDiff {
	source.Tracks = matching.Dedupe(source.Tracks)
	destination.Tracks = matching.Dedupe(destination.Tracks)

	missing, matched := matching.Reconcile(source.Tracks, destination.Tracks)
	return &models.PlaylistDiff{
		Source:         source,
		Destination:    destination,
		Missing:        missing,
		Extra:          matching.Extra(source.Tracks, destination.Tracks),
		AlreadyMatched: matched,
	}
}
