package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synclify/internal/formatter"
	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/repositories"
	"github.com/desertthunder/synclify/internal/services"
	"github.com/desertthunder/synclify/internal/shared"
	"github.com/desertthunder/synclify/internal/tasks"
	"github.com/desertthunder/synclify/internal/ui"
)

// catalogPair resolves the --from and --to catalogs.
func (r *Runner) catalogPair(ctx context.Context, cmd *cli.Command) (source, dest services.PlaylistCatalog, err error) {
	from, err := r.serviceFlag(cmd, "from")
	if err != nil {
		return nil, nil, err
	}
	to, err := r.serviceFlag(cmd, "to")
	if err != nil {
		return nil, nil, err
	}
	if source, err = r.catalog(ctx, from); err != nil {
		return nil, nil, err
	}
	if dest, err = r.catalog(ctx, to); err != nil {
		return nil, nil, err
	}
	return source, dest, nil
}

// SyncRun adds the tracks of a source playlist that the destination playlist lacks.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	if console, ok := r.prompt.(*ui.Console); ok && cmd.Bool("plain") {
		console.Plain = true
	}

	source, dest, err := r.catalogPair(ctx, cmd)
	if err != nil {
		return err
	}

	srcPlaylist, err := r.pickPlaylist(ctx, source, cmd.String("source"), "source")
	if err != nil {
		return err
	}
	if srcPlaylist == nil {
		return fmt.Errorf("%w: source playlist", shared.ErrMissingArgument)
	}

	destPlaylist, err := r.destPlaylist(ctx, cmd, dest, srcPlaylist.Name)
	if err != nil || destPlaylist == nil {
		return err
	}

	store, err := r.openStore()
	if err != nil {
		return err
	}
	cache := repositories.NewCache(store, shared.WithLogger(r.logger, "component", "cache"))
	defer func() {
		if err := cache.Close(); err != nil {
			r.logger.Warn("failed to close resolution cache", "error", err)
		}
	}()

	var runs tasks.RunRecorder
	if r.config.Cache.Backend != "memory" {
		if db, err := r.openDatabase(); err != nil {
			r.logger.Warn("run history unavailable", "error", err)
		} else {
			defer db.Close()
			runs = repositories.NewRunRepository(db)
		}
	}

	exportDir := cmd.String("export-dir")
	if exportDir == "" {
		exportDir = r.config.Export.Dir
	}
	engine := tasks.NewSyncEngine(r.prompt, cache, runs, tasks.SyncOptions{
		Search:         r.search,
		Scorer:         r.scorer(),
		CandidateLimit: r.config.Matching.CandidateLimit,
		BatchSize:      r.config.Throttle.SpotifyAddBatch,
		ExportDir:      exportDir,
		OpenURL:        r.openURL,
	}, r.logger)

	r.writePlainHeader(fmt.Sprintf("%s → %s", source.Service().DisplayName(), dest.Service().DisplayName()))

	progress, done := r.watch()
	result, err := engine.Run(ctx, progress, tasks.SyncRequest{
		Source:         source,
		SourcePlaylist: *srcPlaylist,
		Destination:    dest,
		DestPlaylist:   *destPlaylist,
	})
	close(progress)
	<-done

	if result != nil {
		r.printSyncResult(result)
	}
	return err
}

// pickPlaylist finds the playlist named by query, or asks the user to choose one when query is empty.
func (r *Runner) pickPlaylist(ctx context.Context, catalog services.PlaylistCatalog, query, purpose string) (*models.Playlist, error) {
	manager := r.manager(catalog)
	if query != "" {
		return manager.FindPlaylist(ctx, query)
	}
	return manager.ChoosePlaylist(ctx, purpose)
}

// destPlaylist returns the destination. A playlist without an ID is created by the sync engine.
func (r *Runner) destPlaylist(ctx context.Context, cmd *cli.Command, dest services.PlaylistCatalog, sourceName string) (*models.Playlist, error) {
	if name := cmd.String("create"); name != "" {
		return &models.Playlist{Name: name}, nil
	}

	picked, err := r.pickPlaylist(ctx, dest, cmd.String("dest"), "destination")
	if err != nil || picked != nil {
		return picked, err
	}

	ok, err := r.prompt.Confirm(ctx, fmt.Sprintf("Create a new %s playlist named %q?", dest.Service().DisplayName(), sourceName))
	if err != nil {
		return nil, err
	}
	if !ok {
		r.writePlain("Nothing to do.\n")
		return nil, nil
	}
	return &models.Playlist{Name: sourceName}, nil
}

func (r *Runner) printSyncResult(result *tasks.SyncResult) {
	r.writePlainln("%s", r.palette.Title("Summary"))
	if result.Diff != nil {
		r.writePlain("Missing:    %d of %d (%d already matched)\n",
			len(result.Diff.Missing), len(result.Diff.Source.Tracks), result.Diff.AlreadyMatched)
	}
	if res := result.Resolution; res != nil {
		r.writePlain("Resolved:   %d\n", res.Resolved)
		r.writePlain("Unresolved: %d\n", res.Unresolved)
		if res.Failed > 0 {
			r.writePlain("Failed:     %s\n", r.palette.Err(fmt.Sprint(res.Failed)))
		}
	}
	r.writePlain("Added:      %s to %s\n", r.palette.OK(fmt.Sprint(result.Added)), result.DestPlaylist.Name)
	r.writePlain("Mode:       %s\n", result.Mode)

	if result.ExportPath != "" {
		r.writePlain("%s %d links saved to %s\n", r.palette.Warn("!"), len(result.Pending), result.ExportPath)
	}
	if result.Stopped {
		r.writePlain("%s Stopped before every track was resolved\n", r.palette.Warn("!"))
	}
}

// SyncDiff compares two playlists without changing either.
func (r *Runner) SyncDiff(ctx context.Context, cmd *cli.Command) error {
	source, dest, err := r.catalogPair(ctx, cmd)
	if err != nil {
		return err
	}

	srcPlaylist, err := r.manager(source).FindPlaylist(ctx, cmd.String("source"))
	if err != nil {
		return err
	}
	destPlaylist, err := r.manager(dest).FindPlaylist(ctx, cmd.String("dest"))
	if err != nil {
		return err
	}

	engine := tasks.NewSyncEngine(r.prompt, nil, nil, tasks.SyncOptions{}, r.logger)
	diff, err := engine.Diff(ctx, nil, tasks.SyncRequest{
		Source:         source,
		SourcePlaylist: *srcPlaylist,
		Destination:    dest,
		DestPlaylist:   *destPlaylist,
	})
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		data, err := formatter.DiffToCSV(diff)
		if err != nil {
			return err
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		r.logger.Info("missing tracks written", "path", path, "count", len(diff.Missing))
	}

	if cmd.Bool("json") {
		return r.writeJSON(diff, true)
	}
	return formatter.WriteDiffReport(r.output, diff)
}
