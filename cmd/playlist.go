package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/services"
	"github.com/desertthunder/synclify/internal/shared"
	"github.com/desertthunder/synclify/internal/tasks"
)

func (r *Runner) manager(catalog services.PlaylistCatalog) *tasks.PlaylistManager {
	return tasks.NewPlaylistManager(catalog, r.prompt, tasks.ManagerOptions{
		Search:             r.search,
		Scorer:             r.scorer(),
		CandidateLimit:     r.config.Matching.CandidateLimit,
		DuplicateThreshold: r.config.Matching.DuplicateThreshold,
		OpenURL:            r.openURL,
	}, shared.WithLogger(r.logger, "service", catalog.Service().String()))
}

// managed resolves --service and --playlist into a manager and a playlist.
// Returns a nil playlist when the user picked nothing.
func (r *Runner) managed(ctx context.Context, cmd *cli.Command, purpose string) (*tasks.PlaylistManager, *models.Playlist, error) {
	service, err := r.serviceFlag(cmd, "service")
	if err != nil {
		return nil, nil, err
	}
	catalog, err := r.catalog(ctx, service)
	if err != nil {
		return nil, nil, err
	}

	manager := r.manager(catalog)
	var pl *models.Playlist
	if query := cmd.String("playlist"); query != "" {
		pl, err = manager.FindPlaylist(ctx, query)
	} else {
		pl, err = manager.ChoosePlaylist(ctx, purpose)
	}
	if err != nil {
		return nil, nil, err
	}
	if pl == nil {
		r.writePlain("No playlist selected.\n")
	}
	return manager, pl, nil
}

// PlaylistList prints the user's playlists.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	service, err := r.serviceFlag(cmd, "service")
	if err != nil {
		return err
	}
	catalog, err := r.catalog(ctx, service)
	if err != nil {
		return err
	}

	playlists, err := catalog.ListPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}
	r.logger.Debug("fetched playlists", "count", len(playlists))

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	rows := make([][]string, len(playlists))
	for i, pl := range playlists {
		rows[i] = []string{pl.ID, pl.Name, strconv.Itoa(pl.TrackCount)}
	}
	return r.prompt.PresentTable(fmt.Sprintf("%s playlists", service.DisplayName()), []string{"ID", "Name", "Tracks"}, rows)
}

// PlaylistSummary counts the tracks of a playlist per artist.
func (r *Runner) PlaylistSummary(ctx context.Context, cmd *cli.Command) error {
	manager, pl, err := r.managed(ctx, cmd, "summary")
	if err != nil || pl == nil {
		return err
	}

	summary, err := manager.ArtistSummary(ctx, pl.ID)
	if err != nil {
		return err
	}

	rows := make([][]string, len(summary))
	for i, a := range summary {
		rows[i] = []string{a.Artist, strconv.Itoa(a.Count)}
	}
	return r.prompt.PresentTable(fmt.Sprintf("Artists in %s", pl.Name), []string{"Artist", "Tracks"}, rows)
}

// PlaylistAdd reads tracks from the prompt and adds what it finds.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	manager, pl, err := r.managed(ctx, cmd, "add tracks")
	if err != nil || pl == nil {
		return err
	}

	result, err := manager.AddInteractive(ctx, pl.ID)
	if result != nil {
		if len(result.Added) > 0 {
			r.writePlain("%s Added %d tracks to %s\n", r.palette.OK("✓"), len(result.Added), pl.Name)
		}
		for _, line := range result.NotFound {
			r.writePlain("%s Not found: %s\n", r.palette.Warn("!"), line)
		}
	}
	return err
}

// PlaylistRemoveArtist removes every track crediting one of the given artists.
func (r *Runner) PlaylistRemoveArtist(ctx context.Context, cmd *cli.Command) error {
	manager, pl, err := r.managed(ctx, cmd, "remove artists")
	if err != nil || pl == nil {
		return err
	}

	artists := cmd.StringSlice("artist")
	if len(artists) == 0 {
		line, err := r.prompt.ReadLine(ctx, "Artists to remove, comma separated")
		if err != nil {
			return err
		}
		artists = strings.Split(line, ",")
	}

	removed, err := manager.RemoveByArtists(ctx, pl.ID, artists)
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		return r.writePlain("No tracks by those artists in %s\n", pl.Name)
	}
	r.printTracks("Removed", removed)
	return r.writePlain("%s Removed %d tracks from %s\n", r.palette.OK("✓"), len(removed), pl.Name)
}

// PlaylistDedupe removes near-duplicate tracks after confirmation.
func (r *Runner) PlaylistDedupe(ctx context.Context, cmd *cli.Command) error {
	if t := cmd.Float("threshold"); t > 0 {
		if t > 1 {
			return fmt.Errorf("%w: --threshold must be in (0, 1]", shared.ErrInvalidArgument)
		}
		r.config.Matching.DuplicateThreshold = t
	}

	manager, pl, err := r.managed(ctx, cmd, "remove duplicates")
	if err != nil || pl == nil {
		return err
	}

	ok, err := r.prompt.Confirm(ctx, fmt.Sprintf("Remove near-duplicate tracks from %s?", pl.Name))
	if err != nil {
		return err
	}
	if !ok {
		return r.writePlain("Nothing removed.\n")
	}

	removed, err := manager.RemoveDuplicates(ctx, pl.ID)
	if len(removed) > 0 {
		r.printTracks("Duplicates", removed)
		r.writePlain("%s Removed %d duplicates from %s\n", r.palette.OK("✓"), len(removed), pl.Name)
	} else if err == nil {
		r.writePlain("No duplicates in %s\n", pl.Name)
	}
	return err
}

// PlaylistBackup writes playlists to disk in the chosen format.
func (r *Runner) PlaylistBackup(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	switch format {
	case "json", "csv", "markdown", "txt":
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	service, err := r.serviceFlag(cmd, "service")
	if err != nil {
		return err
	}
	catalog, err := r.catalog(ctx, service)
	if err != nil {
		return err
	}
	manager := r.manager(catalog)

	all, err := catalog.ListPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}
	playlists := all
	if queries := cmd.StringSlice("playlist"); len(queries) > 0 {
		playlists = playlists[:0:0]
		for _, q := range queries {
			pl, err := tasks.MatchPlaylist(all, q)
			if err != nil {
				return err
			}
			playlists = append(playlists, *pl)
		}
	}
	if len(playlists) == 0 {
		return fmt.Errorf("%w: nothing to back up", shared.ErrPlaylistNotFound)
	}

	progress, done := r.watch()
	result, err := manager.Backup(ctx, progress, playlists, tasks.BackupOptions{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	m := result.Manifest
	r.writePlainln("%s Backed up %d of %d playlists to %s", r.palette.OK("✓"), m.Succeeded, len(playlists), result.OutputDir)
	if m.Failed > 0 {
		r.writePlain("%s %d failed, see %s\n", r.palette.Warn("!"), m.Failed, result.ManifestPath)
	}
	return nil
}

func (r *Runner) printTracks(title string, tracks []models.Track) {
	rows := make([][]string, len(tracks))
	for i, t := range tracks {
		rows[i] = []string{t.Title, t.ArtistLine()}
	}
	if err := r.prompt.PresentTable(title, []string{"Title", "Artists"}, rows); err != nil {
		r.logger.Warn("could not show tracks", "error", err)
	}
}
