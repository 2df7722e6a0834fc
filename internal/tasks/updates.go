package tasks

import (
	"fmt"

	"github.com/desertthunder/synclify/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	FetchDest
	Compare
	CreatePlaylist
	ResolveTracks
	AddTracks
	ExportPending
	BackupPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case FetchDest:
		return "fetch_dest"
	case Compare:
		return "compare"
	case CreatePlaylist:
		return "create_playlist"
	case ResolveTracks:
		return "resolve_tracks"
	case AddTracks:
		return "add_tracks"
	case ExportPending:
		return "export_pending"
	case BackupPlaylist:
		return "backup_playlist"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchSourceUpdate(service models.Service, playlist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Fetching source playlist %q from %s...", playlist, service.DisplayName()),
	}
}

func fetchDestUpdate(service models.Service, playlist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDest,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Fetching destination playlist %q from %s...", playlist, service.DisplayName()),
	}
}

func compareUpdate(diff *models.PlaylistDiff) ProgressUpdate {
	return ProgressUpdate{
		Phase: Compare,
		Step:  1,
		Total: 1,
		Message: fmt.Sprintf("Source %d, destination %d, already present %d, missing %d",
			len(diff.Source.Tracks), len(diff.Destination.Tracks), len(diff.Source.Tracks)-len(diff.Missing), len(diff.Missing)),
		Data: diff,
	}
}

func createPlaylistUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", pl.Name, pl.ID),
		Data:    pl,
	}
}

func resolveTrackUpdate(step, total int, t models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, displayTrack(t)),
	}
}

func addTracksUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Added %d/%d tracks", step, total),
	}
}

func exportPendingUpdate(path string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPending,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Planning file written: %s (%d links)", path, count),
		Data:    path,
	}
}

func backupStartedUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BackupPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func backupCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BackupPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func backupFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BackupPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
