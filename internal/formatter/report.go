package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/synclify/internal/models"
)

// DiffToCSV lists missing and extra tracks with a leading Status column.
func DiffToCSV(diff *models.PlaylistDiff) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(append([]string{"Status"}, trackHeaders...)); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, group := range []struct {
		status string
		tracks []models.Track
	}{{"missing", diff.Missing}, {"extra", diff.Extra}} {
		for _, t := range group.tracks {
			if err := writer.Write(append([]string{group.status}, trackRecord(t)...)); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDiffReport writes a plain text summary of a diff.
func WriteDiffReport(w io.Writer, diff *models.PlaylistDiff) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Source: %s (%s, %d tracks)\n", diff.Source.Playlist.Name, diff.Source.Service.DisplayName(), len(diff.Source.Tracks))
	fmt.Fprintf(&buf, "Destination: %s (%s, %d tracks)\n", diff.Destination.Playlist.Name, diff.Destination.Service.DisplayName(), len(diff.Destination.Tracks))
	fmt.Fprintf(&buf, "Already matched: %d\n", diff.AlreadyMatched)
	fmt.Fprintf(&buf, "Missing in destination: %d\n", len(diff.Missing))
	fmt.Fprintf(&buf, "Extra in destination: %d\n", len(diff.Extra))

	section := func(title string, tracks []models.Track) {
		if len(tracks) == 0 {
			return
		}
		fmt.Fprintf(&buf, "\n%s:\n", title)
		for i, t := range tracks {
			fmt.Fprintf(&buf, "  %d. %s - %s\n", i+1, t.ArtistLine(), t.Title)
		}
	}
	section("Missing", diff.Missing)
	section("Extra", diff.Extra)

	_, err := w.Write(buf.Bytes())
	return err
}

// ManifestEntry describes one exported playlist.
type ManifestEntry struct {
	PlaylistID string   `json:"playlist_id"`
	Name       string   `json:"name"`
	Tracks     int      `json:"tracks"`
	Files      []string `json:"files,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Manifest summarizes a playlist backup.
type Manifest struct {
	Service   models.Service  `json:"service"`
	Format    string          `json:"format"`
	CreatedAt time.Time       `json:"created_at"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Entries   []ManifestEntry `json:"entries"`
}

// WriteManifest writes the manifest as JSON.
func WriteManifest(m *Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// SafeName turns a playlist name into something usable as a file name.
func SafeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "playlist"
	}
	return name
}
