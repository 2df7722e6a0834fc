package formatter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/synclify/internal/models"
	th "github.com/desertthunder/synclify/internal/testing"
)

func testDiff() *models.PlaylistDiff {
	return &models.PlaylistDiff{
		Source: models.PlaylistExport{
			Service:  models.Spotify,
			Playlist: models.Playlist{Name: "Road Trip"},
			Tracks:   make([]models.Track, 3),
		},
		Destination: models.PlaylistExport{
			Service:  models.YouTube,
			Playlist: models.Playlist{Name: "Road Trip YT"},
			Tracks:   make([]models.Track, 2),
		},
		Missing:        []models.Track{{Service: models.Spotify, ExternalID: "s1", Title: "Alpha", Artists: []string{"Band"}}},
		Extra:          []models.Track{{Service: models.YouTube, ExternalID: "y1", Title: "Omega", Artists: []string{"Other"}}},
		AlreadyMatched: 2,
	}
}

func TestDiffReports(t *testing.T) {
	t.Run("DiffToCSV", func(t *testing.T) {
		data, err := DiffToCSV(testDiff())
		if err != nil {
			t.Fatalf("DiffToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if lines[0] != "Status,Service,ID,URI,Title,Artists" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if !strings.HasPrefix(lines[1], "missing,spotify,s1") || !strings.HasPrefix(lines[2], "extra,youtube,y1") {
			t.Errorf("unexpected rows %v", lines[1:])
		}
	})

	t.Run("WriteDiffReport", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteDiffReport(&buf, testDiff()); err != nil {
			t.Fatalf("WriteDiffReport failed: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Source: Road Trip (Spotify, 3 tracks)",
			"Destination: Road Trip YT (YouTube Music, 2 tracks)",
			"Already matched: 2",
			"Missing:\n  1. Band - Alpha",
			"Extra:\n  1. Other - Omega",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("report missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("WriteDiffReport Write Error", func(t *testing.T) {
		if err := WriteDiffReport(&th.FWriter{}, testDiff()); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("WriteDiffReport Nothing Missing", func(t *testing.T) {
		diff := testDiff()
		diff.Missing, diff.Extra = nil, nil

		var buf bytes.Buffer
		if err := WriteDiffReport(&buf, diff); err != nil {
			t.Fatalf("WriteDiffReport failed: %v", err)
		}
		if strings.Contains(buf.String(), "Missing:") {
			t.Errorf("expected no missing section, got: %s", buf.String())
		}
	})
}

func TestManifest(t *testing.T) {
	m := &Manifest{
		Service:   models.YouTube,
		Format:    "json",
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Succeeded: 1,
		Failed:    1,
		Entries: []ManifestEntry{
			{PlaylistID: "PL1", Name: "Road Trip", Tracks: 3, Files: []string{"a.json"}},
			{PlaylistID: "PL2", Name: "Broken", Error: "failed to fetch playlist: boom"},
		},
	}

	path := t.TempDir() + "/manifest.json"
	if err := WriteManifest(m, path); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	content := th.MustReadFile(t, path)
	for _, want := range []string{`"service": "youtube"`, `"succeeded": 1`, `"playlist_id": "PL2"`, `"error": "failed to fetch playlist: boom"`} {
		if !strings.Contains(content, want) {
			t.Errorf("manifest missing %s, got: %s", want, content)
		}
	}
}

func TestSafeName(t *testing.T) {
	tc := []struct {
		in   string
		want string
	}{
		{"Road Trip", "Road Trip"},
		{"AC/DC: Best?", "AC_DC_ Best_"},
		{"  ", "playlist"},
	}

	for _, tt := range tc {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPendingExport(t *testing.T) {
	now := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	t.Run("Filename", func(t *testing.T) {
		if got := PendingFilename(models.YouTube, now); got != "youtube_pending_add_20240131_235959.txt" {
			t.Errorf("unexpected filename %s", got)
		}
	})

	t.Run("Writes One Link Per Line", func(t *testing.T) {
		dir := t.TempDir() + "/out"
		path, err := WritePendingExport(dir, models.YouTube, []string{"dQw4w9WgXcQ", "https://music.youtube.com/watch?v=abcdefghijk"}, now)
		if err != nil {
			t.Fatalf("WritePendingExport failed: %v", err)
		}

		want := "https://music.youtube.com/watch?v=dQw4w9WgXcQ\nhttps://music.youtube.com/watch?v=abcdefghijk\n"
		if got := th.MustReadFile(t, path); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("Spotify Links", func(t *testing.T) {
		path, err := WritePendingExport(t.TempDir(), models.Spotify, []string{"spotify:track:4uLU6hMCjMI75M1A2tKUQC"}, now)
		if err != nil {
			t.Fatalf("WritePendingExport failed: %v", err)
		}
		if got := th.MustReadFile(t, path); got != "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC\n" {
			t.Errorf("unexpected contents %q", got)
		}
	})

	t.Run("Nothing To Export", func(t *testing.T) {
		if _, err := WritePendingExport(t.TempDir(), models.YouTube, nil, now); err == nil {
			t.Error("expected error for empty export")
		}
	})
}
