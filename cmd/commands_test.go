package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/synclify/internal/matching"
	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
	tu "github.com/desertthunder/synclify/internal/testing"
)

const videoID = "dQw4w9WgXcQ"

func track(service models.Service, id, title string, artists ...string) models.Track {
	return models.Track{Service: service, ExternalID: id, Title: title, Artists: artists}
}

// seedSync puts Alpha and Beta on Spotify PL1 and only Alpha on YouTube PL2.
func (h *harness) seedSync() {
	h.spotify.Playlists = []models.Playlist{{ID: "PL1", Name: "Road Trip", TrackCount: 2}}
	h.spotify.Tracks["PL1"] = []models.Track{
		track(models.Spotify, "a", "Alpha", "Band"),
		track(models.Spotify, "b", "Beta", "Band"),
	}
	h.youtube.Playlists = []models.Playlist{{ID: "PL2", Name: "Road Trip", TrackCount: 1}}
	h.youtube.Tracks["PL2"] = []models.Track{track(models.YouTube, "aaaaaaaaaaa", "Alpha (Official Video)", "Band")}
	h.youtube.Results["Beta"] = videoID
}

func TestSyncCommands(t *testing.T) {
	t.Run("run", func(t *testing.T) {
		h := newHarness(t)
		h.seedSync()

		if err := h.run("sync", "run", "--source", "PL1", "--dest", "PL2"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := h.youtube.Added["PL2"]; len(got) != 1 || got[0] != videoID {
			t.Errorf("expected %s added to PL2, got %v", videoID, got)
		}
		out := h.out.String()
		for _, want := range []string{"Spotify → YouTube Music", "Missing:    1 of 2", "Added:      1 to Road Trip"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}

		t.Run("caches resolution", func(t *testing.T) {
			h.out.Reset()
			if err := h.run("cache", "get", "--service", "youtube", "--title", "Beta", "--artist", "Band"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(h.out.String(), videoID) {
				t.Errorf("expected cached id in output, got %q", h.out.String())
			}
		})

		t.Run("records history", func(t *testing.T) {
			if err := h.run("history"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			rows := h.prompt.Rows[len(h.prompt.Rows)-1]
			if len(rows) != 1 {
				t.Fatalf("expected one run, got %d", len(rows))
			}
			if rows[0][1] != "spotify:Road Trip" || rows[0][6] != "normal" {
				t.Errorf("unexpected history row %v", rows[0])
			}
		})
	})

	t.Run("run creates destination", func(t *testing.T) {
		h := newHarness(t)
		h.seedSync()
		h.youtube.Results["Alpha"] = "bbbbbbbbbbb"

		if err := h.run("sync", "run", "--source", "Road Trip", "--create", "Copy"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(h.youtube.Created) != 1 || h.youtube.Created[0].Name != "Copy" {
			t.Fatalf("expected playlist Copy to be created, got %v", h.youtube.Created)
		}
		if got := h.youtube.Added["created-1"]; len(got) != 2 {
			t.Errorf("expected both tracks added, got %v", got)
		}
	})

	t.Run("run offers to create when nothing picked", func(t *testing.T) {
		h := newHarness(t)
		h.seedSync()
		h.config.Cache.Backend = "memory"
		h.prompt.Choices = []int{1, 0}
		h.prompt.Confirms = []bool{false}

		if err := h.run("sync", "run"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(h.prompt.ConfirmCalls) != 1 || !strings.Contains(h.prompt.ConfirmCalls[0], `"Road Trip"`) {
			t.Errorf("expected create confirmation, got %v", h.prompt.ConfirmCalls)
		}
		if len(h.youtube.Created) != 0 || len(h.youtube.AddCalls) != 0 {
			t.Error("expected no changes after declining")
		}
	})

	t.Run("run planning export", func(t *testing.T) {
		h := newHarness(t)
		h.seedSync()
		h.config.Cache.Backend = "memory"
		delete(h.youtube.Results, "Beta")
		h.youtube.SearchErrs["Beta"] = shared.NewRemoteError(shared.KindQuotaExceeded, "youtube", "search", errors.New("quotaExceeded"))
		h.prompt.Choices = []int{3}
		h.prompt.Lines = []string{"https://music.youtube.com/watch?v=" + videoID}

		exportDir := filepath.Join(h.dir, "pending")
		if err := h.run("sync", "run", "--source", "PL1", "--dest", "PL2", "--export-dir", exportDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entries, err := os.ReadDir(exportDir)
		if err != nil || len(entries) != 1 {
			t.Fatalf("expected one export file, got %v (%v)", entries, err)
		}
		if !strings.Contains(h.out.String(), "Mode:       planning") {
			t.Errorf("expected planning mode in summary, got:\n%s", h.out.String())
		}
	})

	t.Run("run unknown service", func(t *testing.T) {
		h := newHarness(t)

		err := h.run("sync", "run", "--from", "tidal")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("diff", func(t *testing.T) {
		h := newHarness(t)
		h.seedSync()
		csvPath := filepath.Join(h.dir, "reports", "missing.csv")

		if err := h.run("sync", "diff", "--source", "PL1", "--dest", "PL2", "--output", csvPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := h.out.String()
		if !strings.Contains(out, "Missing in destination: 1") || !strings.Contains(out, "Band - Beta") {
			t.Errorf("unexpected report:\n%s", out)
		}
		tu.AssertFileExists(t, csvPath)
		if len(h.youtube.AddCalls) != 0 {
			t.Error("expected diff to leave the destination alone")
		}
	})

	t.Run("diff json", func(t *testing.T) {
		h := newHarness(t)
		h.seedSync()

		if err := h.run("sync", "diff", "--source", "PL1", "--dest", "PL2", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.out.String(), `"already_matched": 1`) {
			t.Errorf("expected JSON diff, got %s", h.out.String())
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	seed := func(h *harness) {
		h.spotify.Playlists = []models.Playlist{
			{ID: "PL1", Name: "Road Trip", TrackCount: 4},
			{ID: "PL2", Name: "Workout", TrackCount: 0},
		}
		h.spotify.Tracks["PL1"] = []models.Track{
			track(models.Spotify, "a", "Alpha", "Band"),
			track(models.Spotify, "b", "Beta", "Band", "Guest"),
			track(models.Spotify, "c", "Alpha", "Band"),
			track(models.Spotify, "d", "Gamma", "Other"),
		}
	}

	t.Run("list", func(t *testing.T) {
		h := newHarness(t)
		seed(h)

		if err := h.run("playlist", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(h.prompt.Tables) != 1 || h.prompt.Tables[0] != "Spotify playlists" {
			t.Fatalf("expected playlist table, got %v", h.prompt.Tables)
		}
		if rows := h.prompt.Rows[0]; len(rows) != 2 || rows[0][1] != "Road Trip" {
			t.Errorf("unexpected rows %v", rows)
		}
	})

	t.Run("list json", func(t *testing.T) {
		h := newHarness(t)
		seed(h)

		if err := h.run("playlist", "list", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.out.String(), `"track_count": 4`) {
			t.Errorf("expected JSON playlists, got %s", h.out.String())
		}
	})

	t.Run("summary", func(t *testing.T) {
		h := newHarness(t)
		seed(h)

		if err := h.run("playlist", "summary", "--playlist", "road trip"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rows := h.prompt.Rows[len(h.prompt.Rows)-1]
		if len(rows) != 3 || rows[0][0] != "Band" || rows[0][1] != "3" {
			t.Errorf("unexpected summary %v", rows)
		}
	})

	t.Run("summary nothing picked", func(t *testing.T) {
		h := newHarness(t)
		seed(h)
		h.prompt.Choices = []int{0}

		if err := h.run("playlist", "summary"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(h.out.String(), "No playlist selected") {
			t.Errorf("expected no selection message, got %q", h.out.String())
		}
	})

	t.Run("add", func(t *testing.T) {
		h := newHarness(t)
		seed(h)
		h.spotify.Results["Delta"] = "spotify:track:delta"
		h.prompt.Lines = []string{"Delta - Band", "Nowhere - Nobody", ""}

		if err := h.run("playlist", "add", "--playlist", "PL2"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := h.spotify.Added["PL2"]; len(got) != 1 || got[0] != "spotify:track:delta" {
			t.Errorf("expected delta added, got %v", got)
		}
		if !strings.Contains(h.out.String(), "Not found: Nowhere - Nobody") {
			t.Errorf("expected not found line, got %q", h.out.String())
		}
	})

	t.Run("remove-artist", func(t *testing.T) {
		tc := []struct {
			name  string
			args  []string
			lines []string
			want  int
		}{
			{"flag", []string{"--artist", "Guest"}, nil, 1},
			{"prompted", nil, []string{"band, other"}, 4},
			{"no match", []string{"--artist", "Nobody"}, nil, 0},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t)
				seed(h)
				h.prompt.Lines = tt.lines

				args := append([]string{"playlist", "remove-artist", "--playlist", "PL1"}, tt.args...)
				if err := h.run(args...); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(h.spotify.Removed) != tt.want {
					t.Errorf("expected %d removed, got %d", tt.want, len(h.spotify.Removed))
				}
			})
		}
	})

	t.Run("dedupe", func(t *testing.T) {
		tc := []struct {
			name    string
			confirm bool
			want    int
			output  string
		}{
			{"confirmed", true, 1, "Removed 1 duplicates"},
			{"declined", false, 0, "Nothing removed"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t)
				seed(h)
				h.prompt.Confirms = []bool{tt.confirm}

				if err := h.run("playlist", "dedupe", "--playlist", "PL1"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(h.spotify.Removed) != tt.want {
					t.Errorf("expected %d removed, got %d", tt.want, len(h.spotify.Removed))
				}
				if !strings.Contains(h.out.String(), tt.output) {
					t.Errorf("expected %q in output, got %q", tt.output, h.out.String())
				}
			})
		}
	})

	t.Run("dedupe bad threshold", func(t *testing.T) {
		h := newHarness(t)
		seed(h)

		err := h.run("playlist", "dedupe", "--playlist", "PL1", "--threshold", "1.5")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("backup", func(t *testing.T) {
		h := newHarness(t)
		seed(h)
		outDir := filepath.Join(h.dir, "backup")

		if err := h.run("playlist", "backup", "--playlist", "PL1", "--format", "txt", "--output", outDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(outDir, "backup_manifest.json"))
		if !strings.Contains(h.out.String(), "Backed up 1 of 1 playlists") {
			t.Errorf("unexpected output %q", h.out.String())
		}
	})

	t.Run("backup bad format", func(t *testing.T) {
		h := newHarness(t)

		err := h.run("playlist", "backup", "--format", "xml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestCacheCommands(t *testing.T) {
	key := matching.CacheKey(models.YouTube, "Beta", []string{"Band"})

	seed := func(t *testing.T, h *harness) {
		t.Helper()
		store, err := h.runner.openStore()
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		defer store.Close()
		err = store.Save(map[string]string{
			key: videoID,
			matching.CacheKey(models.Spotify, "Beta", []string{"Band"}): "spotify:track:b",
		})
		if err != nil {
			t.Fatalf("failed to seed store: %v", err)
		}
	}

	for _, backend := range []string{"sqlite", "bolt"} {
		t.Run(backend, func(t *testing.T) {
			t.Run("list", func(t *testing.T) {
				h := newHarness(t)
				h.config.Cache.Backend = backend
				seed(t, h)

				if err := h.run("cache", "list", "--service", "youtube"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				rows := h.prompt.Rows[0]
				if len(rows) != 1 || rows[0][0] != key || rows[0][1] != videoID {
					t.Errorf("unexpected rows %v", rows)
				}
			})

			t.Run("stats", func(t *testing.T) {
				h := newHarness(t)
				h.config.Cache.Backend = backend
				seed(t, h)

				if err := h.run("cache", "stats"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				rows := h.prompt.Rows[0]
				if len(rows) != 2 || rows[0][0] != "spotify" || rows[1][1] != "1" {
					t.Errorf("unexpected stats %v", rows)
				}
			})

			t.Run("delete", func(t *testing.T) {
				h := newHarness(t)
				h.config.Cache.Backend = backend
				seed(t, h)

				if err := h.run("cache", "delete", key); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				h.out.Reset()
				if err := h.run("cache", "get", "--title", "Beta", "--artist", "Band"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !strings.Contains(h.out.String(), "no cached resolution") {
					t.Errorf("expected miss after delete, got %q", h.out.String())
				}
			})

			t.Run("clear", func(t *testing.T) {
				h := newHarness(t)
				h.config.Cache.Backend = backend
				seed(t, h)

				if err := h.run("cache", "clear", "--service", "spotify"); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !strings.Contains(h.out.String(), "Deleted 1 cached resolutions") {
					t.Errorf("unexpected output %q", h.out.String())
				}
			})
		})
	}

	t.Run("memory backend", func(t *testing.T) {
		h := newHarness(t)
		h.config.Cache.Backend = "memory"

		err := h.run("cache", "stats")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("delete without key", func(t *testing.T) {
		h := newHarness(t)

		err := h.run("cache", "delete")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(h.dir, "config.toml")

		if err := h.run("setup", "config", "--config", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := h.run("setup", "config", "--config", path); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for existing file, got %v", err)
		}

		h.config.Export.Dir = "exports"
		if err := h.run("setup", "config", "--config", path, "--force"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load written config: %v", err)
		}
		if loaded.Export.Dir != "exports" {
			t.Errorf("expected forced config to keep current settings, got %q", loaded.Export.Dir)
		}
	})

	t.Run("database", func(t *testing.T) {
		h := newHarness(t)
		path := filepath.Join(h.dir, "config.toml")
		dbPath := filepath.Join(h.dir, "data", "setup.db")

		config := shared.DefaultConfig()
		config.Database.Path = dbPath
		if err := shared.SaveConfig(path, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		if err := h.run("setup", "database", "--config", path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, dbPath)
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		h := newHarness(t)
		tok := &oauth2.Token{AccessToken: "access", Expiry: time.Now().Add(time.Hour)}
		if err := h.runner.tokens.Save(models.Spotify, tok); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}

		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rows := h.prompt.Rows[0]
		if rows[0][1] != "connected" || rows[1][1] != "not connected" {
			t.Errorf("unexpected status rows %v", rows)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		h := newHarness(t)
		h.config.Credentials.Spotify = shared.OAuthClientConfig{}

		err := h.run("auth", "spotify", "--no-browser")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if len(h.opened) != 0 {
			t.Error("expected no browser to be opened")
		}
	})
}
