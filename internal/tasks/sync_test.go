package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
	th "github.com/desertthunder/synclify/internal/testing"
)

type recorder struct {
	runs []*models.SyncRun
	err  error
}

func (r *recorder) Create(run *models.SyncRun) error {
	r.runs = append(r.runs, run)
	return r.err
}

func tracksOf(service models.Service, titles ...string) []models.Track {
	out := make([]models.Track, len(titles))
	for i, title := range titles {
		out[i] = models.Track{Service: service, ExternalID: strings.ToLower(title), Title: title, Artists: []string{"Band"}}
	}
	return out
}

func spotifyURI(c byte) string { return "spotify:track:" + strings.Repeat(string(c), 22) }

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func TestSyncEngine(t *testing.T) {
	ctx := context.Background()
	sourcePL := models.Playlist{ID: "SRC", Name: "Road Trip"}

	t.Run("YouTube Planning Export", func(t *testing.T) {
		dir := t.TempDir()
		source := th.NewMockCatalog(models.Spotify)
		source.Tracks["SRC"] = tracksOf(models.Spotify, "Alpha", "Beta", "Gamma")
		dest := th.NewMockCatalog(models.YouTube)
		dest.Tracks["DST"] = tracksOf(models.YouTube, "Alpha", "Zeta")
		dest.Results["Beta"] = videoID('b')
		dest.SearchErrs["Gamma"] = quotaErr("search")

		search := th.NewMockSearch()
		search.Results["Gamma"] = []models.Candidate{{URL: watchURL(videoID('c')), Title: "Gamma Band"}}
		prompt := &th.ScriptedPrompt{Choices: []int{3}}
		runs := &recorder{}

		engine := NewSyncEngine(prompt, th.NewMemoryCache(), runs, SyncOptions{Search: search, ExportDir: dir, Now: func() time.Time { return fixedNow }}, nil)
		res, err := engine.Run(ctx, nil, SyncRequest{
			Source: source, SourcePlaylist: sourcePL,
			Destination: dest, DestPlaylist: models.Playlist{ID: "DST", Name: "Road Trip"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(res.Diff.Missing) != 2 || res.Diff.AlreadyMatched != 1 || len(res.Diff.Extra) != 1 {
			t.Errorf("unexpected diff: missing %d matched %d extra %d", len(res.Diff.Missing), res.Diff.AlreadyMatched, len(res.Diff.Extra))
		}
		if res.Added != 1 || res.Mode != ModePlanning {
			t.Errorf("expected one insert then planning, got added %d mode %v", res.Added, res.Mode)
		}

		want := filepath.Join(dir, "youtube_pending_add_20250304_050607.txt")
		if res.ExportPath != want {
			t.Fatalf("expected export at %s, got %s", want, res.ExportPath)
		}
		th.AssertFileExists(t, want)
		if got := th.MustReadFile(t, want); got != watchURL(videoID('c'))+"\n" {
			t.Errorf("unexpected export contents %q", got)
		}

		if len(runs.runs) != 1 {
			t.Fatalf("expected one recorded run, got %d", len(runs.runs))
		}
		run := runs.runs[0]
		if run.ID() != res.RunID || run.Pending != 1 || run.Mode != "planning" || run.ExportPath != want {
			t.Errorf("unexpected run record %+v", run)
		}
	})

	t.Run("Spotify Batched Writes", func(t *testing.T) {
		source := th.NewMockCatalog(models.YouTube)
		source.Tracks["SRC"] = tracksOf(models.YouTube, "Alpha", "Beta", "Gamma")
		dest := th.NewMockCatalog(models.Spotify)
		dest.Results["Alpha"] = spotifyURI('a')
		dest.Results["Beta"] = spotifyURI('b')
		dest.Results["Gamma"] = spotifyURI('c')

		engine := NewSyncEngine(&th.ScriptedPrompt{}, th.NewMemoryCache(), nil, SyncOptions{BatchSize: 2, ExportDir: t.TempDir()}, nil)
		res, err := engine.Run(ctx, nil, SyncRequest{
			Source: source, SourcePlaylist: sourcePL,
			Destination: dest, DestPlaylist: models.Playlist{Name: "Road Trip"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(dest.Created) != 1 || res.DestPlaylist.ID != "created-1" {
			t.Errorf("expected destination to be created, got %+v", res.DestPlaylist)
		}
		if len(dest.AddCalls) != 2 || len(dest.AddCalls[0]) != 2 || len(dest.AddCalls[1]) != 1 {
			t.Errorf("expected batches of 2 and 1, got %v", dest.AddCalls)
		}
		if res.Added != 3 || res.ExportPath != "" {
			t.Errorf("expected 3 added and no export, got %d %q", res.Added, res.ExportPath)
		}
	})

	t.Run("Batched Quota", func(t *testing.T) {
		setup := func(prompt *th.ScriptedPrompt) (*SyncResult, error) {
			source := th.NewMockCatalog(models.YouTube)
			source.Tracks["SRC"] = tracksOf(models.YouTube, "Alpha", "Beta", "Gamma")
			dest := th.NewMockCatalog(models.Spotify)
			dest.Results["Alpha"] = spotifyURI('a')
			dest.Results["Beta"] = spotifyURI('b')
			dest.Results["Gamma"] = spotifyURI('c')
			dest.OnAdd = func(_ string, ids []string) error {
				if len(dest.AddCalls) > 1 {
					return shared.NewRemoteError(shared.KindQuotaExceeded, "spotify", "add tracks", errors.New("quota"))
				}
				return nil
			}

			engine := NewSyncEngine(prompt, th.NewMemoryCache(), nil, SyncOptions{BatchSize: 2, ExportDir: t.TempDir()}, nil)
			return engine.Run(ctx, nil, SyncRequest{
				Source: source, SourcePlaylist: sourcePL,
				Destination: dest, DestPlaylist: models.Playlist{ID: "DST", Name: "Road Trip"},
			})
		}

		t.Run("confirmed queues remainder", func(t *testing.T) {
			prompt := &th.ScriptedPrompt{Confirms: []bool{true}}
			res, err := setup(prompt)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(prompt.ConfirmCalls) != 1 || !strings.Contains(prompt.ConfirmCalls[0], "remaining 1 links") {
				t.Errorf("expected one confirmation, got %v", prompt.ConfirmCalls)
			}
			if res.Mode != ModePlanning {
				t.Errorf("expected planning mode, got %s", res.Mode)
			}
			if res.Added != 2 || len(res.Pending) != 1 || res.Pending[0] != spotifyURI('c') {
				t.Errorf("expected 2 added and 1 pending, got %d %v", res.Added, res.Pending)
			}
			if got := th.MustReadFile(t, res.ExportPath); got != "https://open.spotify.com/track/"+strings.Repeat("c", 22)+"\n" {
				t.Errorf("unexpected export contents %q", got)
			}
		})

		t.Run("declined stops", func(t *testing.T) {
			res, err := setup(&th.ScriptedPrompt{Confirms: []bool{false}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !res.Stopped || res.Mode == ModePlanning {
				t.Errorf("expected a stop outside planning mode, got stopped=%v mode=%s", res.Stopped, res.Mode)
			}
			if res.Added != 2 || len(res.Pending) != 0 || res.ExportPath != "" {
				t.Errorf("expected 2 added and nothing exported, got %d %v %q", res.Added, res.Pending, res.ExportPath)
			}
		})

		t.Run("interrupted at the question", func(t *testing.T) {
			res, err := setup(&th.ScriptedPrompt{})
			if !errors.Is(err, shared.ErrInterrupted) {
				t.Fatalf("expected ErrInterrupted, got %v", err)
			}
			if res.ExportPath != "" {
				t.Errorf("expected no export, got %q", res.ExportPath)
			}
		})
	})

	t.Run("Destination Read Quota", func(t *testing.T) {
		tc := []struct {
			name    string
			confirm bool
		}{
			{"planning", true},
			{"declined", false},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				source := th.NewMockCatalog(models.Spotify)
				source.Tracks["SRC"] = tracksOf(models.Spotify, "Alpha")
				dest := th.NewMockCatalog(models.YouTube)
				dest.GetTracksErr = quotaErr("list items")
				search := th.NewMockSearch()
				search.Results["Alpha"] = []models.Candidate{{URL: watchURL(videoID('a')), Title: "Alpha Band"}}

				engine := NewSyncEngine(&th.ScriptedPrompt{Confirms: []bool{tt.confirm}}, th.NewMemoryCache(), nil, SyncOptions{Search: search, ExportDir: t.TempDir()}, nil)
				res, err := engine.Run(ctx, nil, SyncRequest{
					Source: source, SourcePlaylist: sourcePL,
					Destination: dest, DestPlaylist: models.Playlist{ID: "DST"},
				})
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !tt.confirm {
					if !res.Stopped || res.Resolution != nil {
						t.Errorf("expected stop before resolution, got %+v", res)
					}
					return
				}
				if len(dest.SearchCalls) != 0 || len(dest.AddCalls) != 0 {
					t.Errorf("expected no destination calls in planning mode")
				}
				if len(res.Pending) != 1 || res.ExportPath == "" {
					t.Errorf("expected one pending link exported, got %v", res.Pending)
				}
			})
		}
	})

	t.Run("Interrupt Skips Export", func(t *testing.T) {
		dir := t.TempDir()
		source := th.NewMockCatalog(models.Spotify)
		source.Tracks["SRC"] = tracksOf(models.Spotify, "Alpha", "Beta")
		dest := th.NewMockCatalog(models.YouTube)
		dest.SearchErrs["Alpha"] = quotaErr("search")

		prompt := &th.ScriptedPrompt{Choices: []int{3}}
		runs := &recorder{}
		engine := NewSyncEngine(prompt, th.NewMemoryCache(), runs, SyncOptions{ExportDir: dir}, nil)
		res, err := engine.Run(ctx, nil, SyncRequest{
			Source: source, SourcePlaylist: sourcePL,
			Destination: dest, DestPlaylist: models.Playlist{ID: "DST"},
		})
		if !errors.Is(err, shared.ErrInterrupted) {
			t.Fatalf("expected interrupt, got %v", err)
		}
		if res.ExportPath != "" || len(runs.runs) != 0 {
			t.Errorf("expected nothing exported or recorded")
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("expected empty export dir, got %d entries", len(entries))
		}
	})

	t.Run("Stop Still Writes Batched", func(t *testing.T) {
		source := th.NewMockCatalog(models.YouTube)
		source.Tracks["SRC"] = tracksOf(models.YouTube, "Alpha", "Beta", "Gamma")
		dest := th.NewMockCatalog(models.Spotify)
		dest.Results["Alpha"] = spotifyURI('a')
		dest.SearchErrs["Beta"] = shared.NewRemoteError(shared.KindQuotaExceeded, "spotify", "search", errors.New("quota"))

		prompt := &th.ScriptedPrompt{Choices: []int{4}}
		engine := NewSyncEngine(prompt, th.NewMemoryCache(), nil, SyncOptions{ExportDir: t.TempDir()}, nil)
		res, err := engine.Run(ctx, nil, SyncRequest{
			Source: source, SourcePlaylist: sourcePL,
			Destination: dest, DestPlaylist: models.Playlist{ID: "DST"},
		})
		if err != nil {
			t.Fatalf("expected stop without error, got %v", err)
		}
		if !res.Stopped || len(res.Resolution.Items) != 2 {
			t.Errorf("expected stop on the second track, got %+v", res.Resolution)
		}
		if got := dest.Added["DST"]; len(got) != 1 || got[0] != spotifyURI('a') {
			t.Errorf("expected the resolved track written, got %v", got)
		}
		if len(dest.SearchCalls) != 2 {
			t.Errorf("expected Gamma never searched, got %v", dest.SearchCalls)
		}
	})

	t.Run("Missing Catalog", func(t *testing.T) {
		engine := NewSyncEngine(&th.ScriptedPrompt{}, th.NewMemoryCache(), nil, SyncOptions{}, nil)
		if _, err := engine.Run(ctx, nil, SyncRequest{}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("Source Failure", func(t *testing.T) {
		source := th.NewMockCatalog(models.Spotify)
		source.GetTracksErr = fmt.Errorf("boom")
		engine := NewSyncEngine(&th.ScriptedPrompt{}, th.NewMemoryCache(), nil, SyncOptions{}, nil)
		_, err := engine.Run(ctx, nil, SyncRequest{Source: source, Destination: th.NewMockCatalog(models.YouTube)})
		if err == nil || !strings.Contains(err.Error(), "source playlist") {
			t.Errorf("expected source read error, got %v", err)
		}
	})
}

func TestSyncEngineDiff(t *testing.T) {
	source := th.NewMockCatalog(models.Spotify)
	source.Tracks["SRC"] = append(tracksOf(models.Spotify, "Alpha", "Beta"), models.Track{Title: "Alpha (Official Video)", Artists: []string{"Band"}})
	dest := th.NewMockCatalog(models.YouTube)
	dest.Tracks["DST"] = tracksOf(models.YouTube, "Beta", "Omega")
	progress := make(chan ProgressUpdate, 8)

	engine := NewSyncEngine(&th.ScriptedPrompt{}, th.NewMemoryCache(), nil, SyncOptions{}, nil)
	diff, err := engine.Diff(context.Background(), progress, SyncRequest{
		Source: source, SourcePlaylist: models.Playlist{ID: "SRC"},
		Destination: dest, DestPlaylist: models.Playlist{ID: "DST"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(diff.Source.Tracks) != 2 {
		t.Errorf("expected source deduplicated to 2 tracks, got %d", len(diff.Source.Tracks))
	}
	if len(diff.Missing) != 1 || diff.Missing[0].Title != "Alpha" {
		t.Errorf("expected Alpha missing, got %v", diff.Missing)
	}
	if len(diff.Extra) != 1 || diff.Extra[0].Title != "Omega" {
		t.Errorf("expected Omega extra, got %v", diff.Extra)
	}
	if len(dest.AddCalls) != 0 {
		t.Error("expected diff to write nothing")
	}
	if len(progress) != 3 {
		t.Errorf("expected 3 progress updates, got %d", len(progress))
	}
}
