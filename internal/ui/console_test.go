package ui

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
	"github.com/desertthunder/synclify/internal/tasks"
	tu "github.com/desertthunder/synclify/internal/testing"
)

func newTestConsole(input string) (*Console, *bytes.Buffer) {
	var out bytes.Buffer
	return NewConsole(strings.NewReader(input), &out), &out
}

func TestConsole(t *testing.T) {
	ctx := context.Background()

	t.Run("Choose", func(t *testing.T) {
		tc := []struct {
			name  string
			input string
			want  int
		}{
			{"number", "2\n", 2},
			{"skip", "0\n", 0},
			{"empty skips", "\n", 0},
			{"retries invalid", "x\n9\n1\n", 1},
			{"no trailing newline", "3", 3},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				c, out := newTestConsole(tt.input)
				got, err := c.Choose(ctx, "Pick one", []string{"a", "b", "c"})
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("expected %d, got %d", tt.want, got)
				}
				if !strings.Contains(out.String(), "  2) b") {
					t.Errorf("expected numbered options, got: %s", out.String())
				}
			})
		}
	})

	t.Run("Choose EOF", func(t *testing.T) {
		c, _ := newTestConsole("")
		if _, err := c.Choose(ctx, "Pick one", []string{"a"}); !errors.Is(err, shared.ErrInterrupted) {
			t.Errorf("expected ErrInterrupted, got %v", err)
		}
	})

	t.Run("Confirm", func(t *testing.T) {
		tc := []struct {
			input string
			want  bool
		}{
			{"y\n", true},
			{"YES\n", true},
			{"n\n", false},
			{"\n", false},
			{"maybe\ny\n", true},
		}

		for _, tt := range tc {
			c, _ := newTestConsole(tt.input)
			got, err := c.Confirm(ctx, "Continue?")
			if err != nil || got != tt.want {
				t.Errorf("Confirm(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
			}
		}
	})

	t.Run("ReadLine", func(t *testing.T) {
		c, out := newTestConsole("  https://youtu.be/dQw4w9WgXcQ  \n")
		got, err := c.ReadLine(ctx, "Paste a link")
		if err != nil || got != "https://youtu.be/dQw4w9WgXcQ" {
			t.Errorf("unexpected line %q (%v)", got, err)
		}
		if out.String() != "Paste a link: " {
			t.Errorf("unexpected prompt %q", out.String())
		}

		if _, err := c.ReadLine(ctx, "again"); !errors.Is(err, shared.ErrInterrupted) {
			t.Errorf("expected ErrInterrupted at end of input, got %v", err)
		}
	})

	t.Run("Cancelled While Waiting", func(t *testing.T) {
		pr, pw := io.Pipe()
		t.Cleanup(func() { pw.Close() })
		c := NewConsole(pr, &bytes.Buffer{})

		ctx, cancel := context.WithCancel(context.Background())
		errs := make(chan error, 1)
		go func() {
			_, err := c.ReadLine(ctx, "Paste a link")
			errs <- err
		}()
		cancel()

		select {
		case err := <-errs:
			if !errors.Is(err, shared.ErrInterrupted) {
				t.Errorf("expected ErrInterrupted, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("ReadLine still waiting after cancel")
		}

		if _, err := c.Confirm(context.Background(), "Continue?"); !errors.Is(err, shared.ErrInterrupted) {
			t.Errorf("expected prompts to fail after an interrupt, got %v", err)
		}
		if _, err := c.Choose(context.Background(), "Pick one", []string{"a"}); !errors.Is(err, shared.ErrInterrupted) {
			t.Errorf("expected prompts to fail after an interrupt, got %v", err)
		}
	})

	t.Run("Already Cancelled", func(t *testing.T) {
		c, _ := newTestConsole("y\n")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := c.Confirm(ctx, "Continue?"); !errors.Is(err, shared.ErrInterrupted) {
			t.Errorf("expected ErrInterrupted, got %v", err)
		}
	})

	t.Run("PresentTable", func(t *testing.T) {
		c, out := newTestConsole("")
		err := c.PresentTable("Web results", []string{"#", "Title", "Score"}, [][]string{
			{"1", "Alpha Band", "1.15"},
			{"2", "Omega", "0.00"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Web results", "Title", "Alpha Band", "0.00"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("table missing %q, got:\n%s", want, out.String())
			}
		}
	})

	t.Run("Not A Terminal", func(t *testing.T) {
		c, _ := newTestConsole("")
		if c.tty {
			t.Error("expected buffers not to be detected as a terminal")
		}
		if c.Palette().Title("x") != "x" {
			t.Error("expected plain palette")
		}
	})
}

func TestPicker(t *testing.T) {
	tc := []struct {
		name    string
		keys    []tea.KeyMsg
		want    int
		aborted bool
	}{
		{"first", []tea.KeyMsg{{Type: tea.KeyEnter}}, 1, false},
		{"down then pick", []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune("j")}, {Type: tea.KeyEnter}}, 2, false},
		{"skip", []tea.KeyMsg{{Type: tea.KeyEsc}}, 0, false},
		{"abort", []tea.KeyMsg{{Type: tea.KeyCtrlC}}, 0, true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			m := newPicker("Pick", []string{"one", "two", "three"})
			var cmd tea.Cmd
			for _, k := range tt.keys {
				_, cmd = m.Update(k)
			}
			if cmd == nil {
				t.Fatal("expected the picker to quit")
			}
			if m.choice != tt.want || m.aborted != tt.aborted {
				t.Errorf("expected choice %d aborted %v, got %d %v", tt.want, tt.aborted, m.choice, m.aborted)
			}
		})
	}

	t.Run("View", func(t *testing.T) {
		m := newPicker("Pick a playlist", []string{"one"})
		if !strings.Contains(m.View(), "Pick a playlist") {
			t.Errorf("expected title in view, got:\n%s", m.View())
		}
	})
}

func TestProgress(t *testing.T) {
	progress := make(chan tasks.ProgressUpdate, 2)
	progress <- tasks.ProgressUpdate{Phase: tasks.ResolveTracks, Step: 1, Total: 3, Message: "[1/3] Alpha - Band"}
	progress <- tasks.ProgressUpdate{Phase: tasks.Compare, Message: "2 missing"}
	close(progress)

	var out bytes.Buffer
	<-WatchProgress(&out, PlainPalette(), progress)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out.String())
	}
	if !strings.Contains(lines[0], "resolve_tracks") || !strings.Contains(lines[0], "1/3") || !strings.HasSuffix(lines[0], "Alpha - Band") {
		t.Errorf("unexpected line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "2 missing") {
		t.Errorf("unexpected line %q", lines[1])
	}
}

func TestConsoleInterruptsResolution(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	console := NewConsole(pr, &bytes.Buffer{})

	catalog := tu.NewMockCatalog(models.YouTube)
	cache := tu.NewMemoryCache()
	engine := tasks.NewResolutionEngine(catalog, console, cache, tasks.EngineOptions{PlaylistID: "dest"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		res *tasks.ResolutionResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := engine.Resolve(ctx, []models.Track{{Title: "Alpha", Artists: []string{"Band"}}}, nil)
		done <- outcome{res, err}
	}()

	// let the engine reach the manual entry prompt
	time.Sleep(50 * time.Millisecond)
	cancel()

	var got outcome
	select {
	case got = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Resolve still waiting at the manual entry prompt after cancel")
	}

	if !errors.Is(got.err, shared.ErrInterrupted) {
		t.Errorf("expected ErrInterrupted, got %v", got.err)
	}
	if got.res.Resolved != 0 {
		t.Errorf("expected nothing resolved, got %d", got.res.Resolved)
	}

	// a link typed after the interrupt is never used
	go pw.Write([]byte("https://music.youtube.com/watch?v=dQw4w9WgXcQ\n"))
	time.Sleep(20 * time.Millisecond)
	if cache.Puts != 0 || len(catalog.AddCalls) != 0 {
		t.Errorf("expected no cache writes or inserts, got %d puts and %d adds", cache.Puts, len(catalog.AddCalls))
	}
}
