package services

import (
	"errors"
	"testing"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
)

func TestParseIdentifier(t *testing.T) {
	t.Run("Spotify", func(t *testing.T) {
		tc := []struct {
			name    string
			raw     string
			want    string
			wantErr bool
		}{
			{"uri", "spotify:track:4uLU6hMCjMI75M1A2tKUQC", "spotify:track:4uLU6hMCjMI75M1A2tKUQC", false},
			{"link with tracking", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123", "spotify:track:4uLU6hMCjMI75M1A2tKUQC", false},
			{"link without scheme", "open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", "spotify:track:4uLU6hMCjMI75M1A2tKUQC", false},
			{"locale prefix", "https://open.spotify.com/intl-de/track/4uLU6hMCjMI75M1A2tKUQC", "spotify:track:4uLU6hMCjMI75M1A2tKUQC", false},
			{"bare id", " 4uLU6hMCjMI75M1A2tKUQC ", "spotify:track:4uLU6hMCjMI75M1A2tKUQC", false},
			{"album link", "https://open.spotify.com/album/4uLU6hMCjMI75M1A2tKUQC", "", true},
			{"short uri", "spotify:track:abc", "", true},
			{"other host", "https://example.com/track/4uLU6hMCjMI75M1A2tKUQC", "", true},
			{"garbage", "not a link", "", true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				got, err := ParseIdentifier(models.Spotify, tt.raw)
				if tt.wantErr {
					if !errors.Is(err, shared.ErrMalformedInput) {
						t.Errorf("expected ErrMalformedInput, got %v", err)
					}
					return
				}
				if err != nil || got != tt.want {
					t.Errorf("expected %q, got %q (%v)", tt.want, got, err)
				}
			})
		}
	})

	t.Run("YouTube", func(t *testing.T) {
		tc := []struct {
			name    string
			raw     string
			want    string
			wantErr bool
		}{
			{"music link", "https://music.youtube.com/watch?v=dQw4w9WgXcQ&si=xyz", "dQw4w9WgXcQ", false},
			{"watch link with playlist", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123", "dQw4w9WgXcQ", false},
			{"short link", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", false},
			{"bare id", "dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
			{"playlist only", "https://music.youtube.com/playlist?list=OLAK5uy_abcdefghijklmnop", "", true},
			{"sentence", "hello world foo", "", true},
			{"empty", "   ", "", true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				got, err := ParseIdentifier(models.YouTube, tt.raw)
				if tt.wantErr {
					if !errors.Is(err, shared.ErrMalformedInput) {
						t.Errorf("expected ErrMalformedInput, got %q %v", got, err)
					}
					return
				}
				if err != nil || got != tt.want {
					t.Errorf("expected %q, got %q (%v)", tt.want, got, err)
				}
			})
		}
	})
}

func TestExportURL(t *testing.T) {
	tc := []struct {
		service models.Service
		id      string
		want    string
	}{
		{models.YouTube, "dQw4w9WgXcQ", "https://music.youtube.com/watch?v=dQw4w9WgXcQ"},
		{models.Spotify, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"},
		{models.YouTube, "https://music.youtube.com/watch?v=x", "https://music.youtube.com/watch?v=x"},
	}

	for _, tt := range tc {
		if got := ExportURL(tt.service, tt.id); got != tt.want {
			t.Errorf("ExportURL(%v, %q) = %q, want %q", tt.service, tt.id, got, tt.want)
		}
	}
}

func TestStripTrackingParams(t *testing.T) {
	tc := []struct {
		in   string
		want string
	}{
		{"https://music.youtube.com/watch?v=abc&si=zzz&feature=share", "https://music.youtube.com/watch?v=abc"},
		{"https://music.youtube.com/playlist?list=PL1&si=zzz#frag", "https://music.youtube.com/playlist?list=PL1"},
		{"https://music.youtube.com/watch?list=PL1&v=abc", "https://music.youtube.com/watch?list=PL1&v=abc"},
	}

	for _, tt := range tc {
		if got := StripTrackingParams(tt.in); got != tt.want {
			t.Errorf("StripTrackingParams(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
