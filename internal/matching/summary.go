package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/synclify/internal/models"
)

// ArtistCount is how many tracks credit an artist.
type ArtistCount struct {
	Artist string
	Count  int
}

// ArtistSummary counts tracks per credited artist, most common first, then by name.
// Names are compared case-insensitively; the first spelling seen is reported.
func ArtistSummary(tracks []models.Track) []ArtistCount {
	counts := make(map[string]*ArtistCount)
	for _, t := range tracks {
		credited := make(map[string]struct{}, len(t.Artists))
		for _, a := range t.Artists {
			name := strings.TrimSpace(a)
			key := strings.ToLower(name)
			if key == "" {
				continue
			}
			if _, dup := credited[key]; dup {
				continue
			}
			credited[key] = struct{}{}

			if c, ok := counts[key]; ok {
				c.Count++
			} else {
				counts[key] = &ArtistCount{Artist: name, Count: 1}
			}
		}
	}

	out := make([]ArtistCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.ToLower(out[i].Artist) < strings.ToLower(out[j].Artist)
	})
	return out
}

// CreditsAny reports whether the track credits one of names, compared case-insensitively.
func CreditsAny(t models.Track, names []string) bool {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			want[n] = struct{}{}
		}
	}
	for _, a := range t.Artists {
		if _, ok := want[strings.ToLower(strings.TrimSpace(a))]; ok {
			return true
		}
	}
	return false
}

// ParseEntry reads a "Title - Artist1, Artist2" line typed by the user.
// The last " - " separates title from artists, so titles may contain dashes.
func ParseEntry(line string) (title string, artists []string, err error) {
	line = strings.TrimSpace(line)
	idx := strings.LastIndex(line, " - ")
	if idx < 0 {
		return "", nil, fmt.Errorf("expected \"Title - Artist\", got %q", line)
	}

	title = strings.TrimSpace(line[:idx])
	for _, a := range strings.Split(line[idx+3:], ",") {
		if a = strings.TrimSpace(a); a != "" {
			artists = append(artists, a)
		}
	}
	if title == "" || len(artists) == 0 {
		return "", nil, fmt.Errorf("expected \"Title - Artist\", got %q", line)
	}
	return title, artists, nil
}
