package matching

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/desertthunder/synclify/internal/models"
)

// DefaultSimilarityThreshold is the edit-similarity ratio above which two titles are near duplicates.
const DefaultSimilarityThreshold = 0.9

// Dedupe keeps the first occurrence of each track, dropping any later track whose loose key or
// title key was already seen. Order is preserved.
func Dedupe(tracks []models.Track) []models.Track {
	seenLoose := make(map[string]struct{}, len(tracks))
	seenTitle := make(map[string]struct{}, len(tracks))
	out := make([]models.Track, 0, len(tracks))

	for _, t := range tracks {
		loose, title := TrackKeys(t)
		_, dupLoose := seenLoose[loose]
		_, dupTitle := seenTitle[title]
		if dupLoose || dupTitle {
			continue
		}
		seenLoose[loose] = struct{}{}
		seenTitle[title] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Similarity is the Levenshtein similarity ratio of two strings in [0, 1].
func Similarity(a, b string) float64 {
	return strutil.Similarity(a, b, metrics.NewLevenshtein())
}

type keptTrack struct {
	title string
	sig   map[string]struct{}
}

// FindSimilar returns the tracks that are near duplicates of an earlier track.
//
// A track duplicates an earlier kept one when the similarity of their normalized titles is at
// least threshold and their artist signatures share a token (or either signature is empty). The
// first match wins; duplicates are returned in input order and never become comparison targets.
//
// Every track is compared against every kept track, so cost grows quadratically with playlist
// size. Playlists of a few thousand entries are fine; larger inputs need blocking by title prefix.
func FindSimilar(tracks []models.Track, threshold float64) []models.Track {
	metric := metrics.NewLevenshtein()
	var kept []keptTrack
	var dups []models.Track

	for _, t := range tracks {
		cur := keptTrack{title: NormalizeTitle(t.Title), sig: toSet(NormalizeArtists(t.Artists))}

		duplicate := false
		for _, k := range kept {
			if strutil.Similarity(cur.title, k.title, metric) < threshold {
				continue
			}
			if len(cur.sig) == 0 || len(k.sig) == 0 || intersects(cur.sig, k.sig) {
				duplicate = true
				break
			}
		}

		if duplicate {
			dups = append(dups, t)
			continue
		}
		kept = append(kept, cur)
	}
	return dups
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func intersects(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
