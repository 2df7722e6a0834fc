package matching

import (
	"sort"
	"strings"

	"github.com/desertthunder/synclify/internal/models"
)

// LooseKey combines the normalized title with the artist signature.
func LooseKey(title string, artists []string) string {
	return NormalizeTitle(title) + "::" + strings.Join(NormalizeArtists(artists), " ")
}

// TitleKey is the normalized title alone.
func TitleKey(title string) string {
	return NormalizeTitle(title)
}

// TrackKeys returns both keys for a track.
func TrackKeys(t models.Track) (loose, title string) {
	return LooseKey(t.Title, t.Artists), TitleKey(t.Title)
}

// CacheKey identifies a resolution in the cache: service|normalizedTitle|sortedArtistTokens.
func CacheKey(service models.Service, title string, artists []string) string {
	sig := NormalizeArtists(artists)
	sort.Strings(sig)
	return service.String() + "|" + NormalizeTitle(title) + "|" + strings.Join(sig, " ")
}
