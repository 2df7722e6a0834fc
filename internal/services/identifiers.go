package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
)

const spotifyTrackPrefix = "spotify:track:"

var (
	spotifyIDRe   = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
	youtubeIDRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	spotifyPathRe = regexp.MustCompile(`^/(?:intl-[a-z]{2}(?:-[a-z]{2})?/)?track/([A-Za-z0-9]+)`)
)

func malformed(service models.Service, raw string) error {
	return shared.NewRemoteError(shared.KindMalformedInput, service.String(), "parse identifier",
		fmt.Errorf("cannot read %q as a %s track", raw, service.DisplayName()))
}

// ParseIdentifier reads a pasted link or id as an identifier for service.
func ParseIdentifier(service models.Service, raw string) (string, error) {
	switch service {
	case models.Spotify:
		return ParseSpotifyTrackURI(raw)
	case models.YouTube:
		return ParseYouTubeVideoID(raw)
	default:
		return "", fmt.Errorf("%w: unknown service %v", shared.ErrInvalidArgument, service)
	}
}

// ParseSpotifyTrackURI accepts spotify:track:<id>, an open.spotify.com/track/<id> link or a bare
// id and returns spotify:track:<id>.
func ParseSpotifyTrackURI(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if rest, ok := strings.CutPrefix(s, spotifyTrackPrefix); ok {
		if spotifyIDRe.MatchString(rest) {
			return spotifyTrackPrefix + rest, nil
		}
		return "", malformed(models.Spotify, raw)
	}

	if spotifyIDRe.MatchString(s) {
		return spotifyTrackPrefix + s, nil
	}

	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() != "open.spotify.com" {
		return "", malformed(models.Spotify, raw)
	}
	m := spotifyPathRe.FindStringSubmatch(u.Path)
	if m == nil || !spotifyIDRe.MatchString(m[1]) {
		return "", malformed(models.Spotify, raw)
	}
	return spotifyTrackPrefix + m[1], nil
}

// SpotifyID strips the spotify:track: prefix.
func SpotifyID(identifier string) string {
	return strings.TrimPrefix(identifier, spotifyTrackPrefix)
}

// ParseYouTubeVideoID accepts a youtu.be, youtube.com or music.youtube.com link, or a bare video id.
func ParseYouTubeVideoID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", malformed(models.YouTube, raw)
	}

	if u, err := url.Parse(s); err == nil && u.Host != "" && strings.Contains(u.Path, "/playlist") && u.Query().Get("v") == "" {
		return "", malformed(models.YouTube, raw)
	}

	id, err := youtube.ExtractVideoID(s)
	if err != nil || !youtubeIDRe.MatchString(id) {
		return "", malformed(models.YouTube, raw)
	}
	return id, nil
}

// ExportURL builds a shareable link for an identifier.
func ExportURL(service models.Service, identifier string) string {
	if strings.HasPrefix(identifier, "http://") || strings.HasPrefix(identifier, "https://") {
		return identifier
	}
	switch service {
	case models.Spotify:
		return "https://open.spotify.com/track/" + SpotifyID(identifier)
	case models.YouTube:
		return "https://music.youtube.com/watch?v=" + identifier
	default:
		return identifier
	}
}

// StripTrackingParams drops every query parameter except v and list.
func StripTrackingParams(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	kept := url.Values{}
	for _, k := range []string{"v", "list"} {
		if v := q.Get(k); v != "" {
			kept.Set(k, v)
		}
	}
	u.RawQuery = kept.Encode()
	u.Fragment = ""
	return u.String()
}
