package models

import (
	"fmt"
	"strings"
)

// Service identifies a catalog. The set is closed.
type Service int

const (
	Spotify Service = iota
	YouTube
)

// Services lists every supported catalog.
var Services = []Service{Spotify, YouTube}

func (s Service) String() string {
	switch s {
	case Spotify:
		return "spotify"
	case YouTube:
		return "youtube"
	default:
		return fmt.Sprintf("service(%d)", int(s))
	}
}

// DisplayName is the user facing name of the catalog.
func (s Service) DisplayName() string {
	switch s {
	case Spotify:
		return "Spotify"
	case YouTube:
		return "YouTube Music"
	default:
		return s.String()
	}
}

// ParseService maps a name such as "spotify", "yt" or "youtube-music" to a [Service].
func ParseService(name string) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "spotify", "sp":
		return Spotify, nil
	case "youtube", "yt", "ytm", "youtube-music", "youtubemusic":
		return YouTube, nil
	default:
		return 0, fmt.Errorf("unknown service %q", name)
	}
}

func (s Service) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Service) UnmarshalText(text []byte) error {
	parsed, err := ParseService(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
