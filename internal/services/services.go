package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
)

// PlaylistCatalog is a music catalog that exposes user playlists.
//
// Identifiers are the canonical form produced by [ParseIdentifier]: "spotify:track:<id>" for
// Spotify and the 11 character video id for YouTube.
type PlaylistCatalog interface {
	// Service identifies the catalog.
	Service() models.Service

	// ListPlaylists returns the authenticated user's playlists.
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)

	// CreatePlaylist creates an empty playlist.
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// GetTracks returns every track of a playlist in playlist order.
	GetTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// AddIdentifiers appends tracks to a playlist.
	AddIdentifiers(ctx context.Context, playlistID string, ids []string) error

	// RemoveTracks removes the given playlist entries.
	RemoveTracks(ctx context.Context, playlistID string, tracks []models.Track) error

	// SearchIdentifier returns the identifier of the best catalog match, or "" when nothing matched.
	SearchIdentifier(ctx context.Context, title string, artists []string) (string, error)
}

// CandidateSearch proposes links for a track from outside the catalog.
type CandidateSearch interface {
	Search(ctx context.Context, title string, artists []string) ([]models.Candidate, error)
}

// Catalogs holds one [PlaylistCatalog] per service. Unconfigured services are nil.
type Catalogs struct {
	Spotify PlaylistCatalog
	YouTube PlaylistCatalog
}

// For returns the catalog for s.
func (c Catalogs) For(s models.Service) (PlaylistCatalog, error) {
	var cat PlaylistCatalog
	switch s {
	case models.Spotify:
		cat = c.Spotify
	case models.YouTube:
		cat = c.YouTube
	default:
		return nil, fmt.Errorf("%w: unknown service %v", shared.ErrInvalidArgument, s)
	}

	if cat == nil {
		return nil, fmt.Errorf("%w: %s is not configured", shared.ErrServiceUnavailable, s.DisplayName())
	}
	return cat, nil
}
