package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
)

// SpotifyBatchSize is the most tracks the API accepts per add or remove call.
const SpotifyBatchSize = 100

// SpotifyCatalog implements [PlaylistCatalog] with the zmb3/spotify client.
type SpotifyCatalog struct {
	client    *spotify.Client
	batchSize int
	retry     RetryPolicy
	logger    *log.Logger
	userID    string
}

// SpotifyOptions tunes a [SpotifyCatalog].
type SpotifyOptions struct {
	BatchSize     int
	Retry         RetryPolicy
	ClientOptions []spotify.ClientOption
}

// NewSpotifyCatalog builds a catalog on top of an authenticated HTTP client.
// The client honours Retry-After on 429 responses.
func NewSpotifyCatalog(client *http.Client, opts SpotifyOptions, logger *log.Logger) *SpotifyCatalog {
	clientOpts := append([]spotify.ClientOption{spotify.WithRetry(true)}, opts.ClientOptions...)
	if opts.BatchSize <= 0 || opts.BatchSize > SpotifyBatchSize {
		opts.BatchSize = SpotifyBatchSize
	}
	if opts.Retry.MaxTries == 0 {
		opts.Retry = DefaultRetryPolicy
	}
	return &SpotifyCatalog{
		client:    spotify.New(client, clientOpts...),
		batchSize: opts.BatchSize,
		retry:     opts.Retry,
		logger:    logger,
	}
}

func (s *SpotifyCatalog) Service() models.Service { return models.Spotify }

func (s *SpotifyCatalog) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := Retry(ctx, s.retry, func(ctx context.Context) error {
		playlists = playlists[:0]
		page, err := s.client.CurrentUsersPlaylists(ctx, spotify.Limit(50))
		for err == nil {
			for _, p := range page.Playlists {
				playlists = append(playlists, models.Playlist{ID: string(p.ID), Name: p.Name, TrackCount: int(p.Tracks.Total)})
			}
			err = s.client.NextPage(ctx, page)
		}
		if errors.Is(err, spotify.ErrNoMorePages) {
			return nil
		}
		return classifySpotifyError("list playlists", err)
	})
	return playlists, err
}

func (s *SpotifyCatalog) currentUser(ctx context.Context) (string, error) {
	if s.userID != "" {
		return s.userID, nil
	}
	err := Retry(ctx, s.retry, func(ctx context.Context) error {
		user, err := s.client.CurrentUser(ctx)
		if err != nil {
			return classifySpotifyError("current user", err)
		}
		s.userID = user.ID
		return nil
	})
	return s.userID, err
}

func (s *SpotifyCatalog) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	userID, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	var created *spotify.FullPlaylist
	err = Retry(ctx, s.retry, func(ctx context.Context) error {
		var err error
		created, err = s.client.CreatePlaylistForUser(ctx, userID, name, description, false, false)
		return classifySpotifyError("create playlist", err)
	})
	if err != nil {
		return nil, err
	}
	return &models.Playlist{ID: string(created.ID), Name: created.Name}, nil
}

func (s *SpotifyCatalog) GetTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	err := Retry(ctx, s.retry, func(ctx context.Context) error {
		tracks = tracks[:0]
		page, err := s.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(100))
		for err == nil {
			for _, item := range page.Items {
				if t, ok := spotifyTrack(item); ok {
					tracks = append(tracks, t)
				}
			}
			err = s.client.NextPage(ctx, page)
		}
		if errors.Is(err, spotify.ErrNoMorePages) {
			return nil
		}
		return classifySpotifyError("list playlist items", err)
	})
	return tracks, err
}

// spotifyTrack maps a playlist item, skipping episodes and local files without an id.
func spotifyTrack(item spotify.PlaylistItem) (models.Track, bool) {
	ft := item.Track.Track
	if ft == nil || ft.ID == "" {
		return models.Track{}, false
	}

	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		if a.Name != "" {
			artists = append(artists, a.Name)
		}
	}
	return models.Track{
		Service:    models.Spotify,
		ExternalID: string(ft.ID),
		URI:        string(ft.URI),
		Title:      ft.Name,
		Artists:    artists,
		Handle:     string(ft.ID),
	}, true
}

// AddIdentifiers appends tracks in batches of at most [SpotifyBatchSize].
func (s *SpotifyCatalog) AddIdentifiers(ctx context.Context, playlistID string, ids []string) error {
	for _, batch := range chunk(toSpotifyIDs(ids), s.batchSize) {
		err := Retry(ctx, s.retry, func(ctx context.Context) error {
			_, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...)
			return classifySpotifyError("add tracks", err)
		})
		if err != nil {
			return err
		}
		if s.logger != nil {
			s.logger.Debug("added batch", "playlist", playlistID, "count", len(batch))
		}
	}
	return nil
}

// RemoveTracks removes every occurrence of the given tracks.
func (s *SpotifyCatalog) RemoveTracks(ctx context.Context, playlistID string, tracks []models.Track) error {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ExternalID)
	}
	for _, batch := range chunk(toSpotifyIDs(ids), s.batchSize) {
		err := Retry(ctx, s.retry, func(ctx context.Context) error {
			_, err := s.client.RemoveTracksFromPlaylist(ctx, spotify.ID(playlistID), batch...)
			return classifySpotifyError("remove tracks", err)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SpotifyCatalog) SearchIdentifier(ctx context.Context, title string, artists []string) (string, error) {
	query := fmt.Sprintf("track:%s", strings.TrimSpace(title))
	if len(artists) > 0 {
		query += fmt.Sprintf(" artist:%s", artists[0])
	}

	var uri string
	err := Retry(ctx, s.retry, func(ctx context.Context) error {
		res, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
		if err != nil {
			return classifySpotifyError("search", err)
		}
		uri = ""
		if res.Tracks != nil && len(res.Tracks.Tracks) > 0 {
			uri = string(res.Tracks.Tracks[0].URI)
		}
		return nil
	})
	return uri, err
}

func toSpotifyIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, 0, len(ids))
	for _, id := range ids {
		if id = SpotifyID(id); id != "" {
			out = append(out, spotify.ID(id))
		}
	}
	return out
}

func chunk[T any](items []T, size int) [][]T {
	var batches [][]T
	for size < len(items) {
		items, batches = items[size:], append(batches, items[:size:size])
	}
	if len(items) > 0 {
		batches = append(batches, items)
	}
	return batches
}

// classifySpotifyError maps API failures onto the [shared.RemoteError] taxonomy.
// Spotify has no daily quota, so only throttling and server errors are transient.
func classifySpotifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	kind := shared.KindPermanent
	var serr spotify.Error
	var nerr net.Error
	switch {
	case errors.As(err, &serr):
		if serr.Status == http.StatusTooManyRequests || serr.Status >= 500 {
			kind = shared.KindTransient
		}
	case errors.As(err, &nerr):
		kind = shared.KindTransient
	}
	return shared.NewRemoteError(kind, models.Spotify.String(), op, err)
}
