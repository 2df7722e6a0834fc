package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
)

const youtubePageSize = 50

// YouTubeCatalog implements [PlaylistCatalog] over the YouTube Data API.
//
// Search and insert calls spend daily quota units; once the quota is gone every call fails with
// [shared.ErrQuotaExceeded] until the quota resets.
type YouTubeCatalog struct {
	svc           *youtube.Service
	searchLimiter *rate.Limiter
	insertLimiter *rate.Limiter
	retry         RetryPolicy
	logger        *log.Logger
}

// YouTubeOptions tunes a [YouTubeCatalog].
type YouTubeOptions struct {
	SearchInterval time.Duration
	InsertInterval time.Duration
	Retry          RetryPolicy
	ClientOptions  []option.ClientOption
}

// NewYouTubeCatalog builds a catalog on top of an authenticated HTTP client.
func NewYouTubeCatalog(ctx context.Context, client *http.Client, opts YouTubeOptions, logger *log.Logger) (*YouTubeCatalog, error) {
	clientOpts := append([]option.ClientOption{option.WithHTTPClient(client)}, opts.ClientOptions...)
	svc, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: youtube client: %v", shared.ErrServiceUnavailable, err)
	}

	if opts.Retry.MaxTries == 0 {
		opts.Retry = DefaultRetryPolicy
	}
	return &YouTubeCatalog{
		svc:           svc,
		searchLimiter: intervalLimiter(opts.SearchInterval),
		insertLimiter: intervalLimiter(opts.InsertInterval),
		retry:         opts.Retry,
		logger:        logger,
	}, nil
}

func intervalLimiter(every time.Duration) *rate.Limiter {
	if every <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(every), 1)
}

func (y *YouTubeCatalog) Service() models.Service { return models.YouTube }

func (y *YouTubeCatalog) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := Retry(ctx, y.retry, func(ctx context.Context) error {
		playlists = playlists[:0]
		call := y.svc.Playlists.List([]string{"snippet", "contentDetails"}).Mine(true).MaxResults(youtubePageSize)
		err := call.Pages(ctx, func(resp *youtube.PlaylistListResponse) error {
			for _, p := range resp.Items {
				pl := models.Playlist{ID: p.Id}
				if p.Snippet != nil {
					pl.Name = p.Snippet.Title
				}
				if p.ContentDetails != nil {
					pl.TrackCount = int(p.ContentDetails.ItemCount)
				}
				playlists = append(playlists, pl)
			}
			return nil
		})
		return classifyYouTubeError("list playlists", err)
	})
	return playlists, err
}

func (y *YouTubeCatalog) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	var created *youtube.Playlist
	err := Retry(ctx, y.retry, func(ctx context.Context) error {
		if err := y.insertLimiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		created, err = y.svc.Playlists.Insert([]string{"snippet", "status"}, &youtube.Playlist{
			Snippet: &youtube.PlaylistSnippet{Title: name, Description: description},
			Status:  &youtube.PlaylistStatus{PrivacyStatus: "private"},
		}).Context(ctx).Do()
		return classifyYouTubeError("create playlist", err)
	})
	if err != nil {
		return nil, err
	}
	return &models.Playlist{ID: created.Id, Name: name}, nil
}

func (y *YouTubeCatalog) GetTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	err := Retry(ctx, y.retry, func(ctx context.Context) error {
		tracks = tracks[:0]
		call := y.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).PlaylistId(playlistID).MaxResults(youtubePageSize)
		err := call.Pages(ctx, func(resp *youtube.PlaylistItemListResponse) error {
			for _, item := range resp.Items {
				if t, ok := youtubeTrack(item); ok {
					tracks = append(tracks, t)
				}
			}
			return nil
		})
		return classifyYouTubeError("list playlist items", err)
	})
	return tracks, err
}

// youtubeTrack maps a playlist item. The uploading channel stands in for the artist.
func youtubeTrack(item *youtube.PlaylistItem) (models.Track, bool) {
	if item == nil || item.Snippet == nil {
		return models.Track{}, false
	}
	sn := item.Snippet

	videoID := ""
	if sn.ResourceId != nil {
		videoID = sn.ResourceId.VideoId
	}
	if videoID == "" && item.ContentDetails != nil {
		videoID = item.ContentDetails.VideoId
	}
	if videoID == "" {
		return models.Track{}, false
	}

	channel := sn.VideoOwnerChannelTitle
	if channel == "" {
		channel = sn.ChannelTitle
	}
	channel = strings.TrimSuffix(channel, " - Topic")

	var artists []string
	if channel != "" {
		artists = []string{channel}
	}
	return models.Track{
		Service:    models.YouTube,
		ExternalID: videoID,
		URI:        ExportURL(models.YouTube, videoID),
		Title:      sn.Title,
		Artists:    artists,
		Handle:     item.Id,
	}, true
}

// AddIdentifiers inserts videos one at a time. A quota failure stops the loop and is returned as is,
// so callers can tell how far the insert got from the logged ids.
func (y *YouTubeCatalog) AddIdentifiers(ctx context.Context, playlistID string, ids []string) error {
	for _, id := range ids {
		err := Retry(ctx, y.retry, func(ctx context.Context) error {
			if err := y.insertLimiter.Wait(ctx); err != nil {
				return err
			}
			_, err := y.svc.PlaylistItems.Insert([]string{"snippet"}, &youtube.PlaylistItem{
				Snippet: &youtube.PlaylistItemSnippet{
					PlaylistId: playlistID,
					ResourceId: &youtube.ResourceId{Kind: "youtube#video", VideoId: id},
				},
			}).Context(ctx).Do()
			return classifyYouTubeError("insert playlist item", err)
		})
		if err != nil {
			return err
		}
		if y.logger != nil {
			y.logger.Debug("inserted video", "playlist", playlistID, "video", id)
		}
	}
	return nil
}

func (y *YouTubeCatalog) RemoveTracks(ctx context.Context, playlistID string, tracks []models.Track) error {
	for _, t := range tracks {
		if t.Handle == "" {
			return fmt.Errorf("%w: %q has no playlist item id", shared.ErrInvalidArgument, t.Title)
		}
		err := Retry(ctx, y.retry, func(ctx context.Context) error {
			if err := y.insertLimiter.Wait(ctx); err != nil {
				return err
			}
			return classifyYouTubeError("delete playlist item", y.svc.PlaylistItems.Delete(t.Handle).Context(ctx).Do())
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (y *YouTubeCatalog) SearchIdentifier(ctx context.Context, title string, artists []string) (string, error) {
	query := strings.TrimSpace(title + " " + strings.Join(artists, " "))

	var id string
	err := Retry(ctx, y.retry, func(ctx context.Context) error {
		if err := y.searchLimiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := y.svc.Search.List([]string{"id"}).Q(query).Type("video").MaxResults(1).Context(ctx).Do()
		if err != nil {
			return classifyYouTubeError("search", err)
		}
		id = ""
		for _, item := range resp.Items {
			if item.Id != nil && item.Id.VideoId != "" {
				id = item.Id.VideoId
				break
			}
		}
		return nil
	})
	return id, err
}

var youtubeQuotaReasons = map[string]bool{"quotaExceeded": true, "dailyLimitExceeded": true}

var youtubeThrottleReasons = map[string]bool{"rateLimitExceeded": true, "userRateLimitExceeded": true, "backendError": true}

// classifyYouTubeError maps API failures onto the [shared.RemoteError] taxonomy.
func classifyYouTubeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	kind := shared.KindPermanent
	var gerr *googleapi.Error
	var nerr net.Error
	switch {
	case errors.As(err, &gerr):
		kind = youtubeErrorKind(gerr)
	case errors.As(err, &nerr):
		kind = shared.KindTransient
	}
	return shared.NewRemoteError(kind, models.YouTube.String(), op, err)
}

func youtubeErrorKind(gerr *googleapi.Error) shared.ErrorKind {
	for _, item := range gerr.Errors {
		if youtubeQuotaReasons[item.Reason] {
			return shared.KindQuotaExceeded
		}
		if youtubeThrottleReasons[item.Reason] {
			return shared.KindTransient
		}
	}
	switch {
	case gerr.Code == http.StatusForbidden && strings.Contains(strings.ToLower(gerr.Message), "quota"):
		return shared.KindQuotaExceeded
	case gerr.Code == http.StatusTooManyRequests, gerr.Code >= 500:
		return shared.KindTransient
	default:
		return shared.KindPermanent
	}
}
