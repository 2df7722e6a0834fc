package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

var spotifyScopes = []string{
	"user-read-private",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-private",
	"playlist-modify-public",
}

// OAuthConfig builds the OAuth client configuration for a service.
func OAuthConfig(service models.Service, creds shared.OAuthClientConfig) (*oauth2.Config, error) {
	if !creds.Configured() {
		return nil, fmt.Errorf("%w: %s client_id and client_secret", shared.ErrMissingCredentials, service)
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
	}
	switch service {
	case models.Spotify:
		conf.Scopes = spotifyScopes
		conf.Endpoint = oauth2.Endpoint{AuthURL: spotifyAuthURL, TokenURL: spotifyTokenURL}
	case models.YouTube:
		conf.Scopes = []string{youtube.YoutubeScope}
		conf.Endpoint = google.Endpoint
	default:
		return nil, fmt.Errorf("%w: unknown service %v", shared.ErrInvalidArgument, service)
	}
	return conf, nil
}

// TokenStore keeps one OAuth token per service as JSON files in Dir.
type TokenStore struct {
	Dir    string
	logger *log.Logger
}

// NewTokenStore returns a [TokenStore] rooted at dir.
func NewTokenStore(dir string, logger *log.Logger) *TokenStore {
	return &TokenStore{Dir: dir, logger: logger}
}

func (s *TokenStore) path(service models.Service) string {
	return filepath.Join(s.Dir, service.String()+".json")
}

// Load reads the stored token for service.
func (s *TokenStore) Load(service models.Service) (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path(service))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: run `synclify auth %s`", shared.ErrNotAuthenticated, service)
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &tok, nil
}

// Save writes tok for service, readable only by the current user.
func (s *TokenStore) Save(service models.Service, tok *oauth2.Token) error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(s.path(service), data, 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

// Client returns an HTTP client that refreshes the stored token and saves refreshed tokens back.
func (s *TokenStore) Client(ctx context.Context, service models.Service, conf *oauth2.Config) (*http.Client, error) {
	tok, err := s.Load(service)
	if err != nil {
		return nil, err
	}
	src := &savingTokenSource{
		base:    conf.TokenSource(ctx, tok),
		last:    tok.AccessToken,
		service: service,
		store:   s,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

type savingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	last    string
	service models.Service
	store   *TokenStore
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(s.service, tok); err != nil && s.store.logger != nil {
			s.store.logger.Warn("could not persist refreshed token", "service", s.service, "error", err)
		}
	}
	return tok, nil
}
