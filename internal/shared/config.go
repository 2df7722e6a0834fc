package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Cache       CacheConfig       `toml:"cache"`
	Tokens      TokensConfig      `toml:"tokens"`
	Matching    MatchingConfig    `toml:"matching"`
	Retry       RetryConfig       `toml:"retry"`
	Throttle    ThrottleConfig    `toml:"throttle"`
	Web         WebConfig         `toml:"web"`
	Export      ExportConfig      `toml:"export"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify OAuthClientConfig `toml:"spotify"`
	YouTube OAuthClientConfig `toml:"youtube"`
}

// OAuthClientConfig holds the OAuth client registered with a catalog service.
type OAuthClientConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Configured reports whether both client id and secret are present.
func (c OAuthClientConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CacheConfig selects the resolution cache backend: "sqlite", "bolt" or "memory".
type CacheConfig struct {
	Backend  string `toml:"backend"`
	BoltPath string `toml:"bolt_path"`
}

// TokensConfig points at the directory OAuth tokens are stored in.
type TokensConfig struct {
	Dir string `toml:"dir"`
}

// MatchingConfig tunes duplicate detection and candidate scoring.
type MatchingConfig struct {
	DuplicateThreshold float64 `toml:"duplicate_threshold"`
	AcceptThreshold    float64 `toml:"accept_threshold"`
	SubsetBonus        float64 `toml:"subset_bonus"`
	CollectionPenalty  float64 `toml:"collection_penalty"`
	CandidateLimit     int     `toml:"candidate_limit"`
}

// RetryConfig controls backoff for transient remote failures.
type RetryConfig struct {
	MaxTries    int `toml:"max_tries"`
	BaseDelayMS int `toml:"base_delay_ms"`
	JitterMS    int `toml:"jitter_ms"`
}

// BaseDelay returns the configured base delay.
func (r RetryConfig) BaseDelay() time.Duration { return time.Duration(r.BaseDelayMS) * time.Millisecond }

// Jitter returns the configured jitter bound.
func (r RetryConfig) Jitter() time.Duration { return time.Duration(r.JitterMS) * time.Millisecond }

// ThrottleConfig holds the pauses between remote calls.
type ThrottleConfig struct {
	WebSearchMS     int `toml:"web_search_ms"`
	YouTubeSearchMS int `toml:"youtube_search_ms"`
	YouTubeInsertMS int `toml:"youtube_insert_ms"`
	SpotifyAddBatch int `toml:"spotify_add_batch"`
}

// WebConfig configures the web candidate search.
type WebConfig struct {
	BaseURL    string `toml:"base_url"`
	MaxResults int    `toml:"max_results"`
	UserAgent  string `toml:"user_agent"`
}

// ExportConfig configures where planning exports are written.
type ExportConfig struct {
	Dir string `toml:"dir"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig sets the logger level.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks value ranges the matching and retry layers depend on.
func (c *Config) Validate() error {
	m := c.Matching
	if m.DuplicateThreshold <= 0 || m.DuplicateThreshold > 1 {
		return fmt.Errorf("%w: matching.duplicate_threshold must be in (0, 1], got %v", ErrInvalidConfig, m.DuplicateThreshold)
	}
	if m.AcceptThreshold < 0 || m.AcceptThreshold > 1 {
		return fmt.Errorf("%w: matching.accept_threshold must be in [0, 1], got %v", ErrInvalidConfig, m.AcceptThreshold)
	}
	if m.CandidateLimit < 1 {
		return fmt.Errorf("%w: matching.candidate_limit must be positive", ErrInvalidConfig)
	}
	if c.Retry.MaxTries < 1 {
		return fmt.Errorf("%w: retry.max_tries must be positive", ErrInvalidConfig)
	}
	switch c.Cache.Backend {
	case "sqlite", "bolt", "memory":
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	return nil
}

// ApplyEnv loads a dotenv file (if present) and lets the process environment override credentials and log level.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	overrides := []struct {
		key    string
		target *string
	}{
		{"SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret},
		{"SPOTIFY_REDIRECT_URI", &c.Credentials.Spotify.RedirectURI},
		{"YOUTUBE_CLIENT_ID", &c.Credentials.YouTube.ClientID},
		{"YOUTUBE_CLIENT_SECRET", &c.Credentials.YouTube.ClientSecret},
		{"YOUTUBE_REDIRECT_URI", &c.Credentials.YouTube.RedirectURI},
		{"SYNCLIFY_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.target = v
		}
	}
	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
