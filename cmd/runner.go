package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/synclify/internal/matching"
	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/repositories"
	"github.com/desertthunder/synclify/internal/services"
	"github.com/desertthunder/synclify/internal/shared"
	"github.com/desertthunder/synclify/internal/tasks"
	"github.com/desertthunder/synclify/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	catalogs   services.Catalogs
	search     services.CandidateSearch
	prompt     tasks.UserPrompt
	palette    *ui.Palette
	tokens     *services.TokenStore
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	openURL    func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Catalogs and Search are built from stored tokens and config when left empty.
type RunnerOpts struct {
	Config     *shared.Config
	Catalogs   services.Catalogs
	Search     services.CandidateSearch
	Prompt     tasks.UserPrompt
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	OpenURL    func(url string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	palette := ui.PlainPalette()
	if opts.Prompt == nil {
		console := ui.NewConsole(opts.Input, opts.Output)
		opts.Prompt, palette = console, console.Palette()
	}
	if opts.Search == nil {
		opts.Search = services.NewWebSearch(opts.HTTPClient, services.WebSearchOptionsFrom(opts.Config), opts.Logger)
	}

	return &Runner{
		config:     opts.Config,
		catalogs:   opts.Catalogs,
		search:     opts.Search,
		prompt:     opts.Prompt,
		palette:    palette,
		tokens:     services.NewTokenStore(opts.Config.Tokens.Dir, opts.Logger),
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		openURL:    opts.OpenURL,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, playlistCommand, cacheCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// catalog returns the catalog for service, connecting it with the stored OAuth token on first use.
func (r *Runner) catalog(ctx context.Context, service models.Service) (services.PlaylistCatalog, error) {
	if cat, err := r.catalogs.For(service); err == nil {
		return cat, nil
	}

	var creds shared.OAuthClientConfig
	switch service {
	case models.Spotify:
		creds = r.config.Credentials.Spotify
	case models.YouTube:
		creds = r.config.Credentials.YouTube
	}
	conf, err := services.OAuthConfig(service, creds)
	if err != nil {
		return nil, err
	}
	client, err := r.tokens.Client(ctx, service, conf)
	if err != nil {
		return nil, err
	}

	policy := services.RetryPolicyFrom(r.config.Retry)
	logger := shared.WithLogger(r.logger, "service", service.String())
	switch service {
	case models.Spotify:
		r.catalogs.Spotify = services.NewSpotifyCatalog(client, services.SpotifyOptions{
			BatchSize: r.config.Throttle.SpotifyAddBatch,
			Retry:     policy,
		}, logger)
	case models.YouTube:
		yt, err := services.NewYouTubeCatalog(ctx, client, services.YouTubeOptions{
			SearchInterval: time.Duration(r.config.Throttle.YouTubeSearchMS) * time.Millisecond,
			InsertInterval: time.Duration(r.config.Throttle.YouTubeInsertMS) * time.Millisecond,
			Retry:          policy,
		}, logger)
		if err != nil {
			return nil, err
		}
		r.catalogs.YouTube = yt
	}
	return r.catalogs.For(service)
}

func (r *Runner) serviceFlag(cmd *cli.Command, name string) (models.Service, error) {
	service, err := models.ParseService(cmd.String(name))
	if err != nil {
		return 0, fmt.Errorf("%w: --%s: %v", shared.ErrInvalidArgument, name, err)
	}
	return service, nil
}

func (r *Runner) scorer() *matching.Scorer {
	m := r.config.Matching
	return &matching.Scorer{
		AcceptThreshold:   m.AcceptThreshold,
		SubsetBonus:       m.SubsetBonus,
		CollectionPenalty: m.CollectionPenalty,
	}
}

// openDatabase opens and migrates the run history database.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// openStore opens the resolution store selected by [cache] backend. The memory backend has no store.
func (r *Runner) openStore() (repositories.Store, error) {
	switch r.config.Cache.Backend {
	case "memory":
		return nil, nil
	case "bolt":
		store, err := repositories.OpenBoltStore(r.config.Cache.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt cache: %w", err)
		}
		return store, nil
	default:
		db, err := r.openDatabase()
		if err != nil {
			return nil, err
		}
		return &dbStore{SQLiteStore: repositories.NewSQLiteStore(db), db: db}, nil
	}
}

// dbStore closes the database it was opened on.
type dbStore struct {
	*repositories.SQLiteStore
	db *sql.DB
}

func (s *dbStore) Close() error { return s.db.Close() }

// watch starts printing progress updates. Close the returned channel, then wait on done.
func (r *Runner) watch() (progress chan tasks.ProgressUpdate, done <-chan struct{}) {
	progress = make(chan tasks.ProgressUpdate, 16)
	return progress, ui.WatchProgress(r.output, r.palette, progress)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
