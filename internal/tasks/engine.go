package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/synclify/internal/matching"
	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/services"
	"github.com/desertthunder/synclify/internal/shared"
)

// UserPrompt is the interactive surface used while resolving. Every call blocks until the user answers.
type UserPrompt interface {
	// Choose returns the 1-based index of the picked option, or 0 for none.
	// The blocking methods fail with [shared.ErrInterrupted] once ctx is done.
	Choose(ctx context.Context, title string, options []string) (int, error)
	Confirm(ctx context.Context, question string) (bool, error)
	ReadLine(ctx context.Context, prompt string) (string, error)
	PresentTable(title string, headers []string, rows [][]string) error
}

// ResolutionCache maps cache keys to destination identifiers.
// Implementations swallow their own failures.
type ResolutionCache interface {
	Get(key string) (string, bool)
	Put(key, value string)
	Flush()
}

// Strategy names the cascade step that produced an identifier.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyCache
	StrategySearch
	StrategyWeb
	StrategyWebPick
	StrategyManual
)

func (s Strategy) String() string {
	switch s {
	case StrategyCache:
		return "cache"
	case StrategySearch:
		return "search"
	case StrategyWeb:
		return "web"
	case StrategyWebPick:
		return "web-pick"
	case StrategyManual:
		return "manual"
	default:
		return "none"
	}
}

// Outcome is what happened to an item after resolution.
type Outcome int

const (
	OutcomeUnresolved Outcome = iota
	OutcomeInserted
	OutcomeQueued
	OutcomeBatched
	OutcomeDuplicate
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeQueued:
		return "queued"
	case OutcomeBatched:
		return "batched"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFailed:
		return "failed"
	default:
		return "unresolved"
	}
}

// ItemResult is the outcome of resolving a single track.
type ItemResult struct {
	Track      models.Track
	Identifier string
	Strategy   Strategy
	Outcome    Outcome
	Err        error // last non fatal error seen for this item
}

// ResolutionResult summarizes a call to [ResolutionEngine.Resolve].
type ResolutionResult struct {
	Items      []ItemResult
	Batched    []string // identifiers waiting for a batched destination write
	Resolved   int
	Unresolved int
	Inserted   int
	Queued     int
	Failed     int
	Stopped    bool
}

func (r *ResolutionResult) record(item ItemResult) {
	r.Items = append(r.Items, item)
	if item.Identifier != "" {
		r.Resolved++
	}
	switch item.Outcome {
	case OutcomeUnresolved:
		r.Unresolved++
	case OutcomeInserted:
		r.Inserted++
	case OutcomeQueued:
		r.Queued++
	case OutcomeBatched:
		r.Batched = append(r.Batched, item.Identifier)
	case OutcomeFailed:
		r.Failed++
	}
}

// maxChallengeRounds bounds the verification challenges solved for one item.
const maxChallengeRounds = 3

var quotaOptions = []string{
	"Manual: paste links yourself",
	"Web auto: search the web and propose candidates",
	"Planning: stop writing to the destination and export links to add later",
	"Stop",
}

// EngineOptions configures a [ResolutionEngine].
type EngineOptions struct {
	PlaylistID     string
	Search         services.CandidateSearch // nil disables the web fallback
	Scorer         *matching.Scorer
	CandidateLimit int
	// Batched collects identifiers for the caller to write in bulk instead of inserting per item.
	Batched bool
	State   *RunState
	OpenURL func(url string) error
}

// ResolutionEngine resolves missing tracks against a destination catalog one at a time,
// in order, through the cache, catalog search, web fallback and manual entry.
type ResolutionEngine struct {
	catalog    services.PlaylistCatalog
	playlistID string
	search     services.CandidateSearch
	prompt     UserPrompt
	cache      ResolutionCache
	scorer     *matching.Scorer
	limit      int
	batched    bool
	state      *RunState
	openURL    func(string) error
	logger     *log.Logger
}

func NewResolutionEngine(
	catalog services.PlaylistCatalog,
	prompt UserPrompt,
	cache ResolutionCache,
	opts EngineOptions,
	logger *log.Logger,
) *ResolutionEngine {
	if opts.Scorer == nil {
		opts.Scorer = matching.NewScorer()
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = 5
	}
	if opts.State == nil {
		opts.State = NewRunState()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ResolutionEngine{
		catalog:    catalog,
		playlistID: opts.PlaylistID,
		search:     opts.Search,
		prompt:     prompt,
		cache:      cache,
		scorer:     opts.Scorer,
		limit:      opts.CandidateLimit,
		batched:    opts.Batched,
		state:      opts.State,
		openURL:    opts.OpenURL,
		logger:     logger,
	}
}

func (e *ResolutionEngine) State() *RunState { return e.state }

// Resolve works through tracks in order. A user stop ends the loop with Stopped set and a nil error.
// An interrupt returns the partial result with an error wrapping [shared.ErrInterrupted].
func (e *ResolutionEngine) Resolve(ctx context.Context, tracks []models.Track, progress chan<- ProgressUpdate) (*ResolutionResult, error) {
	result := &ResolutionResult{}
	total := len(tracks)

	for i, t := range tracks {
		if err := ctx.Err(); err != nil {
			return result, interrupted(err)
		}
		sendProgress(progress, resolveTrackUpdate(i+1, total, t))

		item, err := e.resolveOne(ctx, t)
		result.record(item)

		switch {
		case errors.Is(err, shared.ErrRunStopped):
			result.Stopped = true
			e.logger.Warn("run stopped", "resolved", result.Resolved, "remaining", total-i-1)
			return result, nil
		case err != nil:
			return result, err
		}
	}
	return result, nil
}

func (e *ResolutionEngine) resolveOne(ctx context.Context, t models.Track) (ItemResult, error) {
	item := ItemResult{Track: t}
	if err := e.cascade(ctx, &item); err != nil {
		return item, err
	}
	if item.Identifier == "" {
		e.logger.Info("unresolved", "title", t.Title, "artists", t.ArtistLine())
		return item, nil
	}

	e.logger.Info("resolved", "title", t.Title, "strategy", item.Strategy, "id", item.Identifier)
	if item.Strategy != StrategyCache {
		e.cache.Put(matching.CacheKey(e.catalog.Service(), t.Title, t.Artists), item.Identifier)
		e.cache.Flush()
	}
	return e.deliver(ctx, item)
}

func (e *ResolutionEngine) cascade(ctx context.Context, item *ItemResult) error {
	t := item.Track
	service := e.catalog.Service()

	if id, ok := e.cache.Get(matching.CacheKey(service, t.Title, t.Artists)); ok {
		item.Identifier, item.Strategy = id, StrategyCache
		return nil
	}

	if e.state.Mode() == ModeNormal {
		id, err := e.catalog.SearchIdentifier(ctx, t.Title, t.Artists)
		switch {
		case err == nil && id != "":
			item.Identifier, item.Strategy = id, StrategySearch
			return nil
		case errors.Is(err, shared.ErrQuotaExceeded):
			e.state.DisableSearch()
			e.logger.Warn("search quota exhausted, catalog search disabled for this run", "service", service)
			if err := e.afterQuota(ctx, service); err != nil {
				return err
			}
		case isCancellation(err):
			return interrupted(err)
		case err != nil:
			item.Err = err
			e.logger.Warn("catalog search failed", "title", t.Title, "err", err)
		}
	}

	if !e.state.ManualModeChosen && e.search != nil {
		err := e.web(ctx, item)
		switch {
		case isControl(err):
			return err
		case err != nil:
			item.Err = err
			e.logger.Warn("web search failed", "title", t.Title, "err", err)
		case item.Identifier != "":
			return nil
		}
	}

	return e.manual(ctx, item)
}

// afterQuota asks once how to continue once catalog search is gone.
func (e *ResolutionEngine) afterQuota(ctx context.Context, service models.Service) error {
	if e.state.PromptedAfterQuota {
		return nil
	}
	e.state.PromptedAfterQuota = true

	title := fmt.Sprintf("%s quota exhausted. How should the remaining tracks be resolved?", service.DisplayName())
	choice, err := e.prompt.Choose(ctx, title, quotaOptions)
	if err != nil {
		return interrupted(err)
	}

	switch choice {
	case 1:
		e.state.ManualModeChosen = true
	case 2:
		e.state.WebAutoModeChosen = true
	case 3:
		e.state.EnablePlanning()
	default:
		return shared.ErrRunStopped
	}
	e.logger.Warn("continuing after quota", "mode", e.state.Mode(), "manual", e.state.ManualModeChosen)
	return nil
}

func (e *ResolutionEngine) web(ctx context.Context, item *ItemResult) error {
	t := item.Track
	var candidates []models.Candidate
	for round := 0; ; round++ {
		var err error
		candidates, err = e.search.Search(ctx, t.Title, t.Artists)
		if err == nil {
			break
		}
		if isCancellation(err) {
			return interrupted(err)
		}
		challenge, ok := shared.ChallengeURL(err)
		if !ok || round >= maxChallengeRounds {
			return err
		}
		if err := e.solveChallenge(ctx, challenge); err != nil {
			return err
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	service := e.catalog.Service()
	if best, ok := e.scorer.PickBest(candidates, t.Title, t.Artists); ok {
		if id, err := services.ParseIdentifier(service, best.URL); err == nil {
			item.Identifier, item.Strategy = id, StrategyWeb
			return nil
		}
		e.logger.Debug("best web result is not a single track", "url", best.URL)
	}
	return e.pick(ctx, item, candidates)
}

func (e *ResolutionEngine) solveChallenge(ctx context.Context, url string) error {
	e.logger.Warn("web search requires verification", "url", url)
	if e.openURL != nil {
		if err := e.openURL(url); err != nil {
			e.logger.Warn("could not open browser", "err", err)
		}
	}
	if _, err := e.prompt.ReadLine(ctx, fmt.Sprintf("Complete the verification at %s, then press Enter", url)); err != nil {
		return interrupted(err)
	}
	return nil
}

// pick shows the top ranked candidates and lets the user choose one.
func (e *ResolutionEngine) pick(ctx context.Context, item *ItemResult, candidates []models.Candidate) error {
	t := item.Track
	ranked := e.scorer.Rank(candidates, t.Title, t.Artists)
	if len(ranked) > e.limit {
		ranked = ranked[:e.limit]
	}

	rows := make([][]string, len(ranked))
	options := make([]string, len(ranked))
	for i, s := range ranked {
		rows[i] = []string{strconv.Itoa(i + 1), s.Candidate.Title, s.Candidate.URL, strconv.FormatFloat(s.Score, 'f', 2, 64)}
		options[i] = s.Candidate.Title
	}

	display := displayTrack(t)
	if err := e.prompt.PresentTable("Web results for "+display, []string{"#", "Title", "URL", "Score"}, rows); err != nil {
		e.logger.Warn("could not show candidates", "err", err)
	}
	choice, err := e.prompt.Choose(ctx, fmt.Sprintf("Pick a result for %s (0 = skip)", display), options)
	if err != nil {
		return interrupted(err)
	}
	if choice < 1 || choice > len(ranked) {
		return nil
	}

	id, err := services.ParseIdentifier(e.catalog.Service(), ranked[choice-1].Candidate.URL)
	if err != nil {
		item.Err = err
		e.logger.Warn("picked result is not a single track", "url", ranked[choice-1].Candidate.URL)
		return nil
	}
	item.Identifier, item.Strategy = id, StrategyWebPick
	return nil
}

func (e *ResolutionEngine) manual(ctx context.Context, item *ItemResult) error {
	service := e.catalog.Service()
	line, err := e.prompt.ReadLine(ctx, fmt.Sprintf("Not found on %s: %s. Paste a link (Enter to skip)", service.DisplayName(), displayTrack(item.Track)))
	if err != nil {
		return interrupted(err)
	}
	if strings.TrimSpace(line) == "" {
		return nil
	}

	id, err := services.ParseIdentifier(service, line)
	if err != nil {
		item.Err = err
		e.logger.Warn("could not parse link, item skipped", "input", line, "err", err)
		return nil
	}
	item.Identifier, item.Strategy = id, StrategyManual
	return nil
}

// deliver writes, batches or queues a resolved identifier depending on the mode.
func (e *ResolutionEngine) deliver(ctx context.Context, item ItemResult) (ItemResult, error) {
	id := item.Identifier
	if e.state.Seen(id) {
		item.Outcome = OutcomeDuplicate
		return item, nil
	}

	switch {
	case e.state.Mode() == ModePlanning:
		e.state.Queue(id)
		item.Outcome = OutcomeQueued
		return item, nil
	case e.batched:
		e.state.MarkInserted(id)
		item.Outcome = OutcomeBatched
		return item, nil
	}

	err := e.catalog.AddIdentifiers(ctx, e.playlistID, []string{id})
	switch {
	case err == nil:
		e.state.MarkInserted(id)
		item.Outcome = OutcomeInserted
		return item, nil
	case errors.Is(err, shared.ErrQuotaExceeded):
		e.state.DisableSearch()
		e.logger.Warn("quota exhausted while adding tracks", "service", e.catalog.Service())
		ok, perr := e.prompt.Confirm(ctx, fmt.Sprintf("%s quota exhausted while adding tracks. Switch to planning mode and export links to add later?", e.catalog.Service().DisplayName()))
		if perr != nil {
			item.Outcome, item.Err = OutcomeFailed, err
			return item, interrupted(perr)
		}
		if !ok {
			item.Outcome, item.Err = OutcomeFailed, err
			return item, shared.ErrRunStopped
		}
		e.state.EnablePlanning()
		e.state.Queue(id)
		item.Outcome = OutcomeQueued
		return item, nil
	case isCancellation(err):
		item.Outcome, item.Err = OutcomeFailed, err
		return item, interrupted(err)
	default:
		item.Outcome, item.Err = OutcomeFailed, err
		e.logger.Error("insert failed", "title", item.Track.Title, "id", id, "err", err)
		return item, nil
	}
}

func displayTrack(t models.Track) string {
	if len(t.Artists) == 0 {
		return t.Title
	}
	return t.Title + " - " + t.ArtistLine()
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// isControl reports errors that end the run rather than the current strategy.
func isControl(err error) bool {
	return errors.Is(err, shared.ErrRunStopped) || errors.Is(err, shared.ErrInterrupted) || isCancellation(err)
}

func interrupted(err error) error {
	if errors.Is(err, shared.ErrInterrupted) || errors.Is(err, shared.ErrRunStopped) {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrInterrupted, err)
}
