package tasks

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/desertthunder/synclify/internal/matching"
	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/services"
	"github.com/desertthunder/synclify/internal/shared"
)

// ManagerOptions tunes a [PlaylistManager].
type ManagerOptions struct {
	Search             services.CandidateSearch // web fallback for AddInteractive, YouTube only
	Scorer             *matching.Scorer
	CandidateLimit     int
	DuplicateThreshold float64
	OpenURL            func(url string) error
}

// PlaylistManager implements the single playlist management operations.
type PlaylistManager struct {
	catalog   services.PlaylistCatalog
	prompt    UserPrompt
	web       *ResolutionEngine
	threshold float64
	logger    *log.Logger
}

func NewPlaylistManager(catalog services.PlaylistCatalog, prompt UserPrompt, opts ManagerOptions, logger *log.Logger) *PlaylistManager {
	if opts.DuplicateThreshold <= 0 {
		opts.DuplicateThreshold = matching.DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var search services.CandidateSearch
	if catalog.Service() == models.YouTube {
		search = opts.Search
	}
	web := NewResolutionEngine(catalog, prompt, nopCache{}, EngineOptions{
		Search:         search,
		Scorer:         opts.Scorer,
		CandidateLimit: opts.CandidateLimit,
		OpenURL:        opts.OpenURL,
	}, logger)

	return &PlaylistManager{
		catalog:   catalog,
		prompt:    prompt,
		web:       web,
		threshold: opts.DuplicateThreshold,
		logger:    logger,
	}
}

// ChoosePlaylist lists playlists and asks the user to pick one. Returns nil when nothing was picked.
func (m *PlaylistManager) ChoosePlaylist(ctx context.Context, purpose string) (*models.Playlist, error) {
	playlists, err := m.catalog.ListPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	if len(playlists) == 0 {
		return nil, fmt.Errorf("%w: no playlists on %s", shared.ErrPlaylistNotFound, m.catalog.Service().DisplayName())
	}

	rows := make([][]string, len(playlists))
	options := make([]string, len(playlists))
	for i, pl := range playlists {
		rows[i] = []string{strconv.Itoa(i + 1), pl.Name, strconv.Itoa(pl.TrackCount)}
		options[i] = fmt.Sprintf("%s (%d tracks)", pl.Name, pl.TrackCount)
	}
	title := fmt.Sprintf("Playlists on %s (%s)", m.catalog.Service().DisplayName(), purpose)
	if err := m.prompt.PresentTable(title, []string{"#", "Name", "Tracks"}, rows); err != nil {
		m.logger.Warn("could not show playlists", "err", err)
	}

	choice, err := m.prompt.Choose(ctx, "Choose a playlist", options)
	if err != nil {
		return nil, interrupted(err)
	}
	if choice < 1 || choice > len(playlists) {
		return nil, nil
	}
	selected := playlists[choice-1]
	m.logger.Info("playlist selected", "name", selected.Name, "tracks", selected.TrackCount)
	return &selected, nil
}

// FindPlaylist looks a playlist up by ID, exact name, then fuzzy name.
func (m *PlaylistManager) FindPlaylist(ctx context.Context, query string) (*models.Playlist, error) {
	playlists, err := m.catalog.ListPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return MatchPlaylist(playlists, query)
}

// MatchPlaylist picks the playlist named by query. Exact ID and case-insensitive name matches win;
// otherwise the closest fuzzy name match is used.
func MatchPlaylist(playlists []models.Playlist, query string) (*models.Playlist, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: playlist name or ID", shared.ErrMissingArgument)
	}

	for i := range playlists {
		if playlists[i].ID == query {
			return &playlists[i], nil
		}
	}
	for i := range playlists {
		if strings.EqualFold(playlists[i].Name, query) {
			return &playlists[i], nil
		}
	}

	names := make([]string, len(playlists))
	for i, pl := range playlists {
		names[i] = pl.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(query, names)
	if len(ranks) == 0 {
		return nil, fmt.Errorf("%w: no playlist found with name '%s'", shared.ErrPlaylistNotFound, query)
	}
	sort.Stable(ranks)
	return &playlists[ranks[0].OriginalIndex], nil
}

// ArtistSummary counts the tracks of a playlist per credited artist.
func (m *PlaylistManager) ArtistSummary(ctx context.Context, playlistID string) ([]matching.ArtistCount, error) {
	tracks, err := m.catalog.GetTracks(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}
	m.logger.Info("tracks loaded", "count", len(tracks))
	return matching.ArtistSummary(tracks), nil
}

// AddResult lists what [PlaylistManager.AddInteractive] added and what it could not find.
type AddResult struct {
	Added    []string
	NotFound []string
}

// AddInteractive reads "Title - Artist1, Artist2" lines until a blank one, resolves each entry
// and adds everything found in one call.
func (m *PlaylistManager) AddInteractive(ctx context.Context, playlistID string) (*AddResult, error) {
	result := &AddResult{}
	for {
		line, err := m.prompt.ReadLine(ctx, "Track to add as Title - Artist1, Artist2 (blank line to finish)")
		if err != nil {
			return result, interrupted(err)
		}
		if strings.TrimSpace(line) == "" {
			break
		}

		title, artists, err := matching.ParseEntry(line)
		if err != nil {
			title, artists = strings.TrimSpace(line), nil
		}

		id, err := m.resolve(ctx, title, artists)
		if err != nil {
			return result, err
		}
		if id == "" {
			m.logger.Warn("no identifier found", "title", title)
			result.NotFound = append(result.NotFound, line)
			continue
		}
		m.logger.Info("queued for addition", "title", title, "id", id)
		result.Added = append(result.Added, id)
	}

	if len(result.Added) == 0 {
		return result, nil
	}
	if err := m.catalog.AddIdentifiers(ctx, playlistID, result.Added); err != nil {
		return result, fmt.Errorf("failed to add tracks: %w", err)
	}
	m.logger.Info("added tracks", "count", len(result.Added))
	return result, nil
}

// resolve tries catalog search, then the web fallback when one is configured.
func (m *PlaylistManager) resolve(ctx context.Context, title string, artists []string) (string, error) {
	id, err := m.catalog.SearchIdentifier(ctx, title, artists)
	switch {
	case isCancellation(err):
		return "", interrupted(err)
	case err != nil:
		m.logger.Warn("catalog search failed", "title", title, "err", err)
	case id != "":
		return id, nil
	}

	if m.web.search == nil {
		return "", nil
	}
	item := ItemResult{Track: models.Track{Service: m.catalog.Service(), Title: title, Artists: artists}}
	if err := m.web.web(ctx, &item); err != nil {
		if isControl(err) {
			return "", err
		}
		m.logger.Warn("web search failed", "title", title, "err", err)
		return "", nil
	}
	return item.Identifier, nil
}

// RemoveByArtists removes every track crediting one of artists. Returns the removed tracks.
func (m *PlaylistManager) RemoveByArtists(ctx context.Context, playlistID string, artists []string) ([]models.Track, error) {
	var valid []string
	for _, a := range artists {
		if strings.TrimSpace(a) != "" {
			valid = append(valid, a)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no valid artists provided", shared.ErrInvalidArgument)
	}

	tracks, err := m.catalog.GetTracks(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}

	var matched []models.Track
	for _, t := range tracks {
		if matching.CreditsAny(t, valid) {
			matched = append(matched, t)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	m.logger.Info("removing tracks by artist", "count", len(matched), "artists", strings.Join(valid, ", "))
	if err := m.catalog.RemoveTracks(ctx, playlistID, matched); err != nil {
		return nil, fmt.Errorf("failed to remove tracks: %w", err)
	}
	return matched, nil
}

// RemoveDuplicates removes near-duplicate tracks, keeping the first of each group.
//
// Spotify removes every occurrence of a track ID, so IDs shared with a kept track are added back once.
func (m *PlaylistManager) RemoveDuplicates(ctx context.Context, playlistID string) ([]models.Track, error) {
	tracks, err := m.catalog.GetTracks(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist: %w", err)
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	m.logger.Info("scanning for duplicates", "tracks", len(tracks), "threshold", m.threshold)
	duplicates := matching.FindSimilar(tracks, m.threshold)
	if len(duplicates) == 0 {
		return nil, nil
	}

	if err := m.catalog.RemoveTracks(ctx, playlistID, duplicates); err != nil {
		return nil, fmt.Errorf("failed to remove duplicates: %w", err)
	}

	if readd := sharedIDs(tracks, duplicates); m.catalog.Service() == models.Spotify && len(readd) > 0 {
		if err := m.catalog.AddIdentifiers(ctx, playlistID, readd); err != nil {
			return duplicates, fmt.Errorf("duplicates removed but %d kept tracks could not be restored: %w", len(readd), err)
		}
	}
	m.logger.Info("duplicates removed", "count", len(duplicates))
	return duplicates, nil
}

// sharedIDs returns the IDs of removed tracks that also belong to a kept track, once each.
func sharedIDs(all, removed []models.Track) []string {
	total := make(map[string]int)
	for _, t := range all {
		total[t.ExternalID]++
	}
	removedCount := make(map[string]int)
	for _, t := range removed {
		removedCount[t.ExternalID]++
	}

	var ids []string
	for _, t := range all {
		id := t.ExternalID
		if id == "" || removedCount[id] == 0 || total[id] <= removedCount[id] {
			continue
		}
		ids = append(ids, id)
		removedCount[id] = 0
	}
	return ids
}

// nopCache lets the manager reuse the engine's web fallback without caching.
type nopCache struct{}

func (nopCache) Get(string) (string, bool) { return "", false }
func (nopCache) Put(string, string)        {}
func (nopCache) Flush()                    {}
