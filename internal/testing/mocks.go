package testing

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
)

// MockCatalog is a test double for [services.PlaylistCatalog].
//
// Search results and errors are keyed by track title.
type MockCatalog struct {
	Kind      models.Service
	Playlists []models.Playlist
	Tracks    map[string][]models.Track

	Results    map[string]string
	SearchErrs map[string]error

	ListErr      error
	CreateErr    error
	GetTracksErr error
	RemoveErr    error
	// OnAdd runs before identifiers are recorded; a non-nil error rejects the call.
	OnAdd func(playlistID string, ids []string) error

	SearchCalls []string
	AddCalls    [][]string
	Added       map[string][]string
	Removed     []models.Track
	Created     []models.Playlist
}

// NewMockCatalog returns an empty catalog for service.
func NewMockCatalog(service models.Service) *MockCatalog {
	return &MockCatalog{
		Kind:       service,
		Tracks:     make(map[string][]models.Track),
		Results:    make(map[string]string),
		SearchErrs: make(map[string]error),
		Added:      make(map[string][]string),
	}
}

func (m *MockCatalog) Service() models.Service { return m.Kind }

func (m *MockCatalog) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.Playlists, nil
}

func (m *MockCatalog) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	pl := models.Playlist{ID: fmt.Sprintf("created-%d", len(m.Created)+1), Name: name}
	m.Created = append(m.Created, pl)
	m.Playlists = append(m.Playlists, pl)
	return &pl, nil
}

func (m *MockCatalog) GetTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if m.GetTracksErr != nil {
		return nil, m.GetTracksErr
	}
	return m.Tracks[playlistID], nil
}

func (m *MockCatalog) AddIdentifiers(ctx context.Context, playlistID string, ids []string) error {
	m.AddCalls = append(m.AddCalls, append([]string(nil), ids...))
	if m.OnAdd != nil {
		if err := m.OnAdd(playlistID, ids); err != nil {
			return err
		}
	}
	m.Added[playlistID] = append(m.Added[playlistID], ids...)
	return nil
}

func (m *MockCatalog) RemoveTracks(ctx context.Context, playlistID string, tracks []models.Track) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.Removed = append(m.Removed, tracks...)
	return nil
}

func (m *MockCatalog) SearchIdentifier(ctx context.Context, title string, artists []string) (string, error) {
	m.SearchCalls = append(m.SearchCalls, title)
	if err := m.SearchErrs[title]; err != nil {
		return "", err
	}
	return m.Results[title], nil
}

// MockSearch is a test double for [services.CandidateSearch].
// Errs are consumed in order before Results are returned.
type MockSearch struct {
	Results map[string][]models.Candidate
	Errs    map[string][]error
	Calls   []string
}

func NewMockSearch() *MockSearch {
	return &MockSearch{
		Results: make(map[string][]models.Candidate),
		Errs:    make(map[string][]error),
	}
}

func (m *MockSearch) Search(ctx context.Context, title string, artists []string) ([]models.Candidate, error) {
	m.Calls = append(m.Calls, title)
	if errs := m.Errs[title]; len(errs) > 0 {
		m.Errs[title] = errs[1:]
		return nil, errs[0]
	}
	return m.Results[title], nil
}

// ScriptedPrompt answers prompts from queued replies.
// Running out of replies, or a done context, behaves like end of input.
type ScriptedPrompt struct {
	Choices  []int
	Confirms []bool
	Lines    []string

	ChooseCalls  []string
	ConfirmCalls []string
	LineCalls    []string
	Tables       []string
	Rows         [][][]string
}

func (p *ScriptedPrompt) Choose(ctx context.Context, title string, options []string) (int, error) {
	p.ChooseCalls = append(p.ChooseCalls, title)
	if len(p.Choices) == 0 || ctx.Err() != nil {
		return 0, shared.ErrInterrupted
	}
	choice := p.Choices[0]
	p.Choices = p.Choices[1:]
	return choice, nil
}

func (p *ScriptedPrompt) Confirm(ctx context.Context, question string) (bool, error) {
	p.ConfirmCalls = append(p.ConfirmCalls, question)
	if len(p.Confirms) == 0 || ctx.Err() != nil {
		return false, shared.ErrInterrupted
	}
	answer := p.Confirms[0]
	p.Confirms = p.Confirms[1:]
	return answer, nil
}

func (p *ScriptedPrompt) ReadLine(ctx context.Context, prompt string) (string, error) {
	p.LineCalls = append(p.LineCalls, prompt)
	if len(p.Lines) == 0 || ctx.Err() != nil {
		return "", shared.ErrInterrupted
	}
	line := p.Lines[0]
	p.Lines = p.Lines[1:]
	return strings.TrimSpace(line), nil
}

func (p *ScriptedPrompt) PresentTable(title string, headers []string, rows [][]string) error {
	p.Tables = append(p.Tables, title)
	p.Rows = append(p.Rows, rows)
	return nil
}

// MemoryCache is a resolution cache that counts its calls.
type MemoryCache struct {
	Data    map[string]string
	Puts    int
	Flushes int
	// Flushed holds every entry persisted by Flush.
	Flushed map[string]string
	pending map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		Data:    make(map[string]string),
		Flushed: make(map[string]string),
		pending: make(map[string]string),
	}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	v, ok := c.Data[key]
	return v, ok
}

func (c *MemoryCache) Put(key, value string) {
	c.Puts++
	c.Data[key] = value
	c.pending[key] = value
}

func (c *MemoryCache) Flush() {
	c.Flushes++
	for k, v := range c.pending {
		c.Flushed[k] = v
	}
	c.pending = make(map[string]string)
}
