package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/synclify/internal/matching"
	"github.com/desertthunder/synclify/internal/models"
	"github.com/desertthunder/synclify/internal/shared"
)

const (
	defaultSearchURL  = "https://www.google.com/search"
	defaultMaxResults = 8
	webSearchService  = "websearch"
	musicHost         = "music.youtube.com"
)

// WebSearch finds music.youtube.com links for a track through a web search results page.
//
// It spends no catalog quota, which makes it the fallback once the YouTube search quota is gone.
type WebSearch struct {
	client     *http.Client
	baseURL    string
	userAgent  string
	maxResults int
	limiter    *rate.Limiter
	retry      RetryPolicy
	logger     *log.Logger
}

// WebSearchOptions configures a [WebSearch].
type WebSearchOptions struct {
	BaseURL    string
	UserAgent  string
	MaxResults int
	Interval   time.Duration
	Retry      RetryPolicy
}

// WebSearchOptionsFrom reads options from configuration.
func WebSearchOptionsFrom(cfg *shared.Config) WebSearchOptions {
	return WebSearchOptions{
		BaseURL:    cfg.Web.BaseURL,
		UserAgent:  cfg.Web.UserAgent,
		MaxResults: cfg.Web.MaxResults,
		Interval:   time.Duration(cfg.Throttle.WebSearchMS) * time.Millisecond,
		Retry:      RetryPolicyFrom(cfg.Retry),
	}
}

// NewWebSearch builds a [WebSearch]. A nil client uses a client with a 15s timeout.
func NewWebSearch(client *http.Client, opts WebSearchOptions, logger *log.Logger) *WebSearch {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultSearchURL
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	return &WebSearch{
		client:     client,
		baseURL:    opts.BaseURL,
		userAgent:  opts.UserAgent,
		maxResults: opts.MaxResults,
		limiter:    intervalLimiter(opts.Interval),
		retry:      opts.Retry,
		logger:     logger,
	}
}

// Query builds the search terms: the quoted title plus the artist signature.
func (w *WebSearch) Query(title string, artists []string) string {
	signature := matching.NormalizeArtists(artists)
	q := fmt.Sprintf("site:%s %q %s", musicHost, strings.TrimSpace(title), strings.Join(signature, " "))
	return strings.TrimSpace(q)
}

// Search returns up to maxResults distinct watch or playlist links in page order.
//
// Transient failures are retried with the configured policy. A 429 response or a redirect to a
// verification page fails with [shared.ErrRateLimited]; the error's challenge URL is the page a
// human has to visit before searching again.
func (w *WebSearch) Search(ctx context.Context, title string, artists []string) ([]models.Candidate, error) {
	u, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: search url: %v", shared.ErrInvalidConfig, err)
	}
	q := u.Query()
	q.Set("q", w.Query(title, artists))
	q.Set("hl", "en")
	u.RawQuery = q.Encode()

	var candidates []models.Candidate
	err = Retry(ctx, w.retry, func(ctx context.Context) error {
		doc, err := w.fetch(ctx, u.String())
		if err != nil {
			return err
		}
		candidates = w.extract(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if w.logger != nil {
		w.logger.Debug("web search", "title", title, "candidates", len(candidates))
	}
	return candidates, nil
}

func (w *WebSearch) fetch(ctx context.Context, searchURL string) (*goquery.Document, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, shared.NewRemoteError(shared.KindTransient, webSearchService, "search", err)
	}
	defer resp.Body.Close()

	finalURL := searchURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || strings.Contains(finalURL, "/sorry"):
		return nil, &shared.RemoteError{
			Kind:      shared.KindRateLimited,
			Service:   webSearchService,
			Op:        "search",
			Challenge: finalURL,
			Err:       fmt.Errorf("status %d", resp.StatusCode),
		}
	case resp.StatusCode >= 500:
		return nil, shared.NewRemoteError(shared.KindTransient, webSearchService, "search", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 300:
		return nil, shared.NewRemoteError(shared.KindPermanent, webSearchService, "search", fmt.Errorf("status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, shared.NewRemoteError(shared.KindTransient, webSearchService, "parse results", err)
	}
	return doc, nil
}

func (w *WebSearch) extract(doc *goquery.Document) []models.Candidate {
	seen := make(map[string]struct{})
	var out []models.Candidate

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		link, ok := musicLink(href)
		if !ok {
			return true
		}
		// thumbnails link to the same result without a title
		text := strings.Join(strings.Fields(a.Text()), " ")
		if text == "" {
			return true
		}
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}

		out = append(out, models.Candidate{
			URL:        link,
			Title:      text,
			Collection: strings.Contains(link, "/playlist"),
		})
		return len(out) < w.maxResults
	})
	return out
}

// musicLink unwraps /url?q= redirects and keeps music.youtube.com watch or playlist links.
func musicLink(href string) (string, bool) {
	if strings.HasPrefix(href, "/url?") {
		u, err := url.Parse(href)
		if err != nil {
			return "", false
		}
		href = u.Query().Get("q")
	}

	u, err := url.Parse(href)
	if err != nil || u.Hostname() != musicHost {
		return "", false
	}
	if !strings.HasPrefix(u.Path, "/watch") && !strings.HasPrefix(u.Path, "/playlist") {
		return "", false
	}
	return StripTrackingParams(u.String()), true
}
