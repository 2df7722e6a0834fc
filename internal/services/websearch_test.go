package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/synclify/internal/shared"
)

const resultsPage = `<html><body>
<a href="/url?q=https://music.youtube.com/watch%3Fv%3Daaaaaaaaaaa&amp;sa=U"><img src="thumb.jpg"></a>
<a href="/url?q=https://music.youtube.com/watch%3Fv%3Daaaaaaaaaaa%26si%3Dtrack&amp;sa=U">Song - Artist</a>
<a href="/url?q=https://music.youtube.com/watch%3Fv%3Daaaaaaaaaaa&amp;sa=U">Song - Artist (dup)</a>
<a href="https://music.youtube.com/playlist?list=OLAK5uy_album&amp;feature=share"><span>Song</span> <span>(Full Album)</span></a>
<a href="https://www.youtube.com/watch?v=bbbbbbbbbbb">Not music</a>
<a href="https://music.youtube.com/channel/UC123">Artist channel</a>
<a href="/search?q=next">Next</a>
<a href="https://music.youtube.com/watch?v=ccccccccccc">Song (Live)</a>
</body></html>`

func newSearch(t *testing.T, handler http.HandlerFunc, maxResults int) *WebSearch {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWebSearch(srv.Client(), WebSearchOptions{BaseURL: srv.URL + "/search", MaxResults: maxResults}, nil)
}

func TestWebSearch(t *testing.T) {
	t.Run("extracts music links", func(t *testing.T) {
		var gotQuery string
		ws := newSearch(t, func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.Query().Get("q")
			io.WriteString(w, resultsPage)
		}, 8)

		got, err := ws.Search(context.Background(), "Song", []string{"Artist", "Guest", "Third"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if gotQuery != `site:music.youtube.com "Song" artist guest` {
			t.Errorf("unexpected query %q", gotQuery)
		}

		if len(got) != 3 {
			t.Fatalf("expected 3 candidates, got %d: %+v", len(got), got)
		}
		if got[0].URL != "https://music.youtube.com/watch?v=aaaaaaaaaaa" || got[0].Title != "Song - Artist" || got[0].Collection {
			t.Errorf("unexpected first candidate %+v", got[0])
		}
		if got[1].URL != "https://music.youtube.com/playlist?list=OLAK5uy_album" || !got[1].Collection || got[1].Title != "Song (Full Album)" {
			t.Errorf("unexpected second candidate %+v", got[1])
		}
	})

	t.Run("respects max results", func(t *testing.T) {
		ws := newSearch(t, func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, resultsPage) }, 1)
		got, err := ws.Search(context.Background(), "Song", nil)
		if err != nil || len(got) != 1 {
			t.Errorf("expected one candidate, got %d (%v)", len(got), err)
		}
	})

	t.Run("no results", func(t *testing.T) {
		ws := newSearch(t, func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "<html></html>") }, 8)
		got, err := ws.Search(context.Background(), "Song", nil)
		if err != nil || len(got) != 0 {
			t.Errorf("expected no candidates, got %v (%v)", got, err)
		}
	})

	t.Run("429 is rate limited", func(t *testing.T) {
		ws := newSearch(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }, 8)
		_, err := ws.Search(context.Background(), "Song", nil)
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if url, ok := shared.ChallengeURL(err); !ok || !strings.Contains(url, "/search") {
			t.Errorf("expected challenge url, got %q", url)
		}
	})

	t.Run("sorry redirect is rate limited", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/sorry/index?continue=x", http.StatusFound)
		})
		mux.HandleFunc("/sorry/index", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>captcha</html>")
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)
		ws := NewWebSearch(srv.Client(), WebSearchOptions{BaseURL: srv.URL + "/search"}, nil)

		_, err := ws.Search(context.Background(), "Song", nil)
		url, ok := shared.ChallengeURL(err)
		if !ok || !strings.Contains(url, "/sorry/index") {
			t.Errorf("expected sorry challenge, got %q (%v)", url, err)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			io.WriteString(w, resultsPage)
		}))
		t.Cleanup(srv.Close)
		ws := NewWebSearch(srv.Client(), WebSearchOptions{
			BaseURL: srv.URL + "/search",
			Retry:   RetryPolicy{MaxTries: 3, Base: time.Millisecond},
		}, nil)

		got, err := ws.Search(context.Background(), "Song", []string{"Artist"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
		if len(got) != 3 {
			t.Errorf("expected 3 candidates, got %d", len(got))
		}
	})

	t.Run("rate limit is not retried", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		t.Cleanup(srv.Close)
		ws := NewWebSearch(srv.Client(), WebSearchOptions{
			BaseURL: srv.URL + "/search",
			Retry:   RetryPolicy{MaxTries: 3, Base: time.Millisecond},
		}, nil)

		if _, err := ws.Search(context.Background(), "Song", nil); !errors.Is(err, shared.ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("server error is transient", func(t *testing.T) {
		ws := newSearch(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }, 8)
		_, err := ws.Search(context.Background(), "Song", nil)
		if !shared.IsTransient(err) {
			t.Errorf("expected transient error, got %v", err)
		}
	})
}

func TestMusicLink(t *testing.T) {
	tc := []struct {
		href string
		want string
		ok   bool
	}{
		{"/url?q=https://music.youtube.com/watch%3Fv%3Dabc&sa=U", "https://music.youtube.com/watch?v=abc", true},
		{"https://music.youtube.com/watch?v=abc&si=1", "https://music.youtube.com/watch?v=abc", true},
		{"https://music.youtube.com/browse/MPREb", "", false},
		{"https://youtube.com/watch?v=abc", "", false},
		{"/url?q=", "", false},
	}

	for _, tt := range tc {
		got, ok := musicLink(tt.href)
		if ok != tt.ok || got != tt.want {
			t.Errorf("musicLink(%q) = %q %v, want %q %v", tt.href, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWebSearchQuery(t *testing.T) {
	ws := NewWebSearch(nil, WebSearchOptions{}, nil)

	tc := []struct {
		name    string
		title   string
		artists []string
		want    string
	}{
		{"no artists", " Song ", nil, `site:music.youtube.com "Song"`},
		{"featuring dropped", "Song", []string{"Band feat. Guest"}, `site:music.youtube.com "Song" band`},
		{"signature tokens", "Song", []string{"The Band", "Someone & Other"}, `site:music.youtube.com "Song" someone other`},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ws.Query(tt.title, tt.artists); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
