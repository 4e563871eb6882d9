package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fastClient points a Client at srv with an effectively instant retry backoff.
func fastClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL, "k", time.Second)
	c.RetryBase = time.Millisecond
	return c
}

func TestSearch_Success_PassesQueryAndKey(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		gotKey = r.URL.Query().Get("api_key")
		fmt.Fprint(w, `{"results":[{"id":603,"title":"The Matrix","release_date":"1999-03-31"},{"id":604,"title":"The Matrix Reloaded"}]}`)
	}))
	defer srv.Close()

	got, err := fastClient(srv).Search(context.Background(), "matrix")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "matrix" || gotKey != "k" {
		t.Fatalf("query=%q key=%q", gotQuery, gotKey)
	}
	if len(got) != 2 || got[0].ID != 603 || got[0].Title != "The Matrix" {
		t.Fatalf("unexpected results: %#v", got)
	}
}

func TestSearch_EmptyResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	got, err := fastClient(srv).Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty results, got %#v", got)
	}
}

func TestSearch_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			fmt.Fprint(w, `{"results":[{"id":1,"title":"T"}]}`)
		}
	}))
	defer srv.Close()

	got, err := fastClient(srv).Search(context.Background(), "t")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("results=%d calls=%d", len(got), calls)
	}
}

func TestSearch_ExhaustedRetriesYieldErrUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := fastClient(srv)
	c.MaxRetries = 2

	_, err := c.Search(context.Background(), "t")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("attempts = %d, want initial + 2 retries", n)
	}
}

func TestSearch_FailsFastOnNonRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status_message":"Invalid API key"}`)
	}))
	defer srv.Close()

	_, err := fastClient(srv).Search(context.Background(), "t")
	if err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected fail-fast status error, got %v", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error should carry the status: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("401 was retried: %d calls", calls)
	}
}

func TestSearch_NetworkErrorRetriesThenUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	c := fastClient(srv)
	c.MaxRetries = 1

	_, err := c.Search(context.Background(), "t")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on connection failure, got %v", err)
	}
}

func TestSearch_ContextCancelStopsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := fastClient(srv)
	c.RetryBase = time.Hour // backoff long enough that only cancellation ends the wait

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Search(ctx, "t")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Search did not return after cancel")
	}
}

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":603,"title":"The Matrix","overview":"A hacker learns the truth."}`)
	}))
	defer srv.Close()

	d, err := fastClient(srv).Get(context.Background(), 603)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d == nil || d.ID != 603 || d.Overview == "" {
		t.Fatalf("unexpected detail: %+v", d)
	}
}

func TestGet_404MeansNoRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d, err := fastClient(srv).Get(context.Background(), 999)
	if err != nil || d != nil {
		t.Fatalf("expected (nil, nil) for 404, got %+v err=%v", d, err)
	}
}

func TestNewClient_TrimsBaseURLAndDefaults(t *testing.T) {
	c := NewClient("https://example.org/api/", "k", 0)
	if c.BaseURL != "https://example.org/api" {
		t.Fatalf("BaseURL = %q", c.BaseURL)
	}
	if c.HTTPClient.Timeout != 10*time.Second {
		t.Fatalf("default timeout = %v", c.HTTPClient.Timeout)
	}
	if c.MaxRetries != 3 || c.RetryBase != time.Second {
		t.Fatalf("retry defaults: %d %v", c.MaxRetries, c.RetryBase)
	}
}

func Test_redactKey(t *testing.T) {
	cases := map[string]struct {
		in       string
		contains string
		excludes string
	}{
		"redacts api_key": {
			in:       "https://x/search/movie?api_key=secret&query=dune",
			contains: "api_key=redacted",
			excludes: "secret",
		},
		"no key untouched": {
			in:       "https://x/movie/1?query=dune",
			contains: "query=dune",
			excludes: "redacted",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := redactKey(tc.in)
			if !strings.Contains(got, tc.contains) || strings.Contains(got, tc.excludes) {
				t.Fatalf("redactKey(%q) = %q", tc.in, got)
			}
		})
	}
}
