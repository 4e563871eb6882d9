// Package catalog implements the external media catalog adapter. It speaks a
// TMDB-compatible HTTP API (search by title, fetch by id) and applies a
// bounded retry budget with exponential backoff on transient failures.
//
// Callers see the catalog through two operations only; an unreachable
// catalog and an empty result set are the same thing to them ("no data"),
// but the two cases are logged distinctly so operators can tell a cold
// catalog from a broken one.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnavailable is returned when the catalog could not be reached after the
// retry budget was exhausted. Flows must degrade gracefully on it, never
// block the primary path.
var ErrUnavailable = errors.New("catalog unavailable")

// Entry is one search result, ordered by catalog relevance.
type Entry struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
}

// Detail is the full record for one catalog id.
type Detail struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	PosterPath  string `json:"poster_path"`
	Overview    string `json:"overview"`
}

type searchResponse struct {
	Results []Entry `json:"results"`
}

// Client talks to a TMDB-compatible catalog.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// MaxRetries bounds re-attempts on transient failures; RetryBase is the
	// first backoff delay, doubled per attempt.
	MaxRetries int
	RetryBase  time.Duration
}

// NewClient constructs a Client with the default retry policy: up to 3
// retries, exponential backoff starting at one second.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		MaxRetries: 3,
		RetryBase:  time.Second,
	}
}

// Search queries the catalog by title and returns results in the order the
// catalog ranked them. An empty slice means "no match"; ErrUnavailable means
// the catalog itself could not answer.
func (c *Client) Search(ctx context.Context, title string) ([]Entry, error) {
	q := url.Values{}
	q.Set("api_key", c.APIKey)
	q.Set("query", title)

	var out searchResponse
	if err := c.getJSON(ctx, c.BaseURL+"/search/movie?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		log.Debug().Str("title", title).Msg("catalog search returned no results")
	}
	return out.Results, nil
}

// Get fetches the full detail for one catalog id. A 404 from the catalog is
// reported as (nil, nil): the id simply does not resolve.
func (c *Client) Get(ctx context.Context, id int64) (*Detail, error) {
	q := url.Values{}
	q.Set("api_key", c.APIKey)

	var out Detail
	err := c.getJSON(ctx, c.BaseURL+"/movie/"+strconv.FormatInt(id, 10)+"?"+q.Encode(), &out)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// statusError is a non-retryable HTTP failure.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("catalog http %d: %s", e.code, e.body)
}

// retryable reports whether an HTTP status is worth another attempt.
func retryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// getJSON performs a GET with the retry budget and decodes the body into v.
// Network errors and retryable statuses back off exponentially starting at
// RetryBase; all other HTTP failures fail fast.
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	var lastErr error
	delay := c.RetryBase
	if delay <= 0 {
		delay = time.Second
	}

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			err = json.NewDecoder(resp.Body).Decode(v)
			resp.Body.Close()
			return err
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		resp.Body.Close()
		if !retryable(resp.StatusCode) {
			return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
		}
		lastErr = &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	log.Warn().Err(lastErr).Str("url", redactKey(rawURL)).Msg("catalog unreachable after retries")
	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// redactKey strips the api_key query parameter before the URL hits a log line.
func redactKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "redacted")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
