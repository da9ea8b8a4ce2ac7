package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBodySize caps feed document reads, misbehaving endpoints should not
// exhaust memory
const maxBodySize = 10 * 1024 * 1024

// Fetcher retrieves feed documents over HTTP with a bounded timeout and
// resolves an ordered candidate URL list to the first usable feed
type Fetcher struct {
	client    *http.Client
	parser    *Parser
	userAgent string
}

// NewFetcher creates a feed fetcher with the given per-request timeout
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		parser:    NewParser(),
		userAgent: userAgent,
	}
}

// Attempt records one candidate URL and why it was rejected
type Attempt struct {
	URL    string `json:"url"`
	Reason string `json:"reason,omitempty"`
}

// Result is a successful fallback resolution: the chosen URL and its items
type Result struct {
	ChosenURL string
	Feed      *Parsed
	Tried     []Attempt
}

// ExhaustedError reports that every candidate URL failed
type ExhaustedError struct {
	Tried []Attempt
}

func (e *ExhaustedError) Error() string {
	reasons := make([]string, len(e.Tried))
	for i, a := range e.Tried {
		reasons[i] = fmt.Sprintf("%s: %s", a.URL, a.Reason)
	}
	return "all feed candidates failed: " + strings.Join(reasons, "; ")
}

// StatusError is a non-2xx response from a feed endpoint
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// IsPlaceholderURL reports whether a candidate is an unconfigured marker left
// in the roster rather than a real feed URL
func IsPlaceholderURL(url string) bool {
	return url == "" || strings.Contains(url, "REPLACE_")
}

// FetchFeed retrieves and parses one feed URL. A non-2xx response is returned
// as *StatusError so callers can react to 404 specifically.
func (f *Fetcher) FetchFeed(ctx context.Context, url string, hint Format) (*Parsed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	addBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}

	return f.parser.Parse(string(body), hint)
}

// FetchFirst tries candidates in order and returns the first that is not a
// placeholder, fetches within the timeout and parses to at least one item.
// Failed candidates advance immediately, no retry within a run. Every attempt
// is retained for run diagnostics; exhaustion is returned as *ExhaustedError.
func (f *Fetcher) FetchFirst(ctx context.Context, candidates []string, hint Format) (*Result, error) {
	tried := make([]Attempt, 0, len(candidates))

	for _, url := range candidates {
		if IsPlaceholderURL(url) {
			tried = append(tried, Attempt{URL: url, Reason: "placeholder or empty URL"})
			continue
		}

		parsed, err := f.FetchFeed(ctx, url, hint)
		if err != nil {
			tried = append(tried, Attempt{URL: url, Reason: err.Error()})
			continue
		}
		if len(parsed.Items) == 0 {
			tried = append(tried, Attempt{URL: url, Reason: "no items in feed"})
			continue
		}

		tried = append(tried, Attempt{URL: url})
		return &Result{ChosenURL: url, Feed: parsed, Tried: tried}, nil
	}

	return nil, &ExhaustedError{Tried: tried}
}

// IsNotFound reports whether an error is a 404 from the feed endpoint,
// the signal for stale-identifier self-healing
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}
