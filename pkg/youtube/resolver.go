// Package youtube resolves channel handles to stable channel identifiers and
// builds the canonical video feed URL for a channel.
package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// maxPageSize caps channel page reads, the markers appear early in the document
const maxPageSize = 4 * 1024 * 1024

// channel id patterns in order of reliability, first match wins
var channelIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"channelId"\s*:\s*"(UC[a-zA-Z0-9_-]{20,})"`),
	regexp.MustCompile(`https://www\.youtube\.com/channel/(UC[a-zA-Z0-9_-]{20,})`),
	regexp.MustCompile(`"browseId"\s*:\s*"(UC[a-zA-Z0-9_-]{20,})"`),
}

// Resolver resolves a human handle to a UC channel identifier by scraping the
// public channel page. Avoids manual channel id lookup in the roster.
type Resolver struct {
	client    *http.Client
	userAgent string
	baseURL   string
}

// NewResolver creates a resolver with the given timeout
func NewResolver(timeout time.Duration, userAgent string) *Resolver {
	return &Resolver{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		baseURL:   "https://www.youtube.com",
	}
}

// NewResolverWithBase creates a resolver against a non-default base URL, for tests
func NewResolverWithBase(timeout time.Duration, userAgent, baseURL string) *Resolver {
	r := NewResolver(timeout, userAgent)
	r.baseURL = strings.TrimSuffix(baseURL, "/")
	return r
}

// Resolve returns the channel identifier for a handle, or empty string when
// the page is reachable but no pattern matches. Unreachable pages and non-2xx
// responses return an error; callers treat both outcomes as a transient
// ingestion failure, not a fatal configuration error.
func (r *Resolver) Resolve(ctx context.Context, handle string) (string, error) {
	h := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	if h == "" {
		return "", fmt.Errorf("empty handle")
	}

	pageURL := fmt.Sprintf("%s/@%s", r.baseURL, url.PathEscape(h))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,*/*")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch channel page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("channel page status %d for handle %q", resp.StatusCode, handle)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("read channel page: %w", err)
	}

	return matchChannelID(string(body)), nil
}

// matchChannelID applies the structural patterns in order, first match wins
func matchChannelID(page string) string {
	for _, pattern := range channelIDPatterns {
		if m := pattern.FindStringSubmatch(page); m != nil {
			return m[1]
		}
	}
	return ""
}

// FeedURL builds the canonical video feed URL for a channel identifier
func FeedURL(channelID string) string {
	return "https://www.youtube.com/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)
}

// VideoID extracts the platform-native video identifier from a feed entry's
// guid ("yt:video:ID") or watch URL ("?v=ID"). Empty when neither matches.
func VideoID(guid, itemURL string) string {
	if rest, ok := strings.CutPrefix(guid, "yt:video:"); ok && rest != "" {
		return rest
	}
	if u, err := url.Parse(itemURL); err == nil {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
	}
	return ""
}

// WatchURL builds the canonical watch URL for a video identifier
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(videoID)
}
