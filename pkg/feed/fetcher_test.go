package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rssWithItems(n int) string {
	items := ""
	for i := 1; i <= n; i++ {
		items += fmt.Sprintf(`<item>
			<title>Article %d</title>
			<link>http://example.com/article%d</link>
			<pubDate>Mon, 0%d Jan 2023 15:04:05 +0000</pubDate>
		</item>`, i, i, i)
	}
	return `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Feed</title>` + items + `</channel></rss>`
}

func TestFetcher_FetchFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssWithItems(2)))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "motofeeds-test/1.0")
	parsed, err := fetcher.FetchFeed(context.Background(), server.URL, FormatRSS)
	require.NoError(t, err)
	assert.Len(t, parsed.Items, 2)
}

func TestFetcher_FetchFeedNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "motofeeds-test/1.0")
	_, err := fetcher.FetchFeed(context.Background(), server.URL, FormatRSS)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestFetcher_FetchFirst_FallbackExhaustion(t *testing.T) {
	// candidate A: 404, candidate B: valid feed with zero items, candidate C: 3 items
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssWithItems(0)))
	}))
	defer empty.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssWithItems(3)))
	}))
	defer good.Close()

	fetcher := NewFetcher(5*time.Second, "motofeeds-test/1.0")
	candidates := []string{notFound.URL, empty.URL, good.URL}
	res, err := fetcher.FetchFirst(context.Background(), candidates, FormatRSS)
	require.NoError(t, err)

	assert.Equal(t, good.URL, res.ChosenURL)
	assert.Len(t, res.Feed.Items, 3)

	require.Len(t, res.Tried, 3)
	assert.Equal(t, notFound.URL, res.Tried[0].URL)
	assert.Contains(t, res.Tried[0].Reason, "404")
	assert.Equal(t, empty.URL, res.Tried[1].URL)
	assert.Contains(t, res.Tried[1].Reason, "no items")
	assert.Equal(t, good.URL, res.Tried[2].URL)
	assert.Empty(t, res.Tried[2].Reason)
}

func TestFetcher_FetchFirst_AllFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	fetcher := NewFetcher(5*time.Second, "motofeeds-test/1.0")
	_, err := fetcher.FetchFirst(context.Background(), []string{failing.URL}, FormatRSS)
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Tried, 1)
	assert.Contains(t, exhausted.Error(), "all feed candidates failed")
}

func TestFetcher_FetchFirst_SkipsPlaceholders(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssWithItems(1)))
	}))
	defer good.Close()

	fetcher := NewFetcher(5*time.Second, "motofeeds-test/1.0")
	candidates := []string{"https://rss.app/feeds/REPLACE_ME_EXAMPLE.xml", "", good.URL}
	res, err := fetcher.FetchFirst(context.Background(), candidates, FormatRSS)
	require.NoError(t, err)

	assert.Equal(t, good.URL, res.ChosenURL)
	require.Len(t, res.Tried, 3)
	assert.Contains(t, res.Tried[0].Reason, "placeholder")
	assert.Contains(t, res.Tried[1].Reason, "placeholder")
}

func TestFetcher_FetchFirst_ParseErrorAdvances(t *testing.T) {
	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer malformed.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssWithItems(1)))
	}))
	defer good.Close()

	fetcher := NewFetcher(5*time.Second, "motofeeds-test/1.0")
	res, err := fetcher.FetchFirst(context.Background(), []string{malformed.URL, good.URL}, FormatRSS)
	require.NoError(t, err)

	assert.Equal(t, good.URL, res.ChosenURL)
	require.Len(t, res.Tried, 2)
	assert.NotEmpty(t, res.Tried[0].Reason)
}

func TestIsPlaceholderURL(t *testing.T) {
	assert.True(t, IsPlaceholderURL(""))
	assert.True(t, IsPlaceholderURL("https://rss.app/feeds/REPLACE_ME_EXAMPLE.xml"))
	assert.True(t, IsPlaceholderURL("REPLACE_WITH_CHANNEL"))
	assert.False(t, IsPlaceholderURL("https://example.com/feed"))
}
