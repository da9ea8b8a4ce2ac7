package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motocodex/motofeeds/pkg/db"
	"github.com/motocodex/motofeeds/pkg/feed"
	"github.com/motocodex/motofeeds/pkg/youtube"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(db.Config{
		DSN:             ":memory:",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, database.Close())
	})
	return database
}

func youtubeAtom(channelID string, videoIDs ...string) string {
	var entries strings.Builder
	for i, id := range videoIDs {
		fmt.Fprintf(&entries, `<entry>
			<id>yt:video:%s</id>
			<yt:videoId>%s</yt:videoId>
			<title>Video %s main event highlights</title>
			<link rel="alternate" href="https://www.youtube.com/watch?v=%s"/>
			<published>2024-06-0%dT10:00:00Z</published>
			<media:group>
				<media:title>Video %s</media:title>
				<media:thumbnail url="https://i.ytimg.com/vi/%s/hqdefault.jpg" width="480" height="360"/>
			</media:group>
		</entry>`, id, id, id, id, i+1, id, id)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
		<feed xmlns="http://www.w3.org/2005/Atom"
		      xmlns:yt="http://www.youtube.com/xml/schemas/2015"
		      xmlns:media="http://search.yahoo.com/mrss/">
			<title>Moto Channel</title>
			<yt:channelId>%s</yt:channelId>
			%s
		</feed>`, channelID, entries.String())
}

func rssDoc(n int) string {
	var items strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&items, `<item>
			<title>Article %d</title>
			<link>http://example.com/article%d</link>
			<pubDate>Mon, 0%d Jan 2024 15:04:05 +0000</pubDate>
		</item>`, i, i, i)
	}
	return `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>Feed</title>` + items.String() + `</channel></rss>`
}

// newTestRunner wires a runner against real HTTP fixtures: a channel page
// server for handle resolution and a feed server keyed by channel id
func newTestRunner(t *testing.T, database *db.DB, resolveTo string, feeds map[string]string) *Runner {
	t.Helper()

	pages := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fmt.Sprintf(`<html><script>{"channelId":%q}</script></html>`, resolveTo)))
	}))
	t.Cleanup(pages.Close)

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		doc, ok := feeds[strings.TrimPrefix(r.URL.Path, "/feeds/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(doc))
	}))
	t.Cleanup(feedSrv.Close)

	fetcher := feed.NewFetcher(5*time.Second, "motofeeds-test/1.0")
	resolver := youtube.NewResolverWithBase(5*time.Second, "motofeeds-test/1.0", pages.URL)

	runner := NewRunner(database, fetcher, resolver, Config{SourceTimeout: 5 * time.Second})
	runner.feedURL = func(channelID string) string { return feedSrv.URL + "/feeds/" + channelID }
	return runner
}

func TestRunner_YouTubeEndToEnd(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	const channelID = "UCabc123def456ghi789jkl0"
	videoIDs := []string{"vidA1", "vidB2", "vidC3", "vidD4", "vidE5"}
	runner := newTestRunner(t, database, channelID, map[string]string{
		channelID: youtubeAtom(channelID, videoIDs...),
	})

	src := &db.Source{Platform: db.PlatformYouTube, Name: "moto-channel", Handle: "@motochannel", Tier: 1, Enabled: true}
	require.NoError(t, database.CreateSource(ctx, src))

	summary, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.OK)
	assert.Equal(t, 1, summary.Totals.Feeds)
	assert.Equal(t, 5, summary.Totals.Attempted)
	assert.Equal(t, 5, summary.Totals.Inserted)
	assert.Zero(t, summary.Totals.FeedErrors)
	require.Len(t, summary.Breakdown, 1)
	assert.True(t, summary.Breakdown[0].OK)

	// resolution is persisted so the next pass skips the channel page
	got, err := database.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, channelID, got.ChannelID)
	assert.Equal(t, db.StatusOK, got.LastStatus)
	assert.True(t, got.LastIngestedAt.Valid)

	// every item landed under its platform-native identity
	for _, id := range videoIDs {
		post, err := database.GetPostByDedupeKey(ctx, "youtube:"+id)
		require.NoError(t, err, "post for video %s", id)
		assert.Equal(t, id, post.VideoID)
		assert.Equal(t, channelID, post.ChannelID)
		assert.Equal(t, "https://www.youtube.com/watch?v="+id, post.URL)
		assert.True(t, post.ThumbnailURL.Valid)
	}

	runs, err := database.GetRecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].OK)
	assert.True(t, runs[0].FinishedAt.Valid)
	assert.Equal(t, 5, runs[0].FetchedCount)
	assert.Equal(t, 5, runs[0].InsertedCount)
}

func TestRunner_SecondPassInsertsNothing(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	const channelID = "UCabc123def456ghi789jkl0"
	runner := newTestRunner(t, database, channelID, map[string]string{
		channelID: youtubeAtom(channelID, "vidA1", "vidB2", "vidC3"),
	})

	src := &db.Source{Platform: db.PlatformYouTube, Name: "moto-channel", Handle: "@motochannel", Tier: 2, Enabled: true}
	require.NoError(t, database.CreateSource(ctx, src))

	first, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Totals.Inserted)

	second, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, second.Totals.Inserted)
	assert.Equal(t, 3, second.Totals.Skipped)
	assert.True(t, second.OK)

	count, err := database.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestRunner_SelfHealsStaleChannelID(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	const freshID = "UCfresh1234567890abcdefgh"
	runner := newTestRunner(t, database, freshID, map[string]string{
		freshID: youtubeAtom(freshID, "vidN1", "vidN2"),
	})

	src := &db.Source{
		Platform:  db.PlatformYouTube,
		Name:      "renamed-channel",
		Handle:    "@renamed",
		ChannelID: "UCstale1234567890abcdefgh",
		Tier:      2,
		Enabled:   true,
	}
	require.NoError(t, database.CreateSource(ctx, src))

	summary, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Breakdown, 1)
	assert.True(t, summary.Breakdown[0].OK)
	assert.Equal(t, 2, summary.Totals.Inserted)

	got, err := database.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, freshID, got.ChannelID, "re-resolved id replaces the stale one")
	assert.Equal(t, db.StatusOK, got.LastStatus)
}

func TestRunner_FailureFinalizesRun(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dead.Close()

	runner := newTestRunner(t, database, "", nil)

	src := &db.Source{
		Platform: db.PlatformRSS,
		Name:     "dead-feed",
		FeedURLs: db.StringList{dead.URL},
		Tier:     2,
		Enabled:  true,
	}
	require.NoError(t, database.CreateSource(ctx, src))

	summary, err := runner.Run(ctx)
	require.NoError(t, err, "per-source failures never abort the pass")
	assert.True(t, summary.OK)
	assert.Equal(t, 1, summary.Totals.FeedErrors)
	require.Len(t, summary.Breakdown, 1)
	assert.False(t, summary.Breakdown[0].OK)
	assert.NotEmpty(t, summary.Breakdown[0].Error)

	// the ledger entry is finalized as failed, never left open
	runs, err := database.GetRecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].FinishedAt.Valid)
	assert.False(t, runs[0].OK)
	assert.NotEmpty(t, runs[0].ErrorText.String)

	unfinished, err := database.CountUnfinishedRuns(ctx)
	require.NoError(t, err)
	assert.Zero(t, unfinished)

	got, err := database.GetSource(ctx, src.ID)
	require.NoError(t, err)
	assert.Equal(t, db.StatusError, got.LastStatus)
	assert.NotEmpty(t, got.LastError.String)
}

func TestRunner_MixedPass(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssDoc(4)))
	}))
	defer good.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer dead.Close()

	runner := newTestRunner(t, database, "", nil)

	require.NoError(t, database.CreateSource(ctx, &db.Source{
		Platform: db.PlatformRSS, Name: "a-good", FeedURLs: db.StringList{good.URL}, Tier: 1, Enabled: true,
	}))
	require.NoError(t, database.CreateSource(ctx, &db.Source{
		Platform: db.PlatformRSS, Name: "b-dead", FeedURLs: db.StringList{dead.URL}, Tier: 2, Enabled: true,
	}))

	summary, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Totals.Feeds)
	assert.Equal(t, 4, summary.Totals.Inserted)
	assert.Equal(t, 1, summary.Totals.FeedErrors)
	require.Len(t, summary.Breakdown, 2)
	assert.Equal(t, "a-good", summary.Breakdown[0].Name, "tier order")
	assert.True(t, summary.Breakdown[0].OK)
	assert.Equal(t, good.URL, summary.Breakdown[0].ChosenURL)
	assert.False(t, summary.Breakdown[1].OK)
}

func TestRunner_FallbackCandidates(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dead.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssDoc(2)))
	}))
	defer good.Close()

	runner := newTestRunner(t, database, "", nil)

	src := &db.Source{
		Platform: db.PlatformRSS,
		Name:     "fallback-feed",
		FeedURLs: db.StringList{"https://rss.app/feeds/REPLACE_ME.xml", dead.URL, good.URL},
		Tier:     2,
		Enabled:  true,
	}
	require.NoError(t, database.CreateSource(ctx, src))

	summary, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Breakdown, 1)
	assert.True(t, summary.Breakdown[0].OK)
	assert.Equal(t, good.URL, summary.Breakdown[0].ChosenURL)
	assert.Equal(t, 2, summary.Totals.Inserted)

	// every attempt is recorded in the run ledger
	runs, err := database.GetRecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	tried, ok := runs[0].Details["tried"].([]any)
	require.True(t, ok)
	assert.Len(t, tried, 3)
}

func TestRunner_YouTubeFallbackRSSBridge(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	bridge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssDoc(3)))
	}))
	defer bridge.Close()

	// no channel feeds registered, the derived URL 404s and the configured
	// bridge candidate takes over
	runner := newTestRunner(t, database, "", nil)

	src := &db.Source{
		Platform:  db.PlatformYouTube,
		Name:      "bridged-channel",
		ChannelID: "UCbridged1234567890abcdef",
		FeedURLs:  db.StringList{bridge.URL},
		Tier:      2,
		Enabled:   true,
	}
	require.NoError(t, database.CreateSource(ctx, src))

	summary, err := runner.Run(ctx)
	require.NoError(t, err)
	require.Len(t, summary.Breakdown, 1)
	assert.True(t, summary.Breakdown[0].OK)
	assert.Equal(t, bridge.URL, summary.Breakdown[0].ChosenURL)
	assert.Equal(t, 3, summary.Totals.Inserted)

	// the bridge serves rss, the ledger must not mislabel it as atom
	runs, err := database.GetRecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "rss", runs[0].Details["format"])
}

func TestRunner_Busy(t *testing.T) {
	database := setupTestDB(t)
	runner := newTestRunner(t, database, "", nil)

	runner.mu.Lock()
	_, err := runner.Run(context.Background())
	runner.mu.Unlock()

	require.ErrorIs(t, err, ErrBusy)

	// released lock allows the next pass
	_, err = runner.Run(context.Background())
	require.NoError(t, err)
}

func TestRunner_Rescore(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssDoc(3)))
	}))
	defer good.Close()

	runner := newTestRunner(t, database, "", nil)
	require.NoError(t, database.CreateSource(ctx, &db.Source{
		Platform: db.PlatformRSS, Name: "rescore-feed", FeedURLs: db.StringList{good.URL}, Tier: 1, Enabled: true,
	}))

	_, err := runner.Run(ctx)
	require.NoError(t, err)

	updated, err := runner.Rescore(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	// scores stay consistent with the current tier
	posts, err := database.ListPosts(ctx, db.PostsFilter{})
	require.NoError(t, err)
	for _, p := range posts {
		assert.Greater(t, p.Importance, 0.0)
	}
}
