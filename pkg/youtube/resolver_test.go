package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	const channelID = "UCabc123def456ghi789jkl0"

	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "channelId json field",
			page: `<html><script>var ytInitialData = {"channelId":"` + channelID + `","title":"MotoGP"};</script></html>`,
			want: channelID,
		},
		{
			name: "canonical channel link",
			page: `<html><link rel="canonical" href="https://www.youtube.com/channel/` + channelID + `"></html>`,
			want: channelID,
		},
		{
			name: "browseId fallback",
			page: `<html><script>{"browseEndpoint":{"browseId":"` + channelID + `"}}</script></html>`,
			want: channelID,
		},
		{
			name: "channelId with whitespace around colon",
			page: `{"channelId" : "` + channelID + `"}`,
			want: channelID,
		},
		{
			name: "no marker in page",
			page: `<html><body>consent wall</body></html>`,
			want: "",
		},
		{
			name: "id too short is not a channel id",
			page: `{"channelId":"UCshort"}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/@gpfans", r.URL.Path)
				w.Write([]byte(tt.page))
			}))
			defer server.Close()

			resolver := NewResolverWithBase(5*time.Second, "motofeeds-test/1.0", server.URL)
			got, err := resolver.Resolve(context.Background(), "@gpfans")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_ResolvePatternPrecedence(t *testing.T) {
	// channelId field wins over a canonical link naming a different channel
	page := `<html>
		<link rel="canonical" href="https://www.youtube.com/channel/UCfromlink0000000000000000">
		<script>{"channelId":"UCfromfield000000000000000"}</script>
	</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer server.Close()

	resolver := NewResolverWithBase(5*time.Second, "motofeeds-test/1.0", server.URL)
	got, err := resolver.Resolve(context.Background(), "gpfans")
	require.NoError(t, err)
	assert.Equal(t, "UCfromfield000000000000000", got)
}

func TestResolver_ResolveErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	resolver := NewResolverWithBase(5*time.Second, "motofeeds-test/1.0", server.URL)

	_, err := resolver.Resolve(context.Background(), "gpfans")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = resolver.Resolve(context.Background(), "  @  ")
	require.Error(t, err)
}

func TestFeedURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/feeds/videos.xml?channel_id=UCabc123def456ghi789jkl0",
		FeedURL("UCabc123def456ghi789jkl0"))
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		name    string
		guid    string
		itemURL string
		want    string
	}{
		{"from guid", "yt:video:dQw4w9WgXcQ", "", "dQw4w9WgXcQ"},
		{"from watch url", "opaque-guid", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"guid wins over url", "yt:video:fromGuid", "https://www.youtube.com/watch?v=fromURL", "fromGuid"},
		{"neither matches", "opaque-guid", "https://example.com/post", ""},
		{"empty inputs", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VideoID(tt.guid, tt.itemURL))
		})
	}
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", WatchURL("dQw4w9WgXcQ"))
}
