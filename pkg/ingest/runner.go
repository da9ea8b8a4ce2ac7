// Package ingest orchestrates one ingestion pass over the source roster:
// resolve identifiers, fetch with fallback, parse, dedupe, score and record
// per-run provenance.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/motocodex/motofeeds/pkg/db"
	"github.com/motocodex/motofeeds/pkg/feed"
	"github.com/motocodex/motofeeds/pkg/scoring"
	"github.com/motocodex/motofeeds/pkg/youtube"
)

// ErrBusy is returned when an ingestion pass is already in progress,
// concurrent passes against the same roster are serialized by rejection
var ErrBusy = errors.New("ingestion already running")

// Store is the persistent-store surface the orchestrator needs
type Store interface {
	GetEnabledSources(ctx context.Context) ([]db.Source, error)
	GetSources(ctx context.Context) ([]db.Source, error)
	BeginRun(ctx context.Context, sourceID int64, platform string) (int64, error)
	FinishRun(ctx context.Context, runID int64, res db.RunResult) error
	UpdateSourceStatus(ctx context.Context, sourceID int64, at time.Time, status, errMsg string) error
	UpdateSourceChannelID(ctx context.Context, sourceID int64, channelID string) error
	InsertPostsDeduped(ctx context.Context, posts []db.Post) (db.InsertReport, error)
	ListPosts(ctx context.Context, filter db.PostsFilter) ([]db.Post, error)
	UpdatePostScoring(ctx context.Context, postID int64, tags db.StringList, importance float64) error
}

// Fetcher retrieves and parses feed documents
type Fetcher interface {
	FetchFeed(ctx context.Context, url string, hint feed.Format) (*feed.Parsed, error)
	FetchFirst(ctx context.Context, candidates []string, hint feed.Format) (*feed.Result, error)
}

// Resolver resolves a channel handle to a stable channel identifier
type Resolver interface {
	Resolve(ctx context.Context, handle string) (string, error)
}

// Config holds orchestrator settings, passed in explicitly at construction
type Config struct {
	SourceTimeout time.Duration // bound on one source's fetch+write work
	HalfLife      time.Duration // recency decay constant for scoring
}

// Runner walks the enabled roster sequentially and ingests each source
type Runner struct {
	store    Store
	fetcher  Fetcher
	resolver Resolver
	scorer   *scoring.Engine
	timeout  time.Duration
	now      func() time.Time
	feedURL  func(channelID string) string // canonical channel feed URL builder

	mu sync.Mutex // serializes invocations, second caller gets ErrBusy
}

// NewRunner creates an orchestrator with the given dependencies
func NewRunner(store Store, fetcher Fetcher, resolver Resolver, cfg Config) *Runner {
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = 30 * time.Second
	}
	return &Runner{
		store:    store,
		fetcher:  fetcher,
		resolver: resolver,
		scorer:   scoring.NewEngine(cfg.HalfLife),
		timeout:  cfg.SourceTimeout,
		now:      time.Now,
		feedURL:  youtube.FeedURL,
	}
}

// Totals aggregates counters across a whole pass
type Totals struct {
	Feeds      int `json:"feeds"`
	Attempted  int `json:"attempted"`
	Inserted   int `json:"inserted"`
	Skipped    int `json:"skipped"`
	FeedErrors int `json:"feed_errors"`
}

// SourceResult is the per-source entry in the pass breakdown
type SourceResult struct {
	SourceID  int64  `json:"source_id"`
	Name      string `json:"name"`
	Platform  string `json:"platform"`
	OK        bool   `json:"ok"`
	Fetched   int    `json:"fetched"`
	Inserted  int    `json:"inserted"`
	Skipped   int    `json:"skipped"`
	ChosenURL string `json:"chosen_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Summary is the result of one full ingestion pass
type Summary struct {
	OK         bool           `json:"ok"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Totals     Totals         `json:"totals"`
	Breakdown  []SourceResult `json:"breakdown"`
}

// Run executes one sequential pass over the enabled roster. Per-source
// failures are recorded and never abort the pass; only an unreadable roster
// is a top-level failure. A pass already in progress returns ErrBusy.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()

	sources, err := r.store.GetEnabledSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("load source roster: %w", err)
	}

	summary := &Summary{
		OK:        true,
		StartedAt: r.now(),
		Totals:    Totals{Feeds: len(sources)},
		Breakdown: make([]SourceResult, 0, len(sources)),
	}

	for _, src := range sources {
		res := r.runSource(ctx, &src)
		summary.Breakdown = append(summary.Breakdown, res)
		summary.Totals.Attempted += res.Fetched
		summary.Totals.Inserted += res.Inserted
		summary.Totals.Skipped += res.Skipped
		if !res.OK {
			summary.Totals.FeedErrors++
		}
	}

	summary.FinishedAt = r.now()
	lgr.Printf("[INFO] ingestion pass done: %d feeds, %d fetched, %d inserted, %d skipped, %d errors",
		summary.Totals.Feeds, summary.Totals.Attempted, summary.Totals.Inserted,
		summary.Totals.Skipped, summary.Totals.FeedErrors)
	return summary, nil
}

// runSource ingests one source and guarantees the run ledger is finalized and
// the status snapshot updated on every path
func (r *Runner) runSource(ctx context.Context, src *db.Source) SourceResult {
	result := SourceResult{SourceID: src.ID, Name: src.Name, Platform: src.Platform}

	runID, err := r.store.BeginRun(ctx, src.ID, src.Platform)
	if err != nil {
		// can't open the ledger, treat the source as failed for this pass
		lgr.Printf("[ERROR] begin run for source %q: %v", src.Name, err)
		result.Error = fmt.Sprintf("begin run: %v", err)
		return result
	}

	srcCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fetchRes, channelID, fetchErr := r.fetchSource(srcCtx, src)

	details := db.JSONMap{}
	if fetchRes != nil {
		details["chosen_url"] = fetchRes.ChosenURL
		details["tried"] = fetchRes.Tried
		details["format"] = string(fetchRes.Feed.Format)
	}
	if channelID != "" {
		details["channel_id"] = channelID
	}

	var report db.InsertReport
	var storeErr error
	if fetchErr == nil {
		posts := r.buildPosts(src, channelID, fetchRes)
		result.Fetched = len(fetchRes.Feed.Items)
		report, storeErr = r.store.InsertPostsDeduped(srcCtx, posts)
		if storeErr == nil {
			details["dedupe"] = report
			result.ChosenURL = fetchRes.ChosenURL
			result.Inserted = report.Inserted
			result.Skipped = report.Skipped
		}
	}

	runErr := fetchErr
	if runErr == nil {
		runErr = storeErr
	}

	errText := ""
	status := db.StatusOK
	if runErr != nil {
		errText = runErr.Error()
		status = db.StatusError
		lgr.Printf("[WARN] source %q failed: %v", src.Name, runErr)
	}
	result.OK = runErr == nil
	result.Error = errText

	finishedAt := r.now()
	if err := r.store.FinishRun(ctx, runID, db.RunResult{
		OK:            result.OK,
		FetchedCount:  result.Fetched,
		InsertedCount: result.Inserted,
		ErrorText:     errText,
		Details:       details,
	}); err != nil {
		lgr.Printf("[ERROR] finish run %d for source %q: %v", runID, src.Name, err)
	}

	// snapshot reflects the most recent attempt, success or not
	if err := r.store.UpdateSourceStatus(ctx, src.ID, finishedAt, status, errText); err != nil {
		lgr.Printf("[ERROR] update status for source %q: %v", src.Name, err)
	}

	return result
}

// fetchSource picks the fetch strategy per platform and returns the chosen
// feed plus the channel identifier used, if any
func (r *Runner) fetchSource(ctx context.Context, src *db.Source) (*feed.Result, string, error) {
	if src.Platform == db.PlatformYouTube {
		return r.fetchYouTube(ctx, src)
	}

	hint := feed.FormatUnknown
	switch src.Platform {
	case db.PlatformRSS:
		hint = feed.FormatRSS
	case db.PlatformAtom:
		hint = feed.FormatAtom
	}

	res, err := r.fetcher.FetchFirst(ctx, src.FeedURLs, hint)
	if err != nil {
		return nil, "", err
	}
	return res, "", nil
}

// fetchYouTube resolves the channel identifier when needed, fetches the
// canonical feed and self-heals a stale identifier on a 404: re-resolve once
// and, if the handle now maps to a different channel, persist it and retry.
func (r *Runner) fetchYouTube(ctx context.Context, src *db.Source) (*feed.Result, string, error) {
	channelID := src.ChannelID
	if feed.IsPlaceholderURL(channelID) {
		channelID = ""
	}

	if channelID == "" {
		if src.Handle == "" {
			return nil, "", fmt.Errorf("no channel id or handle configured")
		}
		resolved, err := r.resolver.Resolve(ctx, src.Handle)
		if err != nil {
			return nil, "", fmt.Errorf("resolve handle %q: %w", src.Handle, err)
		}
		if resolved == "" {
			return nil, "", fmt.Errorf("no channel id found for handle %q", src.Handle)
		}
		channelID = resolved
		if err := r.store.UpdateSourceChannelID(ctx, src.ID, channelID); err != nil {
			lgr.Printf("[WARN] persist resolved channel id for %q: %v", src.Name, err)
		}
		lgr.Printf("[INFO] resolved handle %q to channel %s", src.Handle, channelID)
	}

	tried := []feed.Attempt{}
	feedURL := r.feedURL(channelID)
	parsed, err := r.fetcher.FetchFeed(ctx, feedURL, feed.FormatAtom)

	if err != nil && feed.IsNotFound(err) && src.Handle != "" {
		resolved, resolveErr := r.resolver.Resolve(ctx, src.Handle)
		if resolveErr == nil && resolved != "" && resolved != channelID {
			lgr.Printf("[INFO] channel id for %q changed %s -> %s, self-healing", src.Name, channelID, resolved)
			tried = append(tried, feed.Attempt{URL: feedURL, Reason: err.Error()})
			channelID = resolved
			if updErr := r.store.UpdateSourceChannelID(ctx, src.ID, channelID); updErr != nil {
				lgr.Printf("[WARN] persist re-resolved channel id for %q: %v", src.Name, updErr)
			}
			feedURL = r.feedURL(channelID)
			parsed, err = r.fetcher.FetchFeed(ctx, feedURL, feed.FormatAtom)
		}
	}

	if err != nil {
		tried = append(tried, feed.Attempt{URL: feedURL, Reason: err.Error()})
		// the derived URL is authoritative but extra candidates may be
		// configured, and those can be rss bridges rather than atom
		if len(src.FeedURLs) > 0 {
			res, fallbackErr := r.fetcher.FetchFirst(ctx, src.FeedURLs, feed.FormatUnknown)
			if fallbackErr == nil {
				res.Tried = append(tried, res.Tried...)
				return res, channelID, nil
			}
		}
		return nil, channelID, fmt.Errorf("fetch channel feed: %w", err)
	}

	tried = append(tried, feed.Attempt{URL: feedURL})
	return &feed.Result{ChosenURL: feedURL, Feed: parsed, Tried: tried}, channelID, nil
}

// buildPosts converts canonical items into post rows with identity keys,
// tags and importance computed inline at write time
func (r *Runner) buildPosts(src *db.Source, channelID string, res *feed.Result) []db.Post {
	posts := make([]db.Post, 0, len(res.Feed.Items))
	for _, item := range res.Feed.Items {
		videoID := ""
		url := item.URL
		if src.Platform == db.PlatformYouTube {
			videoID = youtube.VideoID(item.GUID, item.URL)
			if url == "" && videoID != "" {
				url = youtube.WatchURL(videoID)
			}
		}
		if url == "" {
			continue
		}

		tags := scoring.Tags(item.Title)
		importance := r.scorer.Importance(src.Tier, item.Title, "", scoring.EntityCount(tags))

		post := db.Post{
			DedupeKey:   DedupeKey(src.Platform, videoID, url),
			Platform:    src.Platform,
			SourceID:    src.ID,
			Title:       item.Title,
			URL:         url,
			PublishedAt: item.PublishedAt,
			VideoID:     videoID,
			ChannelID:   channelID,
			Tags:        tags,
			Importance:  importance,
			Raw: db.JSONMap{
				"feed_url": res.ChosenURL,
				"format":   string(res.Feed.Format),
				"guid":     item.GUID,
			},
		}
		if item.ThumbnailURL != "" {
			post.ThumbnailURL.String = item.ThumbnailURL
			post.ThumbnailURL.Valid = true
		}
		posts = append(posts, post)
	}
	return posts
}
