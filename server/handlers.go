package server

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/motocodex/motofeeds/pkg/db"
	"github.com/motocodex/motofeeds/pkg/ingest"
	"github.com/motocodex/motofeeds/pkg/scoring"
)

// statusHandler returns server status and store counts
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	total, enabled, err := s.database.CountSources(r.Context())
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	posts, err := s.database.CountPosts(r.Context())
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}

	status := map[string]interface{}{
		"status":          "ok",
		"version":         s.version,
		"time":            time.Now().UTC(),
		"sources":         total,
		"sources_enabled": enabled,
		"posts":           posts,
	}
	RenderJSON(w, r, http.StatusOK, status)
}

// ingestRunHandler triggers a full ingestion pass. Returns 200 with the pass
// summary even when individual sources failed, 409 when a pass is already in
// progress and 500 only on orchestration-level failures.
func (s *Server) ingestRunHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ingester.Run(r.Context())
	if err != nil {
		if errors.Is(err, ingest.ErrBusy) {
			RenderError(w, r, err, http.StatusConflict)
			return
		}
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, summary)
}

// rescoreHandler triggers the out-of-band tags/importance backfill
func (s *Server) rescoreHandler(w http.ResponseWriter, r *http.Request) {
	workers := intParam(r, "workers", 0)
	updated, err := s.ingester.Rescore(r.Context(), workers)
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, map[string]interface{}{"ok": true, "updated": updated})
}

// postResponse is a post with the derived scores added for consumers
type postResponse struct {
	db.Post
	Rank        float64 `json:"rank"`
	Momentum    float64 `json:"momentum"`
	Credibility float64 `json:"credibility"`
}

// postsHandler lists posts for downstream consumers, ordered by publish time
// or by composite rank score, optionally filtered by platform, tag or title
// substring
func (s *Server) postsHandler(w http.ResponseWriter, r *http.Request) {
	byRank := r.URL.Query().Get("sort") == "rank"
	limit := intParam(r, "limit", 100)
	if limit <= 0 {
		limit = 100
	}
	offset := max(intParam(r, "offset", 0), 0)

	filter := db.PostsFilter{
		Platform: r.URL.Query().Get("platform"),
		Tag:      r.URL.Query().Get("tag"),
		Query:    r.URL.Query().Get("q"),
		Limit:    limit,
		Offset:   offset,
	}
	if byRank {
		// rank order must consider every matching post, the store orders by
		// publish time so limiting there would drop high-rank older items.
		// the page window is applied after sorting instead.
		filter.Limit = -1
		filter.Offset = 0
	}

	posts, err := s.database.ListPosts(r.Context(), filter)
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}

	now := time.Now()
	resp := make([]postResponse, len(posts))
	for i, p := range posts {
		resp[i] = postResponse{
			Post:        p,
			Rank:        s.scorer.Composite(p.Importance, p.PublishedAt, now),
			Momentum:    s.scorer.Momentum(p.PublishedAt, p.Title, "", now),
			Credibility: scoring.Credibility(scoring.DefaultCredibility, "", p.URL),
		}
	}

	if byRank {
		sort.Slice(resp, func(i, j int) bool {
			return scoring.RankLess(resp[i].Rank, resp[j].Rank,
				resp[i].PublishedAt, resp[j].PublishedAt,
				resp[i].DedupeKey, resp[j].DedupeKey)
		})
		if offset >= len(resp) {
			resp = resp[:0]
		} else {
			resp = resp[offset:min(offset+limit, len(resp))]
		}
	}

	RenderJSON(w, r, http.StatusOK, resp)
}

// runsHandler lists recent ingest runs for observability
func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	runs, err := s.database.GetRecentRuns(r.Context(), intParam(r, "limit", 50))
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, runs)
}

// sourcesHandler lists the roster with status snapshots
func (s *Server) sourcesHandler(w http.ResponseWriter, r *http.Request) {
	sources, err := s.database.GetSources(r.Context())
	if err != nil {
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, sources)
}

// intParam reads an integer query parameter with a fallback
func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
