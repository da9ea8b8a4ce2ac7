package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// keyLookupChunk bounds the number of keys in a single IN(...) query,
// SQLite limits the number of bound variables per statement
const keyLookupChunk = 500

// InsertReport describes the outcome of a deduplicated batch write
type InsertReport struct {
	Attempted int `json:"attempted"`
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
	Before    int `json:"before"`
	After     int `json:"after"`
}

// CountByDedupeKeys counts existing posts matching any of the given dedupe
// keys, batching the lookups to respect statement variable limits
func (db *DB) CountByDedupeKeys(ctx context.Context, keys []string) (int, error) {
	total := 0
	for start := 0; start < len(keys); start += keyLookupChunk {
		end := min(start+keyLookupChunk, len(keys))

		query, args, err := sq.Select("COUNT(*)").
			From("posts").
			Where(sq.Eq{"dedupe_key": keys[start:end]}).
			ToSql()
		if err != nil {
			return 0, fmt.Errorf("build key count query: %w", err)
		}

		var count int
		if err := db.conn.GetContext(ctx, &count, query, args...); err != nil {
			return 0, fmt.Errorf("count posts by dedupe keys: %w", err)
		}
		total += count
	}
	return total, nil
}

// InsertPosts writes a batch with insert-if-absent semantics in a single
// transaction. Conflicts on dedupe_key are absorbed silently.
func (db *DB) InsertPosts(ctx context.Context, posts []Post) error {
	if len(posts) == 0 {
		return nil
	}
	return db.withRetry(ctx, func() error {
		return db.InTransaction(ctx, func(tx *sqlx.Tx) error {
			query := `
				INSERT INTO posts (dedupe_key, platform, source_id, title, url, thumbnail_url,
				                   published_at, video_id, channel_id, tags, importance, raw)
				VALUES (:dedupe_key, :platform, :source_id, :title, :url, :thumbnail_url,
				        :published_at, :video_id, :channel_id, :tags, :importance, :raw)
				ON CONFLICT(dedupe_key) DO NOTHING
			`
			for _, post := range posts {
				if _, err := tx.NamedExecContext(ctx, query, post); err != nil {
					return fmt.Errorf("insert post %s: %w", post.DedupeKey, err)
				}
			}
			return nil
		})
	})
}

// InsertPostsDeduped reconciles a batch against existing rows and reports a
// true insert count. The store only offers insert-ignore semantics, so the
// count is derived by comparing matching-key counts before and after the
// write. Correct only while this process is the single writer for these keys.
func (db *DB) InsertPostsDeduped(ctx context.Context, posts []Post) (InsertReport, error) {
	report := InsertReport{Attempted: len(posts)}
	if len(posts) == 0 {
		return report, nil
	}

	keys := make([]string, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.DedupeKey]; ok {
			continue
		}
		seen[p.DedupeKey] = struct{}{}
		keys = append(keys, p.DedupeKey)
	}

	before, err := db.CountByDedupeKeys(ctx, keys)
	if err != nil {
		return report, fmt.Errorf("count before write: %w", err)
	}

	if err := db.InsertPosts(ctx, posts); err != nil {
		return report, err
	}

	after, err := db.CountByDedupeKeys(ctx, keys)
	if err != nil {
		return report, fmt.Errorf("count after write: %w", err)
	}

	report.Before = before
	report.After = after
	report.Inserted = max(0, after-before)
	report.Skipped = report.Attempted - report.Inserted
	return report, nil
}

// GetPostByDedupeKey retrieves a post by its dedupe key
func (db *DB) GetPostByDedupeKey(ctx context.Context, key string) (*Post, error) {
	var post Post
	err := db.conn.GetContext(ctx, &post, `SELECT * FROM posts WHERE dedupe_key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post not found")
		}
		return nil, fmt.Errorf("get post by dedupe key: %w", err)
	}
	return &post, nil
}

// PostsFilter narrows ListPosts output for downstream consumers
type PostsFilter struct {
	Platform string
	Tag      string
	Query    string // title substring, case-insensitive
	SourceID int64
	Limit    int
	Offset   int
}

// ListPosts returns posts ordered by publish time descending, optionally
// filtered by platform, tag, source or title substring. Limit 0 applies the
// default page size, a negative limit disables paging so callers that re-rank
// in memory see every matching row.
func (db *DB) ListPosts(ctx context.Context, filter PostsFilter) ([]Post, error) {
	if filter.Limit == 0 {
		filter.Limit = 100
	}

	builder := sq.Select("*").
		From("posts").
		OrderBy("published_at DESC", "dedupe_key ASC")
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	if filter.Platform != "" {
		builder = builder.Where(sq.Eq{"platform": filter.Platform})
	}
	if filter.SourceID > 0 {
		builder = builder.Where(sq.Eq{"source_id": filter.SourceID})
	}
	if filter.Tag != "" {
		// tags column holds a JSON array, match the quoted element
		builder = builder.Where(sq.Like{"tags": fmt.Sprintf(`%%"%s"%%`, filter.Tag)})
	}
	if filter.Query != "" {
		builder = builder.Where(sq.Expr("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Query)+"%"))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build posts query: %w", err)
	}

	var posts []Post
	if err := db.conn.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// UpdatePostScoring backfills tags and importance after a dictionary revision.
// This is the only mutation allowed on a post after insert.
func (db *DB) UpdatePostScoring(ctx context.Context, postID int64, tags StringList, importance float64) error {
	return db.withRetry(ctx, func() error {
		query := `UPDATE posts SET tags = ?, importance = ? WHERE id = ?`
		if _, err := db.conn.ExecContext(ctx, query, tags, importance, postID); err != nil {
			return fmt.Errorf("update post scoring: %w", err)
		}
		return nil
	})
}

// CountPosts returns the total number of posts
func (db *DB) CountPosts(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}
