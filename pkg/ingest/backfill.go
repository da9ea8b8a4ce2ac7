package ingest

import (
	"context"
	"fmt"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/motocodex/motofeeds/pkg/db"
	"github.com/motocodex/motofeeds/pkg/scoring"
)

// rescoreBatch is the page size for the backfill walk over posts
const rescoreBatch = 500

// Rescore recomputes tags and importance for every stored post. This is the
// explicit out-of-band backfill after a scoring dictionary revision, never
// part of the per-run ingestion path. Updates run with bounded concurrency.
func (r *Runner) Rescore(ctx context.Context, workers int) (int, error) {
	if workers <= 0 {
		workers = 4
	}

	sources, err := r.store.GetSources(ctx)
	if err != nil {
		return 0, fmt.Errorf("load sources for rescore: %w", err)
	}
	tierBySource := make(map[int64]int, len(sources))
	for _, src := range sources {
		tierBySource[src.ID] = src.Tier
	}

	updated := 0
	for offset := 0; ; offset += rescoreBatch {
		posts, err := r.store.ListPosts(ctx, db.PostsFilter{Limit: rescoreBatch, Offset: offset})
		if err != nil {
			return updated, fmt.Errorf("list posts for rescore: %w", err)
		}
		if len(posts) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, post := range posts {
			g.Go(func() error {
				tier, ok := tierBySource[post.SourceID]
				if !ok {
					tier = 2
				}
				tags := scoring.Tags(post.Title)
				importance := r.scorer.Importance(tier, post.Title, "", scoring.EntityCount(tags))
				if err := r.store.UpdatePostScoring(gctx, post.ID, tags, importance); err != nil {
					return fmt.Errorf("rescore post %d: %w", post.ID, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return updated, err
		}
		updated += len(posts)
	}

	lgr.Printf("[INFO] rescored %d posts", updated)
	return updated, nil
}
