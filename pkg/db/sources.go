package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateSource creates a new source entry
func (db *DB) CreateSource(ctx context.Context, src *Source) error {
	if src.Tier == 0 {
		src.Tier = 2
	}
	if src.LastStatus == "" {
		src.LastStatus = StatusUnknown
	}
	query := `
		INSERT INTO sources (platform, name, handle, channel_id, feed_urls, tier, enabled, last_status)
		VALUES (:platform, :name, :handle, :channel_id, :feed_urls, :tier, :enabled, :last_status)
	`
	result, err := db.conn.NamedExecContext(ctx, query, src)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	src.ID = id
	return nil
}

// UpsertSource creates or updates a source keyed by name. Used for roster
// seeding at startup; the status snapshot fields are left untouched on update.
func (db *DB) UpsertSource(ctx context.Context, src *Source) error {
	if src.Tier == 0 {
		src.Tier = 2
	}
	if src.LastStatus == "" {
		src.LastStatus = StatusUnknown
	}
	query := `
		INSERT INTO sources (platform, name, handle, channel_id, feed_urls, tier, enabled, last_status)
		VALUES (:platform, :name, :handle, :channel_id, :feed_urls, :tier, :enabled, :last_status)
		ON CONFLICT(name) DO UPDATE SET
			platform = excluded.platform,
			handle = excluded.handle,
			channel_id = CASE WHEN excluded.channel_id != '' THEN excluded.channel_id ELSE sources.channel_id END,
			feed_urls = excluded.feed_urls,
			tier = excluded.tier,
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := db.conn.NamedExecContext(ctx, query, src); err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}

	var id int64
	if err := db.conn.GetContext(ctx, &id, `SELECT id FROM sources WHERE name = ?`, src.Name); err != nil {
		return fmt.Errorf("get upserted source id: %w", err)
	}
	src.ID = id
	return nil
}

// GetSource retrieves a source by ID
func (db *DB) GetSource(ctx context.Context, id int64) (*Source, error) {
	var src Source
	err := db.conn.GetContext(ctx, &src, `SELECT * FROM sources WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source not found")
		}
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &src, nil
}

// GetEnabledSources returns enabled sources ordered by tier then name,
// the order the orchestrator walks them in
func (db *DB) GetEnabledSources(ctx context.Context) ([]Source, error) {
	var sources []Source
	query := `SELECT * FROM sources WHERE enabled = 1 ORDER BY tier ASC, name ASC`
	if err := db.conn.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("get enabled sources: %w", err)
	}
	return sources, nil
}

// GetSources returns all sources ordered by tier then name
func (db *DB) GetSources(ctx context.Context) ([]Source, error) {
	var sources []Source
	query := `SELECT * FROM sources ORDER BY tier ASC, name ASC`
	if err := db.conn.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("get sources: %w", err)
	}
	return sources, nil
}

// UpdateSourceChannelID persists a resolved or re-resolved channel identifier,
// so the handle is not re-scraped on every run
func (db *DB) UpdateSourceChannelID(ctx context.Context, sourceID int64, channelID string) error {
	return db.withRetry(ctx, func() error {
		query := `UPDATE sources SET channel_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
		if _, err := db.conn.ExecContext(ctx, query, channelID, sourceID); err != nil {
			return fmt.Errorf("update source channel id: %w", err)
		}
		return nil
	})
}

// UpdateSourceStatus writes the status snapshot after a run, success or not.
// The snapshot always reflects the most recent attempt, not the most recent success.
func (db *DB) UpdateSourceStatus(ctx context.Context, sourceID int64, at time.Time, status, errMsg string) error {
	return db.withRetry(ctx, func() error {
		query := `
			UPDATE sources
			SET last_ingested_at = ?, last_status = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
		if _, err := db.conn.ExecContext(ctx, query, at, status, errMsg, sourceID); err != nil {
			return fmt.Errorf("update source status: %w", err)
		}
		return nil
	})
}

// CountSources returns total and enabled source counts
func (db *DB) CountSources(ctx context.Context) (total, enabled int, err error) {
	if err = db.conn.GetContext(ctx, &total, `SELECT COUNT(*) FROM sources`); err != nil {
		return 0, 0, fmt.Errorf("count sources: %w", err)
	}
	if err = db.conn.GetContext(ctx, &enabled, `SELECT COUNT(*) FROM sources WHERE enabled = 1`); err != nil {
		return 0, 0, fmt.Errorf("count enabled sources: %w", err)
	}
	return total, enabled, nil
}
