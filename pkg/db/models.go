package db

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// platform identifiers accepted in the sources roster
const (
	PlatformYouTube = "youtube"
	PlatformRSS     = "rss"
	PlatformAtom    = "atom"
)

// source status snapshot values
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

// StringList is a []string stored as a JSON array in a TEXT column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for string list: %T", src)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

// JSONMap is a map stored as a JSON object in a TEXT column
type JSONMap map[string]any

// Value implements driver.Valuer
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal json map: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for json map: %T", src)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}

// Source represents a roster entry, one feed provider with its candidate URLs
type Source struct {
	ID             int64          `db:"id" json:"id"`
	Platform       string         `db:"platform" json:"platform"`
	Name           string         `db:"name" json:"name"`
	Handle         string         `db:"handle" json:"handle,omitempty"`
	ChannelID      string         `db:"channel_id" json:"channel_id,omitempty"`
	FeedURLs       StringList     `db:"feed_urls" json:"feed_urls"`
	Tier           int            `db:"tier" json:"tier"`
	Enabled        bool           `db:"enabled" json:"enabled"`
	LastIngestedAt sql.NullTime   `db:"last_ingested_at" json:"last_ingested_at"`
	LastStatus     string         `db:"last_status" json:"last_status"`
	LastError      sql.NullString `db:"last_error" json:"last_error"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// IngestRun represents one execution of the ingest logic against one source
type IngestRun struct {
	ID            int64          `db:"id" json:"id"`
	SourceID      int64          `db:"source_id" json:"source_id"`
	Platform      string         `db:"platform" json:"platform"`
	StartedAt     time.Time      `db:"started_at" json:"started_at"`
	FinishedAt    sql.NullTime   `db:"finished_at" json:"finished_at"`
	OK            bool           `db:"ok" json:"ok"`
	FetchedCount  int            `db:"fetched_count" json:"fetched_count"`
	InsertedCount int            `db:"inserted_count" json:"inserted_count"`
	ErrorText     sql.NullString `db:"error_text" json:"error_text"`
	Details       JSONMap        `db:"details" json:"details"`
}

// RunResult carries the final outcome of a run into FinishRun
type RunResult struct {
	OK            bool
	FetchedCount  int
	InsertedCount int
	ErrorText     string
	Details       JSONMap
}

// Post is a canonical ingested item, created once per unique dedupe key
type Post struct {
	ID           int64          `db:"id" json:"id"`
	DedupeKey    string         `db:"dedupe_key" json:"dedupe_key"`
	Platform     string         `db:"platform" json:"platform"`
	SourceID     int64          `db:"source_id" json:"source_id"`
	Title        string         `db:"title" json:"title"`
	URL          string         `db:"url" json:"url"`
	ThumbnailURL sql.NullString `db:"thumbnail_url" json:"thumbnail_url"`
	PublishedAt  time.Time      `db:"published_at" json:"published_at"`
	VideoID      string         `db:"video_id" json:"video_id,omitempty"`
	ChannelID    string         `db:"channel_id" json:"channel_id,omitempty"`
	Tags         StringList     `db:"tags" json:"tags"`
	Importance   float64        `db:"importance" json:"importance"`
	Raw          JSONMap        `db:"raw" json:"raw,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
