package feed

import "time"

// Format is a parse hint for the raw document. The underlying parser detects
// the format itself, the hint is retained for run diagnostics only.
type Format string

// known feed formats
const (
	FormatRSS     Format = "rss"
	FormatAtom    Format = "atom"
	FormatUnknown Format = "unknown"
)

// Item is the canonical shape produced by the parser, independent of the
// source feed format
type Item struct {
	Title        string
	URL          string
	GUID         string
	PublishedAt  time.Time
	ThumbnailURL string
}

// Parsed is the result of normalizing one feed document
type Parsed struct {
	Title  string
	Link   string
	Format Format
	Items  []Item
}
