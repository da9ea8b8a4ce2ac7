package feed

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	xhtml "golang.org/x/net/html"
)

// Parser normalizes RSS 2.0 and Atom documents into canonical items
type Parser struct {
	strip *bluemonday.Policy
}

// NewParser creates a new canonical feed parser
func NewParser() *Parser {
	return &Parser{strip: bluemonday.StrictPolicy()}
}

// Parse normalizes a raw XML document into an ordered item list. Items lacking
// a resolvable URL or a parseable absolute timestamp are dropped, not reported.
// The output is deduplicated by URL (newest timestamp wins) and sorted by
// timestamp descending.
func (p *Parser) Parse(raw string, hint Format) (*Parsed, error) {
	fp := gofeed.NewParser()
	parsed, err := fp.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse feed document: %w", err)
	}

	format := hint
	if format == "" || format == FormatUnknown {
		switch parsed.FeedType {
		case "rss":
			format = FormatRSS
		case "atom":
			format = FormatAtom
		default:
			format = FormatUnknown
		}
	}

	result := &Parsed{
		Title:  p.cleanText(parsed.Title),
		Link:   strings.TrimSpace(parsed.Link),
		Format: format,
		Items:  make([]Item, 0, len(parsed.Items)),
	}

	for _, it := range parsed.Items {
		item, ok := p.convertItem(it)
		if !ok {
			continue // unusable, tolerated silently
		}
		result.Items = append(result.Items, item)
	}

	result.Items = dedupeByURL(result.Items)
	return result, nil
}

// convertItem maps a single feed entry to the canonical shape,
// returns ok=false when the entry has no usable URL or timestamp
func (p *Parser) convertItem(it *gofeed.Item) (Item, bool) {
	url := itemURL(it)
	if url == "" {
		return Item{}, false
	}

	published, ok := itemTime(it)
	if !ok {
		return Item{}, false
	}

	title := p.cleanText(it.Title)
	if title == "" {
		title = url
	}

	return Item{
		Title:        title,
		URL:          url,
		GUID:         strings.TrimSpace(it.GUID),
		PublishedAt:  published.UTC(),
		ThumbnailURL: p.itemThumbnail(it),
	}, true
}

// itemURL picks the entry URL: link first, then a URL-shaped guid/id
func itemURL(it *gofeed.Item) string {
	if link := strings.TrimSpace(it.Link); link != "" {
		return link
	}
	if guid := strings.TrimSpace(it.GUID); isHTTPURL(guid) {
		return guid
	}
	for _, link := range it.Links {
		if l := strings.TrimSpace(link); l != "" {
			return l
		}
	}
	return ""
}

// itemTime resolves the publish timestamp: published, then updated, then
// Dublin-Core date fields, with a lenient parse fallback for the raw strings
func itemTime(it *gofeed.Item) (time.Time, bool) {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed, true
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed, true
	}

	candidates := []string{it.Published, it.Updated}
	if it.DublinCoreExt != nil {
		candidates = append(candidates, it.DublinCoreExt.Date...)
	}
	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if ts, err := dateparse.ParseAny(raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// itemThumbnail resolves a thumbnail candidate: media:thumbnail, then
// media:group nested thumbnail, then enclosure, then the first img inside
// embedded HTML content
func (p *Parser) itemThumbnail(it *gofeed.Item) string {
	if url := mediaThumbnail(it.Extensions); url != "" {
		return url
	}
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc.URL == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	for _, embedded := range []string{it.Content, it.Description} {
		if src := firstImgSrc(embedded); src != "" {
			return src
		}
	}
	return ""
}

// mediaThumbnail digs media:thumbnail out of the media RSS extension tree,
// both at item level and nested under media:group as YouTube feeds do
func mediaThumbnail(exts ext.Extensions) string {
	media, ok := exts["media"]
	if !ok {
		return ""
	}
	for _, thumb := range media["thumbnail"] {
		if url := thumb.Attrs["url"]; url != "" {
			return url
		}
	}
	for _, group := range media["group"] {
		for _, thumb := range group.Children["thumbnail"] {
			if url := thumb.Attrs["url"]; url != "" {
				return url
			}
		}
	}
	return ""
}

// firstImgSrc returns the src of the first img element in an HTML fragment
func firstImgSrc(fragment string) string {
	if fragment == "" || !strings.Contains(fragment, "<img") {
		return ""
	}
	tokenizer := xhtml.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case xhtml.ErrorToken:
			return ""
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "img" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "src" && attr.Val != "" {
					return attr.Val
				}
			}
		}
	}
}

// cleanText strips markup, decodes HTML entities and collapses whitespace
func (p *Parser) cleanText(s string) string {
	s = p.strip.Sanitize(s)
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// dedupeByURL keeps one item per URL, newest timestamp wins, and sorts the
// result by timestamp descending. Protects against feeds listing the same
// entry twice with cross-posted content.
func dedupeByURL(items []Item) []Item {
	seen := make(map[string]Item, len(items))
	for _, it := range items {
		prev, ok := seen[it.URL]
		if !ok || it.PublishedAt.After(prev.PublishedAt) {
			seen[it.URL] = it
		}
	}

	result := make([]Item, 0, len(seen))
	for _, it := range seen {
		result = append(result, it)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].PublishedAt.Equal(result[j].PublishedAt) {
			return result[i].PublishedAt.After(result[j].PublishedAt)
		}
		return result[i].URL < result[j].URL
	})
	return result
}

// isHTTPURL reports whether s looks like an absolute http(s) URL
func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
