package ingest

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are stripped before a URL participates in identity. Tracking
// noise must not change the dedupe key of the same underlying content.
var trackingParams = map[string]bool{
	"fbclid":  true,
	"gclid":   true,
	"igshid":  true,
	"mc_cid":  true,
	"mc_eid":  true,
	"ref":     true,
	"ref_src": true,
}

// DedupeKey builds the stable identity for an item: the platform-native
// identifier when available, else the normalized item URL
func DedupeKey(platform, nativeID, rawURL string) string {
	if nativeID != "" {
		return platform + ":" + nativeID
	}
	return platform + ":" + NormalizeURL(rawURL)
}

// NormalizeURL canonicalizes a URL for identity purposes: lowercases scheme
// and host, drops fragments and tracking parameters, sorts the remaining
// query and trims the trailing slash. Unparseable input is returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	query := u.Query()
	for param := range query {
		if trackingParams[param] || strings.HasPrefix(strings.ToLower(param), "utm_") {
			query.Del(param)
		}
	}
	u.RawQuery = encodeSorted(query)

	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// encodeSorted renders query params in sorted key order so that parameter
// ordering differences never change identity
func encodeSorted(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range query[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
