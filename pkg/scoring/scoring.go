// Package scoring computes importance, credibility and momentum for ingested
// items and derives deterministic topic/entity tags from title text.
package scoring

import (
	"strings"
	"time"
)

// importantKeywords raise importance when present, title matches weigh more
// than body matches
var importantKeywords = []string{
	"injury", "out", "return", "surgery", "broken", "update", "results",
	"qualifying", "main event", "heat", "gate", "penalty", "disqualified",
	"protest", "contract", "signs", "team", "suspension", "rule", "points",
	"standings", "championship", "bike", "engine", "testing",
}

// momentumKeywords signal that an item is time-critical right now
var momentumKeywords = []string{
	"breaking", "confirmed", "official", "announced", "today", "tonight",
	"this weekend",
}

// DefaultHalfLife is the recency decay constant used when none is configured
const DefaultHalfLife = 36 * time.Hour

// DefaultCredibility is the neutral starting point before source and host
// adjustments are applied
const DefaultCredibility = 50.0

// Engine computes scores with a configurable recency half-life
type Engine struct {
	halfLife time.Duration
}

// NewEngine creates a scoring engine, halfLife <= 0 uses the default
func NewEngine(halfLife time.Duration) *Engine {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return &Engine{halfLife: halfLife}
}

// TierBase returns the editorial base score for a source tier, 1 is highest
func TierBase(tier int) float64 {
	switch tier {
	case 1:
		return 9.0
	case 3:
		return 3.0
	default:
		return 6.0
	}
}

// Importance blends the tier base with deterministic keyword-presence bonuses
// and an entity bonus, clamped to [0,100]
func (e *Engine) Importance(tier int, title, body string, entityCount int) float64 {
	t := normalize(title)
	b := normalize(body)

	score := TierBase(tier)
	for _, kw := range importantKeywords {
		switch {
		case strings.Contains(t, kw):
			score += 8
		case strings.Contains(b, kw):
			score += 4
		}
	}

	score += min(float64(entityCount)*3, 18)

	// well-formed headlines get a small nudge
	if len(t) > 20 && len(t) < 90 {
		score += 4
	}

	return clamp(score, 0, 100)
}

// Credibility adjusts a default credibility from source name and host heuristics
func Credibility(defaultCred float64, sourceName, url string) float64 {
	c := defaultCred
	s := strings.ToLower(sourceName)
	u := strings.ToLower(url)

	if strings.Contains(u, "feld") || strings.Contains(u, "supercross") || strings.Contains(u, "promotocross") {
		c += 10
	}
	if strings.Contains(s, "official") {
		c += 5
	}
	if strings.Contains(s, "forum") || strings.Contains(u, "forum") {
		c -= 15
	}
	if strings.Contains(u, "facebook.com") || strings.Contains(u, "tiktok.com") {
		c -= 5
	}

	return clamp(c, 0, 100)
}

// Momentum scores how time-critical an item is from its age and keyword hits
func (e *Engine) Momentum(publishedAt time.Time, title, body string, now time.Time) float64 {
	score := 45.0

	if !publishedAt.IsZero() {
		ageHours := max(now.Sub(publishedAt).Hours(), 0)
		score += max(35-(ageHours/24)*12, 0)
	}

	t := normalize(title)
	b := normalize(body)
	for _, kw := range momentumKeywords {
		if strings.Contains(t, kw) || strings.Contains(b, kw) {
			score += 6
		}
	}

	return clamp(score, 0, 100)
}

// RecencyBoost is a smooth monotonically-decreasing function of item age,
// 1/(1+h/H) for age h hours and half-life constant H
func (e *Engine) RecencyBoost(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	return 1 / (1 + age.Hours()/e.halfLife.Hours())
}

// Composite multiplies importance by the recency boost, so older items never
// outrank much-newer items of similar base importance once age exceeds a few
// half-lives
func (e *Engine) Composite(importance float64, publishedAt, now time.Time) float64 {
	return importance * e.RecencyBoost(now.Sub(publishedAt))
}

// RankLess orders by composite score descending, ties broken by timestamp
// descending then key ascending, so no ordering is ever arbitrary
func RankLess(scoreI, scoreJ float64, timeI, timeJ time.Time, keyI, keyJ string) bool {
	if scoreI != scoreJ {
		return scoreI > scoreJ
	}
	if !timeI.Equal(timeJ) {
		return timeI.After(timeJ)
	}
	return keyI < keyJ
}

// normalize lowercases and collapses whitespace for keyword matching
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
