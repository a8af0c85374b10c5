// Package display holds the pure rules that turn API records into what the
// dashboard shows: color tiers, number formats and sparkline geometry.
package display

import (
	"fmt"
	"strings"
	"time"
)

// Tier is a three-way display class. The string value doubles as the CSS
// class suffix.
type Tier string

const (
	TierGood     Tier = "good"
	TierMedium   Tier = "medium"
	TierLow      Tier = "low"
	TierPositive Tier = "positive"
	TierNegative Tier = "negative"
	TierNeutral  Tier = "neutral"
)

// Fixed visualization thresholds.
const (
	ScoreGoodAbove      = 1_000_000
	ScoreMediumAbove    = 100_000
	SentimentPositiveGt = 0.1
	SentimentNegativeLt = -0.1
)

// Sparkline bar geometry in pixels.
const (
	BarMinHeight = 6
	BarMaxHeight = 120
	barScale     = 60
)

// RecentLimit is how many scores and events the feeds show.
const RecentLimit = 10

var tierColors = map[Tier]string{
	TierGood:     "#00ff88",
	TierMedium:   "#ffaa00",
	TierLow:      "#ff4444",
	TierPositive: "#00ff88",
	TierNegative: "#ff4444",
	TierNeutral:  "#8888ff",
}

// Color returns the hex color for a tier.
func (t Tier) Color() string {
	return tierColors[t]
}

// ScoreTier buckets a credit score.
func ScoreTier(score float64) Tier {
	switch {
	case score > ScoreGoodAbove:
		return TierGood
	case score > ScoreMediumAbove:
		return TierMedium
	default:
		return TierLow
	}
}

// SentimentTier buckets a sentiment value. A missing sentiment is neutral.
func SentimentTier(sentiment *float64) Tier {
	if sentiment == nil {
		return TierNeutral
	}
	switch {
	case *sentiment > SentimentPositiveGt:
		return TierPositive
	case *sentiment < SentimentNegativeLt:
		return TierNegative
	default:
		return TierNeutral
	}
}

// ContributionTier colors a feature weight by its sign.
func ContributionTier(weight float64) Tier {
	switch {
	case weight > 0:
		return TierPositive
	case weight < 0:
		return TierNegative
	default:
		return TierNeutral
	}
}

const fallbackIssuerColor = "#a8e6cf"

var issuerColors = map[string]string{
	"AAPL": "#ff6b6b",
	"MSFT": "#4ecdc4",
	"TSLA": "#45b7d1",
	"AMZN": "#96ceb4",
}

// IssuerColor returns the accent color for a ticker. Unknown tickers all
// share one fallback.
func IssuerColor(ticker string) string {
	if c, ok := issuerColors[ticker]; ok {
		return c
	}
	return fallbackIssuerColor
}

// BarHeight maps a trend value in roughly [-1, 1] onto a bar height,
// clamped to [BarMinHeight, BarMaxHeight].
func BarHeight(v float64) float64 {
	h := (v + 1) * barScale
	return max(BarMinHeight, min(BarMaxHeight, h))
}

// FormatScore renders a score with two decimals.
func FormatScore(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// FormatSentiment renders a sentiment with two decimals, or "" when absent.
func FormatSentiment(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatWeight renders a contribution weight with four decimals.
func FormatWeight(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

// FeatureLabel turns a feature key like "debt_to_equity" into
// "DEBT TO EQUITY".
func FeatureLabel(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "_", " "))
}

// FormatTime renders a timestamp for the feeds in local time. Zero times
// render as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006, 3:04:05 PM")
}

// Head returns at most n leading elements of items, in order.
func Head[T any](items []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(items) <= n {
		return items
	}
	return items[:n]
}
