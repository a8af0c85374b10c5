package display

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestScoreTier(t *testing.T) {
	cases := []struct {
		score float64
		want  Tier
	}{
		{0, TierLow},
		{-5, TierLow},
		{100_000, TierLow},
		{100_000.01, TierMedium},
		{1_000_000, TierMedium},
		{1_000_000.5, TierGood},
		{42_000_000, TierGood},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ScoreTier(tc.score), "score %v", tc.score)
	}
}

func TestSentimentTier(t *testing.T) {
	assert.Equal(t, TierNeutral, SentimentTier(f(0.1)))
	assert.Equal(t, TierNeutral, SentimentTier(f(-0.1)))
	assert.Equal(t, TierNeutral, SentimentTier(f(0)))
	assert.Equal(t, TierPositive, SentimentTier(f(0.1001)))
	assert.Equal(t, TierNegative, SentimentTier(f(-0.5)))
	assert.Equal(t, TierNeutral, SentimentTier(nil))
}

func TestContributionTier(t *testing.T) {
	assert.Equal(t, TierPositive, ContributionTier(0.0001))
	assert.Equal(t, TierNegative, ContributionTier(-0.0001))
	assert.Equal(t, TierNeutral, ContributionTier(0))
}

func TestTierColors(t *testing.T) {
	assert.Equal(t, "#00ff88", TierGood.Color())
	assert.Equal(t, "#ffaa00", TierMedium.Color())
	assert.Equal(t, "#ff4444", TierLow.Color())
	assert.Equal(t, "#8888ff", TierNeutral.Color())
}

func TestIssuerColor(t *testing.T) {
	assert.Equal(t, "#ff6b6b", IssuerColor("AAPL"))
	assert.Equal(t, "#96ceb4", IssuerColor("AMZN"))
	assert.Equal(t, IssuerColor("NVDA"), IssuerColor("IBM"))
	assert.Equal(t, "#a8e6cf", IssuerColor(""))
}

func TestBarHeight(t *testing.T) {
	assert.Equal(t, 6.0, BarHeight(-1))
	assert.Equal(t, 120.0, BarHeight(1))
	assert.Equal(t, 60.0, BarHeight(0))
	assert.Equal(t, 6.0, BarHeight(-40))
	assert.Equal(t, 120.0, BarHeight(3.5))
	assert.InDelta(t, 90.0, BarHeight(0.5), 1e-9)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1234567.89", FormatScore(1234567.891))
	assert.Equal(t, "0.4200", FormatWeight(0.42))
	assert.Equal(t, "-0.0001", FormatWeight(-0.00012))
	assert.Equal(t, "", FormatSentiment(nil))
	assert.Equal(t, "-0.30", FormatSentiment(f(-0.3)))
	assert.Equal(t, "DEBT TO EQUITY", FeatureLabel("debt_to_equity"))
	assert.Equal(t, "", FormatTime(time.Time{}))
	assert.NotEmpty(t, FormatTime(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)))
}

func TestHead(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}
	head := Head(items, RecentLimit)
	assert.Len(t, head, 10)
	assert.Equal(t, 0, head[0])
	assert.Equal(t, 9, head[9])

	assert.Len(t, Head(items[:3], RecentLimit), 3)
	assert.Empty(t, Head([]int(nil), RecentLimit))
}
