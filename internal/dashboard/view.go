package dashboard

import (
	"strconv"
	"time"

	"github.com/TobiSchelling/creditintel/internal/api"
	"github.com/TobiSchelling/creditintel/internal/display"
)

// View is an immutable snapshot of the dashboard for rendering.
type View struct {
	// Loading is true until the first refresh cycle has settled.
	Loading     bool              `json:"loading"`
	CycleID     string            `json:"cycle_id,omitempty"`
	LastRefresh time.Time         `json:"last_refresh"`
	LastError   string            `json:"last_error,omitempty"`
	Issuers     Panel[api.Issuer] `json:"issuers"`
	Scores      Panel[api.Score]  `json:"scores"`
	Events      Panel[api.Event]  `json:"events"`
	Alerts      Panel[api.Alert]  `json:"alerts"`
	Selected    *api.Issuer       `json:"selected,omitempty"`
	Detail      *DetailView       `json:"detail,omitempty"`
}

// StatCard is one of the summary tiles at the top of the page.
type StatCard struct {
	Icon  string
	Title string
	Value string
	Color string
}

// StatCards returns the four summary tiles.
func (v View) StatCards() []StatCard {
	return []StatCard{
		{Icon: "📊", Title: "Active Issuers", Value: strconv.Itoa(v.Issuers.Count()), Color: "#ff6b6b"},
		{Icon: "📈", Title: "Credit Scores", Value: strconv.Itoa(v.Scores.Count()), Color: "#4ecdc4"},
		{Icon: "📰", Title: "News Events", Value: strconv.Itoa(v.Events.Count()), Color: "#45b7d1"},
		{Icon: "⚡", Title: "Real-Time", Value: "LIVE", Color: "#96ceb4"},
	}
}

// RecentScores is the head of the scores feed, in API order.
func (v View) RecentScores() []api.Score {
	return display.Head(v.Scores.Items, display.RecentLimit)
}

// RecentEvents is the head of the events feed, in API order.
func (v View) RecentEvents() []api.Event {
	return display.Head(v.Events.Items, display.RecentLimit)
}

// IsSelected reports whether id is the selected issuer.
func (v View) IsSelected(id int64) bool {
	return v.Selected != nil && v.Selected.ID == id
}

// Busy reports whether anything on the page is still loading.
func (v View) Busy() bool {
	return v.Loading || (v.Detail != nil && v.Detail.State == StateLoading)
}

// TrendBar is one bar of the score sparkline.
type TrendBar struct {
	Value  float64
	Height float64
}

// Bars maps each trend point to its sparkline bar.
func (dv DetailView) Bars() []TrendBar {
	if dv.Trend == nil {
		return nil
	}
	bars := make([]TrendBar, len(dv.Trend.Scores))
	for i, v := range dv.Trend.Scores {
		bars[i] = TrendBar{Value: v, Height: display.BarHeight(v)}
	}
	return bars
}

// PointCount is the number of trend timestamps.
func (dv DetailView) PointCount() int {
	if dv.Trend == nil {
		return 0
	}
	return len(dv.Trend.Timestamps)
}
