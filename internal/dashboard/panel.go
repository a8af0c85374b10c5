package dashboard

import (
	"context"
	"time"

	"github.com/TobiSchelling/creditintel/internal/api"
)

// State is the lifecycle of a panel's data.
type State string

const (
	// StateLoading means nothing has been fetched yet.
	StateLoading State = "loading"
	// StateEmpty means the last fetch succeeded with no records.
	StateEmpty State = "empty"
	// StateLoaded means the last fetch succeeded with records.
	StateLoaded State = "loaded"
	// StateFailed means the last fetch failed. Items from the previous
	// good fetch are kept and reported as stale.
	StateFailed State = "failed"
)

// Panel is one fetched collection plus how it got there.
type Panel[T any] struct {
	State     State     `json:"state"`
	Items     []T       `json:"items"`
	Err       string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPanel[T any]() Panel[T] {
	return Panel[T]{State: StateLoading}
}

// apply replaces the panel's contents with a fetch result. Items slices are
// never modified after they are stored, so views may share them.
func (p *Panel[T]) apply(items []T, err error, now time.Time) {
	if err != nil {
		p.State = StateFailed
		p.Err = err.Error()
		return
	}
	p.Items = items
	p.Err = ""
	p.UpdatedAt = now
	if len(items) == 0 {
		p.State = StateEmpty
	} else {
		p.State = StateLoaded
	}
}

// Count is the number of records held, stale or not.
func (p Panel[T]) Count() int {
	return len(p.Items)
}

// Stale reports whether the panel shows records from an earlier cycle
// because the latest fetch failed.
func (p Panel[T]) Stale() bool {
	return p.State == StateFailed && len(p.Items) > 0
}

// Source is the read side of the credit API the dashboard consumes.
// *api.Client implements it.
type Source interface {
	ListIssuers(ctx context.Context) ([]api.Issuer, error)
	ListScores(ctx context.Context, q api.ScoreQuery) ([]api.Score, error)
	ListEvents(ctx context.Context, limit int) ([]api.Event, error)
	ListAlerts(ctx context.Context, limit int) ([]api.Alert, error)
	ScoreTrend(ctx context.Context, issuerID int64, limit int) (*api.Trend, error)
}

// Recorder receives dashboard measurements. *metrics.Metrics implements it.
type Recorder interface {
	ObserveRefresh(d time.Duration, err error)
	SetPanelRecords(panel string, n int)
	StaleDiscarded()
}

type nopRecorder struct{}

func (nopRecorder) ObserveRefresh(time.Duration, error) {}
func (nopRecorder) SetPanelRecords(string, int)         {}
func (nopRecorder) StaleDiscarded()                     {}
