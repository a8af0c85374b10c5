package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/creditintel/internal/api"
)

// DetailView is a copy of the issuer drill-down state.
type DetailView struct {
	Issuer     api.Issuer `json:"issuer"`
	State      State      `json:"state"`
	Err        string     `json:"error,omitempty"`
	Latest     *api.Score `json:"latest,omitempty"`
	Trend      *api.Trend `json:"trend,omitempty"`
	Generation uint64     `json:"generation"`
}

// Detail loads the latest score and trend of one issuer at a time. Each
// load is tagged with a generation; results of any load other than the
// most recent are dropped.
type Detail struct {
	source     Source
	trendLimit int
	rec        Recorder
	logger     *slog.Logger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu         sync.RWMutex
	generation uint64
	cancel     context.CancelFunc
	issuer     *api.Issuer
	state      State
	err        string
	latest     *api.Score
	trend      *api.Trend
}

func newDetail(source Source, trendLimit int, rec Recorder, logger *slog.Logger) *Detail {
	base, stop := context.WithCancel(context.Background())
	return &Detail{
		source:     source,
		trendLimit: trendLimit,
		rec:        rec,
		logger:     logger,
		base:       base,
		stop:       stop,
	}
}

// Load resets the view to loading for issuer and fetches its data in the
// background. The previous load, if still running, is cancelled.
func (d *Detail) Load(issuer api.Issuer) uint64 {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
	}
	d.generation++
	gen := d.generation
	ctx, cancel := context.WithCancel(d.base)
	d.cancel = cancel
	d.issuer = &issuer
	d.state = StateLoading
	d.err = ""
	d.latest = nil
	d.trend = nil
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		d.fetch(ctx, gen, issuer.ID)
	}()
	return gen
}

func (d *Detail) fetch(ctx context.Context, gen uint64, issuerID int64) {
	var (
		latest []api.Score
		trend  *api.Trend
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		latest, err = d.source.ListScores(gctx, api.ScoreQuery{IssuerID: issuerID, Limit: 1})
		return err
	})
	g.Go(func() error {
		var err error
		trend, err = d.source.ScoreTrend(gctx, issuerID, d.trendLimit)
		return err
	})
	err := g.Wait()

	d.apply(gen, issuerID, latest, trend, err)
}

func (d *Detail) apply(gen uint64, issuerID int64, latest []api.Score, trend *api.Trend, err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.generation {
		d.rec.StaleDiscarded()
		d.logger.Debug("discarding stale issuer detail", "issuer_id", issuerID, "generation", gen, "current", d.generation)
		return false
	}

	if err != nil {
		d.state = StateFailed
		d.err = err.Error()
		d.logger.Warn("issuer detail fetch failed", "issuer_id", issuerID, "error", err)
		return true
	}

	if len(latest) > 0 {
		l := latest[0]
		d.latest = &l
	}
	d.trend = trend

	if d.latest == nil && (trend == nil || len(trend.Scores) == 0) {
		d.state = StateEmpty
	} else {
		d.state = StateLoaded
	}
	return true
}

// View returns a copy of the current detail state, or nil if no issuer has
// been loaded.
func (d *Detail) View() *DetailView {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.issuer == nil {
		return nil
	}
	return &DetailView{
		Issuer:     *d.issuer,
		State:      d.state,
		Err:        d.err,
		Latest:     d.latest,
		Trend:      d.trend,
		Generation: d.generation,
	}
}

// Wait blocks until every started load has finished.
func (d *Detail) Wait() {
	d.wg.Wait()
}

// Close cancels in-flight loads and waits for them.
func (d *Detail) Close() {
	d.stop()
	d.wg.Wait()
}
