package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/creditintel/internal/api"
	"github.com/TobiSchelling/creditintel/internal/refresh"
)

// ErrUnknownIssuer is returned when selecting an issuer that is not in the
// current issuer list.
var ErrUnknownIssuer = errors.New("unknown issuer")

// Default request sizes.
const (
	DefaultScoresLimit = 50
	DefaultEventsLimit = 50
	DefaultAlertsLimit = 20
	DefaultTrendLimit  = 200
)

// Options tunes a Dashboard. Zero values fall back to the defaults.
type Options struct {
	ScoresLimit int
	EventsLimit int
	AlertsLimit int
	TrendLimit  int
	Recorder    Recorder
	Logger      *slog.Logger
}

// Dashboard holds the periodically refreshed feeds and the issuer
// selection. It is safe for concurrent use.
type Dashboard struct {
	source Source
	opts   Options
	rec    Recorder
	logger *slog.Logger
	now    func() time.Time
	detail *Detail

	mu          sync.RWMutex
	settled     bool
	cycleID     string
	lastRefresh time.Time
	lastErr     string
	issuers     Panel[api.Issuer]
	scores      Panel[api.Score]
	events      Panel[api.Event]
	alerts      Panel[api.Alert]
	selected    *api.Issuer
}

// New creates a dashboard reading from source. Nothing is fetched until
// Refresh or Run is called.
func New(source Source, opts Options) *Dashboard {
	if opts.ScoresLimit <= 0 {
		opts.ScoresLimit = DefaultScoresLimit
	}
	if opts.EventsLimit <= 0 {
		opts.EventsLimit = DefaultEventsLimit
	}
	if opts.AlertsLimit <= 0 {
		opts.AlertsLimit = DefaultAlertsLimit
	}
	if opts.TrendLimit <= 0 {
		opts.TrendLimit = DefaultTrendLimit
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dashboard{
		source:  source,
		opts:    opts,
		rec:     rec,
		logger:  logger,
		now:     time.Now,
		detail:  newDetail(source, opts.TrendLimit, rec, logger),
		issuers: newPanel[api.Issuer](),
		scores:  newPanel[api.Score](),
		events:  newPanel[api.Event](),
		alerts:  newPanel[api.Alert](),
	}
}

// Refresh fetches issuers, scores, events and alerts concurrently and
// applies all four results together once every request has settled. The
// returned error is the first fetch failure, if any; failed panels keep
// their previous records.
func (d *Dashboard) Refresh(ctx context.Context) error {
	cycle := uuid.NewString()
	start := d.now()

	var (
		issuers []api.Issuer
		scores  []api.Score
		events  []api.Event
		alerts  []api.Alert

		issuersErr, scoresErr, eventsErr, alertsErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		issuers, issuersErr = d.source.ListIssuers(ctx)
		return issuersErr
	})
	g.Go(func() error {
		scores, scoresErr = d.source.ListScores(ctx, api.ScoreQuery{Limit: d.opts.ScoresLimit})
		return scoresErr
	})
	g.Go(func() error {
		events, eventsErr = d.source.ListEvents(ctx, d.opts.EventsLimit)
		return eventsErr
	})
	g.Go(func() error {
		alerts, alertsErr = d.source.ListAlerts(ctx, d.opts.AlertsLimit)
		return alertsErr
	})
	err := g.Wait()

	now := d.now()
	d.mu.Lock()
	d.issuers.apply(issuers, issuersErr, now)
	d.scores.apply(scores, scoresErr, now)
	d.events.apply(events, eventsErr, now)
	d.alerts.apply(alerts, alertsErr, now)
	d.settled = true
	d.cycleID = cycle
	d.lastRefresh = now
	d.lastErr = ""
	if err != nil {
		d.lastErr = err.Error()
	}
	if d.selected != nil {
		if fresh, ok := findIssuer(d.issuers.Items, d.selected.ID); ok {
			d.selected = &fresh
		}
	}
	counts := map[string]int{
		"issuers": d.issuers.Count(),
		"scores":  d.scores.Count(),
		"events":  d.events.Count(),
		"alerts":  d.alerts.Count(),
	}
	d.mu.Unlock()

	elapsed := now.Sub(start)
	d.rec.ObserveRefresh(elapsed, err)
	for panel, n := range counts {
		d.rec.SetPanelRecords(panel, n)
	}

	logger := d.logger.With("cycle", cycle, "duration", elapsed.Round(time.Millisecond))
	for panel, perr := range map[string]error{
		"issuers": issuersErr, "scores": scoresErr, "events": eventsErr, "alerts": alertsErr,
	} {
		if perr != nil {
			logger.Warn("panel fetch failed", "panel", panel, "error", perr)
		}
	}
	logger.Info("dashboard refreshed",
		"issuers", counts["issuers"], "scores", counts["scores"],
		"events", counts["events"], "alerts", counts["alerts"],
		"ok", err == nil)

	return err
}

// Run refreshes immediately and then on the loop's schedule until ctx is
// cancelled. In-flight detail loads are cancelled on return.
func (d *Dashboard) Run(ctx context.Context, loop *refresh.Loop) error {
	defer d.detail.Close()
	return loop.Run(ctx, d.Refresh)
}

// Select makes issuerID the selected issuer and starts loading its
// detail. Selecting the already selected issuer is a no-op.
func (d *Dashboard) Select(issuerID int64) error {
	d.mu.Lock()
	issuer, ok := findIssuer(d.issuers.Items, issuerID)
	if !ok {
		d.mu.Unlock()
		return ErrUnknownIssuer
	}
	if d.selected != nil && d.selected.ID == issuerID {
		d.mu.Unlock()
		return nil
	}
	d.selected = &issuer
	d.mu.Unlock()

	gen := d.detail.Load(issuer)
	d.logger.Debug("issuer selected", "issuer_id", issuerID, "ticker", issuer.Ticker, "generation", gen)
	return nil
}

// Detail exposes the drill-down loader.
func (d *Dashboard) Detail() *Detail {
	return d.detail
}

// View returns a consistent copy of everything the page renders.
func (d *Dashboard) View() View {
	d.mu.RLock()
	v := View{
		Loading:     !d.settled,
		CycleID:     d.cycleID,
		LastRefresh: d.lastRefresh,
		LastError:   d.lastErr,
		Issuers:     d.issuers,
		Scores:      d.scores,
		Events:      d.events,
		Alerts:      d.alerts,
	}
	if d.selected != nil {
		sel := *d.selected
		v.Selected = &sel
	}
	d.mu.RUnlock()

	if v.Selected != nil {
		v.Detail = d.detail.View()
	}
	return v
}

func findIssuer(issuers []api.Issuer, id int64) (api.Issuer, bool) {
	for _, i := range issuers {
		if i.ID == id {
			return i, true
		}
	}
	return api.Issuer{}, false
}
