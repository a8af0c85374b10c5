package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/creditintel/internal/api"
	"github.com/TobiSchelling/creditintel/internal/dashboard"
	"github.com/TobiSchelling/creditintel/internal/display"
	"github.com/TobiSchelling/creditintel/internal/preview"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Page auto-refresh intervals in seconds.
const (
	idleRefreshSeconds = 30
	busyRefreshSeconds = 2
)

const upstreamProbeTimeout = 3 * time.Second

// Dashboard is the state the pages render and the selection they change.
type Dashboard interface {
	View() dashboard.View
	Select(issuerID int64) error
}

// Previewer produces readable article previews.
type Previewer interface {
	Get(ctx context.Context, rawURL string) (*preview.Preview, error)
}

// HealthChecker probes the upstream API.
type HealthChecker interface {
	Health(ctx context.Context) (*api.Health, error)
}

// Options wires optional collaborators. Nil fields disable the feature.
type Options struct {
	Preview  Previewer
	Upstream HealthChecker
	Metrics  http.Handler
	Logger   *slog.Logger
}

// Server is the HTTP server for the dashboard.
type Server struct {
	dash   Dashboard
	opts   Options
	logger *slog.Logger
	pages  map[string]*template.Template
	mux    *http.ServeMux
}

// New creates a new Server.
func New(dash Dashboard, opts Options) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":          renderMarkdown,
		"scoreColor":        func(v float64) string { return display.ScoreTier(v).Color() },
		"sentimentColor":    func(v *float64) string { return display.SentimentTier(v).Color() },
		"contributionTier":  display.ContributionTier,
		"contributionColor": func(v float64) string { return display.ContributionTier(v).Color() },
		"issuerColor":       display.IssuerColor,
		"formatScore":       display.FormatScore,
		"formatSentiment":   display.FormatSentiment,
		"formatWeight":      display.FormatWeight,
		"featureLabel":      display.FeatureLabel,
		"formatTime":        display.FormatTime,
		"previewBody":       func(p *preview.Preview) template.HTML { return template.HTML(p.HTML) }, //nolint: gosec
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so their "content" blocks don't collide.
	pageNames := []string{"dashboard.html", "preview.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{dash: dash, opts: opts, logger: logger, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("GET /{$}", s.handleDashboard)
	s.mux.HandleFunc("POST /select/{id}", s.handleSelect)
	s.mux.HandleFunc("GET /events/{id}/preview", s.handlePreview)
	s.mux.HandleFunc("GET /api/view", s.handleViewJSON)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.opts.Metrics != nil {
		s.mux.Handle("GET /metrics", s.opts.Metrics)
	}
}

type dashboardPage struct {
	dashboard.View
	RefreshSeconds int
	PreviewEnabled bool
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v := s.dash.View()
	page := dashboardPage{
		View:           v,
		RefreshSeconds: idleRefreshSeconds,
		PreviewEnabled: s.opts.Preview != nil,
	}
	if v.Busy() {
		page.RefreshSeconds = busyRefreshSeconds
	}
	s.render(w, "dashboard.html", http.StatusOK, page)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid issuer id", http.StatusBadRequest)
		return
	}

	if err := s.dash.Select(id); err != nil {
		if errors.Is(err, dashboard.ErrUnknownIssuer) {
			http.Error(w, "unknown issuer", http.StatusNotFound)
			return
		}
		s.logger.Error("selecting issuer", "issuer_id", id, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/#detail", http.StatusSeeOther)
}

type previewPage struct {
	Event   api.Event
	Preview *preview.Preview
	Err     string
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.opts.Preview == nil {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	event, ok := findEvent(s.dash.View().Events.Items, id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	page := previewPage{Event: event}
	status := http.StatusOK
	p, err := s.opts.Preview.Get(r.Context(), event.URL)
	if err != nil {
		s.logger.Warn("event preview failed", "event_id", id, "url", event.URL, "error", err)
		page.Err = err.Error()
		status = http.StatusBadGateway
	}
	page.Preview = p
	s.render(w, "preview.html", status, page)
}

func (s *Server) handleViewJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.View())
}

type healthReport struct {
	Status      string    `json:"status"`
	Loading     bool      `json:"loading"`
	CycleID     string    `json:"cycle_id,omitempty"`
	LastRefresh time.Time `json:"last_refresh"`
	LastError   string    `json:"last_error,omitempty"`
	Upstream    string    `json:"upstream,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	v := s.dash.View()
	report := healthReport{
		Status:      "ok",
		Loading:     v.Loading,
		CycleID:     v.CycleID,
		LastRefresh: v.LastRefresh,
		LastError:   v.LastError,
	}
	if s.opts.Upstream != nil {
		ctx, cancel := context.WithTimeout(r.Context(), upstreamProbeTimeout)
		h, err := s.opts.Upstream.Health(ctx)
		cancel()
		switch {
		case err != nil:
			report.Upstream = "unreachable: " + err.Error()
		case h.Status == "":
			report.Upstream = "unknown"
		default:
			report.Upstream = h.Status
		}
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) render(w http.ResponseWriter, name string, status int, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", "template", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error("rendering template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func findEvent(events []api.Event, id int64) (api.Event, bool) {
	for _, e := range events {
		if e.ID == id {
			return e, true
		}
	}
	return api.Event{}, false
}
