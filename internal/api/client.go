package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const userAgent = "creditintel/1.0 (dashboard)"

// Endpoint names used for request accounting.
const (
	EndpointIssuers = "issuers"
	EndpointScores  = "scores"
	EndpointTrend   = "trend"
	EndpointEvents  = "events"
	EndpointAlerts  = "alerts"
	EndpointHealth  = "health"
)

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d %s", e.Path, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// ScoreQuery filters a score listing. Zero values are omitted.
type ScoreQuery struct {
	IssuerID int64
	Limit    int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithObserver registers a callback invoked after every request with the
// endpoint name and the request's error (nil on success).
func WithObserver(fn func(endpoint string, err error)) Option {
	return func(c *Client) { c.observe = fn }
}

// Client reads issuers, scores, events and alerts from the Credit
// Intelligence API.
type Client struct {
	baseURL string
	client  *http.Client
	observe func(endpoint string, err error)
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListIssuers returns every issuer.
func (c *Client) ListIssuers(ctx context.Context) ([]Issuer, error) {
	var out []Issuer
	err := c.get(ctx, EndpointIssuers, "/v1/issuers/", nil, &out)
	return out, err
}

// ListScores returns scores, newest first.
func (c *Client) ListScores(ctx context.Context, q ScoreQuery) ([]Score, error) {
	params := url.Values{}
	if q.IssuerID > 0 {
		params.Set("issuer_id", strconv.FormatInt(q.IssuerID, 10))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var out []Score
	err := c.get(ctx, EndpointScores, "/v1/scores", params, &out)
	return out, err
}

// LatestScore returns the newest score for an issuer, or nil when the
// issuer has none.
func (c *Client) LatestScore(ctx context.Context, issuerID int64) (*Score, error) {
	scores, err := c.ListScores(ctx, ScoreQuery{IssuerID: issuerID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, nil
	}
	return &scores[0], nil
}

// ScoreTrend returns up to limit historical scores for an issuer.
func (c *Client) ScoreTrend(ctx context.Context, issuerID int64, limit int) (*Trend, error) {
	params := url.Values{"issuer_id": {strconv.FormatInt(issuerID, 10)}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var out Trend
	if err := c.get(ctx, EndpointTrend, "/v1/scores/trend", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvents returns news events, newest first.
func (c *Client) ListEvents(ctx context.Context, limit int) ([]Event, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var out []Event
	err := c.get(ctx, EndpointEvents, "/v1/events", params, &out)
	return out, err
}

// ListAlerts returns alerts, newest first.
func (c *Client) ListAlerts(ctx context.Context, limit int) ([]Alert, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var out []Alert
	err := c.get(ctx, EndpointAlerts, "/v1/alerts/", params, &out)
	return out, err
}

// Health probes the API's health route.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.get(ctx, EndpointHealth, "/health/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) (err error) {
	if c.observe != nil {
		defer func() { c.observe(endpoint, err) }()
	}

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
