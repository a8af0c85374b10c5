// Package preview turns the article behind a news event into a short,
// sanitized reading view.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	lru "github.com/hashicorp/golang-lru"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/sync/singleflight"
)

const (
	userAgent    = "creditintel/1.0 (event preview)"
	maxBodyBytes = 5 << 20
	maxRedirects = 10
	// minTextLength is the shortest extracted text treated as an article.
	minTextLength = 100
)

var (
	// ErrUnsupportedURL is returned for URLs that are not absolute http(s).
	ErrUnsupportedURL = errors.New("unsupported preview url")
	// ErrNoContent is returned when no readable article could be extracted.
	ErrNoContent = errors.New("no readable content")
)

// StatusError reports a non-success response from the article host.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetching %s: HTTP %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Preview is the readable form of one article.
type Preview struct {
	URL      string
	Title    string
	Byline   string
	SiteName string
	Markdown string
	// HTML is Markdown rendered with raw HTML suppressed.
	HTML      string
	FetchedAt time.Time
}

// Fetcher downloads and converts articles, caching successful results.
type Fetcher struct {
	client *http.Client
	conv   *md.Converter
	render goldmark.Markdown
	cache  *lru.Cache
	group  singleflight.Group
	logger *slog.Logger
}

// New creates a Fetcher. cacheSize bounds the number of cached previews.
func New(timeout time.Duration, cacheSize int, logger *slog.Logger) (*Fetcher, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if cacheSize <= 0 {
		cacheSize = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating preview cache: %w", err)
	}

	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		conv:   conv,
		render: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		cache:  cache,
		logger: logger,
	}, nil
}

// Get returns the preview for rawURL, from cache when available.
// Concurrent requests for the same URL share one download.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Preview, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}
	key := u.String()

	if v, ok := f.cache.Get(key); ok {
		return v.(*Preview), nil
	}

	v, err, _ := f.group.Do(key, func() (any, error) {
		p, err := f.fetch(ctx, u)
		if err != nil {
			return nil, err
		}
		f.cache.Add(key, p)
		return p, nil
	})
	if err != nil {
		f.logger.Debug("preview failed", "url", key, "error", err)
		return nil, err
	}
	return v.(*Preview), nil
}

// Len is the number of cached previews.
func (f *Fetcher) Len() int {
	return f.cache.Len()
}

func (f *Fetcher) fetch(ctx context.Context, u *url.URL) (*Preview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &StatusError{URL: u.String(), Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", u, err)
	}
	if len(strings.TrimSpace(article.TextContent)) < minTextLength {
		return nil, ErrNoContent
	}

	markdown, err := f.conv.ConvertString(article.Content)
	if err != nil {
		return nil, fmt.Errorf("converting %s: %w", u, err)
	}
	markdown = strings.TrimSpace(markdown)

	var buf bytes.Buffer
	if err := f.render.Convert([]byte(markdown), &buf); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", u, err)
	}

	return &Preview{
		URL:       u.String(),
		Title:     strings.TrimSpace(article.Title),
		Byline:    strings.TrimSpace(article.Byline),
		SiteName:  strings.TrimSpace(article.SiteName),
		Markdown:  markdown,
		HTML:      buf.String(),
		FetchedAt: time.Now(),
	}, nil
}
