package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paragraph = "Apple reported quarterly revenue well ahead of analyst expectations, " +
	"driven by strong services growth and resilient demand for its flagship devices. " +
	"Management raised guidance for the coming quarter and announced an expanded buyback program."

func articlePage() string {
	var b strings.Builder
	b.WriteString("<html><head><title>Apple beats estimates</title></head><body>")
	b.WriteString("<nav><a href=\"/\">Home</a></nav><article><h1>Apple beats estimates</h1>")
	for range 6 {
		b.WriteString("<p>" + paragraph + "</p>")
	}
	b.WriteString("<script>alert('x')</script></article></body></html>")
	return b.String()
}

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(articlePage()))
	})
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>hi</p></body></html>"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := New(5*time.Second, 8, nil)
	require.NoError(t, err)
	return f
}

func TestGetExtractsArticle(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	f := newTestFetcher(t)

	p, err := f.Get(context.Background(), srv.URL+"/article")
	require.NoError(t, err)

	assert.Contains(t, p.Title, "Apple beats estimates")
	assert.Contains(t, p.Markdown, "resilient demand")
	assert.Contains(t, p.HTML, "<p>")
	assert.NotContains(t, p.HTML, "<script")
	assert.False(t, p.FetchedAt.IsZero())
}

func TestGetCachesSuccessfulPreviews(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	f := newTestFetcher(t)

	first, err := f.Get(context.Background(), srv.URL+"/article")
	require.NoError(t, err)
	second, err := f.Get(context.Background(), srv.URL+"/article")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, f.Len())
}

func TestGetRejectsUnsupportedURLs(t *testing.T) {
	f := newTestFetcher(t)
	for _, raw := range []string{"", "ftp://example.com/a", "/relative/path", "javascript:alert(1)"} {
		_, err := f.Get(context.Background(), raw)
		assert.ErrorIs(t, err, ErrUnsupportedURL, raw)
	}
}

func TestGetReportsHTTPErrors(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	f := newTestFetcher(t)

	_, err := f.Get(context.Background(), srv.URL+"/gone")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, 0, f.Len())
}

func TestGetShortPageHasNoContent(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, &hits)
	f := newTestFetcher(t)

	_, err := f.Get(context.Background(), srv.URL+"/short")
	assert.ErrorIs(t, err, ErrNoContent)
}
