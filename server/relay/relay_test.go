package relay

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/uploads/ttd/a.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("\x89PNGDATA"))
		case "/login":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html>login</html>"))
		case "/big.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, h http.Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/relay?"+query, nil))
	return rec
}

func TestRelay_PathLocator(t *testing.T) {
	srv := upstream(t)
	h, err := New(Options{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	rec := get(t, h, "path="+url.QueryEscape("uploads/ttd/a.png"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNGDATA", rec.Body.String())
}

func TestRelay_URLLocatorAllowList(t *testing.T) {
	srv := upstream(t)
	h, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	rec := get(t, h, "url="+url.QueryEscape(srv.URL+"/uploads/ttd/a.png"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "url="+url.QueryEscape("http://evil.example/x.png"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRelay_RejectsBadLocators(t *testing.T) {
	h, err := New(Options{BaseURL: "http://storage.local/"})
	require.NoError(t, err)
	for _, q := range []string{
		"",
		"path=" + url.QueryEscape("../etc/passwd"),
		"url=ftp%3A%2F%2Fstorage.local%2Fa.png",
		"url=http%3A%2F%2Fstorage.local%2Fa.png&path=a.png",
	} {
		rec := get(t, h, q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "query %q", q)
	}
}

func TestRelay_UpstreamFailures(t *testing.T) {
	srv := upstream(t)
	h, err := New(Options{BaseURL: srv.URL, MaxBytes: 32})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, get(t, h, "path=missing.png").Code)
	assert.Equal(t, http.StatusBadGateway, get(t, h, "path=login").Code)
	assert.Equal(t, http.StatusBadGateway, get(t, h, "path=big.png").Code)
}

func TestRelay_MethodNotAllowed(t *testing.T) {
	h, err := New(Options{})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/relay", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTarget_JoinsBasePath(t *testing.T) {
	h, err := New(Options{BaseURL: "https://cdn.example/storage/"})
	require.NoError(t, err)
	u, err := h.Target(url.Values{"path": {"/uploads//ttd/a.png"}})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/storage/uploads/ttd/a.png", u.String())
}

func TestRelay_RedirectsStayOnAllowedHosts(t *testing.T) {
	var outsideHits int
	outside := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outsideHits++
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNGOUTSIDE"))
	}))
	t.Cleanup(outside.Close)

	srv := upstream(t)
	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/away.png":
			http.Redirect(w, r, outside.URL+"/x.png", http.StatusFound)
		case "/moved.png":
			http.Redirect(w, r, srv.URL+"/uploads/ttd/a.png", http.StatusMovedPermanently)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(front.Close)

	h, err := New(Options{BaseURL: front.URL, AllowedHosts: []string{strings.TrimPrefix(srv.URL, "http://")}})
	require.NoError(t, err)

	rec := get(t, h, "path=away.png")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, outsideHits)

	rec = get(t, h, "path=moved.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "\x89PNGDATA", rec.Body.String())
}
