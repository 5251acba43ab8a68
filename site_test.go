package glubblog

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lemmi/glubblog/backend"
	"github.com/lemmi/glubblog/cache"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSite(t *testing.T, b backend.Backend) http.Handler {
	t.Helper()
	return newTestSiteSecret(t, b, "")
}

func newTestSiteSecret(t *testing.T, b backend.Backend, secret string) http.Handler {
	t.Helper()
	v := NewRevalidator(newTestPager(t, b), cache.NewMemory(0), time.Minute)
	return NewSite(v, DefaultSite(), secret).Router()
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSitePost(t *testing.T) {
	h := newTestSite(t, newFakeBackend(map[string]*backend.Post{"hello": helloPost()}))

	rr := serve(h, http.MethodGet, "/blog/hello")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "s-maxage=60, stale-while-revalidate", rr.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rr.Header().Get("Last-Modified"))
	assert.Contains(t, rr.Body.String(), "Hello world")
}

func TestSitePostNotModified(t *testing.T) {
	h := newTestSite(t, newFakeBackend(map[string]*backend.Post{"hello": helloPost()}))

	rr := serve(h, http.MethodGet, "/blog/hello")
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/blog/hello", nil)
	req.Header.Set("If-Modified-Since", rr.Header().Get("Last-Modified"))
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req)
	assert.Equal(t, http.StatusNotModified, rr2.Code)
}

func TestSitePostNotFound(t *testing.T) {
	h := newTestSite(t, newFakeBackend(map[string]*backend.Post{"hello": helloPost()}))

	rr := serve(h, http.MethodGet, "/blog/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Post not found")
	assert.NotContains(t, rr.Body.String(), "<article")
}

func TestSitePostBackendError(t *testing.T) {
	b := newFakeBackend(nil)
	b.setErr(errors.New("backend down"))
	h := newTestSite(t, b)

	rr := serve(h, http.MethodGet, "/blog/hello")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "backend down")
}

func TestSiteMethods(t *testing.T) {
	h := newTestSite(t, newFakeBackend(map[string]*backend.Post{"hello": helloPost()}))

	assert.Equal(t, http.StatusOK, serve(h, http.MethodHead, "/blog/hello").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, http.MethodPost, "/blog/hello").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/blog/a/b").Code)
}

func TestSiteStatic(t *testing.T) {
	h := newTestSite(t, newFakeBackend(nil))

	rr := serve(h, http.MethodGet, "/robots.txt")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "User-agent")

	rr = serve(h, http.MethodGet, "/static/style.css")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "max-age=3600", rr.Header().Get("Cache-Control"))

	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/static/").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/static/missing.js").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/favicon.ico").Code)
}

func TestSitePostETag(t *testing.T) {
	b := cidBackend{newFakeBackend(map[string]*backend.Post{"hello": helloPost()}), "3f2a9c1"}
	h := newTestSite(t, b)

	rr := serve(h, http.MethodGet, "/blog/hello")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `"3f2a9c1"`, rr.Header().Get("ETag"))

	req := httptest.NewRequest(http.MethodGet, "/blog/hello", nil)
	req.Header.Set("If-None-Match", `"3f2a9c1"`)
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, req)
	assert.Equal(t, http.StatusNotModified, rr2.Code)

	rr = serve(newTestSite(t, newFakeBackend(map[string]*backend.Post{"hello": helloPost()})), http.MethodGet, "/blog/hello")
	assert.Empty(t, rr.Header().Get("ETag"))
}

func TestSiteRevalidate(t *testing.T) {
	b := newFakeBackend(map[string]*backend.Post{"hello": helloPost()})
	h := newTestSiteSecret(t, b, "s3cret")

	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/blog/hello").Code)
	updated := helloPost()
	updated.Title = "Updated title"
	b.setPost("hello", updated)

	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodPost, "/api/revalidate/hello?secret=wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodPost, "/api/revalidate/hello").Code)
	assert.Contains(t, serve(h, http.MethodGet, "/blog/hello").Body.String(), "Hello world")

	rr := serve(h, http.MethodPost, "/api/revalidate/hello?secret=s3cret")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"revalidated":true,"slug":"hello"}`, rr.Body.String())
	assert.Contains(t, serve(h, http.MethodGet, "/blog/hello").Body.String(), "Updated title")
}

func TestSiteRevalidateDisabled(t *testing.T) {
	h := newTestSite(t, newFakeBackend(nil))
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodPost, "/api/revalidate/hello?secret=").Code)
}
