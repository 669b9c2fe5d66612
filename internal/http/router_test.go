package httpx

import (
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cspnonce/internal/core"
	"cspnonce/internal/lineage"
	"cspnonce/internal/metrics"
	"cspnonce/internal/nonce"
	"cspnonce/internal/view"
)

var (
	scriptNonceRe = regexp.MustCompile(`<script nonce="([^"]+)">`)
	styleNonceRe  = regexp.MustCompile(`<style nonce="([^"]+)">`)
	tokenRe       = regexp.MustCompile(`^[A-Za-z0-9+/]{12}$`)
	csrfFieldRe   = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)
)

func testConfig() core.Config {
	return core.Config{
		AppName:        "cspnonce",
		Addr:           ":0",
		Env:            "dev",
		CSRFKey:        "test-secret-test-secret-test-secret",
		RequestTimeout: 5 * time.Second,
		ErrorDocuments: map[int]string{
			http.StatusForbidden:           "/errors/403",
			http.StatusNotFound:            "/errors/404",
			http.StatusInternalServerError: "/errors/500",
		},
		RewriteRules: []core.RewriteRule{
			{Pattern: regexp.MustCompile(`^/old/(.*)$`), Target: "/$1"},
		},
		MaxInternalRedirects: 10,
	}
}

func newTestRouter(t *testing.T, cfg core.Config, minter lineage.Minter) (http.Handler, *metrics.Metrics) {
	t.Helper()
	tpl, err := view.New()
	require.NoError(t, err)
	m := metrics.New()
	return NewRouter(cfg, Deps{Templates: tpl, Minter: minter, Metrics: m}), m
}

func pageNonce(t *testing.T, body string) string {
	t.Helper()
	sm := scriptNonceRe.FindStringSubmatch(body)
	require.Len(t, sm, 2, "script nonce not found")
	st := styleNonceRe.FindStringSubmatch(body)
	require.Len(t, st, 2, "style nonce not found")
	require.Equal(t, sm[1], st[1])
	// html/template экранирует '+' в атрибутах
	return html.UnescapeString(sm[1])
}

func TestRouter_HomeHasNonce(t *testing.T) {
	t.Parallel()
	h, m := newTestRouter(t, testConfig(), nonce.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, tokenRe, pageNonce(t, w.Body.String()))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.NonceOutcomes.WithLabelValues("minted")), 0)
}

func TestRouter_NoncePerClientRequest(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t, testConfig(), nonce.Default())

	seen := map[string]bool{}
	for range 20 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/about", nil))
		require.Equal(t, http.StatusOK, w.Code)
		n := pageNonce(t, w.Body.String())
		assert.False(t, seen[n])
		seen[n] = true
	}
}

func TestRouter_NotFoundUsesErrorDocument(t *testing.T) {
	t.Parallel()
	h, m := newTestRouter(t, testConfig(), nonce.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "<title>Not Found</title>")
	assert.Contains(t, body, "<code>/nope</code>")
	assert.Regexp(t, tokenRe, pageNonce(t, body))

	assert.InDelta(t, 1, testutil.ToFloat64(m.NonceOutcomes.WithLabelValues("minted")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NonceOutcomes.WithLabelValues("reused")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.InternalRedirects.WithLabelValues("error_document")), 0)
}

type debugEnv struct {
	URI          string            `json:"uri"`
	Continuation bool              `json:"continuation"`
	Depth        int               `json:"depth"`
	Keys         []string          `json:"keys"`
	Env          map[string]string `json:"env"`
}

func getDebugEnv(t *testing.T, h http.Handler, path string) debugEnv {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got debugEnv
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

func TestRouter_RewriteSharesNonce(t *testing.T) {
	t.Parallel()
	h, m := newTestRouter(t, testConfig(), nonce.Default())

	got := getDebugEnv(t, h, "/old/debug/env")

	assert.True(t, got.Continuation)
	assert.Equal(t, 1, got.Depth)
	assert.Equal(t, "/debug/env", got.URI)
	assert.Equal(t, "/old/debug/env", got.Env["REDIRECT_URL"])
	assert.Equal(t, []string{lineage.EnvKey, lineage.RedirectEnvKey, "REDIRECT_URL"}, got.Keys)
	assert.Regexp(t, tokenRe, got.Env[lineage.EnvKey])
	assert.Equal(t, got.Env[lineage.RedirectEnvKey], got.Env[lineage.EnvKey])
	assert.InDelta(t, 1, testutil.ToFloat64(m.InternalRedirects.WithLabelValues("rewrite")), 0)
}

func TestRouter_DirectRequestIsNotContinuation(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t, testConfig(), nonce.Default())

	got := getDebugEnv(t, h, "/debug/env")

	assert.False(t, got.Continuation)
	assert.Zero(t, got.Depth)
	assert.Regexp(t, tokenRe, got.Env[lineage.EnvKey])
	_, carried := got.Env[lineage.RedirectEnvKey]
	assert.False(t, carried)
}

func TestRouter_EntropyFailure(t *testing.T) {
	t.Parallel()
	failing := nonce.NewEncoder(nonce.SourceFunc(func([]byte) error {
		return errors.New("entropy pool gone")
	}))
	h, m := newTestRouter(t, testConfig(), failing)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "nonce=")
	assert.InDelta(t, 1, testutil.ToFloat64(m.NonceOutcomes.WithLabelValues("failed")), 0)

	got := getDebugEnv(t, h, "/debug/env")
	_, ok := got.Env[lineage.EnvKey]
	assert.False(t, ok)
}

func TestRouter_DebugHiddenInProd(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Env = "prod"
	h, _ := newTestRouter(t, cfg, nonce.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/env", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t, testConfig(), nonce.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_FormRejectsMissingCSRF(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t, testConfig(), nonce.Default())

	req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader("name=Ivan"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "<title>Forbidden</title>")
	pageNonce(t, w.Body.String())
}

func TestRouter_FormSubmit(t *testing.T) {
	t.Parallel()
	h, _ := newTestRouter(t, testConfig(), nonce.Default())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/form", nil))
	require.Equal(t, http.StatusOK, w.Code)
	m := csrfFieldRe.FindStringSubmatch(w.Body.String())
	require.Len(t, m, 2)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	post := func(form url.Values) *httptest.ResponseRecorder {
		form.Set("gorilla.csrf.Token", m[1])
		req := httptest.NewRequest(http.MethodPost, "/form", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	bad := post(url.Values{"name": {"I"}, "email": {"nope"}})
	assert.Equal(t, http.StatusUnprocessableEntity, bad.Code)
	assert.Contains(t, bad.Body.String(), "Введите корректный email")
	assert.Contains(t, bad.Body.String(), "Напишите сообщение")

	ok := post(url.Values{
		"name":    {"Ivan"},
		"email":   {"ivan@example.com"},
		"message": {"<b>hello</b>"},
	})
	assert.Equal(t, http.StatusSeeOther, ok.Code)
	assert.Equal(t, "/form?ok=1", ok.Header().Get("Location"))
}
