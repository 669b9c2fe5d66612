package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cspnonce/internal/core"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(r.URL.Scheme))
})

func TestTrustedProxy(t *testing.T) {
	t.Parallel()
	h := TrustedProxy([]string{"10.0.0.0/8", "127.0.0.1", "::1", "garbage"})(okHandler)

	tests := []struct {
		name       string
		remote     string
		proto      string
		wantStatus int
		wantScheme string
	}{
		{"cidr member", "10.1.2.3:5555", "", http.StatusOK, "http"},
		{"single ipv4", "127.0.0.1:80", "https", http.StatusOK, "https"},
		{"single ipv6", "[::1]:80", "HTTPS", http.StatusOK, "https"},
		{"untrusted", "192.168.1.1:80", "", http.StatusForbidden, ""},
		{"unparsable", "nonsense", "", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantScheme, w.Body.String())
			}
		})
	}
}

func TestSecureHeaders(t *testing.T) {
	t.Parallel()
	h := SecureHeaders(false, false)(okHandler)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

// Тест меняет глобальный логгер, поэтому без t.Parallel.
func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	core.InitLogger(&buf)
	t.Cleanup(core.Close)

	h := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pot", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "http request", entry["message"])
	assert.Equal(t, "/pot", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
	assert.EqualValues(t, 3, entry["bytes"])
}

func TestDerive32(t *testing.T) {
	t.Parallel()
	assert.Len(t, derive32("secret"), 32)
	assert.Equal(t, derive32("secret"), derive32("secret"))
	assert.NotEqual(t, derive32("secret"), derive32("other"))
}
