package mw

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/banners/internal/auth"
	"github.com/MrSnakeDoc/banners/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitRejectsAfterBurst(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 6,
		Now:               func() time.Time { return now },
	})(ok)

	req := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/api/session", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		return r
	}

	assert.Equal(t, http.StatusNoContent, serve(h, req()).Code)
	rec := serve(h, req())
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(h, req())
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))

	var body rejection
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RateLimited", body.Kind)

	// Another client has its own bucket.
	other := req()
	other.RemoteAddr = "10.0.0.2:5555"
	assert.Equal(t, http.StatusNoContent, serve(h, other).Code)

	// One token is back after the refill interval.
	now = now.Add(10 * time.Second)
	assert.Equal(t, http.StatusNoContent, serve(h, req()).Code)
}

func TestLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLimiter(RateLimitConfig{IdleTTL: time.Minute, SweepInterval: time.Second, Now: func() time.Time { return now }})

	l.take("a", now)
	l.take("b", now)
	require.Equal(t, 2, l.size())

	// The next visit after the sweep interval drops idle clients.
	l.take("c", now.Add(2*time.Minute))
	assert.Equal(t, 1, l.size())
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"banners.example.com", "*.internal.lan"}, logger.NewNop())(ok)

	tests := []struct {
		host string
		want int
	}{
		{"banners.example.com", http.StatusNoContent},
		{"BANNERS.example.com:8080", http.StatusNoContent},
		{"a.internal.lan", http.StatusNoContent},
		{"internal.lan", http.StatusForbidden},
		{"evil.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/records", nil)
		r.Host = tt.host
		assert.Equal(t, tt.want, serve(h, r).Code, tt.host)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"192.168.1.0/24"}, true, logger.NewNop())(ok)

	r := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	r.RemoteAddr = "127.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "192.168.1.20, 10.0.0.1")
	assert.Equal(t, http.StatusNoContent, serve(h, r).Code)

	r.Header.Set("X-Forwarded-For", "8.8.8.8")
	assert.Equal(t, http.StatusForbidden, serve(h, r).Code)
}

func TestEmptyFiltersPassThrough(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusNoContent, serve(AllowOnlyCIDRS(nil, false, logger.NewNop())(ok), r).Code)
	assert.Equal(t, http.StatusNoContent, serve(EnforceHost(nil, logger.NewNop())(ok), r).Code)
	assert.Equal(t, http.StatusNoContent, serve(CORS(nil)(ok), r).Code)
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://admin.example.com"})(ok)

	r := httptest.NewRequest(http.MethodOptions, "/api/draft", nil)
	r.Header.Set("Origin", "https://admin.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := serve(h, r)
	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodGet, "/api/draft", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	rec = serve(h, r)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

type tokens map[string]string // credential -> subject

func (tk tokens) VerifyCredential(token string) (auth.Identity, error) {
	sub, ok := tk[token]
	if !ok {
		return auth.Identity{}, errors.New("unknown credential")
	}
	return auth.Identity{Subject: sub}, nil
}

func TestRequireSession(t *testing.T) {
	current := auth.Session{State: auth.StateAuthorized, Authorized: true, Identity: &auth.Identity{Subject: "u1"}}
	session := func() auth.Session { return current }
	h := RequireSession(tokens{"good": "u1", "other": "u2"}, session, logger.NewNop())(ok)

	req := func(cookie string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/records", nil)
		if cookie != "" {
			r.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookie})
		}
		return r
	}

	assert.Equal(t, http.StatusNoContent, serve(h, req("good")).Code)

	for _, cookie := range []string{"", "bad", "other"} {
		rec := serve(h, req(cookie))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, cookie)
		var body rejection
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "NotSignedIn", body.Kind)
	}

	// A valid credential is not enough once the session is no longer authorized.
	current = auth.Session{State: auth.StateSignedOut}
	assert.Equal(t, http.StatusUnauthorized, serve(h, req("good")).Code)

	noVerifier := RequireSession(nil, session, logger.NewNop())(ok)
	assert.Equal(t, http.StatusUnauthorized, serve(noVerifier, req("good")).Code)
}
