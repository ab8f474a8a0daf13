package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"stk-crm/internal/auth"
	"stk-crm/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(GetPrincipal(r).Username))
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenService("secret", time.Hour, 24*time.Hour)
	p := auth.Principal{UserID: 3, Username: "TL-PAL-001", Role: models.RoleTeamLead, Store: "Palakkad", Table: models.TableTeamLeads}
	access, err := tokens.IssueAccess(p)
	require.NoError(t, err)
	refresh, _, err := tokens.IssueRefresh(p)
	require.NoError(t, err)

	h := RequireAuth(okHandler, tokens)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"access token", "Bearer " + access, http.StatusOK},
		{"lowercase scheme", "bearer " + access, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "TL-PAL-001", rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"detail"`)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewTokenService("secret", time.Hour, 24*time.Hour)
	se, err := tokens.IssueAccess(auth.Principal{UserID: 1, Username: "SE-PLK-001", Role: models.RoleSalesExecutive})
	require.NoError(t, err)
	dir, err := tokens.IssueAccess(auth.Principal{UserID: 2, Username: "boss", Role: models.RoleDirector})
	require.NoError(t, err)

	h := RequireRole([]string{models.RoleDirector}, tokens)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/director/stats", nil)
	req.Header.Set("Authorization", "Bearer "+se)
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/director/stats", nil)
	req.Header.Set("Authorization", "Bearer "+dir)
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(2, false)
	h := limiter.Limit(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1235"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1236"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1234"), "buckets are per IP")
}

func TestIPRateLimiterIgnoresForwardedForByDefault(t *testing.T) {
	limiter := NewIPRateLimiter(3, false)
	h := limiter.Limit(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}

	assert.Equal(t, 3, allowed)
	assert.Len(t, limiter.visitors, 1)
}

func TestIPRateLimiterDropsIdleBuckets(t *testing.T) {
	now := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(1, false)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 20; i++ {
		limiter.Allow(fmt.Sprintf("10.0.1.%d", i))
	}
	require.Len(t, limiter.visitors, 20)
	assert.False(t, limiter.Allow("10.0.1.0"))

	now = now.Add(limiterIdleTTL)
	assert.True(t, limiter.Allow("10.0.2.1"))
	assert.Len(t, limiter.visitors, 1, "idle buckets are swept")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:5555"
	assert.Equal(t, "192.168.1.5", clientIP(req, false))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "192.168.1.5", clientIP(req, false))
	assert.Equal(t, "203.0.113.9", clientIP(req, true))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/leads/follow-up-leads", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request", entry.Message)
	assert.Equal(t, int64(http.StatusTeapot), entry.ContextMap()["status"])
	assert.Equal(t, "/leads/follow-up-leads", entry.ContextMap()["path"])
}

func TestRequestLoggerGeneratesID(t *testing.T) {
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestRecover(t *testing.T) {
	h := Recover(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
