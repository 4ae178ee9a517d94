package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: map[string]int64{}}
}

func (c *memoryCounter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if c.err != nil {
		return false, 0, c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/login",
		strings.NewReader(`{"email":"`+email+`","password":"x"}`))
	req.RemoteAddr = remote
	return req
}

func TestLoginThrottlePreservesBody(t *testing.T) {
	throttle := LoginThrottle{Window: time.Minute, PerIP: 5, PerAccount: 5}
	var seen string
	h := throttle.Handler(newMemoryCounter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		seen = string(raw)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest("ops@pataamiga.mx", "10.0.0.1:4000"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, seen, `"email":"ops@pataamiga.mx"`)
}

func TestLoginThrottleAccountLimitIgnoresCaseAndIP(t *testing.T) {
	throttle := LoginThrottle{Window: time.Minute, PerAccount: 2}
	h := throttle.Handler(newMemoryCounter(), nil)(okHandler())

	attempts := []struct{ email, remote string }{
		{"ops@pataamiga.mx", "10.0.0.1:4000"},
		{"OPS@pataamiga.mx", "10.0.0.2:4000"},
		{" ops@PataAmiga.mx ", "10.0.0.3:4000"},
	}
	codes := make([]int, 0, len(attempts))
	for _, a := range attempts {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, loginRequest(a.email, a.remote))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(pkgerrors.CodeRateLimit), body.Error.Code)
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestLoginThrottleIPLimit(t *testing.T) {
	throttle := LoginThrottle{Window: time.Minute, PerIP: 1}
	h := throttle.Handler(newMemoryCounter(), nil)(okHandler())

	first := httptest.NewRecorder()
	h.ServeHTTP(first, loginRequest("a@pataamiga.mx", "10.0.0.9:1"))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, loginRequest("b@pataamiga.mx", "10.0.0.9:2"))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestLoginThrottleCounterFailure(t *testing.T) {
	counter := newMemoryCounter()
	counter.err = errors.New("redis down")
	throttle := LoginThrottle{Window: time.Minute, PerIP: 3}
	h := throttle.Handler(counter, nil)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest("a@pataamiga.mx", "10.0.0.9:1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLoginThrottleDisabled(t *testing.T) {
	h := LoginThrottle{}.Handler(newMemoryCounter(), nil)(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest("a@pataamiga.mx", "10.0.0.9:1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
