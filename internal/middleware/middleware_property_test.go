package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/quick"
	"time"
)

// For any request with an Origin header, CORS should set
// Access-Control-Allow-Origin only when Origin matches the request Host,
// and OPTIONS requests should get a 204.
func TestPropertyCORSSameOriginPolicy(t *testing.T) {
	mw := CORS()
	handler := mw(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	f := func(host string, matchOrigin bool, useOptions bool) bool {
		safeHost := strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.' || r == '-' {
				return r
			}
			return -1
		}, strings.ToLower(host))
		if safeHost == "" {
			safeHost = "example.com"
		}

		method := http.MethodGet
		if useOptions {
			method = http.MethodOptions
		}

		req := httptest.NewRequest(method, "/", nil)
		req.Host = safeHost

		var origin string
		if matchOrigin {
			origin = "http://" + safeHost
		} else {
			origin = "http://evil-" + safeHost + ".attacker.com"
		}
		req.Header.Set("Origin", origin)

		rec := httptest.NewRecorder()
		handler(rec, req)

		acao := rec.Header().Get("Access-Control-Allow-Origin")

		if matchOrigin && acao != origin {
			t.Logf("matching origin %q should set ACAO, got %q", origin, acao)
			return false
		}
		if !matchOrigin && acao != "" {
			t.Logf("non-matching origin %q should not set ACAO, got %q", origin, acao)
			return false
		}
		if useOptions && rec.Code != http.StatusNoContent {
			t.Logf("OPTIONS request should return 204, got %d", rec.Code)
			return false
		}
		return true
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 100}); err != nil {
		t.Error(err)
	}
}

// For any limit N and a run of N+1 requests from the same IP within the
// window, the first N are allowed and the (N+1)th is rejected.
func TestPropertyRateLimiterCorrectRejection(t *testing.T) {
	f := func(seed uint8) bool {
		limit := int(seed%20) + 1
		ip := fmt.Sprintf("10.0.%d.%d", seed/16, seed%16)

		rl := &RateLimiter{
			requests: make(map[string][]time.Time),
			limit:    limit,
			window:   1 * time.Minute,
		}

		for i := 0; i < limit; i++ {
			if !rl.Allow(ip) {
				t.Logf("request %d of %d should be allowed for ip=%s", i+1, limit, ip)
				return false
			}
		}
		if rl.Allow(ip) {
			t.Logf("request %d should be rejected (limit=%d) for ip=%s", limit+1, limit, ip)
			return false
		}
		return true
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 100}); err != nil {
		t.Error(err)
	}
}

func TestPropertyRateLimiterMiddleware429(t *testing.T) {
	f := func(seed uint8) bool {
		limit := int(seed%10) + 1
		ip := fmt.Sprintf("192.168.%d.%d", seed/16, seed%16)

		rl := &RateLimiter{
			requests: make(map[string][]time.Time),
			limit:    limit,
			window:   1 * time.Minute,
		}

		handler := rl.Limit()(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		for i := 0; i < limit; i++ {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = ip + ":12345"
			rec := httptest.NewRecorder()
			handler(rec, req)
			if rec.Code != http.StatusOK {
				t.Logf("request %d: expected 200, got %d", i+1, rec.Code)
				return false
			}
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":12345"
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusTooManyRequests {
			t.Logf("request %d: expected 429, got %d", limit+1, rec.Code)
			return false
		}
		return true
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 100}); err != nil {
		t.Error(err)
	}
}

// For any list of middlewares [m1..mn], Chain(m1..mn) executes in onion
// order: m1 -> ... -> mn -> handler -> mn -> ... -> m1.
func TestPropertyMiddlewareChainExecutionOrder(t *testing.T) {
	f := func(n uint8) bool {
		count := int(n%10) + 1
		var order []string

		middlewares := make([]Middleware, count)
		for i := 0; i < count; i++ {
			idx := i
			middlewares[idx] = func(next http.HandlerFunc) http.HandlerFunc {
				return func(w http.ResponseWriter, r *http.Request) {
					order = append(order, fmt.Sprintf("pre-%d", idx))
					next(w, r)
					order = append(order, fmt.Sprintf("post-%d", idx))
				}
			}
		}

		chained := Chain(middlewares...)(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		})

		order = nil
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		chained(rec, req)

		expectedLen := 2*count + 1
		if len(order) != expectedLen {
			t.Logf("expected %d entries, got %d: %v", expectedLen, len(order), order)
			return false
		}
		for i := 0; i < count; i++ {
			expected := fmt.Sprintf("pre-%d", i)
			if order[i] != expected {
				t.Logf("position %d: expected %q, got %q", i, expected, order[i])
				return false
			}
		}
		if order[count] != "handler" {
			t.Logf("position %d: expected 'handler', got %q", count, order[count])
			return false
		}
		for i := 0; i < count; i++ {
			expected := fmt.Sprintf("post-%d", count-1-i)
			if order[count+1+i] != expected {
				t.Logf("position %d: expected %q, got %q", count+1+i, expected, order[count+1+i])
				return false
			}
		}
		return true
	}

	if err := quick.Check(f, &quick.Config{MaxCount: 100}); err != nil {
		t.Error(err)
	}
}
