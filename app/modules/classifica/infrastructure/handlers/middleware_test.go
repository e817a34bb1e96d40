package classificahandlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 2)
	handler := RateLimitMiddleware(limiter)(okHandler())

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1235"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1236"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1234"), "limits are per IP")
}

func TestIPRateLimiter_PrunesIdleEntries(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	start := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return start }

	for i := 0; i <= cleanupThreshold; i++ {
		limiter.GetLimiter(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	assert.Equal(t, cleanupThreshold+1, limiter.Len())

	limiter.now = func() time.Time { return start.Add(maxIdleAge + time.Minute) }
	limiter.GetLimiter("192.168.0.1")
	assert.Equal(t, 1, limiter.Len())
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://club.example.org"})(okHandler())

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{name: "allowed origin", method: http.MethodPost, origin: "https://club.example.org", wantStatus: http.StatusOK, wantAllow: "https://club.example.org"},
		{name: "foreign origin", method: http.MethodPost, origin: "https://evil.example.com", wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "https://club.example.org", wantStatus: http.StatusNoContent, wantAllow: "https://club.example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantAllow, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCorrelationMiddleware(t *testing.T) {
	var seen string
	handler := middleware.RequestID(CorrelationMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.CorrelationID(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationHeader, "corr-7")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "corr-7", seen)
	assert.Equal(t, "corr-7", rr.Header().Get(CorrelationHeader))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "corr-7", seen)
	assert.Equal(t, seen, rr.Header().Get(CorrelationHeader))
}
