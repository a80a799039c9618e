package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/vidsync/internal/server/handlers"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, setupTestLogger())
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("user1"), "request %d within limit", i+1)
	}
	assert.False(t, rl.Allow("user1"), "request above limit")

	// Лимит поактерный: другой ключ не затронут
	assert.True(t, rl.Allow("user2"))
}

func TestRateLimiter_RefillsAfterWindow(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Millisecond, setupTestLogger())
	defer rl.Stop()

	assert.True(t, rl.Allow("user1"))
	assert.False(t, rl.Allow("user1"))

	time.Sleep(15 * time.Millisecond)
	assert.True(t, rl.Allow("user1"))
}

func TestRateLimitMiddleware_KeysByActor(t *testing.T) {
	mw := RateLimitMiddleware(1, time.Minute, setupTestLogger())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest := func(actorID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/e1", nil)
		req = req.WithContext(handlers.WithActorID(req.Context(), actorID))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, doRequest("user1"))
	assert.Equal(t, http.StatusTooManyRequests, doRequest("user1"))

	// Другой актор за тем же адресом не ограничен
	assert.Equal(t, http.StatusOK, doRequest("user2"))
}

func TestRateLimitMiddleware_FallsBackToIP(t *testing.T) {
	mw := RateLimitMiddleware(1, time.Minute, setupTestLogger())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "x-forwarded-for single",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4"},
			want:    "1.2.3.4",
		},
		{
			name:    "x-forwarded-for list takes first",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"},
			want:    "1.2.3.4",
		},
		{
			name:    "x-real-ip",
			headers: map[string]string{"X-Real-IP": "9.8.7.6"},
			want:    "9.8.7.6",
		},
		{
			name:    "remote addr fallback",
			headers: nil,
			want:    "192.0.2.1:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}
