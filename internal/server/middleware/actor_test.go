package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vidsync/internal/server/handlers"
	"github.com/iudanet/vidsync/internal/server/jwt"
)

func setupTestLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelError,
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// echoActorHandler отвечает actor_id из контекста
func echoActorHandler(t *testing.T, wantActor string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID, ok := handlers.GetActorID(r.Context())
		require.True(t, ok)
		assert.Equal(t, wantActor, actorID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestActorMiddleware_ValidToken(t *testing.T) {
	svc := jwt.NewService("test-secret", time.Hour)
	token, _, err := svc.GenerateActorToken("user1")
	require.NoError(t, err)

	mw := ActorMiddleware(setupTestLogger(), svc)
	handler := mw(echoActorHandler(t, "user1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/e1", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestActorMiddleware_Rejects(t *testing.T) {
	svc := jwt.NewService("test-secret", time.Hour)
	other := jwt.NewService("other-secret", time.Hour)
	foreignToken, _, err := other.GenerateActorToken("user1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
	}{
		{name: "missing header", authHeader: ""},
		{name: "not bearer", authHeader: "Basic dXNlcjpwYXNz"},
		{name: "garbage token", authHeader: "Bearer not.a.token"},
		{name: "wrong secret", authHeader: "Bearer " + foreignToken},
	}

	mw := ActorMiddleware(setupTestLogger(), svc)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/e1", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestActorHeaderMiddleware(t *testing.T) {
	mw := ActorHeaderMiddleware(setupTestLogger())

	t.Run("valid actor header", func(t *testing.T) {
		handler := mw(echoActorHandler(t, "user-42"))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/e1", nil)
		req.Header.Set("X-Actor-ID", "user-42")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not be reached")
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/e1", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid actor id", func(t *testing.T) {
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not be reached")
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/e1", nil)
		req.Header.Set("X-Actor-ID", "has spaces!")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
