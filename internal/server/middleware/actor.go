package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/vidsync/internal/server/handlers"
	"github.com/iudanet/vidsync/internal/server/jwt"
	"github.com/iudanet/vidsync/internal/validation"
)

// TokenValidator проверяет JWT токен актора
type TokenValidator interface {
	ValidateActorToken(token string) (*jwt.Claims, error)
}

// ActorMiddleware создает middleware, разрешающее личность актора запроса.
// Актор извлекается из Bearer JWT токена и кладется в контекст под
// handlers.ActorIDKey. Все, что ниже по цепочке, доверяет этому значению.
func ActorMiddleware(logger *slog.Logger, validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateActorToken(parts[1])
			if err != nil {
				logger.Warn("Invalid actor token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			if err := validation.ValidateActorID(claims.ActorID); err != nil {
				logger.Warn("Token carries invalid actor id", "error", err)
				http.Error(w, "Unauthorized: invalid actor id", http.StatusUnauthorized)
				return
			}

			logger.Debug("Actor resolved", "actor_id", claims.ActorID)

			ctx := handlers.WithActorID(r.Context(), claims.ActorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorHeaderMiddleware разрешает актора по заголовку X-Actor-ID без
// криптографической проверки. Только для локальной разработки и тестов,
// когда секрет токенов не задан.
func ActorHeaderMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := r.Header.Get("X-Actor-ID")
			if err := validation.ValidateActorID(actorID); err != nil {
				logger.Warn("Invalid X-Actor-ID header", "error", err)
				http.Error(w, "Unauthorized: invalid actor id", http.StatusUnauthorized)
				return
			}

			ctx := handlers.WithActorID(r.Context(), actorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
