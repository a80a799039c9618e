package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

// ActorIDKey ключ для хранения actor_id в контексте.
// Значение кладет middleware идентификации: ядро доверяет уже
// разрешенной личности актора и не занимается аутентификацией само.
const ActorIDKey contextKey = "actor_id"

// GetActorID извлекает actor_id из контекста запроса
func GetActorID(ctx context.Context) (string, bool) {
	actorID, ok := ctx.Value(ActorIDKey).(string)
	return actorID, ok
}

// WithActorID кладет actor_id в контекст. Используется middleware и тестами.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}
