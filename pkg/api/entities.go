package api

// CreateEntityRequest представляет запрос на создание записи метаданных.
// Пустой ID означает, что сервер сгенерирует UUID сам.
type CreateEntityRequest struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`
}

// UpdateEntityRequest представляет прямое (небатчевое) обновление
// скалярных полей. Nil-поле означает "не менять".
type UpdateEntityRequest struct {
	Title             *string     `json:"title,omitempty"`
	Description       *string     `json:"description,omitempty"`
	Category          *string     `json:"category,omitempty"`
	ClientVectorClock VectorClock `json:"client_vector_clock"`
	ClientVersion     int64       `json:"client_version"`
}

// ConflictResponse возвращается со статусом 409, когда прямое обновление
// отклонено. Retryable true означает гонку коммита (повтор с теми же
// данными может пройти), false - клиент причинно отстал и обязан
// перечитать состояние перед повтором.
type ConflictResponse struct {
	Error             string      `json:"error"`
	ServerVectorClock VectorClock `json:"server_vector_clock,omitempty"`
	ServerVersion     int64       `json:"server_version,omitempty"`
	Retryable         bool        `json:"retryable"`
}

// ErrorResponse представляет типовой ответ с ошибкой.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
