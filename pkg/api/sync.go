package api

import "time"

// VectorClock wire-представление векторных часов: актор -> счетчик.
type VectorClock map[string]int64

// Payload представляет полезную нагрузку операции.
// Value используется скалярными операциями и add_tag/remove_tag,
// Tags - операцией set_tags.
type Payload struct {
	Value string   `json:"value,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// Operation представляет одну CRDT операцию для синхронизации.
type Operation struct {
	VectorClock VectorClock `json:"vector_clock"`
	Payload     Payload     `json:"payload"`
	Kind        string      `json:"kind"`
	ActorID     string      `json:"actor_id"`
	Timestamp   int64       `json:"timestamp"`
}

// MetadataRecord представляет снимок записи метаданных видео.
type MetadataRecord struct {
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	VectorClock    VectorClock `json:"vector_clock"`
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Category       string      `json:"category"`
	LastModifiedBy string      `json:"last_modified_by"`
	Tags           []string    `json:"tags"`
	Version        int64       `json:"version"`
}

// SyncRequest представляет запрос на синхронизацию от клиента:
// заявленные часы и версия плюс батч отложенных операций.
type SyncRequest struct {
	ClientVectorClock VectorClock `json:"client_vector_clock"`
	Operations        []Operation `json:"operations"`
	ClientVersion     int64       `json:"client_version"`
}

// SyncResponse представляет ответ сервера на синхронизацию.
// SyncType - классификация compare(serverClock, clientClock):
// "before", "after" или "concurrent". Action - терминальное состояние
// обмена: "applied_operations", "update_client" или "merged_concurrent".
type SyncResponse struct {
	Record            *MetadataRecord `json:"record"`
	SyncType          string          `json:"sync_type"`
	Action            string          `json:"action"`
	AppliedOperations []Operation     `json:"applied_operations,omitempty"`
	MissedOperations  []Operation     `json:"missed_operations,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
	ServerVectorClock VectorClock     `json:"server_vector_clock"`
	ServerVersion     int64           `json:"server_version"`
	ConflictsResolved int             `json:"conflicts_resolved"`
}

// PartialSyncResponse возвращается при сбое хранилища посреди батча:
// перечисляет операции, которые успели закоммититься. Клиент может
// безопасно повторить остаток - дедупликация сделает повтор идемпотентным.
type PartialSyncResponse struct {
	Error               string      `json:"error"`
	CommittedOperations []Operation `json:"committed_operations"`
}

// OperationsResponse представляет выборку из журнала операций.
type OperationsResponse struct {
	Operations []Operation `json:"operations"`
}
