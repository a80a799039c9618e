package sync

import (
	"fmt"

	"github.com/iudanet/vidsync/internal/crdt"
	"github.com/iudanet/vidsync/internal/models"
)

// Action терминальное состояние одного обмена синхронизации.
type Action string

const (
	// ActionAppliedOperations сервер был причинно позади клиента и применил
	// его операции.
	ActionAppliedOperations Action = "applied_operations"
	// ActionUpdateClient клиент позади сервера; состояние сервера не
	// тронуто, клиенту возвращены пропущенные операции.
	ActionUpdateClient Action = "update_client"
	// ActionMergedConcurrent истинный конфликт; новые операции клиента
	// слиты детерминированно.
	ActionMergedConcurrent Action = "merged_concurrent"
)

// Request представляет вход одного обмена синхронизации:
// заявленные клиентом часы и версия плюс батч его отложенных операций.
type Request struct {
	ClientVectorClock crdt.VectorClock
	EntityID          string
	Operations        []*models.Operation
	ClientVersion     int64
}

// Result представляет исход одного обмена. Вся поэкземплярная
// бухгалтерия обмена (предупреждения, примененные операции, счетчик
// разрешенных конфликтов) возвращается вызывающему, а не копится в
// глобальном состоянии процесса.
type Result struct {
	Record            *models.MetadataRecord
	SyncType          crdt.Ordering
	Action            Action
	AppliedOperations []*models.Operation
	MissedOperations  []*models.Operation
	Warnings          []models.Warning
	ConflictsResolved int
}

// StaleError сообщает, что сервер строго впереди клиента и прямое
// обновление отклонено. Ожидаемый, не исключительный исход: клиент должен
// перечитать состояние и повторить запрос.
type StaleError struct {
	ServerVectorClock crdt.VectorClock
	ServerVersion     int64
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("client state is stale: server is at version %d", e.ServerVersion)
}

// PartialApplyError сообщает об аварийном прерывании применения батча:
// часть операций уже закоммичена в журнал, остальные не применялись.
// Клиент может безопасно повторить остаток - дедупликация по
// (timestamp, actorId) сделает повтор идемпотентным.
type PartialApplyError struct {
	Err       error
	Committed []*models.Operation
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("batch aborted after %d committed operations: %v", len(e.Committed), e.Err)
}

func (e *PartialApplyError) Unwrap() error {
	return e.Err
}
