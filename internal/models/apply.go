package models

import (
	"fmt"
	"time"

	"github.com/iudanet/vidsync/internal/crdt"
)

// Warning представляет аномалию, обнаруженную при применении операции.
// Аномалии не прерывают обмен: операция пропускается, обмен продолжается,
// список предупреждений возвращается вызывающему.
type Warning struct {
	OperationKey string `json:"operation_key"` // OperationKey ключ дедупликации операции
	Reason       string `json:"reason"`        // Reason человекочитаемая причина
}

// String возвращает предупреждение одной строкой для логов и ответа API.
func (w Warning) String() string {
	return fmt.Sprintf("operation %s: %s", w.OperationKey, w.Reason)
}

// ApplyOperation применяет операцию к записи и возвращает новую запись.
// Функция чистая: вход никогда не мутируется, повторное применение при
// retry безопасно.
//
// Порядок шагов фиксирован:
//  1. Часы операции сливаются в часы записи. Слияние происходит всегда,
//     даже для нераспознанного вида операции: причинная информация не
//     должна теряться.
//  2. Диспетчеризация по виду операции. Скалярные перезаписи не
//     clock-aware: координатор обязан подать операции уже упорядоченными
//     по своему tie-break правилу.
//  3. Для принятой мутации фиксируются LastModifiedBy и инкремент Version.
//
// Нераспознанный вид операции возвращает запись со слитыми часами, но без
// инкремента версии, плюс предупреждение. Паника или ошибка невозможны.
func ApplyOperation(rec *MetadataRecord, op *Operation) (*MetadataRecord, *Warning) {
	next := rec.Clone()
	next.VectorClock = next.VectorClock.Merge(op.VectorClock)

	switch op.Kind {
	case OpKindUpdateTitle:
		next.Title = op.Payload.Value
	case OpKindUpdateDescription:
		next.Description = op.Payload.Value
	case OpKindUpdateCategory:
		next.Category = op.Payload.Value
	case OpKindAddTag:
		next.Tags = next.Tags.Add(op.Payload.Value)
	case OpKindRemoveTag:
		next.Tags = next.Tags.Remove(op.Payload.Value)
	case OpKindSetTags:
		next.Tags = crdt.NewGSet(op.Payload.Tags...)
	case OpKindUnknown:
		return next, &Warning{
			OperationKey: op.DedupKey(),
			Reason:       "unknown operation kind, skipped",
		}
	default:
		return next, &Warning{
			OperationKey: op.DedupKey(),
			Reason:       fmt.Sprintf("unhandled operation kind %q, skipped", op.Kind),
		}
	}

	next.LastModifiedBy = op.ActorID
	next.Version++
	next.UpdatedAt = time.UnixMilli(op.Timestamp).UTC()

	return next, nil
}
