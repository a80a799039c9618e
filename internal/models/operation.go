package models

import (
	"encoding/json"
	"fmt"

	"github.com/iudanet/vidsync/internal/crdt"
)

// OpKind представляет закрытое множество видов CRDT операций.
// Диспетчеризация по enum вместо строкового switch: добавление нового
// вида операции - изменение, проверяемое компилятором, а опечатка в
// строке не может молча превратиться в no-op.
type OpKind uint8

const (
	// OpKindUnknown нераспознанный вид операции. Применение такой операции
	// не меняет полей записи, но слияние векторных часов сохраняется.
	OpKindUnknown OpKind = iota
	// OpKindUpdateTitle перезапись названия (LWW семантика)
	OpKindUpdateTitle
	// OpKindUpdateDescription перезапись описания (LWW семантика)
	OpKindUpdateDescription
	// OpKindUpdateCategory перезапись категории (LWW семантика)
	OpKindUpdateCategory
	// OpKindAddTag идемпотентное добавление тега в grow-only множество
	OpKindAddTag
	// OpKindRemoveTag явное удаление тега (отдельная операция журнала,
	// не вычитание из множества)
	OpKindRemoveTag
	// OpKindSetTags полная замена множества тегов; некоммутативна,
	// координатор упорядочивает ее по версии, а не сливает вслепую
	OpKindSetTags
)

var kindNames = map[OpKind]string{
	OpKindUpdateTitle:       "update_title",
	OpKindUpdateDescription: "update_description",
	OpKindUpdateCategory:    "update_category",
	OpKindAddTag:            "add_tag",
	OpKindRemoveTag:         "remove_tag",
	OpKindSetTags:           "set_tags",
}

var kindByName = func() map[string]OpKind {
	m := make(map[string]OpKind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// ParseOpKind преобразует wire-имя вида операции в OpKind.
// Возвращает OpKindUnknown и false для нераспознанного имени.
func ParseOpKind(name string) (OpKind, bool) {
	kind, ok := kindByName[name]
	return kind, ok
}

// String возвращает wire-имя вида операции.
func (k OpKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON сериализует вид операции как wire-имя.
func (k OpKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON десериализует вид операции из wire-имени.
// Нераспознанное имя дает OpKindUnknown без ошибки: журнал операций
// должен читаться даже если в нем есть записи более новой версии схемы.
func (k *OpKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("failed to unmarshal operation kind: %w", err)
	}

	kind, ok := ParseOpKind(name)
	if !ok {
		kind = OpKindUnknown
	}
	*k = kind

	return nil
}

// Payload представляет полезную нагрузку операции.
// Value заполнен для скалярных перезаписей и add_tag/remove_tag,
// Tags - для set_tags.
type Payload struct {
	Value string   `json:"value,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// Operation представляет одну CRDT мутацию записи метаданных.
// После принятия операция неизменяема и живет в append-only журнале.
// Пара (Timestamp, ActorID) уникально идентифицирует операцию и служит
// ключом дедупликации при идемпотентных повторах.
type Operation struct {
	VectorClock crdt.VectorClock `json:"vector_clock"` // VectorClock часы актора на момент создания операции
	Payload     Payload          `json:"payload"`      // Payload полезная нагрузка, зависит от Kind
	ActorID     string           `json:"actor_id"`     // ActorID идентификатор актора-автора
	Timestamp   int64            `json:"timestamp"`    // Timestamp wall-clock время создания, unix миллисекунды
	Kind        OpKind           `json:"kind"`         // Kind вид операции
}

// DedupKey возвращает ключ дедупликации (timestamp, actorId).
// Операция считается уже примененной, если запись с таким же ключом
// существует в журнале сервера.
func (op *Operation) DedupKey() string {
	return fmt.Sprintf("%d:%s", op.Timestamp, op.ActorID)
}

// Clone создает глубокую копию операции.
func (op *Operation) Clone() *Operation {
	tags := make([]string, len(op.Payload.Tags))
	copy(tags, op.Payload.Tags)

	return &Operation{
		Kind:        op.Kind,
		Payload:     Payload{Value: op.Payload.Value, Tags: tags},
		VectorClock: op.VectorClock.Clone(),
		ActorID:     op.ActorID,
		Timestamp:   op.Timestamp,
	}
}
