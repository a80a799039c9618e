package models

import (
	"time"

	"github.com/iudanet/vidsync/internal/crdt"
)

// MetadataRecord представляет реплицируемую запись метаданных видео.
// Мутации возможны только через CRDT операции (ApplyOperation), никогда
// через прямую перезапись полей. Запись физически не удаляется этой
// подсистемой: жизненный цикл заканчивается тем, что новые операции
// перестают приниматься.
type MetadataRecord struct {
	CreatedAt time.Time `json:"created_at"` // CreatedAt время создания записи (для информации)

	UpdatedAt      time.Time        `json:"updated_at"`       // UpdatedAt время последней принятой мутации
	Tags           crdt.GSet        `json:"tags"`             // Tags grow-only множество тегов
	VectorClock    crdt.VectorClock `json:"vector_clock"`     // VectorClock причинная версия записи
	ID             string           `json:"id"`               // ID неизменяемый идентификатор записи (UUID)
	Title          string           `json:"title"`            // Title название видео (LWW семантика)
	Description    string           `json:"description"`      // Description описание (LWW семантика)
	Category       string           `json:"category"`         // Category категория каталога (LWW семантика)
	LastModifiedBy string           `json:"last_modified_by"` // LastModifiedBy актор последней принятой мутации
	Version        int64            `json:"version"`          // Version монотонный счетчик принятых мутаций; только tie-break сигнал
}

// NewMetadataRecord создает новую запись с начальными часами {creatorID: 1}
// и версией 1.
func NewMetadataRecord(id, creatorID, title, description, category string, tags []string) *MetadataRecord {
	now := time.Now().UTC()

	return &MetadataRecord{
		ID:             id,
		Title:          title,
		Description:    description,
		Category:       category,
		Tags:           crdt.NewGSet(tags...),
		VectorClock:    crdt.VectorClock{creatorID: 1},
		Version:        1,
		LastModifiedBy: creatorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone создает глубокую копию записи.
// Нужна для чистого применения операций: вызывающий код может безопасно
// повторить применение при retry, исходная запись не изменяется.
func (r *MetadataRecord) Clone() *MetadataRecord {
	return &MetadataRecord{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Category:       r.Category,
		Tags:           r.Tags.Clone(),
		VectorClock:    r.VectorClock.Clone(),
		Version:        r.Version,
		LastModifiedBy: r.LastModifiedBy,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
