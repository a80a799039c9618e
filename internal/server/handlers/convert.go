package handlers

import (
	"github.com/iudanet/vidsync/internal/crdt"
	"github.com/iudanet/vidsync/internal/models"
	"github.com/iudanet/vidsync/pkg/api"
)

// Конвертация между wire-форматом pkg/api и доменными моделями.
// Нераспознанный вид операции намеренно не отбрасывается здесь:
// координатор сам пропустит такую операцию с предупреждением в ответе.

func toModelClock(clock api.VectorClock) crdt.VectorClock {
	if clock == nil {
		return crdt.NewVectorClock()
	}
	return crdt.VectorClock(clock).Clone()
}

func toAPIClock(clock crdt.VectorClock) api.VectorClock {
	return api.VectorClock(clock.Clone())
}

func toModelOperation(op api.Operation) *models.Operation {
	kind, _ := models.ParseOpKind(op.Kind)

	return &models.Operation{
		Kind:        kind,
		Payload:     models.Payload{Value: op.Payload.Value, Tags: op.Payload.Tags},
		VectorClock: toModelClock(op.VectorClock),
		ActorID:     op.ActorID,
		Timestamp:   op.Timestamp,
	}
}

func toModelOperations(ops []api.Operation) []*models.Operation {
	converted := make([]*models.Operation, 0, len(ops))
	for _, op := range ops {
		converted = append(converted, toModelOperation(op))
	}
	return converted
}

func toAPIOperation(op *models.Operation) api.Operation {
	return api.Operation{
		Kind:        op.Kind.String(),
		Payload:     api.Payload{Value: op.Payload.Value, Tags: op.Payload.Tags},
		VectorClock: toAPIClock(op.VectorClock),
		ActorID:     op.ActorID,
		Timestamp:   op.Timestamp,
	}
}

func toAPIOperations(ops []*models.Operation) []api.Operation {
	converted := make([]api.Operation, 0, len(ops))
	for _, op := range ops {
		converted = append(converted, toAPIOperation(op))
	}
	return converted
}

func toAPIRecord(rec *models.MetadataRecord) *api.MetadataRecord {
	if rec == nil {
		return nil
	}

	return &api.MetadataRecord{
		ID:             rec.ID,
		Title:          rec.Title,
		Description:    rec.Description,
		Category:       rec.Category,
		Tags:           rec.Tags.Elements(),
		VectorClock:    toAPIClock(rec.VectorClock),
		Version:        rec.Version,
		LastModifiedBy: rec.LastModifiedBy,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func toAPIWarnings(warnings []models.Warning) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}
