package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/vidsync/internal/crdt"
)

func newTestRecord() *MetadataRecord {
	return NewMetadataRecord("vid-1", "u1", "Draft", "desc", "sports", []string{"mma"})
}

func TestApplyOperation_ScalarFields(t *testing.T) {
	tests := []struct {
		check func(t *testing.T, rec *MetadataRecord)
		name  string
		kind  OpKind
		value string
	}{
		{
			name:  "update_title",
			kind:  OpKindUpdateTitle,
			value: "Final",
			check: func(t *testing.T, rec *MetadataRecord) {
				assert.Equal(t, "Final", rec.Title)
			},
		},
		{
			name:  "update_description",
			kind:  OpKindUpdateDescription,
			value: "new description",
			check: func(t *testing.T, rec *MetadataRecord) {
				assert.Equal(t, "new description", rec.Description)
			},
		},
		{
			name:  "update_category",
			kind:  OpKindUpdateCategory,
			value: "combat",
			check: func(t *testing.T, rec *MetadataRecord) {
				assert.Equal(t, "combat", rec.Category)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestRecord()
			op := &Operation{
				Kind:        tt.kind,
				Payload:     Payload{Value: tt.value},
				VectorClock: crdt.VectorClock{"u2": 1},
				ActorID:     "u2",
				Timestamp:   1700000000000,
			}

			next, warn := ApplyOperation(rec, op)

			require.Nil(t, warn)
			tt.check(t, next)
			assert.Equal(t, crdt.VectorClock{"u1": 1, "u2": 1}, next.VectorClock,
				"Operation clock should be merged into the record clock")
			assert.Equal(t, int64(2), next.Version, "Accepted mutation should bump version")
			assert.Equal(t, "u2", next.LastModifiedBy)
		})
	}
}

func TestApplyOperation_Tags(t *testing.T) {
	rec := newTestRecord()

	addOp := &Operation{
		Kind:        OpKindAddTag,
		Payload:     Payload{Value: "boxing"},
		VectorClock: crdt.VectorClock{"u2": 1},
		ActorID:     "u2",
		Timestamp:   100,
	}
	next, warn := ApplyOperation(rec, addOp)
	require.Nil(t, warn)
	assert.Equal(t, []string{"boxing", "mma"}, next.Tags.Elements())

	removeOp := &Operation{
		Kind:        OpKindRemoveTag,
		Payload:     Payload{Value: "mma"},
		VectorClock: crdt.VectorClock{"u2": 2},
		ActorID:     "u2",
		Timestamp:   200,
	}
	next, warn = ApplyOperation(next, removeOp)
	require.Nil(t, warn)
	assert.Equal(t, []string{"boxing"}, next.Tags.Elements())

	setOp := &Operation{
		Kind:        OpKindSetTags,
		Payload:     Payload{Tags: []string{"judo", "karate"}},
		VectorClock: crdt.VectorClock{"u2": 3},
		ActorID:     "u2",
		Timestamp:   300,
	}
	next, warn = ApplyOperation(next, setOp)
	require.Nil(t, warn)
	assert.Equal(t, []string{"judo", "karate"}, next.Tags.Elements(),
		"set_tags should fully replace the tag set")
}

// Два актора конкурентно добавляют разные теги: итоговое множество содержит
// оба тега независимо от порядка доставки.
func TestApplyOperation_ConcurrentAddTags_OrderIndependent(t *testing.T) {
	opA := &Operation{
		Kind:        OpKindAddTag,
		Payload:     Payload{Value: "mma"},
		VectorClock: crdt.VectorClock{"u1": 2},
		ActorID:     "u1",
		Timestamp:   100,
	}
	opB := &Operation{
		Kind:        OpKindAddTag,
		Payload:     Payload{Value: "boxing"},
		VectorClock: crdt.VectorClock{"u2": 1},
		ActorID:     "u2",
		Timestamp:   101,
	}

	rec := NewMetadataRecord("vid-1", "u1", "Draft", "", "sports", nil)

	ab, _ := ApplyOperation(rec, opA)
	ab, _ = ApplyOperation(ab, opB)

	ba, _ := ApplyOperation(rec, opB)
	ba, _ = ApplyOperation(ba, opA)

	assert.Equal(t, ab.Tags.Elements(), ba.Tags.Elements(),
		"Delivery order must not change the final tag set")
	assert.Equal(t, []string{"boxing", "mma"}, ab.Tags.Elements())
	assert.True(t, ab.VectorClock.Equal(ba.VectorClock),
		"Merged clocks must converge regardless of order")
}

// Запоздавший конкурентный add_tag, примененный после remove_tag того же
// значения, воскрешает тег. Это осознанное ограничение grow-only дизайна,
// тест фиксирует текущее поведение.
func TestApplyOperation_RemoveThenStaleAdd(t *testing.T) {
	rec := newTestRecord() // содержит тег "mma"

	removeOp := &Operation{
		Kind:        OpKindRemoveTag,
		Payload:     Payload{Value: "mma"},
		VectorClock: crdt.VectorClock{"u1": 2},
		ActorID:     "u1",
		Timestamp:   200,
	}
	next, _ := ApplyOperation(rec, removeOp)
	require.False(t, next.Tags.Contains("mma"))

	staleAdd := &Operation{
		Kind:        OpKindAddTag,
		Payload:     Payload{Value: "mma"},
		VectorClock: crdt.VectorClock{"u2": 1},
		ActorID:     "u2",
		Timestamp:   100,
	}
	next, _ = ApplyOperation(next, staleAdd)

	assert.True(t, next.Tags.Contains("mma"),
		"A stale concurrent add_tag replayed after remove_tag resurrects the tag")
}

func TestApplyOperation_UnknownKind(t *testing.T) {
	rec := newTestRecord()
	op := &Operation{
		Kind:        OpKindUnknown,
		VectorClock: crdt.VectorClock{"u2": 7},
		ActorID:     "u2",
		Timestamp:   1700000000000,
	}

	next, warn := ApplyOperation(rec, op)

	require.NotNil(t, warn, "Unknown kind should surface a warning, never panic")
	assert.Contains(t, warn.Reason, "unknown operation kind")
	assert.Equal(t, crdt.VectorClock{"u1": 1, "u2": 7}, next.VectorClock,
		"Clock merge must not be lost for unknown kinds")
	assert.Equal(t, rec.Version, next.Version,
		"A skipped operation must not look like an accepted mutation")
	assert.Equal(t, rec.LastModifiedBy, next.LastModifiedBy)
	assert.Equal(t, rec.Title, next.Title)
}

func TestApplyOperation_Pure(t *testing.T) {
	rec := newTestRecord()
	op := &Operation{
		Kind:        OpKindUpdateTitle,
		Payload:     Payload{Value: "Final"},
		VectorClock: crdt.VectorClock{"u2": 1},
		ActorID:     "u2",
		Timestamp:   100,
	}

	_, _ = ApplyOperation(rec, op)

	assert.Equal(t, "Draft", rec.Title, "Input record must never be mutated in place")
	assert.Equal(t, crdt.VectorClock{"u1": 1}, rec.VectorClock)
	assert.Equal(t, int64(1), rec.Version)
}
