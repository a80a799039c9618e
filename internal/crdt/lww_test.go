package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewerThan(t *testing.T) {
	tests := []struct {
		name     string
		tsA      int64
		actorA   string
		tsB      int64
		actorB   string
		expected bool
	}{
		{
			name:     "greater timestamp wins",
			tsA:      200,
			actorA:   "u1",
			tsB:      100,
			actorB:   "u2",
			expected: true,
		},
		{
			name:     "lesser timestamp loses",
			tsA:      100,
			actorA:   "u9",
			tsB:      200,
			actorB:   "u1",
			expected: false,
		},
		{
			name:     "equal timestamps break tie by actor id",
			tsA:      100,
			actorA:   "u2",
			tsB:      100,
			actorB:   "u1",
			expected: true,
		},
		{
			name:     "equal timestamps and lesser actor id loses",
			tsA:      100,
			actorA:   "u1",
			tsB:      100,
			actorB:   "u2",
			expected: false,
		},
		{
			name:     "identical stamps are not newer",
			tsA:      100,
			actorA:   "u1",
			tsB:      100,
			actorB:   "u1",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewerThan(tt.tsA, tt.actorA, tt.tsB, tt.actorB))
		})
	}
}

func TestLWWRegister_Merge(t *testing.T) {
	older := LWWRegister{Value: "Draft", ActorID: "u1", Timestamp: 100}
	newer := LWWRegister{Value: "Final", ActorID: "u2", Timestamp: 200}

	assert.Equal(t, newer, older.Merge(newer))
	assert.Equal(t, newer, newer.Merge(older), "Merge should be commutative")
}

func TestLWWRegister_Merge_TieBreakByActor(t *testing.T) {
	a := LWWRegister{Value: "Alpha", ActorID: "u1", Timestamp: 100}
	b := LWWRegister{Value: "Beta", ActorID: "u2", Timestamp: 100}

	// u2 > u1 лексикографически - выигрывает Beta на обеих репликах
	assert.Equal(t, b, a.Merge(b))
	assert.Equal(t, b, b.Merge(a))
}

func TestLWWRegister_Merge_Idempotent(t *testing.T) {
	r := LWWRegister{Value: "Draft", ActorID: "u1", Timestamp: 100}

	assert.Equal(t, r, r.Merge(r), "merge(a,a) should equal a")
}
