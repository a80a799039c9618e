package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorClock_Increment(t *testing.T) {
	clock := NewVectorClock()

	next := clock.Increment("u1")

	require.NotNil(t, next)
	assert.Equal(t, int64(1), next["u1"], "Absent actor should be treated as 0")
	assert.Equal(t, int64(0), clock["u1"], "Input clock must not be mutated")

	next = next.Increment("u1")
	assert.Equal(t, int64(2), next["u1"], "Counter should increase monotonically")
}

func TestVectorClock_Merge(t *testing.T) {
	tests := []struct {
		name     string
		a        VectorClock
		b        VectorClock
		expected VectorClock
	}{
		{
			name:     "disjoint actors",
			a:        VectorClock{"u1": 1},
			b:        VectorClock{"u2": 3},
			expected: VectorClock{"u1": 1, "u2": 3},
		},
		{
			name:     "pointwise maximum",
			a:        VectorClock{"u1": 2, "u2": 1},
			b:        VectorClock{"u1": 1, "u2": 5},
			expected: VectorClock{"u1": 2, "u2": 5},
		},
		{
			name:     "empty clocks",
			a:        VectorClock{},
			b:        VectorClock{},
			expected: VectorClock{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := tt.a.Merge(tt.b)
			assert.Equal(t, tt.expected, merged)
		})
	}
}

func TestVectorClock_Merge_Commutative(t *testing.T) {
	a := VectorClock{"u1": 3, "u2": 1}
	b := VectorClock{"u1": 1, "u3": 7}

	assert.Equal(t, a.Merge(b), b.Merge(a), "merge(a,b) should equal merge(b,a)")
}

func TestVectorClock_Merge_Associative(t *testing.T) {
	a := VectorClock{"u1": 3}
	b := VectorClock{"u2": 2}
	c := VectorClock{"u1": 1, "u3": 4}

	assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)),
		"merge((a,b),c) should equal merge(a,(b,c))")
}

func TestVectorClock_Merge_Idempotent(t *testing.T) {
	a := VectorClock{"u1": 3, "u2": 1}

	assert.Equal(t, a, a.Merge(a), "merge(a,a) should equal a")
}

func TestVectorClock_Compare(t *testing.T) {
	tests := []struct {
		name     string
		a        VectorClock
		b        VectorClock
		expected Ordering
	}{
		{
			name:     "a strictly dominates",
			a:        VectorClock{"u1": 2, "u2": 1},
			b:        VectorClock{"u1": 1, "u2": 1},
			expected: OrderingAfter,
		},
		{
			name:     "b strictly dominates",
			a:        VectorClock{"u1": 1},
			b:        VectorClock{"u1": 1, "u2": 1},
			expected: OrderingBefore,
		},
		{
			name:     "true conflict",
			a:        VectorClock{"u1": 2, "u2": 1},
			b:        VectorClock{"u1": 1, "u2": 2},
			expected: OrderingConcurrent,
		},
		{
			name:     "equal clocks are degenerate concurrent",
			a:        VectorClock{"u1": 1, "u2": 2},
			b:        VectorClock{"u1": 1, "u2": 2},
			expected: OrderingConcurrent,
		},
		{
			name:     "both empty",
			a:        VectorClock{},
			b:        VectorClock{},
			expected: OrderingConcurrent,
		},
		{
			name:     "empty against non-empty",
			a:        VectorClock{},
			b:        VectorClock{"u1": 1},
			expected: OrderingBefore,
		},
		{
			name:     "implicit zero for absent actor",
			a:        VectorClock{"u1": 1, "u2": 0},
			b:        VectorClock{"u1": 1},
			expected: OrderingConcurrent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Compare(tt.b))
		})
	}
}

// TestVectorClock_Compare_Inverse проверяет, что compare(a,b) и compare(b,a)
// являются точными инверсиями: Before <-> After, Concurrent симметричен.
func TestVectorClock_Compare_Inverse(t *testing.T) {
	pairs := []struct {
		name string
		a    VectorClock
		b    VectorClock
	}{
		{"dominated", VectorClock{"u1": 1}, VectorClock{"u1": 2}},
		{"conflict", VectorClock{"u1": 2}, VectorClock{"u2": 2}},
		{"equal", VectorClock{"u1": 1}, VectorClock{"u1": 1}},
		{"disjoint", VectorClock{"u1": 1}, VectorClock{"u2": 1}},
	}

	inverse := map[Ordering]Ordering{
		OrderingBefore:     OrderingAfter,
		OrderingAfter:      OrderingBefore,
		OrderingConcurrent: OrderingConcurrent,
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			forward := tt.a.Compare(tt.b)
			backward := tt.b.Compare(tt.a)
			assert.Equal(t, inverse[forward], backward,
				"compare(b,a) should be the inverse of compare(a,b)")
		})
	}
}

// TestVectorClock_CompareMergeContract проверяет алгебраическое тождество:
// если compare(a,b) == Before, то merge(a,b) == b.
func TestVectorClock_CompareMergeContract(t *testing.T) {
	pairs := []struct {
		name string
		a    VectorClock
		b    VectorClock
	}{
		{"simple dominance", VectorClock{"u1": 1}, VectorClock{"u1": 3}},
		{"extra actor", VectorClock{"u1": 1}, VectorClock{"u1": 1, "u2": 1}},
		{"empty behind", VectorClock{}, VectorClock{"u1": 2, "u2": 2}},
	}

	for _, tt := range pairs {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, OrderingBefore, tt.a.Compare(tt.b))
			assert.True(t, tt.a.Merge(tt.b).Equal(tt.b),
				"compare(a,b)=Before implies merge(a,b)=b")

			require.Equal(t, OrderingAfter, tt.b.Compare(tt.a))
			assert.True(t, tt.b.Merge(tt.a).Equal(tt.b),
				"compare(b,a)=After implies merge(b,a)=b")
		})
	}
}

func TestVectorClock_Dominates(t *testing.T) {
	tests := []struct {
		name     string
		a        VectorClock
		b        VectorClock
		expected bool
	}{
		{"strictly ahead", VectorClock{"u1": 2}, VectorClock{"u1": 1}, true},
		{"equal", VectorClock{"u1": 1}, VectorClock{"u1": 1}, true},
		{"behind", VectorClock{"u1": 1}, VectorClock{"u1": 2}, false},
		{"missing actor", VectorClock{"u1": 5}, VectorClock{"u2": 1}, false},
		{"empty dominates empty", VectorClock{}, VectorClock{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.a.Dominates(tt.b))
		})
	}
}

func TestVectorClock_Clone(t *testing.T) {
	original := VectorClock{"u1": 1, "u2": 2}

	cloned := original.Clone()
	cloned["u1"] = 99

	assert.Equal(t, int64(1), original["u1"], "Clone should be independent of original")
}

func TestOrdering_String(t *testing.T) {
	assert.Equal(t, "before", OrderingBefore.String())
	assert.Equal(t, "after", OrderingAfter.String())
	assert.Equal(t, "concurrent", OrderingConcurrent.String())
	assert.Equal(t, "unknown", Ordering(42).String())
}
