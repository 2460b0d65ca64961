package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopK_KeepsBest(t *testing.T) {
	q := NewTopK(3)
	for i, s := range []float32{0.1, 0.9, 0.5, 0.7, 0.2} {
		q.Push(Item{Index: uint32(i), Score: s})
	}
	require.Equal(t, 3, q.Len())

	worst, ok := q.Worst()
	require.True(t, ok)
	assert.Equal(t, float32(0.5), worst.Score)

	got := q.Drain(nil)
	assert.Equal(t, []Item{{1, 0.9}, {3, 0.7}, {2, 0.5}}, got)
	assert.Equal(t, 0, q.Len())
}

func TestTopK_TiesBreakOnIndex(t *testing.T) {
	q := NewTopK(2)
	q.Push(Item{Index: 7, Score: 1})
	q.Push(Item{Index: 3, Score: 1})
	q.Push(Item{Index: 5, Score: 1})
	q.Push(Item{Index: 1, Score: 1})

	assert.Equal(t, []Item{{1, 1}, {3, 1}}, q.Drain(nil))
}

func TestTopK_ZeroCapacity(t *testing.T) {
	q := NewTopK(0)
	q.Push(Item{Index: 1, Score: 1})
	assert.Equal(t, 0, q.Len())

	_, ok := q.Worst()
	assert.False(t, ok)
}

func TestTopK_ResetReuses(t *testing.T) {
	q := NewTopK(1)
	q.Push(Item{Index: 1, Score: 0.3})
	q.Reset(2)
	q.Push(Item{Index: 2, Score: 0.4})
	q.Push(Item{Index: 3, Score: 0.6})

	dst := []Item{{Index: 99}}
	dst = q.Drain(dst)
	assert.Equal(t, []Item{{Index: 99}, {3, 0.6}, {2, 0.4}}, dst)
}
