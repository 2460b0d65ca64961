package nodeindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entitynet/table"
)

func relation(t *testing.T, keys ...string) *table.Relation[string] {
	t.Helper()
	r, err := table.New(keys)
	require.NoError(t, err)
	return r
}

func TestAssign_RoundTrip(t *testing.T) {
	a := relation(t, "x", "y", "z")
	b := relation(t, "y", "w")

	m, err := Assign(a, b)
	require.NoError(t, err)

	assert.Equal(t, 5, m.Len())
	assert.Equal(t, 3, m.SizeA())
	assert.Equal(t, 2, m.SizeB())
	assert.True(t, m.HasB())

	for src, r := range map[Source]*table.Relation[string]{SourceA: a, SourceB: b} {
		for row := 0; row < r.Len(); row++ {
			n, ok := m.Lookup(src, r.Key(row))
			require.True(t, ok)
			assert.Equal(t, src, m.Source(n))
			assert.Equal(t, r.Key(row), m.Key(n))
			assert.Equal(t, row, m.Row(n))
			assert.Equal(t, n, m.Node(src, row))

			ref := m.Translate(n)
			if src == SourceA {
				require.NotNil(t, ref.SourceA)
				assert.Nil(t, ref.SourceB)
				assert.Equal(t, r.Key(row), *ref.SourceA)
			} else {
				require.NotNil(t, ref.SourceB)
				assert.Nil(t, ref.SourceA)
				assert.Equal(t, r.Key(row), *ref.SourceB)
			}
		}
	}
}

func TestAssign_DisjointAddressing(t *testing.T) {
	m, err := Assign(relation(t, "a1", "a2"), relation(t, "b1", "b2", "b3"))
	require.NoError(t, err)

	for row := 0; row < m.SizeB(); row++ {
		nb := m.Node(SourceB, row)
		for ra := 0; ra < m.SizeA(); ra++ {
			assert.Greater(t, nb, m.Node(SourceA, ra))
		}
	}
	assert.Equal(t, Node(2), m.Node(SourceB, 0))
}

func TestAssign_SingleRelation(t *testing.T) {
	m, err := Assign(relation(t, "a", "b"), nil)
	require.NoError(t, err)

	assert.False(t, m.HasB())
	assert.Equal(t, 0, m.SizeB())

	_, ok := m.Lookup(SourceB, "a")
	assert.False(t, ok)
}

func TestAssign_DuplicatedIndex(t *testing.T) {
	_, err := Assign(relation(t, "a", "a"), nil)
	assert.ErrorIs(t, err, ErrDuplicatedIndex)

	_, err = Assign(relation(t, "a"), relation(t, "b", "b"))
	assert.ErrorIs(t, err, ErrDuplicatedIndex)

	// The same identifier in both relations is fine.
	_, err = Assign(relation(t, "a"), relation(t, "a"))
	assert.NoError(t, err)
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, "a", SourceA.String())
	assert.Equal(t, "b", SourceB.String())
}
