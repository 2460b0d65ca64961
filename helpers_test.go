package entitynet

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entitynet/nodeindex"
	"github.com/hupe1980/entitynet/similarity"
	"github.com/hupe1980/entitynet/table"
)

// stubBackend answers query i with results[i], ignoring the vectors.
type stubBackend struct {
	results map[int][]similarity.Neighbor
	err     error
	calls   atomic.Int32
}

func (b *stubBackend) Search(ctx context.Context, index, queries []similarity.Vector, k int) ([][]similarity.Neighbor, error) {
	b.calls.Add(1)
	if b.err != nil {
		return nil, b.err
	}
	out := make([][]similarity.Neighbor, len(queries))
	for i := range queries {
		list := b.results[i]
		out[i] = list[:min(k, len(list))]
	}
	return out, nil
}

func relation(t *testing.T, index []string, columns ...table.Column) *table.Relation[string] {
	t.Helper()
	r, err := table.New(index, columns...)
	require.NoError(t, err)
	return r
}

func col(name string, values ...string) table.Column {
	return table.Column{Name: name, Values: values}
}

// groups returns the related row keys per category id, relation A only.
func groups(rel *CategoryRelation[string]) map[int][]string {
	out := make(map[int][]string)
	seen := make(map[nodeindex.Node]bool)
	for _, m := range rel.Rows {
		if seen[m.Node] {
			continue
		}
		seen[m.Node] = true
		key := "?"
		switch {
		case m.SourceA != nil:
			key = *m.SourceA
		case m.SourceB != nil:
			key = "b:" + *m.SourceB
		}
		out[m.CategoryID] = append(out[m.CategoryID], key)
	}
	return out
}

func ptr(v int) *int { return &v }
