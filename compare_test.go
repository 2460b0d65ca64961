package entitynet

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/entitynet/category"
	"github.com/hupe1980/entitynet/nodeindex"
	"github.com/hupe1980/entitynet/similarity"
)

func stageNames(rel *CategoryRelation[string]) []string {
	var names []string
	for _, st := range rel.Timings {
		names = append(names, st.Stage)
	}
	return names
}

func TestCompare_AddressScenario(t *testing.T) {
	a := relation(t, []string{"r1", "r2"}, col("Address", "123 N Name Rd", "123 North Name Road"))
	s, err := New(a, nil)
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Address, On("Address"), 0.7, DefaultKNeighbors)
	require.NoError(t, err)

	require.Equal(t, 2, rel.Len())
	for i, m := range rel.Rows {
		assert.Equal(t, nodeindex.Node(i), m.Node)
		assert.Equal(t, "Address", m.Column)
		assert.Equal(t, "123 n name rd", m.Value)
		assert.Equal(t, ptr(0), m.ExactID)
		assert.Equal(t, ptr(0), m.SimilarID)
		assert.Equal(t, 0, m.CategoryID)
		assert.Nil(t, m.SourceB)
	}
	assert.Equal(t, "r1", *rel.Rows[0].SourceA)
	assert.Equal(t, "r2", *rel.Rows[1].SourceA)
	assert.Equal(t, []string{"flatten", "exact", "tfidf", "search", "cluster", "fuse", "prune", "translate"}, stageNames(rel))

	net, err := s.Network(t.Context(), map[category.Category]*CategoryRelation[string]{category.Address: rel})
	require.NoError(t, err)
	assert.Equal(t, map[nodeindex.Node]int{0: 0, 1: 0}, net.NetworkIDs())
	assert.Equal(t, 1, net.Count())
}

func TestCompare_ThresholdOneIsExactOnly(t *testing.T) {
	backend := &stubBackend{results: map[int][]similarity.Neighbor{
		0: {{Index: 0, Score: 1}, {Index: 1, Score: 0.99}},
		1: {{Index: 1, Score: 1}, {Index: 0, Score: 0.99}},
	}}
	a := relation(t, []string{"r1", "r2", "r3"}, col("Phone", "555-0100", "(555) 0100", "555-0199"))
	s, err := New(a, nil, WithBackend(backend))
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Phone, On("Phone"), 1, DefaultKNeighbors)
	require.NoError(t, err)

	assert.Zero(t, backend.calls.Load())
	assert.Equal(t, map[int][]string{0: {"r1", "r2"}}, groups(rel))
	for _, m := range rel.Rows {
		assert.Nil(t, m.SimilarID)
		assert.Equal(t, "5550100", m.Value)
	}
	assert.Empty(t, rel.Scores)
	assert.Equal(t, []string{"flatten", "exact", "fuse", "prune", "translate"}, stageNames(rel))
}

func TestCompare_SelfMatchPruning(t *testing.T) {
	a := relation(t, []string{"X", "Y"},
		col("PhoneA", "123456789", "1112223333"),
		col("PhoneB", "123456789", "1112223333"),
	)
	s, err := New(a, nil)
	require.NoError(t, err)

	for _, threshold := range []float64{1, 0.7} {
		rel, err := s.Compare(t.Context(), category.Phone, On("PhoneA", "PhoneB"), threshold, DefaultKNeighbors)
		require.NoError(t, err)
		assert.Zero(t, rel.Len(), "threshold %v", threshold)
	}
}

func TestCompare_RowOrderAndNodeFusion(t *testing.T) {
	a := relation(t, []string{"X", "Y"},
		col("PhoneA", "111-2222", "333-4444"),
		col("PhoneB", "333-4444", "111-2222"),
	)
	s, err := New(a, nil)
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Phone, On("PhoneA", "PhoneB"), 1, DefaultKNeighbors)
	require.NoError(t, err)
	require.Equal(t, 4, rel.Len())

	type row struct {
		node   nodeindex.Node
		column string
		exact  int
	}
	var got []row
	for _, m := range rel.Rows {
		got = append(got, row{m.Node, m.Column, *m.ExactID})
		assert.Equal(t, 0, m.CategoryID)
	}
	assert.Equal(t, []row{
		{0, "PhoneA", 0},
		{0, "PhoneB", 1},
		{1, "PhoneA", 1},
		{1, "PhoneB", 0},
	}, got)
}

func TestCompare_FuzzyWithStubBackend(t *testing.T) {
	// distinct values sort as alice(0), alicia(1), bob(2)
	backend := &stubBackend{results: map[int][]similarity.Neighbor{
		0: {{Index: 0, Score: 1}, {Index: 1, Score: 0.8}, {Index: 2, Score: 0.1}},
		1: {{Index: 1, Score: 1}, {Index: 0, Score: 0.8}},
		2: {{Index: 2, Score: 1}},
	}}
	a := relation(t, []string{"r1", "r2", "r3"}, col("Name", "Alice", "Alicia", "Bob"))
	s, err := New(a, nil, WithBackend(backend))
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Name, On("Name"), 0.7, 3)
	require.NoError(t, err)

	assert.Equal(t, map[int][]string{0: {"r1", "r2"}}, groups(rel))
	for _, m := range rel.Rows {
		assert.Nil(t, m.ExactID)
		assert.Equal(t, ptr(0), m.SimilarID)
	}
	assert.Zero(t, rel.Saturated)

	require.Len(t, rel.Scores, 3)
	in, out := rel.ClusterEdges(1)
	assert.Equal(t, []Score{{Value: "alice", Similar: "alicia", Score: 0.8, Accepted: true, SimilarID: ptr(0), Difference: []string{"e"}}}, in)
	assert.Equal(t, []Score{{Value: "alice", Similar: "bob", Score: 0.1, Difference: []string{"a", "b", "c", "e", "i", "l", "o"}}}, out)

	in, out = rel.ClusterEdges(-1)
	assert.Len(t, in, 2)
	assert.Len(t, out, 1)
}

func TestCompare_TransitiveFusion(t *testing.T) {
	// alice(0) and alicia(1) are similar; alice also matches exactly
	backend := &stubBackend{results: map[int][]similarity.Neighbor{
		0: {{Index: 0, Score: 1}, {Index: 1, Score: 0.9}},
		1: {{Index: 1, Score: 1}, {Index: 0, Score: 0.9}},
	}}
	a := relation(t, []string{"r1", "r2", "r3", "r4"}, col("Name", "alice", "alice", "alicia", ""))
	s, err := New(a, nil, WithBackend(backend))
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Name, On("Name"), 0.85, DefaultKNeighbors)
	require.NoError(t, err)

	assert.Equal(t, map[int][]string{0: {"r1", "r2", "r3"}}, groups(rel))
	assert.Equal(t, ptr(0), rel.Rows[0].ExactID)
	assert.Equal(t, ptr(0), rel.Rows[1].ExactID)
	assert.Nil(t, rel.Rows[2].ExactID)

	again, err := s.Compare(t.Context(), category.Name, On("Name"), 0.85, DefaultKNeighbors)
	require.NoError(t, err)
	assert.Equal(t, rel.Rows, again.Rows)
	assert.Equal(t, rel.Scores, again.Scores)
}

func TestCompare_FuzzyWithInvertedIndex(t *testing.T) {
	a := relation(t, []string{"r1", "r2", "r3"}, col("Name", "Jonathan Smith", "Jonathon Smith", "Zzz Qqq"))
	s, err := New(a, nil, WithSearchWorkers(2))
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Name, On("Name"), 0.8, DefaultKNeighbors)
	require.NoError(t, err)
	assert.Equal(t, map[int][]string{0: {"r1", "r2"}}, groups(rel))

	strict, err := s.Compare(t.Context(), category.Name, On("Name"), 0.999, DefaultKNeighbors)
	require.NoError(t, err)
	assert.Zero(t, strict.Len())
}

func TestCompare_CrossEmailScenario(t *testing.T) {
	a := relation(t, []string{"a1"}, col("Email", "a@x.com"))
	b := relation(t, []string{"b1"}, col("Email", "a@x.com"))
	s, err := New(a, b)
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Email, Columns{A: Cols("Email"), B: Cols("Email")}, 1, DefaultKNeighbors)
	require.NoError(t, err)
	require.Equal(t, 2, rel.Len())

	first, second := rel.Rows[0], rel.Rows[1]
	assert.Equal(t, nodeindex.Node(0), first.Node)
	assert.Equal(t, "a1", *first.SourceA)
	assert.Nil(t, first.SourceB)
	assert.Equal(t, nodeindex.Node(1), second.Node)
	assert.Nil(t, second.SourceA)
	assert.Equal(t, "b1", *second.SourceB)
	assert.Equal(t, first.CategoryID, second.CategoryID)
	assert.Equal(t, "axcom", first.Value)
}

func TestCompare_CrossRelationOnly(t *testing.T) {
	a := relation(t, []string{"a1", "a2"}, col("Name", "alice", "alice"))
	b := relation(t, []string{"b1"}, col("Name", "bob"))

	backend := &stubBackend{results: map[int][]similarity.Neighbor{
		0: {{Index: 0, Score: 0.1}},
	}}
	s, err := New(a, b, WithBackend(backend))
	require.NoError(t, err)

	cols := Columns{A: Cols("Name"), B: Cols("Name")}

	rel, err := s.Compare(t.Context(), category.Name, cols, 1, DefaultKNeighbors)
	require.NoError(t, err)
	assert.Zero(t, rel.Len())

	rel, err = s.Compare(t.Context(), category.Name, cols, 0.5, DefaultKNeighbors)
	require.NoError(t, err)
	assert.Zero(t, rel.Len())
	require.Len(t, rel.Scores, 1)
	assert.Equal(t, Score{Value: "bob", Similar: "alice", Score: 0.1, Difference: []string{"a", "b", "c", "e", "i", "l", "o"}}, rel.Scores[0])
}

func TestCompare_CrossFuzzy(t *testing.T) {
	a := relation(t, []string{"a1"}, col("Name", "alice"))
	b := relation(t, []string{"b1", "b2"}, col("Full", "alicia", "bob"))

	// B values alicia(0), bob(1) query the A value alice(0)
	backend := &stubBackend{results: map[int][]similarity.Neighbor{
		0: {{Index: 0, Score: 0.9}},
		1: {{Index: 0, Score: 0.2}},
	}}
	s, err := New(a, b, WithBackend(backend))
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Name, Columns{A: Cols("Name"), B: Cols("Full")}, 0.7, DefaultKNeighbors)
	require.NoError(t, err)

	assert.Equal(t, map[int][]string{0: {"a1", "b:b1"}}, groups(rel))
	assert.Equal(t, "Name", rel.Rows[0].Column)
	assert.Equal(t, "Full", rel.Rows[1].Column)
}

func TestCompare_Saturation(t *testing.T) {
	backend := &stubBackend{results: map[int][]similarity.Neighbor{
		0: {{Index: 0, Score: 1}, {Index: 1, Score: 0.9}},
		1: {{Index: 1, Score: 1}, {Index: 0, Score: 0.9}},
	}}
	mc := &BasicMetricsCollector{}
	a := relation(t, []string{"r1", "r2"}, col("Name", "alice", "alicia"))
	s, err := New(a, nil, WithBackend(backend), WithMetricsCollector(mc))
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Name, On("Name"), 0.7, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, rel.Saturated)
	assert.Equal(t, 2, rel.Len())

	stats := mc.GetStats()
	assert.Equal(t, int64(2), stats.SaturatedQueries)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(2), stats.SearchQueries)
	assert.Equal(t, int64(1), stats.CompareCount)
	assert.Equal(t, int64(2), stats.CompareRows)
}

func TestCompare_SaturationIgnoresSelfHit(t *testing.T) {
	a := relation(t, []string{"r1", "r2"}, col("Name", "alice", "bob"))

	tests := []struct {
		name      string
		results   map[int][]similarity.Neighbor
		saturated int
	}{
		{
			name: "only self hits",
			results: map[int][]similarity.Neighbor{
				0: {{Index: 0, Score: 1}},
				1: {{Index: 1, Score: 1}},
			},
			saturated: 0,
		},
		{
			name: "other candidate fills the slot",
			results: map[int][]similarity.Neighbor{
				0: {{Index: 1, Score: 0.9}},
				1: {{Index: 0, Score: 0.9}},
			},
			saturated: 2,
		},
		{
			name: "other candidate below threshold",
			results: map[int][]similarity.Neighbor{
				0: {{Index: 1, Score: 0.2}},
				1: {{Index: 0, Score: 0.2}},
			},
			saturated: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := &BasicMetricsCollector{}
			s, err := New(a, nil, WithBackend(&stubBackend{results: tt.results}), WithMetricsCollector(mc))
			require.NoError(t, err)

			rel, err := s.Compare(t.Context(), category.Name, On("Name"), 0.5, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.saturated, rel.Saturated)
			assert.Equal(t, int64(tt.saturated), mc.GetStats().SaturatedQueries)
		})
	}
}

func TestCompare_FusionIdempotence(t *testing.T) {
	// no two distinct values are similar, so the fuzzy stage adds nothing
	a := relation(t, []string{"r1", "r2", "r3", "r4", "r5"}, col("Name", "alice", "alice", "bob", "bob", "zed"))
	s, err := New(a, nil)
	require.NoError(t, err)

	exactOnly, err := s.Compare(t.Context(), category.Name, On("Name"), 1, DefaultKNeighbors)
	require.NoError(t, err)
	fused, err := s.Compare(t.Context(), category.Name, On("Name"), 0.99, DefaultKNeighbors)
	require.NoError(t, err)

	want := map[int][]nodeindex.Node{0: {0, 1}, 1: {2, 3}}
	assert.Equal(t, want, exactOnly.Groups())
	assert.Equal(t, want, fused.Groups())
	assert.Equal(t, exactOnly.IDs(), fused.IDs())
}

func TestCompare_IdenticalValuesShareSimilarID(t *testing.T) {
	a := relation(t, []string{"r1", "r2", "r3"}, col("Name", "alice", "alice", "bob"))
	s, err := New(a, nil)
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Name, On("Name"), 0.9, DefaultKNeighbors)
	require.NoError(t, err)

	require.Equal(t, 2, rel.Len())
	for _, m := range rel.Rows {
		assert.Equal(t, ptr(0), m.ExactID)
		assert.Equal(t, ptr(0), m.SimilarID)
	}
	for _, sc := range rel.Scores {
		assert.False(t, sc.Accepted, "%s ~ %s", sc.Value, sc.Similar)
	}
}

func TestCompare_WithoutScores(t *testing.T) {
	backend := &stubBackend{results: map[int][]similarity.Neighbor{
		0: {{Index: 0, Score: 1}, {Index: 1, Score: 0.9}},
		1: {{Index: 1, Score: 1}, {Index: 0, Score: 0.9}},
	}}
	a := relation(t, []string{"r1", "r2"}, col("Name", "alice", "alicia"))
	s, err := New(a, nil, WithBackend(backend), WithoutScores())
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), category.Name, On("Name"), 0.7, DefaultKNeighbors)
	require.NoError(t, err)
	assert.Equal(t, 2, rel.Len())
	assert.Nil(t, rel.Scores)
}

func TestCompare_Validation(t *testing.T) {
	a := relation(t, []string{"r1"}, col("Name", "alice"))
	b := relation(t, []string{"b1"}, col("Name", "bob"))

	single, err := New(a, nil)
	require.NoError(t, err)
	cross, err := New(a, b)
	require.NoError(t, err)

	tests := []struct {
		name      string
		s         *Session[string]
		cat       category.Category
		cols      Columns
		threshold float64
		k         int
		want      error
	}{
		{"unknown category first", single, "shoe_size", On("Nope"), 2, 0, ErrInvalidCategory},
		{"kneighbors before threshold", single, category.Name, On("Nope"), 2, 0, ErrKneighborsRange},
		{"threshold zero", single, category.Name, On("Name"), 0, 1, ErrThresholdRange},
		{"threshold above one", single, category.Name, On("Name"), 1.5, 1, ErrThresholdRange},
		{"threshold nan", single, category.Name, On("Name"), math.NaN(), 1, ErrThresholdRange},
		{"missing column", single, category.Name, On("Nope"), 1, 1, ErrMissingColumn},
		{"no columns", single, category.Name, Columns{}, 1, 1, ErrMissingColumn},
		{"columns for absent relation b", single, category.Name, Columns{A: Cols("Name"), B: Cols("Name")}, 1, 1, ErrMissingColumn},
		{"cross without b columns", cross, category.Name, On("Name"), 1, 1, ErrMissingColumn},
		{"cross missing b column", cross, category.Name, Columns{A: Cols("Name"), B: Cols("Nope")}, 1, 1, ErrMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel, err := tt.s.Compare(t.Context(), tt.cat, tt.cols, tt.threshold, tt.k)
			assert.Nil(t, rel)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = single.Compare(t.Context(), category.Name, On("Name", "Nope", "Other"), 1, 1)
	var ce *ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, nodeindex.SourceA, ce.Source)
	assert.Equal(t, []string{"Nope", "Other"}, ce.Columns)

	_, err = cross.Compare(t.Context(), category.Name, On("Name"), 1, 1)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, nodeindex.SourceB, ce.Source)
}

func TestCompare_Errors(t *testing.T) {
	a := relation(t, []string{"r1", "r2"}, col("Name", "alice", "alicia"))

	t.Run("backend failure", func(t *testing.T) {
		boom := errors.New("boom")
		mc := &BasicMetricsCollector{}
		s, err := New(a, nil, WithBackend(&stubBackend{err: boom}), WithMetricsCollector(mc))
		require.NoError(t, err)

		_, err = s.Compare(t.Context(), category.Name, On("Name"), 0.5, 1)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(1), mc.GetStats().CompareErrors)
		assert.Equal(t, int64(1), mc.GetStats().SearchErrors)
	})

	t.Run("out of range candidate", func(t *testing.T) {
		backend := &stubBackend{results: map[int][]similarity.Neighbor{0: {{Index: 7, Score: 1}}}}
		s, err := New(a, nil, WithBackend(backend))
		require.NoError(t, err)

		_, err = s.Compare(t.Context(), category.Name, On("Name"), 0.5, 1)
		assert.ErrorContains(t, err, "out of range")
	})

	t.Run("canceled context", func(t *testing.T) {
		s, err := New(a, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err = s.Compare(ctx, category.Name, On("Name"), 0.5, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCompare_CustomCategory(t *testing.T) {
	reg := category.NewRegistry()
	require.NoError(t, reg.Register("vat", category.Spec{Normalize: category.NormalizePhone, Mode: category.Word}))

	a := relation(t, []string{"r1", "r2"}, col("VAT", "DE-123 456", "de123456"))
	s, err := New(a, nil, WithRegistry(reg))
	require.NoError(t, err)

	rel, err := s.Compare(t.Context(), "vat", On("VAT"), 1, DefaultKNeighbors)
	require.NoError(t, err)
	assert.Equal(t, map[int][]string{0: {"r1", "r2"}}, groups(rel))
	assert.Equal(t, category.Category("vat"), rel.Category)
}

func TestCompareAll(t *testing.T) {
	a := relation(t, []string{"r1", "r2", "r3"},
		col("Phone", "555-0100", "555 0100", "555-0199"),
		col("Email", "x@y.com", "", "x@y.com"),
	)
	s, err := New(a, nil, WithMaxConcurrentCompares(2))
	require.NoError(t, err)

	results, err := s.CompareAll(t.Context(),
		Request{Category: category.Phone, Columns: On("Phone"), Threshold: 1, KNeighbors: DefaultKNeighbors},
		Request{Category: category.Email, Columns: On("Email"), Threshold: 1, KNeighbors: DefaultKNeighbors},
	)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, map[int][]string{0: {"r1", "r2"}}, groups(results[category.Phone]))
	assert.Equal(t, map[int][]string{0: {"r1", "r3"}}, groups(results[category.Email]))

	t.Run("duplicate category", func(t *testing.T) {
		_, err := s.CompareAll(t.Context(),
			Request{Category: category.Phone, Columns: On("Phone"), Threshold: 1, KNeighbors: 1},
			Request{Category: category.Phone, Columns: On("Phone"), Threshold: 1, KNeighbors: 1},
		)
		assert.ErrorIs(t, err, ErrInvalidCategory)
	})

	t.Run("one failure fails all", func(t *testing.T) {
		results, err := s.CompareAll(t.Context(),
			Request{Category: category.Phone, Columns: On("Phone"), Threshold: 1, KNeighbors: 1},
			Request{Category: category.Email, Columns: On("Nope"), Threshold: 1, KNeighbors: 1},
		)
		assert.ErrorIs(t, err, ErrMissingColumn)
		assert.Nil(t, results)
	})
}
