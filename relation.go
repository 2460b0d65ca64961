package entitynet

import (
	"cmp"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/entitynet/category"
	"github.com/hupe1980/entitynet/nodeindex"
)

// Match is one related occurrence of a category: a node, the column it came
// from, and its ids.
type Match[K comparable] struct {
	Node   nodeindex.Node `json:"node"`
	Column string         `json:"column"`
	Value  string         `json:"value"`

	// ExactID groups occurrences with an identical normalised value.
	ExactID *int `json:"exact_id"`
	// SimilarID groups occurrences joined by similarity edges. Identical
	// values share one vertex, so a similar group may consist of repeated
	// identical values alone, without any accepted edge.
	SimilarID *int `json:"similar_id"`
	// CategoryID is the fused id. All occurrences of one node share it.
	CategoryID int `json:"category_id"`

	nodeindex.Ref[K]
}

// Score is one similarity edge between two distinct normalised values.
type Score struct {
	Value     string  `json:"value"`
	Similar   string  `json:"similar_value"`
	Score     float32 `json:"score"`
	Accepted  bool    `json:"accepted"`
	SimilarID *int    `json:"similar_id"`
	// Difference lists the terms found in only one of the two values, as
	// split by the category's analyzer.
	Difference []string `json:"difference,omitempty"`
}

// StageTiming is the duration of one comparator stage.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// CategoryRelation is the result of comparing one category: every occurrence
// that relates at least two distinct rows. It is immutable.
type CategoryRelation[K comparable] struct {
	Category   category.Category `json:"category"`
	Threshold  float64           `json:"threshold"`
	KNeighbors int               `json:"kneighbors"`

	// Rows are ordered by node, then by column selection order.
	Rows []Match[K] `json:"rows"`

	// Scores lists the similarity edges considered, unless disabled.
	Scores []Score `json:"scores,omitempty"`

	// Saturated counts queries whose k-th candidate still met the threshold.
	Saturated int `json:"saturated_queries"`

	Timings []StageTiming `json:"timings"`
}

// Len returns the number of rows.
func (r *CategoryRelation[K]) Len() int {
	return len(r.Rows)
}

// Nodes returns the set of related nodes.
func (r *CategoryRelation[K]) Nodes() *roaring.Bitmap {
	bm := roaring.New()
	for _, m := range r.Rows {
		bm.Add(uint32(m.Node))
	}
	return bm
}

// IDs maps every related node to its category id.
func (r *CategoryRelation[K]) IDs() map[nodeindex.Node]int {
	ids := make(map[nodeindex.Node]int, len(r.Rows))
	for _, m := range r.Rows {
		ids[m.Node] = m.CategoryID
	}
	return ids
}

// Groups maps every category id to its nodes in ascending order.
func (r *CategoryRelation[K]) Groups() map[int][]nodeindex.Node {
	sets := make(map[int]*roaring.Bitmap)
	for _, m := range r.Rows {
		bm, ok := sets[m.CategoryID]
		if !ok {
			bm = roaring.New()
			sets[m.CategoryID] = bm
		}
		bm.Add(uint32(m.Node))
	}

	groups := make(map[int][]nodeindex.Node, len(sets))
	for id, bm := range sets {
		nodes := make([]nodeindex.Node, 0, bm.GetCardinality())
		it := bm.Iterator()
		for it.HasNext() {
			nodes = append(nodes, nodeindex.Node(it.Next()))
		}
		groups[id] = nodes
	}
	return groups
}

// ClusterEdges returns the accepted edges with the lowest scores and the
// rejected edges with the highest scores, at most limit of each: the edges
// closest to the threshold on either side.
func (r *CategoryRelation[K]) ClusterEdges(limit int) (in, out []Score) {
	for _, s := range r.Scores {
		if s.Accepted {
			in = append(in, s)
		} else {
			out = append(out, s)
		}
	}

	byScore := func(a, b Score) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Value, b.Value); c != 0 {
			return c
		}
		return cmp.Compare(a.Similar, b.Similar)
	}
	slices.SortStableFunc(in, byScore)
	slices.SortStableFunc(out, func(a, b Score) int { return -byScore(a, b) })

	if limit >= 0 {
		in = in[:min(limit, len(in))]
		out = out[:min(limit, len(out))]
	}
	return in, out
}
