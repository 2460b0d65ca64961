package entitynet

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/entitynet/category"
	"github.com/hupe1980/entitynet/internal/graph"
	"github.com/hupe1980/entitynet/internal/unionfind"
	"github.com/hupe1980/entitynet/nodeindex"
	"github.com/hupe1980/entitynet/similarity"
	"github.com/hupe1980/entitynet/tfidf"
)

type fuzzyResult struct {
	similar   []int
	scores    []Score
	saturated int
}

// fuzzy assigns similar ids to occurrences. Every distinct value of a side is
// one vertex; an edge joins two vertices whose similarity meets the
// threshold. Components spanning at least two nodes get an id, and with two
// relations a component must also touch both of them.
func (s *Session[K]) fuzzy(ctx context.Context, timer *stageTimer, spec category.Spec, occ []occurrence, threshold float64, k int) (fuzzyResult, error) {
	cross := s.b != nil

	side := func(o occurrence) int {
		if cross && s.nodes.Source(o.node) == nodeindex.SourceB {
			return 1
		}
		return 0
	}

	var values [2][]string
	seen := [2]map[string]struct{}{{}, {}}
	for _, o := range occ {
		sd := side(o)
		if _, ok := seen[sd][o.value]; !ok {
			seen[sd][o.value] = struct{}{}
			values[sd] = append(values[sd], o.value)
		}
	}
	slices.Sort(values[0])
	slices.Sort(values[1])

	offset := [2]int{0, len(values[0])}
	vertexOf := [2]map[string]int{
		make(map[string]int, len(values[0])),
		make(map[string]int, len(values[1])),
	}
	for sd := range values {
		for i, v := range values[sd] {
			vertexOf[sd][v] = offset[sd] + i
		}
	}

	analyzer := s.analyzer(spec.Mode)
	vz := tfidf.New(analyzer).Fit(values[0])
	index := vz.Transform(values[0])
	queries, queryValues, queryOffset := index, values[0], 0
	if cross {
		queries, queryValues, queryOffset = vz.Transform(values[1]), values[1], offset[1]
	}
	timer.mark("tfidf")

	var res fuzzyResult
	nv := len(values[0]) + len(values[1])
	b := graph.NewBuilder(nv, len(queries))

	type edge struct {
		src, dst int
		score    float32
		accepted bool
	}
	var edges []edge

	if len(index) > 0 && len(queries) > 0 {
		start := time.Now()
		neighbors, err := s.backend.Search(ctx, index, queries, k)
		s.opts.metricsCollector.RecordSearch(len(queries), k, time.Since(start), err)
		if err != nil {
			return res, fmt.Errorf("similarity search: %w", err)
		}
		if len(neighbors) != len(queries) {
			return res, fmt.Errorf("similarity search: %d result lists for %d queries", len(neighbors), len(queries))
		}

		for qi, list := range neighbors {
			src := queryOffset + qi
			self := -1
			if !cross {
				self = src
			}
			if saturated(list, k, threshold, self) {
				res.saturated++
			}
			for _, nb := range list {
				if nb.Index < 0 || nb.Index >= len(index) {
					return res, fmt.Errorf("similarity search: candidate %d out of range", nb.Index)
				}
				if src == nb.Index {
					continue
				}
				accepted := float64(nb.Score) >= threshold
				if accepted {
					b.AddEdge(uint32(src), uint32(nb.Index))
				}
				if s.opts.keepScores {
					edges = append(edges, edge{src: src, dst: nb.Index, score: nb.Score, accepted: accepted})
				}
			}
		}
	}
	timer.mark("search")

	labels, count := b.Build().Components()

	vertex := make([]int, len(occ))
	nodesOf := make([]*roaring.Bitmap, count)
	sidesOf := make([]uint8, count)
	for i, o := range occ {
		sd := side(o)
		v := vertexOf[sd][o.value]
		vertex[i] = v
		c := labels[v]
		if nodesOf[c] == nil {
			nodesOf[c] = roaring.New()
		}
		nodesOf[c].Add(uint32(o.node))
		sidesOf[c] |= 1 << sd
	}

	want := uint8(1)
	if cross {
		want = 3
	}
	simID := make([]int, count)
	next := 0
	for c := range simID {
		simID[c] = -1
		if nodesOf[c] != nil && nodesOf[c].GetCardinality() >= 2 && sidesOf[c] == want {
			simID[c] = next
			next++
		}
	}

	res.similar = make([]int, len(occ))
	for i, v := range vertex {
		res.similar[i] = simID[labels[v]]
	}

	valueOf := func(v int) string {
		if v >= offset[1] && cross {
			return values[1][v-offset[1]]
		}
		return values[0][v]
	}
	terms := newTermSets(analyzer)
	for _, e := range edges {
		value, similar := queryValues[e.src-queryOffset], valueOf(e.dst)
		sc := Score{
			Value:      value,
			Similar:    similar,
			Score:      e.score,
			Accepted:   e.accepted,
			Difference: terms.difference(value, similar),
		}
		if e.accepted {
			if id := simID[labels[e.src]]; id >= 0 {
				sc.SimilarID = &id
			}
		}
		res.scores = append(res.scores, sc)
	}
	timer.mark("cluster")

	return res, nil
}

// saturated reports whether all k candidate slots of a query were filled with
// scores at or above the threshold. A self hit does not count as a candidate:
// the lowest ranked other candidate decides, and a list holding only the
// self hit is never saturated.
func saturated(list []similarity.Neighbor, k int, threshold float64, self int) bool {
	if len(list) < k {
		return false
	}
	for i := k - 1; i >= 0; i-- {
		if list[i].Index == self {
			continue
		}
		return float64(list[i].Score) >= threshold
	}
	return false
}

// termSets caches the analyzed term sets of values.
type termSets struct {
	analyzer tfidf.Analyzer
	sets     map[string]map[string]struct{}
}

func newTermSets(analyzer tfidf.Analyzer) *termSets {
	return &termSets{analyzer: analyzer, sets: make(map[string]map[string]struct{})}
}

func (t *termSets) get(value string) map[string]struct{} {
	set, ok := t.sets[value]
	if !ok {
		set = make(map[string]struct{})
		for _, term := range t.analyzer(value) {
			set[term] = struct{}{}
		}
		t.sets[value] = set
	}
	return set
}

// difference returns the terms found in exactly one of a and b, sorted.
func (t *termSets) difference(a, b string) []string {
	sa, sb := t.get(a), t.get(b)

	var diff []string
	for term := range sa {
		if _, ok := sb[term]; !ok {
			diff = append(diff, term)
		}
	}
	for term := range sb {
		if _, ok := sa[term]; !ok {
			diff = append(diff, term)
		}
	}
	slices.Sort(diff)
	return diff
}

// fuse merges exact and similar ids into draft groups. Occurrences sharing a
// node, an exact id or a similar id end up in the same group. It returns the
// group root of every occurrence, or -1 for occurrences without ids.
func fuse(occ []occurrence, exact, similar []int) []int {
	drafts := make(map[[2]int]int)
	draftOf := make([]int, len(occ))
	for i := range occ {
		draftOf[i] = -1
		if exact[i] < 0 && similar[i] < 0 {
			continue
		}
		key := [2]int{exact[i], similar[i]}
		d, ok := drafts[key]
		if !ok {
			d = len(drafts)
			drafts[key] = d
		}
		draftOf[i] = d
	}

	uf := unionfind.New(len(drafts))
	byNode := make(map[nodeindex.Node]int)
	byExact := make(map[int]int)
	bySimilar := make(map[int]int)
	for i, d := range draftOf {
		if d < 0 {
			continue
		}
		link(uf, byNode, occ[i].node, d)
		if exact[i] >= 0 {
			link(uf, byExact, exact[i], d)
		}
		if similar[i] >= 0 {
			link(uf, bySimilar, similar[i], d)
		}
	}

	roots := make([]int, len(occ))
	for i, d := range draftOf {
		roots[i] = -1
		if d >= 0 {
			roots[i] = uf.Find(d)
		}
	}
	return roots
}

func link[T comparable](uf *unionfind.UnionFind, first map[T]int, key T, d int) {
	if prev, ok := first[key]; ok {
		uf.Union(prev, d)
		return
	}
	first[key] = d
}

// prune drops groups spanning a single node and numbers the rest in order of
// first occurrence. Dropped occurrences get -1.
func prune(occ []occurrence, roots []int) []int {
	nodesOf := make(map[int]*roaring.Bitmap)
	for i, root := range roots {
		if root < 0 {
			continue
		}
		bm, ok := nodesOf[root]
		if !ok {
			bm = roaring.New()
			nodesOf[root] = bm
		}
		bm.Add(uint32(occ[i].node))
	}

	ids := make([]int, len(occ))
	dense := make(map[int]int)
	for i, root := range roots {
		ids[i] = -1
		if root < 0 || nodesOf[root].GetCardinality() < 2 {
			continue
		}
		id, ok := dense[root]
		if !ok {
			id = len(dense)
			dense[root] = id
		}
		ids[i] = id
	}
	return ids
}
