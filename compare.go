package entitynet

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/entitynet/category"
	"github.com/hupe1980/entitynet/nodeindex"
	"github.com/hupe1980/entitynet/table"
	"github.com/hupe1980/entitynet/tfidf"
)

// Request is one category comparison of a CompareAll call.
type Request struct {
	Category   category.Category
	Columns    Columns
	Threshold  float64
	KNeighbors int
}

// occurrence is one normalised cell: a node, the index of its output column
// name, and the value.
type occurrence struct {
	node   nodeindex.Node
	column int
	value  string
}

// Compare relates the rows of the session on one category.
//
// threshold is the minimum similarity in (0, 1] for a fuzzy match; 1 compares
// exact values only. kneighbors is the number of candidates requested per
// similarity query. With two relations only matches across the relations are
// reported, and columns must be given for both.
func (s *Session[K]) Compare(ctx context.Context, cat category.Category, cols Columns, threshold float64, kneighbors int) (*CategoryRelation[K], error) {
	start := time.Now()
	log := s.opts.logger.WithCategory(cat)

	rel, occurrences, err := s.compare(ctx, log, cat, cols, threshold, kneighbors)

	d := time.Since(start)
	rows := 0
	if rel != nil {
		rows = rel.Len()
	}
	log.LogCompare(ctx, occurrences, rows, d, err)
	s.opts.metricsCollector.RecordCompare(string(cat), occurrences, rows, d, err)

	if err != nil {
		return nil, err
	}
	return rel, nil
}

// CompareAll runs independent category comparisons concurrently, bounded by
// WithMaxConcurrentCompares. It fails if any comparison fails; no partial
// results are returned.
func (s *Session[K]) CompareAll(ctx context.Context, reqs ...Request) (map[category.Category]*CategoryRelation[K], error) {
	seen := make(map[category.Category]struct{}, len(reqs))
	for _, r := range reqs {
		if _, ok := seen[r.Category]; ok {
			return nil, fmt.Errorf("%w: %q requested more than once", ErrInvalidCategory, r.Category)
		}
		seen[r.Category] = struct{}{}
	}

	results := make([]*CategoryRelation[K], len(reqs))
	g, ctx := errgroup.WithContext(ctx)

	for i, req := range reqs {
		g.Go(func() error {
			if err := s.rc.AcquireJob(ctx); err != nil {
				return err
			}
			defer s.rc.ReleaseJob()

			rel, err := s.Compare(ctx, req.Category, req.Columns, req.Threshold, req.KNeighbors)
			if err != nil {
				return fmt.Errorf("compare %s: %w", req.Category, err)
			}
			results[i] = rel
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[category.Category]*CategoryRelation[K], len(reqs))
	for i, req := range reqs {
		out[req.Category] = results[i]
	}
	return out, nil
}

func (s *Session[K]) validate(cat category.Category, cols Columns, threshold float64, kneighbors int) (category.Spec, error) {
	spec, err := s.registry.Lookup(cat)
	if err != nil {
		return spec, err
	}
	if kneighbors < 1 {
		return spec, fmt.Errorf("%w: got %d", ErrKneighborsRange, kneighbors)
	}
	if math.IsNaN(threshold) || threshold <= 0 || threshold > 1 {
		return spec, fmt.Errorf("%w: got %v", ErrThresholdRange, threshold)
	}

	if err := checkColumns(nodeindex.SourceA, s.a, cols.A); err != nil {
		return spec, err
	}
	if s.b != nil {
		if err := checkColumns(nodeindex.SourceB, s.b, cols.B); err != nil {
			return spec, err
		}
	} else if len(cols.B) > 0 {
		var names []string
		for _, sel := range cols.B {
			names = append(names, sel.names...)
		}
		return spec, &ColumnError{Source: nodeindex.SourceB, Columns: names}
	}

	return spec, nil
}

func checkColumns[K comparable](src nodeindex.Source, r *table.Relation[K], sels []Selector) error {
	if len(sels) == 0 {
		return &ColumnError{Source: src}
	}
	for _, sel := range sels {
		if len(sel.names) == 0 {
			return &ColumnError{Source: src}
		}
	}
	if missing := missingColumns(r, sels); len(missing) > 0 {
		return &ColumnError{Source: src, Columns: missing}
	}
	return nil
}

func (s *Session[K]) compare(ctx context.Context, log *Logger, cat category.Category, cols Columns, threshold float64, kneighbors int) (*CategoryRelation[K], int, error) {
	spec, err := s.validate(cat, cols, threshold, kneighbors)
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	timer := newStageTimer(ctx, log)

	occ, names := s.flatten(spec, cols)
	timer.mark("flatten")

	exact := s.exactGroups(occ)
	timer.mark("exact")

	rel := &CategoryRelation[K]{
		Category:   cat,
		Threshold:  threshold,
		KNeighbors: kneighbors,
	}

	similar := make([]int, len(occ))
	for i := range similar {
		similar[i] = -1
	}

	if threshold < 1 && len(occ) > 0 {
		fr, err := s.fuzzy(ctx, timer, spec, occ, threshold, kneighbors)
		if err != nil {
			return nil, len(occ), err
		}
		similar = fr.similar
		rel.Scores = fr.scores
		rel.Saturated = fr.saturated
		if fr.saturated > 0 {
			log.LogSaturation(ctx, fr.saturated, kneighbors, threshold)
			s.opts.metricsCollector.RecordSaturation(string(cat), fr.saturated)
		}
	}

	roots := fuse(occ, exact, similar)
	timer.mark("fuse")

	fused := prune(occ, roots)
	timer.mark("prune")

	rel.Rows = s.translate(occ, names, exact, similar, fused)
	timer.mark("translate")

	rel.Timings = timer.timings
	return rel, len(occ), nil
}

// flatten normalises the selected cells row by row. Relation A comes first,
// so occurrences are ordered by node and then by selector.
func (s *Session[K]) flatten(spec category.Spec, cols Columns) ([]occurrence, []string) {
	var (
		occ   []occurrence
		names []string
	)

	add := func(src nodeindex.Source, r *table.Relation[K], sels []Selector) {
		base := len(names)
		for _, sel := range sels {
			names = append(names, sel.Name())
		}
		for row := 0; row < r.Len(); row++ {
			node := s.nodes.Node(src, row)
			for i, sel := range sels {
				raw := sel.value(r, row)
				if raw == "" {
					continue
				}
				v, ok := spec.Normalize(raw)
				if !ok || v == "" {
					continue
				}
				occ = append(occ, occurrence{node: node, column: base + i, value: v})
			}
		}
	}

	add(nodeindex.SourceA, s.a, cols.A)
	if s.b != nil {
		add(nodeindex.SourceB, s.b, cols.B)
	}

	return occ, names
}

// exactGroups assigns an exact id to every value occurring at least twice.
// With two relations a value must occur in both. Ids follow value order.
func (s *Session[K]) exactGroups(occ []occurrence) []int {
	byValue := make(map[string][]int)
	for i, o := range occ {
		byValue[o.value] = append(byValue[o.value], i)
	}

	var values []string
	for v, members := range byValue {
		if len(members) < 2 {
			continue
		}
		if s.b != nil && !s.spansBoth(occ, members) {
			continue
		}
		values = append(values, v)
	}
	slices.Sort(values)

	ids := make([]int, len(occ))
	for i := range ids {
		ids[i] = -1
	}
	for id, v := range values {
		for _, i := range byValue[v] {
			ids[i] = id
		}
	}
	return ids
}

func (s *Session[K]) spansBoth(occ []occurrence, members []int) bool {
	var a, b bool
	for _, i := range members {
		if s.nodes.Source(occ[i].node) == nodeindex.SourceB {
			b = true
		} else {
			a = true
		}
		if a && b {
			return true
		}
	}
	return false
}

func (s *Session[K]) analyzer(mode category.Mode) tfidf.Analyzer {
	if mode == category.Word {
		return tfidf.Words()
	}
	return tfidf.CharNGrams(s.opts.charMinN, s.opts.charMaxN)
}

func (s *Session[K]) translate(occ []occurrence, names []string, exact, similar, fused []int) []Match[K] {
	var rows []Match[K]
	for i, o := range occ {
		if fused[i] < 0 {
			continue
		}
		m := Match[K]{
			Node:       o.node,
			Column:     names[o.column],
			Value:      o.value,
			CategoryID: fused[i],
			Ref:        s.nodes.Translate(o.node),
		}
		if e := exact[i]; e >= 0 {
			m.ExactID = &e
		}
		if sim := similar[i]; sim >= 0 {
			m.SimilarID = &sim
		}
		rows = append(rows, m)
	}

	columnOf := make(map[string]int, len(names))
	for i, n := range names {
		if _, ok := columnOf[n]; !ok {
			columnOf[n] = i
		}
	}
	slices.SortStableFunc(rows, func(a, b Match[K]) int {
		if c := cmp.Compare(a.Node, b.Node); c != 0 {
			return c
		}
		return cmp.Compare(columnOf[a.Column], columnOf[b.Column])
	})

	return rows
}

// stageTimer records the duration between consecutive marks.
type stageTimer struct {
	ctx     context.Context
	log     *Logger
	last    time.Time
	timings []StageTiming
}

func newStageTimer(ctx context.Context, log *Logger) *stageTimer {
	return &stageTimer{ctx: ctx, log: log, last: time.Now()}
}

func (t *stageTimer) mark(stage string) {
	now := time.Now()
	d := now.Sub(t.last)
	t.last = now
	t.timings = append(t.timings, StageTiming{Stage: stage, Duration: d})
	t.log.LogStage(t.ctx, stage, d)
}
