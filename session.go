package entitynet

import (
	"fmt"
	"slices"

	"github.com/hupe1980/entitynet/category"
	"github.com/hupe1980/entitynet/nodeindex"
	"github.com/hupe1980/entitynet/resource"
	"github.com/hupe1980/entitynet/similarity"
	"github.com/hupe1980/entitynet/table"
)

// DefaultKNeighbors is a reasonable number of candidates per similarity query.
const DefaultKNeighbors = 10

// Session holds the relations being resolved and their node index.
// It carries no per-category state: results are returned to the caller.
type Session[K comparable] struct {
	a, b     *table.Relation[K]
	nodes    *nodeindex.Map[K]
	registry *category.Registry
	backend  similarity.Backend
	rc       *resource.Controller
	opts     options
}

// New validates the relations and assigns node ids. b may be nil to resolve
// rows within a single relation.
func New[K comparable](a, b *table.Relation[K], optFns ...Option) (*Session[K], error) {
	if a == nil {
		return nil, ErrNilRelation
	}

	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	for src, r := range []*table.Relation[K]{a, b} {
		if r == nil {
			continue
		}
		src := nodeindex.Source(src)
		for _, name := range r.Columns() {
			if slices.Contains(ReservedColumns, name) {
				return nil, fmt.Errorf("%w: relation %s has column %q", ErrReservedColumn, src, name)
			}
		}
	}

	nodes, err := nodeindex.Assign(a, b)
	if err != nil {
		return nil, err
	}

	backend := o.backend
	if backend == nil {
		backend = similarity.NewInvertedIndex(similarity.WithWorkers(o.searchWorkers))
	}

	o.logger.Debug("session created",
		"rows_a", nodes.SizeA(),
		"rows_b", nodes.SizeB(),
	)

	return &Session[K]{
		a:        a,
		b:        b,
		nodes:    nodes,
		registry: o.registry.Clone(),
		backend:  backend,
		rc:       o.controller(),
		opts:     o,
	}, nil
}

// Nodes returns the node index of the session.
func (s *Session[K]) Nodes() *nodeindex.Map[K] {
	return s.nodes
}

// CrossRelation reports whether two relations are compared.
func (s *Session[K]) CrossRelation() bool {
	return s.b != nil
}

// Categories returns the categories the session can compare.
func (s *Session[K]) Categories() []category.Category {
	return s.registry.Categories()
}
