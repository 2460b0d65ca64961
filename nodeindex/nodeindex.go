// Package nodeindex assigns dense node ids to the rows of one or two relations
// and translates node ids back to the original row identifiers.
//
// Rows of relation A receive nodes [0, |A|) and rows of relation B receive
// nodes [|A|, |A|+|B|), so every node of B is greater than every node of A.
package nodeindex

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/entitynet/table"
)

var (
	// ErrDuplicatedIndex is returned when a relation's row identifiers are not unique.
	ErrDuplicatedIndex = errors.New("duplicated index")

	// ErrTooManyRows is returned when the relations do not fit the node id space.
	ErrTooManyRows = errors.New("too many rows for node id space")
)

// Node is the dense id of one input row.
type Node uint32

// Source tags the relation a node belongs to.
type Source uint8

const (
	// SourceA is the first (or only) relation.
	SourceA Source = iota
	// SourceB is the second relation.
	SourceB
)

// String returns "a" or "b".
func (s Source) String() string {
	if s == SourceB {
		return "b"
	}
	return "a"
}

// Ref is a node translated back to its original identifier.
// Exactly one of SourceA and SourceB is set.
type Ref[K comparable] struct {
	SourceA *K `json:"source_a_index"`
	SourceB *K `json:"source_b_index"`
}

// Map is the bidirectional node mapping of a session. It is immutable and safe
// for concurrent reads.
type Map[K comparable] struct {
	keys   []K
	sizeA  int
	hasB   bool
	lookup [2]map[K]Node
}

// Assign numbers the rows of a and b. b may be nil when only one relation is
// compared.
func Assign[K comparable](a, b *table.Relation[K]) (*Map[K], error) {
	sizeA, sizeB := a.Len(), 0
	if b != nil {
		sizeB = b.Len()
	}
	if uint64(sizeA)+uint64(sizeB) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d rows", ErrTooManyRows, sizeA+sizeB)
	}

	m := &Map[K]{
		keys:  make([]K, 0, sizeA+sizeB),
		sizeA: sizeA,
		hasB:  b != nil,
	}

	if err := m.add(SourceA, a); err != nil {
		return nil, err
	}
	if b != nil {
		if err := m.add(SourceB, b); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Map[K]) add(src Source, r *table.Relation[K]) error {
	lookup := make(map[K]Node, r.Len())
	for i := 0; i < r.Len(); i++ {
		key := r.Key(i)
		if _, ok := lookup[key]; ok {
			return fmt.Errorf("%w: relation %s has duplicate identifier %v", ErrDuplicatedIndex, src, key)
		}
		lookup[key] = Node(len(m.keys))
		m.keys = append(m.keys, key)
	}
	m.lookup[src] = lookup
	return nil
}

// Len returns the total number of nodes.
func (m *Map[K]) Len() int {
	return len(m.keys)
}

// SizeA returns the number of rows in relation A.
func (m *Map[K]) SizeA() int {
	return m.sizeA
}

// SizeB returns the number of rows in relation B.
func (m *Map[K]) SizeB() int {
	return len(m.keys) - m.sizeA
}

// HasB reports whether a second relation was assigned.
func (m *Map[K]) HasB() bool {
	return m.hasB
}

// Source returns the relation n belongs to.
func (m *Map[K]) Source(n Node) Source {
	if int(n) >= m.sizeA {
		return SourceB
	}
	return SourceA
}

// Key returns the original identifier of n.
func (m *Map[K]) Key(n Node) K {
	return m.keys[n]
}

// Row returns the relation-local row position of n.
func (m *Map[K]) Row(n Node) int {
	if int(n) >= m.sizeA {
		return int(n) - m.sizeA
	}
	return int(n)
}

// Node returns the node of the row at position row in relation src.
func (m *Map[K]) Node(src Source, row int) Node {
	if src == SourceB {
		return Node(m.sizeA + row)
	}
	return Node(row)
}

// Lookup returns the node of the row identified by key in relation src.
func (m *Map[K]) Lookup(src Source, key K) (Node, bool) {
	lookup := m.lookup[src]
	if lookup == nil {
		return 0, false
	}
	n, ok := lookup[key]
	return n, ok
}

// Translate splits n into its source-specific original identifier.
func (m *Map[K]) Translate(n Node) Ref[K] {
	key := m.keys[n]
	if m.Source(n) == SourceB {
		return Ref[K]{SourceB: &key}
	}
	return Ref[K]{SourceA: &key}
}
