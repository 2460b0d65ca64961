// Package table holds the input relations compared by entitynet.
//
// A Relation is a column-oriented table of strings with one row identifier per
// row. Identifiers can be of any comparable type; uniqueness is checked when
// nodes are assigned. An empty string is a null cell.
package table

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrLengthMismatch is returned when a column's length differs from the index length.
	ErrLengthMismatch = errors.New("column length does not match index length")

	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Column is a named column of cell values.
type Column struct {
	Name   string
	Values []string
}

// Relation is an immutable table keyed by row identifiers of type K.
type Relation[K comparable] struct {
	index   []K
	order   []string
	columns map[string][]string
}

// New creates a relation from its row identifiers and columns.
// The slices are copied; the caller may reuse them afterwards.
func New[K comparable](index []K, columns ...Column) (*Relation[K], error) {
	r := &Relation[K]{
		index:   slices.Clone(index),
		order:   make([]string, 0, len(columns)),
		columns: make(map[string][]string, len(columns)),
	}

	for _, c := range columns {
		if len(c.Values) != len(index) {
			return nil, fmt.Errorf("%w: column %q has %d values, index has %d", ErrLengthMismatch, c.Name, len(c.Values), len(index))
		}
		if _, ok := r.columns[c.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		r.order = append(r.order, c.Name)
		r.columns[c.Name] = slices.Clone(c.Values)
	}

	return r, nil
}

// FromRecords builds a relation from row-oriented records. Missing keys in a
// record become null cells. Column order follows the columns argument.
func FromRecords[K comparable](index []K, columns []string, records []map[string]string) (*Relation[K], error) {
	if len(records) != len(index) {
		return nil, fmt.Errorf("%w: %d records, index has %d", ErrLengthMismatch, len(records), len(index))
	}

	cols := make([]Column, len(columns))
	for i, name := range columns {
		values := make([]string, len(records))
		for row, rec := range records {
			values[row] = rec[name]
		}
		cols[i] = Column{Name: name, Values: values}
	}

	return New(index, cols...)
}

// Len returns the number of rows.
func (r *Relation[K]) Len() int {
	return len(r.index)
}

// Key returns the identifier of row i.
func (r *Relation[K]) Key(i int) K {
	return r.index[i]
}

// Index returns a copy of the row identifiers.
func (r *Relation[K]) Index() []K {
	return slices.Clone(r.index)
}

// Columns returns the column names in insertion order.
func (r *Relation[K]) Columns() []string {
	return slices.Clone(r.order)
}

// HasColumn reports whether a column exists.
func (r *Relation[K]) HasColumn(name string) bool {
	_, ok := r.columns[name]
	return ok
}

// Value returns the cell at row i of the named column.
// The second result is false if the column does not exist.
func (r *Relation[K]) Value(name string, i int) (string, bool) {
	col, ok := r.columns[name]
	if !ok {
		return "", false
	}
	return col[i], true
}
