package entitynet

import (
	"slices"
	"strings"

	"github.com/hupe1980/entitynet/table"
)

// Selector picks the value compared for one column slot: either a single
// column, or several columns joined into one value.
type Selector struct {
	names []string
}

// Col selects a single column.
func Col(name string) Selector {
	return Selector{names: []string{name}}
}

// Join selects several columns whose non-null cells are joined by a space,
// such as street, city and zip of one address.
func Join(names ...string) Selector {
	return Selector{names: slices.Clone(names)}
}

// Name is the output column name: the column names joined by ",".
func (s Selector) Name() string {
	return strings.Join(s.names, ",")
}

// Names returns the underlying column names.
func (s Selector) Names() []string {
	return slices.Clone(s.names)
}

func (s Selector) value(r cellReader, row int) string {
	if len(s.names) == 1 {
		v, _ := r.Value(s.names[0], row)
		return v
	}
	parts := make([]string, 0, len(s.names))
	for _, name := range s.names {
		if v, _ := r.Value(name, row); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

type cellReader interface {
	Value(name string, row int) (string, bool)
	HasColumn(name string) bool
}

// Cols selects each named column on its own.
func Cols(names ...string) []Selector {
	sels := make([]Selector, len(names))
	for i, n := range names {
		sels[i] = Col(n)
	}
	return sels
}

// Columns names the compared columns per relation.
type Columns struct {
	A []Selector
	B []Selector
}

// On selects the named columns of relation A. Use a Columns literal when a
// second relation is compared.
func On(names ...string) Columns {
	return Columns{A: Cols(names...)}
}

func missingColumns[K comparable](r *table.Relation[K], sels []Selector) []string {
	var missing []string
	for _, s := range sels {
		for _, name := range s.names {
			if !r.HasColumn(name) && !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
		}
	}
	return missing
}
