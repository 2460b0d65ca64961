package entitynet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/entitynet/category"
	"github.com/hupe1980/entitynet/nodeindex"
)

var (
	// ErrDuplicatedIndex is returned when a relation's row identifiers are not unique.
	ErrDuplicatedIndex = nodeindex.ErrDuplicatedIndex

	// ErrInvalidCategory is returned when a category is not registered with the session.
	ErrInvalidCategory = category.ErrInvalidCategory

	// ErrMissingColumn is returned when a compared column does not exist.
	ErrMissingColumn = errors.New("missing column")

	// ErrThresholdRange is returned when the threshold is outside (0, 1].
	ErrThresholdRange = errors.New("threshold must be in (0, 1]")

	// ErrKneighborsRange is returned when kneighbors is not a positive integer.
	ErrKneighborsRange = errors.New("kneighbors must be a positive integer")

	// ErrReservedColumn is returned when an input relation uses an output column name.
	ErrReservedColumn = errors.New("reserved column")

	// ErrNilRelation is returned when the first relation is nil.
	ErrNilRelation = errors.New("relation a must not be nil")

	// ErrForeignRelation is returned when a category relation references a
	// node that does not belong to the session.
	ErrForeignRelation = errors.New("relation from another session")
)

// ReservedColumns are the output column names an input relation may not use.
var ReservedColumns = []string{
	"node",
	"column",
	"exact_id",
	"similar_id",
	"category_id",
	"network_id",
	"entity_id",
	"source_a_index",
	"source_b_index",
}

// ColumnError reports compared columns that are absent from a relation.
//
// It matches ErrMissingColumn via errors.Is.
type ColumnError struct {
	Source  nodeindex.Source
	Columns []string
}

func (e *ColumnError) Error() string {
	if len(e.Columns) == 0 {
		return fmt.Sprintf("missing column: no columns selected for relation %s", e.Source)
	}
	return fmt.Sprintf("missing column: relation %s has no column %s", e.Source, strings.Join(e.Columns, ", "))
}

func (e *ColumnError) Unwrap() error { return ErrMissingColumn }
