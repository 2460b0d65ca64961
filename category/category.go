// Package category defines the feature categories entitynet compares and the
// capability table behind them: a normaliser that maps raw cells to comparable
// strings, and the tokenizer mode used to build similarity vectors.
//
// The built-in categories are Name, Phone, Email, EmailDomain and Address.
// Additional categories can be registered on a Registry.
package category

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrInvalidCategory is returned when a category is not registered.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidSpec is returned when a category is registered without a normaliser.
	ErrInvalidSpec = errors.New("invalid category spec")
)

// Category names a feature domain.
type Category string

const (
	Name        Category = "name"
	Phone       Category = "phone"
	Email       Category = "email"
	EmailDomain Category = "email_domain"
	Address     Category = "address"
)

// Mode selects how values are split into terms for similarity vectors.
type Mode uint8

const (
	// Char builds character n-grams.
	Char Mode = iota
	// Word builds word unigrams.
	Word
)

// String returns "char" or "word".
func (m Mode) String() string {
	switch m {
	case Char:
		return "char"
	case Word:
		return "word"
	default:
		return fmt.Sprintf("mode(%d)", m)
	}
}

// Normalizer maps a raw cell to its comparable form.
// ok is false when the value normalises to nothing.
type Normalizer func(raw string) (value string, ok bool)

// Spec is the capability record of one category.
type Spec struct {
	Normalize Normalizer
	Mode      Mode
}

// Registry maps categories to their specs. A Registry is not safe for
// concurrent mutation; sessions take a snapshot with Clone.
type Registry struct {
	specs map[Category]Spec
}

// NewRegistry creates a registry holding the built-in categories.
func NewRegistry() *Registry {
	return &Registry{specs: map[Category]Spec{
		Name:        {Normalize: NormalizeName, Mode: Char},
		Phone:       {Normalize: NormalizePhone, Mode: Word},
		Email:       {Normalize: NormalizeEmail, Mode: Char},
		EmailDomain: {Normalize: NormalizeEmailDomain, Mode: Char},
		Address:     {Normalize: NormalizeAddress, Mode: Word},
	}}
}

// Register adds or replaces a category.
func (r *Registry) Register(c Category, s Spec) error {
	if c == "" {
		return fmt.Errorf("%w: empty category name", ErrInvalidSpec)
	}
	if s.Normalize == nil {
		return fmt.Errorf("%w: category %q has no normalizer", ErrInvalidSpec, c)
	}
	if s.Mode != Char && s.Mode != Word {
		return fmt.Errorf("%w: category %q has %s", ErrInvalidSpec, c, s.Mode)
	}
	r.specs[c] = s
	return nil
}

// Lookup returns the Spec registered for c.
func (r *Registry) Lookup(c Category) (Spec, error) {
	s, ok := r.specs[c]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidCategory, c)
	}
	return s, nil
}

// Categories returns the registered categories in sorted order.
func (r *Registry) Categories() []Category {
	return slices.Sorted(maps.Keys(r.specs))
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	return &Registry{specs: maps.Clone(r.specs)}
}
