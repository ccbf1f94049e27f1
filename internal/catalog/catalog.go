// Package catalog holds the closed, immutable catalogs used to decode post
// statuses and modules into display metadata.
package catalog

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a value has no entry in a catalog. It signals a
// mismatch between this catalog and externally supplied data.
var ErrNotFound = errors.New("catalog entry not found")

// Entry is one member of a catalog.
type Entry struct {
	Title string `json:"title" yaml:"title"`
	Value string `json:"value" yaml:"value"`

	// Show reports whether a badge is rendered for the entry.
	Show bool `json:"show" yaml:"show"`
	// Closed reports whether engagement is locked in this state.
	Closed bool `json:"closed" yaml:"closed"`
	// Filterable reports whether the entry is offered as a filter facet.
	Filterable bool `json:"filterable" yaml:"filterable"`
}

// Registry is an order-preserving mapping from value to Entry.
//
// Registries are built once at package init and never mutated, so they are
// safe for concurrent use without locking.
type Registry struct {
	name      string
	byValue   map[string]Entry
	canonical []Entry
}

// NewRegistry builds a registry from every decodable entry and the canonical,
// ordered subset returned by All. Duplicate values, or canonical values that
// are not part of entries, are rejected.
func NewRegistry(name string, entries []Entry, canonical []string) (*Registry, error) {
	r := &Registry{
		name:    name,
		byValue: make(map[string]Entry, len(entries)),
	}

	for _, e := range entries {
		if e.Value == "" {
			return nil, fmt.Errorf("%s: entry %q has an empty value", name, e.Title)
		}
		if _, dup := r.byValue[e.Value]; dup {
			return nil, fmt.Errorf("%s: duplicate value %q", name, e.Value)
		}
		r.byValue[e.Value] = e
	}

	seen := make(map[string]bool, len(canonical))
	for _, v := range canonical {
		e, ok := r.byValue[v]
		if !ok {
			return nil, fmt.Errorf("%s: canonical value %q is not a declared entry", name, v)
		}
		if seen[v] {
			return nil, fmt.Errorf("%s: canonical value %q listed twice", name, v)
		}
		seen[v] = true
		r.canonical = append(r.canonical, e)
	}

	return r, nil
}

// MustNewRegistry is NewRegistry for package-level catalogs.
func MustNewRegistry(name string, entries []Entry, canonical []string) *Registry {
	r, err := NewRegistry(name, entries, canonical)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Name() string {
	return r.name
}

// Get decodes value into its entry.
func (r *Registry) Get(value string) (Entry, error) {
	e, ok := r.byValue[value]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s %q", ErrNotFound, r.name, value)
	}
	return e, nil
}

// MustGet is Get for data that has to decode. It panics on ErrNotFound.
func (r *Registry) MustGet(value string) Entry {
	e, err := r.Get(value)
	if err != nil {
		panic(err)
	}
	return e
}

// Has reports whether value decodes.
func (r *Registry) Has(value string) bool {
	_, ok := r.byValue[value]
	return ok
}

// All returns the canonical entries in their fixed order. The returned slice
// is a copy.
func (r *Registry) All() []Entry {
	out := make([]Entry, len(r.canonical))
	copy(out, r.canonical)
	return out
}

// Filterable returns the canonical entries offered as filter facets.
func (r *Registry) Filterable() []Entry {
	out := make([]Entry, 0, len(r.canonical))
	for _, e := range r.canonical {
		if e.Filterable {
			out = append(out, e)
		}
	}
	return out
}

// Values returns the canonical values in order.
func (r *Registry) Values() []string {
	out := make([]string, len(r.canonical))
	for i, e := range r.canonical {
		out[i] = e.Value
	}
	return out
}
