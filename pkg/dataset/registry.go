// Package dataset holds the named tables a page or collection can reference.
//
// A [Registry] preserves registration order, which fixes the order in which
// datasets are encoded, written and registered on the page. Charts declare
// the names they need; [Registry.Resolve] prunes the registry down to that
// subset so unused tables never reach the output.
package dataset

import (
	"github.com/matzehuels/vizpage/pkg/errors"
	"github.com/matzehuels/vizpage/pkg/sanitize"
	"github.com/matzehuels/vizpage/pkg/table"
)

// Dataset is a named table.
type Dataset struct {
	Name  string
	Table *table.Table
}

// File returns the sanitized stem used for this dataset's files and DOM ids.
func (d Dataset) File() string { return sanitize.Name(d.Name) }

// Dependent is anything that declares dataset dependencies, typically a chart.
type Dependent interface {
	Dependencies() []string
}

// Registry is an insertion-ordered set of datasets with unique names.
// A Registry is not safe for concurrent use.
type Registry struct {
	order  []string
	byName map[string]*table.Table
	byFile map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*table.Table),
		byFile: make(map[string]string),
	}
}

// Register adds a dataset. Registering the same table reference under the
// same name again is a no-op. A different table under an existing name, or a
// name whose sanitized form collides with another dataset's, is a
// DUPLICATE_NAME error.
func (r *Registry) Register(name string, t *table.Table) error {
	if err := errors.ValidateName("dataset", name); err != nil {
		return err
	}
	if t == nil {
		return errors.New(errors.ErrCodeInvalidInput, "dataset %q has no table", name)
	}
	if existing, ok := r.byName[name]; ok {
		if existing == t {
			return nil
		}
		return errors.New(errors.ErrCodeDuplicateName, "dataset %q is already registered with a different table", name)
	}
	file := sanitize.Name(name)
	if other, ok := r.byFile[file]; ok {
		return errors.New(errors.ErrCodeDuplicateName, "dataset %q collides with %q (both map to %q)", name, other, file)
	}
	r.order = append(r.order, name)
	r.byName[name] = t
	r.byFile[file] = name
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, t *table.Table) {
	if err := r.Register(name, t); err != nil {
		panic(err)
	}
}

// Get returns the table registered under name.
func (r *Registry) Get(name string) (*table.Table, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered datasets.
func (r *Registry) Len() int { return len(r.order) }

// All returns every dataset in registration order.
func (r *Registry) All() []Dataset {
	out := make([]Dataset, len(r.order))
	for i, name := range r.order {
		out[i] = Dataset{Name: name, Table: r.byName[name]}
	}
	return out
}

// Resolve returns the requested datasets in registration order, regardless of
// the order of names. Duplicates in names are ignored. An unregistered name is
// an UNKNOWN_DATASET error.
func (r *Registry) Resolve(names []string) ([]Dataset, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			return nil, errors.New(errors.ErrCodeUnknownDataset, "dataset %q is not registered", n)
		}
		want[n] = true
	}
	out := make([]Dataset, 0, len(want))
	for _, name := range r.order {
		if want[name] {
			out = append(out, Dataset{Name: name, Table: r.byName[name]})
		}
	}
	return out, nil
}

// DependenciesOf returns the union of every dependent's declared datasets in
// first-seen order without duplicates.
func DependenciesOf[D Dependent](deps []D) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range deps {
		for _, name := range d.Dependencies() {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
