package problem

import (
	"fmt"
	"sort"
	"sync"

	"github.com/traherom/marla-sub003/opscript"
)

type registration struct {
	create   func() Computation
	category string
	listed   bool
}

// Registry maps operation names to the computations that implement
// them.
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]registration
	order []string
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]registration)}
}

// Register adds or replaces the operation name. create is called once
// now to read the computation's category.
func (r *Registry) Register(name string, create func() Computation) {
	reg := registration{create: create, category: opscript.Uncategorized, listed: true}
	if c, ok := create().(categorized); ok {
		reg.category = c.Category()
		reg.listed = c.Listed()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[name]; !ok {
		r.order = append(r.order, name)
	}
	r.ops[name] = reg
}

// RegisterCatalog registers every script in cat.
func (r *Registry) RegisterCatalog(cat *opscript.Catalog) {
	for _, s := range cat.Scripts() {
		r.Register(s.Name, func() Computation { return NewScript(s) })
	}
}

// Create returns a new, detached operation.
func (r *Registry) Create(name string) (*Operation, error) {
	r.mu.RLock()
	reg, ok := r.ops[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", opscript.ErrUnknownOperation, name)
	}
	return NewOperation(reg.create()), nil
}

// Names returns every registered operation, listed or not, in
// registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Listed returns the operations meant to be offered to users.
func (r *Registry) Listed() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, name := range r.order {
		if r.ops[name].listed {
			out = append(out, name)
		}
	}
	return out
}

// Categorized groups the listed operations by category, sorted within
// each category.
func (r *Registry) Categorized() map[string][]string {
	cats := make(map[string][]string)
	for _, name := range r.Listed() {
		r.mu.RLock()
		cat := r.ops[name].category
		r.mu.RUnlock()
		cats[cat] = append(cats[cat], name)
	}
	for _, names := range cats {
		sort.Strings(names)
	}
	return cats
}
