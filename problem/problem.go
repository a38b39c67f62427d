package problem

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/traherom/marla-sub003/opscript"
)

// Engine is the R session a problem computes with.
type Engine interface {
	opscript.Engine
	FetchTranscript() string
	ExecuteSave(ctx context.Context, expr string) (string, error)
}

// Problem is a named set of data sets and the operations computed from
// them, sharing one engine.
type Problem struct {
	engine   Engine
	registry *Registry
	log      *slog.Logger

	// session serializes computations; results are read from engine
	// state set up by earlier commands.
	session sync.Mutex

	mu       sync.Mutex
	name     string
	comment  string
	datasets []*DataSet
}

type Option func(*Problem)

func WithLogger(l *slog.Logger) Option {
	return func(p *Problem) { p.log = l }
}

func NewProblem(name string, eng Engine, reg *Registry, opts ...Option) *Problem {
	p := &Problem{name: name, engine: eng, registry: reg, log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "problem")
	return p
}

func (p *Problem) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *Problem) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

func (p *Problem) Comment() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.comment
}

func (p *Problem) SetComment(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comment = s
}

func (p *Problem) Engine() Engine     { return p.engine }
func (p *Problem) Registry() *Registry { return p.registry }

// AddDataSet adds d to p. Data set names are unique within a problem.
func (p *Problem) AddDataSet(d *DataSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.datasets {
		if e == d {
			return nil
		}
		if e.Name() == d.Name() {
			return fmt.Errorf("%w: %q", ErrDuplicateName, d.Name())
		}
	}
	d.mu.Lock()
	d.problem = p
	d.mu.Unlock()
	p.datasets = append(p.datasets, d)
	return nil
}

// RemoveDataSet removes d and leaves its operations without an engine.
func (p *Problem) RemoveDataSet(d *DataSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := slices.Index(p.datasets, d)
	if i < 0 {
		return
	}
	p.datasets = slices.Delete(p.datasets, i, i+1)
	d.mu.Lock()
	d.problem = nil
	d.mu.Unlock()
	d.MarkDirty()
}

func (p *Problem) DataSets() []*DataSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.datasets)
}

// DataSet returns the data set with the given name or nil.
func (p *Problem) DataSet(name string) *DataSet {
	for _, d := range p.DataSets() {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// Find returns the data set or operation with the given id.
func (p *Problem) Find(id string) (Node, bool) {
	var found Node
	for _, d := range p.DataSets() {
		Walk(d, func(n Node) {
			if found == nil && n.ID() == id {
				found = n
			}
		})
		if found != nil {
			return found, true
		}
	}
	return nil, false
}

// Leaves returns the childless operations of every data set.
func (p *Problem) Leaves() []*Operation {
	var out []*Operation
	for _, d := range p.DataSets() {
		out = append(out, Leaves(d)...)
	}
	return out
}

// Attach creates the named operation and attaches it below parent.
func (p *Problem) Attach(parent Node, opName string) (*Operation, error) {
	if p.registry == nil {
		return nil, fmt.Errorf("%w: %q", opscript.ErrUnknownOperation, opName)
	}
	op, err := p.registry.Create(opName)
	if err != nil {
		return nil, err
	}
	if err := Attach(parent, op); err != nil {
		return nil, err
	}
	return op, nil
}

// MarkDirty marks every operation in p dirty, as after an engine
// restart.
func (p *Problem) MarkDirty() {
	for _, d := range p.DataSets() {
		d.MarkDirty()
	}
}
