package problem

import (
	"context"
	"fmt"
	"sync"

	"github.com/petermattis/goid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	marla "github.com/traherom/marla-sub003"
	"github.com/traherom/marla-sub003/dataframe"
	"github.com/traherom/marla-sub003/opscript"
)

type State int

const (
	Dirty State = iota
	Computing
	Clean
)

func (s State) String() string {
	switch s {
	case Dirty:
		return "dirty"
	case Computing:
		return "computing"
	case Clean:
		return "clean"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Operation is a computation applied to its parent's columns. Its
// results are kept until the operation, or anything above it, changes.
type Operation struct {
	node

	comp   Computation
	flight singleflight.Group

	mu           sync.Mutex
	answers      opscript.Answers
	remark       string
	state        State
	computingGID int64
	pendingDirty bool
	parentCols   dataframe.Columns
	out          *dataframe.Frame
	plotPath     string
	transcript   string
}

// NewOperation returns a detached, dirty operation running comp.
func NewOperation(comp Computation) *Operation {
	return &Operation{
		node:    newNode(),
		comp:    comp,
		answers: make(opscript.Answers),
		out:     dataframe.New(comp.Name()),
	}
}

func (o *Operation) Name() string { return o.comp.Name() }

func (o *Operation) Computation() Computation { return o.comp }

func (o *Operation) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Operation) Dirty() bool { return o.State() != Clean }

func (o *Operation) Root() *DataSet { return o.root() }

// Problem returns the problem o's data set belongs to, or nil.
func (o *Operation) Problem() *Problem {
	if ds := o.Root(); ds != nil {
		return ds.Problem()
	}
	return nil
}

func (o *Operation) prompt(name string) *opscript.Prompt {
	prompts := o.comp.Prompts()
	for i := range prompts {
		if prompts[i].Name == name {
			return &prompts[i]
		}
	}
	return nil
}

// SetAnswer answers the named prompt and marks o dirty. The answer must
// be of the prompt's type; whether it suits the parent's columns is
// checked when o is computed.
func (o *Operation) SetAnswer(name string, a opscript.Answer) error {
	p := o.prompt(name)
	if p == nil {
		return fmt.Errorf("%w: %q in %s", ErrUnknownPrompt, name, o.Name())
	}
	if a.Type() != p.Type {
		return fmt.Errorf("%w: %s answer for %s prompt %q", opscript.ErrInvalidAnswer, a.Type(), p.Type, name)
	}
	o.mu.Lock()
	o.answers[name] = a
	o.mu.Unlock()
	o.MarkDirty()
	return nil
}

// SetAnswerText parses text as an answer to the named prompt.
func (o *Operation) SetAnswerText(name, text string) error {
	p := o.prompt(name)
	if p == nil {
		return fmt.Errorf("%w: %q in %s", ErrUnknownPrompt, name, o.Name())
	}
	a, err := opscript.ParseAnswer(p, text)
	if err != nil {
		return err
	}
	return o.SetAnswer(name, a)
}

// ClearAnswer forgets the named prompt's answer.
func (o *Operation) ClearAnswer(name string) {
	o.mu.Lock()
	_, ok := o.answers[name]
	delete(o.answers, name)
	o.mu.Unlock()
	if ok {
		o.MarkDirty()
	}
}

func (o *Operation) Answers() opscript.Answers {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.answers.Copy()
}

// Missing returns the prompts that still need an answer.
func (o *Operation) Missing() []string {
	return missingAnswers(o.comp.Prompts(), o.Answers())
}

func (o *Operation) Remark() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remark
}

// SetRemark attaches a note to o. It does not affect results.
func (o *Operation) SetRemark(s string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.remark = s
}

// DisplayName describes o with its current answers.
func (o *Operation) DisplayName(abbrev bool) string {
	dn, ok := o.comp.(displayNamer)
	if !ok {
		return o.Name()
	}
	long, short := dn.DisplayName(o.Answers())
	if abbrev {
		return short
	}
	return long
}

func (o *Operation) HasPlot() bool {
	p, ok := o.comp.(plotter)
	return ok && p.HasPlot()
}

// Plot returns the path of the image o produced, computing it first if
// needed.
func (o *Operation) Plot(ctx context.Context) (string, error) {
	if err := o.EnsureFresh(ctx); err != nil {
		return "", err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.plotPath, nil
}

// Columns returns the parent's columns not replaced by o, followed by
// the columns o computed.
func (o *Operation) Columns(ctx context.Context) (dataframe.Columns, error) {
	if err := o.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return mergeColumns(o.parentCols, o.out.Columns()), nil
}

// NewColumns returns only the columns o computed.
func (o *Operation) NewColumns(ctx context.Context) (dataframe.Columns, error) {
	if err := o.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.out.Columns(), nil
}

func mergeColumns(parent, own dataframe.Columns) dataframe.Columns {
	out := make(dataframe.Columns, 0, len(parent)+len(own))
	for _, c := range parent {
		if own.Find(c.Name()) == nil {
			out = append(out, c)
		}
	}
	return append(out, own...)
}

// RCommands returns the commands o's computation ran. With chain set
// the commands that build o's parent come first.
func (o *Operation) RCommands(ctx context.Context, chain bool) (string, error) {
	if err := o.EnsureFresh(ctx); err != nil {
		return "", err
	}
	o.mu.Lock()
	cmds := o.transcript
	o.mu.Unlock()
	if !chain {
		return cmds, nil
	}
	parent := o.Parent()
	if parent == nil {
		return "", ErrDetached
	}
	pre, err := parent.RCommands(ctx, true)
	if err != nil {
		return "", err
	}
	return pre + cmds, nil
}

// MarkDirty discards o's results and those of every operation below it.
// An operation marked while it is computing is recomputed on its next
// read.
func (o *Operation) MarkDirty() {
	o.mu.Lock()
	if o.state == Computing {
		o.pendingDirty = true
	} else {
		o.state = Dirty
	}
	o.mu.Unlock()
	for _, c := range o.Children() {
		c.MarkDirty()
	}
}

// EnsureFresh recomputes o, and any dirty operations above it, if
// needed. Concurrent callers share one computation. A computation that
// reads its own operation's columns sees what it has saved so far.
func (o *Operation) EnsureFresh(ctx context.Context) error {
	o.mu.Lock()
	switch {
	case o.state == Clean:
		o.mu.Unlock()
		cacheHitsTotal.Inc()
		return nil
	case o.state == Computing && o.computingGID == goid.Get():
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()
	_, err, _ := o.flight.Do("refresh", func() (interface{}, error) {
		return nil, o.refresh(ctx)
	})
	return err
}

func (o *Operation) refresh(ctx context.Context) error {
	if o.State() == Clean {
		return nil
	}
	if missing := o.Missing(); len(missing) > 0 {
		return &opscript.MissingParametersError{Operation: o.Name(), Missing: missing}
	}
	parent := o.Parent()
	if parent == nil {
		return ErrDetached
	}
	p := o.Problem()
	if p == nil {
		return ErrNoEngine
	}

	// The parent must be clean while the session is held; computing
	// it needs the session too.
	pop, _ := parent.(*Operation)
	for {
		if pop != nil {
			if err := pop.EnsureFresh(ctx); err != nil {
				return err
			}
		}
		p.session.Lock()
		if pop == nil || pop.State() == Clean {
			break
		}
		p.session.Unlock()
	}
	defer p.session.Unlock()

	ctx, span := tracer.Start(ctx, "problem.refresh", trace.WithAttributes(
		attribute.String("operation.id", o.ID()),
		attribute.String("operation.name", o.Name()),
	))
	defer span.End()

	var cols dataframe.Columns
	if pop != nil {
		pop.mu.Lock()
		cols = mergeColumns(pop.parentCols, pop.out.Columns())
		pop.mu.Unlock()
	} else {
		var err error
		if cols, err = parent.Columns(ctx); err != nil {
			return err
		}
	}
	snapshot := make(dataframe.Columns, len(cols))
	for i, c := range cols {
		snapshot[i] = c.Copy()
	}

	out := dataframe.New(o.Name())
	o.mu.Lock()
	o.state = Computing
	o.computingGID = goid.Get()
	o.pendingDirty = false
	o.parentCols = snapshot
	o.out = out
	env := &opscript.Env{Answers: o.answers.Copy(), Parent: snapshot, Out: out}
	o.mu.Unlock()

	old := p.engine.SetRecordMode(marla.RecordCommands)
	p.engine.FetchTranscript()
	res, err := o.comp.Execute(ctx, p.engine, env)
	transcript := p.engine.FetchTranscript()
	p.engine.SetRecordMode(old)

	if err != nil {
		o.mu.Lock()
		o.computingGID = 0
		o.state = Dirty
		o.mu.Unlock()
		failuresTotal.WithLabelValues(o.Name()).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.log.Warn("operation failed", "operation", o.Name(), "id", o.ID(), "err", err)
		return fmt.Errorf("computing %s: %w", o.Name(), err)
	}

	for _, c := range o.Children() {
		c.MarkDirty()
	}
	o.mu.Lock()
	o.computingGID = 0
	o.transcript = transcript
	o.plotPath = ""
	if res != nil {
		o.plotPath = res.PlotPath
	}
	if o.pendingDirty {
		o.state = Dirty
	} else {
		o.state = Clean
	}
	o.mu.Unlock()
	recomputesTotal.WithLabelValues(o.Name()).Inc()
	p.log.Debug("operation computed", "operation", o.Name(), "id", o.ID(), "columns", out.NumColumns())
	return nil
}

// Detach removes o from its parent.
func (o *Operation) Detach() {
	if parent := o.Parent(); parent != nil {
		Detach(parent, o)
	}
}

// Clone copies o and the operations below it. The copy is detached
// and dirty.
func (o *Operation) Clone() *Operation {
	c := NewOperation(o.comp)
	o.mu.Lock()
	c.answers = o.answers.Copy()
	c.remark = o.remark
	o.mu.Unlock()
	for _, child := range o.Children() {
		// A fresh copy has no parent and cannot form a cycle.
		_ = Attach(c, child.Clone())
	}
	return c
}

// Equal reports whether o and x run the same computation with the same
// answers and remark on equal parents.
func (o *Operation) Equal(x *Operation) bool {
	if o == x {
		return true
	}
	if o == nil || x == nil || o.Name() != x.Name() || o.Remark() != x.Remark() {
		return false
	}
	if !o.Answers().Equal(x.Answers()) {
		return false
	}
	return nodesEqual(o.Parent(), x.Parent())
}

func nodesEqual(a, b Node) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case *DataSet:
		b, ok := b.(*DataSet)
		return ok && a.Equal(b)
	case *Operation:
		b, ok := b.(*Operation)
		return ok && a.Equal(b)
	}
	return false
}
