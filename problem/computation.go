package problem

import (
	"context"

	"github.com/traherom/marla-sub003/opscript"
)

// Computation fills an operation's columns from its parent's.
type Computation interface {
	Name() string
	Prompts() []opscript.Prompt
	Execute(ctx context.Context, eng opscript.Engine, env *opscript.Env) (*opscript.Result, error)
}

// Computations may also implement any of these.
type (
	displayNamer interface {
		DisplayName(opscript.Answers) (long, short string)
	}
	plotter interface {
		HasPlot() bool
	}
	categorized interface {
		Category() string
		Listed() bool
	}
)

// Script adapts an operation script to a Computation.
type Script struct {
	s *opscript.Script
}

func NewScript(s *opscript.Script) *Script { return &Script{s: s} }

func (c *Script) Name() string               { return c.s.Name }
func (c *Script) Prompts() []opscript.Prompt { return c.s.Prompts }
func (c *Script) HasPlot() bool              { return c.s.Plot }
func (c *Script) Category() string           { return c.s.Category }
func (c *Script) Listed() bool               { return c.s.Listed }
func (c *Script) Description() string        { return c.s.Description }

func (c *Script) DisplayName(a opscript.Answers) (string, string) {
	return c.s.DisplayName(a)
}

func (c *Script) Execute(ctx context.Context, eng opscript.Engine, env *opscript.Env) (*opscript.Result, error) {
	return c.s.Execute(ctx, eng, env)
}

// Func is a Computation written in Go.
type Func struct {
	OpName string
	Params []opscript.Prompt
	Fn     func(ctx context.Context, eng opscript.Engine, env *opscript.Env) (*opscript.Result, error)
}

func (f *Func) Name() string               { return f.OpName }
func (f *Func) Prompts() []opscript.Prompt { return f.Params }

func (f *Func) Execute(ctx context.Context, eng opscript.Engine, env *opscript.Env) (*opscript.Result, error) {
	if missing := missingAnswers(f.Params, env.Answers); len(missing) > 0 {
		return nil, &opscript.MissingParametersError{Operation: f.OpName, Missing: missing}
	}
	res, err := f.Fn(ctx, eng, env)
	if res == nil && err == nil {
		res = &opscript.Result{}
	}
	return res, err
}

func missingAnswers(prompts []opscript.Prompt, a opscript.Answers) []string {
	var missing []string
	for _, p := range prompts {
		if _, ok := p.Default(); ok {
			continue
		}
		if _, ok := a[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}
