package opscript

import (
	"context"
	"fmt"
	"strings"

	marla "github.com/traherom/marla-sub003"
	"github.com/traherom/marla-sub003/dataframe"
)

// Engine is the part of *marla.Conn a script needs.
type Engine interface {
	Execute(ctx context.Context, cmd string) (string, error)
	ExecuteString(ctx context.Context, cmd string) (string, error)
	ExecuteFloats(ctx context.Context, cmd string) ([]float64, error)
	ExecuteStrings(ctx context.Context, cmd string) ([]string, error)
	ExecuteBool(ctx context.Context, cmd string) (bool, error)
	SetVariable(ctx context.Context, name string, v interface{}) (string, error)
	SetRecordMode(m marla.RecordMode) marla.RecordMode
	RecordMode() marla.RecordMode
	StartGraphicOutput(ctx context.Context) (string, error)
	StopGraphicOutput(ctx context.Context) error
	LoadLibrary(ctx context.Context, lib string) (bool, error)
}

var _ Engine = (*marla.Conn)(nil)

// Env is what one execution reads and writes.
type Env struct {
	Answers Answers
	// Parent is a snapshot of the columns the operation computes from.
	Parent dataframe.Columns
	// Out receives the saved columns.
	Out *dataframe.Frame
}

type Result struct {
	// PlotPath is the image produced by the script's plot, if any.
	PlotPath string
}

type run struct {
	s        *Script
	eng      Engine
	env      *Env
	answers  Answers
	intended marla.RecordMode
	res      Result
}

// Execute runs the script's computation against eng. Every prompt must
// have a valid answer; otherwise an error is returned before any
// engine call is made.
func (s *Script) Execute(ctx context.Context, eng Engine, env *Env) (*Result, error) {
	if missing := s.Missing(env.Answers); len(missing) > 0 {
		return nil, &MissingParametersError{Operation: s.Name, Missing: missing}
	}
	answers := s.Resolve(env.Answers)
	for i := range s.Prompts {
		p := &s.Prompts[i]
		if err := p.Validate(answers[p.Name], env.Parent); err != nil {
			return nil, fmt.Errorf("operation %q: %w", s.Name, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &run{s: s, eng: eng, env: env, answers: answers}
	r.intended = eng.SetRecordMode(marla.RecordOff)
	defer eng.SetRecordMode(r.intended)

	if err := r.sequence(ctx, s.computation); err != nil {
		if se, ok := err.(*ScriptError); ok && se.Operation == "" {
			se.Operation = s.Name
		}
		return nil, err
	}
	return &r.res, nil
}

// recorded runs fn with the recorder in the mode the caller asked for.
func (r *run) recorded(fn func() error) error {
	r.eng.SetRecordMode(r.intended)
	defer r.eng.SetRecordMode(marla.RecordOff)
	return fn()
}

func (r *run) sequence(ctx context.Context, seq *Node) error {
	for _, n := range seq.Children {
		var err error
		switch n.Name {
		case "cmd":
			err = r.cmd(ctx, n)
		case "set":
			err = r.set(ctx, n)
		case "save":
			err = r.save(ctx, n)
		case "loop":
			err = r.loop(ctx, n)
		case "if":
			err = r.cond(ctx, n)
		case "plot":
			err = r.plot(ctx, n)
		case "load":
			err = r.load(ctx, n)
		case "error":
			msg := n.Attr("msg")
			if msg == "" {
				msg = "no message supplied for error"
			}
			err = &ScriptError{Msg: msg}
		default:
			err = scriptErrorf(nil, "unrecognized command element %q", n.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *run) cmd(ctx context.Context, n *Node) error {
	return r.recorded(func() error {
		if _, err := r.eng.Execute(ctx, n.Text); err != nil {
			return scriptErrorf(err, "command %q failed", n.Text)
		}
		return nil
	})
}

func (r *run) set(ctx context.Context, n *Node) error {
	name, rvar := n.Attr("name"), n.Attr("rvar")
	a, ok := r.answers[name]
	if !ok {
		return scriptErrorf(nil, "set uses unknown prompt %q", name)
	}
	v := a.RValue()
	if ca, ok := a.(ColumnAnswer); ok && n.Attr("use") != "name" {
		col := r.env.Parent.Find(ca.Column)
		if col == nil {
			return scriptErrorf(dataframe.ErrColumnNotFound, "set %s", rvar)
		}
		v = col
	}
	return r.recorded(func() error {
		if _, err := r.eng.SetVariable(ctx, rvar, v); err != nil {
			return scriptErrorf(err, "set %s", rvar)
		}
		return nil
	})
}

func (r *run) save(ctx context.Context, n *Node) error {
	name := n.Attr("column")
	if name == "" {
		var err error
		if name, err = r.eng.ExecuteString(ctx, n.Attr("r_column")); err != nil {
			return scriptErrorf(err, "computing column name")
		}
	}
	col, err := r.env.Out.Column(name)
	if err != nil {
		if col, err = r.env.Out.AddColumn(name); err != nil {
			return scriptErrorf(err, "save %s", name)
		}
	}

	var out string
	err = r.recorded(func() error {
		var err error
		out, err = r.eng.Execute(ctx, n.Text)
		return err
	})
	if err != nil {
		return scriptErrorf(err, "save %s", name)
	}

	typ := n.Attr("type")
	if typ == "" {
		typ = "numeric"
	}
	if typ == "auto" {
		if vals := marla.ParseFloats(out); len(vals) > 0 {
			if _, err := col.SetMode(dataframe.Numeric); err == nil {
				col.AppendFloats(vals)
				return nil
			}
		}
		typ = "string"
	}
	switch typ {
	case "numeric":
		vals := marla.ParseFloats(out)
		if len(vals) == 0 {
			return scriptErrorf(&marla.ParseError{Want: "numbers", Output: out}, "save %s", name)
		}
		if _, err := col.SetMode(dataframe.Numeric); err != nil {
			return scriptErrorf(err, "save %s", name)
		}
		col.AppendFloats(vals)
	case "string":
		vals := marla.ParseStrings(out)
		if len(vals) == 0 {
			return scriptErrorf(&marla.ParseError{Want: "strings", Output: out}, "save %s", name)
		}
		col.SetMode(dataframe.Text)
		col.AppendStrings(vals)
	default:
		return scriptErrorf(nil, "save type %q is unrecognized", typ)
	}
	return nil
}

func (r *run) bind(ctx context.Context, name string, v interface{}) error {
	if name == "" {
		return nil
	}
	if _, err := r.eng.SetVariable(ctx, name, v); err != nil {
		return scriptErrorf(err, "binding loop variable %s", name)
	}
	return nil
}

func (r *run) loop(ctx context.Context, n *Node) error {
	indexVar, keyVar, valueVar := n.Attr("index_var"), n.Attr("key_var"), n.Attr("value_var")

	iter := func(i int, key, value interface{}) error {
		err := r.recorded(func() error {
			if err := r.bind(ctx, keyVar, key); err != nil {
				return err
			}
			if err := r.bind(ctx, indexVar, float64(i+1)); err != nil {
				return err
			}
			return r.bind(ctx, valueVar, value)
		})
		if err != nil {
			return err
		}
		return r.sequence(ctx, n)
	}

	switch n.Attr("type") {
	case "parent":
		for i, col := range r.env.Parent {
			if err := iter(i, col.Name(), col); err != nil {
				return err
			}
		}
	case "", "numeric":
		vals, err := r.eng.ExecuteFloats(ctx, n.Attr("loop_var"))
		if err != nil {
			return scriptErrorf(err, "loop over %s", n.Attr("loop_var"))
		}
		for i, v := range vals {
			if err := iter(i, float64(i+1), v); err != nil {
				return err
			}
		}
	case "string":
		vals, err := r.eng.ExecuteStrings(ctx, n.Attr("loop_var"))
		if err != nil {
			return scriptErrorf(err, "loop over %s", n.Attr("loop_var"))
		}
		for i, v := range vals {
			if err := iter(i, float64(i+1), v); err != nil {
				return err
			}
		}
	default:
		return scriptErrorf(nil, "loop type %q not recognized", n.Attr("type"))
	}
	return nil
}

func (r *run) cond(ctx context.Context, n *Node) error {
	var ok bool
	switch {
	case n.Attr("expr") != "":
		var err error
		if ok, err = r.eng.ExecuteBool(ctx, n.Attr("expr")); err != nil {
			return scriptErrorf(err, "if expression did not give a single logical")
		}
	case n.Attr("vartype") != "":
		out, err := r.eng.Execute(ctx, "str("+n.Attr("rvar")+")")
		if err != nil {
			return scriptErrorf(err, "checking type of %s", n.Attr("rvar"))
		}
		var actual string
		if f := strings.Fields(out); len(f) > 0 {
			actual = f[0]
		}
		switch n.Attr("vartype") {
		case "numeric":
			ok = actual == "num" || actual == "int"
		case "string":
			ok = actual == "chr"
		}
	case n.Attr("colexists") != "":
		ok = r.env.Out.Index(n.Attr("colexists")) >= 0
	default:
		return scriptErrorf(nil, "if type not recognized")
	}

	branch := n.Child("else")
	if ok {
		branch = n.Child("then")
	}
	if branch == nil {
		return nil
	}
	return r.sequence(ctx, branch)
}

func (r *run) plot(ctx context.Context, n *Node) error {
	if r.res.PlotPath != "" {
		return scriptErrorf(nil, "an operation may only have one plot in it")
	}
	path, err := r.eng.StartGraphicOutput(ctx)
	if err != nil {
		return scriptErrorf(err, "starting plot")
	}
	r.res.PlotPath = path
	err = r.sequence(ctx, n)
	if serr := r.eng.StopGraphicOutput(ctx); err == nil && serr != nil {
		err = scriptErrorf(serr, "finishing plot")
	}
	return err
}

func (r *run) load(ctx context.Context, n *Node) error {
	lib := n.Attr("library")
	if lib == "" {
		var err error
		if lib, err = r.eng.ExecuteString(ctx, n.Attr("r_library")); err != nil {
			return scriptErrorf(err, "computing library name")
		}
	}
	ok, err := r.eng.LoadLibrary(ctx, lib)
	if err != nil {
		return scriptErrorf(err, "loading library %q", lib)
	}
	if !ok {
		return scriptErrorf(nil, "unable to load or install library %q", lib)
	}
	return nil
}
