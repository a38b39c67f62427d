// Package enginetest provides an in-memory stand-in for the R engine.
package enginetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	marla "github.com/traherom/marla-sub003"
	"github.com/traherom/marla-sub003/rutil"
)

// Fake answers commands from a table. Commands it has no answer for
// print nothing, except bare names of variables it was given, which
// print their value, and str() of those variables.
type Fake struct {
	mu        sync.Mutex
	outputs   map[string]string
	errs      map[string]error
	libraries map[string]bool
	vars      map[string]string
	calls     []string
	recorded  []string
	mode      marla.RecordMode
	plots     int
	unique    int
}

func New() *Fake {
	return &Fake{
		outputs:   make(map[string]string),
		errs:      make(map[string]error),
		libraries: make(map[string]bool),
		vars:      make(map[string]string),
	}
}

// On makes cmd print out.
func (f *Fake) On(cmd, out string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[cmd] = out
	return f
}

// Fail makes cmd return err.
func (f *Fake) Fail(cmd string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[cmd] = err
	return f
}

// Library marks lib as loadable.
func (f *Fake) Library(lib string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.libraries[lib] = true
	return f
}

// Calls returns every command seen so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Recorded returns the commands seen while recording was on.
func (f *Fake) Recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.recorded...)
}

// Var returns the R literal last assigned to name.
func (f *Fake) Var(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vars[name]
	return v, ok
}

// ResetCalls forgets the calls seen so far.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) call(cmd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	if f.mode == marla.RecordCommands || f.mode == marla.RecordFull {
		f.recorded = append(f.recorded, cmd)
	}
	if err, ok := f.errs[cmd]; ok {
		return "", err
	}
	if out, ok := f.outputs[cmd]; ok {
		return out, nil
	}
	if name, ok := strings.CutPrefix(cmd, "str("); ok {
		if v, ok := f.vars[strings.TrimSuffix(name, ")")]; ok {
			if strings.Contains(v, `"`) {
				return " chr " + v + "\n", nil
			}
			return " num " + v + "\n", nil
		}
	}
	if v, ok := f.vars[cmd]; ok {
		v = strings.TrimSuffix(strings.TrimPrefix(v, "c("), ")")
		return "[1] " + strings.ReplaceAll(v, ", ", " ") + "\n", nil
	}
	return "", nil
}

func (f *Fake) Execute(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.call(cmd)
}

func (f *Fake) ExecuteString(ctx context.Context, cmd string) (string, error) {
	out, err := f.Execute(ctx, cmd)
	if err != nil {
		return "", err
	}
	return marla.ParseString(out)
}

func (f *Fake) ExecuteFloats(ctx context.Context, cmd string) ([]float64, error) {
	out, err := f.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	vals := marla.ParseFloats(out)
	if len(vals) == 0 {
		return nil, &marla.ParseError{Want: "numbers", Output: out}
	}
	return vals, nil
}

func (f *Fake) ExecuteStrings(ctx context.Context, cmd string) ([]string, error) {
	out, err := f.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	vals := marla.ParseStrings(out)
	if len(vals) == 0 {
		return nil, &marla.ParseError{Want: "strings", Output: out}
	}
	return vals, nil
}

func (f *Fake) ExecuteBool(ctx context.Context, cmd string) (bool, error) {
	out, err := f.Execute(ctx, cmd)
	if err != nil {
		return false, err
	}
	return marla.ParseBool(out)
}

func (f *Fake) SetVariable(ctx context.Context, name string, v interface{}) (string, error) {
	lit, err := rutil.Literal(v)
	if err != nil {
		return "", err
	}
	if _, err := f.Execute(ctx, name+" <- "+lit); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.vars[name] = lit
	f.mu.Unlock()
	return name, nil
}

func (f *Fake) SetRecordMode(m marla.RecordMode) marla.RecordMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	old := f.mode
	f.mode = m
	return old
}

func (f *Fake) RecordMode() marla.RecordMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// FetchTranscript returns the recorded commands, one per line, and
// clears them.
func (f *Fake) FetchTranscript() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b strings.Builder
	for _, c := range f.recorded {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	f.recorded = nil
	return b.String()
}

func (f *Fake) StartGraphicOutput(ctx context.Context) (string, error) {
	if _, err := f.Execute(ctx, "png()"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plots++
	return fmt.Sprintf("/fake/plot-%d.png", f.plots), nil
}

func (f *Fake) StopGraphicOutput(ctx context.Context) error {
	_, err := f.Execute(ctx, "dev.off()")
	return err
}

func (f *Fake) LoadLibrary(ctx context.Context, lib string) (bool, error) {
	if _, err := f.Execute(ctx, "library("+lib+")"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.libraries[lib], nil
}

// ExecuteSave assigns expr to a fresh variable and returns its name.
func (f *Fake) ExecuteSave(ctx context.Context, expr string) (string, error) {
	name := f.UniqueName()
	if _, err := f.Execute(ctx, name+" <- "+expr); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.vars[name] = expr
	f.mu.Unlock()
	return name, nil
}

func (f *Fake) UniqueName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unique++
	return fmt.Sprintf("fakeUnique%d", f.unique)
}
