package problem

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"

	"github.com/traherom/marla-sub003/dataframe"
	"github.com/traherom/marla-sub003/opscript"
)

// TestResult is the outcome of running one operation on random data.
type TestResult struct {
	Operation string
	Err       error
}

func (r TestResult) Passed() bool { return r.Err == nil }

// Tester runs operations against random data to catch scripts that
// fail outright.
type Tester struct {
	p   *Problem
	rng *rand.Rand
}

func NewTester(p *Problem, seed uint64) *Tester {
	return &Tester{p: p, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Run computes each named operation, or every registered one if none
// are named, on a fresh random data set.
func (t *Tester) Run(ctx context.Context, names ...string) []TestResult {
	if len(names) == 0 && t.p.registry != nil {
		names = t.p.registry.Names()
	}
	ds := NewDataSet(t.randomFrame())
	if err := t.p.AddDataSet(ds); err != nil {
		results := make([]TestResult, len(names))
		for i, name := range names {
			results[i] = TestResult{Operation: name, Err: err}
		}
		return results
	}
	defer t.p.RemoveDataSet(ds)

	results := make([]TestResult, 0, len(names))
	for _, name := range names {
		err := t.runOne(ctx, ds, name)
		if err != nil {
			t.p.log.Info("operation test failed", "operation", name, "err", err)
		}
		results = append(results, TestResult{Operation: name, Err: err})
	}
	return results
}

func (t *Tester) runOne(ctx context.Context, ds *DataSet, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	op, err := t.p.Attach(ds, name)
	if err != nil {
		return err
	}
	defer op.Detach()
	if err := t.answer(op, ds.Frame().Columns()); err != nil {
		return err
	}
	_, err = op.Columns(ctx)
	return err
}

func (t *Tester) answer(op *Operation, cols dataframe.Columns) error {
	for _, p := range op.Computation().Prompts() {
		var a opscript.Answer
		switch p.Type {
		case opscript.PromptFixed:
			continue
		case opscript.PromptCheckbox:
			a = opscript.CheckboxAnswer{Checked: true}
		case opscript.PromptNumeric:
			lo, hi := math.Max(p.Min, -1000), math.Min(p.Max, 1000)
			if lo > hi {
				lo, hi = p.Min, p.Max
			}
			a = opscript.NumericAnswer{Value: lo + t.rng.Float64()*(hi-lo)}
		case opscript.PromptString:
			a = opscript.StringAnswer{Value: "test string"}
		case opscript.PromptCombo:
			if len(p.Options) == 0 {
				return fmt.Errorf("prompt %q has no options", p.Name)
			}
			a = opscript.ComboAnswer{Choice: p.Options[0]}
		case opscript.PromptColumn:
			for _, c := range cols {
				if p.Validate(opscript.ColumnAnswer{Column: c.Name()}, cols) == nil {
					a = opscript.ColumnAnswer{Column: c.Name()}
					break
				}
			}
			if a == nil {
				return fmt.Errorf("no column suits prompt %q", p.Name)
			}
		}
		if err := op.SetAnswer(p.Name, a); err != nil {
			return err
		}
	}
	return nil
}

// randomFrame has a numeric first column, a text second column and up
// to seven more of either mode.
func (t *Tester) randomFrame() *dataframe.Frame {
	f := dataframe.New("test-" + uuid.NewString()[:8])
	ncols := 2 + t.rng.IntN(8)
	nrows := 5 + t.rng.IntN(20)
	for i := 0; i < ncols; i++ {
		c, _ := f.AddColumn("col" + strconv.Itoa(i+1))
		text := i == 1 || (i > 1 && t.rng.IntN(2) == 0)
		if text {
			c.SetMode(dataframe.Text)
			vals := make([]string, nrows)
			for j := range vals {
				vals[j] = "s" + strconv.Itoa(t.rng.IntN(10))
			}
			c.AppendStrings(vals)
			continue
		}
		vals := make([]float64, nrows)
		for j := range vals {
			vals[j] = math.Round(t.rng.NormFloat64()*1000) / 100
		}
		c.AppendFloats(vals)
	}
	return f
}
