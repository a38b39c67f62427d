package problem

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traherom/marla-sub003/opscript"
)

func TestTesterRun(t *testing.T) {
	p, _, _ := newTestProblem(t)
	p.Registry().Register("Bounded", func() Computation {
		return &Func{
			OpName: "Bounded",
			Params: []opscript.Prompt{
				{Name: "n", Type: opscript.PromptNumeric, Min: 2, Max: 3},
				{Name: "label", Type: opscript.PromptString},
				{Name: "pick", Type: opscript.PromptCombo, Options: []string{"a", "b"}},
				{Name: "ok", Type: opscript.PromptCheckbox},
				{Name: "word", Type: opscript.PromptColumn, Columns: opscript.TextColumn},
				{Name: "fixed", Type: opscript.PromptFixed, Value: "0.5"},
			},
			Fn: func(ctx context.Context, eng opscript.Engine, env *opscript.Env) (*opscript.Result, error) {
				return nil, nil
			},
		}
	})

	results := NewTester(p, 42).Run(context.Background())
	require.Len(t, results, 3)
	assert.Equal(t, "Double", results[0].Operation)
	assert.True(t, results[0].Passed(), "%v", results[0].Err)
	assert.Equal(t, "Broken", results[1].Operation)
	assert.ErrorIs(t, results[1].Err, errBroken)
	assert.True(t, results[2].Passed(), "%v", results[2].Err)

	// The random data set is removed again.
	assert.Len(t, p.DataSets(), 1)
}

func TestTesterRandomFrame(t *testing.T) {
	p, _, _ := newTestProblem(t)
	f := NewTester(p, 7).randomFrame()
	require.GreaterOrEqual(t, f.NumColumns(), 2)
	assert.True(t, f.ColumnAt(0).IsNumeric())
	assert.True(t, f.ColumnAt(1).IsText())
	assert.Positive(t, f.Len())

	g := NewTester(p, 7).randomFrame()
	assert.Equal(t, f.Names(), g.Names())
}
