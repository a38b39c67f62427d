package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traherom/marla-sub003/dataframe"
	"github.com/traherom/marla-sub003/internal/enginetest"
	"github.com/traherom/marla-sub003/opscript"
	"github.com/traherom/marla-sub003/problem"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func double() problem.Computation {
	return &problem.Func{
		OpName: "Double",
		Params: []opscript.Prompt{{Name: "col", Type: opscript.PromptColumn, Columns: opscript.NumericColumn}},
		Fn: func(ctx context.Context, eng opscript.Engine, env *opscript.Env) (*opscript.Result, error) {
			vals, err := env.Parent.Find(env.Answers["col"].Text()).Floats()
			if err != nil {
				return nil, err
			}
			if _, err := eng.SetVariable(ctx, "x", vals); err != nil {
				return nil, err
			}
			for i := range vals {
				vals[i] *= 2
			}
			out, _ := env.Out.AddColumn("doubled")
			out.AppendFloats(vals)
			return nil, nil
		},
	}
}

// picture writes a file and reports it as its plot.
type picture struct {
	dir string
}

func (p *picture) Name() string               { return "Picture" }
func (p *picture) Prompts() []opscript.Prompt { return nil }
func (p *picture) HasPlot() bool              { return true }

func (p *picture) Execute(ctx context.Context, eng opscript.Engine, env *opscript.Env) (*opscript.Result, error) {
	path := filepath.Join(p.dir, "plot.png")
	if err := os.WriteFile(path, []byte("not really a png"), 0o644); err != nil {
		return nil, err
	}
	return &opscript.Result{PlotPath: path}, nil
}

type fixture struct {
	p   *problem.Problem
	ds  *problem.DataSet
	op  *problem.Operation
	h   http.Handler
	eng *enginetest.Fake
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	dir := t.TempDir()
	reg := problem.NewRegistry()
	reg.Register("Double", double)
	reg.Register("Picture", func() problem.Computation { return &picture{dir: dir} })

	eng := enginetest.New()
	p := problem.NewProblem("web", eng, reg)
	f := dataframe.New("data", "height")
	h, _ := f.Column("height")
	h.AppendFloats([]float64{1, 2.5})
	ds := problem.NewDataSet(f)
	require.NoError(t, p.AddDataSet(ds))
	op, err := p.Attach(ds, "Double")
	require.NoError(t, err)

	return &fixture{p: p, ds: ds, op: op, h: New(p, opts...).Handler(), eng: eng}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.h.ServeHTTP(w, req)
	return w
}

func TestListing(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/operations", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cats map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cats))
	assert.Equal(t, map[string][]string{opscript.Uncategorized: {"Double", "Picture"}}, cats)

	w = f.do(http.MethodGet, "/datasets", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sets []nodeInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sets))
	require.Len(t, sets, 1)
	assert.Equal(t, "data", sets[0].Name)
	require.Len(t, sets[0].Children, 1)
	assert.Equal(t, f.op.ID(), sets[0].Children[0].ID)
	assert.Equal(t, []string{"col"}, sets[0].Children[0].Missing)
	assert.Equal(t, "dirty", sets[0].Children[0].State)

	w = f.do(http.MethodGet, "/nodes/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnswerThenCompute(t *testing.T) {
	f := newFixture(t)
	cols := "/nodes/" + f.op.ID() + "/columns"

	w := f.do(http.MethodGet, cols, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(http.MethodPut, "/nodes/"+f.op.ID()+"/answers/zzz", "height")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/nodes/"+f.op.ID()+"/answers/col", "height")
	require.Equal(t, http.StatusOK, w.Code)
	var info nodeInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, []string{"col=height"}, info.Answers)
	assert.Empty(t, info.Missing)

	w = f.do(http.MethodGet, cols, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"name": "height", "dtype": "numeric", "val": [1, 2.5]},
		{"name": "doubled", "dtype": "numeric", "val": [2, 5]}
	]`, w.Body.String())

	w = f.do(http.MethodGet, "/nodes/"+f.op.ID()+"/csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "height,doubled\n1,2\n2.5,5\n", w.Body.String())

	w = f.do(http.MethodGet, "/nodes/"+f.op.ID()+"/commands", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "x <- c(1, 2.5)\n", w.Body.String())

	w = f.do(http.MethodGet, "/nodes/"+f.op.ID()+"/commands?chain=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "height <- c(1, 2.5)\n"))
}

func TestAddAndDetach(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/nodes/"+f.ds.ID()+"/operations", `{"type": "Nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(http.MethodPost, "/nodes/"+f.ds.ID()+"/operations", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/nodes/"+f.op.ID()+"/operations", `{"type": "Picture"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var info nodeInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.True(t, info.Plot)
	require.Len(t, f.op.Children(), 1)
	assert.Equal(t, info.ID, f.op.Children()[0].ID())

	w = f.do(http.MethodDelete, "/nodes/"+f.ds.ID(), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(http.MethodDelete, "/nodes/"+f.op.ID(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, f.ds.Children())
}

func TestPlot(t *testing.T) {
	f := newFixture(t)
	pic, err := f.p.Attach(f.ds, "Picture")
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/nodes/"+pic.ID()+"/plot", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not really a png", w.Body.String())

	w = f.do(http.MethodGet, "/nodes/"+f.op.ID()+"/plot", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestart(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/engine/restart", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	restarts := 0
	f = newFixture(t, WithRestart(func(context.Context) error {
		restarts++
		return nil
	}))
	require.NoError(t, f.op.SetAnswer("col", opscript.ColumnAnswer{Column: "height"}))
	_, err := f.op.Columns(context.Background())
	require.NoError(t, err)
	require.False(t, f.op.Dirty())

	w = f.do(http.MethodPost, "/engine/restart", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, restarts)
	assert.True(t, f.op.Dirty())

	f = newFixture(t, WithRestart(func(context.Context) error { return fmt.Errorf("no R here") }))
	w = f.do(http.MethodPost, "/engine/restart", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.op.SetAnswer("col", opscript.ColumnAnswer{Column: "height"}))
	_, err := f.op.Columns(context.Background())
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "marla_operation_recomputes_total")
}

func TestServerShutdown(t *testing.T) {
	f := newFixture(t)
	s := New(f.p)
	require.NoError(t, s.Start("127.0.0.1:0"))

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/datasets", s.Port()))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"data"`)

	require.NoError(t, s.Stop())
	assert.NoError(t, New(f.p).Stop())
}
