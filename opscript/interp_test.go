package opscript

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	marla "github.com/traherom/marla-sub003"
	"github.com/traherom/marla-sub003/dataframe"
	"github.com/traherom/marla-sub003/internal/enginetest"
)

func mustScript(t *testing.T, op string) *Script {
	t.Helper()
	c, err := ParseCatalog(strings.NewReader("<operations>" + op + "</operations>"))
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	return c.Scripts()[0]
}

func newEnv(answers Answers) *Env {
	return &Env{Answers: answers, Parent: testColumns(), Out: dataframe.New("out")}
}

func scaleAnswers() Answers {
	return Answers{
		"col":     ColumnAnswer{Column: "height"},
		"factor":  NumericAnswer{Value: 2},
		"label":   StringAnswer{Value: "h"},
		"tail":    ComboAnswer{Choice: "less"},
		"verbose": CheckboxAnswer{Checked: false},
	}
}

func TestExecuteScale(t *testing.T) {
	s, err := loadTestCatalog(t).Lookup("Scale")
	require.NoError(t, err)
	eng := enginetest.New().On("y", "[1] 3 4\n")
	eng.SetRecordMode(marla.RecordCommands)
	env := newEnv(scaleAnswers())

	res, err := s.Execute(context.Background(), eng, env)
	require.NoError(t, err)
	assert.Empty(t, res.PlotPath)

	col, err := env.Out.Column("scaled")
	require.NoError(t, err)
	assert.True(t, col.IsNumeric())
	got, _ := col.Floats()
	assert.Equal(t, []float64{3, 4}, got)

	want := []string{"x <- c(1.5, 2)", "k <- 2", "y <- x * k", "y"}
	assert.Equal(t, want, eng.Calls())
	assert.Equal(t, want, eng.Recorded())
	assert.Equal(t, marla.RecordCommands, eng.RecordMode(), "recorder restored")
}

func TestMissingParametersBeforeIO(t *testing.T) {
	s, _ := loadTestCatalog(t).Lookup("Scale")
	eng := enginetest.New()

	_, err := s.Execute(context.Background(), eng, newEnv(Answers{"col": ColumnAnswer{Column: "height"}}))
	var mp *MissingParametersError
	require.True(t, errors.As(err, &mp), "got %v", err)
	assert.Equal(t, "Scale", mp.Operation)
	assert.Equal(t, []string{"factor", "label", "tail", "verbose"}, mp.Missing)
	assert.Empty(t, eng.Calls())

	a := scaleAnswers()
	a["factor"] = NumericAnswer{Value: 500}
	_, err = s.Execute(context.Background(), eng, newEnv(a))
	assert.True(t, errors.Is(err, ErrInvalidAnswer))
	assert.Empty(t, eng.Calls())
}

func TestSecondPlotFails(t *testing.T) {
	s := mustScript(t, `<operation name="Twice" plot="true"><computation>
		<plot><cmd>plot(1)</cmd></plot>
		<plot><cmd>plot(2)</cmd></plot>
	</computation></operation>`)
	eng := enginetest.New()

	_, err := s.Execute(context.Background(), eng, newEnv(nil))
	var se *ScriptError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, "Twice", se.Operation)
	assert.Equal(t, []string{"png()", "plot(1)", "dev.off()"}, eng.Calls())
}

func TestPlotPath(t *testing.T) {
	s, _ := loadTestCatalog(t).Lookup("Histogram")
	eng := enginetest.New().Library("graphics")

	res, err := s.Execute(context.Background(), eng, newEnv(Answers{"col": ColumnAnswer{Column: "name"}}))
	require.NoError(t, err)
	assert.Equal(t, "/fake/plot-1.png", res.PlotPath)
	assert.Equal(t, []string{"library(graphics)", `x <- c("ann", "bob")`, "png()", "hist(x)", "dev.off()"}, eng.Calls())
}

func TestSaveAutodetect(t *testing.T) {
	s := mustScript(t, `<operation name="Save"><computation>
		<save column="num">a</save>
		<save column="text" type="auto">b</save>
	</computation></operation>`)
	eng := enginetest.New().On("a", "[1] 3.5\n").On("b", `[1] "red"`+"\n")
	env := newEnv(nil)

	_, err := s.Execute(context.Background(), eng, env)
	require.NoError(t, err)

	num, _ := env.Out.Column("num")
	assert.Equal(t, dataframe.Numeric, num.Mode())
	f, _ := num.FloatAt(0)
	assert.Equal(t, 3.5, f)

	text, _ := env.Out.Column("text")
	assert.Equal(t, dataframe.Text, text.Mode())
	assert.Equal(t, []string{"red"}, text.Strings())

	_, err = mustScript(t, `<operation name="Bad"><computation>
		<save column="forced" type="string">a</save>
	</computation></operation>`).Execute(context.Background(), eng, newEnv(nil))
	assert.True(t, IsScriptError(err), "numbers have no strings to save")
	assert.True(t, marla.IsParseError(err))
}

func TestSaveDefaultsToNumeric(t *testing.T) {
	eng := enginetest.New().On("b", `[1] "red"`+"\n")
	_, err := mustScript(t, `<operation name="Untyped"><computation>
		<save column="c">b</save>
	</computation></operation>`).Execute(context.Background(), eng, newEnv(nil))
	assert.True(t, IsScriptError(err), "got %v", err)
	assert.True(t, marla.IsParseError(err))
}

func TestLoopOverNothingFails(t *testing.T) {
	for _, typ := range []string{"numeric", "string"} {
		s := mustScript(t, `<operation name="Empty"><computation>
			<loop type="`+typ+`" loop_var="v" index_var="i" value_var="x">
				<cmd>touch(x)</cmd>
			</loop>
		</computation></operation>`)
		eng := enginetest.New().On("v", "NULL\n")

		_, err := s.Execute(context.Background(), eng, newEnv(nil))
		assert.True(t, IsScriptError(err), "%s: got %v", typ, err)
		assert.True(t, marla.IsParseError(err), "%s: got %v", typ, err)
		assert.Equal(t, []string{"v"}, eng.Calls(), typ)
	}
}

func TestLoopParentAndVartype(t *testing.T) {
	s, _ := loadTestCatalog(t).Lookup("Mean")
	eng := enginetest.New().On("mean(vals)", "[1] 1.75\n")
	env := newEnv(nil)

	_, err := s.Execute(context.Background(), eng, env)
	require.NoError(t, err)
	assert.Equal(t, []string{"height"}, env.Out.Names())
	col, _ := env.Out.Column("height")
	f, _ := col.FloatAt(0)
	assert.Equal(t, 1.75, f)
}

func TestLoopVectors(t *testing.T) {
	s := mustScript(t, `<operation name="Loops"><computation>
		<loop type="numeric" loop_var="1:3" index_var="i" value_var="v">
			<save column="sq">v</save>
		</loop>
		<loop type="string" loop_var="letters" key_var="k" value_var="w">
			<save column="letter" type="string">w</save>
		</loop>
	</computation></operation>`)
	eng := enginetest.New().On("1:3", "[1] 1 2 3\n").On("letters", `[1] "a" "b"`+"\n")
	env := newEnv(nil)

	_, err := s.Execute(context.Background(), eng, env)
	require.NoError(t, err)
	sq, _ := env.Out.Column("sq")
	got, _ := sq.Floats()
	assert.Equal(t, []float64{1, 2, 3}, got)
	letter, _ := env.Out.Column("letter")
	assert.Equal(t, []string{"a", "b"}, letter.Strings())
	k, _ := eng.Var("k")
	assert.Equal(t, "2", k)
}

func TestIfBranches(t *testing.T) {
	s := mustScript(t, `<operation name="Branch"><computation>
		<if expr="n &gt; 1">
			<then><cmd>big()</cmd></then>
			<else><cmd>small()</cmd></else>
		</if>
		<if colexists="missing"><then><cmd>never()</cmd></then></if>
		<save column="made">n</save>
		<if colexists="made"><then><cmd>made()</cmd></then></if>
	</computation></operation>`)
	eng := enginetest.New().On("n > 1", "[1] FALSE\n").On("n", "[1] 1\n")

	_, err := s.Execute(context.Background(), eng, newEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"n > 1", "small()", "n", "made()"}, eng.Calls())

	eng = enginetest.New().On("n > 1", "[1] TRUE FALSE\n")
	_, err = s.Execute(context.Background(), eng, newEnv(nil))
	assert.True(t, IsScriptError(err))
}

func TestRecordingOnlyCoversScriptCommands(t *testing.T) {
	s := mustScript(t, `<operation name="Rec"><computation>
		<if expr="ok"><then><cmd>a()</cmd></then></if>
		<save r_column="nm">b</save>
		<load r_library="lib"/>
	</computation></operation>`)
	eng := enginetest.New().
		On("ok", "[1] TRUE\n").
		On("nm", `[1] "col"`+"\n").
		On("b", "[1] 1\n").
		On("lib", `[1] "stats"`+"\n").
		Library("stats")
	eng.SetRecordMode(marla.RecordFull)

	_, err := s.Execute(context.Background(), eng, newEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"a()", "b"}, eng.Recorded())
	assert.Equal(t, marla.RecordFull, eng.RecordMode())
}

func TestScriptErrors(t *testing.T) {
	c := loadTestCatalog(t)
	internal, _ := c.Lookup("Internal")
	_, err := internal.Execute(context.Background(), enginetest.New(), newEnv(nil))
	var se *ScriptError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Internal", se.Operation)
	assert.Equal(t, "not for users", se.Msg)

	hist, _ := c.Lookup("Histogram")
	_, err = hist.Execute(context.Background(), enginetest.New(), newEnv(Answers{"col": ColumnAnswer{Column: "height"}}))
	assert.True(t, IsScriptError(err), "library cannot be loaded")

	boom := &marla.EngineError{Command: "y <- x * k", Output: "Error: object 'x' not found"}
	eng := enginetest.New().Fail("y <- x * k", boom)
	scale, _ := c.Lookup("Scale")
	_, err = scale.Execute(context.Background(), eng, newEnv(scaleAnswers()))
	assert.True(t, IsScriptError(err))
	assert.True(t, marla.IsEngineError(err))

	eng = enginetest.New().Fail("x <- c(1.5, 2)", marla.ErrDead)
	_, err = scale.Execute(context.Background(), eng, newEnv(scaleAnswers()))
	assert.ErrorIs(t, err, marla.ErrDead)
}

func TestSetUseName(t *testing.T) {
	s := mustScript(t, `<operation name="Named">
		<query name="col" prompt="Column" type="column"/>
		<query name="conf" prompt="Confidence" type="fixed" value="0.9"/>
		<computation>
			<set name="col" rvar="cn" use="name"/>
			<set name="conf" rvar="lvl"/>
		</computation></operation>`)
	eng := enginetest.New()
	_, err := s.Execute(context.Background(), eng, newEnv(Answers{"col": ColumnAnswer{Column: "name"}}))
	require.NoError(t, err)
	assert.Equal(t, []string{`cn <- "name"`, `lvl <- "0.9"`}, eng.Calls())
}
