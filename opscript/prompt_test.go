package opscript

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/traherom/marla-sub003/dataframe"
)

func testColumns() dataframe.Columns {
	f := dataframe.New("data", "height", "name")
	f.ColumnAt(0).Append(1.5, 2)
	name := f.ColumnAt(1)
	name.Append("ann", "bob")
	name.SetMode(dataframe.Text)
	return f.Columns()
}

func TestValidate(t *testing.T) {
	cols := testColumns()
	numCol := &Prompt{Name: "c", Type: PromptColumn, Columns: NumericColumn}
	anyCol := &Prompt{Name: "c", Type: PromptColumn}
	combo := &Prompt{Name: "t", Type: PromptCombo, Options: []string{"less", "greater"}}
	str := &Prompt{Name: "s", Type: PromptString, Pattern: regexp.MustCompile(`^(?:[a-z]+)$`)}
	num := &Prompt{Name: "n", Type: PromptNumeric, Min: 0, Max: 1}
	box := &Prompt{Name: "b", Type: PromptCheckbox}
	fixed := &Prompt{Name: "f", Type: PromptFixed, Value: "0.95"}

	testCases := []struct {
		p     *Prompt
		a     Answer
		valid bool
	}{
		{numCol, ColumnAnswer{"height"}, true},
		{numCol, ColumnAnswer{"name"}, false},
		{anyCol, ColumnAnswer{"name"}, true},
		{anyCol, ColumnAnswer{"weight"}, false},
		{anyCol, StringAnswer{"height"}, false},
		{combo, ComboAnswer{"less"}, true},
		{combo, ComboAnswer{"equal"}, false},
		{str, StringAnswer{"abc"}, true},
		{str, StringAnswer{"abc1"}, false},
		{num, NumericAnswer{0}, true},
		{num, NumericAnswer{1}, true},
		{num, NumericAnswer{1.01}, false},
		{num, NumericAnswer{math.NaN()}, false},
		{box, CheckboxAnswer{true}, true},
		{fixed, FixedAnswer{"0.95"}, true},
		{fixed, FixedAnswer{"0.9"}, false},
		{box, nil, false},
	}
	for i, test := range testCases {
		err := test.p.Validate(test.a, cols)
		if test.valid && err != nil {
			t.Errorf("case %d: unexpected error: %v", i, err)
		}
		if !test.valid && !errors.Is(err, ErrInvalidAnswer) {
			t.Errorf("case %d: got %v; want ErrInvalidAnswer", i, err)
		}
	}
}

func TestParseAnswer(t *testing.T) {
	testCases := []struct {
		p    *Prompt
		text string
		want Answer
	}{
		{&Prompt{Type: PromptColumn}, "height", ColumnAnswer{"height"}},
		{&Prompt{Type: PromptCombo}, "less", ComboAnswer{"less"}},
		{&Prompt{Type: PromptString}, "x y", StringAnswer{"x y"}},
		{&Prompt{Type: PromptNumeric}, " 2.5", NumericAnswer{2.5}},
		{&Prompt{Type: PromptCheckbox}, "TRUE", CheckboxAnswer{true}},
		{&Prompt{Type: PromptCheckbox}, "false", CheckboxAnswer{false}},
		{&Prompt{Type: PromptFixed, Value: "0.95"}, "ignored", FixedAnswer{"0.95"}},
	}
	for _, test := range testCases {
		got, err := ParseAnswer(test.p, test.text)
		if err != nil {
			t.Errorf("ParseAnswer(%s, %q): unexpected error: %v", test.p.Type, test.text, err)
			continue
		}
		if got != test.want {
			t.Errorf("ParseAnswer(%s, %q) = %#v; want %#v", test.p.Type, test.text, got, test.want)
		}
		// Text is what gets persisted, so it must read back the same.
		again, err := ParseAnswer(test.p, got.Text())
		assert.NoError(t, err)
		assert.Equal(t, got, again)
	}

	_, err := ParseAnswer(&Prompt{Type: PromptNumeric}, "many")
	assert.True(t, errors.Is(err, ErrInvalidAnswer))
	_, err = ParseAnswer(&Prompt{Type: PromptCheckbox}, "maybe")
	assert.True(t, errors.Is(err, ErrInvalidAnswer))
}

func TestPromptTypeNames(t *testing.T) {
	for _, s := range []string{"column", "Combo", "STRING", "numeric", "checkbox", "fixed"} {
		pt, err := ParsePromptType(s)
		assert.NoError(t, err)
		assert.Equal(t, strings.ToUpper(s), pt.String())
	}
	_, err := ParsePromptType("slider")
	assert.Error(t, err)
}
