package opscript

import (
	"github.com/traherom/marla-sub003/rutil"
)

// Answer is a user's response to one Prompt. There is one
// implementation per PromptType.
type Answer interface {
	// Type is the prompt type this answer responds to.
	Type() PromptType
	// RValue is the value bound into R by a set node.
	RValue() interface{}
	// Text is the persisted form, read back by ParseAnswer.
	Text() string

	sealed()
}

// Answers maps prompt names to answers.
type Answers map[string]Answer

// Copy returns a shallow copy; answers themselves are immutable.
func (a Answers) Copy() Answers {
	if a == nil {
		return nil
	}
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal reports whether a and b hold the same answers.
func (a Answers) Equal(b Answers) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || v != w {
			return false
		}
	}
	return true
}

type ColumnAnswer struct{ Column string }
type ComboAnswer struct{ Choice string }
type StringAnswer struct{ Value string }
type NumericAnswer struct{ Value float64 }
type CheckboxAnswer struct{ Checked bool }
type FixedAnswer struct{ Value string }

func (ColumnAnswer) Type() PromptType   { return PromptColumn }
func (ComboAnswer) Type() PromptType    { return PromptCombo }
func (StringAnswer) Type() PromptType   { return PromptString }
func (NumericAnswer) Type() PromptType  { return PromptNumeric }
func (CheckboxAnswer) Type() PromptType { return PromptCheckbox }
func (FixedAnswer) Type() PromptType    { return PromptFixed }

func (a ColumnAnswer) RValue() interface{}   { return a.Column }
func (a ComboAnswer) RValue() interface{}    { return a.Choice }
func (a StringAnswer) RValue() interface{}   { return a.Value }
func (a NumericAnswer) RValue() interface{}  { return a.Value }
func (a CheckboxAnswer) RValue() interface{} { return a.Checked }
func (a FixedAnswer) RValue() interface{}    { return a.Value }

func (a ColumnAnswer) Text() string   { return a.Column }
func (a ComboAnswer) Text() string    { return a.Choice }
func (a StringAnswer) Text() string   { return a.Value }
func (a NumericAnswer) Text() string  { return rutil.FormatFloat(a.Value) }
func (a CheckboxAnswer) Text() string { return rutil.FormatBool(a.Checked) }
func (a FixedAnswer) Text() string    { return a.Value }

func (ColumnAnswer) sealed()   {}
func (ComboAnswer) sealed()    {}
func (StringAnswer) sealed()   {}
func (NumericAnswer) sealed()  {}
func (CheckboxAnswer) sealed() {}
func (FixedAnswer) sealed()    {}
