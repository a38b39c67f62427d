package opscript

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/traherom/marla-sub003/dataframe"
)

type PromptType int

const (
	PromptColumn PromptType = iota
	PromptCombo
	PromptString
	PromptNumeric
	PromptCheckbox
	PromptFixed
)

var promptTypeNames = []string{"COLUMN", "COMBO", "STRING", "NUMERIC", "CHECKBOX", "FIXED"}

func (t PromptType) String() string {
	if int(t) < len(promptTypeNames) {
		return promptTypeNames[t]
	}
	return "PromptType(" + strconv.Itoa(int(t)) + ")"
}

// ParsePromptType is case insensitive.
func ParsePromptType(s string) (PromptType, error) {
	i := slices.Index(promptTypeNames, strings.ToUpper(s))
	if i < 0 {
		return 0, fmt.Errorf("opscript: unknown prompt type %q", s)
	}
	return PromptType(i), nil
}

// ColumnFilter restricts which columns a COLUMN prompt accepts.
type ColumnFilter int

const (
	AnyColumn ColumnFilter = iota
	NumericColumn
	TextColumn
)

func parseColumnFilter(s string) (ColumnFilter, error) {
	switch s {
	case "", "all":
		return AnyColumn, nil
	case "numeric":
		return NumericColumn, nil
	case "string":
		return TextColumn, nil
	}
	return 0, fmt.Errorf("opscript: invalid column type %q", s)
}

func (f ColumnFilter) accepts(c *dataframe.Column) bool {
	switch f {
	case NumericColumn:
		return c.IsNumeric()
	case TextColumn:
		return c.IsText()
	}
	return true
}

// Prompt is one question a script asks before it can run.
type Prompt struct {
	Name string
	Text string
	Type PromptType

	Columns ColumnFilter   // COLUMN
	Options []string       // COMBO
	Pattern *regexp.Regexp // STRING, nil accepts anything
	Min     float64        // NUMERIC, inclusive
	Max     float64        // NUMERIC, inclusive
	Value   string         // FIXED
}

// Default returns the answer a prompt has without user input. Only
// FIXED prompts have one.
func (p *Prompt) Default() (Answer, bool) {
	if p.Type == PromptFixed {
		return FixedAnswer{Value: p.Value}, true
	}
	return nil, false
}

// Validate checks that a answers p. cols are the columns a COLUMN
// answer may refer to.
func (p *Prompt) Validate(a Answer, cols dataframe.Columns) error {
	if a == nil {
		return fmt.Errorf("%w: %s: no answer", ErrInvalidAnswer, p.Name)
	}
	if a.Type() != p.Type {
		return fmt.Errorf("%w: %s: %s answer for a %s prompt", ErrInvalidAnswer, p.Name, a.Type(), p.Type)
	}
	switch a := a.(type) {
	case ColumnAnswer:
		c := cols.Find(a.Column)
		if c == nil {
			return fmt.Errorf("%w: %s: no column named %q", ErrInvalidAnswer, p.Name, a.Column)
		}
		if !p.Columns.accepts(c) {
			return fmt.Errorf("%w: %s: column %q is %s", ErrInvalidAnswer, p.Name, a.Column, c.Mode())
		}
	case ComboAnswer:
		if !slices.Contains(p.Options, a.Choice) {
			return fmt.Errorf("%w: %s: %q is not one of %v", ErrInvalidAnswer, p.Name, a.Choice, p.Options)
		}
	case StringAnswer:
		if p.Pattern != nil && !p.Pattern.MatchString(a.Value) {
			return fmt.Errorf("%w: %s: %q does not match %s", ErrInvalidAnswer, p.Name, a.Value, p.Pattern)
		}
	case NumericAnswer:
		if math.IsNaN(a.Value) || a.Value < p.Min || a.Value > p.Max {
			return fmt.Errorf("%w: %s: %v is outside [%v, %v]", ErrInvalidAnswer, p.Name, a.Value, p.Min, p.Max)
		}
	case FixedAnswer:
		if a.Value != p.Value {
			return fmt.Errorf("%w: %s: fixed value is %q", ErrInvalidAnswer, p.Name, p.Value)
		}
	}
	return nil
}

// ParseAnswer reads an answer for p from its persisted text form.
func ParseAnswer(p *Prompt, text string) (Answer, error) {
	switch p.Type {
	case PromptColumn:
		return ColumnAnswer{Column: text}, nil
	case PromptCombo:
		return ComboAnswer{Choice: text}, nil
	case PromptString:
		return StringAnswer{Value: text}, nil
	case PromptNumeric:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAnswer, p.Name, err)
		}
		return NumericAnswer{Value: f}, nil
	case PromptCheckbox:
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "true":
			return CheckboxAnswer{Checked: true}, nil
		case "false", "":
			return CheckboxAnswer{Checked: false}, nil
		}
		return nil, fmt.Errorf("%w: %s: %q is not a checkbox value", ErrInvalidAnswer, p.Name, text)
	case PromptFixed:
		return FixedAnswer{Value: p.Value}, nil
	}
	return nil, fmt.Errorf("%w: %s: unknown prompt type %s", ErrInvalidAnswer, p.Name, p.Type)
}
