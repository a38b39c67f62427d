package dataframe

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/traherom/marla-sub003/rutil"
)

var (
	ErrDuplicateColumn = errors.New("dataframe: duplicate column name")
	ErrColumnNotFound  = errors.New("dataframe: column not found")
	ErrNotNumeric      = errors.New("dataframe: value is not numeric")
)

// Mode determines how a Column's raw values are coerced.
type Mode int

const (
	Numeric Mode = iota
	Text
)

func (m Mode) String() string {
	if m == Text {
		return "string"
	}
	return "numeric"
}

// ParseMode accepts the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "numeric":
		return Numeric, nil
	case "string", "text":
		return Text, nil
	}
	return Numeric, fmt.Errorf("dataframe: unknown column mode %q", s)
}

// Column is a named, ordered sequence of values. Values are stored as
// given and coerced lazily to the column's Mode. A new column is
// Numeric.
//
// Columns are not safe for concurrent use.
type Column struct {
	name  string
	mode  Mode
	v     []SimpleData
	frame *Frame
}

// NewColumn returns an empty, detached Numeric column.
func NewColumn(name string) *Column {
	return &Column{name: name}
}

func (c *Column) Name() string    { return c.name }
func (c *Column) Mode() Mode      { return c.mode }
func (c *Column) Len() int        { return len(c.v) }
func (c *Column) IsNumeric() bool { return c.mode == Numeric }
func (c *Column) IsText() bool    { return c.mode == Text }

func (c *Column) changed() {
	if c.frame != nil {
		c.frame.changed()
	}
}

// SetName renames the column. Names must stay unique within the
// owning Frame.
func (c *Column) SetName(name string) error {
	if name == c.name {
		return nil
	}
	if c.frame != nil && c.frame.Index(name) != -1 {
		return fmt.Errorf("%w: %q in %q", ErrDuplicateColumn, name, c.frame.name)
	}
	c.name = name
	c.changed()
	return nil
}

// SetMode switches the column's mode and re-coerces every stored
// value. Switching to Numeric fails, leaving the column untouched, if
// any value cannot be read as a number. The old mode is returned.
func (c *Column) SetMode(m Mode) (Mode, error) {
	old := c.mode
	if old == m {
		return old, nil
	}
	coerced := make([]SimpleData, len(c.v))
	for i, x := range c.v {
		if m == Numeric {
			f, err := toFloat(x)
			if err != nil {
				return old, fmt.Errorf("column %q row %d: %w", c.name, i, err)
			}
			coerced[i] = f
		} else {
			coerced[i] = toText(x)
		}
	}
	c.v = coerced
	c.mode = m
	c.changed()
	return old, nil
}

// AutodetectMode makes the column Numeric if every value parses as a
// number and Text otherwise.
func (c *Column) AutodetectMode() Mode {
	m := Numeric
	for _, x := range c.v {
		if _, err := toFloat(x); err != nil {
			m = Text
			break
		}
	}
	c.SetMode(m)
	return c.mode
}

// Append adds raw values to the end of the column.
func (c *Column) Append(vals ...SimpleData) {
	if len(vals) == 0 {
		return
	}
	c.v = append(c.v, vals...)
	c.changed()
}

func (c *Column) AppendFloats(vals []float64) {
	for _, f := range vals {
		c.v = append(c.v, f)
	}
	c.changed()
}

func (c *Column) AppendStrings(vals []string) {
	for _, s := range vals {
		c.v = append(c.v, s)
	}
	c.changed()
}

// Set replaces the value at row i. A value that cannot be read as a
// number demotes a Numeric column to Text.
func (c *Column) Set(i int, v SimpleData) {
	if c.mode == Numeric {
		if f, err := toFloat(v); err == nil {
			c.v[i] = f
			c.changed()
			return
		}
		c.SetMode(Text)
	}
	c.v[i] = toText(v)
	c.changed()
}

// ValueAt returns row i coerced to the column's mode.
func (c *Column) ValueAt(i int) (SimpleData, error) {
	if c.mode == Numeric {
		return c.FloatAt(i)
	}
	return c.StringAt(i), nil
}

func (c *Column) FloatAt(i int) (float64, error) {
	return toFloat(c.v[i])
}

func (c *Column) StringAt(i int) string {
	return toText(c.v[i])
}

func (c *Column) Floats() ([]float64, error) {
	out := make([]float64, len(c.v))
	for i, x := range c.v {
		f, err := toFloat(x)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", c.name, i, err)
		}
		out[i] = f
	}
	return out, nil
}

func (c *Column) Strings() []string {
	out := make([]string, len(c.v))
	for i, x := range c.v {
		out[i] = toText(x)
	}
	return out
}

// Raw returns a copy of the stored values.
func (c *Column) Raw() []SimpleData {
	return append([]SimpleData(nil), c.v...)
}

func (c *Column) Clear() {
	if len(c.v) == 0 {
		return
	}
	c.v = nil
	c.changed()
}

// Copy returns a deep, detached copy of the column.
func (c *Column) Copy() *Column {
	return &Column{
		name: c.name,
		mode: c.mode,
		v:    append([]SimpleData(nil), c.v...),
	}
}

// Equal reports whether both columns share a name, a mode and the same
// coerced values.
func (c *Column) Equal(o *Column) bool {
	if c == o {
		return true
	}
	if o == nil || c.name != o.name || c.mode != o.mode || len(c.v) != len(o.v) {
		return false
	}
	for i := range c.v {
		a, errA := c.ValueAt(i)
		b, errB := o.ValueAt(i)
		if (errA == nil) != (errB == nil) {
			return false
		}
		if af, ok := a.(float64); ok {
			bf := b.(float64)
			if af != bf && !(math.IsNaN(af) && math.IsNaN(bf)) {
				return false
			}
			continue
		}
		if a != b {
			return false
		}
	}
	return true
}

// RLiteral renders the column as an R vector.
func (c *Column) RLiteral() (string, error) {
	if c.mode == Text {
		return rutil.Strings(c.Strings()), nil
	}
	fs, err := c.Floats()
	if err != nil {
		return "", err
	}
	return rutil.Floats(fs), nil
}

// Display lists the coerced values separated by commas, quoting text.
func (c *Column) Display() string {
	parts := make([]string, len(c.v))
	for i := range c.v {
		if c.mode == Text {
			parts[i] = `"` + c.StringAt(i) + `"`
		} else {
			parts[i] = c.StringAt(i)
		}
	}
	return strings.Join(parts, ", ")
}

type columnJSON struct {
	N string       `json:"name"`
	D string       `json:"dtype"`
	V []SimpleData `json:"val"`
}

func (c *Column) MarshalJSON() ([]byte, error) {
	vals := make([]SimpleData, len(c.v))
	for i := range c.v {
		v, err := c.ValueAt(i)
		if err != nil {
			return nil, err
		}
		// JSON has no NaN or Inf.
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			v = nil
		}
		vals[i] = v
	}
	return json.Marshal(columnJSON{c.name, c.mode.String(), vals})
}

// Columns is an ordered list of columns, as seen by a reader of a
// data source.
type Columns []*Column

// Find returns the column with the given name or nil.
func (cs Columns) Find(name string) *Column {
	for _, c := range cs {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (cs Columns) Names() []string {
	names := make([]string, len(cs))
	for i, c := range cs {
		names[i] = c.name
	}
	return names
}

// Len returns the length of the longest column.
func (cs Columns) Len() int {
	n := 0
	for _, c := range cs {
		if c.Len() > n {
			n = c.Len()
		}
	}
	return n
}
