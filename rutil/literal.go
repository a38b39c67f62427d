// Package rutil renders Go values as R source text.
package rutil

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrMixedVector is returned when a vector holds both numeric and
// text elements.
var ErrMixedVector = errors.New("rutil: vector mixes numeric and text values")

// Literaler is implemented by values that know their own R form, such
// as data columns.
type Literaler interface {
	RLiteral() (string, error)
}

// Quote renders s as a double quoted R string.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// FormatFloat renders f the way R reads it back.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// FormatBool renders b as TRUE or FALSE.
func FormatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// ToFloat converts any Go numeric type to a float64.
func ToFloat(x interface{}) (float64, bool) {
	switch v := x.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Literal renders a scalar or vector value as R source. Numbers are
// bare, strings quoted, booleans TRUE/FALSE and slices become c(...).
func Literal(v interface{}) (string, error) {
	switch x := v.(type) {
	case Literaler:
		return x.RLiteral()
	case string:
		return Quote(x), nil
	case bool:
		return FormatBool(x), nil
	case []float64:
		return Floats(x), nil
	case []string:
		return Strings(x), nil
	case []bool:
		parts := make([]string, len(x))
		for i, b := range x {
			parts[i] = FormatBool(b)
		}
		return "c(" + strings.Join(parts, ", ") + ")", nil
	case []interface{}:
		return Vector(x)
	}
	if f, ok := ToFloat(v); ok {
		return FormatFloat(f), nil
	}
	return "", fmt.Errorf("rutil: cannot render %T as an R literal", v)
}

// Floats renders a numeric vector.
func Floats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, f := range vals {
		parts[i] = FormatFloat(f)
	}
	return "c(" + strings.Join(parts, ", ") + ")"
}

// Strings renders a character vector.
func Strings(vals []string) string {
	parts := make([]string, len(vals))
	for i, s := range vals {
		parts[i] = Quote(s)
	}
	return "c(" + strings.Join(parts, ", ") + ")"
}

// Vector renders a homogeneous vector. The first element decides
// whether the vector is numeric or text; every other element must
// agree with it.
func Vector(vals []interface{}) (string, error) {
	if len(vals) == 0 {
		return "c()", nil
	}
	if _, numeric := ToFloat(vals[0]); numeric {
		fs := make([]float64, len(vals))
		for i, v := range vals {
			f, ok := ToFloat(v)
			if !ok {
				return "", fmt.Errorf("%w: element %d is %T", ErrMixedVector, i, v)
			}
			fs[i] = f
		}
		return Floats(fs), nil
	}
	ss := make([]string, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("%w: element %d is %T", ErrMixedVector, i, v)
		}
		ss[i] = s
	}
	return Strings(ss), nil
}

// MakeName turns s into a syntactically valid R name the way R's
// make.names does: invalid characters become dots and names that do
// not start with a letter (or a dot not followed by a digit) get an X
// prefix.
func MakeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('.')
		}
	}
	name := b.String()
	if name == "" {
		return "X"
	}
	first := []rune(name)[0]
	switch {
	case unicode.IsLetter(first):
	case first == '.' && (len(name) == 1 || !unicode.IsDigit([]rune(name)[1])):
	default:
		name = "X" + name
	}
	if reserved[name] {
		name += "."
	}
	return name
}

var reserved = map[string]bool{
	"if": true, "else": true, "repeat": true, "while": true, "function": true,
	"for": true, "next": true, "break": true, "TRUE": true, "FALSE": true,
	"NULL": true, "Inf": true, "NaN": true, "NA": true, "in": true,
}
