package dataframe

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/traherom/marla-sub003/rutil"
)

// SimpleData is the raw element type stored in a Column. A string, a
// bool or any int or float type is a valid value; values are coerced
// to the column's Mode when read.
type SimpleData interface{}

// IsNumeric checks whether x is a numeric type. Currently these
// consist only of integers and floats. Complex numbers and big
// numbers are not considered numeric.
func IsNumeric(x SimpleData) bool {
	_, ok := rutil.ToFloat(x)
	return ok
}

// toFloat coerces x to a number. Strings are parsed, nil reads as NaN.
func toFloat(x SimpleData) (float64, error) {
	if x == nil {
		return math.NaN(), nil
	}
	if f, ok := rutil.ToFloat(x); ok {
		return f, nil
	}
	if s, ok := x.(string); ok {
		s = strings.TrimSpace(s)
		if s == "NA" {
			return math.NaN(), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, s)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: value of type %T", ErrNotNumeric, x)
}

// toText coerces x to a string.
func toText(x SimpleData) string {
	switch v := x.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return rutil.FormatBool(v)
	}
	if f, ok := rutil.ToFloat(x); ok {
		return rutil.FormatFloat(f)
	}
	return fmt.Sprint(x)
}
