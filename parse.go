package marla

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	singleStatement = regexp.MustCompile(`^[^\n;]+[\n;]?$`)
	stringToken     = regexp.MustCompile(`"((?:[^"\\\n]|\\.)*)"`)
	numberToken     = regexp.MustCompile(`^(-?[0-9]+(\.[0-9]+)?(e[+-]?[0-9]+)?|NaN|NA|-?Inf)$`)
)

// ParseFloats returns every number printed in out, in order. Quoted
// strings and vector index markers such as [1] are skipped. NA is
// returned as NaN.
func ParseFloats(out string) []float64 {
	out = stringToken.ReplaceAllString(out, " ")
	var vals []float64
	for _, tok := range strings.Fields(out) {
		if !numberToken.MatchString(tok) {
			continue
		}
		switch tok {
		case "NA", "NaN":
			vals = append(vals, math.NaN())
		case "Inf":
			vals = append(vals, math.Inf(1))
		case "-Inf":
			vals = append(vals, math.Inf(-1))
		default:
			f, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				continue
			}
			vals = append(vals, f)
		}
	}
	return vals
}

// ParseFloat returns the only number printed in out.
func ParseFloat(out string) (float64, error) {
	vals := ParseFloats(out)
	if len(vals) != 1 {
		return 0, &ParseError{Want: "a single number", Output: out}
	}
	return vals[0], nil
}

// ParseStrings returns every double quoted string printed in out with
// R's escapes undone.
func ParseStrings(out string) []string {
	var vals []string
	for _, m := range stringToken.FindAllStringSubmatch(out, -1) {
		vals = append(vals, unescape(m[1]))
	}
	return vals
}

// ParseString returns the only string printed in out.
func ParseString(out string) (string, error) {
	vals := ParseStrings(out)
	if len(vals) != 1 {
		return "", &ParseError{Want: "a single string", Output: out}
	}
	return vals[0], nil
}

// ParseBools returns every TRUE or FALSE token printed in out.
func ParseBools(out string) []bool {
	out = stringToken.ReplaceAllString(out, " ")
	var vals []bool
	for _, tok := range strings.Fields(out) {
		switch tok {
		case "TRUE":
			vals = append(vals, true)
		case "FALSE":
			vals = append(vals, false)
		}
	}
	return vals
}

// ParseBool returns the only logical printed in out.
func ParseBool(out string) (bool, error) {
	vals := ParseBools(out)
	if len(vals) != 1 {
		return false, &ParseError{Want: "a single logical", Output: out}
	}
	return vals[0], nil
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
