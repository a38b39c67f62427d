package dataframe

import (
	"math"
	"testing"
)

type simpleComposite struct {
	a int
	b bool
}

func TestIsNumeric(t *testing.T) {
	good := []SimpleData{
		int(0),
		int8(1),
		int32(0xff),
		int64(-44),
		uint(99),
		uint8(255),
		uint16(11),
		uint32(8245),
		uint64(1231231299),
		float32(0.523),
		float64(-1123.1231),
	}
	bad := []SimpleData{
		"asdfasdf",
		simpleComposite{},
		struct{}{},
	}
	for _, sd := range good {
		if !IsNumeric(sd) {
			t.Errorf("expected numeric but claimed otherwise: %v", sd)
		}
	}
	for _, sd := range bad {
		if IsNumeric(sd) {
			t.Errorf("expected non-numeric but claimed otherwise: %v", sd)
		}
	}
}

func TestCoercion(t *testing.T) {
	testCases := []struct {
		In      SimpleData
		Float   float64
		FloatOK bool
		Text    string
	}{
		{In: 3, Float: 3, FloatOK: true, Text: "3"},
		{In: 2.5, Float: 2.5, FloatOK: true, Text: "2.5"},
		{In: " 7.25 ", Float: 7.25, FloatOK: true, Text: " 7.25 "},
		{In: "1e3", Float: 1000, FloatOK: true, Text: "1e3"},
		{In: "red", FloatOK: false, Text: "red"},
		{In: true, FloatOK: false, Text: "TRUE"},
	}
	for caseN, c := range testCases {
		f, err := toFloat(c.In)
		if (err == nil) != c.FloatOK {
			t.Errorf("case %d: toFloat(%v) error = %v, want ok=%v", caseN, c.In, err, c.FloatOK)
		}
		if c.FloatOK && f != c.Float {
			t.Errorf("case %d: toFloat(%v) = %v, want %v", caseN, c.In, f, c.Float)
		}
		if s := toText(c.In); s != c.Text {
			t.Errorf("case %d: toText(%v) = %q, want %q", caseN, c.In, s, c.Text)
		}
	}

	if f, err := toFloat(nil); err != nil || !math.IsNaN(f) {
		t.Errorf("nil should read as NaN, got %v %v", f, err)
	}
	if f, err := toFloat("NA"); err != nil || !math.IsNaN(f) {
		t.Errorf("NA should read as NaN, got %v %v", f, err)
	}
}
