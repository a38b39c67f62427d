package dataframe

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnModes(t *testing.T) {
	testCases := []struct {
		Vals     []SimpleData
		Detected Mode
	}{
		{Vals: []SimpleData{1, 2.5, "3"}, Detected: Numeric},
		{Vals: []SimpleData{"1", "x"}, Detected: Text},
		{Vals: nil, Detected: Numeric},
		{Vals: []SimpleData{"-4e2", " 5 "}, Detected: Numeric},
	}
	for caseN, c := range testCases {
		col := NewColumn("c")
		col.Append(c.Vals...)
		if m := col.AutodetectMode(); m != c.Detected {
			t.Errorf("case %d: detected %v, want %v", caseN, m, c.Detected)
		}
	}
}

func TestSetModeRecoerces(t *testing.T) {
	col := NewColumn("c")
	col.Append(1, "2", 3.5)

	old, err := col.SetMode(Text)
	require.NoError(t, err)
	assert.Equal(t, Numeric, old)
	assert.Equal(t, []SimpleData{"1", "2", "3.5"}, col.Raw())

	old, err = col.SetMode(Numeric)
	require.NoError(t, err)
	assert.Equal(t, Text, old)
	assert.Equal(t, []SimpleData{1.0, 2.0, 3.5}, col.Raw())

	col.Append("apple")
	_, err = col.SetMode(Text)
	require.NoError(t, err)
	_, err = col.SetMode(Numeric)
	assert.True(t, errors.Is(err, ErrNotNumeric))
	assert.Equal(t, Text, col.Mode(), "failed switch must keep the old mode")
}

func TestSetDemotesToText(t *testing.T) {
	col := NewColumn("c")
	col.Append(1, 2)
	col.Set(1, "two")
	assert.Equal(t, Text, col.Mode())
	assert.Equal(t, []string{"1", "two"}, col.Strings())
}

func TestColumnCopyIsDeep(t *testing.T) {
	col := NewColumn("c")
	col.Append(1, 2, 3)
	cp := col.Copy()
	cp.Set(0, 100)
	cp.Append(4)

	v, err := col.FloatAt(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, 3, col.Len())
	assert.False(t, col.Equal(cp))
}

func TestFrameColumns(t *testing.T) {
	f := New("data", "a", "b")
	_, err := f.AddColumn("a")
	assert.True(t, errors.Is(err, ErrDuplicateColumn))

	_, err = f.Column("zzz")
	assert.True(t, errors.Is(err, ErrColumnNotFound))

	c, err := f.InsertColumn(0, "first")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "a", "b"}, f.Names())

	assert.True(t, errors.Is(f.ColumnAt(1).SetName("b"), ErrDuplicateColumn))
	require.NoError(t, c.SetName("zero"))
	assert.Equal(t, 0, f.Index("zero"))

	f.AppendRow(1, 2, 3)
	f.ColumnAt(2).Append(4)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []SimpleData{nil, nil, 4.0}, f.Row(1))

	removed, err := f.RemoveColumn("a")
	require.NoError(t, err)
	assert.Equal(t, "a", removed.Name())
	assert.Equal(t, []string{"zero", "b"}, f.Names())
}

func TestFrameChangeHook(t *testing.T) {
	f := New("data")
	changes := 0
	f.OnChange(func() { changes++ })

	c, err := f.AddColumn("x")
	require.NoError(t, err)
	c.Append(1)
	c.Set(0, 2)
	_, err = c.SetMode(Text)
	require.NoError(t, err)
	f.Clear()
	assert.Equal(t, 5, changes)

	// Detached columns no longer report to the frame.
	c.Append(3)
	assert.Equal(t, 5, changes)
}

func TestFrameCopyAndEqual(t *testing.T) {
	f := New("data", "x")
	f.ColumnAt(0).Append(1, 2)
	cp := f.Copy()
	assert.True(t, f.Equal(cp))
	cp.ColumnAt(0).Append(3)
	assert.False(t, f.Equal(cp))
}

func TestFrameJSON(t *testing.T) {
	f := New("data", "n", "s")
	f.ColumnAt(0).Append(1, "2.5")
	s := f.ColumnAt(1)
	s.Append("red")
	_, err := s.SetMode(Text)
	require.NoError(t, err)

	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"data","colNames":["n","s"],"cols":[
		{"name":"n","dtype":"numeric","val":[1,2.5]},
		{"name":"s","dtype":"string","val":["red"]}]}`, string(b))
}

func TestReadCSV(t *testing.T) {
	testCases := []struct {
		In    string
		Names []string
		Modes []Mode
		Lens  []int
	}{
		{
			In:    "height, name\n1.5, \"ann\"\n2,bob\n",
			Names: []string{"height", "name"},
			Modes: []Mode{Numeric, Text},
			Lens:  []int{2, 2},
		},
		{
			In:    "1;2\n3;\n",
			Names: []string{"Column 1", "Column 2"},
			Modes: []Mode{Numeric, Numeric},
			Lens:  []int{2, 1},
		},
	}
	for caseN, c := range testCases {
		f, err := ReadCSV("in.csv", strings.NewReader(c.In))
		if err != nil {
			t.Errorf("case %d: unexpected error: %v", caseN, err)
			continue
		}
		if got := f.Names(); !assert.ObjectsAreEqual(c.Names, got) {
			t.Errorf("case %d: names = %v, want %v", caseN, got, c.Names)
		}
		for i, col := range f.Columns() {
			if col.Mode() != c.Modes[i] {
				t.Errorf("case %d: column %d mode = %v, want %v", caseN, i, col.Mode(), c.Modes[i])
			}
			if col.Len() != c.Lens[i] {
				t.Errorf("case %d: column %d len = %d, want %d", caseN, i, col.Len(), c.Lens[i])
			}
		}
	}
}

func TestWriteCSV(t *testing.T) {
	f := New("data", "a", "b")
	f.ColumnAt(0).Append(1, 2)
	f.ColumnAt(1).Append("x")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f.Columns()))
	assert.Equal(t, "a,b\n1,x\n2,\n", buf.String())
}
