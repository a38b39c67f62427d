package dataframe

import (
	"encoding/json"
	"fmt"
)

// Frame holds an ordered set of uniquely named columns. Columns may
// have different lengths; the frame's length is that of its longest
// column.
//
// Frames store data by column not by row. As a result, column-oriented
// operations can be completed with fewer copies than row-oriented ones.
//
// Frames (and associated types) are not thread-safe.
type Frame struct {
	name     string
	cols     []*Column
	onChange func()
}

// New creates a new Frame with empty Numeric columns of the given
// names. It panics on duplicate names.
func New(name string, colNames ...string) *Frame {
	f := &Frame{name: name}
	for _, n := range colNames {
		if _, err := f.AddColumn(n); err != nil {
			panic(err)
		}
	}
	return f
}

func (f *Frame) Name() string        { return f.name }
func (f *Frame) SetName(name string) { f.name = name }

// OnChange registers fn to be called after any mutation of the frame
// or one of its columns. Only one function is kept.
func (f *Frame) OnChange(fn func()) {
	f.onChange = fn
}

func (f *Frame) changed() {
	if f.onChange != nil {
		f.onChange()
	}
}

// AddColumn appends a new empty column.
func (f *Frame) AddColumn(name string) (*Column, error) {
	return f.InsertColumn(len(f.cols), name)
}

// InsertColumn adds a new empty column at index i.
func (f *Frame) InsertColumn(i int, name string) (*Column, error) {
	if f.Index(name) != -1 {
		return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateColumn, name, f.name)
	}
	c := &Column{name: name, frame: f}
	f.insert(i, c)
	return c, nil
}

func (f *Frame) insert(i int, c *Column) {
	if i < 0 || i > len(f.cols) {
		i = len(f.cols)
	}
	f.cols = append(f.cols, nil)
	copy(f.cols[i+1:], f.cols[i:])
	f.cols[i] = c
	f.changed()
}

// CopyColumn appends a deep copy of src, which may belong to another
// frame.
func (f *Frame) CopyColumn(src *Column) (*Column, error) {
	if f.Index(src.name) != -1 {
		return nil, fmt.Errorf("%w: %q in %q", ErrDuplicateColumn, src.name, f.name)
	}
	c := src.Copy()
	c.frame = f
	f.insert(len(f.cols), c)
	return c, nil
}

// Index returns the position of the named column or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.cols {
		if c.name == name {
			return i
		}
	}
	return -1
}

func (f *Frame) Column(name string) (*Column, error) {
	i := f.Index(name)
	if i == -1 {
		return nil, fmt.Errorf("%w: %q in %q", ErrColumnNotFound, name, f.name)
	}
	return f.cols[i], nil
}

// ColumnAt gets the column at index i. It panics if i is out of
// bounds.
func (f *Frame) ColumnAt(i int) *Column {
	return f.cols[i]
}

// Columns returns the frame's columns in order. The slice is a copy;
// the columns are not.
func (f *Frame) Columns() Columns {
	return append(Columns(nil), f.cols...)
}

func (f *Frame) Names() []string {
	return Columns(f.cols).Names()
}

func (f *Frame) NumColumns() int { return len(f.cols) }

// Len returns the length of the longest column.
func (f *Frame) Len() int {
	return Columns(f.cols).Len()
}

func (f *Frame) RemoveColumn(name string) (*Column, error) {
	i := f.Index(name)
	if i == -1 {
		return nil, fmt.Errorf("%w: %q in %q", ErrColumnNotFound, name, f.name)
	}
	c := f.cols[i]
	f.cols = append(f.cols[:i], f.cols[i+1:]...)
	c.frame = nil
	f.changed()
	return c, nil
}

// Clear removes every column.
func (f *Frame) Clear() {
	if len(f.cols) == 0 {
		return
	}
	for _, c := range f.cols {
		c.frame = nil
	}
	f.cols = nil
	f.changed()
}

// AppendRow adds one value to each column. It panics if the number of
// values does not match the number of columns.
func (f *Frame) AppendRow(vals ...SimpleData) {
	if len(vals) != len(f.cols) {
		panic("incorrect number of values being appended")
	}
	for i, c := range f.cols {
		c.v = append(c.v, vals[i])
	}
	f.changed()
}

// Row returns a copy of row i, coerced to each column's mode. Columns
// shorter than i+1 contribute nil.
func (f *Frame) Row(i int) []SimpleData {
	row := make([]SimpleData, len(f.cols))
	for j, c := range f.cols {
		if i < c.Len() {
			v, err := c.ValueAt(i)
			if err == nil {
				row[j] = v
			}
		}
	}
	return row
}

// Copy returns a deep copy of the frame without its change hook.
func (f *Frame) Copy() *Frame {
	n := &Frame{name: f.name}
	for _, c := range f.cols {
		cc := c.Copy()
		cc.frame = n
		n.cols = append(n.cols, cc)
	}
	return n
}

// Equal compares names and columns.
func (f *Frame) Equal(o *Frame) bool {
	if f == o {
		return true
	}
	if o == nil || f.name != o.name || len(f.cols) != len(o.cols) {
		return false
	}
	for i := range f.cols {
		if !f.cols[i].Equal(o.cols[i]) {
			return false
		}
	}
	return true
}

// Remember to update this and MarshalJSON when updating Frame.
type frameJSON struct {
	Name     string    `json:"name"`
	Cols     []*Column `json:"cols"`
	ColNames []string  `json:"colNames"`
}

func (f *Frame) MarshalJSON() ([]byte, error) {
	// don't use Key: Value syntax here so that this
	// will break if we forget to update this when
	// we update the type.
	d := frameJSON{
		f.name,
		f.cols,
		f.Names(),
	}
	return json.Marshal(&d)
}
