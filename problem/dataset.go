package problem

import (
	"context"
	"strings"
	"sync"

	"github.com/traherom/marla-sub003/dataframe"
	"github.com/traherom/marla-sub003/rutil"
)

// DataSet is user supplied data at the root of an operation tree. Any
// change to its frame marks every operation below it dirty.
type DataSet struct {
	node

	mu      sync.Mutex
	frame   *dataframe.Frame
	problem *Problem
}

// NewDataSet wraps f. The data set takes ownership of f.
func NewDataSet(f *dataframe.Frame) *DataSet {
	d := &DataSet{node: newNode(), frame: f}
	f.OnChange(d.MarkDirty)
	return d
}

func (d *DataSet) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frame.Name()
}

func (d *DataSet) SetName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frame.SetName(name)
}

// Frame returns the data. Changes made through it mark dependent
// operations dirty.
func (d *DataSet) Frame() *dataframe.Frame { return d.frame }

func (d *DataSet) Root() *DataSet { return d }

func (d *DataSet) Problem() *Problem {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.problem
}

func (d *DataSet) Columns(context.Context) (dataframe.Columns, error) {
	return d.frame.Columns(), nil
}

// MarkDirty marks every operation below d dirty.
func (d *DataSet) MarkDirty() {
	for _, c := range d.Children() {
		c.MarkDirty()
	}
}

// RCommands assigns each column to a variable named after it and
// gathers them into a data frame named after the data set.
func (d *DataSet) RCommands(context.Context, bool) (string, error) {
	var b strings.Builder
	var vars []string
	for _, c := range d.frame.Columns() {
		lit, err := c.RLiteral()
		if err != nil {
			return "", err
		}
		v := rutil.MakeName(c.Name())
		vars = append(vars, v)
		b.WriteString(v + " <- " + lit + "\n")
	}
	b.WriteString(rutil.MakeName(d.Name()) + " <- data.frame(" + strings.Join(vars, ", ") + ")\n")
	return b.String(), nil
}

// Equal reports whether d and o have the same name and data.
func (d *DataSet) Equal(o *DataSet) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	return d.frame.Equal(o.frame)
}
