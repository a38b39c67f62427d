// Package problem holds a problem's data sets and the trees of
// operations computed from them, and keeps each operation's results
// cached until something it depends on changes.
package problem

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/traherom/marla-sub003/dataframe"
)

// tree guards every parent and children link in every problem. Moving
// an operation between trees touches both, so one lock covers all.
var tree sync.RWMutex

// Node is a data set or an operation.
type Node interface {
	ID() string
	Name() string
	Parent() Node
	Children() []*Operation
	Root() *DataSet
	// Columns returns the node's columns, recomputing them first if
	// needed. The columns must not be modified.
	Columns(ctx context.Context) (dataframe.Columns, error)
	MarkDirty()
	// RCommands returns R source that reproduces the node's columns.
	// With chain set an operation includes its ancestors' commands.
	RCommands(ctx context.Context, chain bool) (string, error)

	links() *node
}

type node struct {
	id       string
	parent   Node
	children []*Operation
}

func newNode() node {
	return node{id: uuid.NewString()}
}

func (n *node) links() *node { return n }

func (n *node) ID() string { return n.id }

func (n *node) Parent() Node {
	tree.RLock()
	defer tree.RUnlock()
	return n.parent
}

func (n *node) Children() []*Operation {
	tree.RLock()
	defer tree.RUnlock()
	return slices.Clone(n.children)
}

func (n *node) root() *DataSet {
	tree.RLock()
	defer tree.RUnlock()
	var cur Node
	for p := n.parent; p != nil; p = p.links().parent {
		cur = p
	}
	ds, _ := cur.(*DataSet)
	return ds
}

// Column returns the named column of n.
func Column(ctx context.Context, n Node, name string) (*dataframe.Column, error) {
	cols, err := n.Columns(ctx)
	if err != nil {
		return nil, err
	}
	if c := cols.Find(name); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q in %s", dataframe.ErrColumnNotFound, name, n.Name())
}

// ColumnNames returns the names of n's columns.
func ColumnNames(ctx context.Context, n Node) ([]string, error) {
	cols, err := n.Columns(ctx)
	if err != nil {
		return nil, err
	}
	return cols.Names(), nil
}

// Attach appends op to parent's children and marks op dirty. Attaching
// op to the parent it already has does nothing.
func Attach(parent Node, op *Operation) error {
	return AttachAt(parent, -1, op)
}

// AttachAt is Attach inserting op at index i of parent's children. A
// negative or out of range i appends.
func AttachAt(parent Node, i int, op *Operation) error {
	if parent == nil {
		return ErrDetached
	}
	tree.Lock()
	if op.parent == parent {
		tree.Unlock()
		return nil
	}
	if op.parent != nil {
		tree.Unlock()
		return ErrAlreadyAttached
	}
	for n := parent; n != nil; n = n.links().parent {
		if n == Node(op) {
			tree.Unlock()
			return ErrCycle
		}
	}
	pl := parent.links()
	if i < 0 || i > len(pl.children) {
		i = len(pl.children)
	}
	pl.children = slices.Insert(pl.children, i, op)
	op.parent = parent
	tree.Unlock()

	op.MarkDirty()
	return nil
}

// Detach removes op from parent. It does nothing if op is not a child
// of parent.
func Detach(parent Node, op *Operation) {
	tree.Lock()
	defer tree.Unlock()
	if parent == nil || op.parent != parent {
		return
	}
	pl := parent.links()
	if i := slices.Index(pl.children, op); i >= 0 {
		pl.children = slices.Delete(pl.children, i, i+1)
	}
	op.parent = nil
}

// Leaves returns the operations below n that have no children, in
// depth first order.
func Leaves(n Node) []*Operation {
	var out []*Operation
	for _, c := range n.Children() {
		if len(c.Children()) == 0 {
			out = append(out, c)
			continue
		}
		out = append(out, Leaves(c)...)
	}
	return out
}

// Walk calls fn for n and every operation below it, parents first.
func Walk(n Node, fn func(Node)) {
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}
