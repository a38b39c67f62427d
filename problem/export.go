package problem

import (
	"context"
	"io"
	"strings"

	"github.com/traherom/marla-sub003/dataframe"
	"github.com/traherom/marla-sub003/rutil"
)

// ExportCSV writes n's columns to w as CSV.
func ExportCSV(ctx context.Context, n Node, w io.Writer) error {
	cols, err := n.Columns(ctx)
	if err != nil {
		return err
	}
	return dataframe.WriteCSV(w, cols)
}

// RFrame builds an R data frame from n's columns and returns the name
// of the variable holding it.
func (p *Problem) RFrame(ctx context.Context, n Node) (string, error) {
	cols, err := n.Columns(ctx)
	if err != nil {
		return "", err
	}
	p.session.Lock()
	defer p.session.Unlock()

	args := make([]string, len(cols))
	for i, c := range cols {
		name := rutil.MakeName(c.Name())
		if _, err := p.engine.SetVariable(ctx, name, c); err != nil {
			return "", err
		}
		args[i] = name
	}
	return p.engine.ExecuteSave(ctx, "data.frame("+strings.Join(args, ", ")+")")
}
