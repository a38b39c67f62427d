package rutil

import (
	"strconv"
	"strings"
)

// GraphCfg collects named arguments for an R graphics call. The zero
// value produces no extra arguments.
type GraphCfg struct {
	v []string
}

func (g GraphCfg) addKV(k, v string) GraphCfg {
	g.v = append(g.v, k+"="+v)
	return g
}

func (g GraphCfg) params() string {
	var s string
	if len(g.v) > 0 {
		s = ", " + strings.Join(g.v, ", ")
	}
	return s
}

func (g GraphCfg) WithCol(color string) GraphCfg { return g.addKV("col", Quote(color)) }
func (g GraphCfg) WithWidth(px int) GraphCfg     { return g.addKV("width", strconv.Itoa(px)) }
func (g GraphCfg) WithHeight(px int) GraphCfg    { return g.addKV("height", strconv.Itoa(px)) }

// Call renders funcName applied to args followed by the configured
// named arguments.
func (g GraphCfg) Call(funcName string, args ...string) string {
	return funcName + "(" + strings.Join(args, ", ") + g.params() + ")"
}

// PNG returns the statement that redirects graphics output to the png
// file at path.
func (g GraphCfg) PNG(path string) string {
	return g.Call("png", "filename="+Quote(path))
}
