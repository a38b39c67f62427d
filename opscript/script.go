package opscript

import (
	"encoding/xml"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Node is one element of a computation tree, kept in document order.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.Name = start.Name.Local
	n.Attrs = make(map[string]string, len(start.Attr))
	for _, a := range start.Attr {
		n.Attrs[a.Name.Local] = a.Value
	}
	var text strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child := &Node{}
			if err := d.DecodeElement(child, &t); err != nil {
				return err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			n.Text = strings.TrimSpace(text.String())
			return nil
		}
	}
}

// Attr returns the named attribute or "".
func (n *Node) Attr(name string) string { return n.Attrs[name] }

// Child returns the first child element called name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// namePart is either literal text or a reference to a prompt answer.
type namePart struct {
	text     string
	response string
	def      string
}

type displayName []namePart

func (dn *displayName) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "response" {
				return fmt.Errorf("invalid element %q in displayname", t.Name.Local)
			}
			var r struct {
				Name    string `xml:"name,attr"`
				Default string `xml:"default,attr"`
			}
			if err := d.DecodeElement(&r, &t); err != nil {
				return err
			}
			if r.Name == "" {
				return fmt.Errorf("displayname response has no name")
			}
			*dn = append(*dn, namePart{response: r.Name, def: r.Default})
		case xml.CharData:
			*dn = append(*dn, namePart{text: string(t)})
		case xml.EndElement:
			return nil
		}
	}
}

type operationXML struct {
	Name        string       `xml:"name,attr"`
	Category    string       `xml:"category,attr"`
	List        string       `xml:"list,attr"`
	Plot        string       `xml:"plot,attr"`
	Description string       `xml:"description"`
	Queries     []queryXML   `xml:"query"`
	DisplayName *displayName `xml:"displayname"`
	Computation *Node        `xml:"computation"`
}

type queryXML struct {
	Name       string   `xml:"name,attr"`
	Prompt     string   `xml:"prompt,attr"`
	Type       string   `xml:"type,attr"`
	ColumnType string   `xml:"column_type,attr"`
	Pattern    string   `xml:"pattern,attr"`
	Min        string   `xml:"min,attr"`
	Max        string   `xml:"max,attr"`
	Value      string   `xml:"value,attr"`
	Options    []string `xml:"option"`
}

// Script is a parsed operation definition. Scripts are immutable once
// loaded and may be shared between operations.
type Script struct {
	Name        string
	Category    string
	Description string
	Listed      bool
	Plot        bool
	Prompts     []Prompt

	display     displayName
	computation *Node
}

const Uncategorized = "Uncategorized"

func parseBoolAttr(op, attr, v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("operation %q: invalid value %q for %s attribute", op, v, attr)
	}
	return b, nil
}

func newScript(ox *operationXML) (*Script, error) {
	if ox.Name == "" {
		return nil, fmt.Errorf("operation has no name")
	}
	s := &Script{
		Name:        ox.Name,
		Category:    ox.Category,
		Description: strings.TrimSpace(ox.Description),
		computation: ox.Computation,
	}
	if s.Category == "" {
		s.Category = Uncategorized
	}
	var err error
	if s.Listed, err = parseBoolAttr(ox.Name, "list", ox.List, true); err != nil {
		return nil, err
	}
	if s.Plot, err = parseBoolAttr(ox.Name, "plot", ox.Plot, false); err != nil {
		return nil, err
	}
	if s.computation == nil {
		return nil, fmt.Errorf("operation %q: computation element not specified", ox.Name)
	}
	for _, q := range ox.Queries {
		p, err := newPrompt(q)
		if err != nil {
			return nil, fmt.Errorf("operation %q: %w", ox.Name, err)
		}
		s.Prompts = append(s.Prompts, p)
	}
	if ox.DisplayName != nil {
		s.display = *ox.DisplayName
		for _, part := range s.display {
			if part.response != "" && s.Prompt(part.response) == nil {
				return nil, fmt.Errorf("operation %q: display name asks for unknown prompt %q", ox.Name, part.response)
			}
		}
	}
	if err := s.check(s.computation, false); err != nil {
		return nil, fmt.Errorf("operation %q: %w", ox.Name, err)
	}
	return s, nil
}

func newPrompt(q queryXML) (Prompt, error) {
	if q.Name == "" {
		return Prompt{}, fmt.Errorf("query has no name")
	}
	if q.Prompt == "" {
		return Prompt{}, fmt.Errorf("query %q has no prompt", q.Name)
	}
	t, err := ParsePromptType(q.Type)
	if err != nil {
		return Prompt{}, fmt.Errorf("query %q: %w", q.Name, err)
	}
	p := Prompt{Name: q.Name, Text: q.Prompt, Type: t, Min: math.Inf(-1), Max: math.Inf(1)}
	switch t {
	case PromptColumn:
		if p.Columns, err = parseColumnFilter(q.ColumnType); err != nil {
			return Prompt{}, fmt.Errorf("query %q: %w", q.Name, err)
		}
	case PromptCombo:
		for _, o := range q.Options {
			p.Options = append(p.Options, strings.TrimSpace(o))
		}
	case PromptString:
		if q.Pattern != "" {
			if p.Pattern, err = regexp.Compile("^(?:" + q.Pattern + ")$"); err != nil {
				return Prompt{}, fmt.Errorf("query %q: %w", q.Name, err)
			}
		}
	case PromptNumeric:
		if q.Min != "" {
			if p.Min, err = strconv.ParseFloat(q.Min, 64); err != nil {
				return Prompt{}, fmt.Errorf("query %q: min: %w", q.Name, err)
			}
		}
		if q.Max != "" {
			if p.Max, err = strconv.ParseFloat(q.Max, 64); err != nil {
				return Prompt{}, fmt.Errorf("query %q: max: %w", q.Name, err)
			}
		}
		if p.Min > p.Max {
			return Prompt{}, fmt.Errorf("query %q: min %v is greater than max %v", q.Name, p.Min, p.Max)
		}
	case PromptFixed:
		p.Value = q.Value
	}
	return p, nil
}

// check rejects unknown elements and missing attributes so a broken
// script fails when the catalog loads rather than halfway through a
// computation.
func (s *Script) check(seq *Node, inPlot bool) error {
	for _, n := range seq.Children {
		switch n.Name {
		case "cmd":
			if n.Text == "" {
				return fmt.Errorf("empty cmd")
			}
		case "set":
			if n.Attr("rvar") == "" {
				return fmt.Errorf("set has no rvar")
			}
			p := s.Prompt(n.Attr("name"))
			if p == nil {
				return fmt.Errorf("set uses unknown prompt %q", n.Attr("name"))
			}
			if u := n.Attr("use"); u != "" && u != "values" && u != "name" {
				return fmt.Errorf("invalid setting %q for use attribute", u)
			}
		case "save":
			if n.Attr("column") == "" && n.Attr("r_column") == "" {
				return fmt.Errorf("no column name supplied for save")
			}
			switch n.Attr("type") {
			case "", "auto", "numeric", "string":
			default:
				return fmt.Errorf("save type %q is unrecognized", n.Attr("type"))
			}
		case "loop":
			switch n.Attr("type") {
			case "parent":
			case "", "numeric", "string":
				if n.Attr("loop_var") == "" {
					return fmt.Errorf("loop has no loop_var")
				}
			default:
				return fmt.Errorf("loop type %q not recognized", n.Attr("type"))
			}
			if err := s.check(n, inPlot); err != nil {
				return err
			}
		case "if":
			switch {
			case n.Attr("expr") != "", n.Attr("colexists") != "":
			case n.Attr("vartype") != "":
				if n.Attr("rvar") == "" {
					return fmt.Errorf("if vartype has no rvar")
				}
			default:
				return fmt.Errorf("if type not recognized")
			}
			for _, branch := range []string{"then", "else"} {
				if b := n.Child(branch); b != nil {
					if err := s.check(b, inPlot); err != nil {
						return err
					}
				}
			}
		case "plot":
			if inPlot {
				return fmt.Errorf("plot nested inside plot")
			}
			if err := s.check(n, true); err != nil {
				return err
			}
		case "load":
			if n.Attr("library") == "" && n.Attr("r_library") == "" {
				return fmt.Errorf("no library specified for load")
			}
		case "error":
		default:
			return fmt.Errorf("unrecognized command element %q", n.Name)
		}
	}
	return nil
}

// Prompt returns the named prompt or nil.
func (s *Script) Prompt(name string) *Prompt {
	for i := range s.Prompts {
		if s.Prompts[i].Name == name {
			return &s.Prompts[i]
		}
	}
	return nil
}

// Missing lists the prompts a has no answer for, in prompt order.
// FIXED prompts are always answered.
func (s *Script) Missing(a Answers) []string {
	var missing []string
	for _, p := range s.Prompts {
		if p.Type == PromptFixed {
			continue
		}
		if _, ok := a[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

// Resolve returns a with defaults filled in for FIXED prompts.
func (s *Script) Resolve(a Answers) Answers {
	out := a.Copy()
	if out == nil {
		out = Answers{}
	}
	for i := range s.Prompts {
		if def, ok := s.Prompts[i].Default(); ok {
			if _, set := out[s.Prompts[i].Name]; !set {
				out[s.Prompts[i].Name] = def
			}
		}
	}
	return out
}

// DisplayName renders the script's display name for the given answers.
// Until every prompt is answered the response defaults are used. The
// short form abbreviates each response to five characters.
func (s *Script) DisplayName(a Answers) (long, short string) {
	if s.display == nil {
		return s.Name, Shorten(s.Name, 5)
	}
	complete := len(s.Missing(a)) == 0
	a = s.Resolve(a)
	var lb, sb strings.Builder
	for _, part := range s.display {
		if part.response == "" {
			lb.WriteString(part.text)
			sb.WriteString(part.text)
			continue
		}
		val := part.def
		if complete {
			val = a[part.response].Text()
		}
		lb.WriteString(val)
		sb.WriteString(Shorten(val, 5))
	}
	return strings.TrimSpace(lb.String()), strings.TrimSpace(sb.String())
}

// Shorten abbreviates s to at most max characters by cutting out the
// middle. Lengths of four or more mark the cut with an ellipsis.
func Shorten(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max < 4 {
		first := (max + 1) / 2
		return string(r[:first]) + string(r[len(r)-max/2:])
	}
	first := max / 2
	second := (max - 1) / 2
	return string(r[:first]) + "…" + string(r[len(r)-second:])
}
