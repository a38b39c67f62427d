package problem

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/traherom/marla-sub003/dataframe"
)

type problemXML struct {
	XMLName xml.Name     `xml:"problem"`
	Name    string       `xml:"name,attr"`
	Comment string       `xml:"comment,omitempty"`
	Data    []dataSetXML `xml:"data"`
}

type dataSetXML struct {
	Name       string         `xml:"name,attr"`
	Columns    []columnXML    `xml:"column"`
	Operations []operationXML `xml:"operation"`
}

type columnXML struct {
	Name   string   `xml:"name,attr"`
	Mode   string   `xml:"mode,attr"`
	Values []string `xml:"value"`
}

type operationXML struct {
	Type       string         `xml:"type,attr"`
	Remark     string         `xml:"remark,attr,omitempty"`
	Answers    []answerXML    `xml:"answer"`
	Operations []operationXML `xml:"operation"`
}

type answerXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Save writes p's data sets and operation trees to w. Computed results
// are not saved.
func (p *Problem) Save(w io.Writer) error {
	px := problemXML{Name: p.Name(), Comment: p.Comment()}
	for _, d := range p.DataSets() {
		dx := dataSetXML{Name: d.Name()}
		for _, c := range d.Frame().Columns() {
			dx.Columns = append(dx.Columns, columnXML{
				Name:   c.Name(),
				Mode:   c.Mode().String(),
				Values: c.Strings(),
			})
		}
		for _, op := range d.Children() {
			dx.Operations = append(dx.Operations, saveOperation(op))
		}
		px.Data = append(px.Data, dx)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(px); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func saveOperation(op *Operation) operationXML {
	ox := operationXML{Type: op.Name(), Remark: op.Remark()}
	answers := op.Answers()
	for _, prompt := range op.Computation().Prompts() {
		if a, ok := answers[prompt.Name]; ok {
			ox.Answers = append(ox.Answers, answerXML{Name: prompt.Name, Value: a.Text()})
		}
	}
	for _, c := range op.Children() {
		ox.Operations = append(ox.Operations, saveOperation(c))
	}
	return ox
}

// LoadProblem reads a problem written by Save. Operations are created
// from reg and computed with eng.
func LoadProblem(r io.Reader, reg *Registry, eng Engine, opts ...Option) (*Problem, error) {
	var px problemXML
	if err := xml.NewDecoder(r).Decode(&px); err != nil {
		return nil, fmt.Errorf("reading problem: %w", err)
	}
	p := NewProblem(px.Name, eng, reg, opts...)
	p.SetComment(px.Comment)
	for _, dx := range px.Data {
		f := dataframe.New(dx.Name)
		for _, cx := range dx.Columns {
			if err := loadColumn(f, cx); err != nil {
				return nil, fmt.Errorf("data set %q: %w", dx.Name, err)
			}
		}
		d := NewDataSet(f)
		if err := p.AddDataSet(d); err != nil {
			return nil, err
		}
		for _, ox := range dx.Operations {
			if err := loadOperation(p, d, ox); err != nil {
				return nil, fmt.Errorf("data set %q: %w", dx.Name, err)
			}
		}
	}
	return p, nil
}

func loadColumn(f *dataframe.Frame, cx columnXML) error {
	mode, err := dataframe.ParseMode(cx.Mode)
	if err != nil {
		return err
	}
	c, err := f.AddColumn(cx.Name)
	if err != nil {
		return err
	}
	if _, err := c.SetMode(dataframe.Text); err != nil {
		return err
	}
	c.AppendStrings(cx.Values)
	_, err = c.SetMode(mode)
	return err
}

func loadOperation(p *Problem, parent Node, ox operationXML) error {
	op, err := p.Attach(parent, ox.Type)
	if err != nil {
		return err
	}
	op.SetRemark(ox.Remark)
	for _, ax := range ox.Answers {
		if err := op.SetAnswerText(ax.Name, ax.Value); err != nil {
			return fmt.Errorf("operation %s: %w", ox.Type, err)
		}
	}
	for _, child := range ox.Operations {
		if err := loadOperation(p, op, child); err != nil {
			return err
		}
	}
	return nil
}
