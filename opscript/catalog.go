package opscript

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
)

type catalogXML struct {
	XMLName    xml.Name       `xml:"operations"`
	Operations []operationXML `xml:"operation"`
}

// Catalog is the set of operation scripts available to a problem.
type Catalog struct {
	scripts map[string]*Script
	order   []string
}

// LoadCatalog reads the primary operations file followed by any user
// files. A user script replaces a primary script of the same name.
func LoadCatalog(primary string, user ...string) (*Catalog, error) {
	c := &Catalog{scripts: make(map[string]*Script)}
	for _, path := range append([]string{primary}, user...) {
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opscript: loading catalog: %w", err)
		}
		err = c.add(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("opscript: %s: %w", path, err)
		}
	}
	return c, nil
}

// ParseCatalog is LoadCatalog over readers, in priority order.
func ParseCatalog(rs ...io.Reader) (*Catalog, error) {
	c := &Catalog{scripts: make(map[string]*Script)}
	for i, r := range rs {
		if err := c.add(r); err != nil {
			return nil, fmt.Errorf("opscript: catalog %d: %w", i, err)
		}
	}
	return c, nil
}

func (c *Catalog) add(r io.Reader) error {
	var doc catalogXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return err
	}
	for i := range doc.Operations {
		s, err := newScript(&doc.Operations[i])
		if err != nil {
			return err
		}
		if _, ok := c.scripts[s.Name]; !ok {
			c.order = append(c.order, s.Name)
		}
		c.scripts[s.Name] = s
	}
	return nil
}

// Lookup returns the named script.
func (c *Catalog) Lookup(name string) (*Script, error) {
	s, ok := c.scripts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return s, nil
}

// Scripts returns every script, listed or not, in load order.
func (c *Catalog) Scripts() []*Script {
	out := make([]*Script, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.scripts[name])
	}
	return out
}

// Names returns the names of the listed scripts in load order.
func (c *Catalog) Names() []string {
	var names []string
	for _, name := range c.order {
		if c.scripts[name].Listed {
			names = append(names, name)
		}
	}
	return names
}

// Categorized groups the listed script names by category. Names within
// a category are sorted.
func (c *Catalog) Categorized() map[string][]string {
	cats := make(map[string][]string)
	for _, name := range c.Names() {
		cat := c.scripts[name].Category
		cats[cat] = append(cats[cat], name)
	}
	for _, names := range cats {
		sort.Strings(names)
	}
	return cats
}

func (c *Catalog) Len() int { return len(c.order) }
