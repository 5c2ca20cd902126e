// Package render fills html/template templates from cards. Templates reach
// card data through a small function set:
//
//	{{prop . "fn"}}              display text of the first FN
//	{{range props . "email"}}    EMAIL properties, most preferred first
//	{{field . "n" "GivenName"}}  one field of a structured property
//	{{raw .}}                    the card as vCard 4.0 text
package render

import (
	"fmt"
	"html/template"
	"io"
	"slices"

	"github.com/coolbeans/rolodex/pkg/card"
	"github.com/coolbeans/rolodex/pkg/contentline"
	"github.com/coolbeans/rolodex/pkg/property"
)

// Funcs returns the template functions that expose card data.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"prop":    prop,
		"props":   props,
		"field":   field,
		"raw":     raw,
		"display": display,
		"types":   types,
		"has":     has,
	}
}

func prop(c *card.Card, name string) string {
	p, ok := c.First(name)
	if !ok {
		return ""
	}
	return p.String()
}

// props returns the properties under name ordered by PREF; equal
// preferences keep card order.
func props(c *card.Card, name string) []property.Property {
	list := c.Get(name)
	slices.SortStableFunc(list, property.ComparePref)
	return list
}

func field(c *card.Card, name, fieldName string) string {
	v, _ := c.Field(name, fieldName)
	return v
}

func raw(c *card.Card) string {
	return c.Serialize(contentline.Version40)
}

func display(c *card.Card) string {
	return c.Display()
}

func types(p property.Property) []string {
	if typed, ok := p.(property.Typed); ok {
		return typed.Types()
	}
	return nil
}

func has(c *card.Card, name string) bool {
	_, ok := c.First(name)
	return ok
}

// Parse compiles a template source with the card functions installed.
func Parse(name, source string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(Funcs()).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}

// Render executes the built-in template called name for c.
func Render(w io.Writer, name string, c *card.Card) error {
	builtin, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("unknown template %q (available: %v)", name, BuiltinNames())
	}
	return RenderSource(w, builtin.Name, builtin.Source, c)
}

// RenderSource compiles source and executes it for c.
func RenderSource(w io.Writer, name, source string, c *card.Card) error {
	tmpl, err := Parse(name, source)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(w, c); err != nil {
		return fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return nil
}
