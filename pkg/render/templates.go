package render

import (
	"maps"
	"slices"
)

// Template is a built-in card template.
type Template struct {
	Name        string // unique slug (e.g., "hcard")
	Description string // one-line description
	Source      string // html/template source, executed with a *card.Card
}

var builtins = map[string]Template{
	"hcard": {
		Name:        "hcard",
		Description: "Microformats2 h-card snippet",
		Source: `<div class="h-card">
  <span class="p-name">{{prop . "fn"}}</span>
{{- if has . "n"}}
  <span class="p-honorific-prefix">{{field . "n" "Prefixes"}}</span>
  <span class="p-given-name">{{field . "n" "GivenName"}}</span>
  <span class="p-additional-name">{{field . "n" "AdditionalNames"}}</span>
  <span class="p-family-name">{{field . "n" "FamilyName"}}</span>
  <span class="p-honorific-suffix">{{field . "n" "Suffixes"}}</span>
{{- end}}
{{- if has . "org"}}
  <span class="p-org">{{prop . "org"}}</span>
{{- end}}
{{- range props . "email"}}
  <a class="u-email" href="mailto:{{.Value}}">{{.Value}}</a>
{{- end}}
{{- range props . "tel"}}
  <span class="p-tel">{{.Value}}</span>
{{- end}}
{{- range props . "url"}}
  <a class="u-url" href="{{.Value}}">{{.Value}}</a>
{{- end}}
{{- range props . "adr"}}
  <div class="p-adr h-adr">{{.String}}</div>
{{- end}}
{{- if has . "note"}}
  <p class="p-note">{{prop . "note"}}</p>
{{- end}}
</div>
`,
	},

	"plain": {
		Name:        "plain",
		Description: "One line per property, parameters omitted",
		Source:      `{{display .}}`,
	},

	"vcard": {
		Name:        "vcard",
		Description: "The card as vCard 4.0 text",
		Source:      `<pre>{{raw .}}</pre>`,
	},
}

// Builtins returns a copy of the built-in templates keyed by name.
func Builtins() map[string]Template {
	return maps.Clone(builtins)
}

// BuiltinNames lists the built-in templates alphabetically.
func BuiltinNames() []string {
	return slices.Sorted(maps.Keys(builtins))
}

// Lookup finds a built-in template.
func Lookup(name string) (Template, bool) {
	tmpl, ok := builtins[name]
	return tmpl, ok
}
