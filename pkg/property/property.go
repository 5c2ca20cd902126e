package property

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/coolbeans/rolodex/pkg/contentline"
)

const (
	// PrefParam is the preference parameter.
	PrefParam = "pref"
	// MediaTypeParam is the RFC 6350 media type parameter.
	MediaTypeParam = "mediatype"

	// LeastPreferred is the rank reported when no PREF was supplied.
	LeastPreferred = 100
	// MostPreferred is the highest rank PREF may carry.
	MostPreferred = 1
)

// Collection is anything that can be flattened into properties. A Property
// is a collection of itself, List is a plain collection, and cards are
// collections of everything they hold.
type Collection interface {
	Properties() []Property
}

// List is an ordered collection of properties.
type List []Property

// Properties returns the list itself.
func (l List) Properties() []Property { return l }

// Property is an immutable vCard property.
type Property interface {
	Collection

	// Name returns the lowercase property name.
	Name() string
	// Group returns the lowercase group, or "" when ungrouped.
	Group() string
	// Value returns the unescaped text for simple, typed and data
	// properties, and the escaped ';'-joined text form for structured ones.
	Value() string
	// Pref returns the PREF rank. When no PREF parameter was supplied it
	// returns (LeastPreferred, true) if useDefault is set and (0, false)
	// otherwise.
	Pref(useDefault bool) (int, bool)
	// Parameters returns a copy of the parameters other than TYPE and
	// MEDIATYPE.
	Parameters() *contentline.Parameters
	// Specification returns the specification the property was built from.
	Specification() *Specification
	// String returns the human-readable form, ignoring parameters.
	String() string
	// ContentLine returns the serialized content line, CRLF-terminated and
	// unfolded.
	ContentLine() string
}

// Typed is implemented by properties that carry a TYPE set.
type Typed interface {
	Property
	Types() []string
	HasType(token string) bool
}

// Structured is implemented by properties made of named fields.
type Structured interface {
	Property
	// Field returns a field value and whether it was set.
	Field(name string) (string, bool)
	// Fields returns the set fields by name.
	Fields() map[string]string
}

// MediaTyped is implemented by properties that carry a media type.
type MediaTyped interface {
	Property
	MediaType() string
}

type propertyCore struct {
	spec   *Specification
	group  string
	value  string
	params *contentline.Parameters
}

func (p *propertyCore) Name() string                  { return p.spec.name }
func (p *propertyCore) Group() string                 { return p.group }
func (p *propertyCore) Value() string                 { return p.value }
func (p *propertyCore) Specification() *Specification { return p.spec }

func (p *propertyCore) Parameters() *contentline.Parameters {
	return p.params.Clone()
}

func (p *propertyCore) Pref(useDefault bool) (int, bool) {
	if raw, ok := p.params.First(PrefParam); ok {
		if pref, err := strconv.Atoi(raw); err == nil {
			return pref, true
		}
	}
	if useDefault {
		return LeastPreferred, true
	}
	return 0, false
}

// contentLine serializes the property: TYPE first, then MEDIATYPE, then the
// remaining parameters by name.
func (p *propertyCore) contentLine(types []string, mediaType string, value string) string {
	var sb strings.Builder
	if p.group != "" {
		sb.WriteString(p.group)
		sb.WriteByte('.')
	}
	sb.WriteString(p.spec.DisplayName())

	if len(types) > 0 {
		// Tokens are written in descending order: TYPE=WORK,VOICE.
		upper := make([]string, len(types))
		for i, token := range types {
			upper[len(types)-1-i] = strings.ToUpper(token)
		}
		sb.WriteString(";TYPE=")
		sb.WriteString(strings.Join(upper, ","))
	}
	if mediaType != "" {
		sb.WriteString(";MEDIATYPE=")
		sb.WriteString(contentline.QuoteValue(mediaType))
	}

	keys := p.params.Keys()
	slices.SortFunc(keys, compareParamKeys)
	for _, key := range keys {
		sb.WriteByte(';')
		sb.WriteString(strings.ToUpper(key))
		values := p.params.Get(key)
		if len(values) == 0 {
			continue
		}
		for i, v := range values {
			values[i] = contentline.QuoteValue(v)
		}
		sb.WriteByte('=')
		sb.WriteString(strings.Join(values, ","))
	}

	sb.WriteByte(':')
	sb.WriteString(value)
	sb.WriteString("\r\n")
	return sb.String()
}

// compareParamKeys keeps a generic "type" parameter ahead of the rest.
func compareParamKeys(a, b string) int {
	rank := func(key string) int {
		switch key {
		case contentline.TypeParam:
			return 0
		case MediaTypeParam:
			return 1
		default:
			return 2
		}
	}
	if c := cmp.Compare(rank(a), rank(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// typeTokens is the sorted, de-duplicated TYPE set of a property.
type typeTokens []string

func (t typeTokens) Types() []string { return slices.Clone(t) }

func (t typeTokens) HasType(token string) bool {
	_, found := slices.BinarySearch(t, strings.ToLower(token))
	return found
}

// SimpleProperty is a property with a scalar text value.
type SimpleProperty struct {
	propertyCore
}

func (p *SimpleProperty) Properties() []Property { return []Property{p} }
func (p *SimpleProperty) String() string         { return p.value }

func (p *SimpleProperty) ContentLine() string {
	return p.contentLine(nil, "", contentline.Escape(p.value))
}

// TypedProperty is a text property with a TYPE set.
type TypedProperty struct {
	propertyCore
	typeTokens
}

func (p *TypedProperty) Properties() []Property { return []Property{p} }
func (p *TypedProperty) String() string         { return p.value }

func (p *TypedProperty) ContentLine() string {
	return p.contentLine(p.typeTokens, "", contentline.Escape(p.value))
}

// StructuredProperty is a property made of the ordered fields its
// specification lists. Unset fields serialize as empty positions.
type StructuredProperty struct {
	propertyCore
	fieldValues []string
	fieldSet    []bool
}

func (p *StructuredProperty) Properties() []Property { return []Property{p} }

func (p *StructuredProperty) Field(name string) (string, bool) {
	i, ok := p.spec.FieldIndex(name)
	if !ok || !p.fieldSet[i] {
		return "", false
	}
	return p.fieldValues[i], true
}

func (p *StructuredProperty) Fields() map[string]string {
	fields := make(map[string]string)
	for i, name := range p.spec.fields {
		if p.fieldSet[i] {
			fields[name] = p.fieldValues[i]
		}
	}
	return fields
}

// String joins the non-empty fields with a single space.
func (p *StructuredProperty) String() string {
	parts := make([]string, 0, len(p.fieldValues))
	for _, v := range p.fieldValues {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func (p *StructuredProperty) ContentLine() string {
	return p.contentLine(nil, "", p.value)
}

// TypedStructuredProperty is a structured property with a TYPE set, such
// as ADR.
type TypedStructuredProperty struct {
	StructuredProperty
	typeTokens
}

func (p *TypedStructuredProperty) Properties() []Property { return []Property{p} }

func (p *TypedStructuredProperty) ContentLine() string {
	return p.contentLine(p.typeTokens, "", p.value)
}

// DataProperty is a URL-valued property with an optional media type and
// TYPE set, such as PHOTO.
type DataProperty struct {
	propertyCore
	typeTokens
	mediaType string
}

func (p *DataProperty) Properties() []Property { return []Property{p} }
func (p *DataProperty) String() string         { return p.value }
func (p *DataProperty) MediaType() string      { return p.mediaType }

// ContentLine emits the URL verbatim; URI values are not text-escaped.
func (p *DataProperty) ContentLine() string {
	return p.contentLine(p.typeTokens, p.mediaType, p.value)
}

// joinFields renders structured fields to the escaped ';'-joined text form,
// one separator per position.
func joinFields(values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = contentline.Escape(v)
	}
	return strings.Join(escaped, ";")
}

// ComparePref orders properties by preference, most preferred first.
// Properties without PREF rank as LeastPreferred.
func ComparePref(a, b Property) int {
	prefA, _ := a.Pref(true)
	prefB, _ := b.Pref(true)
	return cmp.Compare(prefA, prefB)
}

// CompareValue orders properties by value.
func CompareValue(a, b Property) int {
	return strings.Compare(a.Value(), b.Value())
}

// ComparePrefThenValue orders by preference, breaking ties by value.
func ComparePrefThenValue(a, b Property) int {
	if c := ComparePref(a, b); c != 0 {
		return c
	}
	return CompareValue(a, b)
}

// Equal reports whether two properties have the same name, group, value,
// parameters, types and media type.
func Equal(a, b Property) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name() != b.Name() || a.Group() != b.Group() || a.Value() != b.Value() {
		return false
	}
	if !a.Parameters().Equal(b.Parameters()) {
		return false
	}
	if !slices.Equal(typesOf(a), typesOf(b)) {
		return false
	}
	return mediaTypeOf(a) == mediaTypeOf(b)
}

func typesOf(p Property) []string {
	if typed, ok := p.(Typed); ok {
		return typed.Types()
	}
	return nil
}

func mediaTypeOf(p Property) string {
	if mediaTyped, ok := p.(MediaTyped); ok {
		return mediaTyped.MediaType()
	}
	return ""
}
