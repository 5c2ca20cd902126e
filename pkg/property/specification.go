// Package property models vCard properties: the specification registry that
// describes every known property, the builders that validate input, and the
// immutable Property values they produce.
//
// A Property can only be obtained from a Builder's Build method. Builders come
// from a Specification (or from a Registry by name) and validate eagerly in
// every setter; Build validates again so that no call path yields an invalid
// Property.
package property

import (
	"fmt"
	"slices"
	"strings"
)

// Multiplicity describes how many instances of a property a card holds.
type Multiplicity int

const (
	// Single properties hold at most one value; a second one replaces the first.
	Single Multiplicity = iota
	// Multiple properties repeat as separate content lines.
	Multiple
	// CommaJoined properties repeat, and one content line may carry several
	// comma-separated values.
	CommaJoined
)

func (m Multiplicity) String() string {
	switch m {
	case Single:
		return "single"
	case Multiple:
		return "multiple"
	case CommaJoined:
		return "comma-joined"
	default:
		return fmt.Sprintf("Multiplicity(%d)", int(m))
	}
}

// Kind selects the builder variant for a property.
type Kind int

const (
	// KindSimple is a plain text value.
	KindSimple Kind = iota
	// KindTyped is a text value with a TYPE token set.
	KindTyped
	// KindStructured is a fixed list of named fields.
	KindStructured
	// KindTypedStructured is a structured value with a TYPE token set.
	KindTypedStructured
	// KindData is a URL value with an optional media type and TYPE set.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindTyped:
		return "typed"
	case KindStructured:
		return "structured"
	case KindTypedStructured:
		return "typed-structured"
	case KindData:
		return "data"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) structured() bool {
	return k == KindStructured || k == KindTypedStructured
}

// Definition declares a property specification. Definitions are compiled
// into immutable Specifications by NewRegistry.
type Definition struct {
	Name         string
	Multiplicity Multiplicity
	Kind         Kind
	// AllowedTypes lists the TYPE tokens a Typed, TypedStructured or Data
	// property accepts.
	AllowedTypes []string
	// Fields is the ordered field list of a structured property.
	Fields []string
	// FieldValues optionally restricts the values of individual fields.
	FieldValues map[string][]string
	// MediaCategory is the top-level media type ("image", "audio") used to
	// translate legacy TYPE=GIF style tokens on Data properties.
	MediaCategory string
}

// Specification is the compiled, read-only description of one property.
type Specification struct {
	name          string
	displayName   string
	multiplicity  Multiplicity
	kind          Kind
	allowedTypes  []string
	typeIndex     map[string]struct{}
	fields        []string
	fieldValues   map[string][]string
	mediaCategory string
	extension     bool
}

func compile(def Definition) (*Specification, error) {
	name := def.Name
	if name == "" {
		return nil, fmt.Errorf("specification name cannot be empty")
	}
	if name != strings.ToLower(name) {
		return nil, fmt.Errorf("specification %q: name must be lowercase", name)
	}

	spec := &Specification{
		name:          name,
		multiplicity:  def.Multiplicity,
		kind:          def.Kind,
		mediaCategory: def.MediaCategory,
		typeIndex:     make(map[string]struct{}),
		fieldValues:   make(map[string][]string),
	}

	switch def.Kind {
	case KindTyped, KindTypedStructured:
		if len(def.AllowedTypes) == 0 {
			return nil, fmt.Errorf("specification %q: %s kind requires allowed types", name, def.Kind)
		}
	case KindSimple, KindStructured:
		if len(def.AllowedTypes) > 0 {
			return nil, fmt.Errorf("specification %q: %s kind does not take types", name, def.Kind)
		}
	case KindData:
	default:
		return nil, fmt.Errorf("specification %q: unknown kind %d", name, int(def.Kind))
	}
	for _, token := range def.AllowedTypes {
		token = strings.ToLower(token)
		if _, dup := spec.typeIndex[token]; dup {
			return nil, fmt.Errorf("specification %q: duplicate type %q", name, token)
		}
		spec.typeIndex[token] = struct{}{}
		spec.allowedTypes = append(spec.allowedTypes, token)
	}
	slices.Sort(spec.allowedTypes)

	if def.Kind.structured() {
		if len(def.Fields) == 0 {
			return nil, fmt.Errorf("specification %q: %s kind requires a field list", name, def.Kind)
		}
		for _, field := range def.Fields {
			if field == "" || slices.Contains(spec.fields, field) {
				return nil, fmt.Errorf("specification %q: empty or duplicate field %q", name, field)
			}
			spec.fields = append(spec.fields, field)
		}
	} else if len(def.Fields) > 0 {
		return nil, fmt.Errorf("specification %q: %s kind does not take fields", name, def.Kind)
	}
	for field, values := range def.FieldValues {
		if !slices.Contains(spec.fields, field) {
			return nil, fmt.Errorf("specification %q: value constraint on unknown field %q", name, field)
		}
		spec.fieldValues[field] = slices.Clone(values)
	}

	return spec, nil
}

// Extension returns the specification synthesized for a property name that
// is not registered: a single-valued simple property that remembers the name
// as written.
func Extension(rawName string) *Specification {
	return &Specification{
		name:         strings.ToLower(rawName),
		displayName:  rawName,
		multiplicity: Single,
		kind:         KindSimple,
		typeIndex:    map[string]struct{}{},
		fieldValues:  map[string][]string{},
		extension:    true,
	}
}

// Name returns the lowercase property name.
func (s *Specification) Name() string { return s.name }

// DisplayName returns the name used on output: the original spelling for
// extension properties, the uppercase name otherwise.
func (s *Specification) DisplayName() string {
	if s.displayName != "" {
		return s.displayName
	}
	return strings.ToUpper(s.name)
}

// Multiplicity returns how many instances a card may hold.
func (s *Specification) Multiplicity() Multiplicity { return s.multiplicity }

// Kind returns the builder variant.
func (s *Specification) Kind() Kind { return s.kind }

// IsExtension reports whether the specification was synthesized for an
// unregistered name.
func (s *Specification) IsExtension() bool { return s.extension }

// AllowedTypes returns the sorted TYPE tokens the property accepts.
func (s *Specification) AllowedTypes() []string { return slices.Clone(s.allowedTypes) }

// AllowsType reports whether token (case-insensitive) is an allowed TYPE.
func (s *Specification) AllowsType(token string) bool {
	_, ok := s.typeIndex[strings.ToLower(token)]
	return ok
}

// Fields returns the ordered field names of a structured property.
func (s *Specification) Fields() []string { return slices.Clone(s.fields) }

// FieldIndex returns the position of a field. Matching is exact first, then
// case-insensitive.
func (s *Specification) FieldIndex(field string) (int, bool) {
	if i := slices.Index(s.fields, field); i >= 0 {
		return i, true
	}
	for i, name := range s.fields {
		if strings.EqualFold(name, field) {
			return i, true
		}
	}
	return -1, false
}

// AllowsFieldValue reports whether value may be stored in field. Empty
// values are always allowed since they mean "unset".
func (s *Specification) AllowsFieldValue(field, value string) bool {
	allowed, constrained := s.fieldValues[field]
	if !constrained || value == "" {
		return true
	}
	return slices.ContainsFunc(allowed, func(candidate string) bool {
		return strings.EqualFold(candidate, value)
	})
}

// MediaCategory returns the top-level media type used for legacy tokens.
func (s *Specification) MediaCategory() string {
	if s.mediaCategory == "" {
		return "application"
	}
	return s.mediaCategory
}

// NewBuilder returns a fresh builder of the variant this specification
// requires.
func (s *Specification) NewBuilder() Builder {
	switch s.kind {
	case KindTyped:
		return newTypedBuilder(s)
	case KindStructured:
		return newStructuredBuilder(s)
	case KindTypedStructured:
		return newTypedStructuredBuilder(s)
	case KindData:
		return newDataBuilder(s)
	default:
		return newSimpleBuilder(s)
	}
}
