package property

import (
	"slices"
	"strings"

	"github.com/coolbeans/rolodex/pkg/contentline"
	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

// typeSet accumulates TYPE tokens for a specification.
type typeSet struct {
	owner  *Specification
	tokens map[string]struct{}
}

func newTypeSet(spec *Specification) typeSet {
	return typeSet{owner: spec, tokens: make(map[string]struct{})}
}

func (s *typeSet) check(token string) (string, error) {
	canonical := strings.ToLower(strings.TrimSpace(token))
	if !s.owner.AllowsType(canonical) {
		return "", vcarderr.MalformedParameter(s.owner.name, contentline.TypeParam, token, "not an allowed TYPE")
	}
	return canonical, nil
}

func (s *typeSet) AddType(token string) error {
	canonical, err := s.check(token)
	if err != nil {
		return err
	}
	s.tokens[canonical] = struct{}{}
	return nil
}

func (s *typeSet) SetTypes(tokens ...string) error {
	replacement := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		canonical, err := s.check(token)
		if err != nil {
			return err
		}
		replacement[canonical] = struct{}{}
	}
	s.tokens = replacement
	return nil
}

// addRaw adds parameter values, splitting values that still hold a
// comma-joined list (a quoted TYPE="work,voice").
func (s *typeSet) addRaw(values []string) error {
	for _, value := range values {
		for _, token := range strings.Split(value, ",") {
			if strings.TrimSpace(token) == "" {
				continue
			}
			if err := s.AddType(token); err != nil {
				return err
			}
		}
	}
	return nil
}

// fromLine applies the TYPE parameter of a line. Under 4.0 a no-value
// parameter that names an allowed type is accepted as a type as well.
func (s *typeSet) fromLine(cl *contentline.ContentLine) ([]string, error) {
	if err := s.addRaw(cl.Params.Get(contentline.TypeParam)); err != nil {
		return nil, err
	}
	var consumed []string
	for _, name := range cl.NoValueParams {
		if s.owner.AllowsType(name) {
			s.tokens[name] = struct{}{}
			consumed = append(consumed, name)
		}
	}
	return consumed, nil
}

// sorted returns the canonical token list, revalidated.
func (s *typeSet) sorted() (typeTokens, error) {
	tokens := make([]string, 0, len(s.tokens))
	for token := range s.tokens {
		if !s.owner.AllowsType(token) {
			return nil, vcarderr.MalformedParameter(s.owner.name, contentline.TypeParam, token, "not an allowed TYPE")
		}
		tokens = append(tokens, token)
	}
	slices.Sort(tokens)
	return typeTokens(tokens), nil
}

// TypedBuilder builds TypedProperty values.
type TypedBuilder struct {
	builderCore
	typeSet
}

func newTypedBuilder(spec *Specification) *TypedBuilder {
	return &TypedBuilder{builderCore: newBuilderCore(spec), typeSet: newTypeSet(spec)}
}

func (b *TypedBuilder) SetValue(value string) error {
	b.setText(value)
	return nil
}

func (b *TypedBuilder) SetParameter(key string, values ...string) error {
	if strings.EqualFold(key, contentline.TypeParam) {
		return b.SetTypes(values...)
	}
	return b.setParameter(key, values)
}

func (b *TypedBuilder) PushParameter(key, value string) error {
	if strings.EqualFold(key, contentline.TypeParam) {
		return b.AddType(value)
	}
	return b.pushParameter(key, value)
}

func (b *TypedBuilder) SetFromContentLine(cl *contentline.ContentLine) error {
	if err := b.beginLine(cl); err != nil {
		return err
	}
	consumed, err := b.fromLine(cl)
	if err != nil {
		return err
	}
	if err := b.applyParameters(cl, append(consumed, contentline.TypeParam)...); err != nil {
		return err
	}
	return b.SetValue(contentline.Unescape(cl.Value))
}

func (b *TypedBuilder) Build() (Property, error) {
	if err := b.checkBuild(); err != nil {
		return nil, err
	}
	tokens, err := b.sorted()
	if err != nil {
		return nil, err
	}
	return &TypedProperty{propertyCore: b.core(), typeTokens: tokens}, nil
}
