package property

import (
	"slices"
	"strconv"
	"strings"

	"github.com/coolbeans/rolodex/pkg/contentline"
	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

// Builder accumulates and validates the parts of one property. Setters fail
// fast; Build validates everything again and returns the immutable Property.
// A builder yields one Property: calling Build again after a successful
// Build panics.
type Builder interface {
	Specification() *Specification
	SetGroup(group string) error
	// SetValue sets the value as plain (unescaped) text. Structured
	// builders parse the ';'-joined text form instead.
	SetValue(value string) error
	// SetParameter replaces a parameter's values.
	SetParameter(key string, values ...string) error
	// PushParameter appends one value to a parameter.
	PushParameter(key, value string) error
	SetPref(pref int) error
	// SetFromContentLine populates the builder from a lexed line: group
	// first, then variant-specific parameters, then the value.
	SetFromContentLine(cl *contentline.ContentLine) error
	Build() (Property, error)
}

// TypeSetter is implemented by builders of properties with a TYPE set.
type TypeSetter interface {
	// AddType adds one allowed token; re-adding a token is a no-op.
	AddType(token string) error
	// SetTypes replaces the set; nothing changes if any token is rejected.
	SetTypes(tokens ...string) error
}

// FieldSetter is implemented by structured builders.
type FieldSetter interface {
	SetField(name, value string) error
	// SetFields sets several fields atomically: nothing changes if any
	// name or value is rejected.
	SetFields(fields map[string]string) error
}

// MediaTypeSetter is implemented by data builders.
type MediaTypeSetter interface {
	SetMediaType(mediaType string) error
}

// builderCore holds what every variant shares: group, value and the
// generic parameters.
type builderCore struct {
	spec     *Specification
	group    string
	value    string
	valueSet bool
	params   *contentline.Parameters
	built    bool
}

func newBuilderCore(spec *Specification) builderCore {
	return builderCore{spec: spec, params: contentline.NewParameters()}
}

func (b *builderCore) Specification() *Specification { return b.spec }

func (b *builderCore) SetGroup(group string) error {
	if err := validateGroup(b.spec.name, group); err != nil {
		return err
	}
	b.group = strings.ToLower(group)
	return nil
}

func (b *builderCore) SetPref(pref int) error {
	if err := validatePref(b.spec.name, strconv.Itoa(pref)); err != nil {
		return err
	}
	b.params.Set(PrefParam, strconv.Itoa(pref))
	return nil
}

// setParameter handles the parameters every variant treats alike.
func (b *builderCore) setParameter(key string, values []string) error {
	key = strings.ToLower(key)
	if key == PrefParam {
		if len(values) != 1 {
			return vcarderr.MalformedParameter(b.spec.name, key, strings.Join(values, ","), "expected exactly one value")
		}
		if err := validatePref(b.spec.name, values[0]); err != nil {
			return err
		}
	}
	b.params.Set(key, values...)
	return nil
}

func (b *builderCore) pushParameter(key, value string) error {
	key = strings.ToLower(key)
	if key == PrefParam {
		if b.params.Has(PrefParam) {
			return vcarderr.MalformedParameter(b.spec.name, key, value, "PREF may appear only once")
		}
		return b.setParameter(key, []string{value})
	}
	b.params.Add(key, value)
	return nil
}

func (b *builderCore) setText(value string) {
	b.value = value
	b.valueSet = true
}

// beginLine checks the line belongs to this builder and applies the group.
func (b *builderCore) beginLine(cl *contentline.ContentLine) error {
	if cl.Name != b.spec.name {
		return vcarderr.MalformedProperty(b.spec.name, "content line is for "+strings.ToUpper(cl.Name))
	}
	return b.SetGroup(cl.Group)
}

// applyParameters feeds the line's parameters through set, skipping the
// keys the variant consumes itself. No-value parameters are kept as keys
// without values.
func (b *builderCore) applyParameters(cl *contentline.ContentLine, skip ...string) error {
	for _, key := range cl.Params.Keys() {
		if slices.Contains(skip, key) {
			continue
		}
		if err := b.setParameter(key, cl.Params.Get(key)); err != nil {
			return err
		}
	}
	for _, name := range cl.NoValueParams {
		if slices.Contains(skip, name) {
			continue
		}
		if !b.params.Has(name) {
			b.params.Add(name)
		}
	}
	return nil
}

// checkBuild is the common part of Build: single use, value presence, and
// revalidation of group and PREF.
func (b *builderCore) checkBuild() error {
	if b.built {
		panic("property: Build called twice on the same " + b.spec.name + " builder")
	}
	if !b.valueSet {
		return vcarderr.MalformedProperty(b.spec.name, "value is not set")
	}
	if err := validateGroup(b.spec.name, b.group); err != nil {
		return err
	}
	if raw, ok := b.params.First(PrefParam); ok {
		if err := validatePref(b.spec.name, raw); err != nil {
			return err
		}
	}
	return nil
}

func (b *builderCore) core() propertyCore {
	b.built = true
	return propertyCore{
		spec:   b.spec,
		group:  b.group,
		value:  b.value,
		params: b.params.Clone(),
	}
}

func validateGroup(property, group string) error {
	for i := 0; i < len(group); i++ {
		c := group[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
			return vcarderr.InvalidValue(property, group, "group must contain only letters, digits and hyphens")
		}
	}
	return nil
}

func validatePref(property, raw string) error {
	pref, err := strconv.Atoi(raw)
	if err != nil || pref < MostPreferred || pref > LeastPreferred {
		return vcarderr.MalformedParameter(property, PrefParam, raw, "PREF must be an integer from 1 to 100")
	}
	return nil
}

// SimpleBuilder builds SimpleProperty values.
type SimpleBuilder struct {
	builderCore
}

func newSimpleBuilder(spec *Specification) *SimpleBuilder {
	return &SimpleBuilder{builderCore: newBuilderCore(spec)}
}

func (b *SimpleBuilder) SetValue(value string) error {
	b.setText(value)
	return nil
}

func (b *SimpleBuilder) SetParameter(key string, values ...string) error {
	return b.setParameter(key, values)
}

func (b *SimpleBuilder) PushParameter(key, value string) error {
	return b.pushParameter(key, value)
}

func (b *SimpleBuilder) SetFromContentLine(cl *contentline.ContentLine) error {
	if err := b.beginLine(cl); err != nil {
		return err
	}
	if err := b.applyParameters(cl); err != nil {
		return err
	}
	return b.SetValue(contentline.Unescape(cl.Value))
}

func (b *SimpleBuilder) Build() (Property, error) {
	if err := b.checkBuild(); err != nil {
		return nil, err
	}
	return &SimpleProperty{propertyCore: b.core()}, nil
}
