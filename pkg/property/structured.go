package property

import (
	"fmt"
	"strings"

	"github.com/coolbeans/rolodex/pkg/contentline"
	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

// fieldSet holds the positional field values of a structured builder.
type fieldSet struct {
	spec   *Specification
	values []string
	set    []bool
}

func newFieldSet(spec *Specification) fieldSet {
	return fieldSet{
		spec:   spec,
		values: make([]string, len(spec.fields)),
		set:    make([]bool, len(spec.fields)),
	}
}

func (f *fieldSet) check(name, value string) (int, error) {
	i, ok := f.spec.FieldIndex(name)
	if !ok {
		return -1, vcarderr.InvalidValue(f.spec.name, name,
			fmt.Sprintf("unknown field, expected one of %s", strings.Join(f.spec.fields, ", ")))
	}
	if !f.spec.AllowsFieldValue(f.spec.fields[i], value) {
		return -1, vcarderr.InvalidValue(f.spec.name, value,
			fmt.Sprintf("value not allowed in field %s", f.spec.fields[i]))
	}
	return i, nil
}

// StructuredBuilder builds StructuredProperty values.
type StructuredBuilder struct {
	builderCore
	fields fieldSet
}

func newStructuredBuilder(spec *Specification) *StructuredBuilder {
	return &StructuredBuilder{builderCore: newBuilderCore(spec), fields: newFieldSet(spec)}
}

// SetField sets one field by name.
func (b *StructuredBuilder) SetField(name, value string) error {
	i, err := b.fields.check(name, value)
	if err != nil {
		return err
	}
	b.fields.values[i] = value
	b.fields.set[i] = true
	b.valueSet = true
	return nil
}

// SetFields sets several fields at once; on error nothing is applied.
func (b *StructuredBuilder) SetFields(fields map[string]string) error {
	indexes := make(map[int]string, len(fields))
	for name, value := range fields {
		i, err := b.fields.check(name, value)
		if err != nil {
			return err
		}
		indexes[i] = value
	}
	for i, value := range indexes {
		b.fields.values[i] = value
		b.fields.set[i] = true
	}
	b.valueSet = true
	return nil
}

// SetValue parses the escaped ';'-joined text form. Fewer positions than
// fields leave the trailing fields unset; more positions is an error.
func (b *StructuredBuilder) SetValue(value string) error {
	positions := contentline.SplitUnescaped(value, ';')
	if len(positions) > len(b.fields.values) {
		return vcarderr.MalformedProperty(b.spec.name,
			fmt.Sprintf("%d fields given, at most %d allowed", len(positions), len(b.fields.values)))
	}
	fields := make(map[string]string, len(positions))
	for i, raw := range positions {
		fields[b.spec.fields[i]] = contentline.Unescape(raw)
	}
	return b.SetFields(fields)
}

func (b *StructuredBuilder) SetParameter(key string, values ...string) error {
	return b.setParameter(key, values)
}

func (b *StructuredBuilder) PushParameter(key, value string) error {
	return b.pushParameter(key, value)
}

func (b *StructuredBuilder) SetFromContentLine(cl *contentline.ContentLine) error {
	if err := b.beginLine(cl); err != nil {
		return err
	}
	if err := b.applyParameters(cl); err != nil {
		return err
	}
	return b.SetValue(cl.Value)
}

// buildStructured revalidates every field and assembles the property.
func (b *StructuredBuilder) buildStructured() (StructuredProperty, error) {
	if err := b.checkBuild(); err != nil {
		return StructuredProperty{}, err
	}
	for i, name := range b.spec.fields {
		if b.fields.set[i] && !b.spec.AllowsFieldValue(name, b.fields.values[i]) {
			return StructuredProperty{}, vcarderr.InvalidValue(b.spec.name, b.fields.values[i],
				fmt.Sprintf("value not allowed in field %s", name))
		}
	}
	values := append([]string(nil), b.fields.values...)
	set := append([]bool(nil), b.fields.set...)
	b.value = joinFields(values)
	return StructuredProperty{propertyCore: b.core(), fieldValues: values, fieldSet: set}, nil
}

func (b *StructuredBuilder) Build() (Property, error) {
	p, err := b.buildStructured()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// TypedStructuredBuilder builds TypedStructuredProperty values.
type TypedStructuredBuilder struct {
	StructuredBuilder
	typeSet
}

func newTypedStructuredBuilder(spec *Specification) *TypedStructuredBuilder {
	return &TypedStructuredBuilder{
		StructuredBuilder: *newStructuredBuilder(spec),
		typeSet:           newTypeSet(spec),
	}
}

func (b *TypedStructuredBuilder) SetParameter(key string, values ...string) error {
	if strings.EqualFold(key, contentline.TypeParam) {
		return b.SetTypes(values...)
	}
	return b.setParameter(key, values)
}

func (b *TypedStructuredBuilder) PushParameter(key, value string) error {
	if strings.EqualFold(key, contentline.TypeParam) {
		return b.AddType(value)
	}
	return b.pushParameter(key, value)
}

func (b *TypedStructuredBuilder) SetFromContentLine(cl *contentline.ContentLine) error {
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
	return b.SetValue(cl.Value)
}

func (b *TypedStructuredBuilder) Build() (Property, error) {
	if b.built {
		panic("property: Build called twice on the same " + b.spec.name + " builder")
	}
	tokens, err := b.sorted()
	if err != nil {
		return nil, err
	}
	structured, err := b.buildStructured()
	if err != nil {
		return nil, err
	}
	return &TypedStructuredProperty{StructuredProperty: structured, typeTokens: tokens}, nil
}
