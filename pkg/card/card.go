// Package card holds the vCard aggregate: a UID plus the properties of one
// contact, keyed by lowercase property name.
package card

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/coolbeans/rolodex/pkg/contentline"
	"github.com/coolbeans/rolodex/pkg/property"
	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

var log = logging.Logger("rolodex/card")

const (
	uidName  = "uid"
	fnName   = "fn"
	nName    = "n"
	orgName  = "org"
	kindName = "kind"

	// KindIndividual is the KIND assumed when a card carries none.
	KindIndividual = "individual"
	// KindOrganization marks a card describing an organization.
	KindOrganization = "organization"
)

// Card is one vCard. The zero value is not usable; call New.
type Card struct {
	registry   *property.Registry
	uid        string
	properties map[string][]property.Property
}

// New returns an empty card bound to the default registry.
func New() *Card {
	return NewWithRegistry(property.DefaultRegistry())
}

// NewWithRegistry returns an empty card bound to registry, which decides
// multiplicity and output order.
func NewWithRegistry(registry *property.Registry) *Card {
	return &Card{
		registry:   registry,
		properties: make(map[string][]property.Property),
	}
}

// Registry returns the registry the card was created with.
func (c *Card) Registry() *property.Registry { return c.registry }

// Push adds properties, lists or whole cards. Containers are flattened. A
// uid property sets the card's identifier; single-valued properties replace
// any earlier instance; everything else is appended.
func (c *Card) Push(items ...property.Collection) {
	for _, item := range items {
		if item == nil {
			continue
		}
		for _, p := range item.Properties() {
			c.pushOne(p)
		}
	}
}

func (c *Card) pushOne(p property.Property) {
	if p == nil {
		return
	}
	name := p.Name()
	if name == uidName {
		c.uid = p.Value()
		return
	}
	if p.Specification().Multiplicity() == property.Single {
		c.properties[name] = []property.Property{p}
		return
	}
	c.properties[name] = append(c.properties[name], p)
}

// Set builds a property from its text value and pushes it. Structured
// properties take the ';'-joined form.
func (c *Card) Set(name, value string) error {
	b, err := c.registry.Builder(name)
	if err != nil {
		return err
	}
	if err := b.SetValue(value); err != nil {
		return err
	}
	p, err := b.Build()
	if err != nil {
		return err
	}
	c.Push(p)
	return nil
}

// Clear removes every property stored under name.
func (c *Card) Clear(name string) {
	name = strings.ToLower(name)
	if name == uidName {
		c.uid = ""
		return
	}
	delete(c.properties, name)
}

// Get returns the properties stored under name in insertion order.
func (c *Card) Get(name string) []property.Property {
	return slices.Clone(c.properties[strings.ToLower(name)])
}

// First returns the first property stored under name.
func (c *Card) First(name string) (property.Property, bool) {
	list := c.properties[strings.ToLower(name)]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Field returns a field of the first structured property stored under name.
func (c *Card) Field(name, field string) (string, bool) {
	p, ok := c.First(name)
	if !ok {
		return "", false
	}
	structured, ok := p.(property.Structured)
	if !ok {
		return "", false
	}
	return structured.Field(field)
}

// Kind returns the lowercase KIND value, defaulting to individual.
func (c *Card) Kind() string {
	if p, ok := c.First(kindName); ok && p.Value() != "" {
		return strings.ToLower(p.Value())
	}
	return KindIndividual
}

// Names returns the names of the stored properties in output order.
func (c *Card) Names() []string {
	names := make([]string, 0, len(c.properties))
	for name, list := range c.properties {
		if len(list) > 0 {
			names = append(names, name)
		}
	}
	slices.SortFunc(names, c.compareNames)
	return names
}

// compareNames orders registered names by registry rank and puts
// extensions after them, alphabetically.
func (c *Card) compareNames(a, b string) int {
	rankA, rankB := c.registry.Rank(a), c.registry.Rank(b)
	switch {
	case rankA >= 0 && rankB >= 0:
		return rankA - rankB
	case rankA >= 0:
		return -1
	case rankB >= 0:
		return 1
	}
	return strings.Compare(a, b)
}

// Properties returns every property of the card in output order, including
// a uid property when the identifier is set. A Card is therefore itself a
// property.Collection and may be pushed onto another card.
func (c *Card) Properties() []property.Property {
	var all []property.Property
	uidPushed := false
	for _, name := range c.Names() {
		if !uidPushed && c.uid != "" && c.compareNames(uidName, name) < 0 {
			all = append(all, c.uidProperty())
			uidPushed = true
		}
		all = append(all, c.properties[name]...)
	}
	if !uidPushed && c.uid != "" {
		all = append(all, c.uidProperty())
	}
	return all
}

func (c *Card) uidProperty() property.Property {
	b, err := c.registry.Builder(uidName)
	if err != nil {
		panic(fmt.Sprintf("card: registry has no uid specification: %v", err))
	}
	_ = b.SetValue(c.uid)
	p, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("card: cannot build uid property: %v", err))
	}
	return p
}

// SetFNAppropriately derives FN when it is missing or empty: from ORG for
// organizations, from N otherwise. A card with neither keeps no FN.
func (c *Card) SetFNAppropriately() error {
	if fn, ok := c.First(fnName); ok && fn.Value() != "" {
		return nil
	}
	source := nName
	if c.Kind() == KindOrganization {
		source = orgName
	}
	p, ok := c.First(source)
	if !ok || p.String() == "" {
		log.Debugw("no source for FN", "kind", c.Kind(), "source", source)
		return nil
	}
	b, err := c.registry.Builder(fnName)
	if err != nil {
		return err
	}
	if err := b.SetValue(p.String()); err != nil {
		return err
	}
	fn, err := b.Build()
	if err != nil {
		return err
	}
	c.Push(fn)
	return nil
}

// UID returns the identifier, or "" when none is set.
func (c *Card) UID() string { return c.uid }

// SetUID sets the identifier. An empty uid generates a fresh version 1
// UUID URN.
func (c *Card) SetUID(uid string) {
	if uid == "" {
		uid = NewUID()
		log.Debugw("generated uid", "uid", uid)
	}
	c.uid = uid
}

// CheckSetUID returns the identifier, generating one first if none is set.
func (c *Card) CheckSetUID() string {
	if c.uid == "" {
		c.SetUID("")
	}
	return c.uid
}

// NewUID returns a urn:uuid identifier built from a version 1 UUID.
func NewUID() string {
	return "urn:uuid:" + uuid.Must(uuid.NewUUID()).String()
}

// Serialize renders the card as a vCard document of the given version. It
// assigns a UID if none is set. Lines are folded at 75 octets for 3.0 and
// later.
func (c *Card) Serialize(version contentline.Version) string {
	uid := c.CheckSetUID()

	var sb strings.Builder
	write := func(line string) {
		if version.FoldsWithWhitespace() {
			sb.WriteString(line)
			return
		}
		sb.WriteString(contentline.Fold(strings.TrimSuffix(line, "\r\n")))
		sb.WriteString("\r\n")
	}
	write("BEGIN:VCARD\r\n")
	write("VERSION:" + version.String() + "\r\n")
	write("UID:" + contentline.EscapeURI(uid) + "\r\n")
	for _, name := range c.Names() {
		if name == "version" {
			continue
		}
		for _, p := range c.properties[name] {
			write(p.ContentLine())
		}
	}
	write("END:VCARD\r\n")
	return sb.String()
}

// Display renders one "Name: text" line per property, ignoring parameters.
func (c *Card) Display() string {
	var sb strings.Builder
	for _, p := range c.Properties() {
		if p.Name() == "version" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", p.Specification().DisplayName(), p.String())
	}
	return sb.String()
}

// Equal reports whether both cards hold the same UID and the same
// properties in the same order.
func (c *Card) Equal(other *Card) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.uid != other.uid {
		return false
	}
	names := c.Names()
	if !slices.Equal(names, other.Names()) {
		return false
	}
	for _, name := range names {
		if !slices.EqualFunc(c.properties[name], other.properties[name], property.Equal) {
			return false
		}
	}
	return true
}

// Validate checks the card holds what RFC 6350 requires of every vCard.
func (c *Card) Validate() error {
	fn, ok := c.First(fnName)
	if !ok || fn.Value() == "" {
		return vcarderr.MalformedCard("FN is required")
	}
	return nil
}
