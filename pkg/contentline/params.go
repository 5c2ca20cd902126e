package contentline

import (
	"slices"
	"strings"
)

// Parameters is an ordered multimap of lowercase parameter names to their
// values. The zero value is empty and ready to use.
type Parameters struct {
	keys   []string
	values map[string][]string
}

// NewParameters returns an empty parameter set.
func NewParameters() *Parameters {
	return &Parameters{}
}

// Add appends values under key, keeping first-seen key order.
func (p *Parameters) Add(key string, values ...string) {
	key = strings.ToLower(key)
	if p.values == nil {
		p.values = make(map[string][]string)
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = append(p.values[key], values...)
}

// Set replaces the values stored under key.
func (p *Parameters) Set(key string, values ...string) {
	p.Del(key)
	p.Add(key, values...)
}

// Get returns a copy of the values stored under key.
func (p *Parameters) Get(key string) []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.values[strings.ToLower(key)])
}

// First returns the first value stored under key.
func (p *Parameters) First(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	values := p.values[strings.ToLower(key)]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Has reports whether key is present, even with no values.
func (p *Parameters) Has(key string) bool {
	if p == nil {
		return false
	}
	_, ok := p.values[strings.ToLower(key)]
	return ok
}

// Del removes key.
func (p *Parameters) Del(key string) {
	key = strings.ToLower(key)
	if p == nil || p.values == nil {
		return
	}
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	p.keys = slices.DeleteFunc(p.keys, func(k string) bool { return k == key })
}

// Keys returns the parameter names in first-seen order.
func (p *Parameters) Keys() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.keys)
}

// Len returns the number of distinct parameter names.
func (p *Parameters) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Clone returns a deep copy. Cloning nil yields an empty set.
func (p *Parameters) Clone() *Parameters {
	clone := NewParameters()
	if p == nil {
		return clone
	}
	for _, key := range p.keys {
		clone.Add(key, p.values[key]...)
	}
	return clone
}

// Equal reports whether both sets hold the same keys and values,
// ignoring key order.
func (p *Parameters) Equal(other *Parameters) bool {
	if p.Len() != other.Len() {
		return false
	}
	for _, key := range p.Keys() {
		if !other.Has(key) || !slices.Equal(p.values[key], other.values[key]) {
			return false
		}
	}
	return true
}

// QuoteValue wraps a parameter value in double quotes when it contains a
// character that is structural in the parameter grammar. A parameter value
// cannot hold a double quote, so any is replaced by a single quote.
func QuoteValue(value string) string {
	value = strings.ReplaceAll(value, `"`, "'")
	if strings.ContainsAny(value, ":;,") {
		return `"` + value + `"`
	}
	return value
}
