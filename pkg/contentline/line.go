package contentline

import (
	"strconv"
	"strings"

	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

// TypeParam is the parameter that receives bare legacy tokens.
const TypeParam = "type"

// ContentLine is the structural decomposition of one unfolded line.
// Group, Name and parameter keys are lowercased; Value keeps its escapes.
type ContentLine struct {
	Group string
	Name  string
	// RawName is the name as written, used to display extension properties.
	RawName string
	Params  *Parameters
	// NoValueParams lists parameter names that appeared without "=value"
	// in a 4.0 document.
	NoValueParams []string
	Value         string
	Version       Version
}

// Lex decomposes one unfolded physical line. The value is split at the first
// colon outside a quoted parameter value; the head is split at semicolons
// into the name and its parameters, and the name at its first dot into group
// and name. For 2.1 and 3.0 a parameter without "key=" is recorded as a TYPE
// value.
func Lex(line string, version Version) (*ContentLine, error) {
	separator := indexOutsideQuotes(line, ':')
	if separator < 0 {
		return nil, vcarderr.MalformedProperty(guessName(line), "missing ':' between name and value")
	}

	head, value := line[:separator], line[separator+1:]
	segments := splitOutsideQuotes(head, ';')

	cl := &ContentLine{
		Params:  NewParameters(),
		Value:   value,
		Version: version,
	}

	nameSegment := strings.TrimSpace(segments[0])
	if groupPart, namePart, found := strings.Cut(nameSegment, "."); found {
		if !isIdentifier(groupPart) {
			return nil, vcarderr.MalformedProperty(strings.ToLower(namePart), "invalid group "+groupPart)
		}
		cl.Group = strings.ToLower(groupPart)
		nameSegment = namePart
	}
	if !isIdentifier(nameSegment) {
		return nil, vcarderr.MalformedProperty("", "invalid property name "+strconv.Quote(nameSegment))
	}
	cl.RawName = nameSegment
	cl.Name = strings.ToLower(nameSegment)

	for _, segment := range segments[1:] {
		if err := cl.addParameter(segment); err != nil {
			return nil, err
		}
	}
	return cl, nil
}

func (cl *ContentLine) addParameter(segment string) error {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return vcarderr.MalformedParameter(cl.Name, "", "", "empty parameter")
	}

	equals := indexOutsideQuotes(segment, '=')
	if equals < 0 {
		if cl.Version.Legacy() {
			cl.Params.Add(TypeParam, unquote(segment))
			return nil
		}
		if !isIdentifier(segment) {
			return vcarderr.MalformedParameter(cl.Name, segment, "", "invalid parameter name")
		}
		cl.NoValueParams = append(cl.NoValueParams, strings.ToLower(segment))
		return nil
	}

	key := strings.TrimSpace(segment[:equals])
	if !isIdentifier(key) {
		return vcarderr.MalformedParameter(cl.Name, key, segment, "invalid parameter name")
	}
	values := splitOutsideQuotes(segment[equals+1:], ',')
	for i, v := range values {
		values[i] = unquote(strings.TrimSpace(v))
	}
	cl.Params.Add(key, values...)
	return nil
}

// String renders the line back to text with the parameters in stored order.
// It is meant for diagnostics; properties own canonical serialization.
func (cl *ContentLine) String() string {
	var sb strings.Builder
	if cl.Group != "" {
		sb.WriteString(cl.Group)
		sb.WriteByte('.')
	}
	sb.WriteString(strings.ToUpper(cl.Name))
	for _, key := range cl.Params.Keys() {
		quoted := make([]string, 0)
		for _, v := range cl.Params.Get(key) {
			quoted = append(quoted, QuoteValue(v))
		}
		sb.WriteString(";" + strings.ToUpper(key) + "=" + strings.Join(quoted, ","))
	}
	for _, name := range cl.NoValueParams {
		sb.WriteString(";" + strings.ToUpper(name))
	}
	sb.WriteByte(':')
	sb.WriteString(cl.Value)
	return sb.String()
}

// Clone returns a deep copy, used when one line feeds several builders.
func (cl *ContentLine) Clone() *ContentLine {
	clone := *cl
	clone.Params = cl.Params.Clone()
	clone.NoValueParams = append([]string(nil), cl.NoValueParams...)
	return &clone
}

func indexOutsideQuotes(s string, target byte) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case target:
			if !quoted {
				return i
			}
		}
	}
	return -1
}

func splitOutsideQuotes(s string, sep byte) []string {
	var parts []string
	quoted := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case sep:
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// isIdentifier matches the iana-token / x-name alphabet: letters, digits
// and hyphens.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
			return false
		}
	}
	return true
}

func guessName(line string) string {
	head := line
	if i := strings.IndexAny(head, ";:"); i >= 0 {
		head = head[:i]
	}
	if _, name, found := strings.Cut(head, "."); found {
		head = name
	}
	if isIdentifier(head) {
		return strings.ToLower(head)
	}
	return ""
}
