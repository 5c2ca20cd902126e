package contentline

import "strings"

var valueEscaper = strings.NewReplacer(
	`\`, `\\`,
	`,`, `\,`,
	`;`, `\;`,
	`:`, `\:`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

var uriEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

// EscapeURI escapes backslashes and line breaks only, leaving the
// punctuation of a URI such as urn:uuid:... readable. Unescape reverses it.
func EscapeURI(value string) string {
	return uriEscaper.Replace(value)
}

// Escape backslash-escapes commas, semicolons, colons, backslashes and
// line breaks in a text value.
func Escape(value string) string {
	return valueEscaper.Replace(value)
}

// Unescape reverses Escape. Both \n and \N decode to a line break. An
// unknown escape sequence keeps the escaped character and drops the
// backslash; a trailing lone backslash is kept.
func Unescape(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}
	var sb strings.Builder
	sb.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\\' || i+1 == len(value) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch value[i] {
		case 'n', 'N':
			sb.WriteByte('\n')
		default:
			sb.WriteByte(value[i])
		}
	}
	return sb.String()
}

// SplitUnescaped splits an escaped value at every occurrence of sep that is
// not preceded by an escaping backslash. The parts keep their escapes.
func SplitUnescaped(value string, sep byte) []string {
	var parts []string
	start := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, value[start:i])
			start = i + 1
		}
	}
	return append(parts, value[start:])
}

// SplitList splits a comma-joined value using CSV-style rules: commas
// escaped with a backslash or inside a double-quoted segment do not split,
// and the quotes around a whole element are removed. The elements keep
// their backslash escapes.
func SplitList(value string) []string {
	var (
		parts   []string
		current strings.Builder
		quoted  bool
	)
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '\\' && i+1 < len(value):
			current.WriteByte(c)
			current.WriteByte(value[i+1])
			i++
		case c == '"':
			quoted = !quoted
		case c == ',' && !quoted:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	return append(parts, current.String())
}
