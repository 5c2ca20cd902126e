package contentline

import (
	"strings"
	"unicode/utf8"
)

// MaxLineOctets is the folding threshold recommended by RFC 6350 §3.2.
const MaxLineOctets = 75

// NormalizeNewlines converts CRLF and lone CR line breaks to LF.
func NormalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}

// Unfold reverses line folding. A line break immediately followed by a
// single space or tab is a soft break: under 3.0/4.0 rules the break and
// the whitespace are both removed; under 2.1 rules only the break is
// removed and the whitespace character is kept. Any other line break is
// left untouched. Unfold expects LF line breaks (see NormalizeNewlines)
// but also accepts CRLF.
func Unfold(text string, version Version) string {
	keepWhitespace := version.FoldsWithWhitespace()

	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		breakLen := 0
		switch {
		case c == '\r' && i+1 < len(text) && text[i+1] == '\n':
			breakLen = 2
		case c == '\n':
			breakLen = 1
		}
		if breakLen > 0 && i+breakLen < len(text) {
			next := text[i+breakLen]
			if next == ' ' || next == '\t' {
				if keepWhitespace {
					sb.WriteByte(next)
				}
				i += breakLen
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// Fold splits a single content line (without terminator) into physical
// lines of at most MaxLineOctets octets, never inside a UTF-8 sequence.
// Continuation lines start with one space. The result uses CRLF between
// physical lines and carries no trailing terminator.
func Fold(line string) string {
	if len(line) <= MaxLineOctets {
		return line
	}

	var sb strings.Builder
	limit := MaxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		sb.WriteString(line[:cut])
		sb.WriteString("\r\n ")
		line = line[cut:]
		// Continuation lines lose one octet to the leading space.
		limit = MaxLineOctets - 1
	}
	sb.WriteString(line)
	return sb.String()
}
