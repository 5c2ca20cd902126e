// Package contentline provides the lexical layer of the vCard format:
// document versions, line unfolding and folding, value escaping, and the
// decomposition of one physical line into group, name, parameters and value.
//
// Nothing in this package knows about individual property semantics; that
// belongs to the property package.
package contentline

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a vCard document version (the VERSION property).
type Version struct {
	Major int
	Minor int
}

var (
	// Version21 is the legacy vCard 2.1 dialect.
	Version21 = Version{Major: 2, Minor: 1}
	// Version30 is the RFC 2426 dialect.
	Version30 = Version{Major: 3, Minor: 0}
	// Version40 is the RFC 6350 dialect.
	Version40 = Version{Major: 4, Minor: 0}
)

// ParseVersion parses "<major>.<minor>".
func ParseVersion(text string) (Version, error) {
	majorText, minorText, found := strings.Cut(strings.TrimSpace(text), ".")
	if !found {
		return Version{}, fmt.Errorf("version %q: expected <major>.<minor>", text)
	}
	major, err := strconv.Atoi(majorText)
	if err != nil || major < 0 {
		return Version{}, fmt.Errorf("version %q: invalid major number", text)
	}
	minor, err := strconv.Atoi(minorText)
	if err != nil || minor < 0 {
		return Version{}, fmt.Errorf("version %q: invalid minor number", text)
	}
	return Version{Major: major, Minor: minor}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Legacy reports whether the version predates RFC 6350 (2.1 and 3.0),
// which permits bare TYPE tokens, inline encodings and AGENT.
func (v Version) Legacy() bool {
	return v.Major < 4
}

// FoldsWithWhitespace reports whether a soft line break collapses to its
// indentation character (2.1 semantics) rather than disappearing.
func (v Version) FoldsWithWhitespace() bool {
	return v.Major < 3
}
