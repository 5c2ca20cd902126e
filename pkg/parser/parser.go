// Package parser turns vCard documents into cards. It accepts RFC 6350
// (4.0) documents as well as the 3.0 and 2.1 dialects, and keeps every card
// it has imported in a session keyed by UID.
package parser

import (
	"fmt"
	"io"
	"strings"

	logging "github.com/ipfs/go-log/v2"

	"github.com/coolbeans/rolodex/pkg/card"
	"github.com/coolbeans/rolodex/pkg/contentline"
	"github.com/coolbeans/rolodex/pkg/property"
	"github.com/coolbeans/rolodex/pkg/vcarderr"
)

var log = logging.Logger("rolodex/parser")

const (
	beginLine = "BEGIN:VCARD"
	endLine   = "END:VCARD"

	agentName   = "agent"
	relatedName = "related"
	versionName = "version"
	agentType   = "agent"
)

// Parser imports vCard documents. A Parser is not safe for concurrent
// ImportCards calls; use one Parser per goroutine.
type Parser struct {
	// Strict rejects properties the registry does not define. When false,
	// such properties are kept as single-valued extension properties.
	Strict bool

	registry *property.Registry
	cards    map[string]*card.Card
	uids     []string
}

// NewParser creates a lenient parser over the default registry.
func NewParser() *Parser {
	return NewParserWithRegistry(property.DefaultRegistry())
}

// NewParserWithRegistry creates a lenient parser over registry.
func NewParserWithRegistry(registry *property.Registry) *Parser {
	return &Parser{
		registry: registry,
		cards:    make(map[string]*card.Card),
	}
}

// session collects the cards of one ImportCards call. They reach the
// parser's session only once the whole call succeeded.
type session struct {
	cards []*card.Card
}

// ImportCards parses every card in raw, registers them by UID and returns
// them in the order they were completed (nested AGENT cards come before the
// card that refers to them). Either every card is imported or none is.
func (p *Parser) ImportCards(raw string) ([]*card.Card, error) {
	s := &session{}
	if err := p.importDocument(raw, s); err != nil {
		return nil, err
	}

	for _, c := range s.cards {
		uid := c.UID()
		if _, seen := p.cards[uid]; !seen {
			p.uids = append(p.uids, uid)
		}
		p.cards[uid] = c
	}
	log.Debugw("imported cards", "count", len(s.cards))
	return s.cards, nil
}

// ImportReader reads r to the end and imports it.
func (p *Parser) ImportReader(r io.Reader) ([]*card.Card, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read vcard data: %w", err)
	}
	return p.ImportCards(string(data))
}

// Card returns a previously imported card.
func (p *Parser) Card(uid string) (*card.Card, bool) {
	c, ok := p.cards[uid]
	return c, ok
}

// UIDs returns the identifiers of every imported card in import order.
func (p *Parser) UIDs() []string {
	return append([]string(nil), p.uids...)
}

// importDocument runs the whole pipeline over one document, which may hold
// several cards.
func (p *Parser) importDocument(raw string, s *session) error {
	blocks, err := splitBlocks(contentline.NormalizeNewlines(raw))
	if err != nil {
		return err
	}
	for _, block := range blocks {
		c, err := p.parseBlock(block, s)
		if err != nil {
			return err
		}
		s.cards = append(s.cards, c)
	}
	return nil
}

// splitBlocks cuts a document into its top-level BEGIN:VCARD ... END:VCARD
// blocks. Nested blocks (2.1 AGENT) stay inside their parent.
func splitBlocks(text string) ([][]string, error) {
	var (
		blocks  [][]string
		current []string
		depth   int
	)
	for _, line := range strings.Split(text, "\n") {
		marker := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case marker == beginLine:
			depth++
		case depth == 0 && marker == "":
			continue
		case depth == 0:
			return nil, vcarderr.MalformedCard("content outside BEGIN:VCARD ... END:VCARD: " + truncate(line))
		}
		current = append(current, line)
		if marker == endLine {
			depth--
			if depth == 0 {
				blocks = append(blocks, current)
				current = nil
			}
		}
	}
	if depth != 0 {
		return nil, vcarderr.MalformedCard("missing END:VCARD")
	}
	if len(blocks) == 0 {
		return nil, vcarderr.MalformedCard("no BEGIN:VCARD found")
	}
	return blocks, nil
}

// parseBlock builds one card from its physical lines.
func (p *Parser) parseBlock(block []string, s *session) (*card.Card, error) {
	// Check the envelope before unfolding; the version decides how.
	version, body, err := envelope(block)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(contentline.Unfold(strings.Join(body, "\n"), version), "\n")
	if version.Legacy() {
		lines = joinSoftBreaks(lines)
	}

	c := card.NewWithRegistry(p.registry)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		if marker := strings.ToUpper(strings.TrimSpace(line)); marker == beginLine || marker == endLine {
			return nil, vcarderr.MalformedCard("unexpected " + marker + " inside a card")
		}

		cl, err := contentline.Lex(line, version)
		if err != nil {
			return nil, err
		}
		if err := cl.NormalizeLegacy(); err != nil {
			return nil, err
		}

		switch cl.Name {
		case versionName:
			continue
		case agentName:
			// A 2.1 AGENT may carry its card as raw lines that follow it.
			if strings.TrimSpace(cl.Value) == "" && i+1 < len(lines) &&
				strings.EqualFold(strings.TrimSpace(lines[i+1]), beginLine) {
				end := nestedEnd(lines, i+1)
				if end < 0 {
					return nil, vcarderr.MalformedCard("AGENT card is missing END:VCARD")
				}
				cl.Value = contentline.Escape(strings.Join(lines[i+1:end+1], "\n"))
				i = end
			}
			related, err := p.agent(cl, s)
			if err != nil {
				return nil, err
			}
			c.Push(related...)
			continue
		}

		props, err := p.buildLine(cl)
		if err != nil {
			return nil, err
		}
		c.Push(props...)
	}

	uid := c.CheckSetUID()
	log.Debugw("parsed card", "uid", uid, "version", version.String(), "properties", len(c.Names()))
	return c, nil
}

// envelope enforces BEGIN:VCARD, VERSION:<major>.<minor>, body, END:VCARD.
func envelope(block []string) (contentline.Version, []string, error) {
	if len(block) < 3 {
		return contentline.Version{}, nil, vcarderr.MalformedCard("card must hold BEGIN, VERSION and END lines")
	}
	if !strings.EqualFold(strings.TrimSpace(block[0]), beginLine) {
		return contentline.Version{}, nil, vcarderr.MalformedCard("expected BEGIN:VCARD")
	}
	if !strings.EqualFold(strings.TrimSpace(block[len(block)-1]), endLine) {
		return contentline.Version{}, nil, vcarderr.MalformedCard("expected END:VCARD")
	}
	name, value, found := strings.Cut(strings.TrimSpace(block[1]), ":")
	if !found || !strings.EqualFold(name, versionName) {
		return contentline.Version{}, nil, vcarderr.MalformedCard("VERSION must follow BEGIN:VCARD")
	}
	version, err := contentline.ParseVersion(value)
	if err != nil {
		return contentline.Version{}, nil, &vcarderr.Error{Kind: vcarderr.ErrMalformedCard, Err: err}
	}
	return version, block[2 : len(block)-1], nil
}

// joinSoftBreaks joins quoted-printable lines ending in '=' with the
// physical lines that continue them.
func joinSoftBreaks(lines []string) []string {
	joined := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if contentline.IsQuotedPrintableHead(line) {
			for strings.HasSuffix(line, "=") && i+1 < len(lines) {
				i++
				line = line[:len(line)-1] + lines[i]
			}
		}
		joined = append(joined, line)
	}
	return joined
}

// nestedEnd returns the index of the END:VCARD matching the BEGIN:VCARD at
// start, or -1.
func nestedEnd(lines []string, start int) int {
	depth := 0
	for i := start; i < len(lines); i++ {
		switch strings.ToUpper(strings.TrimSpace(lines[i])) {
		case beginLine:
			depth++
		case endLine:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// buildLine turns one content line into properties. Comma-joined
// properties yield one property per list element.
func (p *Parser) buildLine(cl *contentline.ContentLine) ([]property.Collection, error) {
	spec, ok := p.registry.Get(cl.Name)
	if !ok {
		if p.Strict {
			return nil, vcarderr.UndefinedProperty(cl.Name)
		}
		log.Debugw("keeping undefined property", "name", cl.RawName)
		spec = property.Extension(cl.RawName)
	}

	values := []string{cl.Value}
	if spec.Multiplicity() == property.CommaJoined {
		values = contentline.SplitList(cl.Value)
	}

	props := make([]property.Collection, 0, len(values))
	for _, value := range values {
		line := cl.Clone()
		line.Value = value
		b := spec.NewBuilder()
		if err := b.SetFromContentLine(line); err != nil {
			return nil, vcarderr.WithProperty(err, cl.Name)
		}
		prop, err := b.Build()
		if err != nil {
			return nil, vcarderr.WithProperty(err, cl.Name)
		}
		props = append(props, prop)
	}
	return props, nil
}

// agent imports the card an AGENT line carries and returns RELATED;TYPE=agent
// properties pointing at it. An AGENT that holds a URI becomes a RELATED
// property with that URI.
func (p *Parser) agent(cl *contentline.ContentLine, s *session) ([]property.Collection, error) {
	value := contentline.Unescape(cl.Value)

	var targets []string
	if kind, _ := cl.Params.First("value"); strings.EqualFold(kind, "uri") ||
		!strings.HasPrefix(strings.ToUpper(strings.TrimSpace(value)), beginLine) {
		targets = []string{value}
	} else {
		before := len(s.cards)
		if err := p.importDocument(value, s); err != nil {
			return nil, fmt.Errorf("AGENT: %w", err)
		}
		for _, nested := range s.cards[before:] {
			targets = append(targets, nested.UID())
		}
	}

	props := make([]property.Collection, 0, len(targets))
	for _, target := range targets {
		b, err := p.registry.Builder(relatedName)
		if err != nil {
			return nil, err
		}
		if err := b.SetGroup(cl.Group); err != nil {
			return nil, err
		}
		if ts, ok := b.(property.TypeSetter); ok {
			if err := ts.AddType(agentType); err != nil {
				return nil, err
			}
		}
		if err := b.SetValue(target); err != nil {
			return nil, err
		}
		prop, err := b.Build()
		if err != nil {
			return nil, err
		}
		props = append(props, prop)
	}
	return props, nil
}

func truncate(line string) string {
	const limit = 40
	if len(line) <= limit {
		return line
	}
	return line[:limit] + "..."
}
