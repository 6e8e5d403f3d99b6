package criteria

import (
	"regexp"
	"strings"

	mserrors "github.com/maestro/maestro/maestro/errors"
	"github.com/maestro/maestro/maestro/query"
	"github.com/maestro/maestro/maestro/registry"
)

// wordParser recognizes a single word. It returns (nil, nil) for words it
// does not own and an error for words it owns but cannot accept.
type wordParser struct {
	name  string
	parse func(p *Parser, word string) (Criterion, error)
}

// wordParsers is tried in order after a leading "!" of a negated braced
// word is stripped by ParseWord; the first parser returning a criterion
// wins. Braced forms come first, dates before plain text, and parseTag
// accepts any unbraced word so it must be last.
var wordParsers = []wordParser{
	{"element_type", parseElementType},
	{"id", parseID},
	{"any", parseAny},
	{"any_tag", parseAnyTag},
	{"flag", parseFlag},
	{"sticker", parseSticker},
	{"tag_id", parseTagID},
	{"date", parseDate},
	{"tag", parseTag},
}

// Parser builds criteria from search strings using a registry for tag and
// flag names.
type Parser struct {
	reg *registry.Registry
}

func NewParser(reg *registry.Registry) *Parser {
	return &Parser{reg: reg}
}

// Parse parses a search string. An empty string yields a nil criterion.
func (p *Parser) Parse(s string) (Criterion, error) {
	words, err := query.ParseToWords(s)
	if err != nil {
		return nil, err
	}
	return p.ParseWords(words)
}

// ParseWords combines words with AND; "|" separates OR alternatives and
// "!" negates the following word or group.
func (p *Parser) ParseWords(words []query.Word) (Criterion, error) {
	var groups [][]query.Word
	current := []query.Word{}
	for _, w := range words {
		if w.Is(query.Or) {
			groups = append(groups, current)
			current = []query.Word{}
			continue
		}
		current = append(current, w)
	}
	groups = append(groups, current)

	if len(groups) == 1 {
		return p.parseConjunction(groups[0])
	}
	alternatives := make([]Criterion, 0, len(groups))
	for _, g := range groups {
		c, err := p.parseConjunction(g)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, mserrors.Syntax("empty alternative", wordsString(words))
		}
		alternatives = append(alternatives, c)
	}
	return Combine(Or, alternatives), nil
}

func (p *Parser) parseConjunction(words []query.Word) (Criterion, error) {
	var list []Criterion
	negate := false
	for _, w := range words {
		if w.Is(query.Not) {
			negate = !negate
			continue
		}
		var (
			c   Criterion
			err error
		)
		if w.IsGroup() {
			c, err = p.ParseWords(w.Group)
		} else {
			c, err = p.ParseWord(w.Text)
		}
		if err != nil {
			return nil, err
		}
		if c == nil {
			if negate {
				return nil, mserrors.Syntax("nothing to negate", w.String())
			}
			continue
		}
		if negate {
			c = c.Negated()
			negate = false
		}
		list = append(list, c)
	}
	if negate {
		return nil, mserrors.Syntax("nothing to negate", query.Not)
	}
	return Combine(And, list), nil
}

// ParseWord parses one leaf word through the dispatch table.
func (p *Parser) ParseWord(word string) (Criterion, error) {
	if strings.HasPrefix(word, "!{") {
		c, err := p.ParseWord(word[1:])
		if err != nil {
			return nil, err
		}
		return c.Negated(), nil
	}
	for _, wp := range wordParsers {
		c, err := wp.parse(p, word)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}
	return nil, mserrors.Syntax("unrecognized search term", word)
}

var (
	nameRe  = regexp.MustCompile(`^[\p{L}\p{N}_-]+$`)
	namesRe = regexp.MustCompile(`^[\p{L}\p{N}_-]+(,[\p{L}\p{N}_-]+)*$`)
)

func (p *Parser) lookupTags(names, word string) ([]registry.Tag, error) {
	var tags []registry.Tag
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, mserrors.Syntax("empty tag name", word)
		}
		t, err := p.reg.TagByName(name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// braced returns the inside of "{...}".
func braced(word string) (string, bool) {
	if len(word) < 2 || word[0] != '{' || word[len(word)-1] != '}' {
		return "", false
	}
	return word[1 : len(word)-1], true
}

// cutUnquoted cuts s around the first sep outside double quotes.
func cutUnquoted(s string, sep byte) (before, after string, found bool) {
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case sep:
			if !quoted {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

// splitTagForm splits the inside of {tag=names=value}.
func splitTagForm(inner string) (names, value string, ok bool) {
	rest, found := strings.CutPrefix(inner, "tag=")
	if !found {
		return "", "", false
	}
	names, value, found = cutUnquoted(rest, '=')
	if !found || !namesRe.MatchString(names) {
		return "", "", false
	}
	return names, value, true
}

func wordsString(words []query.Word) string {
	return query.Group(words...).String()
}
