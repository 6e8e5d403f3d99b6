// Package query splits search strings into nested word lists.
package query

import (
	"strings"
	"unicode"

	mserrors "github.com/maestro/maestro/maestro/errors"
)

// Operator tokens produced as leaves.
const (
	Or  = "|"
	Not = "!"
)

// Word is either a leaf token (Text) or a parenthesized group. Group is
// non-nil exactly for groups, so "()" yields an empty, non-nil Group.
type Word struct {
	Text  string
	Group []Word
}

func Leaf(s string) Word { return Word{Text: s} }

func Group(words ...Word) Word {
	if words == nil {
		words = []Word{}
	}
	return Word{Group: words}
}

func (w Word) IsGroup() bool { return w.Group != nil }

// Is reports whether w is the leaf s.
func (w Word) Is(s string) bool { return !w.IsGroup() && w.Text == s }

func (w Word) String() string {
	if !w.IsGroup() {
		return w.Text
	}
	parts := make([]string, len(w.Group))
	for i, c := range w.Group {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// scanner walks the input once; stack holds the open groups.
type scanner struct {
	input []rune
	pos   int
	stack [][]Word
	token strings.Builder
	open  []int // input offsets of unclosed '('
}

// ParseToWords splits s into words. Whitespace outside quotes and braces
// separates words; "(" and ")" open and close groups; "|" and a leading "!"
// become their own leaves except that "!" directly before "{" stays attached.
// Quoted substrings and {...} groups (which may contain quotes) are atomic
// and keep their delimiters. A result consisting of a single group is
// unwrapped.
func ParseToWords(s string) ([]Word, error) {
	sc := &scanner{input: []rune(s), stack: [][]Word{{}}}
	if err := sc.run(); err != nil {
		return nil, err
	}
	words := sc.stack[0]
	for len(words) == 1 && words[0].IsGroup() {
		words = words[0].Group
	}
	return words, nil
}

func (sc *scanner) run() error {
	for sc.pos < len(sc.input) {
		ch := sc.input[sc.pos]
		switch {
		case unicode.IsSpace(ch):
			sc.flush()
			sc.pos++
		case ch == '"':
			if err := sc.scanQuoted(); err != nil {
				return err
			}
		case ch == '{':
			if err := sc.scanBraces(); err != nil {
				return err
			}
		case ch == '}':
			return mserrors.Syntax("unmatched '}'", sc.fragment(sc.pos))
		case ch == '(':
			sc.flush()
			sc.open = append(sc.open, sc.pos)
			sc.stack = append(sc.stack, []Word{})
			sc.pos++
		case ch == ')':
			sc.flush()
			if len(sc.stack) == 1 {
				return mserrors.Syntax("unbalanced parenthesis", sc.fragment(0))
			}
			group := sc.stack[len(sc.stack)-1]
			sc.stack = sc.stack[:len(sc.stack)-1]
			sc.open = sc.open[:len(sc.open)-1]
			sc.emit(Group(group...))
			sc.pos++
		case ch == '|':
			sc.flush()
			sc.emit(Leaf(Or))
			sc.pos++
		case ch == '!' && sc.token.Len() == 0:
			if sc.peek(1) == '{' {
				sc.token.WriteRune(ch)
			} else {
				sc.emit(Leaf(Not))
			}
			sc.pos++
		default:
			sc.token.WriteRune(ch)
			sc.pos++
		}
	}
	sc.flush()
	if len(sc.stack) > 1 {
		return mserrors.Syntax("unbalanced parenthesis", sc.fragment(sc.open[len(sc.open)-1]))
	}
	return nil
}

func (sc *scanner) peek(offset int) rune {
	pos := sc.pos + offset
	if pos < len(sc.input) {
		return sc.input[pos]
	}
	return 0
}

// scanQuoted appends a complete "..." run, quotes included, to the token.
func (sc *scanner) scanQuoted() error {
	start := sc.pos
	end := sc.indexFrom(sc.pos+1, '"')
	if end < 0 {
		return mserrors.Syntax("unterminated quote", sc.fragment(start))
	}
	sc.token.WriteString(string(sc.input[start : end+1]))
	sc.pos = end + 1
	return nil
}

// scanBraces appends a complete {...} run. Quoted parts inside may contain
// '}' without closing the group.
func (sc *scanner) scanBraces() error {
	start := sc.pos
	i := sc.pos + 1
	for i < len(sc.input) {
		switch sc.input[i] {
		case '"':
			end := sc.indexFrom(i+1, '"')
			if end < 0 {
				return mserrors.Syntax("unterminated quote", sc.fragment(i))
			}
			i = end + 1
			continue
		case '{':
			return mserrors.Syntax("nested '{'", sc.fragment(start))
		case '}':
			sc.token.WriteString(string(sc.input[start : i+1]))
			sc.pos = i + 1
			return nil
		}
		i++
	}
	return mserrors.Syntax("unterminated '{'", sc.fragment(start))
}

func (sc *scanner) indexFrom(from int, r rune) int {
	for i := from; i < len(sc.input); i++ {
		if sc.input[i] == r {
			return i
		}
	}
	return -1
}

func (sc *scanner) flush() {
	if sc.token.Len() == 0 {
		return
	}
	sc.emit(Leaf(sc.token.String()))
	sc.token.Reset()
}

func (sc *scanner) emit(w Word) {
	top := len(sc.stack) - 1
	sc.stack[top] = append(sc.stack[top], w)
}

func (sc *scanner) fragment(from int) string {
	const maxLen = 40
	frag := sc.input[from:]
	if len(frag) > maxLen {
		frag = frag[:maxLen]
	}
	return string(frag)
}
