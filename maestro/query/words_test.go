package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mserrors "github.com/maestro/maestro/maestro/errors"
)

func TestParseToWords(t *testing.T) {
	tests := []struct {
		in   string
		want []Word
	}{
		{"word", []Word{Leaf("word")}},
		{"", []Word{}},
		{" white   space ", []Word{Leaf("white"), Leaf("space")}},
		{"(one two) | three", []Word{Group(Leaf("one"), Leaf("two")), Leaf("|"), Leaf("three")}},
		{`"two (words)"`, []Word{Leaf(`"two (words)"`)}},
		{"(a b)", []Word{Leaf("a"), Leaf("b")}},
		{"((a b))", []Word{Leaf("a"), Leaf("b")}},
		{"a|b", []Word{Leaf("a"), Leaf("|"), Leaf("b")}},
		{"!{flag=x} y", []Word{Leaf("!{flag=x}"), Leaf("y")}},
		{"!artist=Harry", []Word{Leaf("!"), Leaf("artist=Harry")}},
		{"!(a b)", []Word{Leaf("!"), Group(Leaf("a"), Leaf("b"))}},
		{"wow!", []Word{Leaf("wow!")}},
		{`{tag=title="a } b"} c`, []Word{Leaf(`{tag=title="a } b"}`), Leaf("c")}},
		{`artist="Harry Potter"`, []Word{Leaf(`artist="Harry Potter"`)}},
		{"{flag=a|b}", []Word{Leaf("{flag=a|b}")}},
		{"a (b (c | d))", []Word{Leaf("a"), Group(Leaf("b"), Group(Leaf("c"), Leaf("|"), Leaf("d")))}},
		{"()", []Word{}},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseToWords(tc.in)
			require.NoError(t, err)
			if len(tc.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseToWordsErrors(t *testing.T) {
	for _, in := range []string{"(word", "word)", `"open`, "{flag=x", "a}", "((a)", "{a{b}}"} {
		_, err := ParseToWords(in)
		require.Error(t, err, in)
		assert.True(t, mserrors.Is(err, mserrors.ErrSyntax), in)
	}
}

func TestErrorCarriesFragment(t *testing.T) {
	_, err := ParseToWords("x (word")
	var e *mserrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "(word", e.Fragment)
}

func TestWordString(t *testing.T) {
	w := Group(Leaf("a"), Group(Leaf("b"), Leaf("|"), Leaf("c")))
	assert.Equal(t, "[a [b | c]]", w.String())
	assert.True(t, Leaf("|").Is(Or))
	assert.False(t, Group().Is(""))
}
