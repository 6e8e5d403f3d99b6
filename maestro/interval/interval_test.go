package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidity(t *testing.T) {
	assert.False(t, New(10, 5).IsValid())
	assert.True(t, New(5, 10).IsValid())
	assert.True(t, New(5, 5).IsValid())
	assert.True(t, AtLeast(3).IsValid())
	assert.True(t, AtMost(3).IsValid())
	assert.False(t, Interval{}.IsValid())
}

func TestParse(t *testing.T) {
	i, err := Parse(">=", "2000", 4)
	require.NoError(t, err)
	start, ok := i.Start()
	assert.True(t, ok)
	assert.Equal(t, int64(2000), start)
	_, ok = i.End()
	assert.False(t, ok)

	i, err = Parse(">", "1999", 4)
	require.NoError(t, err)
	assert.Equal(t, AtLeast(2000), i)

	i, err = Parse("<", "2000", 4)
	require.NoError(t, err)
	assert.Equal(t, AtMost(1999), i)

	_, err = Parse(">=", "200", 4)
	assert.Error(t, err)
	_, err = Parse("<=", "abcd", 4)
	assert.Error(t, err)
	_, err = Parse("~", "2000", 4)
	assert.Error(t, err)

	i, err = Parse("=", "12", 0)
	require.NoError(t, err)
	assert.True(t, i.IsSingle())
}

func TestParseString(t *testing.T) {
	i, err := ParseString("1950-1960", 4)
	require.NoError(t, err)
	assert.Equal(t, New(1950, 1960), i)

	i, err = ParseString("2000-1950", 4)
	require.NoError(t, err)
	assert.False(t, i.IsValid())

	i, err = ParseString("<=1950", 4)
	require.NoError(t, err)
	assert.Equal(t, AtMost(1950), i)

	_, err = ParseString("1950-60", 4)
	assert.Error(t, err)
}

func TestStringRoundTrip(t *testing.T) {
	for _, i := range []Interval{Single(1950), New(1950, 1960), AtLeast(1950), AtMost(1950)} {
		back, err := ParseString(i.String(), 4)
		require.NoError(t, err)
		assert.True(t, i.Equal(back), "%s", i)
	}
}

func TestContains(t *testing.T) {
	assert.True(t, New(1, 3).Contains(2))
	assert.False(t, New(1, 3).Contains(4))
	assert.True(t, AtLeast(5).Contains(500))
	assert.False(t, New(3, 1).Contains(2))
}

func TestSQL(t *testing.T) {
	var args []any
	arg := func(v any) string { args = append(args, v); return "?" }
	sql := New(1950, 1960).SQL(arg, "v.value",
		func(y int64) int64 { return y * 10000 },
		func(y int64) int64 { return y*10000 + 9999 })
	assert.Equal(t, "v.value >= ? AND v.value <= ?", sql)
	assert.Equal(t, []any{int64(19500000), int64(19609999)}, args)

	args = nil
	assert.Equal(t, "id <= ?", AtMost(7).SQL(arg, "id", nil, nil))
	assert.Equal(t, []any{int64(7)}, args)
}
