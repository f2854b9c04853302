package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"a.b":               "a.b",
		"items[3].id":       "items[0].id",
		"items[12].tags[7]": "items[0].tags[0]",
		"[2]":               "[0]",
		"items[0].id":       "items[0].id",
		"weird[x].name[01]": "weird[x].name[0]",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePath(in), in)
	}
}

func TestPathBuilders(t *testing.T) {
	assert.Equal(t, "a", FieldPath("", "a"))
	assert.Equal(t, "a.b", FieldPath("a", "b"))
	assert.Equal(t, "a[2]", IndexPath("a", 2))
	assert.Equal(t, "[0]", IndexPath("", 0))
}

func TestResolveType(t *testing.T) {
	types := map[string]TypeTag{
		"items[0].id": TypeID,
		"items[1].id": TypeAge,
	}

	assert.Equal(t, TypeAge, ResolveType(types, "items[1].id"), "exact wins")
	assert.Equal(t, TypeID, ResolveType(types, "items[3].id"), "normalized fallback")
	assert.Equal(t, TypeString, ResolveType(types, "missing"))
}

func TestResolveBound(t *testing.T) {
	bounds := map[string]Bound{"xs[0]": {Min: "1", Max: "2"}}

	b, ok := ResolveBound(bounds, "xs[5]")
	assert.True(t, ok)
	assert.Equal(t, "1", b.Min)

	_, ok = ResolveBound(bounds, "ys[0]")
	assert.False(t, ok)
}

func TestResolveDefault(t *testing.T) {
	defaults := map[string]string{
		"a":       "",
		"list[0]": "v",
		"b[2]":    "",
		"b[0]":    "fallback",
	}

	_, ok := ResolveDefault(defaults, "a")
	assert.False(t, ok, "empty literal is absent")

	d, ok := ResolveDefault(defaults, "list[4]")
	assert.True(t, ok)
	assert.Equal(t, "v", d)

	d, ok = ResolveDefault(defaults, "b[2]")
	assert.True(t, ok, "empty exact entry falls through to normalized")
	assert.Equal(t, "fallback", d)
}

func TestBound_Parsing(t *testing.T) {
	lo, hi, ok := Bound{Min: " 5", Max: "10 "}.Ints()
	assert.True(t, ok)
	assert.Equal(t, int64(5), lo)
	assert.Equal(t, int64(10), hi)

	_, _, ok = Bound{Min: "5"}.Ints()
	assert.False(t, ok, "one side missing")

	_, _, ok = Bound{Min: "1.5", Max: "3"}.Ints()
	assert.False(t, ok)

	flo, fhi, ok := Bound{Min: "-1.5", Max: "2"}.Floats()
	assert.True(t, ok)
	assert.Equal(t, -1.5, flo)
	assert.Equal(t, 2.0, fhi)

	_, _, ok = Bound{Min: "NaN", Max: "2"}.Floats()
	assert.False(t, ok)
}
