package generator

import (
	"net"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choi857/kinetic-simulator/pkg/timestamp"
	"github.com/choi857/kinetic-simulator/template"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestGenerator(seed uint64) *Generator {
	return New(WithSeed(seed), WithClock(func() time.Time { return fixedNow }))
}

func leafOf(g *Generator, tag template.TypeTag, b *template.Bound) *template.Node {
	s := g.fork()
	if b == nil {
		return s.leaf(tag, "f", template.Bound{}, false)
	}
	return s.leaf(tag, "f", *b, true)
}

func decimals(n *template.Node) int {
	s := string(n.Num)
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return len(s) - i - 1
}

func TestLeaf_IntDefaults(t *testing.T) {
	g := newTestGenerator(1)

	for tag, r := range intDefaults {
		t.Run(string(tag), func(t *testing.T) {
			for i := 0; i < 200; i++ {
				n := leafOf(g, tag, nil)
				require.Equal(t, template.KindNumber, n.Kind)
				require.False(t, n.IsFloat())
				v, err := strconv.ParseInt(string(n.Num), 10, 64)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, v, r.lo)
				assert.LessOrEqual(t, v, r.hi)
			}
		})
	}
}

func TestLeaf_DoubleDefaultsAndPrecision(t *testing.T) {
	g := newTestGenerator(2)

	for tag, r := range floatDefaults {
		t.Run(string(tag), func(t *testing.T) {
			for i := 0; i < 200; i++ {
				n := leafOf(g, tag, nil)
				require.Equal(t, template.KindNumber, n.Kind)
				require.True(t, n.IsFloat(), string(n.Num))
				v, ok := n.Float64()
				require.True(t, ok)
				assert.GreaterOrEqual(t, v, r.lo)
				assert.LessOrEqual(t, v, r.hi)
				assert.LessOrEqual(t, decimals(n), r.places, string(n.Num))
			}
		})
	}
}

func TestLeaf_IntBounds(t *testing.T) {
	g := newTestGenerator(3)

	seen := map[int64]bool{}
	for i := 0; i < 300; i++ {
		n := leafOf(g, template.TypeInt, &template.Bound{Min: "5", Max: "7"})
		v, _ := strconv.ParseInt(string(n.Num), 10, 64)
		assert.True(t, v >= 5 && v <= 7, v)
		seen[v] = true
	}
	assert.Len(t, seen, 3, "every value in a small range shows up")

	// inverted bounds are swapped
	n := leafOf(g, template.TypeAge, &template.Bound{Min: "9", Max: "9"})
	assert.Equal(t, "9", string(n.Num))
	n = leafOf(g, template.TypeAge, &template.Bound{Min: "20", Max: "10"})
	v, _ := strconv.ParseInt(string(n.Num), 10, 64)
	assert.True(t, v >= 10 && v <= 20)

	// a single side or a non-integer side keeps the default range
	for _, b := range []template.Bound{{Min: "500"}, {Min: "1.5", Max: "2"}, {Min: "x", Max: "y"}} {
		n := leafOf(g, template.TypeMonth, &b)
		v, _ := strconv.ParseInt(string(n.Num), 10, 64)
		assert.True(t, v >= 1 && v <= 12, "bound %+v gave %d", b, v)
	}
}

func TestLeaf_ExtremeIntBounds(t *testing.T) {
	g := newTestGenerator(4)
	b := template.Bound{Min: "-9223372036854775808", Max: "9223372036854775807"}
	n := leafOf(g, template.TypeInt, &b)
	_, err := strconv.ParseInt(string(n.Num), 10, 64)
	assert.NoError(t, err)
}

func TestLeaf_DoubleBounds(t *testing.T) {
	g := newTestGenerator(5)
	for i := 0; i < 200; i++ {
		n := leafOf(g, template.TypeLatitude, &template.Bound{Min: "10.5", Max: "10.75"})
		v, _ := n.Float64()
		assert.True(t, v >= 10.5 && v <= 10.75, v)
	}

	n := leafOf(g, template.TypeScore, &template.Bound{Min: "oops", Max: "3"})
	v, _ := n.Float64()
	assert.True(t, v >= 0 && v <= 10, "falls back to the default range")
}

func TestLeaf_Boolean(t *testing.T) {
	g := newTestGenerator(6)
	seen := map[bool]bool{}
	for i := 0; i < 100; i++ {
		n := leafOf(g, template.TypeBoolean, nil)
		require.Equal(t, template.KindBool, n.Kind)
		seen[n.Bool] = true
	}
	assert.Len(t, seen, 2)
}

func TestLeaf_Timestamps(t *testing.T) {
	g := newTestGenerator(7)

	n := leafOf(g, template.TypeTimestampRealtime, &template.Bound{Min: "1", Max: "2"})
	assert.Equal(t, strconv.FormatInt(fixedNow.UnixMilli(), 10), string(n.Num))

	lo, hi := timestamp.EditableRange(fixedNow)
	for i := 0; i < 100; i++ {
		n := leafOf(g, template.TypeTimestampEditable, nil)
		v, _ := strconv.ParseInt(string(n.Num), 10, 64)
		assert.True(t, v >= lo && v <= hi)
	}

	n = leafOf(g, template.TypeTimestampEditable, &template.Bound{Min: "1000", Max: "500"})
	assert.Equal(t, "1000", string(n.Num), "inverted range collapses onto min")

	n = leafOf(g, template.TypeTimestampEditable, &template.Bound{Min: "1000", Max: "1000"})
	assert.Equal(t, "1000", string(n.Num))

	// only max given: min keeps its default
	n = leafOf(g, template.TypeTimestampEditable, &template.Bound{Max: strconv.FormatInt(timestamp.EditableEpochStart+10, 10)})
	v, _ := strconv.ParseInt(string(n.Num), 10, 64)
	assert.True(t, v >= timestamp.EditableEpochStart && v <= timestamp.EditableEpochStart+10)
}

var dateRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

func TestLeaf_Date(t *testing.T) {
	g := newTestGenerator(8)

	for i := 0; i < 100; i++ {
		n := leafOf(g, template.TypeDate, nil)
		require.Equal(t, template.KindString, n.Kind)
		require.Regexp(t, dateRE, n.Str)
		d, ok := timestamp.ParseDateTime(n.Str)
		require.True(t, ok)
		assert.True(t, d.Year() >= 2020 && d.Year() <= 2024)
		assert.LessOrEqual(t, d.Day(), 28)
	}

	b := template.Bound{Min: "2023-05-01", Max: "2023-05-01T00:00:59"}
	for i := 0; i < 50; i++ {
		n := leafOf(g, template.TypeDate, &b)
		assert.True(t, strings.HasPrefix(n.Str, "2023-05-01 00:00:"), n.Str)
	}

	n := leafOf(g, template.TypeDate, &template.Bound{Min: "2023-05-01"})
	d, _ := timestamp.ParseDateTime(n.Str)
	assert.True(t, d.Year() >= 2020 && d.Year() <= 2024, "half a bound uses the default window")
}

func TestLeaf_FormattedStrings(t *testing.T) {
	g := newTestGenerator(9)

	email := leafOf(g, template.TypeEmail, nil).Str
	assert.Regexp(t, `^[a-zA-Z0-9]{8}@(gmail\.com|yahoo\.com|hotmail\.com|outlook\.com|qq\.com|163\.com)$`, email)

	phone := leafOf(g, template.TypePhone, nil).Str
	require.Len(t, phone, 11)
	assert.Contains(t, phonePrefixes, phone[:3])

	ip := leafOf(g, template.TypeIP, nil).Str
	assert.NotNil(t, net.ParseIP(ip), ip)

	url := leafOf(g, template.TypeURL, nil).Str
	assert.Regexp(t, `^https?://(example|test|demo|sample)\.com/(api|data|user|product|order)/\d{1,3}$`, url)

	_, err := uuid.Parse(leafOf(g, template.TypeUUID, nil).Str)
	assert.NoError(t, err)

	name := []rune(leafOf(g, template.TypeName, nil).Str)
	assert.Contains(t, surnames, string(name[0]))
	assert.Contains(t, givenNames, string(name[1:]))

	assert.Contains(t, colors, leafOf(g, template.TypeColor, nil).Str)

	assert.Regexp(t, `^[a-zA-Z0-9]{6}$`, leafOf(g, template.TypeString, nil).Str)
}

func TestLeaf_ContainerTagsOnScalars(t *testing.T) {
	g := newTestGenerator(10)
	assert.Equal(t, "[]", leafOf(g, template.TypeArray, nil).Compact())
	assert.Equal(t, "{}", leafOf(g, template.TypeObject, nil).Compact())
}

func TestLeaf_DoubleBoundsKeepPrecision(t *testing.T) {
	g := newTestGenerator(9)
	for i := 0; i < 200; i++ {
		n := leafOf(g, template.TypePrice, &template.Bound{Min: "0.123", Max: "0.125"})
		assert.LessOrEqual(t, decimals(n), 2, string(n.Num))

		n = leafOf(g, template.TypePrice, &template.Bound{Min: "1.001", Max: "1.019"})
		require.LessOrEqual(t, decimals(n), 2, string(n.Num))
		v, _ := n.Float64()
		assert.Equal(t, 1.01, v, "only one two-decimal value fits")
	}
}

func TestRoundWithin(t *testing.T) {
	tests := []struct {
		name           string
		v, lo, hi, out float64
		places         int
	}{
		{"inside", 3.14159, 0, 10, 3.14, 2},
		{"rounds below lo", 1.0012, 1.001, 1.019, 1.01, 2},
		{"rounds above hi", 1.0188, 1.001, 1.019, 1.01, 2},
		{"nothing fits", 0.1234, 0.123, 0.125, 0.12, 2},
		{"one place", 4.44, 4.2, 4.9, 4.4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.out, roundWithin(tt.v, tt.lo, tt.hi, tt.places), 1e-12)
		})
	}
}

func TestSeedIsReproducible(t *testing.T) {
	a := newTestGenerator(42)
	b := newTestGenerator(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, leafOf(a, template.TypeEmail, nil).Str, leafOf(b, template.TypeEmail, nil).Str)
	}
}
