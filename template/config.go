package template

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Mode selects how arrays are expanded
type Mode string

// Generation modes
const (
	ModeNormal   Mode = "normal"
	ModeAdvanced Mode = "advanced"
)

// ParseMode matches "advanced" case-insensitively; anything else is normal
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeAdvanced)) {
		return ModeAdvanced
	}
	return ModeNormal
}

// Cadence limits, in seconds
const (
	DefaultPushInterval = 1.0
	MinPushInterval     = 0.1
)

// Group count limits for advanced mode
const (
	MinGroupCount = 1
	MaxGroupCount = 3
)

// NormalizePushInterval floors positive cadences at MinPushInterval and replaces
// non-positive ones with DefaultPushInterval.
func NormalizePushInterval(seconds float64) float64 {
	if !(seconds > 0) {
		return DefaultPushInterval
	}
	if seconds < MinPushInterval {
		return MinPushInterval
	}
	return seconds
}

// ClampGroupCount limits n to [MinGroupCount, MaxGroupCount]
func ClampGroupCount(n int) int {
	if n < MinGroupCount {
		return MinGroupCount
	}
	if n > MaxGroupCount {
		return MaxGroupCount
	}
	return n
}

// Bound is an optional [Min, Max] pair kept as raw text. Each leaf type reparses it;
// an empty side is absent.
type Bound struct {
	Min string
	Max string
}

// Ints returns both sides as integers, ok only when both parse
func (b Bound) Ints() (lo, hi int64, ok bool) {
	lo, errLo := strconv.ParseInt(strings.TrimSpace(b.Min), 10, 64)
	hi, errHi := strconv.ParseInt(strings.TrimSpace(b.Max), 10, 64)
	return lo, hi, errLo == nil && errHi == nil
}

// Floats returns both sides as floats, ok only when both parse to finite values
func (b Bound) Floats() (lo, hi float64, ok bool) {
	lo, errLo := strconv.ParseFloat(strings.TrimSpace(b.Min), 64)
	hi, errHi := strconv.ParseFloat(strings.TrimSpace(b.Max), 64)
	if errLo != nil || errHi != nil {
		return 0, 0, false
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 0, false
	}
	return lo, hi, true
}

// Config is everything needed to generate payloads for one connection. It is
// read-only once built; WithPushInterval returns a modified copy.
type Config struct {
	Template *Node
	Types    map[string]TypeTag
	Bounds   map[string]Bound
	Defaults map[string]string

	// PushInterval is the cadence in seconds
	PushInterval float64
	Mode         Mode
	GroupCount   int
}

// NewConfig builds a Config with defaults for anything not given. Nil maps become empty.
func NewConfig(tpl *Node, types map[string]TypeTag, bounds map[string]Bound, defaults map[string]string) *Config {
	if tpl == nil {
		tpl = Null()
	}
	if types == nil {
		types = map[string]TypeTag{}
	}
	if bounds == nil {
		bounds = map[string]Bound{}
	}
	if defaults == nil {
		defaults = map[string]string{}
	}
	return &Config{
		Template:     tpl,
		Types:        types,
		Bounds:       bounds,
		Defaults:     defaults,
		PushInterval: DefaultPushInterval,
		Mode:         ModeNormal,
		GroupCount:   MinGroupCount,
	}
}

// Interval returns the cadence as a duration
func (c *Config) Interval() time.Duration {
	return time.Duration(NormalizePushInterval(c.PushInterval) * float64(time.Second))
}

// WithPushInterval returns a copy with a new cadence. The template and maps are shared.
func (c *Config) WithPushInterval(seconds float64) *Config {
	cp := *c
	cp.PushInterval = NormalizePushInterval(seconds)
	return &cp
}
