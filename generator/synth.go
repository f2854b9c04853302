package generator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/choi857/kinetic-simulator/pkg/timestamp"
	"github.com/choi857/kinetic-simulator/template"
)

// leaf synthesizes a scalar for tag
func (s *stream) leaf(tag template.TypeTag, path string, bound template.Bound, bounded bool) *template.Node {
	switch {
	case tag.IsInt():
		return template.Int(s.intValue(tag, path, bound, bounded))
	case tag.IsDouble():
		return template.Float(s.floatValue(tag, path, bound, bounded))
	}

	switch tag {
	case template.TypeBoolean:
		return template.Bool(s.rng.IntN(2) == 1)
	case template.TypeTimestampRealtime:
		return template.Int(s.now().UnixMilli())
	case template.TypeTimestampEditable:
		return template.Int(s.editableTimestamp(bound, bounded))
	case template.TypeDate:
		return template.String(s.date(path, bound, bounded))
	case template.TypeEmail:
		return template.String(s.alnum(8) + "@" + pick(s, emailDomains))
	case template.TypePhone:
		return template.String(fmt.Sprintf("%s%08d", pick(s, phonePrefixes), s.rng.IntN(100000000)))
	case template.TypeIP:
		return template.String(fmt.Sprintf("%d.%d.%d.%d", s.rng.IntN(256), s.rng.IntN(256), s.rng.IntN(256), s.rng.IntN(256)))
	case template.TypeURL:
		return template.String(fmt.Sprintf("%s://%s/%s/%d",
			pick(s, urlProtocols), pick(s, urlDomains), pick(s, urlPaths), s.rng.IntN(1000)))
	case template.TypeUUID:
		return template.String(uuid.NewString())
	case template.TypeName:
		return template.String(pick(s, surnames) + pick(s, givenNames))
	case template.TypeColor:
		return template.String(pick(s, colors))
	case template.TypeArray:
		return template.Array()
	case template.TypeObject:
		return template.Object()
	default:
		return template.String(s.alnum(6))
	}
}

func (s *stream) intValue(tag template.TypeTag, path string, bound template.Bound, bounded bool) int64 {
	r := intDefaults[tag]
	if bounded {
		if lo, hi, ok := bound.Ints(); ok {
			r = intRange{lo, hi}
		} else {
			s.logger.Debug("integer bound ignored", "path", path, "min", bound.Min, "max", bound.Max)
		}
	}
	return s.intBetween(r.lo, r.hi)
}

func (s *stream) floatValue(tag template.TypeTag, path string, bound template.Bound, bounded bool) float64 {
	r := floatDefaults[tag]
	if bounded {
		if lo, hi, ok := bound.Floats(); ok {
			r.lo, r.hi = lo, hi
		} else {
			s.logger.Debug("double bound ignored", "path", path, "min", bound.Min, "max", bound.Max)
		}
	}
	if r.lo > r.hi {
		r.lo, r.hi = r.hi, r.lo
	}

	f := s.rng.Float64()
	v := r.lo*(1-f) + r.hi*f
	return roundWithin(v, r.lo, r.hi, r.places)
}

// roundWithin rounds v to places and keeps it inside [lo, hi] when some value with
// that many decimals exists there. Otherwise the nearest such value wins over the bound.
func roundWithin(v, lo, hi float64, places int) float64 {
	r := round(v, places)
	if r >= lo && r <= hi {
		return r
	}
	p := math.Pow10(places)
	if r < lo {
		r = round(math.Ceil(lo*p)/p, places)
	} else {
		r = round(math.Floor(hi*p)/p, places)
	}
	if r >= lo && r <= hi {
		return r
	}
	return round(math.Min(math.Max(v, lo), hi), places)
}

// editableTimestamp draws from [min, max] epoch millis. Each side falls back to its
// default independently, and min > max collapses the range onto min.
func (s *stream) editableTimestamp(bound template.Bound, bounded bool) int64 {
	lo, hi := timestamp.EditableRange(s.now())
	if bounded {
		if v, ok := timestamp.ParseMillis(bound.Min); ok {
			lo = v
		}
		if v, ok := timestamp.ParseMillis(bound.Max); ok {
			hi = v
		}
	}
	if lo > hi {
		hi = lo
	}
	return s.intBetween(lo, hi)
}

func (s *stream) date(path string, bound template.Bound, bounded bool) string {
	if bounded {
		lo, okLo := timestamp.ParseDateTime(bound.Min)
		hi, okHi := timestamp.ParseDateTime(bound.Max)
		if okLo && okHi {
			if lo.After(hi) {
				lo, hi = hi, lo
			}
			sec := s.intBetween(lo.Unix(), hi.Unix())
			return timestamp.FormatDateTime(time.Unix(sec, 0))
		}
		s.logger.Debug("date bound ignored", "path", path, "min", bound.Min, "max", bound.Max)
	}

	t := time.Date(
		dateMinYear+s.rng.IntN(dateMaxYear-dateMinYear+1),
		time.Month(1+s.rng.IntN(12)),
		1+s.rng.IntN(dateMaxDay),
		s.rng.IntN(24), s.rng.IntN(60), s.rng.IntN(60), 0, time.UTC)
	return timestamp.FormatDateTime(t)
}

// intBetween returns a uniform integer in [lo, hi], swapping inverted bounds
func (s *stream) intBetween(lo, hi int64) int64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	span := uint64(hi) - uint64(lo)
	if span == math.MaxUint64 {
		return int64(s.rng.Uint64())
	}
	return int64(uint64(lo) + s.rng.Uint64N(span+1))
}

func (s *stream) alnum(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(alphanumeric[s.rng.IntN(len(alphanumeric))])
	}
	return b.String()
}

func pick(s *stream, pool []string) string {
	return pool[s.rng.IntN(len(pool))]
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	r := math.Round(v*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return v
	}
	// strip binary noise such as 0.30000000000000004
	s := strconv.FormatFloat(r, 'f', places, 64)
	out, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return r
	}
	return out
}
