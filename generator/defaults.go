package generator

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/choi857/kinetic-simulator/pkg/timestamp"
	"github.com/choi857/kinetic-simulator/template"
)

var listSeparator = regexp.MustCompile(`\n|,`)

// parseDefault interprets a default literal according to the node's type. Anything
// that does not parse is emitted as the literal string.
func (g *Generator) parseDefault(tag template.TypeTag, lit, path string, tpl *template.Node) *template.Node {
	trimmed := strings.TrimSpace(lit)

	switch {
	case tag.IsInt():
		if v, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return template.Int(v)
		}
		return g.literalFallback(tag, lit, path)
	case tag.IsDouble():
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return template.Float(v)
		}
		return g.literalFallback(tag, lit, path)
	}

	switch tag {
	case template.TypeBoolean:
		return template.Bool(strings.EqualFold(trimmed, "true") || trimmed == "1")
	case template.TypeTimestampEditable:
		if v, ok := timestamp.ParseMillis(trimmed); ok {
			return template.Int(v)
		}
		return g.literalFallback(tag, lit, path)
	case template.TypeArray:
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			if n, err := template.Parse([]byte(trimmed)); err == nil {
				return n
			}
			return g.literalFallback(tag, lit, path)
		}
		items := []*template.Node{}
		for _, part := range listSeparator.Split(lit, -1) {
			if p := strings.TrimSpace(part); p != "" {
				items = append(items, template.String(p))
			}
		}
		return template.Array(items...)
	case template.TypeObject:
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			if n, err := template.Parse([]byte(trimmed)); err == nil {
				return n
			}
			return g.literalFallback(tag, lit, path)
		}
		if tpl == nil || tpl.Kind != template.KindObject {
			return template.String(lit)
		}
		obj := template.Object()
		for _, f := range tpl.Fields {
			obj.Set(f.Key, template.String(lit))
		}
		return obj
	default:
		return template.String(lit)
	}
}

func (g *Generator) literalFallback(tag template.TypeTag, lit, path string) *template.Node {
	g.logger.Debug("default literal kept as string", "path", path, "type", string(tag), "value", lit)
	return template.String(lit)
}
