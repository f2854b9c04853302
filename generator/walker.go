package generator

import (
	"strings"

	"github.com/choi857/kinetic-simulator/template"
)

// Element count range of a non-empty array in normal mode
const (
	normalMinElements = 1
	normalMaxElements = 3
)

type walker struct {
	g   *Generator
	src *stream
	cfg *template.Config
}

// override returns the parsed default for path when one applies. Realtime
// timestamps always reflect the clock.
func (w *walker) override(tag template.TypeTag, path string, n *template.Node) (*template.Node, bool) {
	if tag == template.TypeTimestampRealtime {
		return nil, false
	}
	lit, ok := template.ResolveDefault(w.cfg.Defaults, path)
	if !ok {
		return nil, false
	}
	return w.g.parseDefault(tag, lit, path, n), true
}

func (w *walker) scalar(path string, types map[string]template.TypeTag, bounds map[string]template.Bound) *template.Node {
	tag := template.ResolveType(types, path)
	b, ok := template.ResolveBound(bounds, path)
	return w.src.leaf(tag, path, b, ok)
}

// normal expands every non-empty array to 1-3 copies of its first element. Type and
// bound declarations made under "<array>[0]" are re-keyed onto each element's own
// index so they win over any exact entry there.
func (w *walker) normal(n *template.Node, path string, types map[string]template.TypeTag, bounds map[string]template.Bound) *template.Node {
	if out, ok := w.override(template.ResolveType(types, path), path, n); ok {
		return out
	}

	switch n.Kind {
	case template.KindObject:
		obj := template.Object()
		for _, f := range n.Fields {
			child := template.FieldPath(path, f.Key)
			obj.Set(f.Key, w.normal(f.Value, child, types, bounds))
		}
		return obj
	case template.KindArray:
		if len(n.Items) == 0 {
			return template.Array()
		}
		count := normalMinElements + w.src.rng.IntN(normalMaxElements-normalMinElements+1)
		proto := n.Items[0]
		items := make([]*template.Node, 0, count)
		for i := 0; i < count; i++ {
			elemPath := template.IndexPath(path, i)
			elemTypes, elemBounds := types, bounds
			if i > 0 {
				from := template.IndexPath(path, 0)
				elemTypes = rekey(types, from, elemPath)
				elemBounds = rekey(bounds, from, elemPath)
			}
			items = append(items, w.normal(proto, elemPath, elemTypes, elemBounds))
		}
		return template.Array(items...)
	default:
		return w.scalar(path, types, bounds)
	}
}

// advanced emits exactly len(items)*groups elements per array, cycling through the
// prototypes. Arrays nested inside an element use a single group.
func (w *walker) advanced(n *template.Node, path string, groups int) *template.Node {
	if out, ok := w.override(template.ResolveType(w.cfg.Types, path), path, n); ok {
		return out
	}

	switch n.Kind {
	case template.KindObject:
		obj := template.Object()
		for _, f := range n.Fields {
			obj.Set(f.Key, w.advanced(f.Value, template.FieldPath(path, f.Key), groups))
		}
		return obj
	case template.KindArray:
		size := len(n.Items)
		if size == 0 {
			return template.Array()
		}
		total := size * groups
		items := make([]*template.Node, 0, total)
		for i := 0; i < total; i++ {
			items = append(items, w.advanced(n.Items[i%size], template.IndexPath(path, i), 1))
		}
		return template.Array(items...)
	default:
		return w.scalar(path, w.cfg.Types, w.cfg.Bounds)
	}
}

// rekey returns base with every entry under prefix "from" copied to prefix "to". The
// copies overwrite existing entries. base is never modified.
func rekey[V any](base map[string]V, from, to string) map[string]V {
	var out map[string]V
	for k, v := range base {
		rest, ok := strings.CutPrefix(k, from)
		if !ok || (rest != "" && rest[0] != '.' && rest[0] != '[') {
			continue
		}
		if out == nil {
			out = make(map[string]V, len(base)+1)
			for bk, bv := range base {
				out[bk] = bv
			}
		}
		out[to+rest] = v
	}
	if out == nil {
		return base
	}
	return out
}
