package template

import (
	"regexp"
	"strconv"
)

var indexPattern = regexp.MustCompile(`\[\d+\]`)

// NormalizePath rewrites every array index in path to [0], so "items[3].tags[12]"
// becomes "items[0].tags[0]".
func NormalizePath(path string) string {
	return indexPattern.ReplaceAllString(path, "[0]")
}

// FieldPath returns the path of member key under parent
func FieldPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// IndexPath returns the path of element i under parent
func IndexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}

// ResolveType looks path up exactly, then normalized, defaulting to TypeString
func ResolveType(types map[string]TypeTag, path string) TypeTag {
	if t, ok := types[path]; ok {
		return t
	}
	if t, ok := types[NormalizePath(path)]; ok {
		return t
	}
	return TypeString
}

// ResolveBound looks path up exactly, then normalized
func ResolveBound(bounds map[string]Bound, path string) (Bound, bool) {
	if b, ok := bounds[path]; ok {
		return b, true
	}
	b, ok := bounds[NormalizePath(path)]
	return b, ok
}

// ResolveDefault looks path up exactly, then normalized. Empty literals count as absent.
func ResolveDefault(defaults map[string]string, path string) (string, bool) {
	if d, ok := defaults[path]; ok && d != "" {
		return d, true
	}
	if d, ok := defaults[NormalizePath(path)]; ok && d != "" {
		return d, true
	}
	return "", false
}
