package template

import (
	"strings"
	"unicode"
)

// InferTypes assigns a tag to every node of a template that arrived without explicit
// field types. Object members are visited in order; arrays contribute element 0 only,
// under the normalized path.
func InferTypes(tpl *Node) map[string]TypeTag {
	types := make(map[string]TypeTag)
	inferNode(types, "", "", tpl)
	return types
}

func inferNode(types map[string]TypeTag, path, name string, n *Node) {
	switch n.Kind {
	case KindObject:
		types[path] = TypeObject
		for _, f := range n.Fields {
			inferNode(types, FieldPath(path, f.Key), f.Key, f.Value)
		}
	case KindArray:
		types[path] = TypeArray
		if len(n.Items) > 0 {
			inferNode(types, IndexPath(path, 0), name, n.Items[0])
		}
	default:
		if t, ok := inferFromName(name); ok {
			types[path] = t
			return
		}
		types[path] = inferFromKind(n)
	}
}

// rule is one name-based inference step; rules run in order and the first match wins
type rule struct {
	match func(nameInfo) bool
	tag   TypeTag
}

type nameInfo struct {
	lower  string
	tokens []string
	set    map[string]bool
}

func (ni nameInfo) has(words ...string) bool {
	for _, w := range words {
		if ni.set[w] {
			return true
		}
	}
	return false
}

func (ni nameInfo) suffix(suffixes ...string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(ni.lower, s) {
			return true
		}
	}
	return false
}

func (ni nameInfo) exact(names ...string) bool {
	for _, n := range names {
		if ni.lower == n {
			return true
		}
	}
	return false
}

func tokenRule(tag TypeTag, words ...string) rule {
	return rule{match: func(ni nameInfo) bool { return ni.has(words...) }, tag: tag}
}

var inferenceRules = []rule{
	{match: func(ni nameInfo) bool { return ni.suffix("_int", "_integer") }, tag: TypeInt},
	{match: func(ni nameInfo) bool { return ni.suffix("_double", "_float") }, tag: TypeDouble},
	{match: func(ni nameInfo) bool { return ni.suffix("_bool", "_boolean") }, tag: TypeBoolean},

	tokenRule(TypeEmail, "email"),
	tokenRule(TypePhone, "phone", "mobile"),
	tokenRule(TypeUUID, "uuid", "guid"),
	tokenRule(TypeURL, "url", "uri"),
	tokenRule(TypeIP, "ip"),
	tokenRule(TypeColor, "color", "colour"),
	tokenRule(TypeLatitude, "latitude", "lat"),
	tokenRule(TypeLongitude, "longitude", "lng", "lon"),
	tokenRule(TypeTemperature, "temperature", "temp"),

	tokenRule(TypeDate, "date", "time", "timestamp", "datetime"),

	tokenRule(TypeAge, "age"),
	tokenRule(TypeYear, "year"),
	tokenRule(TypeMonth, "month"),
	tokenRule(TypeDay, "day"),
	tokenRule(TypeHour, "hour"),
	tokenRule(TypeMinute, "minute"),
	tokenRule(TypeSecond, "second"),
	tokenRule(TypePort, "port"),

	tokenRule(TypeID, "id"),

	tokenRule(TypeName, "name"),

	tokenRule(TypeInt, "count", "number", "index", "type"),

	tokenRule(TypePrice, "price"),
	tokenRule(TypeRate, "rate"),
	tokenRule(TypeScore, "score"),
	tokenRule(TypeDouble, "value"),

	{match: func(ni nameInfo) bool { return ni.exact("x", "y", "z", "a", "d", "vx", "vy", "vz") }, tag: TypeDouble},

	{match: func(ni nameInfo) bool {
		if len(ni.tokens) > 1 && (ni.tokens[0] == "is" || ni.tokens[0] == "has") {
			return true
		}
		return ni.has("enable", "enabled", "active")
	}, tag: TypeBoolean},
}

func inferFromName(name string) (TypeTag, bool) {
	if name == "" {
		return "", false
	}
	ni := newNameInfo(name)
	for _, r := range inferenceRules {
		if r.match(ni) {
			return r.tag, true
		}
	}
	for _, k := range embeddedKeywords {
		if k.match(ni.lower) {
			return k.tag, true
		}
	}
	return "", false
}

type keywordPos int

const (
	anywhere keywordPos = iota
	atStart
	atEnd
)

// keyword finds a word buried inside an unsplittable name such as "productname"
type keyword struct {
	word string
	pos  keywordPos
	tag  TypeTag
}

func (k keyword) match(lower string) bool {
	switch k.pos {
	case atStart:
		return strings.HasPrefix(lower, k.word) && len(lower) > len(k.word)
	case atEnd:
		if !strings.HasSuffix(lower, k.word) || len(lower) <= len(k.word)+1 {
			return false
		}
		if k.word == "id" {
			// valid, android, paid
			for _, w := range []string{"lid", "oid", "aid"} {
				if strings.HasSuffix(lower, w) {
					return false
				}
			}
		}
		return true
	default:
		return strings.Contains(lower, k.word)
	}
}

// embeddedKeywords run only when no token rule matched. Short or common words that
// hide inside unrelated English (day, port, ip, is, has, single letters) stay
// token-only; the rest are anchored where a bare substring would misfire.
var embeddedKeywords = []keyword{
	{"email", anywhere, TypeEmail},
	{"phone", anywhere, TypePhone},
	{"mobile", anywhere, TypePhone},
	{"uuid", anywhere, TypeUUID},
	{"guid", atEnd, TypeUUID},
	{"url", anywhere, TypeURL},
	{"colour", anywhere, TypeColor},
	{"color", anywhere, TypeColor},
	{"latitude", anywhere, TypeLatitude},
	{"longitude", anywhere, TypeLongitude},
	{"temperature", anywhere, TypeTemperature},
	{"timestamp", anywhere, TypeDate},
	{"date", anywhere, TypeDate},
	{"time", anywhere, TypeDate},
	{"age", atStart, TypeAge},
	{"year", anywhere, TypeYear},
	{"month", anywhere, TypeMonth},
	{"hour", anywhere, TypeHour},
	{"minute", anywhere, TypeMinute},
	{"second", anywhere, TypeSecond},
	{"price", anywhere, TypePrice},
	{"score", anywhere, TypeScore},
	{"rate", atEnd, TypeRate},
	{"name", anywhere, TypeName},
	{"count", anywhere, TypeInt},
	{"number", anywhere, TypeInt},
	{"index", anywhere, TypeInt},
	{"type", anywhere, TypeInt},
	{"value", anywhere, TypeDouble},
	{"id", atEnd, TypeID},
}

func newNameInfo(name string) nameInfo {
	tokens := splitName(name)
	set := make(map[string]bool, len(tokens)*2)
	for _, t := range tokens {
		set[t] = true
		// plural: "prices" matches "price", "ids" matches "id"
		if len(t) > 2 && strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss") {
			set[strings.TrimSuffix(t, "s")] = true
		}
	}
	return nameInfo{lower: strings.ToLower(name), tokens: tokens, set: set}
}

// splitName breaks a field name into lowercase words at separators, camelCase humps
// and letter/digit boundaries: "userID_2nd" -> [user id 2 nd].
func splitName(name string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			switch {
			case unicode.IsDigit(r) != unicode.IsDigit(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsLower(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				// "HTTPServer" splits before "Server"
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return tokens
}

func inferFromKind(n *Node) TypeTag {
	switch n.Kind {
	case KindNumber:
		if n.IsFloat() {
			return TypeDouble
		}
		return TypeInt
	case KindBool:
		return TypeBoolean
	case KindArray:
		return TypeArray
	case KindObject:
		return TypeObject
	default:
		return TypeString
	}
}
