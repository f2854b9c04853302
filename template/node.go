package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/choi857/kinetic-simulator/errors"
)

// Kind is the JSON kind of a Node
type Kind int

// JSON kinds
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Field is one member of an object node
type Field struct {
	Key   string
	Value *Node
}

// Node is a JSON value whose object members keep their source order. Templates and
// generated payloads are both Nodes so field order survives the round trip.
type Node struct {
	Kind   Kind
	Bool   bool
	Num    json.Number
	Str    string
	Items  []*Node
	Fields []Field
}

// Null returns a JSON null
func Null() *Node { return &Node{Kind: KindNull} }

// Bool returns a JSON boolean
func Bool(b bool) *Node { return &Node{Kind: KindBool, Bool: b} }

// String returns a JSON string
func String(s string) *Node { return &Node{Kind: KindString, Str: s} }

// Int returns an integral JSON number
func Int(v int64) *Node {
	return &Node{Kind: KindNumber, Num: json.Number(strconv.FormatInt(v, 10))}
}

// Float returns a fractional JSON number. Whole values keep a ".0" so the literal
// still reads as a double. NaN and infinities become null.
func Float(f float64) *Node {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	var s string
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		s = strconv.FormatFloat(f, 'e', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
	}
	return &Node{Kind: KindNumber, Num: json.Number(s)}
}

// Array returns a JSON array of items
func Array(items ...*Node) *Node {
	if items == nil {
		items = []*Node{}
	}
	return &Node{Kind: KindArray, Items: items}
}

// Object returns an empty JSON object
func Object() *Node { return &Node{Kind: KindObject, Fields: []Field{}} }

// Set adds or replaces a member, keeping the position of an existing key
func (n *Node) Set(key string, v *Node) {
	for i := range n.Fields {
		if n.Fields[i].Key == key {
			n.Fields[i].Value = v
			return
		}
	}
	n.Fields = append(n.Fields, Field{Key: key, Value: v})
}

// Get returns the member named key
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != KindObject {
		return nil, false
	}
	for _, f := range n.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Len returns the number of array items or object members
func (n *Node) Len() int {
	switch n.Kind {
	case KindArray:
		return len(n.Items)
	case KindObject:
		return len(n.Fields)
	default:
		return 0
	}
}

// IsFloat reports whether a number literal is fractional (contains '.', 'e' or 'E')
func (n *Node) IsFloat() bool {
	return n.Kind == KindNumber && strings.ContainsAny(string(n.Num), ".eE")
}

// Text returns the literal text of a scalar node: the string itself, the number
// literal, "true"/"false", or "" for null and containers.
func (n *Node) Text() string {
	switch n.Kind {
	case KindString:
		return n.Str
	case KindNumber:
		return string(n.Num)
	case KindBool:
		return strconv.FormatBool(n.Bool)
	default:
		return ""
	}
}

// Float64 returns the numeric value of a number node. String nodes are parsed too.
func (n *Node) Float64() (float64, bool) {
	switch n.Kind {
	case KindNumber:
		f, err := n.Num.Float64()
		return f, err == nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(n.Str), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// MarshalJSON writes the node compactly, objects in member order
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes data keeping object member order
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

// Compact returns the compact JSON text of the node
func (n *Node) Compact() string {
	b, err := n.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(n.Bool))
	case KindNumber:
		if n.Num == "" {
			buf.WriteString("0")
		} else {
			buf.WriteString(string(n.Num))
		}
	case KindString:
		return writeString(buf, n.Str)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown node kind %d", n.Kind)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encoder appends a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

// maxDepth bounds nesting of parsed documents
const maxDepth = 100

// Parse decodes one JSON document into a Node. Trailing data is an error.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decodeValue(dec, 0)
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err), "template", "Parse", "decode JSON")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: trailing data after JSON value", errors.ErrParsingFailed),
			"template", "Parse", "decode JSON")
	}
	return n, nil
}

func decodeValue(dec *json.Decoder, depth int) (*Node, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("nesting deeper than %d", maxDepth)
	}
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch v := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(v), nil
	case json.Number:
		return &Node{Kind: KindNumber, Num: v}, nil
	case string:
		return String(v), nil
	case json.Delim:
		switch v {
		case '[':
			arr := Array()
			for dec.More() {
				item, err := decodeValue(dec, depth+1)
				if err != nil {
					return nil, err
				}
				arr.Items = append(arr.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		case '{':
			obj := Object()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string")
				}
				val, err := decodeValue(dec, depth+1)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}
