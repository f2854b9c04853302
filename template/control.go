package template

import (
	"fmt"
	"strings"

	"github.com/choi857/kinetic-simulator/errors"
)

// Keys of a rich control message
const (
	KeyTemplate      = "template"
	KeyFieldTypes    = "fieldTypes"
	KeyFieldLimits   = "fieldLimits"
	KeyFieldDefaults = "fieldDefaults"
	KeyPushInterval  = "pushInterval"
	KeyMode          = "mode"
	KeyGroupCount    = "groupCount"
)

var richKeys = []string{KeyFieldTypes, KeyFieldLimits, KeyFieldDefaults, KeyPushInterval, KeyMode, KeyGroupCount}

// Heartbeat tokens that are ignored on configured connections
const (
	Heartbeat = "HEARTBEAT"
	Ping      = "PING"
)

// IsHeartbeat reports whether a text frame is a keep-alive token
func IsHeartbeat(raw string) bool {
	s := strings.TrimSpace(raw)
	return strings.EqualFold(s, Heartbeat) || strings.EqualFold(s, Ping)
}

// Control is a parsed first message
type Control struct {
	Config *Config
	// Legacy is true when the whole message was taken as the template
	Legacy bool
	// UnknownTypes lists fieldTypes entries whose tag fell back to string
	UnknownTypes []string
}

// ParseControl turns a first message into a generation configuration. An object
// carrying "template" plus any other rich key is the rich form; any other JSON value
// is a legacy template whose types are inferred. Only malformed JSON or wrongly
// shaped rich sections fail.
func ParseControl(raw []byte) (*Control, error) {
	root, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	if !isRich(root) {
		cfg := NewConfig(root, InferTypes(root), nil, nil)
		return &Control{Config: cfg, Legacy: true}, nil
	}
	return parseRich(root)
}

func isRich(root *Node) bool {
	if root.Kind != KindObject {
		return false
	}
	if _, ok := root.Get(KeyTemplate); !ok {
		return false
	}
	for _, k := range richKeys {
		if _, ok := root.Get(k); ok {
			return true
		}
	}
	return false
}

func invalid(format string, args ...any) error {
	return errors.WrapInvalid(fmt.Errorf("%w: "+format, append([]any{errors.ErrInvalidData}, args...)...),
		"template", "ParseControl", "read control message")
}

func parseRich(root *Node) (*Control, error) {
	tpl, _ := root.Get(KeyTemplate)
	ctl := &Control{}

	var types map[string]TypeTag
	if n, ok := root.Get(KeyFieldTypes); ok && n.Kind != KindNull {
		if n.Kind != KindObject {
			return nil, invalid("%s must be an object", KeyFieldTypes)
		}
		types = make(map[string]TypeTag, len(n.Fields))
		for _, f := range n.Fields {
			tag, known := ParseTypeTag(f.Value.Text())
			if !known {
				ctl.UnknownTypes = append(ctl.UnknownTypes, f.Key)
			}
			types[f.Key] = tag
		}
	} else {
		types = InferTypes(tpl)
	}

	bounds := map[string]Bound{}
	if n, ok := root.Get(KeyFieldLimits); ok && n.Kind != KindNull {
		if n.Kind != KindObject {
			return nil, invalid("%s must be an object", KeyFieldLimits)
		}
		for _, f := range n.Fields {
			if f.Value.Kind != KindObject {
				continue
			}
			var b Bound
			if v, ok := f.Value.Get("min"); ok {
				b.Min = v.Text()
			}
			if v, ok := f.Value.Get("max"); ok {
				b.Max = v.Text()
			}
			bounds[f.Key] = b
		}
	}

	defaults := map[string]string{}
	if n, ok := root.Get(KeyFieldDefaults); ok && n.Kind != KindNull {
		if n.Kind != KindObject {
			return nil, invalid("%s must be an object", KeyFieldDefaults)
		}
		for _, f := range n.Fields {
			v := f.Value
			if v.Kind == KindObject {
				v, ok = v.Get("value")
				if !ok {
					continue
				}
			}
			if lit := v.Text(); lit != "" {
				defaults[f.Key] = lit
			}
		}
	}

	cfg := NewConfig(tpl, types, bounds, defaults)

	if n, ok := root.Get(KeyPushInterval); ok {
		if v, ok := n.Float64(); ok {
			cfg.PushInterval = NormalizePushInterval(v)
		}
	}
	if n, ok := root.Get(KeyMode); ok && n.Kind == KindString {
		cfg.Mode = ParseMode(n.Str)
	}
	if n, ok := root.Get(KeyGroupCount); ok {
		if v, ok := n.Float64(); ok {
			cfg.GroupCount = groupCountOf(v)
		}
	}

	ctl.Config = cfg
	return ctl, nil
}

// ParseRenegotiation recognizes {"pushInterval": <number>} with no other keys and
// returns the normalized cadence in seconds.
func ParseRenegotiation(raw []byte) (float64, bool) {
	root, err := Parse(raw)
	if err != nil || root.Kind != KindObject || len(root.Fields) != 1 {
		return 0, false
	}
	n, ok := root.Get(KeyPushInterval)
	if !ok || n.Kind != KindNumber {
		return 0, false
	}
	v, ok := n.Float64()
	if !ok {
		return 0, false
	}
	return NormalizePushInterval(v), true
}

func groupCountOf(v float64) int {
	if v >= MaxGroupCount {
		return MaxGroupCount
	}
	if v <= MinGroupCount {
		return MinGroupCount
	}
	return ClampGroupCount(int(v))
}
