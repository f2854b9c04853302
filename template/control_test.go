package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/choi857/kinetic-simulator/errors"
)

func TestParseControl_Rich(t *testing.T) {
	raw := `{
		"template": {"user": {"email": "", "age": 0}, "tags": ["a"]},
		"fieldTypes": {"user": "object", "user.email": "EMAIL", "user.age": "age", "tags": "array", "tags[0]": "colour"},
		"fieldLimits": {"user.age": {"min": 18, "max": "30"}, "broken": "nope"},
		"fieldDefaults": {"user.email": {"value": "a@b.c"}, "tags[0]": "red", "skip": {"other": 1}, "empty": ""},
		"pushInterval": 2.5,
		"mode": "Advanced",
		"groupCount": 7
	}`

	ctl, err := ParseControl([]byte(raw))
	require.NoError(t, err)
	assert.False(t, ctl.Legacy)
	assert.Equal(t, []string{"tags[0]"}, ctl.UnknownTypes)

	cfg := ctl.Config
	assert.Equal(t, `{"user":{"email":"","age":0},"tags":["a"]}`, cfg.Template.Compact())
	assert.Equal(t, TypeEmail, cfg.Types["user.email"])
	assert.Equal(t, TypeAge, cfg.Types["user.age"])
	assert.Equal(t, TypeString, cfg.Types["tags[0]"])
	assert.Equal(t, Bound{Min: "18", Max: "30"}, cfg.Bounds["user.age"])
	assert.NotContains(t, cfg.Bounds, "broken")
	assert.Equal(t, map[string]string{"user.email": "a@b.c", "tags[0]": "red"}, cfg.Defaults)
	assert.Equal(t, 2.5, cfg.PushInterval)
	assert.Equal(t, ModeAdvanced, cfg.Mode)
	assert.Equal(t, MaxGroupCount, cfg.GroupCount)
}

func TestParseControl_RichWithoutFieldTypesInfers(t *testing.T) {
	ctl, err := ParseControl([]byte(`{"template": {"id": 0, "price": 0.0}, "pushInterval": 0.01}`))
	require.NoError(t, err)
	assert.False(t, ctl.Legacy)
	assert.Equal(t, TypeID, ctl.Config.Types["id"])
	assert.Equal(t, TypePrice, ctl.Config.Types["price"])
	assert.Equal(t, MinPushInterval, ctl.Config.PushInterval)
}

func TestParseControl_Legacy(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"plain object", `{"id": 0, "age": 0, "price": 0.0}`},
		{"template key alone", `{"template": {"x": 1}}`},
		{"array root", `[{"id": 1}]`},
		{"scalar root", `"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl, err := ParseControl([]byte(tt.raw))
			require.NoError(t, err)
			assert.True(t, ctl.Legacy)
			assert.Equal(t, DefaultPushInterval, ctl.Config.PushInterval)
			assert.Equal(t, ModeNormal, ctl.Config.Mode)
			assert.Equal(t, 1, ctl.Config.GroupCount)
		})
	}

	ctl, err := ParseControl([]byte(`{"id": 0, "age": 0, "price": 0.0}`))
	require.NoError(t, err)
	assert.Equal(t, TypeID, ctl.Config.Types["id"])
	assert.Equal(t, TypeAge, ctl.Config.Types["age"])
	assert.Equal(t, TypePrice, ctl.Config.Types["price"])
}

func TestParseControl_Errors(t *testing.T) {
	_, err := ParseControl([]byte(`{"template": `))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParsingFailed)

	_, err = ParseControl([]byte(`{"template": {}, "fieldTypes": ["int"]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidData)
	assert.True(t, errors.IsInvalid(err))

	_, err = ParseControl([]byte(`{"template": {}, "fieldLimits": 3}`))
	assert.ErrorIs(t, err, errors.ErrInvalidData)

	_, err = ParseControl([]byte(`{"template": {}, "fieldDefaults": "x"}`))
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}

func TestParseControl_CadenceAndGroupEdges(t *testing.T) {
	tests := []struct {
		raw      string
		interval float64
		groups   int
	}{
		{`{"template":1,"pushInterval":-3}`, DefaultPushInterval, 1},
		{`{"template":1,"pushInterval":0}`, DefaultPushInterval, 1},
		{`{"template":1,"pushInterval":"4"}`, 4, 1},
		{`{"template":1,"pushInterval":"fast"}`, DefaultPushInterval, 1},
		{`{"template":1,"groupCount":0}`, DefaultPushInterval, 1},
		{`{"template":1,"groupCount":2}`, DefaultPushInterval, 2},
		{`{"template":1,"groupCount":1e9}`, DefaultPushInterval, 3},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ctl, err := ParseControl([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.interval, ctl.Config.PushInterval)
			assert.Equal(t, tt.groups, ctl.Config.GroupCount)
		})
	}
}

func TestParseRenegotiation(t *testing.T) {
	v, ok := ParseRenegotiation([]byte(`{"pushInterval": 2.5}`))
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	v, ok = ParseRenegotiation([]byte(` {"pushInterval": 0.01} `))
	assert.True(t, ok)
	assert.Equal(t, MinPushInterval, v)

	for _, raw := range []string{
		`{"pushInterval": "2"}`,
		`{"pushInterval": 2, "mode": "advanced"}`,
		`{"interval": 2}`,
		`[2]`,
		`HEARTBEAT`,
	} {
		_, ok := ParseRenegotiation([]byte(raw))
		assert.False(t, ok, raw)
	}
}

func TestIsHeartbeat(t *testing.T) {
	for _, s := range []string{"HEARTBEAT", "heartbeat", " ping\n", "Ping"} {
		assert.True(t, IsHeartbeat(s), s)
	}
	for _, s := range []string{"pong", "", "PING PING", `"PING"`} {
		assert.False(t, IsHeartbeat(s), s)
	}
}

func TestConfig_WithPushInterval(t *testing.T) {
	cfg := NewConfig(nil, nil, nil, nil)
	assert.Equal(t, KindNull, cfg.Template.Kind)
	assert.NotNil(t, cfg.Types)

	next := cfg.WithPushInterval(2.5)
	assert.Equal(t, DefaultPushInterval, cfg.PushInterval, "original untouched")
	assert.Equal(t, 2.5, next.PushInterval)
	assert.Equal(t, "2.5s", next.Interval().String())
	assert.Same(t, cfg.Template, next.Template)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeAdvanced, ParseMode(" ADVANCED "))
	assert.Equal(t, ModeNormal, ParseMode("normal"))
	assert.Equal(t, ModeNormal, ParseMode("fancy"))
}

func TestParseTypeTag(t *testing.T) {
	tag, ok := ParseTypeTag(" Timestamp_Editable ")
	assert.True(t, ok)
	assert.Equal(t, TypeTimestampEditable, tag)

	tag, ok = ParseTypeTag("geohash")
	assert.False(t, ok)
	assert.Equal(t, TypeString, tag)

	assert.True(t, TypeID.IsInt())
	assert.True(t, TypeLatitude.IsDouble())
	assert.False(t, TypeEmail.IsInt())
	assert.True(t, TypeObject.IsContainer())
	assert.True(t, TypeTimestampRealtime.IsTimestamp())
}
