package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/choi857/kinetic-simulator/errors"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3*time.Second, cfg.Stream.GracePeriod.D())
	assert.False(t, cfg.NATS.Enabled)
}

func TestValidate_CollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Server.Path = "ws"
	cfg.Worker.Workers = 0
	cfg.Metrics.Port = cfg.Server.Port

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
	for _, want := range []string{"server.port", "server.path", "worker.workers"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_KineticPathCollision(t *testing.T) {
	cfg := Default()
	cfg.Kinetic.Path = cfg.Server.Path
	require.ErrorContains(t, cfg.Validate(), "kinetic.path must differ")

	cfg.Kinetic.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestValidate_NATSSubject(t *testing.T) {
	cfg := Default()
	cfg.NATS.Enabled = true
	cfg.NATS.SubjectPrefix = "kinetic.*"
	require.ErrorContains(t, cfg.Validate(), "subject_prefix")
}

func TestDuration_JSON(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"1500ms","b":2000000000}`), &v))
	assert.Equal(t, 1500*time.Millisecond, v.A.D())
	assert.Equal(t, 2*time.Second, v.B.D())

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"1.5s","b":"2s"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"a":"soon"}`), &v))
}

func TestDuration_YAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 250ms\n"), &v))
	assert.Equal(t, 250*time.Millisecond, v.A.D())

	require.Error(t, yaml.Unmarshal([]byte("a: [1]\n"), &v))
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "sim.json", `{
		"server": {"port": 8080, "path": "/ws"},
		"stream": {"grace_period": "5s"},
		"nats": {"enabled": true, "subject_prefix": "sim.out"}
	}`)

	cfg, err := load(path, true, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/ws", cfg.Server.Path)
	assert.Equal(t, 5*time.Second, cfg.Stream.GracePeriod.D())
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "sim.out", cfg.NATS.SubjectPrefix)
	// untouched sections keep their defaults
	assert.Equal(t, 4, cfg.Worker.Workers)
	assert.Equal(t, 30*time.Second, cfg.Server.PingInterval.D())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "sim.yaml", "server:\n  port: 9000\nkinetic:\n  enabled: false\n")

	cfg, err := load(path, true, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Kinetic.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	cfg, err := load(path, false, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = load(path, true, envMap(nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigNotFound)
}

func TestLoad_RejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"wrong extension", "sim.txt", "{}"},
		{"malformed json", "sim.json", `{"server": `},
		{"too deep", "sim.json", strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1)},
		{"invalid values", "sim.json", `{"server": {"port": 70000}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			_, err := load(path, false, envMap(nil))
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "sim.json", `{"server": {"port": 8080}}`)

	cfg, err := load(path, true, envMap(map[string]string{
		"KINETIC_PORT":         "8181",
		"KINETIC_GRACE_PERIOD": "750ms",
		"KINETIC_NATS_ENABLED": "true",
		"KINETIC_NATS_URL":     "nats://broker:4222",
		"KINETIC_WORKERS":      "",
	}))
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Stream.GracePeriod.D())
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, 4, cfg.Worker.Workers)
}

func TestApplyEnv_Errors(t *testing.T) {
	tests := map[string]string{
		"KINETIC_PORT":            "eighty",
		"KINETIC_METRICS_ENABLED": "maybe",
		"KINETIC_GRACE_PERIOD":    "3",
		"KINETIC_PATH":            "/ws\x00",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			err := ApplyEnv(Default(), envMap(map[string]string{key: value}))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestValidateConfigPath(t *testing.T) {
	assert.Error(t, validateConfigPath(""))
	assert.Error(t, validateConfigPath("../outside.json"))
	assert.Error(t, validateConfigPath(strings.Repeat("a", maxPathLen+1)+".json"))
	assert.NoError(t, validateConfigPath("configs/sim.yml"))
}

func TestValidateJSONDepth(t *testing.T) {
	assert.NoError(t, validateJSONDepth([]byte(`{"a":"[[[[{{{{"}`)))
	assert.NoError(t, validateJSONDepth([]byte(`{"a":"\"]"}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a":1}}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a":[1}`)))
}

func TestToJSON(t *testing.T) {
	out, err := Default().ToJSON()
	require.NoError(t, err)

	var back Config
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, *Default(), back)
}
