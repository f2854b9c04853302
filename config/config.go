package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/choi857/kinetic-simulator/errors"
)

// Duration is a time.Duration that reads "3s"-style strings (or integer
// nanoseconds) from JSON and YAML
type Duration time.Duration

// D returns the value as a time.Duration
func (d Duration) D() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalJSON writes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts "1500ms" or a number of nanoseconds
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML writes the duration as a string
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		var n int64
		if err := node.Decode(&n); err != nil {
			return err
		}
		*d = Duration(n)
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the complete simulator configuration
type Config struct {
	Server  ServerConfig  `json:"server" yaml:"server"`
	Stream  StreamConfig  `json:"stream" yaml:"stream"`
	Kinetic KineticConfig `json:"kinetic" yaml:"kinetic"`
	Worker  WorkerConfig  `json:"worker" yaml:"worker"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	NATS    NATSConfig    `json:"nats" yaml:"nats"`
}

// ServerConfig configures the HTTP listener carrying the WebSocket endpoints
type ServerConfig struct {
	Port           int      `json:"port" yaml:"port"`
	Path           string   `json:"path" yaml:"path"`
	ReadTimeout    Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   Duration `json:"write_timeout" yaml:"write_timeout"`
	PingInterval   Duration `json:"ping_interval" yaml:"ping_interval"`
	MaxMessageSize int64    `json:"max_message_size" yaml:"max_message_size"`
	// AllowedOrigins empty means any origin may connect
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

// StreamConfig configures the template stream lifecycle
type StreamConfig struct {
	GracePeriod Duration `json:"grace_period" yaml:"grace_period"`
}

// KineticConfig configures the fixed-schema demo broadcaster
type KineticConfig struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Path     string   `json:"path" yaml:"path"`
	Interval Duration `json:"interval" yaml:"interval"`
}

// WorkerConfig sizes the scheduler pool
type WorkerConfig struct {
	Workers   int `json:"workers" yaml:"workers"`
	QueueSize int `json:"queue_size" yaml:"queue_size"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// NATSConfig configures the optional payload mirror
type NATSConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	URL           string `json:"url" yaml:"url"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
	ClientName    string `json:"client_name" yaml:"client_name"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           1883,
			Path:           "/",
			ReadTimeout:    Duration(60 * time.Second),
			WriteTimeout:   Duration(10 * time.Second),
			PingInterval:   Duration(30 * time.Second),
			MaxMessageSize: 1 << 20,
		},
		Stream: StreamConfig{
			GracePeriod: Duration(3 * time.Second),
		},
		Kinetic: KineticConfig{
			Enabled:  true,
			Path:     "/websocket/kinetic",
			Interval: Duration(5 * time.Second),
		},
		Worker: WorkerConfig{
			Workers:   4,
			QueueSize: 1024,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			SubjectPrefix: "kinetic.stream",
			ClientName:    "kinetic-simulator",
		},
	}
}

// Validate checks the configuration for values the servers cannot run with
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port %d out of range", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		add("server.path %q must start with /", c.Server.Path)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		add("server timeouts must be positive")
	}
	if c.Server.PingInterval <= 0 || c.Server.PingInterval >= c.Server.ReadTimeout {
		add("server.ping_interval must be positive and shorter than read_timeout")
	}
	if c.Server.MaxMessageSize <= 0 {
		add("server.max_message_size must be positive")
	}
	if c.Stream.GracePeriod <= 0 {
		add("stream.grace_period must be positive")
	}
	if c.Kinetic.Enabled {
		if !strings.HasPrefix(c.Kinetic.Path, "/") {
			add("kinetic.path %q must start with /", c.Kinetic.Path)
		}
		if c.Kinetic.Path == c.Server.Path {
			add("kinetic.path must differ from server.path")
		}
		if c.Kinetic.Interval <= 0 {
			add("kinetic.interval must be positive")
		}
	}
	if c.Worker.Workers < 1 {
		add("worker.workers must be at least 1")
	}
	if c.Worker.QueueSize < 1 {
		add("worker.queue_size must be at least 1")
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			add("metrics.port %d out of range", c.Metrics.Port)
		}
		if c.Metrics.Port == c.Server.Port {
			add("metrics.port must differ from server.port")
		}
	}
	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			add("nats.url is required when nats is enabled")
		}
		if c.NATS.SubjectPrefix == "" || strings.ContainsAny(c.NATS.SubjectPrefix, " *>") {
			add("nats.subject_prefix %q is not a valid subject", c.NATS.SubjectPrefix)
		}
	}

	if len(problems) > 0 {
		return errors.WrapFatal(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(problems, "; ")),
			"config", "Validate", "validate configuration")
	}
	return nil
}

// ToJSON renders the configuration, indented
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
