package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/choi857/kinetic-simulator/errors"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "KINETIC_"

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// Load builds the configuration: defaults, then the file at path (JSON or YAML by
// extension), then KINETIC_* environment overrides, then Validate. A missing file is
// tolerated unless required is true.
func Load(path string, required bool) (*Config, error) {
	return load(path, required, os.LookupEnv)
}

func load(path string, required bool, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := safeReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, data, cfg); err != nil {
				return nil, errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
					"config", "Load", "decode "+filepath.Base(path))
			}
		case !required && isNotExist(err):
			// defaults only
		default:
			return nil, errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrConfigNotFound, err), "config", "Load", "read config file")
		}
	}

	if err := ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist)
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		if err := validateJSONDepth(data); err != nil {
			return err
		}
		return json.Unmarshal(data, cfg)
	}
}

// ApplyEnv overlays KINETIC_* variables onto cfg
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	var firstErr error
	get := func(name string) (string, bool) {
		key := EnvPrefix + name
		v, ok := lookup(key)
		if !ok || v == "" {
			return "", false
		}
		if err := validateEnvVar(key, v); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return "", false
		}
		return v, true
	}
	fail := func(name string, err error) {
		if firstErr == nil {
			firstErr = fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
	}
	setInt := func(name string, dst *int) {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = b
		}
	}
	setDuration := func(name string, dst *Duration) {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				fail(name, err)
				return
			}
			*dst = Duration(d)
		}
	}
	setString := func(name string, dst *string) {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	setInt("PORT", &cfg.Server.Port)
	setString("PATH", &cfg.Server.Path)
	setDuration("GRACE_PERIOD", &cfg.Stream.GracePeriod)
	setInt("WORKERS", &cfg.Worker.Workers)
	setInt("QUEUE_SIZE", &cfg.Worker.QueueSize)
	setBool("KINETIC_ENABLED", &cfg.Kinetic.Enabled)
	setDuration("KINETIC_INTERVAL", &cfg.Kinetic.Interval)
	setBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
	setInt("METRICS_PORT", &cfg.Metrics.Port)
	setBool("NATS_ENABLED", &cfg.NATS.Enabled)
	setString("NATS_URL", &cfg.NATS.URL)
	setString("NATS_SUBJECT_PREFIX", &cfg.NATS.SubjectPrefix)

	if firstErr != nil {
		return errors.WrapFatal(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, firstErr), "config", "ApplyEnv", "apply environment")
	}
	return nil
}
