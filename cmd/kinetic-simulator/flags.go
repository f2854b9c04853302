package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"time"
)

const defaultConfigPath = "configs/kinetic.yaml"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath string
	// ConfigRequired is set when the path came from the command line or the environment
	ConfigRequired  bool
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool

	usage func()
}

func parseFlags(args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)

	envConfig := os.Getenv("KINETIC_CONFIG")
	fs.StringVar(&cfg.ConfigPath, "config", getEnv("KINETIC_CONFIG", defaultConfigPath),
		"Path to configuration file, JSON or YAML (env: KINETIC_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c", getEnv("KINETIC_CONFIG", defaultConfigPath),
		"Path to configuration file (env: KINETIC_CONFIG)")

	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("KINETIC_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: KINETIC_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("KINETIC_LOG_FORMAT", "json"),
		"Log format: json, text (env: KINETIC_LOG_FORMAT)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("KINETIC_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: KINETIC_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() { printDetailedHelp(fs) }
	cfg.usage = fs.Usage

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.ConfigRequired = envConfig != ""
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" || f.Name == "c" {
			cfg.ConfigRequired = true
		}
	})
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}
	return nil
}

func printDetailedHelp(fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(os.Stderr, `%s - schema-driven synthetic JSON over WebSocket

Usage: %s [options]

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with built-in defaults (port 1883, path /)
  %s

  # Run with a config file and text logs
  %s --config=/etc/kinetic/kinetic.yaml --log-format=text

  # Override single settings from the environment
  export KINETIC_PORT=8080
  export KINETIC_NATS_ENABLED=true
  %s

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
