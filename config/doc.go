// Package config loads the simulator configuration.
//
// Values are layered: Default, then an optional JSON or YAML file, then
// KINETIC_* environment variables. The merged result is validated before it
// is returned; every validation problem is reported in one fatal error.
//
// # Files
//
// The file format is chosen by extension (.json, .yaml or .yml). Durations are
// written as Go duration strings:
//
//	server:
//	  port: 1883
//	  path: /
//	  ping_interval: 30s
//	stream:
//	  grace_period: 3s
//	nats:
//	  enabled: true
//	  url: nats://localhost:4222
//
// Files are read through safeReadFile, which rejects relative paths that escape
// the working directory, non-regular files and files over 1MB. JSON input is
// additionally depth-checked before it is decoded.
//
// # Environment
//
//	KINETIC_PORT, KINETIC_PATH, KINETIC_GRACE_PERIOD,
//	KINETIC_WORKERS, KINETIC_QUEUE_SIZE,
//	KINETIC_KINETIC_ENABLED, KINETIC_KINETIC_INTERVAL,
//	KINETIC_METRICS_ENABLED, KINETIC_METRICS_PORT,
//	KINETIC_NATS_ENABLED, KINETIC_NATS_URL, KINETIC_NATS_SUBJECT_PREFIX
//
// Empty variables are ignored. A value that does not parse is a fatal error.
package config
