// Package kineticsimulator streams schema-driven synthetic JSON over WebSocket.
//
// # Architecture
//
// A client describes the payload it wants with a JSON template and optional type,
// bound and default hints. The server keeps one session per connection and pushes a
// freshly generated payload on a fixed cadence until the client goes away.
//
//   - template: ordered JSON tree, type tags, control message parsing, field paths
//   - generator: typed value synthesis and the normal/advanced template walkers
//   - session: per-connection state and the global fallback configuration
//   - output/websocket: connection lifecycle, push scheduling, HTTP side endpoints
//   - output/kinetic: fixed-schema demo broadcaster
//   - natsclient: optional payload mirror to NATS
//   - pkg/worker: bounded worker pool and the timer scheduler on top of it
//   - config, errors, health, metric: ambient infrastructure
//
// The binary lives in cmd/kinetic-simulator.
package kineticsimulator
