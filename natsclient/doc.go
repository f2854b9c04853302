// Package natsclient mirrors generated payloads onto NATS subjects.
//
// A Client owns one core NATS connection. Connect dials with pkg/retry
// backoff; after that the nats.go library handles reconnects and the client
// only tracks status for metrics and health. Publishing is fire-and-forget:
// payload streams are best-effort and a lost publish is only counted.
//
// Mirror binds a Client to a subject prefix so every session publishes to
// <prefix>.<session id>:
//
//	client, err := natsclient.NewClient(cfg.URL,
//		natsclient.WithName("kinetic-simulator"),
//		natsclient.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
//	mirror := natsclient.NewMirror(client, "kinetic.stream")
//	_ = mirror.Mirror(ctx, sessionID, payload)
//
// NewTestClient starts a NATS container through testcontainers-go for
// integration tests; those tests only run when INTEGRATION_TESTS is set.
package natsclient
