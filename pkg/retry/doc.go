// Package retry runs an operation with exponential backoff.
//
// It is used at startup to connect the optional NATS payload mirror, where the broker may
// still be booting when the simulator starts:
//
//	cfg := retry.Config{MaxAttempts: 6, InitialDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second, Multiplier: 2}
//	err := retry.Do(ctx, cfg, func() error {
//	    return client.Connect(ctx)
//	})
//
// Wrap an error with NonRetryable to stop the loop early.
package retry
