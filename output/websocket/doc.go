// Package websocket serves template-driven synthetic JSON streams over WebSocket.
//
// A client connects and sends one control message. It is either a bare JSON template
// (the legacy form, types inferred from field names and values) or an object with a
// "template" key plus fieldTypes, fieldLimits, fieldDefaults, pushInterval, mode or
// groupCount. The server answers with one generated payload immediately and then one
// every pushInterval seconds until the connection closes.
//
// A connection that sends nothing within the grace period adopts the most recently
// accepted configuration of any connection. If there is none it is told so and may
// still configure itself later.
//
// Once configured, a connection may change its cadence with {"pushInterval": n}.
// HEARTBEAT and PING frames are ignored; any other frame is echoed back.
//
// Basic usage:
//
//	sched := worker.NewScheduler(worker.SchedulerConfig{Workers: 4, QueueSize: 1024})
//	_ = sched.Start(ctx)
//
//	srv, err := websocket.NewServer(websocket.Config{
//	    Port:      1883,
//	    Path:      "/",
//	    Scheduler: sched,
//	})
//	if err != nil {
//	    return err
//	}
//	go srv.Start(ctx)
//	defer srv.Stop(5 * time.Second)
//
// Additional HTTP routes can share the listener through Handle. Payloads can be
// copied to a broker by setting Config.Mirror.
package websocket
