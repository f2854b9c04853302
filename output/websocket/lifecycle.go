package websocket

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/choi857/kinetic-simulator/errors"
	"github.com/choi857/kinetic-simulator/pkg/worker"
	"github.com/choi857/kinetic-simulator/session"
	"github.com/choi857/kinetic-simulator/template"
)

// Text notices sent to clients
const (
	NoticeParseFailed   = "template parse failed: "
	NoticeNoTemplate    = "no template received and no global template available, nothing to push"
	NoticeIntervalSet   = "push interval updated to "
	NoticeEchoJSON      = "received JSON: "
	NoticeEchoRaw       = "received: "
	earlyDisconnectTime = 5 * time.Second
)

// connection is one upgraded client. Writes are serialized by writeMu.
type connection struct {
	id       string
	conn     *websocket.Conn
	entry    *session.Entry
	opened   time.Time
	ctx      context.Context
	cancel   context.CancelFunc
	writeMu  sync.Mutex
	closed   atomic.Bool
	// disconnect_reason label of a server initiated close; the first one set sticks
	cause atomic.Value

	writeTimeout time.Duration
	// send failures are logged at most once per interval
	failLog rate.Sometimes
}

func (c *connection) write(messageType int, data []byte) error {
	if c.closed.Load() {
		return errors.WrapTransient(errors.ErrConnectionLost, "connection", "write", "write frame")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return errors.WrapTransient(err, "connection", "write", "write frame")
	}
	return nil
}

func (c *connection) sendText(text string) error {
	return c.write(websocket.TextMessage, []byte(text))
}

func (c *connection) ping() error {
	if c.closed.Load() {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

func (c *connection) markCause(label string) {
	c.cause.CompareAndSwap(nil, label)
}

// closeWith sends a close frame and tears down the socket; the read loop then exits
func (c *connection) closeWith(code int, reason string) {
	if c.closed.Swap(true) {
		return
	}
	c.cancel()
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = c.conn.Close()
}

// handleWebSocket upgrades the request and runs the connection until it closes
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.metrics.sendError("connection_upgrade", err)
		s.logger.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	id := uuid.NewString()
	entry, err := s.sessions.Open(id)
	if err != nil {
		s.logger.Error("Failed to register session", "error", err)
		_ = ws.Close()
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	c := &connection{
		id:           id,
		conn:         ws,
		entry:        entry,
		opened:       time.Now(),
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: s.cfg.WriteTimeout,
		failLog:      rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	s.track(c)
	s.metrics.connected()
	s.refreshSessionGauge()
	s.logger.Info("Connection opened, awaiting template",
		"session", id, "remote", r.RemoteAddr, "grace_period", s.cfg.GracePeriod)

	grace, err := s.scheduler.After(s.cfg.GracePeriod, func(context.Context) { s.onGrace(c) })
	if err != nil {
		s.logger.Error("Failed to schedule grace period", "session", id, "error", err)
	} else {
		entry.SetGrace(grace)
	}

	s.wg.Add(1)
	go s.serve(c)
}

// serve is the read loop; every inbound frame is handled here in arrival order
func (s *Server) serve(c *connection) {
	defer s.wg.Done()
	defer s.teardown(c)

	c.conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) && !c.closed.Load() {
				s.logger.Debug("Connection read failed", "session", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		s.onMessage(c, data)
	}
}

func (s *Server) teardown(c *connection) {
	c.closed.Store(true)
	c.cancel()
	_ = c.conn.Close()

	s.untrack(c)
	s.sessions.Remove(c.id)

	reason := "normal"
	if v, ok := c.cause.Load().(string); ok {
		reason = v
	} else if time.Since(c.opened) < earlyDisconnectTime {
		reason = "early_disconnect"
	}
	s.metrics.disconnected(reason)
	s.refreshSessionGauge()
	s.logger.Info("Connection closed", "session", c.id, "reason", reason)
}

func (s *Server) onMessage(c *connection, data []byte) {
	switch c.entry.State() {
	case session.StateAwaitingTemplate:
		s.configure(c, data)
	case session.StateActive:
		s.onActive(c, data)
	}
}

// configure handles the first message of an awaiting connection
func (s *Server) configure(c *connection, data []byte) {
	ctl, err := template.ParseControl(data)
	if err != nil {
		s.metrics.control("invalid")
		s.logger.Warn("Template parse failed", "session", c.id, "error", err)
		s.notify(c, NoticeParseFailed+err.Error())
		return
	}

	if len(ctl.UnknownTypes) > 0 {
		s.logger.Info("Unknown field types treated as string", "session", c.id, "paths", ctl.UnknownTypes)
	}

	if err := c.entry.Claim(ctl.Config); err != nil {
		if stderrors.Is(err, errors.ErrAlreadyClaimed) {
			// the grace timer adopted the fallback first
			s.onActive(c, data)
		}
		return
	}

	form := "rich"
	if ctl.Legacy {
		form = "legacy"
	}
	s.metrics.control(form)
	s.sessions.SetFallback(ctl.Config)
	s.logger.Info("Template accepted", "session", c.id, "form", form,
		"mode", string(ctl.Config.Mode), "push_interval", ctl.Config.PushInterval,
		"typed_paths", len(ctl.Config.Types))

	s.activate(c, ctl.Config)
}

// onGrace runs when the grace period ends without a template
func (s *Server) onGrace(c *connection) {
	if c.entry.State() != session.StateAwaitingTemplate {
		return
	}

	fallback := s.sessions.Fallback()
	if fallback == nil {
		s.logger.Warn("No template received and no global template available", "session", c.id)
		s.notify(c, NoticeNoTemplate)
		return
	}

	if err := c.entry.ClaimFallback(fallback); err != nil {
		return
	}
	s.metrics.adoptedFallback()
	s.logger.Info("Grace period elapsed, adopted global template", "session", c.id,
		"push_interval", fallback.PushInterval)
	s.activate(c, fallback)
}

// activate pushes once and installs the recurring schedule
func (s *Server) activate(c *connection, cfg *template.Config) {
	s.push(c.ctx, c, cfg)

	h, err := s.every(c, cfg)
	if err != nil {
		s.logger.Error("Failed to schedule pushes", "session", c.id, "error", err)
		return
	}
	if err := c.entry.SetSchedule(h); err != nil {
		return
	}
	s.refreshSessionGauge()
}

func (s *Server) every(c *connection, cfg *template.Config) (session.Canceler, error) {
	h, err := s.scheduler.Every(cfg.Interval(), func(ctx context.Context) { s.tick(ctx, c) })
	if err != nil {
		return nil, errors.Wrap(err, "Server", "every", "schedule pushes")
	}
	return h, nil
}

func (s *Server) tick(ctx context.Context, c *connection) {
	if c.closed.Load() || c.entry.State() != session.StateActive {
		return
	}
	cfg := c.entry.Config()
	if cfg == nil {
		return
	}
	s.push(ctx, c, cfg)
}

// onActive handles messages on a configured connection
func (s *Server) onActive(c *connection, data []byte) {
	if seconds, ok := template.ParseRenegotiation(data); ok {
		s.renegotiate(c, seconds)
		return
	}

	raw := string(data)
	if template.IsHeartbeat(raw) {
		return
	}

	if node, err := template.Parse(data); err == nil {
		s.notify(c, NoticeEchoJSON+node.Compact())
		return
	}
	s.notify(c, NoticeEchoRaw+raw)
}

func (s *Server) renegotiate(c *connection, seconds float64) {
	cfg, err := c.entry.Reschedule(seconds, func(next *template.Config) (session.Canceler, error) {
		return s.every(c, next)
	})
	if err != nil {
		if !stderrors.Is(err, errors.ErrSessionClosed) {
			s.logger.Error("Failed to change push interval", "session", c.id, "error", err)
		}
		return
	}

	s.metrics.renegotiated()
	s.logger.Info("Push interval updated", "session", c.id, "push_interval", cfg.PushInterval)
	s.notify(c, NoticeIntervalSet+strconv.FormatFloat(cfg.PushInterval, 'f', -1, 64)+"s")
}

// push generates one payload and writes it. Failures are logged and counted; the
// schedule is left running.
func (s *Server) push(ctx context.Context, c *connection, cfg *template.Config) {
	start := time.Now()
	payload, err := s.gen.GenerateJSON(cfg)
	s.metrics.generated(string(cfg.Mode), time.Since(start))
	if err != nil {
		s.metrics.sendError("generate", err)
		s.logger.Warn("Payload generation failed", "session", c.id, "error", err)
		return
	}

	if err := c.write(websocket.TextMessage, payload); err != nil {
		s.sendFailed(c, "payload", err)
		return
	}
	s.metrics.sent(len(payload))

	if s.mirror == nil {
		return
	}
	if err := s.mirror.Mirror(ctx, c.id, payload); err != nil {
		s.metrics.sendError("mirror", err)
		c.failLog.Do(func() {
			s.logger.Warn("Payload mirror failed", "session", c.id, "error", err)
		})
		return
	}
	s.metrics.mirrored()
}

func (s *Server) notify(c *connection, text string) {
	if err := c.sendText(text); err != nil {
		s.sendFailed(c, "notice", err)
	}
}

func (s *Server) sendFailed(c *connection, what string, err error) {
	kind := "write"
	var netErr net.Error
	switch {
	case stderrors.Is(err, errors.ErrConnectionLost), stderrors.Is(err, websocket.ErrCloseSent),
		stderrors.Is(err, net.ErrClosed):
		kind = "closed"
	case stderrors.As(err, &netErr) && netErr.Timeout():
		kind = "timeout"
	}
	s.metrics.sendError(kind, err)
	c.failLog.Do(func() {
		s.logger.Warn("Send failed", "session", c.id, "frame", what, "error_type", kind, "error", err)
	})
}

var _ session.Canceler = (*worker.Handle)(nil)
