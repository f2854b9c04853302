package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/choi857/kinetic-simulator/errors"
	"github.com/choi857/kinetic-simulator/generator"
	"github.com/choi857/kinetic-simulator/health"
	"github.com/choi857/kinetic-simulator/metric"
	"github.com/choi857/kinetic-simulator/pkg/worker"
	"github.com/choi857/kinetic-simulator/session"
)

// Mirror receives a copy of every payload sent to a session
type Mirror interface {
	Mirror(ctx context.Context, sessionID string, payload []byte) error
}

// Config holds everything needed to construct a Server
type Config struct {
	Port           int
	Path           string
	GracePeriod    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	// AllowedOrigins empty accepts any Origin header
	AllowedOrigins []string

	Scheduler       *worker.Scheduler    // required, started by the caller
	Generator       *generator.Generator // nil creates an unseeded generator
	Sessions        *session.Registry    // nil creates an empty registry
	MetricsRegistry *metric.MetricsRegistry
	Mirror          Mirror
	Logger          *slog.Logger
}

// DefaultConfig returns the stream defaults; Scheduler must still be set
func DefaultConfig() Config {
	return Config{
		Port:           1883,
		Path:           "/",
		GracePeriod:    3 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

// Server accepts template connections and streams generated payloads to them
type Server struct {
	cfg       Config
	scheduler *worker.Scheduler
	gen       *generator.Generator
	sessions  *session.Registry
	mirror    Mirror
	logger    *slog.Logger
	metrics   *Metrics

	upgrader websocket.Upgrader
	mux      *http.ServeMux
	server   *http.Server

	connsMu sync.RWMutex
	conns   map[string]*connection
	wg      sync.WaitGroup

	ctx       context.Context
	cancel    context.CancelFunc
	running   atomic.Bool
	startedAt atomic.Int64 // unix nanos
	addr      atomic.Value // string
}

// NewServer validates cfg and builds the server. Routes are registered immediately;
// nothing listens until Start or Serve.
func NewServer(cfg Config) (*Server, error) {
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = def.GracePeriod
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.ReadTimeout {
		cfg.PingInterval = cfg.ReadTimeout / 2
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.Scheduler == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Server", "NewServer", "scheduler is required")
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Server", "NewServer",
			fmt.Sprintf("path %q must start with /", cfg.Path))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "stream")

	gen := cfg.Generator
	if gen == nil {
		gen = generator.New(generator.WithLogger(logger))
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewRegistry()
	}

	metrics, err := newMetrics(cfg.MetricsRegistry)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		scheduler: cfg.Scheduler,
		gen:       gen,
		sessions:  sessions,
		mirror:    cfg.Mirror,
		logger:    logger,
		metrics:   metrics,
		mux:       http.NewServeMux(),
		conns:     make(map[string]*connection),
		ctx:       ctx,
		cancel:    cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.addr.Store(fmt.Sprintf(":%d", cfg.Port))
	s.startedAt.Store(time.Now().UnixNano())

	s.mux.HandleFunc(routePattern(cfg.Path), s.handleWebSocket)
	s.mux.HandleFunc("GET /api/connection-count", s.handleConnectionCount)
	s.mux.HandleFunc("GET /api/websocket-info", s.handleWebSocketInfo)
	return s, nil
}

// "/" alone would match every unrouted path
func routePattern(path string) string {
	if path == "/" {
		return "/{$}"
	}
	return path
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.ContainsFunc(s.cfg.AllowedOrigins, func(allowed string) bool {
		return allowed == "*" || strings.EqualFold(allowed, origin)
	})
}

// Handle mounts an extra handler on the stream server's mux
func (s *Server) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the mux serving the stream endpoint and its HTTP side routes
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Sessions returns the registry backing this server
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// Address returns the listen address, or the configured one before Serve
func (s *Server) Address() string {
	return s.addr.Load().(string)
}

// URL returns the advertised client URL
func (s *Server) URL() string {
	return fmt.Sprintf("ws://localhost:%d%s", s.cfg.Port, s.cfg.Path)
}

// Start listens on the configured port and serves until Stop. It blocks.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return errors.WrapFatal(err, "Server", "Start", fmt.Sprintf("listen on port %d", s.cfg.Port))
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop. It blocks.
func (s *Server) Serve(ln net.Listener) error {
	if !s.running.CompareAndSwap(false, true) {
		_ = ln.Close()
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Server", "Serve", "serve")
	}
	if s.ctx.Err() != nil {
		_ = ln.Close()
		return errors.WrapInvalid(errors.ErrShuttingDown, "Server", "Serve", "serve")
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: s.cfg.WriteTimeout,
	}
	s.connsMu.Lock()
	s.server = srv
	s.connsMu.Unlock()

	s.addr.Store(ln.Addr().String())
	s.startedAt.Store(time.Now().UnixNano())
	s.logger.Info("Stream server listening", "address", ln.Addr().String(), "path", s.cfg.Path)

	s.wg.Add(1)
	go s.maintainClients()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		s.running.Store(false)
		return errors.WrapFatal(err, "Server", "Serve", "serve HTTP")
	}
	return nil
}

// Stop closes every connection, cancels all schedules and shuts the listener down
func (s *Server) Stop(timeout time.Duration) error {
	s.cancel()
	wasRunning := s.running.Swap(false)

	s.connsMu.RLock()
	srv := s.server
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.RUnlock()

	var shutdownErr error
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			shutdownErr = errors.WrapTransient(err, "Server", "Stop", "shutdown HTTP server")
		}
	}

	// hijacked connections are not tracked by http.Server
	for _, c := range conns {
		c.markCause("shutdown")
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
	s.sessions.CloseAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn("Stream goroutines did not exit within timeout", "timeout", timeout)
	}

	if wasRunning {
		s.logger.Info("Stream server stopped")
	}
	return shutdownErr
}

// Health reports the server state for health.Monitor
func (s *Server) Health() health.Status {
	var st health.Status
	switch {
	case s.running.Load():
		st = health.NewHealthy("stream", "serving")
	case s.ctx.Err() != nil:
		st = health.NewUnhealthy("stream", "stopped")
	default:
		st = health.NewDegraded("stream", "not listening")
	}
	return st.WithMetrics(&health.Metrics{
		Uptime:   time.Since(time.Unix(0, s.startedAt.Load())),
		Sessions: s.sessions.Len(),
	})
}

func (s *Server) handleConnectionCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]int{"count": s.sessions.Len()})
}

func (s *Server) handleWebSocketInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"port": s.cfg.Port,
		"path": s.cfg.Path,
		"url":  s.URL(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// maintainClients pings every connection on the ping interval
func (s *Server) maintainClients() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.pingClients()
		}
	}
}

func (s *Server) pingClients() {
	s.connsMu.RLock()
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.RUnlock()

	for _, c := range conns {
		if err := c.ping(); err != nil {
			s.metrics.sendError("ping", err)
			c.markCause("ping_failed")
			c.closeWith(websocket.CloseGoingAway, "ping failed")
		}
	}
}

func (s *Server) track(c *connection) {
	s.connsMu.Lock()
	s.conns[c.id] = c
	s.connsMu.Unlock()
}

func (s *Server) untrack(c *connection) {
	s.connsMu.Lock()
	delete(s.conns, c.id)
	s.connsMu.Unlock()
}

func (s *Server) refreshSessionGauge() {
	if s.metrics == nil {
		return
	}
	counts := s.sessions.CountByState()
	s.metrics.sessions(map[string]int{
		session.StateAwaitingTemplate.String(): counts[session.StateAwaitingTemplate],
		session.StateActive.String():           counts[session.StateActive],
	})
}
