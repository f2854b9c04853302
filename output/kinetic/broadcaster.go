package kinetic

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/choi857/kinetic-simulator/errors"
	"github.com/choi857/kinetic-simulator/metric"
	"github.com/choi857/kinetic-simulator/pkg/worker"
)

// Fixed texts of the demo endpoint
const (
	ReplyPrefix = "server received: "
	TestMessage = "this is a test message"
)

const metricsService = "kinetic"

// Router is anything routes can be mounted on, such as *http.ServeMux or the stream server
type Router interface {
	Handle(pattern string, h http.Handler)
}

// Config configures the broadcaster
type Config struct {
	Path         string
	Interval     time.Duration
	WriteTimeout time.Duration
	// Scheduler runs the broadcast ticks. Required.
	Scheduler *worker.Scheduler
	// Seed makes frames reproducible when non-zero
	Seed            uint64
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

type metrics struct {
	core    *metric.Metrics
	clients prometheus.Gauge
	frames  prometheus.Counter
}

func newMetrics(registry *metric.MetricsRegistry) (*metrics, error) {
	if registry == nil {
		return nil, nil
	}
	m := &metrics{
		core: registry.CoreMetrics(),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kinetic",
			Subsystem: "demo",
			Name:      "clients",
			Help:      "Connected demo clients",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kinetic",
			Subsystem: "demo",
			Name:      "frames_total",
			Help:      "Frames written to demo clients",
		}),
	}
	if err := registry.RegisterGauge(metricsService, "clients", m.clients); err != nil {
		return nil, errors.Wrap(err, "kinetic", "newMetrics", "register demo metrics")
	}
	if err := registry.RegisterCounter(metricsService, "frames_total", m.frames); err != nil {
		return nil, errors.Wrap(err, "kinetic", "newMetrics", "register demo metrics")
	}
	return m, nil
}

func (m *metrics) online(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}

func (m *metrics) wrote() {
	if m == nil {
		return
	}
	m.frames.Inc()
	m.core.RecordPayload(metricsService, "websocket")
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func (c *client) write(data []byte, timeout time.Duration) error {
	if c.closed.Load() {
		return errors.ErrConnectionLost
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) close() {
	if c.closed.Swap(true) {
		return
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	_ = c.conn.Close()
}

// Broadcaster pushes fixed-schema kinetic frames to every connected client
type Broadcaster struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
	metrics  *metrics

	rngMu sync.Mutex
	rng   *rand.Rand

	mu      sync.RWMutex
	clients map[*client]struct{}

	handle  *worker.Handle
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// New creates a broadcaster; call Register to mount it and Start to begin ticking
func New(cfg Config) (*Broadcaster, error) {
	if cfg.Scheduler == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "kinetic", "New", "scheduler is required")
	}
	if cfg.Path == "" {
		cfg.Path = "/websocket/kinetic"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m, err := newMetrics(cfg.MetricsRegistry)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Broadcaster{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "kinetic"),
		metrics: m,
		rng:     rand.New(rand.NewPCG(seed, seed>>1|1)),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}, nil
}

// Register mounts the WebSocket endpoint and the test routes
func (b *Broadcaster) Register(r Router) {
	r.Handle(b.cfg.Path, http.HandlerFunc(b.handleWebSocket))
	r.Handle("GET /api/test/push", http.HandlerFunc(b.handlePush))
	r.Handle("GET /api/test/online-count", http.HandlerFunc(b.handleOnlineCount))
	r.Handle("GET /api/test/send-message", http.HandlerFunc(b.handleSendMessage))
}

// Start installs the recurring broadcast
func (b *Broadcaster) Start() error {
	h, err := b.cfg.Scheduler.Every(b.cfg.Interval, func(context.Context) { b.tick() })
	if err != nil {
		return errors.Wrap(err, "kinetic", "Start", "schedule broadcast")
	}
	b.handle = h
	b.logger.Info("Kinetic broadcaster started", "path", b.cfg.Path, "interval", b.cfg.Interval)
	return nil
}

// Stop cancels the broadcast and closes every client
func (b *Broadcaster) Stop(timeout time.Duration) {
	if b.stopped.Swap(true) {
		return
	}
	b.handle.Cancel()

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		b.logger.Warn("Kinetic clients did not exit within timeout", "timeout", timeout)
	}
}

// Online returns the number of connected clients
func (b *Broadcaster) Online() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Frame draws and encodes one frame
func (b *Broadcaster) Frame() []byte {
	b.rngMu.Lock()
	f := NewFrame(b.rng)
	b.rngMu.Unlock()
	return f.Encode()
}

// Broadcast writes data to every client and returns how many writes succeeded
func (b *Broadcaster) Broadcast(data []byte) int {
	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.RUnlock()

	sent := 0
	for _, c := range clients {
		if err := c.write(data, b.cfg.WriteTimeout); err != nil {
			b.logger.Debug("Kinetic write failed", "error", err)
			continue
		}
		b.metrics.wrote()
		sent++
	}
	return sent
}

func (b *Broadcaster) tick() {
	if b.Online() == 0 {
		return
	}
	n := b.Broadcast(b.Frame())
	b.logger.Debug("Kinetic frame broadcast", "clients", n)
}

func (b *Broadcaster) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if b.stopped.Load() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: ws}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	online := len(b.clients)
	b.mu.Unlock()
	b.metrics.online(online)
	b.logger.Info("Kinetic client connected", "remote", r.RemoteAddr, "online", online)

	if err := c.write(b.Frame(), b.cfg.WriteTimeout); err == nil {
		b.metrics.wrote()
	}

	b.wg.Add(1)
	go b.serve(c)
}

func (b *Broadcaster) serve(c *client) {
	defer b.wg.Done()
	defer b.remove(c)

	c.conn.SetReadLimit(64 << 10)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if err := c.write([]byte(ReplyPrefix+string(data)), b.cfg.WriteTimeout); err != nil {
			b.logger.Debug("Kinetic reply failed", "error", err)
		}
	}
}

func (b *Broadcaster) remove(c *client) {
	c.closed.Store(true)
	_ = c.conn.Close()

	b.mu.Lock()
	delete(b.clients, c)
	online := len(b.clients)
	b.mu.Unlock()
	b.metrics.online(online)
	b.logger.Info("Kinetic client disconnected", "online", online)
}

func (b *Broadcaster) handlePush(w http.ResponseWriter, _ *http.Request) {
	sent := b.Broadcast(b.Frame())
	writeJSON(w, map[string]any{"status": "pushed", "sent": sent, "online": b.Online()})
}

func (b *Broadcaster) handleOnlineCount(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]int{"count": b.Online()})
}

func (b *Broadcaster) handleSendMessage(w http.ResponseWriter, _ *http.Request) {
	sent := b.Broadcast([]byte(TestMessage))
	writeJSON(w, map[string]any{"status": "sent", "message": TestMessage, "sent": sent})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
