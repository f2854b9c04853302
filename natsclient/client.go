package natsclient

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/choi857/kinetic-simulator/errors"
	"github.com/choi857/kinetic-simulator/health"
	"github.com/choi857/kinetic-simulator/metric"
	"github.com/choi857/kinetic-simulator/pkg/retry"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int32

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusClosed
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by Publish before Connect succeeds or after Close
var ErrNotConnected = stderrors.New("not connected to NATS")

// Client owns one NATS connection used for fire-and-forget publishing
type Client struct {
	url    string
	status atomic.Int32
	logger *slog.Logger

	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	clientName    string
	connectRetry  retry.Config
	metrics       *metric.Metrics

	mu      sync.RWMutex
	conn    *nats.Conn
	closed  chan struct{} // closed by the library once conn is fully shut
	lastErr error

	published atomic.Int64
	failed    atomic.Int64

	closeOnce sync.Once
}

// NewClient creates a client for url; nothing is dialed until Connect
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:           url,
		logger:        slog.Default(),
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		pingInterval:  30 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  5 * time.Second,
		connectRetry:  errors.DefaultRetryConfig().ToRetryConfig(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	c.logger = c.logger.With("component", "natsclient")
	c.setStatus(StatusDisconnected)
	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string { return c.url }

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

func (c *Client) setStatus(s ConnectionStatus) {
	c.status.Store(int32(s))
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(s == StatusConnected)
	}
}

// IsHealthy returns true while the connection is up
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Conn returns the underlying connection, nil before Connect
func (c *Client) Conn() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Client) options(closed chan struct{}) []nats.Option {
	var once sync.Once
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.PingInterval(c.pingInterval),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(func(nc *nats.Conn) {
			once.Do(func() { close(closed) })
			c.handleClosed(nc)
		}),
		nats.ErrorHandler(c.handleError),
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}
	return opts
}

// Connect dials the server, retrying with backoff until ctx ends or the
// retry budget is spent
func (c *Client) Connect(ctx context.Context) error {
	if c.Status() == StatusClosed {
		return errors.WrapFatal(errors.ErrShuttingDown, "Client", "Connect", "connect closed client")
	}
	if c.IsHealthy() {
		return nil
	}

	c.setStatus(StatusConnecting)
	c.logger.Info("Connecting to NATS", "url", c.url)

	closed := make(chan struct{})
	opts := c.options(closed)
	attempt := 0
	conn, err := retry.DoWithResult(ctx, c.connectRetry, func() (*nats.Conn, error) {
		attempt++
		conn, err := nats.Connect(c.url, opts...)
		if err != nil {
			c.logger.Debug("NATS connect attempt failed", "attempt", attempt, "error", err)
			if permanent(err) {
				return nil, retry.NonRetryable(err)
			}
		}
		return conn, err
	})
	if err != nil {
		c.recordErr(err)
		c.setStatus(StatusDisconnected)
		if retry.IsNonRetryable(err) {
			return errors.WrapFatal(err, "Client", "Connect", "establish connection")
		}
		return errors.WrapTransient(err, "Client", "Connect", "establish connection")
	}

	c.mu.Lock()
	c.conn = conn
	c.closed = closed
	c.lastErr = nil
	c.mu.Unlock()
	c.setStatus(StatusConnected)

	c.logger.Info("Connected to NATS", "url", c.url, "attempts", attempt)
	return nil
}

// permanent reports connect errors that another attempt cannot fix
func permanent(err error) bool {
	var urlErr *url.Error
	return stderrors.Is(err, nats.ErrAuthorization) ||
		stderrors.Is(err, nats.ErrAuthExpired) ||
		stderrors.Is(err, nats.ErrAuthRevoked) ||
		stderrors.As(err, &urlErr)
}

// Publish sends data on subject without waiting for a server acknowledgement
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.WrapTransient(err, "Client", "Publish", "publish")
	}
	conn := c.Conn()
	if conn == nil || c.Status() == StatusClosed {
		c.failed.Add(1)
		return errors.WrapTransient(ErrNotConnected, "Client", "Publish", "publish")
	}
	if err := conn.Publish(subject, data); err != nil {
		c.failed.Add(1)
		c.recordErr(err)
		return errors.WrapTransient(err, "Client", "Publish", "publish to "+subject)
	}
	c.published.Add(1)
	return nil
}

// Flush waits until the server has processed everything published so far
func (c *Client) Flush(ctx context.Context) error {
	conn := c.Conn()
	if conn == nil {
		return errors.WrapTransient(ErrNotConnected, "Client", "Flush", "flush")
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		return errors.WrapTransient(err, "Client", "Flush", "flush")
	}
	return nil
}

// Health reports the connection for health.Monitor
func (c *Client) Health() health.Status {
	c.mu.RLock()
	lastErr := c.lastErr
	c.mu.RUnlock()

	var status health.Status
	switch c.Status() {
	case StatusConnected:
		status = health.NewHealthy("nats", "connected")
	case StatusConnecting, StatusReconnecting:
		status = health.NewDegraded("nats", c.Status().String())
	default:
		status = health.FromError("nats", lastErr, "")
		if lastErr == nil {
			status = health.NewUnhealthy("nats", c.Status().String())
		}
	}
	return status.WithMetrics(&health.Metrics{ErrorCount: int(c.failed.Load())})
}

// Stats returns the number of successful and failed publishes
func (c *Client) Stats() (published, failed int64) {
	return c.published.Load(), c.failed.Load()
}

// Close drains the connection; later calls are no-ops
func (c *Client) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.RLock()
		conn, closed := c.conn, c.closed
		c.mu.RUnlock()
		c.setStatus(StatusClosed)
		if conn == nil {
			return
		}

		if derr := conn.Drain(); derr != nil && !stderrors.Is(derr, nats.ErrConnectionClosed) {
			conn.Close()
			err = errors.WrapTransient(derr, "Client", "Close", "drain connection")
		}
		select {
		case <-closed:
		case <-ctx.Done():
			conn.Close()
			if err == nil {
				err = errors.WrapTransient(ctx.Err(), "Client", "Close", "drain connection")
			}
		}
		c.logger.Info("NATS connection closed", "url", c.url)
	})
	return err
}

func (c *Client) recordErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.Status() == StatusClosed {
		return
	}
	c.setStatus(StatusReconnecting)
	if err != nil {
		c.recordErr(err)
		c.logger.Warn("NATS disconnected", "error", err)
		return
	}
	c.logger.Warn("NATS disconnected")
}

func (c *Client) handleReconnect(nc *nats.Conn) {
	c.setStatus(StatusConnected)
	c.logger.Info("NATS reconnected", "server", nc.ConnectedUrlRedacted())
}

func (c *Client) handleClosed(_ *nats.Conn) {
	if c.Status() != StatusClosed {
		c.setStatus(StatusDisconnected)
		c.logger.Warn("NATS connection closed by client library")
	}
}

func (c *Client) handleError(_ *nats.Conn, _ *nats.Subscription, err error) {
	c.recordErr(err)
	c.logger.Error("NATS async error", "error", err)
}

// Subject joins prefix and a session id into a publish subject. Characters
// NATS treats as separators or wildcards are replaced in the id.
func Subject(prefix, sessionID string) string {
	id := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, sessionID)
	if prefix == "" {
		return id
	}
	return prefix + "." + id
}

// Mirror publishes session payloads under a fixed subject prefix
type Mirror struct {
	client *Client
	prefix string
}

// NewMirror creates a Mirror publishing through client
func NewMirror(client *Client, prefix string) *Mirror {
	return &Mirror{client: client, prefix: prefix}
}

// Mirror publishes payload to <prefix>.<sessionID>
func (m *Mirror) Mirror(ctx context.Context, sessionID string, payload []byte) error {
	return m.client.Publish(ctx, Subject(m.prefix, sessionID), payload)
}
