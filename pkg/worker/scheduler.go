package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/choi857/kinetic-simulator/metric"
)

// Task is one run of scheduled work
type Task func(ctx context.Context)

type job struct {
	handle *Handle
	task   Task
}

// Handle identifies a scheduled task. Cancel is idempotent; once it returns the task
// is never started again, though a run already in progress completes.
type Handle struct {
	cancelled atomic.Bool
	once      sync.Once
	sched     *Scheduler

	mu   sync.Mutex
	stop func() // must be idempotent
}

// Cancel stops future runs of the task
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		h.cancelled.Store(true)
		h.mu.Lock()
		stop := h.stop
		h.mu.Unlock()
		if stop != nil {
			stop()
		}
		h.sched.forget(h)
	})
}

// setStop attaches the timer teardown; a handle cancelled in the meantime is stopped at once
func (h *Handle) setStop(stop func()) {
	h.mu.Lock()
	h.stop = stop
	cancelled := h.cancelled.Load()
	h.mu.Unlock()
	if cancelled {
		stop()
	}
}

// Cancelled reports whether Cancel has been called
func (h *Handle) Cancelled() bool {
	return h != nil && h.cancelled.Load()
}

// SchedulerConfig configures a Scheduler
type SchedulerConfig struct {
	Workers   int
	QueueSize int
	Logger    *slog.Logger

	// Registry and MetricsPrefix enable pool metrics when both are set
	Registry      *metric.MetricsRegistry
	MetricsPrefix string
}

// Scheduler runs one-shot and fixed-rate tasks on a bounded worker pool. Timers only
// enqueue work; the pool's workers execute it.
type Scheduler struct {
	pool   *Pool[job]
	logger *slog.Logger

	mu      sync.Mutex
	active  map[*Handle]struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// NewScheduler creates a scheduler; call Start before scheduling anything
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		logger: cfg.Logger,
		active: make(map[*Handle]struct{}),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "scheduler")

	var opts []Option[job]
	if cfg.Registry != nil && cfg.MetricsPrefix != "" {
		opts = append(opts, WithMetricsRegistry[job](cfg.Registry, cfg.MetricsPrefix))
	}
	s.pool = NewPool(cfg.Workers, cfg.QueueSize, s.process, opts...)
	return s
}

// Start starts the worker pool
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrPoolAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	if err := s.pool.Start(s.ctx); err != nil {
		s.cancel()
		return err
	}
	s.started = true
	return nil
}

// Stop cancels every outstanding handle and drains the pool
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	handles := make([]*Handle, 0, len(s.active))
	for h := range s.active {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}

	err := s.pool.Stop(timeout)
	s.cancel()
	return err
}

// After runs task once after delay
func (s *Scheduler) After(delay time.Duration, task Task) (*Handle, error) {
	h, err := s.track()
	if err != nil {
		return nil, err
	}

	timer := time.AfterFunc(delay, func() {
		s.submit(h, task)
		s.forget(h)
	})
	h.setStop(func() { timer.Stop() })
	return h, nil
}

// Every runs task at a fixed rate: run n is due at install time + n*interval.
// A tick that finds the queue full is dropped, not delayed.
func (s *Scheduler) Every(interval time.Duration, task Task) (*Handle, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	h, err := s.track()
	if err != nil {
		return nil, err
	}

	ctx, stop := context.WithCancel(s.ctx)
	h.setStop(stop)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.submit(h, task)
			}
		}
	}()
	return h, nil
}

// Active returns the number of handles that are neither cancelled nor finished
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Stats returns the underlying pool statistics
func (s *Scheduler) Stats() PoolStats {
	return s.pool.Stats()
}

func (s *Scheduler) track() (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, ErrPoolNotStarted
	}
	if s.ctx.Err() != nil {
		return nil, ErrPoolStopped
	}
	h := &Handle{sched: s}
	s.active[h] = struct{}{}
	return h, nil
}

func (s *Scheduler) forget(h *Handle) {
	s.mu.Lock()
	delete(s.active, h)
	s.mu.Unlock()
}

func (s *Scheduler) submit(h *Handle, task Task) {
	if h.Cancelled() {
		return
	}
	if err := s.pool.Submit(job{handle: h, task: task}); err != nil {
		s.logger.Debug("scheduled run dropped", "error", err)
	}
}

func (s *Scheduler) process(ctx context.Context, j job) error {
	if j.handle.Cancelled() {
		return nil
	}
	j.task(ctx)
	return nil
}
