package session

import (
	"sync"
	"time"

	"github.com/choi857/kinetic-simulator/errors"
	"github.com/choi857/kinetic-simulator/template"
)

// State is the lifecycle position of a connection
type State int

// Connection states. Closed is terminal.
const (
	StateAwaitingTemplate State = iota
	StateActive
	StateClosed
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case StateAwaitingTemplate:
		return "awaiting_template"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Canceler is a cancellable scheduled task
type Canceler interface {
	Cancel()
}

// Entry is the per-connection record: its state, accepted configuration and the
// handles of its scheduled work. All fields are guarded by mu so a schedule swap and
// the matching configuration update are observed together.
type Entry struct {
	ID       string
	OpenedAt time.Time

	mu       sync.Mutex
	state    State
	config   *template.Config
	schedule Canceler
	grace    Canceler
	adopted  bool
}

func newEntry(id string) *Entry {
	return &Entry{ID: id, OpenedAt: time.Now(), state: StateAwaitingTemplate}
}

// State returns the current state
func (e *Entry) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Config returns the accepted configuration, nil while awaiting
func (e *Entry) Config() *template.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Adopted reports whether the configuration came from the global fallback
func (e *Entry) Adopted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.adopted
}

// Claim moves an awaiting entry to active with cfg. Only the first caller wins;
// later callers get ErrAlreadyClaimed, and a closed entry gives ErrSessionClosed.
func (e *Entry) Claim(cfg *template.Config) error {
	return e.claim(cfg, false)
}

// ClaimFallback is Claim for a configuration taken from the global fallback
func (e *Entry) ClaimFallback(cfg *template.Config) error {
	return e.claim(cfg, true)
}

func (e *Entry) claim(cfg *template.Config, adopted bool) error {
	if cfg == nil {
		return errors.WrapInvalid(errors.ErrNoTemplate, "session", "Claim", "claim session")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateClosed:
		return errors.ErrSessionClosed
	case StateActive:
		return errors.ErrAlreadyClaimed
	}
	e.state = StateActive
	e.config = cfg
	e.adopted = adopted
	if e.grace != nil {
		e.grace.Cancel()
		e.grace = nil
	}
	return nil
}

// SetGrace stores the grace timer. On a closed entry the timer is cancelled at once.
func (e *Entry) SetGrace(h Canceler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		h.Cancel()
		return
	}
	if e.grace != nil {
		e.grace.Cancel()
	}
	e.grace = h
}

// SetSchedule installs h as the recurring schedule and cancels any previous one. On
// a closed entry h is cancelled and ErrSessionClosed returned.
func (e *Entry) SetSchedule(h Canceler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		h.Cancel()
		return errors.ErrSessionClosed
	}
	old := e.schedule
	e.schedule = h
	if old != nil {
		old.Cancel()
	}
	return nil
}

// Reschedule replaces the configuration's cadence. install builds the new schedule
// for the updated configuration; the old schedule is cancelled only after install
// succeeds, all under the entry lock.
func (e *Entry) Reschedule(seconds float64, install func(*template.Config) (Canceler, error)) (*template.Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateClosed:
		return nil, errors.ErrSessionClosed
	case StateAwaitingTemplate:
		return nil, errors.WrapInvalid(errors.ErrNoTemplate, "session", "Reschedule", "change cadence")
	}

	next := e.config.WithPushInterval(seconds)
	h, err := install(next)
	if err != nil {
		return nil, errors.Wrap(err, "session", "Reschedule", "install schedule")
	}

	old := e.schedule
	e.schedule = h
	e.config = next
	if old != nil {
		old.Cancel()
	}
	return next, nil
}

// Close cancels every handle and marks the entry closed. It is idempotent.
func (e *Entry) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return
	}
	e.state = StateClosed
	if e.schedule != nil {
		e.schedule.Cancel()
		e.schedule = nil
	}
	if e.grace != nil {
		e.grace.Cancel()
		e.grace = nil
	}
}
