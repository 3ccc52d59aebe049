package inference

import (
	"sync"
	"time"
)

// Logger defines the logging interface used by the inference components.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Availability states of the model-assisted extraction path.
const (
	StateUnknown     = "unknown"
	StateAvailable   = "available"
	StateUnavailable = "unavailable"
	StateDisabled    = "disabled"
)

// Status is a point-in-time snapshot of the availability controller,
// surfaced on the system status endpoint.
type Status struct {
	State               string    `json:"state"`
	LastAttempt         time.Time `json:"last_attempt,omitzero"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
}

// Controller tracks whether the model-assisted extraction path is worth
// attempting. There is no dedicated probe timer: real requests double as
// probes, and their outcomes drive the state machine. After a failure the
// path rests for a cooldown before the next opportunistic attempt.
//
// Disabled is a configuration override and terminal; outcome reports are
// ignored in that state.
//
// Thread Safety: safe for concurrent use.
type Controller struct {
	mu       sync.Mutex
	state    string
	last     time.Time
	failures int
	lastErr  error

	cooldown     time.Duration
	logger       Logger
	now          func() time.Time
	onTransition func(Status)
}

// NewController creates a controller in the Unknown state. The first
// request that comes through doubles as the initial probe.
func NewController(cooldown time.Duration) *Controller {
	return &Controller{
		state:    StateUnknown,
		cooldown: cooldown,
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// Disabled creates a controller permanently in the Disabled state, used
// when the model path is switched off in configuration.
func Disabled() *Controller {
	c := NewController(0)
	c.state = StateDisabled
	return c
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetOnTransition sets a callback invoked with the new status whenever
// the state changes. Set during wiring, before requests flow; the
// callback runs outside the controller lock.
func (c *Controller) SetOnTransition(callback func(Status)) {
	c.onTransition = callback
}

// ShouldAttempt reports whether the next request may try the model path.
// When the cooldown elapses in Unavailable the first caller claims the
// probe by resetting the rest window, so concurrent requests do not all
// pile onto a struggling model before its outcome is known.
func (c *Controller) ShouldAttempt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateDisabled:
		return false
	case StateUnavailable:
		if now := c.now(); now.Sub(c.last) >= c.cooldown {
			c.last = now
			return true
		}
		return false
	default:
		return true
	}
}

// ReportSuccess records a successful model extraction.
func (c *Controller) ReportSuccess() {
	c.mu.Lock()
	if c.state == StateDisabled {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = StateAvailable
	c.last = c.now()
	c.failures = 0
	c.lastErr = nil
	status := c.statusLocked()
	c.mu.Unlock()

	if prev != StateAvailable {
		c.logger.Info("model path available", "previous_state", prev)
		if c.onTransition != nil {
			c.onTransition(status)
		}
	}
}

// ReportFailure records a failed model extraction and its cause.
func (c *Controller) ReportFailure(err error) {
	c.mu.Lock()
	if c.state == StateDisabled {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = StateUnavailable
	c.last = c.now()
	c.failures++
	c.lastErr = err
	status := c.statusLocked()
	c.mu.Unlock()

	if prev != StateUnavailable {
		c.logger.Warn("model path unavailable",
			"previous_state", prev,
			"error", err,
		)
		if c.onTransition != nil {
			c.onTransition(status)
		}
	}
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// statusLocked builds a status snapshot. Callers must hold c.mu.
func (c *Controller) statusLocked() Status {
	s := Status{
		State:               c.state,
		LastAttempt:         c.last,
		ConsecutiveFailures: c.failures,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}
