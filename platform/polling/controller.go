// Package polling implements a per-view refresh loop: fetch immediately,
// refetch on a fixed interval until a terminal result is seen, and drop
// everything on unsubscribe.
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inspectsync/domain/events"
	"inspectsync/logging"
)

// State is the lifecycle of a controller.
type State int

const (
	StateIdle      State = iota // not subscribed
	StateFetching               // a fetch is in flight
	StateScheduled              // waiting for the next interval
	StateStopped                // terminal result observed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateScheduled:
		return "scheduled"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Controller.
type Options[T any] struct {
	Name     string        // Poller name used in logs and events
	Resource string        // Watched resource ID used in logs and events
	Interval time.Duration // Delay between a completed fetch and the next one

	Fetch func(ctx context.Context) (T, error)
	Done  func(T) bool // Terminal predicate; nil never terminates

	// OnUpdate receives every successful result. OnError receives failures
	// until the first success; later failures are logged and published only.
	// Neither may call Subscribe or Unsubscribe on the same controller.
	OnUpdate func(T)
	OnError  func(error)

	Clock  Clock
	Logger *logging.Logger
	Events events.SyncEventPublisher
}

// Controller runs one fetch loop at a time. Fetches are strictly sequential:
// the next one is scheduled only after the previous continuation finished.
//
// Every continuation is stamped with the generation it was started in.
// Unsubscribe and Subscribe bump the generation under the same lock the
// callbacks run under, so once either returns no callback from an earlier
// generation can run.
type Controller[T any] struct {
	opts   Options[T]
	clock  Clock
	logger *logging.Logger

	mu        sync.Mutex
	gen       uint64
	state     State
	timer     Timer
	cancel    context.CancelFunc
	fetches   int
	failures  int
	succeeded bool
}

// DefaultInterval is used when Options.Interval is not positive.
const DefaultInterval = 5 * time.Second

// New creates an idle controller.
func New[T any](opts Options[T]) (*Controller[T], error) {
	if opts.Fetch == nil {
		return nil, errors.New("polling: fetch function is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Name == "" {
		opts.Name = "poller"
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller[T]{
		opts:   opts,
		clock:  clock,
		logger: logger.WithComponent("poller").With("poller", opts.Name, "resource", opts.Resource),
	}, nil
}

// Subscribe starts a fresh loop with an immediate fetch. A loop that is
// already running is cancelled first.
func (c *Controller[T]) Subscribe() {
	c.mu.Lock()
	c.resetLocked()
	gen := c.gen
	c.state = StateFetching
	c.mu.Unlock()

	c.logger.Polling("Subscribed", "generation", gen, "interval", c.opts.Interval.String())
	go c.run(gen)
}

// Unsubscribe stops the loop. A pending fetch is cleared and an in-flight one
// is cancelled; its result is discarded. Safe to call repeatedly.
func (c *Controller[T]) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		return
	}
	c.resetLocked()
	c.logger.Polling("Unsubscribed", "generation", c.gen)
}

// State returns the current lifecycle state.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Fetches returns the number of completed fetches in the current generation.
func (c *Controller[T]) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// resetLocked invalidates the current generation. Callers hold c.mu.
func (c *Controller[T]) resetLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateIdle
	c.fetches = 0
	c.failures = 0
	c.succeeded = false
}

func (c *Controller[T]) run(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.timer = nil
	c.state = StateFetching
	c.mu.Unlock()

	start := c.clock.Now()
	result, err := c.opts.Fetch(ctx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Polling("Discarded stale result", "generation", gen)
		return
	}
	c.cancel = nil
	c.fetches++

	if err != nil {
		c.handleErrorLocked(err)
		c.scheduleLocked(gen)
		return
	}

	c.succeeded = true
	c.failures = 0
	if c.opts.OnUpdate != nil {
		c.opts.OnUpdate(result)
	}
	c.logger.Polling("Fetch completed", "fetch", c.fetches, "duration_ms", c.clock.Now().Sub(start).Milliseconds())

	if c.opts.Done != nil && c.opts.Done(result) {
		c.state = StateStopped
		c.logger.Polling("Terminal result observed", "fetches", c.fetches)
		if c.opts.Events != nil {
			c.opts.Events.PublishPollStopped(events.PollStoppedEvent{
				Poller:    c.opts.Name,
				Resource:  c.opts.Resource,
				Fetches:   c.fetches,
				Timestamp: c.clock.Now(),
			})
		}
		return
	}
	c.scheduleLocked(gen)
}

func (c *Controller[T]) handleErrorLocked(err error) {
	c.failures++
	if !c.succeeded {
		if c.opts.OnError != nil {
			c.opts.OnError(err)
		}
		return
	}

	c.logger.Warn("Background refresh failed",
		"poller", c.opts.Name,
		"resource", c.opts.Resource,
		"attempt", c.failures,
		"error", err.Error())
	if c.opts.Events != nil {
		c.opts.Events.PublishPollFailed(events.PollFailedEvent{
			Poller:    c.opts.Name,
			Resource:  c.opts.Resource,
			Error:     err.Error(),
			Attempt:   c.failures,
			Timestamp: c.clock.Now(),
		})
	}
}

func (c *Controller[T]) scheduleLocked(gen uint64) {
	c.state = StateScheduled
	c.timer = c.clock.AfterFunc(c.opts.Interval, func() { c.run(gen) })
}
