package polling_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inspectsync/domain/events"
	"inspectsync/logging"
	"inspectsync/platform/polling"
	"inspectsync/test/helpers"
	"inspectsync/test/mocks"
)

const interval = 3 * time.Second

// recorder collects controller callbacks.
type recorder struct {
	mu      sync.Mutex
	updates []string
	errs    []error
	updated chan string
}

func newRecorder() *recorder {
	return &recorder{updated: make(chan string, 16)}
}

func (r *recorder) onUpdate(v string) {
	r.mu.Lock()
	r.updates = append(r.updates, v)
	r.mu.Unlock()
	r.updated <- v
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]string, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.updates...), append([]error(nil), r.errs...)
}

func (r *recorder) waitUpdate(t *testing.T) string {
	t.Helper()
	select {
	case v := <-r.updated:
		return v
	case <-time.After(time.Second):
		t.Fatal("no update within timeout")
		return ""
	}
}

// sequence returns a fetch function yielding the given results in order and
// repeating the last one.
func sequence(results ...any) (func(context.Context) (string, error), *atomic.Int32) {
	var calls atomic.Int32
	return func(ctx context.Context) (string, error) {
		i := int(calls.Add(1)) - 1
		if i >= len(results) {
			i = len(results) - 1
		}
		switch v := results[i].(type) {
		case error:
			return "", v
		default:
			return v.(string), nil
		}
	}, &calls
}

func newController(t *testing.T, clock *helpers.FakeClock, fetch func(context.Context) (string, error), rec *recorder, pub events.SyncEventPublisher) *polling.Controller[string] {
	t.Helper()
	c, err := polling.New(polling.Options[string]{
		Name:     "files",
		Resource: helpers.InspectionID,
		Interval: interval,
		Fetch:    fetch,
		Done:     func(s string) bool { return s == "done" },
		OnUpdate: rec.onUpdate,
		OnError:  rec.onError,
		Clock:    clock,
		Logger:   logging.Discard(),
		Events:   pub,
	})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresFetch(t *testing.T) {
	_, err := polling.New(polling.Options[int]{})
	assert.Error(t, err)
}

func TestController_PollsUntilTerminal(t *testing.T) {
	clock := helpers.NewFakeClock()
	rec := newRecorder()
	pub := &mocks.MockSyncEventPublisher{}
	pub.On("PublishPollStopped", mock.MatchedBy(func(e events.PollStoppedEvent) bool {
		return e.Poller == "files" && e.Fetches == 3
	})).Return().Once()

	fetch, calls := sequence("pending", "processing", "done")
	c := newController(t, clock, fetch, rec, pub)

	c.Subscribe()
	assert.Equal(t, "pending", rec.waitUpdate(t), "first fetch happens without delay")
	require.True(t, clock.BlockUntil(1, time.Second))
	assert.Equal(t, polling.StateScheduled, c.State())

	clock.Advance(interval - time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "no fetch before the interval elapses")

	clock.Advance(time.Millisecond)
	assert.Equal(t, "processing", rec.waitUpdate(t))

	clock.Advance(interval)
	assert.Equal(t, "done", rec.waitUpdate(t))
	assert.Equal(t, polling.StateStopped, c.State())

	// Idempotent termination: later windows never fetch again.
	for i := 0; i < 5; i++ {
		clock.Advance(interval)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, clock.Pending())
	assert.Equal(t, 3, c.Fetches())
	pub.AssertExpectations(t)
}

func TestController_UnsubscribeDiscardsInFlightResult(t *testing.T) {
	clock := helpers.NewFakeClock()
	rec := newRecorder()

	started := make(chan struct{})
	release := make(chan struct{})
	var sawCancel atomic.Bool
	fetch := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		sawCancel.Store(ctx.Err() != nil)
		return "late", nil
	}
	c := newController(t, clock, fetch, rec, nil)

	c.Subscribe()
	<-started
	c.Unsubscribe()
	close(release)

	time.Sleep(20 * time.Millisecond)
	updates, errs := rec.snapshot()
	assert.Empty(t, updates, "no update after unsubscribe")
	assert.Empty(t, errs)
	assert.True(t, sawCancel.Load())
	assert.Zero(t, clock.Pending())
	assert.Equal(t, polling.StateIdle, c.State())
}

func TestController_UnsubscribeClearsPendingFetch(t *testing.T) {
	clock := helpers.NewFakeClock()
	rec := newRecorder()
	fetch, calls := sequence("pending")
	c := newController(t, clock, fetch, rec, nil)

	c.Subscribe()
	rec.waitUpdate(t)
	require.True(t, clock.BlockUntil(1, time.Second))

	c.Unsubscribe()
	c.Unsubscribe()
	assert.Zero(t, clock.Pending())

	clock.Advance(10 * interval)
	assert.Equal(t, int32(1), calls.Load())
}

func TestController_InitialErrorSurfacedRecurringErrorSwallowed(t *testing.T) {
	clock := helpers.NewFakeClock()
	rec := newRecorder()
	pub := &mocks.MockSyncEventPublisher{}
	pub.On("PublishPollFailed", mock.MatchedBy(func(e events.PollFailedEvent) bool {
		return e.Error == "backend down" && e.Attempt == 1
	})).Return().Once()
	pub.On("PublishPollStopped", mock.Anything).Return()

	initial := errors.New("initial outage")
	fetch, calls := sequence(initial, "pending", errors.New("backend down"), "done")
	c := newController(t, clock, fetch, rec, pub)

	c.Subscribe()
	require.True(t, clock.BlockUntil(1, time.Second), "failure keeps the schedule")
	_, errs := rec.snapshot()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], initial)

	clock.Advance(interval)
	assert.Equal(t, "pending", rec.waitUpdate(t))

	clock.Advance(interval)
	assert.Equal(t, int32(3), calls.Load())
	require.Equal(t, 1, clock.Pending(), "swallowed failure keeps the schedule")

	clock.Advance(interval)
	assert.Equal(t, "done", rec.waitUpdate(t))

	_, errs = rec.snapshot()
	assert.Len(t, errs, 1, "recurring failure never reaches the view")
	pub.AssertExpectations(t)
}

func TestController_FetchesAreSequential(t *testing.T) {
	clock := helpers.NewFakeClock()
	rec := newRecorder()

	var inFlight, maxInFlight atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return "pending", nil
	}
	c := newController(t, clock, fetch, rec, nil)
	c.Subscribe()
	rec.waitUpdate(t)

	for i := 0; i < 5; i++ {
		require.True(t, clock.BlockUntil(1, time.Second))
		// Advancing far past several intervals still yields one fetch.
		clock.Advance(4 * interval)
		rec.waitUpdate(t)
	}
	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, 6, c.Fetches())
	c.Unsubscribe()
}

func TestController_ResubscribeCancelsPreviousGeneration(t *testing.T) {
	clock := helpers.NewFakeClock()
	rec := newRecorder()
	fetch, calls := sequence("pending")
	c := newController(t, clock, fetch, rec, nil)

	c.Subscribe()
	rec.waitUpdate(t)
	require.True(t, clock.BlockUntil(1, time.Second))

	c.Subscribe()
	rec.waitUpdate(t)
	require.True(t, clock.BlockUntil(1, time.Second))
	assert.Equal(t, 1, clock.Pending(), "the old timer was stopped")

	clock.Advance(interval)
	rec.waitUpdate(t)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, c.Fetches(), "fetch count restarts with the new generation")
	c.Unsubscribe()
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "scheduled", polling.StateScheduled.String())
	assert.Equal(t, "stopped", polling.StateStopped.String())
}
