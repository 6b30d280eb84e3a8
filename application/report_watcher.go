package application

import (
	"context"
	"sync"
	"time"

	"inspectsync/domain/events"
	"inspectsync/logging"
	"inspectsync/platform/polling"
)

// DefaultReportPollInterval is the refresh interval of the report view.
const DefaultReportPollInterval = 5 * time.Second

// ReportLoader loads a joined report.
type ReportLoader interface {
	LoadReport(ctx context.Context, inspectionID string) (*Report, error)
}

// ReportWatcher keeps a report up to date until the inspection reaches a
// terminal status (completed or review).
type ReportWatcher struct {
	mu       sync.RWMutex
	state    ReportState
	onChange func(ReportState)
	ctrl     *polling.Controller[*Report]
}

// NewReportWatcher creates a watcher for one inspection. onChange, if set,
// receives a copy of every new state; it must not call Start or Stop.
func NewReportWatcher(loader ReportLoader, inspectionID string, opts WatcherOptions, publisher events.SyncEventPublisher, logger *logging.Logger, onChange func(ReportState)) (*ReportWatcher, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultReportPollInterval
	}
	w := &ReportWatcher{onChange: onChange}

	ctrl, err := polling.New(polling.Options[*Report]{
		Name:     "report",
		Resource: inspectionID,
		Interval: interval,
		Fetch: func(ctx context.Context) (*Report, error) {
			return loader.LoadReport(ctx, inspectionID)
		},
		Done: func(r *Report) bool {
			return r.Inspection.Status.IsTerminal()
		},
		OnUpdate: w.applyReport,
		OnError:  w.applyError,
		Clock:    opts.Clock,
		Logger:   logger,
		Events:   publisher,
	})
	if err != nil {
		return nil, err
	}
	w.ctrl = ctrl
	return w, nil
}

// Start (re)subscribes: the current state resets to loading and an immediate fetch runs.
func (w *ReportWatcher) Start() {
	w.ctrl.Unsubscribe()
	w.mu.Lock()
	w.state = ReportState{Loading: true}
	w.mu.Unlock()
	w.ctrl.Subscribe()
}

// Stop unsubscribes. No state change happens after Stop returns.
func (w *ReportWatcher) Stop() {
	w.ctrl.Unsubscribe()
}

// State returns a copy of the current state.
func (w *ReportWatcher) State() ReportState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.clone()
}

func (w *ReportWatcher) applyReport(r *Report) {
	next := ReportState{
		Report:    r,
		Final:     r.Inspection.Status.IsTerminal(),
		UpdatedAt: time.Now(),
	}
	w.publish(next)
}

func (w *ReportWatcher) applyError(err error) {
	w.mu.RLock()
	next := w.state.clone()
	w.mu.RUnlock()

	next.Err = err
	next.Loading = false
	w.publish(next)
}

func (w *ReportWatcher) publish(next ReportState) {
	w.mu.Lock()
	w.state = next
	w.mu.Unlock()
	if w.onChange != nil {
		w.onChange(next.clone())
	}
}
