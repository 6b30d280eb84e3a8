package application

import (
	"context"
	"sync"
	"time"

	"inspectsync/domain/events"
	"inspectsync/domain/inspections"
	"inspectsync/logging"
	"inspectsync/platform/polling"
)

// DefaultFilesPollInterval is the refresh interval of the file list view.
const DefaultFilesPollInterval = 3 * time.Second

// FileLister lists an inspection's files.
type FileLister interface {
	ListFiles(ctx context.Context, inspectionID string) ([]inspections.FileRecord, error)
}

// FileStatusWatcher keeps the file list up to date until every file has
// settled. An empty list is not settled: uploads may still be registering.
type FileStatusWatcher struct {
	mu       sync.RWMutex
	state    FileListState
	onChange func(FileListState)
	ctrl     *polling.Controller[[]inspections.FileRecord]
}

// NewFileStatusWatcher creates a watcher for one inspection's files. onChange,
// if set, receives a copy of every new state; it must not call Start or Stop.
func NewFileStatusWatcher(lister FileLister, inspectionID string, opts WatcherOptions, publisher events.SyncEventPublisher, logger *logging.Logger, onChange func(FileListState)) (*FileStatusWatcher, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultFilesPollInterval
	}
	w := &FileStatusWatcher{onChange: onChange}

	ctrl, err := polling.New(polling.Options[[]inspections.FileRecord]{
		Name:     "files",
		Resource: inspectionID,
		Interval: interval,
		Fetch: func(ctx context.Context) ([]inspections.FileRecord, error) {
			return lister.ListFiles(ctx, inspectionID)
		},
		Done:     inspections.AllSettled,
		OnUpdate: w.applyFiles,
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

// Start (re)subscribes with an immediate fetch. Call it again after an upload
// so the new files are tracked even if the previous list had settled.
func (w *FileStatusWatcher) Start() {
	w.ctrl.Unsubscribe()
	w.mu.Lock()
	loading := w.state.clone()
	loading.Loading = loading.Files == nil
	loading.Err = nil
	loading.Final = false
	w.state = loading
	w.mu.Unlock()
	w.ctrl.Subscribe()
}

// Stop unsubscribes. No state change happens after Stop returns.
func (w *FileStatusWatcher) Stop() {
	w.ctrl.Unsubscribe()
}

// State returns a copy of the current state.
func (w *FileStatusWatcher) State() FileListState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.clone()
}

func (w *FileStatusWatcher) applyFiles(files []inspections.FileRecord) {
	if files == nil {
		files = []inspections.FileRecord{}
	}
	w.publish(FileListState{
		Files:     files,
		Counts:    inspections.CountByStatus(files),
		Final:     inspections.AllSettled(files),
		UpdatedAt: time.Now(),
	})
}

func (w *FileStatusWatcher) applyError(err error) {
	w.mu.RLock()
	next := w.state.clone()
	w.mu.RUnlock()

	next.Err = err
	next.Loading = false
	w.publish(next)
}

func (w *FileStatusWatcher) publish(next FileListState) {
	w.mu.Lock()
	w.state = next
	w.mu.Unlock()
	if w.onChange != nil {
		w.onChange(next.clone())
	}
}
