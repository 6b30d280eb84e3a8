package events

import (
	"sync"

	"inspectsync/domain/events"
	"inspectsync/logging"
)

// SyncEventBus provides type-safe event publishing and subscription for
// polling and upload events.
type SyncEventBus struct {
	mu     sync.RWMutex
	logger *logging.Logger

	pollStoppedHandlers     []func(events.PollStoppedEvent)
	pollFailedHandlers      []func(events.PollFailedEvent)
	uploadCompletedHandlers []func(events.UploadCompletedEvent)
}

// NewSyncEventBus creates a new typed event bus
func NewSyncEventBus(logger *logging.Logger) *SyncEventBus {
	if logger == nil {
		logger = logging.Default()
	}
	return &SyncEventBus{
		logger: logger.WithComponent("sync_event_bus"),
	}
}

// Subscribe methods for each event type

func (bus *SyncEventBus) OnPollStopped(handler func(events.PollStoppedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.pollStoppedHandlers = append(bus.pollStoppedHandlers, handler)
}

func (bus *SyncEventBus) OnPollFailed(handler func(events.PollFailedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.pollFailedHandlers = append(bus.pollFailedHandlers, handler)
}

func (bus *SyncEventBus) OnUploadCompleted(handler func(events.UploadCompletedEvent)) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.uploadCompletedHandlers = append(bus.uploadCompletedHandlers, handler)
}

// Publish methods for each event type. Handlers run asynchronously so a slow
// subscriber never stalls a poll or an upload.

func (bus *SyncEventBus) PublishPollStopped(event events.PollStoppedEvent) {
	bus.mu.RLock()
	handlers := append([]func(events.PollStoppedEvent){}, bus.pollStoppedHandlers...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		go func(h func(events.PollStoppedEvent)) {
			defer bus.recoverHandler("PollStopped", "poller", event.Poller, "resource", event.Resource)
			h(event)
		}(handler)
	}
}

func (bus *SyncEventBus) PublishPollFailed(event events.PollFailedEvent) {
	bus.mu.RLock()
	handlers := append([]func(events.PollFailedEvent){}, bus.pollFailedHandlers...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		go func(h func(events.PollFailedEvent)) {
			defer bus.recoverHandler("PollFailed", "poller", event.Poller, "error", event.Error)
			h(event)
		}(handler)
	}
}

func (bus *SyncEventBus) PublishUploadCompleted(event events.UploadCompletedEvent) {
	bus.mu.RLock()
	handlers := append([]func(events.UploadCompletedEvent){}, bus.uploadCompletedHandlers...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		go func(h func(events.UploadCompletedEvent)) {
			defer bus.recoverHandler("UploadCompleted", "inspection_id", event.InspectionID)
			h(event)
		}(handler)
	}
}

func (bus *SyncEventBus) recoverHandler(eventName string, attrs ...any) {
	if r := recover(); r != nil {
		args := append([]any{"event", eventName, "panic", r}, attrs...)
		bus.logger.Error("Event handler panicked", args...)
	}
}

var _ events.SyncEventPublisher = (*SyncEventBus)(nil)
