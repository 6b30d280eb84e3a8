package events

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"inspectsync/domain/events"
	"inspectsync/logging"
)

// Notifier shows a short message to the user, e.g. a terminal line or a toast.
type Notifier interface {
	Notify(message, level string)
}

// Notification levels understood by Notifier implementations.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
)

// NotificationEventHandlers converts sync events into user notifications.
type NotificationEventHandlers struct {
	notifier Notifier
	logger   *logging.Logger
}

// NewNotificationEventHandlers creates event handlers for notifications
func NewNotificationEventHandlers(notifier Notifier, logger *logging.Logger) *NotificationEventHandlers {
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationEventHandlers{
		notifier: notifier,
		logger:   logger.WithComponent("notification_events"),
	}
}

// RegisterHandlers registers all notification event handlers with the event bus
func (h *NotificationEventHandlers) RegisterHandlers(bus *SyncEventBus) {
	bus.OnPollStopped(h.handlePollStopped)
	bus.OnPollFailed(h.handlePollFailed)
	bus.OnUploadCompleted(h.handleUploadCompleted)
}

func (h *NotificationEventHandlers) handlePollStopped(event events.PollStoppedEvent) {
	h.logger.Info("Handling poll stopped event", "poller", event.Poller, "resource", event.Resource, "fetches", event.Fetches)

	switch event.Poller {
	case "report":
		h.notifier.Notify("Report ready", LevelSuccess)
	case "files":
		h.notifier.Notify("All files processed", LevelSuccess)
	default:
		h.notifier.Notify(fmt.Sprintf("%s finished", event.Poller), LevelInfo)
	}
}

func (h *NotificationEventHandlers) handlePollFailed(event events.PollFailedEvent) {
	// The poller already logged the failure at warn; it is not shown to the user.
	h.logger.Debug("Handling poll failed event",
		"poller", event.Poller,
		"resource", event.Resource,
		"attempt", event.Attempt,
		"error", event.Error)
}

func (h *NotificationEventHandlers) handleUploadCompleted(event events.UploadCompletedEvent) {
	h.logger.Info("Handling upload completed event", "inspection_id", event.InspectionID, "files", event.Files)

	noun := "files"
	if event.Files == 1 {
		noun = "file"
	}
	h.notifier.Notify(fmt.Sprintf("Uploaded %d %s (%s)", event.Files, noun, humanize.IBytes(uint64(event.Bytes))), LevelSuccess)
}
