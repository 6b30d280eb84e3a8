package events

import "time"

// PollStoppedEvent is published once when a polling controller reaches a
// terminal result.
type PollStoppedEvent struct {
	Poller    string // Controller name, e.g. "report" or "files"
	Resource  string // ID of the watched inspection
	Fetches   int    // Completed fetches including the terminal one
	Timestamp time.Time
}

// PollFailedEvent is published for a background refresh that failed and was
// swallowed. The schedule continues.
type PollFailedEvent struct {
	Poller    string
	Resource  string
	Error     string
	Attempt   int
	Timestamp time.Time
}

// UploadCompletedEvent is published after a batch was accepted by the server.
type UploadCompletedEvent struct {
	InspectionID string
	Files        int
	Bytes        int64
	Duration     time.Duration
	Timestamp    time.Time
}
