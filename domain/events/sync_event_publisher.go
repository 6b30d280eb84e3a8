package events

// SyncEventPublisher defines the interface for publishing synchronization events.
type SyncEventPublisher interface {
	PublishPollStopped(event PollStoppedEvent)
	PublishPollFailed(event PollFailedEvent)
	PublishUploadCompleted(event UploadCompletedEvent)
}
