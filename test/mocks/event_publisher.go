package mocks

import (
	"github.com/stretchr/testify/mock"

	"inspectsync/domain/events"
)

// MockSyncEventPublisher is a mock implementation of SyncEventPublisher for testing
type MockSyncEventPublisher struct {
	mock.Mock
}

func (m *MockSyncEventPublisher) PublishPollStopped(event events.PollStoppedEvent) {
	m.Called(event)
}

func (m *MockSyncEventPublisher) PublishPollFailed(event events.PollFailedEvent) {
	m.Called(event)
}

func (m *MockSyncEventPublisher) PublishUploadCompleted(event events.UploadCompletedEvent) {
	m.Called(event)
}
