package application

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inspectsync/domain/apierrors"
	"inspectsync/domain/inspections"
	"inspectsync/logging"
	"inspectsync/test/helpers"
	"inspectsync/test/mocks"
)

func stateChanges[S any]() (func(S), <-chan S) {
	ch := make(chan S, 16)
	return func(s S) { ch <- s }, ch
}

func waitState[S any](t *testing.T, ch <-chan S) S {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("no state change within timeout")
		var zero S
		return zero
	}
}

func TestReportWatcher_StopsAtTerminalStatus(t *testing.T) {
	api := &mocks.MockInspectionAPI{}
	pub := &mocks.MockSyncEventPublisher{}
	clock := helpers.NewFakeClock()
	svc := NewInspectionService(api, logging.Discard())

	api.On("GetInspection", mock.Anything, helpers.InspectionID).Return(helpers.Inspection(inspections.InspectionStatusProcessing), nil).Once()
	api.On("GetInspection", mock.Anything, helpers.InspectionID).Return(helpers.Inspection(inspections.InspectionStatusReview), nil).Once()
	api.On("ListFindings", mock.Anything, helpers.InspectionID).Return([]inspections.Finding{}, nil).Once()
	api.On("ListFindings", mock.Anything, helpers.InspectionID).Return([]inspections.Finding{helpers.Finding("f1", "crack", inspections.SeverityMedium)}, nil).Once()
	pub.On("PublishPollStopped", mock.Anything).Return().Once()

	onChange, changes := stateChanges[ReportState]()
	w, err := NewReportWatcher(svc, helpers.InspectionID, WatcherOptions{Clock: clock}, pub, logging.Discard(), onChange)
	require.NoError(t, err)

	w.Start()
	first := waitState(t, changes)
	require.NotNil(t, first.Report)
	assert.True(t, first.Processing())
	assert.False(t, first.Final)

	require.True(t, clock.BlockUntil(1, time.Second))
	clock.Advance(DefaultReportPollInterval)

	second := waitState(t, changes)
	assert.True(t, second.Final)
	assert.Len(t, second.Report.Findings, 1)

	clock.Advance(10 * DefaultReportPollInterval)
	assert.Zero(t, clock.Pending())
	api.AssertNumberOfCalls(t, "GetInspection", 2)
	assert.Equal(t, second.Report.Inspection.Status, w.State().Report.Inspection.Status)
	pub.AssertExpectations(t)
}

func TestReportWatcher_InitialErrorIsDisplayed(t *testing.T) {
	api := &mocks.MockInspectionAPI{}
	clock := helpers.NewFakeClock()
	svc := NewInspectionService(api, logging.Discard())

	api.On("GetInspection", mock.Anything, helpers.InspectionID).Return(nil, &apierrors.StatusError{StatusCode: 404, Message: "Inspection not found"})
	api.On("ListFindings", mock.Anything, helpers.InspectionID).Return([]inspections.Finding{}, nil).Maybe()

	onChange, changes := stateChanges[ReportState]()
	w, err := NewReportWatcher(svc, helpers.InspectionID, WatcherOptions{Clock: clock}, nil, logging.Discard(), onChange)
	require.NoError(t, err)
	assert.False(t, w.State().Loading)

	w.Start()
	state := waitState(t, changes)
	assert.Nil(t, state.Report)
	assert.False(t, state.Loading)
	require.Error(t, state.Err)
	assert.Equal(t, "Inspection not found", apierrors.Message(state.Err))

	w.Stop()
	assert.Zero(t, clock.Pending())
}

func TestReportWatcher_StateIsACopy(t *testing.T) {
	api := &mocks.MockInspectionAPI{}
	clock := helpers.NewFakeClock()

	api.On("GetInspection", mock.Anything, helpers.InspectionID).Return(helpers.Inspection(inspections.InspectionStatusCompleted), nil)
	api.On("ListFindings", mock.Anything, helpers.InspectionID).Return([]inspections.Finding{helpers.Finding("f1", "crack", inspections.SeverityLow)}, nil)

	onChange, changes := stateChanges[ReportState]()
	w, err := NewReportWatcher(NewInspectionService(api, logging.Discard()), helpers.InspectionID, WatcherOptions{Clock: clock}, nil, logging.Discard(), onChange)
	require.NoError(t, err)
	w.Start()
	waitState(t, changes)

	snapshot := w.State()
	snapshot.Report.Findings[0].Category = "mutated"
	assert.Equal(t, "crack", w.State().Report.Findings[0].Category)
}

func TestFileStatusWatcher_PollsUntilEverySettled(t *testing.T) {
	api := &mocks.MockInspectionAPI{}
	pub := &mocks.MockSyncEventPublisher{}
	clock := helpers.NewFakeClock()

	api.On("ListFiles", mock.Anything, helpers.InspectionID).Return([]inspections.FileRecord{}, nil).Once()
	api.On("ListFiles", mock.Anything, helpers.InspectionID).Return([]inspections.FileRecord{
		helpers.File("a", inspections.FileStatusCompleted),
		helpers.File("b", inspections.FileStatusProcessing),
	}, nil).Once()
	api.On("ListFiles", mock.Anything, helpers.InspectionID).Return(nil, apierrors.NewTransportError("list files", errors.New("reset"))).Once()
	api.On("ListFiles", mock.Anything, helpers.InspectionID).Return([]inspections.FileRecord{
		helpers.File("a", inspections.FileStatusCompleted),
		helpers.File("b", inspections.FileStatusFailed),
	}, nil).Once()
	pub.On("PublishPollFailed", mock.Anything).Return().Once()
	pub.On("PublishPollStopped", mock.Anything).Return().Once()

	onChange, changes := stateChanges[FileListState]()
	w, err := NewFileStatusWatcher(api, helpers.InspectionID, WatcherOptions{Clock: clock}, pub, logging.Discard(), onChange)
	require.NoError(t, err)

	w.Start()
	empty := waitState(t, changes)
	assert.Empty(t, empty.Files)
	assert.False(t, empty.Final, "an empty list keeps polling")

	require.True(t, clock.BlockUntil(1, time.Second))
	clock.Advance(DefaultFilesPollInterval)
	partial := waitState(t, changes)
	assert.Equal(t, 1, partial.Counts[inspections.FileStatusProcessing])
	assert.False(t, partial.Final)

	// A background failure is swallowed: no state change, schedule continues.
	clock.Advance(DefaultFilesPollInterval)
	require.Equal(t, 1, clock.Pending())
	assert.NoError(t, w.State().Err)

	clock.Advance(DefaultFilesPollInterval)
	settled := waitState(t, changes)
	assert.True(t, settled.Final)
	assert.Equal(t, 1, settled.Counts[inspections.FileStatusFailed])

	clock.Advance(10 * DefaultFilesPollInterval)
	api.AssertNumberOfCalls(t, "ListFiles", 4)
	pub.AssertExpectations(t)
}

func TestFileStatusWatcher_StopDiscardsLaterResults(t *testing.T) {
	api := &mocks.MockInspectionAPI{}
	clock := helpers.NewFakeClock()

	api.On("ListFiles", mock.Anything, helpers.InspectionID).Return([]inspections.FileRecord{
		helpers.File("a", inspections.FileStatusPending),
	}, nil)

	onChange, changes := stateChanges[FileListState]()
	w, err := NewFileStatusWatcher(api, helpers.InspectionID, WatcherOptions{Clock: clock}, nil, logging.Discard(), onChange)
	require.NoError(t, err)

	w.Start()
	waitState(t, changes)
	require.True(t, clock.BlockUntil(1, time.Second))

	w.Stop()
	clock.Advance(5 * DefaultFilesPollInterval)

	select {
	case s := <-changes:
		t.Fatalf("unexpected state change after stop: %+v", s)
	case <-time.After(20 * time.Millisecond):
	}
	api.AssertNumberOfCalls(t, "ListFiles", 1)
}
