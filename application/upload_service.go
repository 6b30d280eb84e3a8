package application

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"inspectsync/domain/contracts"
	"inspectsync/domain/events"
	"inspectsync/domain/inspections"
	"inspectsync/domain/uploads"
	"inspectsync/logging"
)

// ErrUploadInProgress is returned when a batch is submitted while another is outstanding.
var ErrUploadInProgress = errors.New("an upload is already in progress")

// UploadService validates and submits upload batches, one at a time.
type UploadService struct {
	api      contracts.InspectionAPI
	limits   uploads.Limits
	events   events.SyncEventPublisher
	logger   *logging.Logger
	inFlight atomic.Bool
}

// NewUploadService creates an upload service. publisher may be nil.
func NewUploadService(api contracts.InspectionAPI, limits uploads.Limits, publisher events.SyncEventPublisher, logger *logging.Logger) *UploadService {
	if logger == nil {
		logger = logging.Default()
	}
	return &UploadService{
		api:    api,
		limits: limits,
		events: publisher,
		logger: logger.WithComponent("upload_service"),
	}
}

// InProgress reports whether a batch is currently being sent.
func (s *UploadService) InProgress() bool {
	return s.inFlight.Load()
}

// Upload checks the whole batch, then sends it as one request. A rejected
// file rejects the batch before anything is sent.
func (s *UploadService) Upload(ctx context.Context, inspectionID string, files []uploads.File, progress uploads.ProgressFunc) ([]inspections.UploadedFile, error) {
	if err := s.limits.Validate(files); err != nil {
		return nil, err
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrUploadInProgress
	}
	defer s.inFlight.Store(false)

	start := time.Now()
	total := uploads.TotalSize(files)
	created, err := s.api.UploadFiles(ctx, inspectionID, files, progress)
	if err != nil {
		s.logger.Warn("Upload failed", "inspection_id", inspectionID, "files", len(files), "error", err.Error())
		return nil, err
	}

	if s.events != nil {
		s.events.PublishUploadCompleted(events.UploadCompletedEvent{
			InspectionID: inspectionID,
			Files:        len(created),
			Bytes:        total,
			Duration:     time.Since(start),
			Timestamp:    time.Now(),
		})
	}
	return created, nil
}

// UploadPaths opens local files and uploads them as one batch.
func (s *UploadService) UploadPaths(ctx context.Context, inspectionID string, paths []string, progress uploads.ProgressFunc) ([]inspections.UploadedFile, error) {
	opened, err := uploads.OpenAll(paths)
	if err != nil {
		return nil, err
	}
	defer uploads.CloseAll(opened)
	return s.Upload(ctx, inspectionID, uploads.Files(opened), progress)
}

// ProgressPercent converts byte progress into a whole percentage in [0, 100].
func ProgressPercent(sent, total int64) int {
	if total <= 0 || sent <= 0 {
		return 0
	}
	if sent >= total {
		return 100
	}
	return int(sent * 100 / total)
}
