package contracts

import (
	"context"

	"inspectsync/domain/inspections"
	"inspectsync/domain/uploads"
)

// InspectionAPI abstracts the remote inspection service. One method per remote
// resource or action; every call is a single request with no retries or caching.
type InspectionAPI interface {
	// Inspections
	ListInspections(ctx context.Context) ([]inspections.Inspection, error)
	GetInspection(ctx context.Context, inspectionID string) (*inspections.Inspection, error)
	CreateInspection(ctx context.Context, create inspections.InspectionCreate) (*inspections.Inspection, error)

	// Files
	ListFiles(ctx context.Context, inspectionID string) ([]inspections.FileRecord, error)
	GetFile(ctx context.Context, fileID string) (*inspections.FileDetail, error)
	UploadFiles(ctx context.Context, inspectionID string, files []uploads.File, progress uploads.ProgressFunc) ([]inspections.UploadedFile, error)

	// Findings
	ListFindings(ctx context.Context, inspectionID string) ([]inspections.Finding, error)

	// Aggregates (never cached)
	GetInspectionStats(ctx context.Context) (*inspections.InspectionStats, error)
	GetFindingsStats(ctx context.Context) ([]inspections.CategoryCount, error)
	GetReviewQueue(ctx context.Context) ([]inspections.ReviewItem, error)
}
