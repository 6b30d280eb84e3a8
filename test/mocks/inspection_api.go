package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"inspectsync/domain/inspections"
	"inspectsync/domain/uploads"
)

// MockInspectionAPI implements contracts.InspectionAPI for testing
type MockInspectionAPI struct {
	mock.Mock
}

func (m *MockInspectionAPI) ListInspections(ctx context.Context) ([]inspections.Inspection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inspections.Inspection), args.Error(1)
}

func (m *MockInspectionAPI) GetInspection(ctx context.Context, inspectionID string) (*inspections.Inspection, error) {
	args := m.Called(ctx, inspectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inspections.Inspection), args.Error(1)
}

func (m *MockInspectionAPI) CreateInspection(ctx context.Context, create inspections.InspectionCreate) (*inspections.Inspection, error) {
	args := m.Called(ctx, create)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inspections.Inspection), args.Error(1)
}

func (m *MockInspectionAPI) ListFiles(ctx context.Context, inspectionID string) ([]inspections.FileRecord, error) {
	args := m.Called(ctx, inspectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inspections.FileRecord), args.Error(1)
}

func (m *MockInspectionAPI) GetFile(ctx context.Context, fileID string) (*inspections.FileDetail, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inspections.FileDetail), args.Error(1)
}

func (m *MockInspectionAPI) UploadFiles(ctx context.Context, inspectionID string, files []uploads.File, progress uploads.ProgressFunc) ([]inspections.UploadedFile, error) {
	args := m.Called(ctx, inspectionID, files, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inspections.UploadedFile), args.Error(1)
}

func (m *MockInspectionAPI) ListFindings(ctx context.Context, inspectionID string) ([]inspections.Finding, error) {
	args := m.Called(ctx, inspectionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inspections.Finding), args.Error(1)
}

func (m *MockInspectionAPI) GetInspectionStats(ctx context.Context) (*inspections.InspectionStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inspections.InspectionStats), args.Error(1)
}

func (m *MockInspectionAPI) GetFindingsStats(ctx context.Context) ([]inspections.CategoryCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inspections.CategoryCount), args.Error(1)
}

func (m *MockInspectionAPI) GetReviewQueue(ctx context.Context) ([]inspections.ReviewItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inspections.ReviewItem), args.Error(1)
}
