package application

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"inspectsync/domain/contracts"
	"inspectsync/domain/inspections"
	"inspectsync/logging"
)

// InspectionService defines the inspection operations used by views and the CLI.
type InspectionService interface {
	List(ctx context.Context) ([]inspections.Inspection, error)
	Get(ctx context.Context, inspectionID string) (*inspections.Inspection, error)
	Create(ctx context.Context, create inspections.InspectionCreate) (*inspections.Inspection, error)
	ListFiles(ctx context.Context, inspectionID string) ([]inspections.FileRecord, error)
	GetFile(ctx context.Context, fileID string) (*inspections.FileDetail, error)
	LoadReport(ctx context.Context, inspectionID string) (*Report, error)
	LoadDashboard(ctx context.Context) (*Dashboard, error)
	FindingsByCategory(ctx context.Context) ([]inspections.CategoryCount, error)
	ReviewQueue(ctx context.Context) ([]inspections.ReviewItem, error)
}

// Report is an inspection together with its findings, loaded as one unit.
type Report struct {
	Inspection inspections.Inspection
	Findings   []inspections.Finding
}

// Dashboard is the inspection list together with the aggregate counters.
type Dashboard struct {
	Inspections []inspections.Inspection
	Stats       inspections.InspectionStats
	Cost        CostEstimate
}

// InspectionServiceImpl implements InspectionService over the remote API.
// It holds no state; every call goes to the server.
type InspectionServiceImpl struct {
	api    contracts.InspectionAPI
	logger *logging.Logger
}

// NewInspectionService creates an inspection service.
func NewInspectionService(api contracts.InspectionAPI, logger *logging.Logger) *InspectionServiceImpl {
	if logger == nil {
		logger = logging.Default()
	}
	return &InspectionServiceImpl{
		api:    api,
		logger: logger.WithComponent("inspection_service"),
	}
}

func (s *InspectionServiceImpl) List(ctx context.Context) ([]inspections.Inspection, error) {
	return s.api.ListInspections(ctx)
}

func (s *InspectionServiceImpl) Get(ctx context.Context, inspectionID string) (*inspections.Inspection, error) {
	return s.api.GetInspection(ctx, inspectionID)
}

// Create normalizes user input (trimmed fields, default name) before sending it.
func (s *InspectionServiceImpl) Create(ctx context.Context, create inspections.InspectionCreate) (*inspections.Inspection, error) {
	normalized := create.Normalize()
	insp, err := s.api.CreateInspection(ctx, normalized)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Inspection created", "inspection_id", insp.ID, "name", insp.Name)
	return insp, nil
}

func (s *InspectionServiceImpl) ListFiles(ctx context.Context, inspectionID string) ([]inspections.FileRecord, error) {
	return s.api.ListFiles(ctx, inspectionID)
}

func (s *InspectionServiceImpl) GetFile(ctx context.Context, fileID string) (*inspections.FileDetail, error) {
	return s.api.GetFile(ctx, fileID)
}

func (s *InspectionServiceImpl) FindingsByCategory(ctx context.Context) ([]inspections.CategoryCount, error) {
	return s.api.GetFindingsStats(ctx)
}

func (s *InspectionServiceImpl) ReviewQueue(ctx context.Context) ([]inspections.ReviewItem, error) {
	return s.api.GetReviewQueue(ctx)
}

// LoadReport fetches the inspection and its findings concurrently. Either
// failure fails the whole report; no partial report is returned.
func (s *InspectionServiceImpl) LoadReport(ctx context.Context, inspectionID string) (*Report, error) {
	start := time.Now()

	var (
		insp     *inspections.Inspection
		findings []inspections.Finding
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		insp, err = s.api.GetInspection(gctx, inspectionID)
		return err
	})
	g.Go(func() error {
		var err error
		findings, err = s.api.ListFindings(gctx, inspectionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Performance("load_report", time.Since(start))
	if findings == nil {
		findings = []inspections.Finding{}
	}
	return &Report{Inspection: *insp, Findings: findings}, nil
}

// LoadDashboard fetches the inspection list and the aggregate counters
// concurrently, with the same all-or-nothing semantics as LoadReport.
func (s *InspectionServiceImpl) LoadDashboard(ctx context.Context) (*Dashboard, error) {
	var (
		list  []inspections.Inspection
		stats *inspections.InspectionStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.api.ListInspections(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.api.GetInspectionStats(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if list == nil {
		list = []inspections.Inspection{}
	}
	return &Dashboard{
		Inspections: list,
		Stats:       *stats,
		Cost:        EstimateCost(stats.TotalInspections),
	}, nil
}

var _ InspectionService = (*InspectionServiceImpl)(nil)
