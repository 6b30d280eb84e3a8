// Package apistub is an in-memory implementation of the inspection API used
// for local development and end-to-end tests.
package apistub

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"inspectsync/domain/inspections"
)

// OrgID is the organisation every stub inspection belongs to.
const OrgID = "org-local"

type storedFile struct {
	record       inspections.FileRecord
	inspectionID string
	mimeType     string
	wireType     string
}

// store holds all stub state. Methods lock mu themselves.
type store struct {
	mu          sync.Mutex
	now         func() time.Time
	order       []string
	inspections map[string]*inspections.Inspection
	files       map[string]*storedFile
	fileOrder   map[string][]string
	findings    map[string][]inspections.Finding
}

func newStore(now func() time.Time) *store {
	if now == nil {
		now = time.Now
	}
	return &store{
		now:         now,
		inspections: make(map[string]*inspections.Inspection),
		files:       make(map[string]*storedFile),
		fileOrder:   make(map[string][]string),
		findings:    make(map[string][]inspections.Finding),
	}
}

func (s *store) createInspection(create inspections.InspectionCreate) inspections.Inspection {
	s.mu.Lock()
	defer s.mu.Unlock()

	create = create.Normalize()
	insp := &inspections.Inspection{
		ID:           uuid.NewString(),
		OrgID:        OrgID,
		Name:         create.Name,
		Status:       inspections.InspectionStatusPending,
		SiteLocation: create.SiteLocation,
		SiteAddress:  create.SiteAddress,
	}
	s.inspections[insp.ID] = insp
	s.order = append(s.order, insp.ID)
	return *insp
}

// listInspections returns inspections newest first.
func (s *store) listInspections() []inspections.Inspection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]inspections.Inspection, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, *s.inspections[s.order[i]])
	}
	return out
}

func (s *store) inspection(id string) (inspections.Inspection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	insp, ok := s.inspections[id]
	if !ok {
		return inspections.Inspection{}, false
	}
	return *insp, true
}

func (s *store) listFiles(inspectionID string) ([]storedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inspections[inspectionID]; !ok {
		return nil, false
	}
	ids := s.fileOrder[inspectionID]
	out := make([]storedFile, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.files[id])
	}
	return out, true
}

func (s *store) file(id string) (*storedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, false
	}
	cp := *f
	return &cp, true
}

type incomingFile struct {
	name     string
	mimeType string
	category inspections.FileType
	size     int64
}

// addFiles registers an accepted batch. Files start out processing and the
// inspection moves to processing with them.
func (s *store) addFiles(inspectionID string, batch []incomingFile) ([]inspections.UploadedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	insp, ok := s.inspections[inspectionID]
	if !ok {
		return nil, false
	}
	created := s.now().UTC()
	out := make([]inspections.UploadedFile, 0, len(batch))
	for _, in := range batch {
		size := in.size
		wire := wireFileType(in.category)
		f := &storedFile{
			record: inspections.FileRecord{
				ID:        uuid.NewString(),
				FileName:  in.name,
				FileType:  in.category,
				Status:    inspections.FileStatusProcessing,
				FileSize:  &size,
				CreatedAt: &created,
			},
			inspectionID: inspectionID,
			mimeType:     in.mimeType,
			wireType:     wire,
		}
		s.files[f.record.ID] = f
		s.fileOrder[inspectionID] = append(s.fileOrder[inspectionID], f.record.ID)
		out = append(out, inspections.UploadedFile{ID: f.record.ID, FileName: f.record.FileName, Status: f.record.Status})
	}
	insp.TotalFiles = len(s.fileOrder[inspectionID])
	insp.Status = inspections.InspectionStatusProcessing
	return out, true
}

func (s *store) listFindings(inspectionID string) ([]inspections.Finding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inspections[inspectionID]; !ok {
		return nil, false
	}
	return slices.Clone(s.findings[inspectionID]), true
}

// advance moves every unsettled file one step along pending, processing,
// completed. An inspection whose files have all settled gets its findings and
// moves to review when any finding needs a human, completed otherwise.
func (s *store) advance() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inspID := range s.order {
		insp := s.inspections[inspID]
		ids := s.fileOrder[inspID]
		if len(ids) == 0 || insp.Status.IsTerminal() {
			continue
		}

		var settled []*storedFile
		for _, id := range ids {
			f := s.files[id]
			switch f.record.Status {
			case inspections.FileStatusPending:
				f.record.Status = inspections.FileStatusProcessing
			case inspections.FileStatusProcessing:
				f.record.Status = inspections.FileStatusCompleted
			}
			if f.record.Status.IsSettled() {
				settled = append(settled, f)
			}
		}
		if len(settled) == len(ids) {
			s.completeLocked(insp, settled)
		}
	}
}

func (s *store) completeLocked(insp *inspections.Inspection, files []*storedFile) {
	var (
		found  []inspections.Finding
		review bool
	)
	for _, f := range files {
		if f.record.Status != inspections.FileStatusCompleted {
			continue
		}
		finding := s.findingFor(f)
		review = review || finding.NeedsReview
		found = append(found, finding)
	}
	s.findings[insp.ID] = found
	insp.TotalFindings = len(found)

	risk := inspections.RiskLevelLow
	if review {
		risk = inspections.RiskLevelMedium
	}
	insp.RiskLevel = &risk

	narrative := fmt.Sprintf("%d files analysed, %d findings recorded.", len(files), len(found))
	insp.ReportNarrative = &narrative

	insp.Status = inspections.InspectionStatusCompleted
	if review {
		insp.Status = inspections.InspectionStatusReview
	}
}

func (s *store) findingFor(f *storedFile) inspections.Finding {
	fileID := f.record.ID
	created := s.now().UTC()
	finding := inspections.Finding{
		ID:        uuid.NewString(),
		FileID:    &fileID,
		CreatedAt: &created,
	}

	var (
		severity   inspections.Severity
		confidence float64
		text       = "Reviewed " + f.record.FileName
	)
	switch f.record.FileType {
	case inspections.FileTypeImage:
		finding.Category = "structural"
		severity, confidence = inspections.SeverityLow, 0.91
		finding.AICaption = &text
	case inspections.FileTypeAudio:
		finding.Category = "observation"
		severity, confidence = inspections.SeverityMedium, 0.62
		finding.Transcription = &text
	default:
		finding.Category = "documentation"
		severity, confidence = inspections.SeverityClear, 0.88
		finding.Description = &text
	}
	finding.Severity = &severity
	finding.ConfidenceScore = &confidence
	finding.NeedsReview = confidence < 0.7
	return finding
}

func (s *store) inspectionStats() inspections.InspectionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := inspections.InspectionStats{
		TotalInspections:  len(s.inspections),
		AvgProcessingTime: "0m",
	}
	for _, found := range s.findings {
		stats.TotalFindings += len(found)
		for _, f := range found {
			if f.NeedsReview {
				stats.PendingReviews++
			}
		}
	}
	return stats
}

func (s *store) findingsStats() []inspections.CategoryCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, found := range s.findings {
		for _, f := range found {
			counts[f.Category]++
		}
	}
	out := make([]inspections.CategoryCount, 0, len(counts))
	for name, value := range counts {
		out = append(out, inspections.CategoryCount{Name: name, Value: value})
	}
	slices.SortFunc(out, func(a, b inspections.CategoryCount) int {
		if a.Value != b.Value {
			return b.Value - a.Value
		}
		if a.Name < b.Name {
			return -1
		}
		return 1
	})
	return out
}

func (s *store) reviewQueue() []inspections.ReviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []inspections.ReviewItem
	for _, id := range s.order {
		insp := s.inspections[id]
		for _, f := range s.findings[id] {
			if f.NeedsReview {
				out = append(out, inspections.ReviewItem{
					Finding:    f,
					Inspection: inspections.InspectionRef{ID: insp.ID, Name: insp.Name},
				})
			}
		}
	}
	if out == nil {
		out = []inspections.ReviewItem{}
	}
	return out
}

// wireFileType maps a category onto the server's file_type vocabulary.
func wireFileType(category inspections.FileType) string {
	if category == inspections.FileTypeDocument {
		return "pdf"
	}
	return string(category)
}
