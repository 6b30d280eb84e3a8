package helpers

import (
	"time"

	"inspectsync/domain/inspections"
)

// Fixed identifiers shared by tests.
const (
	InspectionID = "0b4f7f3e-2c1d-4a8b-9e6f-5d4c3b2a1f00"
	FileID       = "7a6b5c4d-3e2f-4a1b-8c9d-0e1f2a3b4c5d"
)

// Inspection returns an inspection fixture in the given status.
func Inspection(status inspections.InspectionStatus) *inspections.Inspection {
	loc := "North yard"
	return &inspections.Inspection{
		ID:           InspectionID,
		OrgID:        "org-1",
		Name:         "Quarterly roof survey",
		Status:       status,
		SiteLocation: &loc,
		TotalFiles:   2,
	}
}

// File returns a file record fixture in the given status.
func File(id string, status inspections.FileStatus) inspections.FileRecord {
	size := int64(2048)
	created := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	return inspections.FileRecord{
		ID:        id,
		FileName:  id + ".jpg",
		FileType:  inspections.FileTypeImage,
		Status:    status,
		FileSize:  &size,
		CreatedAt: &created,
	}
}

// Finding returns a finding fixture.
func Finding(id, category string, severity inspections.Severity) inspections.Finding {
	score := 0.87
	return inspections.Finding{
		ID:              id,
		Category:        category,
		Severity:        &severity,
		ConfidenceScore: &score,
	}
}
