package apiclient

import (
	"time"

	"inspectsync/domain/inspections"
)

// ---------- Wire models ----------
// These mirror the JSON bodies of the inspection API. Conversion to domain
// types happens here so the rest of the module never sees raw wire strings.

type inspectionJSON struct {
	ID              string  `json:"id"`
	OrgID           string  `json:"org_id"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	SiteLocation    *string `json:"site_location"`
	SiteAddress     *string `json:"site_address"`
	TotalFiles      int     `json:"total_files"`
	TotalFindings   int     `json:"total_findings"`
	RiskLevel       *string `json:"risk_level"`
	ReportNarrative *string `json:"report_narrative"`
}

func (w inspectionJSON) toDomain() inspections.Inspection {
	insp := inspections.Inspection{
		ID:              w.ID,
		OrgID:           w.OrgID,
		Name:            w.Name,
		Status:          inspections.InspectionStatus(w.Status),
		SiteLocation:    w.SiteLocation,
		SiteAddress:     w.SiteAddress,
		TotalFiles:      w.TotalFiles,
		TotalFindings:   w.TotalFindings,
		ReportNarrative: w.ReportNarrative,
	}
	if w.RiskLevel != nil && *w.RiskLevel != "" {
		risk := inspections.RiskLevel(*w.RiskLevel)
		insp.RiskLevel = &risk
	}
	return insp
}

type fileJSON struct {
	ID        string  `json:"id"`
	FileName  string  `json:"file_name"`
	FileType  string  `json:"file_type"`
	Status    string  `json:"status"`
	FileSize  *int64  `json:"file_size"`
	CreatedAt *string `json:"created_at"`
}

func (w fileJSON) toDomain() inspections.FileRecord {
	return inspections.FileRecord{
		ID:        w.ID,
		FileName:  w.FileName,
		FileType:  inspections.ParseFileType(w.FileType),
		Status:    inspections.FileStatus(w.Status),
		FileSize:  w.FileSize,
		CreatedAt: parseTimestamp(w.CreatedAt),
	}
}

type fileDetailJSON struct {
	fileJSON
	MimeType     *string `json:"mime_type"`
	InspectionID string  `json:"inspection_id"`
	DownloadURL  *string `json:"download_url"`
}

func (w fileDetailJSON) toDomain() inspections.FileDetail {
	return inspections.FileDetail{
		FileRecord:   w.fileJSON.toDomain(),
		MimeType:     w.MimeType,
		InspectionID: w.InspectionID,
		DownloadURL:  w.DownloadURL,
	}
}

type uploadedFileJSON struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Status   string `json:"status"`
}

type findingJSON struct {
	ID              string   `json:"id"`
	FileID          *string  `json:"file_id"`
	Category        string   `json:"category"`
	Severity        *string  `json:"severity"`
	ConfidenceScore *float64 `json:"confidence_score"`
	NeedsReview     bool     `json:"needs_review"`
	Description     *string  `json:"description"`
	AICaption       *string  `json:"ai_caption"`
	Transcription   *string  `json:"transcription"`
	LocationCode    *string  `json:"location_code"`
	EquipmentID     *string  `json:"equipment_id"`
	CreatedAt       *string  `json:"created_at"`
}

func (w findingJSON) toDomain() inspections.Finding {
	f := inspections.Finding{
		ID:              w.ID,
		FileID:          w.FileID,
		Category:        w.Category,
		ConfidenceScore: w.ConfidenceScore,
		NeedsReview:     w.NeedsReview,
		Description:     w.Description,
		AICaption:       w.AICaption,
		Transcription:   w.Transcription,
		LocationCode:    w.LocationCode,
		EquipmentID:     w.EquipmentID,
		CreatedAt:       parseTimestamp(w.CreatedAt),
	}
	if w.Severity != nil && *w.Severity != "" {
		sev := inspections.Severity(*w.Severity)
		f.Severity = &sev
	}
	return f
}

type reviewItemJSON struct {
	findingJSON
	Inspection struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"inspection"`
}

func (w reviewItemJSON) toDomain() inspections.ReviewItem {
	return inspections.ReviewItem{
		Finding: w.findingJSON.toDomain(),
		Inspection: inspections.InspectionRef{
			ID:   w.Inspection.ID,
			Name: w.Inspection.Name,
		},
	}
}

// The API emits ISO-8601 timestamps, sometimes without a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns nil for missing or unparseable values rather than failing the whole response.
func parseTimestamp(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
