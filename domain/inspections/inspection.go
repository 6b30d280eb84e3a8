package inspections

import "strings"

// InspectionStatus represents the server-side lifecycle of an inspection.
type InspectionStatus string

const (
	InspectionStatusPending    InspectionStatus = "pending"
	InspectionStatusProcessing InspectionStatus = "processing"
	InspectionStatusReview     InspectionStatus = "review"
	InspectionStatusCompleted  InspectionStatus = "completed"
	InspectionStatusFailed     InspectionStatus = "failed"
)

// IsTerminal reports whether background processing has finished and report
// polling can stop. Failed inspections are not terminal: the server may retry.
func (s InspectionStatus) IsTerminal() bool {
	return s == InspectionStatusCompleted || s == InspectionStatusReview
}

// IsProcessing returns true while the analysis pipeline is still running.
func (s InspectionStatus) IsProcessing() bool {
	return s == InspectionStatusProcessing
}

// RiskLevel is the overall risk the analysis assigned to an inspection.
type RiskLevel string

const (
	RiskLevelClear    RiskLevel = "clear"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// IsElevated returns true for risk levels that need attention.
func (r RiskLevel) IsElevated() bool {
	return r == RiskLevelHigh || r == RiskLevelCritical
}

// DefaultInspectionName is used when an inspection is created without a name.
const DefaultInspectionName = "Untitled inspection"

// Inspection is a unit of audit work grouping uploaded files and derived findings.
// It is a read-mostly projection of server state.
type Inspection struct {
	ID              string           `json:"id"`
	OrgID           string           `json:"org_id"`
	Name            string           `json:"name"`
	Status          InspectionStatus `json:"status"`
	SiteLocation    *string          `json:"site_location"`
	SiteAddress     *string          `json:"site_address"`
	TotalFiles      int              `json:"total_files"`
	TotalFindings   int              `json:"total_findings"`
	RiskLevel       *RiskLevel       `json:"risk_level"`
	ReportNarrative *string          `json:"report_narrative"`
}

// Location returns a single display line for the site, e.g. "Main campus · 1 Way".
func (i *Inspection) Location() string {
	loc := "No location"
	if i.SiteLocation != nil && *i.SiteLocation != "" {
		loc = *i.SiteLocation
	}
	if i.SiteAddress != nil && *i.SiteAddress != "" {
		loc += " · " + *i.SiteAddress
	}
	return loc
}

// InspectionCreate is the creatable subset of an inspection.
type InspectionCreate struct {
	Name         string  `json:"name"`
	SiteLocation *string `json:"site_location,omitempty"`
	SiteAddress  *string `json:"site_address,omitempty"`
}

// Normalize trims user input, substitutes the default name and drops blank
// optional fields.
func (c InspectionCreate) Normalize() InspectionCreate {
	out := InspectionCreate{Name: strings.TrimSpace(c.Name)}
	if out.Name == "" {
		out.Name = DefaultInspectionName
	}
	out.SiteLocation = trimmedOrNil(c.SiteLocation)
	out.SiteAddress = trimmedOrNil(c.SiteAddress)
	return out
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// InspectionStats is the dashboard aggregate. Recomputed by the server on every
// request and never cached client-side.
type InspectionStats struct {
	TotalInspections  int    `json:"totalInspections"`
	TotalFindings     int    `json:"totalFindings"`
	PendingReviews    int    `json:"pendingReviews"`
	AvgProcessingTime string `json:"avgProcessingTime"`
}

// CategoryCount is one bar of the findings-by-category distribution.
type CategoryCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}
