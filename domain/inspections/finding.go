package inspections

import (
	"math"
	"time"
)

// Severity of a single finding. Shares its values with RiskLevel.
type Severity string

const (
	SeverityClear    Severity = "clear"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// transcriptionPreviewRunes bounds the transcription excerpt shown in summaries.
const transcriptionPreviewRunes = 300

// Finding is one AI-derived observation. Immutable from the client's perspective.
type Finding struct {
	ID              string     `json:"id"`
	FileID          *string    `json:"file_id"`
	Category        string     `json:"category"`
	Severity        *Severity  `json:"severity"`
	ConfidenceScore *float64   `json:"confidence_score"`
	NeedsReview     bool       `json:"needs_review"`
	Description     *string    `json:"description"`
	AICaption       *string    `json:"ai_caption"`
	Transcription   *string    `json:"transcription"`
	LocationCode    *string    `json:"location_code"`
	EquipmentID     *string    `json:"equipment_id"`
	CreatedAt       *time.Time `json:"created_at"`
}

// Summary picks the most useful human-readable text: the image caption, then a
// transcription excerpt, then the description.
func (f *Finding) Summary() string {
	if f.AICaption != nil && *f.AICaption != "" {
		return *f.AICaption
	}
	if f.Transcription != nil && *f.Transcription != "" {
		r := []rune(*f.Transcription)
		if len(r) > transcriptionPreviewRunes {
			return string(r[:transcriptionPreviewRunes]) + "…"
		}
		return *f.Transcription
	}
	if f.Description != nil {
		return *f.Description
	}
	return ""
}

// ConfidencePercent returns the confidence as a rounded percentage, or false
// when the score is absent.
func (f *Finding) ConfidencePercent() (int, bool) {
	if f.ConfidenceScore == nil {
		return 0, false
	}
	return int(math.Round(*f.ConfidenceScore * 100)), true
}

// InspectionRef is the minimal inspection reference embedded in review items.
type InspectionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReviewItem is a finding flagged for human review, with its owning inspection.
type ReviewItem struct {
	Finding
	Inspection InspectionRef `json:"inspection"`
}
