package application

import (
	"slices"
	"time"

	"inspectsync/domain/inspections"
	"inspectsync/platform/polling"
)

// ReportState is the view-visible state of an inspection report. Every
// completed fetch replaces it wholesale.
type ReportState struct {
	Report    *Report
	Err       error // Displayed error from a failed fetch before the first success
	Loading   bool  // True until the first fetch completes
	Final     bool  // Terminal status observed; polling has stopped
	UpdatedAt time.Time
}

// Processing reports whether server-side analysis is still running.
func (s ReportState) Processing() bool {
	return s.Report != nil && s.Report.Inspection.Status.IsProcessing()
}

func (s ReportState) clone() ReportState {
	if s.Report != nil {
		r := *s.Report
		r.Findings = slices.Clone(r.Findings)
		s.Report = &r
	}
	return s
}

// FileListState is the view-visible state of an inspection's file list.
type FileListState struct {
	Files     []inspections.FileRecord
	Counts    map[inspections.FileStatus]int
	Err       error
	Loading   bool
	Final     bool // Every file settled; polling has stopped
	UpdatedAt time.Time
}

func (s FileListState) clone() FileListState {
	s.Files = slices.Clone(s.Files)
	if s.Counts != nil {
		counts := make(map[inspections.FileStatus]int, len(s.Counts))
		for k, v := range s.Counts {
			counts[k] = v
		}
		s.Counts = counts
	}
	return s
}

// WatcherOptions configures the polling views.
type WatcherOptions struct {
	Interval time.Duration // 0 selects the view default
	Clock    polling.Clock
}
