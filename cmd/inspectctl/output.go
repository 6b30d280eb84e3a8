package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"inspectsync/application"
	"inspectsync/domain/apierrors"
	"inspectsync/domain/inspections"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func errorText(err error) string { return apierrors.Message(err) }

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func printInspections(w io.Writer, list []inspections.Inspection) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No inspections yet")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tFILES\tFINDINGS\tRISK\tLOCATION")
	for i := range list {
		insp := &list[i]
		risk := "-"
		if insp.RiskLevel != nil {
			risk = string(*insp.RiskLevel)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			insp.ID, insp.Name, insp.Status, insp.TotalFiles, insp.TotalFindings, risk, insp.Location())
	}
	tw.Flush()
}

func printReport(w io.Writer, r *application.Report) {
	insp := &r.Inspection
	fmt.Fprintf(w, "%s\n", insp.Name)
	fmt.Fprintf(w, "  Status:   %s\n", insp.Status)
	fmt.Fprintf(w, "  Location: %s\n", insp.Location())
	if insp.RiskLevel != nil {
		marker := ""
		if insp.RiskLevel.IsElevated() {
			marker = " (!)"
		}
		fmt.Fprintf(w, "  Risk:     %s%s\n", *insp.RiskLevel, marker)
	}
	fmt.Fprintf(w, "  Files:    %d\n", insp.TotalFiles)
	if insp.ReportNarrative != nil && *insp.ReportNarrative != "" {
		fmt.Fprintf(w, "\n%s\n", *insp.ReportNarrative)
	}

	if len(r.Findings) == 0 {
		if insp.Status.IsProcessing() {
			fmt.Fprintln(w, "\nAnalysis in progress")
		} else {
			fmt.Fprintln(w, "\nNo findings")
		}
		return
	}

	fmt.Fprintln(w)
	tw := table(w)
	fmt.Fprintln(tw, "CATEGORY\tSEVERITY\tCONFIDENCE\tREVIEW\tSUMMARY")
	for i := range r.Findings {
		printFindingRow(tw, &r.Findings[i])
	}
	tw.Flush()
}

func printFindingRow(tw io.Writer, f *inspections.Finding) {
	severity := "-"
	if f.Severity != nil {
		severity = string(*f.Severity)
	}
	confidence := "-"
	if pct, ok := f.ConfidencePercent(); ok {
		confidence = fmt.Sprintf("%d%%", pct)
	}
	review := ""
	if f.NeedsReview {
		review = "yes"
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Category, severity, confidence, review, oneLine(f.Summary()))
}

// oneLine flattens text for table cells and caps it at 80 runes.
func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 80 {
		return string(r[:79]) + "…"
	}
	return s
}

func printFiles(w io.Writer, files []inspections.FileRecord, now time.Time) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No files uploaded")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\tSIZE\tUPLOADED")
	for _, f := range files {
		size := "-"
		if f.FileSize != nil {
			size = humanize.IBytes(uint64(*f.FileSize))
		}
		uploaded := "-"
		if f.CreatedAt != nil {
			uploaded = humanize.RelTime(*f.CreatedAt, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", f.ID, f.FileName, f.FileType, f.Status, size, uploaded)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%s\n", countsSummary(inspections.CountByStatus(files)))
}

func printFileDetail(w io.Writer, f *inspections.FileDetail) {
	fmt.Fprintf(w, "%s\n", f.FileName)
	fmt.Fprintf(w, "  ID:         %s\n", f.ID)
	fmt.Fprintf(w, "  Inspection: %s\n", f.InspectionID)
	fmt.Fprintf(w, "  Type:       %s (%s)\n", f.FileType, orDash(f.MimeType))
	fmt.Fprintf(w, "  Status:     %s\n", f.Status)
	if f.FileSize != nil {
		fmt.Fprintf(w, "  Size:       %s\n", humanize.IBytes(uint64(*f.FileSize)))
	}
	fmt.Fprintf(w, "  Download:   %s\n", orDash(f.DownloadURL))
}

func printUploaded(w io.Writer, files []inspections.UploadedFile) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.ID, f.FileName, f.Status)
	}
	tw.Flush()
}

var statusOrder = []inspections.FileStatus{
	inspections.FileStatusPending,
	inspections.FileStatusProcessing,
	inspections.FileStatusCompleted,
	inspections.FileStatusFailed,
}

// countsSummary renders per-status counts in lifecycle order, e.g. "1 processing, 2 completed".
func countsSummary(counts map[inspections.FileStatus]int) string {
	var parts []string
	for _, status := range statusOrder {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	if len(parts) == 0 {
		return "no files yet"
	}
	return strings.Join(parts, ", ")
}

func printDashboard(w io.Writer, d *application.Dashboard, categories []inspections.CategoryCount) {
	tw := table(w)
	fmt.Fprintf(tw, "Inspections\t%s\n", humanize.Comma(int64(d.Stats.TotalInspections)))
	fmt.Fprintf(tw, "Findings\t%s\n", humanize.Comma(int64(d.Stats.TotalFindings)))
	fmt.Fprintf(tw, "Pending reviews\t%s\n", humanize.Comma(int64(d.Stats.PendingReviews)))
	fmt.Fprintf(tw, "Avg processing time\t%s\n", d.Stats.AvgProcessingTime)
	fmt.Fprintf(tw, "Estimated cost\t%s\n", d.Cost)
	tw.Flush()

	if len(categories) > 0 {
		fmt.Fprintln(w, "\nFindings by category")
		tw = table(w)
		for _, c := range categories {
			fmt.Fprintf(tw, "  %s\t%d\n", c.Name, c.Value)
		}
		tw.Flush()
	}

	if len(d.Inspections) > 0 {
		fmt.Fprintln(w, "\nRecent inspections")
		recent := d.Inspections
		if len(recent) > 5 {
			recent = recent[:5]
		}
		printInspections(w, recent)
	}
}

func printReviewQueue(w io.Writer, queue []inspections.ReviewItem) {
	if len(queue) == 0 {
		fmt.Fprintln(w, "Nothing to review")
		return
	}
	tw := table(w)
	fmt.Fprintln(tw, "INSPECTION\tCATEGORY\tSEVERITY\tCONFIDENCE\tREVIEW\tSUMMARY")
	for i := range queue {
		fmt.Fprintf(tw, "%s\t", queue[i].Inspection.Name)
		printFindingRow(tw, &queue[i].Finding)
	}
	tw.Flush()
}
