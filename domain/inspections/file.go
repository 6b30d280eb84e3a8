package inspections

import "time"

// FileType is the coarse media category of an uploaded file.
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeAudio    FileType = "audio"
	FileTypeDocument FileType = "document"
)

// ParseFileType maps the server's file_type value onto a category.
// The API reports PDFs as "pdf"; anything unrecognised is treated as a document.
func ParseFileType(raw string) FileType {
	switch raw {
	case "image":
		return FileTypeImage
	case "audio":
		return FileTypeAudio
	default:
		return FileTypeDocument
	}
}

// FileStatus is the per-file processing state.
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// IsSettled returns true once the server will no longer change the file's status.
func (s FileStatus) IsSettled() bool {
	return s == FileStatusCompleted || s == FileStatusFailed
}

// FileRecord is a file attached to an inspection.
type FileRecord struct {
	ID        string     `json:"id"`
	FileName  string     `json:"file_name"`
	FileType  FileType   `json:"file_type"`
	Status    FileStatus `json:"status"`
	FileSize  *int64     `json:"file_size"`
	CreatedAt *time.Time `json:"created_at"`
}

// FileDetail is the single-file metadata view, including a presigned download link.
type FileDetail struct {
	FileRecord
	MimeType     *string `json:"mime_type"`
	InspectionID string  `json:"inspection_id"`
	DownloadURL  *string `json:"download_url"`
}

// UploadedFile is the summary the server returns for each file in an upload batch.
type UploadedFile struct {
	ID       string     `json:"id"`
	FileName string     `json:"file_name"`
	Status   FileStatus `json:"status"`
}

// AllSettled reports whether there is at least one file and every file has
// settled. An empty list is never settled: uploads may still be arriving.
func AllSettled(files []FileRecord) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !f.Status.IsSettled() {
			return false
		}
	}
	return true
}

// CountByStatus tallies files per status.
func CountByStatus(files []FileRecord) map[FileStatus]int {
	counts := make(map[FileStatus]int, 4)
	for _, f := range files {
		counts[f.Status]++
	}
	return counts
}
