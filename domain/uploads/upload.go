package uploads

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"inspectsync/domain/apierrors"
	"inspectsync/domain/inspections"
)

// DefaultMaxFileSize is the per-file limit enforced before upload.
const DefaultMaxFileSize int64 = 50 * 1024 * 1024

// ProgressFunc receives upload progress in bytes of the whole request body.
type ProgressFunc func(bytesSent, bytesTotal int64)

// File is one payload in an upload batch.
type File struct {
	Name        string
	ContentType string // empty means "derive from the extension"
	Size        int64
	Reader      io.Reader
}

// Limits are the client-side upload constraints.
type Limits struct {
	MaxFileSize int64
}

// DefaultLimits returns the standard 50MB limit.
func DefaultLimits() Limits {
	return Limits{MaxFileSize: DefaultMaxFileSize}
}

var acceptedExtensions = map[string]inspections.FileType{
	".jpg":  inspections.FileTypeImage,
	".jpeg": inspections.FileTypeImage,
	".png":  inspections.FileTypeImage,
	".mp3":  inspections.FileTypeAudio,
	".m4a":  inspections.FileTypeAudio,
	".wav":  inspections.FileTypeAudio,
	".pdf":  inspections.FileTypeDocument,
}

var acceptedMediaTypes = map[string]inspections.FileType{
	"image/jpeg":      inspections.FileTypeImage,
	"image/jpg":       inspections.FileTypeImage,
	"image/png":       inspections.FileTypeImage,
	"audio/mpeg":      inspections.FileTypeAudio,
	"audio/mp3":       inspections.FileTypeAudio,
	"audio/m4a":       inspections.FileTypeAudio,
	"audio/x-m4a":     inspections.FileTypeAudio,
	"audio/mp4":       inspections.FileTypeAudio,
	"audio/wav":       inspections.FileTypeAudio,
	"audio/x-wav":     inspections.FileTypeAudio,
	"audio/wave":      inspections.FileTypeAudio,
	"application/pdf": inspections.FileTypeDocument,
}

// Category returns the accepted media category for f. A specific content type
// decides on its own; the extension is only consulted when the type is absent
// or generic.
func Category(f File) (inspections.FileType, bool) {
	if f.ContentType != "" {
		mediaType, _, err := mime.ParseMediaType(f.ContentType)
		mediaType = strings.ToLower(mediaType)
		if err == nil && mediaType != "application/octet-stream" {
			ft, ok := acceptedMediaTypes[mediaType]
			return ft, ok
		}
	}
	ft, ok := acceptedExtensions[strings.ToLower(filepath.Ext(f.Name))]
	return ft, ok
}

// Canonical media types for accepted extensions. The platform MIME table
// varies between systems and is only consulted for anything else.
var extensionMediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/x-m4a",
	".wav":  "audio/wav",
	".pdf":  "application/pdf",
}

// ContentTypeFor returns the declared content type, or one derived from the extension.
func ContentTypeFor(f File) string {
	if f.ContentType != "" {
		return f.ContentType
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if ct, ok := extensionMediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Validate applies the pre-flight checks to a whole batch. Any rejected file
// rejects the batch.
func (l Limits) Validate(files []File) error {
	if len(files) == 0 {
		return apierrors.Invalid("files", "no files selected")
	}
	max := l.MaxFileSize
	if max <= 0 {
		max = DefaultMaxFileSize
	}
	for _, f := range files {
		if f.Reader == nil {
			return apierrors.Invalid("files", "%s has no content", f.Name)
		}
		if f.Size < 0 {
			return apierrors.Invalid("files", "%s has unknown size", f.Name)
		}
		if f.Size > max {
			return apierrors.Invalid("files", "File %s exceeds %s limit", f.Name, humanize.IBytes(uint64(max)))
		}
		if _, ok := Category(f); !ok {
			return apierrors.Invalid("files", "File type not allowed: %s. Use image, audio, or PDF.", f.Name)
		}
	}
	return nil
}

// TotalSize sums the payload sizes of a batch.
func TotalSize(files []File) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}
