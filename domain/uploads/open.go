package uploads

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// OpenedFile is a File backed by an open handle on disk.
type OpenedFile struct {
	File
	closer io.Closer
}

// Close releases the underlying handle.
func (o *OpenedFile) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// FromPath opens path for upload. The content type is sniffed from the file
// header so a mislabelled extension cannot slip past Category.
func FromPath(path string) (*OpenedFile, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect type of %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return &OpenedFile{
		File: File{
			Name:        filepath.Base(path),
			ContentType: mt.String(),
			Size:        info.Size(),
			Reader:      f,
		},
		closer: f,
	}, nil
}

// OpenAll opens every path, closing anything already opened on failure.
func OpenAll(paths []string) ([]*OpenedFile, error) {
	opened := make([]*OpenedFile, 0, len(paths))
	for _, p := range paths {
		of, err := FromPath(p)
		if err != nil {
			CloseAll(opened)
			return nil, err
		}
		opened = append(opened, of)
	}
	return opened, nil
}

// CloseAll closes every opened file, ignoring errors.
func CloseAll(files []*OpenedFile) {
	for _, f := range files {
		_ = f.Close()
	}
}

// Files returns the upload payloads of opened files in order.
func Files(opened []*OpenedFile) []File {
	out := make([]File, len(opened))
	for i, o := range opened {
		out[i] = o.File
	}
	return out
}
