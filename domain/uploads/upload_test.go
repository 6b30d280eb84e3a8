package uploads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectsync/domain/apierrors"
	"inspectsync/domain/inspections"
)

func payload(name string, size int64) File {
	return File{Name: name, Size: size, Reader: strings.NewReader(strings.Repeat("x", int(size)))}
}

func TestLimits_Validate(t *testing.T) {
	limits := Limits{MaxFileSize: 10}

	tests := []struct {
		name    string
		files   []File
		wantErr string
	}{
		{name: "empty batch", files: nil, wantErr: "no files selected"},
		{name: "accepted batch", files: []File{payload("a.jpg", 3), payload("b.PDF", 10), payload("memo.m4a", 1)}},
		{name: "oversize file", files: []File{payload("a.jpg", 3), payload("big.png", 11)}, wantErr: "big.png exceeds"},
		{name: "unsupported extension", files: []File{payload("notes.txt", 1)}, wantErr: "File type not allowed: notes.txt"},
		{name: "missing reader", files: []File{{Name: "a.jpg", Size: 1}}, wantErr: "has no content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := limits.Validate(tt.files)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apierrors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLimits_ValidateDefaultsToFiftyMegabytes(t *testing.T) {
	err := Limits{}.Validate([]File{{Name: "huge.png", Size: DefaultMaxFileSize + 1, Reader: strings.NewReader("")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "50 MiB")
}

func TestCategory(t *testing.T) {
	ft, ok := Category(File{Name: "scan.bin", ContentType: "application/pdf"})
	assert.True(t, ok)
	assert.Equal(t, inspections.FileTypeDocument, ft)

	ft, ok = Category(File{Name: "clip.wav"})
	assert.True(t, ok)
	assert.Equal(t, inspections.FileTypeAudio, ft)

	_, ok = Category(File{Name: "photo.png", ContentType: "text/plain; charset=utf-8"})
	assert.False(t, ok, "a sniffed type overrides the extension")

	ft, ok = Category(File{Name: "photo.png", ContentType: "application/octet-stream"})
	assert.True(t, ok)
	assert.Equal(t, inspections.FileTypeImage, ft)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "audio/x-m4a", ContentTypeFor(File{Name: "a.m4a", ContentType: "audio/x-m4a"}))
	assert.Equal(t, "application/pdf", ContentTypeFor(File{Name: "a.pdf"}))
	assert.Equal(t, "application/octet-stream", ContentTypeFor(File{Name: "noext"}))
}

func TestFromPath(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "site.png")
	require.NoError(t, os.WriteFile(pngPath, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o600))

	opened, err := OpenAll([]string{pngPath})
	require.NoError(t, err)
	defer CloseAll(opened)

	require.Len(t, opened, 1)
	assert.Equal(t, "site.png", opened[0].Name)
	assert.Equal(t, "image/png", opened[0].ContentType)
	assert.Equal(t, int64(16), opened[0].Size)

	files := Files(opened)
	assert.NoError(t, DefaultLimits().Validate(files))
	assert.Equal(t, int64(16), TotalSize(files))
}

func TestFromPath_Missing(t *testing.T) {
	_, err := OpenAll([]string{filepath.Join(t.TempDir(), "nope.pdf")})
	assert.Error(t, err)
}
