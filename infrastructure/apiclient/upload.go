package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"inspectsync/domain/apierrors"
	"inspectsync/domain/inspections"
	"inspectsync/domain/uploads"
)

// uploadField is the multipart field name the API expects for every file.
const uploadField = "files"

// UploadFiles submits a batch of files as one multipart request and reports
// progress against the full request body. File order is preserved on the wire
// and in the returned summaries.
//
// Failures are kept apart for the caller:
//   - non-2xx: *apierrors.StatusError carrying the raw response body
//   - connection failure: apierrors.ErrNetwork
//   - unparseable success body: apierrors.ErrInvalidResponse
//
// progress may be called from a transport goroutine.
func (c *Client) UploadFiles(ctx context.Context, inspectionID string, files []uploads.File, progress uploads.ProgressFunc) ([]inspections.UploadedFile, error) {
	const op = "upload files"

	if err := validateID("inspection_id", inspectionID); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apierrors.Invalid("files", "no files selected")
	}

	boundary := multipart.NewWriter(io.Discard).Boundary()
	total, err := multipartLength(boundary, files)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeMultipart(pw, boundary, files))
	}()
	body := &progressReader{r: pr, closer: pr, total: total, onProgress: progress}

	endpoint := c.baseURL + "/inspections/" + url.PathEscape(inspectionID) + "/files"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	req.Header.Set("Accept", "application/json")

	c.logger.Upload("Starting upload",
		"inspection_id", inspectionID,
		"files", len(files),
		"bytes_total", total)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	// Unblock the writer goroutine whatever happened.
	pr.CloseWithError(errUploadFinished)
	if err != nil {
		return nil, c.roundTripFailure(ctx, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.roundTripFailure(ctx, op, err)
	}

	if !isSuccess(resp.StatusCode) {
		msg := string(data)
		if msg == "" {
			msg = fmt.Sprintf("Upload failed %d", resp.StatusCode)
		}
		c.logger.Warn("Upload rejected", "inspection_id", inspectionID, "status", resp.StatusCode)
		return nil, &apierrors.StatusError{StatusCode: resp.StatusCode, Message: msg}
	}

	var parsed struct {
		Files []uploadedFileJSON `json:"files"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, apierrors.NewDecodeError(op, err)
	}
	if parsed.Files == nil {
		return nil, apierrors.NewDecodeError(op, errors.New("response has no files array"))
	}

	out := make([]inspections.UploadedFile, 0, len(parsed.Files))
	for _, f := range parsed.Files {
		out = append(out, inspections.UploadedFile{
			ID:       f.ID,
			FileName: f.FileName,
			Status:   inspections.FileStatus(f.Status),
		})
	}

	c.logger.Upload("Upload completed",
		"inspection_id", inspectionID,
		"files", len(out),
		"duration_ms", time.Since(start).Milliseconds())

	return out, nil
}

var errUploadFinished = errors.New("upload finished")

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func partHeader(f uploads.File) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, uploadField, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", uploads.ContentTypeFor(f))
	return h
}

// multipartLength computes the exact encoded body size without reading any
// payload: framing is written to a counter and the declared sizes are added.
func multipartLength(boundary string, files []uploads.File) (int64, error) {
	var cw countingWriter
	mw := multipart.NewWriter(&cw)
	if err := mw.SetBoundary(boundary); err != nil {
		return 0, err
	}
	var payload int64
	for _, f := range files {
		if f.Size < 0 {
			return 0, apierrors.Invalid("files", "%s has unknown size", f.Name)
		}
		if _, err := mw.CreatePart(partHeader(f)); err != nil {
			return 0, err
		}
		payload += f.Size
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}
	return cw.n + payload, nil
}

func writeMultipart(w io.Writer, boundary string, files []uploads.File) error {
	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(boundary); err != nil {
		return err
	}
	for _, f := range files {
		part, err := mw.CreatePart(partHeader(f))
		if err != nil {
			return err
		}
		n, err := io.Copy(part, f.Reader)
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
		if n != f.Size {
			return fmt.Errorf("read %s: got %d bytes, declared %d", f.Name, n, f.Size)
		}
	}
	return mw.Close()
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// progressReader reports cumulative bytes handed to the transport.
type progressReader struct {
	r          io.Reader
	closer     io.Closer
	total      int64
	onProgress uploads.ProgressFunc

	mu   sync.Mutex
	sent int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.onProgress != nil {
		p.mu.Lock()
		p.sent += int64(n)
		sent := p.sent
		p.mu.Unlock()
		p.onProgress(sent, p.total)
	}
	return n, err
}

func (p *progressReader) Close() error {
	return p.closer.Close()
}
