package apistub

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectsync/domain/inspections"
	"inspectsync/logging"
)

type filePart struct {
	name, contentType, body string
}

func multipartBody(t *testing.T, parts ...filePart) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+p.name+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func newStub(opts Options) *Server {
	opts.Logger = logging.Discard()
	return New(opts)
}

func TestServer_CreateAndList(t *testing.T) {
	s := newStub(Options{})

	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/inspections", strings.NewReader(`{"name":"  Depot  "}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created inspections.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Depot", created.Name)
	assert.Equal(t, inspections.InspectionStatusPending, created.Status)
	assert.Equal(t, OrgID, created.OrgID)

	s.Seed(inspections.InspectionCreate{Name: "Second"})

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/inspections", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []inspections.Inspection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].Name, "newest first")
}

func TestServer_CreateRejectsMalformedBody(t *testing.T) {
	s := newStub(Options{})
	rec := do(t, s, httptest.NewRequest(http.MethodPost, "/inspections", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"detail":[`)
}

func TestServer_UnknownInspection(t *testing.T) {
	s := newStub(Options{})
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/inspections/3f1e0000-0000-4000-8000-000000000000", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Inspection not found", detail(t, rec))
}

func TestServer_RequiresBearerWhenConfigured(t *testing.T) {
	s := newStub(Options{Token: "secret"})

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/inspections", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", detail(t, rec))

	req := httptest.NewRequest(http.MethodGet, "/inspections", nil)
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, http.StatusOK, do(t, s, req).Code)

	assert.Equal(t, http.StatusOK, do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
}

func TestServer_UploadAndAdvance(t *testing.T) {
	s := newStub(Options{})
	insp := s.Seed(inspections.InspectionCreate{Name: "Roof"})

	body, contentType := multipartBody(t,
		filePart{"roof.jpg", "image/jpeg", "jpeg"},
		filePart{"note.m4a", "audio/x-m4a", "audio"},
	)
	req := httptest.NewRequest(http.MethodPost, "/inspections/"+insp.ID+"/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(t, s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var uploaded struct {
		Files []inspections.UploadedFile `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	require.Len(t, uploaded.Files, 2)
	assert.Equal(t, "roof.jpg", uploaded.Files[0].FileName)
	assert.Equal(t, inspections.FileStatusProcessing, uploaded.Files[1].Status)

	got, _ := s.store.inspection(insp.ID)
	assert.Equal(t, inspections.InspectionStatusProcessing, got.Status)
	assert.Equal(t, 2, got.TotalFiles)

	s.Advance()

	files, ok := s.store.listFiles(insp.ID)
	require.True(t, ok)
	for _, f := range files {
		assert.Equal(t, inspections.FileStatusCompleted, f.record.Status)
	}

	got, _ = s.store.inspection(insp.ID)
	assert.Equal(t, inspections.InspectionStatusReview, got.Status, "the audio finding needs review")
	assert.Equal(t, 2, got.TotalFindings)
	require.NotNil(t, got.RiskLevel)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/findings/review-queue", nil))
	var queue []inspections.ReviewItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, "observation", queue[0].Category)
	assert.Equal(t, "Roof", queue[0].Inspection.Name)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/findings/stats", nil))
	var counts []inspections.CategoryCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, []inspections.CategoryCount{{Name: "observation", Value: 1}, {Name: "structural", Value: 1}}, counts)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/inspections/stats", nil))
	var stats inspections.InspectionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalInspections)
	assert.Equal(t, 2, stats.TotalFindings)
	assert.Equal(t, 1, stats.PendingReviews)
}

func TestServer_FileDetailUsesWireType(t *testing.T) {
	s := newStub(Options{})
	insp := s.Seed(inspections.InspectionCreate{Name: "Docs"})

	body, contentType := multipartBody(t, filePart{"permit.pdf", "", "%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"})
	req := httptest.NewRequest(http.MethodPost, "/inspections/"+insp.ID+"/files", body)
	req.Header.Set("Content-Type", contentType)
	rec := do(t, s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var uploaded struct {
		Files []inspections.UploadedFile `json:"files"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	require.Len(t, uploaded.Files, 1)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/files/"+uploaded.Files[0].ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "pdf", raw["file_type"])
	assert.Equal(t, "application/pdf", raw["mime_type"])
	assert.Equal(t, insp.ID, raw["inspection_id"])
}

func TestServer_UploadRejections(t *testing.T) {
	s := newStub(Options{MaxFileSize: 8})
	insp := s.Seed(inspections.InspectionCreate{Name: "Limits"})

	post := func(parts ...filePart) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, parts...)
		req := httptest.NewRequest(http.MethodPost, "/inspections/"+insp.ID+"/files", body)
		req.Header.Set("Content-Type", contentType)
		return do(t, s, req)
	}

	rec := post(filePart{"big.jpg", "image/jpeg", "123456789"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "File too large", detail(t, rec))

	rec = post(filePart{"notes.txt", "text/plain", "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported file type: notes.txt", detail(t, rec))

	rec = post()
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No files provided", detail(t, rec))

	files, _ := s.store.listFiles(insp.ID)
	assert.Empty(t, files, "rejected batches register nothing")
}

func TestServer_AdvanceLeavesEmptyInspectionsPending(t *testing.T) {
	s := newStub(Options{})
	insp := s.Seed(inspections.InspectionCreate{})
	s.Advance()
	got, _ := s.store.inspection(insp.ID)
	assert.Equal(t, inspections.InspectionStatusPending, got.Status)
	assert.Equal(t, inspections.DefaultInspectionName, got.Name)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newStub(Options{Token: "secret", CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/inspections", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := do(t, s, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code, "preflight is answered before the bearer check")
}
