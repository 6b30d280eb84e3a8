package apistub

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"

	"inspectsync/domain/inspections"
	"inspectsync/domain/uploads"
	"inspectsync/logging"
)

// sniffBytes is how much of each upload part is inspected to detect its type.
const sniffBytes = 3072

// Options configures a stub Server.
type Options struct {
	Token       string           // Required bearer token; empty accepts any caller
	CORSOrigins []string         // Browser origins allowed to call the stub; empty disables CORS
	MaxFileSize int64            // Per-file upload limit; 0 selects uploads.DefaultMaxFileSize
	HTTPLog     io.Writer        // Request log destination; nil disables request logging
	HTTPLogJSON bool             // Emit request logs as JSON
	Now         func() time.Time // Clock for created_at stamps
	Logger      *logging.Logger
}

// Server serves the inspection API from memory.
type Server struct {
	opts   Options
	store  *store
	logger *logging.Logger
	router chi.Router
}

// New builds a stub with empty state.
func New(opts Options) *Server {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = uploads.DefaultMaxFileSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{
		opts:   opts,
		store:  newStore(opts.Now),
		logger: logger.WithComponent("apistub"),
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Advance steps every unsettled file forward once and completes inspections
// whose files have all settled.
func (s *Server) Advance() {
	s.store.advance()
	s.logger.Debug("Advanced processing state")
}

// Run calls Advance every interval until ctx is done.
func (s *Server) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Advance()
		}
	}
}

// Seed creates an inspection directly, bypassing HTTP.
func (s *Server) Seed(create inspections.InspectionCreate) inspections.Inspection {
	return s.store.createInspection(create)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.opts.HTTPLog != nil {
		httpLogger := httplog.NewLogger("inspect-apistub", httplog.Options{
			Writer:   s.opts.HTTPLog,
			JSON:     s.opts.HTTPLogJSON,
			LogLevel: slog.LevelInfo,
			Concise:  true,
		})
		r.Use(httplog.RequestLogger(httpLogger))
	}
	r.Use(middleware.Recoverer)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)

		r.Route("/inspections", func(r chi.Router) {
			r.Get("/", s.listInspections)
			r.Post("/", s.createInspection)
			r.Get("/stats", s.inspectionStats)
			r.Route("/{inspectionID}", func(r chi.Router) {
				r.Get("/", s.getInspection)
				r.Get("/files", s.listFiles)
				r.Post("/files", s.uploadFiles)
				r.Get("/findings", s.listFindings)
			})
		})
		r.Get("/files/{fileID}", s.getFile)
		r.Get("/findings/stats", s.findingsStats)
		r.Get("/findings/review-queue", s.reviewQueue)
	})

	return r
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listInspections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listInspections())
}

func (s *Server) createInspection(w http.ResponseWriter, r *http.Request) {
	var create inspections.InspectionCreate
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		// Validation failures carry a structured detail, not a string.
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body"}, "msg": "invalid JSON body"}},
		})
		return
	}
	insp := s.store.createInspection(create)
	s.logger.Info("Inspection created", "inspection_id", insp.ID, "name", insp.Name)
	writeJSON(w, http.StatusCreated, insp)
}

func (s *Server) getInspection(w http.ResponseWriter, r *http.Request) {
	insp, ok := s.store.inspection(chi.URLParam(r, "inspectionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Inspection not found")
		return
	}
	writeJSON(w, http.StatusOK, insp)
}

// fileView shadows the domain file type with the server's wire vocabulary.
type fileView struct {
	inspections.FileRecord
	FileType string `json:"file_type"`
}

type fileDetailView struct {
	fileView
	MimeType     string `json:"mime_type"`
	InspectionID string `json:"inspection_id"`
	DownloadURL  string `json:"download_url"`
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	files, ok := s.store.listFiles(chi.URLParam(r, "inspectionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Inspection not found")
		return
	}
	views := make([]fileView, 0, len(files))
	for _, f := range files {
		views = append(views, fileView{FileRecord: f.record, FileType: f.wireType})
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": views})
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	f, ok := s.store.file(chi.URLParam(r, "fileID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "File not found")
		return
	}
	writeJSON(w, http.StatusOK, fileDetailView{
		fileView:     fileView{FileRecord: f.record, FileType: f.wireType},
		MimeType:     f.mimeType,
		InspectionID: f.inspectionID,
		DownloadURL:  "https://storage.invalid/" + f.record.ID + "?signature=stub",
	})
}

var (
	errFileTooLarge    = errors.New("file too large")
	errUnsupportedType = errors.New("unsupported file type")
)

func (s *Server) uploadFiles(w http.ResponseWriter, r *http.Request) {
	inspectionID := chi.URLParam(r, "inspectionID")
	if _, ok := s.store.inspection(inspectionID); !ok {
		writeDetail(w, http.StatusNotFound, "Inspection not found")
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Expected multipart/form-data")
		return
	}

	var batch []incomingFile
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Malformed multipart body")
			return
		}
		if part.FormName() != "files" {
			part.Close()
			continue
		}

		in, err := s.readPart(part.FileName(), part.Header.Get("Content-Type"), part)
		part.Close()
		switch {
		case errors.Is(err, errFileTooLarge):
			writeDetail(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		case errors.Is(err, errUnsupportedType):
			writeDetail(w, http.StatusBadRequest, "Unsupported file type: "+part.FileName())
			return
		case err != nil:
			writeDetail(w, http.StatusBadRequest, "Malformed multipart body")
			return
		}
		batch = append(batch, in)
	}
	if len(batch) == 0 {
		writeDetail(w, http.StatusBadRequest, "No files provided")
		return
	}

	summaries, ok := s.store.addFiles(inspectionID, batch)
	if !ok {
		writeDetail(w, http.StatusNotFound, "Inspection not found")
		return
	}
	s.logger.Info("Files uploaded", "inspection_id", inspectionID, "count", len(summaries))
	writeJSON(w, http.StatusCreated, map[string]any{"files": summaries})
}

// readPart drains one file part, sniffing its type when the client sent none.
func (s *Server) readPart(name, declared string, body io.Reader) (incomingFile, error) {
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return incomingFile{}, err
	}
	head = head[:n]

	rest, err := io.Copy(io.Discard, io.LimitReader(body, s.opts.MaxFileSize-int64(n)+1))
	if err != nil {
		return incomingFile{}, err
	}
	size := int64(n) + rest
	if size > s.opts.MaxFileSize {
		return incomingFile{}, errFileTooLarge
	}

	mimeType := declared
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(head).String()
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	category, accepted := uploads.Category(uploads.File{Name: name, ContentType: mimeType})
	if !accepted {
		return incomingFile{}, errUnsupportedType
	}
	return incomingFile{name: name, mimeType: mimeType, category: category, size: size}, nil
}

func (s *Server) listFindings(w http.ResponseWriter, r *http.Request) {
	found, ok := s.store.listFindings(chi.URLParam(r, "inspectionID"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Inspection not found")
		return
	}
	if found == nil {
		found = []inspections.Finding{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"findings": found})
}

func (s *Server) inspectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.inspectionStats())
}

func (s *Server) findingsStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.findingsStats())
}

func (s *Server) reviewQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.reviewQueue())
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
