package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"inspectsync/domain/apierrors"
	"inspectsync/domain/contracts"
	"inspectsync/domain/inspections"
	"inspectsync/logging"
)

// DefaultBaseURL is used when no API base URL is configured.
const DefaultBaseURL = "http://localhost:8000"

// Options configures a Client.
type Options struct {
	BaseURL  string                 // Remote API root, e.g. https://api.example.com
	Sessions contracts.SessionStore // Credential source consulted on every request; nil means unauthenticated
	Timeout  time.Duration          // Per-call timeout for JSON requests; 0 disables. Uploads are never timed out
	Base     http.RoundTripper      // Underlying transport; defaults to http.DefaultTransport
	Logger   *logging.Logger
}

// Client is the typed HTTP client for the inspection API.
// Every call performs exactly one request: no retries and no caching.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *logging.Logger
}

// New creates a Client. The session store is attached through AuthTransport,
// so JSON calls and uploads carry the same credential.
func New(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", base)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("api_client")

	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		httpClient: &http.Client{
			Transport: &AuthTransport{Base: opts.Base, Sessions: opts.Sessions, Logger: logger},
		},
		timeout: opts.Timeout,
		logger:  logger,
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string { return c.baseURL }

// ListInspections returns every inspection visible to the current session.
func (c *Client) ListInspections(ctx context.Context) ([]inspections.Inspection, error) {
	var wire []inspectionJSON
	if err := c.getJSON(ctx, "list inspections", "/inspections", &wire); err != nil {
		return nil, err
	}
	out := make([]inspections.Inspection, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toDomain())
	}
	return out, nil
}

// GetInspection fetches one inspection by ID.
func (c *Client) GetInspection(ctx context.Context, inspectionID string) (*inspections.Inspection, error) {
	if err := validateID("inspection_id", inspectionID); err != nil {
		return nil, err
	}
	var wire inspectionJSON
	if err := c.getJSON(ctx, "get inspection", "/inspections/"+url.PathEscape(inspectionID), &wire); err != nil {
		return nil, err
	}
	insp := wire.toDomain()
	return &insp, nil
}

// CreateInspection creates an inspection from its creatable subset.
// The payload is sent as given; normalization is the caller's concern.
func (c *Client) CreateInspection(ctx context.Context, create inspections.InspectionCreate) (*inspections.Inspection, error) {
	if strings.TrimSpace(create.Name) == "" {
		return nil, apierrors.Invalid("name", "must not be empty")
	}
	var wire inspectionJSON
	if err := c.doJSON(ctx, "create inspection", http.MethodPost, "/inspections", create, &wire); err != nil {
		return nil, err
	}
	insp := wire.toDomain()
	return &insp, nil
}

// ListFiles returns the files attached to an inspection with their processing status.
func (c *Client) ListFiles(ctx context.Context, inspectionID string) ([]inspections.FileRecord, error) {
	if err := validateID("inspection_id", inspectionID); err != nil {
		return nil, err
	}
	var wire struct {
		Files []fileJSON `json:"files"`
	}
	if err := c.getJSON(ctx, "list files", "/inspections/"+url.PathEscape(inspectionID)+"/files", &wire); err != nil {
		return nil, err
	}
	out := make([]inspections.FileRecord, 0, len(wire.Files))
	for _, f := range wire.Files {
		out = append(out, f.toDomain())
	}
	return out, nil
}

// GetFile fetches one file's metadata, including a presigned download URL when available.
func (c *Client) GetFile(ctx context.Context, fileID string) (*inspections.FileDetail, error) {
	if err := validateID("file_id", fileID); err != nil {
		return nil, err
	}
	var wire fileDetailJSON
	if err := c.getJSON(ctx, "get file", "/files/"+url.PathEscape(fileID), &wire); err != nil {
		return nil, err
	}
	detail := wire.toDomain()
	return &detail, nil
}

// ListFindings returns the findings derived for an inspection so far.
func (c *Client) ListFindings(ctx context.Context, inspectionID string) ([]inspections.Finding, error) {
	if err := validateID("inspection_id", inspectionID); err != nil {
		return nil, err
	}
	var wire struct {
		Findings []findingJSON `json:"findings"`
	}
	if err := c.getJSON(ctx, "list findings", "/inspections/"+url.PathEscape(inspectionID)+"/findings", &wire); err != nil {
		return nil, err
	}
	out := make([]inspections.Finding, 0, len(wire.Findings))
	for _, f := range wire.Findings {
		out = append(out, f.toDomain())
	}
	return out, nil
}

// GetInspectionStats returns the dashboard aggregate counters.
func (c *Client) GetInspectionStats(ctx context.Context) (*inspections.InspectionStats, error) {
	var stats inspections.InspectionStats
	if err := c.getJSON(ctx, "get inspection stats", "/inspections/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetFindingsStats returns the findings-per-category distribution.
func (c *Client) GetFindingsStats(ctx context.Context) ([]inspections.CategoryCount, error) {
	var counts []inspections.CategoryCount
	if err := c.getJSON(ctx, "get findings stats", "/findings/stats", &counts); err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []inspections.CategoryCount{}
	}
	return counts, nil
}

// GetReviewQueue returns findings flagged for human review across all inspections.
func (c *Client) GetReviewQueue(ctx context.Context) ([]inspections.ReviewItem, error) {
	var wire []reviewItemJSON
	if err := c.getJSON(ctx, "get review queue", "/findings/review-queue", &wire); err != nil {
		return nil, err
	}
	out := make([]inspections.ReviewItem, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toDomain())
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	return c.doJSON(ctx, op, http.MethodGet, path, nil, out)
}

// doJSON performs one JSON request and maps every failure onto the apierrors
// taxonomy. Status errors are returned unwrapped so their message stays verbatim.
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.roundTripFailure(ctx, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.roundTripFailure(ctx, op, err)
	}

	c.logger.API("API request completed",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if !isSuccess(resp.StatusCode) {
		return apierrors.NewStatusError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("Failed to decode API response", "op", op, "error", err.Error())
		return apierrors.NewDecodeError(op, err)
	}
	return nil
}

// roundTripFailure separates caller cancellation from genuine transport
// failures. A timeout counts as a transport failure.
func (c *Client) roundTripFailure(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) && errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	c.logger.Warn("API request failed", "op", op, "error", err.Error())
	return apierrors.NewTransportError(op, err)
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}

// validateID rejects identifiers that cannot address a resource before any request is made.
func validateID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return apierrors.Invalid(field, "must not be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return apierrors.Invalid(field, "%q is not a valid identifier", id)
	}
	return nil
}

var _ contracts.InspectionAPI = (*Client)(nil)
