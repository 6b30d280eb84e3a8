package apiclient

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"inspectsync/domain/contracts"
	"inspectsync/logging"
)

// RequestIDHeader carries a per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// AuthTransport decorates every outgoing request with the current session's
// bearer token. The store is queried per request, never cached, so refreshed
// or revoked credentials take effect on the next call. Requests without a
// session go out unauthenticated; the server decides what that means.
type AuthTransport struct {
	Base     http.RoundTripper
	Sessions contracts.SessionStore
	Logger   *logging.Logger
}

// RoundTrip implements http.RoundTripper. The caller's request is never mutated.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	out := req.Clone(ctx)

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
		out.Header.Set(RequestIDHeader, requestID)
	}

	credential := "MISSING"
	if t.Sessions != nil {
		token, ok, err := t.Sessions.CurrentToken(ctx)
		if err != nil {
			if req.Body != nil {
				req.Body.Close()
			}
			return nil, fmt.Errorf("session lookup: %w", err)
		}
		if ok && token != "" {
			out.Header.Set("Authorization", "Bearer "+token)
			credential = "PRESENT"
		}
	}

	t.logger().API("Outgoing request",
		"request_id", requestID,
		"method", req.Method,
		"path", req.URL.Path,
		"credential", credential)

	return t.base().RoundTrip(out)
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *AuthTransport) logger() *logging.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return logging.Default()
}
