package apiclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthTransport_TokenLookedUpPerRequest(t *testing.T) {
	var seen []string
	store := &tokenStore{}
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		writeJSON(w, http.StatusOK, []any{})
	}), store)

	ctx := context.Background()
	_, err := client.ListInspections(ctx)
	require.NoError(t, err)

	store.set("tok-1")
	_, err = client.ListInspections(ctx)
	require.NoError(t, err)

	store.set("tok-2")
	_, err = client.ListInspections(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "Bearer tok-1", "Bearer tok-2"}, seen)
}

func TestAuthTransport_KeepsCallerRequestID(t *testing.T) {
	var got string
	rt := &AuthTransport{Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = r.Header.Get(RequestIDHeader)
		return &http.Response{StatusCode: http.StatusNoContent, Body: http.NoBody, Request: r}, nil
	})}

	req, err := http.NewRequest(http.MethodGet, "http://example.test/inspections", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "abc-123", got)
	assert.Empty(t, req.Header.Get("Authorization"), "caller request must not be mutated")
}

func TestAuthTransport_SessionLookupFailure(t *testing.T) {
	called := false
	rt := &AuthTransport{
		Sessions: &tokenStore{err: errors.New("keychain locked")},
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("unreachable")
		}),
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.test/inspections", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keychain locked")
	assert.False(t, called)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
