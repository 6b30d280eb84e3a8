package apierrors

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetailMessage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"structured detail", `{"detail": "Inspection not found"}`, "Inspection not found"},
		{"plain text", "Internal Server Error", "Internal Server Error"},
		{"html", "<html>bad gateway</html>", "<html>bad gateway</html>"},
		{"json without detail", `{"error": "nope"}`, `{"error": "nope"}`},
		{"non-string detail", `{"detail": [{"loc": ["body"], "msg": "field required"}]}`, `{"detail": [{"loc": ["body"], "msg": "field required"}]}`},
		{"empty detail", `{"detail": ""}`, `{"detail": ""}`},
		{"empty body", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetailMessage([]byte(tt.body)))
		})
	}
}

func TestKindsAreDistinguishable(t *testing.T) {
	transport := fmt.Errorf("list inspections: %w", NewTransportError("GET /inspections", io.ErrUnexpectedEOF))
	decode := fmt.Errorf("list inspections: %w", NewDecodeError("GET /inspections", errors.New("bad json")))
	status := fmt.Errorf("list inspections: %w", NewStatusError(404, []byte(`{"detail":"missing"}`)))
	invalid := Invalid("inspection_id", "must not be empty")

	assert.True(t, errors.Is(transport, ErrNetwork))
	assert.True(t, errors.Is(transport, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(transport, ErrInvalidResponse))

	assert.True(t, errors.Is(decode, ErrInvalidResponse))
	assert.False(t, errors.Is(decode, ErrNetwork))

	assert.Equal(t, 404, StatusCode(status))
	assert.Equal(t, 0, StatusCode(transport))

	assert.True(t, IsValidation(invalid))
	assert.False(t, IsValidation(status))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "network error", Message(NewTransportError("op", io.EOF)))
	assert.Equal(t, "invalid response", Message(fmt.Errorf("wrap: %w", NewDecodeError("op", io.EOF))))
	assert.Equal(t, "missing", Message(fmt.Errorf("wrap: %w", NewStatusError(404, []byte(`{"detail":"missing"}`)))))
	assert.Equal(t, "files: no files selected", Message(Invalid("files", "no files selected")))
	assert.Equal(t, "boom", Message(errors.New("boom")))
}
