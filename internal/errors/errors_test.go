package errors

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", InvalidRequestWithError(assert.AnError), http.StatusBadRequest, CodeInvalidRequest},
		{"validation", ErrValidation("target", "required"), http.StatusBadRequest, CodeValidationFailed},
		{"no valid data", NoValidData("no valid data found", nil), http.StatusUnprocessableEntity, CodeNoValidData},
		{"payload too large", PayloadTooLarge(10), http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
		{"panic", ErrPanic("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.Equal(t, tt.err.Message, tt.err.Error())
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrWebSocketUpgrade)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp struct {
		Success bool     `json:"success"`
		Error   APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, CodeWebSocketUpgrade, resp.Error.ErrorCode)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "", "/x").
		WithExtension("error_code", CodeValidationFailed).
		WithExtension("status", "ignored")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, float64(http.StatusBadRequest), body["status"], "standard members win over extensions")
	assert.Equal(t, CodeValidationFailed, body["error_code"])
	assert.NotContains(t, body, "detail")
	assert.Equal(t, "/x", body["instance"])
}

func TestProblemDetails_WithTraceID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"trace id set", "trace-1", true},
		{"no trace id", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").WithTraceID(tt.id))
			require.NoError(t, err)

			var body map[string]any
			require.NoError(t, json.Unmarshal(data, &body))
			if tt.want {
				assert.Equal(t, tt.id, body["trace_id"])
				return
			}
			assert.NotContains(t, body, "trace_id")
		})
	}
}
