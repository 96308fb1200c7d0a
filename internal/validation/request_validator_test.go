package validation

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "sponsorama/internal/errors"
	"sponsorama/pkg/contracts/domain"
)

func newTestValidator(t *testing.T) *RequestValidator {
	t.Helper()
	rv, err := NewRequestValidator(UploadLimits{MaxFiles: 2, MaxFileBytes: 1024})
	require.NoError(t, err)
	return rv
}

func asAPIError(t *testing.T, err error) *apierrors.APIError {
	t.Helper()
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %T", err)
	return apiErr
}

func TestNewRequestValidator_RejectsBadLimits(t *testing.T) {
	_, err := NewRequestValidator(UploadLimits{MaxFiles: 0, MaxFileBytes: 1})
	assert.Error(t, err)
}

func TestRequestValidator_ValidateStruct(t *testing.T) {
	rv := newTestValidator(t)
	long := strings.Repeat("x", 201)

	assert.NoError(t, rv.ValidateStruct(domain.FilterState{Period: "S1 2024", SearchTerm: "camp"}))
	assert.NoError(t, rv.ValidateStruct(domain.FilterPatch{}))

	err := rv.ValidateStruct(domain.FilterState{Period: long, Target: long})
	apiErr := asAPIError(t, err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, apierrors.CodeValidationFailed, apiErr.ErrorCode)

	details, ok := apiErr.Details.(apierrors.ValidationErrors)
	require.True(t, ok)
	require.Len(t, details.Errors, 2)
	assert.Equal(t, "period", details.Errors[0].Field)
	assert.Equal(t, "must be at most 200 characters", details.Errors[0].Message)
	assert.Equal(t, "target", details.Errors[1].Field)

	err = rv.ValidateStruct(domain.FilterPatch{SearchTerm: &long})
	details = asAPIError(t, err).Details.(apierrors.ValidationErrors)
	assert.Equal(t, "search_term", details.Errors[0].Field)
}

func TestRequestValidator_Uploads(t *testing.T) {
	rv := newTestValidator(t)

	assert.Equal(t, UploadLimits{MaxFiles: 2, MaxFileBytes: 1024}, rv.Limits())

	assert.NoError(t, rv.ValidateFileCount(2))
	assert.Equal(t, http.StatusBadRequest, asAPIError(t, rv.ValidateFileCount(0)).StatusCode)
	assert.Equal(t, http.StatusBadRequest, asAPIError(t, rv.ValidateFileCount(3)).StatusCode)

	assert.NoError(t, rv.ValidateUploadFile("a.xlsx", "", 10))
	assert.NoError(t, rv.ValidateUploadFile("blob", "application/zip", 10))
	assert.ErrorIs(t, rv.ValidateUploadFile("a.xlsx", "", 2048), ErrFileTooLarge)
	assert.ErrorIs(t, rv.ValidateUploadFile("a.pdf", "application/pdf", 10), ErrUnsupportedFile)
}
