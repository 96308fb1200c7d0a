package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "sponsorama/internal/errors"
)

// UploadLimits bounds a single multipart upload.
type UploadLimits struct {
	MaxFiles     int   `validate:"gte=1"`
	MaxFileBytes int64 `validate:"gte=1"`
}

// RequestValidator validates decoded request payloads with struct tags.
type RequestValidator struct {
	validate *validator.Validate
	limits   UploadLimits
}

// NewRequestValidator creates a validator that reports fields by their JSON names.
func NewRequestValidator(limits UploadLimits) (*RequestValidator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.Struct(limits); err != nil {
		return nil, fmt.Errorf("invalid upload limits: %w", err)
	}
	return &RequestValidator{validate: v, limits: limits}, nil
}

// Limits returns the upload limits.
func (rv *RequestValidator) Limits() UploadLimits {
	return rv.limits
}

// ValidateStruct returns a VALIDATION_FAILED API error listing every failing field.
func (rv *RequestValidator) ValidateStruct(s any) error {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ValidateFileCount checks the number of files in an upload.
func (rv *RequestValidator) ValidateFileCount(n int) error {
	switch {
	case n == 0:
		return apierrors.ErrValidation("files", "at least one file is required")
	case n > rv.limits.MaxFiles:
		return apierrors.ErrValidation("files", fmt.Sprintf("at most %d files may be uploaded at once", rv.limits.MaxFiles))
	}
	return nil
}

// Reasons an uploaded part is skipped. They end up in the upload's failures,
// not in an error response.
var (
	ErrFileTooLarge    = errors.New("file exceeds the per-file size limit")
	ErrUnsupportedFile = errors.New("not an Excel workbook or zip archive")
)

// ValidateUploadFile checks one uploaded part before it is read.
func (rv *RequestValidator) ValidateUploadFile(name, mediaType string, size int64) error {
	if size > rv.limits.MaxFileBytes {
		return fmt.Errorf("%w of %d bytes", ErrFileTooLarge, rv.limits.MaxFileBytes)
	}
	if !IsAcceptedSource(name, mediaType) {
		return ErrUnsupportedFile
	}
	return nil
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
