package middleware

import (
	"mime"
	"net/http"
	"strings"

	apierrors "sponsorama/internal/errors"
)

// ContentTypeValidator rejects bodies whose media type is not one of contentTypes.
// Requests without a body-bearing method pass through.
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				errorHandler.HandleError(w, r, apierrors.ErrValidation("Content-Type", "header is required"))
				return
			}

			mediaType, _, err := mime.ParseMediaType(contentType)
			if err != nil {
				errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
				return
			}

			for _, allowed := range contentTypes {
				if strings.EqualFold(mediaType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				apierrors.CodeUnsupportedMedia,
				"Unsupported content type",
				map[string]any{
					"content_type": mediaType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

// MaxBodySize caps the request body; reads past the limit fail with *http.MaxBytesError,
// which the error handler reports as 413.
func MaxBodySize(limit int64, errorHandler *apierrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				errorHandler.HandleError(w, r, apierrors.PayloadTooLarge(limit))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
