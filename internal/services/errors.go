package services

import "errors"

// Campaign service errors
var (
	// ErrNoFiles is returned when an upload carries no file at all.
	ErrNoFiles = errors.New("no files provided")

	ErrUnknownExportFormat = errors.New("unknown export format")
)
