package exporter

import (
	"io"
	"log/slog"

	"sponsorama/pkg/contracts/domain"
)

// Exporter serializes campaign records in one format.
type Exporter interface {
	Format() Format
	Write(w io.Writer, records []domain.CampaignRecord) error
	WriteFile(filePath string, records []domain.CampaignRecord) error
}

// New returns the exporter of format.
func New(format Format, logger *slog.Logger) (Exporter, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return NewXLSXWriter(logger), nil
	}
	return NewCSVWriter(logger), nil
}
