package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"sponsorama/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter exports campaign records as CSV
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_exporter"))}
}

// Format implements Exporter.
func (w *CSVWriter) Format() Format { return FormatCSV }

// Write writes a UTF-8 BOM, the header line and one line per record.
func (w *CSVWriter) Write(out io.Writer, records []domain.CampaignRecord) error {
	// BOM helps Excel recognize UTF-8
	if _, err := out.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(Headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, r := range records {
		if err := writer.Write(recordToRow(r)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteFile exports records to filePath, creating parent directories.
func (w *CSVWriter) WriteFile(filePath string, records []domain.CampaignRecord) error {
	return writeFile(w.logger, filePath, records, w.Write)
}

func writeFile(logger *slog.Logger, filePath string, records []domain.CampaignRecord,
	write func(io.Writer, []domain.CampaignRecord) error) error {
	logger.Info("Writing export file",
		slog.String("file_path", filePath),
		slog.Int("record_count", len(records)))

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := write(file, records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
