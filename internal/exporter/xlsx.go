package exporter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"sponsorama/pkg/contracts/domain"
)

// SheetName is the name of the single sheet of a workbook export.
const SheetName = "Données Sponsorama"

// XLSXWriter exports campaign records as a workbook.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a workbook exporter.
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_exporter"))}
}

// Format implements Exporter.
func (w *XLSXWriter) Format() Format { return FormatXLSX }

// Write streams a workbook with the header row and one typed row per record.
func (w *XLSXWriter) Write(out io.Writer, records []domain.CampaignRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, recordToValues(r)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile exports records to filePath, creating parent directories.
func (w *XLSXWriter) WriteFile(filePath string, records []domain.CampaignRecord) error {
	return writeFile(w.logger, filePath, records, w.Write)
}
