package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"sponsorama/pkg/contracts/domain"
)

// Fixed cell template agreed with the producers of campaign workbooks.
// Coordinates are A1 references on the first sheet.
const (
	CellPeriod     = "B8"
	CellTarget     = "G6"
	CellCountA     = "C8"
	CellCountB     = "D8"
	CellCountTotal = "E8"
	CellGRPA       = "G8"
	CellGRPB       = "H8"
	CellGRPTotal   = "I8"
	CellCoverage   = "J8"
	CellFrequency  = "K8"
)

// Worksheet is the read-only view of a sheet the extractor needs.
type Worksheet interface {
	Cell(axis string) (RawCell, error)
}

// Extractor builds campaign records from worksheets laid out on the fixed template.
type Extractor struct {
	logger *slog.Logger
	newID  func() string
}

// NewExtractor creates an extractor. A nil logger falls back to slog.Default.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		logger: logger.With(slog.String("component", "cell_extractor")),
		newID:  uuid.NewString,
	}
}

// Extract reads the template cells of ws and returns the campaign record named after
// sourceName. The boolean is false when the sheet holds no valid campaign: empty
// name, zero total GRP, unreadable cells or any fault while reading. Extract never
// panics and never returns an error; faults are logged.
func (e *Extractor) Extract(ctx context.Context, ws Worksheet, sourceName string) (record domain.CampaignRecord, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.WarnContext(ctx, "campaign extraction aborted",
				slog.String("source", sourceName),
				slog.String("panic", fmt.Sprint(rec)))
			record, ok = domain.CampaignRecord{}, false
		}
	}()

	if ws == nil {
		e.logger.WarnContext(ctx, "campaign extraction skipped: no worksheet",
			slog.String("source", sourceName))
		return domain.CampaignRecord{}, false
	}

	cells := templateReader{ws: ws}
	record = domain.CampaignRecord{
		Name:       CampaignName(sourceName),
		Period:     AsText(cells.read(CellPeriod)),
		Target:     AsText(cells.read(CellTarget)),
		CountA:     AsCount(cells.read(CellCountA)),
		CountB:     AsCount(cells.read(CellCountB)),
		CountTotal: AsCount(cells.read(CellCountTotal)),
		GRPA:       AsNumber(cells.read(CellGRPA)),
		GRPB:       AsNumber(cells.read(CellGRPB)),
		GRPTotal:   AsNumber(cells.read(CellGRPTotal)),
		Coverage:   AsNumber(cells.read(CellCoverage)),
		Frequency:  AsNumber(cells.read(CellFrequency)),
	}
	if cells.err != nil {
		e.logger.WarnContext(ctx, "campaign extraction failed",
			slog.String("source", sourceName),
			slog.String("cell", cells.failedAt),
			slog.String("error", cells.err.Error()))
		return domain.CampaignRecord{}, false
	}

	if !record.Valid() {
		e.logger.DebugContext(ctx, "sheet rejected",
			slog.String("source", sourceName),
			slog.String("name", record.Name),
			slog.Float64("grp_total", record.GRPTotal))
		return domain.CampaignRecord{}, false
	}

	record.ID = e.newID()
	return record, true
}

// CampaignName derives a campaign name from a file or archive entry name by
// stripping a trailing .xlsx or .xls, case-insensitively.
func CampaignName(sourceName string) string {
	lower := strings.ToLower(sourceName)
	for _, ext := range []string{".xlsx", ".xls"} {
		if strings.HasSuffix(lower, ext) {
			return sourceName[:len(sourceName)-len(ext)]
		}
	}
	return sourceName
}

// templateReader reads cells and keeps the first error so the caller can check once.
type templateReader struct {
	ws       Worksheet
	err      error
	failedAt string
}

func (t *templateReader) read(axis string) Cleaned {
	if t.err != nil {
		return Text(textFallback)
	}
	raw, err := t.ws.Cell(axis)
	if err != nil {
		t.err, t.failedAt = err, axis
		return Text(textFallback)
	}
	return Clean(raw)
}
