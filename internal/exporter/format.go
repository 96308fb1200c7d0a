package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"sponsorama/pkg/contracts/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Default export file names.
const (
	DefaultCSVName  = "sponsorama-export.csv"
	DefaultXLSXName = "sponsorama-export.xlsx"
)

// Headers are the column titles of every export, in column order.
var Headers = []string{
	"Nom", "Période", "Cible", "Nb BA", "Nb BB", "Nb Total",
	"GRP BA", "GRP BB", "GRP Total", "Couverture", "Répétition",
}

// ParseFormat accepts "csv" or "xlsx", case-insensitively. An empty string means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// FileName returns the default download name of the format.
func (f Format) FileName() string {
	if f == FormatXLSX {
		return DefaultXLSXName
	}
	return DefaultCSVName
}

// ContentType returns the media type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// formatFloat formats a float64 in its shortest decimal form
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// recordToRow renders a record as CSV cells in Headers order.
func recordToRow(r domain.CampaignRecord) []string {
	return []string{
		r.Name,
		r.Period,
		r.Target,
		formatInt(r.CountA),
		formatInt(r.CountB),
		formatInt(r.CountTotal),
		formatFloat(r.GRPA),
		formatFloat(r.GRPB),
		formatFloat(r.GRPTotal),
		formatFloat(r.Coverage),
		formatFloat(r.Frequency),
	}
}

// recordToValues returns the typed cell values of a record in Headers order.
func recordToValues(r domain.CampaignRecord) []any {
	return []any{
		r.Name, r.Period, r.Target,
		r.CountA, r.CountB, r.CountTotal,
		r.GRPA, r.GRPB, r.GRPTotal,
		r.Coverage, r.Frequency,
	}
}
