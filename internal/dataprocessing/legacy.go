package dataprocessing

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// maxLegacyStreamBytes bounds the Workbook stream of a legacy workbook. The
// re-packed container has no extended allocation tables, which caps it near 7 MiB.
const maxLegacyStreamBytes = 6 << 20

// The decoder prints formula cells as this placeholder instead of their result.
const legacyFormulaPlaceholder = "FormulaCol"

// legacySheet adapts the first sheet of a BIFF workbook to the Worksheet interface.
type legacySheet struct {
	sheet *xls.WorkSheet
}

// openLegacySheet decodes a BIFF (.xls) workbook and returns its first sheet.
// The container and the records the decoder trusts are checked and re-packed
// first; anything the decoder still trips over is turned into an error.
func openLegacySheet(data []byte) (ws *legacySheet, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ws, err = nil, fmt.Errorf("legacy workbook: %v", rec)
		}
	}()

	stream, err := workbookStream(data)
	if err != nil {
		return nil, err
	}
	padded := make([]byte, packedStreamSize(len(stream)))
	copy(padded, stream)
	if err := sanitizeBIFF(padded); err != nil {
		return nil, err
	}
	packed, err := packCompoundFile(padded)
	if err != nil {
		return nil, err
	}

	wb, err := xls.OpenReader(bytes.NewReader(packed), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil || wb.NumSheets() == 0 {
		return nil, errNoSheets
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errNoSheets
	}
	return &legacySheet{sheet: sheet}, nil
}

// Cell returns a cell's displayed text as a string cell; Clean recovers numbers.
// Missing rows and columns read as empty.
func (s *legacySheet) Cell(axis string) (cell RawCell, err error) {
	col, row, err := excelize.CellNameToCoordinates(axis)
	if err != nil {
		return RawCell{}, fmt.Errorf("cell %s: %w", axis, err)
	}
	if row-1 > int(s.sheet.MaxRow) {
		return RawCell{Kind: RawEmpty}, nil
	}
	r := s.row(row - 1)
	if r == nil {
		return RawCell{Kind: RawEmpty}, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			cell, err = RawCell{}, fmt.Errorf("cell %s value: %v", axis, rec)
		}
	}()
	value := r.Col(col - 1)
	if value == "" || value == legacyFormulaPlaceholder {
		return RawCell{Kind: RawEmpty}, nil
	}
	return RawCell{Kind: RawString, String: value}, nil
}

// row returns nil for rows the sheet does not store; the decoder panics on those.
func (s *legacySheet) row(i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return s.sheet.Row(i)
}
