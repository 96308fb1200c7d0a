package dataprocessing

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var errNoSheets = errors.New("workbook has no sheets")

// excelSheet adapts one excelize sheet to the Worksheet interface.
type excelSheet struct {
	file  *excelize.File
	sheet string
}

// openFirstSheet decodes a workbook from memory and returns its first sheet.
// The format is sniffed from the content: compound files are legacy BIFF
// workbooks, anything else is read as Office Open XML. The caller must call
// release once it is done with the sheet.
func openFirstSheet(data []byte) (ws Worksheet, release func(), err error) {
	if isLegacyWorkbook(data) {
		sheet, err := openLegacySheet(data)
		if err != nil {
			return nil, nil, err
		}
		return sheet, func() {}, nil
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, nil, errNoSheets
	}
	return &excelSheet{file: f, sheet: sheets[0]}, func() { f.Close() }, nil
}

// Cell returns the stored value of a cell, typed the way the workbook stored it.
func (s *excelSheet) Cell(axis string) (RawCell, error) {
	typ, err := s.file.GetCellType(s.sheet, axis)
	if err != nil {
		return RawCell{}, fmt.Errorf("cell %s type: %w", axis, err)
	}
	raw, err := s.file.GetCellValue(s.sheet, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return RawCell{}, fmt.Errorf("cell %s value: %w", axis, err)
	}
	if raw == "" {
		return RawCell{Kind: RawEmpty}, nil
	}

	switch typ {
	case excelize.CellTypeBool:
		return RawCell{Kind: RawBool, Bool: raw == "1" || strings.EqualFold(raw, "true")}, nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset, excelize.CellTypeDate, excelize.CellTypeFormula:
		// Numbers are stored untyped or "n"; formulas keep their cached result.
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return RawCell{Kind: RawNumber, Number: n}, nil
		}
	}
	return RawCell{Kind: RawString, String: raw}, nil
}
