package testutil

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Cells maps A1 references of the first sheet to the values written there.
type Cells map[string]any

// CampaignCells returns the template cells of a valid campaign workbook.
func CampaignCells() Cells {
	return Cells{
		"B8": "S1 2024",
		"G6": "Femmes 25-49",
		"C8": 100,
		"D8": 150,
		"E8": 250,
		"G8": 40,
		"H8": 60,
		"I8": 100,
		"J8": 35.5,
		"K8": 2.8,
	}
}

// With returns a copy of c with the given cells overridden. A nil value removes the cell.
func (c Cells) With(overrides Cells) Cells {
	out := make(Cells, len(c)+len(overrides))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range overrides {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Workbook builds an xlsx workbook in memory whose first sheet holds cells.
func Workbook(t testing.TB, cells Cells) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for axis, v := range cells {
		require.NoError(t, f.SetCellValue(sheet, axis, v))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// ArchiveEntry is one file of a test archive.
type ArchiveEntry struct {
	Name string
	Data []byte
}

// Archive builds a zip archive in memory holding entries in order.
func Archive(t testing.TB, entries ...ArchiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		require.NoError(t, err)
		_, err = w.Write(e.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
