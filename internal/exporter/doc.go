// Package exporter writes campaign records as CSV or as an xlsx workbook.
//
// Both writers produce the same eleven columns, titled by Headers, with one row
// per record in the order given:
//
// CSVWriter: UTF-8 BOM for Excel compatibility, then RFC 4180 quoting.
//
// XLSXWriter: a single "Données Sponsorama" sheet written through the excelize
// stream writer, with typed numeric cells.
//
// Example usage:
//
//	exp, err := exporter.New(exporter.FormatXLSX, logger)
//	if err != nil {
//	    return err
//	}
//	err = exp.Write(w, view.Records)
package exporter
