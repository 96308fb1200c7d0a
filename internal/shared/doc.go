// Package shared holds helpers used across Sponsorama packages that belong to no
// single domain or layer.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- In-memory campaign workbooks and zip archives built with excelize
//	- A buffered slog handler with assertions on captured records
//
// Example usage:
//
//	func TestExtract(t *testing.T) {
//	    data := testutil.Workbook(t, testutil.CampaignCells().With(testutil.Cells{"I8": 0}))
//	    logger, handler := testutil.NewTestLogger(t)
//	    // ...
//	}
package shared
