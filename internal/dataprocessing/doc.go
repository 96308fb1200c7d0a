// Package dataprocessing turns campaign workbooks into validated records and
// derives filtered views and summary indicators from them.
//
// # Architecture
//
// The package is organized into two cooperating halves:
//
// 1. Ingestion: Reader decodes workbooks and ZIP archives, Extractor reads the fixed
// cell template of each first sheet, and Pipeline runs a batch of files through both.
// 2. Analysis: Apply filters records by facet, Summarize computes the indicators and
// Facets lists the values available for each facet.
//
// # Usage
//
//	pipeline := dataprocessing.NewPipeline(logger, nil, dataprocessing.PipelineOptions{})
//	result, err := pipeline.ProcessFiles(ctx, files)
//	if errors.Is(err, dataprocessing.ErrNoValidData) {
//	    // result.Failures explains every rejected file
//	}
//
//	view := dataprocessing.Apply(result.Records, domain.FilterState{Target: "hommes"})
//	summary := dataprocessing.Summarize(view)
//
// # Data Flow
//
//	files → Reader → Worksheet → Extractor → CampaignRecord → Apply → Summarize
//
// # Error Handling
//
// Faults are contained at the smallest level that can absorb them:
//
//   - a sheet that fails validation yields no record
//   - an archive entry that cannot be decoded is logged and skipped
//   - a file that yields no record is reported in IngestionResult.Failures
//   - a batch that yields no record returns ErrNoValidData
//
// Apply, Summarize and Facets are pure and never fail.
package dataprocessing
