// Package dataprocessing cleans the supermarket sales dataset. It turns a raw
// table of strings, as read from a CSV or Excel file, into typed transaction
// records that are safe to hand to the exporters.
//
// # Architecture
//
// Run executes a fixed sequence of stages, each a pure function of its input:
//
// 1. Load: checks the raw header against the column contract and the width of every row
// 2. Normalize: Unicode folding, whitespace cleanup, long-to-short category codes
// 3. Coerce: converts every cell to its semantic type
// 4. Temporal: merges the Date and Time columns into one timestamp
// 5. Financial: checks sales = cogs + tax for every row
// 6. Ranges: checks per-record bounds declared on domain.Transaction
// 7. Summary: builds the per-column quality summary
//
// # Usage
//
//	raw, err := dataprocessing.LoadFile(ctx, "SuperMarketAnalysis.csv", dataprocessing.LoadOptions{})
//	if err != nil {
//	    return err
//	}
//	table, report, err := dataprocessing.Run(ctx, raw, dataprocessing.Options{Contract: c})
//
// # Error Handling
//
// Structural problems, malformed timestamps and values outside their column
// type abort the run. Every offending cell of the failing stage is reported at
// once as a joined error of *errors.PipelineError values. Financial, range and
// unmapped-category findings are warnings: they are collected in the Report
// and never stop the run.
package dataprocessing
