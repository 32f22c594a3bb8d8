// Package exporter writes the cleaned sales table to disk.
//
// Four formats are supported, each with a reader so outputs can be checked
// by reloading them:
//
//   - parquet: zstd-compressed, categorical columns as dictionary-encoded ENUM strings
//   - xlsx: a "Cleaned Data" sheet and a "Quality Report" sheet
//   - arrow: an Arrow IPC file whose dictionaries list every permitted value
//   - csv: UTF-8 with a byte order mark for spreadsheet tools
//
// Every file is written to a temporary name and renamed into place. After the
// outputs, Exporter can write a warnings listing and a JSON manifest with the
// size and BLAKE2b-256 checksum of each output.
//
// Example usage:
//
//	exp, err := exporter.New(exporter.Options{
//	    Dir:           "out",
//	    Base:          "SupermarketSales_Cleaned",
//	    Formats:       exporter.DefaultFormats,
//	    WriteManifest: true,
//	})
//	if err != nil {
//	    return err
//	}
//	manifest, err := exp.Export(ctx, table, report)
package exporter
