// Package exporter writes the artifacts of a pipeline run to disk.
//
// CSVWriter is the low-level writer: headers, records, optional UTF-8 BOM
// for Excel compatibility, and a StreamWriter variant for sets too large
// to buffer.
//
// RunExporter orchestrates one run's artifacts: the cleaned dataset (CSV
// or a Cleaned/Problems/Rejected workbook), the audit log, the rejected
// rows, and the optional quality report and summary profile.
//
//	exp := exporter.NewRunExporter(cfg.Export, logger)
//	paths, err := exp.Export(ctx, result)
package exporter
