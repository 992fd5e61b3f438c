package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apierrors "salescleanse/internal/errors"
	"salescleanse/pkg/contracts/domain"
)

// Workbook sheet names.
const (
	SheetCleaned  = "Cleaned"
	SheetProblems = "Problems"
	SheetRejected = "Rejected"
)

// writeWorkbook writes the run as a three-sheet workbook: every cleaned
// record, the subset carrying at least one flag, and the rejected rows.
func (e *RunExporter) writeWorkbook(result *domain.Result) (string, error) {
	path := e.csv.resolvePath(WorkbookFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", apierrors.NewExportError("create export directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCleaned); err != nil {
		return "", apierrors.NewExportError("name cleaned sheet", err)
	}
	for _, sheet := range []string{SheetProblems, SheetRejected} {
		if _, err := f.NewSheet(sheet); err != nil {
			return "", apierrors.NewExportError(fmt.Sprintf("create %s sheet", sheet), err)
		}
	}

	columns := cleanedColumns(result.Clean.Records)
	if err := writeRecordSheet(f, SheetCleaned, columns, result.Clean.Records); err != nil {
		return "", apierrors.NewExportError("write cleaned sheet", err)
	}
	if err := writeRecordSheet(f, SheetProblems, columns, flaggedRecords(result.Clean.Records)); err != nil {
		return "", apierrors.NewExportError("write problems sheet", err)
	}
	if err := writeRejectedSheet(f, result.RejectedRows()); err != nil {
		return "", apierrors.NewExportError("write rejected sheet", err)
	}

	if err := f.SaveAs(path); err != nil {
		return "", apierrors.NewExportError("save workbook", err)
	}
	return path, nil
}

// flaggedRecords returns the records carrying at least one advisory flag,
// in set order.
func flaggedRecords(records []domain.Record) []domain.Record {
	var flagged []domain.Record
	for i := range records {
		if len(records[i].Flags) > 0 {
			flagged = append(flagged, records[i])
		}
	}
	return flagged
}

// writeRecordSheet streams a header row and one row per record. Stream
// writers need ascending rows and a flush per sheet, so sheets are
// written one at a time.
func writeRecordSheet(f *excelize.File, sheet string, columns []string, records []domain.Record) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("stream %s: %w", sheet, err)
	}
	if err := writeSheetRow(sw, 1, headerCells(columns)); err != nil {
		return err
	}
	for i := range records {
		if err := writeSheetRow(sw, i+2, recordCells(&records[i], columns)); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func writeRejectedSheet(f *excelize.File, rejected []domain.RejectedRow) error {
	columns := rejectedColumns(rejected)

	sw, err := f.NewStreamWriter(SheetRejected)
	if err != nil {
		return fmt.Errorf("stream %s: %w", SheetRejected, err)
	}
	if err := writeSheetRow(sw, 1, headerCells(columns)); err != nil {
		return err
	}
	for i := range rejected {
		cells := stringCells(rejectedRow(&rejected[i], columns))
		if err := writeSheetRow(sw, i+2, cells); err != nil {
			return err
		}
	}
	return sw.Flush()
}

func writeSheetRow(sw *excelize.StreamWriter, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return sw.SetRow(cell, cells)
}

func headerCells(columns []string) []interface{} {
	return stringCells(columns)
}

func stringCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
