package ingest

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	apierrors "salescleanse/internal/errors"
	"salescleanse/pkg/contracts/domain"
)

// ExcelReader ingests .xlsx workbooks. Only the first sheet is read; the
// header row is located by scanning because exports often put a title row
// above the table.
type ExcelReader struct {
	logger *slog.Logger
}

// NewExcelReader creates an Excel source adapter.
func NewExcelReader(logger *slog.Logger) *ExcelReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelReader{logger: logger}
}

// ReadFile parses records from an .xlsx workbook on disk.
func (e *ExcelReader) ReadFile(path string) (*domain.RecordSet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apierrors.NewIngestError(fmt.Sprintf("open workbook %s", path), err)
	}
	defer f.Close()
	return e.read(f)
}

// Read parses records from an .xlsx stream. Bytes that do not open as a
// workbook report an unsupported format, so uploads with a misleading
// extension fail cleanly.
func (e *ExcelReader) Read(r io.Reader) (*domain.RecordSet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable xlsx workbook", apierrors.ErrUnsupportedFormat)
	}
	defer f.Close()
	return e.read(f)
}

func (e *ExcelReader) read(f *excelize.File) (*domain.RecordSet, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apierrors.ErrMissingHeader
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apierrors.NewParsingError(fmt.Sprintf("read sheet %s", sheet), err)
	}

	set, err := recordsFromRows(rows)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("excel_ingest_completed",
		slog.String("sheet", sheet),
		slog.Int("records", set.Len()),
		slog.Int("rejected", len(set.Rejected)))

	return set, nil
}
