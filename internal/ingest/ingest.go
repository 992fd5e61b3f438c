// Package ingest turns raw tabular sources (CSV files, Excel workbooks,
// Google Sheets ranges) into domain record sets. Adapters map headers to the
// canonical sales columns, lex numeric cells leniently and reject
// structurally unparseable rows instead of failing the read; semantic
// cleaning belongs to the pipeline.
package ingest

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	apierrors "salescleanse/internal/errors"
	"salescleanse/pkg/contracts/domain"
)

// Format identifies a supported file-based input encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SupportedFormats lists the accepted upload formats for error payloads.
func SupportedFormats() []string {
	return []string{string(FormatCSV), string(FormatXLSX)}
}

// DetectFormat resolves a filename to its input format by extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", apierrors.ErrUnsupportedFormat, filepath.Base(filename))
	}
}

// Read parses records from r according to format.
func Read(r io.Reader, format Format, logger *slog.Logger) (*domain.RecordSet, error) {
	switch format {
	case FormatCSV:
		return NewCSVReader(logger).Read(r)
	case FormatXLSX:
		return NewExcelReader(logger).Read(r)
	default:
		return nil, fmt.Errorf("%w: %s", apierrors.ErrUnsupportedFormat, format)
	}
}

// ReadFile parses records from a local file, picking the adapter by
// extension.
func ReadFile(path string, logger *slog.Logger) (*domain.RecordSet, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		return NewCSVReader(logger).ReadFile(path)
	}
	return NewExcelReader(logger).ReadFile(path)
}
