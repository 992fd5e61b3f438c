package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	apierrors "salescleanse/internal/errors"
	"salescleanse/pkg/contracts/domain"
)

// utf8BOM is the byte order mark Excel prepends to CSV exports.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVReader ingests header-mapped CSV input.
type CSVReader struct {
	logger *slog.Logger
}

// NewCSVReader creates a CSV source adapter.
func NewCSVReader(logger *slog.Logger) *CSVReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVReader{logger: logger}
}

// ReadFile parses records from a CSV file on disk.
func (c *CSVReader) ReadFile(path string) (*domain.RecordSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apierrors.NewIngestError(fmt.Sprintf("open csv file %s", path), err)
	}
	defer f.Close()
	return c.Read(f)
}

// Read parses records from r. The first record must be the header row; data
// rows whose field count does not match it are rejected as unparseable
// instead of failing the read. Quotes lex lazily, the way spreadsheet tools
// emit them.
func (c *CSVReader) Read(r io.Reader) (*domain.RecordSet, error) {
	buf := bufio.NewReader(r)
	if lead, err := buf.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		if _, err := buf.Discard(len(utf8BOM)); err != nil {
			return nil, apierrors.NewIngestError("skip byte order mark", err)
		}
	}

	reader := csv.NewReader(buf)
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apierrors.ErrMissingHeader
	}
	if err != nil {
		return nil, apierrors.NewParsingError("read csv header", err)
	}

	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	set := domain.NewRecordSet()
	sourceRow := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		sourceRow++
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, apierrors.NewIngestError("read csv row", err)
			}
			set.RejectRaw(sourceRow, cols.fieldSnapshot(row), domain.ReasonUnparseableRow)
			c.logger.Warn("row_rejected",
				slog.Int("source_row", sourceRow),
				slog.String("reason", domain.ReasonUnparseableRow),
				slog.String("error", err.Error()))
			continue
		}
		if isEmptyRow(row) {
			continue
		}
		set.Append(cols.parseRow(row, sourceRow))
	}

	c.logger.Debug("csv_ingest_completed",
		slog.Int("records", set.Len()),
		slog.Int("rejected", len(set.Rejected)))

	return set, nil
}
