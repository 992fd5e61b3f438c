package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"salescleanse/internal/config"
	apierrors "salescleanse/internal/errors"
	"salescleanse/pkg/contracts/domain"
)

// defaultReadRange is used when the configuration leaves the range empty.
const defaultReadRange = "Sales!A:Z"

// SheetsReader ingests records from a Google Sheets range.
type SheetsReader struct {
	service       *sheets.Service
	spreadsheetID string
	readRange     string
	logger        *slog.Logger
}

// NewSheetsReader builds a Sheets source adapter from configuration. A
// credentials file takes precedence over an API key; with neither set the
// client falls back to Application Default Credentials. Extra options are
// appended last so callers can override the endpoint.
func NewSheetsReader(ctx context.Context, cfg config.SheetsConfig, logger *slog.Logger, opts ...option.ClientOption) (*SheetsReader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SpreadsheetID == "" {
		return nil, apierrors.NewConfigError("sheets ingest requires a spreadsheet ID", nil)
	}

	var clientOpts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.APIKey != "":
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.APIKey))
	}
	clientOpts = append(clientOpts, opts...)

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, apierrors.NewConfigError("create sheets service", err)
	}

	readRange := cfg.ReadRange
	if readRange == "" {
		readRange = defaultReadRange
	}

	return &SheetsReader{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		readRange:     readRange,
		logger:        logger,
	}, nil
}

// Read fetches the configured range and parses it like an in-memory sheet.
// Fetch failures wrap ErrSheetsUnavailable so callers can distinguish a
// broken source from broken data.
func (s *SheetsReader) Read(ctx context.Context) (*domain.RecordSet, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrSheetsUnavailable, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, raw := range resp.Values {
		cells := make([]string, len(raw))
		for j, v := range raw {
			cells[j] = cellString(v)
		}
		rows[i] = cells
	}

	set, err := recordsFromRows(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Info("sheets_ingest_completed",
		slog.String("spreadsheet_id", s.spreadsheetID),
		slog.String("read_range", s.readRange),
		slog.Int("records", set.Len()),
		slog.Int("rejected", len(set.Rejected)))

	return set, nil
}

// cellString renders an API cell value. The default FORMATTED_VALUE render
// yields strings; numbers and booleans appear under unformatted reads.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
