package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"salescleanse/internal/config"
	apierrors "salescleanse/internal/errors"
)

func newFakeSheetsReader(t *testing.T, handler http.HandlerFunc) *SheetsReader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	reader, err := NewSheetsReader(context.Background(),
		config.SheetsConfig{SpreadsheetID: "sheet-123"},
		testLogger(t),
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return reader
}

func TestNewSheetsReader_RequiresSpreadsheetID(t *testing.T) {
	_, err := NewSheetsReader(context.Background(), config.SheetsConfig{}, testLogger(t))
	require.Error(t, err)

	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeConfig, appErr.Type)
}

func TestSheetsReader_Read(t *testing.T) {
	reader := newFakeSheetsReader(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "sheet-123")
		assert.Contains(t, r.URL.Path, "/values/")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"range":          "Sales!A1:G3",
			"majorDimension": "ROWS",
			"values": [][]interface{}{
				{"transaction_id", "date", "customer_id", "product_name", "quantity", "price", "total"},
				{"T900", "2024-04-01", "C3", "Cable", "2", "3.75", "7.50"},
				{"T901", "2024-04-02", "C4", "Hub", 3, 12.5, true},
			},
		})
	})

	set, err := reader.Read(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, set.Len())
	assert.Equal(t, "T900", set.Records[0].TransactionID)
	assert.Equal(t, "2024-04-01", set.Records[0].RawDate)

	// Unformatted reads deliver JSON numbers and booleans; they stringify
	// before lexing, and the boolean total lexes to null.
	second := set.Records[1]
	require.NotNil(t, second.Quantity)
	assert.EqualValues(t, 3, *second.Quantity)
	require.True(t, second.Price.Valid)
	assert.Equal(t, "12.5", second.Price.Decimal.String())
	assert.False(t, second.Total.Valid)
}

func TestSheetsReader_Read_SourceDown(t *testing.T) {
	reader := newFakeSheetsReader(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"backend"}}`, http.StatusInternalServerError)
	})

	_, err := reader.Read(context.Background())
	require.ErrorIs(t, err, apierrors.ErrSheetsUnavailable)
}

func TestSheetsReader_Read_MissingColumnsInSheet(t *testing.T) {
	reader := newFakeSheetsReader(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"range":          "Sales!A1:B2",
			"majorDimension": "ROWS",
			"values": [][]interface{}{
				{"transaction_id", "date"},
				{"T1", "2024-01-01"},
			},
		})
	})

	_, err := reader.Read(context.Background())
	require.ErrorIs(t, err, apierrors.ErrMissingColumns)
}

func TestSheetsReader_DefaultReadRange(t *testing.T) {
	var gotPath string
	reader := newFakeSheetsReader(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"values": [][]interface{}{
				{"transaction_id", "quantity", "price"},
			},
		})
	})

	_, err := reader.Read(context.Background())
	require.NoError(t, err)
	assert.Contains(t, gotPath, "Sales")
}
