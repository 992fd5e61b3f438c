package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "salescleanse/internal/errors"
	"salescleanse/internal/shared/testutil"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
		wantErr  bool
	}{
		{"sales.csv", FormatCSV, false},
		{"SALES.CSV", FormatCSV, false},
		{"book.xlsx", FormatXLSX, false},
		{"book.XLSM", FormatXLSX, false},
		{"data.json", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := DetectFormat(tt.filename)
			if tt.wantErr {
				require.ErrorIs(t, err, apierrors.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRead_DispatchesByFormat(t *testing.T) {
	set, err := Read(strings.NewReader(testutil.SampleCSV), FormatCSV, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 6, set.Len())

	_, err = Read(strings.NewReader("x"), Format("pdf"), testLogger(t))
	require.ErrorIs(t, err, apierrors.ErrUnsupportedFormat)
}

func TestReadFile_DispatchesByExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testutil.SampleCSV), 0o644))

	set, err := ReadFile(csvPath, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 6, set.Len())

	xlsx := buildWorkbook(t, [][]interface{}{
		{"transaction_id", "quantity", "price"},
		{"T1", "2", "5.00"},
	})
	xlsxPath := filepath.Join(dir, "sales.xlsx")
	require.NoError(t, xlsx.SaveAs(xlsxPath))

	set, err = ReadFile(xlsxPath, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())

	_, err = ReadFile(filepath.Join(dir, "sales.txt"), testLogger(t))
	require.ErrorIs(t, err, apierrors.ErrUnsupportedFormat)
}

func TestSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"csv", "xlsx"}, SupportedFormats())
}
