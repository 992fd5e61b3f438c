package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salescleanse/internal/config"
	apierrors "salescleanse/internal/errors"
	"salescleanse/internal/shared/testutil"
	"salescleanse/internal/stats"
	"salescleanse/pkg/contracts/domain"
)

// exportResult builds a finished-run result with flags, features, an
// audit entry and a rejected row.
func exportResult() *domain.Result {
	clean := testutil.CleanRecord("T100", 1)
	clean.OrderMonth = 3
	clean.OrderYear = 2024
	clean.RevenueCategory = domain.RevenueMedium

	flagged := testutil.CleanRecord("T101", 2)
	flagged.Extra = map[string]string{"sales_region": "emea"}
	flagged.AddFlag(domain.FlagOutlierCandidate)

	badDate := domain.Record{TransactionID: "T102", RawDate: "not-a-date", SourceRow: 3}
	badDate.AddFlag(domain.FlagInvalidDate)

	set := domain.NewRecordSet(clean, flagged, badDate)
	set.AppendAudit(domain.AuditEntry{
		RecordID: "T101",
		Stage:    "impute_quantity",
		Field:    "quantity",
		NewValue: "2",
		Reason:   domain.ReasonMissingQuantityImputed,
		At:       time.Date(2024, 3, 18, 10, 0, 1, 0, time.UTC),
	})
	set.RejectRaw(9, map[string]string{"product_name": "Ghost"}, domain.ReasonMissingID)

	return &domain.Result{
		RunID: "run-42",
		Clean: set,
		Counts: []domain.StageCount{
			{Stage: "deduplicate", In: 4, Out: 3, Audited: 1},
			{Stage: "validate", In: 3, Out: 3, Rejected: 1},
		},
		StartedAt:  time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 3, 18, 10, 0, 2, 0, time.UTC),
	}
}

func TestRunExporter_ExportCSVArtifacts(t *testing.T) {
	dir := t.TempDir()
	exp := NewRunExporter(config.ExportConfig{
		OutputDir:      dir,
		Format:         "csv",
		IncludeReport:  true,
		IncludeSummary: true,
	}, testLogger())

	paths, err := exp.Export(context.Background(), exportResult())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, CleanedCSVFile),
		filepath.Join(dir, AuditFile),
		filepath.Join(dir, RejectedFile),
		filepath.Join(dir, ReportFile),
		filepath.Join(dir, SummaryFile),
	}, paths)
	for _, path := range paths {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}

	data, rows := readCSVFile(t, filepath.Join(dir, CleanedCSVFile))
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	require.Len(t, rows, 4)
	assert.Equal(t, append(append([]string(nil), cleanedBase...), "sales_region"), rows[0])
	assert.Equal(t, "T100", rows[1][0])
	assert.Equal(t, "outlier_candidate", rows[2][10])
	assert.Equal(t, "emea", rows[2][11])
	// The flagged date keeps its original text in the date column.
	assert.Equal(t, "not-a-date", rows[3][1])

	_, auditRows := readCSVFile(t, filepath.Join(dir, AuditFile))
	require.Len(t, auditRows, 2)
	assert.Equal(t, auditColumns(), auditRows[0])
	assert.Equal(t, "2024-03-18T10:00:01Z", auditRows[1][6])

	_, rejectedRows := readCSVFile(t, filepath.Join(dir, RejectedFile))
	require.Len(t, rejectedRows, 2)
	assert.Equal(t, "9", rejectedRows[1][0])
	assert.Equal(t, "missing_id", rejectedRows[1][1])

	summaryData, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	var summary stats.Summary
	require.NoError(t, json.Unmarshal(summaryData, &summary))
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 2, summary.Quantity.Count)
}

func TestRunExporter_ExportWorkbook(t *testing.T) {
	dir := t.TempDir()
	exp := NewRunExporter(config.ExportConfig{
		OutputDir: dir,
		Format:    "xlsx",
	}, testLogger())

	paths, err := exp.Export(context.Background(), exportResult())
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, WorkbookFile), paths[0])

	f, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetCleaned, SheetProblems, SheetRejected}, f.GetSheetList())

	cleaned, err := f.GetRows(SheetCleaned)
	require.NoError(t, err)
	require.Len(t, cleaned, 4)
	assert.Equal(t, "T100", cleaned[1][0])
	assert.Equal(t, "2", cleaned[1][4])
	assert.Equal(t, "45.5", cleaned[1][5])

	problems, err := f.GetRows(SheetProblems)
	require.NoError(t, err)
	require.Len(t, problems, 3)
	assert.Equal(t, "T101", problems[1][0])
	assert.Equal(t, "T102", problems[2][0])

	rejected, err := f.GetRows(SheetRejected)
	require.NoError(t, err)
	require.Len(t, rejected, 2)
	assert.Equal(t, "9", rejected[1][0])
}

func TestRunExporter_BothFormatsWriteCSVAndWorkbook(t *testing.T) {
	dir := t.TempDir()
	exp := NewRunExporter(config.ExportConfig{
		OutputDir: dir,
		Format:    "both",
	}, testLogger())

	paths, err := exp.Export(context.Background(), exportResult())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, CleanedCSVFile),
		filepath.Join(dir, WorkbookFile),
		filepath.Join(dir, AuditFile),
		filepath.Join(dir, RejectedFile),
	}, paths)
}

func TestRunExporter_DefaultFormatIsCSV(t *testing.T) {
	dir := t.TempDir()
	exp := NewRunExporter(config.ExportConfig{OutputDir: dir}, testLogger())

	paths, err := exp.Export(context.Background(), exportResult())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, CleanedCSVFile), paths[0])
}

func TestRunExporter_UnsupportedFormat(t *testing.T) {
	exp := NewRunExporter(config.ExportConfig{
		OutputDir: t.TempDir(),
		Format:    "parquet",
	}, testLogger())

	_, err := exp.Export(context.Background(), exportResult())
	require.Error(t, err)

	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeExport, appErr.Type)
}

func TestRunExporter_EmptyResult(t *testing.T) {
	exp := NewRunExporter(config.ExportConfig{OutputDir: t.TempDir()}, testLogger())

	_, err := exp.Export(context.Background(), nil)
	assert.Error(t, err)

	_, err = exp.Export(context.Background(), &domain.Result{})
	assert.Error(t, err)
}

func TestRunExporter_EmptySetStillWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	exp := NewRunExporter(config.ExportConfig{OutputDir: dir}, testLogger())

	result := &domain.Result{RunID: "empty", Clean: domain.NewRecordSet()}
	paths, err := exp.Export(context.Background(), result)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	_, rows := readCSVFile(t, filepath.Join(dir, CleanedCSVFile))
	require.Len(t, rows, 1)
	assert.Equal(t, cleanedBase, rows[0])
}
