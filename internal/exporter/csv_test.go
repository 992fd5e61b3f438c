package exporter

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readCSVFile(t *testing.T, path string) ([]byte, [][]string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	return data, rows
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testLogger())

	err := w.WriteCSV("out.csv", WriteOptions{
		Headers: []string{"a", "b"},
		Records: [][]string{{"1", "2"}, {"3", "4"}},
	})
	require.NoError(t, err)

	data, rows := readCSVFile(t, filepath.Join(dir, "out.csv"))
	assert.False(t, bytes.HasPrefix(data, utf8BOM))
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}, {"3", "4"}}, rows)
}

func TestCSVWriter_WriteCSV_BOMPrefix(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testLogger())

	err := w.WriteCSV("out.csv", WriteOptions{
		Headers:   []string{"a"},
		Records:   [][]string{{"1"}},
		BOMPrefix: true,
	})
	require.NoError(t, err)

	data, rows := readCSVFile(t, filepath.Join(dir, "out.csv"))
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	assert.Len(t, rows, 2)
}

func TestCSVWriter_CreatesNestedDirectories(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testLogger())

	err := w.WriteCSV(filepath.Join("runs", "r1", "out.csv"), WriteOptions{
		Headers: []string{"a"},
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "runs", "r1", "out.csv"))
	assert.NoError(t, err)
}

func TestCSVWriter_AbsolutePathBypassesOutputDir(t *testing.T) {
	base := t.TempDir()
	other := t.TempDir()
	w := NewCSVWriter(base, testLogger())

	target := filepath.Join(other, "out.csv")
	require.NoError(t, w.WriteCSV(target, WriteOptions{Headers: []string{"a"}}))

	_, err := os.Stat(target)
	assert.NoError(t, err)
}

func TestCSVWriter_TruncatesPreviousFile(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testLogger())

	require.NoError(t, w.WriteCSV("out.csv", WriteOptions{
		Headers: []string{"a"},
		Records: [][]string{{"old"}, {"rows"}},
	}))
	require.NoError(t, w.WriteCSV("out.csv", WriteOptions{
		Headers: []string{"a"},
		Records: [][]string{{"new"}},
	}))

	_, rows := readCSVFile(t, filepath.Join(dir, "out.csv"))
	assert.Equal(t, [][]string{{"a"}, {"new"}}, rows)
}

func TestCSVWriter_DirectoryCreationFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	w := NewCSVWriter(blocker, testLogger())
	err := w.WriteCSV(filepath.Join("sub", "out.csv"), WriteOptions{Headers: []string{"a"}})
	assert.Error(t, err)
}

func TestStreamWriter_WritesRowsInOrder(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testLogger())

	stream, err := w.CreateStreamWriter("stream.csv", []string{"id", "value"}, true)
	require.NoError(t, err)
	require.NoError(t, stream.WriteRecord([]string{"T1", "10"}))
	require.NoError(t, stream.WriteRecord([]string{"T2", "20"}))
	require.NoError(t, stream.Close())

	data, rows := readCSVFile(t, filepath.Join(dir, "stream.csv"))
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	assert.Equal(t, [][]string{{"id", "value"}, {"T1", "10"}, {"T2", "20"}}, rows)
}

func TestStreamWriter_NoBOM(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir, testLogger())

	stream, err := w.CreateStreamWriter("stream.csv", []string{"id"}, false)
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	data, err := os.ReadFile(filepath.Join(dir, "stream.csv"))
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(data, utf8BOM))
}
