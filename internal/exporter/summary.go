package exporter

import (
	"encoding/json"
	"os"
	"path/filepath"

	apierrors "salescleanse/internal/errors"
	"salescleanse/internal/stats"
)

// writeSummary serializes the describe profile as indented JSON next to
// the other run artifacts.
func (e *RunExporter) writeSummary(summary *stats.Summary) (string, error) {
	path := e.csv.resolvePath(SummaryFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", apierrors.NewStorageError("create summary directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", apierrors.NewStorageError("create summary file", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return "", apierrors.NewStorageError("encode summary", err)
	}
	return path, nil
}
