package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains the resolved output file locations for a cleansing run.
// This is the single source of truth for every file the exporter writes.
type Paths struct {
	OutputDir string

	CleanedCSV  string
	AuditCSV    string
	RejectedCSV string
	Workbook    string
	Report      string

	LogsDir string
}

// GetPaths resolves output locations under the configured output directory.
// Relative directories resolve against the current working directory so the
// CLI behaves like other command line data tools.
func GetPaths(outputDir string) (*Paths, error) {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	return &Paths{
		OutputDir:   abs,
		CleanedCSV:  filepath.Join(abs, CleanedCSVName),
		AuditCSV:    filepath.Join(abs, AuditCSVName),
		RejectedCSV: filepath.Join(abs, RejectedCSVName),
		Workbook:    filepath.Join(abs, WorkbookName),
		Report:      filepath.Join(abs, ReportName),
		LogsDir:     filepath.Join(abs, DefaultLogsDir),
	}, nil
}

// EnsureDirectories creates the output directory tree if missing
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Paths resolves the export locations for this configuration
func (c *Config) Paths() (*Paths, error) {
	return GetPaths(c.Export.OutputDir)
}
