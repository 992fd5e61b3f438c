package ingest

import (
	apierrors "salescleanse/internal/errors"
	"salescleanse/pkg/contracts/domain"
)

// FromMaps converts already-decoded rows (column name → raw value) into a
// record set. JSON request bodies arrive this way; the rows are laid back
// out as a header-plus-cells table so they pass through the same alias
// resolution and lenient lexing as file input.
func FromMaps(rows []map[string]interface{}) (*domain.RecordSet, error) {
	if len(rows) == 0 {
		return nil, apierrors.ErrMissingHeader
	}

	// Column order is first-seen across all rows so sparse rows cannot
	// hide a column from the header.
	var header []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				header = append(header, col)
			}
		}
	}

	table := make([][]string, 0, len(rows)+1)
	table = append(table, header)
	for _, row := range rows {
		cells := make([]string, len(header))
		for i, col := range header {
			if v, ok := row[col]; ok {
				cells[i] = cellString(v)
			}
		}
		table = append(table, cells)
	}

	return recordsFromRows(table)
}
