// Package api contains API contract definitions for the sales data
// cleansing service. Version v1 represents the current stable API version.
package api

// Common request parameters

// PaginationRequest represents common pagination parameters
type PaginationRequest struct {
	Page     int    `json:"page" query:"page" validate:"min=1"`
	PageSize int    `json:"page_size" query:"page_size" validate:"min=1,max=100"`
	Sort     string `json:"sort" query:"sort" validate:"omitempty,oneof=asc desc"`
	SortBy   string `json:"sort_by" query:"sort_by"`
}

// Cleanse API Requests

// CleanseRequest represents a request to clean a batch of raw rows. Each
// row maps column names to raw values; unknown columns pass through
// unvalidated.
type CleanseRequest struct {
	Rows    []map[string]interface{} `json:"rows" validate:"required,min=1,dive,required"`
	Include []string                 `json:"include,omitempty" validate:"omitempty,dive,oneof=summary report"`
}

// CleanseSheetRequest represents a request to clean rows fetched from the
// configured Google Sheets range. The spreadsheet identity and credentials
// are server configuration; requests only choose which extras to include.
type CleanseSheetRequest struct {
	Include []string `json:"include,omitempty" validate:"omitempty,dive,oneof=summary report"`
}

// Run API Requests

// RunGetRequest represents a request for a stored run result
type RunGetRequest struct {
	RunID string `json:"run_id" param:"id" validate:"required,uuid"`
}

// RunListRequest represents a request to list recent runs
type RunListRequest struct {
	PaginationRequest
	Status string `json:"status" query:"status" validate:"omitempty,oneof=completed failed"`
}

// Health API Requests

// HealthCheckRequest represents a health check request
type HealthCheckRequest struct {
	Verbose bool `json:"verbose" query:"verbose"`
}
