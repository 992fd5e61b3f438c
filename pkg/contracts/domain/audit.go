package domain

import "time"

// Audit reason strings. Reasons are machine-readable and stable; reports
// and tests key off them.
const (
	ReasonDuplicateTransactionID  = "duplicate_transaction_id"
	ReasonMissingQuantityImputed  = "missing_quantity_imputed_median"
	ReasonDateNormalized          = "date_normalized"
	ReasonProductNameNormalized   = "product_name_normalized"
	ReasonCustomerIDNormalized    = "customer_id_normalized"
	ReasonTotalRecalculated       = "total_recalculated"
	ReasonFeatureDerived          = "feature_derived"
	ReasonMissingID               = "missing_id"
	ReasonUnparseableRow          = "unparseable_row"
	ReasonQuantityMedianUndefined = "quantity_median_undefined"
	ReasonFlaggedExcluded         = "flagged_excluded"
)

// AuditEntry records one field mutation or flag addition applied by a
// pipeline stage. Entries are emitted in deterministic order: records in
// set order, fields in stage-defined order.
type AuditEntry struct {
	RecordID string    `json:"record_id"`
	Stage    string    `json:"stage"`
	Field    string    `json:"field"`
	OldValue string    `json:"old_value"`
	NewValue string    `json:"new_value"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// NewAuditEntry stamps an entry with the current time.
func NewAuditEntry(recordID, stage, field, oldValue, newValue, reason string) AuditEntry {
	return AuditEntry{
		RecordID: recordID,
		Stage:    stage,
		Field:    field,
		OldValue: oldValue,
		NewValue: newValue,
		Reason:   reason,
		At:       time.Now().UTC(),
	}
}
