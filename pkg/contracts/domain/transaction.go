package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Flag marks an advisory data-quality condition on a record. Flags never
// remove a record from the cleaned output on their own.
type Flag string

const (
	FlagImputedQuantity  Flag = "missing_quantity_imputed"
	FlagInvalidQuantity  Flag = "invalid_quantity"
	FlagInvalidPrice     Flag = "invalid_price"
	FlagInvalidDate      Flag = "invalid_date"
	FlagMissingFeatures  Flag = "missing_features"
	FlagOutlierCandidate Flag = "outlier_candidate"
)

// RevenueCategory buckets a transaction by its recalculated total.
type RevenueCategory string

const (
	RevenueLow    RevenueCategory = "Low"
	RevenueMedium RevenueCategory = "Medium"
	RevenueHigh   RevenueCategory = "High"
)

// DateLayout is the canonical serialization for normalized dates.
const DateLayout = "2006-01-02"

// Record represents a single sales transaction moving through the cleaning
// pipeline. Quantity, Price and Total stay nullable until the relevant stage
// has run; RawDate keeps the original textual date value for auditing and
// re-parsing.
type Record struct {
	TransactionID   string              `json:"transaction_id" validate:"required"`
	Date            *time.Time          `json:"date,omitempty"`
	RawDate         string              `json:"raw_date,omitempty"`
	CustomerID      string              `json:"customer_id,omitempty"`
	ProductName     string              `json:"product_name,omitempty"`
	Quantity        *int64              `json:"quantity"`
	Price           decimal.NullDecimal `json:"price"`
	Total           decimal.NullDecimal `json:"total"`
	OrderMonth      int                 `json:"order_month,omitempty" validate:"omitempty,min=1,max=12"`
	OrderYear       int                 `json:"order_year,omitempty"`
	RevenueCategory RevenueCategory     `json:"revenue_category,omitempty"`
	Flags           []Flag              `json:"flags,omitempty"`
	Extra           map[string]string   `json:"extra,omitempty"`
	SourceRow       int                 `json:"source_row,omitempty"`
}

// HasFlag reports whether the record already carries the given flag.
func (r *Record) HasFlag(f Flag) bool {
	for _, existing := range r.Flags {
		if existing == f {
			return true
		}
	}
	return false
}

// AddFlag appends f to the record's flag list. Adding a flag that is
// already present is a no-op; the return value reports whether the list
// changed.
func (r *Record) AddFlag(f Flag) bool {
	if r.HasFlag(f) {
		return false
	}
	r.Flags = append(r.Flags, f)
	return true
}

// NullFieldCount counts missing values among quantity, price, date and
// product_name, the duplicate-retention tie-break fields.
func (r *Record) NullFieldCount() int {
	n := 0
	if r.Quantity == nil {
		n++
	}
	if !r.Price.Valid {
		n++
	}
	if r.Date == nil {
		n++
	}
	if strings.TrimSpace(r.ProductName) == "" {
		n++
	}
	return n
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.Date != nil {
		d := *r.Date
		out.Date = &d
	}
	if r.Quantity != nil {
		q := *r.Quantity
		out.Quantity = &q
	}
	if r.Flags != nil {
		out.Flags = append([]Flag(nil), r.Flags...)
	}
	if r.Extra != nil {
		out.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// QuantityString renders the quantity for audit entries; null is empty.
func (r *Record) QuantityString() string {
	if r.Quantity == nil {
		return ""
	}
	return strconv.FormatInt(*r.Quantity, 10)
}

// PriceString renders the price for audit entries; null is empty.
func (r *Record) PriceString() string {
	return nullDecimalString(r.Price)
}

// TotalString renders the total for audit entries; null is empty.
func (r *Record) TotalString() string {
	return nullDecimalString(r.Total)
}

// DateString renders the normalized date for audit entries; null is empty.
func (r *Record) DateString() string {
	if r.Date == nil {
		return ""
	}
	return r.Date.Format(DateLayout)
}

// FlagsString renders the flag list for audit entries.
func (r *Record) FlagsString() string {
	return JoinFlags(r.Flags)
}

// FieldMap renders the canonical fields as strings, used for rejected-row
// snapshots and tabular export.
func (r *Record) FieldMap() map[string]string {
	fields := map[string]string{
		"transaction_id": r.TransactionID,
		"date":           r.DateString(),
		"customer_id":    r.CustomerID,
		"product_name":   r.ProductName,
		"quantity":       r.QuantityString(),
		"price":          r.PriceString(),
		"total":          r.TotalString(),
	}
	if r.Date == nil && r.RawDate != "" {
		fields["date"] = r.RawDate
	}
	for k, v := range r.Extra {
		if _, taken := fields[k]; !taken {
			fields[k] = v
		}
	}
	return fields
}

// JoinFlags renders a flag list as a stable comma-separated string.
func JoinFlags(flags []Flag) string {
	if len(flags) == 0 {
		return ""
	}
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}

// SortRecordsBySourceRow orders records by their raw input position.
func SortRecordsBySourceRow(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SourceRow < records[j].SourceRow
	})
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
