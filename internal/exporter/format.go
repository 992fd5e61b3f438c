package exporter

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"salescleanse/pkg/contracts/domain"
)

// cleanedBase is the column order for cleaned exports. It matches the
// ingest header aliases, so a cleaned file can be re-ingested.
var cleanedBase = []string{
	"transaction_id", "date", "customer_id", "product_name",
	"quantity", "price", "total",
	"order_month", "order_year", "revenue_category", "flags",
}

// rejectedBase is the column order for rejected-row exports.
var rejectedBase = []string{
	"source_row", "reason", "transaction_id", "date", "customer_id",
	"product_name", "quantity", "price", "total",
}

// cleanedColumns returns the cleaned export header: the canonical columns
// plus the sorted union of extra columns carried by the records.
func cleanedColumns(records []domain.Record) []string {
	extras := make(map[string]bool)
	for i := range records {
		for key := range records[i].Extra {
			extras[key] = true
		}
	}
	return appendSortedKeys(cleanedBase, extras)
}

// rejectedColumns returns the rejected export header: the base columns
// plus the sorted union of extra field keys across the rows.
func rejectedColumns(rows []domain.RejectedRow) []string {
	known := make(map[string]bool, len(rejectedBase))
	for _, col := range rejectedBase {
		known[col] = true
	}
	extras := make(map[string]bool)
	for i := range rows {
		for key := range rows[i].Fields {
			if !known[key] {
				extras[key] = true
			}
		}
	}
	return appendSortedKeys(rejectedBase, extras)
}

func appendSortedKeys(base []string, extras map[string]bool) []string {
	columns := append([]string(nil), base...)
	if len(extras) == 0 {
		return columns
	}
	keys := make([]string, 0, len(extras))
	for key := range extras {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return append(columns, keys...)
}

// exportFields renders every exportable field of a record as a string,
// keyed by column name. Null values render empty; an unparsed date falls
// back to its raw text so flagged rows keep their original value.
func exportFields(rec *domain.Record) map[string]string {
	fields := rec.FieldMap()
	fields["order_month"] = formatOrdinal(rec.OrderMonth)
	fields["order_year"] = formatOrdinal(rec.OrderYear)
	fields["revenue_category"] = string(rec.RevenueCategory)
	fields["flags"] = rec.FlagsString()
	return fields
}

// recordRow renders one record in the given column order.
func recordRow(rec *domain.Record, columns []string) []string {
	fields := exportFields(rec)
	row := make([]string, len(columns))
	for i, col := range columns {
		row[i] = fields[col]
	}
	return row
}

// recordCells renders one record as typed workbook cells: numeric columns
// stay numeric so spreadsheet formulas work on them. Null values render as
// empty strings.
func recordCells(rec *domain.Record, columns []string) []interface{} {
	fields := exportFields(rec)
	cells := make([]interface{}, len(columns))
	for i, col := range columns {
		switch col {
		case "quantity":
			if rec.Quantity != nil {
				cells[i] = *rec.Quantity
			} else {
				cells[i] = ""
			}
		case "price":
			cells[i] = decimalCell(rec.Price)
		case "total":
			cells[i] = decimalCell(rec.Total)
		case "order_month":
			if rec.OrderMonth > 0 {
				cells[i] = rec.OrderMonth
			} else {
				cells[i] = ""
			}
		case "order_year":
			if rec.OrderYear > 0 {
				cells[i] = rec.OrderYear
			} else {
				cells[i] = ""
			}
		default:
			cells[i] = fields[col]
		}
	}
	return cells
}

func decimalCell(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return ""
	}
	f, _ := d.Decimal.Float64()
	return f
}

// auditColumns is the audit-log export header.
func auditColumns() []string {
	return []string{"record_id", "stage", "field", "old_value", "new_value", "reason", "at"}
}

// auditRow renders one audit entry.
func auditRow(e *domain.AuditEntry) []string {
	return []string{
		e.RecordID,
		e.Stage,
		e.Field,
		e.OldValue,
		e.NewValue,
		e.Reason,
		e.At.UTC().Format(time.RFC3339),
	}
}

// rejectedRow renders one rejected row in the given column order. The
// transaction_id cell prefers the row's field snapshot and falls back to
// the ID captured at rejection time.
func rejectedRow(rr *domain.RejectedRow, columns []string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		switch col {
		case "source_row":
			row[i] = strconv.Itoa(rr.SourceRow)
		case "reason":
			row[i] = rr.Reason
		case "transaction_id":
			if v := rr.Fields["transaction_id"]; v != "" {
				row[i] = v
			} else {
				row[i] = rr.TransactionID
			}
		default:
			row[i] = rr.Fields[col]
		}
	}
	return row
}

func formatOrdinal(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// formatFloat renders report values with exactly 2 decimal places so
// columns line up.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
