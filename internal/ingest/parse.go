package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	apierrors "salescleanse/internal/errors"
	"salescleanse/pkg/contracts/domain"
)

// Canonical column names shared by all source adapters. The derived columns
// (order_month onward) are recognized so a previously cleaned export can be
// fed back in without its columns piling up in Extra.
const (
	colTransactionID   = "transaction_id"
	colDate            = "date"
	colCustomerID      = "customer_id"
	colProductName     = "product_name"
	colQuantity        = "quantity"
	colPrice           = "price"
	colTotal           = "total"
	colOrderMonth      = "order_month"
	colOrderYear       = "order_year"
	colRevenueCategory = "revenue_category"
	colFlags           = "flags"
)

// requiredColumns must all be resolvable from the header row; without them
// the downstream stages have nothing to work on.
var requiredColumns = []string{colTransactionID, colQuantity, colPrice}

// headerAliases maps normalized header spellings to canonical columns.
var headerAliases = map[string]string{
	"transaction_id":   colTransactionID,
	"transactionid":    colTransactionID,
	"txn_id":           colTransactionID,
	"id":               colTransactionID,
	"date":             colDate,
	"order_date":       colDate,
	"transaction_date": colDate,
	"customer_id":      colCustomerID,
	"customerid":       colCustomerID,
	"customer":         colCustomerID,
	"product_name":     colProductName,
	"productname":      colProductName,
	"product":          colProductName,
	"item":             colProductName,
	"quantity":         colQuantity,
	"qty":              colQuantity,
	"units":            colQuantity,
	"price":            colPrice,
	"unit_price":       colPrice,
	"unitprice":        colPrice,
	"total":            colTotal,
	"total_price":      colTotal,
	"total_amount":     colTotal,
	"amount":           colTotal,
	"order_month":      colOrderMonth,
	"order_year":       colOrderYear,
	"revenue_category": colRevenueCategory,
	"flags":            colFlags,
}

// columnMap resolves header positions for one input. index maps canonical
// columns to cell positions; extra keeps unrecognized columns under their
// normalized names so their values survive in Record.Extra.
type columnMap struct {
	index map[string]int
	extra map[int]string
	width int
}

// mapHeader resolves a raw header row. It returns ErrMissingHeader when no
// cell matches a known column and ErrMissingColumns when required columns
// are absent; the wrapped message names the missing ones.
func mapHeader(header []string) (*columnMap, error) {
	cm := &columnMap{
		index: make(map[string]int),
		extra: make(map[int]string),
		width: len(header),
	}

	for i, cell := range header {
		name := normalizeHeader(cell)
		if name == "" {
			continue
		}
		canonical, known := headerAliases[name]
		if !known {
			cm.extra[i] = name
			continue
		}
		if _, taken := cm.index[canonical]; !taken {
			cm.index[canonical] = i
		}
	}

	if len(cm.index) == 0 {
		return nil, apierrors.ErrMissingHeader
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := cm.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", apierrors.ErrMissingColumns, strings.Join(missing, ", "))
	}

	return cm, nil
}

// normalizeHeader lower-cases a header cell and collapses separators to
// single underscores, so "Transaction ID", "TransactionID" and
// "transaction-id" all resolve to the same alias.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '.':
			return '_'
		default:
			return r
		}
	}, h)
	for strings.Contains(h, "__") {
		h = strings.ReplaceAll(h, "__", "_")
	}
	return strings.Trim(h, "_")
}

// findHeader scans rows for the first one that maps to a usable header.
// Workbooks routinely carry title or note rows above the real table, so the
// header is located by content rather than by position. Returns the map and
// the index of the header row.
func findHeader(rows [][]string) (*columnMap, int, error) {
	var firstErr error
	for i, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		cm, err := mapHeader(row)
		if err == nil {
			return cm, i, nil
		}
		if firstErr == nil && !errors.Is(err, apierrors.ErrMissingHeader) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, 0, firstErr
	}
	return nil, 0, apierrors.ErrMissingHeader
}

// recordsFromRows converts an in-memory sheet into a record set. Rows wider
// than the header do not match the declared table and are rejected as
// unparseable; shorter rows are normal because sheet readers drop trailing
// empty cells.
func recordsFromRows(rows [][]string) (*domain.RecordSet, error) {
	cols, headerIdx, err := findHeader(rows)
	if err != nil {
		return nil, err
	}

	set := domain.NewRecordSet()
	sourceRow := 0
	for _, row := range rows[headerIdx+1:] {
		sourceRow++
		if isEmptyRow(row) {
			continue
		}
		if len(row) > cols.width {
			set.RejectRaw(sourceRow, cols.fieldSnapshot(row), domain.ReasonUnparseableRow)
			continue
		}
		set.Append(cols.parseRow(row, sourceRow))
	}
	return set, nil
}

// cell returns the raw cell under canonical column col, or "" when the row
// is short.
func (cm *columnMap) cell(row []string, col string) string {
	idx, ok := cm.index[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseRow converts one data row into a Record. Numeric cells lex leniently:
// thousands separators are stripped and anything that still does not parse
// becomes null for the pipeline to impute or flag. Dates stay textual in
// RawDate; the normalize stage owns date parsing.
func (cm *columnMap) parseRow(row []string, sourceRow int) domain.Record {
	rec := domain.Record{
		TransactionID: strings.TrimSpace(cm.cell(row, colTransactionID)),
		RawDate:       cm.cell(row, colDate),
		CustomerID:    cm.cell(row, colCustomerID),
		ProductName:   cm.cell(row, colProductName),
		Quantity:      lexQuantity(cm.cell(row, colQuantity)),
		Price:         lexMoney(cm.cell(row, colPrice)),
		Total:         lexMoney(cm.cell(row, colTotal)),
		SourceRow:     sourceRow,
	}

	if month := lexInt(cm.cell(row, colOrderMonth)); month >= 1 && month <= 12 {
		rec.OrderMonth = month
	}
	if year := lexInt(cm.cell(row, colOrderYear)); year > 0 {
		rec.OrderYear = year
	}
	if cat := strings.TrimSpace(cm.cell(row, colRevenueCategory)); cat != "" {
		rec.RevenueCategory = domain.RevenueCategory(cat)
	}
	for _, f := range strings.Split(cm.cell(row, colFlags), ",") {
		if f = strings.TrimSpace(f); f != "" {
			rec.AddFlag(domain.Flag(f))
		}
	}

	for idx, name := range cm.extra {
		if idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[name] = v
		}
	}

	return rec
}

// fieldSnapshot renders a raw row as column → value pairs for the
// rejected-rows report. Cells beyond the header width keep positional names
// so the stray values stay visible.
func (cm *columnMap) fieldSnapshot(row []string) map[string]string {
	if len(row) == 0 {
		return nil
	}
	fields := make(map[string]string)
	for col, idx := range cm.index {
		if idx < len(row) && strings.TrimSpace(row[idx]) != "" {
			fields[col] = row[idx]
		}
	}
	for idx, name := range cm.extra {
		if idx < len(row) && strings.TrimSpace(row[idx]) != "" {
			fields[name] = row[idx]
		}
	}
	for i := cm.width; i < len(row); i++ {
		if strings.TrimSpace(row[i]) != "" {
			fields[fmt.Sprintf("column_%d", i+1)] = row[i]
		}
	}
	return fields
}

// isEmptyRow reports whether every cell is blank. Such rows are skipped;
// they still consume a source-row position.
func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// lexQuantity parses a quantity cell into a nullable count. Integral
// decimals such as "3.0" are accepted; fractional or non-numeric values
// become null.
func lexQuantity(s string) *int64 {
	s = cleanNumber(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return nil
	}
	n := d.IntPart()
	return &n
}

// lexMoney parses a money cell into a nullable decimal.
func lexMoney(s string) decimal.NullDecimal {
	s = cleanNumber(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// lexInt parses derived integer columns; zero means absent or unparseable.
func lexInt(s string) int {
	s = cleanNumber(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// cleanNumber trims a numeric cell and strips thousands separators.
func cleanNumber(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}
