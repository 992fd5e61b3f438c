package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "salescleanse/internal/errors"
	"salescleanse/pkg/contracts/domain"
)

func TestMapHeader_ResolvesAliases(t *testing.T) {
	want := map[string]int{
		colTransactionID: 0,
		colDate:          1,
		colCustomerID:    2,
		colProductName:   3,
		colQuantity:      4,
		colPrice:         5,
		colTotal:         6,
	}

	tests := []struct {
		name   string
		header []string
	}{
		{
			name:   "canonical names",
			header: []string{"transaction_id", "date", "customer_id", "product_name", "quantity", "price", "total"},
		},
		{
			name:   "spreadsheet spellings",
			header: []string{"Transaction ID", "Order Date", "Customer", "Product", "Qty", "Unit Price", "Amount"},
		},
		{
			name:   "camel case",
			header: []string{"TransactionID", "Date", "CustomerID", "ProductName", "Quantity", "Price", "Total"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm, err := mapHeader(tt.header)
			require.NoError(t, err)
			assert.Equal(t, want, cm.index)
			assert.Empty(t, cm.extra)
			assert.Equal(t, len(tt.header), cm.width)
		})
	}
}

func TestMapHeader_TracksUnknownColumns(t *testing.T) {
	cm, err := mapHeader([]string{"transaction_id", "quantity", "price", "Sales Region", ""})
	require.NoError(t, err)

	assert.Equal(t, map[int]string{3: "sales_region"}, cm.extra)
	assert.Equal(t, 5, cm.width)
}

func TestMapHeader_MissingRequiredColumns(t *testing.T) {
	_, err := mapHeader([]string{"date", "customer_id", "product_name"})
	require.ErrorIs(t, err, apierrors.ErrMissingColumns)
	assert.Contains(t, err.Error(), "transaction_id, quantity, price")
}

func TestMapHeader_NoRecognizableColumns(t *testing.T) {
	_, err := mapHeader([]string{"alpha", "beta", "gamma"})
	require.ErrorIs(t, err, apierrors.ErrMissingHeader)
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Transaction ID", "transaction_id"},
		{" QTY ", "qty"},
		{"unit-price", "unit_price"},
		{"Revenue.Category", "revenue_category"},
		{"order  month", "order_month"},
		{"_flags_", "flags"},
		{"   ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeHeader(tt.in), "input %q", tt.in)
	}
}

func TestParseRow(t *testing.T) {
	cm, err := mapHeader([]string{"transaction_id", "date", "customer_id", "product_name", "quantity", "price", "total", "sales_region"})
	require.NoError(t, err)

	rec := cm.parseRow([]string{" T200 ", "03/15/2024", " c9 ", "  desk   lamp ", "1,200", "1,050.75", "", "emea"}, 7)

	// The grouping key is trimmed; everything else stays raw for the
	// normalize stage to canonicalize with an audit trail.
	assert.Equal(t, "T200", rec.TransactionID)
	assert.Equal(t, "03/15/2024", rec.RawDate)
	assert.Nil(t, rec.Date)
	assert.Equal(t, " c9 ", rec.CustomerID)
	assert.Equal(t, "  desk   lamp ", rec.ProductName)

	require.NotNil(t, rec.Quantity)
	assert.EqualValues(t, 1200, *rec.Quantity)
	require.True(t, rec.Price.Valid)
	assert.Equal(t, "1050.75", rec.Price.Decimal.String())
	assert.False(t, rec.Total.Valid)

	assert.Equal(t, map[string]string{"sales_region": "emea"}, rec.Extra)
	assert.Equal(t, 7, rec.SourceRow)
}

func TestParseRow_ShortRowPadsMissingCells(t *testing.T) {
	cm, err := mapHeader([]string{"transaction_id", "date", "customer_id", "product_name", "quantity", "price", "total"})
	require.NoError(t, err)

	rec := cm.parseRow([]string{"T201", "2024-02-02"}, 3)

	assert.Equal(t, "T201", rec.TransactionID)
	assert.Equal(t, "2024-02-02", rec.RawDate)
	assert.Empty(t, rec.CustomerID)
	assert.Nil(t, rec.Quantity)
	assert.False(t, rec.Price.Valid)
	assert.False(t, rec.Total.Valid)
}

func TestParseRow_DerivedColumnsRoundTrip(t *testing.T) {
	cm, err := mapHeader([]string{"transaction_id", "quantity", "price", "order_month", "order_year", "revenue_category", "flags"})
	require.NoError(t, err)

	rec := cm.parseRow([]string{"T1", "2", "10.00", "3", "2024", "Medium", "invalid_date, outlier_candidate"}, 1)

	assert.Equal(t, 3, rec.OrderMonth)
	assert.Equal(t, 2024, rec.OrderYear)
	assert.Equal(t, domain.RevenueMedium, rec.RevenueCategory)
	assert.Equal(t, []domain.Flag{domain.FlagInvalidDate, domain.FlagOutlierCandidate}, rec.Flags)

	// Out-of-range months never land on the record.
	bad := cm.parseRow([]string{"T2", "1", "5.00", "13", "-1", "", ""}, 2)
	assert.Zero(t, bad.OrderMonth)
	assert.Zero(t, bad.OrderYear)
	assert.Empty(t, bad.Flags)
}

func TestLexQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want *int64
	}{
		{"3", qtyPtr(3)},
		{" 7 ", qtyPtr(7)},
		{"3.0", qtyPtr(3)},
		{"1,200", qtyPtr(1200)},
		{"-2", qtyPtr(-2)},
		{"3.5", nil},
		{"abc", nil},
		{"", nil},
	}

	for _, tt := range tests {
		got := lexQuantity(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, "input %q", tt.in)
			continue
		}
		require.NotNil(t, got, "input %q", tt.in)
		assert.Equal(t, *tt.want, *got, "input %q", tt.in)
	}
}

func TestLexMoney(t *testing.T) {
	valid := map[string]string{
		"45.50":    "45.5",
		"1,234.56": "1234.56",
		"12":       "12",
		" 0.99 ":   "0.99",
	}
	for in, want := range valid {
		got := lexMoney(in)
		require.True(t, got.Valid, "input %q", in)
		assert.Equal(t, want, got.Decimal.String(), "input %q", in)
	}

	for _, in := range []string{"", "$5", "n/a", "--"} {
		assert.False(t, lexMoney(in).Valid, "input %q", in)
	}
}

func TestFindHeader_SkipsTitleRows(t *testing.T) {
	rows := [][]string{
		{"Quarterly Sales Export"},
		{},
		{"transaction_id", "quantity", "price"},
		{"T1", "2", "5.00"},
	}

	cm, idx, err := findHeader(rows)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, 0, cm.index[colTransactionID])
}

func TestFindHeader_ReportsMissingColumnsFromBestCandidate(t *testing.T) {
	rows := [][]string{
		{"Sales Report"},
		{"transaction_id", "date"},
		{"T1", "2024-01-01"},
	}

	_, _, err := findHeader(rows)
	require.ErrorIs(t, err, apierrors.ErrMissingColumns)
	assert.Contains(t, err.Error(), "quantity, price")
}

func TestRecordsFromRows_RejectsRowsWiderThanHeader(t *testing.T) {
	rows := [][]string{
		{"transaction_id", "quantity", "price"},
		{"T1", "2", "5.00", "stray"},
		{"T2", "1", "3.00"},
	}

	set, err := recordsFromRows(rows)
	require.NoError(t, err)

	require.Equal(t, 1, set.Len())
	assert.Equal(t, "T2", set.Records[0].TransactionID)
	assert.Equal(t, 2, set.Records[0].SourceRow)

	require.Len(t, set.Rejected, 1)
	rejected := set.Rejected[0]
	assert.Equal(t, domain.ReasonUnparseableRow, rejected.Reason)
	assert.Equal(t, 1, rejected.SourceRow)
	assert.Equal(t, "T1", rejected.Fields["transaction_id"])
	assert.Equal(t, "stray", rejected.Fields["column_4"])
}

func qtyPtr(v int64) *int64 {
	return &v
}
