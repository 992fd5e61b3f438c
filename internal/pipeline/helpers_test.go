package pipeline

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"salescleanse/pkg/contracts/domain"
)

// testLogger returns a logger that stays quiet during tests.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func qty(v int64) *int64 {
	return &v
}

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func nullPrice() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// record builds a fully populated record; tests blank out what they need.
func record(id string, sourceRow int) domain.Record {
	return domain.Record{
		TransactionID: id,
		Date:          day(2024, time.January, 15),
		RawDate:       "2024-01-15",
		CustomerID:    "C101",
		ProductName:   "Laptop Pro 15",
		Quantity:      qty(2),
		Price:         price("25.00"),
		SourceRow:     sourceRow,
	}
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func auditReasons(entries []domain.AuditEntry) []string {
	reasons := make([]string, len(entries))
	for i, e := range entries {
		reasons[i] = e.Reason
	}
	return reasons
}
