package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"salescleanse/pkg/contracts/domain"
)

// QtyPtr returns a pointer to q, for populating nullable quantities.
func QtyPtr(q int64) *int64 {
	return &q
}

// MustPrice parses s into a valid NullDecimal and panics on bad input.
func MustPrice(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// NullPrice returns an explicit null money value.
func NullPrice() decimal.NullDecimal {
	return decimal.NullDecimal{}
}

// MustDate parses an ISO date into a *time.Time and panics on bad input.
func MustDate(s string) *time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(fmt.Sprintf("testutil: bad date fixture %q: %v", s, err))
	}
	return &t
}

// CleanRecord returns a fully populated record whose total already matches
// quantity times price. Useful as idempotence and happy-path input.
func CleanRecord(id string, row int) domain.Record {
	return domain.Record{
		TransactionID: id,
		Date:          MustDate("2024-03-18"),
		RawDate:       "2024-03-18",
		CustomerID:    "C100",
		ProductName:   "Laptop Stand",
		Quantity:      QtyPtr(2),
		Price:         MustPrice("45.50"),
		Total:         MustPrice("91.00"),
		SourceRow:     row,
	}
}

// SparseRecord returns a record that carries only its ID, the shape produced
// by rows where every other cell was empty.
func SparseRecord(id string, row int) domain.Record {
	return domain.Record{
		TransactionID: id,
		SourceRow:     row,
	}
}

// MessyRecord returns a record with the usual raw-input problems: day-first
// date text, uncollapsed product casing and an untrimmed customer ID.
func MessyRecord(id string, row int) domain.Record {
	return domain.Record{
		TransactionID: id,
		RawDate:       "15/01/2024",
		CustomerID:    " c55 ",
		ProductName:   "  usb   cable ",
		Quantity:      QtyPtr(3),
		Price:         MustPrice("3.75"),
		SourceRow:     row,
	}
}

// SampleRecordSet returns a small dataset covering the common cleansing
// cases: a clean row, a duplicate pair, a null quantity and a messy row.
func SampleRecordSet() *domain.RecordSet {
	dupSparse := domain.Record{
		TransactionID: "T101",
		RawDate:       "2024-03-19",
		ProductName:   "Usb Cable",
		Quantity:      QtyPtr(3),
		SourceRow:     2,
	}
	dupComplete := domain.Record{
		TransactionID: "T101",
		RawDate:       "2024-03-19",
		CustomerID:    "C101",
		ProductName:   "Usb Cable",
		Quantity:      QtyPtr(3),
		Price:         MustPrice("3.75"),
		SourceRow:     3,
	}
	nullQty := domain.Record{
		TransactionID: "T102",
		RawDate:       "2024-03-20",
		CustomerID:    "C102",
		ProductName:   "Desk Mat",
		Price:         MustPrice("12.00"),
		SourceRow:     4,
	}

	return domain.NewRecordSet(
		CleanRecord("T100", 1),
		dupSparse,
		dupComplete,
		nullQty,
		MessyRecord("T103", 5),
	)
}

// SampleCSV mirrors the canonical ingest header with a few problem rows:
// a duplicate pair, a null quantity, a day-first date and a missing ID.
const SampleCSV = `transaction_id,date,customer_id,product_name,quantity,price,total
T100,2024-03-18,C100,Laptop Stand,2,45.50,91.00
T101,2024-03-19,C101,usb   cable,3,3.75,
T101,2024-03-19,C101,usb   cable,3,3.75,11.25
T102,2024-03-20,C102,Desk Mat,,12.00,
T103,15/01/2024,c55,Mouse Pad,1,8.25,
,2024-03-21,C104,Ghost Row,1,5.00,5.00
`
