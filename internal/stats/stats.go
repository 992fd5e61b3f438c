// Package stats computes a describe-style profile of a record set:
// per-column numeric summaries plus product, revenue-category and monthly
// order distributions. The profile feeds the quality report and the HTTP
// response when a summary is requested.
package stats

import (
	"fmt"
	"math"
	"sort"

	"salescleanse/pkg/contracts/domain"
)

// FieldProfile summarizes one numeric column over its non-null values.
type FieldProfile struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// NameCount pairs a distribution key with its record count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MonthCount counts orders in one calendar month.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Summary is the profile of a record set.
type Summary struct {
	Records           int          `json:"records"`
	Quantity          FieldProfile `json:"quantity"`
	Price             FieldProfile `json:"price"`
	Total             FieldProfile `json:"total"`
	Products          []NameCount  `json:"products,omitempty"`
	RevenueCategories []NameCount  `json:"revenue_categories,omitempty"`
	OrdersByMonth     []MonthCount `json:"orders_by_month,omitempty"`
}

// Describe profiles the records in set. Numeric profiles cover non-null
// values only. Distributions sort by count descending with name as the
// tie-break; months sort chronologically.
func Describe(set *domain.RecordSet) *Summary {
	s := &Summary{}
	if set == nil {
		return s
	}
	s.Records = set.Len()

	var quantities, prices, totals []float64
	products := make(map[string]int)
	categories := make(map[string]int)
	months := make(map[string]int)

	for i := range set.Records {
		rec := &set.Records[i]
		if rec.Quantity != nil {
			quantities = append(quantities, float64(*rec.Quantity))
		}
		if rec.Price.Valid {
			v, _ := rec.Price.Decimal.Float64()
			prices = append(prices, v)
		}
		if rec.Total.Valid {
			v, _ := rec.Total.Decimal.Float64()
			totals = append(totals, v)
		}
		if rec.ProductName != "" {
			products[rec.ProductName]++
		}
		if rec.RevenueCategory != "" {
			categories[string(rec.RevenueCategory)]++
		}
		if key := monthKey(rec); key != "" {
			months[key]++
		}
	}

	s.Quantity = profile(quantities)
	s.Price = profile(prices)
	s.Total = profile(totals)
	s.Products = sortedCounts(products)
	s.RevenueCategories = sortedCounts(categories)
	s.OrdersByMonth = sortedMonths(months)
	return s
}

// monthKey renders the record's order month as YYYY-MM, preferring the
// normalized date over derived features.
func monthKey(rec *domain.Record) string {
	if rec.Date != nil {
		return rec.Date.Format("2006-01")
	}
	if rec.OrderYear > 0 && rec.OrderMonth >= 1 && rec.OrderMonth <= 12 {
		return fmt.Sprintf("%04d-%02d", rec.OrderYear, rec.OrderMonth)
	}
	return ""
}

// profile computes count, mean, sample standard deviation and the five
// quartile points for values.
func profile(values []float64) FieldProfile {
	p := FieldProfile{Count: len(values)}
	if len(values) == 0 {
		return p
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	p.Mean = sum / float64(len(sorted))

	if len(sorted) > 1 {
		var sq float64
		for _, v := range sorted {
			d := v - p.Mean
			sq += d * d
		}
		p.Std = math.Sqrt(sq / float64(len(sorted)-1))
	}

	p.Min = sorted[0]
	p.Max = sorted[len(sorted)-1]
	p.Q1 = quantile(sorted, 0.25)
	p.Median = quantile(sorted, 0.5)
	p.Q3 = quantile(sorted, 0.75)
	return p
}

// quantile returns the q-th quantile (0..1) of sorted values using linear
// interpolation between closest ranks, the convention dataframe and
// spreadsheet tools use.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func sortedCounts(counts map[string]int) []NameCount {
	if len(counts) == 0 {
		return nil
	}
	out := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortedMonths(counts map[string]int) []MonthCount {
	if len(counts) == 0 {
		return nil
	}
	out := make([]MonthCount, 0, len(counts))
	for month, count := range counts {
		out = append(out, MonthCount{Month: month, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Month < out[j].Month
	})
	return out
}
