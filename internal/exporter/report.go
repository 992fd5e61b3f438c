package exporter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"salescleanse/internal/stats"
	"salescleanse/pkg/contracts/domain"
)

// BuildReport renders the human-readable quality report for one run: run
// metadata, per-stage throughput, flag totals, rejection reasons and the
// numeric profile of the cleaned set.
func BuildReport(result *domain.Result, summary *stats.Summary) string {
	if summary == nil {
		summary = stats.Describe(result.Clean)
	}

	var b strings.Builder

	writeHeading(&b, "SALES CLEANSE QUALITY REPORT", '=')
	fmt.Fprintf(&b, "Run:       %s\n", result.RunID)
	fmt.Fprintf(&b, "Started:   %s\n", result.StartedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Finished:  %s\n", result.FinishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:  %s\n", result.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "Cleaned:   %d records\n", result.Clean.Len())
	fmt.Fprintf(&b, "Rejected:  %d rows\n", len(result.RejectedRows()))
	fmt.Fprintf(&b, "Audited:   %d changes\n", len(result.AuditEntries()))

	writeHeading(&b, "STAGE THROUGHPUT", '-')
	if len(result.Counts) == 0 {
		b.WriteString("(no stages ran)\n")
	} else {
		fmt.Fprintf(&b, "%-20s %8s %8s %9s %9s\n", "stage", "in", "out", "audited", "rejected")
		for _, c := range result.Counts {
			fmt.Fprintf(&b, "%-20s %8d %8d %9d %9d\n", c.Stage, c.In, c.Out, c.Audited, c.Rejected)
		}
	}

	writeHeading(&b, "FLAG TOTALS", '-')
	writeCountTable(&b, flagTotals(result.Clean.Records))

	writeHeading(&b, "REJECTION REASONS", '-')
	writeCountTable(&b, rejectionReasons(result.RejectedRows()))

	writeHeading(&b, "NUMERIC PROFILE", '-')
	fmt.Fprintf(&b, "%-10s %7s %10s %10s %10s %10s %10s %10s %10s\n",
		"column", "count", "mean", "std", "min", "q1", "median", "q3", "max")
	writeProfileRow(&b, "quantity", summary.Quantity)
	writeProfileRow(&b, "price", summary.Price)
	writeProfileRow(&b, "total", summary.Total)

	writeHeading(&b, "REVENUE CATEGORIES", '-')
	writeCountTable(&b, summary.RevenueCategories)

	writeHeading(&b, "ORDERS BY MONTH", '-')
	if len(summary.OrdersByMonth) == 0 {
		b.WriteString("(none)\n")
	} else {
		for _, m := range summary.OrdersByMonth {
			fmt.Fprintf(&b, "%-24s %6d\n", m.Month, m.Count)
		}
	}

	writeHeading(&b, "TOP PRODUCTS", '-')
	writeCountTable(&b, topN(summary.Products, 10))

	return b.String()
}

func writeHeading(b *strings.Builder, title string, underline rune) {
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(title)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(string(underline), len(title)))
	b.WriteByte('\n')
}

func writeCountTable(b *strings.Builder, counts []stats.NameCount) {
	if len(counts) == 0 {
		b.WriteString("(none)\n")
		return
	}
	for _, c := range counts {
		fmt.Fprintf(b, "%-24s %6d\n", c.Name, c.Count)
	}
}

func writeProfileRow(b *strings.Builder, name string, p stats.FieldProfile) {
	fmt.Fprintf(b, "%-10s %7d %10s %10s %10s %10s %10s %10s %10s\n",
		name, p.Count,
		formatFloat(p.Mean), formatFloat(p.Std), formatFloat(p.Min),
		formatFloat(p.Q1), formatFloat(p.Median), formatFloat(p.Q3), formatFloat(p.Max))
}

// flagTotals counts flag occurrences across the cleaned records, most
// frequent first.
func flagTotals(records []domain.Record) []stats.NameCount {
	counts := make(map[string]int)
	for i := range records {
		for _, flag := range records[i].Flags {
			counts[string(flag)]++
		}
	}
	return sortedNameCounts(counts)
}

// rejectionReasons counts rejected rows by reason, most frequent first.
func rejectionReasons(rejected []domain.RejectedRow) []stats.NameCount {
	counts := make(map[string]int)
	for i := range rejected {
		counts[rejected[i].Reason]++
	}
	return sortedNameCounts(counts)
}

func sortedNameCounts(counts map[string]int) []stats.NameCount {
	out := make([]stats.NameCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, stats.NameCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func topN(counts []stats.NameCount, n int) []stats.NameCount {
	if len(counts) <= n {
		return counts
	}
	return counts[:n]
}
