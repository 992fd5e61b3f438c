package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"salescleanse/pkg/contracts/domain"
)

// serialEpoch is the spreadsheet day-zero; serial dates count days from it.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Normalizer brings dates, product names and customer IDs to canonical
// form. Per record it works the fields in a fixed order (date, then
// product_name, then customer_id) so audit output is deterministic.
// Canonicalization is idempotent: a second pass over its own output
// produces no further entries.
type Normalizer struct {
	BaseStage
	config *Config
	logger *slog.Logger
}

// NewNormalizer creates the field normalization stage
func NewNormalizer(config *Config, logger *slog.Logger) *Normalizer {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		BaseStage: NewBaseStage(StageIDNormalize, StageNameNormalize, []string{StageIDImpute}),
		config:    config,
		logger:    logger,
	}
}

// Run normalizes every record in place on a cloned set
func (n *Normalizer) Run(ctx context.Context, set *domain.RecordSet) (*domain.RecordSet, []domain.AuditEntry, error) {
	if set == nil {
		return nil, nil, ErrNilRecordSet
	}

	out := set.Clone()
	entries, err := forEachRecord(ctx, out.Records, n.config.WorkerCount, n.normalizeRecord)
	if err != nil {
		return nil, nil, err
	}

	if len(entries) > 0 {
		n.logger.InfoContext(ctx, "records_normalized",
			slog.Int("changes", len(entries)),
			slog.Int("records", len(out.Records)))
	}

	return out, entries, nil
}

func (n *Normalizer) normalizeRecord(rec *domain.Record) []domain.AuditEntry {
	var entries []domain.AuditEntry

	if rec.Date == nil {
		raw := strings.TrimSpace(rec.RawDate)
		if raw != "" {
			if parsed, ok := n.parseDate(raw); ok {
				rec.Date = &parsed
				formatted := parsed.Format(domain.DateLayout)
				if formatted != raw {
					entries = append(entries, domain.NewAuditEntry(
						rec.TransactionID, StageIDNormalize, "date",
						rec.RawDate, formatted, domain.ReasonDateNormalized))
				}
			}
		}
	}

	if canon := canonicalProductName(rec.ProductName); canon != rec.ProductName {
		entries = append(entries, domain.NewAuditEntry(
			rec.TransactionID, StageIDNormalize, "product_name",
			rec.ProductName, canon, domain.ReasonProductNameNormalized))
		rec.ProductName = canon
	}

	if canon := canonicalCustomerID(rec.CustomerID); canon != rec.CustomerID {
		entries = append(entries, domain.NewAuditEntry(
			rec.TransactionID, StageIDNormalize, "customer_id",
			rec.CustomerID, canon, domain.ReasonCustomerIDNormalized))
		rec.CustomerID = canon
	}

	return entries
}

// parseDate tries the configured layouts against the raw value, after the
// usual repairs: spreadsheet serial numbers, zero-padding of day and month,
// and two-digit years mapped to 20xx. Customer IDs that leaked into the
// date column are recognized and left unparsed.
func (n *Normalizer) parseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || looksLikeCustomerID(s) {
		return time.Time{}, false
	}

	if serial, ok := parseSerialDate(s); ok {
		return serial, true
	}

	candidates := []string{s}
	if repaired, ok := repairNumericDate(s); ok && repaired != s {
		candidates = append(candidates, repaired)
	}

	for _, candidate := range candidates {
		for _, layout := range n.config.EffectiveLayouts() {
			if t, err := time.Parse(layout, candidate); err == nil {
				return truncateToDate(t), true
			}
		}
	}

	return time.Time{}, false
}

// looksLikeCustomerID matches values of the form C123 that end up in the
// date column when source columns shift.
func looksLikeCustomerID(s string) bool {
	if len(s) != 4 {
		return false
	}
	if s[0] != 'C' && s[0] != 'c' {
		return false
	}
	return allDigits(s[1:])
}

// parseSerialDate interprets five-digit integers as spreadsheet serial
// dates, days since 1899-12-30.
func parseSerialDate(s string) (time.Time, bool) {
	if len(s) != 5 || !allDigits(s) {
		return time.Time{}, false
	}
	days, err := strconv.Atoi(s)
	if err != nil {
		return time.Time{}, false
	}
	return serialEpoch.AddDate(0, 0, days), true
}

// repairNumericDate zero-pads day and month and widens two-digit years to
// 20xx in purely numeric dates, keeping the original separator.
func repairNumericDate(s string) (string, bool) {
	var sep string
	switch {
	case strings.Contains(s, "/"):
		sep = "/"
	case strings.Contains(s, "-"):
		sep = "-"
	case strings.Contains(s, "."):
		sep = "."
	default:
		return "", false
	}

	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return "", false
	}
	for _, p := range parts {
		if p == "" || !allDigits(p) {
			return "", false
		}
	}

	if len(parts[0]) == 4 {
		// year-first
		parts[1] = pad2(parts[1])
		parts[2] = pad2(parts[2])
	} else {
		parts[0] = pad2(parts[0])
		parts[1] = pad2(parts[1])
		if len(parts[2]) == 2 {
			parts[2] = "20" + parts[2]
		}
	}

	return strings.Join(parts, sep), true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// canonicalProductName trims, collapses internal whitespace runs to a
// single space and title-cases the result.
func canonicalProductName(name string) string {
	collapsed := strings.Join(strings.Fields(name), " ")
	if collapsed == "" {
		return ""
	}
	return cases.Title(language.English).String(collapsed)
}

// canonicalCustomerID trims and upper-cases the customer identifier.
func canonicalCustomerID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
