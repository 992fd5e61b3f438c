package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"salescleanse/pkg/contracts/domain"
)

// minPrice is the smallest valid unit price.
var minPrice = decimal.RequireFromString("0.01")

// Validator applies the business rules. Violations are advisory: the
// record is flagged and stays in the output unless the pipeline is
// configured to drop flagged records. The one fatal rule is a missing
// transaction_id, which rejects the row.
type Validator struct {
	BaseStage
	config *Config
	logger *slog.Logger
}

// NewValidator creates the business validation stage
func NewValidator(config *Config, logger *slog.Logger) *Validator {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		BaseStage: NewBaseStage(StageIDValidate, StageNameValidate, []string{StageIDNormalize}),
		config:    config,
		logger:    logger,
	}
}

// Run flags rule violations, checking quantity, price and date in order
func (v *Validator) Run(ctx context.Context, set *domain.RecordSet) (*domain.RecordSet, []domain.AuditEntry, error) {
	if set == nil {
		return nil, nil, ErrNilRecordSet
	}

	out := set.Clone()

	// The deduplicator already rejects rows without an ID; this re-check
	// covers sets that entered the pipeline mid-way.
	kept := make([]domain.Record, 0, len(out.Records))
	for _, rec := range out.Records {
		if strings.TrimSpace(rec.TransactionID) == "" {
			out.Reject(rec, domain.ReasonMissingID)
			continue
		}
		kept = append(kept, rec)
	}
	out.Records = kept

	entries, err := forEachRecord(ctx, out.Records, v.config.WorkerCount, validateRecord)
	if err != nil {
		return nil, nil, err
	}

	if v.config.DropFlagged {
		survivors := make([]domain.Record, 0, len(out.Records))
		dropped := 0
		for _, rec := range out.Records {
			if len(rec.Flags) > 0 {
				out.Reject(rec, domain.ReasonFlaggedExcluded)
				dropped++
				continue
			}
			survivors = append(survivors, rec)
		}
		out.Records = survivors
		if dropped > 0 {
			v.logger.InfoContext(ctx, "flagged_records_excluded",
				slog.Int("dropped", dropped))
		}
	}

	if len(entries) > 0 {
		v.logger.InfoContext(ctx, "validation_flags_added",
			slog.Int("flags", len(entries)),
			slog.Int("records", len(out.Records)))
	}

	return out, entries, nil
}

func validateRecord(rec *domain.Record) []domain.AuditEntry {
	var entries []domain.AuditEntry

	if rec.Quantity != nil && *rec.Quantity < 1 {
		entries = appendFlagEntry(entries, rec, StageIDValidate, domain.FlagInvalidQuantity)
	}
	if !rec.Price.Valid || rec.Price.Decimal.LessThan(minPrice) {
		entries = appendFlagEntry(entries, rec, StageIDValidate, domain.FlagInvalidPrice)
	}
	if rec.Date == nil {
		entries = appendFlagEntry(entries, rec, StageIDValidate, domain.FlagInvalidDate)
	}

	return entries
}

// appendFlagEntry adds a flag and, when the flag list actually changed,
// the audit entry documenting it.
func appendFlagEntry(entries []domain.AuditEntry, rec *domain.Record, stage string, flag domain.Flag) []domain.AuditEntry {
	before := rec.FlagsString()
	if !rec.AddFlag(flag) {
		return entries
	}
	return append(entries, domain.NewAuditEntry(
		rec.TransactionID, stage, "flags",
		before, rec.FlagsString(), string(flag)))
}
