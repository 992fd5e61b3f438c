package pipeline

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"salescleanse/pkg/contracts/domain"
)

// Recalculator rewrites total as quantity times price, rounded to cents.
// The stored total is never trusted; whatever the source claimed is only
// visible through the audit entry's old value. Records still missing a
// quantity or price keep their total untouched.
type Recalculator struct {
	BaseStage
	config *Config
	logger *slog.Logger
}

// NewRecalculator creates the total recalculation stage
func NewRecalculator(config *Config, logger *slog.Logger) *Recalculator {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recalculator{
		BaseStage: NewBaseStage(StageIDRecalculate, StageNameRecalculate, []string{StageIDValidate}),
		config:    config,
		logger:    logger,
	}
}

// Run recomputes totals for every record with a quantity and price
func (r *Recalculator) Run(ctx context.Context, set *domain.RecordSet) (*domain.RecordSet, []domain.AuditEntry, error) {
	if set == nil {
		return nil, nil, ErrNilRecordSet
	}

	out := set.Clone()
	rounding := r.config.Rounding

	entries, err := forEachRecord(ctx, out.Records, r.config.WorkerCount, func(rec *domain.Record) []domain.AuditEntry {
		if rec.Quantity == nil || !rec.Price.Valid {
			return nil
		}

		quantity := decimal.NewFromInt(*rec.Quantity)
		total := roundAmount(quantity.Mul(rec.Price.Decimal), rounding)

		if rec.Total.Valid && rec.Total.Decimal.Equal(total) {
			return nil
		}

		old := rec.TotalString()
		rec.Total = decimal.NewNullDecimal(total)
		return []domain.AuditEntry{domain.NewAuditEntry(
			rec.TransactionID, StageIDRecalculate, "total",
			old, total.String(), domain.ReasonTotalRecalculated)}
	})
	if err != nil {
		return nil, nil, err
	}

	if len(entries) > 0 {
		r.logger.InfoContext(ctx, "totals_recalculated",
			slog.Int("changed", len(entries)),
			slog.String("rounding", string(rounding)))
	}

	return out, entries, nil
}

// roundAmount rounds to two decimal places under the configured mode.
func roundAmount(d decimal.Decimal, mode RoundingMode) decimal.Decimal {
	if mode == RoundingHalfUp {
		return d.Round(2)
	}
	return d.RoundBank(2)
}
