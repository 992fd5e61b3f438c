package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"salescleanse/pkg/contracts/domain"
)

// Imputer fills missing quantities with the median of the non-null
// quantities in the set. A set with records but no quantities at all has
// no defined median and is rejected as a whole.
type Imputer struct {
	BaseStage
	logger *slog.Logger
}

// NewImputer creates the quantity imputation stage
func NewImputer(logger *slog.Logger) *Imputer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Imputer{
		BaseStage: NewBaseStage(StageIDImpute, StageNameImpute, []string{StageIDDeduplicate}),
		logger:    logger,
	}
}

// Run fills null quantities with the set median
func (i *Imputer) Run(ctx context.Context, set *domain.RecordSet) (*domain.RecordSet, []domain.AuditEntry, error) {
	if set == nil {
		return nil, nil, ErrNilRecordSet
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	out := set.Clone()
	if len(out.Records) == 0 {
		return out, nil, nil
	}

	present := make([]int64, 0, len(out.Records))
	for idx := range out.Records {
		if q := out.Records[idx].Quantity; q != nil {
			present = append(present, *q)
		}
	}

	if len(present) == 0 {
		return nil, nil, NewDatasetFatalError(StageIDImpute,
			domain.ReasonQuantityMedianUndefined,
			"every quantity is null, median is undefined")
	}
	if len(present) == len(out.Records) {
		return out, nil, nil
	}

	median := medianInt64(present)
	medianStr := strconv.FormatInt(median, 10)

	entries := make([]domain.AuditEntry, 0)
	for idx := range out.Records {
		rec := &out.Records[idx]
		if rec.Quantity != nil {
			continue
		}
		q := median
		rec.Quantity = &q
		rec.AddFlag(domain.FlagImputedQuantity)
		entries = append(entries, domain.NewAuditEntry(
			rec.TransactionID, StageIDImpute, "quantity",
			"", medianStr, domain.ReasonMissingQuantityImputed))
	}

	i.logger.InfoContext(ctx, "quantities_imputed",
		slog.Int64("median", median),
		slog.Int("imputed", len(entries)),
		slog.Int("observed", len(present)))

	return out, entries, nil
}

// medianInt64 returns the median of values. For an even count the two
// middle values are averaged and a fractional result rounds half away
// from zero so quantities stay integral.
func medianInt64(values []int64) int64 {
	sorted := make([]int64, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	lo := decimal.NewFromInt(sorted[n/2-1])
	hi := decimal.NewFromInt(sorted[n/2])
	return decimal.Avg(lo, hi).Round(0).IntPart()
}
