package pipeline

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"salescleanse/pkg/contracts/domain"
)

// OutlierScanner flags records whose total is extreme for the set, either
// by distance from the mean in standard deviations or by sitting above a
// fixed percentile. It only ever adds the outlier_candidate flag; values
// are never changed and records are never rejected.
type OutlierScanner struct {
	BaseStage
	config *Config
	logger *slog.Logger
}

// NewOutlierScanner creates the outlier scan stage
func NewOutlierScanner(config *Config, logger *slog.Logger) *OutlierScanner {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OutlierScanner{
		BaseStage: NewBaseStage(StageIDOutliers, StageNameOutliers, []string{StageIDFeatures}),
		config:    config,
		logger:    logger,
	}
}

// Run flags outlier candidates among records with a computed total
func (o *OutlierScanner) Run(ctx context.Context, set *domain.RecordSet) (*domain.RecordSet, []domain.AuditEntry, error) {
	if set == nil {
		return nil, nil, ErrNilRecordSet
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	out := set.Clone()

	totals := make([]float64, 0, len(out.Records))
	for idx := range out.Records {
		if out.Records[idx].Total.Valid {
			v, _ := out.Records[idx].Total.Decimal.Float64()
			totals = append(totals, v)
		}
	}
	if len(totals) == 0 {
		return out, nil, nil
	}

	isOutlier := o.detector(totals)

	entries := make([]domain.AuditEntry, 0)
	for idx := range out.Records {
		rec := &out.Records[idx]
		if !rec.Total.Valid {
			continue
		}
		v, _ := rec.Total.Decimal.Float64()
		if !isOutlier(v) {
			continue
		}
		entries = appendFlagEntry(entries, rec, StageIDOutliers, domain.FlagOutlierCandidate)
	}

	if len(entries) > 0 {
		o.logger.InfoContext(ctx, "outliers_flagged",
			slog.Int("candidates", len(entries)),
			slog.String("method", string(o.config.Outlier.Method)),
			slog.Int("observed", len(totals)))
	}

	return out, entries, nil
}

// detector builds the candidacy predicate for the configured method.
func (o *OutlierScanner) detector(totals []float64) func(float64) bool {
	if o.config.Outlier.Method == OutlierMethodPercentile {
		threshold := nearestRankPercentile(totals, o.config.Outlier.Percentile)
		return func(v float64) bool { return v > threshold }
	}

	mean, stddev := meanStddev(totals)
	limit := o.config.Outlier.StddevFactor * stddev
	return func(v float64) bool { return math.Abs(v-mean) > limit }
}

// meanStddev returns the mean and population standard deviation.
func meanStddev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// nearestRankPercentile returns the p-th percentile by the nearest-rank
// definition over a copy of values.
func nearestRankPercentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := int(math.Ceil(p / 100.0 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
