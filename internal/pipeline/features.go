package pipeline

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"salescleanse/pkg/contracts/domain"
)

// FeatureEngineer derives order_month and order_year from the normalized
// date and buckets totals into revenue categories. Records missing the
// inputs get the missing_features flag and keep whatever could be derived.
type FeatureEngineer struct {
	BaseStage
	config *Config
	logger *slog.Logger
}

// NewFeatureEngineer creates the feature engineering stage
func NewFeatureEngineer(config *Config, logger *slog.Logger) *FeatureEngineer {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureEngineer{
		BaseStage: NewBaseStage(StageIDFeatures, StageNameFeatures, []string{StageIDRecalculate}),
		config:    config,
		logger:    logger,
	}
}

// Run derives order_month, order_year and revenue_category in that order
func (f *FeatureEngineer) Run(ctx context.Context, set *domain.RecordSet) (*domain.RecordSet, []domain.AuditEntry, error) {
	if set == nil {
		return nil, nil, ErrNilRecordSet
	}

	out := set.Clone()
	bands := f.config.RevenueBands

	entries, err := forEachRecord(ctx, out.Records, f.config.WorkerCount, func(rec *domain.Record) []domain.AuditEntry {
		var recEntries []domain.AuditEntry

		if rec.Date != nil {
			month := int(rec.Date.Month())
			year := rec.Date.Year()
			if rec.OrderMonth != month {
				recEntries = append(recEntries, featureEntry(rec, "order_month",
					intString(rec.OrderMonth), strconv.Itoa(month)))
				rec.OrderMonth = month
			}
			if rec.OrderYear != year {
				recEntries = append(recEntries, featureEntry(rec, "order_year",
					intString(rec.OrderYear), strconv.Itoa(year)))
				rec.OrderYear = year
			}
		}

		if rec.Total.Valid {
			category := categorizeRevenue(rec.Total.Decimal, bands)
			if rec.RevenueCategory != category {
				recEntries = append(recEntries, featureEntry(rec, "revenue_category",
					string(rec.RevenueCategory), string(category)))
				rec.RevenueCategory = category
			}
		}

		if rec.Date == nil || !rec.Total.Valid {
			recEntries = appendFlagEntry(recEntries, rec, StageIDFeatures, domain.FlagMissingFeatures)
		}

		return recEntries
	})
	if err != nil {
		return nil, nil, err
	}

	if len(entries) > 0 {
		f.logger.InfoContext(ctx, "features_derived",
			slog.Int("changes", len(entries)),
			slog.Int("records", len(out.Records)))
	}

	return out, entries, nil
}

// categorizeRevenue buckets a total: below the low boundary is Low, above
// the high boundary is High, both boundaries fall into Medium.
func categorizeRevenue(total decimal.Decimal, bands RevenueBands) domain.RevenueCategory {
	switch {
	case total.LessThan(bands.LowMax):
		return domain.RevenueLow
	case total.GreaterThan(bands.HighMin):
		return domain.RevenueHigh
	default:
		return domain.RevenueMedium
	}
}

func featureEntry(rec *domain.Record, field, oldValue, newValue string) domain.AuditEntry {
	return domain.NewAuditEntry(rec.TransactionID, StageIDFeatures, field,
		oldValue, newValue, domain.ReasonFeatureDerived)
}

func intString(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
