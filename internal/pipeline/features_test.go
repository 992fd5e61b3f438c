package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salescleanse/pkg/contracts/domain"
)

func TestFeatureEngineer_DerivesOrderFields(t *testing.T) {
	features := NewFeatureEngineer(NewConfig(), testLogger(t))

	rec := record("T1", 1)
	rec.Date = day(2023, time.November, 28)
	rec.Total = price("75.00")

	out, entries, err := features.Run(context.Background(), domain.NewRecordSet(rec))
	require.NoError(t, err)

	got := out.Records[0]
	assert.Equal(t, 11, got.OrderMonth)
	assert.Equal(t, 2023, got.OrderYear)
	assert.Equal(t, domain.RevenueMedium, got.RevenueCategory)
	assert.False(t, got.HasFlag(domain.FlagMissingFeatures))

	require.Len(t, entries, 3)
	assert.Equal(t, "order_month", entries[0].Field)
	assert.Equal(t, "11", entries[0].NewValue)
	assert.Equal(t, "order_year", entries[1].Field)
	assert.Equal(t, "2023", entries[1].NewValue)
	assert.Equal(t, "revenue_category", entries[2].Field)
	assert.Equal(t, "Medium", entries[2].NewValue)
	for _, entry := range entries {
		assert.Equal(t, domain.ReasonFeatureDerived, entry.Reason)
	}
}

func TestFeatureEngineer_RevenueBoundaries(t *testing.T) {
	tests := []struct {
		total string
		want  domain.RevenueCategory
	}{
		{total: "49.99", want: domain.RevenueLow},
		{total: "50.00", want: domain.RevenueMedium},
		{total: "100.00", want: domain.RevenueMedium},
		{total: "150.00", want: domain.RevenueMedium},
		{total: "150.01", want: domain.RevenueHigh},
		{total: "0.01", want: domain.RevenueLow},
	}

	features := NewFeatureEngineer(NewConfig(), testLogger(t))

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			rec := record("T1", 1)
			rec.Total = price(tt.total)

			out, _, err := features.Run(context.Background(), domain.NewRecordSet(rec))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Records[0].RevenueCategory)
		})
	}
}

func TestFeatureEngineer_FlagsMissingInputs(t *testing.T) {
	features := NewFeatureEngineer(NewConfig(), testLogger(t))

	noDate := record("T1", 1)
	noDate.Date = nil
	noDate.Total = price("75.00")

	noTotal := record("T2", 2)
	noTotal.Total = nullPrice()

	out, entries, err := features.Run(context.Background(), domain.NewRecordSet(noDate, noTotal))
	require.NoError(t, err)

	first := out.Records[0]
	assert.True(t, first.HasFlag(domain.FlagMissingFeatures))
	// what can be derived still is
	assert.Equal(t, domain.RevenueMedium, first.RevenueCategory)
	assert.Zero(t, first.OrderMonth)

	second := out.Records[1]
	assert.True(t, second.HasFlag(domain.FlagMissingFeatures))
	assert.Equal(t, 1, second.OrderMonth)
	assert.Empty(t, second.RevenueCategory)

	// per record: revenue entry + flag entry, then month + year + flag entry
	require.Len(t, entries, 5)
	assert.Equal(t, "missing_features", entries[1].Reason)
	assert.Equal(t, "missing_features", entries[4].Reason)
}

func TestFeatureEngineer_IdempotentOnOwnOutput(t *testing.T) {
	features := NewFeatureEngineer(NewConfig(), testLogger(t))

	rec := record("T1", 1)
	rec.Total = price("200.00")

	once, entries, err := features.Run(context.Background(), domain.NewRecordSet(rec))
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	_, again, err := features.Run(context.Background(), domain.NewRecordSet(once.Records...))
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestFeatureEngineer_CustomBands(t *testing.T) {
	config := NewConfig()
	config.RevenueBands = RevenueBands{
		LowMax:  decimalFromString(t, "10"),
		HighMin: decimalFromString(t, "20"),
	}
	features := NewFeatureEngineer(config, testLogger(t))

	rec := record("T1", 1)
	rec.Total = price("15.00")

	out, _, err := features.Run(context.Background(), domain.NewRecordSet(rec))
	require.NoError(t, err)
	assert.Equal(t, domain.RevenueMedium, out.Records[0].RevenueCategory)
}
