package pipeline

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RoundingMode selects how recalculated totals are rounded to cents
type RoundingMode string

const (
	// RoundingHalfEven is banker's rounding, the default
	RoundingHalfEven RoundingMode = "half_even"
	// RoundingHalfUp rounds half away from zero
	RoundingHalfUp RoundingMode = "half_up"
)

// OutlierMethod selects the outlier detection strategy
type OutlierMethod string

const (
	// OutlierMethodStddev flags totals more than k standard deviations from the mean
	OutlierMethodStddev OutlierMethod = "stddev"
	// OutlierMethodPercentile flags totals strictly above a fixed percentile
	OutlierMethodPercentile OutlierMethod = "percentile"
)

// OutlierConfig holds outlier scan tuning
type OutlierConfig struct {
	Method       OutlierMethod `json:"method"`
	StddevFactor float64       `json:"stddev_factor"`
	Percentile   float64       `json:"percentile"`
}

// RevenueBands holds the revenue category boundaries. Totals below LowMax
// are Low, totals above HighMin are High, everything between is Medium
// with both boundaries inclusive on the Medium side.
type RevenueBands struct {
	LowMax  decimal.Decimal `json:"low_max"`
	HighMin decimal.Decimal `json:"high_min"`
}

// Config holds the tunable cleaning behavior shared by all stages
type Config struct {
	// DateLayouts are tried in order against raw date values. Empty means
	// the defaults for the configured day-first preference.
	DateLayouts []string `json:"date_layouts"`

	// DayFirst resolves ambiguous numeric dates as day/month/year
	DayFirst bool `json:"day_first"`

	// Rounding selects the total recalculation rounding mode
	Rounding RoundingMode `json:"rounding"`

	// WorkerCount bounds per-record fan-out in record-local stages
	WorkerCount int `json:"worker_count"`

	// DropFlagged moves records carrying any advisory flag to the
	// rejected list at the end of validation
	DropFlagged bool `json:"drop_flagged"`

	// StageTimeout bounds each stage's execution; zero disables it
	StageTimeout time.Duration `json:"stage_timeout"`

	Outlier      OutlierConfig `json:"outlier"`
	RevenueBands RevenueBands  `json:"revenue_bands"`
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		DayFirst:     true,
		Rounding:     RoundingHalfEven,
		WorkerCount:  4,
		DropFlagged:  false,
		StageTimeout: 2 * time.Minute,
		Outlier: OutlierConfig{
			Method:       OutlierMethodStddev,
			StddevFactor: 3.0,
			Percentile:   99.0,
		},
		RevenueBands: RevenueBands{
			LowMax:  decimal.NewFromInt(50),
			HighMin: decimal.NewFromInt(150),
		},
	}
}

// EffectiveLayouts returns the date layouts to try, in order
func (c *Config) EffectiveLayouts() []string {
	if len(c.DateLayouts) > 0 {
		return c.DateLayouts
	}
	return defaultDateLayouts(c.DayFirst)
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	switch c.Rounding {
	case RoundingHalfEven, RoundingHalfUp:
	case "":
		c.Rounding = RoundingHalfEven
	default:
		return fmt.Errorf("unknown rounding mode: %s", c.Rounding)
	}

	switch c.Outlier.Method {
	case OutlierMethodStddev, OutlierMethodPercentile:
	case "":
		c.Outlier.Method = OutlierMethodStddev
	default:
		return fmt.Errorf("unknown outlier method: %s", c.Outlier.Method)
	}

	if c.Outlier.StddevFactor <= 0 {
		return fmt.Errorf("outlier stddev factor must be positive, got %v", c.Outlier.StddevFactor)
	}
	if c.Outlier.Percentile <= 0 || c.Outlier.Percentile >= 100 {
		return fmt.Errorf("outlier percentile must be in (0, 100), got %v", c.Outlier.Percentile)
	}

	if c.WorkerCount < 1 {
		c.WorkerCount = 1
	}

	if c.RevenueBands.LowMax.GreaterThan(c.RevenueBands.HighMin) {
		return fmt.Errorf("revenue band low_max %s exceeds high_min %s",
			c.RevenueBands.LowMax, c.RevenueBands.HighMin)
	}

	return nil
}

// defaultDateLayouts lists the accepted date formats. Ambiguous numeric
// forms appear in day-first or month-first order depending on preference;
// the ISO layout always leads so canonical values round-trip unchanged.
func defaultDateLayouts(dayFirst bool) []string {
	layouts := []string{
		"2006-01-02",
		"2006/01/02",
	}
	if dayFirst {
		layouts = append(layouts, "02/01/2006", "01/02/2006", "02-01-2006", "01-02-2006")
	} else {
		layouts = append(layouts, "01/02/2006", "02/01/2006", "01-02-2006", "02-01-2006")
	}
	return append(layouts,
		"02.01.2006",
		"2 Jan 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"2006-01-02 15:04:05",
		time.RFC3339,
	)
}
