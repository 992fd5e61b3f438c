// Package pipeline implements the staged cleaning engine for sales
// transaction records: deduplication, quantity imputation, field
// normalization, business validation, total recalculation, feature
// engineering and outlier scanning. Stages thread an immutable record set
// from one to the next and describe every mutation with an audit entry;
// re-running the pipeline on its own clean output produces no entries.
package pipeline

import (
	"fmt"
	"log/slog"
)

// NewStandardRegistry registers the seven cleaning stages in canonical
// order: deduplicate, impute, normalize, validate, recalculate, features,
// outliers.
func NewStandardRegistry(config *Config, logger *slog.Logger) (*Registry, error) {
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	registry := NewRegistry()
	stages := []Stage{
		NewDeduplicator(logger),
		NewImputer(logger),
		NewNormalizer(config, logger),
		NewValidator(config, logger),
		NewRecalculator(config, logger),
		NewFeatureEngineer(config, logger),
		NewOutlierScanner(config, logger),
	}
	for _, stage := range stages {
		if err := registry.Register(stage); err != nil {
			return nil, fmt.Errorf("registering stage %s: %w", stage.ID(), err)
		}
	}
	return registry, nil
}

// NewStandardRunner builds a runner over the standard stages.
func NewStandardRunner(config *Config, logger *slog.Logger) (*Runner, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	registry, err := NewStandardRegistry(config, logger)
	if err != nil {
		return nil, err
	}
	return NewRunner(registry, config, logger), nil
}
