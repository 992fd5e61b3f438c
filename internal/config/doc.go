// Package config provides centralized configuration management for the
// SalesCleanse system. It handles loading configuration from multiple
// sources, validation, and a type-safe API for accessing configuration
// values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CLEANSE_* for namespacing:
//
//	CLEANSE_SERVER_PORT=8080
//	CLEANSE_LOGGING_LEVEL=info
//	CLEANSE_PIPELINE_DAY_FIRST=false
//	CLEANSE_PIPELINE_ROUNDING=half_up
//	CLEANSE_EXPORT_OUTPUT_DIR=/var/lib/salescleanse/out
//
// The config file location itself can be forced with CLEANSE_CONFIG;
// otherwise config.yaml and configs/config.yaml are probed.
//
// # Pipeline Section
//
// The pipeline section tunes the cleaning stages. It converts into the
// runner's own configuration with ToPipeline, which validates boundaries
// such as rounding mode and outlier percentile:
//
//	pipeCfg, err := cfg.Pipeline.ToPipeline()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
