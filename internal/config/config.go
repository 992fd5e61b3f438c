package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"salescleanse/internal/pipeline"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
	MaxRequestBytes int64         `yaml:"max_request_bytes" envconfig:"MAX_REQUEST_BYTES"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PipelineConfig tunes the cleaning stages. Zero values fall back to the
// pipeline defaults when converted with ToPipeline.
type PipelineConfig struct {
	DateLayouts  []string           `yaml:"date_layouts" envconfig:"DATE_LAYOUTS"`
	DayFirst     *bool              `yaml:"day_first" envconfig:"DAY_FIRST"`
	Rounding     string             `yaml:"rounding" envconfig:"ROUNDING"`
	Workers      int                `yaml:"workers" envconfig:"WORKERS"`
	DropFlagged  bool               `yaml:"drop_flagged" envconfig:"DROP_FLAGGED"`
	StageTimeout time.Duration      `yaml:"stage_timeout" envconfig:"STAGE_TIMEOUT"`
	Outlier      OutlierConfig      `yaml:"outlier" envconfig:"OUTLIER"`
	RevenueBands RevenueBandsConfig `yaml:"revenue_bands" envconfig:"REVENUE_BANDS"`
}

// OutlierConfig tunes the outlier scan
type OutlierConfig struct {
	Method       string  `yaml:"method" envconfig:"METHOD"`
	StddevFactor float64 `yaml:"stddev_factor" envconfig:"STDDEV_FACTOR"`
	Percentile   float64 `yaml:"percentile" envconfig:"PERCENTILE"`
}

// RevenueBandsConfig carries the revenue category boundaries as decimal
// strings so YAML and environment values stay exact.
type RevenueBandsConfig struct {
	LowMax  string `yaml:"low_max" envconfig:"LOW_MAX"`
	HighMin string `yaml:"high_min" envconfig:"HIGH_MIN"`
}

// ExportConfig contains output configuration
type ExportConfig struct {
	OutputDir      string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	Format         string `yaml:"format" envconfig:"FORMAT"`
	IncludeReport  bool   `yaml:"include_report" envconfig:"INCLUDE_REPORT"`
	IncludeSummary bool   `yaml:"include_summary" envconfig:"INCLUDE_SUMMARY"`
}

// SheetsConfig contains Google Sheets ingestion configuration. APIKey is
// enough for public read-only sheets; CredentialsFile wins when both are set.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	APIKey          string `yaml:"api_key" envconfig:"API_KEY"`
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	ReadRange       string `yaml:"read_range" envconfig:"READ_RANGE"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load loads configuration layered as defaults, then the config file,
// then CLEANSE_* environment variables.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom loads configuration like Load but from an explicit file path.
// An empty path skips the file layer.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := applyFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyFile overlays YAML values onto cfg; absent keys keep their layer
func applyFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ToPipeline converts the section into a validated pipeline configuration.
// Unset fields keep the pipeline defaults.
func (p PipelineConfig) ToPipeline() (*pipeline.Config, error) {
	cfg := pipeline.NewConfig()

	if len(p.DateLayouts) > 0 {
		cfg.DateLayouts = p.DateLayouts
	}
	if p.DayFirst != nil {
		cfg.DayFirst = *p.DayFirst
	}
	cfg.DropFlagged = p.DropFlagged
	if p.Rounding != "" {
		cfg.Rounding = pipeline.RoundingMode(p.Rounding)
	}
	if p.Workers > 0 {
		cfg.WorkerCount = p.Workers
	}
	if p.StageTimeout > 0 {
		cfg.StageTimeout = p.StageTimeout
	}
	if p.Outlier.Method != "" {
		cfg.Outlier.Method = pipeline.OutlierMethod(p.Outlier.Method)
	}
	if p.Outlier.StddevFactor > 0 {
		cfg.Outlier.StddevFactor = p.Outlier.StddevFactor
	}
	if p.Outlier.Percentile > 0 {
		cfg.Outlier.Percentile = p.Outlier.Percentile
	}

	if p.RevenueBands.LowMax != "" {
		low, err := decimal.NewFromString(p.RevenueBands.LowMax)
		if err != nil {
			return nil, fmt.Errorf("invalid revenue band low_max %q: %w", p.RevenueBands.LowMax, err)
		}
		cfg.RevenueBands.LowMax = low
	}
	if p.RevenueBands.HighMin != "" {
		high, err := decimal.NewFromString(p.RevenueBands.HighMin)
		if err != nil {
			return nil, fmt.Errorf("invalid revenue band high_min %q: %w", p.RevenueBands.HighMin, err)
		}
		cfg.RevenueBands.HighMin = high
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Server.MaxRequestBytes <= 0 {
		c.Server.MaxRequestBytes = DefaultMaxRequestBytes
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFilePath
	}

	switch c.Export.Format {
	case "csv", "xlsx", "both":
	case "":
		c.Export.Format = "csv"
	default:
		return fmt.Errorf("unknown export format: %s", c.Export.Format)
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = DefaultOutputDir
	}

	if _, err := c.Pipeline.ToPipeline(); err != nil {
		return err
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv("CLEANSE_CONFIG"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      10 * time.Minute,
			MaxRequestBytes: DefaultMaxRequestBytes,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "console",
			FilePath:    DefaultLogFilePath,
			Development: false,
		},
		Pipeline: PipelineConfig{
			Rounding:     string(pipeline.RoundingHalfEven),
			Workers:      4,
			StageTimeout: 2 * time.Minute,
			Outlier: OutlierConfig{
				Method:       string(pipeline.OutlierMethodStddev),
				StddevFactor: 3.0,
				Percentile:   99.0,
			},
			RevenueBands: RevenueBandsConfig{
				LowMax:  "50",
				HighMin: "150",
			},
		},
		Export: ExportConfig{
			OutputDir:      DefaultOutputDir,
			Format:         "csv",
			IncludeReport:  true,
			IncludeSummary: true,
		},
		Sheets: SheetsConfig{
			ReadRange: "Sales!A:Z",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
