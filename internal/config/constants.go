package config

// Application constants shared across the SalesCleanse system
const (
	// Application Info
	AppName = "SalesCleanse"

	// Environment variable namespace, e.g. CLEANSE_SERVER_PORT
	envPrefix = "CLEANSE"

	// API Endpoints
	APIBasePath     = "/api/v1"
	CleanseEndpoint = "/api/v1/cleanse"
	StagesEndpoint  = "/api/v1/stages"
	RunsEndpoint    = "/api/v1/runs"
	HealthEndpoint  = "/healthz"
	ReadyEndpoint   = "/readyz"
	MetricsEndpoint = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"

	// Output file names
	CleanedCSVName  = "cleaned.csv"
	AuditCSVName    = "audit.csv"
	RejectedCSVName = "rejected.csv"
	WorkbookName    = "cleaned.xlsx"
	ReportName      = "quality_report.txt"

	// Default directories and files
	DefaultOutputDir   = "out"
	DefaultLogsDir     = "logs"
	DefaultLogFilePath = "logs/app.log"

	// Request limits
	DefaultMaxRequestBytes = 32 << 20 // 32MB of inline rows
)
