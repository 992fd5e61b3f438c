package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"salescleanse/internal/pipeline"
)

// ClientCounter reports connected progress-feed clients. The websocket
// hub satisfies it.
type ClientCounter interface {
	ClientCount() int
}

// RuntimeStatsFunc reports live runtime gauges for the liveness probe.
type RuntimeStatsFunc func(ctx context.Context) map[string]interface{}

// HealthService provides health check functionality
type HealthService struct {
	version      string
	buildTime    string
	outputDir    string
	runner       *pipeline.Runner
	hub          ClientCounter
	store        *RunStore
	startTime    time.Time
	runtimeStats RuntimeStatsFunc
	logger       *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	RunsStored       int     `json:"runs_stored"`
	ArtifactFiles    int     `json:"artifact_files"`
	ArtifactBytes    int64   `json:"artifact_bytes"`
	WebSocketClients int     `json:"websocket_clients"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a health service with injected dependencies
func NewHealthService(version, buildTime, outputDir string, runner *pipeline.Runner, hub ClientCounter, store *RunStore, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("health service initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("output_dir", outputDir))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		outputDir: outputDir,
		runner:    runner,
		hub:       hub,
		store:     store,
		startTime: time.Now(),
		logger:    logger,
	}
}

// NewHealthServiceWithLogger creates a health service without wired
// dependencies, for tests and minimal deployments.
func NewHealthServiceWithLogger(version string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("version", hs.version),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	status.Services["pipeline"] = hs.checkPipelineHealth()
	status.Services["output_dir"] = hs.checkOutputDirHealth()
	status.Services["websocket"] = hs.checkWebSocketHealth()

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}

	return status
}

// SetRuntimeStats attaches a runtime gauge source used by LivenessCheck.
func (hs *HealthService) SetRuntimeStats(fn RuntimeStatsFunc) {
	hs.runtimeStats = fn
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	rt := map[string]interface{}{
		"uptime":     time.Since(hs.startTime).Seconds(),
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}
	if hs.runtimeStats != nil {
		rt = hs.runtimeStats(ctx)
	}

	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   rt,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}

	return result
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	var artifactFiles int
	var artifactBytes int64

	if hs.outputDir != "" {
		filepath.Walk(hs.outputDir, func(path string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				artifactFiles++
				artifactBytes += info.Size()
			}
			return nil
		})
	}

	stats := SystemStats{
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		ArtifactFiles: artifactFiles,
		ArtifactBytes: artifactBytes,
		GoVersion:     runtime.Version(),
		OS:            runtime.GOOS,
		Arch:          runtime.GOARCH,
	}
	if hs.store != nil {
		stats.RunsStored = hs.store.Len()
	}
	if hs.hub != nil {
		stats.WebSocketClients = hs.hub.ClientCount()
	}

	return stats, nil
}

// checkPipelineHealth checks that the stage registry can produce a run order
func (hs *HealthService) checkPipelineHealth() ServiceHealth {
	if hs.runner == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "pipeline runner not initialized",
		}
	}

	registry := hs.runner.Registry()
	if registry.Count() == 0 {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "no stages registered",
		}
	}
	if _, err := registry.GetDependencyOrder(); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("stage order unresolvable: %v", err),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d stages registered", registry.Count()),
	}
}

// checkOutputDirHealth checks the artifact directory is writable
func (hs *HealthService) checkOutputDirHealth() ServiceHealth {
	if hs.outputDir == "" {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "no output directory configured",
		}
	}

	if err := os.MkdirAll(hs.outputDir, 0755); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("cannot write to output directory: %v", err),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "output directory is writable",
	}
}

// checkWebSocketHealth checks the progress hub is attached
func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "progress hub not attached",
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
	}
}
