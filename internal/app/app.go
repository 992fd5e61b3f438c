package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"salescleanse/internal/config"
	apierrors "salescleanse/internal/errors"
	"salescleanse/internal/infrastructure"
	"salescleanse/internal/ingest"
	customMiddleware "salescleanse/internal/middleware"
	"salescleanse/internal/pipeline"
	"salescleanse/internal/services"
	handlers "salescleanse/internal/transport/http"
	ws "salescleanse/internal/websocket"
	"salescleanse/pkg/contracts"
)

// Application wires configuration, the cleansing pipeline, services and the
// HTTP transport into one runnable server.
type Application struct {
	Config         *config.Config
	Router         *chi.Mux
	Server         *http.Server
	WebSocketHub   *ws.Hub
	Runner         *pipeline.Runner
	RunStore       *services.RunStore
	CleanseService *services.CleanseService
	HealthService  *services.HealthService
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	Metrics        *infrastructure.PipelineMetrics
	SystemMetrics  *infrastructure.SystemMetricsCollector
}

// systemMetricsInterval is how often runtime gauges are sampled.
const systemMetricsInterval = 30 * time.Second

// NewApplication creates a new application instance with dependency injection
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig builds the application from an already-loaded
// configuration. The CLI and tests use this to bypass file discovery.
func NewApplicationWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("build_time", contracts.BuildTime))

	paths, err := cfg.Paths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes the hub, pipeline and application services
func (a *Application) initializeServices() error {
	// Progress hub first so the runner can broadcast from the start.
	hub := ws.NewHub(a.Config.WebSocket, a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	pipeCfg, err := a.Config.Pipeline.ToPipeline()
	if err != nil {
		return fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	runner, err := pipeline.NewStandardRunner(pipeCfg, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	runner.SetBroadcaster(hub)
	a.Runner = runner

	metrics, err := infrastructure.CreatePipelineMetrics(a.OTelProviders.Meter)
	if err != nil {
		a.Logger.Error("failed to create pipeline metrics, continuing without",
			slog.String("error", err.Error()))
	} else {
		runner.SetMetrics(metrics)
		a.Metrics = metrics
	}

	sysMetrics, err := infrastructure.NewSystemMetricsCollector(a.OTelProviders.Meter, systemMetricsInterval)
	if err != nil {
		a.Logger.Error("failed to create system metrics collector, continuing without",
			slog.String("error", err.Error()))
	} else {
		a.SystemMetrics = sysMetrics
	}

	store := services.NewRunStore(services.DefaultRunCapacity)
	a.RunStore = store

	cleanseService := services.NewCleanseService(runner, store, a.Config.Export, a.Logger)
	if a.Metrics != nil {
		cleanseService.SetMetrics(a.Metrics)
	}

	// Spreadsheet ingest is optional; a missing spreadsheet ID just leaves
	// the /cleanse/sheet endpoint answering 503.
	if a.Config.Sheets.SpreadsheetID != "" {
		sheetsReader, err := ingest.NewSheetsReader(context.Background(), a.Config.Sheets, a.Logger)
		if err != nil {
			a.Logger.Error("failed to initialize sheets source, endpoint disabled",
				slog.String("spreadsheet_id", a.Config.Sheets.SpreadsheetID),
				slog.String("error", err.Error()))
		} else {
			cleanseService.SetSheetSource(sheetsReader)
		}
	}
	a.CleanseService = cleanseService

	a.HealthService = services.NewHealthService(
		contracts.Version,
		contracts.BuildTime,
		a.Config.Export.OutputDir,
		runner,
		hub,
		store,
		a.Logger,
	)
	if a.SystemMetrics != nil {
		a.HealthService.SetRuntimeStats(func(ctx context.Context) map[string]interface{} {
			return a.SystemMetrics.GetCurrentStats(ctx).FormatStats()
		})
	}

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Minimal middleware that won't interfere with WebSocket upgrades.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// WebSocket route stays outside the full middleware group; wrapped
	// response writers break the hijack the upgrade needs.
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		HandleFunc(config.WebSocketEndpoint, a.handleWebSocket)

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
		if err != nil {
			a.Logger.Error("failed to create OpenTelemetry middleware",
				slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
		r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.NotFound(errorHandler.NotFound)
		r.MethodNotAllowed(errorHandler.MethodNotAllowed)

		a.setupAPIRoutes(r, errorHandler)
	})

	// Prometheus endpoint outside the middleware group for performance.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures health probes and the versioned API
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get(config.HealthEndpoint, healthHandler.HealthCheck)
	r.Get(config.ReadyEndpoint, healthHandler.ReadinessCheck)
	r.Get("/livez", healthHandler.LivenessCheck)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RunTimeout, a.Logger))
		r.Use(customMiddleware.ContentTypeValidator("application/json", "multipart/form-data"))

		validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)
		validation.SetMaxBodySize(a.Config.Server.MaxRequestBytes)
		r.Use(validation.ValidateRequest)

		r.Get("/version", healthHandler.Version)
		r.Get("/stats", healthHandler.Stats)

		cleanseHandler := handlers.NewCleanseHandler(a.CleanseService, a.Logger)
		r.Mount("/", cleanseHandler.Routes())
	})
}

// getCORSConfig returns CORS configuration based on environment
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}

	if a.Config.Logging.Development {
		cfg.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
			fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
		}
		return cfg
	}

	cfg.AllowedOrigins = []string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}
	if a.Config.Security.EnableCORS && len(a.Config.Security.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, a.Config.Security.AllowedOrigins...)
	}
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start starts the HTTP server and reports fatal serve errors through cancel
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level),
		slog.String("output_dir", a.Config.Export.OutputDir))

	if a.SystemMetrics != nil {
		go a.SystemMetrics.Start(ctx)
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "server started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))

	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.WebSocketHub.Stop()

	if a.SystemMetrics != nil {
		a.SystemMetrics.Stop()
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry",
				slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "received interrupt signal")
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// handleWebSocket upgrades GET /ws connections and hands them to the hub
func (a *Application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = fmt.Sprintf("ws-%d", time.Now().UnixNano())
	}

	ctx := infrastructure.WithTraceID(r.Context(), reqID)
	a.Logger.InfoContext(ctx, "websocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// No origin means same-origin or a non-browser client.
			if origin == "" {
				return true
			}
			if a.Config.Logging.Development {
				return true
			}
			for _, allowed := range a.getCORSConfig().AllowedOrigins {
				if origin == allowed {
					return true
				}
			}
			a.Logger.WarnContext(ctx, "websocket origin rejected",
				slog.String("origin", origin))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			a.Logger.ErrorContext(ctx, "websocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
			customMiddleware.ProblemFromStatus(status, reason.Error(), reqID).Render(w, r)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.ErrorContext(ctx, "websocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	ws.ServeWS(a.WebSocketHub, conn, reqID, a.Logger)

	a.Logger.InfoContext(ctx, "websocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("request_id", reqID))
}
