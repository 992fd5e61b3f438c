// Package app provides application initialization and lifecycle management
// for the SalesCleanse server. It wires configuration loading, the cleansing
// pipeline, run storage, HTTP transport and graceful shutdown into one
// runnable unit.
//
// # Architecture
//
// The app package follows a dependency injection pattern where all
// components are constructed and connected at startup. This keeps the
// packages loosely coupled and testable in isolation.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and OpenTelemetry
//	3. Start the WebSocket hub for run progress
//	4. Build the staged cleansing pipeline and run store
//	5. Create the cleanse and health services
//	6. Set up HTTP routes and middleware
//	7. Configure the HTTP server and shutdown handlers
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The package handles SIGINT and SIGTERM to ensure:
//
//	- Active cleansing requests are completed
//	- WebSocket connections are closed cleanly
//	- Telemetry providers are flushed
//
// # Error Handling
//
// All initialization errors are returned to the caller for proper
// handling. The app does not call os.Exit() directly, allowing the main
// function to control the exit process.
package app
