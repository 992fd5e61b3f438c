// Package services implements the business logic layer between the HTTP
// handlers and the cleansing pipeline. Handlers stay thin: they bind and
// validate requests, call one service method, and render whatever comes
// back.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Dependency injection for loose coupling
//	2. Context propagation for cancellation and tracing
//	3. Small consumer-side interfaces where a dependency is optional
//	4. Domain-focused methods that encapsulate business rules
//
// # Available Services
//
// The package provides these core services:
//
//	- CleanseService: runs the cleaning pipeline over ingested records,
//	  writes the run's artifacts and keeps a bounded run history
//	- HealthService: liveness, readiness and system statistics
//
// # Common Service Pattern
//
// Services typically follow this structure:
//
//	type ServiceName struct {
//	    dep    Dependency
//	    logger *slog.Logger
//	}
//
//	func NewServiceName(dep Dependency, logger *slog.Logger) *ServiceName {
//	    return &ServiceName{dep: dep, logger: logger}
//	}
//
//	func (s *ServiceName) BusinessOperation(ctx context.Context, input Input) (*Output, error) {
//	    result, err := s.dep.Operation(ctx, input)
//	    if err != nil {
//	        s.logger.ErrorContext(ctx, "operation failed", slog.Any("error", err))
//	        return nil, fmt.Errorf("operation failed: %w", err)
//	    }
//	    return result, nil
//	}
//
// # Error Handling
//
// Services return errors the transport layer can map to problem responses:
// sentinel ingest errors (unsupported format, missing columns, source
// unavailable) pass through unwrapped, run and export failures are wrapped
// into APIErrors carrying their error code, and unknown run IDs yield a
// RUN_NOT_FOUND error.
package services
