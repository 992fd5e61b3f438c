// Package shared provides common utilities and test helpers used across the
// codebase. It serves as a central location for functionality that doesn't
// belong to any specific domain or architectural layer.
//
// # Structure
//
// The package is organized into the following components:
//
// - testutil: Testing utilities including log capture and record fixtures
//
// # Usage Guidelines
//
// This package should only contain:
//
// 1. Test utilities used by multiple packages
// 2. Generic helper functions with no domain-specific logic
//
// It should NOT contain:
//
// 1. Business logic
// 2. Circular dependencies with other internal packages
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- A buffered slog handler for asserting on log output
//	- Fixture builders for sales records and record sets
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    run(logger)
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "run completed")
//	}
package shared
