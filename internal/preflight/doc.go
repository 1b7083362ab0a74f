// Package preflight checks that AmanSearch can serve searches before it
// is asked to.
//
// The package validates:
//   - Configuration loads and validates
//   - At least one search provider can be built
//   - Self-hosted endpoints (SearXNG, Ollama) answer
//   - The embedding backend has what it needs
//   - The log directory is writable
//   - File descriptor limits
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, projectDir)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
