// Package logging provides a minimal logging interface and adapters for the
// reactive graph runtime.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that registries, managers and behaviours use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZerologAdapter wrapping github.com/rs/zerolog (console output)
//   - GraphLogger with behaviour transition and population walk helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.New(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "json", Output: os.Stdout})
//	rt := reactivegraph.New(func(o *reactivegraph.Options) { o.Logger = logger })
//
// Messages are dotted event names (behaviour.add.skipped); details travel as
// key/value args.
package logging
