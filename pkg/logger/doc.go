// Package logger provides the structured logging interface used across tweetpruner.
//
// It wraps zerolog with:
//   - leveled logging (Debug, Info, Warn, Error, Fatal)
//   - structured fields via WithField/WithFields/WithError
//   - coloured console output on stderr, optionally mirrored to a file
//   - a nop logger and an in-memory TestLogger for tests
//
// Basic usage:
//
//	cfg := &config.LoggingConfig{Level: "info"}
//	if err := logger.Initialize(cfg); err != nil {
//	    return err
//	}
//
//	log := logger.GetLogger().WithField("component", "pruner")
//	log.InfoWithFields("Sweep finished", map[string]interface{}{
//	    "visited": 412,
//	    "removed": 37,
//	})
//
// Components take a Logger in their constructors rather than reaching for
// the global instance, so tests can pass NewTestLogger() and assert on
// what was recorded.
package logger
