// Package logging provides structured logging configuration for mockhandler.
//
// This package wraps log/slog to provide consistent logging across all
// components. It supports configurable log levels and output formats.
//
// # Usage
//
// Create a logger with desired configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("listener started", "label", "http", "port", 9000)
//
// # Line sinks
//
// Test harnesses frequently hand over a plain func(string) for diagnostics.
// FromFunc and NewFuncHandler turn such a sink into a slog logger, so the
// rest of the code base logs structured records while the harness receives
// one text line per record:
//
//	var lines []string
//	log := logging.FromFunc(func(line string) { lines = append(lines, line) })
//	log.Info("registered successfully", "label", "https")
//	// lines[0] == `level=INFO msg="registered successfully" label=https`
//
// # Integration
//
// Components should accept a *slog.Logger in their constructor or via a
// functional option. If no logger is provided, use logging.Nop().
package logging
