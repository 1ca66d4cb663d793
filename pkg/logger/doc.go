// Package logger provides a structured logging interface for the gallery grabber.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output
// - Optional file output
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "gallerygrab/pkg/logger"
//
//	cfg := &config.LoggingConfig{Level: "info"}
//	err := logger.Initialize(cfg)
//
//	logger.Info("Session started")
//	logger.WithField("term", "sunset").Info("Loading feed")
//	logger.WithError(err).Error("Failed to download asset")
//
// Every decision point in a run (stall, stop, checkpoint written,
// download outcome) emits a structured line so a run can be
// reconstructed from its log without re-running.
package logger
