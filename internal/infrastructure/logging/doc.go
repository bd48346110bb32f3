// Package logging provides structured logging for syncgate.
//
// It wraps log/slog with configuration-driven level filtering, output
// format selection (JSON or text), and default service attributes.
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("server starting", "port", cfg.Server.Port)
package logging
