// Package logging provides structured logging for Lock Bridge.
//
// It wraps log/slog with configuration-driven level filtering, JSON or text
// output, and default service/version attributes on every record.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("report dispatched", "device_id", id)
//
// Use logging.Default() during early startup before the config is loaded.
package logging
