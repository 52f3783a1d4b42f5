// Package logging provides the structured logging surface used across the
// sealing pipeline. It wraps log/slog behind a minimal interface so that
// backends and tools can log per-layer progress without binding callers to a
// concrete handler.
package logging
