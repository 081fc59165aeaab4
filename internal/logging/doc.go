// Package logging assembles the structured slog loggers used across the
// pipeline.
//
// It owns the console and JSON handlers, centralizes level parsing, and
// defines the standard field names (gallery, image, image_id, size_class) so
// every component emits log lines with the same shape. Prefer these
// constructors over hand-rolled slog setup.
package logging
