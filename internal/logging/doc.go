// Package logging builds the application slog logger with console and JSON
// handlers, and provides standardized attribute keys plus context-derived
// field extraction shared across the pipeline.
package logging
