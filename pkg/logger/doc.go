// Package logger builds the application's slog.Logger: JSON output in
// production and human-readable tint output in development, with a
// configurable level and an environment attribute on every record.
package logger
