// Package logging builds the slog loggers used by the projecthub CLI.
package logging
