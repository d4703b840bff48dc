// Package logging assembles structured slog loggers and formatting helpers used
// across dupmap commands.
//
// It owns the console, JSON, and terminal handlers, centralizes level and
// output plumbing, and provides a no-op logger for tests and wiring code that
// cannot fail. Components receive their logger at construction time and tag
// it with NewComponentLogger; nothing in the repository looks a logger up
// globally.
package logging
