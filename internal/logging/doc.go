// Package logging builds the slog loggers used across chime.
//
// It provides a console handler for interactive use, a JSON handler for
// machine consumption, attribute helpers so call sites stay terse, and a
// no-op logger for tests. Level and format come from the [logging] section
// of the configuration file.
package logging
