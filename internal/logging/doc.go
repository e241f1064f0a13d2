// Package logging builds slog loggers with console and JSON handlers and
// standardizes the structured field names used across the daemon.
//
// The console handler renders one line per record: UTC timestamp, level,
// component prefix, message, then key=value attributes. The JSON handler is
// intended for machine consumption. Helpers such as String, Int, and Error
// keep call sites terse, and the Field* constants keep attribute names
// consistent between the rotation engine, the capabilities, and the CLI.
package logging
