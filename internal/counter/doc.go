// Package counter persists per-image display counts across daemon restarts.
//
// The store is a plain UTF-8 text file, one `<path> <count>` record per line,
// rewritten atomically on every change. Absence of a record reads as zero,
// which makes first-time images and externally deleted records behave the
// same way. Paths are matched by exact string equality after the caller has
// canonicalized them; a moved file therefore starts over at zero. That is
// documented behavior, not a defect.
package counter
