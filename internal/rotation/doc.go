// Package rotation drives the display loop: one tick per interval, in which
// the engine re-evaluates the active source, checks the session lock, draws
// the next playlist entry, applies it to the desktop, persists the display
// count, and defers retirement until the image has had its time on screen.
//
// The engine is single-threaded by design. Every wait is an explicit,
// context-cancellable sleep between ticks, so shutdown can interrupt the loop
// at any suspension point without leaving the counter store half-written.
package rotation
