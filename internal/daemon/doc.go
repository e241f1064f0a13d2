// Package daemon coordinates the long-running mural process.
//
// It enforces the one-daemon-per-store rule with flock-based locking around
// the rotation engine's lifecycle: acquire the run lock, hand control to the
// engine, and release the lock on any exit path so the counter store is never
// contested by two instances.
package daemon
