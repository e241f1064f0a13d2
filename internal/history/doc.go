// Package history journals display and retirement events to a local SQLite
// database so operators can answer "what has been on screen, when, and what
// happened to it" without trawling logs. The journal is an audit surface
// only: rotation state lives in the plain-text counter file and the daemon
// runs fine with history disabled.
package history
