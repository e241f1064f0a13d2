// Package desktop wraps the desktop-environment capabilities the rotation
// loop consumes: setting the background image and querying whether the
// interactive session is locked.
//
// The production implementations shell out to gsettings and gdbus. Both are
// expressed as small interfaces so the rotation engine can be tested with
// fakes and so other environments can slot in their own implementations.
package desktop
