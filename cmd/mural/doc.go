// Command mural is the CLI for the wallpaper rotation daemon: it runs the
// rotation loop in the foreground and inspects the persisted display counts,
// history journal, and configuration.
package main
