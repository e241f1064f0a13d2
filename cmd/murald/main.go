// Command murald is the headless daemon entrypoint. It loads the default
// configuration and runs the rotation loop until signalled.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"mural/internal/config"
	"mural/internal/daemon"
	"mural/internal/daemonrun"
	"mural/internal/source"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	err = daemonrun.Run(context.Background(), cfg, daemonrun.Options{})
	switch {
	case err == nil:
	case errors.Is(err, daemon.ErrAlreadyRunning):
		fmt.Fprintln(os.Stderr, "murald is already running")
	case errors.Is(err, source.ErrNoContent):
		fmt.Fprintln(os.Stderr, "no playable images in any configured source")
	case errors.Is(err, context.Canceled):
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
