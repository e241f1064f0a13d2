package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mural/internal/daemon"
	"mural/internal/daemonrun"
	"mural/internal/source"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var waitFirst bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the rotation loop in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			err = daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:          logLevel,
				WaitFirstInterval: waitFirst,
			})
			switch {
			case err == nil:
				return nil
			case errors.Is(err, daemon.ErrAlreadyRunning):
				fmt.Fprintln(cmd.OutOrStdout(), "mural daemon is already running; nothing to do")
				return nil
			case errors.Is(err, source.ErrNoContent):
				fmt.Fprintln(cmd.OutOrStdout(), "no playable images in any configured source; exiting")
				return nil
			case errors.Is(err, context.Canceled):
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&waitFirst, "wait-first-interval", false, "Sleep one display interval before the first change")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}
