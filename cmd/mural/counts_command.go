package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mural/internal/counter"
)

func newCountsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show persisted display counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := counter.Open(cfg.CounterFile())
			if err != nil {
				return fmt.Errorf("open counter store: %w", err)
			}
			records, err := store.All()
			if err != nil {
				return fmt.Errorf("read counter store: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no display counts recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				rows = append(rows, []string{record.Path, strconv.Itoa(record.Count)})
			}
			writeRows(cmd, []string{"PATH", "COUNT"}, rows, []columnAlignment{alignLeft, alignRight})
			return nil
		},
	}
}
