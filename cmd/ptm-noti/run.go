package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func runCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Perform a single poll cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := newApp(ctx, *cfgFile)
			if err != nil {
				return err
			}

			// Top-level error boundary: component failures end the
			// run as a structured log record and a clean exit, not a
			// crash.
			if err := a.runOnce(ctx); err != nil {
				a.log.Error().Err(err).Msg("unhandled error")
				color.Red("run failed: %v", err)
				return nil
			}

			color.Green("run complete")
			return nil
		},
	}
}
