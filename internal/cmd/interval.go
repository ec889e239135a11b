package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rsswatch/cli/control"
)

func newSetIntervalCmd(e *env) *cobra.Command {
	var duration string
	c := &cobra.Command{
		Use:   "set-interval",
		Short: "Change the refresh interval of the running background process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration == "" {
				return fmt.Errorf("usage: rsswatch set-interval --duration 2m")
			}
			d, err := time.ParseDuration(duration)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			if d <= 0 {
				return fmt.Errorf("duration must be positive")
			}

			client := control.NewClient(e.cfg.ControlAddr)
			old, err := client.SetInterval(cmd.Context(), d)
			if err != nil {
				return fmt.Errorf("could not set interval: %w", err)
			}

			out := cmd.OutOrStdout()
			if old == d {
				fmt.Fprintf(out, "Interval is already set to %s (no change)\n", d)
				return nil
			}
			fmt.Fprintf(out, "Interval of fetching feeds changed from %s to %s\n", old, d)
			return nil
		},
	}
	c.Flags().StringVar(&duration, "duration", "", "fetch interval duration (e.g., 2m)")
	return c
}
