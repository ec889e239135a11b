package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rsswatch/cli/control"
)

const maxWorkers = 15

func newSetWorkersCmd(e *env) *cobra.Command {
	var count int
	c := &cobra.Command{
		Use:   "set-workers",
		Short: "Change how many feeds the background process refreshes at once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 || count > maxWorkers {
				return fmt.Errorf("number of workers should be between 1 and %d", maxWorkers)
			}

			client := control.NewClient(e.cfg.ControlAddr)
			old, err := client.SetWorkers(cmd.Context(), count)
			if err != nil {
				return fmt.Errorf("could not set workers: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Number of workers changed from %d to %d\n", old, count)
			return nil
		},
	}
	c.Flags().IntVar(&count, "count", 0, "number of workers")
	return c
}
