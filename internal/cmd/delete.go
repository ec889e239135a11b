package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDeleteCmd(e *env) *cobra.Command {
	var name string
	c := &cobra.Command{
		Use:   "delete",
		Short: "Delete a feed and its articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("--name is required")
			}
			ctx := cmd.Context()

			repo, err := openRepository(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			rows, err := repo.DeleteFeed(ctx, name)
			if err != nil {
				return fmt.Errorf("could not delete feed %q: %w", name, err)
			}
			if rows == 0 {
				return fmt.Errorf("feed %q not found", name)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Feed %q deleted successfully\n", name)
			return nil
		},
	}
	c.Flags().StringVar(&name, "name", "", "feed name")
	return c
}
