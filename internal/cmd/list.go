package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rsswatch/internal/health"
)

func newListCmd(e *env) *cobra.Command {
	var num int
	c := &cobra.Command{
		Use:   "list",
		Short: "List feeds with their health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			repo, err := openRepository(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			feeds, err := repo.ListFeeds(ctx, num)
			if err != nil {
				return fmt.Errorf("could not list feeds: %w", err)
			}
			if len(feeds) == 0 {
				fmt.Fprintln(out, "No feeds available")
				return nil
			}

			now := time.Now()
			fmt.Fprint(out, "Available RSS Feeds\n\n")
			for i, f := range health.Monitor(feeds, now) {
				fmt.Fprintf(out, "%d. %s [%s]\n   URL: %s\n", i+1, f.Name, statusLabel(f.Health.Status), f.URL)
				if f.Category != "" || len(f.Tags) > 0 {
					fmt.Fprintf(out, "   Category: %s  Tags: %s\n", f.Category, strings.Join(f.Tags, ", "))
				}
				fmt.Fprintf(out, "   Articles: %d  Added: %s\n   %s\n\n",
					f.ArticleCount,
					f.CreatedAt.Format("2006-01-02 15:04"),
					f.Health.Message,
				)
			}
			return nil
		},
	}
	c.Flags().IntVar(&num, "num", 0, "limit number of feeds (0 = all)")
	return c
}
