package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rsswatch/domain"
	"rsswatch/internal/health"
)

func newHealthCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize feed health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			repo, err := openRepository(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			feeds, err := repo.ListFeeds(ctx, 0)
			if err != nil {
				return fmt.Errorf("could not list feeds: %w", err)
			}
			now := time.Now()
			feeds = health.Monitor(feeds, now)
			st := health.Stats(feeds)

			fmt.Fprintf(out, "Feeds: %d (enabled %d, disabled %d)\n", st.Total, st.ActiveFeeds, st.InactiveFeeds)
			fmt.Fprintf(out, "  %s %d\n  %s %d\n  %s %d\n\n",
				statusLabel(domain.HealthActive), st.Active,
				statusLabel(domain.HealthWarning), st.Warning,
				statusLabel(domain.HealthError), st.Error,
			)
			for _, f := range feeds {
				last := "never"
				if !f.Health.LastSuccessfulFetch.IsZero() {
					last = health.TimeAgo(f.Health.LastSuccessfulFetch, now)
				}
				fmt.Fprintf(out, "%-24s %s\n   %s (last success: %s, errors: %d)\n",
					f.Name, statusText(f.Health.Status), f.Health.Message, last, f.Health.ErrorCount)
			}
			return nil
		},
	}
}
