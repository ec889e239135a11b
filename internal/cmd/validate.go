package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rsswatch/adapter/rss"
)

func newValidateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate URL",
		Short: "Check a feed URL without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			validator, closeCache := newValidator(ctx, e.cfg, rss.NewHTTPFetcher(e.cfg.FetchTimeout), e.log)
			defer closeCache()

			res := validator.Validate(ctx, args[0])
			if !res.IsValid {
				fmt.Fprintf(out, "%s Invalid: %s\n", failMark(), res.Error)
				return fmt.Errorf("invalid feed URL")
			}
			fmt.Fprintf(out, "%s Valid\n   Title: %s\n", okMark(), res.Title)
			if res.FeedURL != "" {
				fmt.Fprintf(out, "   Feed URL: %s\n", res.FeedURL)
			}
			if res.Error != "" {
				fmt.Fprintf(out, "   Warning: %s\n", res.Error)
			}
			return nil
		},
	}
}
