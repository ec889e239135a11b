package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rsswatch/app"
	"rsswatch/domain"
)

func newAddCmd(e *env) *cobra.Command {
	var req domain.ImportRequest
	c := &cobra.Command{
		Use:   "add",
		Short: "Validate a feed and import its recent articles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(req.URL) == "" {
				return fmt.Errorf("--url is required")
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			repo, err := openRepository(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			importer, closeCache := newImporter(ctx, e.cfg, repo, e.log)
			defer closeCache()

			f, err := importer.ValidateAndImport(ctx, req)
			var invalid *app.InvalidFeedError
			switch {
			case errors.As(err, &invalid):
				return fmt.Errorf("feed rejected: %s", invalid.Reason)
			case errors.Is(err, domain.ErrFeedExists):
				return fmt.Errorf("feed %q already exists", f.Name)
			case err != nil:
				return fmt.Errorf("could not add feed: %w", err)
			}

			fmt.Fprintf(out, "Feed %q added successfully (%s)\n", f.Name, f.URL)
			fmt.Fprintf(out, "   Status: %s\n   %s\n", statusLabel(f.Health.Status), f.Health.Message)
			return nil
		},
	}
	c.Flags().StringVar(&req.URL, "url", "", "feed URL")
	c.Flags().StringVar(&req.Name, "name", "", "feed name (defaults to the title)")
	c.Flags().StringVar(&req.Title, "title", "", "feed title (defaults to the feed's own title)")
	c.Flags().StringVar(&req.Category, "category", "general", "feed category")
	c.Flags().StringSliceVar(&req.Tags, "tag", nil, "tag, may be repeated")
	return c
}
