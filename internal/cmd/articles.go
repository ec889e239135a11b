package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rsswatch/domain"
)

func newArticlesCmd(e *env) *cobra.Command {
	var feedName string
	var num int
	c := &cobra.Command{
		Use:   "articles",
		Short: "Show the latest articles of a feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(feedName) == "" {
				return fmt.Errorf("--feed-name is required")
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			repo, err := openRepository(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			feed, err := repo.GetFeedByName(ctx, feedName)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("feed %q not found", feedName)
			}
			if err != nil {
				return err
			}

			arts, err := repo.ListArticlesByFeed(ctx, feed.ID, num)
			if err != nil {
				return fmt.Errorf("could not fetch articles for %q: %w", feedName, err)
			}
			if len(arts) == 0 {
				fmt.Fprintf(out, "No articles found for feed %q\n", feedName)
				return nil
			}

			fmt.Fprintf(out, "Articles from feed: %s\n\n", feed.Name)
			for i, a := range arts {
				fmt.Fprintf(out, "%d. [%s] %s\n   %s\n\n",
					i+1,
					a.PublishedAt.Format("2006-01-02"),
					a.Title,
					a.Link,
				)
			}
			return nil
		},
	}
	c.Flags().StringVar(&feedName, "feed-name", "", "feed name")
	c.Flags().IntVar(&num, "num", 3, "number of articles")
	return c
}
