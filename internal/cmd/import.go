package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rsswatch/app"
	"rsswatch/domain"
)

func newImportCmd(e *env) *cobra.Command {
	var category string
	var tags []string
	c := &cobra.Command{
		Use:   "import URL...",
		Short: "Validate and import several feeds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			repo, err := openRepository(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			importer, closeCache := newImporter(ctx, e.cfg, repo, e.log)
			defer closeCache()

			reqs := make([]domain.ImportRequest, 0, len(args))
			for _, u := range args {
				reqs = append(reqs, domain.ImportRequest{Category: category, URL: u, Tags: tags})
			}

			results := importer.BatchValidate(ctx, reqs, func(cur, total int, req domain.ImportRequest) {
				fmt.Fprintf(out, "[%d/%d] Validating %s\n", cur, total, req.URL)
			})
			sum := app.Summarize(results)

			fmt.Fprintf(out, "\nImported %d of %d feeds\n", sum.SuccessCount, sum.Total)
			for _, f := range sum.Successful {
				fmt.Fprintf(out, "  %s %s (%d articles)\n", okMark(), f.Name, f.ArticleCount)
			}
			for _, fail := range sum.Failed {
				fmt.Fprintf(out, "  %s %s: %s\n", failMark(), fail.Request.URL, fail.Error)
			}
			if sum.FailureCount > 0 {
				return fmt.Errorf("%d of %d feeds failed", sum.FailureCount, sum.Total)
			}
			return nil
		},
	}
	c.Flags().StringVar(&category, "category", "general", "category for every imported feed")
	c.Flags().StringSliceVar(&tags, "tag", nil, "tag for every imported feed, may be repeated")
	return c
}
