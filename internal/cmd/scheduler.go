package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"rsswatch/cli/control"
	"rsswatch/domain"
	"rsswatch/internal/health"
)

func newStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the background scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := control.NewClient(e.cfg.ControlAddr).Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			state := red.Sprint("paused")
			if st.Running {
				state = green.Sprint("running")
			}
			if st.Refreshing {
				state += yellow.Sprint(" (refreshing)")
			}
			fmt.Fprintf(out, "Scheduler: %s\n", state)
			fmt.Fprintf(out, "Feeds:     %d\n", st.FeedCount)
			if st.Schedule != "" {
				fmt.Fprintf(out, "Schedule:  %s\n", st.Schedule)
			} else {
				fmt.Fprintf(out, "Interval:  %s\n", st.Interval)
			}
			fmt.Fprintf(out, "Workers:   %d\n", st.Workers)
			fmt.Fprintf(out, "Retries:   %d every %s\n", st.MaxRetries, st.RetryDelay)

			last := "never"
			if st.LastRefresh != nil {
				last = health.TimeAgo(*st.LastRefresh, time.Now())
			}
			fmt.Fprintf(out, "Last refresh: %s\n", last)
			fmt.Fprintf(out, "Next refresh: %s\n", st.TimeUntilRefresh)
			if st.NeedsRefresh {
				fmt.Fprintln(out, yellow.Sprint("A refresh is due"))
			}
			return nil
		},
	}
}

func newRefreshCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh all feeds now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := control.NewClient(e.cfg.ControlAddr).Refresh(cmd.Context())
			if errors.Is(err, domain.ErrRefreshInProgress) {
				fmt.Fprintln(cmd.OutOrStdout(), "A refresh is already in progress")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Refresh started")
			return nil
		},
	}
}

func newPauseCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Stop the refresh timer of the background process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := control.NewClient(e.cfg.ControlAddr).Stop(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Scheduler paused")
			return nil
		},
	}
}

func newResumeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Restart the refresh timer of the background process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := control.NewClient(e.cfg.ControlAddr).Start(cmd.Context())
			var apiErr *control.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
				fmt.Fprintln(cmd.OutOrStdout(), "Scheduler is already running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Scheduler resumed")
			return nil
		},
	}
}
