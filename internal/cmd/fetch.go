package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rsswatch/app"
	"rsswatch/cli/control"
	"rsswatch/domain"
)

func newFetchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Run the background process that keeps feeds fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, e)
		},
	}
}

func runFetch(cmd *cobra.Command, e *env) error {
	cfg, log := e.cfg, e.log
	out := cmd.OutOrStdout()

	listener, err := control.TryListen(cfg.ControlAddr)
	if err != nil {
		if errors.Is(err, control.ErrAlreadyRunning) {
			fmt.Fprintln(out, "Background process is already running")
			return err
		}
		return fmt.Errorf("failed to start control server: %w", err)
	}
	defer listener.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	importer, closeCache := newImporter(ctx, cfg, repo, log)
	defer closeCache()

	sched, err := app.NewScheduler(repo, importer, domain.SchedulerConfig{
		Interval:   cfg.DefaultInterval,
		Schedule:   cfg.Schedule,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Workers:    cfg.DefaultWorkers,
	}, app.Hooks{
		OnFeedRefreshed: func(feedID string, ok bool, f *domain.Feed) {
			if ok {
				log.Info("feed refreshed", zap.String("feed", f.Name), zap.Int("articles", f.ArticleCount))
				return
			}
			log.Warn("feed refresh gave up", zap.String("feed_id", feedID))
		},
		OnSchedulerStatus: func(running bool) {
			log.Info("scheduler status changed", zap.Bool("running", running))
		},
	}, log)
	if err != nil {
		return err
	}

	if feeds, err := repo.ListFeeds(ctx, 0); err == nil {
		sched.UpdateFeeds(activeOnly(feeds))
	}

	ctrl := control.NewServer(ctx, sched, log)
	srv := &http.Server{Handler: ctrl, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("control server error", zap.Error(err))
		}
	}()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	cur := sched.Config()
	if cur.Schedule != "" {
		fmt.Fprintf(out, "The background process for fetching feeds has started (schedule = %q, workers = %d)\n", cur.Schedule, cur.Workers)
	} else {
		fmt.Fprintf(out, "The background process for fetching feeds has started (interval = %s, workers = %d)\n", cur.Interval, cur.Workers)
	}

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("control server shutdown", zap.Error(err))
	}
	ctrl.Wait()

	if err := sched.Stop(); err != nil {
		fmt.Fprintf(out, "Error during shutdown: %v\n", err)
		return err
	}
	fmt.Fprintln(out, "Graceful shutdown: scheduler stopped")
	return nil
}

func activeOnly(feeds []domain.Feed) []domain.Feed {
	out := feeds[:0:0]
	for _, f := range feeds {
		if f.IsActive {
			out = append(out, f)
		}
	}
	return out
}
