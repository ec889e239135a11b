package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rsswatch/adapter/bolt"
	"rsswatch/adapter/memory"
	"rsswatch/adapter/postgres"
	"rsswatch/adapter/redis"
	"rsswatch/adapter/rss"
	"rsswatch/app"
	"rsswatch/domain"
	"rsswatch/internal/config"
)

// openRepository opens the configured store and makes sure its schema exists.
func openRepository(ctx context.Context, cfg config.Config) (domain.FeedRepository, error) {
	var (
		repo domain.FeedRepository
		err  error
	)
	switch cfg.StoreDriver {
	case config.StoreBolt:
		repo, err = bolt.Open(cfg.BoltPath)
	case config.StoreMemory:
		repo = memory.New()
	default:
		repo, err = postgres.Open(ctx, cfg.PostgresURL())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repo.Ensure(ctx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("db ensure failed: %w", err)
	}
	return repo, nil
}

// newValidator wires the network probe and the Redis cache when they are
// enabled. The returned func releases the cache connection.
func newValidator(ctx context.Context, cfg config.Config, fetcher *rss.HTTPFetcher, log *zap.Logger) (*app.Validator, func()) {
	var prober domain.FeedProber
	if cfg.ValidateNetwork {
		prober = fetcher
	}
	v := app.NewValidator(prober, log)
	if cfg.RedisAddr == "" {
		return v, func() {}
	}

	client, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Warn("validation cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		return v, func() {}
	}
	v.WithCache(redis.NewValidationCache(client), cfg.ValidationCacheTTL)
	return v, func() { _ = client.Close() }
}

// newImporter wires an importer over repo with the configured fetcher.
func newImporter(ctx context.Context, cfg config.Config, repo domain.FeedRepository, log *zap.Logger) (*app.Importer, func()) {
	fetcher := rss.NewHTTPFetcher(cfg.FetchTimeout)
	validator, closeCache := newValidator(ctx, cfg, fetcher, log)
	return app.NewImporter(repo, fetcher, validator, cfg.RecencyWindow, log), closeCache
}
