package domain

import (
	"context"
	"time"
)

// FeedRepository is the persistence port for feeds and articles.
type FeedRepository interface {
	Ensure(ctx context.Context) error
	AddFeed(ctx context.Context, f Feed) (Feed, error)
	UpdateFeed(ctx context.Context, f Feed) error
	DeleteFeed(ctx context.Context, name string) (int64, error)
	ListFeeds(ctx context.Context, limit int) ([]Feed, error)
	GetFeedByName(ctx context.Context, name string) (Feed, error)
	ListArticlesByFeed(ctx context.Context, feedID string, limit int) ([]Article, error)
	UpsertArticle(ctx context.Context, a Article) error
	Close() error
}

// RSSFetcher fetches and parses RSS and Atom feeds.
type RSSFetcher interface {
	Fetch(ctx context.Context, feedURL string) (FetchedFeed, error)
}

// FeedProber checks over the network that a URL serves a feed.
type FeedProber interface {
	Probe(ctx context.Context, rawURL string) (ProbeResult, error)
}

// Scheduler exposes the scheduler controls used by the control plane.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
	TriggerRefresh(ctx context.Context) (<-chan struct{}, error)

	SetInterval(d time.Duration)
	Resize(workers int) error
	CurrentInterval() time.Duration
	CurrentWorkers() int
	NeedsRefresh() bool
	Status() SchedulerStatus
}
