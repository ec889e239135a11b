// Package memory is a process-local FeedRepository. Nothing survives a
// restart; it backs tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"rsswatch/domain"
)

type Repository struct {
	mu       sync.RWMutex
	feeds    map[string]domain.Feed
	byName   map[string]string
	articles map[string]map[string]domain.Article // feed id -> link -> article
	now      func() time.Time
}

func New() *Repository {
	return &Repository{
		feeds:    map[string]domain.Feed{},
		byName:   map[string]string{},
		articles: map[string]map[string]domain.Article{},
		now:      time.Now,
	}
}

func (r *Repository) Ensure(ctx context.Context) error { return nil }

func (r *Repository) Close() error { return nil }

func (r *Repository) AddFeed(ctx context.Context, f domain.Feed) (domain.Feed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[f.Name]; ok {
		return domain.Feed{}, domain.ErrFeedExists
	}
	now := r.now()
	f.ID = uuid.NewString()
	f.CreatedAt, f.UpdatedAt = now, now
	f.Tags = append([]string(nil), f.Tags...)
	r.feeds[f.ID] = f
	r.byName[f.Name] = f.ID
	return f, nil
}

func (r *Repository) UpdateFeed(ctx context.Context, f domain.Feed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.feeds[f.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if old.Name != f.Name {
		if _, taken := r.byName[f.Name]; taken {
			return domain.ErrFeedExists
		}
		delete(r.byName, old.Name)
		r.byName[f.Name] = f.ID
	}
	f.CreatedAt = old.CreatedAt
	f.UpdatedAt = r.now()
	f.Tags = append([]string(nil), f.Tags...)
	r.feeds[f.ID] = f
	return nil
}

func (r *Repository) DeleteFeed(ctx context.Context, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[name]
	if !ok {
		return 0, nil
	}
	delete(r.byName, name)
	delete(r.feeds, id)
	delete(r.articles, id)
	return 1, nil
}

func (r *Repository) ListFeeds(ctx context.Context, limit int) ([]domain.Feed, error) {
	r.mu.RLock()
	out := make([]domain.Feed, 0, len(r.feeds))
	for _, f := range r.feeds {
		out = append(out, f)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) GetFeedByName(ctx context.Context, name string) (domain.Feed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return domain.Feed{}, domain.ErrNotFound
	}
	return r.feeds[id], nil
}

func (r *Repository) ListArticlesByFeed(ctx context.Context, feedID string, limit int) ([]domain.Article, error) {
	r.mu.RLock()
	out := make([]domain.Article, 0, len(r.articles[feedID]))
	for _, a := range r.articles[feedID] {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sortArticles(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) UpsertArticle(ctx context.Context, a domain.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.feeds[a.FeedID]; !ok {
		return domain.ErrNotFound
	}
	byLink := r.articles[a.FeedID]
	if byLink == nil {
		byLink = map[string]domain.Article{}
		r.articles[a.FeedID] = byLink
	}
	now := r.now()
	if old, ok := byLink[a.Link]; ok {
		a.ID, a.CreatedAt = old.ID, old.CreatedAt
	} else {
		a.ID, a.CreatedAt = uuid.NewString(), now
	}
	a.UpdatedAt = now
	byLink[a.Link] = a
	return nil
}

// sortArticles orders newest first, matching the SQL store.
func sortArticles(items []domain.Article) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].PublishedAt.Equal(items[j].PublishedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}
