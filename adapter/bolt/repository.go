// Package bolt stores feeds and articles in a single bbolt file, for running
// without a Postgres server.
package bolt

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	bolt "go.etcd.io/bbolt"

	"rsswatch/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	bucketFeeds     = []byte("feeds")
	bucketFeedNames = []byte("feed_names")
	bucketArticles  = []byte("articles") // one nested bucket per feed id, keyed by link
)

type Repository struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the database file at path.
func Open(path string) (*Repository, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

func (r *Repository) Ensure(ctx context.Context) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketFeeds, bucketFeedNames, bucketArticles} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
}

func (r *Repository) AddFeed(ctx context.Context, f domain.Feed) (domain.Feed, error) {
	err := r.db.Update(func(tx *bolt.Tx) error {
		names := tx.Bucket(bucketFeedNames)
		if names.Get([]byte(f.Name)) != nil {
			return domain.ErrFeedExists
		}
		now := r.now()
		f.ID = uuid.NewString()
		f.CreatedAt, f.UpdatedAt = now, now
		if err := putFeed(tx, f); err != nil {
			return err
		}
		return names.Put([]byte(f.Name), []byte(f.ID))
	})
	if err != nil {
		return domain.Feed{}, err
	}
	return f, nil
}

func (r *Repository) UpdateFeed(ctx context.Context, f domain.Feed) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		old, err := getFeed(tx, f.ID)
		if err != nil {
			return err
		}
		names := tx.Bucket(bucketFeedNames)
		if old.Name != f.Name {
			if names.Get([]byte(f.Name)) != nil {
				return domain.ErrFeedExists
			}
			if err := names.Delete([]byte(old.Name)); err != nil {
				return err
			}
			if err := names.Put([]byte(f.Name), []byte(f.ID)); err != nil {
				return err
			}
		}
		f.CreatedAt = old.CreatedAt
		f.UpdatedAt = r.now()
		return putFeed(tx, f)
	})
}

func (r *Repository) DeleteFeed(ctx context.Context, name string) (int64, error) {
	var deleted int64
	err := r.db.Update(func(tx *bolt.Tx) error {
		names := tx.Bucket(bucketFeedNames)
		id := names.Get([]byte(name))
		if id == nil {
			return nil
		}
		id = append([]byte(nil), id...)
		if err := names.Delete([]byte(name)); err != nil {
			return err
		}
		if err := tx.Bucket(bucketFeeds).Delete(id); err != nil {
			return err
		}
		articles := tx.Bucket(bucketArticles)
		if articles.Bucket(id) != nil {
			if err := articles.DeleteBucket(id); err != nil {
				return err
			}
		}
		deleted = 1
		return nil
	})
	return deleted, err
}

func (r *Repository) ListFeeds(ctx context.Context, limit int) ([]domain.Feed, error) {
	var out []domain.Feed
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFeeds).ForEach(func(_, v []byte) error {
			var f domain.Feed
			if err := json.Unmarshal(v, &f); err != nil {
				return err
			}
			out = append(out, f)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) GetFeedByName(ctx context.Context, name string) (domain.Feed, error) {
	var f domain.Feed
	err := r.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketFeedNames).Get([]byte(name))
		if id == nil {
			return domain.ErrNotFound
		}
		var err error
		f, err = getFeed(tx, string(id))
		return err
	})
	return f, err
}

func (r *Repository) ListArticlesByFeed(ctx context.Context, feedID string, limit int) ([]domain.Article, error) {
	var out []domain.Article
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketArticles).Bucket([]byte(feedID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var a domain.Article
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}
			out = append(out, a)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) UpsertArticle(ctx context.Context, a domain.Article) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketFeeds).Get([]byte(a.FeedID)) == nil {
			return domain.ErrNotFound
		}
		b, err := tx.Bucket(bucketArticles).CreateBucketIfNotExists([]byte(a.FeedID))
		if err != nil {
			return err
		}
		now := r.now()
		if existing := b.Get([]byte(a.Link)); existing != nil {
			var old domain.Article
			if err := json.Unmarshal(existing, &old); err != nil {
				return err
			}
			a.ID, a.CreatedAt = old.ID, old.CreatedAt
		} else {
			a.ID, a.CreatedAt = uuid.NewString(), now
		}
		a.UpdatedAt = now
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		return b.Put([]byte(a.Link), data)
	})
}

func getFeed(tx *bolt.Tx, id string) (domain.Feed, error) {
	data := tx.Bucket(bucketFeeds).Get([]byte(id))
	if data == nil {
		return domain.Feed{}, domain.ErrNotFound
	}
	var f domain.Feed
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.Feed{}, fmt.Errorf("decode feed %s: %w", id, err)
	}
	return f, nil
}

func putFeed(tx *bolt.Tx, f domain.Feed) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketFeeds).Put([]byte(f.ID), data)
}
