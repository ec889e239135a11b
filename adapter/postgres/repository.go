package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rsswatch/domain"
)

const uniqueViolation = "23505"

type Repository struct{ db *sql.DB }

func New(db *sql.DB) *Repository { return &Repository{db: db} }

// Open connects with lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	dbConn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	dbConn.SetMaxOpenConns(10)
	dbConn.SetMaxIdleConns(10)
	dbConn.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(pingCtx); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(dbConn), nil
}

func (r *Repository) Close() error { return r.db.Close() }

func (r *Repository) Ensure(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE EXTENSION IF NOT EXISTS pgcrypto;
CREATE TABLE IF NOT EXISTS feeds (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    name TEXT UNIQUE NOT NULL,
    url TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    tags TEXT[] NOT NULL DEFAULT '{}',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    article_count INTEGER NOT NULL DEFAULT 0,
    last_updated TIMESTAMPTZ,
    health_valid BOOLEAN NOT NULL DEFAULT FALSE,
    health_status TEXT NOT NULL DEFAULT 'error',
    last_fetch TIMESTAMPTZ,
    last_successful_fetch TIMESTAMPTZ,
    error_count INTEGER NOT NULL DEFAULT 0,
    health_message TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS articles (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    title TEXT NOT NULL,
    link TEXT NOT NULL,
    published_at TIMESTAMPTZ NOT NULL,
    description TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    feed_id UUID NOT NULL REFERENCES feeds(id) ON DELETE CASCADE,
    UNIQUE (feed_id, link)
);
CREATE INDEX IF NOT EXISTS articles_feed_published_idx ON articles (feed_id, published_at DESC);
`)
	return err
}

const feedColumns = `id, created_at, updated_at, name, url, title, category, description, tags, is_active,
article_count, last_updated, health_valid, health_status, last_fetch, last_successful_fetch, error_count, health_message`

func (r *Repository) AddFeed(ctx context.Context, f domain.Feed) (domain.Feed, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO feeds (name, url, title, category, description, tags, is_active, article_count, last_updated,
    health_valid, health_status, last_fetch, last_successful_fetch, error_count, health_message)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING `+feedColumns,
		f.Name, f.URL, f.Title, f.Category, f.Description, pq.Array(nonNil(f.Tags)), f.IsActive, f.ArticleCount, nullTime(f.LastUpdated),
		f.Health.IsValid, string(f.Health.Status), nullTime(f.Health.LastFetch), nullTime(f.Health.LastSuccessfulFetch), f.Health.ErrorCount, f.Health.Message,
	)
	out, err := scanFeed(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.Feed{}, domain.ErrFeedExists
		}
		return domain.Feed{}, err
	}
	return out, nil
}

func (r *Repository) UpdateFeed(ctx context.Context, f domain.Feed) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE feeds SET updated_at = now(), name = $2, url = $3, title = $4, category = $5, description = $6, tags = $7,
    is_active = $8, article_count = $9, last_updated = $10, health_valid = $11, health_status = $12,
    last_fetch = $13, last_successful_fetch = $14, error_count = $15, health_message = $16
WHERE id = $1`,
		f.ID, f.Name, f.URL, f.Title, f.Category, f.Description, pq.Array(nonNil(f.Tags)),
		f.IsActive, f.ArticleCount, nullTime(f.LastUpdated), f.Health.IsValid, string(f.Health.Status),
		nullTime(f.Health.LastFetch), nullTime(f.Health.LastSuccessfulFetch), f.Health.ErrorCount, f.Health.Message,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrFeedExists
		}
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteFeed(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE name = $1`, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) ListFeeds(ctx context.Context, limit int) ([]domain.Feed, error) {
	q := `SELECT ` + feedColumns + ` FROM feeds ORDER BY created_at DESC`
	if limit > 0 {
		q += ` LIMIT $1`
		return scanFeeds(r.db.QueryContext(ctx, q, limit))
	}
	return scanFeeds(r.db.QueryContext(ctx, q))
}

func (r *Repository) GetFeedByName(ctx context.Context, name string) (domain.Feed, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+feedColumns+` FROM feeds WHERE name = $1`, name)
	f, err := scanFeed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Feed{}, domain.ErrNotFound
	}
	return f, err
}

func (r *Repository) ListArticlesByFeed(ctx context.Context, feedID string, limit int) ([]domain.Article, error) {
	q := `SELECT id, created_at, updated_at, title, link, published_at, description, author, feed_id FROM articles WHERE feed_id = $1 ORDER BY published_at DESC, created_at DESC`
	if limit > 0 {
		q += ` LIMIT $2`
		return scanArticles(r.db.QueryContext(ctx, q, feedID, limit))
	}
	return scanArticles(r.db.QueryContext(ctx, q, feedID))
}

func (r *Repository) UpsertArticle(ctx context.Context, a domain.Article) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO articles (title, link, published_at, description, author, feed_id) VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (feed_id, link) DO UPDATE SET title = EXCLUDED.title, description = EXCLUDED.description,
    author = EXCLUDED.author, published_at = EXCLUDED.published_at, updated_at = now()`,
		a.Title, a.Link, a.PublishedAt, a.Description, a.Author, a.FeedID)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeed(s scanner) (domain.Feed, error) {
	var f domain.Feed
	var status string
	var lastUpdated, lastFetch, lastSuccessful sql.NullTime
	err := s.Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt, &f.Name, &f.URL, &f.Title, &f.Category, &f.Description,
		pq.Array(&f.Tags), &f.IsActive, &f.ArticleCount, &lastUpdated, &f.Health.IsValid, &status,
		&lastFetch, &lastSuccessful, &f.Health.ErrorCount, &f.Health.Message)
	if err != nil {
		return domain.Feed{}, err
	}
	f.Health.Status = domain.HealthStatus(status)
	f.LastUpdated = lastUpdated.Time
	f.Health.LastFetch = lastFetch.Time
	f.Health.LastSuccessfulFetch = lastSuccessful.Time
	return f, nil
}

func scanFeeds(rows *sql.Rows, err error) ([]domain.Feed, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanArticles(rows *sql.Rows, err error) ([]domain.Article, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt, &a.Title, &a.Link, &a.PublishedAt, &a.Description, &a.Author, &a.FeedID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
