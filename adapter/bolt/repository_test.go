package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsswatch/domain"
)

func openTestRepo(t *testing.T) (*Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rsswatch.db")
	repo, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.Ensure(context.Background()))
	return repo, path
}

func TestFeedsPersistAcrossReopen(t *testing.T) {
	ctx := context.Background()
	repo, path := openTestRepo(t)

	last := time.Date(2024, 5, 9, 8, 0, 0, 0, time.UTC)
	added, err := repo.AddFeed(ctx, domain.Feed{
		Name:     "nvd",
		URL:      "https://nvd.nist.gov/feeds/xml/cve/misc/nvd-rss.xml",
		Category: "security",
		Tags:     []string{"cve"},
		IsActive: true,
		Health:   domain.Health{IsValid: true, Status: domain.HealthActive, LastSuccessfulFetch: last},
	})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertArticle(ctx, domain.Article{FeedID: added.ID, Link: "https://nvd/1", Title: "one", PublishedAt: last}))
	require.NoError(t, repo.Close())

	repo, err = Open(path)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Ensure(ctx))

	got, err := repo.GetFeedByName(ctx, "nvd")
	require.NoError(t, err)
	assert.Equal(t, added.ID, got.ID)
	assert.Equal(t, []string{"cve"}, got.Tags)
	assert.True(t, got.Health.LastSuccessfulFetch.Equal(last))

	arts, err := repo.ListArticlesByFeed(ctx, added.ID, 0)
	require.NoError(t, err)
	require.Len(t, arts, 1)
	assert.Equal(t, "one", arts[0].Title)
}

func TestDuplicateNamesAndDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := openTestRepo(t)
	defer repo.Close()

	f, err := repo.AddFeed(ctx, domain.Feed{Name: "dup"})
	require.NoError(t, err)
	_, err = repo.AddFeed(ctx, domain.Feed{Name: "dup"})
	assert.ErrorIs(t, err, domain.ErrFeedExists)

	require.NoError(t, repo.UpsertArticle(ctx, domain.Article{FeedID: f.ID, Link: "l"}))

	n, err := repo.DeleteFeed(ctx, "dup")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repo.GetFeedByName(ctx, "dup")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	arts, err := repo.ListArticlesByFeed(ctx, f.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, arts)
}

func TestUpdateFeedRename(t *testing.T) {
	ctx := context.Background()
	repo, _ := openTestRepo(t)
	defer repo.Close()

	a, err := repo.AddFeed(ctx, domain.Feed{Name: "a"})
	require.NoError(t, err)
	_, err = repo.AddFeed(ctx, domain.Feed{Name: "b"})
	require.NoError(t, err)

	a.Name = "b"
	assert.ErrorIs(t, repo.UpdateFeed(ctx, a), domain.ErrFeedExists)

	a.Name = "renamed"
	a.ArticleCount = 9
	require.NoError(t, repo.UpdateFeed(ctx, a))

	got, err := repo.GetFeedByName(ctx, "renamed")
	require.NoError(t, err)
	assert.Equal(t, 9, got.ArticleCount)
	_, err = repo.GetFeedByName(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, repo.UpdateFeed(ctx, domain.Feed{ID: "nope", Name: "x"}), domain.ErrNotFound)
}

func TestArticleUpsertKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	repo, _ := openTestRepo(t)
	defer repo.Close()

	f, err := repo.AddFeed(ctx, domain.Feed{Name: "f"})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertArticle(ctx, domain.Article{FeedID: f.ID, Link: "l", Title: "v1"}))
	first, err := repo.ListArticlesByFeed(ctx, f.ID, 0)
	require.NoError(t, err)

	require.NoError(t, repo.UpsertArticle(ctx, domain.Article{FeedID: f.ID, Link: "l", Title: "v2"}))
	second, err := repo.ListArticlesByFeed(ctx, f.ID, 0)
	require.NoError(t, err)

	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "v2", second[0].Title)
	assert.ErrorIs(t, repo.UpsertArticle(ctx, domain.Article{FeedID: "ghost", Link: "l"}), domain.ErrNotFound)
}
