package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsswatch/domain"
)

type fakeProber struct {
	result domain.ProbeResult
	err    error
	calls  int
}

func (p *fakeProber) Probe(ctx context.Context, rawURL string) (domain.ProbeResult, error) {
	p.calls++
	if p.err != nil {
		return domain.ProbeResult{}, p.err
	}
	res := p.result
	if res.FeedURL == "" {
		res.FeedURL = rawURL
	}
	return res, nil
}

type mapCache struct {
	items   map[string]domain.ValidationResult
	getErr  error
	lastTTL time.Duration
}

func (c *mapCache) Get(ctx context.Context, url string) (domain.ValidationResult, bool, error) {
	if c.getErr != nil {
		return domain.ValidationResult{}, false, c.getErr
	}
	res, ok := c.items[url]
	return res, ok, nil
}

func (c *mapCache) Put(ctx context.Context, url string, res domain.ValidationResult, ttl time.Duration) error {
	c.items[url] = res
	c.lastTTL = ttl
	return nil
}

func TestValidatePatternOnly(t *testing.T) {
	v := NewValidator(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		url     string
		valid   bool
		message string
		title   string
	}{
		{"no scheme", "example.com/feed", false, msgInvalidFormat, ""},
		{"ftp scheme", "ftp://example.com/rss", false, msgInvalidFormat, ""},
		{"scheme only", "https://", false, msgInvalidFormat, ""},
		{"no host", "http:///feed.xml", false, msgMalformed, ""},
		{"feed path", "https://www.example.com/feed", true, "", "example.com"},
		{"upper scheme", "HTTPS://blog.example.com/rss.xml", true, "", "blog.example.com - rss.xml"},
		{"no hint", "https://example.com/security-news", true, msgPatternMismatch, "example.com - security news"},
		{"bare host", "https://example.com", true, msgPatternMismatch, "example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(ctx, tt.url)
			assert.Equal(t, tt.valid, res.IsValid)
			assert.Equal(t, tt.message, res.Error)
			assert.Equal(t, tt.title, res.Title)
		})
	}
}

func TestValidateWithProbe(t *testing.T) {
	ctx := context.Background()

	t.Run("probe title wins", func(t *testing.T) {
		p := &fakeProber{result: domain.ProbeResult{Title: "Krebs on Security", ItemCount: 10}}
		res := NewValidator(p, nil).Validate(ctx, "https://krebsonsecurity.com/feed/")
		require.True(t, res.IsValid)
		assert.Equal(t, "Krebs on Security", res.Title)
		assert.Empty(t, res.FeedURL)
	})

	t.Run("discovered url", func(t *testing.T) {
		p := &fakeProber{result: domain.ProbeResult{FeedURL: "https://example.com/atom.xml", Discovered: true}}
		res := NewValidator(p, nil).Validate(ctx, "https://example.com/blog")
		require.True(t, res.IsValid)
		assert.Equal(t, "https://example.com/atom.xml", res.FeedURL)
		assert.Equal(t, msgPatternMismatch, res.Error)
		assert.Equal(t, "example.com - blog", res.Title)
	})

	t.Run("probe failure", func(t *testing.T) {
		p := &fakeProber{err: errors.New("bad response status: 404 Not Found")}
		res := NewValidator(p, nil).Validate(ctx, "https://example.com/feed.xml")
		assert.False(t, res.IsValid)
		assert.Equal(t, "Failed to validate RSS feed: bad response status: 404 Not Found", res.Error)
	})

	t.Run("format errors skip the network", func(t *testing.T) {
		p := &fakeProber{}
		res := NewValidator(p, nil).Validate(ctx, "not a url")
		assert.False(t, res.IsValid)
		assert.Zero(t, p.calls)
	})
}

func TestValidateUsesCache(t *testing.T) {
	ctx := context.Background()
	p := &fakeProber{result: domain.ProbeResult{Title: "Cached"}}
	cache := &mapCache{items: map[string]domain.ValidationResult{}}
	v := NewValidator(p, nil).WithCache(cache, time.Hour)

	first := v.Validate(ctx, "https://example.com/rss")
	second := v.Validate(ctx, "https://example.com/rss")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, time.Hour, cache.lastTTL)

	cache.getErr = errors.New("connection refused")
	third := v.Validate(ctx, "https://example.com/rss")
	assert.True(t, third.IsValid)
	assert.Equal(t, 2, p.calls)
}

func TestValidateDoesNotCacheRejections(t *testing.T) {
	ctx := context.Background()
	p := &fakeProber{err: errors.New("dial tcp: connection refused")}
	cache := &mapCache{items: map[string]domain.ValidationResult{}}
	v := NewValidator(p, nil).WithCache(cache, time.Hour)

	first := v.Validate(ctx, "https://example.com/rss")
	assert.False(t, first.IsValid)
	assert.Empty(t, cache.items)

	p.err = nil
	second := v.Validate(ctx, "https://example.com/rss")
	assert.True(t, second.IsValid)
	assert.Equal(t, 2, p.calls)
	assert.Contains(t, cache.items, "https://example.com/rss")

	assert.False(t, v.Validate(ctx, "ftp://example.com/rss").IsValid)
	assert.NotContains(t, cache.items, "ftp://example.com/rss")
}

func TestTitleFromURL(t *testing.T) {
	assert.Equal(t, "example.com", TitleFromURL("https://www.example.com/rss/all"))
	assert.Equal(t, "example.com - dev blog", TitleFromURL("https://example.com/dev_blog/feed"))
	assert.Equal(t, defaultFeedTitle, TitleFromURL("::"))
}
