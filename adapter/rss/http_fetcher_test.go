package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsswatch/domain"
)

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Security Advisories</title>
    <link>https://example.com</link>
    <description>Latest advisories</description>
    <item>
      <title>CVE-2024-0001</title>
      <link>https://example.com/cve-2024-0001</link>
      <description>Remote code execution</description>
      <pubDate>Mon, 06 May 2024 10:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Undated</title>
      <guid>https://example.com/undated</guid>
    </item>
  </channel>
</rss>`

const atomDoc = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Dev Blog</title>
  <updated>2024-05-07T08:00:00Z</updated>
  <entry>
    <title>Release notes</title>
    <link href="https://blog.example.com/release"/>
    <updated>2024-05-07T08:00:00Z</updated>
    <author><name>Ada</name></author>
    <summary>What changed</summary>
  </entry>
</feed>`

func serve(contentType, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetchRSS(t *testing.T) {
	srv := serve("application/rss+xml", rssDoc)
	defer srv.Close()

	got, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Security Advisories", got.Title)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "CVE-2024-0001", got.Items[0].Title)
	assert.Equal(t, "https://example.com/cve-2024-0001", got.Items[0].Link)
	assert.True(t, got.Items[0].PublishedAt.Equal(time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "https://example.com/undated", got.Items[1].Link, "guid is used when link is missing")
	assert.True(t, got.Items[1].PublishedAt.IsZero())
}

func TestFetchAtom(t *testing.T) {
	srv := serve("application/atom+xml", atomDoc)
	defer srv.Close()

	got, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Dev Blog", got.Title)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "https://blog.example.com/release", got.Items[0].Link)
	assert.Equal(t, "Ada", got.Items[0].Author)
	assert.False(t, got.Items[0].PublishedAt.IsZero(), "updated date is used when published is missing")
}

func TestFetchErrors(t *testing.T) {
	t.Run("bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), srv.URL)
		assert.ErrorContains(t, err, "503")
	})

	t.Run("not a feed", func(t *testing.T) {
		srv := serve("text/plain", "hello")
		defer srv.Close()

		_, err := NewHTTPFetcher(time.Second).Fetch(context.Background(), srv.URL)
		assert.ErrorIs(t, err, domain.ErrNotFeed)
	})
}

func TestProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssDoc))
	})
	mux.HandleFunc("/blog", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!DOCTYPE html><html><head>
<link rel="stylesheet" href="/style.css">
<link rel="alternate" type="application/rss+xml" title="RSS" href="/feed.xml">
</head><body>blog</body></html>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>No feed</title></head></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(time.Second)

	t.Run("direct feed", func(t *testing.T) {
		res, err := f.Probe(context.Background(), srv.URL+"/feed.xml")
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/feed.xml", res.FeedURL)
		assert.Equal(t, "Security Advisories", res.Title)
		assert.Equal(t, 2, res.ItemCount)
		assert.False(t, res.Discovered)
	})

	t.Run("html with alternate link", func(t *testing.T) {
		res, err := f.Probe(context.Background(), srv.URL+"/blog")
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/feed.xml", res.FeedURL)
		assert.True(t, res.Discovered)
	})

	t.Run("html without feed", func(t *testing.T) {
		_, err := f.Probe(context.Background(), srv.URL+"/plain")
		assert.ErrorIs(t, err, domain.ErrNotFeed)
	})
}

func TestDiscoverFeedURLResolvesRelative(t *testing.T) {
	page := []byte(`<html><head><link rel="alternate" type="application/atom+xml" href="atom.xml"></head></html>`)

	got, err := DiscoverFeedURL(page, "https://example.com/blog/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/blog/atom.xml", got)
}
