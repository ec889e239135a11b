package rss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"rsswatch/domain"
)

const (
	userAgent   = "rsswatch/1.0"
	maxFeedSize = 10 << 20
)

type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) (domain.FetchedFeed, error) {
	body, _, err := f.get(ctx, feedURL)
	if err != nil {
		return domain.FetchedFeed{}, err
	}
	parsed, err := parse(body)
	if err != nil {
		return domain.FetchedFeed{}, err
	}
	return toFetched(parsed), nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/html;q=0.8, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("bad response status: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func parse(body []byte) (*gofeed.Feed, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotFeed, err)
	}
	return parsed, nil
}

func toFetched(parsed *gofeed.Feed) domain.FetchedFeed {
	out := domain.FetchedFeed{
		Title:       strings.TrimSpace(parsed.Title),
		Description: strings.TrimSpace(parsed.Description),
		Items:       make([]domain.FetchedItem, 0, len(parsed.Items)),
	}
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}
		item := domain.FetchedItem{
			Title:       strings.TrimSpace(it.Title),
			Link:        strings.TrimSpace(it.Link),
			Description: it.Description,
		}
		if item.Link == "" && strings.HasPrefix(it.GUID, "http") {
			item.Link = it.GUID
		}
		if item.Description == "" {
			item.Description = it.Content
		}
		if it.Author != nil {
			item.Author = it.Author.Name
		} else if len(it.Authors) > 0 && it.Authors[0] != nil {
			item.Author = it.Authors[0].Name
		}
		// a zero PublishedAt means the feed gave no usable date
		switch {
		case it.PublishedParsed != nil:
			item.PublishedAt = *it.PublishedParsed
		case it.UpdatedParsed != nil:
			item.PublishedAt = *it.UpdatedParsed
		}
		out.Items = append(out.Items, item)
	}
	return out
}
