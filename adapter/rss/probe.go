package rss

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"rsswatch/domain"
)

var feedLinkTypes = map[string]bool{
	"application/rss+xml":   true,
	"application/atom+xml":  true,
	"application/feed+json": true,
}

// Probe checks that rawURL serves a feed. An HTML page is accepted when it
// advertises a feed through <link rel="alternate">; the advertised feed is
// then probed instead and reported as FeedURL.
func (f *HTTPFetcher) Probe(ctx context.Context, rawURL string) (domain.ProbeResult, error) {
	body, contentType, err := f.get(ctx, rawURL)
	if err != nil {
		return domain.ProbeResult{}, err
	}

	if !looksLikeHTML(contentType, body) {
		parsed, err := parse(body)
		if err != nil {
			return domain.ProbeResult{}, err
		}
		return domain.ProbeResult{FeedURL: rawURL, Title: strings.TrimSpace(parsed.Title), ItemCount: len(parsed.Items)}, nil
	}

	discovered, err := DiscoverFeedURL(body, rawURL)
	if err != nil {
		return domain.ProbeResult{}, err
	}
	body, _, err = f.get(ctx, discovered)
	if err != nil {
		return domain.ProbeResult{}, fmt.Errorf("discovered feed %s: %w", discovered, err)
	}
	parsed, err := parse(body)
	if err != nil {
		return domain.ProbeResult{}, fmt.Errorf("discovered feed %s: %w", discovered, err)
	}
	return domain.ProbeResult{
		FeedURL:    discovered,
		Title:      strings.TrimSpace(parsed.Title),
		ItemCount:  len(parsed.Items),
		Discovered: true,
	}, nil
}

// DiscoverFeedURL returns the first feed advertised by an HTML page, resolved
// against pageURL.
func DiscoverFeedURL(page []byte, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var found string
	doc.Find(`link[rel~="alternate"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		href, ok := s.Attr("href")
		if !ok || !feedLinkTypes[strings.ToLower(strings.TrimSpace(typ))] {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		found = base.ResolveReference(ref).String()
		return false
	})
	if found == "" {
		return "", fmt.Errorf("%w: html page does not link to a feed", domain.ErrNotFeed)
	}
	return found, nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body[:min(len(body), 512)]))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}
