package app

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"rsswatch/domain"
	"rsswatch/internal/metrics"
)

const (
	msgInvalidFormat   = "Invalid URL format. URL must start with http:// or https://"
	msgMalformed       = "Malformed URL"
	msgPatternMismatch = "URL doesn't match common RSS patterns but will be accepted"
	defaultFeedTitle   = "RSS Feed"
)

var (
	schemePattern = regexp.MustCompile(`(?i)^https?://.+`)
	feedHints     = []string{"feed", "rss", "xml", "atom"}
)

// ValidationCache stores validation results between runs.
type ValidationCache interface {
	Get(ctx context.Context, url string) (domain.ValidationResult, bool, error)
	Put(ctx context.Context, url string, res domain.ValidationResult, ttl time.Duration) error
}

// Validator checks that a URL looks like, and optionally serves, a feed.
type Validator struct {
	prober   domain.FeedProber
	cache    ValidationCache
	cacheTTL time.Duration
	log      *zap.Logger
}

// NewValidator builds a validator. A nil prober skips the network check.
func NewValidator(prober domain.FeedProber, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{prober: prober, log: log}
}

// WithCache caches accepted results for ttl. Rejections are not cached, so a
// feed that was briefly unreachable is probed again on the next call.
func (v *Validator) WithCache(c ValidationCache, ttl time.Duration) *Validator {
	v.cache = c
	v.cacheTTL = ttl
	return v
}

func (v *Validator) Validate(ctx context.Context, rawURL string) domain.ValidationResult {
	if v.cache != nil {
		res, ok, err := v.cache.Get(ctx, rawURL)
		if err != nil {
			v.log.Warn("validation cache read failed", zap.String("url", rawURL), zap.Error(err))
		} else if ok {
			metrics.Validations.WithLabelValues("cached").Inc()
			return res
		}
	}

	res := v.validate(ctx, rawURL)
	if res.IsValid {
		metrics.Validations.WithLabelValues("valid").Inc()
	} else {
		metrics.Validations.WithLabelValues("invalid").Inc()
	}

	if v.cache != nil && res.IsValid && ctx.Err() == nil {
		if err := v.cache.Put(ctx, rawURL, res, v.cacheTTL); err != nil {
			v.log.Warn("validation cache write failed", zap.String("url", rawURL), zap.Error(err))
		}
	}
	return res
}

func (v *Validator) validate(ctx context.Context, rawURL string) domain.ValidationResult {
	if !schemePattern.MatchString(rawURL) {
		return domain.ValidationResult{Error: msgInvalidFormat}
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return domain.ValidationResult{Error: msgMalformed}
	}

	res := domain.ValidationResult{IsValid: true}
	if v.prober != nil {
		probe, err := v.prober.Probe(ctx, rawURL)
		if err != nil {
			v.log.Debug("feed probe failed", zap.String("url", rawURL), zap.Error(err))
			return domain.ValidationResult{Error: "Failed to validate RSS feed: " + err.Error()}
		}
		res.Title = probe.Title
		if probe.Discovered {
			res.FeedURL = probe.FeedURL
		}
	}

	if !hasFeedHint(rawURL) {
		res.Error = msgPatternMismatch
	}
	if res.Title == "" {
		res.Title = TitleFromURL(rawURL)
	}
	return res
}

func hasFeedHint(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, hint := range feedHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// TitleFromURL derives a display title from the host and first path segment.
func TitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return defaultFeedTitle
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	first := segments[0]
	if first == "" || first == "feed" || first == "rss" {
		return host
	}
	first = strings.NewReplacer("-", " ", "_", " ").Replace(first)
	return host + " - " + first
}
