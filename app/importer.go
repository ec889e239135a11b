package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rsswatch/domain"
	"rsswatch/internal/metrics"
)

const (
	DefaultRecencyWindow = 7 * 24 * time.Hour

	defaultNewFeedTitle = "New RSS Feed"
	msgImported         = "Feed validated and imported successfully"

	// invalidLastSuccessAge backdates rejected feeds so they read as error.
	invalidLastSuccessAge = 25 * time.Hour
)

// InvalidFeedError reports a URL rejected by validation. It matches
// domain.ErrInvalidFeed.
type InvalidFeedError struct {
	Reason string
}

func (e *InvalidFeedError) Error() string { return domain.ErrInvalidFeed.Error() + ": " + e.Reason }

func (e *InvalidFeedError) Is(target error) bool { return target == domain.ErrInvalidFeed }

// Importer validates feeds and loads their recent articles into the store.
type Importer struct {
	repo      domain.FeedRepository
	fetcher   domain.RSSFetcher
	validator *Validator
	window    time.Duration
	pace      *rate.Limiter
	log       *zap.Logger
	now       func() time.Time
}

func NewImporter(repo domain.FeedRepository, fetcher domain.RSSFetcher, validator *Validator, window time.Duration, log *zap.Logger) *Importer {
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{
		repo:      repo,
		fetcher:   fetcher,
		validator: validator,
		window:    window,
		pace:      rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		log:       log,
		now:       time.Now,
	}
}

// Import fetches f and stores the items inside the recency window. The
// returned feed carries the updated health record on success and failure.
func (im *Importer) Import(ctx context.Context, f domain.Feed) (domain.Feed, error) {
	now := im.now()
	metrics.FetchAttempts.Inc()

	fetched, err := im.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		f.Health.LastFetch = now
		f.Health.Status = domain.HealthError
		f.Health.Message = "Failed to import RSS data: " + err.Error()
		f.Health.ErrorCount++
		return f, fmt.Errorf("import %s: %w", f.URL, err)
	}

	cutoff := now.Add(-im.window)
	kept := 0
	for _, it := range fetched.Items {
		published := it.PublishedAt
		if published.IsZero() {
			published = now
		}
		if published.Before(cutoff) {
			continue
		}
		if it.Link == "" {
			continue
		}
		if err := im.repo.UpsertArticle(ctx, domain.Article{
			Title:       it.Title,
			Link:        it.Link,
			Description: it.Description,
			Author:      it.Author,
			PublishedAt: published,
			FeedID:      f.ID,
		}); err != nil {
			im.log.Warn("failed to store article", zap.String("feed", f.Name), zap.String("link", it.Link), zap.Error(err))
			continue
		}
		kept++
	}
	metrics.ArticlesImported.Add(float64(kept))

	if f.Title == "" {
		f.Title = fetched.Title
	}
	if f.Title == "" {
		f.Title = defaultFeedTitle
	}
	if f.Description == "" {
		f.Description = fetched.Description
	}
	f.ArticleCount = kept
	f.LastUpdated = now
	f.Health = domain.Health{
		IsValid:             true,
		Status:              domain.HealthActive,
		LastFetch:           now,
		LastSuccessfulFetch: now,
		ErrorCount:          f.Health.ErrorCount,
		Message:             fmt.Sprintf("Successfully imported %d articles from last %d days", kept, windowDays(im.window)),
	}
	return f, nil
}

// ValidateAndImport validates req, stores the feed and runs a first import.
// An invalid request yields an unsaved error record and ErrInvalidFeed. A
// failed first import leaves the stored feed in its error state and is not
// reported as an error.
func (im *Importer) ValidateAndImport(ctx context.Context, req domain.ImportRequest) (domain.Feed, error) {
	now := im.now()
	res := im.validator.Validate(ctx, req.URL)
	if !res.IsValid {
		title := req.Title
		if title == "" {
			title = defaultNewFeedTitle
		}
		return domain.Feed{
			Name:     firstNonEmpty(req.Name, title),
			Title:    title,
			URL:      req.URL,
			Category: req.Category,
			Tags:     req.Tags,
			IsActive: true,
			Health: domain.Health{
				IsValid:             false,
				Status:              domain.HealthError,
				LastFetch:           now,
				LastSuccessfulFetch: now.Add(-invalidLastSuccessAge),
				ErrorCount:          1,
				Message:             res.Error,
			},
		}, &InvalidFeedError{Reason: res.Error}
	}

	title := firstNonEmpty(req.Title, res.Title, defaultNewFeedTitle)
	feedURL := firstNonEmpty(res.FeedURL, req.URL)
	f := domain.Feed{
		Name:     firstNonEmpty(req.Name, title),
		Title:    title,
		URL:      feedURL,
		Category: req.Category,
		Tags:     req.Tags,
		IsActive: true,
		Health: domain.Health{
			IsValid:             true,
			Status:              domain.HealthActive,
			LastFetch:           now,
			LastSuccessfulFetch: now,
			Message:             firstNonEmpty(res.Error, msgImported),
		},
	}

	saved, err := im.repo.AddFeed(ctx, f)
	if err != nil {
		return f, fmt.Errorf("save feed %q: %w", f.Name, err)
	}

	imported, err := im.Import(ctx, saved)
	if err != nil {
		im.log.Warn("initial import failed", zap.String("feed", saved.Name), zap.Error(err))
	}
	if err := im.repo.UpdateFeed(ctx, imported); err != nil {
		return imported, fmt.Errorf("update feed %q: %w", imported.Name, err)
	}
	return imported, nil
}

// BatchResult is the outcome of one request in a batch.
type BatchResult struct {
	Request domain.ImportRequest
	Feed    domain.Feed
	Err     error
}

// FailedImport pairs a rejected request with its reason.
type FailedImport struct {
	Request domain.ImportRequest
	Error   string
}

// BulkImportResult summarizes a batch.
type BulkImportResult struct {
	Successful   []domain.Feed
	Failed       []FailedImport
	Total        int
	SuccessCount int
	FailureCount int
}

// BatchValidate runs ValidateAndImport on each request in order, paced by
// the importer's rate limiter. progress may be nil.
func (im *Importer) BatchValidate(ctx context.Context, reqs []domain.ImportRequest, progress func(current, total int, req domain.ImportRequest)) []BatchResult {
	results := make([]BatchResult, 0, len(reqs))
	for i, req := range reqs {
		if progress != nil {
			progress(i+1, len(reqs), req)
		}
		if err := im.pace.Wait(ctx); err != nil {
			results = append(results, failedResult(req, err, im.now()))
			continue
		}

		f, err := im.ValidateAndImport(ctx, req)
		if err != nil {
			im.log.Info("feed rejected", zap.String("url", req.URL), zap.Error(err))
			results = append(results, failedResult(req, err, im.now()))
			continue
		}
		results = append(results, BatchResult{Request: req, Feed: f})
	}
	return results
}

func failedResult(req domain.ImportRequest, err error, now time.Time) BatchResult {
	msg := err.Error()
	var invalid *InvalidFeedError
	if errors.As(err, &invalid) {
		msg = invalid.Reason
	}
	title := firstNonEmpty(req.Title, defaultNewFeedTitle)
	return BatchResult{
		Request: req,
		Err:     err,
		Feed: domain.Feed{
			Name:     firstNonEmpty(req.Name, title),
			Title:    title,
			URL:      req.URL,
			Category: req.Category,
			Tags:     req.Tags,
			IsActive: false,
			Health: domain.Health{
				Status:              domain.HealthError,
				LastFetch:           now,
				LastSuccessfulFetch: now.Add(-invalidLastSuccessAge),
				ErrorCount:          1,
				Message:             msg,
			},
		},
	}
}

// Summarize splits batch results into successes and failures.
func Summarize(results []BatchResult) BulkImportResult {
	out := BulkImportResult{Total: len(results)}
	for _, r := range results {
		if r.Err != nil {
			out.Failed = append(out.Failed, FailedImport{Request: r.Request, Error: r.Feed.Health.Message})
			continue
		}
		out.Successful = append(out.Successful, r.Feed)
	}
	out.SuccessCount = len(out.Successful)
	out.FailureCount = len(out.Failed)
	return out
}

func windowDays(d time.Duration) int {
	days := int(d / (24 * time.Hour))
	if days < 1 {
		return 1
	}
	return days
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
