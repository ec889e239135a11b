package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"rsswatch/domain"
)

var (
	RefreshCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsswatch_refresh_cycles_total",
		Help: "Total number of refresh cycles started.",
	})

	RefreshCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rsswatch_refresh_cycle_duration_seconds",
		Help:    "Duration of complete refresh cycles.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	FeedRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsswatch_feed_refreshes_total",
		Help: "Per-feed refresh outcomes after retries.",
	}, []string{"result"}) // success, failure

	FetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsswatch_fetch_attempts_total",
		Help: "Total number of individual feed fetch attempts, retries included.",
	})

	ArticlesImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rsswatch_articles_imported_total",
		Help: "Articles inside the recency window written to the store.",
	})

	Validations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rsswatch_validations_total",
		Help: "Feed URL validations by outcome.",
	}, []string{"result"}) // valid, invalid, cached

	FeedsByHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rsswatch_feeds",
		Help: "Tracked feeds by health status.",
	}, []string{"status"})

	SchedulerRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "rsswatch_scheduler_running",
		Help: "Whether the refresh timer is running (1) or stopped (0).",
	})
)

// ObserveHealth resets the per-status feed gauge from feeds.
func ObserveHealth(feeds []domain.Feed) {
	counts := map[domain.HealthStatus]float64{
		domain.HealthActive:  0,
		domain.HealthWarning: 0,
		domain.HealthError:   0,
	}
	for _, f := range feeds {
		if _, ok := counts[f.Health.Status]; ok {
			counts[f.Health.Status]++
		}
	}
	for status, n := range counts {
		FeedsByHealth.WithLabelValues(string(status)).Set(n)
	}
}

// SetRunning records the scheduler state.
func SetRunning(running bool) {
	if running {
		SchedulerRunning.Set(1)
		return
	}
	SchedulerRunning.Set(0)
}
