package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"rsswatch/domain"
)

func TestObserveHealth(t *testing.T) {
	feeds := []domain.Feed{
		{Health: domain.Health{Status: domain.HealthActive}},
		{Health: domain.Health{Status: domain.HealthActive}},
		{Health: domain.Health{Status: domain.HealthError}},
		{Health: domain.Health{Status: "unknown"}},
	}
	ObserveHealth(feeds)

	assert.Equal(t, 2.0, testutil.ToFloat64(FeedsByHealth.WithLabelValues("active")))
	assert.Equal(t, 0.0, testutil.ToFloat64(FeedsByHealth.WithLabelValues("warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(FeedsByHealth.WithLabelValues("error")))

	ObserveHealth(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(FeedsByHealth.WithLabelValues("active")))
}

func TestSetRunning(t *testing.T) {
	SetRunning(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(SchedulerRunning))
	SetRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(SchedulerRunning))
}
