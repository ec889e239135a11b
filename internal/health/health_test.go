package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rsswatch/domain"
)

var now = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func TestStatus(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    domain.HealthStatus
	}{
		{"just fetched", 0, domain.HealthActive},
		{"exactly six hours", 6 * time.Hour, domain.HealthActive},
		{"just over six hours", 6*time.Hour + time.Second, domain.HealthWarning},
		{"exactly one day", 24 * time.Hour, domain.HealthWarning},
		{"just over one day", 24*time.Hour + time.Second, domain.HealthError},
		{"a week", 7 * 24 * time.Hour, domain.HealthError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(now.Add(-tt.elapsed), now))
		})
	}
}

func TestEvaluateMessages(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		status  domain.HealthStatus
		message string
	}{
		{"recent", 30 * time.Minute, domain.HealthActive, "Last updated 30 minutes ago"},
		{"one hour", time.Hour + 5*time.Minute, domain.HealthActive, "Last updated 1 hour ago"},
		{"warning floors hours", 9*time.Hour + 50*time.Minute, domain.HealthWarning, "No data received in 9 hours"},
		{"single day", 30 * time.Hour, domain.HealthError, "No data received in 1 day"},
		{"several days", 75 * time.Hour, domain.HealthError, "No data received in 3 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := domain.Feed{ID: "f1", Health: domain.Health{LastSuccessfulFetch: now.Add(-tt.elapsed), ErrorCount: 2}}
			got := Evaluate(f, now)
			assert.Equal(t, tt.status, got.Health.Status)
			assert.Equal(t, tt.message, got.Health.Message)
			assert.Equal(t, 2, got.Health.ErrorCount, "other health fields are kept")
		})
	}
}

func TestEvaluateNeverFetched(t *testing.T) {
	got := Evaluate(domain.Feed{ID: "f1", Health: domain.Health{ErrorCount: 1}}, now)
	assert.Equal(t, domain.HealthError, got.Health.Status)
	assert.Equal(t, "No data received yet", got.Health.Message)
	assert.Equal(t, 1, got.Health.ErrorCount)
}

func TestMonitorDoesNotMutateInput(t *testing.T) {
	feeds := []domain.Feed{
		{ID: "a", Health: domain.Health{Status: domain.HealthActive, LastSuccessfulFetch: now.Add(-48 * time.Hour)}},
	}

	out := Monitor(feeds, now)

	assert.Equal(t, domain.HealthError, out[0].Health.Status)
	assert.Equal(t, domain.HealthActive, feeds[0].Health.Status)
}

func TestStats(t *testing.T) {
	feeds := []domain.Feed{
		{IsActive: true, Health: domain.Health{Status: domain.HealthActive}},
		{IsActive: true, Health: domain.Health{Status: domain.HealthActive}},
		{IsActive: false, Health: domain.Health{Status: domain.HealthWarning}},
		{IsActive: true, Health: domain.Health{Status: domain.HealthError}},
	}

	got := Stats(feeds)

	assert.Equal(t, Summary{Total: 4, Active: 2, Warning: 1, Error: 1, ActiveFeeds: 3, InactiveFeeds: 1}, got)
	assert.Equal(t, Summary{}, Stats(nil))
}

func TestTimeAgo(t *testing.T) {
	assert.Equal(t, "1 minute ago", TimeAgo(now.Add(-time.Minute), now))
	assert.Equal(t, "0 minutes ago", TimeAgo(now, now))
	assert.Equal(t, "5 hours ago", TimeAgo(now.Add(-5*time.Hour), now))
	assert.Equal(t, "1 day ago", TimeAgo(now.Add(-25*time.Hour), now))
	assert.Equal(t, "2 days ago", TimeAgo(now.Add(-49*time.Hour), now))
}

func TestTimeUntil(t *testing.T) {
	at := func(d time.Duration) *time.Time {
		v := now.Add(d)
		return &v
	}

	assert.Equal(t, "Unknown", TimeUntil(nil, now))
	assert.Equal(t, "Refreshing soon...", TimeUntil(at(0), now))
	assert.Equal(t, "Refreshing soon...", TimeUntil(at(-time.Minute), now))
	assert.Equal(t, "45m", TimeUntil(at(45*time.Minute+30*time.Second), now))
	assert.Equal(t, "2h 15m", TimeUntil(at(2*time.Hour+15*time.Minute), now))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Warning - No data for 6+ hours", Label(domain.HealthWarning))
	assert.Equal(t, "Unknown status", Label("paused"))
	assert.Equal(t, "Error", Text(domain.HealthError))
	assert.Equal(t, "Unknown", Text(""))
}
