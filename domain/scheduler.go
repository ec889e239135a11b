package domain

import "time"

// SchedulerConfig tunes the refresh scheduler. A non-empty Schedule is a cron
// expression and takes precedence over Interval.
type SchedulerConfig struct {
	Interval   time.Duration
	Schedule   string
	MaxRetries int
	RetryDelay time.Duration
	Workers    int
}

// SchedulerStatus is a point-in-time view of the scheduler.
type SchedulerStatus struct {
	Running     bool
	Refreshing  bool
	FeedCount   int
	LastRefresh *time.Time
	NextRefresh *time.Time
	Config      SchedulerConfig
}
