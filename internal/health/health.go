// Package health derives feed health from the time since the last successful
// fetch and formats it for people.
package health

import (
	"fmt"
	"time"

	"rsswatch/domain"
)

const (
	// WarningAfter is how long a feed may go without data and still be active.
	WarningAfter = 6 * time.Hour
	// ErrorAfter is how long a feed may go without data before it is in error.
	ErrorAfter = 24 * time.Hour

	msgNeverFetched = "No data received yet"
)

// Status classifies a feed by the time elapsed since lastSuccess.
func Status(lastSuccess, now time.Time) domain.HealthStatus {
	elapsed := now.Sub(lastSuccess)
	switch {
	case elapsed <= WarningAfter:
		return domain.HealthActive
	case elapsed <= ErrorAfter:
		return domain.HealthWarning
	default:
		return domain.HealthError
	}
}

// Evaluate returns f with its health status and message recomputed for now.
// A feed that never fetched successfully is in error.
func Evaluate(f domain.Feed, now time.Time) domain.Feed {
	last := f.Health.LastSuccessfulFetch
	if last.IsZero() {
		f.Health.Status = domain.HealthError
		f.Health.Message = msgNeverFetched
		return f
	}
	elapsed := now.Sub(last)

	status := Status(last, now)
	var msg string
	switch status {
	case domain.HealthWarning:
		msg = fmt.Sprintf("No data received in %d hours", int(elapsed/time.Hour))
	case domain.HealthError:
		days := int(elapsed / (24 * time.Hour))
		msg = fmt.Sprintf("No data received in %d %s", days, plural(days, "day"))
	default:
		msg = "Last updated " + TimeAgo(last, now)
	}

	f.Health.Status = status
	f.Health.Message = msg
	return f
}

// Monitor evaluates every feed. The input slice is not modified.
func Monitor(feeds []domain.Feed, now time.Time) []domain.Feed {
	out := make([]domain.Feed, len(feeds))
	for i, f := range feeds {
		out[i] = Evaluate(f, now)
	}
	return out
}

// Summary counts feeds per health status.
type Summary struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Warning       int `json:"warning"`
	Error         int `json:"error"`
	ActiveFeeds   int `json:"active_feeds"`
	InactiveFeeds int `json:"inactive_feeds"`
}

// Stats summarizes the stored health status of feeds.
func Stats(feeds []domain.Feed) Summary {
	s := Summary{Total: len(feeds)}
	for _, f := range feeds {
		switch f.Health.Status {
		case domain.HealthActive:
			s.Active++
		case domain.HealthWarning:
			s.Warning++
		case domain.HealthError:
			s.Error++
		}
		if f.IsActive {
			s.ActiveFeeds++
		}
	}
	s.InactiveFeeds = s.Total - s.ActiveFeeds
	return s
}

// Label is the long indicator text for a status.
func Label(status domain.HealthStatus) string {
	switch status {
	case domain.HealthActive:
		return "Active - Working normally"
	case domain.HealthWarning:
		return "Warning - No data for 6+ hours"
	case domain.HealthError:
		return "Error - No data for 24+ hours"
	default:
		return "Unknown status"
	}
}

// Text is the short display name for a status.
func Text(status domain.HealthStatus) string {
	switch status {
	case domain.HealthActive:
		return "Active"
	case domain.HealthWarning:
		return "Warning"
	case domain.HealthError:
		return "Error"
	default:
		return "Unknown"
	}
}
