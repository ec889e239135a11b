package health

import (
	"fmt"
	"time"
)

// TimeAgo renders the distance from t to now in minutes, hours or days.
func TimeAgo(t, now time.Time) string {
	diff := now.Sub(t)
	hours := int(diff / time.Hour)
	days := hours / 24

	switch {
	case hours < 1:
		minutes := int(diff / time.Minute)
		return fmt.Sprintf("%d %s ago", minutes, plural(minutes, "minute"))
	case days < 1:
		return fmt.Sprintf("%d %s ago", hours, plural(hours, "hour"))
	default:
		return fmt.Sprintf("%d %s ago", days, plural(days, "day"))
	}
}

// TimeUntil renders the wait until next, e.g. "2h 15m".
func TimeUntil(next *time.Time, now time.Time) string {
	if next == nil {
		return "Unknown"
	}
	diff := next.Sub(now)
	if diff <= 0 {
		return "Refreshing soon..."
	}
	hours := int(diff / time.Hour)
	minutes := int((diff % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
