package commitstatus

import "time"

const (
	unknownStatusTTL = 5 * time.Minute
	pendingStatusTTL = time.Minute
	recentStatusTTL  = 10 * time.Minute
	settledStatusTTL = 24 * time.Hour

	pendingWindow = 15 * time.Minute
	recentWindow  = 24 * time.Hour
)

// CacheDuration picks how long a provider result may be reused.
//
// Without statuses (or timestamps) nothing is known, so the TTL is short.
// A pending result updated within the last 15 minutes is about to change.
// Anything updated within the last day may still receive late statuses.
// Older results are settled.
func CacheDuration(result Result, now time.Time) time.Duration {
	if len(result.Statuses) == 0 {
		return unknownStatusTTL
	}

	var newest time.Time
	for _, status := range result.Statuses {
		if status.UpdatedAt != nil && status.UpdatedAt.After(newest) {
			newest = *status.UpdatedAt
		}
	}
	if newest.IsZero() {
		return unknownStatusTTL
	}

	age := now.Sub(newest)
	switch {
	case age < pendingWindow && result.State == StatePending:
		return pendingStatusTTL
	case age < recentWindow:
		return recentStatusTTL
	default:
		return settledStatusTTL
	}
}
