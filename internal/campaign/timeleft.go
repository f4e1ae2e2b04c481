package campaign

import "fmt"

const (
	secondsPerHour = 3600
	secondsPerDay  = 24 * secondsPerHour
)

// TimeLeft buckets the remaining time into days, hours or "Less than an
// hour left". Division floors, so 1d23h reads "1 day left"
func TimeLeft(deadline, now int64) string {
	if IsExpired(deadline, now) {
		return "Ended"
	}

	remaining := deadline - now
	if days := remaining / secondsPerDay; days > 0 {
		return plural(days, "day") + " left"
	}
	if hours := remaining / secondsPerHour; hours > 0 {
		return plural(hours, "hour") + " left"
	}
	return "Less than an hour left"
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
