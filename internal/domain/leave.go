package domain

import "time"

// CalculateBusinessDays counts weekdays (Monday through Friday) in the
// closed interval [start, end]. Weekend days are excluded. An empty
// interval (start after end) yields 0; callers treat that as a validation
// failure before submission.
func CalculateBusinessDays(start, end time.Time) int {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	start = truncateToDay(start)
	end = truncateToDay(end)

	days := 0
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		switch cur.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			days++
		}
	}
	return days
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
