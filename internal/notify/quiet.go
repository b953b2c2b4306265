package notify

import "time"

// inQuietHours reports whether the local clock time falls inside
// [start, end), both given as "HH:MM" strings. Windows that cross midnight
// (e.g. 22:00-06:00) wrap. Empty bounds mean no quiet window.
func inQuietHours(now time.Time, start, end string) bool {
	if start == "" || end == "" || start == end {
		return false
	}
	clock := now.Format("15:04")
	if start < end {
		return clock >= start && clock < end
	}
	return clock >= start || clock < end
}

// bypassesQuietHours: urgent traffic still goes out during quiet hours.
func bypassesQuietHours(variant, category string) bool {
	return variant == "error" || category == "order"
}
