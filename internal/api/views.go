package api

import (
	"sort"
	"time"
)

// SortJobsNewestFirst orders jobs by SubmittedAt descending, breaking ties by ID.
func SortJobsNewestFirst(items []JobItem) []JobItem {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]JobItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti := ParseTime(sorted[i].SubmittedAt)
		tj := ParseTime(sorted[j].SubmittedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

// ParseTime parses an API timestamp, returning the zero time when empty or invalid.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
