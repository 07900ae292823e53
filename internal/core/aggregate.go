package core

import (
	"sort"
	"strings"
)

// AggregateEntryPresence counts entries per day for the given month. Only
// entries whose date key falls inside the month are counted.
func AggregateEntryPresence(entries []Entry, year, month0 int) map[string]int {
	prefix := MonthKey(year, month0) + "-"
	counts := make(map[string]int)
	for _, e := range entries {
		key := e.DateKey()
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		counts[key]++
	}
	return counts
}

// EntriesForDay returns the entries of a single day, newest created first.
// The input slice is left untouched.
func EntriesForDay(entries []Entry, dateKey string) []Entry {
	dateKey = DateKey(dateKey)
	out := make([]Entry, 0)
	for _, e := range entries {
		if e.DateKey() == dateKey {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
