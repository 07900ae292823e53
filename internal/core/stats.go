package core

import (
	"math"
	"sort"
	"unicode/utf8"
)

type (
	// ItemCount is the number of entries logged against one item name.
	ItemCount struct {
		Name  string
		Count int
	}

	// CategoryStat aggregates the entries of one category.
	CategoryStat struct {
		ID    string
		Name  string
		Color string
		Count int
		Items []ItemCount
	}

	// CategoryStats is the result of ComputeCategoryStats.
	CategoryStats struct {
		List  []CategoryStat
		Total int
	}

	// EntryPreview is a truncated entry for the reports page.
	EntryPreview struct {
		Entry
		Preview string
	}
)

// PercentOf returns the stat's share of total, rounded to a whole percent.
func (s CategoryStat) PercentOf(total int) int {
	return Percent(s.Count, total)
}

// Percent returns the i-th category's share of the total.
func (s CategoryStats) Percent(i int) int {
	if i < 0 || i >= len(s.List) {
		return 0
	}
	return s.List[i].PercentOf(s.Total)
}

// Percent rounds count/total to a whole percent; zero totals yield 0.
func Percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}

// ComputeCategoryStats counts entries per category and, within each category,
// per item. Categories are ordered by count descending with ties kept in first
// appearance order. Entries whose category or item cannot be resolved are
// counted under UnknownLabel.
func ComputeCategoryStats(entries []Entry, categories []Category) CategoryStats {
	byID := make(map[string]*Category, len(categories))
	for i := range categories {
		byID[categories[i].ID] = &categories[i]
	}

	var list []CategoryStat
	index := make(map[string]int)
	itemIndex := make(map[string]map[string]int)

	for _, e := range entries {
		cat := e.Category
		if cat == nil {
			cat = byID[e.CategoryID]
		}

		key, stat := UnknownLabel, CategoryStat{Name: UnknownLabel}
		if cat != nil && cat.Name != "" {
			key = cat.ID
			stat = CategoryStat{ID: cat.ID, Name: cat.Name, Color: cat.Color}
		}

		pos, ok := index[key]
		if !ok {
			pos = len(list)
			index[key] = pos
			itemIndex[key] = make(map[string]int)
			list = append(list, stat)
		}
		list[pos].Count++

		itemName := resolveItemName(e, cat)
		items := itemIndex[key]
		ip, ok := items[itemName]
		if !ok {
			ip = len(list[pos].Items)
			items[itemName] = ip
			list[pos].Items = append(list[pos].Items, ItemCount{Name: itemName})
		}
		list[pos].Items[ip].Count++
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Count > list[j].Count
	})

	if list == nil {
		list = []CategoryStat{}
	}
	return CategoryStats{List: list, Total: len(entries)}
}

func resolveItemName(e Entry, cat *Category) string {
	if e.Item != nil && e.Item.Name != "" {
		return e.Item.Name
	}
	if cat != nil {
		if it, ok := cat.FindItem(e.ItemID); ok && it.Name != "" {
			return it.Name
		}
	}
	return UnknownLabel
}

// RecentByCategory returns, per category ID, up to limit entries with the
// newest entry date first. Content is cut to maxRunes runes with "..." appended.
func RecentByCategory(entries []Entry, limit, maxRunes int) map[string][]EntryPreview {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := sorted[i].DateKey(), sorted[j].DateKey()
		if ki != kj {
			return ki > kj
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	out := make(map[string][]EntryPreview)
	for _, e := range sorted {
		if len(out[e.CategoryID]) >= limit {
			continue
		}
		out[e.CategoryID] = append(out[e.CategoryID], EntryPreview{
			Entry:   e,
			Preview: Truncate(e.Content, maxRunes),
		})
	}
	return out
}

// Truncate cuts s to n runes and appends "..." when anything was removed.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
