package core

import "time"

// CalendarCells is the fixed number of cells in a month grid: six weeks of seven days.
const CalendarCells = 42

// CalendarCell is one day of the month grid.
type CalendarCell struct {
	Date    time.Time
	Key     string
	InMonth bool
}

// Day returns the day of the month.
func (c CalendarCell) Day() int {
	return c.Date.Day()
}

// BuildCalendarGrid returns 42 consecutive days starting on the Sunday on or
// before the first day of the month. month0 is zero-based; values outside
// 0..11 roll over into neighbouring years.
func BuildCalendarGrid(year, month0 int) []CalendarCell {
	first := time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	cells := make([]CalendarCell, CalendarCells)
	for i := range cells {
		d := start.AddDate(0, 0, i)
		cells[i] = CalendarCell{
			Date:    d,
			Key:     d.Format(DateLayout),
			InMonth: d.Month() == first.Month() && d.Year() == first.Year(),
		}
	}
	return cells
}

// MonthOf normalizes a year and zero-based month.
func MonthOf(year, month0 int) (int, int) {
	t := time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), int(t.Month()) - 1
}

// ShiftMonth moves delta months from the given month.
func ShiftMonth(year, month0, delta int) (int, int) {
	return MonthOf(year, month0+delta)
}

// DaysInYear returns every date of the year in order.
func DaysInYear(year int) []time.Time {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	days := make([]time.Time, 0, 366)
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
