package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"diary/internal/core"
	dlog "diary/internal/log"
)

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type calendarCell struct {
	Key      string
	Day      int
	InMonth  bool
	Today    bool
	Selected bool
	Count    int
}

// calendarView is the month grid partial. Months are 1-based for URLs.
type calendarView struct {
	Year      int
	Month     int
	Title     string
	Selected  string
	PrevYear  int
	PrevMonth int
	NextYear  int
	NextMonth int
	Weekdays  []string
	Cells     []calendarCell
}

type dayView struct {
	Date       string
	Label      string
	Entries    []core.Entry
	Categories []core.Category // active, for the entry form
}

func (s *Server) calendarView(ctx context.Context, p CalendarParams, selected string) (calendarView, error) {
	cm, err := s.entries.Calendar(ctx, p.Year, p.Month0)
	if err != nil {
		return calendarView{}, err
	}

	today := s.now().Format(core.DateLayout)
	py, pm := core.ShiftMonth(cm.Year, cm.Month0, -1)
	ny, nm := core.ShiftMonth(cm.Year, cm.Month0, 1)

	v := calendarView{
		Year:      cm.Year,
		Month:     cm.Month0 + 1,
		Title:     monthTitle(cm.Year, cm.Month0),
		Selected:  selected,
		PrevYear:  py,
		PrevMonth: pm + 1,
		NextYear:  ny,
		NextMonth: nm + 1,
		Weekdays:  weekdays,
		Cells:     make([]calendarCell, len(cm.Cells)),
	}
	for i, c := range cm.Cells {
		v.Cells[i] = calendarCell{
			Key:      c.Key,
			Day:      c.Day(),
			InMonth:  c.InMonth,
			Today:    c.Key == today,
			Selected: c.Key == selected,
			Count:    cm.Counts[c.Key],
		}
	}
	return v, nil
}

func (s *Server) dayView(ctx context.Context, date string) (dayView, error) {
	entries, err := s.entries.EntriesForDay(ctx, date)
	if err != nil {
		return dayView{}, err
	}
	cats, err := s.taxonomy.ListCategories(ctx, false)
	if err != nil {
		return dayView{}, err
	}
	return dayView{
		Date:       date,
		Label:      dayLabel(date),
		Entries:    entries,
		Categories: cats,
	}, nil
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	selected := strings.TrimSpace(q.Get("selected"))
	if _, err := core.ParseDate(selected); err != nil {
		selected = ""
	}

	cal, err := s.calendarView(r.Context(), ParseCalendarParams(q, s.now()), selected)
	if err != nil {
		writeServiceError(w, r, err, dlog.OpRead)
		return
	}
	s.respond(w, r, NewHTMXResponse(), "calendar", cal)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	day, err := s.dayView(r.Context(), ParseDateParam(r.URL.Query(), s.now()))
	if err != nil {
		writeServiceError(w, r, err, dlog.OpRead)
		return
	}
	s.respond(w, r, NewHTMXResponse(), "day", day)
}

// handleItems renders the item options of a category for the entry form.
// Unknown or inactive categories yield an empty list.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	var items []core.Item
	if id := strings.TrimSpace(r.URL.Query().Get("category_id")); id != "" {
		var err error
		items, err = s.taxonomy.ActiveItems(r.Context(), id)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			writeServiceError(w, r, err, dlog.OpList)
			return
		}
	}
	s.respond(w, r, NewHTMXResponse(), "items", items)
}
