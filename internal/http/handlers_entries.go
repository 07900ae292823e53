package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"diary/internal/core"
	dlog "diary/internal/log"
)

type entryJSON struct {
	ID           string    `json:"id"`
	EntryDate    string    `json:"entry_date"`
	CategoryID   string    `json:"category_id"`
	ItemID       string    `json:"item_id"`
	Content      string    `json:"content"`
	CategoryName string    `json:"category_name"`
	ItemName     string    `json:"item_name"`
	ItemEmoji    string    `json:"item_emoji,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toEntryJSON(e core.Entry) entryJSON {
	return entryJSON{
		ID:           e.ID,
		EntryDate:    e.EntryDate,
		CategoryID:   e.CategoryID,
		ItemID:       e.ItemID,
		Content:      e.Content,
		CategoryName: e.CategoryName(),
		ItemName:     e.ItemName(),
		ItemEmoji:    e.ItemEmoji(),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	e, err := s.entries.CreateEntry(r.Context(), p.EntryInput())
	if err != nil {
		writeServiceError(w, r, err, dlog.OpCreate)
		return
	}
	s.entryWrites.Add(1)
	s.entryWritten(w, r, http.StatusCreated, e, "Entry saved")
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	e, err := s.entries.UpdateEntry(r.Context(), r.PathValue("id"), p.EntryInput())
	if err != nil {
		writeServiceError(w, r, err, dlog.OpUpdate)
		return
	}
	s.entryWrites.Add(1)
	s.entryWritten(w, r, http.StatusOK, e, "Entry updated")
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	e, err := s.entries.GetEntry(ctx, id)
	if err != nil {
		writeServiceError(w, r, err, dlog.OpDelete)
		return
	}
	if err := s.entries.DeleteEntry(ctx, id); err != nil {
		writeServiceError(w, r, err, dlog.OpDelete)
		return
	}
	s.entryWrites.Add(1)

	if !isHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.respondDay(w, r, http.StatusOK, e.EntryDate, "Entry deleted")
}

// entryWritten answers a create or update: the refreshed day panel for
// HTMX, the entry as JSON otherwise.
func (s *Server) entryWritten(w http.ResponseWriter, r *http.Request, status int, e core.Entry, msg string) {
	if !isHTMX(r) {
		writeJSON(w, status, toEntryJSON(e))
		return
	}
	s.respondDay(w, r, status, e.EntryDate, msg)
}

func (s *Server) respondDay(w http.ResponseWriter, r *http.Request, status int, date, msg string) {
	day, err := s.dayView(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, err, dlog.OpRead)
		return
	}
	b := NewHTMXResponse().
		Status(status).
		TriggerEntryChanged(date).
		TriggerSuccessNotification(msg)
	s.respond(w, r, b, "day", day)
}

// handleListEntries returns entries as JSON, filtered by one of date
// (YYYY-MM-DD), month (YYYY-MM) or year.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f core.EntryFilter
	switch {
	case q.Get("date") != "":
		d, err := core.ParseDate(strings.TrimSpace(q.Get("date")))
		if err != nil {
			writeServiceError(w, r, core.ErrInvalidDate, dlog.OpList)
			return
		}
		f.Date = d.Format(core.DateLayout)
	case q.Get("month") != "":
		y, m0, err := core.ParseMonth(strings.TrimSpace(q.Get("month")))
		if err != nil {
			writeServiceError(w, r, err, dlog.OpList)
			return
		}
		f.Month = core.MonthKey(y, m0)
	case q.Get("year") != "":
		y, err := strconv.Atoi(strings.TrimSpace(q.Get("year")))
		if err != nil || y < 1 || y > 9999 {
			writeServiceError(w, r, core.ErrInvalidDate, dlog.OpList)
			return
		}
		f.Year = y
	}

	entries, err := s.entries.ListEntries(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err, dlog.OpList)
		return
	}
	if f.Date != "" {
		entries = core.EntriesForDay(entries, f.Date)
	}

	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = toEntryJSON(e)
	}
	writeJSON(w, http.StatusOK, out)
}
