package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"diary/internal/core"
	"diary/internal/export"
	dlog "diary/internal/log"
)

// handleExport streams an .xlsx workbook. Without mode=year it exports the
// event log and pivot of one month (default: the current one); with
// mode=year it exports the fixed-calendar grid of ?year.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := export.Options{Mode: export.ParseMode(strings.TrimSpace(q.Get("mode")))}

	month := strings.TrimSpace(q.Get("month"))
	if opts.Mode == export.ModeYearGrid {
		opts.Year, _ = strconv.Atoi(strings.TrimSpace(q.Get("year")))
	} else if month == "" {
		now := s.now()
		month = core.MonthKey(now.Year(), int(now.Month())-1)
	}

	f, name, err := s.reports.Export(r.Context(), opts, month)
	if err != nil {
		writeServiceError(w, r, err, dlog.OpExport)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := export.WriteWorkbook(w, f); err != nil {
		// headers are gone; all that is left is to log
		dlog.FromContext(r.Context()).ErrorContext(r.Context(), "Workbook write failed",
			dlog.FieldOperation, dlog.OpExport,
			dlog.FieldError, err)
	}
}
