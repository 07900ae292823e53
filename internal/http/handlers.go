package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"diary/internal/core"
	dlog "diary/internal/log"
	"diary/internal/services"
)

// pageData is shared by every full page.
type pageData struct {
	Title string
	Page  string
}

type indexPage struct {
	pageData
	Calendar calendarView
	Day      dayView
}

type reportsPage struct {
	pageData
	Report reportView
}

type settingsPage struct {
	pageData
	Taxonomy taxonomyView
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	date := ParseDateParam(q, s.now())
	selected, _ := core.ParseDate(date)

	cal, err := s.calendarView(ctx, ParseCalendarParams(q, selected), date)
	if err != nil {
		writeServiceError(w, r, err, dlog.OpRead)
		return
	}
	day, err := s.dayView(ctx, date)
	if err != nil {
		writeServiceError(w, r, err, dlog.OpRead)
		return
	}

	s.respond(w, r, NewHTMXResponse(), "index", indexPage{
		pageData: pageData{Title: "Calendar", Page: "calendar"},
		Calendar: cal,
		Day:      day,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	report, err := s.reportView(r.Context(), ParseMonthKey(r.URL.Query(), s.now()))
	if err != nil {
		writeServiceError(w, r, err, dlog.OpRead)
		return
	}
	s.respond(w, r, NewHTMXResponse(), "reports", reportsPage{
		pageData: pageData{Title: "Reports", Page: "reports"},
		Report:   report,
	})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	tax, err := s.taxonomyView(r.Context())
	if err != nil {
		writeServiceError(w, r, err, dlog.OpList)
		return
	}
	s.respond(w, r, NewHTMXResponse(), "settings", settingsPage{
		pageData: pageData{Title: "Settings", Page: "settings"},
		Taxonomy: tax,
	})
}

// handleRefresh drops the read caches and tells every partial to reload.
// The client posts here when the tab regains focus.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
	NewHTMXResponse().Status(http.StatusNoContent).TriggerRefresh().Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "not_configured"
	}

	if _, err := s.taxonomy.ListCategories(ctx, false); err != nil {
		checks["taxonomy"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["taxonomy"] = "ok"
	}

	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	var taxCached, entriesCached int
	if s.cache != nil {
		taxCached, entriesCached = s.cache.Sizes()
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	// Prometheus-like text format
	metric := func(name, help, kind string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_requests_client_errors_total", "Requests answered with a 4xx status", "counter", traceMetrics.ClientErrors)
	metric("http_requests_server_errors_total", "Requests answered with a 5xx status", "counter", traceMetrics.ServerErrors)
	metric("http_requests_in_flight", "Requests currently being served", "gauge", traceMetrics.InFlight)
	metric("http_response_time_avg_microseconds", "Average response time", "gauge", traceMetrics.AverageResponseTime)
	metric("entry_writes_total", "Entries created, updated or deleted", "counter", s.entryWrites.Load())
	metric("taxonomy_writes_total", "Category and item changes", "counter", s.taxWrites.Load())

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{type=\"taxonomy\"} %d\n", taxCached)
	fmt.Fprintf(w, "cache_entries{type=\"entries\"} %d\n\n", entriesCached)

	metric("rate_limit_hits_total", "Total rate limit hits", "counter", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rateLimitMetrics.ClientCount)
	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(s.now().Sub(s.started).Seconds()))
}

// reportRow is one category block of the reports page.
type reportRow struct {
	Name    string
	Color   string
	Count   int
	Percent int
	Items   []core.ItemCount
	Recent  []core.EntryPreview
}

type reportView struct {
	Month string
	Year  int
	Title string
	Prev  string
	Next  string
	Total int
	Rows  []reportRow
}

func (s *Server) reportView(ctx context.Context, month string) (reportView, error) {
	rep, err := s.reports.MonthReport(ctx, month)
	if err != nil {
		return reportView{}, err
	}
	return newReportView(rep), nil
}

func newReportView(rep services.MonthReport) reportView {
	py, pm := core.ShiftMonth(rep.Year, rep.Month0, -1)
	ny, nm := core.ShiftMonth(rep.Year, rep.Month0, 1)
	v := reportView{
		Month: rep.Month,
		Year:  rep.Year,
		Title: monthTitle(rep.Year, rep.Month0),
		Prev:  core.MonthKey(py, pm),
		Next:  core.MonthKey(ny, nm),
		Total: rep.Stats.Total,
		Rows:  make([]reportRow, 0, len(rep.Stats.List)),
	}
	for i, st := range rep.Stats.List {
		v.Rows = append(v.Rows, reportRow{
			Name:    st.Name,
			Color:   st.Color,
			Count:   st.Count,
			Percent: rep.Stats.Percent(i),
			Items:   st.Items,
			Recent:  rep.Recent[st.ID],
		})
	}
	return v
}

func (s *Server) handleReportPartial(w http.ResponseWriter, r *http.Request) {
	report, err := s.reportView(r.Context(), ParseMonthKey(r.URL.Query(), s.now()))
	if err != nil {
		writeServiceError(w, r, err, dlog.OpRead)
		return
	}
	s.respond(w, r, NewHTMXResponse(), "report", report)
}
