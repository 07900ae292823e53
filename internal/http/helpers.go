package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"diary/internal/core"
	dlog "diary/internal/log"
)

// sanitizeInput removes control characters (except tab and newlines) and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// extractClientIP prefers proxy headers and falls back to the remote address.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeServiceError maps service errors to HTMX error responses:
// validation 422, unknown IDs 404, unsupported deletes 409, anything else 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case core.IsValidationError(err), errors.Is(err, errInvalidDirection):
		UnprocessableEntityError(err.Error()).
			TriggerErrorNotification(err.Error()).
			Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Not found").Write(w)
	case errors.Is(err, core.ErrHardDeleteUnsupported):
		ConflictError(err.Error()).Write(w)
	default:
		dlog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			dlog.FieldOperation, op,
			dlog.FieldPath, r.URL.Path,
			dlog.FieldError, err)
		InternalServerError("Something went wrong, please retry").
			TriggerErrorNotification("Something went wrong").
			Write(w)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// monthTitle renders a month heading such as "March 2026".
func monthTitle(year, month0 int) string {
	return time.Date(year, time.Month(month0+1), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}

// dayLabel renders a day heading such as "Sunday, 15 March 2026".
func dayLabel(date string) string {
	d, err := core.ParseDate(date)
	if err != nil {
		return date
	}
	return d.Format("Monday, 2 January 2006")
}
