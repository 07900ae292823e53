package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dlog "diary/internal/log"
)

func testLogger(buf *bytes.Buffer) *dlog.Logger {
	return dlog.New(dlog.Config{
		Component: dlog.ComponentHTTP,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestMiddlewareRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(testLogger(&buf), func(*http.Request) string { return "10.0.0.1" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		dlog.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "generated", incoming: "", keep: false},
		{name: "propagated", incoming: "abc-123", keep: true},
		{name: "rejected", incoming: "bad id\nwith newline", keep: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, "/ui/calendar?year=2026", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			echoed := rr.Header().Get(RequestIDHeader)
			if echoed == "" || echoed != seen {
				t.Fatalf("echoed %q, handler saw %q", echoed, seen)
			}
			if tt.keep && echoed != tt.incoming {
				t.Fatalf("request ID %q not propagated, got %q", tt.incoming, echoed)
			}
			if !tt.keep && !strings.HasPrefix(echoed, "req_") {
				t.Fatalf("expected generated ID, got %q", echoed)
			}
			if !strings.Contains(buf.String(), "msg=\"inside handler\"") ||
				!strings.Contains(buf.String(), "request_id="+echoed) {
				t.Fatalf("handler log line should carry the request ID:\n%s", buf.String())
			}
		})
	}
}

func TestMiddlewareMetrics(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(testLogger(&buf), nil)
	statuses := []int{http.StatusOK, http.StatusUnprocessableEntity, http.StatusNotFound, http.StatusInternalServerError}

	for _, code := range statuses {
		code := code
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			w.WriteHeader(http.StatusTeapot) // ignored by the recorder and the counters
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/entries", nil))
	}

	got := m.GetMetrics()
	if got.TotalRequests != 4 || got.ClientErrors != 2 || got.ServerErrors != 1 || got.InFlight != 0 {
		t.Fatalf("metrics = %+v", got)
	}
	if !strings.Contains(buf.String(), "status_code=500") || !strings.Contains(buf.String(), "level=ERROR") {
		t.Fatalf("server errors should be logged at error level:\n%s", buf.String())
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b || len(a) != len("req_")+16 {
		t.Fatalf("unexpected IDs %q %q", a, b)
	}
}
