// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Query parameters fall back to the current date when missing or malformed;
// request bodies may be form-encoded (HTMX) or JSON.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"diary/internal/core"
	"diary/internal/services"
)

// maxBodyBytes caps request bodies; entries are at most 2000 characters.
const maxBodyBytes = 64 << 10

var errInvalidDirection = errors.New("direction must be up or down")

// CalendarParams holds a normalized year and zero-based month.
type CalendarParams struct {
	Year   int
	Month0 int
}

// ParseCalendarParams reads year and 1-based month from the query, using the
// month of now as defaults. Out-of-range months roll into neighbouring years.
func ParseCalendarParams(query url.Values, now time.Time) CalendarParams {
	year, month := now.Year(), int(now.Month())

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 && y < 10000 {
			year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > -120 && m < 120 {
			month = m
		}
	}

	y, m0 := core.MonthOf(year, month-1)
	return CalendarParams{Year: y, Month0: m0}
}

// ParseMonthKey returns the month query parameter (YYYY-MM) or the month of now.
func ParseMonthKey(query url.Values, now time.Time) string {
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if y, m0, err := core.ParseMonth(v); err == nil {
			return core.MonthKey(y, m0)
		}
	}
	return core.MonthKey(now.Year(), int(now.Month())-1)
}

// ParseDateParam returns the date query parameter (YYYY-MM-DD) or today.
func ParseDateParam(query url.Values, now time.Time) string {
	if v := strings.TrimSpace(query.Get("date")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			return d.Format(core.DateLayout)
		}
	}
	return now.Format(core.DateLayout)
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// EntryInput collects the entry fields of the body.
func (p *RequestBodyParser) EntryInput() services.EntryInput {
	return services.EntryInput{
		EntryDate:  p.Get("entry_date"),
		CategoryID: p.Get("category_id"),
		ItemID:     p.Get("item_id"),
		Content:    p.Get("content"),
	}
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseDirection maps up/down (or -1/1) to a move direction.
func parseDirection(s string) (int, error) {
	switch strings.ToLower(s) {
	case "up", "-1":
		return -1, nil
	case "down", "1", "+1":
		return 1, nil
	}
	return 0, errInvalidDirection
}

// parseActive reads a checkbox-ish boolean. Missing means false.
func parseActive(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
