package utils

import (
	"net/http"
	"strconv"
)

const (
	// DefaultPageSize is the number of timeline items per page when the
	// client does not specify one.
	DefaultPageSize = 20
	// MaxPageSize caps the page size to prevent resource exhaustion in
	// the downstream services.
	MaxPageSize = 100
)

// PageParams holds the pagination parameters the stream service
// understands: a zero-based page index and a page size.
type PageParams struct {
	Page int // 0-based page index
	Size int // items per page
}

// ParsePageParams extracts pagination parameters from an HTTP request.
// It reads the "page" and "size" query parameters and applies the
// downstream contract's defaults and constraints: omitting both is
// equivalent to page=0&size=20.
//
// Example:
//
//	params := utils.ParsePageParams(r)
//	timeline, err := streams.GlobalTimeline(ctx, token, userID, params)
func ParsePageParams(r *http.Request) PageParams {
	page := parseIntParam(r, "page", 0)
	size := parseIntParam(r, "size", DefaultPageSize)

	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	return PageParams{Page: page, Size: size}
}

// parseIntParam safely parses an integer query parameter with a default
// fallback.
func parseIntParam(r *http.Request, key string, defaultValue int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
