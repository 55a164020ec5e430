package http

import (
	"net/http"
	"time"

	xutil "IdxLens/pkg/util"
)

// ParseDateParam parses an optional calendar date query parameter. Empty
// yields the zero time; anything unparseable is a 400.
func ParseDateParam(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := xutil.ParseDate(s)
	if !ok {
		return time.Time{}, NewAppError("ERR_DATETIME", field, field+" must be a date like 2006-01-02", http.StatusBadRequest)
	}
	return t, nil
}
