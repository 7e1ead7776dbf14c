package http

import (
	"net/http"
	apperrors "staybook/pkg/errors"
	"time"
)

const DateLayout = "2006-01-02"

// DateQuery parses an optional yyyy-mm-dd query parameter. A missing parameter yields nil.
func DateQuery(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	day, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid " + name + " parameter: " + raw + " (expected YYYY-MM-DD)")
	}
	return &day, nil
}
