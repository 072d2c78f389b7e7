package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"taskflow/cmd/internal/dbx"
)

var errBadParam = errors.New("invalid parameter")

// ParsePage reads skip (>= 0) and limit (1..100, default 100) from the query.
// Out-of-range values are rejected rather than clamped.
func ParsePage(r *http.Request) (dbx.Page, error) {
	q := r.URL.Query()
	p := dbx.Page{Skip: 0, Limit: dbx.DefaultLimit}

	if raw := strings.TrimSpace(q.Get("skip")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return dbx.Page{}, fmt.Errorf("%w: skip must be >= 0", errBadParam)
		}
		p.Skip = n
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > dbx.MaxLimit {
			return dbx.Page{}, fmt.Errorf("%w: limit must be between 1 and %d", errBadParam, dbx.MaxLimit)
		}
		p.Limit = n
	}
	return p, nil
}

// PathID parses the {name} path value as a positive int64.
func PathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadParam, name)
	}
	return id, nil
}

// WriteValidation replies 422 with err's message.
func WriteValidation(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
}
