package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	dayLayout    = "2006-01-02"
	monthLayout  = "2006-01"
	maxPageLimit = 200
)

var (
	errBadRequest      = errors.New("bad request")
	errTooLarge        = errors.New("request body too large")
	errUnauthenticated = errors.New("authentication required")
)

// decodeJSON reads one JSON object from the body into v. Unknown fields are
// rejected so typos do not silently drop data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errTooLarge
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body", errBadRequest)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// jsonAmount accepts a JSON number or a string such as "12,50".
type jsonAmount struct {
	decimal.Decimal
}

func (a *jsonAmount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	d, err := core.ParseAmount(s)
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}

func (a *jsonAmount) ptr() *decimal.Decimal {
	if a == nil {
		return nil
	}
	return &a.Decimal
}

// jsonDate accepts YYYY-MM-DD or RFC 3339.
type jsonDate struct {
	time.Time
}

func (d *jsonDate) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: date must be a string", core.ErrInvalidDate)
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *jsonDate) ptr() *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return t, nil
}

// parseMonth reads a YYYY-MM parameter. An absent parameter yields def.
func parseMonth(query url.Values, key string, def time.Time) (time.Time, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	t, err := time.Parse(monthLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM", errBadRequest, key)
	}
	return t, nil
}

// parseIntParam reads a positive integer parameter bounded by max.
func parseIntParam(query url.Values, key string, def, max int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("%w: %s must be between 1 and %d", errBadRequest, key, max)
	}
	return n, nil
}
