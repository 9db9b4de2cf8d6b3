package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

var ErrInvalidParam = errors.New("invalid query parameter")

// ParseFilter builds a Filter from query parameters: type, category, from,
// to and q. Dates are YYYY-MM-DD or RFC 3339. A calendar-day "to" covers the
// whole day.
func ParseFilter(v url.Values) (Filter, error) {
	f := Filter{
		Type:     strings.TrimSpace(v.Get("type")),
		Category: strings.TrimSpace(v.Get("category")),
		Search:   strings.TrimSpace(v.Get("q")),
	}
	switch f.Type {
	case "", All, "income", "expense":
	default:
		return Filter{}, fmt.Errorf("%w: type %q", ErrInvalidParam, f.Type)
	}

	if s := strings.TrimSpace(v.Get("from")); s != "" {
		t, _, err := parseTime(s)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: from: %v", ErrInvalidParam, err)
		}
		f.StartDate = &t
	}
	if s := strings.TrimSpace(v.Get("to")); s != "" {
		t, dayOnly, err := parseTime(s)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: to: %v", ErrInvalidParam, err)
		}
		if dayOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		f.EndDate = &t
	}
	return f, nil
}

// ParseSort reads sort and order. Unknown values fall back to the defaults.
func ParseSort(v url.Values) Sort {
	s := DefaultSort()
	if field := SortField(strings.TrimSpace(v.Get("sort"))); field != "" {
		s.Field = field
	}
	if order := SortOrder(strings.ToLower(strings.TrimSpace(v.Get("order")))); order != "" {
		s.Order = order
	}
	return s.normalized()
}

// ParsePage reads offset and limit, capping limit at maxLimit.
func ParsePage(v url.Values, maxLimit int) (Page, error) {
	var p Page
	if s := v.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("%w: offset %q", ErrInvalidParam, s)
		}
		p.Offset = n
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("%w: limit %q", ErrInvalidParam, s)
		}
		p.Limit = n
	}
	if maxLimit > 0 && (p.Limit == 0 || p.Limit > maxLimit) {
		p.Limit = maxLimit
	}
	return p, nil
}

func parseTime(s string) (t time.Time, dayOnly bool, err error) {
	if t, err = time.Parse(dayLayout, s); err == nil {
		return t, true, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	return t, false, err
}
