package client

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// PagedQuery parameterizes a paged listing. Unset fields are omitted from
// the query string entirely; an empty string counts as unset.
type PagedQuery struct {
	Page      *int
	Size      *int
	Sort      string
	Direction string
	// Active is tri-state: nil means no filter.
	Active *bool
	// Filters holds free-text filters such as firstName or lastName.
	Filters map[string]any
}

// Int returns a pointer to v, for PagedQuery fields.
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for PagedQuery fields.
func Bool(v bool) *bool { return &v }

// Values encodes the query, dropping nil, empty and nil-pointer values.
func (q PagedQuery) Values() (url.Values, error) {
	v := url.Values{}

	if q.Page != nil {
		v.Set("page", strconv.Itoa(*q.Page))
	}
	if q.Size != nil {
		v.Set("size", strconv.Itoa(*q.Size))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Direction != "" {
		v.Set("direction", q.Direction)
	}
	if q.Active != nil {
		v.Set("active", strconv.FormatBool(*q.Active))
	}

	for k, raw := range q.Filters {
		if k == "" {
			continue
		}
		s, ok, err := queryValue(raw)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", k, err)
		}
		if ok {
			v.Set(k, s)
		}
	}

	return v, nil
}

// queryValue stringifies a filter value; ok is false when it must be omitted.
func queryValue(raw any) (string, bool, error) {
	if raw == nil {
		return "", false, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false, nil
		}
		raw = rv.Elem().Interface()
	}

	if t, isTime := raw.(time.Time); isTime {
		if t.IsZero() {
			return "", false, nil
		}
		return t.Format(time.DateOnly), true, nil
	}

	s, err := cast.ToStringE(raw)
	if err != nil {
		return "", false, err
	}
	if s == "" {
		return "", false, nil
	}
	return s, true, nil
}
