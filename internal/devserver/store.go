package devserver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// store is an in-memory collection of JSON objects keyed by id.
type store struct {
	mu    sync.Mutex
	next  int64
	items map[string]map[string]any
	order []string
}

func newStore() *store {
	return &store{items: make(map[string]map[string]any)}
}

// idKey renders an id as the map key, whatever JSON type it arrived as.
func idKey(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(id, 10)
	case int:
		return strconv.Itoa(id)
	default:
		return fmt.Sprint(id)
	}
}

func clone(rec map[string]any) map[string]any {
	cp := make(map[string]any, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	return cp
}

func (s *store) insert(rec map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	rec = clone(rec)
	rec["id"] = s.next
	key := idKey(s.next)
	s.items[key] = rec
	s.order = append(s.order, key)
	return clone(rec)
}

func (s *store) get(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return clone(rec), true
}

func (s *store) replace(rec map[string]any) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := idKey(rec["id"])
	old, ok := s.items[key]
	if !ok {
		return nil, false
	}
	rec = clone(rec)
	rec["id"] = old["id"]
	s.items[key] = rec
	return clone(rec), true
}

func (s *store) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, k := range s.order {
		if k == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// all returns the records in insertion order.
func (s *store) all() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]any, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, clone(s.items[k]))
	}
	return out
}

// find returns the first record whose field matches value.
func (s *store) find(field string, value any) (map[string]any, bool) {
	want := idKey(value)
	for _, rec := range s.all() {
		if idKey(rec[field]) == want {
			return rec, true
		}
	}
	return nil, false
}

// conflicts reports whether a record other than id holds value in field.
func (s *store) conflicts(id, field string, value any) bool {
	want := strings.ToLower(fmt.Sprint(value))
	for _, rec := range s.all() {
		if idKey(rec["id"]) == id {
			continue
		}
		if v, ok := rec[field]; ok && strings.ToLower(fmt.Sprint(v)) == want {
			return true
		}
	}
	return false
}

func matchesActive(rec map[string]any, active bool) bool {
	v, ok := rec["active"].(bool)
	return ok && v == active
}

// sortRecords orders by field, numerically when both values are numbers.
func sortRecords(recs []map[string]any, field string, desc bool) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i][field], recs[j][field]
		if desc {
			a, b = b, a
		}
		if fa, okA := number(a); okA {
			if fb, okB := number(b); okB {
				return fa < fb
			}
		}
		return strings.ToLower(fmt.Sprint(a)) < strings.ToLower(fmt.Sprint(b))
	})
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
