package query

import (
	"sort"
	"strings"
	"time"
)

// Record exposes logical fields to in-memory evaluation. Supported value
// types are string, bool, time.Time and *time.Time.
type Record interface {
	FieldValue(name string) any
}

// Match reports whether r satisfies every clause.
func (s Spec) Match(r Record) bool {
	for _, cl := range s.Clauses {
		if !matchClause(cl, r) {
			return false
		}
	}
	return true
}

func matchClause(cl Clause, r Record) bool {
	switch cl.Op {
	case OpContains:
		term := strings.ToLower(cl.Value.(string))
		for _, f := range cl.Fields {
			if v, ok := r.FieldValue(f).(string); ok && strings.Contains(strings.ToLower(v), term) {
				return true
			}
		}
		return false
	case OpIn:
		v, _ := r.FieldValue(cl.Fields[0]).(string)
		for _, want := range cl.Value.([]string) {
			if v == want {
				return true
			}
		}
		return false
	case OpEq:
		return r.FieldValue(cl.Fields[0]) == cl.Value
	default:
		t, ok := asTime(r.FieldValue(cl.Fields[0]))
		bound, _ := cl.Value.(time.Time)
		if !ok {
			return false
		}
		switch cl.Op {
		case OpGte:
			return !t.Before(bound)
		case OpLt:
			return t.Before(bound)
		case OpLte:
			return !t.After(bound)
		}
	}
	return false
}

// SortRecords orders items in place by s.Sort, then by id in the same
// direction. Missing values sort last.
func SortRecords[T Record](items []T, s Spec) {
	if s.Sort.Field == "" {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].FieldValue(s.Sort.Field), items[j].FieldValue(s.Sort.Field)
		c, aNil, bNil := compare(a, b)
		if aNil || bNil {
			if aNil != bNil {
				return bNil
			}
			c = 0
		}
		if c == 0 && s.Sort.Field != FieldID {
			idA, _ := items[i].FieldValue(FieldID).(string)
			idB, _ := items[j].FieldValue(FieldID).(string)
			c = strings.Compare(idA, idB)
		}
		if s.Sort.Desc {
			return c > 0
		}
		return c < 0
	})
}

// Window returns the page of items selected by s.Page and s.Limit.
func Window[T any](items []T, s Spec) []T {
	if s.Limit <= 0 {
		return items
	}
	start := s.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + s.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func compare(a, b any) (int, bool, bool) {
	if ta, ok := asTime(a); ok || isNilTime(a) {
		tb, okb := asTime(b)
		if !ok || !okb {
			return 0, !ok, !okb
		}
		return ta.Compare(tb), false, false
	}
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(strings.ToLower(av), strings.ToLower(bv)), false, false
	case bool:
		bv, _ := b.(bool)
		switch {
		case av == bv:
			return 0, false, false
		case av:
			return 1, false, false
		default:
			return -1, false, false
		}
	}
	return 0, a == nil, b == nil
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

func isNilTime(v any) bool {
	t, ok := v.(*time.Time)
	return ok && t == nil
}
