// Package query turns list-endpoint parameters into a storage-agnostic
// filter Spec. Postgres repositories render a Spec to SQL and memory
// repositories evaluate it as a predicate, so both honour the same rules.
package query

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Params are the raw list parameters as received on the query string or body.
type Params struct {
	Search    string `form:"search" json:"search"`
	Status    string `form:"status" json:"status"`
	Flagged   Flag   `form:"flagged" json:"flagged"`
	Starred   Flag   `form:"starred" json:"starred"`
	SortBy    string `form:"sortBy" json:"sortBy"`
	SortOrder string `form:"sortOrder" json:"sortOrder"`
	AdminID   string `form:"adminId" json:"adminId"`
	DateFrom  string `form:"dateFrom" json:"dateFrom"`
	DateTo    string `form:"dateTo" json:"dateTo"`
	Page      string `form:"page" json:"page"`
	Limit     string `form:"limit" json:"limit"`
}

// Flag is a boolean-ish parameter. Only the value "true" enables a filter.
// JSON bodies may send it as a string or a bool.
type Flag string

func (f *Flag) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(strconv.FormatBool(b))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*f = ""
		return nil
	}
	*f = Flag(s)
	return nil
}

// Options describe what an entity supports.
type Options struct {
	SearchFields []string
	SortFields   []string
	DefaultSort  string
	DateField    string
	Flags        bool
	Paginate     bool
	DefaultLimit int
	MaxLimit     int
}

// Logical field names shared by every entity.
const (
	FieldStatus    = "status"
	FieldIsFlagged = "isFlagged"
	FieldIsStarred = "isStarred"
	FieldCreatedBy = "createdById"
	FieldID        = "id"
)

// Op is a comparison operator.
type Op int

const (
	OpContains Op = iota
	OpEq
	OpIn
	OpGte
	OpLt
	OpLte
)

// Clause is one condition. Contains clauses OR across Fields; every other
// op uses Fields[0].
type Clause struct {
	Op     Op
	Fields []string
	Value  any
}

// Sort is the requested ordering.
type Sort struct {
	Field string
	Desc  bool
}

// Spec is the full filter. Clauses are ANDed.
type Spec struct {
	Clauses []Clause
	Sort    Sort
	Page    int
	Limit   int
}

// Build converts params into a Spec according to opts. Unknown sort fields
// fall back to the default and unparseable dates are ignored.
func Build(p Params, opts Options) Spec {
	var s Spec

	if term := strings.TrimSpace(p.Search); term != "" && len(opts.SearchFields) > 0 {
		s.Clauses = append(s.Clauses, Clause{Op: OpContains, Fields: opts.SearchFields, Value: term})
	}
	if status := strings.TrimSpace(p.Status); status != "" && status != "all" {
		s.Eq(FieldStatus, status)
	}
	if opts.Flags {
		if p.Flagged == "true" {
			s.Eq(FieldIsFlagged, true)
		}
		if p.Starred == "true" {
			s.Eq(FieldIsStarred, true)
		}
	}
	if opts.DateField != "" {
		if from, _, ok := parseDate(p.DateFrom); ok {
			s.Clauses = append(s.Clauses, Clause{Op: OpGte, Fields: []string{opts.DateField}, Value: from})
		}
		if to, dateOnly, ok := parseDate(p.DateTo); ok {
			if dateOnly {
				s.Clauses = append(s.Clauses, Clause{Op: OpLt, Fields: []string{opts.DateField}, Value: to.AddDate(0, 0, 1)})
			} else {
				s.Clauses = append(s.Clauses, Clause{Op: OpLte, Fields: []string{opts.DateField}, Value: to})
			}
		}
	}

	s.Sort = Sort{Field: opts.DefaultSort, Desc: true}
	for _, f := range opts.SortFields {
		if f == p.SortBy {
			s.Sort.Field = f
			break
		}
	}
	if p.SortOrder == "asc" {
		s.Sort.Desc = false
	}

	if opts.Paginate {
		s.Page = atoiDefault(p.Page, 1)
		if s.Page < 1 {
			s.Page = 1
		}
		s.Limit = atoiDefault(p.Limit, opts.DefaultLimit)
		if s.Limit < 1 {
			s.Limit = opts.DefaultLimit
		}
		if opts.MaxLimit > 0 && s.Limit > opts.MaxLimit {
			s.Limit = opts.MaxLimit
		}
	}
	return s
}

// Eq adds an equality clause.
func (s *Spec) Eq(field string, value any) {
	s.Clauses = append(s.Clauses, Clause{Op: OpEq, Fields: []string{field}, Value: value})
}

// In adds a membership clause over string values.
func (s *Spec) In(field string, values []string) {
	s.Clauses = append(s.Clauses, Clause{Op: OpIn, Fields: []string{field}, Value: values})
}

// Offset is the number of rows skipped by pagination.
func (s Spec) Offset() int {
	if s.Limit <= 0 || s.Page <= 1 {
		return 0
	}
	return (s.Page - 1) * s.Limit
}

// TotalPages returns ceil(total/limit), or 1 when unpaginated.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 1
	}
	return (total + limit - 1) / limit
}

func parseDate(raw string) (time.Time, bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, false
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), false, true
	}
	return time.Time{}, false, false
}

func atoiDefault(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}
