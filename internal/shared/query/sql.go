package query

import (
	"fmt"
	"strings"
)

// Rendered is a Spec translated to SQL fragments with $n placeholders.
// Where has no leading WHERE keyword and is empty when there are no clauses.
type Rendered struct {
	Where   string
	OrderBy string
	Args    []any
	NextArg int
}

// SQL renders s using columns to map logical fields to SQL columns.
// Placeholders start at startArg.
func (s Spec) SQL(columns map[string]string, startArg int) (Rendered, error) {
	out := Rendered{NextArg: startArg}
	col := func(field string) (string, error) {
		c, ok := columns[field]
		if !ok {
			return "", fmt.Errorf("query: no column for field %q", field)
		}
		return c, nil
	}
	next := func(v any) string {
		out.Args = append(out.Args, v)
		ph := fmt.Sprintf("$%d", out.NextArg)
		out.NextArg++
		return ph
	}

	var conds []string
	for _, cl := range s.Clauses {
		switch cl.Op {
		case OpContains:
			term, _ := cl.Value.(string)
			ph := next("%" + escapeLike(term) + "%")
			ors := make([]string, 0, len(cl.Fields))
			for _, f := range cl.Fields {
				c, err := col(f)
				if err != nil {
					return Rendered{}, err
				}
				ors = append(ors, fmt.Sprintf("COALESCE(%s, '') ILIKE %s", c, ph))
			}
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		case OpIn:
			c, err := col(cl.Fields[0])
			if err != nil {
				return Rendered{}, err
			}
			values, _ := cl.Value.([]string)
			if len(values) == 0 {
				conds = append(conds, "FALSE")
				continue
			}
			phs := make([]string, 0, len(values))
			for _, v := range values {
				phs = append(phs, next(v))
			}
			conds = append(conds, fmt.Sprintf("%s IN (%s)", c, strings.Join(phs, ", ")))
		default:
			c, err := col(cl.Fields[0])
			if err != nil {
				return Rendered{}, err
			}
			conds = append(conds, fmt.Sprintf("%s %s %s", c, sqlOp(cl.Op), next(cl.Value)))
		}
	}
	out.Where = strings.Join(conds, " AND ")

	if s.Sort.Field != "" {
		c, err := col(s.Sort.Field)
		if err != nil {
			return Rendered{}, err
		}
		dir := "ASC"
		if s.Sort.Desc {
			dir = "DESC"
		}
		out.OrderBy = fmt.Sprintf("%s %s NULLS LAST", c, dir)
		// id keeps LIMIT/OFFSET pages stable when sort values tie.
		if idCol, ok := columns[FieldID]; ok && s.Sort.Field != FieldID {
			out.OrderBy += fmt.Sprintf(", %s %s", idCol, dir)
		}
	}
	return out, nil
}

func sqlOp(op Op) string {
	switch op {
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "="
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
