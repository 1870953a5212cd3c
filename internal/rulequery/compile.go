package rulequery

import (
	"fmt"
	"slices"
	"strings"
)

// Table is the index table every query reads.
const Table = "rule_index"

// Columns is the fixed projection of every compiled query.
var Columns = []string{
	"doc_id", "position", "rule_id", "name", "enabled", "source_object_id",
	"source_event", "target_object_id", "target_action", "handler", "priority",
}

// Compile converts q to parameterized SQL. Values are never interpolated
// and every query orders by (doc_id, position), so results are stable.
func Compile(q Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	var sel Select
	switch query := q.(type) {
	case Select:
		sel = query
	case *Select:
		sel = *query
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
	if sel.Limit < 0 {
		return "", nil, fmt.Errorf("limit must be non-negative, got %d", sel.Limit)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(Columns, ", "), Table)

	var params []any
	if sel.Filter != nil {
		where, whereParams, err := compilePredicate(sel.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = whereParams
	}

	b.WriteString(" ORDER BY doc_id COLLATE BINARY ASC, position ASC")
	if sel.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, sel.Limit)
	}

	return b.String(), params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case Equals:
		return compileEquals(pred)
	case *Equals:
		return compileEquals(*pred)
	case Involves:
		return compileInvolves(pred)
	case *Involves:
		return compileInvolves(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq Equals) (string, []any, error) {
	if !slices.Contains(Fields, eq.Field) {
		return "", nil, fmt.Errorf("unknown field %q", eq.Field)
	}
	param, err := toParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", eq.Field, err)
	}
	return fmt.Sprintf("%s = ?", eq.Field), []any{param}, nil
}

func compileInvolves(in Involves) (string, []any, error) {
	if in.Object == "" {
		return "", nil, fmt.Errorf("involves: object is required")
	}
	return "(source_object_id = ? OR target_object_id = ?)", []any{in.Object, in.Object}, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// toParam narrows v to a type the sqlite3 driver binds directly.
func toParam(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return val, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case nil:
		return nil, fmt.Errorf("NULL never matches; compare against a value")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
