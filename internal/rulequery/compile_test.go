package rulequery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectPrefix = "SELECT doc_id, position, rule_id, name, enabled, source_object_id, source_event, target_object_id, target_action, handler, priority FROM rule_index"

const orderBy = " ORDER BY doc_id COLLATE BINARY ASC, position ASC"

func TestCompile_NoFilter(t *testing.T) {
	sql, params, err := Compile(Select{})
	require.NoError(t, err)
	assert.Equal(t, selectPrefix+orderBy, sql)
	assert.Empty(t, params)
}

func TestCompile_Equals(t *testing.T) {
	sql, params, err := Compile(Select{
		Filter: Equals{Field: FieldTarget, Value: "panel1"},
	})
	require.NoError(t, err)

	assert.Equal(t, selectPrefix+" WHERE target_object_id = ?"+orderBy, sql)
	assert.NotContains(t, sql, "panel1") // Value NOT in SQL
	assert.Equal(t, []any{"panel1"}, params)
}

func TestCompile_Pointers(t *testing.T) {
	sql, params, err := Compile(&Select{
		Filter: &And{Predicates: []Predicate{
			&Equals{Field: FieldEnabled, Value: true},
			&Involves{Object: "video1"},
		}},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE enabled = ? AND (source_object_id = ? OR target_object_id = ?)")
	assert.Equal(t, []any{true, "video1", "video1"}, params)
}

func TestCompile_AndPreservesOrder(t *testing.T) {
	sql, params, err := Compile(Select{
		Filter: And{Predicates: []Predicate{
			Equals{Field: FieldSource, Value: "quiz1"},
			Equals{Field: FieldEvent, Value: "quiz-correct"},
			Equals{Field: FieldPriority, Value: 2},
		}},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "source_object_id = ? AND source_event = ? AND priority = ?")
	assert.Equal(t, []any{"quiz1", "quiz-correct", int64(2)}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := Compile(Select{Filter: And{}})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 1")
	assert.Empty(t, params)
}

func TestCompile_Limit(t *testing.T) {
	sql, params, err := Compile(Select{
		Filter: Equals{Field: FieldAction, Value: "custom"},
		Limit:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, selectPrefix+" WHERE target_action = ?"+orderBy+" LIMIT ?", sql)
	assert.Equal(t, []any{"custom", 5}, params)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr string
	}{
		{"nil query", nil, "cannot compile nil query"},
		{"negative limit", Select{Limit: -1}, "limit must be non-negative"},
		{"unknown field", Select{Filter: Equals{Field: "body", Value: "x"}}, `unknown field "body"`},
		{"null value", Select{Filter: Equals{Field: FieldName, Value: nil}}, "NULL never matches"},
		{"float value", Select{Filter: Equals{Field: FieldPriority, Value: 1.5}}, "unsupported value type float64"},
		{"empty involves", Select{Filter: Involves{}}, "object is required"},
		{"nested error", Select{Filter: And{Predicates: []Predicate{
			Equals{Field: FieldRule, Value: "a"},
			Equals{Field: "sql", Value: "b"},
		}}}, `unknown field "sql"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Compile(tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMatch(t *testing.T) {
	assert.Equal(t, Select{}, Match(nil))
	assert.Equal(t, Select{}, Match(map[Field]string{FieldTarget: ""}))

	q := Match(map[Field]string{
		FieldTarget: "panel1",
		FieldSource: "button1",
	})
	require.NotNil(t, q.Filter)

	// Field order follows Fields, not map iteration.
	sql, params, err := Compile(q)
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE source_object_id = ? AND target_object_id = ?")
	assert.Equal(t, []any{"button1", "panel1"}, params)
}
