// Package rulequery describes searches over indexed trigger rules and
// compiles them to parameterized SQLite.
//
// A query is a Select with an optional predicate tree:
//
//	Select{Filter: And{Predicates: []Predicate{
//	  Equals{Field: FieldTarget, Value: "panel1"},
//	  Equals{Field: FieldEnabled, Value: true},
//	}}}
//
// compiles to
//
//	SELECT ... FROM rule_index WHERE target_object_id = ? AND enabled = ?
//	ORDER BY doc_id COLLATE BINARY ASC, position ASC
package rulequery

// Field names an indexed rule column.
type Field string

const (
	FieldDocument Field = "doc_id"
	FieldRule     Field = "rule_id"
	FieldName     Field = "name"
	FieldEnabled  Field = "enabled"
	FieldSource   Field = "source_object_id"
	FieldEvent    Field = "source_event"
	FieldTarget   Field = "target_object_id"
	FieldAction   Field = "target_action"
	FieldHandler  Field = "handler"
	FieldPriority Field = "priority"
)

// Fields lists every searchable field in column order.
var Fields = []Field{
	FieldDocument, FieldRule, FieldName, FieldEnabled, FieldSource,
	FieldEvent, FieldTarget, FieldAction, FieldHandler, FieldPriority,
}

// Query is a sealed search node.
type Query interface {
	queryNode()
}

// Predicate is a sealed filter node.
type Predicate interface {
	predicateNode()
}

// Select returns the indexed rules matching Filter. A nil Filter matches
// every rule. Limit caps the number of rows; zero means no cap.
type Select struct {
	Filter Predicate
	Limit  int
}

func (Select) queryNode() {}

// Equals matches rows whose Field equals Value. Value must be a string,
// bool or integer.
type Equals struct {
	Field Field
	Value any
}

func (Equals) predicateNode() {}

// Involves matches rules that read from or act on Object, mirroring the
// engine's RulesForObject.
type Involves struct {
	Object string
}

func (Involves) predicateNode() {}

// And matches when every predicate matches. An empty And matches all rows.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Match builds the common query: each non-empty value becomes an Equals
// on its field.
func Match(filters map[Field]string) Select {
	var preds []Predicate
	for _, f := range Fields {
		if v, ok := filters[f]; ok && v != "" {
			preds = append(preds, Equals{Field: f, Value: v})
		}
	}
	if len(preds) == 0 {
		return Select{}
	}
	return Select{Filter: And{Predicates: preds}}
}
