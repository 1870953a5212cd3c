package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/blocktrigger/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// TriggerRule errors (E101-E109)
	ErrRuleIDEmpty         = "E101" // id is required
	ErrDuplicateRuleID     = "E102" // id used by an earlier rule
	ErrSourceObjectEmpty   = "E103" // sourceObjectId is required
	ErrInvalidSourceEvent  = "E104" // event missing or lacking its operand
	ErrInvalidTargetAction = "E105" // action missing or lacking its operand
	ErrTargetObjectEmpty   = "E106" // action needs a target object
	ErrInvalidCondition    = "E107" // unknown condition type
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled IR against the semantic rules.
// Returns all errors found (does not fail-fast).
// Supports *Compiled, RuleDocument and TriggerRule.
func Validate(v any) []ValidationError {
	switch val := v.(type) {
	case *Compiled:
		return validateDocument(val.Document, val.Lines)
	case *ir.RuleDocument:
		return validateDocument(*val, nil)
	case ir.RuleDocument:
		return validateDocument(val, nil)
	case *ir.TriggerRule:
		return validateRule(*val, "rule", 0)
	case ir.TriggerRule:
		return validateRule(val, "rule", 0)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// validateDocument checks every rule and id uniqueness across the document.
func validateDocument(doc ir.RuleDocument, lines []int) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int, len(doc.Rules))

	for i, rule := range doc.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		line := 0
		if i < len(lines) {
			line = lines[i]
		}

		// E102: duplicate id
		if rule.ID != "" {
			if first, dup := seen[rule.ID]; dup {
				errs = append(errs, ValidationError{
					Field:   path + ".id",
					Message: fmt.Sprintf("duplicate rule id %q (first used by rules[%d])", rule.ID, first),
					Code:    ErrDuplicateRuleID,
					Line:    line,
				})
			} else {
				seen[rule.ID] = i
			}
		}

		errs = append(errs, validateRule(rule, path, line)...)
	}

	return errs
}

// validateRule validates a single trigger rule.
func validateRule(rule ir.TriggerRule, path string, line int) []ValidationError {
	var errs []ValidationError
	add := func(field, code, msg string) {
		errs = append(errs, ValidationError{Field: path + "." + field, Message: msg, Code: code, Line: line})
	}

	// E101: id is required in a document
	if strings.TrimSpace(rule.ID) == "" {
		add("id", ErrRuleIDEmpty, "id is required and must be non-empty")
	}

	// E103: source object
	if rule.SourceObjectID == "" {
		add("sourceObjectId", ErrSourceObjectEmpty, "sourceObjectId is required")
	}

	// E104: source event
	if err := ir.ValidateEvent(rule.SourceEvent); err != nil {
		add("sourceEvent", ErrInvalidSourceEvent, err.Error())
	}

	// E105/E106: action and its target
	if err := ir.ValidateAction(rule.TargetAction); err != nil {
		add("targetAction", ErrInvalidTargetAction, err.Error())
	} else if ir.NeedsTarget(rule.TargetAction.ActionType()) && rule.TargetObjectID == "" {
		add("targetObjectId", ErrTargetObjectEmpty,
			fmt.Sprintf("targetObjectId is required for %s", rule.TargetAction.ActionType()))
	}

	// E107: conditions
	for i, c := range rule.Conditions {
		if err := ir.ValidateCondition(c); err != nil {
			add(fmt.Sprintf("conditions[%d]", i), ErrInvalidCondition, err.Error())
		}
	}

	return errs
}
