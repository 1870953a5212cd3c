package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. RuleError values wrap the matching sentinel so callers
// can use errors.Is.
var (
	ErrRuleNotFound     = errors.New("rule not found")
	ErrEngineStopped    = errors.New("engine stopped")
	ErrUnknownHandler   = errors.New("unknown custom handler")
	ErrDuplicateHandler = errors.New("custom handler already registered")

	errMissingID = errors.New("id is required")
)

// RuleError reports a rejected rule registration, update or import.
//
// RuleError includes structured fields for diagnostics:
//   - Code identifies the category
//   - RuleID names the affected rule when one is known
//   - Suggestions lists close handler names for UNKNOWN_HANDLER
type RuleError struct {
	// Code identifies the error category.
	Code RuleErrorCode

	// Message is a human-readable description.
	Message string

	// RuleID identifies the affected rule, if any.
	RuleID string

	// Suggestions holds "did you mean" candidates.
	Suggestions []string

	// Err is the underlying cause.
	Err error
}

// RuleErrorCode categorizes rule errors.
type RuleErrorCode string

const (
	// ErrCodeInvalidRule indicates a rule failed structural validation.
	ErrCodeInvalidRule RuleErrorCode = "INVALID_RULE"

	// ErrCodeUnknownHandler indicates a custom action names no registered handler.
	ErrCodeUnknownHandler RuleErrorCode = "UNKNOWN_HANDLER"

	// ErrCodeDuplicateID indicates a rule id is already taken.
	ErrCodeDuplicateID RuleErrorCode = "DUPLICATE_ID"

	// ErrCodeRuleNotFound indicates the referenced rule does not exist.
	ErrCodeRuleNotFound RuleErrorCode = "RULE_NOT_FOUND"
)

// Error implements the error interface.
func (e *RuleError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.RuleID != "" {
		fmt.Fprintf(&b, " (rule=%s)", e.RuleID)
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	if e.Err != nil && e.Code == ErrCodeInvalidRule {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *RuleError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuleErrorCode) bool {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsInvalidRule returns true if the error is a rule validation error.
func IsInvalidRule(err error) bool {
	return hasCode(err, ErrCodeInvalidRule)
}

// IsUnknownHandler returns true if the error names an unregistered handler.
func IsUnknownHandler(err error) bool {
	return hasCode(err, ErrCodeUnknownHandler) || errors.Is(err, ErrUnknownHandler)
}

// IsDuplicateID returns true if the error is a duplicate rule id error.
func IsDuplicateID(err error) bool {
	return hasCode(err, ErrCodeDuplicateID)
}

// IsRuleNotFound returns true if the error is a missing rule error.
func IsRuleNotFound(err error) bool {
	return hasCode(err, ErrCodeRuleNotFound) || errors.Is(err, ErrRuleNotFound)
}

// NewInvalidRuleError creates a RuleError for a rule that failed validation.
func NewInvalidRuleError(ruleID string, cause error) *RuleError {
	return &RuleError{
		Code:    ErrCodeInvalidRule,
		Message: "rule failed validation",
		RuleID:  ruleID,
		Err:     cause,
	}
}

// NewRuleNotFoundError creates a RuleError for a missing rule id.
func NewRuleNotFoundError(ruleID string) *RuleError {
	return &RuleError{
		Code:    ErrCodeRuleNotFound,
		Message: "no rule with this id",
		RuleID:  ruleID,
		Err:     ErrRuleNotFound,
	}
}

// NewDuplicateIDError creates a RuleError for a rule id already in use.
func NewDuplicateIDError(ruleID string) *RuleError {
	return &RuleError{
		Code:    ErrCodeDuplicateID,
		Message: "rule id already in use",
		RuleID:  ruleID,
	}
}

// NewUnknownHandlerError creates a RuleError for a custom action whose
// handler is not registered.
func NewUnknownHandlerError(ruleID, handler string, suggestions []string) *RuleError {
	return &RuleError{
		Code:        ErrCodeUnknownHandler,
		Message:     fmt.Sprintf("custom handler %q is not registered", handler),
		RuleID:      ruleID,
		Suggestions: suggestions,
		Err:         ErrUnknownHandler,
	}
}
