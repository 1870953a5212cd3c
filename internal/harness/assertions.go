package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/blocktrigger/internal/ir"
	"github.com/roach88/blocktrigger/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Calls    []string // Full call log for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Calls) > 0 {
		fmt.Fprintf(&buf, "\nCalls:\n")
		for i, call := range e.Calls {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, call)
		}
	}

	return buf.String()
}

// assertCallContains checks if the call log contains the call.
func assertCallContains(calls []string, assertion Assertion) error {
	for _, call := range calls {
		if call == assertion.Call {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertCallContains,
		Expected: assertion.Call,
		Actual:   "not found in call log",
		Calls:    calls,
	}
}

// assertCallOrder checks if calls appear in the specified order.
// Calls don't need to be consecutive (intervening calls are allowed), and
// a call listed twice must occur twice.
func assertCallOrder(calls []string, assertion Assertion) error {
	next := 0
	for _, call := range calls {
		if next < len(assertion.Calls) && call == assertion.Calls[next] {
			next++
		}
	}

	if next == len(assertion.Calls) {
		return nil
	}

	actual := fmt.Sprintf("%s not found", assertion.Calls[next])
	if next > 0 {
		actual = fmt.Sprintf("%s not found after %s", assertion.Calls[next], assertion.Calls[next-1])
	}
	return &AssertionError{
		Type:     AssertCallOrder,
		Expected: fmt.Sprintf("calls in order: %v", assertion.Calls),
		Actual:   actual,
		Calls:    calls,
	}
}

// assertCallCount checks if the call appears exactly the specified number of times.
func assertCallCount(calls []string, assertion Assertion) error {
	count := 0
	for _, call := range calls {
		if call == assertion.Call {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Call),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Calls:    calls,
		}
	}

	return nil
}

// assertVariableEquals compares a final variable value with the expected
// one using IR equality, so 3 and 3.0 are the same number.
func assertVariableEquals(variables map[string]any, assertion Assertion) error {
	raw, ok := variables[assertion.Variable]
	if !ok {
		return &AssertionError{
			Type:     AssertVariableEquals,
			Expected: fmt.Sprintf("variable %s set", assertion.Variable),
			Actual:   "variable is unset",
		}
	}

	actual, err := ir.FromAny(raw)
	if err != nil {
		return fmt.Errorf("variable %s: %w", assertion.Variable, err)
	}
	expected, err := ir.FromAny(assertion.Value)
	if err != nil {
		return fmt.Errorf("variable_equals %s: expected value: %w", assertion.Variable, err)
	}

	if !ir.Equal(expected, actual) {
		return &AssertionError{
			Type:     AssertVariableEquals,
			Expected: fmt.Sprintf("%s = %s", assertion.Variable, testutil.FormatValue(expected)),
			Actual:   fmt.Sprintf("%s = %s", assertion.Variable, testutil.FormatValue(actual)),
		}
	}

	return nil
}

func assertStateEquals(states map[string]string, assertion Assertion) error {
	state, ok := states[assertion.Object]
	if !ok {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("%s in state %s", assertion.Object, assertion.State),
			Actual:   "object has no state",
		}
	}
	if state != assertion.State {
		return &AssertionError{
			Type:     AssertStateEquals,
			Expected: fmt.Sprintf("%s in state %s", assertion.Object, assertion.State),
			Actual:   fmt.Sprintf("%s in state %s", assertion.Object, state),
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCallContains:
			err = assertCallContains(result.Calls, assertion)
		case AssertCallOrder:
			err = assertCallOrder(result.Calls, assertion)
		case AssertCallCount:
			err = assertCallCount(result.Calls, assertion)
		case AssertVariableEquals:
			err = assertVariableEquals(result.Variables, assertion)
		case AssertStateEquals:
			err = assertStateEquals(result.States, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
