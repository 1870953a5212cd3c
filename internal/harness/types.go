package harness

// TraceEvent records what one scenario step did.
type TraceEvent struct {
	// Step is the 1-based step index.
	Step int `json:"step"`

	// Op is the step's operation name (emit, advance, ...).
	Op string `json:"op"`

	// Matched lists events that matched at least one enabled rule while the
	// step ran, rendered as object:event.
	Matched []string `json:"matched"`

	// Calls lists host calls made while the step ran.
	Calls []string `json:"calls"`

	// Error is the step's error, if any. Failed actions are logged by the
	// engine and do not surface here; they still show up in Calls.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if no step failed and every assertion held.
	Pass bool `json:"pass"`

	// Trace contains one entry per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Calls is the full host call log.
	Calls []string `json:"calls"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// States and Variables are the host state after the last step.
	States    map[string]string `json:"states"`
	Variables map[string]any    `json:"variables"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Calls:     []string{},
		Errors:    []string{},
		States:    make(map[string]string),
		Variables: make(map[string]any),
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
