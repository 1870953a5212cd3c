package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a replayable trigger scenario.
// A scenario loads a rule document into a fresh engine, seeds the
// in-memory host state, drives it through a list of steps and asserts on
// the recorded host calls and the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules is an inline rule list, in the same shape as the "rules" key of
	// a YAML rule document. Exactly one of Rules and RulesFile is set.
	Rules []any `yaml:"rules,omitempty"`

	// RulesFile is a rule document (.cue, .json, .yaml) relative to the
	// scenario file.
	RulesFile string `yaml:"rules_file,omitempty"`

	// Initial seeds the host state before the first step. Seeding does not
	// record calls or echo events.
	Initial InitialState `yaml:"initial,omitempty"`

	// Handlers names custom action handlers to register. Each records a
	// custom(target, handler, data) call when invoked.
	Handlers []string `yaml:"handlers,omitempty"`

	// Echo controls whether host mutations are echoed back into the engine
	// as state-enter/state-exit/variable-change events. Defaults to true.
	Echo *bool `yaml:"echo,omitempty"`

	// HaltOnError stops running an event's remaining rules after a failed
	// action.
	HaltOnError bool `yaml:"halt_on_error,omitempty"`

	// MaxCascade overrides the engine's cascade limit. Zero keeps the default.
	MaxCascade int `yaml:"max_cascade,omitempty"`

	// Fail injects host call failures, keyed the same way as calls are
	// rendered: method name plus optional target.
	Fail []FailSpec `yaml:"fail,omitempty"`

	// Steps drive the engine in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the recorded calls and final state.
	// Supported types: call_contains, call_order, call_count,
	// variable_equals, state_equals
	Assertions []Assertion `yaml:"assertions"`

	// baseDir is the directory RulesFile is resolved against.
	baseDir string
}

// InitialState seeds the in-memory host before the run.
type InitialState struct {
	States    map[string]string `yaml:"states,omitempty"`
	Variables map[string]any    `yaml:"variables,omitempty"`
	Hidden    []string          `yaml:"hidden,omitempty"`
	Playing   []string          `yaml:"playing,omitempty"`
}

// FailSpec makes a host method fail. An empty Target fails every call.
type FailSpec struct {
	Method  string `yaml:"method"`
	Target  string `yaml:"target,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// Step is one scenario operation. Exactly one field is set.
type Step struct {
	// Emit raises an event on an object.
	Emit *EmitStep `yaml:"emit,omitempty"`

	// Advance moves the fake scheduler forward, firing due timers.
	// Uses time.ParseDuration syntax ("1500ms", "2s").
	Advance string `yaml:"advance,omitempty"`

	// Set changes host state directly, without recording or echoing.
	Set *SetStep `yaml:"set,omitempty"`

	// Schedule arms a rule's timer.
	Schedule *ScheduleStep `yaml:"schedule,omitempty"`

	// Cancel cancels a rule's pending timer.
	Cancel string `yaml:"cancel,omitempty"`

	EnableRule  string `yaml:"enable_rule,omitempty"`
	DisableRule string `yaml:"disable_rule,omitempty"`

	// ExpectError, when set, requires the step to fail with an error
	// containing this text. The failure is then not a scenario error.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// EmitStep raises Event on Object. Event uses the rule document's event
// shape, e.g. {type: state-enter, stateId: open}.
type EmitStep struct {
	Object string         `yaml:"object"`
	Event  map[string]any `yaml:"event"`
}

// SetStep seeds one piece of host state mid-scenario.
type SetStep struct {
	Object   string `yaml:"object,omitempty"`
	State    string `yaml:"state,omitempty"`
	Visible  *bool  `yaml:"visible,omitempty"`
	Playing  *bool  `yaml:"playing,omitempty"`
	Variable string `yaml:"variable,omitempty"`
	Value    any    `yaml:"value,omitempty"`
}

// ScheduleStep arms Rule's timer to fire on Object after Delay.
type ScheduleStep struct {
	Rule   string `yaml:"rule"`
	Object string `yaml:"object"`
	Delay  string `yaml:"delay"`
}

// Step operation names, as reported in the trace.
const (
	OpEmit        = "emit"
	OpAdvance     = "advance"
	OpSet         = "set"
	OpSchedule    = "schedule"
	OpCancel      = "cancel"
	OpEnableRule  = "enable_rule"
	OpDisableRule = "disable_rule"
)

// Op returns the step's operation name, or "" if the step is empty.
func (s Step) Op() string {
	switch {
	case s.Emit != nil:
		return OpEmit
	case s.Advance != "":
		return OpAdvance
	case s.Set != nil:
		return OpSet
	case s.Schedule != nil:
		return OpSchedule
	case s.Cancel != "":
		return OpCancel
	case s.EnableRule != "":
		return OpEnableRule
	case s.DisableRule != "":
		return OpDisableRule
	}
	return ""
}

func (s Step) opCount() int {
	n := 0
	for _, set := range []bool{
		s.Emit != nil,
		s.Advance != "",
		s.Set != nil,
		s.Schedule != nil,
		s.Cancel != "",
		s.EnableRule != "",
		s.DisableRule != "",
	} {
		if set {
			n++
		}
	}
	return n
}

// Assertion validates recorded calls or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "call_contains": Call appears in the call log
	// - "call_order": Calls appear in order (not necessarily adjacent)
	// - "call_count": Call appears exactly Count times
	// - "variable_equals": Variable holds Value at the end
	// - "state_equals": Object is in State at the end
	Type string `yaml:"type"`

	// Call is a rendered host call, e.g. "setObjectState(panel1, open)".
	Call string `yaml:"call,omitempty"`

	// Calls is the expected call order (used by call_order).
	Calls []string `yaml:"calls,omitempty"`

	// Count is the expected number of occurrences (used by call_count).
	Count int `yaml:"count,omitempty"`

	Variable string `yaml:"variable,omitempty"`
	Value    any    `yaml:"value,omitempty"`

	Object string `yaml:"object,omitempty"`
	State  string `yaml:"state,omitempty"`
}

// Assertion type constants.
const (
	AssertCallContains   = "call_contains"
	AssertCallOrder      = "call_order"
	AssertCallCount      = "call_count"
	AssertVariableEquals = "variable_equals"
	AssertStateEquals    = "state_equals"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// RulesFile is resolved relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.baseDir = filepath.Dir(path)

	if scenario.RulesFile != "" {
		if _, err := os.Stat(scenario.resolveRulesFile()); err != nil {
			return nil, fmt.Errorf("invalid scenario: rules file not found: %s", scenario.RulesFile)
		}
	}

	return scenario, nil
}

// ParseScenario decodes and validates a scenario from YAML bytes.
// A RulesFile in the result resolves against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func (s *Scenario) resolveRulesFile() string {
	if filepath.IsAbs(s.RulesFile) || s.baseDir == "" {
		return s.RulesFile
	}
	return filepath.Join(s.baseDir, s.RulesFile)
}

func (s *Scenario) echoEnabled() bool {
	return s.Echo == nil || *s.Echo
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case len(s.Rules) == 0 && s.RulesFile == "":
		return fmt.Errorf("one of rules or rules_file is required")
	case len(s.Rules) > 0 && s.RulesFile != "":
		return fmt.Errorf("rules and rules_file are mutually exclusive")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.MaxCascade < 0 {
		return fmt.Errorf("max_cascade must be non-negative")
	}

	for i, h := range s.Handlers {
		if h == "" {
			return fmt.Errorf("handlers[%d]: name is required", i)
		}
	}

	for i, f := range s.Fail {
		if f.Method == "" {
			return fmt.Errorf("fail[%d]: method is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that a step names exactly one operation and that
// the operation's operands are present.
func validateStep(index int, s *Step) error {
	switch n := s.opCount(); {
	case n == 0:
		return fmt.Errorf("steps[%d]: an operation is required", index)
	case n > 1:
		return fmt.Errorf("steps[%d]: exactly one operation is allowed, got %d", index, n)
	}

	switch s.Op() {
	case OpEmit:
		if s.Emit.Object == "" {
			return fmt.Errorf("steps[%d].emit: object is required", index)
		}
		if len(s.Emit.Event) == 0 {
			return fmt.Errorf("steps[%d].emit: event is required", index)
		}
	case OpAdvance:
		d, err := time.ParseDuration(s.Advance)
		if err != nil {
			return fmt.Errorf("steps[%d].advance: %w", index, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d].advance: duration must be non-negative", index)
		}
	case OpSet:
		return validateSet(index, s.Set)
	case OpSchedule:
		if s.Schedule.Rule == "" {
			return fmt.Errorf("steps[%d].schedule: rule is required", index)
		}
		if s.Schedule.Object == "" {
			return fmt.Errorf("steps[%d].schedule: object is required", index)
		}
		if _, err := time.ParseDuration(s.Schedule.Delay); err != nil {
			return fmt.Errorf("steps[%d].schedule.delay: %w", index, err)
		}
	}

	return nil
}

func validateSet(index int, s *SetStep) error {
	n := 0
	if s.State != "" {
		n++
	}
	if s.Visible != nil {
		n++
	}
	if s.Playing != nil {
		n++
	}
	if s.Variable != "" {
		n++
	}
	if n != 1 {
		return fmt.Errorf("steps[%d].set: exactly one of state, visible, playing or variable is required", index)
	}
	if s.Variable == "" && s.Object == "" {
		return fmt.Errorf("steps[%d].set: object is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCallContains:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for call_contains", index)
		}
	case AssertCallOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for call_order", index)
		}
	case AssertCallCount:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for call_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for call_count", index)
		}
	case AssertVariableEquals:
		if a.Variable == "" {
			return fmt.Errorf("assertions[%d]: variable is required for variable_equals", index)
		}
	case AssertStateEquals:
		if a.Object == "" {
			return fmt.Errorf("assertions[%d]: object is required for state_equals", index)
		}
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for state_equals", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
