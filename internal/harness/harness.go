package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/blocktrigger/internal/compiler"
	"github.com/roach88/blocktrigger/internal/engine"
	"github.com/roach88/blocktrigger/internal/ir"
	"github.com/roach88/blocktrigger/internal/testutil"
)

// Harness drives one scenario against a fresh engine.
// It runs with a fake scheduler and sequential rule ids so that every run
// of the same scenario records the same calls in the same order.
type Harness struct {
	engine    *engine.Engine
	host      *testutil.MemoryContext
	scheduler *testutil.FakeScheduler
	logger    *slog.Logger

	// matched collects object:event for the step being run.
	matched []string
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger     *slog.Logger
	maxCascade int
}

// WithLogger routes engine logs to l. By default logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithMaxCascade sets the cascade limit used when the scenario does not
// set max_cascade itself.
func WithMaxCascade(n int) Option {
	return func(c *runConfig) {
		c.maxCascade = n
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh engine and in-memory host for
// isolation.
//
// Execution flow:
// 1. Compile and validate the rule document
// 2. Build the engine, register handlers, load the rules
// 3. Seed the host and inject failures
// 4. Run the steps, tracing matched events and host calls per step
// 5. Snapshot the final state and evaluate assertions
//
// A returned error means the scenario could not be set up. Step and
// assertion failures are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	compiled, err := compileRules(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	if verrs := compiler.Validate(compiled); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, v := range verrs {
			msgs[i] = v.Error()
		}
		return nil, fmt.Errorf("invalid rules: %s", strings.Join(msgs, "; "))
	}

	h := &Harness{
		host:      testutil.NewMemoryContext(),
		scheduler: testutil.NewFakeScheduler(),
		logger:    cfg.logger,
	}

	engineOpts := []engine.EngineOption{
		engine.WithStateContext(h.host),
		engine.WithScheduler(h.scheduler),
		engine.WithIDGenerator(testutil.NewSequenceIDGenerator("rule")),
		engine.WithLogger(h.logger),
	}
	if scenario.HaltOnError {
		engineOpts = append(engineOpts, engine.WithHaltOnActionError())
	}
	maxCascade := cfg.maxCascade
	if scenario.MaxCascade > 0 {
		maxCascade = scenario.MaxCascade
	}
	if maxCascade > 0 {
		engineOpts = append(engineOpts, engine.WithMaxCascade(maxCascade))
	}
	h.engine = engine.New(engineOpts...)
	defer h.engine.Stop()

	// Handlers must exist before rules that name them are loaded.
	for _, name := range scenario.Handlers {
		if err := h.engine.RegisterHandler(name, h.recordingHandler(name)); err != nil {
			return nil, fmt.Errorf("failed to register handler %q: %w", name, err)
		}
	}

	if err := h.engine.FromDocument(compiled.Document); err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	if err := h.seed(scenario); err != nil {
		return nil, fmt.Errorf("failed to seed initial state: %w", err)
	}
	if scenario.echoEnabled() {
		h.host.BindEmitter(h.engine)
	}
	h.subscribe(compiled.Document.Rules)

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		h.matched = h.matched[:0]
		before := len(h.host.Calls())

		stepErr := h.runStep(ctx, step)

		event := TraceEvent{
			Step:    i + 1,
			Op:      step.Op(),
			Matched: append([]string{}, h.matched...),
			Calls:   h.host.CallStrings()[before:],
		}
		if stepErr != nil {
			event.Error = stepErr.Error()
		}
		result.Trace = append(result.Trace, event)

		if msg := checkStepError(step, stepErr); msg != "" {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i+1, step.Op(), msg))
		}
	}

	result.Calls = h.host.CallStrings()
	result.States = h.host.States()
	for name, v := range h.host.Variables() {
		result.Variables[name] = ir.ToAny(v)
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// compileRules runs the scenario's rules through the document compiler.
// Inline rules are re-encoded as a YAML document first so both forms get
// the same schema checks.
func compileRules(s *Scenario) (*compiler.Compiled, error) {
	if s.RulesFile != "" {
		return compiler.CompileFile(s.resolveRulesFile())
	}

	data, err := yaml.Marshal(map[string]any{"rules": s.Rules})
	if err != nil {
		return nil, fmt.Errorf("encode inline rules: %w", err)
	}
	return compiler.Compile(data, compiler.FormatYAML, s.Name+".yaml")
}

// recordingHandler returns a custom action handler that records a
// custom(target, name[, data]) call on the host.
func (h *Harness) recordingHandler(name string) engine.HandlerFunc {
	return func(_ context.Context, _ engine.StateContext, target string, data ir.Value) error {
		args := []string{name}
		if data != nil {
			args = append(args, testutil.FormatValue(data))
		}
		return h.host.RecordCall(testutil.Call{
			Method: testutil.MethodCustom,
			Target: target,
			Args:   args,
		})
	}
}

func (h *Harness) seed(s *Scenario) error {
	for obj, state := range s.Initial.States {
		h.host.PutState(obj, state)
	}
	for name, raw := range s.Initial.Variables {
		v, err := ir.FromAny(raw)
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
		h.host.PutVariable(name, v)
	}
	for _, obj := range s.Initial.Hidden {
		h.host.PutVisible(obj, false)
	}
	for _, obj := range s.Initial.Playing {
		h.host.PutPlaying(obj, true)
	}
	for _, f := range s.Fail {
		msg := f.Message
		if msg == "" {
			msg = "injected failure"
		}
		h.host.FailOn(f.Method, f.Target, errors.New(msg))
	}
	return nil
}

// subscribe listens on every rule source so each step can report which
// events matched.
func (h *Harness) subscribe(rules []ir.TriggerRule) {
	seen := make(map[string]bool)
	var sources []string
	for _, r := range rules {
		if !seen[r.SourceObjectID] {
			seen[r.SourceObjectID] = true
			sources = append(sources, r.SourceObjectID)
		}
	}
	sort.Strings(sources)

	for _, obj := range sources {
		h.engine.Subscribe(obj, func(objectID string, event ir.Event) {
			h.matched = append(h.matched, fmt.Sprintf("%s:%v", objectID, event))
		})
	}
}

func (h *Harness) runStep(ctx context.Context, step Step) error {
	switch step.Op() {
	case OpEmit:
		data, err := json.Marshal(step.Emit.Event)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		event, err := ir.UnmarshalEvent(data)
		if err != nil {
			return err
		}
		return h.engine.Emit(ctx, step.Emit.Object, event)

	case OpAdvance:
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		fired := h.scheduler.Advance(d)
		h.logger.Debug("scheduler advanced", "by", d, "fired", fired)
		return nil

	case OpSet:
		return h.applySet(step.Set)

	case OpSchedule:
		d, err := time.ParseDuration(step.Schedule.Delay)
		if err != nil {
			return err
		}
		return h.engine.ScheduleTimerTrigger(step.Schedule.Rule, step.Schedule.Object, d)

	case OpCancel:
		if !h.engine.CancelTimerTrigger(step.Cancel) {
			return fmt.Errorf("no pending timer for rule %s", step.Cancel)
		}
		return nil

	case OpEnableRule:
		return h.engine.EnableRule(step.EnableRule)

	case OpDisableRule:
		return h.engine.DisableRule(step.DisableRule)
	}

	return fmt.Errorf("empty step")
}

func (h *Harness) applySet(s *SetStep) error {
	switch {
	case s.Variable != "":
		v, err := ir.FromAny(s.Value)
		if err != nil {
			return fmt.Errorf("variable %q: %w", s.Variable, err)
		}
		h.host.PutVariable(s.Variable, v)
	case s.State != "":
		h.host.PutState(s.Object, s.State)
	case s.Visible != nil:
		h.host.PutVisible(s.Object, *s.Visible)
	case s.Playing != nil:
		h.host.PutPlaying(s.Object, *s.Playing)
	}
	return nil
}

// checkStepError compares a step's outcome with its expect_error clause
// and returns a failure message, or "" if the outcome was expected.
func checkStepError(step Step, err error) string {
	switch {
	case step.ExpectError == "" && err != nil:
		return err.Error()
	case step.ExpectError != "" && err == nil:
		return fmt.Sprintf("expected error containing %q, got none", step.ExpectError)
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		return fmt.Sprintf("expected error containing %q, got %q", step.ExpectError, err.Error())
	}
	return ""
}
