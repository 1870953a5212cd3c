// Package harness runs trigger scenarios against the engine.
//
// A scenario loads a rule document into a fresh engine backed by an
// in-memory host and a fake scheduler, drives it through a list of steps
// and checks the host calls the rules produced.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	rules:                       # or rules_file: path/to/rules.cue
//	  - id: open-panel
//	    sourceObjectId: button1
//	    sourceEvent: { type: click }
//	    targetObjectId: panel1
//	    targetAction: { type: go-to-state, stateId: open }
//	initial:
//	  states: { panel1: closed }
//	  variables: { score: 0 }
//	handlers: [confetti]
//	steps:
//	  - emit: { object: button1, event: { type: click } }
//	  - schedule: { rule: auto-close, object: panel1, delay: 2s }
//	  - advance: 2s
//	  - set: { variable: score, value: 10 }
//	  - disable_rule: open-panel
//	assertions:
//	  - type: call_contains
//	    call: setObjectState(panel1, open)
//	  - type: state_equals
//	    object: panel1
//	    state: open
//
// Host calls are rendered as method(target, args...), the same form the
// in-memory host records them in.
//
// # Determinism
//
// Timers only fire on advance steps, rule ids come from a counter, and the
// trace records per step which events matched and which calls were made.
// Golden snapshots are canonical JSON, so identical runs compare equal
// byte for byte.
package harness
