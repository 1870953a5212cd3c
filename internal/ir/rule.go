package ir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TriggerRule binds a source event on one object to an action on a
// target object, gated by conditions and ordered by priority.
type TriggerRule struct {
	ID             string
	Name           string
	Enabled        bool
	SourceObjectID string
	SourceEvent    Event
	TargetObjectID string
	TargetAction   Action
	Conditions     []Condition
	Priority       *int // nil sorts as 0
}

// EffectivePriority returns the priority used for ordering.
func (r TriggerRule) EffectivePriority() int {
	if r.Priority == nil {
		return 0
	}
	return *r.Priority
}

// Clone returns a deep copy of the rule.
func (r TriggerRule) Clone() TriggerRule {
	out := r
	if r.Conditions != nil {
		out.Conditions = make([]Condition, len(r.Conditions))
		for i, c := range r.Conditions {
			c.Value = CloneValue(c.Value)
			out.Conditions[i] = c
		}
	}
	if r.Priority != nil {
		p := *r.Priority
		out.Priority = &p
	}
	out.TargetAction = cloneAction(r.TargetAction)
	return out
}

// Normalize fills defaults so a rule compares equal to its own decoded
// wire form: Conditions is never nil and a SetVariable value is never nil.
func (r *TriggerRule) Normalize() {
	if r.Conditions == nil {
		r.Conditions = []Condition{}
	}
	if sv, ok := r.TargetAction.(SetVariable); ok && sv.Value == nil {
		sv.Value = Null{}
		r.TargetAction = sv
	}
}

// Validate reports every structural problem with the rule.
// The id is not checked; the engine assigns it.
func (r TriggerRule) Validate() error {
	var errs []error

	if r.SourceObjectID == "" {
		errs = append(errs, fmt.Errorf("sourceObjectId is required"))
	}
	if err := ValidateEvent(r.SourceEvent); err != nil {
		errs = append(errs, fmt.Errorf("sourceEvent: %w", err))
	}
	if err := ValidateAction(r.TargetAction); err != nil {
		errs = append(errs, fmt.Errorf("targetAction: %w", err))
	} else if NeedsTarget(r.TargetAction.ActionType()) && r.TargetObjectID == "" {
		errs = append(errs, fmt.Errorf("targetObjectId is required for %s", r.TargetAction.ActionType()))
	}
	for i, c := range r.Conditions {
		if err := ValidateCondition(c); err != nil {
			errs = append(errs, fmt.Errorf("conditions[%d]: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

type ruleWire struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Enabled        bool            `json:"enabled"`
	SourceObjectID string          `json:"sourceObjectId"`
	SourceEvent    json.RawMessage `json:"sourceEvent"`
	TargetObjectID string          `json:"targetObjectId"`
	TargetAction   json.RawMessage `json:"targetAction"`
	Conditions     []Condition     `json:"conditions"`
	Priority       *int            `json:"priority,omitempty"`
}

// MarshalJSON implements json.Marshaler for TriggerRule.
func (r TriggerRule) MarshalJSON() ([]byte, error) {
	ev, err := MarshalEvent(r.SourceEvent)
	if err != nil {
		return nil, fmt.Errorf("rule %s: sourceEvent: %w", r.ID, err)
	}
	act, err := MarshalAction(r.TargetAction)
	if err != nil {
		return nil, fmt.Errorf("rule %s: targetAction: %w", r.ID, err)
	}
	conds := r.Conditions
	if conds == nil {
		conds = []Condition{}
	}
	return json.Marshal(ruleWire{
		ID:             r.ID,
		Name:           r.Name,
		Enabled:        r.Enabled,
		SourceObjectID: r.SourceObjectID,
		SourceEvent:    ev,
		TargetObjectID: r.TargetObjectID,
		TargetAction:   act,
		Conditions:     conds,
		Priority:       r.Priority,
	})
}

// UnmarshalJSON implements json.Unmarshaler for TriggerRule.
func (r *TriggerRule) UnmarshalJSON(data []byte) error {
	var w ruleWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w.SourceEvent) == 0 {
		return fmt.Errorf("rule %s: sourceEvent is required", w.ID)
	}
	ev, err := UnmarshalEvent(w.SourceEvent)
	if err != nil {
		return fmt.Errorf("rule %s: %w", w.ID, err)
	}
	if len(w.TargetAction) == 0 {
		return fmt.Errorf("rule %s: targetAction is required", w.ID)
	}
	act, err := UnmarshalAction(w.TargetAction)
	if err != nil {
		return fmt.Errorf("rule %s: %w", w.ID, err)
	}

	*r = TriggerRule{
		ID:             w.ID,
		Name:           w.Name,
		Enabled:        w.Enabled,
		SourceObjectID: w.SourceObjectID,
		SourceEvent:    ev,
		TargetObjectID: w.TargetObjectID,
		TargetAction:   act,
		Conditions:     w.Conditions,
		Priority:       w.Priority,
	}
	r.Normalize()
	return nil
}

// RuleDocument is the persisted form of an engine's rule set:
// {"rules": [TriggerRule...]}.
type RuleDocument struct {
	Rules []TriggerRule `json:"rules"`
}

// MarshalJSON implements json.Marshaler; an empty document encodes
// {"rules":[]} rather than {"rules":null}.
func (d RuleDocument) MarshalJSON() ([]byte, error) {
	rules := d.Rules
	if rules == nil {
		rules = []TriggerRule{}
	}
	return json.Marshal(struct {
		Rules []TriggerRule `json:"rules"`
	}{Rules: rules})
}

// Validate checks every rule and rejects empty or duplicate ids.
func (d RuleDocument) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(d.Rules))
	for i, r := range d.Rules {
		if r.ID == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: id is required", i))
		} else if seen[r.ID] {
			errs = append(errs, fmt.Errorf("rules[%d]: duplicate id %q", i, r.ID))
		}
		seen[r.ID] = true
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("rules[%d] (%s): %w", i, r.ID, err))
		}
	}
	return errors.Join(errs...)
}

// DecodeDocument parses a JSON rule document.
func DecodeDocument(data []byte) (RuleDocument, error) {
	var doc RuleDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return RuleDocument{}, fmt.Errorf("decode rule document: %w", err)
	}
	if doc.Rules == nil {
		doc.Rules = []TriggerRule{}
	}
	return doc, nil
}
