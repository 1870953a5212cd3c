package engine

import (
	"github.com/roach88/blocktrigger/internal/ir"
)

// ruleStore keeps rules in insertion order. That order is the stable
// tie-break when matches share a priority.
//
// Not thread-safe; guarded by Engine.mu.
type ruleStore struct {
	order []string
	byID  map[string]*ir.TriggerRule
}

func newRuleStore() *ruleStore {
	return &ruleStore{byID: make(map[string]*ir.TriggerRule)}
}

func (s *ruleStore) add(r ir.TriggerRule) {
	s.order = append(s.order, r.ID)
	s.byID[r.ID] = &r
}

func (s *ruleStore) get(id string) (*ir.TriggerRule, bool) {
	r, ok := s.byID[id]
	return r, ok
}

func (s *ruleStore) remove(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, rid := range s.order {
		if rid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *ruleStore) each(fn func(*ir.TriggerRule)) {
	for _, id := range s.order {
		fn(s.byID[id])
	}
}

func (s *ruleStore) len() int {
	return len(s.order)
}

func (s *ruleStore) clear() {
	s.order = nil
	s.byID = make(map[string]*ir.TriggerRule)
}

// RulePatch is a partial rule update. Nil fields are left unchanged.
// A non-nil empty Conditions slice removes every condition; ClearPriority
// resets the priority to absent.
type RulePatch struct {
	Name           *string
	Enabled        *bool
	SourceObjectID *string
	SourceEvent    ir.Event
	TargetObjectID *string
	TargetAction   ir.Action
	Conditions     []ir.Condition
	Priority       *int
	ClearPriority  bool
}

func (p RulePatch) apply(r *ir.TriggerRule) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
	if p.SourceObjectID != nil {
		r.SourceObjectID = *p.SourceObjectID
	}
	if p.SourceEvent != nil {
		r.SourceEvent = p.SourceEvent
	}
	if p.TargetObjectID != nil {
		r.TargetObjectID = *p.TargetObjectID
	}
	if p.TargetAction != nil {
		r.TargetAction = p.TargetAction
	}
	if p.Conditions != nil {
		r.Conditions = append([]ir.Condition(nil), p.Conditions...)
	}
	if p.ClearPriority {
		r.Priority = nil
	} else if p.Priority != nil {
		prio := *p.Priority
		r.Priority = &prio
	}
}

// AddRule validates rule, assigns it a fresh id and stores it.
// Any id already set on rule is ignored. Returns a *RuleError when the
// rule is invalid or names an unregistered custom handler.
func (e *Engine) AddRule(rule ir.TriggerRule) (string, error) {
	rule = rule.Clone()
	rule.Normalize()
	if err := rule.Validate(); err != nil {
		return "", NewInvalidRuleError("", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkHandlerLocked(rule); err != nil {
		return "", err
	}

	id := e.ids.Generate()
	if _, exists := e.rules.get(id); exists {
		return "", NewDuplicateIDError(id)
	}
	rule.ID = id
	e.rules.add(rule)

	e.logger.Info("rule added",
		"rule_id", id,
		"name", rule.Name,
		"source_object_id", rule.SourceObjectID,
		"event", rule.SourceEvent,
		"action", rule.TargetAction.ActionType(),
	)
	return id, nil
}

// UpdateRule applies patch to the rule with the given id. The id itself
// cannot change. The patched rule is validated before it replaces the
// stored one; on error the stored rule is untouched.
func (e *Engine) UpdateRule(id string, patch RulePatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current, ok := e.rules.get(id)
	if !ok {
		return NewRuleNotFoundError(id)
	}

	updated := current.Clone()
	patch.apply(&updated)
	updated.Normalize()
	if err := updated.Validate(); err != nil {
		return NewInvalidRuleError(id, err)
	}
	if err := e.checkHandlerLocked(updated); err != nil {
		return err
	}

	*current = updated
	e.logger.Info("rule updated", "rule_id", id)
	return nil
}

// RemoveRule deletes a rule and cancels its pending timer.
// Returns false if no such rule exists.
func (e *Engine) RemoveRule(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.rules.remove(id) {
		return false
	}
	cancelled := e.cancelTimerLocked(id)
	e.revokeTokensLocked(id)
	e.logger.Info("rule removed", "rule_id", id, "timer_cancelled", cancelled)
	return true
}

// EnableRule marks a rule enabled.
func (e *Engine) EnableRule(id string) error {
	return e.setEnabled(id, true)
}

// DisableRule marks a rule disabled; disabled rules never match.
func (e *Engine) DisableRule(id string) error {
	return e.setEnabled(id, false)
}

func (e *Engine) setEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.rules.get(id)
	if !ok {
		return NewRuleNotFoundError(id)
	}
	r.Enabled = enabled
	e.logger.Info("rule enabled state changed", "rule_id", id, "enabled", enabled)
	return nil
}

// Rule returns a copy of the rule with the given id.
func (e *Engine) Rule(id string) (ir.TriggerRule, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.rules.get(id)
	if !ok {
		return ir.TriggerRule{}, false
	}
	return r.Clone(), true
}

// Rules returns copies of every rule in insertion order.
func (e *Engine) Rules() []ir.TriggerRule {
	return e.collect(func(*ir.TriggerRule) bool { return true })
}

// RulesForObject returns rules whose source or target is objectID.
func (e *Engine) RulesForObject(objectID string) []ir.TriggerRule {
	return e.collect(func(r *ir.TriggerRule) bool {
		return r.SourceObjectID == objectID || r.TargetObjectID == objectID
	})
}

// RulesForSource returns rules triggered by events on objectID.
func (e *Engine) RulesForSource(objectID string) []ir.TriggerRule {
	return e.collect(func(r *ir.TriggerRule) bool {
		return r.SourceObjectID == objectID
	})
}

// RulesForTarget returns rules acting on objectID.
func (e *Engine) RulesForTarget(objectID string) []ir.TriggerRule {
	return e.collect(func(r *ir.TriggerRule) bool {
		return r.TargetObjectID == objectID
	})
}

func (e *Engine) collect(keep func(*ir.TriggerRule) bool) []ir.TriggerRule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ir.TriggerRule, 0, e.rules.len())
	e.rules.each(func(r *ir.TriggerRule) {
		if keep(r) {
			out = append(out, r.Clone())
		}
	})
	return out
}

// ClearAllRules deletes every rule and cancels every pending timer.
func (e *Engine) ClearAllRules() {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.rules.len()
	e.clearLocked()
	e.logger.Info("rules cleared", "count", n)
}

func (e *Engine) clearLocked() {
	e.cancelAllTimersLocked()
	clear(e.tokens)
	e.rules.clear()
}
