package engine

import (
	"encoding/json"

	"github.com/roach88/blocktrigger/internal/ir"
)

// ToDocument exports the rule set in insertion order. Timer state is not
// part of the document.
func (e *Engine) ToDocument() ir.RuleDocument {
	return ir.RuleDocument{Rules: e.Rules()}
}

// MarshalJSON encodes the rule set as {"rules": [...]}.
func (e *Engine) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToDocument())
}

// FromDocument replaces the whole rule set with doc, keeping its ids.
// Existing rules and every pending timer are dropped. The document is
// fully validated first; on error the engine is unchanged.
//
// Timers are never restored; a host re-schedules the ones it needs.
func (e *Engine) FromDocument(doc ir.RuleDocument) error {
	rules := make([]ir.TriggerRule, 0, len(doc.Rules))
	seen := make(map[string]bool, len(doc.Rules))
	for _, r := range doc.Rules {
		r = r.Clone()
		r.Normalize()
		if r.ID == "" {
			return NewInvalidRuleError("", errMissingID)
		}
		if seen[r.ID] {
			return NewDuplicateIDError(r.ID)
		}
		seen[r.ID] = true
		if err := r.Validate(); err != nil {
			return NewInvalidRuleError(r.ID, err)
		}
		rules = append(rules, r)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range rules {
		if err := e.checkHandlerLocked(r); err != nil {
			return err
		}
	}

	previous := e.rules.len()
	e.clearLocked()
	for _, r := range rules {
		e.rules.add(r)
	}

	e.logger.Info("rules imported", "count", len(rules), "replaced", previous)
	return nil
}

// UnmarshalJSON decodes a rule document and imports it with FromDocument.
func (e *Engine) UnmarshalJSON(data []byte) error {
	doc, err := ir.DecodeDocument(data)
	if err != nil {
		return NewInvalidRuleError("", err)
	}
	return e.FromDocument(doc)
}
