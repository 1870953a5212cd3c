package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/blocktrigger/internal/ir"
)

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRule creates a click -> show rule with the given id.
func createTestRule(id, source, target string) ir.TriggerRule {
	return ir.TriggerRule{
		ID:             id,
		Name:           "show " + target,
		Enabled:        true,
		SourceObjectID: source,
		SourceEvent:    ir.Click(),
		TargetObjectID: target,
		TargetAction:   ir.Show{},
	}
}

// createTestDocument builds a document of n click -> show rules.
func createTestDocument(n int) ir.RuleDocument {
	doc := ir.RuleDocument{Rules: []ir.TriggerRule{}}
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		doc.Rules = append(doc.Rules, createTestRule("rule-"+id, "btn-"+id, "panel-"+id))
	}
	return doc
}
