package store

import (
	"testing"

	"github.com/roach88/blocktrigger/internal/ir"
)

func TestMarshalDocument_Empty(t *testing.T) {
	body, err := marshalDocument(ir.RuleDocument{})
	if err != nil {
		t.Fatalf("marshalDocument() failed: %v", err)
	}
	if body != `{"rules":[]}` {
		t.Errorf("marshalDocument() = %q, want %q", body, `{"rules":[]}`)
	}
}

func TestMarshalDocument_CanonicalKeyOrder(t *testing.T) {
	doc := ir.RuleDocument{Rules: []ir.TriggerRule{{
		ID:             "r1",
		Name:           "n",
		Enabled:        true,
		SourceObjectID: "btn",
		SourceEvent:    ir.Click(),
		TargetObjectID: "panel",
		TargetAction:   ir.GoToState{StateID: "open"},
	}}}

	body, err := marshalDocument(doc)
	if err != nil {
		t.Fatalf("marshalDocument() failed: %v", err)
	}

	expected := `{"rules":[{"conditions":[],"enabled":true,"id":"r1","name":"n",` +
		`"sourceEvent":{"type":"click"},"sourceObjectId":"btn",` +
		`"targetAction":{"stateId":"open","type":"go-to-state"},"targetObjectId":"panel"}]}`
	if body != expected {
		t.Errorf("marshalDocument() =\n%s\nwant\n%s", body, expected)
	}
}

func TestUnmarshalDocument_RoundTrip(t *testing.T) {
	doc := createTestDocument(2)
	body, err := marshalDocument(doc)
	if err != nil {
		t.Fatalf("marshalDocument() failed: %v", err)
	}

	got, err := unmarshalDocument(body)
	if err != nil {
		t.Fatalf("unmarshalDocument() failed: %v", err)
	}
	if len(got.Rules) != 2 {
		t.Fatalf("len(Rules) = %d, want 2", len(got.Rules))
	}
	if got.Rules[1].ID != "rule-b" || got.Rules[1].TargetObjectID != "panel-b" {
		t.Errorf("Rules[1] = %+v", got.Rules[1])
	}
}

func TestUnmarshalDocument_EmptyBody(t *testing.T) {
	got, err := unmarshalDocument("")
	if err != nil {
		t.Fatalf("unmarshalDocument() failed: %v", err)
	}
	if got.Rules == nil || len(got.Rules) != 0 {
		t.Errorf("Rules = %v, want empty non-nil slice", got.Rules)
	}
}

func TestUnmarshalDocument_Invalid(t *testing.T) {
	if _, err := unmarshalDocument(`{"rules":`); err == nil {
		t.Error("expected error for truncated body, got nil")
	}
}
