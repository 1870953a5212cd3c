package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/blocktrigger/internal/ir"
)

// marshalDocument converts a rule document to canonical JSON TEXT for storage.
// The wire form is re-encoded through ir.Value so key order and number
// formatting follow RFC 8785 and the stored body hashes stably.
func marshalDocument(doc ir.RuleDocument) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	val, err := ir.UnmarshalValue(data)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	canonical, err := ir.MarshalCanonical(val)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(canonical), nil
}

// unmarshalDocument parses a stored body back into a rule document.
func unmarshalDocument(body string) (ir.RuleDocument, error) {
	if body == "" {
		return ir.RuleDocument{Rules: []ir.TriggerRule{}}, nil
	}
	doc, err := ir.DecodeDocument([]byte(body))
	if err != nil {
		return ir.RuleDocument{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}
