package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainDocument = "blocktrigger/document/v1"
	DomainRule     = "blocktrigger/rule/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash computes the content hash of a rule document.
// Two documents with the same rules in the same order hash identically
// regardless of key order or whitespace in their stored form.
func DocumentHash(doc RuleDocument) (string, error) {
	canonical, err := canonicalJSON(doc)
	if err != nil {
		return "", fmt.Errorf("DocumentHash: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// RuleHash computes the content hash of a single rule, id included.
func RuleHash(rule TriggerRule) (string, error) {
	canonical, err := canonicalJSON(rule)
	if err != nil {
		return "", fmt.Errorf("RuleHash: %w", err)
	}
	return hashWithDomain(DomainRule, canonical), nil
}

// canonicalJSON re-encodes the wire form of v as RFC 8785 canonical JSON.
func canonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	val, err := UnmarshalValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return MarshalCanonical(val)
}
