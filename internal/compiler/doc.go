// Package compiler turns authored rule documents into ir.RuleDocument.
//
// Sources may be CUE, JSON or YAML. Every source is unified with the
// embedded #Document schema (schema.cue) before decoding, so unknown
// fields, misspelled type tags and wrongly typed operands are reported
// with file positions where the source format carries them.
//
// After decoding, Validate applies the semantic checks the schema cannot
// express (duplicate ids, required operands per type) and AnalyzeCycles
// reports rule chains that can re-trigger themselves.
package compiler
