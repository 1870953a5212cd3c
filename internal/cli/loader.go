package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/blocktrigger/internal/compiler"
	"github.com/roach88/blocktrigger/internal/ir"
)

// LoadResult contains a compiled rule document and what checking it found.
type LoadResult struct {
	Compiled *compiler.Compiled
	Hash     string
	Errors   []compiler.ValidationError
	Warnings []compiler.CycleWarning
}

// Valid reports whether the document passed semantic validation.
func (r *LoadResult) Valid() bool {
	return len(r.Errors) == 0
}

// Document returns the compiled rule document.
func (r *LoadResult) Document() ir.RuleDocument {
	return r.Compiled.Document
}

// LoadError represents an error that stopped a rule document from
// compiling at all.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRules compiles the rule document at path, validates it and runs
// cycle analysis. Cycle analysis only runs on valid documents.
func LoadRules(path string) (*LoadResult, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rule document not found: %s", path)}
	}

	compiled, err := compiler.CompileFile(path)
	if err != nil {
		return nil, convertCompileError(err)
	}

	result := &LoadResult{
		Compiled: compiled,
		Errors:   compiler.Validate(compiled),
		Warnings: []compiler.CycleWarning{},
	}
	if !result.Valid() {
		return result, nil
	}

	result.Warnings = compiler.AnalyzeCycles(compiled.Document.Rules)
	hash, err := ir.DocumentHash(compiled.Document)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	result.Hash = hash
	return result, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeCompileFailed,
		Message: err.Error(),
	}
}

// loadErrorParts splits err into a CLI error code and message.
func loadErrorParts(err error) (code, message string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Pos.IsValid() {
			return loadErr.Code, fmt.Sprintf("%s:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Message)
		}
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
