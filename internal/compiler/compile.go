package compiler

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/roach88/blocktrigger/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// Format identifies the syntax of an authored rule document.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the source format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported rule document extension %q (want .cue, .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// Compiled is a schema-checked rule document.
type Compiled struct {
	Document ir.RuleDocument

	// Lines holds the source line of each rule, parallel to Document.Rules.
	// Zero when the format carries no positions.
	Lines []int
}

// CompileFile reads path and compiles it according to its extension.
func CompileFile(path string) (*Compiled, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Compile(src, format, path)
}

// Compile unifies src with the #Document schema and decodes the result.
// Schema violations are returned as *CompileError; semantic checks are
// left to Validate.
func Compile(src []byte, format Format, filename string) (*Compiled, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v, err := buildValue(ctx, src, format, filename)
	if err != nil {
		return nil, err
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.LookupPath(cue.ParsePath("rules")).Exists() {
		return nil, &CompileError{
			Field:   "rules",
			Message: "rules is required",
			Pos:     v.Pos(),
		}
	}

	unified := schema.LookupPath(cue.ParsePath("#Document")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	data, err := unified.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	doc, err := ir.DecodeDocument(data)
	if err != nil {
		return nil, &CompileError{Field: "rules", Message: err.Error()}
	}

	return &Compiled{Document: doc, Lines: ruleLines(v, len(doc.Rules))}, nil
}

// buildValue turns src into an unvalidated CUE value.
func buildValue(ctx *cue.Context, src []byte, format Format, filename string) (cue.Value, error) {
	switch format {
	case FormatCUE:
		return ctx.CompileBytes(src, cue.Filename(filename)), nil
	case FormatJSON:
		expr, err := cuejson.Extract(filename, src)
		if err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		return ctx.BuildExpr(expr), nil
	case FormatYAML:
		var raw any
		if err := yaml.Unmarshal(src, &raw); err != nil {
			return cue.Value{}, &CompileError{Field: "yaml", Message: err.Error()}
		}
		if raw == nil {
			return cue.Value{}, &CompileError{Field: "rules", Message: "document is empty"}
		}
		return ctx.Encode(raw), nil
	default:
		return cue.Value{}, fmt.Errorf("unsupported format %q", format)
	}
}

// ruleLines records where each element of rules starts in the source.
func ruleLines(v cue.Value, n int) []int {
	lines := make([]int, n)
	iter, err := v.LookupPath(cue.ParsePath("rules")).List()
	if err != nil {
		return lines
	}
	for i := 0; iter.Next() && i < n; i++ {
		if pos := iter.Value().Pos(); pos.IsValid() {
			lines[i] = pos.Line()
		}
	}
	return lines
}

// CompileError is a parse or schema failure with an optional source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	field := "cue"
	if path := firstErr.Path(); len(path) > 0 {
		field = strings.Join(path, ".")
	}
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   field,
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return &CompileError{Field: field, Message: firstErr.Error()}
}
