package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/blocktrigger/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	File     string                     `json:"file"`
	Rules    int                        `json:"rules"`
	Hash     string                     `json:"hash,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a rule document",
		Long: `Validate a rule document (.cue, .json, .yaml) without storing it.

Checks the document against the rule schema, then checks rule semantics
(required operands, duplicate ids). Valid documents are also analysed for
rules that can trigger each other in a loop; those are reported as
warnings and do not fail validation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger()

	loaded, err := LoadRules(path)
	if err != nil {
		code, message := loadErrorParts(err)
		// Unparseable documents are command-level errors (exit code 2)
		return formatter.Fail(ExitCommandError, code, message)
	}

	logger.Debug("rule document compiled",
		"file", path,
		"rules", len(loaded.Document().Rules),
		"errors", len(loaded.Errors),
		"warnings", len(loaded.Warnings),
	)

	result := ValidationResult{
		Valid:    loaded.Valid(),
		File:     path,
		Rules:    len(loaded.Document().Rules),
		Hash:     loaded.Hash,
		Errors:   loaded.Errors,
		Warnings: loaded.Warnings,
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s: %d rule(s) valid\n", result.File, result.Rules)
	if formatter.Verbose {
		fmt.Fprintf(formatter.Writer, "  hash %s\n", result.Hash)
	}
	printWarnings(formatter, result.Warnings)
	return nil
}

func printWarnings(formatter *OutputFormatter, warnings []compiler.CycleWarning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", w.Level, w.Message)
	}
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	// Validation failures = exit code 1 (test/validation failure)
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintf(formatter.Writer, "✗ %s: validation failed\n", result.File)
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return exitErr
}
