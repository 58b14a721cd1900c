package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strataboard/strata/internal/schema"
)

// ValidationResult holds validation results for one document file.
type ValidationResult struct {
	Valid  bool                     `json:"valid"`
	Errors []schema.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command. Unlike the load
// path, which recovers from malformed documents field by field, this
// command validates strictly and reports every violation.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document.json>",
		Short: "Validate a document payload against the wire schema",
		Long: `Validate a persisted layer document against the wire-format schema.

Reports every violation with its source line. The engine's load path
tolerates documents this command rejects; use this to catch drift in
externally produced payloads before they reach an editing session.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("document not found: %s", path), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("document not found: %s", path))
		}
		_ = formatter.Error(ErrCodeReadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading document", err)
	}

	formatter.VerboseLog("Validating %s (%d bytes)", path, len(payload))

	if err := schema.ValidateDocument(payload); err != nil {
		var verrs schema.ValidationErrors
		if !errors.As(err, &verrs) {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "validating document", err)
		}
		return outputValidationErrors(formatter, verrs)
	}

	return outputValidateSuccess(formatter)
}

func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}

	fmt.Fprintln(formatter.Writer, "✓ Document valid")
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, errs schema.ValidationErrors) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: false, Errors: errs}
		if err := (&OutputFormatter{Format: "json", Writer: formatter.Writer}).Error(
			ErrCodeSchemaViolation, errs[0].Error(), result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", e.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", e.Field, e.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
