package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Datasets []string `json:"datasets,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate dataset definitions without loading them",
		Long: `Validate dataset definition files without touching a database.

Parses YAML or CUE definitions, resolves references and dependencies,
and rejects dependency cycles. The path may be a single file or a
directory of definition files.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	sets, err := LoadDefinitions(path)
	if err != nil {
		return outputDefError(formatter, err)
	}

	names := make([]string, len(sets))
	for i, ds := range sets {
		names[i] = ds.Name()
		formatter.VerboseLog("validated %s (%d rows, %d deps)", ds.Name(), len(ds.Rows()), len(ds.Deps()))
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Datasets: names})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d dataset(s) valid\n", len(sets))
	return nil
}

// outputDefError reports a definition loading failure and maps it to an
// exit code: missing or empty paths are command errors, everything else
// is a validation failure.
func outputDefError(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var derr *DefError
	if errors.As(err, &derr) {
		code = derr.Code
	}
	_ = formatter.Error(code, err.Error(), nil)

	exit := ExitFailure
	if code == ErrCodeNotFound || code == ErrCodeEmpty || code == ErrCodeGeneric {
		exit = ExitCommandError
	}
	return NewExitError(exit, fmt.Sprintf("%s: %s", code, err.Error()))
}
