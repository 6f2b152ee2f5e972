package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vic-nas/bouncer/internal/seed"
)

// ValidationResult holds fixture validation results.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Version int    `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (r ValidationResult) String() string {
	if r.Valid {
		return fmt.Sprintf("✓ Seed fixture v%d valid", r.Version)
	}
	return "✗ Seed fixture invalid: " + r.Error
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the embedded seed fixture against its schema",
		Long: `Check the embedded default-automation fixture: YAML shape against the
CUE schema, then every automation against the domain validation rules.
A released binary always passes; this command exists for development on
the fixture itself.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(rootOpts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	if err := seed.Validate(); err != nil {
		result := ValidationResult{Valid: false, Error: err.Error()}
		if formatter.Format == "json" {
			_ = json.NewEncoder(formatter.Writer).Encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: ErrCodeFixture, Message: err.Error()},
			})
		} else {
			fmt.Fprintln(formatter.Writer, result)
		}
		return NewExitError(ExitFailure, "fixture validation failed")
	}

	version, err := seed.Version()
	if err != nil {
		return WrapExitError(ExitFailure, "load fixture", err)
	}
	return formatter.Success(ValidationResult{Valid: true, Version: version})
}
