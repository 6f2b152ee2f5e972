package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vic-nas/bouncer/internal/seed"
	"github.com/vic-nas/bouncer/internal/store"
)

// SeedResult reports what one seed run installed.
type SeedResult struct {
	FixtureVersion     int `json:"fixture_version"`
	TemplatesInstalled int `json:"templates_installed"`
	AutomationsCreated int `json:"automations_created"`
}

func (r SeedResult) String() string {
	return fmt.Sprintf("Seed v%d applied: %d templates installed, %d automations created",
		r.FixtureVersion, r.TemplatesInstalled, r.AutomationsCreated)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var guildID int64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Install default templates and automations into a store",
		Long: `Install the built-in message templates as stored global defaults and
the fixture's default automations for one guild. Both installs are
idempotent: customized templates and existing automations are left
alone, so a second run reports zero changes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, guildID, cmd)
		},
	}

	cmd.Flags().Int64Var(&guildID, "guild", 0, "guild id to seed automations for")
	_ = cmd.MarkFlagRequired("guild")

	return cmd
}

func runSeed(rootOpts *RootOptions, guildID int64, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	if rootOpts.DBPath == "" {
		err := fmt.Errorf("seed requires --db: an in-memory state would be gone before it could matter")
		_ = formatter.Error(ErrCodeBadFlag, err.Error())
		return WrapExitError(ExitCommandError, "seed", err)
	}

	version, err := seed.Version()
	if err != nil {
		_ = formatter.Error(ErrCodeFixture, err.Error())
		return WrapExitError(ExitFailure, "load fixture", err)
	}
	defaults, err := seed.Defaults(guildID)
	if err != nil {
		_ = formatter.Error(ErrCodeFixture, err.Error())
		return WrapExitError(ExitFailure, "load fixture", err)
	}

	s, err := store.Open(rootOpts.DBPath)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error())
		return WrapExitError(ExitCommandError, "open store", err)
	}
	defer s.Close()

	ctx := cmd.Context()
	result := SeedResult{FixtureVersion: version}

	result.TemplatesInstalled, err = s.InstallDefaults(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error())
		return WrapExitError(ExitCommandError, "install templates", err)
	}

	existing, err := s.ListAllAutomations(ctx, guildID)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error())
		return WrapExitError(ExitCommandError, "list automations", err)
	}
	have := make(map[string]bool, len(existing))
	for _, a := range existing {
		have[a.Name] = true
	}
	for _, a := range defaults {
		if have[a.Name] {
			continue
		}
		formatter.VerboseLog("creating automation %q", a.Name)
		if err := s.CreateAutomation(ctx, a); err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error())
			return WrapExitError(ExitCommandError, "create automation", err)
		}
		result.AutomationsCreated++
	}

	return formatter.Success(result)
}
