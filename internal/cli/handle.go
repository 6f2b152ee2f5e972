package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vic-nas/bouncer/internal/engine"
	"github.com/vic-nas/bouncer/internal/memrepo"
	"github.com/vic-nas/bouncer/internal/model"
	"github.com/vic-nas/bouncer/internal/seed"
	"github.com/vic-nas/bouncer/internal/store"
)

// HandleOptions holds flags for the handle command.
type HandleOptions struct {
	FormURL  string
	PanelURL string
}

// NewHandleCommand creates the handle command.
func NewHandleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HandleOptions{}

	cmd := &cobra.Command{
		Use:   "handle <event.json | ->",
		Short: "Plan the actions for one event",
		Long: `Read one normalized event document and print the plan the engine
produces for it. With --db the guild state is read from and written to
the given SQLite database; without it a fresh in-memory state is used,
which is enough for AUTO-mode planning and command dry runs.

Pass - to read the event from stdin.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandle(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FormURL, "form-url", "", "base URL of the application form")
	cmd.Flags().StringVar(&opts.PanelURL, "panel-url", "", "base URL of the admin web panel")

	return cmd
}

func runHandle(rootOpts *RootOptions, opts *HandleOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	ev, err := readEvent(path, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeBadInput, err.Error())
		return WrapExitError(ExitCommandError, "read event", err)
	}

	repo, closeRepo, err := openRepo(rootOpts)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error())
		return WrapExitError(ExitCommandError, "open store", err)
	}
	defer closeRepo()

	e := engine.New(repo,
		engine.WithConfig(engine.Config{FormURL: opts.FormURL, PanelURL: opts.PanelURL}),
		engine.WithSeed(seed.Func()),
	)

	formatter.VerboseLog("handling %s event for guild %d", ev.Kind, ev.GuildID)

	plan, err := e.Handle(cmd.Context(), ev)
	if err != nil {
		_ = formatter.Error(ErrCodeHandle, err.Error())
		return WrapExitError(ExitFailure, "handle event", err)
	}

	return writePlan(formatter, plan)
}

// readEvent decodes one event document from a file, or stdin for "-".
// Unknown fields are rejected so a typoed field name fails loudly instead
// of silently planning the wrong thing.
func readEvent(path string, stdin io.Reader) (model.Event, error) {
	var ev model.Event

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return ev, err
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	if ev.Kind == "" {
		return ev, fmt.Errorf("event is missing a kind")
	}
	return ev, nil
}

// openRepo picks the backing repository: SQLite when --db is set, a fresh
// in-memory state otherwise.
func openRepo(rootOpts *RootOptions) (model.Repository, func(), error) {
	if rootOpts.DBPath == "" {
		return memrepo.New(), func() {}, nil
	}
	s, err := store.Open(rootOpts.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

// writePlan prints the plan: raw JSON in json mode so the output can be
// piped straight to an executor, readable lines in text mode.
func writePlan(formatter *OutputFormatter, plan model.Plan) error {
	if formatter.Format == "json" {
		enc := json.NewEncoder(formatter.Writer)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	fmt.Fprintf(formatter.Writer, "correlation: %s\n", plan.Correlation)
	fmt.Fprintf(formatter.Writer, "actions (%d):\n", len(plan.Actions))
	for i, a := range plan.Actions {
		fmt.Fprintf(formatter.Writer, "  %d. %s\n", i+1, formatAction(a))
	}
	for _, r := range plan.Reports {
		fmt.Fprintf(formatter.Writer, "report: %s %s\n", r.Kind, r.Message)
	}
	return nil
}

func formatAction(a model.Action) string {
	parts := []string{string(a.Kind)}
	if a.GuildID != 0 {
		parts = append(parts, fmt.Sprintf("guild=%d", a.GuildID))
	}
	if a.ChannelID != 0 {
		parts = append(parts, fmt.Sprintf("channel=%d", a.ChannelID))
	}
	if a.UserID != 0 {
		parts = append(parts, fmt.Sprintf("user=%d", a.UserID))
	}
	if a.RoleID != 0 {
		parts = append(parts, fmt.Sprintf("role=%d", a.RoleID))
	}
	if a.Count != 0 {
		parts = append(parts, fmt.Sprintf("count=%d", a.Count))
	}
	if a.Content != "" {
		content := a.Content
		if len(content) > 60 {
			content = content[:57] + "..."
		}
		parts = append(parts, fmt.Sprintf("content=%q", content))
	}
	return strings.Join(parts, " ")
}
