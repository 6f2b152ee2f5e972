// Package harness provides scenario-driven conformance testing for the
// planning engine.
//
// Scenarios are YAML documents: a guild fixture, an ordered event
// sequence, and assertions over the produced plans and the final stored
// state. The harness drives the real engine against an in-memory
// repository, so a passing scenario certifies actual planning behavior,
// not a transcript the harness wrote itself.
//
// Runs are deterministic: a counting token generator and a pinned clock
// replace the production UUIDv7/wall-clock sources.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/vic-nas/bouncer/internal/engine"
	"github.com/vic-nas/bouncer/internal/memrepo"
	"github.com/vic-nas/bouncer/internal/model"
)

// runTime is the pinned clock every scenario runs under.
var runTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// countingTokens generates "plan-1", "plan-2", ... correlation tokens.
type countingTokens struct {
	n int
}

func (g *countingTokens) Generate() string {
	g.n++
	return fmt.Sprintf("plan-%d", g.n)
}

// Result is the outcome of one scenario run.
type Result struct {
	Scenario *Scenario
	Plans    []model.Plan // one plan per scenario event, in order
	Failures []string     // empty means the scenario passed
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Harness runs scenarios against a fresh engine and repository.
type Harness struct {
	repo   *memrepo.Repo
	engine *engine.Engine
}

// New creates a harness with deterministic token and time sources.
func New() *Harness {
	repo := memrepo.New()
	return &Harness{
		repo: repo,
		engine: engine.New(repo,
			engine.WithTokenGenerator(&countingTokens{}),
			engine.WithNow(func() time.Time { return runTime }),
			engine.WithConfig(engine.Config{FormURL: "https://bouncer.example"}),
		),
	}
}

// Run installs the scenario fixture, handles every event in order, and
// evaluates the assertions. A handling error aborts the run; assertion
// failures do not, they accumulate in the result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	if err := h.install(ctx, scenario); err != nil {
		return nil, err
	}

	result := &Result{Scenario: scenario}
	for i, doc := range scenario.Events {
		plan, err := h.engine.Handle(ctx, doc.toModel(scenario.Guild.GuildID))
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i+1, doc.Kind, err)
		}
		result.Plans = append(result.Plans, plan)
	}

	result.Failures = evaluate(ctx, scenario, result.Plans, h.repo)
	return result, nil
}

func (h *Harness) install(ctx context.Context, scenario *Scenario) error {
	if err := h.repo.SaveGuildSettings(ctx, scenario.Guild.toModel()); err != nil {
		return fmt.Errorf("install guild: %w", err)
	}

	if len(scenario.Roles) > 0 {
		roles := make([]model.Role, len(scenario.Roles))
		for i, r := range scenario.Roles {
			roles[i] = model.Role{GuildID: scenario.Guild.GuildID, RoleID: r.RoleID, Name: r.Name}
		}
		if err := h.repo.SyncRoles(ctx, scenario.Guild.GuildID, roles); err != nil {
			return fmt.Errorf("install roles: %w", err)
		}
	}

	for _, r := range scenario.Rules {
		rule := model.InviteRule{
			GuildID: scenario.Guild.GuildID, Code: r.Code,
			RoleIDs: r.RoleIDs, IsDefault: r.IsDefault,
		}
		if err := h.repo.UpsertInviteRule(ctx, rule); err != nil {
			return fmt.Errorf("install rule %q: %w", r.Code, err)
		}
	}

	for _, f := range scenario.Fields {
		field := model.FormField{
			ID: f.ID, GuildID: scenario.Guild.GuildID, Label: f.Label,
			Type: model.FieldType(f.Type), Required: f.Required, Order: f.Order,
		}
		if err := h.repo.CreateFormField(ctx, field); err != nil {
			return fmt.Errorf("install field %q: %w", f.Label, err)
		}
	}
	return nil
}

// RunFile loads and runs one scenario file with a fresh harness.
func RunFile(ctx context.Context, path string) (*Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return New().Run(ctx, scenario)
}
