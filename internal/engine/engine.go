package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vic-nas/bouncer/internal/commands"
	"github.com/vic-nas/bouncer/internal/model"
	"github.com/vic-nas/bouncer/internal/template"
	"github.com/vic-nas/bouncer/internal/workflow"
)

// Config carries the deployment-level settings the engine threads into
// handlers.
type Config struct {
	FormURL  string        // external application form base URL
	PanelURL string        // web panel base URL for getaccess links
	TokenTTL time.Duration // access token lifetime, 0 means the default
}

// Engine is the event handling facade.
//
// Handle() may be called concurrently; events of the same guild are
// serialized by a per-guild mutex, events of different guilds proceed in
// parallel. All storage access goes through the repository, all platform
// effects come back as planned actions.
type Engine struct {
	repo   model.Repository
	cfg    Config
	tokens TokenGenerator
	clock  *Clock
	queue  *eventQueue
	now    func() time.Time
	seed   func(guildID int64) []model.Automation

	mu     sync.Mutex
	guilds map[int64]*sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the deployment configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithTokenGenerator replaces the correlation token generator.
// Tests use a FixedGenerator for deterministic plans.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithNow replaces the time source. Tests pin it.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSeed supplies the default automation fixture, consumed by reload
// to recreate deleted defaults.
func WithSeed(seed func(guildID int64) []model.Automation) Option {
	return func(e *Engine) { e.seed = seed }
}

// New creates an Engine backed by repo.
func New(repo model.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		tokens: UUIDv7Generator{},
		clock:  NewClock(),
		queue:  newEventQueue(),
		guilds: make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// guildLock returns the mutex serializing one guild's events. DM events
// share the zero key.
func (e *Engine) guildLock(guildID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.guilds[guildID]
	if !ok {
		lock = &sync.Mutex{}
		e.guilds[guildID] = lock
	}
	return lock
}

// Handle processes one event and returns its plan.
//
// Business failures (unknown command, double approve, permission denied)
// come back inside the plan as reports, each paired with a visible reply
// action. A returned error means infrastructure failure: the event
// produced no side effects and the caller must not execute anything.
func (e *Engine) Handle(ctx context.Context, ev model.Event) (model.Plan, error) {
	seq := e.clock.Next()

	lock := e.guildLock(ev.GuildID)
	lock.Lock()
	defer lock.Unlock()

	gs, err := e.guildSettings(ctx, ev)
	if err != nil {
		return model.Plan{}, err
	}
	templates, err := e.resolver(ctx, ev.GuildID)
	if err != nil {
		return model.Plan{}, err
	}

	var plan model.Plan
	switch ev.Kind {
	case model.TriggerCommand:
		plan, err = e.handleCommand(ctx, gs, ev, templates)
	case model.TriggerMemberJoin:
		plan, err = e.handleWithAutomations(ctx, gs, ev, templates, workflow.MemberJoin)
	case model.TriggerMemberLeave:
		plan, err = e.handleWithAutomations(ctx, gs, ev, templates, workflow.MemberLeave)
	case model.TriggerFormSubmit:
		plan, err = e.handleWithAutomations(ctx, gs, ev, templates, workflow.Submit)
	case model.TriggerReaction:
		plan, err = e.handleReaction(ctx, gs, ev, templates)
	default:
		return model.Plan{}, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if err != nil {
		return model.Plan{}, fmt.Errorf("handle %s (seq %d): %w", ev.Kind, seq, err)
	}

	plan.Correlation = e.tokens.Generate()
	return plan, nil
}

// guildSettings loads the guild row, provisioning a default AUTO-mode
// row the first time a guild is seen. DM events carry no guild.
func (e *Engine) guildSettings(ctx context.Context, ev model.Event) (model.GuildSettings, error) {
	if ev.GuildID == 0 {
		return model.GuildSettings{}, nil
	}
	gs, err := e.repo.GuildSettings(ctx, ev.GuildID)
	if errors.Is(err, model.ErrNotFound) {
		gs = model.GuildSettings{GuildID: ev.GuildID, Mode: model.ModeAuto}
		if err := e.repo.SaveGuildSettings(ctx, gs); err != nil {
			return gs, fmt.Errorf("provision guild settings: %w", err)
		}
		return gs, nil
	}
	if err != nil {
		return gs, fmt.Errorf("load guild settings: %w", err)
	}
	return gs, nil
}

func (e *Engine) resolver(ctx context.Context, guildID int64) (*template.Resolver, error) {
	defaults, err := e.repo.DefaultTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default templates: %w", err)
	}
	var overrides map[template.Kind]string
	if guildID != 0 {
		overrides, err = e.repo.TemplateOverrides(ctx, guildID)
		if err != nil {
			return nil, fmt.Errorf("load template overrides: %w", err)
		}
	}
	return template.NewResolver(overrides, defaults), nil
}

func (e *Engine) workflowDeps(templates *template.Resolver) workflow.Deps {
	return workflow.Deps{Repo: e.repo, Templates: templates, Now: e.now, FormURL: e.cfg.FormURL}
}

func (e *Engine) commandDeps(templates *template.Resolver) commands.Deps {
	return commands.Deps{
		Repo:      e.repo,
		Templates: templates,
		Now:       e.now,
		FormURL:   e.cfg.FormURL,
		PanelURL:  e.cfg.PanelURL,
		TokenTTL:  e.cfg.TokenTTL,
		Seed:      e.seed,
	}
}

// handleCommand routes to the built-in router first. Unrecognized names
// fall through to COMMAND automations; only when those match nothing
// either does the unknown-command response go out.
func (e *Engine) handleCommand(ctx context.Context, gs model.GuildSettings, ev model.Event, templates *template.Resolver) (model.Plan, error) {
	d := e.commandDeps(templates)

	plan, handled, err := commands.Route(ctx, d, gs, ev)
	if err != nil {
		return plan, err
	}
	if handled {
		return plan, nil
	}

	name, _ := commands.Tokenize(ev.Command)
	actions, err := e.automationActions(ctx, gs, ev, templates, name)
	if err != nil {
		return plan, err
	}
	if len(actions) == 0 {
		return commands.NotFoundPlan(d, ev, name), nil
	}
	plan.Add(actions...)
	return plan, nil
}

// workflowFunc is the common shape of the per-kind workflow entry points.
type workflowFunc func(ctx context.Context, d workflow.Deps, gs model.GuildSettings, ev model.Event) (model.Plan, error)

func (e *Engine) handleWithAutomations(ctx context.Context, gs model.GuildSettings, ev model.Event, templates *template.Resolver, wf workflowFunc) (model.Plan, error) {
	plan, err := wf(ctx, e.workflowDeps(templates), gs, ev)
	if err != nil {
		return plan, err
	}
	actions, err := e.automationActions(ctx, gs, ev, templates, "")
	if err != nil {
		return plan, err
	}
	plan.Add(actions...)
	return plan, nil
}

// handleReaction runs the ✅/❌ application review for admins, then any
// REACTION automations. Non-admin reactions never touch an application.
func (e *Engine) handleReaction(ctx context.Context, gs model.GuildSettings, ev model.Event, templates *template.Resolver) (model.Plan, error) {
	var plan model.Plan

	if isAdmin(gs, ev.Actor) {
		var err error
		plan, err = workflow.ReactionReview(ctx, e.workflowDeps(templates), gs, ev)
		if err != nil {
			return plan, err
		}
	}

	actions, err := e.automationActions(ctx, gs, ev, templates, "")
	if err != nil {
		return plan, err
	}
	plan.Add(actions...)
	return plan, nil
}

func isAdmin(gs model.GuildSettings, actor model.Actor) bool {
	if actor.Owner {
		return true
	}
	return gs.AdminRoleID != 0 && actor.HasRole(gs.AdminRoleID)
}

func (e *Engine) automationActions(ctx context.Context, gs model.GuildSettings, ev model.Event, templates *template.Resolver, command string) ([]model.Action, error) {
	if ev.GuildID == 0 {
		return nil, nil
	}
	autos, err := e.repo.ListAutomations(ctx, gs.GuildID, ev.Kind)
	if err != nil {
		return nil, fmt.Errorf("list automations: %w", err)
	}
	if len(autos) == 0 {
		return nil, nil
	}

	mc := matchContext{gs: gs, ev: ev, templates: templates, command: command}
	if ev.Kind == model.TriggerMemberJoin {
		mc.rules, err = e.repo.ListInviteRules(ctx, gs.GuildID)
		if err != nil {
			return nil, fmt.Errorf("list invite rules: %w", err)
		}
	}
	return matchAutomations(autos, mc), nil
}
