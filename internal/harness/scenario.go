package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vic-nas/bouncer/internal/model"
)

// Scenario defines one conformance test: a guild fixture, a sequence of
// events, and assertions over the produced plans and final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Guild is the settings row the scenario starts from.
	Guild GuildDoc `yaml:"guild"`

	// Optional fixture state installed before the first event.
	Roles  []RoleDoc  `yaml:"roles,omitempty"`
	Rules  []RuleDoc  `yaml:"rules,omitempty"`
	Fields []FieldDoc `yaml:"fields,omitempty"`

	// Events are handled in order; every event must handle cleanly.
	Events []EventDoc `yaml:"events"`

	// Assertions validate the plans and the final stored state.
	Assertions []Assertion `yaml:"assertions"`
}

// GuildDoc mirrors model.GuildSettings for YAML scenarios.
type GuildDoc struct {
	GuildID          int64  `yaml:"guild_id"`
	GuildName        string `yaml:"guild_name"`
	Mode             string `yaml:"mode"`
	AdminRoleID      int64  `yaml:"admin_role_id,omitempty"`
	PendingRoleID    int64  `yaml:"pending_role_id,omitempty"`
	LogChannelID     int64  `yaml:"log_channel_id,omitempty"`
	PendingChannelID int64  `yaml:"pending_channel_id,omitempty"`
}

func (g GuildDoc) toModel() model.GuildSettings {
	return model.GuildSettings{
		GuildID:          g.GuildID,
		GuildName:        g.GuildName,
		Mode:             model.Mode(g.Mode),
		AdminRoleID:      g.AdminRoleID,
		PendingRoleID:    g.PendingRoleID,
		LogChannelID:     g.LogChannelID,
		PendingChannelID: g.PendingChannelID,
	}
}

// RoleDoc is one cached role name.
type RoleDoc struct {
	RoleID int64  `yaml:"role_id"`
	Name   string `yaml:"name"`
}

// RuleDoc is one invite rule.
type RuleDoc struct {
	Code      string  `yaml:"code"`
	RoleIDs   []int64 `yaml:"role_ids"`
	IsDefault bool    `yaml:"is_default,omitempty"`
}

// FieldDoc is one application form question.
type FieldDoc struct {
	ID       int64  `yaml:"id"`
	Label    string `yaml:"label"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required,omitempty"`
	Order    int    `yaml:"order,omitempty"`
}

// EventDoc mirrors model.Event for YAML scenarios. The guild id comes
// from the scenario's guild; everything else is per event.
type EventDoc struct {
	Kind      string   `yaml:"kind"`
	ChannelID int64    `yaml:"channel_id,omitempty"`
	DM        bool     `yaml:"dm,omitempty"`
	Actor     ActorDoc `yaml:"actor"`

	Command      string     `yaml:"command,omitempty"`
	UserMentions []UserDoc  `yaml:"user_mentions,omitempty"`
	RoleMentions []RoleDoc  `yaml:"role_mentions,omitempty"`
	Invite       *InviteDoc `yaml:"invite,omitempty"`

	Answers map[string]string `yaml:"answers,omitempty"`

	Emoji         string `yaml:"emoji,omitempty"`
	MessageID     int64  `yaml:"message_id,omitempty"`
	ApplicationID int64  `yaml:"application_id,omitempty"`
}

// ActorDoc identifies the user behind an event.
type ActorDoc struct {
	ID      int64   `yaml:"id"`
	Name    string  `yaml:"name"`
	RoleIDs []int64 `yaml:"role_ids,omitempty"`
	Owner   bool    `yaml:"owner,omitempty"`
}

// UserDoc is a resolved user mention.
type UserDoc struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// InviteDoc describes the invitation of a join event.
type InviteDoc struct {
	Code        string `yaml:"code"`
	InviterID   int64  `yaml:"inviter_id,omitempty"`
	InviterName string `yaml:"inviter_name,omitempty"`
}

func (e EventDoc) toModel(guildID int64) model.Event {
	ev := model.Event{
		Kind:      model.TriggerKind(e.Kind),
		GuildID:   guildID,
		ChannelID: e.ChannelID,
		DM:        e.DM,
		Actor: model.Actor{
			ID: e.Actor.ID, Name: e.Actor.Name,
			RoleIDs: e.Actor.RoleIDs, Owner: e.Actor.Owner,
		},
		Command:       e.Command,
		Answers:       e.Answers,
		Emoji:         e.Emoji,
		MessageID:     e.MessageID,
		ApplicationID: e.ApplicationID,
	}
	for _, u := range e.UserMentions {
		ev.UserMentions = append(ev.UserMentions, model.UserRef{ID: u.ID, Name: u.Name})
	}
	for _, r := range e.RoleMentions {
		ev.RoleMentions = append(ev.RoleMentions, model.RoleRef{ID: r.RoleID, Name: r.Name})
	}
	if e.Invite != nil {
		ev.Invite = &model.InviteInfo{
			Code: e.Invite.Code, InviterID: e.Invite.InviterID, InviterName: e.Invite.InviterName,
		}
	}
	return ev
}

// Assertion validates one plan or the final stored state.
type Assertion struct {
	// Type selects the assertion:
	//   - "plan_order": the action kinds of one event's plan, exactly
	//   - "plan_contains": one event's plan holds a matching action
	//   - "plan_count": a kind appears exactly N times in one plan
	//   - "report": one event's plan carries a report of the given kind
	//   - "final_status": an application's stored terminal status
	Type string `yaml:"type"`

	// Event is the 1-based index of the event whose plan is checked.
	// Used by every type except final_status.
	Event int `yaml:"event,omitempty"`

	Kinds  []string   `yaml:"kinds,omitempty"`  // plan_order
	Action *ActionDoc `yaml:"action,omitempty"` // plan_contains
	Kind   string     `yaml:"kind,omitempty"`   // plan_count, report
	Count  int        `yaml:"count,omitempty"`  // plan_count

	UserID int64  `yaml:"user_id,omitempty"` // final_status
	Status string `yaml:"status,omitempty"`  // final_status
}

// ActionDoc is a subset matcher over one planned action. Zero fields are
// ignored; ContentContains matches a substring of the action content.
type ActionDoc struct {
	Kind            string `yaml:"kind"`
	ChannelID       int64  `yaml:"channel_id,omitempty"`
	UserID          int64  `yaml:"user_id,omitempty"`
	RoleID          int64  `yaml:"role_id,omitempty"`
	ContentContains string `yaml:"content_contains,omitempty"`
}

// Assertion type constants.
const (
	AssertPlanOrder    = "plan_order"
	AssertPlanContains = "plan_contains"
	AssertPlanCount    = "plan_count"
	AssertReport       = "report"
	AssertFinalStatus  = "final_status"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typoed key fails the scenario instead of silently passing.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses one scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Guild.GuildID == 0 {
		return fmt.Errorf("guild.guild_id is required")
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, ev := range s.Events {
		if !model.ValidTriggers[model.TriggerKind(ev.Kind)] {
			return fmt.Errorf("events[%d]: unknown kind %q", i, ev.Kind)
		}
		if ev.Actor.ID == 0 {
			return fmt.Errorf("events[%d]: actor.id is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, len(s.Events)); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion, eventCount int) error {
	needsEvent := a.Type != AssertFinalStatus
	if needsEvent {
		if a.Event < 1 || a.Event > eventCount {
			return fmt.Errorf("assertions[%d]: event %d out of range 1..%d", index, a.Event, eventCount)
		}
	}

	switch a.Type {
	case AssertPlanOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for plan_order", index)
		}
	case AssertPlanContains:
		if a.Action == nil || a.Action.Kind == "" {
			return fmt.Errorf("assertions[%d]: action.kind is required for plan_contains", index)
		}
	case AssertPlanCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for plan_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for plan_count", index)
		}
	case AssertReport:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for report", index)
		}
	case AssertFinalStatus:
		if a.UserID == 0 {
			return fmt.Errorf("assertions[%d]: user_id is required for final_status", index)
		}
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for final_status", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
