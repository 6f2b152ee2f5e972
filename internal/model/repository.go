package model

import (
	"context"
	"errors"

	"github.com/vic-nas/bouncer/internal/template"
)

// ErrNotFound is returned by repository lookups when no row matches.
// Callers distinguish it from infrastructure failures with errors.Is.
var ErrNotFound = errors.New("not found")

// Repository is the engine's only view of durable storage. All operations
// are keyed by guild id; the engine never issues cross-guild queries.
//
// Implementations must provide atomic single-row updates. The engine reads
// at the start of handling one event and writes back explicitly; it never
// caches entities across events.
type Repository interface {
	// Guild configuration.
	GuildSettings(ctx context.Context, guildID int64) (GuildSettings, error)
	SaveGuildSettings(ctx context.Context, gs GuildSettings) error

	// Automations (read-only to the engine except for seeding via reload).
	ListAutomations(ctx context.Context, guildID int64, trigger TriggerKind) ([]Automation, error)
	ListAllAutomations(ctx context.Context, guildID int64) ([]Automation, error)
	CreateAutomation(ctx context.Context, a Automation) error

	// Invite rules.
	ListInviteRules(ctx context.Context, guildID int64) ([]InviteRule, error)
	UpsertInviteRule(ctx context.Context, rule InviteRule) error
	DeleteInviteRule(ctx context.Context, guildID int64, code string) error

	// Applications, keyed by (guild, user).
	Application(ctx context.Context, guildID, userID int64) (Application, error)
	ApplicationByID(ctx context.Context, guildID, appID int64) (Application, error)
	UpsertApplication(ctx context.Context, app Application) error

	// Form definitions.
	ListFormFields(ctx context.Context, guildID int64) ([]FormField, error)
	CreateFormField(ctx context.Context, f FormField) error
	Dropdown(ctx context.Context, guildID, dropdownID int64) (Dropdown, error)
	CreateDropdown(ctx context.Context, d Dropdown) (int64, error)

	// Templates. Overrides are per-guild; defaults are global.
	TemplateOverrides(ctx context.Context, guildID int64) (map[template.Kind]string, error)
	DefaultTemplates(ctx context.Context) (map[template.Kind]string, error)

	// Platform caches, refreshed by reload.
	SyncRoles(ctx context.Context, guildID int64, roles []Role) error
	SyncChannels(ctx context.Context, guildID int64, channels []Channel) error
	SyncMembers(ctx context.Context, guildID int64, members []Member) error
	RoleNames(ctx context.Context, guildID int64) (map[int64]string, error)
	ListMembersWithRole(ctx context.Context, guildID, roleID int64) ([]Member, error)

	// Web-panel access tokens.
	AccessToken(ctx context.Context, userID, guildID int64) (AccessToken, error)
	SaveAccessToken(ctx context.Context, tok AccessToken) error
}
