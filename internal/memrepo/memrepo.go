// Package memrepo provides an in-memory model.Repository.
//
// It backs package tests and the CLI's stateless mode, where events are
// planned against seeded fixture data with nothing written to disk.
// Semantics match the sqlite store: ErrNotFound on missing rows, ids
// assigned on first insert, upserts keyed the same way.
package memrepo

import (
	"context"
	"sync"

	"github.com/vic-nas/bouncer/internal/model"
	"github.com/vic-nas/bouncer/internal/template"
)

// Repo is a mutex-guarded in-memory repository.
type Repo struct {
	mu sync.Mutex

	settings  map[int64]model.GuildSettings
	autos     map[int64][]model.Automation
	rules     map[int64][]model.InviteRule
	apps      map[int64]map[int64]model.Application // guild -> user
	fields    map[int64][]model.FormField
	dropdowns map[int64]map[int64]model.Dropdown // guild -> id
	overrides map[int64]map[template.Kind]string
	defaults  map[template.Kind]string
	roles     map[int64][]model.Role
	channels  map[int64][]model.Channel
	members   map[int64][]model.Member
	tokens    map[int64]map[int64]model.AccessToken // user -> guild

	autoSeq, appSeq, fieldSeq, ruleSeq, dropSeq int64
}

// New returns an empty repository.
func New() *Repo {
	return &Repo{
		settings:  map[int64]model.GuildSettings{},
		autos:     map[int64][]model.Automation{},
		rules:     map[int64][]model.InviteRule{},
		apps:      map[int64]map[int64]model.Application{},
		fields:    map[int64][]model.FormField{},
		dropdowns: map[int64]map[int64]model.Dropdown{},
		overrides: map[int64]map[template.Kind]string{},
		defaults:  map[template.Kind]string{},
		roles:     map[int64][]model.Role{},
		channels:  map[int64][]model.Channel{},
		members:   map[int64][]model.Member{},
		tokens:    map[int64]map[int64]model.AccessToken{},
	}
}

var _ model.Repository = (*Repo)(nil)

func (r *Repo) GuildSettings(_ context.Context, guildID int64) (model.GuildSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gs, ok := r.settings[guildID]
	if !ok {
		return model.GuildSettings{}, model.ErrNotFound
	}
	return gs, nil
}

func (r *Repo) SaveGuildSettings(_ context.Context, gs model.GuildSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[gs.GuildID] = gs
	return nil
}

func (r *Repo) ListAutomations(_ context.Context, guildID int64, trigger model.TriggerKind) ([]model.Automation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Automation
	for _, a := range r.autos[guildID] {
		if a.Trigger == trigger {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *Repo) ListAllAutomations(_ context.Context, guildID int64) ([]model.Automation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Automation(nil), r.autos[guildID]...), nil
}

func (r *Repo) CreateAutomation(_ context.Context, a model.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == 0 {
		r.autoSeq++
		a.ID = r.autoSeq
	}
	r.autos[a.GuildID] = append(r.autos[a.GuildID], a)
	return nil
}

func (r *Repo) ListInviteRules(_ context.Context, guildID int64) ([]model.InviteRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.InviteRule(nil), r.rules[guildID]...), nil
}

func (r *Repo) UpsertInviteRule(_ context.Context, rule model.InviteRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rules := r.rules[rule.GuildID]
	// At most one default rule per guild.
	if rule.IsDefault {
		for i := range rules {
			if rules[i].Code != rule.Code {
				rules[i].IsDefault = false
			}
		}
	}
	for i := range rules {
		if rules[i].Code == rule.Code {
			rule.ID = rules[i].ID
			rules[i] = rule
			return nil
		}
	}
	if rule.ID == 0 {
		r.ruleSeq++
		rule.ID = r.ruleSeq
	}
	r.rules[rule.GuildID] = append(rules, rule)
	return nil
}

func (r *Repo) DeleteInviteRule(_ context.Context, guildID int64, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rules := r.rules[guildID]
	for i := range rules {
		if rules[i].Code == code {
			r.rules[guildID] = append(rules[:i:i], rules[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

func (r *Repo) Application(_ context.Context, guildID, userID int64) (model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[guildID][userID]
	if !ok {
		return model.Application{}, model.ErrNotFound
	}
	return app, nil
}

func (r *Repo) ApplicationByID(_ context.Context, guildID, appID int64) (model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps[guildID] {
		if app.ID == appID {
			return app, nil
		}
	}
	return model.Application{}, model.ErrNotFound
}

func (r *Repo) UpsertApplication(_ context.Context, app model.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.apps[app.GuildID][app.UserID]; ok && app.ID == 0 {
		app.ID = existing.ID
	}
	if app.ID == 0 {
		r.appSeq++
		app.ID = r.appSeq
	}
	if r.apps[app.GuildID] == nil {
		r.apps[app.GuildID] = map[int64]model.Application{}
	}
	r.apps[app.GuildID][app.UserID] = app
	return nil
}

func (r *Repo) ListFormFields(_ context.Context, guildID int64) ([]model.FormField, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.FormField(nil), r.fields[guildID]...), nil
}

func (r *Repo) CreateFormField(_ context.Context, f model.FormField) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == 0 {
		r.fieldSeq++
		f.ID = r.fieldSeq
	}
	r.fields[f.GuildID] = append(r.fields[f.GuildID], f)
	return nil
}

func (r *Repo) Dropdown(_ context.Context, guildID, dropdownID int64) (model.Dropdown, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dd, ok := r.dropdowns[guildID][dropdownID]
	if !ok {
		return model.Dropdown{}, model.ErrNotFound
	}
	return dd, nil
}

func (r *Repo) CreateDropdown(_ context.Context, d model.Dropdown) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == 0 {
		r.dropSeq++
		d.ID = r.dropSeq
	}
	if r.dropdowns[d.GuildID] == nil {
		r.dropdowns[d.GuildID] = map[int64]model.Dropdown{}
	}
	r.dropdowns[d.GuildID][d.ID] = d
	return d.ID, nil
}

func (r *Repo) TemplateOverrides(_ context.Context, guildID int64) (map[template.Kind]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[template.Kind]string, len(r.overrides[guildID]))
	for k, v := range r.overrides[guildID] {
		out[k] = v
	}
	return out, nil
}

func (r *Repo) DefaultTemplates(_ context.Context) (map[template.Kind]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[template.Kind]string, len(r.defaults))
	for k, v := range r.defaults {
		out[k] = v
	}
	return out, nil
}

// SetTemplateOverride stores a per-guild template override.
func (r *Repo) SetTemplateOverride(guildID int64, kind template.Kind, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overrides[guildID] == nil {
		r.overrides[guildID] = map[template.Kind]string{}
	}
	r.overrides[guildID][kind] = text
}

func (r *Repo) SyncRoles(_ context.Context, guildID int64, roles []model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[guildID] = append([]model.Role(nil), roles...)
	return nil
}

func (r *Repo) SyncChannels(_ context.Context, guildID int64, channels []model.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[guildID] = append([]model.Channel(nil), channels...)
	return nil
}

func (r *Repo) SyncMembers(_ context.Context, guildID int64, members []model.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[guildID] = append([]model.Member(nil), members...)
	return nil
}

func (r *Repo) RoleNames(_ context.Context, guildID int64) (map[int64]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make(map[int64]string, len(r.roles[guildID]))
	for _, role := range r.roles[guildID] {
		names[role.RoleID] = role.Name
	}
	return names, nil
}

func (r *Repo) ListMembersWithRole(_ context.Context, guildID, roleID int64) ([]model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Member
	for _, m := range r.members[guildID] {
		if m.HasRole(roleID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *Repo) AccessToken(_ context.Context, userID, guildID int64) (model.AccessToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, ok := r.tokens[userID][guildID]
	if !ok {
		return model.AccessToken{}, model.ErrNotFound
	}
	return tok, nil
}

func (r *Repo) SaveAccessToken(_ context.Context, tok model.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tokens[tok.UserID] == nil {
		r.tokens[tok.UserID] = map[int64]model.AccessToken{}
	}
	r.tokens[tok.UserID][tok.GuildID] = tok
	return nil
}
