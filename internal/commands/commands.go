// Package commands implements the built-in command router.
//
// Every handler validates its arguments before touching storage, so a
// malformed invocation never leaves partial state behind. Permission and
// context failures (wrong channel kind, missing admin role) are reported
// through the plan, never as Go errors; only repository failures
// propagate as errors.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vic-nas/bouncer/internal/model"
	"github.com/vic-nas/bouncer/internal/template"
	"github.com/vic-nas/bouncer/internal/workflow"
)

// Deps carries the collaborators a command handler needs.
type Deps struct {
	Repo      model.Repository
	Templates *template.Resolver
	Now       func() time.Time
	FormURL   string
	PanelURL  string        // web panel base URL for getaccess links
	TokenTTL  time.Duration // access token lifetime, 0 means 24h
	NewToken  func() string // token generator, defaults to UUIDv7

	// Seed supplies the default automations for a guild. Used by reload
	// to recreate any that were deleted from storage.
	Seed func(guildID int64) []model.Automation
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d Deps) newToken() string {
	if d.NewToken != nil {
		return d.NewToken()
	}
	tok, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return tok.String()
}

func (d Deps) tokenTTL() time.Duration {
	if d.TokenTTL > 0 {
		return d.TokenTTL
	}
	return 24 * time.Hour
}

func (d Deps) workflow() workflow.Deps {
	return workflow.Deps{Repo: d.Repo, Templates: d.Templates, Now: d.Now, FormURL: d.FormURL}
}

type handler func(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, args []string) (model.Plan, error)

type builtin struct {
	run     handler
	admin   bool   // requires the guild admin role or ownership
	dmOnly  bool   // must be invoked from a direct message
	usage   string // argument shape, shown on validation failures
	summary string // one line for help
}

// builtins is populated in init: cmdHelp and usageFail read the map, so
// a package-level composite literal would form an initialization cycle.
var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		"help":       {run: cmdHelp, summary: "list available commands"},
		"getaccess":  {run: cmdGetAccess, dmOnly: true, summary: "request a web panel access link (DM only)"},
		"reload":     {run: cmdReload, admin: true, summary: "refresh caches and recreate missing defaults"},
		"setmode":    {run: cmdSetMode, admin: true, usage: "setmode <AUTO|APPROVAL>", summary: "switch the guild admission mode"},
		"addrule":    {run: cmdAddRule, admin: true, usage: "addrule <code|default> <@Role|\"Role Name\">... [description]", summary: "map an invite code to roles"},
		"delrule":    {run: cmdDelRule, admin: true, usage: "delrule <code>", summary: "remove an invite rule"},
		"listrules":  {run: cmdListRules, admin: true, summary: "list configured invite rules"},
		"addfield":   {run: cmdAddField, admin: true, usage: "addfield <type> <required|optional> <label>", summary: "add an application form question"},
		"listfields": {run: cmdListFields, admin: true, summary: "list application form questions"},
		"approve":    {run: cmdApprove, admin: true, usage: "approve <@user [@ExtraRole...]|@Role>", summary: "approve an application, or all pending holders of a role"},
		"reject":     {run: cmdReject, admin: true, usage: "reject <@user> [reason]", summary: "reject an application"},
		"cleanup":    {run: cmdCleanup, admin: true, usage: "cleanup [count]", summary: "delete recent bot messages in this channel"},
		"cleanall":   {run: cmdCleanAll, admin: true, summary: "clean the log and pending channels"},
	}
}

// Names returns all built-in command names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Route parses ev.Command and dispatches it to a built-in handler.
//
// handled is false when the command name is not a built-in; the caller
// then falls through to COMMAND automations before reporting an unknown
// command. Context and permission failures still count as handled.
func Route(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event) (plan model.Plan, handled bool, err error) {
	name, args := Tokenize(ev.Command)
	cmd, ok := builtins[name]
	if !ok {
		return plan, false, nil
	}

	if cmd.dmOnly && !ev.DM {
		plan.Report(model.Report{Kind: model.ReportPermissionDenied, Command: name, UserID: ev.Actor.ID, Message: "direct message required"})
		plan.Add(reply(d, ev, d.Templates.Render(template.KindDMOnlyWarning, nil)))
		return plan, true, nil
	}
	if !cmd.dmOnly && ev.DM {
		plan.Report(model.Report{Kind: model.ReportPermissionDenied, Command: name, UserID: ev.Actor.ID, Message: "guild channel required"})
		plan.Add(model.Action{Kind: model.ActionSendDM, UserID: ev.Actor.ID, Content: d.Templates.Render(template.KindServerOnlyWarning, nil)})
		return plan, true, nil
	}
	if cmd.admin && !isAdmin(gs, ev.Actor) {
		plan.Report(model.Report{Kind: model.ReportPermissionDenied, Command: name, UserID: ev.Actor.ID, Message: "admin role required"})
		plan.Add(replyError(d, ev, "You need the admin role to use `"+name+"`."))
		return plan, true, nil
	}

	plan, err = cmd.run(ctx, d, gs, ev, args)
	if err != nil {
		return plan, true, fmt.Errorf("%s: %w", name, err)
	}
	// Stamp the command name on reports the handler left unattributed.
	for i := range plan.Reports {
		if plan.Reports[i].Command == "" {
			plan.Reports[i].Command = name
		}
	}
	return plan, true, nil
}

func isAdmin(gs model.GuildSettings, actor model.Actor) bool {
	if actor.Owner {
		return true
	}
	return gs.AdminRoleID != 0 && actor.HasRole(gs.AdminRoleID)
}

func cmdHelp(_ context.Context, d Deps, _ model.GuildSettings, ev model.Event, _ []string) (model.Plan, error) {
	var plan model.Plan
	var lines []string
	for _, name := range Names() {
		lines = append(lines, fmt.Sprintf("`%s` — %s", name, builtins[name].summary))
	}
	plan.Add(reply(d, ev, d.Templates.Render(template.KindHelpMessage, map[string]string{
		"commands": strings.Join(lines, "\n"),
	})))
	return plan, nil
}

// cmdGetAccess issues (or re-sends) a web panel access link for every
// guild the actor administers, one DM per guild. DM only. Unexpired
// tokens are reused so repeated requests do not invalidate links the
// admin already has open.
func cmdGetAccess(ctx context.Context, d Deps, _ model.GuildSettings, ev model.Event, _ []string) (model.Plan, error) {
	var plan model.Plan

	if len(ev.AdminGuilds) == 0 {
		plan.Report(model.Report{Kind: model.ReportPermissionDenied, UserID: ev.Actor.ID, Message: "not an admin on any configured guild"})
		plan.Add(model.Action{Kind: model.ActionSendDM, UserID: ev.Actor.ID, Content: d.Templates.Render(template.KindGetAccessNoAdmin, nil)})
		return plan, nil
	}

	now := d.now()
	for _, guild := range ev.AdminGuilds {
		tok, err := d.Repo.AccessToken(ctx, ev.Actor.ID, guild.ID)
		switch {
		case errors.Is(err, model.ErrNotFound):
			tok = model.AccessToken{}
		case err != nil:
			return plan, fmt.Errorf("load access token for guild %d: %w", guild.ID, err)
		}

		kind := template.KindGetAccessExists
		if !tok.Valid(now) {
			tok = model.AccessToken{
				Token:     d.newToken(),
				UserID:    ev.Actor.ID,
				UserName:  ev.Actor.Name,
				GuildID:   guild.ID,
				CreatedAt: now,
				ExpiresAt: now.Add(d.tokenTTL()),
			}
			if err := d.Repo.SaveAccessToken(ctx, tok); err != nil {
				return plan, fmt.Errorf("save access token for guild %d: %w", guild.ID, err)
			}
			kind = template.KindGetAccessResponse
		}

		plan.Add(model.Action{
			Kind:   model.ActionSendDM,
			UserID: ev.Actor.ID,
			Content: d.Templates.Render(kind, map[string]string{
				"server":  guild.Name,
				"url":     strings.TrimRight(d.PanelURL, "/") + "/panel?token=" + tok.Token,
				"expires": tok.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
			}),
		})
	}
	return plan, nil
}

// cmdReload converges the guild against the live snapshot: refreshes the
// role/channel/member caches, opens PENDING applications for members that
// have none, recreates deleted default automations by name, and asks the
// executor to create any missing managed resources. Running it twice with
// no intervening change creates nothing the second time.
func cmdReload(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, _ []string) (model.Plan, error) {
	var plan model.Plan

	if ev.Snapshot == nil {
		plan.Report(model.Report{Kind: model.ReportValidation, UserID: ev.Actor.ID, Message: "no live guild state supplied"})
		plan.Add(replyError(d, ev, "Reload needs live guild state; try again."))
		return plan, nil
	}
	snap := ev.Snapshot

	roles := make([]model.Role, 0, len(snap.Roles))
	for _, r := range snap.Roles {
		roles = append(roles, model.Role{GuildID: gs.GuildID, RoleID: r.ID, Name: r.Name})
	}
	if err := d.Repo.SyncRoles(ctx, gs.GuildID, roles); err != nil {
		return plan, fmt.Errorf("sync roles: %w", err)
	}
	channels := make([]model.Channel, 0, len(snap.Channels))
	for _, c := range snap.Channels {
		channels = append(channels, model.Channel{GuildID: gs.GuildID, ChannelID: c.ID, Name: c.Name})
	}
	if err := d.Repo.SyncChannels(ctx, gs.GuildID, channels); err != nil {
		return plan, fmt.Errorf("sync channels: %w", err)
	}
	if err := d.Repo.SyncMembers(ctx, gs.GuildID, snap.Members); err != nil {
		return plan, fmt.Errorf("sync members: %w", err)
	}

	createdApps := 0
	if gs.Mode == model.ModeApproval {
		for _, m := range snap.Members {
			if m.Bot {
				continue
			}
			_, err := d.Repo.Application(ctx, gs.GuildID, m.UserID)
			if err == nil {
				continue
			}
			if !errors.Is(err, model.ErrNotFound) {
				return plan, fmt.Errorf("load application for %d: %w", m.UserID, err)
			}
			app := model.Application{
				GuildID:    gs.GuildID,
				UserID:     m.UserID,
				UserName:   m.Name,
				InviteCode: "unknown",
				Status:     model.StatusPending,
				CreatedAt:  d.now(),
			}
			if err := d.Repo.UpsertApplication(ctx, app); err != nil {
				return plan, fmt.Errorf("create application for %d: %w", m.UserID, err)
			}
			createdApps++
		}
	}

	createdAutos := 0
	if d.Seed != nil {
		existing, err := d.Repo.ListAllAutomations(ctx, gs.GuildID)
		if err != nil {
			return plan, fmt.Errorf("list automations: %w", err)
		}
		have := make(map[string]bool, len(existing))
		for _, a := range existing {
			have[a.Name] = true
		}
		for _, a := range d.Seed(gs.GuildID) {
			if have[a.Name] {
				continue
			}
			if err := d.Repo.CreateAutomation(ctx, a); err != nil {
				return plan, fmt.Errorf("create automation %q: %w", a.Name, err)
			}
			createdAutos++
		}
	}

	// Converge managed resources only when something the settings point
	// at is absent from the live state.
	if missingResources(gs, snap) {
		plan.Add(model.Action{Kind: model.ActionEnsureResources, GuildID: gs.GuildID})
	}

	plan.Add(reply(d, ev, d.Templates.Render(template.KindCommandSuccess, map[string]string{
		"message": fmt.Sprintf("Reload complete. Cached %d roles, %d channels, %d members. Created %d applications, %d automations.",
			len(snap.Roles), len(snap.Channels), len(snap.Members), createdApps, createdAutos),
	})))
	return plan, nil
}

// missingResources reports whether any settings-designated role or
// channel is unset or absent from the live snapshot.
func missingResources(gs model.GuildSettings, snap *model.Snapshot) bool {
	hasRole := func(id int64) bool {
		for _, r := range snap.Roles {
			if r.ID == id {
				return true
			}
		}
		return false
	}
	hasChannel := func(id int64) bool {
		for _, c := range snap.Channels {
			if c.ID == id {
				return true
			}
		}
		return false
	}
	if gs.AdminRoleID == 0 || !hasRole(gs.AdminRoleID) {
		return true
	}
	if gs.PendingRoleID == 0 || !hasRole(gs.PendingRoleID) {
		return true
	}
	if gs.LogChannelID == 0 || !hasChannel(gs.LogChannelID) {
		return true
	}
	if gs.Mode == model.ModeApproval && (gs.PendingChannelID == 0 || !hasChannel(gs.PendingChannelID)) {
		return true
	}
	return false
}

func cmdSetMode(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, args []string) (model.Plan, error) {
	var plan model.Plan

	if len(args) != 1 {
		return usageFail(d, ev, "setmode"), nil
	}
	mode := model.Mode(strings.ToUpper(args[0]))
	if mode != model.ModeAuto && mode != model.ModeApproval {
		plan.Report(model.Report{Kind: model.ReportValidation, UserID: ev.Actor.ID, Message: "mode must be AUTO or APPROVAL"})
		plan.Add(replyError(d, ev, "Mode must be `AUTO` or `APPROVAL`."))
		return plan, nil
	}

	gs.Mode = mode
	if err := d.Repo.SaveGuildSettings(ctx, gs); err != nil {
		return plan, fmt.Errorf("save settings: %w", err)
	}
	plan.Add(reply(d, ev, d.Templates.Render(template.KindCommandSuccess, map[string]string{
		"message": "Mode set to **" + string(mode) + "**. Applies to future joins only.",
	})))
	return plan, nil
}

// cmdAddRule upserts an invite rule. Re-adding an existing code
// overwrites it, last write wins. The code "default" marks the rule as
// the guild's fallback for unconfigured codes.
func cmdAddRule(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, args []string) (model.Plan, error) {
	var plan model.Plan

	if len(args) < 2 {
		return usageFail(d, ev, "addrule"), nil
	}
	code := args[0]
	// The default keyword is case-insensitive; store it canonically so
	// "default" and "DEFAULT" are the same rule.
	if strings.EqualFold(code, "default") {
		code = "default"
	}

	roleNames, err := d.Repo.RoleNames(ctx, gs.GuildID)
	if err != nil {
		return plan, fmt.Errorf("load role names: %w", err)
	}

	// Role arguments: mentions come pre-resolved on the event; bare or
	// quoted tokens are matched by name. The first token that is neither
	// starts the description.
	roleIDs := make([]int64, 0, len(ev.RoleMentions))
	for _, r := range ev.RoleMentions {
		roleIDs = append(roleIDs, r.ID)
	}
	var descParts []string
	for _, arg := range args[1:] {
		if isMentionToken(arg) {
			continue
		}
		if len(descParts) == 0 {
			if id := roleByName(roleNames, ev.Snapshot, arg); id != 0 {
				roleIDs = append(roleIDs, id)
				continue
			}
		}
		descParts = append(descParts, arg)
	}
	roleIDs = dedupe(roleIDs)

	if len(roleIDs) == 0 {
		plan.Report(model.Report{Kind: model.ReportValidation, UserID: ev.Actor.ID, Message: "no valid roles given"})
		plan.Add(replyError(d, ev, "No valid roles found. Mention roles or give exact role names."))
		return plan, nil
	}

	rule := model.InviteRule{
		GuildID:     gs.GuildID,
		Code:        code,
		RoleIDs:     roleIDs,
		Description: strings.Join(descParts, " "),
		IsDefault:   code == "default",
	}
	if err := d.Repo.UpsertInviteRule(ctx, rule); err != nil {
		return plan, fmt.Errorf("upsert rule: %w", err)
	}

	var names []string
	for _, id := range roleIDs {
		if n := roleNames[id]; n != "" {
			names = append(names, n)
		} else {
			names = append(names, strconv.FormatInt(id, 10))
		}
	}
	plan.Add(reply(d, ev, d.Templates.Render(template.KindCommandSuccess, map[string]string{
		"message": fmt.Sprintf("Invite `%s` now grants: %s", code, strings.Join(names, ", ")),
	})))
	return plan, nil
}

func cmdDelRule(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, args []string) (model.Plan, error) {
	var plan model.Plan

	if len(args) != 1 {
		return usageFail(d, ev, "delrule"), nil
	}
	code := args[0]

	err := d.Repo.DeleteInviteRule(ctx, gs.GuildID, code)
	if errors.Is(err, model.ErrNotFound) {
		plan.Report(model.Report{Kind: model.ReportNotFound, UserID: ev.Actor.ID, Message: "no rule for code " + code})
		plan.Add(replyError(d, ev, "No rule found for invite `"+code+"`."))
		return plan, nil
	}
	if err != nil {
		return plan, fmt.Errorf("delete rule: %w", err)
	}
	plan.Add(reply(d, ev, d.Templates.Render(template.KindCommandSuccess, map[string]string{
		"message": "Removed rule for invite `" + code + "`.",
	})))
	return plan, nil
}

func cmdListRules(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, _ []string) (model.Plan, error) {
	var plan model.Plan

	rules, err := d.Repo.ListInviteRules(ctx, gs.GuildID)
	if err != nil {
		return plan, fmt.Errorf("list rules: %w", err)
	}
	if len(rules) == 0 {
		plan.Add(reply(d, ev, "No invite rules configured. Use `addrule` to create one."))
		return plan, nil
	}
	roleNames, err := d.Repo.RoleNames(ctx, gs.GuildID)
	if err != nil {
		return plan, fmt.Errorf("load role names: %w", err)
	}

	var lines []string
	for _, r := range rules {
		var names []string
		for _, id := range r.RoleIDs {
			if n := roleNames[id]; n != "" {
				names = append(names, n)
			} else {
				names = append(names, strconv.FormatInt(id, 10))
			}
		}
		line := fmt.Sprintf("`%s` → %s", r.Code, strings.Join(names, ", "))
		if r.IsDefault {
			line += " *(default)*"
		}
		if r.Description != "" {
			line += " — " + r.Description
		}
		lines = append(lines, line)
	}
	plan.Add(model.Action{
		Kind:      model.ActionSendEmbed,
		ChannelID: ev.ChannelID,
		Embed: &model.Embed{
			Title:       "🔗 Invite Rules",
			Description: strings.Join(lines, "\n"),
			Color:       model.ColorBlue,
		},
	})
	return plan, nil
}

func cmdAddField(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, args []string) (model.Plan, error) {
	var plan model.Plan

	if len(args) < 3 {
		return usageFail(d, ev, "addfield"), nil
	}
	ftype := model.FieldType(strings.ToLower(args[0]))
	if !model.ValidFieldTypes[ftype] {
		plan.Report(model.Report{Kind: model.ReportValidation, UserID: ev.Actor.ID, Message: "unknown field type " + args[0]})
		plan.Add(replyError(d, ev, "Field type must be one of: text, textarea, dropdown, checkbox, file."))
		return plan, nil
	}
	var required bool
	switch strings.ToLower(args[1]) {
	case "required":
		required = true
	case "optional":
	default:
		return usageFail(d, ev, "addfield"), nil
	}
	label := strings.Join(args[2:], " ")

	existing, err := d.Repo.ListFormFields(ctx, gs.GuildID)
	if err != nil {
		return plan, fmt.Errorf("list fields: %w", err)
	}
	field := model.FormField{
		GuildID:  gs.GuildID,
		Label:    label,
		Type:     ftype,
		Required: required,
		Order:    len(existing),
	}
	if err := d.Repo.CreateFormField(ctx, field); err != nil {
		return plan, fmt.Errorf("create field: %w", err)
	}

	req := "optional"
	if required {
		req = "required"
	}
	plan.Add(reply(d, ev, d.Templates.Render(template.KindCommandSuccess, map[string]string{
		"message": fmt.Sprintf("Added %s field **%s** (%s).", ftype, label, req),
	})))
	return plan, nil
}

func cmdListFields(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, _ []string) (model.Plan, error) {
	var plan model.Plan

	fields, err := d.Repo.ListFormFields(ctx, gs.GuildID)
	if err != nil {
		return plan, fmt.Errorf("list fields: %w", err)
	}
	if len(fields) == 0 {
		plan.Add(reply(d, ev, "No form fields configured. Use `addfield` to create one."))
		return plan, nil
	}

	var lines []string
	for i, f := range fields {
		req := ""
		if f.Required {
			req = " *(required)*"
		}
		lines = append(lines, fmt.Sprintf("%d. **%s** — %s%s", i+1, f.Label, f.Type, req))
	}
	plan.Add(model.Action{
		Kind:      model.ActionSendEmbed,
		ChannelID: ev.ChannelID,
		Embed: &model.Embed{
			Title:       "📝 Application Form",
			Description: strings.Join(lines, "\n"),
			Color:       model.ColorBlue,
		},
	})
	return plan, nil
}

// cmdApprove handles both forms: a user mention approves that user's
// application (extra role mentions are granted on top of the invite
// rule's roles); a lone role mention bulk-approves every pending holder
// of that role.
func cmdApprove(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, _ []string) (model.Plan, error) {
	switch {
	case len(ev.UserMentions) == 1:
		var extra []int64
		for _, r := range ev.RoleMentions {
			extra = append(extra, r.ID)
		}
		return workflow.Approve(ctx, d.workflow(), gs, ev, ev.UserMentions[0], extra)
	case len(ev.UserMentions) == 0 && len(ev.RoleMentions) == 1:
		return workflow.BulkApprove(ctx, d.workflow(), gs, ev, ev.RoleMentions[0])
	default:
		return usageFail(d, ev, "approve"), nil
	}
}

func cmdReject(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, args []string) (model.Plan, error) {
	if len(ev.UserMentions) != 1 {
		return usageFail(d, ev, "reject"), nil
	}
	// Everything after the mention token is the reason.
	var parts []string
	for _, arg := range args {
		if isMentionToken(arg) {
			continue
		}
		parts = append(parts, arg)
	}
	return workflow.Reject(ctx, d.workflow(), gs, ev, ev.UserMentions[0], strings.Join(parts, " "))
}

func cmdCleanup(_ context.Context, d Deps, _ model.GuildSettings, ev model.Event, args []string) (model.Plan, error) {
	var plan model.Plan

	count := 50
	if len(args) > 1 {
		return usageFail(d, ev, "cleanup"), nil
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 || n > 500 {
			plan.Report(model.Report{Kind: model.ReportValidation, UserID: ev.Actor.ID, Message: "count must be 1-500"})
			plan.Add(replyError(d, ev, "Count must be a number between 1 and 500."))
			return plan, nil
		}
		count = n
	}
	plan.Add(model.Action{Kind: model.ActionCleanupChannel, ChannelID: ev.ChannelID, Count: count})
	return plan, nil
}

func cmdCleanAll(_ context.Context, d Deps, gs model.GuildSettings, ev model.Event, _ []string) (model.Plan, error) {
	var plan model.Plan

	cleaned := 0
	for _, channelID := range []int64{gs.LogChannelID, gs.PendingChannelID} {
		if channelID == 0 {
			continue
		}
		plan.Add(model.Action{Kind: model.ActionCleanupChannel, ChannelID: channelID, Count: 100})
		cleaned++
	}
	if cleaned == 0 {
		plan.Report(model.Report{Kind: model.ReportNotFound, UserID: ev.Actor.ID, Message: "no managed channels configured"})
		plan.Add(replyError(d, ev, "No log or pending channels are configured."))
		return plan, nil
	}
	plan.Add(reply(d, ev, d.Templates.Render(template.KindCommandSuccess, map[string]string{
		"message": fmt.Sprintf("Cleaning %d managed channels.", cleaned),
	})))
	return plan, nil
}

// NotFoundPlan builds the unknown-command response used after COMMAND
// automations also failed to match.
func NotFoundPlan(d Deps, ev model.Event, name string) model.Plan {
	var plan model.Plan
	plan.Report(model.Report{Kind: model.ReportNotFound, Command: name, UserID: ev.Actor.ID, Message: "unknown command"})
	plan.Add(reply(d, ev, d.Templates.Render(template.KindCommandNotFound, map[string]string{
		"command":  name,
		"commands": strings.Join(Names(), ", "),
	})))
	return plan
}

func usageFail(d Deps, ev model.Event, name string) model.Plan {
	var plan model.Plan
	plan.Report(model.Report{Kind: model.ReportValidation, Command: name, UserID: ev.Actor.ID, Message: "usage: " + builtins[name].usage})
	plan.Add(replyError(d, ev, "Usage: `"+builtins[name].usage+"`"))
	return plan
}

func reply(d Deps, ev model.Event, content string) model.Action {
	return model.Action{Kind: model.ActionReply, ChannelID: ev.ChannelID, Content: content}
}

func replyError(d Deps, ev model.Event, msg string) model.Action {
	return reply(d, ev, d.Templates.Render(template.KindCommandError, map[string]string{"message": msg}))
}

// isMentionToken reports whether a raw token is a platform mention
// (<@id>, <@!id>, <@&id>, <#id>). Mentions are consumed through the
// event's resolved mention lists, never parsed from text.
func isMentionToken(s string) bool {
	return strings.HasPrefix(s, "<@") || strings.HasPrefix(s, "<#")
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
