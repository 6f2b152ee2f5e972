// Package workflow implements the application state machine.
//
// States: PENDING -> APPROVED, PENDING -> REJECTED. Both targets are
// terminal; no transition ever leaves a terminal state. The terminal
// record is retained (never deleted), which is what lets a second approve
// or reject be detected and reported instead of silently re-granting.
//
// Every function here plans actions; none executes them. A state
// transition and its role-mutating actions are computed together: the
// record is written back through the repository before the plan is
// returned, so replaying the returned action list is safe at the platform
// layer and never re-derives state.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vic-nas/bouncer/internal/invite"
	"github.com/vic-nas/bouncer/internal/model"
	"github.com/vic-nas/bouncer/internal/template"
)

// Deps carries the collaborators a workflow call needs. Built per event
// by the engine; holds request-scoped snapshots only.
type Deps struct {
	Repo      model.Repository
	Templates *template.Resolver
	Now       func() time.Time
	FormURL   string // base URL for the external application form, may be empty
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// MemberJoin plans the actions for a new member joining through an
// invitation. AUTO mode grants invite-rule roles immediately; APPROVAL
// mode parks the member behind the pending role and opens a PENDING
// application. Both modes log the join.
func MemberJoin(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event) (model.Plan, error) {
	var plan model.Plan

	code, inviterName := "unknown", "Unknown"
	if ev.Invite != nil {
		code = ev.Invite.Code
		inviterName = ev.Invite.InviterName
	}

	roleNames, err := d.Repo.RoleNames(ctx, gs.GuildID)
	if err != nil {
		return plan, fmt.Errorf("load role names: %w", err)
	}

	var grantedNames []string
	if gs.Mode == model.ModeAuto {
		rules, err := d.Repo.ListInviteRules(ctx, gs.GuildID)
		if err != nil {
			return plan, fmt.Errorf("list invite rules: %w", err)
		}
		for _, roleID := range invite.Resolve(rules, code) {
			plan.Add(model.Action{
				Kind:    model.ActionAddRole,
				GuildID: gs.GuildID,
				UserID:  ev.Actor.ID,
				RoleID:  roleID,
				Reason:  "Auto-assigned via invite " + code,
			})
			grantedNames = append(grantedNames, roleName(roleNames, roleID))
		}
	} else {
		approvalPlan, err := approvalJoin(ctx, d, gs, ev, code)
		if err != nil {
			return plan, err
		}
		plan.Merge(approvalPlan)
	}

	// Join log, after the mode-specific actions.
	if gs.LogChannelID != 0 {
		kind := template.KindJoinLogAuto
		rolesVar := joinNames(grantedNames)
		if gs.Mode == model.ModeApproval {
			kind = template.KindJoinLogApproval
			rolesVar = "Pending"
		}
		pending := "@Pending"
		if gs.PendingRoleID != 0 {
			pending = model.MentionRole(gs.PendingRoleID)
		}
		plan.Add(model.Action{
			Kind:      model.ActionSendEmbed,
			ChannelID: gs.LogChannelID,
			Embed: &model.Embed{
				Description: d.Templates.Render(kind, map[string]string{
					"user":        model.MentionUser(ev.Actor.ID),
					"invite_code": code,
					"inviter":     inviterName,
					"roles":       rolesVar,
					"pending":     pending,
				}),
				Color: model.ColorGreen,
			},
		})
	}

	return plan, nil
}

// approvalJoin opens (or refreshes) the member's PENDING application.
// A surviving PENDING record from an earlier join keeps its answers; a
// terminal record from a previous membership is replaced with a fresh
// PENDING one, since re-admission requires a new review.
func approvalJoin(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, code string) (model.Plan, error) {
	var plan model.Plan

	if gs.PendingRoleID != 0 {
		plan.Add(model.Action{
			Kind:    model.ActionAddRole,
			GuildID: gs.GuildID,
			UserID:  ev.Actor.ID,
			RoleID:  gs.PendingRoleID,
			Reason:  "Pending approval",
		})
	}

	app := model.Application{
		GuildID:    gs.GuildID,
		UserID:     ev.Actor.ID,
		UserName:   ev.Actor.Name,
		InviteCode: code,
		Status:     model.StatusPending,
		Answers:    map[string]string{},
		CreatedAt:  d.now(),
	}
	if ev.Invite != nil {
		app.InviterID = ev.Invite.InviterID
		app.InviterName = ev.Invite.InviterName
	}

	existing, err := d.Repo.Application(ctx, gs.GuildID, ev.Actor.ID)
	switch {
	case err == nil && existing.Status == model.StatusPending:
		app.Answers = existing.Answers
		app.CreatedAt = existing.CreatedAt
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return plan, fmt.Errorf("load application: %w", err)
	}
	if err := d.Repo.UpsertApplication(ctx, app); err != nil {
		return plan, fmt.Errorf("save application: %w", err)
	}

	fields, err := d.Repo.ListFormFields(ctx, gs.GuildID)
	if err != nil {
		return plan, fmt.Errorf("list form fields: %w", err)
	}

	if len(fields) == 0 {
		// No form to fill: post straight to the review channel.
		plan.Add(reviewNotice(d, gs, app, nil))
	} else if gs.PendingChannelID != 0 {
		plan.Add(model.Action{
			Kind:      model.ActionSetTopic,
			ChannelID: gs.PendingChannelID,
			Topic: d.Templates.Render(template.KindPendingChannelTopic, map[string]string{
				"form_url": formURL(d.FormURL, gs.GuildID),
			}),
		})
	}

	return plan, nil
}

// MemberLeave cancels the member's PENDING application, if any, so a
// stale request cannot be approved after the user is gone. No actions
// are planned; the member is no longer reachable.
func MemberLeave(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event) (model.Plan, error) {
	var plan model.Plan

	app, err := d.Repo.Application(ctx, gs.GuildID, ev.Actor.ID)
	if errors.Is(err, model.ErrNotFound) {
		return plan, nil
	}
	if err != nil {
		return plan, fmt.Errorf("load application: %w", err)
	}
	if app.Status != model.StatusPending {
		return plan, nil
	}

	app.Status = model.StatusRejected
	app.Reason = "Member left the server"
	app.ReviewedAt = d.now()
	if err := d.Repo.UpsertApplication(ctx, app); err != nil {
		return plan, fmt.Errorf("save application: %w", err)
	}
	return plan, nil
}

// Submit records a form submission. Re-submission while PENDING
// overwrites the answers, never the status; submission against a
// terminal application is a conflict.
func Submit(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event) (model.Plan, error) {
	var plan model.Plan

	if gs.Mode != model.ModeApproval {
		return plan, nil
	}

	fields, err := d.Repo.ListFormFields(ctx, gs.GuildID)
	if err != nil {
		return plan, fmt.Errorf("list form fields: %w", err)
	}
	if missing := MissingRequired(fields, ev.Answers); len(missing) > 0 {
		msg := "Missing required answers: " + strings.Join(missing, ", ")
		plan.Report(model.Report{Kind: model.ReportValidation, UserID: ev.Actor.ID, Message: msg})
		plan.Add(model.Action{
			Kind:    model.ActionSendDM,
			UserID:  ev.Actor.ID,
			Content: d.Templates.Render(template.KindCommandError, map[string]string{"message": msg}),
		})
		return plan, nil
	}

	app, err := d.Repo.Application(ctx, gs.GuildID, ev.Actor.ID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		// First form interaction creates the application.
		app = model.Application{
			GuildID:    gs.GuildID,
			UserID:     ev.Actor.ID,
			UserName:   ev.Actor.Name,
			InviteCode: "unknown",
			Status:     model.StatusPending,
			CreatedAt:  d.now(),
		}
	case err != nil:
		return plan, fmt.Errorf("load application: %w", err)
	case app.Status.Terminal():
		msg := "Your application has already been reviewed."
		plan.Report(model.Report{Kind: model.ReportConflict, UserID: ev.Actor.ID, Message: msg})
		plan.Add(model.Action{
			Kind:    model.ActionSendDM,
			UserID:  ev.Actor.ID,
			Content: d.Templates.Render(template.KindCommandError, map[string]string{"message": msg}),
		})
		return plan, nil
	}

	app.Answers = ev.Answers
	if err := d.Repo.UpsertApplication(ctx, app); err != nil {
		return plan, fmt.Errorf("save application: %w", err)
	}

	plan.Add(model.Action{
		Kind:   model.ActionSendDM,
		UserID: ev.Actor.ID,
		Content: d.Templates.Render(template.KindApplicationSent, map[string]string{
			"server": gs.GuildName,
		}),
	})
	plan.Add(reviewNotice(d, gs, app, fields))

	return plan, nil
}

// Approve transitions one PENDING application to APPROVED and plans the
// corresponding role mutations. The granted role set is the union of the
// invite rule's roles, the explicitly passed roles, and any roles the
// applicant selected in dropdown answers.
//
// Approving a user without a PENDING application never re-grants roles:
// it yields a NOT_FOUND (no record) or CONFLICT (terminal record) report
// and zero role-mutating actions.
func Approve(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, target model.UserRef, extraRoles []int64) (model.Plan, error) {
	var plan model.Plan

	app, err := d.Repo.Application(ctx, gs.GuildID, target.ID)
	if report := pendingGate(err, app, target); report != nil {
		plan.Report(*report)
		plan.Add(replyError(d, ev, report.Message))
		return plan, nil
	}
	if err != nil {
		return plan, fmt.Errorf("load application: %w", err)
	}

	actions, names, err := approveCore(ctx, d, gs, app, ev.Actor, extraRoles)
	if err != nil {
		return plan, err
	}
	plan.Add(actions...)
	plan.Add(model.Action{
		Kind:      model.ActionReply,
		ChannelID: ev.ChannelID,
		Content: d.Templates.Render(template.KindApproveConfirm, map[string]string{
			"user":  target.Name,
			"roles": joinNames(names),
		}),
	})
	return plan, nil
}

// approveCore commits the APPROVED transition and returns the planned
// role mutations, channel grants, and the applicant DM. Callers add their
// own confirmation (reply or embed edit).
func approveCore(ctx context.Context, d Deps, gs model.GuildSettings, app model.Application, reviewer model.Actor, extraRoles []int64) ([]model.Action, []string, error) {
	rules, err := d.Repo.ListInviteRules(ctx, gs.GuildID)
	if err != nil {
		return nil, nil, fmt.Errorf("list invite rules: %w", err)
	}
	formRoles, formChannels, err := formSelections(ctx, d, gs, app)
	if err != nil {
		return nil, nil, err
	}

	// Union: invite-rule roles, then explicit roles, then form-selected
	// roles. Order is stable; duplicates and the pending/admin roles are
	// dropped.
	roleIDs := unionRoles(gs, invite.Resolve(rules, app.InviteCode), extraRoles, formRoles)

	// Commit the terminal state before handing out the plan. Executor
	// failures are reported by the caller but never roll this back.
	app.Status = model.StatusApproved
	app.ReviewedBy = reviewer.ID
	app.ReviewedByName = reviewer.Name
	app.ReviewedAt = d.now()
	if err := d.Repo.UpsertApplication(ctx, app); err != nil {
		return nil, nil, fmt.Errorf("save application: %w", err)
	}

	roleNames, err := d.Repo.RoleNames(ctx, gs.GuildID)
	if err != nil {
		return nil, nil, fmt.Errorf("load role names: %w", err)
	}

	var actions []model.Action
	if gs.PendingRoleID != 0 {
		actions = append(actions, model.Action{
			Kind:    model.ActionRemoveRole,
			GuildID: gs.GuildID,
			UserID:  app.UserID,
			RoleID:  gs.PendingRoleID,
		})
	}
	var names []string
	for _, roleID := range roleIDs {
		actions = append(actions, model.Action{
			Kind:    model.ActionAddRole,
			GuildID: gs.GuildID,
			UserID:  app.UserID,
			RoleID:  roleID,
			Reason:  "Application approved by " + reviewer.Name,
		})
		names = append(names, roleName(roleNames, roleID))
	}
	for _, channelID := range formChannels {
		actions = append(actions, model.Action{
			Kind:      model.ActionSetPermissions,
			ChannelID: channelID,
			UserID:    app.UserID,
			Allow:     []string{"read_messages", "send_messages"},
		})
	}
	actions = append(actions, model.Action{
		Kind:   model.ActionSendDM,
		UserID: app.UserID,
		Content: d.Templates.Render(template.KindApproveDM, map[string]string{
			"server": gs.GuildName,
			"roles":  joinNames(names),
		}),
	})
	return actions, names, nil
}

// BulkApprove applies the single-user approval to every member holding
// role who has a PENDING application. Members without one contribute
// nothing; a member failing validation contributes a PARTIAL_FAILURE
// report and does not abort the rest.
func BulkApprove(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, role model.RoleRef) (model.Plan, error) {
	var plan model.Plan

	members, err := membersWithRole(ctx, d, gs, ev, role.ID)
	if err != nil {
		return plan, err
	}
	fields, err := d.Repo.ListFormFields(ctx, gs.GuildID)
	if err != nil {
		return plan, fmt.Errorf("list form fields: %w", err)
	}

	approved, failed := 0, 0
	for _, m := range members {
		app, err := d.Repo.Application(ctx, gs.GuildID, m.UserID)
		if errors.Is(err, model.ErrNotFound) {
			continue // no application, nothing to do
		}
		if err != nil {
			return plan, fmt.Errorf("load application for %d: %w", m.UserID, err)
		}
		if app.Status != model.StatusPending {
			continue
		}
		if missing := MissingRequired(fields, app.Answers); len(missing) > 0 {
			plan.Report(model.Report{
				Kind:    model.ReportPartialFailure,
				UserID:  m.UserID,
				Message: fmt.Sprintf("%s: missing required answers: %s", m.Name, strings.Join(missing, ", ")),
			})
			failed++
			continue
		}

		actions, _, err := approveCore(ctx, d, gs, app, ev.Actor, nil)
		if err != nil {
			return plan, err
		}
		plan.Add(actions...)
		approved++
	}

	summary := fmt.Sprintf("✅ **Bulk approve complete — %d approved**", approved)
	if failed > 0 {
		summary += fmt.Sprintf("\n⏭️ Failed validation: %d", failed)
	}
	plan.Add(model.Action{Kind: model.ActionReply, ChannelID: ev.ChannelID, Content: summary})
	return plan, nil
}

// Reject transitions one PENDING application to REJECTED, storing the
// reason. Rejecting a non-pending application is reported, not applied.
func Reject(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, target model.UserRef, reason string) (model.Plan, error) {
	var plan model.Plan

	if reason == "" {
		reason = "No reason provided"
	}

	app, err := d.Repo.Application(ctx, gs.GuildID, target.ID)
	if report := pendingGate(err, app, target); report != nil {
		plan.Report(*report)
		plan.Add(replyError(d, ev, report.Message))
		return plan, nil
	}
	if err != nil {
		return plan, fmt.Errorf("load application: %w", err)
	}

	app.Status = model.StatusRejected
	app.Reason = reason
	app.ReviewedBy = ev.Actor.ID
	app.ReviewedByName = ev.Actor.Name
	app.ReviewedAt = d.now()
	if err := d.Repo.UpsertApplication(ctx, app); err != nil {
		return plan, fmt.Errorf("save application: %w", err)
	}

	if gs.PendingRoleID != 0 {
		plan.Add(model.Action{
			Kind:    model.ActionRemoveRole,
			GuildID: gs.GuildID,
			UserID:  target.ID,
			RoleID:  gs.PendingRoleID,
		})
	}
	if gs.PendingChannelID != 0 {
		plan.Add(model.Action{
			Kind:      model.ActionSendMessage,
			ChannelID: gs.PendingChannelID,
			Content: d.Templates.Render(template.KindRejectPending, map[string]string{
				"user":   model.MentionUser(target.ID),
				"reason": reason,
			}),
		})
	}
	plan.Add(model.Action{
		Kind:   model.ActionSendDM,
		UserID: target.ID,
		Content: d.Templates.Render(template.KindRejectDM, map[string]string{
			"server": gs.GuildName,
			"reason": reason,
		}),
	})
	plan.Add(model.Action{
		Kind:      model.ActionReply,
		ChannelID: ev.ChannelID,
		Content: d.Templates.Render(template.KindRejectConfirm, map[string]string{
			"user":   target.Name,
			"reason": reason,
		}),
	})
	return plan, nil
}

// ReactionReview approves or rejects the application tracked by the
// reacted message. The caller has already verified the reactor's admin
// role. Unknown emoji or a missing/terminal application plan nothing.
func ReactionReview(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event) (model.Plan, error) {
	var plan model.Plan

	if ev.Emoji != "✅" && ev.Emoji != "❌" {
		return plan, nil
	}
	if ev.ApplicationID == 0 {
		return plan, nil
	}

	app, err := d.Repo.ApplicationByID(ctx, gs.GuildID, ev.ApplicationID)
	if errors.Is(err, model.ErrNotFound) {
		return plan, nil
	}
	if err != nil {
		return plan, fmt.Errorf("load application: %w", err)
	}
	if app.Status != model.StatusPending {
		plan.Report(model.Report{
			Kind:    model.ReportConflict,
			UserID:  app.UserID,
			Message: "application already reviewed",
		})
		return plan, nil
	}

	var statusField string
	color := model.ColorGreen
	if ev.Emoji == "✅" {
		actions, names, err := approveCore(ctx, d, gs, app, ev.Actor, nil)
		if err != nil {
			return plan, err
		}
		plan.Add(actions...)
		statusField = "✅ Approved by " + model.MentionUser(ev.Actor.ID)
		plan.Add(trackedEmbedUpdate(ev, app, color, statusField, joinNames(names))...)
		return plan, nil
	}

	rejectPlan, err := Reject(ctx, d, gs, ev, model.UserRef{ID: app.UserID, Name: app.UserName}, "")
	if err != nil {
		return plan, err
	}
	// The reply confirmation makes no sense on a reaction; the embed
	// update takes its place.
	rejectPlan.Actions = dropReplies(rejectPlan.Actions)
	plan.Merge(rejectPlan)
	color = model.ColorRed
	statusField = "❌ Rejected by " + model.MentionUser(ev.Actor.ID)
	plan.Add(trackedEmbedUpdate(ev, app, color, statusField, "")...)
	return plan, nil
}

// MissingRequired returns the labels of required fields that have no
// answer, in field order.
func MissingRequired(fields []model.FormField, answers map[string]string) []string {
	var missing []string
	for _, f := range fields {
		if !f.Required {
			continue
		}
		if strings.TrimSpace(answers[strconv.FormatInt(f.ID, 10)]) == "" {
			missing = append(missing, f.Label)
		}
	}
	return missing
}

// pendingGate returns the business report blocking a review command, or
// nil when the application exists and is PENDING.
func pendingGate(err error, app model.Application, target model.UserRef) *model.Report {
	if errors.Is(err, model.ErrNotFound) {
		return &model.Report{
			Kind:    model.ReportNotFound,
			UserID:  target.ID,
			Message: "No pending application found for " + target.Name,
		}
	}
	if err == nil && app.Status.Terminal() {
		return &model.Report{
			Kind:    model.ReportConflict,
			UserID:  target.ID,
			Message: "No pending application found for " + target.Name + " (already " + strings.ToLower(string(app.Status)) + ")",
		}
	}
	return nil
}

// formSelections extracts role and channel ids the applicant picked in
// dropdown answers.
func formSelections(ctx context.Context, d Deps, gs model.GuildSettings, app model.Application) (roleIDs, channelIDs []int64, err error) {
	if len(app.Answers) == 0 {
		return nil, nil, nil
	}
	fields, err := d.Repo.ListFormFields(ctx, gs.GuildID)
	if err != nil {
		return nil, nil, fmt.Errorf("list form fields: %w", err)
	}
	for _, f := range fields {
		if f.Type != model.FieldDropdown || f.DropdownID == 0 {
			continue
		}
		raw := app.Answers[strconv.FormatInt(f.ID, 10)]
		if raw == "" {
			continue
		}
		dd, err := d.Repo.Dropdown(ctx, gs.GuildID, f.DropdownID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load dropdown %d: %w", f.DropdownID, err)
		}
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				continue
			}
			switch dd.Source {
			case model.DropdownRoles:
				roleIDs = append(roleIDs, id)
			case model.DropdownChannels:
				channelIDs = append(channelIDs, id)
			}
		}
	}
	return roleIDs, channelIDs, nil
}

// unionRoles merges role id groups in order, dropping duplicates and the
// guild's pending/admin roles.
func unionRoles(gs model.GuildSettings, groups ...[]int64) []int64 {
	seen := map[int64]bool{gs.PendingRoleID: true, gs.AdminRoleID: true}
	var out []int64
	for _, group := range groups {
		for _, id := range group {
			if id == 0 || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func membersWithRole(ctx context.Context, d Deps, gs model.GuildSettings, ev model.Event, roleID int64) ([]model.Member, error) {
	if ev.Snapshot != nil {
		return ev.Snapshot.MembersWithRole(roleID), nil
	}
	members, err := d.Repo.ListMembersWithRole(ctx, gs.GuildID, roleID)
	if err != nil {
		return nil, fmt.Errorf("list members with role: %w", err)
	}
	return members, nil
}

// reviewNotice builds the review-channel embed for an application.
func reviewNotice(d Deps, gs model.GuildSettings, app model.Application, fields []model.FormField) model.Action {
	responses := "No answers yet"
	if len(fields) > 0 && len(app.Answers) > 0 {
		var lines []string
		for _, f := range fields {
			val := app.Answers[strconv.FormatInt(f.ID, 10)]
			if val == "" {
				val = "No answer"
			}
			lines = append(lines, "**"+f.Label+":** "+val)
		}
		responses = strings.Join(lines, "\n")
	}

	inviter := app.InviterName
	if inviter == "" {
		inviter = "Unknown"
	}
	return model.Action{
		Kind:      model.ActionSendEmbed,
		ChannelID: gs.PendingChannelID,
		Embed: &model.Embed{
			Title: fmt.Sprintf("📋 Application #%d — %s", app.ID, app.UserName),
			Color: model.ColorOrange,
			Description: d.Templates.Render(template.KindApprovalNotice, map[string]string{
				"user":        model.MentionUser(app.UserID),
				"invite_code": app.InviteCode,
				"inviter":     inviter,
				"responses":   responses,
			}),
		},
	}
}

// trackedEmbedUpdate plans the edit + reaction clear for the tracked
// review message after a reaction verdict.
func trackedEmbedUpdate(ev model.Event, app model.Application, color int, statusField, roles string) []model.Action {
	if ev.MessageID == 0 || ev.ChannelID == 0 {
		return nil
	}
	embed := &model.Embed{
		Title: fmt.Sprintf("📋 Application #%d — %s", app.ID, app.UserName),
		Color: color,
		Fields: []model.EmbedField{
			{Name: "Status", Value: statusField},
		},
	}
	if roles != "" {
		embed.Fields = append(embed.Fields, model.EmbedField{Name: "Roles Assigned", Value: roles})
	}
	return []model.Action{
		{Kind: model.ActionEditMessage, ChannelID: ev.ChannelID, MessageID: ev.MessageID, Embed: embed},
		{Kind: model.ActionClearReactions, ChannelID: ev.ChannelID, MessageID: ev.MessageID},
	}
}

func replyError(d Deps, ev model.Event, msg string) model.Action {
	return model.Action{
		Kind:      model.ActionReply,
		ChannelID: ev.ChannelID,
		Content:   d.Templates.Render(template.KindCommandError, map[string]string{"message": msg}),
	}
}

func dropReplies(actions []model.Action) []model.Action {
	out := actions[:0]
	for _, a := range actions {
		if a.Kind != model.ActionReply {
			out = append(out, a)
		}
	}
	return out
}

// formURL builds the guild's external application form URL. Without a
// configured base the placeholder text survives verbatim, which is the
// fail-open behavior templates already guarantee.
func formURL(base string, guildID int64) string {
	if base == "" {
		return "{form_url}"
	}
	return strings.TrimRight(base, "/") + "/apply/" + strconv.FormatInt(guildID, 10)
}

func roleName(names map[int64]string, roleID int64) string {
	if name, ok := names[roleID]; ok && name != "" {
		return name
	}
	return strconv.FormatInt(roleID, 10)
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, ", ")
}
