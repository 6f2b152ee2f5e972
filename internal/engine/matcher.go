package engine

import (
	"sort"
	"strconv"

	"github.com/vic-nas/bouncer/internal/invite"
	"github.com/vic-nas/bouncer/internal/model"
	"github.com/vic-nas/bouncer/internal/template"
)

// matchContext carries everything step expansion needs for one event.
type matchContext struct {
	gs        model.GuildSettings
	ev        model.Event
	templates *template.Resolver
	rules     []model.InviteRule // for from_rule role refs on joins
	command   string             // parsed command name, COMMAND events only
}

// matchAutomations selects and expands every enabled automation whose
// trigger matches the event. Matches are ordered by priority, ties by
// id; each automation's steps expand in seq order. The result is one
// flat list with no cross-automation interleaving. No match yields an
// empty list, never an error.
func matchAutomations(autos []model.Automation, mc matchContext) []model.Action {
	matched := make([]model.Automation, 0, len(autos))
	for _, a := range autos {
		if a.Enabled && conditionMatches(a, mc) {
			matched = append(matched, a)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority < matched[j].Priority
		}
		return matched[i].ID < matched[j].ID
	})

	var out []model.Action
	for _, a := range matched {
		steps := append([]model.ActionSpec(nil), a.Steps...)
		sort.SliceStable(steps, func(i, j int) bool { return steps[i].Seq < steps[j].Seq })
		for _, step := range steps {
			if !step.Enabled {
				continue
			}
			out = append(out, expandStep(step, mc)...)
		}
	}
	return out
}

func conditionMatches(a model.Automation, mc matchContext) bool {
	if a.Trigger != mc.ev.Kind {
		return false
	}
	switch a.Trigger {
	case model.TriggerCommand:
		return a.Command == "" || a.Command == mc.command
	case model.TriggerReaction:
		return a.Emoji == "" || a.Emoji == mc.ev.Emoji
	case model.TriggerMemberJoin:
		return a.Mode == "" || a.Mode == mc.gs.Mode
	default:
		return true
	}
}

// expandStep turns one stored step into its planned actions. A from_rule
// role reference expands to one action per resolved role, so a single
// step can grant a whole invite rule's role set.
func expandStep(step model.ActionSpec, mc matchContext) []model.Action {
	switch step.Kind {
	case model.StepSendMessage:
		return []model.Action{{
			Kind:      model.ActionSendMessage,
			ChannelID: resolveChannel(step.Channel, mc),
			Content:   stepText(step, mc),
		}}
	case model.StepSendDM:
		return []model.Action{{
			Kind:    model.ActionSendDM,
			UserID:  mc.ev.Actor.ID,
			Content: stepText(step, mc),
		}}
	case model.StepSendEmbed:
		return []model.Action{{
			Kind:      model.ActionSendEmbed,
			ChannelID: resolveChannel(step.Channel, mc),
			Embed:     &model.Embed{Description: stepText(step, mc), Color: model.ColorBlue},
		}}
	case model.StepAddRole, model.StepRemoveRole:
		kind := model.ActionAddRole
		if step.Kind == model.StepRemoveRole {
			kind = model.ActionRemoveRole
		}
		var out []model.Action
		for _, roleID := range resolveRoles(step.Role, mc) {
			out = append(out, model.Action{
				Kind:    kind,
				GuildID: mc.gs.GuildID,
				UserID:  mc.ev.Actor.ID,
				RoleID:  roleID,
			})
		}
		return out
	case model.StepEditMessage:
		return []model.Action{{
			Kind:      model.ActionEditMessage,
			ChannelID: resolveChannel(step.Channel, mc),
			MessageID: mc.ev.MessageID,
			Content:   stepText(step, mc),
		}}
	case model.StepSetTopic:
		return []model.Action{{
			Kind:      model.ActionSetTopic,
			ChannelID: resolveChannel(step.Channel, mc),
			Topic:     stepText(step, mc),
		}}
	case model.StepSetPerms:
		return []model.Action{{
			Kind:      model.ActionSetPermissions,
			ChannelID: resolveChannel(step.Channel, mc),
			UserID:    mc.ev.Actor.ID,
			Allow:     []string{"read_messages", "send_messages"},
		}}
	case model.StepCleanup:
		return []model.Action{{
			Kind:      model.ActionCleanupChannel,
			ChannelID: resolveChannel(step.Channel, mc),
			Count:     step.Count,
		}}
	default:
		// Unknown kinds are rejected by validation; an automation that
		// slipped past it expands to nothing rather than crashing.
		return nil
	}
}

func stepText(step model.ActionSpec, mc matchContext) string {
	vars := map[string]string{
		"user":    model.MentionUser(mc.ev.Actor.ID),
		"name":    mc.ev.Actor.Name,
		"server":  mc.gs.GuildName,
		"channel": model.MentionChannel(mc.ev.ChannelID),
	}
	if mc.ev.Invite != nil {
		vars["invite_code"] = mc.ev.Invite.Code
		vars["inviter"] = mc.ev.Invite.InviterName
	}
	if step.Template != "" && template.Known(step.Template) {
		return mc.templates.Render(template.Kind(step.Template), vars)
	}
	return template.Substitute(step.Content, vars)
}

// resolveChannel maps a symbolic channel reference to a concrete id.
// Unresolvable references yield 0; the executor treats that as a skip.
func resolveChannel(ref string, mc matchContext) int64 {
	switch ref {
	case model.ChannelRefLog:
		return mc.gs.LogChannelID
	case model.ChannelRefPending:
		return mc.gs.PendingChannelID
	case model.ChannelRefInvoking:
		return mc.ev.ChannelID
	default:
		id, _ := strconv.ParseInt(ref, 10, 64)
		return id
	}
}

// resolveRoles maps a symbolic role reference to concrete ids. from_rule
// resolves the joining member's invite code against the guild's rules.
func resolveRoles(ref string, mc matchContext) []int64 {
	switch ref {
	case model.RoleRefPending:
		if mc.gs.PendingRoleID == 0 {
			return nil
		}
		return []int64{mc.gs.PendingRoleID}
	case model.RoleRefFromRule:
		code := ""
		if mc.ev.Invite != nil {
			code = mc.ev.Invite.Code
		}
		return invite.Resolve(mc.rules, code)
	default:
		id, _ := strconv.ParseInt(ref, 10, 64)
		if id == 0 {
			return nil
		}
		return []int64{id}
	}
}
