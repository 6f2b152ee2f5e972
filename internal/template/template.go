// Package template implements message template resolution.
//
// Every user-visible message the engine plans goes through a three-step
// lookup chain: per-guild override, stored global default, built-in
// fallback text. The chain guarantees a non-empty message for every known
// template kind even on a completely empty database.
//
// Rendering is fail-open: unknown placeholders are left verbatim in the
// output so a malformed template degrades visibly instead of crashing the
// engine or silently dropping a message.
package template

import "strings"

// Kind identifies one message template.
type Kind string

const (
	KindInstallWelcome      Kind = "INSTALL_WELCOME"
	KindJoinLogAuto         Kind = "JOIN_LOG_AUTO"
	KindJoinLogApproval     Kind = "JOIN_LOG_APPROVAL"
	KindPendingChannelTopic Kind = "PENDING_CHANNEL_TOPIC"
	KindApplicationSent     Kind = "APPLICATION_SENT"
	KindApplicationApproved Kind = "APPLICATION_APPROVED"
	KindApplicationRejected Kind = "APPLICATION_REJECTED"
	KindApprovalNotice      Kind = "APPROVAL_NOTIFICATION"
	KindApproveConfirm      Kind = "APPROVE_CONFIRM"
	KindApproveDM           Kind = "APPROVE_DM"
	KindRejectConfirm       Kind = "REJECT_CONFIRM"
	KindRejectDM            Kind = "REJECT_DM"
	KindRejectPending       Kind = "REJECT_PENDING"
	KindGetAccessResponse   Kind = "GETACCESS_RESPONSE"
	KindGetAccessExists     Kind = "GETACCESS_EXISTS"
	KindGetAccessNoAdmin    Kind = "GETACCESS_NO_ADMIN"
	KindHelpMessage         Kind = "HELP_MESSAGE"
	KindCommandSuccess      Kind = "COMMAND_SUCCESS"
	KindCommandError        Kind = "COMMAND_ERROR"
	KindCommandNotFound     Kind = "COMMAND_NOT_FOUND"
	KindDMOnlyWarning       Kind = "DM_ONLY_WARNING"
	KindServerOnlyWarning   Kind = "SERVER_ONLY_WARNING"
)

// builtin holds the hard-coded fallback text per kind. These are the texts
// of last resort; stored defaults and per-guild overrides shadow them.
var builtin = map[Kind]string{
	KindInstallWelcome: "🤖 **Bot installed successfully!**\n\n" +
		"✅ Created roles: {bot_admin}, {pending}\n" +
		"✅ Created channel: {logs}\n\n" +
		"📝 Assign {bot_admin} to your admins, then DM me `getaccess` for the web panel.",

	KindJoinLogAuto: "🔥 **New Member Joined**\n\n" +
		"👤 **User:** {user}\n🔗 **Invite:** `{invite_code}`\n" +
		"👥 **Invited by:** {inviter}\n✅ **Roles Assigned:** {roles}",

	KindJoinLogApproval: "🔥 **New Member Joined (Pending Approval)**\n\n" +
		"👤 **User:** {user}\n🔗 **Invite:** `{invite_code}`\n" +
		"👥 **Invited by:** {inviter}\n⏳ **Status:** Awaiting application review\n" +
		"🏷️ **Role:** {pending}",

	KindPendingChannelTopic: "⏳ Awaiting review — submit your application here: {form_url}",

	KindApplicationSent: "✅ **Application Submitted!**\n\n" +
		"Thank you for applying to **{server}**! Your application is pending review.\n" +
		"You'll receive a DM when there's an update.",

	KindApplicationApproved: "🎉 **Application Approved!**\n\n" +
		"Congratulations! Your application to **{server}** has been approved.\n\n" +
		"✅ **Roles assigned:** {roles}\n\nWelcome to the server!",

	KindApplicationRejected: "❌ **Application Rejected**\n\n" +
		"Unfortunately, your application to **{server}** was not approved at this time.\n\n{reason}",

	KindApprovalNotice: "📋 **New Application**\n\n" +
		"👤 **User:** {user}\n🔗 **Invite:** `{invite_code}`\n" +
		"👥 **Invited by:** {inviter}\n\n**Responses:**\n{responses}\n\n" +
		"✅ React with ✅ to approve\n❌ React with ❌ to reject",

	KindApproveConfirm: "✅ **Approved {user}**\n\nRoles: {roles}",
	KindApproveDM: "🎉 You have been approved on **{server}**!\n\n" +
		"✅ **Roles assigned:** {roles}",
	KindRejectConfirm: "❌ **Rejected {user}**\n\nReason: {reason}",
	KindRejectDM: "❌ Your application to **{server}** was rejected.\n\n" +
		"**Reason:** {reason}",
	KindRejectPending: "❌ {user}, your application was rejected: {reason}",

	KindGetAccessResponse: "🔑 **Admin Panel Access** ({server})\n\n{url}\n\n" +
		"⏰ **Expires:** {expires}\n\nKeep this link private!",
	KindGetAccessExists:  "🔑 **You already have an active token!** ({server})\n\n{url}\n\n⏰ **Expires:** {expires}",
	KindGetAccessNoAdmin: "❌ You are not a bot admin on any configured server.",

	KindHelpMessage:     "🤖 **Bot Commands**\n\n{commands}",
	KindCommandSuccess:  "✅ **Success!**\n\n{message}",
	KindCommandError:    "❌ **Error**\n\n{message}",
	KindCommandNotFound: "❌ Command `{command}` not found.\n\n📋 **Available commands:** {commands}",

	KindDMOnlyWarning:     "❌ This command only works in a direct message.",
	KindServerOnlyWarning: "❌ This command only works in a server.",
}

// Known reports whether s names a template kind.
func Known(s string) bool {
	_, ok := builtin[Kind(s)]
	return ok
}

// Builtin returns the hard-coded fallback text for a kind.
// Returns "{message}" for unknown kinds so rendering still produces output.
func Builtin(kind Kind) string {
	if text, ok := builtin[kind]; ok {
		return text
	}
	return "{message}"
}

// Resolver resolves template kinds to text through the override chain.
//
// A Resolver is a request-scoped snapshot: the engine builds one per event
// from the repository's stored overrides and defaults. It holds plain maps
// and performs no I/O, so it is safe to share across the read-only planning
// paths of a single event.
type Resolver struct {
	overrides map[Kind]string // per-guild
	defaults  map[Kind]string // stored global defaults
}

// NewResolver builds a resolver from stored overrides and defaults.
// Either map may be nil.
func NewResolver(overrides, defaults map[Kind]string) *Resolver {
	return &Resolver{overrides: overrides, defaults: defaults}
}

// Text returns the template text for kind: override, else stored default,
// else built-in fallback.
func (r *Resolver) Text(kind Kind) string {
	if r != nil {
		if text, ok := r.overrides[kind]; ok && text != "" {
			return text
		}
		if text, ok := r.defaults[kind]; ok && text != "" {
			return text
		}
	}
	return Builtin(kind)
}

// Render resolves kind and substitutes vars into it.
func (r *Resolver) Render(kind Kind, vars map[string]string) string {
	return Substitute(r.Text(kind), vars)
}

// Substitute replaces {name} placeholders in text with values from vars.
//
// Unknown placeholders are left verbatim (fail open). An unterminated
// brace is copied through unchanged.
func Substitute(text string, vars map[string]string) string {
	if !strings.ContainsRune(text, '{') {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			b.WriteString(text)
			return b.String()
		}
		close := strings.IndexByte(text[open:], '}')
		if close < 0 {
			b.WriteString(text)
			return b.String()
		}
		close += open

		b.WriteString(text[:open])
		name := text[open+1 : close]
		if val, ok := vars[name]; ok {
			b.WriteString(val)
		} else {
			// Unknown placeholder - keep it visible
			b.WriteString(text[open : close+1])
		}
		text = text[close+1:]
	}
}

// Kinds returns all known template kinds. Order is not specified.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(builtin))
	for k := range builtin {
		kinds = append(kinds, k)
	}
	return kinds
}
