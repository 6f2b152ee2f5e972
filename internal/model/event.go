package model

// Event is one normalized platform event. The gateway layer translates raw
// platform payloads into this shape before handing them to the engine.
//
// Kind decides which of the optional fields are meaningful; the engine
// treats absent fields as zero values and never dereferences a nil pointer
// for a kind that does not carry it.
type Event struct {
	Kind    TriggerKind `json:"kind"`
	GuildID int64       `json:"guild_id,omitempty"`

	// Actor is the user who caused the event (command author, reactor,
	// form submitter, or the joining/leaving member itself).
	Actor Actor `json:"actor"`

	ChannelID int64 `json:"channel_id,omitempty"`
	DM        bool  `json:"dm,omitempty"` // event happened in a direct message

	// COMMAND: the prefix-stripped command line, plus mention resolution
	// performed by the gateway.
	Command      string    `json:"command,omitempty"`
	UserMentions []UserRef `json:"user_mentions,omitempty"`
	RoleMentions []RoleRef `json:"role_mentions,omitempty"`

	// MEMBER_JOIN / MEMBER_LEAVE.
	Invite *InviteInfo `json:"invite,omitempty"`

	// FORM_SUBMIT: field id -> submitted value.
	Answers map[string]string `json:"answers,omitempty"`

	// REACTION.
	Emoji         string `json:"emoji,omitempty"`
	MessageID     int64  `json:"message_id,omitempty"`
	ApplicationID int64  `json:"application_id,omitempty"`

	// AdminGuilds lists guilds where the actor holds the admin role.
	// Supplied by the gateway for DM-context commands (getaccess).
	AdminGuilds []GuildRef `json:"admin_guilds,omitempty"`

	// Snapshot is the live platform state, supplied by the caller for
	// commands that re-derive cached references (reload, addrule, bulk
	// approve). Nil when the command does not need it.
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// Actor identifies the user behind an event.
type Actor struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	RoleIDs []int64 `json:"role_ids,omitempty"`
	Owner   bool    `json:"owner,omitempty"` // platform owner of the guild
}

// HasRole reports whether the actor holds roleID.
func (a Actor) HasRole(roleID int64) bool {
	for _, id := range a.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// UserRef is a resolved user mention.
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RoleRef is a resolved role mention or a live role entry.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ChannelRef is a live channel entry.
type ChannelRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GuildRef names a guild in a DM-context event.
type GuildRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// InviteInfo describes the invitation a member joined through.
type InviteInfo struct {
	Code        string `json:"code"`
	InviterID   int64  `json:"inviter_id,omitempty"`
	InviterName string `json:"inviter_name,omitempty"`
}

// Snapshot is the caller-supplied live platform state of one guild.
type Snapshot struct {
	Roles    []RoleRef    `json:"roles,omitempty"`
	Channels []ChannelRef `json:"channels,omitempty"`
	Members  []Member     `json:"members,omitempty"`
}

// MembersWithRole returns the snapshot members holding roleID, in
// snapshot order.
func (s *Snapshot) MembersWithRole(roleID int64) []Member {
	if s == nil {
		return nil
	}
	var out []Member
	for _, m := range s.Members {
		if m.HasRole(roleID) {
			out = append(out, m)
		}
	}
	return out
}
