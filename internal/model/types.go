// Package model defines the guild domain: stored entities, normalized
// platform events, planned actions, and the repository contract.
//
// Trigger kinds and action kinds are closed enumerations with kind-specific
// parameter payloads, validated at load time (see validate.go). The engine
// never sees an automation that failed validation.
package model

import "time"

// Mode selects how a guild admits new members.
type Mode string

const (
	// ModeAuto grants invite-rule roles immediately on join.
	ModeAuto Mode = "AUTO"
	// ModeApproval parks joiners behind the pending role until an admin
	// approves their application.
	ModeApproval Mode = "APPROVAL"
)

// GuildSettings is the per-guild configuration row.
type GuildSettings struct {
	GuildID          int64  `json:"guild_id"`
	GuildName        string `json:"guild_name"`
	Mode             Mode   `json:"mode"`
	AdminRoleID      int64  `json:"admin_role_id,omitempty"`
	PendingRoleID    int64  `json:"pending_role_id,omitempty"`
	LogChannelID     int64  `json:"log_channel_id,omitempty"`
	PendingChannelID int64  `json:"pending_channel_id,omitempty"`
}

// TriggerKind is the closed set of automation triggers. The same values
// name the kinds of normalized platform events.
type TriggerKind string

const (
	TriggerMemberJoin  TriggerKind = "MEMBER_JOIN"
	TriggerMemberLeave TriggerKind = "MEMBER_LEAVE"
	TriggerCommand     TriggerKind = "COMMAND"
	TriggerFormSubmit  TriggerKind = "FORM_SUBMIT"
	TriggerReaction    TriggerKind = "REACTION"
)

// ValidTriggers defines the allowed trigger kinds.
var ValidTriggers = map[TriggerKind]bool{
	TriggerMemberJoin:  true,
	TriggerMemberLeave: true,
	TriggerCommand:     true,
	TriggerFormSubmit:  true,
	TriggerReaction:    true,
}

// Automation is a stored trigger-to-steps rule. Read-only to the engine;
// created and edited by admin tooling.
type Automation struct {
	ID      int64       `json:"id"`
	GuildID int64       `json:"guild_id"`
	Name    string      `json:"name"` // unique per guild, the stable logical key
	Trigger TriggerKind `json:"trigger"`

	// Trigger condition, kind-specific. Empty means "match all events of
	// this trigger kind".
	Command string `json:"command,omitempty"` // COMMAND: command name
	Emoji   string `json:"emoji,omitempty"`   // REACTION: emoji
	Mode    Mode   `json:"mode,omitempty"`    // MEMBER_JOIN: guild mode filter

	Priority    int          `json:"priority"`
	Enabled     bool         `json:"enabled"`
	Description string       `json:"description,omitempty"`
	Steps       []ActionSpec `json:"steps"`
}

// StepKind is the closed set of stored automation step kinds.
type StepKind string

const (
	StepSendMessage StepKind = "SEND_MESSAGE"
	StepSendDM      StepKind = "SEND_DM"
	StepSendEmbed   StepKind = "SEND_EMBED"
	StepAddRole     StepKind = "ADD_ROLE"
	StepRemoveRole  StepKind = "REMOVE_ROLE"
	StepEditMessage StepKind = "EDIT_MESSAGE"
	StepSetTopic    StepKind = "SET_TOPIC"
	StepSetPerms    StepKind = "SET_PERMS"
	StepCleanup     StepKind = "CLEANUP"
)

// ValidStepKinds defines the allowed step kinds.
var ValidStepKinds = map[StepKind]bool{
	StepSendMessage: true,
	StepSendDM:      true,
	StepSendEmbed:   true,
	StepAddRole:     true,
	StepRemoveRole:  true,
	StepEditMessage: true,
	StepSetTopic:    true,
	StepSetPerms:    true,
	StepCleanup:     true,
}

// Symbolic channel references usable in ActionSpec.Channel. A numeric
// string is treated as a literal channel id.
const (
	ChannelRefLog      = "log"
	ChannelRefPending  = "pending"
	ChannelRefInvoking = "invoking"
)

// Symbolic role references usable in ActionSpec.Role. A numeric string is
// treated as a literal role id.
const (
	RoleRefPending  = "pending"
	RoleRefFromRule = "from_rule"
)

// ActionSpec is one ordered step of an Automation.
//
// Seq indices are unique within one automation; their total order defines
// execution order. Exactly which fields are meaningful depends on Kind;
// ValidateAutomation enforces the combinations.
type ActionSpec struct {
	Seq      int      `json:"seq"`
	Kind     StepKind `json:"kind"`
	Channel  string   `json:"channel,omitempty"`  // symbolic ref or literal id
	Role     string   `json:"role,omitempty"`     // symbolic ref or literal id
	Template string   `json:"template,omitempty"` // template kind name
	Content  string   `json:"content,omitempty"`  // literal text alternative
	Count    int      `json:"count,omitempty"`    // CLEANUP: messages to delete
	Enabled  bool     `json:"enabled"`
}

// InviteRule maps an invite code to a role set.
type InviteRule struct {
	ID          int64   `json:"id"`
	GuildID     int64   `json:"guild_id"`
	Code        string  `json:"code"` // unique per guild
	RoleIDs     []int64 `json:"role_ids"`
	Description string  `json:"description,omitempty"`
	IsDefault   bool    `json:"is_default"` // at most one per guild
}

// Status is the application lifecycle state.
// PENDING -> APPROVED and PENDING -> REJECTED are the only transitions;
// both targets are terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Application is a user's membership request under APPROVAL mode.
// One row per (guild, user).
type Application struct {
	ID          int64             `json:"id"`
	GuildID     int64             `json:"guild_id"`
	UserID      int64             `json:"user_id"`
	UserName    string            `json:"user_name"`
	InviteCode  string            `json:"invite_code"`
	InviterID   int64             `json:"inviter_id,omitempty"`
	InviterName string            `json:"inviter_name,omitempty"`
	Status      Status            `json:"status"`
	Answers     map[string]string `json:"answers"` // field id -> value
	Reason      string            `json:"reason,omitempty"`
	MessageID   int64             `json:"message_id,omitempty"` // tracked review embed

	ReviewedBy     int64     `json:"reviewed_by,omitempty"`
	ReviewedByName string    `json:"reviewed_by_name,omitempty"`
	ReviewedAt     time.Time `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// FieldType is the closed set of form field types.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldDropdown FieldType = "dropdown"
	FieldCheckbox FieldType = "checkbox"
	FieldFile     FieldType = "file"
)

// ValidFieldTypes defines the allowed form field types.
var ValidFieldTypes = map[FieldType]bool{
	FieldText:     true,
	FieldTextarea: true,
	FieldDropdown: true,
	FieldCheckbox: true,
	FieldFile:     true,
}

// FormField is one question of a guild's application form.
type FormField struct {
	ID          int64     `json:"id"`
	GuildID     int64     `json:"guild_id"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	DropdownID  int64     `json:"dropdown_id,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Required    bool      `json:"required"`
	Order       int       `json:"order"`
}

// DropdownSource selects where a dropdown's options come from.
type DropdownSource string

const (
	DropdownRoles    DropdownSource = "ROLES"
	DropdownChannels DropdownSource = "CHANNELS"
	DropdownCustom   DropdownSource = "CUSTOM"
)

// Dropdown is a reusable option list for dropdown form fields.
type Dropdown struct {
	ID          int64            `json:"id"`
	GuildID     int64            `json:"guild_id"`
	Name        string           `json:"name"`
	Source      DropdownSource   `json:"source"`
	Multiselect bool             `json:"multiselect"`
	RoleIDs     []int64          `json:"role_ids,omitempty"`
	ChannelIDs  []int64          `json:"channel_ids,omitempty"`
	Options     []DropdownOption `json:"options,omitempty"` // CUSTOM only
}

// DropdownOption is one custom choice.
type DropdownOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Order int    `json:"order"`
}

// Role is a cached platform role name, refreshed by reload.
type Role struct {
	GuildID int64  `json:"guild_id"`
	RoleID  int64  `json:"role_id"`
	Name    string `json:"name"`
}

// Channel is a cached platform channel name, refreshed by reload.
type Channel struct {
	GuildID   int64  `json:"guild_id"`
	ChannelID int64  `json:"channel_id"`
	Name      string `json:"name"`
}

// Member is a cached guild member, refreshed by reload. Used to answer
// members-with-role queries when an event carries no live snapshot.
type Member struct {
	GuildID int64   `json:"guild_id"`
	UserID  int64   `json:"user_id"`
	Name    string  `json:"name"`
	Bot     bool    `json:"bot"`
	RoleIDs []int64 `json:"role_ids"`
}

// HasRole reports whether the member holds roleID.
func (m Member) HasRole(roleID int64) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// AccessToken is a short-lived web-panel credential issued by getaccess.
type AccessToken struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	GuildID   int64     `json:"guild_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token is usable at the given time.
func (t AccessToken) Valid(now time.Time) bool {
	return t.Token != "" && now.Before(t.ExpiresAt)
}
