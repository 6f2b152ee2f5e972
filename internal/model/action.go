package model

// ActionKind is the closed set of planned action kinds the executor
// understands.
type ActionKind string

const (
	// ActionReply sends content to the channel the event came from.
	ActionReply ActionKind = "REPLY"
	// ActionSendMessage sends content to a specific channel.
	ActionSendMessage ActionKind = "SEND_MESSAGE"
	// ActionSendDM sends content to a user's direct messages.
	ActionSendDM ActionKind = "SEND_DM"
	// ActionSendEmbed sends a rich embed to a channel.
	ActionSendEmbed ActionKind = "SEND_EMBED"
	// ActionAddRole grants a role to a user.
	ActionAddRole ActionKind = "ADD_ROLE"
	// ActionRemoveRole revokes a role from a user.
	ActionRemoveRole ActionKind = "REMOVE_ROLE"
	// ActionEditMessage replaces the embed of a tracked message.
	ActionEditMessage ActionKind = "EDIT_MESSAGE"
	// ActionClearReactions removes all reactions from a message.
	ActionClearReactions ActionKind = "CLEAR_REACTIONS"
	// ActionSetPermissions grants a user channel permissions.
	ActionSetPermissions ActionKind = "SET_PERMISSIONS"
	// ActionSetTopic sets a channel topic.
	ActionSetTopic ActionKind = "SET_TOPIC"
	// ActionEnsureResources asks the executor to converge the guild's
	// managed roles/channels (create missing, never duplicate).
	ActionEnsureResources ActionKind = "ENSURE_RESOURCES"
	// ActionCleanupChannel deletes recent bot messages from a channel.
	ActionCleanupChannel ActionKind = "CLEANUP_CHANNEL"
)

// Action is one self-contained, side-effecting instruction. Kind selects
// which parameter fields are meaningful; all ids the executor needs are
// already present, so actions carry no dependency on executor state.
//
// Actions are idempotent at the platform layer (granting a held role or
// removing an absent one is a no-op there), which is what makes the
// engine's at-least-once delivery contract safe.
type Action struct {
	Kind ActionKind `json:"kind"`

	GuildID   int64 `json:"guild_id,omitempty"`
	ChannelID int64 `json:"channel_id,omitempty"`
	UserID    int64 `json:"user_id,omitempty"`
	RoleID    int64 `json:"role_id,omitempty"`
	MessageID int64 `json:"message_id,omitempty"`

	Content string   `json:"content,omitempty"`
	Topic   string   `json:"topic,omitempty"`
	Embed   *Embed   `json:"embed,omitempty"`
	Allow   []string `json:"allow,omitempty"`
	Count   int      `json:"count,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// Embed is a rich message payload.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// EmbedField is one titled section of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed colors used by planned messages.
const (
	ColorGreen  = 0x2ecc71
	ColorRed    = 0xe74c3c
	ColorBlue   = 0x3498db
	ColorOrange = 0xffa500
)

// ReportKind categorizes non-fatal business failures.
type ReportKind string

const (
	// ReportValidation: malformed command arguments. No mutation.
	ReportValidation ReportKind = "VALIDATION"
	// ReportPermissionDenied: actor lacks the required role or context.
	ReportPermissionDenied ReportKind = "PERMISSION_DENIED"
	// ReportNotFound: no matching rule, application, or field.
	ReportNotFound ReportKind = "NOT_FOUND"
	// ReportConflict: idempotency violation, e.g. double approve.
	ReportConflict ReportKind = "CONFLICT"
	// ReportPartialFailure: one member of a bulk operation failed;
	// other members' successes stand.
	ReportPartialFailure ReportKind = "PARTIAL_FAILURE"
)

// Report is one non-fatal error entry. Every report is paired with a
// visible reply action in the same plan, so the invoker always receives
// feedback.
type Report struct {
	Kind    ReportKind `json:"kind"`
	Command string     `json:"command,omitempty"`
	UserID  int64      `json:"user_id,omitempty"` // affected member for bulk entries
	Message string     `json:"message"`
}

// Plan is the engine's output for one event: the ordered actions to
// execute and the ordered non-fatal reports. Execution is owned by the
// caller; the engine never performs platform I/O itself.
type Plan struct {
	Correlation string   `json:"correlation,omitempty"`
	Actions     []Action `json:"actions"`
	Reports     []Report `json:"reports,omitempty"`
}

// Add appends actions to the plan.
func (p *Plan) Add(actions ...Action) {
	p.Actions = append(p.Actions, actions...)
}

// Report appends a report entry.
func (p *Plan) Report(r Report) {
	p.Reports = append(p.Reports, r)
}

// Merge appends another plan's actions and reports, preserving order.
func (p *Plan) Merge(other Plan) {
	p.Actions = append(p.Actions, other.Actions...)
	p.Reports = append(p.Reports, other.Reports...)
}

// RoleMutations counts ADD_ROLE/REMOVE_ROLE actions. Used by idempotency
// tests and diagnostics.
func (p *Plan) RoleMutations() int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind == ActionAddRole || a.Kind == ActionRemoveRole {
			n++
		}
	}
	return n
}
