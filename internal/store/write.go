package store

import (
	"context"
	"fmt"

	"github.com/vic-nas/bouncer/internal/model"
	"github.com/vic-nas/bouncer/internal/template"
)

func (s *Store) SaveGuildSettings(ctx context.Context, gs model.GuildSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_settings
		(guild_id, guild_name, mode, admin_role_id, pending_role_id, log_channel_id, pending_channel_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			guild_name = excluded.guild_name,
			mode = excluded.mode,
			admin_role_id = excluded.admin_role_id,
			pending_role_id = excluded.pending_role_id,
			log_channel_id = excluded.log_channel_id,
			pending_channel_id = excluded.pending_channel_id
	`, gs.GuildID, gs.GuildName, string(gs.Mode),
		gs.AdminRoleID, gs.PendingRoleID, gs.LogChannelID, gs.PendingChannelID)
	if err != nil {
		return fmt.Errorf("save guild settings: %w", err)
	}
	return nil
}

// CreateAutomation stores an automation and its steps atomically. The
// automation is validated first; the engine only ever reads rows that
// passed validation.
func (s *Store) CreateAutomation(ctx context.Context, a model.Automation) error {
	if err := model.ValidateAutomation(a); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create automation: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	result, err := tx.ExecContext(ctx, `
		INSERT INTO automations
		(guild_id, name, trigger_kind, command, emoji, mode, priority, enabled, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.GuildID, a.Name, string(a.Trigger), a.Command, a.Emoji, string(a.Mode),
		a.Priority, a.Enabled, a.Description)
	if err != nil {
		return fmt.Errorf("create automation %q: %w", a.Name, err)
	}
	automationID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create automation %q: %w", a.Name, err)
	}

	for _, step := range a.Steps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO automation_steps
			(automation_id, seq, kind, channel, role, template, content, count, enabled)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, automationID, step.Seq, string(step.Kind), step.Channel, step.Role,
			step.Template, step.Content, step.Count, step.Enabled)
		if err != nil {
			return fmt.Errorf("create automation %q step %d: %w", a.Name, step.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create automation %q: commit: %w", a.Name, err)
	}
	return nil
}

// UpsertInviteRule inserts or replaces the rule for (guild, code). An
// existing row keeps its id. A default rule demotes any other default in
// the guild, keeping at most one per guild.
func (s *Store) UpsertInviteRule(ctx context.Context, rule model.InviteRule) error {
	roleIDs, err := marshalIDs(rule.RoleIDs)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert invite rule: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if rule.IsDefault {
		_, err = tx.ExecContext(ctx, `
			UPDATE invite_rules SET is_default = 0
			WHERE guild_id = ? AND code <> ? AND is_default
		`, rule.GuildID, rule.Code)
		if err != nil {
			return fmt.Errorf("demote default rules: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invite_rules (guild_id, code, role_ids, description, is_default)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, code) DO UPDATE SET
			role_ids = excluded.role_ids,
			description = excluded.description,
			is_default = excluded.is_default
	`, rule.GuildID, rule.Code, roleIDs, rule.Description, rule.IsDefault)
	if err != nil {
		return fmt.Errorf("upsert invite rule %q: %w", rule.Code, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("upsert invite rule: commit: %w", err)
	}
	return nil
}

func (s *Store) DeleteInviteRule(ctx context.Context, guildID int64, code string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM invite_rules WHERE guild_id = ? AND code = ?
	`, guildID, code)
	if err != nil {
		return fmt.Errorf("delete invite rule %q: %w", code, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete invite rule %q: %w", code, err)
	}
	if affected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpsertApplication inserts or replaces the application for (guild, user).
// An existing row keeps its id regardless of what app.ID says.
func (s *Store) UpsertApplication(ctx context.Context, app model.Application) error {
	answers, err := marshalAnswers(app.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO applications
		(guild_id, user_id, user_name, invite_code, inviter_id, inviter_name,
		 status, answers, reason, message_id, reviewed_by, reviewed_by_name, reviewed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			user_name = excluded.user_name,
			invite_code = excluded.invite_code,
			inviter_id = excluded.inviter_id,
			inviter_name = excluded.inviter_name,
			status = excluded.status,
			answers = excluded.answers,
			reason = excluded.reason,
			message_id = excluded.message_id,
			reviewed_by = excluded.reviewed_by,
			reviewed_by_name = excluded.reviewed_by_name,
			reviewed_at = excluded.reviewed_at,
			created_at = excluded.created_at
	`, app.GuildID, app.UserID, app.UserName, app.InviteCode, app.InviterID, app.InviterName,
		string(app.Status), answers, app.Reason, app.MessageID,
		app.ReviewedBy, app.ReviewedByName, marshalTime(app.ReviewedAt), marshalTime(app.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert application: %w", err)
	}
	return nil
}

func (s *Store) CreateFormField(ctx context.Context, f model.FormField) error {
	var err error
	if f.ID != 0 {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO form_fields (id, guild_id, label, type, dropdown_id, placeholder, required, field_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, f.ID, f.GuildID, f.Label, string(f.Type), f.DropdownID, f.Placeholder, f.Required, f.Order)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO form_fields (guild_id, label, type, dropdown_id, placeholder, required, field_order)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, f.GuildID, f.Label, string(f.Type), f.DropdownID, f.Placeholder, f.Required, f.Order)
	}
	if err != nil {
		return fmt.Errorf("create form field %q: %w", f.Label, err)
	}
	return nil
}

func (s *Store) CreateDropdown(ctx context.Context, d model.Dropdown) (int64, error) {
	roleIDs, err := marshalIDs(d.RoleIDs)
	if err != nil {
		return 0, err
	}
	channelIDs, err := marshalIDs(d.ChannelIDs)
	if err != nil {
		return 0, err
	}
	options, err := marshalOptions(d.Options)
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO dropdowns (guild_id, name, source, multiselect, role_ids, channel_ids, options)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.GuildID, d.Name, string(d.Source), d.Multiselect, roleIDs, channelIDs, options)
	if err != nil {
		return 0, fmt.Errorf("create dropdown %q: %w", d.Name, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create dropdown %q: %w", d.Name, err)
	}
	return id, nil
}

func (s *Store) SyncRoles(ctx context.Context, guildID int64, roles []model.Role) error {
	return s.replaceRows(ctx, "roles", guildID, len(roles), func(i int) (string, []any) {
		r := roles[i]
		return "INSERT INTO roles (guild_id, role_id, name) VALUES (?, ?, ?)",
			[]any{guildID, r.RoleID, r.Name}
	})
}

func (s *Store) SyncChannels(ctx context.Context, guildID int64, channels []model.Channel) error {
	return s.replaceRows(ctx, "channels", guildID, len(channels), func(i int) (string, []any) {
		c := channels[i]
		return "INSERT INTO channels (guild_id, channel_id, name) VALUES (?, ?, ?)",
			[]any{guildID, c.ChannelID, c.Name}
	})
}

func (s *Store) SyncMembers(ctx context.Context, guildID int64, members []model.Member) error {
	encoded := make([]string, len(members))
	for i, m := range members {
		roleIDs, err := marshalIDs(m.RoleIDs)
		if err != nil {
			return err
		}
		encoded[i] = roleIDs
	}
	return s.replaceRows(ctx, "members", guildID, len(members), func(i int) (string, []any) {
		m := members[i]
		return "INSERT INTO members (guild_id, user_id, name, bot, role_ids) VALUES (?, ?, ?, ?, ?)",
			[]any{guildID, m.UserID, m.Name, m.Bot, encoded[i]}
	})
}

// replaceRows swaps a guild's rows in one cache table atomically.
func (s *Store) replaceRows(ctx context.Context, table string, guildID int64, n int, row func(i int) (string, []any)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sync %s: begin tx: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE guild_id = ?", guildID); err != nil {
		return fmt.Errorf("sync %s: clear: %w", table, err)
	}
	for i := 0; i < n; i++ {
		query, args := row(i)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("sync %s: insert: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sync %s: commit: %w", table, err)
	}
	return nil
}

func (s *Store) SaveAccessToken(ctx context.Context, tok model.AccessToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_tokens (user_id, guild_id, token, user_name, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, guild_id) DO UPDATE SET
			token = excluded.token,
			user_name = excluded.user_name,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, tok.UserID, tok.GuildID, tok.Token, tok.UserName,
		marshalTime(tok.CreatedAt), marshalTime(tok.ExpiresAt))
	if err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	return nil
}

// SetDefaultTemplate stores a global default text for a template kind.
func (s *Store) SetDefaultTemplate(ctx context.Context, kind template.Kind, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_templates (kind, text) VALUES (?, ?)
		ON CONFLICT(kind) DO UPDATE SET text = excluded.text
	`, string(kind), text)
	if err != nil {
		return fmt.Errorf("set default template %s: %w", kind, err)
	}
	return nil
}

// SetTemplateOverride stores a per-guild override text for a template kind.
func (s *Store) SetTemplateOverride(ctx context.Context, guildID int64, kind template.Kind, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guild_message_templates (guild_id, kind, text) VALUES (?, ?, ?)
		ON CONFLICT(guild_id, kind) DO UPDATE SET text = excluded.text
	`, guildID, string(kind), text)
	if err != nil {
		return fmt.Errorf("set template override %s: %w", kind, err)
	}
	return nil
}

// InstallDefaults writes the built-in template texts as stored global
// defaults, skipping kinds an operator already customized. Returns the
// number of kinds written; a second run writes zero.
func (s *Store) InstallDefaults(ctx context.Context) (int, error) {
	installed := 0
	for _, kind := range template.Kinds() {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO message_templates (kind, text) VALUES (?, ?)
			ON CONFLICT(kind) DO NOTHING
		`, string(kind), template.Builtin(kind))
		if err != nil {
			return installed, fmt.Errorf("install default %s: %w", kind, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return installed, fmt.Errorf("install default %s: %w", kind, err)
		}
		installed += int(affected)
	}
	return installed, nil
}
