package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vic-nas/bouncer/internal/model"
	"github.com/vic-nas/bouncer/internal/template"
)

var _ model.Repository = (*Store)(nil)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) GuildSettings(ctx context.Context, guildID int64) (model.GuildSettings, error) {
	var gs model.GuildSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT guild_id, guild_name, mode, admin_role_id, pending_role_id, log_channel_id, pending_channel_id
		FROM guild_settings
		WHERE guild_id = ?
	`, guildID).Scan(
		&gs.GuildID, &gs.GuildName, &gs.Mode,
		&gs.AdminRoleID, &gs.PendingRoleID, &gs.LogChannelID, &gs.PendingChannelID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return gs, model.ErrNotFound
	}
	if err != nil {
		return gs, fmt.Errorf("query guild settings: %w", err)
	}
	return gs, nil
}

func (s *Store) ListAutomations(ctx context.Context, guildID int64, trigger model.TriggerKind) ([]model.Automation, error) {
	return s.listAutomations(ctx,
		"WHERE guild_id = ? AND trigger_kind = ?", guildID, string(trigger))
}

func (s *Store) ListAllAutomations(ctx context.Context, guildID int64) ([]model.Automation, error) {
	return s.listAutomations(ctx, "WHERE guild_id = ?", guildID)
}

// listAutomations returns automations in matcher order: priority ASC,
// id ASC, with each automation's steps in seq order.
func (s *Store) listAutomations(ctx context.Context, where string, args ...any) ([]model.Automation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, name, trigger_kind, command, emoji, mode, priority, enabled, description
		FROM automations
	`+where+`
		ORDER BY priority ASC, id ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query automations: %w", err)
	}
	defer rows.Close()

	var autos []model.Automation
	for rows.Next() {
		var a model.Automation
		if err := rows.Scan(
			&a.ID, &a.GuildID, &a.Name, &a.Trigger, &a.Command,
			&a.Emoji, &a.Mode, &a.Priority, &a.Enabled, &a.Description,
		); err != nil {
			return nil, fmt.Errorf("scan automation: %w", err)
		}
		autos = append(autos, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate automations: %w", err)
	}

	for i := range autos {
		steps, err := s.loadSteps(ctx, autos[i].ID)
		if err != nil {
			return nil, err
		}
		autos[i].Steps = steps
	}
	return autos, nil
}

func (s *Store) loadSteps(ctx context.Context, automationID int64) ([]model.ActionSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, channel, role, template, content, count, enabled
		FROM automation_steps
		WHERE automation_id = ?
		ORDER BY seq ASC
	`, automationID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var steps []model.ActionSpec
	for rows.Next() {
		var step model.ActionSpec
		if err := rows.Scan(
			&step.Seq, &step.Kind, &step.Channel, &step.Role,
			&step.Template, &step.Content, &step.Count, &step.Enabled,
		); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

func (s *Store) ListInviteRules(ctx context.Context, guildID int64) ([]model.InviteRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, code, role_ids, description, is_default
		FROM invite_rules
		WHERE guild_id = ?
		ORDER BY id ASC
	`, guildID)
	if err != nil {
		return nil, fmt.Errorf("query invite rules: %w", err)
	}
	defer rows.Close()

	var rules []model.InviteRule
	for rows.Next() {
		var rule model.InviteRule
		var roleIDs string
		if err := rows.Scan(&rule.ID, &rule.GuildID, &rule.Code, &roleIDs, &rule.Description, &rule.IsDefault); err != nil {
			return nil, fmt.Errorf("scan invite rule: %w", err)
		}
		if rule.RoleIDs, err = unmarshalIDs(roleIDs); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invite rules: %w", err)
	}
	return rules, nil
}

const applicationColumns = `id, guild_id, user_id, user_name, invite_code, inviter_id, inviter_name,
	status, answers, reason, message_id, reviewed_by, reviewed_by_name, reviewed_at, created_at`

func scanApplication(row rowScanner) (model.Application, error) {
	var app model.Application
	var answers, reviewedAt, createdAt string
	err := row.Scan(
		&app.ID, &app.GuildID, &app.UserID, &app.UserName, &app.InviteCode,
		&app.InviterID, &app.InviterName, &app.Status, &answers, &app.Reason,
		&app.MessageID, &app.ReviewedBy, &app.ReviewedByName, &reviewedAt, &createdAt,
	)
	if err != nil {
		return app, err
	}
	if app.Answers, err = unmarshalAnswers(answers); err != nil {
		return app, err
	}
	if app.ReviewedAt, err = unmarshalTime(reviewedAt); err != nil {
		return app, err
	}
	if app.CreatedAt, err = unmarshalTime(createdAt); err != nil {
		return app, err
	}
	return app, nil
}

func (s *Store) Application(ctx context.Context, guildID, userID int64) (model.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE guild_id = ? AND user_id = ?
	`, guildID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return app, model.ErrNotFound
	}
	if err != nil {
		return app, fmt.Errorf("query application: %w", err)
	}
	return app, nil
}

func (s *Store) ApplicationByID(ctx context.Context, guildID, appID int64) (model.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE guild_id = ? AND id = ?
	`, guildID, appID))
	if errors.Is(err, sql.ErrNoRows) {
		return app, model.ErrNotFound
	}
	if err != nil {
		return app, fmt.Errorf("query application: %w", err)
	}
	return app, nil
}

func (s *Store) ListFormFields(ctx context.Context, guildID int64) ([]model.FormField, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, label, type, dropdown_id, placeholder, required, field_order
		FROM form_fields
		WHERE guild_id = ?
		ORDER BY field_order ASC, id ASC
	`, guildID)
	if err != nil {
		return nil, fmt.Errorf("query form fields: %w", err)
	}
	defer rows.Close()

	var fields []model.FormField
	for rows.Next() {
		var f model.FormField
		if err := rows.Scan(&f.ID, &f.GuildID, &f.Label, &f.Type, &f.DropdownID, &f.Placeholder, &f.Required, &f.Order); err != nil {
			return nil, fmt.Errorf("scan form field: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate form fields: %w", err)
	}
	return fields, nil
}

func (s *Store) Dropdown(ctx context.Context, guildID, dropdownID int64) (model.Dropdown, error) {
	var d model.Dropdown
	var roleIDs, channelIDs, options string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, guild_id, name, source, multiselect, role_ids, channel_ids, options
		FROM dropdowns
		WHERE guild_id = ? AND id = ?
	`, guildID, dropdownID).Scan(
		&d.ID, &d.GuildID, &d.Name, &d.Source, &d.Multiselect,
		&roleIDs, &channelIDs, &options,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return d, model.ErrNotFound
	}
	if err != nil {
		return d, fmt.Errorf("query dropdown: %w", err)
	}
	if d.RoleIDs, err = unmarshalIDs(roleIDs); err != nil {
		return d, err
	}
	if d.ChannelIDs, err = unmarshalIDs(channelIDs); err != nil {
		return d, err
	}
	if d.Options, err = unmarshalOptions(options); err != nil {
		return d, err
	}
	return d, nil
}

func (s *Store) TemplateOverrides(ctx context.Context, guildID int64) (map[template.Kind]string, error) {
	return s.templateMap(ctx, `
		SELECT kind, text FROM guild_message_templates WHERE guild_id = ?
	`, guildID)
}

func (s *Store) DefaultTemplates(ctx context.Context) (map[template.Kind]string, error) {
	return s.templateMap(ctx, `SELECT kind, text FROM message_templates`)
}

func (s *Store) templateMap(ctx context.Context, query string, args ...any) (map[template.Kind]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	texts := make(map[template.Kind]string)
	for rows.Next() {
		var kind, text string
		if err := rows.Scan(&kind, &text); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		texts[template.Kind(kind)] = text
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return texts, nil
}

func (s *Store) RoleNames(ctx context.Context, guildID int64) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role_id, name FROM roles WHERE guild_id = ?
	`, guildID)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	names := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return names, nil
}

func (s *Store) ListMembersWithRole(ctx context.Context, guildID, roleID int64) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, user_id, name, bot, role_ids
		FROM members
		WHERE guild_id = ?
		ORDER BY user_id ASC
	`, guildID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		var m model.Member
		var roleIDs string
		if err := rows.Scan(&m.GuildID, &m.UserID, &m.Name, &m.Bot, &roleIDs); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		if m.RoleIDs, err = unmarshalIDs(roleIDs); err != nil {
			return nil, err
		}
		if m.HasRole(roleID) {
			members = append(members, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

func (s *Store) AccessToken(ctx context.Context, userID, guildID int64) (model.AccessToken, error) {
	var tok model.AccessToken
	var createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT token, user_id, user_name, guild_id, created_at, expires_at
		FROM access_tokens
		WHERE user_id = ? AND guild_id = ?
	`, userID, guildID).Scan(&tok.Token, &tok.UserID, &tok.UserName, &tok.GuildID, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return tok, model.ErrNotFound
	}
	if err != nil {
		return tok, fmt.Errorf("query access token: %w", err)
	}
	if tok.CreatedAt, err = unmarshalTime(createdAt); err != nil {
		return tok, err
	}
	if tok.ExpiresAt, err = unmarshalTime(expiresAt); err != nil {
		return tok, err
	}
	return tok, nil
}
