package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vic-nas/bouncer/internal/model"
	"github.com/vic-nas/bouncer/internal/template"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.SaveGuildSettings(context.Background(), model.GuildSettings{GuildID: 1, Mode: model.ModeAuto}))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	gs, err := s2.GuildSettings(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.ModeAuto, gs.Mode)
}

func TestGuildSettings_Roundtrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.GuildSettings(ctx, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)

	want := model.GuildSettings{
		GuildID: 1, GuildName: "Testers", Mode: model.ModeApproval,
		AdminRoleID: 900, PendingRoleID: 800, LogChannelID: 555, PendingChannelID: 666,
	}
	require.NoError(t, s.SaveGuildSettings(ctx, want))

	got, err := s.GuildSettings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Upsert replaces.
	want.Mode = model.ModeAuto
	require.NoError(t, s.SaveGuildSettings(ctx, want))
	got, err = s.GuildSettings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.ModeAuto, got.Mode)
}

func TestAutomations_OrderAndSteps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Created out of priority order; steps out of seq order.
	require.NoError(t, s.CreateAutomation(ctx, model.Automation{
		GuildID: 1, Name: "late", Trigger: model.TriggerCommand, Command: "hi", Priority: 5, Enabled: true,
		Steps: []model.ActionSpec{
			{Seq: 1, Kind: model.StepSendMessage, Channel: "invoking", Content: "b", Enabled: true},
			{Seq: 0, Kind: model.StepSendMessage, Channel: "invoking", Content: "a", Enabled: true},
		},
	}))
	require.NoError(t, s.CreateAutomation(ctx, model.Automation{
		GuildID: 1, Name: "early", Trigger: model.TriggerCommand, Command: "hi", Priority: 1, Enabled: true,
		Steps: []model.ActionSpec{
			{Seq: 0, Kind: model.StepSendDM, Content: "dm", Enabled: true},
		},
	}))
	require.NoError(t, s.CreateAutomation(ctx, model.Automation{
		GuildID: 1, Name: "other-trigger", Trigger: model.TriggerMemberLeave, Enabled: true,
		Steps: []model.ActionSpec{
			{Seq: 0, Kind: model.StepSendEmbed, Channel: "log", Content: "bye", Enabled: true},
		},
	}))

	autos, err := s.ListAutomations(ctx, 1, model.TriggerCommand)
	require.NoError(t, err)
	require.Len(t, autos, 2)
	assert.Equal(t, "early", autos[0].Name)
	assert.Equal(t, "late", autos[1].Name)
	require.Len(t, autos[1].Steps, 2)
	assert.Equal(t, "a", autos[1].Steps[0].Content)
	assert.Equal(t, "b", autos[1].Steps[1].Content)

	all, err := s.ListAllAutomations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.ListAutomations(ctx, 2, model.TriggerCommand)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateAutomation_RejectsInvalid(t *testing.T) {
	s := createTestStore(t)
	err := s.CreateAutomation(context.Background(), model.Automation{
		GuildID: 1, Name: "broken", Trigger: "ON_FIRE", Enabled: true,
	})
	require.Error(t, err)

	all, listErr := s.ListAllAutomations(context.Background(), 1)
	require.NoError(t, listErr)
	assert.Empty(t, all)
}

func TestInviteRules_UpsertKeepsID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertInviteRule(ctx, model.InviteRule{
		GuildID: 1, Code: "premium", RoleIDs: []int64{100, 101}, Description: "vip",
	}))
	rules, err := s.ListInviteRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	firstID := rules[0].ID
	assert.NotZero(t, firstID)
	assert.Equal(t, []int64{100, 101}, rules[0].RoleIDs)

	require.NoError(t, s.UpsertInviteRule(ctx, model.InviteRule{
		GuildID: 1, Code: "premium", RoleIDs: []int64{200}, IsDefault: true,
	}))
	rules, err = s.ListInviteRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, firstID, rules[0].ID)
	assert.Equal(t, []int64{200}, rules[0].RoleIDs)
	assert.True(t, rules[0].IsDefault)
}

func TestInviteRules_SingleDefaultPerGuild(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertInviteRule(ctx, model.InviteRule{
		GuildID: 1, Code: "alpha", RoleIDs: []int64{100}, IsDefault: true,
	}))
	require.NoError(t, s.UpsertInviteRule(ctx, model.InviteRule{
		GuildID: 1, Code: "beta", RoleIDs: []int64{101}, IsDefault: true,
	}))
	// Other guilds keep their own default.
	require.NoError(t, s.UpsertInviteRule(ctx, model.InviteRule{
		GuildID: 2, Code: "gamma", RoleIDs: []int64{300}, IsDefault: true,
	}))

	rules, err := s.ListInviteRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	var defaults []string
	for _, r := range rules {
		if r.IsDefault {
			defaults = append(defaults, r.Code)
		}
	}
	assert.Equal(t, []string{"beta"}, defaults)

	rules, err = s.ListInviteRules(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].IsDefault)
}

func TestDeleteInviteRule(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertInviteRule(ctx, model.InviteRule{GuildID: 1, Code: "gone", RoleIDs: []int64{1}}))
	require.NoError(t, s.DeleteInviteRule(ctx, 1, "gone"))
	assert.ErrorIs(t, s.DeleteInviteRule(ctx, 1, "gone"), model.ErrNotFound)
}

func TestApplications_Roundtrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Application(ctx, 1, 7)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, s.UpsertApplication(ctx, model.Application{
		GuildID: 1, UserID: 7, UserName: "user7", InviteCode: "premium",
		InviterID: 42, InviterName: "recruiter", Status: model.StatusPending,
		Answers:   map[string]string{"1": "User Seven"},
		CreatedAt: created,
	}))

	app, err := s.Application(ctx, 1, 7)
	require.NoError(t, err)
	assert.NotZero(t, app.ID)
	assert.Equal(t, "user7", app.UserName)
	assert.Equal(t, map[string]string{"1": "User Seven"}, app.Answers)
	assert.True(t, app.CreatedAt.Equal(created))
	assert.True(t, app.ReviewedAt.IsZero())

	byID, err := s.ApplicationByID(ctx, 1, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app, byID)

	// The terminal transition keeps the row id.
	app.Status = model.StatusApproved
	app.ReviewedBy = 99
	app.ReviewedByName = "admin"
	app.ReviewedAt = created.Add(time.Hour)
	require.NoError(t, s.UpsertApplication(ctx, app))

	got, err := s.Application(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
	assert.Equal(t, model.StatusApproved, got.Status)
	assert.True(t, got.ReviewedAt.Equal(created.Add(time.Hour)))
}

func TestFormFields_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateFormField(ctx, model.FormField{
		GuildID: 1, Label: "reason", Type: model.FieldTextarea, Required: true, Order: 1,
	}))
	require.NoError(t, s.CreateFormField(ctx, model.FormField{
		ID: 10, GuildID: 1, Label: "name", Type: model.FieldText, Required: true, Order: 0,
	}))

	fields, err := s.ListFormFields(ctx, 1)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Label)
	assert.Equal(t, int64(10), fields[0].ID)
	assert.Equal(t, "reason", fields[1].Label)
}

func TestDropdown_Roundtrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.CreateDropdown(ctx, model.Dropdown{
		GuildID: 1, Name: "interests", Source: model.DropdownRoles,
		Multiselect: true, RoleIDs: []int64{200, 300},
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	d, err := s.Dropdown(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, model.DropdownRoles, d.Source)
	assert.Equal(t, []int64{200, 300}, d.RoleIDs)

	_, err = s.Dropdown(ctx, 1, id+1)
	assert.ErrorIs(t, err, model.ErrNotFound)

	custom, err := s.CreateDropdown(ctx, model.Dropdown{
		GuildID: 1, Name: "color", Source: model.DropdownCustom,
		Options: []model.DropdownOption{{Label: "Red", Value: "red", Order: 0}},
	})
	require.NoError(t, err)
	d, err = s.Dropdown(ctx, 1, custom)
	require.NoError(t, err)
	require.Len(t, d.Options, 1)
	assert.Equal(t, "red", d.Options[0].Value)
}

func TestTemplates_DefaultsAndOverrides(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetDefaultTemplate(ctx, template.KindApproveDM, "default text"))
	require.NoError(t, s.SetTemplateOverride(ctx, 1, template.KindApproveDM, "guild text"))

	defaults, err := s.DefaultTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, "default text", defaults[template.KindApproveDM])

	overrides, err := s.TemplateOverrides(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "guild text", overrides[template.KindApproveDM])

	other, err := s.TemplateOverrides(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestInstallDefaults_SkipsCustomized(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetDefaultTemplate(ctx, template.KindHelpMessage, "custom help"))

	installed, err := s.InstallDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(template.Kinds())-1, installed)

	again, err := s.InstallDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	defaults, err := s.DefaultTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, "custom help", defaults[template.KindHelpMessage])
	assert.Equal(t, template.Builtin(template.KindApproveDM), defaults[template.KindApproveDM])
}

func TestSyncRoles_ReplacesRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SyncRoles(ctx, 1, []model.Role{
		{GuildID: 1, RoleID: 100, Name: "Premium"},
		{GuildID: 1, RoleID: 101, Name: "VIP"},
	}))
	require.NoError(t, s.SyncRoles(ctx, 1, []model.Role{
		{GuildID: 1, RoleID: 100, Name: "Premium Renamed"},
	}))

	names, err := s.RoleNames(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{100: "Premium Renamed"}, names)
}

func TestListMembersWithRole(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SyncMembers(ctx, 1, []model.Member{
		{GuildID: 1, UserID: 7, Name: "user7", RoleIDs: []int64{800}},
		{GuildID: 1, UserID: 8, Name: "user8", RoleIDs: []int64{800, 900}},
		{GuildID: 1, UserID: 9, Name: "user9", RoleIDs: []int64{900}},
	}))
	require.NoError(t, s.SyncChannels(ctx, 1, []model.Channel{
		{GuildID: 1, ChannelID: 555, Name: "logs"},
	}))

	members, err := s.ListMembersWithRole(ctx, 1, 800)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, int64(7), members[0].UserID)
	assert.Equal(t, int64(8), members[1].UserID)
}

func TestAccessToken_Roundtrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.AccessToken(ctx, 99, 1)
	assert.ErrorIs(t, err, model.ErrNotFound)

	tok := model.AccessToken{
		Token: "tok-1", UserID: 99, UserName: "admin", GuildID: 1,
		CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, s.SaveAccessToken(ctx, tok))

	got, err := s.AccessToken(ctx, 99, 1)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Token)
	assert.True(t, got.ExpiresAt.Equal(tok.ExpiresAt))
	assert.True(t, got.Valid(now))
	assert.False(t, got.Valid(now.Add(25*time.Hour)))

	// Reissue replaces the row.
	tok.Token = "tok-2"
	require.NoError(t, s.SaveAccessToken(ctx, tok))
	got, err = s.AccessToken(ctx, 99, 1)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", got.Token)
}
