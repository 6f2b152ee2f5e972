package commands

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vic-nas/bouncer/internal/memrepo"
	"github.com/vic-nas/bouncer/internal/model"
	"github.com/vic-nas/bouncer/internal/template"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testDeps(repo *memrepo.Repo) Deps {
	return Deps{
		Repo:      repo,
		Templates: template.NewResolver(nil, nil),
		Now:       func() time.Time { return testTime },
		PanelURL:  "https://bouncer.example",
		NewToken:  func() string { return "tok-1" },
	}
}

func guild() model.GuildSettings {
	return model.GuildSettings{
		GuildID:          1,
		GuildName:        "Testers",
		Mode:             model.ModeApproval,
		AdminRoleID:      900,
		PendingRoleID:    800,
		LogChannelID:     555,
		PendingChannelID: 666,
	}
}

func admin() model.Actor {
	return model.Actor{ID: 99, Name: "admin", RoleIDs: []int64{900}}
}

func cmdEvent(line string) model.Event {
	return model.Event{
		Kind:      model.TriggerCommand,
		GuildID:   1,
		ChannelID: 444,
		Actor:     admin(),
		Command:   line,
	}
}

func TestTokenize(t *testing.T) {
	testCases := []struct {
		line string
		name string
		args []string
	}{
		{"help", "help", nil},
		{"SETMODE auto", "setmode", []string{"auto"}},
		{"addrule code @Role some description", "addrule", []string{"code", "@Role", "some", "description"}},
		{`addfield text required "Full Name"`, "addfield", []string{"text", "required", "Full Name"}},
		{`reject <@7> "too vague"`, "reject", []string{"<@7>", "too vague"}},
		{`addrule vip "Night Crew`, "addrule", []string{"vip", "Night Crew"}},
		{"  help  ", "help", nil},
		{"", "", nil},
	}

	for _, tc := range testCases {
		name, args := Tokenize(tc.line)
		assert.Equal(t, tc.name, name, "line %q", tc.line)
		assert.Equal(t, tc.args, args, "line %q", tc.line)
	}
}

func TestNames_CoversEveryBuiltin(t *testing.T) {
	want := []string{
		"addfield", "addrule", "approve", "cleanall", "cleanup", "delrule",
		"getaccess", "help", "listfields", "listrules", "reject", "reload",
		"setmode",
	}
	assert.Equal(t, want, Names())
	for _, name := range want {
		assert.NotNil(t, builtins[name].run, "handler for %s", name)
	}
}

func TestRoute_UnknownCommandNotHandled(t *testing.T) {
	plan, handled, err := Route(context.Background(), testDeps(memrepo.New()), guild(), cmdEvent("frobnicate"))
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, plan.Actions)
}

func TestRoute_AdminGate(t *testing.T) {
	ev := cmdEvent("setmode AUTO")
	ev.Actor = model.Actor{ID: 5, Name: "pleb"}

	plan, handled, err := Route(context.Background(), testDeps(memrepo.New()), guild(), ev)
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportPermissionDenied, plan.Reports[0].Kind)
	assert.Equal(t, "setmode", plan.Reports[0].Command)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, model.ActionReply, plan.Actions[0].Kind)
}

func TestRoute_OwnerBypassesAdminGate(t *testing.T) {
	repo := memrepo.New()
	ev := cmdEvent("setmode AUTO")
	ev.Actor = model.Actor{ID: 5, Name: "owner", Owner: true}

	plan, handled, err := Route(context.Background(), testDeps(repo), guild(), ev)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Empty(t, plan.Reports)

	gs, err := repo.GuildSettings(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.ModeAuto, gs.Mode)
}

func TestRoute_GuildCommandInDMRejected(t *testing.T) {
	ev := cmdEvent("listrules")
	ev.DM = true
	ev.GuildID = 0

	plan, handled, err := Route(context.Background(), testDeps(memrepo.New()), guild(), ev)
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportPermissionDenied, plan.Reports[0].Kind)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, model.ActionSendDM, plan.Actions[0].Kind)
}

func TestGetAccess_RequiresDM(t *testing.T) {
	plan, handled, err := Route(context.Background(), testDeps(memrepo.New()), guild(), cmdEvent("getaccess"))
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportPermissionDenied, plan.Reports[0].Kind)
	assert.Contains(t, plan.Actions[0].Content, "direct message")
}

func TestGetAccess_IssuesAndReusesToken(t *testing.T) {
	repo := memrepo.New()
	d := testDeps(repo)
	ev := cmdEvent("getaccess")
	ev.DM = true
	ev.GuildID = 0
	ev.AdminGuilds = []model.GuildRef{{ID: 1, Name: "Testers"}}

	plan, _, err := Route(context.Background(), d, model.GuildSettings{}, ev)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, model.ActionSendDM, plan.Actions[0].Kind)
	assert.Contains(t, plan.Actions[0].Content, "token=tok-1")

	tok, err := repo.AccessToken(context.Background(), 99, 1)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.Token)
	assert.Equal(t, testTime.Add(24*time.Hour), tok.ExpiresAt)

	// Second request inside the TTL re-sends the same link.
	d.NewToken = func() string { return "tok-2" }
	plan, _, err = Route(context.Background(), d, model.GuildSettings{}, ev)
	require.NoError(t, err)
	assert.Contains(t, plan.Actions[0].Content, "token=tok-1")
	assert.Contains(t, plan.Actions[0].Content, "already have an active token")
}

func TestGetAccess_OneLinkPerAdminGuild(t *testing.T) {
	repo := memrepo.New()
	d := testDeps(repo)
	seq := 0
	d.NewToken = func() string {
		seq++
		return fmt.Sprintf("tok-%d", seq)
	}
	ev := cmdEvent("getaccess")
	ev.DM = true
	ev.GuildID = 0
	ev.AdminGuilds = []model.GuildRef{{ID: 1, Name: "Testers"}, {ID: 2, Name: "Clubhouse"}}

	plan, _, err := Route(context.Background(), d, model.GuildSettings{}, ev)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 2)
	assert.Contains(t, plan.Actions[0].Content, "Testers")
	assert.Contains(t, plan.Actions[0].Content, "token=tok-1")
	assert.Contains(t, plan.Actions[1].Content, "Clubhouse")
	assert.Contains(t, plan.Actions[1].Content, "token=tok-2")

	for guildID, want := range map[int64]string{1: "tok-1", 2: "tok-2"} {
		tok, err := repo.AccessToken(context.Background(), 99, guildID)
		require.NoError(t, err)
		assert.Equal(t, want, tok.Token)
	}
}

func TestGetAccess_NoAdminGuilds(t *testing.T) {
	ev := cmdEvent("getaccess")
	ev.DM = true

	plan, _, err := Route(context.Background(), testDeps(memrepo.New()), model.GuildSettings{}, ev)
	require.NoError(t, err)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportPermissionDenied, plan.Reports[0].Kind)
	assert.Contains(t, plan.Actions[0].Content, "not a bot admin")
}

func TestSetMode_Validation(t *testing.T) {
	repo := memrepo.New()

	plan, _, err := Route(context.Background(), testDeps(repo), guild(), cmdEvent("setmode sideways"))
	require.NoError(t, err)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportValidation, plan.Reports[0].Kind)

	_, err = repo.GuildSettings(context.Background(), 1)
	assert.ErrorIs(t, err, model.ErrNotFound, "validation failure must not save settings")
}

func seedRoles(t *testing.T, repo *memrepo.Repo) {
	t.Helper()
	require.NoError(t, repo.SyncRoles(context.Background(), 1, []model.Role{
		{GuildID: 1, RoleID: 100, Name: "Premium"},
		{GuildID: 1, RoleID: 101, Name: "Night Crew"},
		{GuildID: 1, RoleID: 200, Name: "Café"},
	}))
}

func TestAddRule_MentionsAndDescription(t *testing.T) {
	repo := memrepo.New()
	seedRoles(t, repo)
	ev := cmdEvent("addrule premium123 <@&100> <@&101> early supporters")
	ev.RoleMentions = []model.RoleRef{{ID: 100, Name: "Premium"}, {ID: 101, Name: "Night Crew"}}

	plan, _, err := Route(context.Background(), testDeps(repo), guild(), ev)
	require.NoError(t, err)
	assert.Empty(t, plan.Reports)

	rules, err := repo.ListInviteRules(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "premium123", rules[0].Code)
	assert.Equal(t, []int64{100, 101}, rules[0].RoleIDs)
	assert.Equal(t, "early supporters", rules[0].Description)
	assert.False(t, rules[0].IsDefault)
	assert.Contains(t, plan.Actions[0].Content, "Premium, Night Crew")
}

func TestAddRule_NameMatchingNormalized(t *testing.T) {
	repo := memrepo.New()
	seedRoles(t, repo)
	// "Café" typed with a combining accent still matches the stored
	// precomposed form.
	ev := cmdEvent("addrule vip \"café\"")

	_, _, err := Route(context.Background(), testDeps(repo), guild(), ev)
	require.NoError(t, err)

	rules, err := repo.ListInviteRules(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []int64{200}, rules[0].RoleIDs)
}

func TestAddRule_LastWriteWins(t *testing.T) {
	repo := memrepo.New()
	seedRoles(t, repo)
	d := testDeps(repo)

	ev := cmdEvent("addrule vip <@&100>")
	ev.RoleMentions = []model.RoleRef{{ID: 100, Name: "Premium"}}
	_, _, err := Route(context.Background(), d, guild(), ev)
	require.NoError(t, err)

	ev = cmdEvent("addrule vip <@&101>")
	ev.RoleMentions = []model.RoleRef{{ID: 101, Name: "Night Crew"}}
	plan, _, err := Route(context.Background(), d, guild(), ev)
	require.NoError(t, err)
	assert.Empty(t, plan.Reports, "overwrite is not an error")

	rules, err := repo.ListInviteRules(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, []int64{101}, rules[0].RoleIDs)
}

func TestAddRule_DefaultCode(t *testing.T) {
	repo := memrepo.New()
	seedRoles(t, repo)
	ev := cmdEvent("addrule default <@&100>")
	ev.RoleMentions = []model.RoleRef{{ID: 100, Name: "Premium"}}

	_, _, err := Route(context.Background(), testDeps(repo), guild(), ev)
	require.NoError(t, err)

	rules, _ := repo.ListInviteRules(context.Background(), 1)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].IsDefault)
}

func TestAddRule_DefaultKeywordCaseInsensitive(t *testing.T) {
	repo := memrepo.New()
	seedRoles(t, repo)
	d := testDeps(repo)

	ev := cmdEvent("addrule default <@&100>")
	ev.RoleMentions = []model.RoleRef{{ID: 100, Name: "Premium"}}
	_, _, err := Route(context.Background(), d, guild(), ev)
	require.NoError(t, err)

	ev = cmdEvent("addrule DEFAULT <@&101>")
	ev.RoleMentions = []model.RoleRef{{ID: 101, Name: "Night Crew"}}
	_, _, err = Route(context.Background(), d, guild(), ev)
	require.NoError(t, err)

	rules, err := repo.ListInviteRules(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rules, 1, "DEFAULT must overwrite default, not add a second rule")
	assert.Equal(t, "default", rules[0].Code)
	assert.Equal(t, []int64{101}, rules[0].RoleIDs)
	assert.True(t, rules[0].IsDefault)
}

func TestUpsertInviteRule_DemotesPreviousDefault(t *testing.T) {
	repo := memrepo.New()
	ctx := context.Background()
	require.NoError(t, repo.UpsertInviteRule(ctx, model.InviteRule{
		GuildID: 1, Code: "alpha", RoleIDs: []int64{100}, IsDefault: true,
	}))
	require.NoError(t, repo.UpsertInviteRule(ctx, model.InviteRule{
		GuildID: 1, Code: "beta", RoleIDs: []int64{101}, IsDefault: true,
	}))

	rules, err := repo.ListInviteRules(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	var defaults []string
	for _, r := range rules {
		if r.IsDefault {
			defaults = append(defaults, r.Code)
		}
	}
	assert.Equal(t, []string{"beta"}, defaults)
}

func TestAddRule_NoRolesRejected(t *testing.T) {
	repo := memrepo.New()
	seedRoles(t, repo)

	plan, _, err := Route(context.Background(), testDeps(repo), guild(), cmdEvent("addrule vip NoSuchRole"))
	require.NoError(t, err)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportValidation, plan.Reports[0].Kind)

	rules, _ := repo.ListInviteRules(context.Background(), 1)
	assert.Empty(t, rules)
}

func TestDelRule_MissingReportsNotFound(t *testing.T) {
	plan, _, err := Route(context.Background(), testDeps(memrepo.New()), guild(), cmdEvent("delrule ghost"))
	require.NoError(t, err)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportNotFound, plan.Reports[0].Kind)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, model.ActionReply, plan.Actions[0].Kind)
}

func TestDelRule_RemovesRule(t *testing.T) {
	repo := memrepo.New()
	require.NoError(t, repo.UpsertInviteRule(context.Background(), model.InviteRule{
		GuildID: 1, Code: "vip", RoleIDs: []int64{100},
	}))

	plan, _, err := Route(context.Background(), testDeps(repo), guild(), cmdEvent("delrule vip"))
	require.NoError(t, err)
	assert.Empty(t, plan.Reports)

	rules, _ := repo.ListInviteRules(context.Background(), 1)
	assert.Empty(t, rules)
}

func TestListRules_Embed(t *testing.T) {
	repo := memrepo.New()
	seedRoles(t, repo)
	require.NoError(t, repo.UpsertInviteRule(context.Background(), model.InviteRule{
		GuildID: 1, Code: "vip", RoleIDs: []int64{100}, Description: "friends", IsDefault: true,
	}))

	plan, _, err := Route(context.Background(), testDeps(repo), guild(), cmdEvent("listrules"))
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	require.Equal(t, model.ActionSendEmbed, plan.Actions[0].Kind)
	desc := plan.Actions[0].Embed.Description
	assert.Contains(t, desc, "`vip`")
	assert.Contains(t, desc, "Premium")
	assert.Contains(t, desc, "(default)")
	assert.Contains(t, desc, "friends")
}

func TestAddField_QuotedLabel(t *testing.T) {
	repo := memrepo.New()

	plan, _, err := Route(context.Background(), testDeps(repo), guild(), cmdEvent(`addfield text required "Full Name"`))
	require.NoError(t, err)
	assert.Empty(t, plan.Reports)

	fields, err := repo.ListFormFields(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "Full Name", fields[0].Label)
	assert.Equal(t, model.FieldText, fields[0].Type)
	assert.True(t, fields[0].Required)
	assert.Equal(t, 0, fields[0].Order)
}

func TestAddField_UnknownTypeRejected(t *testing.T) {
	repo := memrepo.New()
	plan, _, err := Route(context.Background(), testDeps(repo), guild(), cmdEvent("addfield slider required Volume"))
	require.NoError(t, err)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportValidation, plan.Reports[0].Kind)

	fields, _ := repo.ListFormFields(context.Background(), 1)
	assert.Empty(t, fields)
}

func TestListFields_OrderedOutput(t *testing.T) {
	repo := memrepo.New()
	d := testDeps(repo)
	for _, line := range []string{
		`addfield text required "Full Name"`,
		"addfield textarea optional Motivation",
	} {
		_, _, err := Route(context.Background(), d, guild(), cmdEvent(line))
		require.NoError(t, err)
	}

	plan, _, err := Route(context.Background(), d, guild(), cmdEvent("listfields"))
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	desc := plan.Actions[0].Embed.Description
	assert.Contains(t, desc, "1. **Full Name**")
	assert.Contains(t, desc, "2. **Motivation**")
	assert.Contains(t, desc, "(required)")
}

func TestApprove_DispatchesSingle(t *testing.T) {
	repo := memrepo.New()
	require.NoError(t, repo.UpsertApplication(context.Background(), model.Application{
		GuildID: 1, UserID: 7, UserName: "user7", InviteCode: "none",
		Status: model.StatusPending,
	}))

	ev := cmdEvent("approve <@7>")
	ev.UserMentions = []model.UserRef{{ID: 7, Name: "user7"}}

	plan, _, err := Route(context.Background(), testDeps(repo), guild(), ev)
	require.NoError(t, err)
	assert.Empty(t, plan.Reports)

	app, _ := repo.Application(context.Background(), 1, 7)
	assert.Equal(t, model.StatusApproved, app.Status)
	assert.NotZero(t, plan.RoleMutations())
}

func TestApprove_DispatchesBulkByRole(t *testing.T) {
	repo := memrepo.New()
	require.NoError(t, repo.SyncMembers(context.Background(), 1, []model.Member{
		{GuildID: 1, UserID: 7, Name: "user7", RoleIDs: []int64{800}},
	}))
	require.NoError(t, repo.UpsertApplication(context.Background(), model.Application{
		GuildID: 1, UserID: 7, InviteCode: "none", Status: model.StatusPending,
	}))

	ev := cmdEvent("approve <@&800>")
	ev.RoleMentions = []model.RoleRef{{ID: 800, Name: "Pending"}}

	plan, _, err := Route(context.Background(), testDeps(repo), guild(), ev)
	require.NoError(t, err)
	assert.Contains(t, plan.Actions[len(plan.Actions)-1].Content, "1 approved")
}

func TestApprove_NoMentionsUsage(t *testing.T) {
	plan, _, err := Route(context.Background(), testDeps(memrepo.New()), guild(), cmdEvent("approve somebody"))
	require.NoError(t, err)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportValidation, plan.Reports[0].Kind)
	assert.Contains(t, plan.Actions[0].Content, "Usage:")
}

func TestReject_ReasonFromQuotedArgs(t *testing.T) {
	repo := memrepo.New()
	require.NoError(t, repo.UpsertApplication(context.Background(), model.Application{
		GuildID: 1, UserID: 7, UserName: "user7", Status: model.StatusPending,
	}))

	ev := cmdEvent(`reject <@7> "incomplete form"`)
	ev.UserMentions = []model.UserRef{{ID: 7, Name: "user7"}}

	_, _, err := Route(context.Background(), testDeps(repo), guild(), ev)
	require.NoError(t, err)

	app, _ := repo.Application(context.Background(), 1, 7)
	assert.Equal(t, model.StatusRejected, app.Status)
	assert.Equal(t, "incomplete form", app.Reason)
}

func TestCleanup_DefaultAndExplicitCount(t *testing.T) {
	d := testDeps(memrepo.New())

	plan, _, err := Route(context.Background(), d, guild(), cmdEvent("cleanup"))
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, model.ActionCleanupChannel, plan.Actions[0].Kind)
	assert.Equal(t, int64(444), plan.Actions[0].ChannelID)
	assert.Equal(t, 50, plan.Actions[0].Count)

	plan, _, err = Route(context.Background(), d, guild(), cmdEvent("cleanup 10"))
	require.NoError(t, err)
	assert.Equal(t, 10, plan.Actions[0].Count)

	plan, _, err = Route(context.Background(), d, guild(), cmdEvent("cleanup lots"))
	require.NoError(t, err)
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportValidation, plan.Reports[0].Kind)
}

func TestCleanAll_ManagedChannels(t *testing.T) {
	plan, _, err := Route(context.Background(), testDeps(memrepo.New()), guild(), cmdEvent("cleanall"))
	require.NoError(t, err)

	var cleaned []int64
	for _, a := range plan.Actions {
		if a.Kind == model.ActionCleanupChannel {
			cleaned = append(cleaned, a.ChannelID)
		}
	}
	assert.Equal(t, []int64{555, 666}, cleaned)
}

func TestHelp_ListsAllBuiltins(t *testing.T) {
	plan, _, err := Route(context.Background(), testDeps(memrepo.New()), guild(), cmdEvent("help"))
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	for _, name := range Names() {
		assert.Contains(t, plan.Actions[0].Content, "`"+name+"`")
	}
}

func TestNotFoundPlan(t *testing.T) {
	plan := NotFoundPlan(testDeps(memrepo.New()), cmdEvent("frobnicate"), "frobnicate")
	require.Len(t, plan.Reports, 1)
	assert.Equal(t, model.ReportNotFound, plan.Reports[0].Kind)
	assert.Contains(t, plan.Actions[0].Content, "`frobnicate`")
	assert.Contains(t, plan.Actions[0].Content, "approve")
}
