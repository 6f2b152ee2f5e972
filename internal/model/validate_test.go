package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAutomation() Automation {
	return Automation{
		GuildID: 1,
		Name:    "welcome",
		Trigger: TriggerCommand,
		Command: "welcome",
		Enabled: true,
		Steps: []ActionSpec{
			{Seq: 0, Kind: StepSendMessage, Channel: ChannelRefLog, Template: "COMMAND_SUCCESS", Enabled: true},
			{Seq: 1, Kind: StepAddRole, Role: RoleRefPending, Enabled: true},
		},
	}
}

func TestValidateAutomation_Valid(t *testing.T) {
	require.NoError(t, ValidateAutomation(validAutomation()))
}

func TestValidateAutomation_Rejections(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Automation)
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(a *Automation) { a.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "unknown trigger",
			mutate:  func(a *Automation) { a.Trigger = "ON_FIRE" },
			wantErr: "unknown trigger",
		},
		{
			name: "command trigger without name",
			mutate: func(a *Automation) {
				a.Trigger = TriggerCommand
				a.Command = ""
			},
			wantErr: "requires a command name",
		},
		{
			name: "reaction trigger without emoji",
			mutate: func(a *Automation) {
				a.Trigger = TriggerReaction
				a.Command = ""
			},
			wantErr: "requires an emoji",
		},
		{
			name:    "invalid mode filter",
			mutate:  func(a *Automation) { a.Mode = "MANUAL" },
			wantErr: "invalid mode filter",
		},
		{
			name: "duplicate step seq",
			mutate: func(a *Automation) {
				a.Steps[1].Seq = a.Steps[0].Seq
			},
			wantErr: "duplicate step seq",
		},
		{
			name: "unknown step kind",
			mutate: func(a *Automation) {
				a.Steps[0].Kind = "EXPLODE"
			},
			wantErr: "unknown step kind",
		},
		{
			name: "send message without channel",
			mutate: func(a *Automation) {
				a.Steps[0].Channel = ""
			},
			wantErr: "channel reference is required",
		},
		{
			name: "send message with bad channel ref",
			mutate: func(a *Automation) {
				a.Steps[0].Channel = "lounge"
			},
			wantErr: "invalid channel reference",
		},
		{
			name: "send message with unknown template",
			mutate: func(a *Automation) {
				a.Steps[0].Template = "NO_SUCH"
			},
			wantErr: "unknown template kind",
		},
		{
			name: "send message with neither template nor content",
			mutate: func(a *Automation) {
				a.Steps[0].Template = ""
				a.Steps[0].Content = ""
			},
			wantErr: "requires a template or content",
		},
		{
			name: "add role without role ref",
			mutate: func(a *Automation) {
				a.Steps[1].Role = ""
			},
			wantErr: "role reference is required",
		},
		{
			name: "add role with bad role ref",
			mutate: func(a *Automation) {
				a.Steps[1].Role = "moderators"
			},
			wantErr: "invalid role reference",
		},
		{
			name: "cleanup without count",
			mutate: func(a *Automation) {
				a.Steps[1] = ActionSpec{Seq: 1, Kind: StepCleanup, Channel: ChannelRefLog}
			},
			wantErr: "positive count",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := validAutomation()
			tc.mutate(&a)
			err := ValidateAutomation(a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateAutomation_LiteralIDRefs(t *testing.T) {
	a := validAutomation()
	a.Steps[0].Channel = "123456789"
	a.Steps[1].Role = "987654321"
	assert.NoError(t, ValidateAutomation(a))
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
}

func TestSnapshot_MembersWithRole(t *testing.T) {
	snap := &Snapshot{Members: []Member{
		{UserID: 1, RoleIDs: []int64{10, 20}},
		{UserID: 2, RoleIDs: []int64{20}},
		{UserID: 3, RoleIDs: []int64{30}},
	}}

	members := snap.MembersWithRole(20)
	require.Len(t, members, 2)
	assert.Equal(t, int64(1), members[0].UserID)
	assert.Equal(t, int64(2), members[1].UserID)

	var nilSnap *Snapshot
	assert.Nil(t, nilSnap.MembersWithRole(20))
}
