package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: smallest valid scenario
guild:
  guild_id: 1
  guild_name: G
  mode: AUTO
events:
  - kind: COMMAND
    actor:
      id: 99
      name: admin
    command: help
assertions:
  - type: plan_count
    event: 1
    kind: REPLY
    count: 1
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	assert.Len(t, s.Events, 1)
	assert.Len(t, s.Assertions, 1)
}

func TestParseScenario_RejectsUnknownField(t *testing.T) {
	doc := `
name: typo
description: has an unknown key
guild:
  guild_id: 1
evnets:
  - kind: COMMAND
`
	_, err := ParseScenario([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse scenario")
}

func TestParseScenario_RejectsUnknownEventKind(t *testing.T) {
	doc := `
name: bad-kind
description: event kind is not a trigger
guild:
  guild_id: 1
events:
  - kind: ON_FIRE
    actor:
      id: 1
assertions:
  - type: plan_count
    event: 1
    kind: REPLY
    count: 0
`
	_, err := ParseScenario([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kind "ON_FIRE"`)
}

func TestParseScenario_RejectsOutOfRangeEvent(t *testing.T) {
	doc := `
name: bad-index
description: assertion points past the event list
guild:
  guild_id: 1
events:
  - kind: COMMAND
    actor:
      id: 1
    command: help
assertions:
  - type: plan_count
    event: 2
    kind: REPLY
    count: 1
`
	_, err := ParseScenario([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestParseScenario_RejectsMissingAssertionFields(t *testing.T) {
	cases := map[string]string{
		"plan_order without kinds": `
name: s
description: d
guild:
  guild_id: 1
events:
  - {kind: COMMAND, actor: {id: 1}, command: help}
assertions:
  - {type: plan_order, event: 1}
`,
		"plan_contains without action": `
name: s
description: d
guild:
  guild_id: 1
events:
  - {kind: COMMAND, actor: {id: 1}, command: help}
assertions:
  - {type: plan_contains, event: 1}
`,
		"final_status without user": `
name: s
description: d
guild:
  guild_id: 1
events:
  - {kind: COMMAND, actor: {id: 1}, command: help}
assertions:
  - {type: final_status, status: APPROVED}
`,
		"unknown type": `
name: s
description: d
guild:
  guild_id: 1
events:
  - {kind: COMMAND, actor: {id: 1}, command: help}
assertions:
  - {type: plan_exact, event: 1}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScenario([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseScenario_RequiresActorID(t *testing.T) {
	doc := `
name: s
description: d
guild:
  guild_id: 1
events:
  - kind: COMMAND
    actor:
      name: ghost
    command: help
assertions:
  - {type: plan_count, event: 1, kind: REPLY, count: 1}
`
	_, err := ParseScenario([]byte(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actor.id is required")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/does_not_exist.yaml")
	assert.Error(t, err)
}
