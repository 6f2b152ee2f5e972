package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/vic-nas/bouncer/internal/memrepo"
	"github.com/vic-nas/bouncer/internal/model"
)

// evaluate checks every assertion and returns one failure string per
// assertion that does not hold.
func evaluate(ctx context.Context, s *Scenario, plans []model.Plan, repo *memrepo.Repo) []string {
	var failures []string
	for i, a := range s.Assertions {
		if msg := evaluateOne(ctx, &a, plans, s.Guild.GuildID, repo); msg != "" {
			failures = append(failures, fmt.Sprintf("assertions[%d] (%s): %s", i, a.Type, msg))
		}
	}
	return failures
}

func evaluateOne(ctx context.Context, a *Assertion, plans []model.Plan, guildID int64, repo *memrepo.Repo) string {
	switch a.Type {
	case AssertPlanOrder:
		return checkPlanOrder(a, plans[a.Event-1])
	case AssertPlanContains:
		return checkPlanContains(a, plans[a.Event-1])
	case AssertPlanCount:
		return checkPlanCount(a, plans[a.Event-1])
	case AssertReport:
		return checkReport(a, plans[a.Event-1])
	case AssertFinalStatus:
		return checkFinalStatus(ctx, a, guildID, repo)
	}
	return fmt.Sprintf("unknown assertion type %q", a.Type)
}

func checkPlanOrder(a *Assertion, plan model.Plan) string {
	got := make([]string, len(plan.Actions))
	for i, action := range plan.Actions {
		got[i] = string(action.Kind)
	}
	if len(got) != len(a.Kinds) {
		return fmt.Sprintf("want kinds %v, got %v", a.Kinds, got)
	}
	for i := range got {
		if got[i] != a.Kinds[i] {
			return fmt.Sprintf("want kinds %v, got %v", a.Kinds, got)
		}
	}
	return ""
}

func checkPlanContains(a *Assertion, plan model.Plan) string {
	for _, action := range plan.Actions {
		if a.Action.matches(action) {
			return ""
		}
	}
	return fmt.Sprintf("no action matches %+v among %d actions", *a.Action, len(plan.Actions))
}

func checkPlanCount(a *Assertion, plan model.Plan) string {
	n := 0
	for _, action := range plan.Actions {
		if string(action.Kind) == a.Kind {
			n++
		}
	}
	if n != a.Count {
		return fmt.Sprintf("want %d %s actions, got %d", a.Count, a.Kind, n)
	}
	return ""
}

func checkReport(a *Assertion, plan model.Plan) string {
	for _, r := range plan.Reports {
		if string(r.Kind) == a.Kind {
			return ""
		}
	}
	return fmt.Sprintf("no %s report among %d reports", a.Kind, len(plan.Reports))
}

func checkFinalStatus(ctx context.Context, a *Assertion, guildID int64, repo *memrepo.Repo) string {
	app, err := repo.Application(ctx, guildID, a.UserID)
	if err != nil {
		return fmt.Sprintf("application for user %d: %v", a.UserID, err)
	}
	if string(app.Status) != a.Status {
		return fmt.Sprintf("want status %s for user %d, got %s", a.Status, a.UserID, app.Status)
	}
	return ""
}

// matches reports whether the planned action satisfies every set field
// of the matcher.
func (d *ActionDoc) matches(action model.Action) bool {
	if string(action.Kind) != d.Kind {
		return false
	}
	if d.ChannelID != 0 && action.ChannelID != d.ChannelID {
		return false
	}
	if d.UserID != 0 && action.UserID != d.UserID {
		return false
	}
	if d.RoleID != 0 && action.RoleID != d.RoleID {
		return false
	}
	if d.ContentContains != "" {
		text := action.Content
		if action.Embed != nil {
			text += "\n" + action.Embed.Title + "\n" + action.Embed.Description
		}
		if !strings.Contains(text, d.ContentContains) {
			return false
		}
	}
	return true
}
