// Package invite resolves invitation codes to role sets.
//
// Resolution is a pure lookup against a guild's rule collection: it
// performs no mutation and is safe to call speculatively on every join.
package invite

import "github.com/vic-nas/bouncer/internal/model"

// Resolve maps an invite code to the role ids it grants.
//
// Exact code match wins. If no rule matches, the guild's default rule (if
// any) applies. Otherwise the result is empty: unknown codes with no
// default rule assign no roles, which is a valid outcome, not an error.
func Resolve(rules []model.InviteRule, code string) []int64 {
	rule := Lookup(rules, code)
	if rule == nil {
		return nil
	}
	return rule.RoleIDs
}

// Lookup returns the rule that governs code: exact match first, then the
// default rule, then nil.
func Lookup(rules []model.InviteRule, code string) *model.InviteRule {
	if code != "" {
		for i := range rules {
			if rules[i].Code == code {
				return &rules[i]
			}
		}
	}
	for i := range rules {
		if rules[i].IsDefault {
			return &rules[i]
		}
	}
	return nil
}
