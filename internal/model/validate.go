package model

import (
	"fmt"
	"strconv"

	"github.com/vic-nas/bouncer/internal/template"
)

// ValidateAutomation checks an automation and its steps at load time.
// The engine only ever sees automations that passed this check, so the
// matcher and expander can assume well-formed configs.
func ValidateAutomation(a Automation) error {
	if a.Name == "" {
		return fmt.Errorf("automation: name is required")
	}
	if !ValidTriggers[a.Trigger] {
		return fmt.Errorf("automation %q: unknown trigger %q", a.Name, a.Trigger)
	}
	if a.Trigger == TriggerCommand && a.Command == "" {
		return fmt.Errorf("automation %q: COMMAND trigger requires a command name", a.Name)
	}
	if a.Trigger == TriggerReaction && a.Emoji == "" {
		return fmt.Errorf("automation %q: REACTION trigger requires an emoji", a.Name)
	}
	if a.Mode != "" && a.Mode != ModeAuto && a.Mode != ModeApproval {
		return fmt.Errorf("automation %q: invalid mode filter %q", a.Name, a.Mode)
	}

	seen := make(map[int]bool, len(a.Steps))
	for _, step := range a.Steps {
		if seen[step.Seq] {
			return fmt.Errorf("automation %q: duplicate step seq %d", a.Name, step.Seq)
		}
		seen[step.Seq] = true

		if err := validateStep(step); err != nil {
			return fmt.Errorf("automation %q step %d: %w", a.Name, step.Seq, err)
		}
	}
	return nil
}

func validateStep(step ActionSpec) error {
	if !ValidStepKinds[step.Kind] {
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}

	switch step.Kind {
	case StepSendMessage, StepSendEmbed:
		if err := checkChannelRef(step.Channel); err != nil {
			return err
		}
		return checkText(step)

	case StepSendDM:
		return checkText(step)

	case StepAddRole, StepRemoveRole:
		return checkRoleRef(step.Role)

	case StepSetTopic:
		if err := checkChannelRef(step.Channel); err != nil {
			return err
		}
		return checkText(step)

	case StepEditMessage:
		return checkText(step)

	case StepSetPerms:
		return checkChannelRef(step.Channel)

	case StepCleanup:
		if err := checkChannelRef(step.Channel); err != nil {
			return err
		}
		if step.Count <= 0 {
			return fmt.Errorf("CLEANUP requires a positive count")
		}
		return nil
	}
	return nil
}

// checkText requires either a known template kind or literal content.
func checkText(step ActionSpec) error {
	if step.Template != "" {
		if !template.Known(step.Template) {
			return fmt.Errorf("unknown template kind %q", step.Template)
		}
		return nil
	}
	if step.Content == "" {
		return fmt.Errorf("%s requires a template or content", step.Kind)
	}
	return nil
}

func checkChannelRef(ref string) error {
	switch ref {
	case "":
		return fmt.Errorf("channel reference is required")
	case ChannelRefLog, ChannelRefPending, ChannelRefInvoking:
		return nil
	}
	if _, err := strconv.ParseInt(ref, 10, 64); err != nil {
		return fmt.Errorf("invalid channel reference %q", ref)
	}
	return nil
}

func checkRoleRef(ref string) error {
	switch ref {
	case "":
		return fmt.Errorf("role reference is required")
	case RoleRefPending, RoleRefFromRule:
		return nil
	}
	if _, err := strconv.ParseInt(ref, 10, 64); err != nil {
		return fmt.Errorf("invalid role reference %q", ref)
	}
	return nil
}
