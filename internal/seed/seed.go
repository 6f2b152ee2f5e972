// Package seed holds the versioned default-automation fixture.
//
// The fixture ships embedded in the binary as YAML and is checked twice at
// load time: against a CUE schema for shape, then against the domain
// validator for semantic rules (step kinds, channel and role references,
// template names). Consumers only ever see a fixture that passed both.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/vic-nas/bouncer/internal/model"
)

//go:embed default_automations.yaml
var fixtureYAML []byte

//go:embed schema.cue
var schemaCUE string

type fixture struct {
	Version     int              `yaml:"version"`
	Automations []automationSpec `yaml:"automations"`
}

type automationSpec struct {
	Name        string     `yaml:"name"`
	Trigger     string     `yaml:"trigger"`
	Command     string     `yaml:"command,omitempty"`
	Emoji       string     `yaml:"emoji,omitempty"`
	Mode        string     `yaml:"mode,omitempty"`
	Priority    int        `yaml:"priority"`
	Enabled     bool       `yaml:"enabled"`
	Description string     `yaml:"description,omitempty"`
	Steps       []stepSpec `yaml:"steps"`
}

type stepSpec struct {
	Seq      int    `yaml:"seq"`
	Kind     string `yaml:"kind"`
	Channel  string `yaml:"channel,omitempty"`
	Role     string `yaml:"role,omitempty"`
	Template string `yaml:"template,omitempty"`
	Content  string `yaml:"content,omitempty"`
	Count    int    `yaml:"count,omitempty"`
	Enabled  bool   `yaml:"enabled"`
}

func (s automationSpec) toModel(guildID int64) model.Automation {
	steps := make([]model.ActionSpec, len(s.Steps))
	for i, st := range s.Steps {
		steps[i] = model.ActionSpec{
			Seq:      st.Seq,
			Kind:     model.StepKind(st.Kind),
			Channel:  st.Channel,
			Role:     st.Role,
			Template: st.Template,
			Content:  st.Content,
			Count:    st.Count,
			Enabled:  st.Enabled,
		}
	}
	return model.Automation{
		GuildID:     guildID,
		Name:        s.Name,
		Trigger:     model.TriggerKind(s.Trigger),
		Command:     s.Command,
		Emoji:       s.Emoji,
		Mode:        model.Mode(s.Mode),
		Priority:    s.Priority,
		Enabled:     s.Enabled,
		Description: s.Description,
		Steps:       steps,
	}
}

var (
	loadOnce sync.Once
	loaded   fixture
	loadErr  error
)

func load() (fixture, error) {
	loadOnce.Do(func() {
		loaded, loadErr = parse(fixtureYAML)
	})
	return loaded, loadErr
}

// parse decodes one fixture document, schema-checks it, and runs the
// domain validator over every automation.
func parse(data []byte) (fixture, error) {
	var f fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return f, fmt.Errorf("parse fixture: %w", err)
	}

	if err := checkSchema(data); err != nil {
		return f, err
	}

	for _, spec := range f.Automations {
		if err := model.ValidateAutomation(spec.toModel(0)); err != nil {
			return f, fmt.Errorf("fixture: %w", err)
		}
	}
	return f, nil
}

// checkSchema unifies the fixture document with the embedded CUE schema.
func checkSchema(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	unified := schema.Unify(ctx.Encode(doc))
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return fmt.Errorf("fixture does not match schema: %w", err)
	}
	return nil
}

// Defaults returns the fixture's automations bound to one guild.
func Defaults(guildID int64) ([]model.Automation, error) {
	f, err := load()
	if err != nil {
		return nil, err
	}
	autos := make([]model.Automation, 0, len(f.Automations))
	for _, spec := range f.Automations {
		autos = append(autos, spec.toModel(guildID))
	}
	return autos, nil
}

// Func adapts Defaults to the reload seed callback. It validates the
// embedded fixture up front and panics on failure, which can only happen
// when the fixture and schema ship out of sync.
func Func() func(guildID int64) []model.Automation {
	if _, err := load(); err != nil {
		panic(err)
	}
	return func(guildID int64) []model.Automation {
		autos, _ := Defaults(guildID)
		return autos
	}
}

// Version returns the fixture version.
func Version() (int, error) {
	f, err := load()
	if err != nil {
		return 0, err
	}
	return f.Version, nil
}

// Validate re-checks the embedded fixture. Used by the validate command.
func Validate() error {
	_, err := load()
	return err
}
