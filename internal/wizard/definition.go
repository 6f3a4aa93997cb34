// Package wizard implements the multi-phase form engine shared by the signup,
// agent registration and recalculation flows.
package wizard

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"finitefield.org/agricred-web/internal/mapping"
)

//go:embed forms/*.yaml
var formFiles embed.FS

// Flow names of the embedded definitions.
const (
	FarmerSignup      = "farmer-signup"
	AgentRegistration = "agent-registration"
	Recalculate       = "recalculate"
)

// Kind selects how a field is rendered and validated.
type Kind string

const (
	KindText     Kind = "text"
	KindEmail    Kind = "email"
	KindPassword Kind = "password"
	KindNumber   Kind = "number"
	KindSelect   Kind = "select"
	KindCheckbox Kind = "checkbox"
	KindDate     Kind = "date"
	KindTel      Kind = "tel"
	KindTextarea Kind = "textarea"
)

func (k Kind) valid() bool {
	switch k {
	case KindText, KindEmail, KindPassword, KindNumber, KindSelect, KindCheckbox, KindDate, KindTel, KindTextarea:
		return true
	}
	return false
}

// Rule names used as keys of Field.Messages.
const (
	RuleRequired  = "required"
	RuleNumber    = "number"
	RuleMin       = "min"
	RuleMinLength = "minLength"
	RuleMatches   = "matches"
	RuleFormat    = "format"
	RuleOption    = "option"
)

// Field describes one input of a phase.
type Field struct {
	Name        string            `yaml:"name"`
	Label       string            `yaml:"label"`
	Kind        Kind              `yaml:"kind"`
	Placeholder string            `yaml:"placeholder,omitempty"`
	Hint        string            `yaml:"hint,omitempty"`
	Required    bool              `yaml:"required,omitempty"`
	Min         *float64          `yaml:"min,omitempty"`
	MinLength   int               `yaml:"minLength,omitempty"`
	Matches     string            `yaml:"matches,omitempty"`
	Category    string            `yaml:"category,omitempty"`
	Options     []string          `yaml:"options,omitempty"`
	Display     map[string]string `yaml:"display,omitempty"`
	Messages    map[string]string `yaml:"messages,omitempty"`
}

// Option is a rendered select choice.
type Option struct {
	Value string
	Text  string
}

// Numeric reports whether the field carries a number.
func (f Field) Numeric() bool {
	return f.Kind == KindNumber
}

// Choices lists the allowed values of a select field. Categorical fields take
// their options from the mapping table in code order.
func (f Field) Choices() []Option {
	values := f.Options
	if f.Category != "" {
		values = mapping.Labels(f.Category)
	}
	out := make([]Option, 0, len(values))
	for _, v := range values {
		text := v
		if d, ok := f.Display[v]; ok {
			text = d
		}
		out = append(out, Option{Value: v, Text: text})
	}
	return out
}

// DisplayValue returns the user-facing text for a stored value.
func (f Field) DisplayValue(value string) string {
	if d, ok := f.Display[value]; ok {
		return d
	}
	return value
}

func (f Field) message(rule, fallback string) string {
	if msg := strings.TrimSpace(f.Messages[rule]); msg != "" {
		return msg
	}
	return fallback
}

// Phase is one step of a wizard.
type Phase struct {
	Key         string  `yaml:"key"`
	Title       string  `yaml:"title"`
	Description string  `yaml:"description,omitempty"`
	Note        string  `yaml:"note,omitempty"`
	Review      bool    `yaml:"review,omitempty"`
	Fields      []Field `yaml:"fields"`
}

// Definition is the declarative shape of a wizard.
type Definition struct {
	Name        string  `yaml:"name"`
	Title       string  `yaml:"title"`
	SubmitLabel string  `yaml:"submitLabel,omitempty"`
	Phases      []Phase `yaml:"phases"`

	index map[string]Field
}

// Len returns the number of phases.
func (d *Definition) Len() int {
	return len(d.Phases)
}

// Phase returns the 1-based phase n.
func (d *Definition) Phase(n int) (Phase, bool) {
	if n < 1 || n > len(d.Phases) {
		return Phase{}, false
	}
	return d.Phases[n-1], true
}

// Field looks up a field by name across all phases.
func (d *Definition) Field(name string) (Field, bool) {
	f, ok := d.index[name]
	return f, ok
}

// Fields returns every field in declaration order.
func (d *Definition) Fields() []Field {
	var out []Field
	for _, p := range d.Phases {
		out = append(out, p.Fields...)
	}
	return out
}

// ErrUnknownDefinition is returned by Load for names without an embedded file.
var ErrUnknownDefinition = errors.New("wizard: unknown definition")

// Parse decodes and checks a YAML definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("wizard: decode definition: %w", err)
	}
	if err := def.init(); err != nil {
		return nil, err
	}
	return &def, nil
}

func (d *Definition) init() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("wizard: definition name is required")
	}
	if len(d.Phases) == 0 {
		return fmt.Errorf("wizard: %s has no phases", d.Name)
	}
	if d.SubmitLabel == "" {
		d.SubmitLabel = "Submit"
	}
	d.index = make(map[string]Field)
	for i, p := range d.Phases {
		if len(p.Fields) == 0 {
			return fmt.Errorf("wizard: %s phase %d has no fields", d.Name, i+1)
		}
		if p.Key == "" {
			d.Phases[i].Key = fmt.Sprintf("phase-%d", i+1)
		}
		for _, f := range p.Fields {
			if f.Name == "" {
				return fmt.Errorf("wizard: %s phase %d has an unnamed field", d.Name, i+1)
			}
			if _, dup := d.index[f.Name]; dup {
				return fmt.Errorf("wizard: %s declares %q twice", d.Name, f.Name)
			}
			if f.Kind == "" {
				return fmt.Errorf("wizard: %s field %q has no kind", d.Name, f.Name)
			}
			if !f.Kind.valid() {
				return fmt.Errorf("wizard: %s field %q has unknown kind %q", d.Name, f.Name, f.Kind)
			}
			if f.Category != "" && !mapping.Has(f.Category) {
				return fmt.Errorf("wizard: %s field %q references unknown category %q", d.Name, f.Name, f.Category)
			}
			if f.Kind == KindSelect && f.Category == "" && len(f.Options) == 0 {
				return fmt.Errorf("wizard: %s select %q has no options", d.Name, f.Name)
			}
			d.index[f.Name] = f
		}
	}
	for _, f := range d.index {
		if f.Matches == "" {
			continue
		}
		if _, ok := d.index[f.Matches]; !ok {
			return fmt.Errorf("wizard: %s field %q matches unknown field %q", d.Name, f.Name, f.Matches)
		}
	}
	return nil
}

// Load returns the embedded definition with the given name.
func Load(name string) (*Definition, error) {
	data, err := formFiles.ReadFile(path.Join("forms", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, name)
	}
	return Parse(data)
}

// LoadAll parses every embedded definition keyed by name.
func LoadAll() (map[string]*Definition, error) {
	entries, err := formFiles.ReadDir("forms")
	if err != nil {
		return nil, fmt.Errorf("wizard: list definitions: %w", err)
	}
	out := make(map[string]*Definition, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		def, err := Load(name)
		if err != nil {
			return nil, err
		}
		if def.Name != name {
			return nil, fmt.Errorf("wizard: %s declares name %q", entry.Name(), def.Name)
		}
		out[name] = def
	}
	return out, nil
}
