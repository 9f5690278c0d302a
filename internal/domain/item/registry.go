package item

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownTemplate is returned when a template name is not registered.
var ErrUnknownTemplate = errors.New("unknown item template")

// BoxTest is the built-in test item.
var BoxTest = Template{
	Name:              "BoxTest",
	PickupName:        "a test box",
	ShapeFile:         "~/data/shapes/test/newBox2.dts",
	DynamicReflection: false,
}

// Registry contains all known templates keyed by name.
type Registry struct {
	templates map[string]*Template
}

// NewRegistry creates a registry holding the built-in templates.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[string]*Template)}
	box := BoxTest
	r.templates[box.Name] = &box
	return r
}

// Register adds or replaces a template.
func (r *Registry) Register(t Template) error {
	if t.Name == "" {
		return errors.New("template name is required")
	}
	if t.MaxInventory != nil && *t.MaxInventory < 0 {
		return fmt.Errorf("template %s: max_inventory must not be negative", t.Name)
	}
	r.templates[t.Name] = &t
	return nil
}

// Get returns the template for name.
func (r *Registry) Get(name string) (*Template, error) {
	t, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return t, nil
}

// Names returns the registered template names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadYAML registers every template in a YAML document of the form
// `templates: [{name: ..., max_inventory: ...}, ...]`.
func (r *Registry) LoadYAML(raw []byte) error {
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("templates yaml: %w", err)
	}
	for _, t := range doc.Templates {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
