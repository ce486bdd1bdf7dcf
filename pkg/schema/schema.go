package schema

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/attrbus/attrbus-go/pkg/model"
)

// Schema describes the attributes of a kind of model.
type Schema struct {
	// Name identifies the schema.
	Name string `yaml:"name"`

	// URLRoot is the base address of models using this schema.
	URLRoot string `yaml:"urlRoot"`

	// IDAttribute overrides the identity attribute name.
	IDAttribute string `yaml:"idAttribute"`

	// Strict rejects attributes that are not declared.
	Strict bool `yaml:"strict"`

	// Attributes declares the known attributes.
	Attributes []Attribute `yaml:"attributes"`

	index map[string]*Attribute
}

// Parse parses a schema from YAML bytes.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("schema missing name")
	}
	if err := s.buildIndex(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load loads and parses a schema from a file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

func (s *Schema) buildIndex() error {
	s.index = make(map[string]*Attribute, len(s.Attributes))
	for i := range s.Attributes {
		a := &s.Attributes[i]
		if a.Name == "" {
			return fmt.Errorf("schema %s: attribute %d missing name", s.Name, i)
		}
		if _, dup := s.index[a.Name]; dup {
			return fmt.Errorf("schema %s: duplicate attribute %q", s.Name, a.Name)
		}
		if a.Default != nil {
			if err := a.Check(a.Default, true); err != nil {
				return fmt.Errorf("schema %s: default: %w", s.Name, err)
			}
		}
		s.index[a.Name] = a
	}
	return nil
}

// Attribute returns the declaration for name.
func (s *Schema) Attribute(name string) (*Attribute, bool) {
	if s.index == nil {
		_ = s.buildIndex()
	}
	a, ok := s.index[name]
	return a, ok
}

// Defaults returns the declared default values.
func (s *Schema) Defaults() map[string]any {
	defaults := make(map[string]any)
	for _, a := range s.Attributes {
		if a.Default != nil {
			defaults[a.Name] = a.Default
		}
	}
	return defaults
}

// Check validates a complete attribute set. All violations are reported.
func (s *Schema) Check(attrs map[string]any) error {
	var errs []error
	for _, a := range s.Attributes {
		v, present := attrs[a.Name]
		if err := a.Check(v, present); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Strict {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, key := range keys {
			if key == s.idAttribute() {
				continue
			}
			if _, ok := s.Attribute(key); !ok {
				errs = append(errs, fmt.Errorf("%s: %w", key, ErrUnknownAttribute))
			}
		}
	}
	return errors.Join(errs...)
}

// Validator returns a model validation gate backed by Check.
func (s *Schema) Validator() model.Validator {
	return func(attrs map[string]any, _ model.SetOptions) error {
		return s.Check(attrs)
	}
}

// Options returns the model options that apply this schema.
func (s *Schema) Options() []model.Option {
	opts := []model.Option{
		model.WithDefaults(s.Defaults()),
		model.WithValidator(s.Validator()),
	}
	if s.IDAttribute != "" {
		opts = append(opts, model.WithIDAttribute(s.IDAttribute))
	}
	if s.URLRoot != "" {
		opts = append(opts, model.WithURLRoot(s.URLRoot))
	}
	return opts
}

func (s *Schema) idAttribute() string {
	if s.IDAttribute != "" {
		return s.IDAttribute
	}
	return model.DefaultIDAttribute
}
