// Package schema holds the data-driven record-type descriptors: field
// shape, required-ness, uniqueness and defaults, declared once in a YAML
// file and interpreted uniformly by the draft store's validation step.
package schema

import (
	"fmt"

	"github.com/vellumcms/vellum-backend/internal/platform/cmserr"
	"github.com/vellumcms/vellum-backend/internal/types"
)

type Kind string

const (
	// KindList types store many rows, each addressed by id.
	KindList Kind = "list"
	// KindItem types store exactly one row, addressed by the type name.
	KindItem Kind = "item"
)

type Labels struct {
	Singular string `yaml:"singular"`
	Plural   string `yaml:"plural"`
}

type FieldDef struct {
	Name     string          `yaml:"name"`
	Label    string          `yaml:"label"`
	Type     types.ValueKind `yaml:"type"`
	Required bool            `yaml:"required"`
	Unique   bool            `yaml:"unique"`

	// Default is filled by the loader from the YAML "default" key.
	Default *types.Value `yaml:"-"`
}

type TypeDef struct {
	Name   string     `yaml:"name"`
	Kind   Kind       `yaml:"kind"`
	Labels Labels     `yaml:"labels"`
	Fields []FieldDef `yaml:"fields"`
}

func (t *TypeDef) Field(name string) *FieldDef {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// ApplyDefaults returns the payload with every unset field that declares a
// default filled in. The input is not mutated.
func (t *TypeDef) ApplyDefaults(fields types.Fields) types.Fields {
	out := fields.Clone()
	for i := range t.Fields {
		def := &t.Fields[i]
		if def.Default == nil {
			continue
		}
		if _, ok := out[def.Name]; !ok {
			out[def.Name] = *def.Default
		}
	}
	return out
}

// Validate checks a full payload against the type shape: no unknown
// fields, kinds match, required fields present and non-zero.
func (t *TypeDef) Validate(fields types.Fields) error {
	for _, name := range fields.SortedKeys() {
		def := t.Field(name)
		if def == nil {
			return cmserr.Validation(t.Name, name, "is not declared for this type")
		}
		if fields[name].Kind != def.Type {
			return cmserr.Validation(t.Name, name,
				fmt.Sprintf("must be of type %s, got %s", def.Type, fields[name].Kind))
		}
	}
	for i := range t.Fields {
		def := &t.Fields[i]
		if !def.Required {
			continue
		}
		v, ok := fields[def.Name]
		if !ok || v.IsZero() {
			return cmserr.Validation(t.Name, def.Name, "is required")
		}
	}
	return nil
}

// UniqueFields lists the field definitions carrying a uniqueness
// constraint.
func (t *TypeDef) UniqueFields() []FieldDef {
	var out []FieldDef
	for _, f := range t.Fields {
		if f.Unique {
			out = append(out, f)
		}
	}
	return out
}
