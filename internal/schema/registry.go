package schema

import (
	"fmt"
	"os"
	"time"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"

	"github.com/vellumcms/vellum-backend/internal/types"
)

// Registry is the full set of record types the engine serves. It is built
// once at startup and passed by reference into the service layer.
type Registry struct {
	defs  map[string]*TypeDef
	order []string
}

type schemaFile struct {
	Types []rawTypeDef `yaml:"types"`
}

type rawTypeDef struct {
	Name   string        `yaml:"name"`
	Kind   Kind          `yaml:"kind"`
	Labels Labels        `yaml:"labels"`
	Fields []rawFieldDef `yaml:"fields"`
}

type rawFieldDef struct {
	Name     string          `yaml:"name"`
	Label    string          `yaml:"label"`
	Type     types.ValueKind `yaml:"type"`
	Required bool            `yaml:"required"`
	Unique   bool            `yaml:"unique"`
	Default  interface{}     `yaml:"default"`
}

// Load reads a schema file from disk.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(data)
}

// Parse builds and checks a registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}
	if len(file.Types) == 0 {
		return nil, fmt.Errorf("schema file declares no types")
	}

	reg := &Registry{defs: map[string]*TypeDef{}}
	for _, raw := range file.Types {
		def, err := buildTypeDef(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := reg.defs[def.Name]; dup {
			return nil, fmt.Errorf("type %q declared twice", def.Name)
		}
		reg.defs[def.Name] = def
		reg.order = append(reg.order, def.Name)
	}
	return reg, nil
}

func buildTypeDef(raw rawTypeDef) (*TypeDef, error) {
	if raw.Name == "" {
		return nil, fmt.Errorf("type with no name")
	}
	def := &TypeDef{
		Name:   raw.Name,
		Kind:   raw.Kind,
		Labels: raw.Labels,
	}
	switch def.Kind {
	case "":
		def.Kind = KindList
	case KindList, KindItem:
	default:
		return nil, fmt.Errorf("type %q: unknown kind %q", raw.Name, raw.Kind)
	}
	if def.Labels.Singular == "" {
		def.Labels.Singular = raw.Name
	}
	if def.Labels.Plural == "" {
		def.Labels.Plural = inflection.Plural(def.Labels.Singular)
	}

	seen := map[string]bool{}
	for _, rf := range raw.Fields {
		fd, err := buildFieldDef(raw.Name, rf)
		if err != nil {
			return nil, err
		}
		if seen[fd.Name] {
			return nil, fmt.Errorf("type %q: field %q declared twice", raw.Name, fd.Name)
		}
		seen[fd.Name] = true
		def.Fields = append(def.Fields, fd)
	}
	if len(def.Fields) == 0 {
		return nil, fmt.Errorf("type %q declares no fields", raw.Name)
	}
	return def, nil
}

// id and meta belong to the envelope, never to the user-defined shape.
var reservedFieldNames = map[string]bool{"id": true, "meta": true}

func buildFieldDef(typeName string, raw rawFieldDef) (FieldDef, error) {
	if raw.Name == "" {
		return FieldDef{}, fmt.Errorf("type %q: field with no name", typeName)
	}
	if reservedFieldNames[raw.Name] {
		return FieldDef{}, fmt.Errorf("type %q: field name %q is reserved", typeName, raw.Name)
	}
	fd := FieldDef{
		Name:     raw.Name,
		Label:    raw.Label,
		Type:     raw.Type,
		Required: raw.Required,
		Unique:   raw.Unique,
	}
	if fd.Label == "" {
		fd.Label = fd.Name
	}
	switch fd.Type {
	case types.KindString, types.KindNumber, types.KindBool, types.KindTime, types.KindRef, types.KindList:
	default:
		return FieldDef{}, fmt.Errorf("type %q: field %q has unknown type %q", typeName, raw.Name, raw.Type)
	}
	if fd.Unique {
		switch fd.Type {
		case types.KindString, types.KindNumber, types.KindBool:
		default:
			return FieldDef{}, fmt.Errorf("type %q: field %q: unique is only supported on scalar fields", typeName, raw.Name)
		}
	}
	if raw.Default != nil {
		v, err := valueFromYAML(raw.Default)
		if err != nil {
			return FieldDef{}, fmt.Errorf("type %q: field %q: %w", typeName, raw.Name, err)
		}
		if v.Kind != fd.Type {
			return FieldDef{}, fmt.Errorf("type %q: field %q: default is %s, field is %s", typeName, raw.Name, v.Kind, fd.Type)
		}
		fd.Default = &v
	}
	return fd, nil
}

func valueFromYAML(raw interface{}) (types.Value, error) {
	switch t := raw.(type) {
	case string:
		return types.StringValue(t), nil
	case int:
		return types.NumberValue(float64(t)), nil
	case int64:
		return types.NumberValue(float64(t)), nil
	case float64:
		return types.NumberValue(t), nil
	case bool:
		return types.BoolValue(t), nil
	case time.Time:
		return types.TimeValue(t), nil
	case []interface{}:
		list := make([]types.Value, 0, len(t))
		for _, el := range t {
			v, err := valueFromYAML(el)
			if err != nil {
				return types.Value{}, err
			}
			list = append(list, v)
		}
		return types.ListValue(list...), nil
	}
	return types.Value{}, fmt.Errorf("unsupported default value %v (%T)", raw, raw)
}

func (r *Registry) Type(name string) (*TypeDef, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Types returns definitions in declaration order.
func (r *Registry) Types() []*TypeDef {
	out := make([]*TypeDef, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}
