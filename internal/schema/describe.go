package schema

import "fmt"

// FieldInfo is the UI-facing description of one field. The id and meta
// envelope never appears here.
type FieldInfo struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Default  string `json:"default"`
}

// Info is the UI-facing description of a record type.
type Info struct {
	Name   string      `json:"name"`
	Labels Labels      `json:"labels"`
	Fields []FieldInfo `json:"fields"`
}

func (t *TypeDef) Describe() Info {
	info := Info{
		Name:   t.Name,
		Labels: t.Labels,
		Fields: make([]FieldInfo, 0, len(t.Fields)),
	}
	for _, f := range t.Fields {
		fi := FieldInfo{
			Name:     f.Name,
			Label:    f.Label,
			Type:     string(f.Type),
			Required: f.Required,
		}
		if f.Default != nil {
			if native := f.Default.Native(); native != nil {
				fi.Default = fmt.Sprintf("%v", native)
			}
		}
		info.Fields = append(info.Fields, fi)
	}
	return info
}
