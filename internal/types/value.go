package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindTime   ValueKind = "time"
	KindRef    ValueKind = "ref"
	KindList   ValueKind = "list"
)

// Value is one field of a record payload. Exactly one of the payload
// members is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
	Ref  uuid.UUID
	List []Value
}

func StringValue(s string) Value      { return Value{Kind: KindString, Str: s} }
func NumberValue(n float64) Value     { return Value{Kind: KindNumber, Num: n} }
func BoolValue(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func TimeValue(t time.Time) Value     { return Value{Kind: KindTime, Time: t} }
func RefValue(id uuid.UUID) Value     { return Value{Kind: KindRef, Ref: id} }
func ListValue(vs ...Value) Value     { return Value{Kind: KindList, List: vs} }

// Equal is deep value equality. A changed list compares element by element.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindNumber:
		return v.Num == o.Num
	case KindBool:
		return v.Bool == o.Bool
	case KindTime:
		return v.Time.Equal(o.Time)
	case KindRef:
		return v.Ref == o.Ref
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// IsZero reports whether the value is the empty value for its kind.
// Required-field validation treats zero values as absent.
func (v Value) IsZero() bool {
	switch v.Kind {
	case KindString:
		return v.Str == ""
	case KindNumber, KindBool:
		return false
	case KindTime:
		return v.Time.IsZero()
	case KindRef:
		return v.Ref == uuid.Nil
	case KindList:
		return len(v.List) == 0
	}
	return true
}

// Native returns the value as the plain Go type the sql JSON operators
// understand. Only scalar kinds are queryable.
func (v Value) Native() interface{} {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindTime:
		return v.Time.UTC().Format(time.RFC3339Nano)
	case KindRef:
		return v.Ref.String()
	}
	return nil
}

// Times and references need a marker to survive the JSON round trip;
// everything else is stored as the native JSON type.
const (
	dateMarker = "$date"
	refMarker  = "$ref"
)

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindTime:
		return json.Marshal(map[string]string{dateMarker: v.Time.UTC().Format(time.RFC3339Nano)})
	case KindRef:
		return json.Marshal(map[string]string{refMarker: v.Ref.String()})
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return nil, fmt.Errorf("cannot marshal value of kind %q", v.Kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := valueFromRaw(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func valueFromRaw(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case string:
		return StringValue(t), nil
	case float64:
		return NumberValue(t), nil
	case bool:
		return BoolValue(t), nil
	case []interface{}:
		list := make([]Value, 0, len(t))
		for _, el := range t {
			v, err := valueFromRaw(el)
			if err != nil {
				return Value{}, err
			}
			list = append(list, v)
		}
		return Value{Kind: KindList, List: list}, nil
	case map[string]interface{}:
		if len(t) == 1 {
			if s, ok := t[dateMarker].(string); ok {
				ts, err := time.Parse(time.RFC3339Nano, s)
				if err != nil {
					return Value{}, fmt.Errorf("bad %s value %q: %w", dateMarker, s, err)
				}
				return TimeValue(ts), nil
			}
			if s, ok := t[refMarker].(string); ok {
				id, err := uuid.Parse(s)
				if err != nil {
					return Value{}, fmt.Errorf("bad %s value %q: %w", refMarker, s, err)
				}
				return RefValue(id), nil
			}
		}
		return Value{}, fmt.Errorf("unsupported object value %v", t)
	}
	return Value{}, fmt.Errorf("unsupported value %v (%T)", raw, raw)
}

// Fields is a record payload: user-defined field name to value.
type Fields map[string]Value

func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// SortedKeys gives stable iteration order for diffing and tests.
func (f Fields) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
