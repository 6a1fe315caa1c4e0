// Package diff computes and replays field-level change-sets between record
// payloads. A change-set captures the transition AWAY from a version: for
// every top-level field of the old payload whose value differs in the new
// payload, the OLD value is recorded. Replaying a change-set therefore
// steps a snapshot exactly one version backward.
package diff

import (
	"github.com/vellumcms/vellum-backend/internal/types"
)

// Build compares two payloads top-level field by field and records the old
// value of every field that changed or disappeared. Fields introduced by
// the new payload are not recorded; the field set of a record type is fixed
// by its schema, so a mutation can only change values, never grow the set
// retroactively. Output is sorted by field name.
func Build(old, new types.Fields) types.ChangeSet {
	cs := types.ChangeSet{}
	for _, field := range old.SortedKeys() {
		oldValue := old[field]
		newValue, ok := new[field]
		if ok && oldValue.Equal(newValue) {
			continue
		}
		cs = append(cs, types.FieldChange{Field: field, OldValue: oldValue})
	}
	return cs
}

// Apply overwrites each changed field with its recorded old value,
// producing a new payload one version older. The input is not mutated.
// Reconstructing version N from version N+k requires applying the k
// change-sets between them, newest first.
func Apply(fields types.Fields, cs types.ChangeSet) types.Fields {
	out := fields.Clone()
	for _, change := range cs {
		out[change.Field] = change.OldValue
	}
	return out
}
