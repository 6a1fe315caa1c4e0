package diff

import (
	"testing"

	"github.com/vellumcms/vellum-backend/internal/types"
)

func TestBuild(t *testing.T) {
	cases := []struct {
		name string
		old  types.Fields
		new  types.Fields
		want types.ChangeSet
	}{
		{
			name: "single_changed_field_records_old_value",
			old:  types.Fields{"name": types.StringValue("A"), "age": types.NumberValue(1)},
			new:  types.Fields{"name": types.StringValue("A"), "age": types.NumberValue(2)},
			want: types.ChangeSet{{Field: "age", OldValue: types.NumberValue(1)}},
		},
		{
			name: "no_change_yields_empty_set",
			old:  types.Fields{"name": types.StringValue("A")},
			new:  types.Fields{"name": types.StringValue("A")},
			want: types.ChangeSet{},
		},
		{
			name: "diff_against_empty_records_every_field",
			old:  types.Fields{"b": types.NumberValue(2), "a": types.NumberValue(1)},
			new:  types.Fields{},
			want: types.ChangeSet{
				{Field: "a", OldValue: types.NumberValue(1)},
				{Field: "b", OldValue: types.NumberValue(2)},
			},
		},
		{
			name: "changed_list_recorded_as_one_change_with_old_list",
			old:  types.Fields{"tags": types.ListValue(types.StringValue("x"), types.StringValue("y"))},
			new:  types.Fields{"tags": types.ListValue(types.StringValue("x"))},
			want: types.ChangeSet{
				{Field: "tags", OldValue: types.ListValue(types.StringValue("x"), types.StringValue("y"))},
			},
		},
		{
			name: "equal_list_not_recorded",
			old:  types.Fields{"tags": types.ListValue(types.StringValue("x"))},
			new:  types.Fields{"tags": types.ListValue(types.StringValue("x"))},
			want: types.ChangeSet{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Build(tc.old, tc.new)
			if len(got) != len(tc.want) {
				t.Fatalf("Build returned %d changes, want %d: %v", len(got), len(tc.want), got)
			}
			for i := range got {
				if got[i].Field != tc.want[i].Field {
					t.Fatalf("change %d is for field %q, want %q", i, got[i].Field, tc.want[i].Field)
				}
				if !got[i].OldValue.Equal(tc.want[i].OldValue) {
					t.Fatalf("change %d old value %v, want %v", i, got[i].OldValue, tc.want[i].OldValue)
				}
			}
		})
	}
}

func TestBuildOrderIsStable(t *testing.T) {
	old := types.Fields{
		"zeta":  types.NumberValue(1),
		"alpha": types.NumberValue(2),
		"mid":   types.NumberValue(3),
	}
	got := Build(old, types.Fields{})
	fields := []string{}
	for _, c := range got {
		fields = append(fields, c.Field)
	}
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("change order %v, want %v", fields, want)
		}
	}
}

func TestApply(t *testing.T) {
	fields := types.Fields{"name": types.StringValue("A"), "age": types.NumberValue(2)}
	cs := types.ChangeSet{{Field: "age", OldValue: types.NumberValue(1)}}

	got := Apply(fields, cs)
	if !got["age"].Equal(types.NumberValue(1)) {
		t.Fatalf("age after apply = %v, want 1", got["age"])
	}
	if !got["name"].Equal(types.StringValue("A")) {
		t.Fatalf("name after apply = %v, want A", got["name"])
	}
	if !fields["age"].Equal(types.NumberValue(2)) {
		t.Fatalf("Apply mutated its input: %v", fields["age"])
	}
}

func TestApplyReplaysStepwise(t *testing.T) {
	// v1 {a:1} -> v2 {a:2} -> v3 {a:3}: replaying both change-sets from v3
	// reconstructs v1.
	v3 := types.Fields{"a": types.NumberValue(3)}
	awayFromV2 := types.ChangeSet{{Field: "a", OldValue: types.NumberValue(2)}}
	awayFromV1 := types.ChangeSet{{Field: "a", OldValue: types.NumberValue(1)}}

	got := Apply(Apply(v3, awayFromV2), awayFromV1)
	if !got["a"].Equal(types.NumberValue(1)) {
		t.Fatalf("a after stepwise replay = %v, want 1", got["a"])
	}
}
