// internal/rules/validate_test.go
package rules

import (
	"errors"
	"reflect"
	"testing"

	"github.com/solatis/querykeeper/internal/types"
)

func TestIsComplete(t *testing.T) {
	tests := []struct {
		name string
		tree *types.RuleGroup
		want bool
	}{
		{
			name: "empty root is vacuously complete",
			tree: root(),
			want: true,
		},
		{
			name: "leaf with value",
			tree: root(leaf("r1", "diagnosisCode", "eq", "A01")),
			want: true,
		},
		{
			name: "leaf with empty value",
			tree: root(leaf("r1", "diagnosisCode", "eq", "")),
			want: false,
		},
		{
			name: "isValidCode needs no value",
			tree: root(leaf("r1", "diagnosisCode", "isValidCode", "")),
			want: true,
		},
		{
			name: "isNotNull needs no value",
			tree: root(leaf("r1", "serviceDate", "isNotNull", "")),
			want: true,
		},
		{
			name: "between complete",
			tree: root(leaf("r1", "memberAge", "between", "1,2")),
			want: true,
		},
		{
			name: "between blank second segment",
			tree: root(leaf("r1", "memberAge", "between", "1, ")),
			want: false,
		},
		{
			name: "between blank first segment",
			tree: root(leaf("r1", "memberAge", "between", " ,2")),
			want: false,
		},
		{
			name: "between single value has no blank segment",
			tree: root(leaf("r1", "memberAge", "between", "5")),
			want: true,
		},
		{
			name: "empty subgroup fails",
			tree: root(leaf("r1", "diagnosisCode", "eq", "A01"), group("g1", types.CombinatorOr)),
			want: false,
		},
		{
			name: "absent subgroup rules fail",
			tree: root(types.Rule{Group: &types.RuleGroup{ID: "g1", Combinator: types.CombinatorOr}}),
			want: false,
		},
		{
			name: "deep incomplete leaf invalidates whole tree",
			tree: root(
				leaf("r1", "diagnosisCode", "eq", "A01"),
				group("g1", types.CombinatorOr,
					group("g2", types.CombinatorAnd, leaf("r2", "memberAge", "eq", "")),
				),
			),
			want: false,
		},
		{
			name: "nested complete",
			tree: root(
				group("g1", types.CombinatorOr,
					leaf("r1", "memberAge", "between", "18,65"),
					group("g2", types.CombinatorNone, leaf("r2", "diagnosisCode", "isInList", "dropDown1")),
				),
			),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComplete(tt.tree); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
			if got := len(Inspect(tt.tree)) == 0; got != tt.want {
				t.Errorf("len(Inspect()) == 0 is %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsComplete_DoesNotMutate(t *testing.T) {
	tree := root(group("g1", types.CombinatorOr, leaf("r1", "memberAge", "between", "1, ")))
	before := types.Clone(tree)
	IsComplete(tree)
	Inspect(tree)
	if !types.Equal(tree, before) {
		t.Error("validation mutated its argument")
	}
}

func TestInspect_ReportsLocations(t *testing.T) {
	tree := root(
		leaf("r1", "diagnosisCode", "eq", ""),
		group("g1", types.CombinatorOr,
			leaf("r2", "memberAge", "between", "1,"),
			group("g2", types.CombinatorAnd),
		),
	)

	got := Inspect(tree)
	want := []Issue{
		{NodeID: "r1", Path: []int{0}, Reason: ReasonMissingValue},
		{NodeID: "r2", Path: []int{1, 0}, Reason: ReasonIncompleteRange},
		{NodeID: "g2", Path: []int{1, 1}, Reason: ReasonEmptyGroup},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Inspect() = %+v, want %+v", got, want)
	}
}

func TestCheckSave(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		err := CheckSave(root())
		if !errors.Is(err, types.ErrEmptyQuery) {
			t.Errorf("CheckSave() error = %v, want ErrEmptyQuery", err)
		}
		if err.Error() != "query is empty" {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("nil root is empty", func(t *testing.T) {
		if err := CheckSave(nil); !errors.Is(err, types.ErrEmptyQuery) {
			t.Errorf("CheckSave(nil) error = %v, want ErrEmptyQuery", err)
		}
	})

	t.Run("incomplete fields", func(t *testing.T) {
		err := CheckSave(root(leaf("r1", "diagnosisCode", "eq", "")))
		if !errors.Is(err, types.ErrIncompleteFields) {
			t.Fatalf("CheckSave() error = %v, want ErrIncompleteFields", err)
		}
		if errors.Is(err, types.ErrEmptyQuery) {
			t.Error("incomplete tree reported as empty query")
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("error %T is not *ValidationError", err)
		}
		if len(verr.Issues) != 1 || verr.Issues[0].NodeID != "r1" {
			t.Errorf("Issues = %+v, want r1", verr.Issues)
		}
	})

	t.Run("complete", func(t *testing.T) {
		if err := CheckSave(root(leaf("r1", "diagnosisCode", "eq", "A01"))); err != nil {
			t.Errorf("CheckSave() error = %v, want nil", err)
		}
	})
}
