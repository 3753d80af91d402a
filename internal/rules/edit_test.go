// internal/rules/edit_test.go
package rules

import (
	"errors"
	"testing"

	"github.com/solatis/querykeeper/internal/types"
)

func ids(g *types.RuleGroup) []string {
	out := make([]string, len(g.Rules))
	for i, r := range g.Rules {
		out[i] = r.ID()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddRule(t *testing.T) {
	tree := twoLevelTree()

	got, err := AddRule(tree, "g1", types.RuleLeaf{Field: "memberAge", Operator: "eq"})
	if err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}
	g1 := got.Rules[1].Group
	if len(g1.Rules) != 3 {
		t.Fatalf("len(g1.Rules) = %d, want 3", len(g1.Rules))
	}
	if added := g1.Rules[2].Leaf; added.ID == "" || added.Field != "memberAge" {
		t.Errorf("added leaf = %+v, want generated id", added)
	}
	if len(tree.Rules[1].Group.Rules) != 2 {
		t.Error("AddRule mutated its input")
	}

	if _, err := AddRule(tree, "r1", types.RuleLeaf{}); !errors.Is(err, types.ErrGroupNotFound) {
		t.Errorf("AddRule(leaf parent) error = %v, want ErrGroupNotFound", err)
	}
	if _, err := AddRule(tree, "missing", types.RuleLeaf{}); !errors.Is(err, types.ErrGroupNotFound) {
		t.Errorf("AddRule(missing) error = %v, want ErrGroupNotFound", err)
	}
}

func TestAddGroup(t *testing.T) {
	got, err := AddGroup(twoLevelTree(), "root", types.RuleGroup{})
	if err != nil {
		t.Fatalf("AddGroup() error = %v", err)
	}
	added := got.Rules[3].Group
	if added.ID == "" || added.Combinator != types.CombinatorAnd || added.Rules == nil {
		t.Errorf("added group = %+v, want id, AND, empty rules", added)
	}
}

func TestAddRule_ToGroupWithAbsentRules(t *testing.T) {
	tree := root(types.Rule{Group: &types.RuleGroup{ID: "g1", Combinator: types.CombinatorOr}})
	got, err := AddRule(tree, "g1", types.RuleLeaf{ID: "x", Field: "memberAge"})
	if err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}
	if !equalStrings(ids(got.Rules[0].Group), []string{"x"}) {
		t.Errorf("g1 rules = %v", ids(got.Rules[0].Group))
	}
}

func TestRemove(t *testing.T) {
	tree := twoLevelTree()

	got, err := Remove(tree, "g1")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if !equalStrings(ids(got), []string{"r1", "g2"}) {
		t.Errorf("root rules = %v, want [r1 g2]", ids(got))
	}

	got, err = Remove(tree, "r3")
	if err != nil {
		t.Fatalf("Remove(r3) error = %v", err)
	}
	if !equalStrings(ids(got.Rules[1].Group), []string{"r2"}) {
		t.Errorf("g1 rules = %v, want [r2]", ids(got.Rules[1].Group))
	}
	if !equalStrings(ids(tree.Rules[1].Group), []string{"r2", "r3"}) {
		t.Error("Remove mutated its input")
	}

	if _, err := Remove(tree, "root"); !errors.Is(err, types.ErrRootImmutable) {
		t.Errorf("Remove(root) error = %v, want ErrRootImmutable", err)
	}
	if _, err := Remove(tree, "missing"); !errors.Is(err, types.ErrNodeNotFound) {
		t.Errorf("Remove(missing) error = %v, want ErrNodeNotFound", err)
	}
}

func TestShift(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		delta int
		want  []string
	}{
		{"down one", "r1", 1, []string{"g1", "r1", "g2"}},
		{"up one", "g2", -1, []string{"r1", "g2", "g1"}},
		{"clamped at top", "r1", -5, []string{"r1", "g1", "g2"}},
		{"clamped at bottom", "r1", 10, []string{"g1", "g2", "r1"}},
		{"to top", "g2", -2, []string{"g2", "r1", "g1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Shift(twoLevelTree(), tt.id, tt.delta)
			if err != nil {
				t.Fatalf("Shift() error = %v", err)
			}
			if !equalStrings(ids(got), tt.want) {
				t.Errorf("Shift() order = %v, want %v", ids(got), tt.want)
			}
		})
	}

	if _, err := Shift(twoLevelTree(), "root", 1); !errors.Is(err, types.ErrRootImmutable) {
		t.Errorf("Shift(root) error = %v, want ErrRootImmutable", err)
	}
}

func TestUpdateLeaf(t *testing.T) {
	value := "B02"
	op := "isInList"
	got, err := UpdateLeaf(twoLevelTree(), "r1", LeafPatch{Operator: &op, Value: &value})
	if err != nil {
		t.Fatalf("UpdateLeaf() error = %v", err)
	}
	want := types.RuleLeaf{ID: "r1", Field: "diagnosisCode", Operator: "isInList", Value: "B02"}
	if *got.Rules[0].Leaf != want {
		t.Errorf("leaf = %+v, want %+v", *got.Rules[0].Leaf, want)
	}

	if _, err := UpdateLeaf(twoLevelTree(), "g1", LeafPatch{Value: &value}); !errors.Is(err, types.ErrNotALeaf) {
		t.Errorf("UpdateLeaf(group) error = %v, want ErrNotALeaf", err)
	}
	if _, err := UpdateLeaf(twoLevelTree(), "missing", LeafPatch{}); !errors.Is(err, types.ErrNodeNotFound) {
		t.Errorf("UpdateLeaf(missing) error = %v, want ErrNodeNotFound", err)
	}
}

func TestUpdateLeaf_EmptyRule(t *testing.T) {
	tree := &types.RuleGroup{ID: "root", Combinator: "and", Rules: []types.Rule{{}}}
	value := "x"

	_, err := UpdateLeaf(tree, "", LeafPatch{Value: &value})
	if !errors.Is(err, types.ErrNotALeaf) {
		t.Errorf("UpdateLeaf(empty rule) error = %v, want ErrNotALeaf", err)
	}
}

func TestEnsureIDs(t *testing.T) {
	tree := &types.RuleGroup{Combinator: "and", Rules: []types.Rule{
		types.LeafRule(types.RuleLeaf{Field: "memberAge", Operator: "eq", Value: "1"}),
		types.GroupRule(types.RuleGroup{Combinator: "or", Rules: []types.Rule{
			types.LeafRule(types.RuleLeaf{ID: "keep", Field: "memberAge"}),
		}}),
	}}

	got := EnsureIDs(tree)
	if got.ID != types.RootID {
		t.Errorf("root id = %q, want %q", got.ID, types.RootID)
	}
	if got.Rules[0].Leaf.ID == "" || got.Rules[1].Group.ID == "" {
		t.Error("missing ids not filled")
	}
	if got.Rules[1].Group.Rules[0].Leaf.ID != "keep" {
		t.Error("existing id replaced")
	}
	if tree.ID != "" || tree.Rules[0].Leaf.ID != "" {
		t.Error("EnsureIDs mutated its input")
	}
}
