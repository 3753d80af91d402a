package types

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeTree_Discriminator(t *testing.T) {
	doc := `{
		"id": "root",
		"combinator": "and",
		"rules": [
			{"id": "r1", "field": "diagnosisCode", "operator": "eq", "value": "A01"},
			{"id": "g1", "combinator": "or", "rules": [
				{"id": "r2", "field": "age", "operator": "between", "value": "1,2"}
			]},
			{"id": "g2", "combinator": "none"}
		]
	}`

	root, err := DecodeTree([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeTree() error = %v, want nil", err)
	}
	if root.ID != "root" || root.Combinator != "and" {
		t.Errorf("root = %+v, want id root combinator and", root)
	}
	if len(root.Rules) != 3 {
		t.Fatalf("len(Rules) = %d, want 3", len(root.Rules))
	}

	if root.Rules[0].IsGroup() {
		t.Errorf("Rules[0] decoded as group, want leaf")
	}
	if got := root.Rules[0].Leaf.Field; got != "diagnosisCode" {
		t.Errorf("Rules[0].Field = %q, want diagnosisCode", got)
	}

	g1 := root.Rules[1]
	if !g1.IsGroup() {
		t.Fatalf("Rules[1] decoded as leaf, want group")
	}
	if len(g1.Group.Rules) != 1 || g1.Group.Rules[0].Leaf.Value != "1,2" {
		t.Errorf("g1 rules = %+v, want single between leaf", g1.Group.Rules)
	}

	g2 := root.Rules[2]
	if !g2.IsGroup() {
		t.Fatalf("Rules[2] (combinator without rules) decoded as leaf, want group")
	}
	if g2.Group.Rules != nil {
		t.Errorf("absent rules = %v, want nil", g2.Group.Rules)
	}
}

func TestDecodeTree_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"empty", ``, ErrInvalidTree},
		{"array root", `[]`, ErrInvalidTree},
		{"null root", `null`, ErrInvalidTree},
		{"null rule", `{"combinator":"and","rules":[null]}`, ErrInvalidTree},
		{"scalar rule", `{"combinator":"and","rules":[1]}`, ErrInvalidTree},
		{"object value", `{"combinator":"and","rules":[{"field":"a","operator":"eq","value":{"x":1}}]}`, ErrInvalidTree},
		{"too deep", nestedDoc(MaxTreeDepth + 1), ErrTreeTooDeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTree([]byte(tt.doc))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeTree() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeTree_MaximumDepthAllowed(t *testing.T) {
	root, err := DecodeTree([]byte(nestedDoc(MaxTreeDepth)))
	if err != nil {
		t.Fatalf("DecodeTree() error = %v, want nil at depth %d", err, MaxTreeDepth)
	}
	if got := Depth(root); got != MaxTreeDepth {
		t.Errorf("Depth() = %d, want %d", got, MaxTreeDepth)
	}
}

// nestedDoc builds a chain of groups depth levels deep.
func nestedDoc(depth int) string {
	var b strings.Builder
	for i := 0; i < depth; i++ {
		b.WriteString(`{"combinator":"and","rules":[`)
	}
	for i := 0; i < depth; i++ {
		b.WriteString(`]}`)
	}
	return b.String()
}

func TestRuleGroup_MarshalEmitsEmptyRules(t *testing.T) {
	data, err := json.Marshal(&RuleGroup{ID: "g", Combinator: CombinatorOr})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"id":"g","combinator":"OR","rules":[]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestRuleLeaf_MarshalOmitsEmptyDataType(t *testing.T) {
	data, err := json.Marshal(LeafRule(RuleLeaf{ID: "r", Field: "age", Operator: "isNotNull"}))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"id":"r","field":"age","operator":"isNotNull","value":""}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestRoundTripPreservesOrder(t *testing.T) {
	root := &RuleGroup{ID: "root", Combinator: CombinatorAnd, Rules: []Rule{
		LeafRule(RuleLeaf{ID: "a", Field: "f", Operator: "eq", Value: "1"}),
		GroupRule(RuleGroup{ID: "g", Combinator: CombinatorNone, Rules: []Rule{}}),
		LeafRule(RuleLeaf{ID: "b", Field: "f", Operator: "eq", Value: "2", DataType: "number"}),
	}}

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	back, err := DecodeTree(data)
	if err != nil {
		t.Fatalf("DecodeTree() error = %v", err)
	}
	if !Equal(root, back) {
		t.Errorf("round trip changed tree: %s", data)
	}
}

func TestEqual_AbsentRulesMatchEmpty(t *testing.T) {
	a := &RuleGroup{ID: "g", Combinator: CombinatorAnd}
	b := &RuleGroup{ID: "g", Combinator: CombinatorAnd, Rules: []Rule{}}
	if !Equal(a, b) {
		t.Error("Equal(nil rules, empty rules) = false, want true")
	}
	if Equal(a, nil) {
		t.Error("Equal(tree, nil) = true, want false")
	}
}

func TestClone_DoesNotAlias(t *testing.T) {
	orig := &RuleGroup{ID: "root", Combinator: CombinatorAnd, Rules: []Rule{
		LeafRule(RuleLeaf{ID: "a", Field: "f", Operator: "eq", Value: "1"}),
	}}
	cp := Clone(orig)
	cp.Rules[0].Leaf.Value = "changed"
	if orig.Rules[0].Leaf.Value != "1" {
		t.Errorf("Clone aliased leaf: original value = %q", orig.Rules[0].Leaf.Value)
	}
}

func TestParseCombinator(t *testing.T) {
	tests := []struct {
		in      string
		want    Combinator
		wantErr bool
	}{
		{"and", CombinatorAnd, false},
		{" Or ", CombinatorOr, false},
		{"NONE", CombinatorNone, false},
		{"xor", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCombinator(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCombinator(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseCombinator(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
