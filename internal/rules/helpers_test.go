package rules

import (
	"fmt"
	"math/rand"

	"github.com/solatis/querykeeper/internal/types"
)

// fakeFields is a synthetic registry for engine tests.
type fakeFields map[string]types.FieldConfig

func (f fakeFields) Lookup(name string) (types.FieldConfig, bool) {
	fc, ok := f[name]
	return fc, ok
}

var testFields = fakeFields{
	"diagnosisCode": {Name: "diagnosisCode", Label: "Diagnosis Code", Datatype: "string"},
	"memberAge":     {Name: "memberAge", Label: "Member Age", Datatype: "number", InputType: "number"},
	"serviceDate":   {Name: "serviceDate", Label: "Service Date", Datatype: "date"},
}

func leaf(id, field, op, value string) types.Rule {
	return types.LeafRule(types.RuleLeaf{ID: id, Field: field, Operator: op, Value: value})
}

func group(id string, c types.Combinator, rules ...types.Rule) types.Rule {
	if rules == nil {
		rules = []types.Rule{}
	}
	return types.GroupRule(types.RuleGroup{ID: id, Combinator: c, Rules: rules})
}

func root(rules ...types.Rule) *types.RuleGroup {
	if rules == nil {
		rules = []types.Rule{}
	}
	return &types.RuleGroup{ID: "root", Combinator: types.CombinatorAnd, Rules: rules}
}

var (
	genFields    = []string{"diagnosisCode", "memberAge", "serviceDate", "unknownField", ""}
	genOperators = []string{"eq", "between", "isInList", "isValidCode", "isNotNull", ">"}
	genValues    = []string{"", "A01", "1,2", "1, ", " ,2", "dropDown1", "18"}
)

// randomTree builds a deterministic pseudo-random tree with unique ids.
func randomTree(seed int64) *types.RuleGroup {
	rng := rand.New(rand.NewSource(seed))
	counter := 0
	var build func(depth int) []types.Rule
	build = func(depth int) []types.Rule {
		n := rng.Intn(4)
		rules := make([]types.Rule, 0, n)
		for i := 0; i < n; i++ {
			counter++
			if depth < 4 && rng.Intn(3) == 0 {
				rules = append(rules, types.GroupRule(types.RuleGroup{
					ID:         fmt.Sprintf("g%d", counter),
					Combinator: types.Combinators[rng.Intn(len(types.Combinators))],
					Rules:      build(depth + 1),
				}))
				continue
			}
			rules = append(rules, types.LeafRule(types.RuleLeaf{
				ID:       fmt.Sprintf("r%d", counter),
				Field:    genFields[rng.Intn(len(genFields))],
				Operator: genOperators[rng.Intn(len(genOperators))],
				Value:    genValues[rng.Intn(len(genValues))],
			}))
		}
		return rules
	}
	return &types.RuleGroup{ID: "root", Combinator: types.CombinatorAnd, Rules: build(1)}
}

// shape lists (path, id, kind, child count) for every node.
func shape(tree *types.RuleGroup) []string {
	out := []string{fmt.Sprintf("[] %s group %d", tree.ID, len(tree.Rules))}
	Walk(tree, func(path []int, r types.Rule) bool {
		if r.IsGroup() {
			out = append(out, fmt.Sprintf("%v %s group %d", path, r.Group.ID, len(r.Group.Rules)))
		} else {
			out = append(out, fmt.Sprintf("%v %s leaf", path, r.Leaf.ID))
		}
		return true
	})
	return out
}
