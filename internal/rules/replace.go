// internal/rules/replace.go
package rules

import "github.com/solatis/querykeeper/internal/types"

/*
 * Identity-addressed subtree replacement.
 *
 * A nested group edited on its own (for example by its combinator
 * selector) reports {id, combinator, rules}. Replace merges that report
 * into the canonical tree by descending until the group with the target
 * id is found:
 *   - match: the group becomes {id, patch.Combinator or AND, patch.Rules or []}
 *     and its previous combinator and rules are discarded
 *   - no match: the group is rebuilt with the same id/combinator and its
 *     children mapped (groups recurse, leaves are copied)
 *
 * Groups with absent rules are treated as empty before descent.
 * When nothing matches, the result is a deep copy equal to the input.
 * A nil tree is replaced by the canonical root before descent.
 */

// GroupPatch is the replacement content for one group.
// Zero values mean "absent": Combinator defaults to AND, Rules to empty.
type GroupPatch struct {
	Combinator types.Combinator
	Rules      []types.Rule
}

// Replace returns a new tree where the group identified by targetID carries
// the patch's combinator and rules. Exactly one group is replaced.
func Replace(tree *types.RuleGroup, targetID string, patch GroupPatch) *types.RuleGroup {
	if tree == nil {
		tree = types.NewRoot()
	}
	replaced := false
	return replaceGroup(tree, targetID, patch, &replaced)
}

func replaceGroup(g *types.RuleGroup, targetID string, patch GroupPatch, replaced *bool) *types.RuleGroup {
	if !*replaced && g.ID == targetID {
		*replaced = true
		return patchedGroup(targetID, patch)
	}

	out := &types.RuleGroup{
		ID:         g.ID,
		Combinator: g.Combinator,
		Rules:      make([]types.Rule, len(g.Rules)),
	}
	for i, r := range g.Rules {
		if r.IsGroup() {
			out.Rules[i] = types.Rule{Group: replaceGroup(r.Group, targetID, patch, replaced)}
			continue
		}
		out.Rules[i] = types.CloneRule(r)
	}
	return out
}

func patchedGroup(id string, patch GroupPatch) *types.RuleGroup {
	combinator := patch.Combinator
	if combinator == "" {
		combinator = types.CombinatorAnd
	}
	rules := make([]types.Rule, len(patch.Rules))
	for i, r := range patch.Rules {
		rules[i] = types.CloneRule(r)
	}
	return &types.RuleGroup{ID: id, Combinator: combinator, Rules: rules}
}
