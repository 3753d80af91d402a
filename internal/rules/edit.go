// internal/rules/edit.go
package rules

import "github.com/solatis/querykeeper/internal/types"

/*
 * Tree edits.
 *
 * The operations a rule-group editor performs: add rule, add group, remove,
 * shift, and leaf field/operator/value edits. Each returns a new root and
 * leaves the argument untouched; a failed edit returns the error and no tree.
 */

// LeafPatch lists the leaf attributes to overwrite; nil fields are kept.
type LeafPatch struct {
	Field    *string
	Operator *string
	Value    *string
}

// AddRule appends leaf to the group parentID. A missing leaf id is generated.
func AddRule(tree *types.RuleGroup, parentID string, leaf types.RuleLeaf) (*types.RuleGroup, error) {
	loc, ok := Find(tree, parentID)
	if !ok || !loc.Rule.IsGroup() {
		return nil, types.ErrGroupNotFound
	}
	if leaf.ID == "" {
		leaf.ID = types.NewNodeID()
	}
	return rebuildAt(tree, loc.Path, func(g *types.RuleGroup) {
		g.Rules = append(g.Rules, types.LeafRule(leaf))
	}), nil
}

// AddGroup appends group to the group parentID. A missing id is generated,
// a missing combinator becomes AND and absent rules become empty.
func AddGroup(tree *types.RuleGroup, parentID string, group types.RuleGroup) (*types.RuleGroup, error) {
	loc, ok := Find(tree, parentID)
	if !ok || !loc.Rule.IsGroup() {
		return nil, types.ErrGroupNotFound
	}
	child := types.Clone(&group)
	if child.ID == "" {
		child.ID = types.NewNodeID()
	}
	if child.Combinator == "" {
		child.Combinator = types.CombinatorAnd
	}
	if child.Rules == nil {
		child.Rules = []types.Rule{}
	}
	return rebuildAt(tree, loc.Path, func(g *types.RuleGroup) {
		g.Rules = append(g.Rules, types.Rule{Group: child})
	}), nil
}

// Remove deletes the node id (leaf or group with its subtree).
func Remove(tree *types.RuleGroup, id string) (*types.RuleGroup, error) {
	if tree != nil && tree.ID == id {
		return nil, types.ErrRootImmutable
	}
	loc, ok := Find(tree, id)
	if !ok {
		return nil, types.ErrNodeNotFound
	}
	parentPath, idx := splitPath(loc.Path)
	return rebuildAt(tree, parentPath, func(g *types.RuleGroup) {
		g.Rules = append(g.Rules[:idx:idx], g.Rules[idx+1:]...)
	}), nil
}

// Shift moves node id by delta positions among its siblings, clamped to the
// ends of the parent's rules.
func Shift(tree *types.RuleGroup, id string, delta int) (*types.RuleGroup, error) {
	if tree != nil && tree.ID == id {
		return nil, types.ErrRootImmutable
	}
	loc, ok := Find(tree, id)
	if !ok {
		return nil, types.ErrNodeNotFound
	}
	parentPath, from := splitPath(loc.Path)
	return rebuildAt(tree, parentPath, func(g *types.RuleGroup) {
		to := from + delta
		if to < 0 {
			to = 0
		}
		if to > len(g.Rules)-1 {
			to = len(g.Rules) - 1
		}
		moved := g.Rules[from]
		if to < from {
			copy(g.Rules[to+1:from+1], g.Rules[to:from])
		} else {
			copy(g.Rules[from:to], g.Rules[from+1:to+1])
		}
		g.Rules[to] = moved
	}), nil
}

// UpdateLeaf overwrites the patched attributes of leaf id.
func UpdateLeaf(tree *types.RuleGroup, id string, patch LeafPatch) (*types.RuleGroup, error) {
	loc, ok := Find(tree, id)
	if !ok {
		return nil, types.ErrNodeNotFound
	}
	if loc.Rule.IsGroup() || loc.Rule.Leaf == nil {
		return nil, types.ErrNotALeaf
	}
	parentPath, idx := splitPath(loc.Path)
	return rebuildAt(tree, parentPath, func(g *types.RuleGroup) {
		leaf := *g.Rules[idx].Leaf
		if patch.Field != nil {
			leaf.Field = *patch.Field
		}
		if patch.Operator != nil {
			leaf.Operator = *patch.Operator
		}
		if patch.Value != nil {
			leaf.Value = *patch.Value
		}
		g.Rules[idx] = types.LeafRule(leaf)
	}), nil
}

// EnsureIDs returns a copy of tree where every node has an id.
// The root falls back to types.RootID, everything else to a new UUIDv7.
func EnsureIDs(tree *types.RuleGroup) *types.RuleGroup {
	if tree == nil {
		return nil
	}
	out := types.Clone(tree)
	if out.ID == "" {
		out.ID = types.RootID
	}
	fillIDs(out)
	return out
}

func fillIDs(g *types.RuleGroup) {
	for _, r := range g.Rules {
		switch {
		case r.Group != nil:
			if r.Group.ID == "" {
				r.Group.ID = types.NewNodeID()
			}
			fillIDs(r.Group)
		case r.Leaf != nil:
			if r.Leaf.ID == "" {
				r.Leaf.ID = types.NewNodeID()
			}
		}
	}
}

// rebuildAt deep-copies tree and applies fn to the copy of the group at path.
func rebuildAt(tree *types.RuleGroup, path []int, fn func(*types.RuleGroup)) *types.RuleGroup {
	out := types.Clone(tree)
	target := out
	for _, i := range path {
		target = target.Rules[i].Group
	}
	if target.Rules == nil {
		target.Rules = []types.Rule{}
	}
	fn(target)
	return out
}

func splitPath(path []int) ([]int, int) {
	return path[:len(path)-1], path[len(path)-1]
}
