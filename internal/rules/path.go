// internal/rules/path.go
package rules

import "github.com/solatis/querykeeper/internal/types"

/*
 * Node addressing.
 *
 * Nodes are addressed by id; paths are the index route from the root
 * ([] is the root itself, [2, 0] is the first child of the root's third
 * rule). Lookups are depth-first pre-order so the first match wins if a
 * malformed tree repeats an id.
 */

// Location is a node found by id.
type Location struct {
	Rule   types.Rule
	Path   []int
	Parent *types.RuleGroup // nil for the root
}

// Find locates the node with the given id.
func Find(tree *types.RuleGroup, id string) (Location, bool) {
	if tree == nil {
		return Location{}, false
	}
	if tree.ID == id {
		return Location{Rule: types.Rule{Group: tree}, Path: []int{}}, true
	}
	return findIn(tree, id, nil)
}

func findIn(g *types.RuleGroup, id string, path []int) (Location, bool) {
	for i, r := range g.Rules {
		childPath := appendPath(path, i)
		if r.ID() == id {
			return Location{Rule: r, Path: childPath, Parent: g}, true
		}
		if r.IsGroup() {
			if loc, ok := findIn(r.Group, id, childPath); ok {
				return loc, true
			}
		}
	}
	return Location{}, false
}

// At returns the node at path, or false if the path leaves the tree.
func At(tree *types.RuleGroup, path []int) (types.Rule, bool) {
	if tree == nil {
		return types.Rule{}, false
	}
	current := types.Rule{Group: tree}
	for _, i := range path {
		if !current.IsGroup() || i < 0 || i >= len(current.Group.Rules) {
			return types.Rule{}, false
		}
		current = current.Group.Rules[i]
	}
	return current, true
}
