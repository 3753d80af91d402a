// internal/rules/stats.go
package rules

import "github.com/solatis/querykeeper/internal/types"

// Stats summarizes a tree's shape for logging and storage metadata.
type Stats struct {
	Groups int // including the root
	Leaves int
	Depth  int
}

// Walk visits every node below g depth-first, pre-order.
// fn receives the index path of each node; returning false skips a group's children.
func Walk(g *types.RuleGroup, fn func(path []int, r types.Rule) bool) {
	walk(g, nil, fn)
}

func walk(g *types.RuleGroup, path []int, fn func([]int, types.Rule) bool) {
	if g == nil {
		return
	}
	for i, r := range g.Rules {
		childPath := appendPath(path, i)
		if !fn(childPath, r) {
			continue
		}
		if r.IsGroup() {
			walk(r.Group, childPath, fn)
		}
	}
}

// Measure computes Stats for tree.
func Measure(tree *types.RuleGroup) Stats {
	if tree == nil {
		return Stats{}
	}
	s := Stats{Groups: 1, Depth: types.Depth(tree)}
	Walk(tree, func(_ []int, r types.Rule) bool {
		if r.IsGroup() {
			s.Groups++
		} else {
			s.Leaves++
		}
		return true
	})
	return s
}

// GroupIDs returns every group id in pre-order, root first.
func GroupIDs(tree *types.RuleGroup) []string {
	if tree == nil {
		return nil
	}
	ids := []string{tree.ID}
	Walk(tree, func(_ []int, r types.Rule) bool {
		if r.IsGroup() {
			ids = append(ids, r.Group.ID)
		}
		return true
	})
	return ids
}
