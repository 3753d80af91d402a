// internal/rules/validate.go
package rules

import (
	"fmt"
	"strings"

	"github.com/solatis/querykeeper/internal/types"
)

/*
 * Completeness validation.
 *
 * A tree is complete when every leaf has a usable value and every
 * subgroup is non-empty, at any depth. The check is conjunctive: one
 * incomplete leaf anywhere blocks the whole save.
 *
 * Empty subgroups are rejected explicitly before recursing. Recursion over
 * an empty rules list visits nothing and would report success.
 *
 * The root's own emptiness is not part of IsComplete. CheckSave reports it
 * first, as ErrEmptyQuery, so users see "query is empty" rather than
 * "fields cannot be empty" for a blank query.
 */

// Reason classifies why a node is incomplete.
type Reason string

const (
	ReasonEmptyGroup      Reason = "empty_group"
	ReasonMissingValue    Reason = "missing_value"
	ReasonIncompleteRange Reason = "incomplete_range"
)

// Issue locates one incomplete node.
type Issue struct {
	NodeID string `json:"id"`
	Path   []int  `json:"path"`
	Reason Reason `json:"reason"`
}

// ValidationError carries the issues behind an ErrIncompleteFields failure.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	ids := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		ids = append(ids, fmt.Sprintf("%s(%s)", is.NodeID, is.Reason))
	}
	return fmt.Sprintf("%s: %s", types.ErrIncompleteFields, strings.Join(ids, ", "))
}

// Unwrap lets errors.Is match ErrIncompleteFields.
func (e *ValidationError) Unwrap() error {
	return types.ErrIncompleteFields
}

// IsComplete reports whether every descendant of g is complete.
// Pure; g is not modified.
func IsComplete(g *types.RuleGroup) bool {
	if g == nil {
		return true
	}
	for _, r := range g.Rules {
		if r.IsGroup() {
			if len(r.Group.Rules) == 0 {
				return false
			}
			if !IsComplete(r.Group) {
				return false
			}
			continue
		}
		if leafReason(r.Leaf) != "" {
			return false
		}
	}
	return true
}

// Inspect lists every incomplete node in depth-first order.
// IsComplete(g) == (len(Inspect(g)) == 0).
func Inspect(g *types.RuleGroup) []Issue {
	var issues []Issue
	inspectGroup(g, nil, &issues)
	return issues
}

func inspectGroup(g *types.RuleGroup, path []int, issues *[]Issue) {
	if g == nil {
		return
	}
	for i, r := range g.Rules {
		childPath := appendPath(path, i)
		if r.IsGroup() {
			if len(r.Group.Rules) == 0 {
				*issues = append(*issues, Issue{NodeID: r.Group.ID, Path: childPath, Reason: ReasonEmptyGroup})
				continue
			}
			inspectGroup(r.Group, childPath, issues)
			continue
		}
		if reason := leafReason(r.Leaf); reason != "" {
			*issues = append(*issues, Issue{NodeID: r.ID(), Path: childPath, Reason: reason})
		}
	}
}

// CheckSave gates a save: ErrEmptyQuery for an absent or rule-less root,
// a *ValidationError for an incomplete tree, nil otherwise.
func CheckSave(root *types.RuleGroup) error {
	if root == nil || len(root.Rules) == 0 {
		return types.ErrEmptyQuery
	}
	if !IsComplete(root) {
		return &ValidationError{Issues: Inspect(root)}
	}
	return nil
}

// appendPath returns path+i without sharing path's backing array.
func appendPath(path []int, i int) []int {
	out := make([]int, len(path)+1)
	copy(out, path)
	out[len(path)] = i
	return out
}
