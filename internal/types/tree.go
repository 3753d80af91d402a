// internal/types/tree.go
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

/*
 * Rule tree model.
 *
 * A query is a single root RuleGroup. Each group holds an ordered sequence
 * of Rule values; a Rule is a tagged union of exactly one *RuleGroup or one
 * *RuleLeaf. IsGroup is the single predicate every algorithm uses to branch.
 *
 * Wire format: groups and leaves share one JSON array with no explicit type
 * field. The discriminator is structural:
 *   - an object with a "rules" key is a group
 *   - an object with a "combinator" key and no "field" key is a group whose
 *     rules are absent (normalized to empty by the algorithms that descend)
 *   - everything else is a leaf
 *
 * Ownership: trees are treated as immutable values. Algorithms in
 * internal/rules return new roots and never write through a Rule pointer.
 */

// RuleLeaf is one atomic comparison.
// Value is always a string; "between" stores a comma-joined pair.
type RuleLeaf struct {
	ID       string `json:"id,omitempty"`
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
	DataType string `json:"dataType,omitempty"`
}

// RuleGroup is a boolean connective over an ordered list of rules.
// A nil Rules slice means the document omitted "rules".
type RuleGroup struct {
	ID         string     `json:"id,omitempty"`
	Combinator Combinator `json:"combinator"`
	Rules      []Rule     `json:"rules"`
}

// Rule is an element of a group's rules: exactly one of Group or Leaf is set.
type Rule struct {
	Group *RuleGroup
	Leaf  *RuleLeaf
}

// GroupRule wraps a group as a Rule.
func GroupRule(g RuleGroup) Rule {
	return Rule{Group: &g}
}

// LeafRule wraps a leaf as a Rule.
func LeafRule(l RuleLeaf) Rule {
	return Rule{Leaf: &l}
}

// IsGroup reports whether r is a group node.
func (r Rule) IsGroup() bool {
	return r.Group != nil
}

// ID returns the id of whichever node r holds.
func (r Rule) ID() string {
	switch {
	case r.Group != nil:
		return r.Group.ID
	case r.Leaf != nil:
		return r.Leaf.ID
	default:
		return ""
	}
}

// NewRoot returns the canonical empty root: id "root", AND, no rules.
func NewRoot() *RuleGroup {
	return &RuleGroup{ID: RootID, Combinator: CombinatorAnd, Rules: []Rule{}}
}

// MarshalJSON always emits "rules" as an array, never null.
func (g RuleGroup) MarshalJSON() ([]byte, error) {
	type alias RuleGroup
	a := alias(g)
	if a.Rules == nil {
		a.Rules = []Rule{}
	}
	return json.Marshal(a)
}

// UnmarshalJSON coerces non-string values to their string form.
// Numbers, booleans, null and arrays of those are accepted so documents
// written by looser editors still load.
func (l *RuleLeaf) UnmarshalJSON(data []byte) error {
	type alias RuleLeaf
	aux := struct {
		*alias
		Value json.RawMessage `json:"value"`
	}{alias: (*alias)(l)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	value, err := CoerceValue(aux.Value)
	if err != nil {
		return fmt.Errorf("rule %q: %w", l.ID, err)
	}
	l.Value = value
	return nil
}

// MarshalJSON encodes whichever node r holds.
func (r Rule) MarshalJSON() ([]byte, error) {
	switch {
	case r.Group != nil:
		return json.Marshal(r.Group)
	case r.Leaf != nil:
		return json.Marshal(r.Leaf)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON applies the structural discriminator.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: rule must be an object", ErrInvalidTree)
	}
	if probe == nil {
		return fmt.Errorf("%w: rule must not be null", ErrInvalidTree)
	}

	if isGroupShape(probe) {
		var g RuleGroup
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		*r = Rule{Group: &g}
		return nil
	}

	var l RuleLeaf
	if err := json.Unmarshal(data, &l); err != nil {
		return err
	}
	*r = Rule{Leaf: &l}
	return nil
}

func isGroupShape(probe map[string]json.RawMessage) bool {
	if _, ok := probe["rules"]; ok {
		return true
	}
	_, hasCombinator := probe["combinator"]
	_, hasField := probe["field"]
	return hasCombinator && !hasField
}

// DecodeTree parses a root group and enforces MaxTreeDepth.
func DecodeTree(data []byte) (*RuleGroup, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: root must be a JSON object", ErrInvalidTree)
	}

	var root RuleGroup
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTree, err)
	}
	if Depth(&root) > MaxTreeDepth {
		return nil, ErrTreeTooDeep
	}
	return &root, nil
}

// Depth returns group nesting depth; a root with only leaves has depth 1.
func Depth(g *RuleGroup) int {
	if g == nil {
		return 0
	}
	deepest := 0
	for _, r := range g.Rules {
		if r.IsGroup() {
			if d := Depth(r.Group); d > deepest {
				deepest = d
			}
		}
	}
	return deepest + 1
}

// Clone returns a deep copy of g. Absent rules stay absent.
func Clone(g *RuleGroup) *RuleGroup {
	if g == nil {
		return nil
	}
	out := &RuleGroup{ID: g.ID, Combinator: g.Combinator}
	if g.Rules != nil {
		out.Rules = make([]Rule, len(g.Rules))
		for i, r := range g.Rules {
			out.Rules[i] = CloneRule(r)
		}
	}
	return out
}

// CloneRule returns a deep copy of r.
func CloneRule(r Rule) Rule {
	switch {
	case r.Group != nil:
		return Rule{Group: Clone(r.Group)}
	case r.Leaf != nil:
		leaf := *r.Leaf
		return Rule{Leaf: &leaf}
	default:
		return Rule{}
	}
}

// Equal reports whether two trees encode to the same document.
// Absent and empty rules compare equal, matching the wire format.
func Equal(a, b *RuleGroup) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || a.Combinator != b.Combinator || len(a.Rules) != len(b.Rules) {
		return false
	}
	for i := range a.Rules {
		if !RuleEqual(a.Rules[i], b.Rules[i]) {
			return false
		}
	}
	return true
}

// RuleEqual compares two rules with Equal semantics.
func RuleEqual(a, b Rule) bool {
	if a.IsGroup() != b.IsGroup() {
		return false
	}
	if a.IsGroup() {
		return Equal(a.Group, b.Group)
	}
	if a.Leaf == nil || b.Leaf == nil {
		return a.Leaf == b.Leaf
	}
	return *a.Leaf == *b.Leaf
}
