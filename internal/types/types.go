// Package types provides the rule-tree model shared across QueryKeeper components.
//
// Zero-dependency design: types.go, tree.go, coercion.go and errors.go use only
// encoding/json and the standard library so the model can be embedded in any
// client. ID utilities in ids.go import uuid but are isolated in their own file.
package types

import "strings"

// Combinator is the boolean connective joining a group's children.
// The tree stores the spelling it was given ("and" or "AND"); Normalize
// yields the canonical upper-case form used for comparisons.
type Combinator string

const (
	CombinatorAnd  Combinator = "AND"
	CombinatorOr   Combinator = "OR"
	CombinatorNone Combinator = "NONE"
)

// Combinators lists the selectable combinators in display order.
var Combinators = []Combinator{CombinatorAnd, CombinatorOr, CombinatorNone}

// Normalize returns the upper-cased combinator.
func (c Combinator) Normalize() Combinator {
	return Combinator(strings.ToUpper(strings.TrimSpace(string(c))))
}

// Valid reports whether c is one of AND, OR, NONE (case-insensitive).
func (c Combinator) Valid() bool {
	switch c.Normalize() {
	case CombinatorAnd, CombinatorOr, CombinatorNone:
		return true
	default:
		return false
	}
}

// ParseCombinator normalizes s and rejects anything outside AND/OR/NONE.
func ParseCombinator(s string) (Combinator, error) {
	c := Combinator(s).Normalize()
	if !c.Valid() {
		return "", ErrUnknownCombinator
	}
	return c, nil
}

// FieldConfig describes one queryable field.
// Loaded once at startup and never mutated.
type FieldConfig struct {
	Name      string `json:"name" yaml:"name"`
	Label     string `json:"label" yaml:"label"`
	Datatype  string `json:"datatype" yaml:"datatype"`
	InputType string `json:"inputType,omitempty" yaml:"inputType,omitempty"`
}

// Option is a selectable value for list-valued operators.
type Option struct {
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label" yaml:"label"`
}

// Resource limits enforced when trees enter the system from outside.
const (
	// MaxTreeDepth bounds group nesting so recursive algorithms cannot be
	// driven into unbounded stack growth by a hostile document.
	// The root group is depth 1.
	MaxTreeDepth = 32

	// MaxDocumentSize limits encoded tree size on the HTTP boundary.
	MaxDocumentSize = 1024 * 1024
)
