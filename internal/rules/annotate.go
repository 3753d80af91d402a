// internal/rules/annotate.go
package rules

import "github.com/solatis/querykeeper/internal/types"

/*
 * Datatype annotation for serialization.
 *
 * Rebuilds the tree so every leaf whose field resolves in the registry
 * carries dataType = the field's declared datatype. One override applies:
 * a diagnosisCode leaf using isInList is a reference to a stored code list,
 * tagged episode-diag-code-list regardless of the field's datatype.
 *
 * Leaves with unresolved fields pass through unchanged (including any
 * dataType they already carry). Groups keep id, combinator and order.
 *
 * Idempotent: the tag depends only on field and operator, never on a
 * previous tag, so annotating twice equals annotating once.
 */

// Override constants for diagnosis code lists.
const (
	DiagnosisCodeField   = "diagnosisCode"
	DiagnosisCodeListTag = "episode-diag-code-list"
)

// FieldLookup resolves field metadata. Implemented by *registry.Registry.
type FieldLookup interface {
	Lookup(field string) (types.FieldConfig, bool)
}

// Annotate returns a new tree with dataType attached to resolvable leaves.
// A nil tree annotates to nil.
func Annotate(tree *types.RuleGroup, fields FieldLookup) *types.RuleGroup {
	if tree == nil {
		return nil
	}
	out := &types.RuleGroup{
		ID:         tree.ID,
		Combinator: tree.Combinator,
		Rules:      make([]types.Rule, len(tree.Rules)),
	}
	for i, r := range tree.Rules {
		out.Rules[i] = annotateRule(r, fields)
	}
	return out
}

func annotateRule(r types.Rule, fields FieldLookup) types.Rule {
	if r.IsGroup() {
		return types.Rule{Group: Annotate(r.Group, fields)}
	}
	if r.Leaf == nil {
		return r
	}

	leaf := *r.Leaf
	if leaf.Field != "" {
		if fc, ok := fields.Lookup(leaf.Field); ok {
			leaf.DataType = DataTypeFor(leaf, fc)
		}
	}
	return types.Rule{Leaf: &leaf}
}

// DataTypeFor returns the tag for a leaf whose field resolved to fc.
func DataTypeFor(leaf types.RuleLeaf, fc types.FieldConfig) string {
	if leaf.Field == DiagnosisCodeField && leaf.Operator == types.OpIsInList {
		return DiagnosisCodeListTag
	}
	return fc.Datatype
}
