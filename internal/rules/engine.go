package rules

import "github.com/solatis/querykeeper/internal/types"

// Engine binds the tree algorithms to one field registry so callers that
// serve many requests do not thread the registry through every call.
type Engine struct {
	fields FieldLookup
}

// NewEngine creates an engine over fields.
func NewEngine(fields FieldLookup) *Engine {
	return &Engine{fields: fields}
}

// Report is the outcome of validating a tree for save.
type Report struct {
	Empty    bool    `json:"empty"`
	Complete bool    `json:"complete"`
	Issues   []Issue `json:"issues"`
}

// Validate inspects tree without gating.
func (e *Engine) Validate(tree *types.RuleGroup) Report {
	issues := Inspect(tree)
	if issues == nil {
		issues = []Issue{}
	}
	return Report{
		Empty:    tree == nil || len(tree.Rules) == 0,
		Complete: IsComplete(tree),
		Issues:   issues,
	}
}

// Annotate attaches datatypes from the engine's registry.
func (e *Engine) Annotate(tree *types.RuleGroup) *types.RuleGroup {
	return Annotate(tree, e.fields)
}

// Prepare runs the save pipeline: gate, then annotate.
func (e *Engine) Prepare(tree *types.RuleGroup) (*types.RuleGroup, error) {
	if err := CheckSave(tree); err != nil {
		return nil, err
	}
	return Annotate(tree, e.fields), nil
}
