// internal/rules/selector.go
package rules

import (
	"fmt"

	"github.com/solatis/querykeeper/internal/types"
)

/*
 * Combinator selector.
 *
 * One selector exists per rendered group. It caches the group's combinator
 * (upper-cased) and the group's current rules so a button press can report
 * the whole group back without reading the tree again.
 *
 * Data flows one way: Select emits a GroupChange that the owner merges into
 * the canonical tree with Replace; the owner then calls Sync with the new
 * group. The tree is the source of truth and Sync always wins.
 */

// GroupChange is emitted when a user picks a combinator.
type GroupChange struct {
	GroupID    string
	Combinator types.Combinator
	Rules      []types.Rule
}

// Patch converts the change into a Replace patch.
func (c GroupChange) Patch() GroupPatch {
	return GroupPatch{Combinator: c.Combinator, Rules: c.Rules}
}

// FormState receives mirrored selector values. Implementations typically
// mark the key dirty so an unsaved-changes indicator lights up.
type FormState interface {
	SetValue(key, value string, dirty bool)
}

// CombinatorFormKey is the form key a group's combinator is mirrored under.
func CombinatorFormKey(groupID string) string {
	return fmt.Sprintf("group-%s-combinator", groupID)
}

// CombinatorSelector tracks the selected combinator of one group.
type CombinatorSelector struct {
	groupID  string
	selected types.Combinator
	rules    []types.Rule
	form     FormState
	onChange func(GroupChange)
}

// NewCombinatorSelector seeds a selector from group. form and onChange may be nil.
func NewCombinatorSelector(group *types.RuleGroup, form FormState, onChange func(GroupChange)) *CombinatorSelector {
	s := &CombinatorSelector{form: form, onChange: onChange}
	if group != nil {
		s.groupID = group.ID
	}
	s.Sync(group)
	return s
}

// GroupID returns the id of the group this selector belongs to.
func (s *CombinatorSelector) GroupID() string {
	return s.groupID
}

// Selected returns the current combinator; "" when the group had none.
func (s *CombinatorSelector) Selected() types.Combinator {
	return s.selected
}

// Options lists the selectable combinators in display order.
func (s *CombinatorSelector) Options() []types.Combinator {
	return append([]types.Combinator(nil), types.Combinators...)
}

// IsActive reports whether c is the selected option.
func (s *CombinatorSelector) IsActive(c types.Combinator) bool {
	return s.selected != "" && s.selected == c.Normalize()
}

// Select records a user choice, mirrors it into the form state and emits
// a GroupChange carrying the group's current rules.
func (s *CombinatorSelector) Select(c types.Combinator) error {
	normalized := c.Normalize()
	if !normalized.Valid() {
		return fmt.Errorf("%w: %q", types.ErrUnknownCombinator, c)
	}
	s.selected = normalized

	if s.form != nil {
		s.form.SetValue(CombinatorFormKey(s.groupID), string(normalized), true)
	}
	if s.onChange != nil {
		s.onChange(GroupChange{
			GroupID:    s.groupID,
			Combinator: normalized,
			Rules:      s.rules,
		})
	}
	return nil
}

// Sync overwrites the cached state from the canonical group.
// A group without a combinator keeps the previous selection.
func (s *CombinatorSelector) Sync(group *types.RuleGroup) {
	if group == nil {
		return
	}
	s.rules = group.Rules
	if group.Combinator != "" {
		s.selected = group.Combinator.Normalize()
	}
}
