// Package editor holds the editor session: the one canonical rule tree of
// a query editor, its combinator selectors, and the load and save flows.
package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/solatis/querykeeper/internal/registry"
	"github.com/solatis/querykeeper/internal/rules"
	"github.com/solatis/querykeeper/internal/types"
	"go.uber.org/zap"
)

var (
	// ErrUnknownField indicates a field missing from the registry.
	ErrUnknownField = errors.New("unknown field")

	// ErrOperatorNotAllowed indicates an operator the field does not allow.
	ErrOperatorNotAllowed = errors.New("operator not allowed for field")
)

// Persister loads and stores the query document.
// *persist.Client is the production implementation.
type Persister interface {
	Load(ctx context.Context) (*types.RuleGroup, error)
	Save(ctx context.Context, tree *types.RuleGroup) error
}

// SelectorState is a snapshot of one group's combinator selector.
type SelectorState struct {
	GroupID  string
	Selected types.Combinator
	Options  []types.Combinator
}

// Session owns the canonical tree. All mutations go through its methods,
// serialized by mu; I/O runs outside the lock and results are applied by
// replacing the whole tree.
type Session struct {
	mu        sync.Mutex
	tree      *types.RuleGroup
	saved     *types.RuleGroup
	selectors map[string]*rules.CombinatorSelector

	registry *registry.Registry
	engine   *rules.Engine
	store    Persister
	form     *Form
	logger   *zap.Logger
}

// NewSession starts a session on the canonical empty root.
func NewSession(reg *registry.Registry, store Persister, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		tree:      types.NewRoot(),
		selectors: map[string]*rules.CombinatorSelector{},
		registry:  reg,
		engine:    rules.NewEngine(reg),
		store:     store,
		form:      NewForm(),
		logger:    logger,
	}
	s.saved = types.Clone(s.tree)
	s.syncSelectorsLocked()
	return s
}

// Tree returns a copy of the canonical tree.
func (s *Session) Tree() *types.RuleGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.Clone(s.tree)
}

// Form returns the mirrored form state.
func (s *Session) Form() *Form {
	return s.form
}

// Dirty reports whether the tree differs from the last loaded or saved tree.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !types.Equal(s.tree, s.saved)
}

// Validate reports the tree's completeness without saving.
func (s *Session) Validate() rules.Report {
	return s.engine.Validate(s.Tree())
}

// Load replaces the tree with the stored document. On failure the error
// is logged and returned and the tree is left as it was.
func (s *Session) Load(ctx context.Context) error {
	loaded, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("failed to load query", zap.Error(err))
		return fmt.Errorf("load query: %w", err)
	}
	if loaded == nil {
		loaded = types.NewRoot()
	}
	loaded = rules.EnsureIDs(loaded)

	s.mu.Lock()
	s.tree = loaded
	s.saved = types.Clone(loaded)
	s.form.Reset()
	s.syncSelectorsLocked()
	s.mu.Unlock()

	stats := rules.Measure(loaded)
	s.logger.Info("loaded query",
		zap.Int("groups", stats.Groups),
		zap.Int("rules", stats.Leaves))
	return nil
}

// Save gates, annotates and stores the tree. A rejected or failed save
// sends nothing further and leaves the tree untouched.
func (s *Session) Save(ctx context.Context) error {
	snapshot := s.Tree()

	annotated, err := s.engine.Prepare(snapshot)
	if err != nil {
		s.logger.Warn("save rejected", zap.Error(err))
		return err
	}

	if err := s.store.Save(ctx, annotated); err != nil {
		s.logger.Error("failed to save query", zap.Error(err))
		return fmt.Errorf("save query: %w", err)
	}

	s.mu.Lock()
	s.saved = snapshot
	s.mu.Unlock()
	s.form.MarkClean()

	s.logger.Info("saved query", zap.Int("rules", rules.Measure(snapshot).Leaves))
	return nil
}

// Import replaces the tree with one obtained elsewhere (a file, a paste).
// Missing ids are filled in; the session becomes dirty unless tree equals
// the last loaded or saved tree.
func (s *Session) Import(tree *types.RuleGroup) {
	if tree == nil {
		tree = types.NewRoot()
	}
	tree = rules.EnsureIDs(tree)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
	s.form.Reset()
	s.syncSelectorsLocked()
}

// LoadAsync runs Load in a goroutine and reports the result to done.
func (s *Session) LoadAsync(ctx context.Context, done func(error)) {
	go func() {
		err := s.Load(ctx)
		if done != nil {
			done(err)
		}
	}()
}

// SaveAsync runs Save in a goroutine and reports the result to done.
func (s *Session) SaveAsync(ctx context.Context, done func(error)) {
	go func() {
		err := s.Save(ctx)
		if done != nil {
			done(err)
		}
	}()
}

// Selector returns the selector state of groupID.
func (s *Session) Selector(groupID string) (SelectorState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selectors[groupID]
	if !ok {
		return SelectorState{}, false
	}
	return SelectorState{GroupID: groupID, Selected: sel.Selected(), Options: sel.Options()}, true
}

// SelectCombinator is the user picking c on group groupID's selector.
// The selector mirrors the choice into the form and its change is merged
// into the tree before this returns.
func (s *Session) SelectCombinator(groupID string, c types.Combinator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selectors[groupID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrGroupNotFound, groupID)
	}
	// Re-picking the active option is not an edit.
	if sel.IsActive(c) {
		return nil
	}
	return sel.Select(c)
}

// ApplyGroupChange merges an externally produced change into the tree.
func (s *Session) ApplyGroupChange(change rules.GroupChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := rules.Find(s.tree, change.GroupID); !ok {
		return fmt.Errorf("%w: %s", types.ErrGroupNotFound, change.GroupID)
	}
	s.applyLocked(change)
	return nil
}

// applyLocked is the selectors' change callback; callers hold mu.
func (s *Session) applyLocked(change rules.GroupChange) {
	s.tree = rules.Replace(s.tree, change.GroupID, change.Patch())
	s.syncSelectorsLocked()
}

// syncSelectorsLocked resyncs every group's selector from the tree,
// creating selectors for new groups and dropping those of removed ones.
func (s *Session) syncSelectorsLocked() {
	seen := make(map[string]bool)
	visit := func(g *types.RuleGroup) {
		seen[g.ID] = true
		if sel, ok := s.selectors[g.ID]; ok {
			sel.Sync(g)
			return
		}
		s.selectors[g.ID] = rules.NewCombinatorSelector(g, s.form, s.applyLocked)
	}

	visit(s.tree)
	rules.Walk(s.tree, func(_ []int, r types.Rule) bool {
		if r.IsGroup() {
			visit(r.Group)
		}
		return true
	})

	for id := range s.selectors {
		if !seen[id] {
			delete(s.selectors, id)
		}
	}
}

// edit applies a pure tree edit under the lock.
func (s *Session) edit(fn func(*types.RuleGroup) (*types.RuleGroup, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.tree)
	if err != nil {
		return err
	}
	s.tree = next
	s.syncSelectorsLocked()
	return nil
}

// AddRule appends a new rule to parentID using the first configured field
// and that field's first operator. Returns the new rule's id.
func (s *Session) AddRule(parentID string) (string, error) {
	leaf := types.RuleLeaf{ID: types.NewNodeID()}
	if fields := s.registry.Fields(); len(fields) > 0 {
		leaf.Field = fields[0].Name
		leaf.Operator = firstOperator(s.registry.OperatorsFor(leaf.Field))
	}
	err := s.edit(func(t *types.RuleGroup) (*types.RuleGroup, error) {
		return rules.AddRule(t, parentID, leaf)
	})
	if err != nil {
		return "", err
	}
	return leaf.ID, nil
}

// AddGroup appends an empty AND group to parentID. Returns the new group's id.
func (s *Session) AddGroup(parentID string) (string, error) {
	group := types.RuleGroup{ID: types.NewNodeID(), Combinator: types.CombinatorAnd, Rules: []types.Rule{}}
	err := s.edit(func(t *types.RuleGroup) (*types.RuleGroup, error) {
		return rules.AddGroup(t, parentID, group)
	})
	if err != nil {
		return "", err
	}
	return group.ID, nil
}

// Remove deletes node id and its subtree.
func (s *Session) Remove(id string) error {
	return s.edit(func(t *types.RuleGroup) (*types.RuleGroup, error) {
		return rules.Remove(t, id)
	})
}

// Shift moves node id among its siblings.
func (s *Session) Shift(id string, delta int) error {
	return s.edit(func(t *types.RuleGroup) (*types.RuleGroup, error) {
		return rules.Shift(t, id, delta)
	})
}

// SetField changes a rule's field, resetting the operator to the field's
// first operator and clearing the value.
func (s *Session) SetField(id, field string) error {
	if _, ok := s.registry.Lookup(field); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	op := firstOperator(s.registry.OperatorsFor(field))
	empty := ""
	return s.edit(func(t *types.RuleGroup) (*types.RuleGroup, error) {
		return rules.UpdateLeaf(t, id, rules.LeafPatch{Field: &field, Operator: &op, Value: &empty})
	})
}

// SetOperator changes a rule's operator. The value is cleared when the new
// operator uses a different value editor than the old one.
func (s *Session) SetOperator(id, op string) error {
	return s.edit(func(t *types.RuleGroup) (*types.RuleGroup, error) {
		loc, ok := rules.Find(t, id)
		if !ok {
			return nil, types.ErrNodeNotFound
		}
		if loc.Rule.IsGroup() {
			return nil, types.ErrNotALeaf
		}
		leaf := loc.Rule.Leaf
		if !slices.Contains(s.registry.OperatorsFor(leaf.Field), op) {
			return nil, fmt.Errorf("%w: %q on %q", ErrOperatorNotAllowed, op, leaf.Field)
		}

		patch := rules.LeafPatch{Operator: &op}
		if s.registry.ValueEditorType(leaf.Field, leaf.Operator) != s.registry.ValueEditorType(leaf.Field, op) {
			empty := ""
			patch.Value = &empty
		}
		return rules.UpdateLeaf(t, id, patch)
	})
}

// SetValue changes a rule's value.
func (s *Session) SetValue(id, value string) error {
	return s.edit(func(t *types.RuleGroup) (*types.RuleGroup, error) {
		return rules.UpdateLeaf(t, id, rules.LeafPatch{Value: &value})
	})
}

// SetRange stores both bounds of a between rule.
func (s *Session) SetRange(id, low, high string) error {
	return s.SetValue(id, rules.JoinRange(low, high))
}

func firstOperator(ops []string) string {
	if len(ops) == 0 {
		return ""
	}
	return ops[0]
}
