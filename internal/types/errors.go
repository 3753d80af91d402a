package types

import "errors"

// Sentinel errors for QueryKeeper operations.
var (
	// ErrEmptyQuery indicates the root group has no rules. Surfaced to the
	// user distinctly from ErrIncompleteFields.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrIncompleteFields indicates a leaf without a usable value or an
	// empty subgroup somewhere in the tree.
	ErrIncompleteFields = errors.New("fields cannot be empty")

	// ErrTreeTooDeep indicates group nesting beyond MaxTreeDepth.
	ErrTreeTooDeep = errors.New("rule tree exceeds maximum depth")

	// ErrInvalidTree indicates a document that does not decode as a rule group.
	ErrInvalidTree = errors.New("invalid rule tree")

	// ErrUnknownCombinator indicates a combinator outside AND/OR/NONE.
	ErrUnknownCombinator = errors.New("unknown combinator")

	// ErrGroupNotFound indicates no group carries the requested id.
	ErrGroupNotFound = errors.New("group not found")

	// ErrNodeNotFound indicates no node carries the requested id.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNotALeaf indicates a leaf operation addressed a group.
	ErrNotALeaf = errors.New("node is not a rule leaf")

	// ErrRootImmutable indicates an attempt to remove or move the root group.
	ErrRootImmutable = errors.New("root group cannot be removed or moved")
)
