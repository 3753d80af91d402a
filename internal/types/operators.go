package types

// Operator identifiers with engine-level meaning. Registries may declare
// any other operator id; those are opaque to the engine.
const (
	OpEq          = "eq"
	OpBetween     = "between"
	OpIsInList    = "isInList"
	OpIsValidCode = "isValidCode"
	OpIsNotNull   = "isNotNull"
	OpGreater     = ">"
	OpLess        = "<"
)
