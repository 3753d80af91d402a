// internal/rules/operators.go
package rules

import (
	"strings"

	"github.com/solatis/querykeeper/internal/types"
)

/*
 * Operator value rules.
 *
 * The engine never evaluates operators; it only needs to know what a
 * complete value looks like for each of them:
 *   - isValidCode / isNotNull: value-less, any value (including "") is complete
 *   - between: comma-joined pair, every segment must be non-blank
 *   - everything else: non-empty value
 */

// valuelessOperators never require a value.
var valuelessOperators = map[string]bool{
	types.OpIsValidCode: true,
	types.OpIsNotNull:   true,
}

// IsValueless reports whether op is complete without a value.
func IsValueless(op string) bool {
	return valuelessOperators[op]
}

// RangeSegments splits a between value into its trimmed segments.
func RangeSegments(value string) []string {
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// JoinRange encodes a between pair.
func JoinRange(low, high string) string {
	return low + "," + high
}

// leafReason returns the incompleteness reason for a leaf, or "" if complete.
// Both conditions are independent: a between value of "" fails the first.
func leafReason(l *types.RuleLeaf) Reason {
	if l == nil {
		return ReasonMissingValue
	}
	if l.Value == "" && !IsValueless(l.Operator) {
		return ReasonMissingValue
	}
	if l.Operator == types.OpBetween {
		for _, seg := range RangeSegments(l.Value) {
			if seg == "" {
				return ReasonIncompleteRange
			}
		}
	}
	return ""
}
