// Package tripwire is a fluent assertion toolkit: it evaluates a chain of
// predicate operations against an "actual" value and, on failure, produces a
// structured error carrying the operands, the comparison operator, and a
// human-readable message resolved from a {token} template.
//
// An assertion starts a Scope wrapping a Context that threads the current
// value, the negation flag, and message-resolution data through the chain:
//
//	err := tripwire.Expect(map[string]any{"a": map[string]any{"b": 2}}).
//		Property("a").
//		DeepEqual(map[string]any{"b": 2}).
//		Err()
//
// Failures are returned as *Failure (or *Fatal for malformed usage), both
// matchable with errors.Is against ErrAssertion. Value rendering is handled
// by the format subpackage's pluggable pipeline, and structural comparison by
// the deepequal subpackage; both are cycle-safe.
//
// Specialized integrations live in subpackages: format, deepequal, log, zap,
// and metrics.
package tripwire
