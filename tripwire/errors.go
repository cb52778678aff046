package tripwire

import (
	"errors"
	"math"
	"reflect"
	"runtime"
	"strings"
)

// ErrAssertion is the sentinel error shared by all assertion failures.
var ErrAssertion = errors.New("assertion failed")

// ErrFatal is the sentinel error for non-recoverable assertion failures.
var ErrFatal = errors.New("fatal assertion")

// Error is the base assertion error. It carries the fully resolved message
// and an optional inner cause.
type Error struct {
	Message string
	Cause   error
}

// Error returns the resolved assertion message.
func (e *Error) Error() string {
	if e == nil {
		return ErrAssertion.Error()
	}

	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}

	return e.Message
}

// Unwrap exposes the sentinel and the inner cause for errors.Is chains.
func (e *Error) Unwrap() []error {
	if e == nil || e.Cause == nil {
		return []error{ErrAssertion}
	}

	return []error{ErrAssertion, e.Cause}
}

// Details carries the programmatic payload of a failure: the operands, the
// comparison operator, the diff hint, and any extra named values.
type Details struct {
	Actual   any
	Expected any
	Operator string
	ShowDiff bool
	Props    map[string]any
}

// Failure is an expected-vs-actual assertion mismatch. It is recoverable in
// the sense that the invoking test framework reports it and moves on.
//
// Mutating Actual, Expected, Operator, or ShowDiff after construction records
// the original value into a lazily created side table the first time each
// field effectively changes (same-value semantics: NaN equals NaN, +0 and -0
// are distinct). Re-setting a field to an equal value never touches the side
// table, and a recorded original is never overwritten.
// assertionError aliases Error so it can be embedded in Failure without the
// embedded field's name ("Error") shadowing the promoted Error() method.
type assertionError = Error

type Failure struct {
	assertionError

	actual   any
	expected any
	operator string
	showDiff bool

	// Props holds arbitrary extra values attached by the failing predicate.
	Props map[string]any

	org   map[string]any
	stack []uintptr
}

// failureStackSkip drops runtime.Callers, newFailure, and its caller inside
// this package from captured stacks.
const failureStackSkip = 3

const maxStackDepth = 64

func newFailure(message string, details Details) *Failure {
	f := &Failure{
		assertionError: Error{Message: message},
		actual:         details.Actual,
		expected:       details.Expected,
		operator:       details.Operator,
		showDiff:       details.ShowDiff,
		Props:          details.Props,
	}

	pc := make([]uintptr, maxStackDepth)
	n := runtime.Callers(failureStackSkip, pc)
	f.stack = pc[:n]

	return f
}

// NewFailure creates a Failure with the given resolved message and details.
func NewFailure(message string, details Details) *Failure {
	return newFailure(message, details)
}

// Actual returns the actual operand.
func (f *Failure) Actual() any { return f.actual }

// Expected returns the expected operand.
func (f *Failure) Expected() any { return f.expected }

// Operator returns the comparison operator, if any.
func (f *Failure) Operator() string { return f.operator }

// ShowDiff reports whether a diff of the operands is worth presenting.
func (f *Failure) ShowDiff() bool { return f.showDiff }

// SetActual replaces the actual operand, recording the original on the first
// effective change.
func (f *Failure) SetActual(v any) {
	if sameValue(f.actual, v) {
		return
	}

	f.recordOriginal("actual", f.actual)
	f.actual = v
}

// SetExpected replaces the expected operand, recording the original on the
// first effective change.
func (f *Failure) SetExpected(v any) {
	if sameValue(f.expected, v) {
		return
	}

	f.recordOriginal("expected", f.expected)
	f.expected = v
}

// SetOperator replaces the operator, recording the original on the first
// effective change.
func (f *Failure) SetOperator(op string) {
	if f.operator == op {
		return
	}

	f.recordOriginal("operator", f.operator)
	f.operator = op
}

// SetShowDiff replaces the diff hint, recording the original on the first
// effective change.
func (f *Failure) SetShowDiff(show bool) {
	if f.showDiff == show {
		return
	}

	f.recordOriginal("showDiff", f.showDiff)
	f.showDiff = show
}

// OrgValues returns a copy of the original-value side table, or nil when no
// field has changed since construction. The recorded entries themselves are
// never mutated after being written.
func (f *Failure) OrgValues() map[string]any {
	if f.org == nil {
		return nil
	}

	out := make(map[string]any, len(f.org))
	for k, v := range f.org {
		out[k] = v
	}

	return out
}

func (f *Failure) recordOriginal(field string, value any) {
	if f.org == nil {
		f.org = make(map[string]any)
	}

	if _, recorded := f.org[field]; recorded {
		return
	}

	f.org[field] = value
}

// Stack renders the stack captured at construction. Frames internal to this
// module are filtered out unless full is true.
func (f *Failure) Stack(full bool) string {
	if len(f.stack) == 0 {
		return ""
	}

	frames := runtime.CallersFrames(f.stack)

	var sb strings.Builder

	for {
		frame, more := frames.Next()

		if full || !internalFrame(frame.Function) {
			sb.WriteString(frame.Function)
			sb.WriteString("\n\t")
			sb.WriteString(frame.File)
			sb.WriteString(":")
			sb.WriteString(itoa(frame.Line))
			sb.WriteString("\n")
		}

		if !more {
			break
		}
	}

	return sb.String()
}

const modulePath = "github.com/nevware21/tripwire-sub002/"

func internalFrame(function string) bool {
	return strings.Contains(function, modulePath)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}

	var digits [20]byte
	i := len(digits)

	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}

	return string(digits[i:])
}

// Fatal is a non-recoverable assertion failure: the chain cannot meaningfully
// continue, typically because of malformed usage such as wrong argument
// types. It remains matchable as a Failure via errors.As.
type Fatal struct {
	Failure
}

// NewFatal creates a Fatal with the given resolved message and details.
func NewFatal(message string, details Details) *Fatal {
	return &Fatal{Failure: *newFailure(message, details)}
}

// Unwrap exposes the fatal sentinel and the embedded Failure so both
// errors.Is(err, ErrFatal) and errors.As(err, **Failure) succeed.
func (f *Fatal) Unwrap() []error {
	return []error{ErrFatal, &f.Failure}
}

// IsFailure reports whether err is (or wraps) an assertion failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// IsFatal reports whether err is (or wraps) a fatal assertion failure.
func IsFatal(err error) bool {
	return errors.Is(err, ErrFatal)
}

// sameValue implements same-value comparison for the original-value tracker:
// NaN equals NaN, while +0 and -0 are distinct.
func sameValue(a, b any) bool {
	af, aok := floatValue(a)
	bf, bok := floatValue(b)

	if aok && bok {
		if math.IsNaN(af) || math.IsNaN(bf) {
			return math.IsNaN(af) && math.IsNaN(bf)
		}

		if af == 0 && bf == 0 {
			return math.Signbit(af) == math.Signbit(bf)
		}

		return af == bf && reflect.TypeOf(a) == reflect.TypeOf(b)
	}

	if aok != bok {
		return false
	}

	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	if !reflect.TypeOf(a).Comparable() {
		return false
	}

	return a == b
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
