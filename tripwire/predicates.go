package tripwire

import (
	"context"
	"math"
	"reflect"
	"strconv"

	"github.com/nevware21/tripwire-sub002/tripwire/deepequal"
)

// Expect starts an assertion chain against value.
//
// Example:
//
//	if err := tripwire.Expect(user).Property("Name").Equal("ada").Err(); err != nil {
//		return err
//	}
func Expect(value any, opts ...Option) *Chain {
	return NewScope(value, opts...).That()
}

// ExpectCtx starts an assertion chain carrying a context.Context for
// observability (span events and metrics on failure).
func ExpectCtx(ctx context.Context, value any, opts ...Option) *Chain {
	return Expect(value, append([]Option{WithContext(ctx)}, opts...)...)
}

// defaultOperations is the built-in operation set every fresh chain starts
// with. The full predicate catalog lives with callers; these are the thin
// core operations the dispatcher itself is exercised through.
func defaultOperations() map[string]Operation {
	return map[string]Operation{
		"ok":        {ScopeFn: opOk, PropFn: propOk},
		"not":       {ScopeFn: opNot},
		"equal":     {ScopeFn: opEqual},
		"deepEqual": {ScopeFn: opDeepEqual},
		"property":  {ScopeFn: opProperty},
	}
}

// Ok asserts that the current value is truthy.
func (c *Chain) Ok() *Chain { return c.Call("ok") }

// Not toggles negation for the rest of the chain.
func (c *Chain) Not() *Chain { return c.Call("not") }

// Equal asserts strict (same-value) deep equality against expected.
func (c *Chain) Equal(expected any) *Chain { return c.Call("equal", expected) }

// DeepEqual asserts loose structural equality against expected.
func (c *Chain) DeepEqual(expected any) *Chain { return c.Call("deepEqual", expected) }

// Property narrows the chain to the named property's value, failing when the
// property is absent.
func (c *Chain) Property(name string) *Chain { return c.Call("property", name) }

// WithMessage sets the context-level base message combined into any failure
// produced later in the chain.
func (c *Chain) WithMessage(message string) *Chain {
	if c.err == nil {
		c.scope.Context().SetMessage(message)
	}

	return c
}

func opOk(s *Scope, _ ...any) (any, error) {
	return nil, s.Context().Eval(truthy(s.Context().Value()), "expected {actual} to be truthy")
}

func propOk(s *Scope) (any, error) {
	return nil, s.Context().Eval(truthy(s.Context().Value()), "expected {actual} to be truthy")
}

func opNot(s *Scope, _ ...any) (any, error) {
	s.UpdateCtx(s.Context().Not())
	return nil, nil
}

func opEqual(s *Scope, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, s.Context().Fatal("equal expects exactly one argument", nil)
	}

	ctx := s.Context()
	ctx.Set("expected", args[0])
	ctx.Set("operator", "equal")

	return nil, ctx.Eval(
		deepequal.Equal(ctx.Value(), args[0], true),
		"expected {actual} to equal {expected}",
	)
}

func opDeepEqual(s *Scope, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, s.Context().Fatal("deepEqual expects exactly one argument", nil)
	}

	ctx := s.Context()
	ctx.Set("expected", args[0])
	ctx.Set("operator", "deepEqual")

	return nil, ctx.Eval(
		deepequal.Equal(ctx.Value(), args[0], false),
		"expected {actual} to deeply equal {expected}",
	)
}

// opProperty inspects the named property of the current value and, when
// present, continues the chain against the property's value in a child
// context.
func opProperty(s *Scope, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, s.Context().Fatal("property expects exactly one argument", nil)
	}

	name, ok := args[0].(string)
	if !ok {
		return nil, s.Context().Fatal("property name must be a string", nil)
	}

	ctx := s.Context()
	ctx.Set("property", name)

	value, found := lookupProperty(ctx.Value(), name)
	if err := ctx.Eval(found, "expected {actual} to have property "+strconv.Quote(name)); err != nil {
		return nil, err
	}

	if found {
		s.UpdateCtx(ctx.New(value, nil))
	}

	return nil, nil
}

// lookupProperty resolves a named property on maps (string-keyed) and
// structs (exported fields), dereferencing pointers first.
func lookupProperty(value any, name string) (any, bool) {
	v := reflect.ValueOf(value)

	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}

		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, false
		}

		entry := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !entry.IsValid() {
			return nil, false
		}

		return entry.Interface(), true
	case reflect.Struct:
		field := v.FieldByName(name)
		if !field.IsValid() || !field.CanInterface() {
			return nil, false
		}

		return field.Interface(), true
	default:
		return nil, false
	}
}

// truthy implements the loose truthiness rule used by Ok: nil, false, zero
// numbers, NaN, and empty strings are falsy; everything else, including
// empty containers, is truthy.
func truthy(value any) bool {
	if value == nil {
		return false
	}

	v := reflect.ValueOf(value)

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.String:
		return v.String() != ""
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return !v.IsNil()
	default:
		return true
	}
}
