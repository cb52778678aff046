// Package deepequal implements recursive structural comparison with cycle
// detection and configurable strictness.
//
// The package never panics and never renders values; callers that need a
// diagnostic message format the operands themselves.
package deepequal

import (
	"math"
	"reflect"
	"regexp"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Equal reports whether a and b are structurally equal.
//
// When strict is false, leaf values are compared loosely: numeric kinds
// cross-compare by value, numeric strings compare equal to the numbers they
// parse to, booleans coerce to 0/1, and +0 equals -0. When strict is true,
// leaves follow same-value semantics: +0 and -0 are distinct and non-numeric
// leaves must share a type. NaN equals NaN under both modes.
//
// Containers dispatch by runtime category, not nominal type: slices and
// arrays compare element-by-element in order, maps compare as unordered
// entry sets with recursive equality for both keys and values, and structs
// compare by exported fields. time.Time compares by epoch instant,
// *regexp.Regexp by source pattern, and decimal.Decimal by numeric value.
// Mismatched categories are unequal.
//
// Self-referential structures are handled by tracking the pairs currently
// under comparison; re-encountering a pair is treated as equal.
//
// Example:
//
//	deepequal.Equal([]int{1, 2}, []int{1, 2}, true)   // true
//	deepequal.Equal(1, "1", false)                    // true (loose)
//	deepequal.Equal(1, "1", true)                     // false
func Equal(a, b any, strict bool) bool {
	c := &comparator{strict: strict, visited: make(map[visit]bool)}
	return c.equal(reflect.ValueOf(a), reflect.ValueOf(b))
}

// visit identifies a pair of references currently being compared. Tracking
// the type guards against pointer reuse across unrelated kinds.
type visit struct {
	a   uintptr
	b   uintptr
	typ reflect.Type
}

type comparator struct {
	strict  bool
	visited map[visit]bool
}

//nolint:gocyclo // category dispatch is a single flat switch by design
func (c *comparator) equal(a, b reflect.Value) bool {
	if !a.IsValid() || !b.IsValid() {
		return c.equalInvalid(a, b)
	}

	a = unwrapInterface(a)
	b = unwrapInterface(b)

	if !a.IsValid() || !b.IsValid() {
		return c.equalInvalid(a, b)
	}

	if sa, ok := special(a); ok {
		return c.equalSpecial(sa, a, b)
	}

	if sb, ok := special(b); ok {
		// a is not special, so only the decimal loose coercion can match;
		// equalSpecial handles that symmetrically.
		if c.strict {
			return false
		}

		return c.equalSpecial(sb, b, a)
	}

	// The loose pointer deref must apply regardless of operand order so
	// equality stays symmetric.
	if b.Kind() == reflect.Pointer && a.Kind() != reflect.Pointer {
		return c.equalPointer(b, a)
	}

	switch a.Kind() {
	case reflect.Slice, reflect.Array:
		if b.Kind() != reflect.Slice && b.Kind() != reflect.Array {
			return false
		}

		return c.equalSequence(a, b)
	case reflect.Map:
		if b.Kind() != reflect.Map {
			return false
		}

		return c.equalMap(a, b)
	case reflect.Struct:
		if b.Kind() != reflect.Struct || a.Type() != b.Type() {
			return false
		}

		return c.equalStruct(a, b)
	case reflect.Pointer:
		return c.equalPointer(a, b)
	default:
		return c.equalLeaf(a, b)
	}
}

// equalInvalid handles comparisons where at least one side is an untyped nil.
func (c *comparator) equalInvalid(a, b reflect.Value) bool {
	if !a.IsValid() && !b.IsValid() {
		return true
	}

	if c.strict {
		return false
	}

	// Loose mode treats untyped nil as equal to any nil-able that is nil.
	v := a
	if !v.IsValid() {
		v = b
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

func unwrapInterface(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}

		v = v.Elem()
	}

	return v
}

// specialKind marks types with value semantics that bypass structural
// field-by-field comparison.
type specialKind uint8

const (
	specialNone specialKind = iota
	specialTime
	specialRegexp
	specialDecimal
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	regexpType  = reflect.TypeOf((*regexp.Regexp)(nil))
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

func special(v reflect.Value) (specialKind, bool) {
	switch v.Type() {
	case timeType:
		return specialTime, true
	case regexpType:
		return specialRegexp, true
	case decimalType:
		return specialDecimal, true
	default:
		return specialNone, false
	}
}

func (c *comparator) equalSpecial(kind specialKind, a, b reflect.Value) bool {
	switch kind {
	case specialTime:
		if b.Type() != timeType {
			return false
		}

		at, _ := a.Interface().(time.Time)
		bt, _ := b.Interface().(time.Time)

		return at.Equal(bt)
	case specialRegexp:
		if b.Type() != regexpType {
			return false
		}

		ar, _ := a.Interface().(*regexp.Regexp)
		br, _ := b.Interface().(*regexp.Regexp)

		if ar == nil || br == nil {
			return ar == br
		}

		return ar.String() == br.String()
	case specialDecimal:
		ad, _ := a.Interface().(decimal.Decimal)

		if b.Type() == decimalType {
			bd, _ := b.Interface().(decimal.Decimal)
			return ad.Equal(bd)
		}

		if c.strict {
			return false
		}

		bd, ok := looseDecimal(b)
		if !ok {
			return false
		}

		return ad.Equal(bd)
	default:
		return false
	}
}

func (c *comparator) equalSequence(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}

	if !c.push(a, b) {
		return true
	}
	defer c.pop(a, b)

	for i := 0; i < a.Len(); i++ {
		if !c.equal(a.Index(i), b.Index(i)) {
			return false
		}
	}

	return true
}

// equalMap compares maps as unordered entry sets. Keys are matched with the
// same recursive equality as values, so loose mode can match 1 against "1"
// and entry order is irrelevant by construction.
func (c *comparator) equalMap(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}

	if !c.push(a, b) {
		return true
	}
	defer c.pop(a, b)

	bKeys := b.MapKeys()
	claimed := make([]bool, len(bKeys))

	for _, ak := range a.MapKeys() {
		av := a.MapIndex(ak)
		matched := false

		for i, bk := range bKeys {
			if claimed[i] || !c.equal(ak, bk) {
				continue
			}

			if c.equal(av, b.MapIndex(bk)) {
				claimed[i] = true
				matched = true

				break
			}
		}

		if !matched {
			return false
		}
	}

	return true
}

func (c *comparator) equalStruct(a, b reflect.Value) bool {
	if !c.push(a, b) {
		return true
	}
	defer c.pop(a, b)

	t := a.Type()
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			continue
		}

		if !c.equal(a.Field(i), b.Field(i)) {
			return false
		}
	}

	return true
}

func (c *comparator) equalPointer(a, b reflect.Value) bool {
	if b.Kind() != reflect.Pointer {
		if c.strict || a.IsNil() {
			return false
		}

		return c.equal(a.Elem(), b)
	}

	if a.IsNil() || b.IsNil() {
		return a.IsNil() == b.IsNil()
	}

	if a.Pointer() == b.Pointer() {
		return true
	}

	if !c.push(a, b) {
		return true
	}
	defer c.pop(a, b)

	return c.equal(a.Elem(), b.Elem())
}

// push records the pair as in-flight. It returns false when the exact pair is
// already on the comparison stack, which breaks reference cycles: a pair that
// is being compared higher up the stack is treated as equal here.
func (c *comparator) push(a, b reflect.Value) bool {
	if !canCycle(a) || !canCycle(b) {
		return true
	}

	v := visit{a: a.Pointer(), b: b.Pointer(), typ: a.Type()}
	if c.visited[v] {
		return false
	}

	c.visited[v] = true

	return true
}

func (c *comparator) pop(a, b reflect.Value) {
	if !canCycle(a) || !canCycle(b) {
		return
	}

	delete(c.visited, visit{a: a.Pointer(), b: b.Pointer(), typ: a.Type()})
}

func canCycle(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		return true
	default:
		return false
	}
}

// equalLeaf compares non-container values.
func (c *comparator) equalLeaf(a, b reflect.Value) bool {
	an, aNum := numeric(a, !c.strict)
	bn, bNum := numeric(b, !c.strict)

	if aNum && bNum {
		return c.equalNumeric(an, bn)
	}

	if aNum != bNum {
		// Loose mode coerces booleans to 0/1 the way weak comparison does.
		if !c.strict {
			if ab, ok := boolNumber(a); ok && bNum {
				return c.equalNumeric(ab, bn)
			}

			if bb, ok := boolNumber(b); ok && aNum {
				return c.equalNumeric(an, bb)
			}
		}

		return false
	}

	if a.Type() != b.Type() {
		if c.strict {
			return false
		}

		if !a.Type().ConvertibleTo(b.Type()) {
			return false
		}

		a = a.Convert(b.Type())
	}

	if a.Kind() == reflect.Func {
		return a.IsNil() && b.IsNil()
	}

	if !a.Comparable() {
		return false
	}

	return a.Interface() == b.Interface()
}

// number carries a numeric leaf in a shape that preserves NaN and the sign
// of zero, which float64 alone would conflate with ordinary values.
type number struct {
	value   float64
	nan     bool
	negZero bool
}

func numeric(v reflect.Value, parseStrings bool) (number, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{value: float64(v.Int())}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{value: float64(v.Uint())}, true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) {
			return number{nan: true}, true
		}

		return number{value: f, negZero: f == 0 && math.Signbit(f)}, true
	case reflect.String:
		if !parseStrings {
			return number{}, false
		}

		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil || math.IsNaN(f) {
			return number{}, false
		}

		return number{value: f, negZero: f == 0 && math.Signbit(f)}, true
	default:
		return number{}, false
	}
}

func boolNumber(v reflect.Value) (number, bool) {
	if v.Kind() != reflect.Bool {
		return number{}, false
	}

	if v.Bool() {
		return number{value: 1}, true
	}

	return number{value: 0}, true
}

func (c *comparator) equalNumeric(a, b number) bool {
	if a.nan || b.nan {
		// Same-value semantics in both modes: NaN equals NaN.
		return a.nan == b.nan
	}

	if c.strict && a.value == 0 && b.value == 0 {
		// Strict mode distinguishes +0 from -0.
		return a.negZero == b.negZero
	}

	return a.value == b.value
}

func looseDecimal(v reflect.Value) (decimal.Decimal, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromUint64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}

		return decimal.NewFromFloat(f), true
	case reflect.String:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, false
		}

		return d, true
	default:
		return decimal.Decimal{}, false
	}
}
