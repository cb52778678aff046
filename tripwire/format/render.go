package format

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// renderDefault renders a value with the built-in rules. It is used when no
// pluggable formatter claims the value and as the fallback for Failed
// pipeline outcomes.
func (s *State) renderDefault(value any) string {
	return s.render(reflect.ValueOf(value))
}

//nolint:gocyclo // rendering is a single flat dispatch over kinds
func (s *State) render(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}

	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "nil"
		}

		v = v.Elem()
	}

	if out, ok := s.renderSpecial(v); ok {
		return out
	}

	switch v.Kind() {
	case reflect.String:
		return strconv.Quote(v.String())
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case reflect.Complex64, reflect.Complex128:
		return strconv.FormatComplex(v.Complex(), 'g', -1, 128)
	case reflect.Slice, reflect.Array:
		return s.renderSequence(v)
	case reflect.Map:
		return s.renderMap(v)
	case reflect.Struct:
		return s.renderStruct(v)
	case reflect.Pointer:
		return s.renderPointer(v)
	case reflect.Func:
		return "[Function]"
	case reflect.Chan:
		return "[Chan]"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

// renderSpecial covers types with a dedicated tagged rendering.
func (s *State) renderSpecial(v reflect.Value) (string, bool) {
	switch v.Type() {
	case reflect.TypeOf(time.Time{}):
		t, _ := v.Interface().(time.Time)
		return "Date:" + t.Format(time.RFC3339Nano), true
	case reflect.TypeOf((*regexp.Regexp)(nil)):
		re, _ := v.Interface().(*regexp.Regexp)
		if re == nil {
			return "nil", true
		}

		return "/" + re.String() + "/", true
	case reflect.TypeOf(decimal.Decimal{}):
		d, _ := v.Interface().(decimal.Decimal)
		return d.String(), true
	default:
		return "", false
	}
}

func (s *State) renderSequence(v reflect.Value) string {
	if v.Kind() == reflect.Slice {
		if v.IsNil() {
			return "nil"
		}

		done, marker := s.enter(v)
		if done == nil {
			return marker
		}
		defer done()
	}

	parts := make([]string, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		parts = append(parts, s.render(v.Index(i)))
	}

	return "[" + strings.Join(parts, ",") + "]"
}

// renderMap renders maps with keys sorted by their rendered form. Go map
// iteration order is randomized, so sorting keeps the output deterministic.
func (s *State) renderMap(v reflect.Value) string {
	if v.IsNil() {
		return "nil"
	}

	done, marker := s.enter(v)
	if done == nil {
		return marker
	}
	defer done()

	entries := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		entries = append(entries, s.render(k)+":"+s.render(v.MapIndex(k)))
	}

	sort.Strings(entries)

	return "Map:{" + strings.Join(entries, ",") + "}"
}

func (s *State) renderStruct(v reflect.Value) string {
	t := v.Type()
	parts := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		parts = append(parts, field.Name+":"+s.render(v.Field(i)))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

func (s *State) renderPointer(v reflect.Value) string {
	if v.IsNil() {
		return "nil"
	}

	done, marker := s.enter(v)
	if done == nil {
		return marker
	}
	defer done()

	return s.render(v.Elem())
}

// enter pushes a container onto the active render stack. When the container
// is already on the stack a circular-reference placeholder is returned
// instead, and the caller must not recurse.
func (s *State) enter(v reflect.Value) (func(), string) {
	key := v.Pointer()
	if s.active[key] {
		return nil, s.placeholder()
	}

	s.active[key] = true

	return func() { delete(s.active, key) }, ""
}
