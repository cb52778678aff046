// Package format renders arbitrary values to display strings for assertion
// diagnostics.
//
// A Manager holds an ordered list of pluggable formatters plus a default
// renderer. Formatters are tried in registration order and report one of four
// outcomes (Ok, Continue, Skip, Failed); the default renderer handles
// whatever the pipeline does not claim. Rendering is cycle-safe: objects
// already being rendered on the active call stack are replaced by a
// configurable circular-reference placeholder.
package format

import (
	"fmt"
	"strings"
	"sync"
)

// Result is the outcome reported by a pluggable formatter.
type Result uint8

const (
	// Ok means the formatter produced the final string; the pipeline stops.
	Ok Result = iota
	// Continue means the formatter produced a value that is fed to the next
	// formatter in the chain, allowing transformations to accumulate.
	Continue
	// Skip means the formatter does not apply to this value.
	Skip
	// Failed means the formatter errored; the pipeline aborts and the
	// original value falls back to default rendering.
	Failed
)

// String returns the string representation of a pipeline result.
func (r Result) String() string {
	switch r {
	case Ok:
		return "ok"
	case Continue:
		return "continue"
	case Skip:
		return "skip"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Formatter is a named pluggable value formatter.
//
// Format receives the active render state and the value under formatting.
// The returned value is interpreted according to the Result: the final
// string for Ok, the next pipeline input for Continue, and ignored for Skip
// and Failed.
type Formatter struct {
	Name   string
	Format func(state *State, value any) (Result, any)
}

// PlaceholderFunc produces the circular-reference placeholder for the n-th
// cycle encountered within a single top-level render (n starts at 1).
type PlaceholderFunc func(n int) string

// DefaultPlaceholder is the circular-reference marker emitted when no custom
// placeholder is configured.
const DefaultPlaceholder = "[Circular]"

// Manager owns formatter registration and rendering configuration.
//
// A Manager is safe to share: the configuration is guarded by a mutex, and
// every top-level Format call carries its own render state so sibling
// renders of cyclic structures never interfere with each other.
type Manager struct {
	mu            sync.RWMutex
	formatters    []Formatter
	finalize      bool
	finalizeFn    func(string) string
	placeholder   string
	placeholderFn PlaceholderFunc
}

// NewManager creates a Manager with default configuration: no pluggable
// formatters, finalization enabled with control-character escaping, and the
// stock circular-reference placeholder.
func NewManager() *Manager {
	return &Manager{
		finalize:    true,
		finalizeFn:  EscapeControl,
		placeholder: DefaultPlaceholder,
	}
}

// Register appends a formatter to the pipeline. Registration order is
// evaluation order.
func (m *Manager) Register(f Formatter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.formatters = append(m.formatters, f)
}

// Formatters returns a copy of the registered formatter list.
func (m *Manager) Formatters() []Formatter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Formatter, len(m.formatters))
	copy(out, m.formatters)

	return out
}

// SetFormatters replaces the whole pipeline.
func (m *Manager) SetFormatters(formatters []Formatter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.formatters = make([]Formatter, len(formatters))
	copy(m.formatters, formatters)
}

// SetFinalize toggles the finalization step and optionally replaces the
// finalize function. Passing nil keeps the current function.
func (m *Manager) SetFinalize(enabled bool, fn func(string) string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.finalize = enabled
	if fn != nil {
		m.finalizeFn = fn
	}
}

// SetPlaceholder replaces the circular-reference placeholder text.
func (m *Manager) SetPlaceholder(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.placeholder = text
	m.placeholderFn = nil
}

// SetPlaceholderFunc installs a generator for circular-reference markers,
// taking precedence over the static placeholder text.
func (m *Manager) SetPlaceholderFunc(fn PlaceholderFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.placeholderFn = fn
}

// Reset restores the Manager to its default configuration.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.formatters = nil
	m.finalize = true
	m.finalizeFn = EscapeControl
	m.placeholder = DefaultPlaceholder
	m.placeholderFn = nil
}

// Clone returns an independent deep copy of the Manager. Mutating the clone
// (including its formatter list) never affects the original.
func (m *Manager) Clone() *Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clone := &Manager{
		formatters:    make([]Formatter, len(m.formatters)),
		finalize:      m.finalize,
		finalizeFn:    m.finalizeFn,
		placeholder:   m.placeholder,
		placeholderFn: m.placeholderFn,
	}
	copy(clone.formatters, m.formatters)

	return clone
}

// State carries the per-call rendering state: the cycle-detection stack and
// the placeholder counter. A fresh State is created for every top-level
// Format call.
type State struct {
	manager *Manager
	active  map[any]bool
	cycles  int

	// Ctx is an opaque reference to the assertion context that initiated the
	// render, made available to pluggable formatters.
	Ctx any
}

// Format renders value to its display string: the pluggable pipeline runs
// first, the default renderer covers the rest, and the finalize step (when
// enabled) is applied once to the fully assembled string.
func (m *Manager) Format(ctx any, value any) string {
	m.mu.RLock()
	formatters := m.formatters
	finalize := m.finalize
	finalizeFn := m.finalizeFn
	m.mu.RUnlock()

	state := &State{manager: m, active: make(map[any]bool), Ctx: ctx}
	out := state.format(formatters, value)

	if finalize && finalizeFn != nil {
		out = finalizeFn(out)
	}

	return out
}

func (s *State) format(formatters []Formatter, value any) string {
	current := value
	continued := false

	for _, f := range formatters {
		result, formatted := s.run(f, current)

		switch result {
		case Ok:
			return stringify(formatted)
		case Continue:
			current = formatted
			continued = true
		case Skip:
			// try the next formatter against the current value
		case Failed:
			// a failing custom formatter must never corrupt the output
			return s.renderDefault(value)
		}
	}

	// A Continue chain that reaches the end already produced a rendered
	// string; default-rendering it again would re-quote it.
	if continued {
		if str, ok := current.(string); ok {
			return str
		}
	}

	return s.renderDefault(current)
}

// run invokes a single formatter, converting panics into a Failed result so
// a broken formatter cannot abort the assertion being reported.
func (s *State) run(f Formatter, value any) (result Result, formatted any) {
	defer func() {
		if recover() != nil {
			result = Failed
			formatted = nil
		}
	}()

	if f.Format == nil {
		return Skip, nil
	}

	return f.Format(s, value)
}

func stringify(v any) string {
	if str, ok := v.(string); ok {
		return str
	}

	return fmt.Sprint(v)
}

// placeholder returns the circular-reference marker for the next cycle
// occurrence within this render.
func (s *State) placeholder() string {
	s.cycles++

	s.manager.mu.RLock()
	defer s.manager.mu.RUnlock()

	if s.manager.placeholderFn != nil {
		return s.manager.placeholderFn(s.cycles)
	}

	return s.manager.placeholder
}

// EscapeControl is the default finalize function: it escapes control
// characters (including ANSI escape sequences) so raw bytes embedded in
// values stay human-safe on a terminal.
func EscapeControl(s string) string {
	if !strings.ContainsFunc(s, isControl) {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 8)

	for _, r := range s {
		switch {
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r == 0x1b:
			sb.WriteString(`\x1b`)
		case isControl(r):
			fmt.Fprintf(&sb, `\x%02x`, r)
		default:
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
