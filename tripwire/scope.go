package tripwire

import (
	"context"
	"runtime"
	"sync"

	"github.com/google/uuid"
)

// PredicateFunc is the contract for predicate functions executed against a
// scope. A predicate signals its outcome through the scope's context (Eval,
// Fail, Fatal) rather than by constructing errors directly, so negation and
// stack filtering apply uniformly. The returned value controls chain
// continuation per the dispatcher rules: nil continues with a fresh default
// instance, a PredicateFunc becomes invokable, and an operation map is
// merged into the chain.
type PredicateFunc func(scope *Scope, args ...any) (any, error)

// Scope wraps exactly one Context at a time and dispatches predicate calls
// against it. It owns the chain's current instance and an entry-frame stack
// used purely for stack-trace filtering.
type Scope struct {
	id      string
	ctx     *Context
	that    *Chain
	goctx   context.Context
	baseOps map[string]Operation
	frames  []uintptr
}

// Option configures a Scope at creation.
type Option func(*Scope)

// WithContext attaches a context.Context used for observability on failure:
// span events and metric recording are emitted against it.
func WithContext(ctx context.Context) Option {
	return func(s *Scope) { s.goctx = ctx }
}

// WithSettings pins the scope's root context to the given settings instead
// of the process-wide default.
func WithSettings(settings *Settings) Option {
	return func(s *Scope) { s.ctx.settings = settings }
}

// NewScope creates an independent scope inspecting value.
func NewScope(value any, opts ...Option) *Scope {
	s := &Scope{
		id:      uuid.NewString(),
		ctx:     NewContext(value, nil),
		goctx:   context.Background(),
		baseOps: defaultOperations(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.that = s.defaultChain()

	return s
}

// ID returns the scope's correlation identifier, attached to failure logs.
func (s *Scope) ID() string { return s.id }

// Context returns the scope's current context.
func (s *Scope) Context() *Context { return s.ctx }

// That returns the chain's current instance.
func (s *Scope) That() *Chain { return s.that }

// NewScope creates a brand-new independent scope for an orthogonal
// sub-assertion against value, inheriting this scope's settings and
// context.Context but none of its chain state.
func (s *Scope) NewScope(value any) *Scope {
	child := NewScope(value, WithContext(s.goctx))
	child.ctx.settings = s.ctx.settings
	child.baseOps = s.baseOps

	return child
}

// UpdateCtx replaces the scope's context in place, continuing the same chain
// without object churn. Used for chain continuation such as negation or
// sub-value inspection.
func (s *Scope) UpdateCtx(ctx *Context) {
	if ctx != nil {
		s.ctx = ctx
	}
}

// Exec invokes a predicate against the scope. The call is recorded on the
// entry-frame stack (cosmetic, for stack filtering only), the predicate's
// returned instance is adopted as the chain's current instance, and any
// failure is observed (logged, traced, counted) before being returned.
func (s *Scope) Exec(fn PredicateFunc, args ...any) error {
	s.pushFrame()
	defer s.popFrame()

	result, err := fn(s, args...)
	if err != nil {
		s.observeFailure(err)
		return err
	}

	s.adopt(result)

	return nil
}

// adopt converts a predicate's return value into the chain's next current
// instance.
func (s *Scope) adopt(result any) {
	switch v := result.(type) {
	case nil:
		s.that = s.defaultChain()
	case *Chain:
		s.that = v
	case PredicateFunc:
		// calling the returned function re-enters the dispatcher
		next := s.defaultChain()
		next.invoke = v
		s.that = next
	case func(scope *Scope, args ...any) (any, error):
		next := s.defaultChain()
		next.invoke = v
		s.that = next
	case map[string]Operation:
		s.that = s.CreateOperation(v, s.defaultChain())
	default:
		next := s.defaultChain()
		next.result = v
		s.that = next
	}
}

func (s *Scope) defaultChain() *Chain {
	return &Chain{scope: s, ops: s.baseOps}
}

// pushFrame records the caller's program counter. The frame stack exists
// only so failure diagnostics can identify dispatcher entry points; it never
// affects evaluation.
func (s *Scope) pushFrame() {
	var pc [1]uintptr
	if runtime.Callers(3, pc[:]) > 0 {
		s.frames = append(s.frames, pc[0])
	}
}

func (s *Scope) popFrame() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// EntryFrames returns the program counters of the dispatcher entries
// currently on the stack.
func (s *Scope) EntryFrames() []uintptr {
	out := make([]uintptr, len(s.frames))
	copy(out, s.frames)

	return out
}

var (
	currentScope   *Scope
	currentScopeMu sync.Mutex
)

// UseScope installs s as the process-wide ambient scope for the duration of
// fn, restoring the immediately enclosing scope on return, error, or panic.
// Nested installations therefore behave correctly for recursively nested
// assertion blocks.
func UseScope(s *Scope, fn func() error) error {
	currentScopeMu.Lock()
	prev := currentScope
	currentScope = s
	currentScopeMu.Unlock()

	defer func() {
		currentScopeMu.Lock()
		currentScope = prev
		currentScopeMu.Unlock()
	}()

	return fn()
}

// CurrentScope returns the ambient scope installed by UseScope, or nil when
// none is active.
func CurrentScope() *Scope {
	currentScopeMu.Lock()
	defer currentScopeMu.Unlock()

	return currentScope
}
