package tripwire

import "strconv"

// Operation declares a single chainable entry: ScopeFn entries become
// callable operations dispatched through Exec, PropFn entries are accessors
// evaluated immediately when the property is read via Get.
type Operation struct {
	ScopeFn PredicateFunc
	PropFn  func(scope *Scope) (any, error)
}

// bannedOperationNames are chain-infrastructure names that declarative
// operation maps may not shadow.
var bannedOperationNames = map[string]bool{
	"call":  true,
	"get":   true,
	"err":   true,
	"scope": true,
}

// Chain is the eager builder returned to callers for fluent chaining. Each
// operation dispatches immediately; a failure is latched into the chain and
// short-circuits every subsequent operation, surfacing through Err.
//
// This is a deliberate API-shape change from lazy property accessors:
// zero-argument operations are methods (or Get reads), not getter traps.
type Chain struct {
	scope  *Scope
	ops    map[string]Operation
	invoke PredicateFunc
	result any
	err    error
}

// CreateOperation builds (or augments) a chain from a declarative operation
// map. Banned and empty names are ignored. Passing a nil target creates a
// fresh chain bound to this scope.
func (s *Scope) CreateOperation(defs map[string]Operation, target *Chain) *Chain {
	if target == nil {
		target = &Chain{scope: s, ops: make(map[string]Operation)}
	}

	merged := make(map[string]Operation, len(target.ops)+len(defs))
	for name, op := range target.ops {
		merged[name] = op
	}

	for name, op := range defs {
		if name == "" || bannedOperationNames[name] {
			continue
		}

		merged[name] = op
	}

	target.ops = merged

	return target
}

// Call dispatches the named operation with the given arguments and returns
// the chain's next instance. An unknown name is a fatal misuse.
func (c *Chain) Call(name string, args ...any) *Chain {
	if c.err != nil {
		return c
	}

	op, ok := c.ops[name]
	if !ok || op.ScopeFn == nil {
		c.err = c.fatal("unknown operation " + strconv.Quote(name))
		return c
	}

	return c.dispatch(op.ScopeFn, args...)
}

// Get reads the named operation as a property: PropFn entries are evaluated
// immediately, and ScopeFn entries degrade to a zero-argument call.
func (c *Chain) Get(name string) *Chain {
	if c.err != nil {
		return c
	}

	op, ok := c.ops[name]
	if !ok {
		c.err = c.fatal("unknown operation " + strconv.Quote(name))
		return c
	}

	if op.PropFn == nil {
		if op.ScopeFn == nil {
			c.err = c.fatal("operation " + strconv.Quote(name) + " is not readable")
			return c
		}

		return c.dispatch(op.ScopeFn)
	}

	return c.dispatch(func(s *Scope, _ ...any) (any, error) {
		return op.PropFn(s)
	})
}

// Invoke calls the function a previous predicate returned, re-entering the
// dispatcher. Invoking a chain with no pending function is a fatal misuse.
func (c *Chain) Invoke(args ...any) *Chain {
	if c.err != nil {
		return c
	}

	if c.invoke == nil {
		c.err = c.fatal("chain is not invokable")
		return c
	}

	return c.dispatch(c.invoke, args...)
}

func (c *Chain) dispatch(fn PredicateFunc, args ...any) *Chain {
	if err := c.scope.Exec(fn, args...); err != nil {
		c.err = err
		return c
	}

	return c.scope.That()
}

// fatal builds a dispatcher-misuse error and records it for observability.
func (c *Chain) fatal(message string) error {
	err := c.scope.Context().Fatal(message, nil)
	c.scope.observeFailure(err)

	return err
}

// Err returns the first failure latched into the chain, or nil when every
// operation so far has passed.
func (c *Chain) Err() error { return c.err }

// Result returns the plain value produced by the most recent predicate, if
// any.
func (c *Chain) Result() any { return c.result }

// Scope returns the chain's scope.
func (c *Chain) Scope() *Scope { return c.scope }
