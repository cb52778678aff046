//go:build unit

package tripwire

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUseScope_Restore verifies nested installs restore the immediately
// enclosing scope on normal return.
func TestUseScope_Restore(t *testing.T) {
	outer := NewScope("outer")
	inner := NewScope("inner")

	err := UseScope(outer, func() error {
		require.Same(t, outer, CurrentScope())

		return UseScope(inner, func() error {
			require.Same(t, inner, CurrentScope())
			return nil
		})
	})

	require.NoError(t, err)
	assert.Nil(t, CurrentScope())
}

// TestUseScope_RestoreOnError verifies restoration when the inner callback
// returns an error.
func TestUseScope_RestoreOnError(t *testing.T) {
	outer := NewScope("outer")
	inner := NewScope("inner")
	boom := errors.New("boom")

	err := UseScope(outer, func() error {
		innerErr := UseScope(inner, func() error {
			return boom
		})
		require.ErrorIs(t, innerErr, boom)
		require.Same(t, outer, CurrentScope())

		return innerErr
	})

	require.ErrorIs(t, err, boom)
	assert.Nil(t, CurrentScope())
}

// TestUseScope_RestoreOnPanic verifies restoration when the inner callback
// panics.
func TestUseScope_RestoreOnPanic(t *testing.T) {
	outer := NewScope("outer")
	inner := NewScope("inner")

	_ = UseScope(outer, func() error {
		func() {
			defer func() { _ = recover() }()

			_ = UseScope(inner, func() error {
				panic("kaboom")
			})
		}()

		require.Same(t, outer, CurrentScope())

		return nil
	})

	assert.Nil(t, CurrentScope())
}

// TestScope_ExecAdoptsNil verifies a predicate returning nothing yields a
// fresh default instance for implicit chain continuation.
func TestScope_ExecAdoptsNil(t *testing.T) {
	t.Parallel()

	s := NewScope(5)
	before := s.That()

	require.NoError(t, s.Exec(func(_ *Scope, _ ...any) (any, error) {
		return nil, nil
	}))

	after := s.That()
	require.NotSame(t, before, after)
	require.NoError(t, after.Ok().Err())
}

// TestScope_ExecAdoptsFunction verifies a predicate returning a function
// makes the chain invokable, re-entering the dispatcher.
func TestScope_ExecAdoptsFunction(t *testing.T) {
	t.Parallel()

	s := NewScope(5)
	invoked := false

	require.NoError(t, s.Exec(func(_ *Scope, _ ...any) (any, error) {
		return PredicateFunc(func(inner *Scope, args ...any) (any, error) {
			invoked = true
			return nil, inner.Context().Eval(len(args) == 1, "expected one argument")
		}), nil
	}))

	chain := s.That().Invoke("arg")
	require.NoError(t, chain.Err())
	assert.True(t, invoked)
}

// TestScope_ExecAdoptsOperationMap verifies a predicate returning an
// operation map augments the chain with lazily dispatched entries.
func TestScope_ExecAdoptsOperationMap(t *testing.T) {
	t.Parallel()

	s := NewScope(5)

	require.NoError(t, s.Exec(func(_ *Scope, _ ...any) (any, error) {
		return map[string]Operation{
			"positive": {ScopeFn: func(inner *Scope, _ ...any) (any, error) {
				n, _ := inner.Context().Value().(int)
				return nil, inner.Context().Eval(n > 0, "expected {actual} to be positive")
			}},
		}, nil
	}))

	require.NoError(t, s.That().Call("positive").Err())

	// built-in operations survive the augmentation
	require.NoError(t, s.That().Call("ok").Err())
}

// TestScope_ExecAdoptsPlainValue verifies other return values surface via
// Result.
func TestScope_ExecAdoptsPlainValue(t *testing.T) {
	t.Parallel()

	s := NewScope(5)

	require.NoError(t, s.Exec(func(_ *Scope, _ ...any) (any, error) {
		return 42, nil
	}))

	assert.Equal(t, 42, s.That().Result())
}

// TestScope_NewScope verifies sub-scopes are independent: a failing child
// never contaminates the parent chain.
func TestScope_NewScope(t *testing.T) {
	t.Parallel()

	parent := NewScope(5)
	child := parent.NewScope(0)

	require.Error(t, child.That().Ok().Err())
	require.NoError(t, parent.That().Ok().Err())
	assert.NotEqual(t, parent.ID(), child.ID())
}

// TestScope_UpdateCtx verifies in-place context continuation.
func TestScope_UpdateCtx(t *testing.T) {
	t.Parallel()

	s := NewScope(5)
	s.UpdateCtx(s.Context().New(6, nil))

	assert.Equal(t, 6, s.Context().Value())

	s.UpdateCtx(nil)
	assert.Equal(t, 6, s.Context().Value())
}

// TestScope_EntryFrames verifies dispatcher entries are recorded while a
// predicate runs and unwound afterwards.
func TestScope_EntryFrames(t *testing.T) {
	t.Parallel()

	s := NewScope(5)

	var during int

	require.NoError(t, s.Exec(func(inner *Scope, _ ...any) (any, error) {
		during = len(inner.EntryFrames())
		return nil, nil
	}))

	assert.Equal(t, 1, during)
	assert.Empty(t, s.EntryFrames())
}

// TestScope_WithContext verifies the observability context is threaded into
// sub-scopes.
func TestScope_WithContext(t *testing.T) {
	t.Parallel()

	type key struct{}

	ctx := context.WithValue(context.Background(), key{}, "v")
	s := NewScope(1, WithContext(ctx))
	child := s.NewScope(2)

	assert.Equal(t, "v", child.goctx.Value(key{}))
}

// TestScope_WithSettings verifies scope-local settings take precedence over
// the process default.
func TestScope_WithSettings(t *testing.T) {
	t.Parallel()

	settings := NewSettings()
	settings.DefaultMessage = "custom default"

	s := NewScope(0, WithSettings(settings))
	err := s.Context().Eval(false, "")

	require.Error(t, err)
	assert.Equal(t, "custom default", err.Error())
}
