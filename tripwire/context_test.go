//go:build unit

package tripwire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestContext_EvalPass verifies a passing evaluation returns nil with no
// side effects.
func TestContext_EvalPass(t *testing.T) {
	t.Parallel()

	ctx := NewContext(5, NewSettings())
	require.NoError(t, ctx.Eval(true, "expected {actual} to be ok"))
}

// TestContext_EvalFail verifies a failing evaluation resolves the template
// into a Failure.
func TestContext_EvalFail(t *testing.T) {
	t.Parallel()

	ctx := NewContext(5, NewSettings())
	err := ctx.Eval(false, "expected {actual} to be ok")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAssertion)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "expected 5 to be ok", failure.Message)
	assert.Equal(t, 5, failure.Actual())
	assert.True(t, failure.ShowDiff())
}

// TestContext_EvalDefaultTemplate verifies the settings default message is
// used when the caller supplies no template.
func TestContext_EvalDefaultTemplate(t *testing.T) {
	t.Parallel()

	ctx := NewContext("x", NewSettings())
	err := ctx.Eval(false, "")
	require.Error(t, err)
	assert.Equal(t, `expected "x" to satisfy the assertion`, err.Error())
}

// TestContext_Negation verifies the negation flag inverts Eval's condition
// and prefixes the message.
func TestContext_Negation(t *testing.T) {
	t.Parallel()

	ctx := NewContext(5, NewSettings()).Not()

	// a passing condition fails under negation
	err := ctx.Eval(true, "expected {actual} to be ok")
	require.Error(t, err)
	assert.Equal(t, "not expected 5 to be ok", err.Error())

	// a failing condition passes under negation
	require.NoError(t, ctx.Eval(false, "expected {actual} to be ok"))
}

// TestContext_NegationCumulative verifies repeated negation is cumulative
// and textual: each toggle adds a "not " marker, never collapsed.
func TestContext_NegationCumulative(t *testing.T) {
	t.Parallel()

	ctx := NewContext(5, NewSettings()).Not().Not()
	require.False(t, ctx.Negated())

	err := ctx.Eval(false, "expected {actual} to be ok")
	require.Error(t, err)
	assert.Equal(t, "not not expected 5 to be ok", err.Error())
}

// TestContext_DetailInheritance verifies child contexts resolve tokens
// through their ancestors and may shadow them.
func TestContext_DetailInheritance(t *testing.T) {
	t.Parallel()

	parent := NewContext(1, NewSettings())
	parent.Set("expected", 10)

	child := parent.New(2, nil)

	err := child.Eval(false, "expected {actual} to equal {expected}")
	require.Error(t, err)
	assert.Equal(t, "expected 2 to equal 10", err.Error())

	child.Set("expected", 20)

	err = child.Eval(false, "expected {actual} to equal {expected}")
	require.Error(t, err)
	assert.Equal(t, "expected 2 to equal 20", err.Error())

	// the parent's token is untouched by the shadow
	err = parent.Eval(false, "expected {actual} to equal {expected}")
	require.Error(t, err)
	assert.Equal(t, "expected 1 to equal 10", err.Error())
}

// TestContext_SetOverwrite verifies re-setting a token in the same context
// overwrites it.
func TestContext_SetOverwrite(t *testing.T) {
	t.Parallel()

	ctx := NewContext(1, NewSettings())
	ctx.Set("expected", 10)
	ctx.Set("expected", 11)

	err := ctx.Eval(false, "want {expected}")
	require.Error(t, err)
	assert.Equal(t, "want 11", err.Error())
}

// TestContext_UnknownToken verifies unknown tokens stay literal.
func TestContext_UnknownToken(t *testing.T) {
	t.Parallel()

	ctx := NewContext(1, NewSettings())
	err := ctx.Eval(false, "missing {nope} stays")
	require.Error(t, err)
	assert.Equal(t, "missing {nope} stays", err.Error())
}

// TestContext_MessageOverrideChain verifies message overrides decorate the
// parent's resolution in ancestor-to-descendant order.
func TestContext_MessageOverrideChain(t *testing.T) {
	t.Parallel()

	root := NewContext(1, NewSettings())
	mid := root.New(1, &Overrides{
		GetMessage: func(parent MessageFunc, evalMsg string) string {
			return "[mid " + parent(evalMsg) + "]"
		},
	})
	leaf := mid.New(1, &Overrides{
		GetMessage: func(parent MessageFunc, evalMsg string) string {
			return "[leaf " + parent(evalMsg) + "]"
		},
	})

	assert.Equal(t, "[leaf [mid base]]", leaf.GetMessage("base"))
}

// TestContext_EvalOverride verifies eval overrides receive the parent
// implementation and may wrap it.
func TestContext_EvalOverride(t *testing.T) {
	t.Parallel()

	calls := 0
	ctx := NewContext(1, NewSettings()).New(1, &Overrides{
		Eval: func(parent EvalFunc, ok bool, template string) error {
			calls++
			return parent(ok, template)
		},
	})

	require.NoError(t, ctx.Eval(true, ""))
	require.Error(t, ctx.Eval(false, ""))
	assert.Equal(t, 2, calls)
}

// TestContext_DetailsOverride verifies details overrides decorate the base
// payload.
func TestContext_DetailsOverride(t *testing.T) {
	t.Parallel()

	ctx := NewContext(1, NewSettings()).New(2, &Overrides{
		GetDetails: func(parent DetailsFunc) Details {
			d := parent()
			d.Operator = "custom"
			d.ShowDiff = false

			return d
		},
	})

	d := ctx.GetDetails()
	assert.Equal(t, 2, d.Actual)
	assert.Equal(t, "custom", d.Operator)
	assert.False(t, d.ShowDiff)
}

// TestContext_BaseDetails verifies the minimum payload and the expected and
// operator tokens feeding into it.
func TestContext_BaseDetails(t *testing.T) {
	t.Parallel()

	ctx := NewContext("v", NewSettings())
	d := ctx.GetDetails()
	assert.Equal(t, "v", d.Actual)
	assert.True(t, d.ShowDiff)
	assert.Nil(t, d.Expected)

	ctx.Set("expected", 9)
	ctx.Set("operator", "equal")

	d = ctx.GetDetails()
	assert.Equal(t, 9, d.Expected)
	assert.Equal(t, "equal", d.Operator)
}

// TestContext_FailBypassesNegation verifies negation never suppresses an
// explicit Fail or Fatal.
func TestContext_FailBypassesNegation(t *testing.T) {
	t.Parallel()

	ctx := NewContext(1, NewSettings()).Not()

	err := ctx.Fail("gave up on {actual}", nil)
	require.Error(t, err)
	assert.Equal(t, "gave up on 1", err.Error())
	assert.True(t, IsFailure(err))
	assert.False(t, IsFatal(err))

	fatalErr := ctx.Fatal("", nil)
	require.Error(t, fatalErr)
	assert.Equal(t, DefaultFatalMessage, fatalErr.Error())
	assert.True(t, IsFatal(fatalErr))
}

// TestContext_FailExplicitDetails verifies caller-supplied details replace
// the derived payload.
func TestContext_FailExplicitDetails(t *testing.T) {
	t.Parallel()

	ctx := NewContext(1, NewSettings())
	err := ctx.Fail("boom", &Details{Actual: "a", Expected: "b", Operator: "cmp"})

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "a", failure.Actual())
	assert.Equal(t, "b", failure.Expected())
	assert.Equal(t, "cmp", failure.Operator())
}

// TestContext_BaseMessage verifies the context-level message is combined
// with the call-site message.
func TestContext_BaseMessage(t *testing.T) {
	t.Parallel()

	ctx := NewContext(1, NewSettings())
	ctx.SetMessage("user lookup")

	err := ctx.Eval(false, "expected {actual} to exist")
	require.Error(t, err)
	assert.Equal(t, "user lookup: expected 1 to exist", err.Error())
}

// TestContext_ValueImmutable verifies New replaces the value only in the
// descendant.
func TestContext_ValueImmutable(t *testing.T) {
	t.Parallel()

	parent := NewContext(1, NewSettings())
	child := parent.New(2, nil)

	assert.Equal(t, 1, parent.Value())
	assert.Equal(t, 2, child.Value())
	assert.False(t, errors.Is(child.Eval(true, ""), ErrAssertion))
}

// TestContext_EvalWithoutFormatManager verifies a hand-built Settings with no
// format manager still resolves templates.
func TestContext_EvalWithoutFormatManager(t *testing.T) {
	t.Parallel()

	ctx := NewContext(7, &Settings{
		DefaultMessage:      DefaultMessage,
		DefaultFatalMessage: DefaultFatalMessage,
	})

	err := ctx.Eval(false, "expected {actual} to be absent")
	require.Error(t, err)
	assert.Equal(t, "expected 7 to be absent", err.Error())
}
