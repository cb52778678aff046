package tripwire

import (
	"strings"

	"github.com/nevware21/tripwire-sub002/tripwire/format"
)

// EvalFunc is the signature of a context's condition evaluation.
type EvalFunc func(ok bool, template string) error

// MessageFunc is the signature of a context's message resolution.
type MessageFunc func(evalMsg string) string

// DetailsFunc is the signature of a context's details resolution.
type DetailsFunc func() Details

// Overrides supplies optional behavior layered on top of a parent context
// when creating a child. Each override receives the parent implementation to
// call into, forming a decorator chain: a derived context can wrap the
// inherited behavior without re-deriving it.
type Overrides struct {
	Eval       func(parent EvalFunc, ok bool, template string) error
	GetMessage func(parent MessageFunc, evalMsg string) string
	GetDetails func(parent DetailsFunc) Details
}

// Context threads the current value, the negation flag, and the
// message-resolution data through an assertion chain.
//
// Contexts are immutable value holders: the value is never mutated, only
// replaced by creating a descendant via New. Recorded details are inherited
// by read-through: a child's token lookup falls back to its parent when the
// token is absent locally, and a child may shadow a parent token.
type Context struct {
	parent    *Context
	value     any
	negated   bool
	message   string
	details   map[string]any
	overrides Overrides
	settings  *Settings
}

// NewContext creates a root context for the given value. A nil settings
// falls back to the process-wide default at evaluation time.
func NewContext(value any, settings *Settings) *Context {
	return &Context{value: value, settings: settings}
}

// Value returns the current value under inspection.
func (c *Context) Value() any { return c.value }

// Negated reports the current negation flag.
func (c *Context) Negated() bool { return c.negated }

// Settings returns the effective settings for this context.
func (c *Context) Settings() *Settings {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if ctx.settings != nil {
			return ctx.settings
		}
	}

	return Default()
}

// New creates a descendant context holding value, sharing this context's
// token map by read-through inheritance, with the optional overrides layered
// on top of (not replacing) this context's behavior. The negation flag is
// inherited.
func (c *Context) New(value any, overrides *Overrides) *Context {
	child := &Context{
		parent:  c,
		value:   value,
		negated: c.negated,
	}

	if overrides != nil {
		child.overrides = *overrides
	}

	return child
}

// Not creates a descendant with the negation flag toggled and a "not "
// marker prepended to resolved messages. Toggles are cumulative and
// observable: negating twice yields a "not not " prefix, not a no-op.
func (c *Context) Not() *Context {
	child := c.New(c.value, &Overrides{
		GetMessage: func(parent MessageFunc, evalMsg string) string {
			return "not " + parent(evalMsg)
		},
	})
	child.negated = !c.negated

	return child
}

// Set records a token for later {token} substitution in failure messages.
// Setting an existing token in the same context overwrites it; messages
// already produced are unaffected.
func (c *Context) Set(token string, value any) {
	if c.details == nil {
		c.details = make(map[string]any)
	}

	c.details[token] = value
}

// SetMessage sets the context-level base message combined into resolved
// failure messages.
func (c *Context) SetMessage(message string) {
	c.message = message
}

// lookup resolves a token in this context, falling back through ancestors.
func (c *Context) lookup(token string) (any, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if v, ok := ctx.details[token]; ok {
			return v, true
		}
	}

	if token == "actual" {
		return c.value, true
	}

	return nil, false
}

// Eval resolves the effective condition (inverting ok when negated) and, if
// it is falsy, resolves template (or the settings default) into a message by
// token substitution and returns a *Failure. A passing evaluation returns
// nil with no side effects.
func (c *Context) Eval(ok bool, template string) error {
	return c.evalFrom(c, ok, template)
}

func (c *Context) evalFrom(origin *Context, ok bool, template string) error {
	parent := func(ok bool, template string) error {
		if c.parent != nil {
			return c.parent.evalFrom(origin, ok, template)
		}

		return origin.baseEval(ok, template)
	}

	if c.overrides.Eval != nil {
		return c.overrides.Eval(parent, ok, template)
	}

	return parent(ok, template)
}

// baseEval is the root evaluation behavior: it applies the originating
// context's negation flag and converts a falsy outcome into a Failure.
func (c *Context) baseEval(ok bool, template string) error {
	effective := ok
	if c.negated {
		effective = !ok
	}

	if effective {
		return nil
	}

	if template == "" {
		template = c.Settings().DefaultMessage
	}

	return NewFailure(c.GetMessage(c.resolveTemplate(template)), c.GetDetails())
}

// GetMessage combines the context-level base message with an optional
// call-site message, applying message overrides in ancestor-to-descendant
// order: each override is handed the parent's resolved message and may wrap
// it without knowing the rest of the chain.
func (c *Context) GetMessage(evalMsg string) string {
	parent := func(msg string) string {
		if c.parent != nil {
			return c.parent.GetMessage(msg)
		}

		return c.baseMessage(msg)
	}

	if c.overrides.GetMessage != nil {
		return c.overrides.GetMessage(parent, evalMsg)
	}

	return parent(evalMsg)
}

func (c *Context) baseMessage(evalMsg string) string {
	base := c.contextMessage()

	switch {
	case base == "":
		return evalMsg
	case evalMsg == "":
		return base
	default:
		return base + ": " + evalMsg
	}
}

// contextMessage returns the nearest base message up the ancestry.
func (c *Context) contextMessage() string {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if ctx.message != "" {
			return ctx.message
		}
	}

	return ""
}

// GetDetails resolves the failure payload, applying details overrides the
// same way GetMessage applies message overrides. The base payload always
// includes at minimum the current value as Actual and ShowDiff set to true.
func (c *Context) GetDetails() Details {
	return c.detailsFrom(c)
}

func (c *Context) detailsFrom(origin *Context) Details {
	parent := func() Details {
		if c.parent != nil {
			return c.parent.detailsFrom(origin)
		}

		return origin.baseDetails()
	}

	if c.overrides.GetDetails != nil {
		return c.overrides.GetDetails(parent)
	}

	return parent()
}

func (c *Context) baseDetails() Details {
	details := Details{Actual: c.value, ShowDiff: true}

	if v, ok := c.lookup("expected"); ok {
		details.Expected = v
	}

	if v, ok := c.lookup("operator"); ok {
		if op, isString := v.(string); isString {
			details.Operator = op
		}
	}

	return details
}

// Fail unconditionally returns a *Failure with the given message (after
// token substitution) and details. Negation never suppresses Fail; only
// Eval's boolean-condition path is negation-aware.
func (c *Context) Fail(message string, details *Details) error {
	if message == "" {
		message = c.Settings().DefaultMessage
	}

	d := c.GetDetails()
	if details != nil {
		d = *details
	}

	return NewFailure(c.resolveTemplate(message), d)
}

// Fatal unconditionally returns a *Fatal signaling the chain cannot
// meaningfully continue. Negation never suppresses Fatal.
func (c *Context) Fatal(message string, details *Details) error {
	if message == "" {
		message = c.Settings().DefaultFatalMessage
	}

	d := c.GetDetails()
	if details != nil {
		d = *details
	}

	return NewFatal(c.resolveTemplate(message), d)
}

// resolveTemplate substitutes {token} placeholders using values recorded in
// this context (falling back through ancestors), formatting each value with
// the configured format manager. Unknown tokens are left literal.
func (c *Context) resolveTemplate(template string) string {
	if !strings.ContainsRune(template, '{') {
		return template
	}

	// Hand-built Settings may leave Format unset.
	manager := c.Settings().Format
	if manager == nil {
		manager = format.NewManager()
	}

	var sb strings.Builder
	sb.Grow(len(template) + 16)

	for i := 0; i < len(template); {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			sb.WriteString(template[i:])
			break
		}

		open += i
		sb.WriteString(template[i:open])

		end := strings.IndexByte(template[open:], '}')
		if end < 0 {
			sb.WriteString(template[open:])
			break
		}

		end += open
		token := template[open+1 : end]

		if value, ok := c.lookup(token); ok {
			sb.WriteString(manager.Format(c, value))
		} else {
			sb.WriteString(template[open : end+1])
		}

		i = end + 1
	}

	return sb.String()
}
