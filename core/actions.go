package core

import (
	"context"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
)

var (
	// DefaultInterpreters will be used in BuiltinSource.Compile if
	// the given nil interpreters.
	DefaultInterpreters = NewInterpretersMap()
)

// Builtin is the Go-side definition of a symbol.  The evaluator tries
// a head's Builtin after its rules.
//
// Apply gets the expression with its arguments already evaluated
// (except those held by attributes).  It returns the replacement and
// true, or false to leave the expression alone.  An Apply that
// declines should still emit any message that explains why.
type Builtin interface {
	Apply(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error)
}

// BuiltinFunc is a Builtin implemented by a Go function.
type BuiltinFunc func(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error)

func (f BuiltinFunc) Apply(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	return f(ctx, e, x)
}

// Interpreter can optionally compile and execute code for Builtins.
type Interpreter interface {
	// Compile can make something that helps when Exec()ing the
	// code later.
	Compile(ctx context.Context, code interface{}) (interface{}, error)

	// Exec executes the code for the given expression.  The
	// result of previous Compile() might be provided.
	Exec(ctx context.Context, e *Evaluation, x *expr.Compound, code interface{}, compiled interface{}) (expr.Expr, bool, error)
}

// InterpretersMap maps interpreter names to Interpreters.
type InterpretersMap map[string]Interpreter

func NewInterpretersMap() InterpretersMap {
	return make(InterpretersMap, 4)
}

// BuiltinSource can be compiled to a Builtin.
type BuiltinSource struct {
	Interpreter string      `json:"interpreter,omitempty" yaml:",omitempty"`
	Source      interface{} `json:"source"`

	// Attributes are attribute names (like "Listable") that the
	// symbol should get when the Builtin is installed.
	Attributes []string `json:"attributes,omitempty" yaml:",omitempty"`
}

// Copy makes a shallow copy.
func (b *BuiltinSource) Copy() *BuiltinSource {
	if b == nil {
		return nil
	}
	as := make([]string, len(b.Attributes))
	copy(as, b.Attributes)
	return &BuiltinSource{
		Interpreter: b.Interpreter,
		Source:      b.Source,
		Attributes:  as,
	}
}

// Compile attempts to compile the BuiltinSource into a Builtin using
// the given interpreters, which defaults to DefaultInterpreters.
func (b *BuiltinSource) Compile(ctx context.Context, interpreters InterpretersMap) (Builtin, error) {
	if interpreters == nil {
		interpreters = DefaultInterpreters
	}

	interpreter, have := interpreters[b.Interpreter]
	if !have {
		return nil, InterpreterNotFound
	}

	x, err := interpreter.Compile(ctx, b.Source)
	if err != nil {
		return nil, err
	}

	return BuiltinFunc(func(ctx context.Context, e *Evaluation, c *expr.Compound) (expr.Expr, bool, error) {
		return interpreter.Exec(ctx, e, c, b.Source, x)
	}), nil
}

// Install compiles the BuiltinSource and installs it for the symbol.
func (ev *Evaluator) Install(ctx context.Context, s expr.Symbol, src *BuiltinSource, interpreters InterpretersMap) error {
	var as defs.Attributes
	for _, name := range src.Attributes {
		a, err := defs.ParseAttribute(expr.Symbol(name))
		if err != nil {
			return err
		}
		as |= a
	}
	b, err := src.Compile(ctx, interpreters)
	if err != nil {
		return err
	}
	ev.logf("Install %s (%s)", s, src.Interpreter)
	ev.SetBuiltin(s, b, as)
	return nil
}
