package noop

import (
	"context"
	"log"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/expr"
)

// Interpreter is a core.Interpreter whose Builtins never rewrite
// anything.
type Interpreter struct {
	// Silent, if true, will suppress warning log messages.
	Silent bool
}

func (i *Interpreter) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	if !i.Silent {
		log.Printf("warning: Using noop Interpreter for compilation")
	}
	return nil, nil
}

func (i *Interpreter) Exec(ctx context.Context, e *core.Evaluation, x *expr.Compound, code interface{}, compiled interface{}) (expr.Expr, bool, error) {
	if !i.Silent {
		log.Printf("warning: Using noop Interpreter for %s", x)
	}
	return nil, false, nil
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// Interpreters stands in for every interpreter, which is handy when
// loading definitions just to look at them.
type Interpreters struct {
	I *Interpreter
}

func NewInterpreters() *Interpreters {
	return &Interpreters{
		I: &Interpreter{},
	}
}

// Find returns the noop Interpreter regardless of the name.
func (is *Interpreters) Find(name string) core.Interpreter {
	return is.I
}

// Map makes an InterpretersMap that maps each name to the noop
// Interpreter.
func (is *Interpreters) Map(names ...string) core.InterpretersMap {
	m := core.NewInterpretersMap()
	for _, name := range names {
		m[name] = is.I
	}
	return m
}
