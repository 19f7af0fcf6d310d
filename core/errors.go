package core

// These errors stop an evaluation.  Most of them become messages
// (and the value $Aborted) at the top level.  Only an internal error
// is reported as such in Evaluated.Error.

import (
	"errors"
	"strconv"

	"github.com/Comcast/mkernel/expr"
)

// LimitKind says which limit was exceeded.
type LimitKind int

const (
	IterationLimit LimitKind = iota
	RecursionLimit
)

// LimitExceeded occurs when an Evaluation goes past a Control limit.
type LimitExceeded struct {
	Kind  LimitKind
	Limit int
}

func (e *LimitExceeded) Error() string {
	switch e.Kind {
	case RecursionLimit:
		return "Recursion depth of " + strconv.Itoa(e.Limit) + " exceeded."
	default:
		return "Iteration limit of " + strconv.Itoa(e.Limit) + " exceeded."
	}
}

// Message returns the message that reports this error.
func (e *LimitExceeded) Message() *Message {
	switch e.Kind {
	case RecursionLimit:
		return &Message{Symbol: expr.SymRecursionLimit, Tag: "reclim", Text: e.Error()}
	default:
		return &Message{Symbol: expr.SymIterationLimit, Tag: "itlim", Text: e.Error()}
	}
}

// ArityError occurs when a Builtin gets the wrong number of
// arguments.  It doesn't stop anything: the Builtin emits it as a
// message and declines to rewrite.
type ArityError struct {
	Symbol expr.Symbol
	Got    int
	Want   int
}

func (e *ArityError) Error() string {
	return string(e.Symbol) + " called with " + strconv.Itoa(e.Got) + " arguments; " +
		strconv.Itoa(e.Want) + " arguments are expected."
}

// Message returns the message that reports this error.
func (e *ArityError) Message() *Message {
	return &Message{Symbol: e.Symbol, Tag: "argrx", Text: e.Error()}
}

var (
	// InterpreterNotFound occurs when you try to Compile a
	// BuiltinSource, and the required interpreter isn't in the
	// given map of interpreters.
	InterpreterNotFound = errors.New("interpreter not found")

	// NotAnInteger occurs when a limit is set to something that
	// isn't a positive Integer.
	NotAnInteger = errors.New("not a positive integer")
)
