package core

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
	"github.com/Comcast/mkernel/match"
	"github.com/Comcast/mkernel/normal"
)

var (
	// MessagesInitialCap is the initial capacity for slices of
	// emitted messages.
	MessagesInitialCap = 4

	// DefaultControl will be used by NewEvaluator if the given
	// control is nil.
	DefaultControl = &Control{
		IterationLimit: 4096,
		RecursionLimit: 1024,
	}
)

// StopReason represents the possible reasons for an evaluation to
// terminate.
type StopReason int

const (
	Done          StopReason = iota // Reached a fixed point.
	Limited                         // Too many iterations or too deep.
	Aborted                         // Context canceled.
	InternalError                   // What else to do?
)

func (r StopReason) String() string {
	switch r {
	case Done:
		return "Done"
	case Limited:
		return "Limited"
	case Aborted:
		return "Aborted"
	case InternalError:
		return "InternalError"
	}
	return "StopReason?"
}

func (r StopReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// Control influences how Evaluate() operates.
//
// A limit that isn't positive means no limit.
type Control struct {
	// IterationLimit is the maximum number of rewrites in one
	// top-level evaluation.
	IterationLimit int `json:"iterationLimit" yaml:"iterationLimit"`

	// RecursionLimit is the maximum depth of nested evaluations.
	RecursionLimit int `json:"recursionLimit" yaml:"recursionLimit"`
}

func (c *Control) Copy() *Control {
	return &Control{
		IterationLimit: c.IterationLimit,
		RecursionLimit: c.RecursionLimit,
	}
}

// Message is a diagnostic emitted during evaluation.
type Message struct {
	Symbol expr.Symbol `json:"symbol"`
	Tag    string      `json:"tag"`
	Text   string      `json:"text"`
}

func (m *Message) String() string {
	return string(m.Symbol) + "::" + m.Tag + ": " + m.Text
}

// Evaluated is the result of one top-level evaluation.
type Evaluated struct {
	// Value is the final expression, which is $Aborted if the
	// evaluation didn't finish.
	Value expr.Expr

	// Messages are the messages emitted, in order.
	Messages []*Message

	// StoppedBecause reports the reason why the evaluation
	// stopped.
	StoppedBecause StopReason

	// Iterations is the number of rewrites performed.
	Iterations int

	// Error stores an internal error that occurred (if any).
	Error error
}

// Texts returns the text of each message.
func (r *Evaluated) Texts() []string {
	acc := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		acc[i] = m.Text
	}
	return acc
}

// IsAborted reports whether the value is $Aborted.
func (r *Evaluated) IsAborted() bool {
	return expr.Equal(r.Value, expr.SymAborted)
}

func (r *Evaluated) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"value":          expr.ToJSON(r.Value),
		"string":         r.Value.String(),
		"stoppedBecause": r.StoppedBecause,
		"iterations":     r.Iterations,
	}
	if 0 < len(r.Messages) {
		m["messages"] = r.Messages
	}
	if r.Error != nil {
		m["error"] = r.Error.Error()
	}
	return json.Marshal(m)
}

// Evaluator rewrites expressions using the definitions in a Registry
// and its own Builtins.
//
// The Registry can be shared.  The Evaluator's Control and Builtins
// are guarded, so an Evaluator can be used concurrently, but
// concurrent evaluations will see each other's definitions.
type Evaluator struct {
	// Defs holds attributes, rules, and defaults.
	Defs *defs.Registry

	// Debug turns on logging of each rewrite.
	Debug bool

	mu       sync.RWMutex
	control  Control
	builtins map[expr.Symbol]Builtin
	version  uint64
	serial   uint64
}

// NewEvaluator makes an Evaluator with the kernel's Builtins
// installed.
//
// A nil Registry means a new one, and a nil Control means
// DefaultControl.
func NewEvaluator(r *defs.Registry, c *Control) *Evaluator {
	if r == nil {
		r = defs.NewRegistry()
	}
	if c == nil {
		c = DefaultControl
	}
	ev := &Evaluator{
		Defs:     r,
		control:  *c,
		builtins: make(map[expr.Symbol]Builtin, 64),
	}
	ev.Boot()
	return ev
}

func (ev *Evaluator) logf(format string, args ...interface{}) {
	if ev.Debug {
		log.Printf("Evaluator."+format, args...)
	}
}

// Control returns a copy of the current Control.
func (ev *Evaluator) Control() *Control {
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	return ev.control.Copy()
}

// SetControl replaces the Control used by subsequent evaluations.
func (ev *Evaluator) SetControl(c *Control) {
	ev.mu.Lock()
	ev.control = *c
	ev.mu.Unlock()
}

// Builtin returns the symbol's Builtin (or nil).
func (ev *Evaluator) Builtin(s expr.Symbol) Builtin {
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	return ev.builtins[s]
}

// SetBuiltin installs the Builtin and adds the given attributes to
// the symbol.  A nil Builtin removes the symbol's Builtin.
func (ev *Evaluator) SetBuiltin(s expr.Symbol, b Builtin, as defs.Attributes) {
	ev.mu.Lock()
	if b == nil {
		delete(ev.builtins, s)
	} else {
		ev.builtins[s] = b
	}
	ev.version++
	ev.mu.Unlock()
	if as != 0 {
		ev.Defs.SetAttributes(s, as)
	}
}

// Builtins returns the symbols that have Builtins (sorted).
func (ev *Evaluator) Builtins() []expr.Symbol {
	ev.mu.RLock()
	defer ev.mu.RUnlock()
	acc := make([]expr.Symbol, 0, len(ev.builtins))
	for s := range ev.builtins {
		acc = append(acc, s)
	}
	sort.Slice(acc, func(i, j int) bool { return acc[i] < acc[j] })
	return acc
}

// Evaluate evaluates the expression to a fixed point.
//
// This method never returns an error.  Limits and cancellation are
// reported in the Evaluated (with value $Aborted), as is any
// internal error.
func (ev *Evaluator) Evaluate(ctx context.Context, x expr.Expr) *Evaluated {
	e := ev.NewEvaluation()
	y, err := e.Eval(ctx, x)
	r := &Evaluated{
		Value:          y,
		StoppedBecause: Done,
	}
	if err != nil {
		r.Value = expr.SymAborted
		var le *LimitExceeded
		switch {
		case errors.As(err, &le):
			e.Emit(le.Message())
			r.StoppedBecause = Limited
		case ctx.Err() != nil:
			r.StoppedBecause = Aborted
		default:
			r.StoppedBecause = InternalError
			r.Error = err
		}
		ev.logf("Evaluate %s stopped: %s", x, err)
	}
	r.Messages = e.messages
	r.Iterations = e.iterations
	return r
}

// EvaluateString parses the source and then evaluates it.
func (ev *Evaluator) EvaluateString(ctx context.Context, src string) (*Evaluated, error) {
	x, err := expr.Parse(src)
	if err != nil {
		return nil, err
	}
	return ev.Evaluate(ctx, x), nil
}

// Evaluation is the state of one top-level evaluation.
//
// Builtins get the current Evaluation so that they can evaluate
// subexpressions (which counts against the same limits) and emit
// messages.
type Evaluation struct {
	ev         *Evaluator
	control    Control
	iterations int
	depth      int
	messages   []*Message
	matcher    *match.Matcher

	// evaluated remembers compounds that Eval found to be fixed
	// points along with the stamp at that time.
	evaluated map[*expr.Compound]stamp
}

// stamp identifies a state of the definitions and Builtins.
type stamp struct {
	defs, builtins uint64
}

func (e *Evaluation) stamp() stamp {
	e.ev.mu.RLock()
	b := e.ev.version
	e.ev.mu.RUnlock()
	return stamp{defs: e.ev.Defs.Version(), builtins: b}
}

// fixed reports whether x was already evaluated to itself with no
// definitions changed since.
func (e *Evaluation) fixed(x expr.Expr) bool {
	c, is := x.(*expr.Compound)
	if !is {
		return false
	}
	st, have := e.evaluated[c]
	return have && st == e.stamp()
}

func (e *Evaluation) markFixed(x expr.Expr) {
	c, is := x.(*expr.Compound)
	if !is {
		return
	}
	if e.evaluated == nil {
		e.evaluated = make(map[*expr.Compound]stamp, 16)
	}
	e.evaluated[c] = e.stamp()
}

// NewEvaluation starts a new evaluation with the Evaluator's current
// Control.
func (ev *Evaluator) NewEvaluation() *Evaluation {
	e := &Evaluation{
		ev:       ev,
		control:  *ev.Control(),
		messages: make([]*Message, 0, MessagesInitialCap),
	}
	e.matcher = &match.Matcher{
		Defs: ev.Defs,
		Test: e.test,
	}
	return e
}

func (e *Evaluation) Evaluator() *Evaluator {
	return e.ev
}

func (e *Evaluation) Defs() *defs.Registry {
	return e.ev.Defs
}

// Matcher returns a Matcher that uses the Registry and that decides
// Conditions by evaluating them in this Evaluation.
func (e *Evaluation) Matcher() *match.Matcher {
	return e.matcher
}

// Control returns the Control in effect for this Evaluation.
func (e *Evaluation) Control() *Control {
	return e.control.Copy()
}

// SetControl changes the limits for this Evaluation and for the
// Evaluator's subsequent evaluations.
func (e *Evaluation) SetControl(c *Control) {
	e.control = *c
	e.ev.SetControl(c)
}

// Emit adds the given message.
func (e *Evaluation) Emit(m *Message) {
	e.ev.logf("Emit %s", m)
	e.messages = append(e.messages, m)
}

// Message emits a message.
func (e *Evaluation) Message(s expr.Symbol, tag, text string) {
	e.Emit(&Message{Symbol: s, Tag: tag, Text: text})
}

// Messages returns the messages emitted so far.
func (e *Evaluation) Messages() []*Message {
	return e.messages
}

// Iterations returns the number of rewrites so far.
func (e *Evaluation) Iterations() int {
	return e.iterations
}

func (e *Evaluation) test(ctx context.Context, t expr.Expr) (bool, error) {
	v, err := e.Eval(ctx, t)
	if err != nil {
		return false, err
	}
	return expr.IsTrue(v), nil
}

// Eval takes as many Steps as it can.
//
// Every call counts against the recursion limit, and every rewrite
// counts against the iteration limit.  The returned error is a
// *LimitExceeded, the context's error, or an internal error.
//
// A compound that this Evaluation already took to a fixed point is
// returned as is unless some definition or Builtin changed since.
func (e *Evaluation) Eval(ctx context.Context, x expr.Expr) (expr.Expr, error) {
	e.depth++
	defer func() { e.depth-- }()
	if limit := e.control.RecursionLimit; 0 < limit && limit < e.depth {
		return nil, &LimitExceeded{Kind: RecursionLimit, Limit: limit}
	}
	if e.fixed(x) {
		return x, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y, rewritten, err := e.Step(ctx, x)
		if err != nil {
			return nil, err
		}
		if !rewritten {
			e.markFixed(y)
			return y, nil
		}
		e.iterations++
		if limit := e.control.IterationLimit; 0 < limit && limit < e.iterations {
			return nil, &LimitExceeded{Kind: IterationLimit, Limit: limit}
		}
		e.ev.logf("Step %s -> %s", x, y)
		x = y
	}
}

// Step is the fundamental operation that attempts one rewrite.
//
// The returned expression is x with its parts evaluated.  If a rule
// or Builtin fired and gave something different, the result is that
// something, and the bool is true.  A rule that gives back an
// expression that normalizes to x is a fixed point, not a rewrite.
func (e *Evaluation) Step(ctx context.Context, x expr.Expr) (expr.Expr, bool, error) {
	switch vv := x.(type) {
	case expr.Symbol:
		return e.symbol(ctx, vv)
	case *expr.Compound:
		return e.compound(ctx, vv)
	}
	return x, false, nil
}

func (e *Evaluation) symbol(ctx context.Context, s expr.Symbol) (expr.Expr, bool, error) {
	switch s {
	case expr.SymIterationLimit:
		return limitValue(e.control.IterationLimit), true, nil
	case expr.SymRecursionLimit:
		return limitValue(e.control.RecursionLimit), true, nil
	}
	y, fired, err := e.apply(ctx, e.ev.Defs.Rules(s, defs.OwnValues), s)
	if err != nil {
		return nil, false, err
	}
	if !fired || normal.Equivalent(e.ev.Defs, y, s) {
		return s, false, nil
	}
	return y, true, nil
}

func limitValue(n int) expr.Expr {
	if n <= 0 {
		return SymInfinity
	}
	return expr.Integer(n)
}

func (e *Evaluation) compound(ctx context.Context, c *expr.Compound) (expr.Expr, bool, error) {
	head, err := e.Eval(ctx, c.Head())
	if err != nil {
		return nil, false, err
	}
	sym, _ := head.(expr.Symbol)
	var as defs.Attributes
	if sym != "" {
		as = e.ev.Defs.Attributes(sym)
	}

	args, changed, err := e.args(ctx, as, c.Args())
	if err != nil {
		return nil, false, err
	}
	if !as.HasAny(defs.SequenceHold | defs.HoldAllComplete) {
		if spliced, did := splice(args); did {
			args, changed = spliced, true
		}
	}

	x := c
	if changed || head != c.Head() {
		x = expr.New(head, args...)
	}
	if sym != "" {
		x = normal.Normalize(e.ev.Defs, x).(*expr.Compound)
	}

	if as.Has(defs.Listable) {
		if y, threaded := e.thread(x); threaded {
			return y, true, nil
		}
	}

	y, fired, err := e.rewrite(ctx, sym, as, x)
	if err != nil {
		return nil, false, err
	}
	if !fired || normal.Equivalent(e.ev.Defs, y, x) {
		return x, false, nil
	}
	return y, true, nil
}

// args evaluates the arguments that aren't held.
func (e *Evaluation) args(ctx context.Context, as defs.Attributes, args []expr.Expr) ([]expr.Expr, bool, error) {
	if as.Has(defs.HoldAllComplete) {
		return args, false, nil
	}
	var acc []expr.Expr
	for i, a := range args {
		if (i == 0 && as.Has(defs.HoldFirst)) || (0 < i && as.Has(defs.HoldRest)) {
			continue
		}
		y, err := e.Eval(ctx, a)
		if err != nil {
			return nil, false, err
		}
		if y != a && acc == nil {
			acc = make([]expr.Expr, len(args))
			copy(acc, args)
		}
		if acc != nil {
			acc[i] = y
		}
	}
	if acc == nil {
		return args, false, nil
	}
	return acc, true, nil
}

// splice splices the arguments of Sequence arguments.
func splice(args []expr.Expr) ([]expr.Expr, bool) {
	found := false
	for _, a := range args {
		if expr.IsApplication(a, expr.SymSequence) {
			found = true
			break
		}
	}
	if !found {
		return args, false
	}
	acc := make([]expr.Expr, 0, len(args)+2)
	for _, a := range args {
		if c, is := expr.AsApplication(a, expr.SymSequence); is {
			acc = append(acc, c.Args()...)
			continue
		}
		acc = append(acc, a)
	}
	return acc, true
}

// thread distributes a Listable head over List arguments.
func (e *Evaluation) thread(x *expr.Compound) (expr.Expr, bool) {
	n := -1
	for _, a := range x.Args() {
		l, is := expr.AsApplication(a, expr.SymList)
		if !is {
			continue
		}
		if n < 0 {
			n = l.Len()
		} else if n != l.Len() {
			e.Message("Thread", "tdlen", "Objects of unequal length in "+x.String()+" cannot be combined.")
			return nil, false
		}
	}
	if n < 0 {
		return nil, false
	}
	acc := make([]expr.Expr, n)
	for i := range acc {
		args := make([]expr.Expr, x.Len())
		for j, a := range x.Args() {
			if l, is := expr.AsApplication(a, expr.SymList); is {
				args[j] = l.Arg(i)
			} else {
				args[j] = a
			}
		}
		acc[i] = expr.New(x.Head(), args...)
	}
	return expr.List(acc...), true
}

// rewrite tries UpValues, DownValues, and then the Builtin.
func (e *Evaluation) rewrite(ctx context.Context, sym expr.Symbol, as defs.Attributes, x *expr.Compound) (expr.Expr, bool, error) {
	if !as.Has(defs.HoldAllComplete) {
		var seen map[expr.Symbol]bool
		for _, a := range x.Args() {
			s, have := Tag(a)
			if !have || seen[s] {
				continue
			}
			if seen == nil {
				seen = make(map[expr.Symbol]bool, 4)
			}
			seen[s] = true
			y, fired, err := e.apply(ctx, e.ev.Defs.Rules(s, defs.UpValues), x)
			if err != nil || fired {
				return y, fired, err
			}
		}
	}

	if down, have := Tag(x); have {
		y, fired, err := e.apply(ctx, e.ev.Defs.Rules(down, defs.DownValues), x)
		if err != nil || fired {
			return y, fired, err
		}
	}

	if sym == "" {
		return nil, false, nil
	}
	if b := e.ev.Builtin(sym); b != nil {
		return b.Apply(ctx, e, x)
	}
	return nil, false, nil
}

// Tag returns the symbol that rules for x are attached to: x itself
// if it's a Symbol, otherwise its innermost head symbol.
func Tag(x expr.Expr) (expr.Symbol, bool) {
	for {
		switch vv := x.(type) {
		case expr.Symbol:
			return vv, true
		case *expr.Compound:
			x = vv.Head()
		default:
			return "", false
		}
	}
}

// apply tries the rules in order and returns the first result.
func (e *Evaluation) apply(ctx context.Context, rules []*defs.Rule, x expr.Expr) (expr.Expr, bool, error) {
	for _, r := range rules {
		y, fired, err := e.ApplyRule(ctx, r, x)
		if err != nil || fired {
			return y, fired, err
		}
	}
	return nil, false, nil
}

// ApplyRule tries one rule.  The rule's condition (if any) is
// evaluated for each match until one holds.
func (e *Evaluation) ApplyRule(ctx context.Context, r *defs.Rule, x expr.Expr) (expr.Expr, bool, error) {
	var (
		y      expr.Expr
		failed error
	)
	err := e.matcher.Each(ctx, r.LHS, x, nil, func(bs match.Bindings) bool {
		if r.Condition != nil {
			ok, err := e.test(ctx, match.Substitute(r.Condition, bs))
			if err != nil {
				failed = err
				return false
			}
			if !ok {
				return true
			}
		}
		y = match.Substitute(r.RHS, bs)
		return false
	})
	if failed != nil {
		err = failed
	}
	if err != nil {
		var pe *match.PatternError
		if errors.As(err, &pe) {
			e.Message("Pattern", "patv", pe.Error())
			return nil, false, nil
		}
		return nil, false, err
	}
	return y, y != nil, nil
}
