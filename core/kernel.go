package core

import (
	"context"
	"strconv"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
	"github.com/Comcast/mkernel/match"
)

// Kernel symbols that don't have constants in package expr.
const (
	SymCompoundExpression expr.Symbol = "CompoundExpression"
	SymSet                expr.Symbol = "Set"
	SymSetDelayed         expr.Symbol = "SetDelayed"
	SymUpSet              expr.Symbol = "UpSet"
	SymUpSetDelayed       expr.Symbol = "UpSetDelayed"
	SymSetAttributes      expr.Symbol = "SetAttributes"
	SymClearAttributes    expr.Symbol = "ClearAttributes"
	SymAttributes         expr.Symbol = "Attributes"
	SymClear              expr.Symbol = "Clear"
	SymClearAll           expr.Symbol = "ClearAll"
	SymCleanAll           expr.Symbol = "CleanAll"
	SymMatchQ             expr.Symbol = "MatchQ"
	SymReplace            expr.Symbol = "Replace"
	SymReplaceAll         expr.Symbol = "ReplaceAll"
	SymIf                 expr.Symbol = "If"
	SymSameQ              expr.Symbol = "SameQ"
	SymUnsameQ            expr.Symbol = "UnsameQ"
	SymHead               expr.Symbol = "Head"
	SymLength             expr.Symbol = "Length"
	SymInfinity           expr.Symbol = "Infinity"
	SymUnique             expr.Symbol = "Unique"
)

// kernelSymbol is a kernel symbol's attributes and (optional)
// Builtin.
type kernelSymbol struct {
	attrs defs.Attributes
	f     BuiltinFunc
}

const (
	protected = defs.Protected
	locked    = defs.Locked | defs.Protected
)

var kernel = map[expr.Symbol]kernelSymbol{
	expr.SymList:     {attrs: locked},
	expr.SymSequence: {attrs: protected},
	expr.SymTrue:     {attrs: locked},
	expr.SymFalse:    {attrs: locked},
	expr.SymNull:     {attrs: locked},
	expr.SymAborted:  {attrs: locked},
	expr.SymFailed:   {attrs: locked},
	SymInfinity:      {attrs: locked},

	expr.SymPattern:           {attrs: protected | defs.HoldFirst},
	expr.SymBlank:             {attrs: protected},
	expr.SymBlankSequence:     {attrs: protected},
	expr.SymBlankNullSequence: {attrs: protected},
	expr.SymOptional:          {attrs: protected},
	expr.SymCondition:         {attrs: protected | defs.HoldAll},
	expr.SymAlternatives:      {attrs: protected},
	expr.SymHoldPattern:       {attrs: protected | defs.HoldAll},
	expr.SymRule:              {attrs: protected | defs.SequenceHold},
	expr.SymRuleDelayed:       {attrs: protected | defs.HoldRest | defs.SequenceHold},
	expr.SymHold:              {attrs: protected | defs.HoldAll},

	SymCompoundExpression: {protected | defs.HoldAll, compoundExpression},
	SymSet:                {protected | defs.HoldFirst | defs.SequenceHold, set},
	SymSetDelayed:         {protected | defs.HoldAll | defs.SequenceHold, setDelayed},
	SymUpSet:              {protected | defs.HoldFirst | defs.SequenceHold, upSet},
	SymUpSetDelayed:       {protected | defs.HoldAll | defs.SequenceHold, upSetDelayed},
	SymSetAttributes:      {protected | defs.HoldFirst, setAttributes},
	SymClearAttributes:    {protected | defs.HoldFirst, clearAttributes},
	SymAttributes:         {protected | defs.HoldAll | defs.Listable, attributes},
	SymClear:              {protected | defs.HoldAll, clearValues},
	SymClearAll:           {protected | defs.HoldAll, clearAll},
	SymCleanAll:           {protected | defs.HoldAll, clearAll},
	expr.SymDefault:       {protected, defaultValue},
	SymMatchQ:             {protected, matchQ},
	SymReplace:            {protected, replace},
	SymReplaceAll:         {protected, replaceAll},
	SymIf:                 {protected | defs.HoldRest, ifThen},
	SymSameQ:              {protected, sameQ},
	SymUnsameQ:            {protected, unsameQ},
	SymHead:               {protected, head},
	SymLength:             {protected, length},
	SymUnique:             {protected, unique},
}

// Boot installs the kernel's attributes and Builtins.  Calling it
// again restores them (after a Registry.Reset, say).
func (ev *Evaluator) Boot() {
	for s, k := range kernel {
		if k.f == nil {
			ev.Defs.SetAttributes(s, k.attrs)
			continue
		}
		ev.SetBuiltin(s, k.f, k.attrs)
	}
}

// IsKernelSymbol reports whether the symbol is one of the kernel's.
func IsKernelSymbol(s expr.Symbol) bool {
	_, have := kernel[s]
	return have
}

func headSymbol(x *expr.Compound) expr.Symbol {
	s, _ := x.Head().(expr.Symbol)
	return s
}

// arity checks the number of arguments.  If it's wrong, emits the
// ArityError message.
func arity(e *Evaluation, x *expr.Compound, want int) bool {
	if x.Len() == want {
		return true
	}
	err := &ArityError{Symbol: headSymbol(x), Got: x.Len(), Want: want}
	e.Emit(err.Message())
	return false
}

func arityBetween(e *Evaluation, x *expr.Compound, lo, hi int) bool {
	if lo <= x.Len() && x.Len() <= hi {
		return true
	}
	e.Message(headSymbol(x), "argb", string(headSymbol(x))+" called with "+strconv.Itoa(x.Len())+
		" arguments; between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi)+" arguments are expected.")
	return false
}

// symbols interprets x as a Symbol or a List of Symbols.
func symbols(e *Evaluation, caller expr.Symbol, x expr.Expr, pos int) ([]expr.Symbol, bool) {
	xs := []expr.Expr{x}
	if l, is := expr.AsApplication(x, expr.SymList); is {
		xs = l.Args()
	}
	acc := make([]expr.Symbol, 0, len(xs))
	for _, y := range xs {
		s, is := y.(expr.Symbol)
		if !is {
			e.Message(caller, "sym", "Argument "+y.String()+" at position "+strconv.Itoa(pos)+
				" is expected to be a symbol.")
			return nil, false
		}
		acc = append(acc, s)
	}
	return acc, true
}

// attributeSet interprets x as an attribute name or a List of them.
func attributeSet(e *Evaluation, x expr.Expr) (defs.Attributes, bool) {
	xs := []expr.Expr{x}
	if l, is := expr.AsApplication(x, expr.SymList); is {
		xs = l.Args()
	}
	var as defs.Attributes
	for _, y := range xs {
		s, _ := y.(expr.Symbol)
		a, err := defs.ParseAttribute(s)
		if err != nil {
			e.Message(SymAttributes, "attnf", y.String()+" is not a known attribute.")
			return 0, false
		}
		as |= a
	}
	return as, true
}

func compoundExpression(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if x.Len() == 0 {
		return expr.SymNull, true, nil
	}
	args := x.Args()
	for _, a := range args[:len(args)-1] {
		if _, err := e.Eval(ctx, a); err != nil {
			return nil, false, err
		}
	}
	// The last one is evaluated as the result.
	return args[len(args)-1], true, nil
}

func set(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arity(e, x, 2) {
		return nil, false, nil
	}
	lhs, rhs := x.Arg(0), x.Arg(1)
	e.define(SymSet, &defs.Rule{LHS: lhs, RHS: rhs})
	return rhs, true, nil
}

func setDelayed(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arity(e, x, 2) {
		return nil, false, nil
	}
	r, _ := defs.RuleFromExpr(expr.New(expr.SymRuleDelayed, x.Arg(0), x.Arg(1)))
	if !e.define(SymSetDelayed, r) {
		return expr.SymFailed, true, nil
	}
	return expr.SymNull, true, nil
}

// define stores the rule under the symbol its LHS is tagged with.
// Assignments to $IterationLimit, $RecursionLimit, and Default[...]
// are special.
func (e *Evaluation) define(caller expr.Symbol, r *defs.Rule) bool {
	lhs := r.LHS
	switch vv := lhs.(type) {
	case expr.Symbol:
		switch vv {
		case expr.SymIterationLimit, expr.SymRecursionLimit:
			return e.setLimit(vv, r.RHS)
		}
	case *expr.Compound:
		if expr.IsApplication(vv, expr.SymDefault) {
			return e.setDefault(caller, vv, r.RHS)
		}
	}
	if err := match.Validate(lhs); err != nil {
		e.Message(caller, "patv", err.Error())
		return false
	}
	target := lhs
	if c, is := expr.AsApplication(lhs, expr.SymHoldPattern); is && c.Len() == 1 {
		target = c.Arg(0)
	}
	tag, have := Tag(target)
	if !have {
		e.Message(caller, "setraw", "Cannot assign to raw object "+lhs.String()+".")
		return false
	}
	if e.Defs().Attributes(tag).Has(defs.Protected) {
		if _, is := target.(expr.Symbol); is {
			e.Message(caller, "wrsym", "Symbol "+string(tag)+" is Protected.")
		} else {
			e.Message(caller, "write", "Tag "+string(tag)+" in "+lhs.String()+" is Protected.")
		}
		return false
	}
	kind := defs.DownValues
	if _, is := target.(expr.Symbol); is {
		kind = defs.OwnValues
	}
	e.Defs().DefineRule(tag, kind, r)
	return true
}

// setLimit changes $IterationLimit or $RecursionLimit.
func (e *Evaluation) setLimit(s expr.Symbol, v expr.Expr) bool {
	n := 0
	switch vv := v.(type) {
	case expr.Integer:
		n = int(vv)
		if n < 20 {
			n = -1
		}
	case expr.Symbol:
		if vv != SymInfinity {
			n = -1
		}
	default:
		n = -1
	}
	if n < 0 {
		e.Message(s, "limset", "Cannot set "+string(s)+" to "+v.String()+
			"; value must be Infinity or an integer at least 20.")
		return false
	}
	c := e.Control()
	if s == expr.SymIterationLimit {
		c.IterationLimit = n
	} else {
		c.RecursionLimit = n
	}
	e.SetControl(c)
	return true
}

// setDefault handles Default[f] = v and Default[f, n] = v.
func (e *Evaluation) setDefault(caller expr.Symbol, lhs *expr.Compound, v expr.Expr) bool {
	var (
		s   expr.Symbol
		pos int
		ok  bool
	)
	switch lhs.Len() {
	case 1:
		s, ok = lhs.Arg(0).(expr.Symbol)
	case 2:
		s, ok = lhs.Arg(0).(expr.Symbol)
		n, is := lhs.Arg(1).(expr.Integer)
		ok = ok && is && 0 < n
		pos = int(n)
	}
	if !ok {
		e.Message(caller, "write", "Tag Default in "+lhs.String()+" is Protected.")
		return false
	}
	e.Defs().SetDefault(s, pos, v)
	return true
}

func upSet(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arity(e, x, 2) {
		return nil, false, nil
	}
	e.defineUp(SymUpSet, &defs.Rule{LHS: x.Arg(0), RHS: x.Arg(1)})
	return x.Arg(1), true, nil
}

func upSetDelayed(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arity(e, x, 2) {
		return nil, false, nil
	}
	r, _ := defs.RuleFromExpr(expr.New(expr.SymRuleDelayed, x.Arg(0), x.Arg(1)))
	if !e.defineUp(SymUpSetDelayed, r) {
		return expr.SymFailed, true, nil
	}
	return expr.SymNull, true, nil
}

// defineUp attaches the rule to the symbol of each argument of the
// LHS.
func (e *Evaluation) defineUp(caller expr.Symbol, r *defs.Rule) bool {
	if err := match.Validate(r.LHS); err != nil {
		e.Message(caller, "patv", err.Error())
		return false
	}
	lhs, is := r.LHS.(*expr.Compound)
	if !is {
		e.Message(caller, "normal", "Nonatomic expression expected at position 1 in "+r.LHS.String()+".")
		return false
	}
	n := 0
	for _, a := range lhs.Args() {
		if isPattern(a) {
			continue
		}
		tag, have := Tag(a)
		if !have || e.Defs().Attributes(tag).Has(defs.Protected) {
			continue
		}
		e.Defs().DefineRule(tag, defs.UpValues, r)
		n++
	}
	if n == 0 {
		e.Message(caller, "nosym", r.LHS.String()+" does not contain a symbol to attach a rule to.")
		return false
	}
	return true
}

func isPattern(x expr.Expr) bool {
	h, _ := expr.HeadSymbol(x)
	switch h {
	case expr.SymPattern, expr.SymBlank, expr.SymBlankSequence, expr.SymBlankNullSequence,
		expr.SymOptional, expr.SymCondition, expr.SymAlternatives:
		return true
	}
	return false
}

func setAttributes(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	return changeAttributes(e, x, e.Defs().SetAttributes)
}

func clearAttributes(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	return changeAttributes(e, x, e.Defs().ClearAttributes)
}

func changeAttributes(e *Evaluation, x *expr.Compound, change func(expr.Symbol, defs.Attributes)) (expr.Expr, bool, error) {
	if !arity(e, x, 2) {
		return nil, false, nil
	}
	ss, ok := symbols(e, headSymbol(x), x.Arg(0), 1)
	if !ok {
		return nil, false, nil
	}
	as, ok := attributeSet(e, x.Arg(1))
	if !ok {
		return nil, false, nil
	}
	for _, s := range ss {
		if e.Defs().Attributes(s).Has(defs.Locked) {
			e.Message(SymAttributes, "locked", "Symbol "+string(s)+" is locked.")
			continue
		}
		change(s, as)
	}
	return expr.SymNull, true, nil
}

func attributes(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arity(e, x, 1) {
		return nil, false, nil
	}
	s, is := x.Arg(0).(expr.Symbol)
	if !is {
		return nil, false, nil
	}
	return e.Defs().Attributes(s).Expr(), true, nil
}

func clearValues(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	ss, ok := symbols(e, headSymbol(x), expr.List(x.Args()...), 1)
	if !ok {
		return nil, false, nil
	}
	for _, s := range ss {
		if e.Defs().Attributes(s).Has(defs.Protected) {
			e.Message(headSymbol(x), "wrsym", "Symbol "+string(s)+" is Protected.")
			continue
		}
		e.Defs().Clear(s)
	}
	return expr.SymNull, true, nil
}

func clearAll(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	ss, ok := symbols(e, headSymbol(x), expr.List(x.Args()...), 1)
	if !ok {
		return nil, false, nil
	}
	for _, s := range ss {
		as := e.Defs().Attributes(s)
		switch {
		case as.Has(defs.Locked):
			e.Message(headSymbol(x), "locked", "Symbol "+string(s)+" is locked.")
		case as.Has(defs.Protected):
			e.Message(headSymbol(x), "wrsym", "Symbol "+string(s)+" is Protected.")
		default:
			e.Defs().ClearAll(s)
		}
	}
	return expr.SymNull, true, nil
}

func defaultValue(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arityBetween(e, x, 1, 2) {
		return nil, false, nil
	}
	s, is := x.Arg(0).(expr.Symbol)
	if !is {
		return nil, false, nil
	}
	pos := 0
	if x.Len() == 2 {
		n, is := x.Arg(1).(expr.Integer)
		if !is {
			return nil, false, nil
		}
		pos = int(n)
	}
	v, have := e.Defs().Default(s, pos)
	return v, have, nil
}

func matchQ(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arity(e, x, 2) {
		return nil, false, nil
	}
	matched, err := e.matchQ(ctx, SymMatchQ, x.Arg(1), x.Arg(0))
	if err != nil {
		return nil, false, err
	}
	return expr.Bool(matched), true, nil
}

func replace(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	return replaceWith(ctx, e, x, e.Replace)
}

func replaceAll(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	return replaceWith(ctx, e, x, e.ReplaceAll)
}

func replaceWith(ctx context.Context, e *Evaluation, x *expr.Compound, f func(context.Context, expr.Expr, []*defs.Rule) (expr.Expr, bool, error)) (expr.Expr, bool, error) {
	if !arity(e, x, 2) {
		return nil, false, nil
	}
	rules, err := Rules(x.Arg(1))
	if err != nil {
		e.Message(headSymbol(x), "reps", x.Arg(1).String()+" is not a list of replacement rules.")
		return nil, false, nil
	}
	y, fired, err := f(ctx, x.Arg(0), rules)
	if err != nil {
		return nil, false, err
	}
	if !fired {
		return x.Arg(0), true, nil
	}
	return y, true, nil
}

func ifThen(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arityBetween(e, x, 2, 4) {
		return nil, false, nil
	}
	switch x.Arg(0) {
	case expr.SymTrue:
		return x.Arg(1), true, nil
	case expr.SymFalse:
		if 3 <= x.Len() {
			return x.Arg(2), true, nil
		}
		return expr.SymNull, true, nil
	}
	if x.Len() == 4 {
		return x.Arg(3), true, nil
	}
	return nil, false, nil
}

func sameQ(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	args := x.Args()
	for i := 1; i < len(args); i++ {
		if !expr.Equal(args[i-1], args[i]) {
			return expr.SymFalse, true, nil
		}
	}
	return expr.SymTrue, true, nil
}

func unsameQ(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	args := x.Args()
	for i := range args {
		for j := i + 1; j < len(args); j++ {
			if expr.Equal(args[i], args[j]) {
				return expr.SymFalse, true, nil
			}
		}
	}
	return expr.SymTrue, true, nil
}

func head(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arity(e, x, 1) {
		return nil, false, nil
	}
	return x.Arg(0).Head(), true, nil
}

func length(ctx context.Context, e *Evaluation, x *expr.Compound) (expr.Expr, bool, error) {
	if !arity(e, x, 1) {
		return nil, false, nil
	}
	if c, is := x.Arg(0).(*expr.Compound); is {
		return expr.Integer(c.Len()), true, nil
	}
	return expr.Integer(0), true, nil
}
