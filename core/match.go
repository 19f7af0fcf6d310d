package core

import (
	"context"
	"errors"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
	"github.com/Comcast/mkernel/match"
)

// Rules interprets x as a Rule, a RuleDelayed, or a List of them.
func Rules(x expr.Expr) ([]*defs.Rule, error) {
	if l, is := expr.AsApplication(x, expr.SymList); is {
		acc := make([]*defs.Rule, 0, l.Len())
		for _, y := range l.Args() {
			r, err := defs.RuleFromExpr(y)
			if err != nil {
				return nil, err
			}
			acc = append(acc, r)
		}
		return acc, nil
	}
	r, err := defs.RuleFromExpr(x)
	if err != nil {
		return nil, err
	}
	return []*defs.Rule{r}, nil
}

// Replace applies the first rule that matches the whole expression.
func (e *Evaluation) Replace(ctx context.Context, x expr.Expr, rules []*defs.Rule) (expr.Expr, bool, error) {
	return e.apply(ctx, rules, x)
}

// ReplaceAll tries the rules on every part of x, outermost first.
// A part that gets replaced isn't searched further.
func (e *Evaluation) ReplaceAll(ctx context.Context, x expr.Expr, rules []*defs.Rule) (expr.Expr, bool, error) {
	y, fired, err := e.apply(ctx, rules, x)
	if err != nil || fired {
		return y, fired, err
	}
	c, is := x.(*expr.Compound)
	if !is {
		return x, false, nil
	}
	head, changed, err := e.ReplaceAll(ctx, c.Head(), rules)
	if err != nil {
		return nil, false, err
	}
	args := c.Args()
	var acc []expr.Expr
	for i, a := range args {
		b, replaced, err := e.ReplaceAll(ctx, a, rules)
		if err != nil {
			return nil, false, err
		}
		if replaced && acc == nil {
			acc = make([]expr.Expr, len(args))
			copy(acc, args)
		}
		if acc != nil {
			acc[i] = b
		}
	}
	if acc == nil {
		if !changed {
			return x, false, nil
		}
		acc = args
	}
	return expr.New(head, acc...), true, nil
}

// matchQ runs the matcher and turns a PatternError into a message.
func (e *Evaluation) matchQ(ctx context.Context, caller expr.Symbol, pattern, subject expr.Expr) (bool, error) {
	matched, err := e.matcher.MatchQ(ctx, pattern, subject)
	if err != nil {
		var pe *match.PatternError
		if errors.As(err, &pe) {
			e.Message(caller, "patv", pe.Error())
			return false, nil
		}
		return false, err
	}
	return matched, nil
}
