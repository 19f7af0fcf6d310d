package defs

import (
	"errors"

	"github.com/Comcast/mkernel/expr"
)

// Kind says where a rule is attached.
type Kind int

const (
	// OwnValues rewrite a symbol itself (x = 3).
	OwnValues Kind = iota

	// DownValues rewrite applications of a symbol (f[x_] := ...).
	DownValues

	// UpValues are attached to a symbol that appears as the head
	// of an argument (g/: f[g[x_]] := ...).
	UpValues
)

var kindNames = []string{"OwnValues", "DownValues", "UpValues"}

func (k Kind) String() string {
	if 0 <= k && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UnknownValues"
}

// Kinds lists all the Kinds.
var Kinds = []Kind{OwnValues, DownValues, UpValues}

// Rule is a rewrite rule.
type Rule struct {
	// LHS is the pattern.
	LHS expr.Expr

	// RHS is the replacement, into which the bindings from a
	// match are substituted.
	RHS expr.Expr

	// Condition, if not nil, must evaluate to True (after
	// substitution) for the rule to apply.
	Condition expr.Expr

	// Delayed means the RHS was not evaluated when the rule was
	// defined (SetDelayed rather than Set).
	Delayed bool
}

// ErrNotARule occurs when an expression isn't a Rule or RuleDelayed.
var ErrNotARule = errors.New("not a rule")

// Expr renders the rule as Rule[lhs, rhs] or RuleDelayed[lhs, rhs],
// with the RHS wrapped as Condition[rhs, test] if there's a
// condition.
func (r *Rule) Expr() expr.Expr {
	rhs := r.RHS
	if r.Condition != nil {
		rhs = expr.New(expr.SymCondition, rhs, r.Condition)
	}
	head := expr.SymRule
	if r.Delayed {
		head = expr.SymRuleDelayed
	}
	return expr.New(head, r.LHS, rhs)
}

func (r *Rule) String() string {
	return r.Expr().String()
}

// RuleFromExpr is the inverse of Rule.Expr.
func RuleFromExpr(x expr.Expr) (*Rule, error) {
	c, is := x.(*expr.Compound)
	if !is || c.Len() != 2 {
		return nil, ErrNotARule
	}
	r := &Rule{
		LHS: c.Arg(0),
		RHS: c.Arg(1),
	}
	switch h, _ := expr.HeadSymbol(c); h {
	case expr.SymRule:
	case expr.SymRuleDelayed:
		r.Delayed = true
	default:
		return nil, ErrNotARule
	}
	if cond, is := expr.AsApplication(r.RHS, expr.SymCondition); is && cond.Len() == 2 {
		r.RHS, r.Condition = cond.Arg(0), cond.Arg(1)
	}
	return r, nil
}

// Same reports whether two rules have the same LHS and condition, in
// which case the later one replaces the earlier one.
func (r *Rule) Same(s *Rule) bool {
	if !expr.Equal(r.LHS, s.LHS) {
		return false
	}
	if r.Condition == nil || s.Condition == nil {
		return r.Condition == nil && s.Condition == nil
	}
	return expr.Equal(r.Condition, s.Condition)
}
