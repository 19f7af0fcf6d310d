// Package normal puts expressions into the structural normal form
// that attributes demand.
//
// Flat splices nested applications of the same head.  Orderless
// sorts arguments.  The two are separate passes, and each is a no-op
// for heads without the attribute.  OneIdentity never changes an
// expression.  It's a matching-time reinterpretation (see package
// match).
package normal

import (
	"sort"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
)

// Attributer reports the attributes of a symbol.  *defs.Registry is
// one.
type Attributer interface {
	Attributes(expr.Symbol) defs.Attributes
}

// Flatten splices arguments that are themselves applications of the
// given head, recursively.  Returns the given slice if nothing
// changed.
func Flatten(head expr.Symbol, args []expr.Expr) []expr.Expr {
	nested := false
	for _, a := range args {
		if expr.IsApplication(a, head) {
			nested = true
			break
		}
	}
	if !nested {
		return args
	}
	acc := make([]expr.Expr, 0, len(args)+4)
	for _, a := range args {
		if c, is := expr.AsApplication(a, head); is {
			acc = append(acc, Flatten(head, c.Args())...)
			continue
		}
		acc = append(acc, a)
	}
	return acc
}

// Sort returns the arguments in canonical order (expr.Compare).
// Duplicates stay duplicates.  Returns the given slice if it was
// already sorted.
func Sort(args []expr.Expr) []expr.Expr {
	sorted := sort.SliceIsSorted(args, func(i, j int) bool {
		return expr.Compare(args[i], args[j]) < 0
	})
	if sorted {
		return args
	}
	acc := make([]expr.Expr, len(args))
	copy(acc, args)
	sort.SliceStable(acc, func(i, j int) bool {
		return expr.Compare(acc[i], acc[j]) < 0
	})
	return acc
}

// Args applies the attribute passes to the arguments of an
// application of the given head.
func Args(as defs.Attributes, head expr.Symbol, args []expr.Expr) []expr.Expr {
	if as.Has(defs.Flat) {
		args = Flatten(head, args)
	}
	if as.Has(defs.Orderless) {
		args = Sort(args)
	}
	return args
}

// Normalize normalizes the top level of the expression.  Arguments
// aren't touched (except by splicing).  Returns x itself if nothing
// changed.
func Normalize(a Attributer, x expr.Expr) expr.Expr {
	c, is := x.(*expr.Compound)
	if !is {
		return x
	}
	head, is := c.Head().(expr.Symbol)
	if !is {
		return x
	}
	as := a.Attributes(head)
	if !as.HasAny(defs.Flat | defs.Orderless) {
		return x
	}
	args := Args(as, head, c.Args())
	if sameSlice(args, c.Args()) {
		return x
	}
	return c.WithArgs(args)
}

// Deep normalizes every level of the expression, bottom up.
func Deep(a Attributer, x expr.Expr) expr.Expr {
	c, is := x.(*expr.Compound)
	if !is {
		return x
	}
	var (
		head    = Deep(a, c.Head())
		args    = c.Args()
		changed = head != c.Head()
		acc     []expr.Expr
	)
	for i, arg := range args {
		y := Deep(a, arg)
		if y != arg && acc == nil {
			acc = make([]expr.Expr, len(args))
			copy(acc, args[:i])
		}
		if acc != nil {
			acc[i] = y
		}
	}
	if acc != nil {
		args = acc
		changed = true
	}
	if changed {
		c = expr.New(head, args...)
	}
	return Normalize(a, c)
}

// Equivalent reports whether two expressions are equal once both are
// normalized.
func Equivalent(a Attributer, x, y expr.Expr) bool {
	if expr.Equal(x, y) {
		return true
	}
	return expr.Equal(Deep(a, x), Deep(a, y))
}

func sameSlice(x, y []expr.Expr) bool {
	if len(x) != len(y) {
		return false
	}
	if len(x) == 0 {
		return true
	}
	return &x[0] == &y[0]
}
