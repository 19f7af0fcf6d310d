package match

import (
	"sort"
	"strings"

	"github.com/Comcast/mkernel/expr"
	"github.com/Comcast/mkernel/normal"
)

// Bindings is a map from pattern variables to their values.
type Bindings map[expr.Symbol]expr.Expr

func NewBindings() Bindings {
	return make(Bindings, 8)
}

// Extend adds the binding; modifies and returns the Bindings.
func (bs Bindings) Extend(name expr.Symbol, v expr.Expr) Bindings {
	bs[name] = v
	return bs
}

// Copy makes a shallow copy of the Bindings.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

// Names returns the bound variables in order.
func (bs Bindings) Names() []expr.Symbol {
	acc := make([]expr.Symbol, 0, len(bs))
	for name := range bs {
		acc = append(acc, name)
	}
	sort.Slice(acc, func(i, j int) bool { return acc[i] < acc[j] })
	return acc
}

// Expr renders the Bindings as a List of Rules sorted by variable.
func (bs Bindings) Expr() expr.Expr {
	names := bs.Names()
	acc := make([]expr.Expr, len(names))
	for i, name := range names {
		acc[i] = expr.Rule(name, bs[name])
	}
	return expr.List(acc...)
}

func (bs Bindings) String() string {
	return bs.Expr().String()
}

// normalized normalizes every value.  Bindings whose values are
// equivalent under Flat and Orderless become equal.
func (bs Bindings) normalized(a normal.Attributer) Bindings {
	var acc Bindings
	for name, v := range bs {
		y := normal.Deep(a, v)
		if y == v {
			continue
		}
		if acc == nil {
			acc = bs.Copy()
		}
		acc[name] = y
	}
	if acc == nil {
		return bs
	}
	return acc
}

// key is a canonical string for the Bindings.  Equal Bindings have
// equal keys.
func (bs Bindings) key() string {
	var b strings.Builder
	for _, name := range bs.Names() {
		b.WriteString(string(name))
		b.WriteByte('\x00')
		b.WriteString(bs[name].String())
		b.WriteByte('\x00')
	}
	return b.String()
}

// env is the persistent (linked) form of Bindings used during
// search.  Backtracking just drops frames.
type env struct {
	name expr.Symbol
	val  expr.Expr
	next *env
}

func newEnv(bs Bindings) *env {
	var e *env
	for _, name := range bs.Names() {
		e = &env{name: name, val: bs[name], next: e}
	}
	return e
}

func (e *env) lookup(name expr.Symbol) (expr.Expr, bool) {
	for ; e != nil; e = e.next {
		if e.name == name {
			return e.val, true
		}
	}
	return nil, false
}

func (e *env) bindings() Bindings {
	bs := NewBindings()
	for ; e != nil; e = e.next {
		if _, have := bs[e.name]; !have {
			bs[e.name] = e.val
		}
	}
	return bs
}
