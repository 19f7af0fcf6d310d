package match

import (
	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
)

type defaultKey struct {
	s   expr.Symbol
	pos int
}

type defaultVal struct {
	v    expr.Expr
	have bool
}

// view is the attributes and defaults that one search sees.
//
// Everything the pattern and the subject can ask about is read when
// the search starts, so a Condition that changes definitions doesn't
// change the rest of the search.  Anything missed (a default position
// that only exists after Flat flattening, say) is read once and then
// kept.
type view struct {
	ds       Definitions
	attrs    map[expr.Symbol]defs.Attributes
	defaults map[defaultKey]defaultVal
}

func newView(ds Definitions, pattern, subject expr.Expr) *view {
	v := &view{
		ds:       ds,
		attrs:    make(map[expr.Symbol]defs.Attributes, 8),
		defaults: make(map[defaultKey]defaultVal, 4),
	}
	if ds != nil {
		v.read(subject, false)
		v.read(pattern, true)
	}
	return v
}

// read walks x and reads the attributes of its head symbols and, for
// patterns, the defaults for Optional positions.
func (v *view) read(x expr.Expr, pattern bool) {
	c, is := x.(*expr.Compound)
	if !is {
		return
	}
	v.read(c.Head(), pattern)
	if h, is := c.Head().(expr.Symbol); is {
		as := v.Attributes(h)
		if pattern {
			for i, p := range patternArgs(as, h, c) {
				if sl := classify(i, p, false); sl.optional && sl.def == nil {
					v.Default(h, sl.pos)
				}
			}
		}
	}
	for _, a := range c.Args() {
		v.read(a, pattern)
	}
}

func (v *view) Attributes(s expr.Symbol) defs.Attributes {
	if v.ds == nil || s == "" {
		return 0
	}
	as, have := v.attrs[s]
	if !have {
		as = v.ds.Attributes(s)
		v.attrs[s] = as
	}
	return as
}

func (v *view) Default(s expr.Symbol, pos int) (expr.Expr, bool) {
	if v.ds == nil || s == "" {
		return nil, false
	}
	k := defaultKey{s, pos}
	d, have := v.defaults[k]
	if !have {
		d.v, d.have = v.ds.Default(s, pos)
		v.defaults[k] = d
	}
	return d.v, d.have
}
