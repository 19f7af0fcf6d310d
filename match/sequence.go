package match

import (
	"sort"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
)

// Slot kinds.
const (
	exact = iota
	blank
	sequence
	nullSequence
)

// slot is one argument of a structural pattern, taken apart.
type slot struct {
	// pos is the 1-based position in the pattern, which is what
	// defaults are keyed by.
	pos int

	// p is the whole argument pattern.
	p expr.Expr

	kind     int
	names    []expr.Symbol
	tests    []expr.Expr
	head     expr.Expr
	optional bool
	def      expr.Expr

	// min and max number of subject elements.  max < 0 means no
	// limit.
	min, max int

	// rank orders slots for the Orderless search: most
	// constrained first.
	rank int
}

func classify(i int, p expr.Expr, flat bool) *slot {
	sl := &slot{
		pos:  i + 1,
		p:    p,
		kind: exact,
	}
	u := p
Unwrap:
	for {
		c, is := u.(*expr.Compound)
		if !is {
			break
		}
		h, _ := c.Head().(expr.Symbol)
		switch h {
		case expr.SymOptional:
			if !sl.optional {
				sl.optional = true
				if c.Len() == 2 {
					sl.def = c.Arg(1)
				}
			}
			u = c.Arg(0)
		case expr.SymCondition:
			sl.tests = append(sl.tests, c.Arg(1))
			u = c.Arg(0)
		case expr.SymPattern:
			sl.names = append(sl.names, c.Arg(0).(expr.Symbol))
			u = c.Arg(1)
		case expr.SymHoldPattern:
			u = c.Arg(0)
		case expr.SymBlank:
			sl.kind = blank
			break Unwrap
		case expr.SymBlankSequence:
			sl.kind = sequence
			break Unwrap
		case expr.SymBlankNullSequence:
			sl.kind = nullSequence
			break Unwrap
		default:
			break Unwrap
		}
	}

	switch sl.kind {
	case exact:
		sl.min, sl.max = 1, 1
		if expr.Contains(p, isPatternNode) {
			sl.rank = 1
		}
	case blank:
		sl.min, sl.max = 1, 1
		if flat {
			sl.max = -1
		}
		sl.head = blankHead(u)
		sl.rank = 3
		if sl.head != nil {
			sl.rank = 2
		}
	case sequence:
		sl.min, sl.max = 1, -1
		sl.head = blankHead(u)
		sl.rank = 4
	case nullSequence:
		sl.min, sl.max = 0, -1
		sl.head = blankHead(u)
		sl.rank = 5
	}
	if sl.optional {
		sl.min = 0
	}
	return sl
}

func blankHead(b expr.Expr) expr.Expr {
	if c, is := b.(*expr.Compound); is && c.Len() == 1 {
		return c.Arg(0)
	}
	return nil
}

func isPatternNode(x expr.Expr) bool {
	h, _ := expr.HeadSymbol(x)
	switch h {
	case expr.SymPattern, expr.SymBlank, expr.SymBlankSequence, expr.SymBlankNullSequence,
		expr.SymOptional, expr.SymCondition, expr.SymAlternatives:
		return true
	}
	return false
}

// strip removes the Optional wrapper from an argument pattern so the
// rest of it can be matched against a default value.
func strip(p expr.Expr) expr.Expr {
	c, is := p.(*expr.Compound)
	if !is {
		return p
	}
	h, _ := c.Head().(expr.Symbol)
	switch h {
	case expr.SymOptional:
		return strip(c.Arg(0))
	case expr.SymCondition:
		return expr.New(h, strip(c.Arg(0)), c.Arg(1))
	case expr.SymPattern:
		return expr.New(h, c.Arg(0), strip(c.Arg(1)))
	case expr.SymHoldPattern:
		return strip(c.Arg(0))
	}
	return p
}

// seqState is the state for matching a pattern's argument slots
// against a subject's arguments.
type seqState struct {
	s     *search
	head  expr.Symbol
	flat  bool
	slots []*slot
	xs    []expr.Expr

	// minAfter[i] is the fewest subject elements that slots i...
	// can consume.  maxAfter[i] is the most (or -1 for no limit).
	minAfter, maxAfter []int

	// k gets the number of slots filled by defaults.
	k func(*env, int) bool
}

// args matches pattern arguments against subject arguments under the
// head's attributes.  When needDefault, a match counts only if at
// least one Optional was filled by its default.
func (s *search) args(head expr.Symbol, as defs.Attributes, ps, xs []expr.Expr, e *env, needDefault bool, k func(*env) bool) bool {
	st := &seqState{
		s:     s,
		head:  head,
		flat:  as.Has(defs.Flat),
		slots: make([]*slot, len(ps)),
		xs:    xs,
		k: func(e *env, defaults int) bool {
			if needDefault && defaults == 0 {
				return true
			}
			return k(e)
		},
	}
	for i, p := range ps {
		st.slots[i] = classify(i, p, st.flat)
	}
	orderless := as.Has(defs.Orderless)
	if orderless {
		sort.SliceStable(st.slots, func(i, j int) bool {
			return st.slots[i].rank < st.slots[j].rank
		})
	}
	st.bounds()
	if n := len(xs); n < st.minAfter[0] || (0 <= st.maxAfter[0] && st.maxAfter[0] < n) {
		return true
	}
	if orderless {
		return st.orderless(0, make([]bool, len(xs)), len(xs), e, 0)
	}
	return st.ordered(0, 0, e, 0)
}

func (st *seqState) bounds() {
	n := len(st.slots)
	st.minAfter = make([]int, n+1)
	st.maxAfter = make([]int, n+1)
	for i := n - 1; 0 <= i; i-- {
		sl := st.slots[i]
		st.minAfter[i] = st.minAfter[i+1] + sl.min
		if sl.max < 0 || st.maxAfter[i+1] < 0 {
			st.maxAfter[i] = -1
		} else {
			st.maxAfter[i] = st.maxAfter[i+1] + sl.max
		}
	}
}

// span gives the range of how many of the n remaining elements slot i
// can take while leaving a feasible amount for the slots after it.
func (st *seqState) span(i, n int) (lo, hi int) {
	sl := st.slots[i]
	lo, hi = sl.min, sl.max
	if hi < 0 || n < hi {
		hi = n
	}
	if rest := n - st.minAfter[i+1]; rest < hi {
		hi = rest
	}
	if after := st.maxAfter[i+1]; 0 <= after && lo < n-after {
		lo = n - after
	}
	return lo, hi
}

// feasible checks the n remaining elements against the slots from i
// on.
func (st *seqState) feasible(i, n int) bool {
	return st.minAfter[i] <= n && (st.maxAfter[i] < 0 || n <= st.maxAfter[i])
}

// ordered matches slots i... against xs[start:].
func (st *seqState) ordered(i, start int, e *env, defaults int) bool {
	n := len(st.xs) - start
	if i == len(st.slots) {
		if n == 0 {
			return st.k(e, defaults)
		}
		return true
	}
	if !st.feasible(i, n) {
		return true
	}
	sl := st.slots[i]
	lo, hi := st.span(i, n)
	try := func(m int) bool {
		return st.consume(sl, st.xs[start:start+m], e, func(e *env) bool {
			return st.ordered(i+1, start+m, e, defaults)
		})
	}
	if sl.kind == nullSequence && !sl.optional {
		// Shortest first, starting with nothing.
		for m := lo; m <= hi; m++ {
			if !try(m) {
				return false
			}
		}
		return true
	}
	for m := max(lo, 1); m <= hi; m++ {
		if !try(m) {
			return false
		}
	}
	if lo == 0 && sl.optional {
		return st.omit(sl, e, func(e *env) bool {
			return st.ordered(i+1, start, e, defaults+1)
		})
	}
	return true
}

// orderless matches slots i... against the unused elements of xs.
func (st *seqState) orderless(i int, used []bool, left int, e *env, defaults int) bool {
	if i == len(st.slots) {
		if left == 0 {
			return st.k(e, defaults)
		}
		return true
	}
	if !st.feasible(i, left) {
		return true
	}
	sl := st.slots[i]
	lo, hi := st.span(i, left)
	next := func(m int) func(*env) bool {
		return func(e *env) bool {
			return st.orderless(i+1, used, left-m, e, defaults)
		}
	}
	if sl.kind == nullSequence && !sl.optional {
		if lo == 0 {
			if !st.consume(sl, nil, e, next(0)) {
				return false
			}
		}
		for m := max(lo, 1); m <= hi; m++ {
			if !st.choose(sl, m, used, e, next(m)) {
				return false
			}
		}
		return true
	}
	for m := max(lo, 1); m <= hi; m++ {
		if !st.choose(sl, m, used, e, next(m)) {
			return false
		}
	}
	if lo == 0 && sl.optional {
		return st.omit(sl, e, func(e *env) bool {
			return st.orderless(i+1, used, left, e, defaults+1)
		})
	}
	return true
}

// choose tries every m-element subset of the unused elements (in
// their canonical order) as the slot's group.
func (st *seqState) choose(sl *slot, m int, used []bool, e *env, k func(*env) bool) bool {
	idx := make([]int, 0, m)
	var rec func(from int) bool
	rec = func(from int) bool {
		if len(idx) == m {
			group := make([]expr.Expr, m)
			for j, at := range idx {
				group[j] = st.xs[at]
			}
			return st.consume(sl, group, e, k)
		}
		for j := from; j < len(st.xs); j++ {
			if used[j] || st.repeated(j, from, used) {
				continue
			}
			used[j] = true
			idx = append(idx, j)
			ok := rec(j + 1)
			idx = idx[:len(idx)-1]
			used[j] = false
			if !ok {
				return false
			}
		}
		return true
	}
	return rec(0)
}

// repeated reports whether an equal element was already offered at
// this level of choose.  Choosing it again would only repeat work.
func (st *seqState) repeated(j, from int, used []bool) bool {
	for i := from; i < j; i++ {
		if !used[i] && expr.Equal(st.xs[i], st.xs[j]) {
			return true
		}
	}
	return false
}

// consume matches the slot against a group of subject elements.
func (st *seqState) consume(sl *slot, group []expr.Expr, e *env, k func(*env) bool) bool {
	switch sl.kind {
	case exact:
		if len(group) != 1 {
			return true
		}
		return st.s.one(sl.p, group[0], e, k)
	case blank:
		var v expr.Expr
		switch {
		case len(group) == 1:
			v = group[0]
		case 1 < len(group) && st.flat:
			v = expr.New(st.head, group...)
		default:
			return true
		}
		if sl.head != nil && !expr.Equal(sl.head, v.Head()) {
			return true
		}
		return st.finish(sl, v, e, k)
	case sequence, nullSequence:
		if sl.head != nil {
			for _, x := range group {
				if !expr.Equal(sl.head, x.Head()) {
					return true
				}
			}
		}
		return st.finish(sl, expr.Sequence(group...), e, k)
	}
	return true
}

// finish binds the slot's names to the value and then checks its
// tests.
func (st *seqState) finish(sl *slot, v expr.Expr, e *env, k func(*env) bool) bool {
	if !st.s.tick() {
		return false
	}
	bind := func(e *env) bool {
		return st.s.tests(sl.tests, e, k)
	}
	for i := len(sl.names) - 1; 0 <= i; i-- {
		name, then := sl.names[i], bind
		bind = func(e *env) bool {
			return st.s.bind(e, name, v, then)
		}
	}
	return bind(e)
}

// omit fills an Optional slot with its default.  With no default
// available, this branch just fails.
func (st *seqState) omit(sl *slot, e *env, k func(*env) bool) bool {
	d := sl.def
	if d == nil {
		v, have := st.s.view.Default(st.head, sl.pos)
		if !have {
			return true
		}
		d = v
	}
	return st.s.one(strip(sl.p), d, e, k)
}
