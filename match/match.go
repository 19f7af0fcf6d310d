/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package match implements the core pattern matcher.
//
// A pattern is an expression that can contain Blank, BlankSequence,
// BlankNullSequence, Pattern, Optional, Condition, Alternatives, and
// HoldPattern.  Matching a pattern against a subject yields zero or
// more sets of Bindings.  The matcher honors the attributes of the
// heads it meets: Flat and Orderless change which groupings of
// arguments are considered, and OneIdentity lets a bare expression
// stand in for an application with defaulted arguments.
//
// Search is backtracking and lazy (see Each), so a caller that wants
// only the first match pays for only the first match.
package match

import (
	"context"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
	"github.com/Comcast/mkernel/normal"
)

// Definitions is what the Matcher needs to know about symbols.
// *defs.Registry is one.
type Definitions interface {
	Attributes(expr.Symbol) defs.Attributes
	Default(s expr.Symbol, pos int) (expr.Expr, bool)
}

// Tester decides a Condition.  The test has already had the current
// bindings substituted.
type Tester func(ctx context.Context, test expr.Expr) (bool, error)

type Matcher struct {
	// Defs provides attributes and defaults.  Can be nil, which
	// means no symbol has any.
	Defs Definitions

	// Test decides Conditions.  If nil, a test holds only if it's
	// literally True.
	Test Tester

	// CheckInterval is the number of search steps between checks
	// of the context.  Zero means DefaultCheckInterval.
	CheckInterval int
}

// DefaultCheckInterval is the default Matcher.CheckInterval.
var DefaultCheckInterval = 64

// NewMatcher makes a Matcher with the given Definitions.
func NewMatcher(ds Definitions) *Matcher {
	return &Matcher{
		Defs: ds,
	}
}

// DefaultMatcher uses no definitions.
var DefaultMatcher = &Matcher{}

// Attributes returns the symbol's attributes according to the
// Matcher's Definitions.
func (m *Matcher) Attributes(s expr.Symbol) defs.Attributes {
	if m.Defs == nil || s == "" {
		return 0
	}
	return m.Defs.Attributes(s)
}

func (m *Matcher) test(ctx context.Context, t expr.Expr) (bool, error) {
	if m.Test == nil {
		return expr.IsTrue(t), nil
	}
	return m.Test(ctx, t)
}

// Each calls f with each distinct set of Bindings that matches the
// pattern against the subject, extending the given bindings (which
// may be nil).  If f returns false, the search stops.
//
// The returned error is a *PatternError, an error from the Tester, or
// the context's error.
func (m *Matcher) Each(ctx context.Context, pattern, subject expr.Expr, bs Bindings, f func(Bindings) bool) error {
	if err := Validate(pattern); err != nil {
		return err
	}
	interval := m.CheckInterval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	s := &search{
		m:        m,
		view:     newView(m.Defs, pattern, subject),
		ctx:      ctx,
		interval: interval,
	}
	seen := make(map[string]bool, 4)
	s.one(pattern, subject, newEnv(bs), func(e *env) bool {
		found := e.bindings()
		k := found.normalized(s.view).key()
		if seen[k] {
			return true
		}
		seen[k] = true
		return f(found)
	})
	return s.err
}

// Matches returns all distinct sets of Bindings.
func (m *Matcher) Matches(ctx context.Context, pattern, subject expr.Expr, bs Bindings) ([]Bindings, error) {
	var acc []Bindings
	err := m.Each(ctx, pattern, subject, bs, func(found Bindings) bool {
		acc = append(acc, found)
		return true
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// First returns the first set of Bindings (if any).
func (m *Matcher) First(ctx context.Context, pattern, subject expr.Expr, bs Bindings) (Bindings, bool, error) {
	var first Bindings
	err := m.Each(ctx, pattern, subject, bs, func(found Bindings) bool {
		first = found
		return false
	})
	return first, first != nil, err
}

// MatchQ reports whether the pattern matches the subject at all.
func (m *Matcher) MatchQ(ctx context.Context, pattern, subject expr.Expr) (bool, error) {
	_, matched, err := m.First(ctx, pattern, subject, nil)
	return matched, err
}

// search is the state of one call to Each.
//
// Every search function takes a continuation k.  Returning false
// means "stop everything" (because the consumer is done or because
// of an error).  Returning true means "keep looking".
type search struct {
	m        *Matcher
	view     *view
	ctx      context.Context
	interval int
	steps    int
	err      error
}

func (s *search) fail(err error) bool {
	if s.err == nil {
		s.err = err
	}
	return false
}

func (s *search) tick() bool {
	if s.err != nil {
		return false
	}
	s.steps++
	if s.steps%s.interval == 0 {
		if err := s.ctx.Err(); err != nil {
			return s.fail(err)
		}
	}
	return true
}

// one matches a pattern against a single expression.
func (s *search) one(p, x expr.Expr, e *env, k func(*env) bool) bool {
	if !s.tick() {
		return false
	}
	c, is := p.(*expr.Compound)
	if !is {
		if expr.Equal(p, x) {
			return k(e)
		}
		return true
	}
	if h, is := c.Head().(expr.Symbol); is {
		switch h {
		case expr.SymPattern:
			name := c.Arg(0).(expr.Symbol)
			return s.one(c.Arg(1), x, e, func(e *env) bool {
				return s.bind(e, name, x, k)
			})
		case expr.SymBlank, expr.SymBlankSequence, expr.SymBlankNullSequence:
			if headOK(c, x) {
				return k(e)
			}
			return true
		case expr.SymOptional, expr.SymHoldPattern:
			return s.one(c.Arg(0), x, e, k)
		case expr.SymCondition:
			return s.one(c.Arg(0), x, e, func(e *env) bool {
				return s.tests([]expr.Expr{c.Arg(1)}, e, k)
			})
		case expr.SymAlternatives:
			for _, alt := range c.Args() {
				if !s.one(alt, x, e, k) {
					return false
				}
			}
			return true
		}
	}
	return s.compound(c, x, e, k)
}

// bind binds the name unless it's already bound to something
// different.
func (s *search) bind(e *env, name expr.Symbol, v expr.Expr, k func(*env) bool) bool {
	if have, bound := e.lookup(name); bound {
		if normal.Equivalent(s.view, have, v) {
			return k(e)
		}
		return true
	}
	return k(&env{name: name, val: v, next: e})
}

func (s *search) tests(ts []expr.Expr, e *env, k func(*env) bool) bool {
	if len(ts) == 0 {
		return k(e)
	}
	bs := e.bindings()
	for _, t := range ts {
		ok, err := s.m.test(s.ctx, Substitute(t, bs))
		if err != nil {
			return s.fail(err)
		}
		if !ok {
			return true
		}
	}
	return k(e)
}

// compound matches a structural pattern h[p1, ...] against x.
func (s *search) compound(p *expr.Compound, x expr.Expr, e *env, k func(*env) bool) bool {
	head, literal := p.Head().(expr.Symbol)
	if xc, is := x.(*expr.Compound); is && (!literal || expr.Equal(head, xc.Head())) {
		return s.one(p.Head(), xc.Head(), e, func(e *env) bool {
			sym := head
			if !literal {
				sym, _ = xc.Head().(expr.Symbol)
			}
			as := s.view.Attributes(sym)
			xs := normal.Args(as, sym, xc.Args())
			return s.args(sym, as, patternArgs(as, sym, p), xs, e, false, k)
		})
	}
	if !literal {
		return true
	}
	// OneIdentity: x can match h[..., x, ...] if the other
	// arguments are all Optional and at least one of them was
	// actually defaulted.
	as := s.view.Attributes(head)
	if !as.Has(defs.OneIdentity) {
		return true
	}
	ps := patternArgs(as, head, p)
	if !hasOptional(ps) {
		return true
	}
	return s.args(head, as, ps, []expr.Expr{x}, e, true, k)
}

// patternArgs flattens (but never sorts) a pattern's arguments.
// Sorting would scramble the positions that defaults are keyed by.
func patternArgs(as defs.Attributes, head expr.Symbol, p *expr.Compound) []expr.Expr {
	if as.Has(defs.Flat) {
		return normal.Flatten(head, p.Args())
	}
	return p.Args()
}

func headOK(blank *expr.Compound, x expr.Expr) bool {
	if blank.Len() == 0 {
		return true
	}
	return expr.Equal(blank.Arg(0), x.Head())
}

func hasOptional(ps []expr.Expr) bool {
	for i, p := range ps {
		if classify(i, p, false).optional {
			return true
		}
	}
	return false
}

// Substitute replaces every bound symbol in x with its value.
// Sequence values are not spliced here; that's the evaluator's job.
func Substitute(x expr.Expr, bs Bindings) expr.Expr {
	if len(bs) == 0 {
		return x
	}
	return subst(x, bs)
}

func subst(x expr.Expr, bs Bindings) expr.Expr {
	switch vv := x.(type) {
	case expr.Symbol:
		if v, have := bs[vv]; have {
			return v
		}
	case *expr.Compound:
		head := subst(vv.Head(), bs)
		args := vv.Args()
		var acc []expr.Expr
		for i, a := range args {
			y := subst(a, bs)
			if y != a && acc == nil {
				acc = make([]expr.Expr, len(args))
				copy(acc, args[:i])
			}
			if acc != nil {
				acc[i] = y
			}
		}
		if acc == nil {
			if head == vv.Head() {
				return x
			}
			acc = args
		}
		return expr.New(head, acc...)
	}
	return x
}
