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

// Package expr provides the expression trees that everything else
// rewrites.
//
// An Expr is a Symbol, a literal (Integer, Real, String), or a
// *Compound, which is a head applied to an ordered sequence of
// arguments.  Expressions are immutable by convention: nobody should
// modify a Compound's arguments after construction.  Rewriting makes
// new trees.
package expr

// Expr is an expression.
type Expr interface {
	// Head returns the head of the expression.  For atoms, that's
	// the symbol naming the atom's type (Symbol, Integer, ...).
	Head() Expr

	// String renders the expression in a form that Parse can read
	// back.
	String() string

	isExpr()
}

// Symbol is an interned identifier.
type Symbol string

// Integer is a machine integer literal.
type Integer int64

// Real is a machine real literal.
type Real float64

// String is a string literal.
type String string

func (Symbol) isExpr()    {}
func (Integer) isExpr()   {}
func (Real) isExpr()      {}
func (String) isExpr()    {}
func (*Compound) isExpr() {}

func (Symbol) Head() Expr  { return SymSymbol }
func (Integer) Head() Expr { return SymInteger }
func (Real) Head() Expr    { return SymReal }
func (String) Head() Expr  { return SymString }

// Compound is an application of a head to arguments.
type Compound struct {
	head Expr
	args []Expr
}

// New makes a Compound.  The given args slice is used directly, so
// the caller shouldn't modify it afterwards.
func New(head Expr, args ...Expr) *Compound {
	return &Compound{
		head: head,
		args: args,
	}
}

// Apply is a convenience for New(Symbol(name), args...).
func Apply(name string, args ...Expr) *Compound {
	return New(Symbol(name), args...)
}

func (c *Compound) Head() Expr {
	return c.head
}

// Len returns the number of arguments.
func (c *Compound) Len() int {
	return len(c.args)
}

// Arg returns the i-th argument (0-based).
func (c *Compound) Arg(i int) Expr {
	return c.args[i]
}

// Args returns the arguments.  Do not modify the returned slice.
func (c *Compound) Args() []Expr {
	return c.args
}

// WithArgs makes a new Compound with the same head and the given
// arguments.
func (c *Compound) WithArgs(args []Expr) *Compound {
	return New(c.head, args...)
}

// HeadSymbol returns the symbol at the head of x (if any).
//
// For a Symbol, that's not the symbol itself.  It's Symbol.
func HeadSymbol(x Expr) (Symbol, bool) {
	c, is := x.(*Compound)
	if !is {
		return "", false
	}
	s, is := c.head.(Symbol)
	return s, is
}

// IsApplication reports whether x is a Compound with the given head
// symbol.
func IsApplication(x Expr, head Symbol) bool {
	s, is := HeadSymbol(x)
	return is && s == head
}

// AsApplication returns x as a Compound if its head is the given
// symbol.
func AsApplication(x Expr, head Symbol) (*Compound, bool) {
	if c, is := x.(*Compound); is {
		if s, is := c.head.(Symbol); is && s == head {
			return c, true
		}
	}
	return nil, false
}

// Bool returns True or False.
func Bool(b bool) Symbol {
	if b {
		return SymTrue
	}
	return SymFalse
}

// IsTrue reports whether x is the symbol True.
func IsTrue(x Expr) bool {
	s, is := x.(Symbol)
	return is && s == SymTrue
}

// List makes a List.
func List(xs ...Expr) *Compound {
	return New(SymList, xs...)
}

// Sequence makes a Sequence.
func Sequence(xs ...Expr) *Compound {
	return New(SymSequence, xs...)
}
