package expr

import (
	"math"
	"math/big"
	"strings"
)

// Equal reports whether two expressions are structurally identical.
//
// Integer 1 and Real 1. are not Equal.  Equal knows nothing about
// attributes.  See normal.Equivalent for that.
func Equal(x, y Expr) bool {
	if x == y {
		return true
	}
	switch vv := x.(type) {
	case Symbol:
		w, is := y.(Symbol)
		return is && vv == w
	case Integer:
		w, is := y.(Integer)
		return is && vv == w
	case Real:
		w, is := y.(Real)
		return is && vv == w
	case String:
		w, is := y.(String)
		return is && vv == w
	case *Compound:
		w, is := y.(*Compound)
		if !is || vv == nil || w == nil {
			return false
		}
		if len(vv.args) != len(w.args) {
			return false
		}
		if !Equal(vv.head, w.head) {
			return false
		}
		for i, a := range vv.args {
			if !Equal(a, w.args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// rank orders the kinds of expressions: numbers, then strings, then
// symbols, then compounds.
func rank(x Expr) int {
	switch x.(type) {
	case Integer, Real:
		return 0
	case String:
		return 1
	case Symbol:
		return 2
	default:
		return 3
	}
}

// compareNumbers compares by value without rounding an Integer to
// a float64.  NaN sorts after every other number.
func compareNumbers(x, y Expr) int {
	switch vv := x.(type) {
	case Integer:
		switch w := y.(type) {
		case Integer:
			return compareIntegers(vv, w)
		case Real:
			return -compareRealInteger(w, vv)
		}
	case Real:
		switch w := y.(type) {
		case Integer:
			return compareRealInteger(vv, w)
		case Real:
			xn, yn := math.IsNaN(float64(vv)), math.IsNaN(float64(w))
			switch {
			case xn && yn:
				return 0
			case xn:
				return 1
			case yn, vv < w:
				return -1
			case w < vv:
				return 1
			}
			return 0
		}
	}
	return 0
}

func compareRealInteger(r Real, i Integer) int {
	if math.IsNaN(float64(r)) {
		return 1
	}
	return big.NewFloat(float64(r)).Cmp(new(big.Float).SetInt64(int64(i)))
}

func compareIntegers(a, b Integer) int {
	switch {
	case a < b:
		return -1
	case b < a:
		return 1
	}
	return 0
}

// Compare is a total order on expressions.  It returns a negative
// number, zero, or a positive number.  Compare(x, y) == 0 iff
// Equal(x, y).
//
// Numbers sort by value (an Integer before an equal Real), strings
// and symbols lexically, and compounds by head, then arguments, then
// length.
func Compare(x, y Expr) int {
	rx, ry := rank(x), rank(y)
	if rx != ry {
		return rx - ry
	}
	switch vv := x.(type) {
	case Integer, Real:
		if c := compareNumbers(x, y); c != 0 {
			return c
		}
		_, xi := vv.(Integer)
		_, yi := y.(Integer)
		switch {
		case xi && !yi:
			return -1
		case yi && !xi:
			return 1
		}
		return 0
	case String:
		return strings.Compare(string(vv), string(y.(String)))
	case Symbol:
		return strings.Compare(string(vv), string(y.(Symbol)))
	case *Compound:
		w := y.(*Compound)
		if c := Compare(vv.head, w.head); c != 0 {
			return c
		}
		n := len(vv.args)
		if len(w.args) < n {
			n = len(w.args)
		}
		for i := 0; i < n; i++ {
			if c := Compare(vv.args[i], w.args[i]); c != 0 {
				return c
			}
		}
		return len(vv.args) - len(w.args)
	}
	return 0
}

// Contains reports whether the predicate holds for x or any
// subexpression of x (heads included).
func Contains(x Expr, pred func(Expr) bool) bool {
	if pred(x) {
		return true
	}
	if c, is := x.(*Compound); is {
		if Contains(c.head, pred) {
			return true
		}
		for _, a := range c.args {
			if Contains(a, pred) {
				return true
			}
		}
	}
	return false
}
