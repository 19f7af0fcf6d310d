package defs

import (
	"errors"
	"sort"

	"github.com/Comcast/mkernel/expr"
)

// Attributes is a set of symbol attributes.
type Attributes uint32

const (
	Flat Attributes = 1 << iota
	Orderless
	OneIdentity
	Listable
	Protected
	Locked
	HoldFirst
	HoldRest
	HoldAllComplete
	SequenceHold
	ReadProtected
	Constant
	Temporary

	// HoldAll is HoldFirst and HoldRest.
	HoldAll = HoldFirst | HoldRest
)

// ErrUnknownAttribute occurs when a name doesn't denote an
// attribute.
var ErrUnknownAttribute = errors.New("unknown attribute")

var attributeNames = map[Attributes]expr.Symbol{
	Flat:            "Flat",
	Orderless:       "Orderless",
	OneIdentity:     "OneIdentity",
	Listable:        "Listable",
	Protected:       "Protected",
	Locked:          "Locked",
	HoldFirst:       "HoldFirst",
	HoldRest:        "HoldRest",
	HoldAllComplete: "HoldAllComplete",
	SequenceHold:    "SequenceHold",
	ReadProtected:   "ReadProtected",
	Constant:        "Constant",
	Temporary:       "Temporary",
}

// ParseAttribute maps a symbol like Flat to its Attributes.
func ParseAttribute(s expr.Symbol) (Attributes, error) {
	if s == "HoldAll" {
		return HoldAll, nil
	}
	for a, name := range attributeNames {
		if name == s {
			return a, nil
		}
	}
	return 0, ErrUnknownAttribute
}

// Has reports whether all of the given attributes are present.
func (as Attributes) Has(a Attributes) bool {
	return as&a == a
}

// HasAny reports whether any of the given attributes are present.
func (as Attributes) HasAny(a Attributes) bool {
	return as&a != 0
}

// Symbols returns the names of the attributes sorted by name.
// HoldFirst and HoldRest together come out as HoldAll.
func (as Attributes) Symbols() []expr.Symbol {
	acc := make([]expr.Symbol, 0, 4)
	rest := as
	if rest.Has(HoldAll) {
		acc = append(acc, "HoldAll")
		rest &^= HoldAll
	}
	for a, name := range attributeNames {
		if rest.Has(a) {
			acc = append(acc, name)
		}
	}
	sort.Slice(acc, func(i, j int) bool { return acc[i] < acc[j] })
	return acc
}

// Expr renders the attributes as a List of symbols.
func (as Attributes) Expr() expr.Expr {
	syms := as.Symbols()
	xs := make([]expr.Expr, len(syms))
	for i, s := range syms {
		xs[i] = s
	}
	return expr.List(xs...)
}

func (as Attributes) String() string {
	return as.Expr().String()
}
