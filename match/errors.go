package match

import "github.com/Comcast/mkernel/expr"

// PatternError occurs when a pattern is malformed.
//
// A PatternError stops the current match attempt.  It isn't a
// failure to match.
type PatternError struct {
	Pattern expr.Expr
	Reason  string
}

func (e *PatternError) Error() string {
	return "bad pattern " + e.Pattern.String() + ": " + e.Reason
}

// Validate checks that the pattern is well-formed.
func Validate(p expr.Expr) error {
	return validate(p, nil)
}

// validate checks p.  The names of the Patterns that p is nested
// within are given.
func validate(p expr.Expr, within []expr.Symbol) error {
	c, is := p.(*expr.Compound)
	if !is {
		return nil
	}
	if err := validate(c.Head(), within); err != nil {
		return err
	}
	h, _ := expr.HeadSymbol(c)
	switch h {
	case expr.SymPattern:
		if c.Len() != 2 {
			return &PatternError{p, "Pattern takes a name and a pattern"}
		}
		name, is := c.Arg(0).(expr.Symbol)
		if !is {
			return &PatternError{p, "the name " + c.Arg(0).String() + " is not a symbol"}
		}
		for _, outer := range within {
			if outer == name {
				return &PatternError{p, "the name " + string(name) + " is nested within its own pattern"}
			}
		}
		return validate(c.Arg(1), append(within[:len(within):len(within)], name))
	case expr.SymBlank, expr.SymBlankSequence, expr.SymBlankNullSequence:
		if 1 < c.Len() {
			return &PatternError{p, string(h) + " takes at most one head"}
		}
		return nil
	case expr.SymOptional:
		if c.Len() < 1 || 2 < c.Len() {
			return &PatternError{p, "Optional takes a pattern and an optional default"}
		}
		return validate(c.Arg(0), within)
	case expr.SymCondition:
		if c.Len() != 2 {
			return &PatternError{p, "Condition takes a pattern and a test"}
		}
		return validate(c.Arg(0), within)
	case expr.SymHoldPattern:
		if c.Len() != 1 {
			return &PatternError{p, "HoldPattern takes one pattern"}
		}
	}
	for _, a := range c.Args() {
		if err := validate(a, within); err != nil {
			return err
		}
	}
	return nil
}
