package expr

// Symbols that the kernel itself knows about.
const (
	SymSymbol  Symbol = "Symbol"
	SymInteger Symbol = "Integer"
	SymReal    Symbol = "Real"
	SymString  Symbol = "String"

	SymList     Symbol = "List"
	SymSequence Symbol = "Sequence"
	SymNull     Symbol = "Null"
	SymTrue     Symbol = "True"
	SymFalse    Symbol = "False"
	SymAborted  Symbol = "$Aborted"
	SymFailed   Symbol = "$Failed"

	SymPattern           Symbol = "Pattern"
	SymBlank             Symbol = "Blank"
	SymBlankSequence     Symbol = "BlankSequence"
	SymBlankNullSequence Symbol = "BlankNullSequence"
	SymOptional          Symbol = "Optional"
	SymCondition         Symbol = "Condition"
	SymAlternatives      Symbol = "Alternatives"
	SymHoldPattern       Symbol = "HoldPattern"

	SymRule        Symbol = "Rule"
	SymRuleDelayed Symbol = "RuleDelayed"
	SymDefault     Symbol = "Default"
	SymHold        Symbol = "Hold"

	SymIterationLimit Symbol = "$IterationLimit"
	SymRecursionLimit Symbol = "$RecursionLimit"
)

// Pattern makes Pattern[name, p].
func Pattern(name Symbol, p Expr) *Compound {
	return New(SymPattern, name, p)
}

// Blank makes Blank[] or Blank[h] (given a head).
func Blank(head ...Expr) *Compound {
	return New(SymBlank, head...)
}

// BlankSequence makes BlankSequence[] or BlankSequence[h].
func BlankSequence(head ...Expr) *Compound {
	return New(SymBlankSequence, head...)
}

// BlankNullSequence makes BlankNullSequence[] or BlankNullSequence[h].
func BlankNullSequence(head ...Expr) *Compound {
	return New(SymBlankNullSequence, head...)
}

// Optional makes Optional[p] or Optional[p, default].
func Optional(p Expr, def ...Expr) *Compound {
	return New(SymOptional, append([]Expr{p}, def...)...)
}

// Rule makes Rule[lhs, rhs].
func Rule(lhs, rhs Expr) *Compound {
	return New(SymRule, lhs, rhs)
}
