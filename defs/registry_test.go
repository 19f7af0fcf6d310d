package defs

import (
	"testing"

	"github.com/Comcast/mkernel/expr"
	"github.com/google/go-cmp/cmp"
)

func rule(lhs, rhs string) *Rule {
	return &Rule{
		LHS:     expr.MustParse(lhs),
		RHS:     expr.MustParse(rhs),
		Delayed: true,
	}
}

func TestAttributesRoundTrip(t *testing.T) {
	r := NewRegistry()
	r.SetAttributes("f", Flat|OneIdentity)
	if got := r.Attributes("f"); !got.Has(Flat | OneIdentity) {
		t.Fatalf("got %s", got)
	}
	if got, want := r.Attributes("f").String(), "{Flat, OneIdentity}"; got != want {
		t.Fatalf("got %s, wanted %s", got, want)
	}
	r.ClearAll("f")
	if got := r.Attributes("f"); got != 0 {
		t.Fatalf("got %s after ClearAll", got)
	}
}

func TestParseAttribute(t *testing.T) {
	for _, a := range []Attributes{Flat, Orderless, OneIdentity, Listable, Protected, HoldFirst} {
		syms := a.Symbols()
		if len(syms) != 1 {
			t.Fatalf("%d gave %v", a, syms)
		}
		b, err := ParseAttribute(syms[0])
		if err != nil {
			t.Fatal(err)
		}
		if a != b {
			t.Fatalf("%s: %d != %d", syms[0], a, b)
		}
	}
	if a, err := ParseAttribute("HoldAll"); err != nil || a != HoldAll {
		t.Fatal("HoldAll")
	}
	if _, err := ParseAttribute("Bogus"); err != ErrUnknownAttribute {
		t.Fatal(err)
	}
	if got := HoldAll.Symbols(); !cmp.Equal(got, []expr.Symbol{"HoldAll"}) {
		t.Fatal(got)
	}
}

func TestRulesOrderAndReplacement(t *testing.T) {
	r := NewRegistry()
	r.DefineRule("f", DownValues, rule("f[x_]", "1"))
	r.DefineRule("f", DownValues, rule("f[x_, y_]", "2"))
	before := r.Rules("f", DownValues)

	r.DefineRule("f", DownValues, rule("f[x_]", "3"))
	rs := r.Rules("f", DownValues)
	if len(rs) != 2 {
		t.Fatalf("got %d rules", len(rs))
	}
	if got := rs[0].RHS.String(); got != "3" {
		t.Fatalf("first rule has RHS %s", got)
	}
	if got := before[0].RHS.String(); got != "1" {
		t.Fatalf("snapshot changed: %s", got)
	}

	cond := rule("f[x_]", "4")
	cond.Condition = expr.MustParse("g[x]")
	r.DefineRule("f", DownValues, cond)
	if n := len(r.Rules("f", DownValues)); n != 3 {
		t.Fatalf("got %d rules", n)
	}

	r.Clear("f")
	if n := len(r.Rules("f", DownValues)); n != 0 {
		t.Fatalf("got %d rules after Clear", n)
	}
}

func TestDefaults(t *testing.T) {
	r := NewRegistry()
	if _, have := r.Default("F", 1); have {
		t.Fatal("unexpected default")
	}
	r.SetDefault("F", 0, expr.Integer(7))
	r.SetDefault("F", 1, expr.Real(1))
	if v, _ := r.Default("F", 1); !expr.Equal(v, expr.Real(1)) {
		t.Fatal(v)
	}
	if v, _ := r.Default("F", 2); !expr.Equal(v, expr.Integer(7)) {
		t.Fatal(v)
	}
	r.ClearAll("F")
	if _, have := r.Default("F", 1); have {
		t.Fatal("default survived ClearAll")
	}
}

func TestCopyIsIsolated(t *testing.T) {
	r := NewRegistry()
	r.SetAttributes("f", Flat)
	r.DefineRule("f", DownValues, rule("f[x_]", "x"))
	c := r.Copy()
	c.SetAttributes("f", Orderless)
	c.DefineRule("f", DownValues, rule("f[x_, y_]", "x"))
	if r.Attributes("f").Has(Orderless) {
		t.Fatal("attribute leaked")
	}
	if n := len(r.Rules("f", DownValues)); n != 1 {
		t.Fatalf("rule leaked: %d", n)
	}
	if got, want := c.Symbols(), []expr.Symbol{"f"}; !cmp.Equal(got, want) {
		t.Fatal(cmp.Diff(want, got))
	}
}

func TestRuleExpr(t *testing.T) {
	r := rule("f[x_]", "g[x]")
	r.Condition = expr.MustParse("h[x]")
	x := r.Expr()
	if got, want := x.String(), "RuleDelayed[f[x_], Condition[g[x], h[x]]]"; got != want {
		t.Fatalf("got %s", got)
	}
	s, err := RuleFromExpr(x)
	if err != nil {
		t.Fatal(err)
	}
	if !s.Same(r) || !s.Delayed || !expr.Equal(s.RHS, r.RHS) {
		t.Fatalf("got %s", s)
	}
	if _, err := RuleFromExpr(expr.MustParse("f[a, b]")); err != ErrNotARule {
		t.Fatal(err)
	}
}
