package match

import (
	"context"
	"errors"
	"testing"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
)

func newRegistry() *defs.Registry {
	r := defs.NewRegistry()
	r.SetAttributes("F", defs.OneIdentity)
	r.SetAttributes("r", defs.Flat)
	r.SetAttributes("s", defs.Flat|defs.OneIdentity)
	r.SetAttributes("o", defs.Orderless)
	r.SetAttributes("p", defs.Flat|defs.Orderless)
	return r
}

func matchQ(t *testing.T, m *Matcher, pattern, subject string) bool {
	t.Helper()
	matched, err := m.MatchQ(context.Background(), expr.MustParse(pattern), expr.MustParse(subject))
	if err != nil {
		t.Fatal(err)
	}
	return matched
}

func TestOneIdentity(t *testing.T) {
	r := newRegistry()
	m := NewMatcher(r)

	type test struct {
		subject, pattern string
		want             bool
	}

	check := func(t *testing.T, tests []test) {
		for _, test := range tests {
			if got := matchQ(t, m, test.pattern, test.subject); got != test.want {
				t.Errorf("MatchQ[%s, %s] got %v, wanted %v", test.subject, test.pattern, got, test.want)
			}
		}
	}

	// F has OneIdentity, but G doesn't.
	check(t, []test{
		{"x", "F[y_]", false},
		{"x", "G[y_]", false},
		{"x", "F[x_:0, y_]", true},
		{"x", "G[x_:0, y_]", false},
		{"F[x]", "F[x_:0, y_]", true},
		{"G[x]", "G[x_:0, y_]", true},
		{"F[F[F[x]]]", "F[x_:0, y_]", true},
		{"G[G[G[x]]]", "G[x_:0, y_]", true},
		{"F[3, F[F[x]]]", "F[x_:0, y_]", true},
		{"G[3, G[G[x]]]", "G[x_:0, y_]", true},
		{"x", "F[x1_:0, F[x2_:0, y_]]", true},
		{"x", "G[x1_:0, G[x2_:0, y_]]", false},
		{"x", "F[x1___:0, F[x2_:0, y_]]", true},
		{"x", "G[x1___:0, G[x2_:0, y_]]", false},
		{"x", "F[F[x2_:0, y_], x1_:0]", true},
		{"x", "G[G[x2_:0, y_], x1_:0]", false},
		{"x", "F[x_., y_]", false},
		{"x", "G[x_., y_]", false},
		{"F[F[H[y]]]", "F[x_:0, u_H]", false},
		{"G[G[H[y]]]", "G[x_:0, u_H]", false},
		{"F[p, F[p, H[y]]]", "F[x_:0, u_H]", false},
		{"G[p, G[p, H[y]]]", "G[x_:0, u_H]", false},
	})

	r.SetDefault("F", 1, expr.Real(1))
	r.SetDefault("G", 1, expr.Real(2))

	check(t, []test{
		{"x", "F[x_., y_]", true},
		{"x", "G[x_., y_]", false},
	})

	bs, _, err := m.First(context.Background(), expr.MustParse("F[x_., y_]"), expr.Symbol("q"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := bs.String(), "{Rule[x, 1.], Rule[y, q]}"; got != want {
		t.Fatalf("got %s, wanted %s", got, want)
	}
}

func TestMatches(t *testing.T) {
	m := NewMatcher(newRegistry())
	tests := []struct {
		pattern, subject string
		want             []string
	}{
		{"g[x_, y_]", "g[a, b]", []string{"{Rule[x, a], Rule[y, b]}"}},
		{"g[x_, x_]", "g[a, a]", []string{"{Rule[x, a]}"}},
		{"g[x_, x_]", "g[a, b]", nil},
		{"g[x_h, y_]", "g[h[1], b]", []string{"{Rule[x, h[1]], Rule[y, b]}"}},
		{"g[x_h, y_]", "g[k[1], b]", nil},
		{"g[x__, y__]", "g[a, b, c]", []string{
			"{Rule[x, Sequence[a]], Rule[y, Sequence[b, c]]}",
			"{Rule[x, Sequence[a, b]], Rule[y, Sequence[c]]}",
		}},
		{"g[x___, y_]", "g[a]", []string{"{Rule[x, Sequence[]], Rule[y, a]}"}},
		{"g[x__Integer]", "g[1, 2]", []string{"{Rule[x, Sequence[1, 2]]}"}},
		{"g[x__Integer]", "g[1, a]", nil},

		// Flat
		{"r[x_, y_]", "r[a, b, c]", []string{
			"{Rule[x, a], Rule[y, r[b, c]]}",
			"{Rule[x, r[a, b]], Rule[y, c]}",
		}},
		{"r[x_]", "r[a]", []string{"{Rule[x, a]}"}},
		{"r[x_]", "r[a, b]", []string{"{Rule[x, r[a, b]]}"}},
		{"r[x_]", "r[]", nil},
		{"r[a, x_]", "r[r[a, b], c]", []string{"{Rule[x, r[b, c]]}"}},

		// Orderless
		{"o[x_, b]", "o[b, a]", []string{"{Rule[x, a]}"}},
		{"o[x_, y_]", "o[a, b]", []string{
			"{Rule[x, a], Rule[y, b]}",
			"{Rule[x, b], Rule[y, a]}",
		}},
		{"o[x_, x_]", "o[a, a]", []string{"{Rule[x, a]}"}},
		{"o[x_, x_]", "o[a, b]", nil},
		{"o[x_Integer, y_]", "o[a, 1]", []string{"{Rule[x, 1], Rule[y, a]}"}},

		// Flat and Orderless
		{"p[x_, a]", "p[c, a, b]", []string{"{Rule[x, p[b, c]]}"}},
		{"p[x_, x_]", "p[a, b, a, b]", []string{"{Rule[x, p[a, b]]}"}},

		// Structure
		{"Alternatives[a, b]", "b", []string{"{}"}},
		{"Blank[][x_]", "f[a]", []string{"{Rule[x, a]}"}},
		{"h_[x_]", "f[a]", []string{"{Rule[h, f], Rule[x, a]}"}},
		{"HoldPattern[g[x_]]", "g[a]", []string{"{Rule[x, a]}"}},
		{"Pattern[x, g[_]]", "g[a]", []string{"{Rule[x, g[a]]}"}},
	}
	for _, test := range tests {
		t.Run(test.pattern+" "+test.subject, func(t *testing.T) {
			bss, err := m.Matches(context.Background(), expr.MustParse(test.pattern), expr.MustParse(test.subject), nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(bss) != len(test.want) {
				t.Fatalf("got %v, wanted %v", bss, test.want)
			}
			for i, bs := range bss {
				if got := bs.String(); got != test.want[i] {
					t.Fatalf("%d: got %s, wanted %s", i, got, test.want[i])
				}
			}
		})
	}
}

func TestMatchCondition(t *testing.T) {
	m := NewMatcher(newRegistry())
	m.Test = func(ctx context.Context, test expr.Expr) (bool, error) {
		c, is := expr.AsApplication(test, "even")
		if !is {
			return expr.IsTrue(test), nil
		}
		n, is := c.Arg(0).(expr.Integer)
		return is && n%2 == 0, nil
	}
	p := expr.MustParse("o[Condition[x_, even[x]], y_]")
	bss, err := m.Matches(context.Background(), p, expr.MustParse("o[3, 4]"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(bss) != 1 || bss[0].String() != "{Rule[x, 4], Rule[y, 3]}" {
		t.Fatal(bss)
	}
}

func TestMatchConditionError(t *testing.T) {
	broken := errors.New("broken")
	m := &Matcher{
		Test: func(ctx context.Context, test expr.Expr) (bool, error) {
			return false, broken
		},
	}
	_, err := m.Matches(context.Background(), expr.MustParse("Condition[x_, t]"), expr.Symbol("a"), nil)
	if !errors.Is(err, broken) {
		t.Fatal(err)
	}
}

func TestMatchInitialBindings(t *testing.T) {
	m := DefaultMatcher
	p := expr.MustParse("g[x_, y_]")
	bs := NewBindings().Extend("x", expr.Symbol("a"))
	if _, matched, _ := m.First(context.Background(), p, expr.MustParse("g[b, c]"), bs); matched {
		t.Fatal("x is already bound to a")
	}
	found, matched, err := m.First(context.Background(), p, expr.MustParse("g[a, c]"), bs)
	if err != nil {
		t.Fatal(err)
	}
	if !matched || found.String() != "{Rule[x, a], Rule[y, c]}" {
		t.Fatal(found)
	}
	if len(bs) != 1 {
		t.Fatal("given bindings were modified")
	}
}

func TestMatchEachStops(t *testing.T) {
	m := NewMatcher(newRegistry())
	n := 0
	err := m.Each(context.Background(), expr.MustParse("g[x___, y___]"), expr.MustParse("g[a, b, c]"), nil,
		func(bs Bindings) bool {
			n++
			return n < 2
		})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatal(n)
	}
}

func TestMatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &Matcher{
		Defs:          newRegistry(),
		CheckInterval: 1,
	}
	_, err := m.Matches(ctx, expr.MustParse("p[x_, y_, z_]"), expr.MustParse("p[a, b, c, d, e]"), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatal(err)
	}
}

func TestPatternErrors(t *testing.T) {
	for _, src := range []string{
		"Pattern[1, Blank[]]",
		"Pattern[x]",
		"Blank[a, b]",
		"g[Pattern[x, g[Pattern[x, Blank[]]]]]",
		"Optional[]",
		"Condition[x_]",
	} {
		_, err := DefaultMatcher.Matches(context.Background(), expr.MustParse(src), expr.Symbol("a"), nil)
		var pe *PatternError
		if !errors.As(err, &pe) {
			t.Errorf("%s: got %v", src, err)
		}
	}
}

func TestSubstitute(t *testing.T) {
	bs := NewBindings().
		Extend("x", expr.Symbol("a")).
		Extend("h", expr.Symbol("f"))
	got := Substitute(expr.MustParse("h[x, g[x, y]]"), bs)
	if want := "f[a, g[a, y]]"; got.String() != want {
		t.Fatalf("got %s, wanted %s", got, want)
	}
	x := expr.MustParse("g[y]")
	if Substitute(x, bs) != x {
		t.Fatal("should have returned the same expression")
	}
}

func BenchmarkMatchOrderless(b *testing.B) {
	var (
		m       = NewMatcher(newRegistry())
		ctx     = context.Background()
		pattern = expr.MustParse("p[x_, y_, a, z__]")
		subject = expr.MustParse("p[a, b, c, d, e, f, g, h]")
	)
	for i := 0; i < b.N; i++ {
		if _, err := m.Matches(ctx, pattern, subject, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func TestOneIdentityNesting(t *testing.T) {
	m := NewMatcher(newRegistry())
	pattern := expr.MustParse("F[x_:0, y_]")
	var subject expr.Expr = expr.Symbol("x")
	for n := 0; n <= 40; n++ {
		matched, err := m.MatchQ(context.Background(), pattern, subject)
		if err != nil {
			t.Fatal(err)
		}
		if !matched {
			t.Fatalf("%d: %s didn't match", n, subject)
		}
		subject = expr.New(expr.Symbol("F"), subject)
	}
}

func TestMatchesEquivalentBindings(t *testing.T) {
	m := NewMatcher(newRegistry())
	// The subject isn't normalized.
	bss, err := m.Matches(context.Background(), expr.MustParse("o[x_, x_]"), expr.MustParse("o[o[a, b], o[b, a]]"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(bss) != 1 {
		t.Fatal(bss)
	}
}

func TestConditionChangesAttributes(t *testing.T) {
	r := newRegistry()
	m := &Matcher{
		Defs: r,
		Test: func(ctx context.Context, test expr.Expr) (bool, error) {
			r.SetAttributes("q", defs.Orderless)
			return false, nil
		},
	}

	// The Condition makes q Orderless during the search, but the
	// rest of the search still sees q without attributes.
	pattern := expr.MustParse("Alternatives[Condition[z_, t], q[a, b]]")
	matched, err := m.MatchQ(context.Background(), pattern, expr.MustParse("q[b, a]"))
	if err != nil {
		t.Fatal(err)
	}
	if matched {
		t.Fatal("search saw the change")
	}
	if !r.Attributes("q").Has(defs.Orderless) {
		t.Fatal("test didn't run")
	}

	// A new search sees it.
	if !matchQ(t, m, "q[a, b]", "q[b, a]") {
		t.Fatal("new search didn't see the change")
	}
}
