package bolt

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/storage"

	"github.com/google/go-cmp/cmp"
)

func TestNoFilename(t *testing.T) {
	if _, err := NewStorage(""); err == nil {
		t.Fatal("should have complained")
	}
}

func TestImpl(t *testing.T) {
	// Just confirm that this code compiles.
	var _ storage.Storage = &Storage{}
}

func open(t testing.TB, ctx context.Context) *Storage {
	filename := filepath.Join(t.TempDir(), "storage.db")
	s, err := NewStorage(filename)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := s.Close(ctx); err != nil {
			t.Fatal(err)
		}
		os.Remove(filename)
	})
	return s
}

func TestBasics(t *testing.T) {
	var (
		ctx = context.Background()
		s   = open(t, ctx)
		sid = "simpsons"
	)

	if err := s.MakeSession(ctx, sid); err != nil {
		t.Fatal(err)
	}

	sss := []*storage.SymbolState{
		{
			Symbol:    "a",
			OwnValues: []string{"Rule[a, tacos]"},
		},
		{
			Symbol:     "b",
			Attributes: []string{"Flat"},
			DownValues: []string{"RuleDelayed[b[x_], queso]"},
		},
	}

	if err := s.WriteState(ctx, sid, sss); err != nil {
		t.Fatal(err)
	}

	check := func(who, what string) {
		got, err := s.GetSession(ctx, sid)
		if err != nil {
			t.Fatal(err)
		}

		found := false

		for _, ss := range got {
			if ss.Symbol == who {
				found = true
				var rules []string
				if 0 < len(ss.OwnValues) {
					rules = ss.OwnValues
				} else {
					rules = ss.DownValues
				}
				if len(rules) != 1 || rules[0] != what {
					t.Fatalf(`%v != "%s"`, rules, what)
				}
			}
		}

		if what != "" && !found {
			t.Fatalf(`didn't find "%s"`, who)
		}
		if what == "" && found {
			t.Fatalf(`found "%s"`, who)
		}
	}

	check("a", "Rule[a, tacos]")
	check("b", "RuleDelayed[b[x_], queso]")

	if err := s.WriteState(ctx, sid, []*storage.SymbolState{
		{
			Symbol:    "a",
			OwnValues: []string{"Rule[a, chips]"},
		},
	}); err != nil {
		t.Fatal(err)
	}

	check("a", "Rule[a, chips]")
	check("b", "RuleDelayed[b[x_], queso]")

	if err := s.WriteState(ctx, sid, []*storage.SymbolState{
		{
			Symbol:  "a",
			Deleted: true,
		},
	}); err != nil {
		t.Fatal(err)
	}

	check("a", "")
	check("b", "RuleDelayed[b[x_], queso]")

	sids, err := s.Sessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{sid}, sids); diff != "" {
		t.Fatal(diff)
	}

	if err := s.RemSession(ctx, sid); err != nil {
		t.Fatal(err)
	}
	if got, err := s.GetSession(ctx, sid); err != nil || got != nil {
		t.Fatal(got, err)
	}
	if sids, err = s.Sessions(ctx); err != nil || len(sids) != 0 {
		t.Fatal(sids, err)
	}
	// Removing it again is fine.
	if err := s.RemSession(ctx, sid); err != nil {
		t.Fatal(err)
	}
}

func TestSession(t *testing.T) {
	var (
		ctx = context.Background()
		s   = open(t, ctx)
		sid = "homer"
	)

	ev := core.NewEvaluator(nil, nil)
	for _, src := range []string{
		"SetAttributes[f, Orderless]",
		"SetDelayed[f[x_, y_], {x, y}]",
	} {
		if _, err := ev.EvaluateString(ctx, src); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.WriteState(ctx, sid, storage.Snapshot(ev.Defs, core.IsKernelSymbol)); err != nil {
		t.Fatal(err)
	}

	sss, err := s.GetSession(ctx, sid)
	if err != nil {
		t.Fatal(err)
	}
	other := core.NewEvaluator(nil, nil)
	if err = storage.Load(other.Defs, sss); err != nil {
		t.Fatal(err)
	}
	r, err := other.EvaluateString(ctx, "f[b, a]")
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Value.String(); got != "{a, b}" {
		t.Fatal(got)
	}
}

// BenchmarkBolt is just for fun.  Bolt is slow.
func BenchmarkBolt(b *testing.B) {
	var (
		ctx = context.Background()
		s   = open(b, ctx)
		sid = "simpsons"
	)

	sss := []*storage.SymbolState{
		{
			Symbol:    "a",
			OwnValues: []string{"Rule[a, tacos]"},
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.WriteState(ctx, sid, sss); err != nil {
			b.Fatal(err)
		}
	}
}
