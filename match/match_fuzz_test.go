package match

// Fuzz patterns and subjects.  Match and then verify non-error
// results.

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/Comcast/mkernel/expr"
)

// Fuzz has parameters used to generate random patterns and subjects.
type Fuzz struct {
	Width       int
	Heads       []expr.Symbol
	Alphabet    string
	VarAlphabet string
	MaxNumber   int

	Symbols   float64
	Numbers   float64
	Blanks    float64
	Vars      float64
	Sequences float64
	Compounds float64

	// generated counts the number of atomic values generated.
	generated int64
}

// NoVars sets Blanks, Vars, and Sequences to zero so that no
// patterns will be generated.
func (f *Fuzz) NoVars() {
	f.Blanks = 0
	f.Vars = 0
	f.Sequences = 0
}

// NewFuzz returns a reasonable, general-purpose Fuzz.
func NewFuzz() *Fuzz {
	return &Fuzz{
		Width:       4,
		Heads:       []expr.Symbol{"g", "r", "o", "p"},
		Alphabet:    "abc",
		VarAlphabet: "XYZ",
		MaxNumber:   3,

		Symbols:   3,
		Numbers:   1,
		Blanks:    0.5,
		Vars:      2,
		Sequences: 0.5,
		Compounds: 3,
	}
}

// Gen generates a random pattern or subject.
func (f *Fuzz) Gen(r *rand.Rand, d int) expr.Expr {
	m := f.Symbols + f.Numbers + f.Blanks + f.Vars + f.Sequences
	if 0 < d {
		m += f.Compounds
	}

	t := r.Float64() * m
	if t < f.Symbols {
		f.generated++
		return expr.Symbol(f.Alphabet[r.Intn(len(f.Alphabet)):][:1])
	} else if t < f.Symbols+f.Numbers {
		f.generated++
		return expr.Integer(r.Intn(f.MaxNumber))
	} else if t < f.Symbols+f.Numbers+f.Blanks {
		f.generated++
		return expr.Blank()
	} else if t < f.Symbols+f.Numbers+f.Blanks+f.Vars {
		f.generated++
		return expr.Pattern(f.genVar(r), expr.Blank())
	} else if t < f.Symbols+f.Numbers+f.Blanks+f.Vars+f.Sequences {
		f.generated++
		return expr.Pattern(f.genVar(r), expr.BlankNullSequence())
	}
	return f.genCompound(r, d)
}

func (f *Fuzz) genVar(r *rand.Rand) expr.Symbol {
	return expr.Symbol(f.VarAlphabet[r.Intn(len(f.VarAlphabet)):][:1])
}

func (f *Fuzz) genCompound(r *rand.Rand, d int) expr.Expr {
	args := make([]expr.Expr, r.Intn(f.Width))
	for i := range args {
		args[i] = f.Gen(r, d-1)
	}
	return expr.New(f.Heads[r.Intn(len(f.Heads))], args...)
}

// TestMatchFuzz matches a bunch of patterns against a bunch of subjects.
//
// Verifies some of the results.
func TestMatchFuzz(t *testing.T) {
	var (
		pats           = 300
		subjectsPerPat = 300

		d   = 3
		r   = rand.New(rand.NewSource(42))
		p   = NewFuzz()
		s   = NewFuzz()
		m   = NewMatcher(newRegistry())
		ctx = context.Background()

		matched     = 0
		attempted   = 0
		errs        = 0
		maxBindings = 0
	)
	s.NoVars()

	then := time.Now()
	for i := 0; i < pats; i++ {
		pat := p.Gen(r, d)
		for j := 0; j < subjectsPerPat; j++ {
			subject := s.Gen(r, d)
			bss, err := m.Matches(ctx, pat, subject, nil)
			attempted++
			if err != nil {
				errs++
				continue
			}
			if len(bss) == 0 {
				continue
			}
			matched++
			// Matching again with a result as the initial
			// bindings should give back exactly that result.
			for _, bs := range bss {
				check, err := m.Matches(ctx, pat, subject, bs)
				if err != nil {
					t.Fatal(err)
				}
				if len(check) != 1 {
					t.Fatalf("%s %s %s: %v", pat, subject, bs, check)
				}
				if check[0].key() != bs.key() {
					t.Fatalf("%s %s: %s != %s", pat, subject, check[0], bs)
				}
			}
			if maxBindings < len(bss) {
				maxBindings = len(bss)
			}
		}
	}
	elapsed := time.Now().Sub(then)

	fmt.Printf(`fuzzed      %d
matched     %f%%
errors      %f%% (%d)
elapsed     %fms
maxBindings %d
generated   %d
`,
		attempted,
		100*float64(matched)/float64(attempted),
		100*float64(errs)/float64(attempted), errs,
		elapsed.Seconds()*1000,
		maxBindings,
		p.generated+s.generated)
}
