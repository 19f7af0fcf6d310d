// Package storage persists the definitions in a Registry.
//
// A session (typically one per connection or per user) is a set of
// SymbolStates.  Rules are stored as FullForm text, which
// expr.Parse reads back.
package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
)

// SymbolState is a presentation of a symbol's definition as stored
// in a Storage system.
type SymbolState struct {
	// Symbol is the name of the symbol.
	Symbol string `json:"symbol,omitempty" yaml:"symbol,omitempty"`

	Attributes []string       `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	OwnValues  []string       `json:"ownValues,omitempty" yaml:"ownValues,omitempty"`
	DownValues []string       `json:"downValues,omitempty" yaml:"downValues,omitempty"`
	UpValues   []string       `json:"upValues,omitempty" yaml:"upValues,omitempty"`
	Defaults   map[int]string `json:"defaults,omitempty" yaml:"defaults,omitempty"`

	// Deleted indicates that this symbol's definition has been
	// removed.
	Deleted bool `json:"-" yaml:"-"`
}

// Storage is a persistence interface that's suitable for sessions.
type Storage interface {
	Open(ctx context.Context) error

	Close(ctx context.Context) error

	MakeSession(ctx context.Context, sid string) error

	RemSession(ctx context.Context, sid string) error

	// Sessions lists the stored session ids.
	Sessions(ctx context.Context) ([]string, error)

	GetSession(ctx context.Context, sid string) ([]*SymbolState, error)

	WriteState(ctx context.Context, sid string, ss []*SymbolState) error
}

func rulesText(rs []*defs.Rule) []string {
	if len(rs) == 0 {
		return nil
	}
	acc := make([]string, len(rs))
	for i, r := range rs {
		acc[i] = r.String()
	}
	return acc
}

func parseRules(srcs []string) ([]*defs.Rule, error) {
	if len(srcs) == 0 {
		return nil, nil
	}
	acc := make([]*defs.Rule, len(srcs))
	for i, src := range srcs {
		x, err := expr.Parse(src)
		if err != nil {
			return nil, err
		}
		if acc[i], err = defs.RuleFromExpr(x); err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
	}
	return acc, nil
}

// AsSymbolState renders a Definition.
func AsSymbolState(s expr.Symbol, d *defs.Definition) *SymbolState {
	ss := &SymbolState{
		Symbol: string(s),
	}
	if d == nil || d.Empty() {
		ss.Deleted = true
		return ss
	}
	for _, a := range d.Attributes.Symbols() {
		ss.Attributes = append(ss.Attributes, string(a))
	}
	ss.OwnValues = rulesText(d.OwnValues)
	ss.DownValues = rulesText(d.DownValues)
	ss.UpValues = rulesText(d.UpValues)
	if 0 < len(d.Defaults) {
		ss.Defaults = make(map[int]string, len(d.Defaults))
		for pos, v := range d.Defaults {
			ss.Defaults[pos] = v.String()
		}
	}
	return ss
}

// Definition parses the SymbolState.
func (ss *SymbolState) Definition() (*defs.Definition, error) {
	d := &defs.Definition{}
	for _, name := range ss.Attributes {
		a, err := defs.ParseAttribute(expr.Symbol(name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		d.Attributes |= a
	}
	var err error
	if d.OwnValues, err = parseRules(ss.OwnValues); err != nil {
		return nil, err
	}
	if d.DownValues, err = parseRules(ss.DownValues); err != nil {
		return nil, err
	}
	if d.UpValues, err = parseRules(ss.UpValues); err != nil {
		return nil, err
	}
	if 0 < len(ss.Defaults) {
		d.Defaults = make(map[int]expr.Expr, len(ss.Defaults))
		for pos, src := range ss.Defaults {
			x, err := expr.Parse(src)
			if err != nil {
				return nil, err
			}
			d.Defaults[pos] = x
		}
	}
	return d, nil
}

// Snapshot renders every symbol in the Registry except those that
// skip (if not nil) says to skip.  The result is sorted by symbol.
func Snapshot(r *defs.Registry, skip func(expr.Symbol) bool) []*SymbolState {
	syms := r.Symbols()
	acc := make([]*SymbolState, 0, len(syms))
	for _, s := range syms {
		if skip != nil && skip(s) {
			continue
		}
		acc = append(acc, AsSymbolState(s, r.Definition(s)))
	}
	return acc
}

// Load installs the given definitions.
func Load(r *defs.Registry, sss []*SymbolState) error {
	for _, ss := range sss {
		if ss.Deleted {
			r.ClearAll(expr.Symbol(ss.Symbol))
			continue
		}
		d, err := ss.Definition()
		if err != nil {
			return fmt.Errorf("loading %s: %w", ss.Symbol, err)
		}
		r.Install(expr.Symbol(ss.Symbol), d)
	}
	return nil
}

// Changes returns what's needed to go from the before snapshot to
// the after one: changed or new states plus Deleted states for
// symbols that disappeared.
func Changes(before, after []*SymbolState) []*SymbolState {
	old := make(map[string]*SymbolState, len(before))
	for _, ss := range before {
		old[ss.Symbol] = ss
	}
	acc := make([]*SymbolState, 0, 8)
	for _, ss := range after {
		if was, have := old[ss.Symbol]; !have || !ss.same(was) {
			acc = append(acc, ss)
		}
		delete(old, ss.Symbol)
	}
	gone := make([]string, 0, len(old))
	for s := range old {
		gone = append(gone, s)
	}
	sort.Strings(gone)
	for _, s := range gone {
		acc = append(acc, &SymbolState{
			Symbol:  s,
			Deleted: true,
		})
	}
	return acc
}

func (ss *SymbolState) same(other *SymbolState) bool {
	if ss.Deleted != other.Deleted || len(ss.Defaults) != len(other.Defaults) {
		return false
	}
	for pos, v := range ss.Defaults {
		if w, have := other.Defaults[pos]; !have || v != w {
			return false
		}
	}
	return sameStrings(ss.Attributes, other.Attributes) &&
		sameStrings(ss.OwnValues, other.OwnValues) &&
		sameStrings(ss.DownValues, other.DownValues) &&
		sameStrings(ss.UpValues, other.UpValues)
}

func sameStrings(xs, ys []string) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i, x := range xs {
		if x != ys[i] {
			return false
		}
	}
	return true
}
