// Package defs is the store of definitions: each symbol's
// attributes, its rules (own, down, and up values), and its defaults
// for optional arguments.
//
// A Registry is shared state.  Every method is safe to call
// concurrently, and every read returns a snapshot, so a caller holding
// rules or attributes never observes a half-finished update.  A
// Registry is not a session: independent sessions should each have
// their own Registry (see Copy).
package defs

import (
	"log"
	"sort"
	"sync"

	"github.com/Comcast/mkernel/expr"
)

// Definition is everything the Registry knows about one symbol.
type Definition struct {
	Attributes Attributes
	OwnValues  []*Rule
	DownValues []*Rule
	UpValues   []*Rule

	// Defaults maps argument positions (1-based) to default
	// values.  Position 0 is the default for all positions.
	Defaults map[int]expr.Expr
}

// Copy makes a copy that shares Rules (which are immutable) but not
// slices or maps.
func (d *Definition) Copy() *Definition {
	if d == nil {
		return nil
	}
	acc := &Definition{
		Attributes: d.Attributes,
		OwnValues:  copyRules(d.OwnValues),
		DownValues: copyRules(d.DownValues),
		UpValues:   copyRules(d.UpValues),
	}
	if d.Defaults != nil {
		acc.Defaults = make(map[int]expr.Expr, len(d.Defaults))
		for p, v := range d.Defaults {
			acc.Defaults[p] = v
		}
	}
	return acc
}

// Rules returns the rules of the given kind.  The slice is not
// copied.
func (d *Definition) Rules(k Kind) []*Rule {
	switch k {
	case OwnValues:
		return d.OwnValues
	case DownValues:
		return d.DownValues
	case UpValues:
		return d.UpValues
	}
	return nil
}

func (d *Definition) setRules(k Kind, rs []*Rule) {
	switch k {
	case OwnValues:
		d.OwnValues = rs
	case DownValues:
		d.DownValues = rs
	case UpValues:
		d.UpValues = rs
	}
}

// Empty reports whether there's nothing to remember.
func (d *Definition) Empty() bool {
	return d.Attributes == 0 &&
		len(d.OwnValues) == 0 &&
		len(d.DownValues) == 0 &&
		len(d.UpValues) == 0 &&
		len(d.Defaults) == 0
}

func copyRules(rs []*Rule) []*Rule {
	if len(rs) == 0 {
		return nil
	}
	acc := make([]*Rule, len(rs))
	copy(acc, rs)
	return acc
}

// Registry holds Definitions by symbol.
type Registry struct {
	// Debug turns on logging of mutations.
	Debug bool

	mu      sync.RWMutex
	defs    map[expr.Symbol]*Definition
	version uint64
}

// NewRegistry makes an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[expr.Symbol]*Definition, 64),
	}
}

func (r *Registry) logf(format string, args ...interface{}) {
	if r.Debug {
		log.Printf("Registry."+format, args...)
	}
}

// get returns the Definition for the symbol, creating it if
// necessary.  Caller must hold the write lock.
func (r *Registry) get(s expr.Symbol) *Definition {
	d, have := r.defs[s]
	if !have {
		d = &Definition{}
		r.defs[s] = d
	}
	return d
}

// Version changes whenever the Registry does.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Attributes returns the symbol's attributes.
func (r *Registry) Attributes(s expr.Symbol) Attributes {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, have := r.defs[s]; have {
		return d.Attributes
	}
	return 0
}

// SetAttributes adds the given attributes to the symbol's
// attributes.
func (r *Registry) SetAttributes(s expr.Symbol, as Attributes) {
	r.logf("SetAttributes %s %s", s, as)
	r.mu.Lock()
	r.version++
	r.get(s).Attributes |= as
	r.mu.Unlock()
}

// ClearAttributes removes the given attributes.
func (r *Registry) ClearAttributes(s expr.Symbol, as Attributes) {
	r.logf("ClearAttributes %s %s", s, as)
	r.mu.Lock()
	r.version++
	r.get(s).Attributes &^= as
	r.mu.Unlock()
}

// DefineRule adds a rule of the given kind to the symbol.
//
// Rules are kept in the order they were defined.  A rule with the
// same LHS and condition as an existing rule replaces that rule in
// place.
func (r *Registry) DefineRule(s expr.Symbol, k Kind, rule *Rule) {
	r.logf("DefineRule %s %s %s", s, k, rule)
	r.mu.Lock()
	r.version++
	defer r.mu.Unlock()
	d := r.get(s)
	rs := d.Rules(k)
	for i, have := range rs {
		if have.Same(rule) {
			acc := copyRules(rs)
			acc[i] = rule
			d.setRules(k, acc)
			return
		}
	}
	// Always copy-on-write so that slices previously returned by
	// Rules stay untouched.
	acc := make([]*Rule, len(rs), len(rs)+1)
	copy(acc, rs)
	d.setRules(k, append(acc, rule))
}

// Rules returns the symbol's rules of the given kind in definition
// order.
func (r *Registry) Rules(s expr.Symbol, k Kind) []*Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, have := r.defs[s]; have {
		return d.Rules(k)
	}
	return nil
}

// SetDefault sets the default for the given position (1-based; 0
// means every position).
func (r *Registry) SetDefault(s expr.Symbol, pos int, v expr.Expr) {
	r.logf("SetDefault %s %d %s", s, pos, v)
	r.mu.Lock()
	r.version++
	defer r.mu.Unlock()
	d := r.get(s)
	if d.Defaults == nil {
		d.Defaults = make(map[int]expr.Expr, 2)
	}
	d.Defaults[pos] = v
}

// Default looks up the default for the given position of the
// symbol.  If that position doesn't have one, the all-positions
// default (if any) is used.
func (r *Registry) Default(s expr.Symbol, pos int) (expr.Expr, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, have := r.defs[s]
	if !have || d.Defaults == nil {
		return nil, false
	}
	if v, have := d.Defaults[pos]; have {
		return v, true
	}
	v, have := d.Defaults[0]
	return v, have
}

// Clear removes the symbol's rules and defaults but not its
// attributes.
func (r *Registry) Clear(s expr.Symbol) {
	r.logf("Clear %s", s)
	r.mu.Lock()
	r.version++
	defer r.mu.Unlock()
	if d, have := r.defs[s]; have {
		r.defs[s] = &Definition{
			Attributes: d.Attributes,
		}
	}
}

// ClearAll removes everything about the symbol: attributes, rules,
// and defaults.
func (r *Registry) ClearAll(s expr.Symbol) {
	r.logf("ClearAll %s", s)
	r.mu.Lock()
	r.version++
	delete(r.defs, s)
	r.mu.Unlock()
}

// Reset removes all definitions.
func (r *Registry) Reset() {
	r.logf("Reset")
	r.mu.Lock()
	r.version++
	r.defs = make(map[expr.Symbol]*Definition, 64)
	r.mu.Unlock()
}

// Definition returns a copy of the symbol's Definition (or nil).
func (r *Registry) Definition(s expr.Symbol) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defs[s].Copy()
}

// Install replaces the symbol's Definition with a copy of the given
// one.
func (r *Registry) Install(s expr.Symbol, d *Definition) {
	r.logf("Install %s", s)
	r.mu.Lock()
	r.version++
	defer r.mu.Unlock()
	if d == nil || d.Empty() {
		delete(r.defs, s)
		return
	}
	r.defs[s] = d.Copy()
}

// Symbols returns all symbols with definitions, sorted.
func (r *Registry) Symbols() []expr.Symbol {
	r.mu.RLock()
	acc := make([]expr.Symbol, 0, len(r.defs))
	for s, d := range r.defs {
		if !d.Empty() {
			acc = append(acc, s)
		}
	}
	r.mu.RUnlock()
	sort.Slice(acc, func(i, j int) bool { return acc[i] < acc[j] })
	return acc
}

// Copy makes an independent Registry with the same definitions.
func (r *Registry) Copy() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc := NewRegistry()
	acc.Debug = r.Debug
	for s, d := range r.defs {
		acc.defs[s] = d.Copy()
	}
	return acc
}
