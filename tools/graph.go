/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

import (
	"sort"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
)

// Graph says which defined symbols each defined symbol's rules
// mention.
type Graph struct {
	// Symbols are the nodes, sorted.
	Symbols []expr.Symbol

	// Edges maps a symbol to the (sorted) symbols that its rules'
	// right-hand sides and conditions refer to.
	Edges map[expr.Symbol][]expr.Symbol

	defs map[expr.Symbol]*defs.Definition
}

// Dependencies computes the Graph for the Registry's symbols, except
// those that skip (if not nil) says to skip.
//
// Pattern variables aren't references.
func Dependencies(r *defs.Registry, skip func(expr.Symbol) bool) *Graph {
	g := &Graph{
		Edges: make(map[expr.Symbol][]expr.Symbol),
		defs:  make(map[expr.Symbol]*defs.Definition),
	}
	for _, s := range r.Symbols() {
		if skip != nil && skip(s) {
			continue
		}
		g.Symbols = append(g.Symbols, s)
		g.defs[s] = r.Definition(s)
	}

	for _, s := range g.Symbols {
		refs := make(map[expr.Symbol]bool)
		d := g.defs[s]
		for _, k := range defs.Kinds {
			for _, rule := range d.Rules(k) {
				vars := make(map[expr.Symbol]bool)
				patternVariables(rule.LHS, vars)
				f := func(t expr.Symbol) {
					if _, defined := g.defs[t]; defined && !vars[t] {
						refs[t] = true
					}
				}
				walkSymbols(rule.RHS, f)
				if rule.Condition != nil {
					walkSymbols(rule.Condition, f)
				}
			}
		}
		if 0 < len(refs) {
			acc := make([]expr.Symbol, 0, len(refs))
			for t := range refs {
				acc = append(acc, t)
			}
			sort.Slice(acc, func(i, j int) bool { return acc[i] < acc[j] })
			g.Edges[s] = acc
		}
	}
	return g
}

// Definition returns the node's definition.
func (g *Graph) Definition(s expr.Symbol) *defs.Definition {
	return g.defs[s]
}

func walkSymbols(x expr.Expr, f func(expr.Symbol)) {
	switch vv := x.(type) {
	case expr.Symbol:
		f(vv)
	case *expr.Compound:
		walkSymbols(vv.Head(), f)
		for _, y := range vv.Args() {
			walkSymbols(y, f)
		}
	}
}

func patternVariables(x expr.Expr, acc map[expr.Symbol]bool) {
	c, is := x.(*expr.Compound)
	if !is {
		return
	}
	if p, is := expr.AsApplication(c, expr.SymPattern); is && 0 < p.Len() {
		if name, is := p.Arg(0).(expr.Symbol); is {
			acc[name] = true
		}
	}
	patternVariables(c.Head(), acc)
	for _, y := range c.Args() {
		patternVariables(y, acc)
	}
}
