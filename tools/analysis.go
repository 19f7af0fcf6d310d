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

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
	"github.com/Comcast/mkernel/match"
)

// Analysis summarizes the user definitions in an Evaluator and
// points out likely mistakes.
type Analysis struct {
	Errors []string

	Symbols    int
	OwnValues  int
	DownValues int
	UpValues   int
	Defaults   int
	Conditions int

	// Undefined are symbols applied as functions in right-hand
	// sides that have no rules and no Builtin.
	Undefined []string

	// Unreferenced are symbols with rules that no other symbol's
	// rules mention.
	Unreferenced []string

	// Recursive are symbols whose rules mention the symbol itself.
	Recursive []string

	// Builtins are the non-kernel symbols with Builtins.
	Builtins []string
}

// Analyze looks at every symbol that's not a kernel symbol.
func Analyze(ev *core.Evaluator) (*Analysis, error) {
	g := Dependencies(ev.Defs, core.IsKernelSymbol)

	a := Analysis{
		Symbols: len(g.Symbols),
		Errors:  make([]string, 0, 8),
	}

	builtins := make(map[string]bool)
	for _, s := range ev.Builtins() {
		if !core.IsKernelSymbol(s) {
			builtins[string(s)] = true
		}
	}

	referenced, recursive, undefined := make(map[string]bool), make(map[string]bool), make(map[string]bool)

	for _, s := range g.Symbols {
		d := g.Definition(s)
		a.OwnValues += len(d.OwnValues)
		a.DownValues += len(d.DownValues)
		a.UpValues += len(d.UpValues)
		a.Defaults += len(d.Defaults)

		for _, t := range g.Edges[s] {
			if t == s {
				recursive[string(s)] = true
			} else {
				referenced[string(t)] = true
			}
		}

		for _, k := range defs.Kinds {
			for _, r := range d.Rules(k) {
				if err := match.Validate(r.LHS); err != nil {
					a.Errors = append(a.Errors, string(s)+": "+err.Error())
				}
				if r.Condition != nil {
					a.Conditions++
				}
				vars := make(map[expr.Symbol]bool)
				patternVariables(r.LHS, vars)
				walkHeads(r.RHS, func(h expr.Symbol) {
					if vars[h] || core.IsKernelSymbol(h) || builtins[string(h)] {
						return
					}
					if d := ev.Defs.Definition(h); d == nil || len(d.Rules(defs.DownValues))+len(d.Rules(defs.OwnValues)) == 0 {
						undefined[string(h)] = true
					}
				})
			}
		}
	}

	unreferenced := make(map[string]bool)
	for _, s := range g.Symbols {
		d := g.Definition(s)
		if len(d.OwnValues)+len(d.DownValues)+len(d.UpValues) == 0 {
			continue
		}
		if !referenced[string(s)] {
			unreferenced[string(s)] = true
		}
	}

	a.Undefined = keysToStringSlice(undefined)
	a.Unreferenced = keysToStringSlice(unreferenced)
	a.Recursive = keysToStringSlice(recursive)
	a.Builtins = keysToStringSlice(builtins)

	return &a, nil
}

// walkHeads calls f on each symbol that's the head of a compound.
func walkHeads(x expr.Expr, f func(expr.Symbol)) {
	c, is := x.(*expr.Compound)
	if !is {
		return
	}
	if h, is := c.Head().(expr.Symbol); is {
		f(h)
	} else {
		walkHeads(c.Head(), f)
	}
	for _, y := range c.Args() {
		walkHeads(y, f)
	}
}

// keysToStringSlice returns the map's keys sorted.
func keysToStringSlice(m map[string]bool) []string {
	list := make([]string, 0, len(m))
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)
	return list
}
