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
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"
)

type MermaidOpts struct {
	// ShowRuleCounts will add the number of rules to each node's
	// label.
	ShowRuleCounts bool `json:"showRuleCounts"`

	// RulesFill is the fill color for nodes with rules.  Does not
	// apply if RulesClass is set.
	RulesFill string `json:"rulesFill,omitempty"`

	// RulesClass will be the CSS class for nodes with rules.
	RulesClass string `json:"rulesClass,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given graph.
//
// An edge from the from symbol to the to symbol is drawn thick.
func Mermaid(g *Graph, w io.WriteCloser, opts *MermaidOpts, from, to expr.Symbol) error {

	if opts == nil {
		opts = &MermaidOpts{
			ShowRuleCounts: true,
			RulesFill:      "#bcf2db",
		}
	}

	fmt.Fprintf(w, "graph TB\n")

	nids := make(map[expr.Symbol]string, len(g.Symbols))
	for i, s := range g.Symbols {
		nid := fmt.Sprintf("n%d", i+1)
		nids[s] = nid

		d := g.Definition(s)
		n := 0
		for _, k := range defs.Kinds {
			n += len(d.Rules(k))
		}
		label := strings.Replace(string(s), `"`, `'`, -1)
		if opts.ShowRuleCounts && 0 < n {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		if n == 0 {
			fmt.Fprintf(w, "  %s(\"%s\")\n", nid, label)
			continue
		}
		fmt.Fprintf(w, "  %s[\"%s\"]\n", nid, label)
		switch {
		case opts.RulesClass != "":
			fmt.Fprintf(w, "  class %s %s\n", nid, opts.RulesClass)
		case opts.RulesFill != "":
			fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.RulesFill)
		}
	}

	for _, s := range g.Symbols {
		for _, t := range g.Edges[s] {
			arrow := "-->"
			if s == from && t == to {
				arrow = "==>"
			}
			fmt.Fprintf(w, "  %s %s %s\n", nids[s], arrow, nids[t])
		}
	}

	fmt.Fprintf(w, "\n")

	return w.Close()
}
