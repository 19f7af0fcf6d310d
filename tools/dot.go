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
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Comcast/mkernel/defs"
	"github.com/Comcast/mkernel/expr"

	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the Graph.  A really ugly dot
// file.
//
// Each node lists the symbol's rules.  The optional from and to
// symbols highlight that edge (say, the rewrite in progress) in red.
func Dot(g *Graph, w io.WriteCloser, from, to expr.Symbol) error {

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	for _, s := range g.Symbols {
		d := g.Definition(s)
		label := escapeHTML(string(s))
		if d.Attributes != 0 {
			label += `<BR/><FONT POINT-SIZE="8">` + escapeHTML(d.Attributes.String()) + `</FONT>`
		}

		var rules []string
		for _, k := range defs.Kinds {
			for _, r := range d.Rules(k) {
				rules = append(rules, r.String())
			}
		}
		shape := "record"
		style := "filled"
		fillcolor := "#99ddc8"
		color := "black"
		if 0 < len(rules) {
			shape = "note"
			fillcolor = "#52aa5e"
			bs, err := yaml.Marshal(rules)
			if err != nil {
				return err
			}
			label += `<FONT POINT-SIZE="6">` +
				`<BR/>` + strings.Replace(escapeHTML(string(bs)), "\n", `<BR ALIGN="LEFT"/>`, -1) +
				`</FONT>`
		} else {
			style += ",dashed"
		}
		if s == to {
			color = "red"
			fillcolor = "#f98b8b"
		}
		fmt.Fprintf(w, "  %s [shape=\"%s\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			dotID(s), shape, style, color, fillcolor, label)
	}

	for _, s := range g.Symbols {
		for _, t := range g.Edges[s] {
			color := "black"
			if s == from && t == to {
				color = "red"
			}
			fmt.Fprintf(w, "  %s -> %s [ color=\"%s\" ]\n", dotID(s), dotID(t), color)
		}
	}

	fmt.Fprintf(w, "}\n")
	return w.Close()
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(g *Graph, basename string, from, to expr.Symbol) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(g, dotfile, from, to); err != nil {
		return pngname, err
	}
	if err := exec.Command("dot", "-Tpng", "-Gstart=1", "-o", pngname, dotname).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

// dotID quotes the symbol since names like $x aren't dot IDs.
func dotID(s expr.Symbol) string {
	return strconv.Quote(string(s))
}

func escapeHTML(s string) string {
	s = strings.Replace(s, "&", `&amp;`, -1)
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}
