/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/interpreters/noop"
	"github.com/Comcast/mkernel/storage"

	md "github.com/russross/blackfriday/v2"
	"gopkg.in/yaml.v2"
)

// RenderDefsHTML writes an HTML fragment describing the definitions.
//
// The doc is Markdown.
func RenderDefsHTML(doc string, sss []*storage.SymbolState, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	if doc != "" {
		f(`<div class="packageDoc doc">%s</div>`, md.Run([]byte(doc)))
	}

	code := func(class, title string, srcs []string) {
		if len(srcs) == 0 {
			return
		}
		f(`<tr><td></td><td>%s</td><td><div class="%s">`, title, class)
		for _, src := range srcs {
			f(`<div class="code"><code>%s</code></div>`, html.EscapeString(src))
		}
		f(`</div></td></tr>`)
	}

	f(`<div class="symbols"><table>`)
	for _, ss := range sss {
		f(`<tr class="symbol"><td><span id="%s" class="symbolName">%s</span></td><td>`, ss.Symbol, ss.Symbol)
		f(`<table>`)
		if 0 < len(ss.Attributes) {
			f(`<tr><td></td><td>attributes</td><td><span class="attributes">%s</span></td></tr>`,
				strings.Join(ss.Attributes, ", "))
		}
		code("ownValues", "own values", ss.OwnValues)
		code("downValues", "down values", ss.DownValues)
		code("upValues", "up values", ss.UpValues)
		if 0 < len(ss.Defaults) {
			positions := make([]int, 0, len(ss.Defaults))
			for pos := range ss.Defaults {
				positions = append(positions, pos)
			}
			sort.Ints(positions)
			srcs := make([]string, len(positions))
			for i, pos := range positions {
				if pos == 0 {
					srcs[i] = fmt.Sprintf("Default[%s] = %s", ss.Symbol, ss.Defaults[pos])
				} else {
					srcs[i] = fmt.Sprintf("Default[%s, %d] = %s", ss.Symbol, pos, ss.Defaults[pos])
				}
			}
			code("defaults", "defaults", srcs)
		}
		f(`</table>`)
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderDefsPage writes a complete HTML page.
//
// With includeData, the page also gets the definitions as JSON in
// the variable thisPackage for client-side code.
func RenderDefsPage(title, doc string, sss []*storage.SymbolState, out io.Writer, cssFiles []string, includeData bool) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/defs-html.css"}
	}

	title = html.EscapeString(title)

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, title)

	if includeData {
		js, err := json.Marshal(sss)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, `
  <script>
  var thisPackage = %s;
  </script>
`, js)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, title)

	if err := RenderDefsHTML(doc, sss, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderPackagePage loads a Package file into a fresh
// Evaluator and renders the resulting definitions.
//
// Builtin code isn't run, so a Package's Source can't depend on its
// Builtins here.
func ReadAndRenderPackagePage(filename string, cssFiles []string, out io.Writer, includeData bool) error {
	p, err := ReadPackage(filename)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interpreters := noop.NewInterpreters()
	interpreters.I.Silent = true

	ev := core.NewEvaluator(nil, nil)
	names := make([]string, 0, len(p.Builtins))
	for _, b := range p.Builtins {
		names = append(names, b.Interpreter)
	}
	if _, err = p.Load(ctx, ev, interpreters.Map(names...)); err != nil {
		return err
	}

	sss := storage.Snapshot(ev.Defs, core.IsKernelSymbol)

	return RenderDefsPage(p.Name, p.Doc, sss, out, cssFiles, includeData)
}

// WriteYAML writes the definitions as a YAML list.
func WriteYAML(sss []*storage.SymbolState, out io.Writer) error {
	bs, err := yaml.Marshal(sss)
	if err != nil {
		return err
	}
	_, err = out.Write(bs)
	return err
}
