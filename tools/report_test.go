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
	"bytes"
	"strings"
	"testing"

	"github.com/Comcast/mkernel/storage"
)

func TestRenderPackagePage(t *testing.T) {

	t.Run("withoutData", func(t *testing.T) {
		out := bytes.NewBuffer(make([]byte, 0, 1024*16))
		if err := ReadAndRenderPackagePage("testdata/peano.yaml", []string{"defs.css"}, out, false); err != nil {
			t.Fatal(err)
		}
		s := out.String()
		for _, want := range []string{
			"<title>peano</title>",
			`<link href="defs.css" rel="stylesheet">`,
			"<em>Peano</em>",
			`<span id="plus" class="symbolName">plus</span>`,
			"RuleDelayed[double[n_], plus[n, n]]",
		} {
			if !strings.Contains(s, want) {
				t.Fatalf("no %s in\n%s", want, s)
			}
		}
		if strings.Contains(s, "thisPackage") {
			t.Fatal("didn't want data")
		}
	})

	t.Run("withData", func(t *testing.T) {
		out := bytes.NewBuffer(make([]byte, 0, 1024*16))
		if err := ReadAndRenderPackagePage("testdata/peano.yaml", nil, out, true); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out.String(), `var thisPackage = [{"symbol":"double"`) {
			t.Fatal(out.String())
		}
	})
}

func TestRenderDefsHTML(t *testing.T) {
	sss := []*storage.SymbolState{
		{
			Symbol:     "f",
			Attributes: []string{"Flat", "Orderless"},
			Defaults:   map[int]string{0: "1", 2: "0"},
			UpValues:   []string{"RuleDelayed[g[f[x_]], x]"},
		},
	}
	out := &bytes.Buffer{}
	if err := RenderDefsHTML("", sss, out); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{
		`<span class="attributes">Flat, Orderless</span>`,
		"Default[f] = 1",
		"Default[f, 2] = 0",
		`<div class="upValues">`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("no %s in\n%s", want, s)
		}
	}
	if strings.Contains(s, "downValues") {
		t.Fatal(s)
	}
}

func TestWriteYAML(t *testing.T) {
	sss := []*storage.SymbolState{
		{
			Symbol:    "x",
			OwnValues: []string{"Rule[x, 1]"},
		},
	}
	out := &bytes.Buffer{}
	if err := WriteYAML(sss, out); err != nil {
		t.Fatal(err)
	}
	want := "- symbol: x\n  ownValues:\n  - Rule[x, 1]\n"
	if got := out.String(); got != want {
		t.Fatalf("got %q", got)
	}
}
