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

// Package tools has utilities for working with kernel definitions:
// packages of definitions, expectation sessions, reports, and graphs.
package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/expr"

	"github.com/jsccast/yaml"
)

// Package is a named set of definitions.
//
// Loading a Package installs its Builtins and then evaluates each
// Source input in order.
type Package struct {
	Name string `json:"name" yaml:"name"`

	// Doc is Markdown.
	Doc string `json:"doc,omitempty" yaml:"doc,omitempty"`

	// Control, if given, replaces the evaluator's Control.
	Control *core.Control `json:"control,omitempty" yaml:"control,omitempty"`

	// Builtins maps symbol names to code.
	Builtins map[string]*core.BuiltinSource `json:"builtins,omitempty" yaml:"builtins,omitempty"`

	// Source is a list of FullForm inputs.
	Source []string `json:"source,omitempty" yaml:"source,omitempty"`
}

// LoadError reports the Package input that failed.
type LoadError struct {
	Input string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %q: %v", e.Input, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ParsePackage reads a Package from YAML (or JSON).
func ParsePackage(bs []byte) (*Package, error) {
	var p Package
	if err := yaml.Unmarshal(bs, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ReadPackage reads a Package file, expanding any %inline("NAME")
// directives relative to the file's directory.
func ReadPackage(filename string) (*Package, error) {
	bs, err := ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	return ParsePackage(bs)
}

// Inputs returns FullForm inputs that set up the Package's Control
// and Source in another kernel.  Builtins aren't included.
func (p *Package) Inputs() []string {
	var acc []string
	if p.Control != nil {
		if 0 < p.Control.IterationLimit {
			acc = append(acc, fmt.Sprintf("Set[$IterationLimit, %d]", p.Control.IterationLimit))
		}
		if 0 < p.Control.RecursionLimit {
			acc = append(acc, fmt.Sprintf("Set[$RecursionLimit, %d]", p.Control.RecursionLimit))
		}
	}
	return append(acc, p.Source...)
}

// Load installs the Package into the Evaluator.
//
// The messages emitted by the Source inputs are returned.  An input
// that doesn't parse, or whose evaluation doesn't finish, is an error.
func (p *Package) Load(ctx context.Context, ev *core.Evaluator, interpreters core.InterpretersMap) ([]*core.Message, error) {
	if p.Control != nil {
		ev.SetControl(p.Control)
	}

	names := make([]string, 0, len(p.Builtins))
	for name := range p.Builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ev.Install(ctx, expr.Symbol(name), p.Builtins[name], interpreters); err != nil {
			return nil, &LoadError{Input: name, Err: err}
		}
	}

	var acc []*core.Message
	for _, src := range p.Source {
		r, err := ev.EvaluateString(ctx, src)
		if err != nil {
			return acc, &LoadError{Input: src, Err: err}
		}
		acc = append(acc, r.Messages...)
		if r.StoppedBecause != core.Done {
			err = r.Error
			if err == nil {
				err = fmt.Errorf("stopped: %s", r.StoppedBecause)
			}
			return acc, &LoadError{Input: src, Err: err}
		}
	}
	return acc, nil
}
