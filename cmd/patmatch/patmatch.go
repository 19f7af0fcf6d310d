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

// Package main is a little command-line utility to invoke pattern matching.
//
//   patmatch -p 'f[x__, y__]' -s 'f[a, b, c]'
//   patmatch -setup 'SetAttributes[f, Orderless]' -p 'f[a, x_]' -s 'f[b, a]' -w '{{Rule[x, b]}}'
//
// Without -w, every match's Bindings are written, one per line.  With
// -w, the output is True or False depending on whether the matches
// are exactly the wanted ones (in any order).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/expr"
	"github.com/Comcast/mkernel/match"
)

type inputs []string

func (is *inputs) String() string {
	return strings.Join(*is, "; ")
}

func (is *inputs) Set(s string) error {
	*is = append(*is, s)
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var (
		fs = flag.NewFlagSet("patmatch", flag.ContinueOnError)

		patternSrc = fs.String("p", "", "pattern in FullForm")
		subjectSrc = fs.String("s", "", "subject in FullForm")
		wantSrc    = fs.String("w", "", "wanted List of Lists of Rules")

		bench = fs.Int("bench", 0, "number of times to run (and report time)")

		setup inputs
	)
	fs.Var(&setup, "setup", "input to evaluate first (repeatable)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	ev := core.NewEvaluator(nil, nil)
	for _, src := range setup {
		r, err := ev.EvaluateString(ctx, src)
		if err != nil {
			return err
		}
		for _, m := range r.Messages {
			log.Printf("%s", m)
		}
	}

	pattern, err := expr.Parse(*patternSrc)
	if err != nil {
		return fmt.Errorf("pattern: %w", err)
	}
	if err = match.Validate(pattern); err != nil {
		return err
	}
	subject, err := expr.Parse(*subjectSrc)
	if err != nil {
		return fmt.Errorf("subject: %w", err)
	}

	m := ev.NewEvaluation().Matcher()

	if 0 < *bench {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		allocs := stats.TotalAlloc
		then := time.Now()
		for i := 0; i < *bench; i++ {
			if _, err := m.Matches(ctx, pattern, subject, nil); err != nil {
				return err
			}
		}
		elapsed := time.Since(then)
		meanNanos := elapsed.Nanoseconds() / int64(*bench)

		runtime.ReadMemStats(&stats)
		allocated := (stats.TotalAlloc - allocs) / uint64(*bench)

		log.Printf("%d iterations, %d mean ns/Matches, %d mean bytes allocated per Matches", *bench, meanNanos, allocated)
	}

	bss, err := m.Matches(ctx, pattern, subject, nil)
	if err != nil {
		return err
	}

	if *wantSrc != "" {
		want, err := expr.Parse(*wantSrc)
		if err != nil {
			return fmt.Errorf("wanted: %w", err)
		}
		fmt.Fprintf(out, "%s\n", expr.Bool(Same(want, bss)))
		return nil
	}

	for _, bs := range bss {
		fmt.Fprintf(out, "%s\n", bs)
	}
	return nil
}

// Same reports whether the wanted List of Lists of Rules has exactly
// the given Bindings, ignoring order.
func Same(want expr.Expr, bss []match.Bindings) bool {
	c, is := want.(*expr.Compound)
	if !is || !expr.Equal(c.Head(), expr.SymList) || c.Len() != len(bss) {
		return false
	}
	have := make(map[string]int, len(bss))
	for _, bs := range bss {
		have[bs.String()]++
	}
	for _, w := range c.Args() {
		s := w.String()
		if have[s] == 0 {
			return false
		}
		have[s]--
	}
	return true
}
