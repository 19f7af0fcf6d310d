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

// Package main runs expectation sessions.
//
// By default a session runs in-process.  With -x, the session runs
// against a kernel subprocess, which should write JSON lines:
//
//   mexpect -f session.yaml
//   mexpect -f session.yaml -x mkernel -- -json
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/interpreters"
	"github.com/Comcast/mkernel/interpreters/goja"
	"github.com/Comcast/mkernel/tools"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatal(err)
	}
	log.Printf("passed")
}

func run(ctx context.Context, args []string) error {
	var (
		fs = flag.NewFlagSet("mexpect", flag.ContinueOnError)

		inputFilename = fs.String("f", "session.yaml", "filename for test session")
		dir           = fs.String("d", ".", "working directory for the subprocess")
		executable    = fs.String("x", "", "kernel executable (if not in-process)")
		showStderr    = fs.Bool("e", true, "show subprocess stderr")
		verbose       = fs.Bool("v", false, "show inputs and outputs")
		timeout       = fs.Duration("t", 10*time.Second, "main timeout")
		libDir        = fs.String("l", "", "directory for ECMAScript libraries")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := tools.ReadSession(*inputFilename)
	if err != nil {
		return err
	}

	is := interpreters.Standard()
	if *libDir != "" {
		if g, ok := is["goja"].(*goja.Interpreter); ok {
			g.LibraryProvider = goja.MakeFileLibraryProvider(*libDir)
		}
	}
	s.Interpreters = is
	s.ShowStderr = *showStderr
	if *verbose {
		s.Verbose = true
		s.ShowStdin = true
		s.ShowStdout = true
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if *executable != "" {
		return s.Run(ctx, *dir, append([]string{*executable}, fs.Args()...)...)
	}
	return s.Eval(ctx, core.NewEvaluator(nil, nil))
}
