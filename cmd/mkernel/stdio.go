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

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Stdio reads one input per line and writes results.
type Stdio struct {
	In  io.Reader
	Out io.Writer

	// JSON means each result is written as one line of JSON.
	// Otherwise results are written for people.
	JSON bool

	// Prompt means write In[n]:= before reading each input.
	Prompt bool
}

// NewStdio uses the process's stdin and stdout and prompts only if
// stdin is a terminal.
func NewStdio(jsonOut bool) *Stdio {
	fd := os.Stdin.Fd()
	return &Stdio{
		In:     os.Stdin,
		Out:    os.Stdout,
		JSON:   jsonOut,
		Prompt: !jsonOut && (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)),
	}
}

// Loop evaluates inputs until EOF or ctx is done.
//
// Blank lines are skipped.  An input that doesn't parse gets an error
// report rather than ending the loop.
func (s *Stdio) Loop(ctx context.Context, session *Session) error {
	in := bufio.NewScanner(s.In)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := 1
	for {
		if s.Prompt {
			fmt.Fprintf(s.Out, "In[%d]:= ", n)
		}
		if !in.Scan() {
			return in.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		r, err := session.Eval(ctx, line)
		if s.JSON {
			reply := &Reply{Result: r}
			if err != nil {
				reply.Error = err.Error()
			}
			var js []byte
			if r != nil && reply.Error == "" {
				js, err = json.Marshal(r)
			} else {
				js, err = json.Marshal(reply)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(s.Out, "%s\n", js)
			continue
		}

		if err != nil {
			fmt.Fprintf(s.Out, "error: %v\n", err)
			continue
		}
		for _, m := range r.Messages {
			fmt.Fprintf(s.Out, "%s\n", m)
		}
		if r.Error != nil {
			fmt.Fprintf(s.Out, "error: %v\n", r.Error)
		}
		fmt.Fprintf(s.Out, "Out[%d]= %s\n", n, r.Value)
		n++
	}
}
